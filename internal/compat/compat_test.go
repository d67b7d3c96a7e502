package compat

import (
	"testing"

	"github.com/BasixKOR/boa/internal/test"
)

func TestHas(t *testing.T) {
	f := Proxy | BigIntLiterals
	test.AssertEqual(t, f.Has(Proxy), true)
	test.AssertEqual(t, f.Has(BigIntLiterals), true)
	test.AssertEqual(t, f.Has(Reflect), false)
}

func TestAllHasEveryFeature(t *testing.T) {
	for _, bit := range []JSFeature{
		BigIntLiterals, PrivateFields, PrivateMethods, TopLevelAwait,
		Proxy, Reflect, AsyncGenerators, RegExpUnicodeSets, WeakRefs, ClassStaticBlocks,
	} {
		if !All.Has(bit) {
			t.Fatalf("All is missing a feature bit: %d", bit)
		}
	}
}

func TestNames(t *testing.T) {
	names := (Proxy | Reflect).Names()
	test.AssertEqual(t, len(names), 2)
	test.AssertEqual(t, names[0], "proxy")
	test.AssertEqual(t, names[1], "reflect")
}
