package config

import (
	"testing"

	"github.com/BasixKOR/boa/internal/compat"
	"github.com/BasixKOR/boa/internal/test"
)

func TestDefault(t *testing.T) {
	o := Default()
	test.AssertEqual(t, o.StrictModeByDefault, false)
	test.AssertEqual(t, o.Features.Has(compat.Proxy), true)
	test.AssertEqual(t, o.MaxCallStackDepth > 0, true)
}

func TestIsWellKnown(t *testing.T) {
	test.AssertEqual(t, IsWellKnown([]string{"Math", "max"}), true)
	test.AssertEqual(t, IsWellKnown([]string{"Math", "nope"}), false)
	test.AssertEqual(t, IsWellKnown([]string{"Reflect", "get"}), true)
}
