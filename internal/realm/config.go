package realm

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/BasixKOR/boa/internal/compat"
	"github.com/BasixKOR/boa/internal/config"
)

// fileConfig is the TOML shape LoadConfig reads, mirroring config.Options
// field-for-field with the feature bitset spelled out as names.
type fileConfig struct {
	StrictModeByDefault *bool    `toml:"strict_mode_by_default"`
	OpcodeBudget        *uint64  `toml:"opcode_budget"`
	MaxCallStackDepth   *int     `toml:"max_call_stack_depth"`
	DisabledFeatures    []string `toml:"disabled_features"`
}

var featureNames = map[string]compat.JSFeature{
	"bigint-literals":     compat.BigIntLiterals,
	"private-fields":      compat.PrivateFields,
	"private-methods":     compat.PrivateMethods,
	"top-level-await":     compat.TopLevelAwait,
	"proxy":               compat.Proxy,
	"reflect":             compat.Reflect,
	"async-generators":    compat.AsyncGenerators,
	"regexp-unicode-sets": compat.RegExpUnicodeSets,
	"weak-refs":           compat.WeakRefs,
	"class-static-blocks": compat.ClassStaticBlocks,
}

// LoadConfig reads realm options from a TOML file, starting from the
// defaults and overriding only the keys present (the same
// file-overrides-defaults layering the pack's hooks library uses for its
// own TOML runtime configuration).
func LoadConfig(path string) (config.Options, error) {
	opts := config.Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, err
	}
	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return opts, err
	}
	if fc.StrictModeByDefault != nil {
		opts.StrictModeByDefault = *fc.StrictModeByDefault
	}
	if fc.OpcodeBudget != nil {
		opts.OpcodeBudget = *fc.OpcodeBudget
	}
	if fc.MaxCallStackDepth != nil {
		opts.MaxCallStackDepth = *fc.MaxCallStackDepth
	}
	for _, name := range fc.DisabledFeatures {
		if f, ok := featureNames[name]; ok {
			opts.Features &^= f
		}
	}
	return opts, nil
}
