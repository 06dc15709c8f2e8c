// Package config loads engine-wide defaults from a TOML file and a
// sandbox permission set from a YAML file, the same split the teacher
// repo's own config surface draws between "defaults" and "rules": TOML
// for plain scalar settings (BurntSushi/toml), YAML for the structured,
// nested permission tree (goccy/go-yaml, via sandbox.ParseYAML).
package config

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/kestrelang/kestrel/sandbox"
	"github.com/kestrelang/kestrel/value"
)

// Defaults is the TOML-decodable shape of an engine's scalar settings.
type Defaults struct {
	Strict           bool `toml:"strict"`
	Silent           bool `toml:"silent"`
	Safe             bool `toml:"safe"`
	StrictArithmetic bool `toml:"strict_arithmetic"`
	CacheSize        int  `toml:"cache_size"`
	MathPrecision    uint `toml:"math_precision"`
	MathScale        int  `toml:"math_scale"`
}

// DefaultDefaults matches scope.DefaultOptions/value.DefaultMathContext so
// a missing config file and an empty one behave identically.
func DefaultDefaults() Defaults {
	return Defaults{
		Strict:        true,
		CacheSize:     512,
		MathPrecision: value.DefaultMathContext.Precision,
		MathScale:     value.DefaultMathContext.Scale,
	}
}

// LoadDefaults reads path as TOML into a Defaults, starting from
// DefaultDefaults so an omitted field keeps its default value rather than
// zeroing out.
func LoadDefaults(path string) (Defaults, error) {
	d := DefaultDefaults()
	_, err := toml.DecodeFile(path, &d)
	if err != nil {
		return Defaults{}, err
	}
	return d, nil
}

// MathContext renders d's precision/scale fields as a value.MathContext.
func (d Defaults) MathContext() value.MathContext {
	return value.MathContext{Precision: d.MathPrecision, Scale: d.MathScale}
}

// LoadPermissions reads path as the sandbox.RuleSet YAML shape and compiles
// it into a *sandbox.Permissions.
func LoadPermissions(path string) (*sandbox.Permissions, error) {
	doc, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return sandbox.ParseYAML(doc)
}
