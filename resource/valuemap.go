package resource

import (
	"fmt"
	"maps"

	"github.com/mitchellh/mapstructure"
)

// ValueMap holds the properties of a resource. Backends store values with
// different fidelity (YAML keeps ints and bools, Redis hands back what was
// encoded), so the typed getters convert weakly.
type ValueMap map[string]any

// Clone returns a shallow copy of m. A nil map clones to an empty one.
func (m ValueMap) Clone() ValueMap {
	out := make(ValueMap, len(m))
	maps.Copy(out, m)
	return out
}

// Has reports whether key is set.
func (m ValueMap) Has(key string) bool {
	_, ok := m[key]
	return ok
}

// GetString returns the value of key as a string, or def when it is missing or
// cannot be converted.
func (m ValueMap) GetString(key, def string) string {
	var out string
	if !m.weak(key, &out) {
		return def
	}
	return out
}

// GetInt returns the value of key as an int, or def.
func (m ValueMap) GetInt(key string, def int) int {
	var out int
	if !m.weak(key, &out) {
		return def
	}
	return out
}

// GetBool returns the value of key as a bool, or def.
func (m ValueMap) GetBool(key string, def bool) bool {
	var out bool
	if !m.weak(key, &out) {
		return def
	}
	return out
}

// GetStrings returns the value of key as a string slice. A single value becomes
// a one-element slice.
func (m ValueMap) GetStrings(key string) []string {
	var out []string
	if !m.weak(key, &out) {
		return nil
	}
	return out
}

// Decode copies the properties into the struct pointed to by out, matching
// fields by their `mapstructure` tag or, failing that, by name.
func (m ValueMap) Decode(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("creating decoder: %w", err)
	}
	if err := dec.Decode(map[string]any(m)); err != nil {
		return fmt.Errorf("decoding properties: %w", err)
	}
	return nil
}

func (m ValueMap) weak(key string, out any) bool {
	v, ok := m[key]
	if !ok || v == nil {
		return false
	}
	return mapstructure.WeakDecode(v, out) == nil
}
