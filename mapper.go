package slice

import "reflect"

// ClassToKeyMapper maps the dynamic name of a model type to its container
// key.
type ClassToKeyMapper interface {
	Key(className string) (Key, bool)
}

// TypeMapper is a ClassToKeyMapper backed by a name index. Each added key is
// reachable by its Go type string ("*models.Page"), its fully qualified
// name ("github.com/acme/site/models.Page") and, for named keys, its name.
// Populate it before handing it to concurrent requests.
type TypeMapper struct {
	keys map[string]Key
}

// NewTypeMapper returns a mapper indexing keys.
func NewTypeMapper(keys ...Key) *TypeMapper {
	m := &TypeMapper{keys: make(map[string]Key)}
	for _, k := range keys {
		m.Add(k)
	}
	return m
}

// MapperFor indexes every key registered in c.
func MapperFor(c Container) *TypeMapper {
	return NewTypeMapper(c.Keys()...)
}

// Add indexes key under all of its names. Names already taken keep their
// first key.
func (m *TypeMapper) Add(key Key) {
	if key.Type == nil {
		return
	}
	if key.Name != "" {
		m.put(key.Name, key)
		return
	}
	m.put(key.Type.String(), key)
	if qualified := qualifiedName(key.Type); qualified != "" {
		m.put(qualified, key)
	}
}

// Alias makes key reachable as name, replacing any previous mapping.
func (m *TypeMapper) Alias(name string, key Key) {
	m.keys[name] = key
}

func (m *TypeMapper) Key(className string) (Key, bool) {
	k, ok := m.keys[className]
	return k, ok
}

func (m *TypeMapper) put(name string, key Key) {
	if _, exists := m.keys[name]; !exists {
		m.keys[name] = key
	}
}

func qualifiedName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" || t.PkgPath() == "" {
		return ""
	}
	return t.PkgPath() + "." + t.Name()
}
