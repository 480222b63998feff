package slice

import (
	"fmt"
	"reflect"
)

// Key identifies a provider in the container: the type it produces and, for
// named providers, the name it was registered under.
type Key struct {
	Type reflect.Type
	Name string
}

// KeyOf returns the unnamed key for T.
func KeyOf[T any]() Key {
	return Key{Type: typeOf[T]()}
}

// NamedKey returns the key of the provider registered as name, requested as T.
func NamedKey[T any](name string) Key {
	return Key{Type: typeOf[T](), Name: name}
}

func (k Key) String() string {
	if k.Type == nil {
		return "<invalid key>"
	}
	if k.Name != "" {
		return fmt.Sprintf("%s[%q]", k.Type, k.Name)
	}
	return k.Type.String()
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
