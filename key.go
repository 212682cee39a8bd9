package weave

import (
	"reflect"
)

// Key identifies a declared dependency inside an environment.
// It is made of the assembly type that declares the dependency and the
// accessor name chosen by the implementer, so two accessors never collide
// and the same accessor always addresses the same caches.
type Key struct {
	Assembly reflect.Type
	Name     string
}

// KeyOf returns the key that accessor name of assembly type A resolves under.
func KeyOf[A any](name string) Key {
	return Key{Assembly: reflect.TypeFor[A](), Name: name}
}

// String renders the key as "Assembly.name".
func (k Key) String() string {
	return formatType(k.Assembly) + "." + k.Name
}

// IsZero reports whether the key has neither assembly nor name.
func (k Key) IsZero() bool {
	return k.Assembly == nil && k.Name == ""
}
