package weave

import (
	"encoding/json"
	"fmt"
)

// Lifetime specifies how many instances of a dependency exist and how long
// the environment keeps them cached.
type Lifetime int

const (
	// Graph specifies that one instance is created per top-level resolution pass.
	// Every accessor reached during the pass shares it through the in-flight cache,
	// which is what allows cyclic graphs to resolve. The instance is forgotten
	// when the pass completes.
	// Graph is the zero value and therefore the default lifetime.
	Graph Lifetime = iota

	// Transient specifies that a new instance is created on every resolution.
	// Transient instances are never served from a cache.
	Transient

	// Singleton specifies that a single instance is created per environment.
	// The instance is created on first resolution and held strongly until the
	// environment is closed.
	Singleton

	// WeakSingleton specifies that at most one live instance exists at a time.
	// The environment only holds a weak reference, so once every external owner
	// drops the instance the next resolution creates a new one.
	// Instances must be non-nil pointers.
	WeakSingleton
)

// String returns the string representation of the Lifetime.
func (l Lifetime) String() string {
	switch l {
	case Graph:
		return "Graph"
	case Transient:
		return "Transient"
	case Singleton:
		return "Singleton"
	case WeakSingleton:
		return "WeakSingleton"
	default:
		return fmt.Sprintf("Unknown(%d)", int(l))
	}
}

// IsValid checks if the lifetime is one of the declared values.
func (l Lifetime) IsValid() bool {
	return l >= Graph && l <= WeakSingleton
}

// cachesInFlight reports whether instances of this lifetime are served from
// the in-flight cache of the current pass.
func (l Lifetime) cachesInFlight() bool {
	return l != Transient
}

// MarshalText implements encoding.TextMarshaler.
func (l Lifetime) MarshalText() ([]byte, error) {
	if !l.IsValid() {
		return nil, LifetimeError{Value: int(l)}
	}
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Lifetime) UnmarshalText(text []byte) error {
	switch string(text) {
	case "Graph", "graph":
		*l = Graph
	case "Transient", "transient":
		*l = Transient
	case "Singleton", "singleton":
		*l = Singleton
	case "WeakSingleton", "weak-singleton", "weaksingleton":
		*l = WeakSingleton
	default:
		return LifetimeError{Value: string(text)}
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (l Lifetime) MarshalJSON() ([]byte, error) {
	text, err := l.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(text))
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *Lifetime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	return l.UnmarshalText([]byte(s))
}
