package weave

import (
	"context"
	"reflect"
	"runtime/debug"
)

// Factory constructs the raw instance of a dependency.
type Factory[T any] func(ctx context.Context) (T, error)

// Injector wires the dependencies of an instance by calling other accessors
// with ctx. It may mutate the instance or return a replacement; the returned
// value is what the accessor yields.
type Injector[T any] func(ctx context.Context, instance T) (T, error)

// Definition declares how a value accessor builds its dependency.
//
// Example:
//
//	func (a *FamilyAssembly) Parent(ctx context.Context) (*Parent, error) {
//	    return weave.Define(ctx, a, "parent", weave.Definition[*Parent]{
//	        Factory: func(context.Context) (*Parent, error) { return &Parent{}, nil },
//	        Inject: func(ctx context.Context, p *Parent) (*Parent, error) {
//	            child, err := a.Child(ctx)
//	            p.Child = child
//	            return p, err
//	        },
//	    })
//	}
type Definition[T any] struct {
	// Lifetime controls caching. The zero value is Graph.
	Lifetime Lifetime

	// Factory constructs the raw instance. Required.
	Factory Factory[T]

	// Inject wires the instance. Optional.
	Inject Injector[T]
}

// Injection declares how an injection-only accessor wires an instance the
// caller already owns.
type Injection[T any] struct {
	// Lifetime controls caching. The zero value is Graph.
	Lifetime Lifetime

	// Inject wires the instance. Optional.
	Inject Injector[T]
}

// definition is the type-erased record the engine works with.
type definition struct {
	lifetime Lifetime
	declared reflect.Type
	factory  func(ctx context.Context) (any, error)
	injector func(ctx context.Context, instance any) (any, error)
}

// eraseDefinition converts a typed definition into the record stored by the
// assembly. The injector performs a checked downcast so a cached record
// reused with a different T fails with a TypeMismatchError.
func eraseDefinition[T any](key Key, def Definition[T]) *definition {
	factory := def.Factory
	inject := def.Inject

	d := &definition{
		lifetime: def.Lifetime,
		declared: reflect.TypeFor[T](),
		factory: func(ctx context.Context) (any, error) {
			v, err := factory(ctx)
			if err != nil {
				return nil, err
			}
			return v, nil
		},
	}

	d.injector = func(ctx context.Context, instance any) (any, error) {
		typed, err := cast[T](key, instance)
		if err != nil {
			return nil, err
		}
		if inject == nil {
			return typed, nil
		}
		out, err := inject(ctx, typed)
		if err != nil {
			return nil, err
		}
		return out, nil
	}

	return d
}

// cast converts a stored instance to the type expected by the call site.
// A nil instance converts to the zero value of T.
func cast[T any](key Key, instance any) (T, error) {
	if instance == nil {
		var zero T
		return zero, nil
	}

	typed, ok := instance.(T)
	if !ok {
		var zero T
		return zero, TypeMismatchError{
			Key:      key,
			Expected: reflect.TypeFor[T](),
			Actual:   reflect.TypeOf(instance),
		}
	}

	return typed, nil
}

// callSafely runs fn and converts a panic into a PanicError.
func callSafely(key Key, fn func() (any, error)) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			// Faults escalated by a panicking FaultHandler keep unwinding.
			if faultErr, ok := r.(error); ok && IsFault(faultErr) {
				panic(r)
			}
			result = nil
			err = PanicError{Key: key, Panic: r, Stack: debug.Stack()}
		}
	}()

	return fn()
}

// wrapResolution wraps a failure of user code for key, leaving engine faults
// raised for the same key untouched.
func wrapResolution(key Key, err error) error {
	if err == nil {
		return nil
	}

	switch e := err.(type) {
	case TypeMismatchError:
		if e.Key == key {
			return err
		}
	case PanicError:
		if e.Key == key {
			return err
		}
	}

	return ResolutionError{Key: key, Cause: err}
}
