package weave

import (
	"fmt"
	"reflect"
)

// Assembly is embedded by types that declare dependencies. An assembly is
// bound to the environment it was obtained from; accessors are ordinary
// methods that call Define, DefineInjection or Placeholder.
//
// Example:
//
//	type FamilyAssembly struct {
//	    weave.Assembly
//	}
//
//	func (a *FamilyAssembly) Child(ctx context.Context) (*Child, error) {
//	    return weave.Define(ctx, a, "child", weave.Definition[*Child]{
//	        Factory: func(context.Context) (*Child, error) { return &Child{}, nil },
//	    })
//	}
type Assembly struct {
	env *Environment
	typ reflect.Type

	// definitions caches the first declaration of every value accessor.
	// It is only touched while the environment lock is held.
	definitions map[string]*definition
}

// Assembler is implemented by pointers to structs embedding Assembly.
type Assembler interface {
	// Env returns the environment the assembly is bound to.
	Env() (*Environment, error)

	base() *Assembly
}

var _ Assembler = (*Assembly)(nil)

func (a *Assembly) base() *Assembly {
	return a
}

// Env returns the environment the assembly is bound to. It fails with
// ErrNoEnvironment when the assembly was not obtained from an environment and
// with ErrEnvironmentClosed once that environment was closed.
func (a *Assembly) Env() (*Environment, error) {
	if a == nil || a.env == nil {
		return nil, ErrNoEnvironment
	}
	if a.env.IsClosed() {
		return a.env, ErrEnvironmentClosed
	}
	return a.env, nil
}

// Key returns the dependency key of the accessor name declared by this assembly.
func (a *Assembly) Key(name string) Key {
	return Key{Assembly: a.typ, Name: name}
}

func (a *Assembly) bind(env *Environment, typ reflect.Type) {
	a.env = env
	a.typ = typ
	a.definitions = make(map[string]*definition)
}

// Obtain returns the assembly of type A bound to env, creating it on first
// use. Each environment holds at most one instance per assembly type, so
// repeated calls return the same pointer.
//
// The type parameter P is inferred:
//
//	family, err := weave.Obtain[FamilyAssembly](env)
func Obtain[A any, P interface {
	*A
	Assembler
}](env *Environment) (P, error) {
	if env == nil {
		return nil, ErrNilEnvironment
	}
	if env.IsClosed() {
		return nil, ErrEnvironmentClosed
	}

	typ := reflect.TypeFor[A]()

	env.assembliesMu.Lock()
	defer env.assembliesMu.Unlock()

	if existing, ok := env.assemblies[typ]; ok {
		return existing.(P), nil
	}

	instance := P(new(A))
	instance.base().bind(env, typ)
	env.assemblies[typ] = instance

	env.logger.Debug("assembly created", "environment", env.id, "assembly", formatType(typ))

	return instance, nil
}

// MustObtain is like Obtain but panics on error.
func MustObtain[A any, P interface {
	*A
	Assembler
}](env *Environment) P {
	instance, err := Obtain[A, P](env)
	if err != nil {
		panic(fmt.Errorf("obtain %s: %w", formatType(reflect.TypeFor[A]()), err))
	}
	return instance
}

// Sibling returns the assembly of type A bound to the same environment as a.
// Assemblies use it to reach accessors declared by other assemblies.
func Sibling[A any, P interface {
	*A
	Assembler
}](a Assembler) (P, error) {
	env, err := bound(a)
	if err != nil {
		return nil, err
	}
	return Obtain[A, P](env)
}

// ObtainDefault returns the assembly of type A bound to the Default environment.
func ObtainDefault[A any, P interface {
	*A
	Assembler
}]() (P, error) {
	return Obtain[A, P](Default())
}

// bound returns the usable environment of a.
func bound(a Assembler) (*Environment, error) {
	if isNilAssembler(a) {
		return nil, ErrNoEnvironment
	}
	return a.Env()
}

// isNilAssembler reports whether a is nil or a typed nil pointer, whose
// promoted methods would dereference nil.
func isNilAssembler(a Assembler) bool {
	if a == nil {
		return true
	}
	v := reflect.ValueOf(a)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
