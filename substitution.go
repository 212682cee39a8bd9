package weave

import (
	"context"
)

// Substitution produces the value returned in place of a declared dependency.
type Substitution func(ctx context.Context) (any, error)

// AddSubstitution makes the accessor name of this assembly return the result
// of s instead of resolving its definition, whatever its lifetime. The
// substitution is stored in the environment, so it applies to every caller
// of the accessor in that environment and to no other environment.
// The value must be convertible to the accessor's type.
func (a *Assembly) AddSubstitution(name string, s Substitution) error {
	env, err := a.Env()
	if err != nil {
		return env.fail(err)
	}
	if name == "" {
		return ErrEmptyName
	}
	if s == nil {
		return ErrNilSubstitution
	}

	env.substitutionsMu.Lock()
	env.substitutions[a.Key(name)] = s
	env.substitutionsMu.Unlock()

	return nil
}

// RemoveSubstitution restores normal resolution of the accessor name.
// Removing a missing substitution is a no-op.
func (a *Assembly) RemoveSubstitution(name string) error {
	env, err := a.Env()
	if err != nil {
		return env.fail(err)
	}

	env.substitutionsMu.Lock()
	delete(env.substitutions, a.Key(name))
	env.substitutionsMu.Unlock()

	return nil
}

// Substitute is the typed form of AddSubstitution.
//
//	weave.Substitute(services, "client", func(context.Context) (Client, error) {
//	    return &fakeClient{}, nil
//	})
func Substitute[T any](a Assembler, name string, f Factory[T]) error {
	if f == nil {
		return ErrNilSubstitution
	}
	if isNilAssembler(a) {
		return ErrNoEnvironment
	}
	return a.base().AddSubstitution(name, func(ctx context.Context) (any, error) {
		return f(ctx)
	})
}

// substitution returns the substitution registered for key.
func (env *Environment) substitution(key Key) (Substitution, bool) {
	env.substitutionsMu.RLock()
	defer env.substitutionsMu.RUnlock()
	s, ok := env.substitutions[key]
	return s, ok
}

// substitute runs s as part of the current pass so the accessors it calls
// share the pass's in-flight cache. Its result is never cached.
func (env *Environment) substitute(ctx context.Context, key Key, s Substitution) (any, error) {
	env.depth++
	instance, err := callSafely(key, func() (any, error) { return s(ctx) })
	env.depth--

	if env.depth == 0 {
		env.endPass()
	}

	if err != nil {
		return nil, wrapResolution(key, err)
	}

	return instance, nil
}
