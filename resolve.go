package weave

import (
	"context"
	"reflect"
	"time"
)

// Define declares a value accessor and resolves it. The first call of an
// accessor caches def on the assembly; later calls reuse the cached factory
// and injector.
//
// ctx must be the context received by the calling factory or injector when
// Define is reached from inside another definition. That context carries the
// running pass; an accessor called with any other context, such as
// context.Background(), waits for the environment lock held by the pass and
// deadlocks.
func Define[T any](ctx context.Context, a Assembler, name string, def Definition[T]) (T, error) {
	var zero T

	env, err := bound(a)
	if err != nil {
		return zero, env.fail(err)
	}
	if name == "" {
		return zero, ErrEmptyName
	}
	if def.Factory == nil {
		return zero, ErrNilFactory
	}
	if !def.Lifetime.IsValid() {
		return zero, LifetimeError{Value: def.Lifetime}
	}

	asm := a.base()
	key := asm.Key(name)

	ctx, p, release := env.enter(ctx)
	defer release()

	d, cached := asm.definitions[name]
	if !cached {
		d = eraseDefinition(key, def)
		asm.definitions[name] = d
	}

	instance, err := env.resolve(ctx, p, key, d)
	if err != nil {
		return zero, env.fail(err)
	}

	result, err := cast[T](key, instance)
	if err != nil {
		return zero, env.fail(err)
	}

	return result, nil
}

// DefineInjection declares an injection-only accessor: instance, owned by the
// caller, is wired by inj.Inject as if a factory had produced it. While the
// injection runs, the instance is stored in the in-flight cache under name,
// so a Placeholder with the same name returns it. ctx follows the same rule
// as in Define.
func DefineInjection[T any](ctx context.Context, a Assembler, name string, instance T, inj Injection[T]) error {
	env, err := bound(a)
	if err != nil {
		return env.fail(err)
	}
	if name == "" {
		return ErrEmptyName
	}
	if !inj.Lifetime.IsValid() {
		return LifetimeError{Value: inj.Lifetime}
	}

	asm := a.base()
	key := asm.Key(name)

	ctx, p, release := env.enter(ctx)
	defer release()

	d := eraseDefinition(key, Definition[T]{
		Lifetime: inj.Lifetime,
		Factory:  func(context.Context) (T, error) { return instance, nil },
		Inject:   inj.Inject,
	})
	asm.definitions[name] = d

	if _, err := env.resolve(ctx, p, key, d); err != nil {
		return env.fail(err)
	}

	return nil
}

// Placeholder returns the instance stored under name in the in-flight cache
// of the current pass. It fails with UnresolvedPlaceholderError when nothing
// is stored, which usually means the placeholder was called outside the
// injection that declares the same name.
func Placeholder[T any](ctx context.Context, a Assembler, name string) (T, error) {
	var zero T

	env, err := bound(a)
	if err != nil {
		return zero, env.fail(err)
	}
	if name == "" {
		return zero, ErrEmptyName
	}

	key := a.base().Key(name)

	ctx, p, release := env.enter(ctx)
	defer release()

	p.push(key)
	defer p.pop()

	var instance any
	if sub, ok := env.substitution(key); ok {
		instance, err = env.substitute(ctx, key, sub)
		if err != nil {
			return zero, env.fail(err)
		}
	} else {
		var found bool
		instance, found = env.inFlight[key]
		if !found {
			return zero, env.fail(UnresolvedPlaceholderError{Key: key})
		}
	}

	result, err := cast[T](key, instance)
	if err != nil {
		return zero, env.fail(err)
	}

	return result, nil
}

// resolve runs the resolution algorithm for key. The caller holds the
// environment lock through p.
func (env *Environment) resolve(ctx context.Context, p *pass, key Key, d *definition) (instance any, err error) {
	lifetime := d.lifetime

	p.push(key)
	defer p.pop()

	if env.hooks.OnResolve != nil {
		start := time.Now()
		defer func() {
			env.hooks.OnResolve(key, lifetime, time.Since(start), err)
		}()
	}

	// Substitutions replace resolution outright.
	if sub, ok := env.substitution(key); ok {
		return env.substitute(ctx, key, sub)
	}

	switch lifetime {
	case Singleton:
		if existing, ok := env.singletons.get(key); ok {
			return existing, nil
		}
	case WeakSingleton:
		if existing, ok := env.weakSingletons.get(key); ok {
			return existing, nil
		}
	}

	// Instances still under construction further up the stack.
	if lifetime.cachesInFlight() {
		if existing, ok := env.inFlight[key]; ok {
			return existing, nil
		}
	}

	instance, err = env.construct(ctx, key, d)
	if err != nil {
		return nil, err
	}

	switch lifetime {
	case Singleton:
		existing, stored := env.singletons.setIfAbsent(key, instance)
		if !stored && !sameInstance(existing, instance) {
			return nil, SingletonConflictError{
				Key:      key,
				Existing: reflect.TypeOf(existing),
				Rejected: reflect.TypeOf(instance),
			}
		}
	case WeakSingleton:
		ref, err := newWeakRef(key, instance)
		if err != nil {
			return nil, err
		}
		env.weakSingletons.set(key, ref)
	}

	return instance, nil
}

// construct creates and wires a new instance one level deeper in the pass.
// The raw instance is published in the in-flight cache before injection so
// cyclic back-references reached by the injector receive it.
func (env *Environment) construct(ctx context.Context, key Key, d *definition) (any, error) {
	env.depth++
	instance, err := env.build(ctx, key, d)
	env.depth--

	if env.depth == 0 {
		env.endPass()
	}

	return instance, err
}

func (env *Environment) build(ctx context.Context, key Key, d *definition) (any, error) {
	raw, err := callSafely(key, func() (any, error) { return d.factory(ctx) })
	if err != nil {
		return nil, wrapResolution(key, err)
	}

	env.recordLifetime(key, d.lifetime)
	env.logger.Debug("instance constructed",
		"environment", env.id,
		"key", key.String(),
		"lifetime", d.lifetime.String(),
	)
	if env.hooks.OnConstruct != nil {
		env.hooks.OnConstruct(key, d.lifetime)
	}

	previous, hadPrevious := env.inFlight[key]
	env.inFlight[key] = raw

	instance, err := callSafely(key, func() (any, error) { return d.injector(ctx, raw) })
	if err != nil {
		// Later resolutions in this pass rebuild the key instead of
		// receiving the half-wired instance.
		if hadPrevious {
			env.inFlight[key] = previous
		} else {
			delete(env.inFlight, key)
		}
		return nil, wrapResolution(key, err)
	}

	env.inFlight[key] = instance

	return instance, nil
}

// fail reports err to the fault handler when it is a usage fault raised at
// this level, then returns it. Faults wrapped in a ResolutionError were
// reported by the accessor that raised them.
func (env *Environment) fail(err error) error {
	if _, nested := err.(ResolutionError); !nested && IsFault(err) {
		env.reportFault(err, 2)
	}
	return err
}
