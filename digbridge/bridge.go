// Package digbridge exposes weave accessors to a go.uber.org/dig container,
// so applications wired with dig can consume dependencies declared in
// assemblies.
//
// Constructors registered by Provide call the accessor inside the pass opened
// by Bridge.Invoke, so every value one Invoke builds shares that pass's
// in-flight cache. dig caches each constructed value for the life of the
// container, regardless of the accessor's lifetime.
package digbridge

import (
	"context"
	"sync/atomic"

	"go.uber.org/dig"

	"github.com/junioryono/weave"
)

// Bridge connects a dig container to a weave environment.
type Bridge struct {
	container *dig.Container
	env       *weave.Environment

	// current holds the context of the running Invoke. It is written while
	// the environment lock is held.
	current atomic.Pointer[passContext]
}

type passContext struct {
	ctx context.Context
}

// New creates a Bridge. A nil container is replaced by dig.New().
func New(container *dig.Container, env *weave.Environment) (*Bridge, error) {
	if env == nil {
		return nil, weave.ErrNilEnvironment
	}
	if container == nil {
		container = dig.New()
	}

	return &Bridge{
		container: container,
		env:       env,
	}, nil
}

// Container returns the underlying dig container.
func (b *Bridge) Container() *dig.Container {
	return b.container
}

// Environment returns the environment accessors resolve in.
func (b *Bridge) Environment() *weave.Environment {
	return b.env
}

// Provide registers accessor as the dig constructor of T.
//
//	family, _ := weave.Obtain[FamilyAssembly](env)
//	digbridge.Provide(bridge, family.Parent)
//	digbridge.Provide(bridge, family.Child, dig.Name("child"))
func Provide[T any](b *Bridge, accessor func(ctx context.Context) (T, error), opts ...dig.ProvideOption) error {
	if accessor == nil {
		return weave.ErrNilFactory
	}

	return b.container.Provide(func() (T, error) {
		return accessor(b.context())
	}, opts...)
}

// Invoke runs fn through dig inside a single resolution pass. Constructors
// registered by Provide should only be reached through Invoke; calling the
// container directly while an Invoke runs on another goroutine would hand it
// the running pass.
func (b *Bridge) Invoke(ctx context.Context, fn any, opts ...dig.InvokeOption) error {
	return weave.Within(ctx, b.env, func(ctx context.Context) error {
		previous := b.current.Swap(&passContext{ctx: ctx})
		defer b.current.Store(previous)

		return b.container.Invoke(fn, opts...)
	})
}

func (b *Bridge) context() context.Context {
	if pc := b.current.Load(); pc != nil {
		return pc.ctx
	}
	return context.Background()
}
