package weave

import (
	"context"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/junioryono/weave/internal/graph"
)

// Environment is one world of dependency resolution. It owns the assemblies
// obtained from it, the singleton stores, the substitutions and the in-flight
// cache that holds the instances of the pass currently running.
//
// Every accessor call that does not already run inside a pass of the
// environment opens one and holds the environment lock until the outermost
// accessor returns, so full passes are serialized across goroutines.
// Factories, injectors and substitutions receive a context carrying the pass
// and must hand it to the accessors they call; calls made with that context
// join the running pass instead of waiting for the lock.
//
// Example:
//
//	env := weave.New()
//	defer env.Close(context.Background())
//
//	family, err := weave.Obtain[FamilyAssembly](env)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	parent, err := family.Parent(ctx)
type Environment struct {
	id     string
	logger *slog.Logger
	faults FaultHandler
	hooks  Hooks

	// mu is held for the duration of a top-level pass.
	mu       sync.Mutex
	depth    int
	inFlight map[Key]any

	singletons     *instanceStore
	weakSingletons *weakStore

	substitutions   map[Key]Substitution
	substitutionsMu sync.RWMutex

	assemblies   map[reflect.Type]Assembler
	assembliesMu sync.Mutex

	graph *graph.DependencyGraph[Key]

	closed atomic.Bool
}

// New creates an empty Environment.
func New(opts ...Option) *Environment {
	o := &options{recordGraph: true}
	for _, opt := range opts {
		if opt != nil {
			opt.apply(o)
		}
	}

	env := &Environment{
		id:             o.id,
		logger:         o.logger,
		faults:         o.faultHandler,
		hooks:          o.hooks,
		inFlight:       make(map[Key]any),
		singletons:     newInstanceStore(),
		weakSingletons: newWeakStore(),
		substitutions:  make(map[Key]Substitution),
		assemblies:     make(map[reflect.Type]Assembler),
	}

	if env.id == "" {
		env.id = uuid.NewString()
	}

	if env.logger == nil {
		env.logger = slog.Default()
	}

	if env.faults == nil {
		env.faults = LogFaults(env.logger)
	}

	if o.recordGraph {
		env.graph = graph.New[Key]()
	}

	return env
}

// ID returns the unique identifier of the environment.
func (env *Environment) ID() string {
	return env.id
}

// IsClosed reports whether Close has been called.
func (env *Environment) IsClosed() bool {
	return env.closed.Load()
}

// Stats describes the content of an environment.
type Stats struct {
	Assemblies         int
	Singletons         int
	WeakSingletons     int
	LiveWeakSingletons int
	Substitutions      int
}

// Stats returns a snapshot of the environment's stores. It does not take the
// pass lock and may be called from inside a pass.
func (env *Environment) Stats() Stats {
	env.assembliesMu.Lock()
	assemblies := len(env.assemblies)
	env.assembliesMu.Unlock()

	env.substitutionsMu.RLock()
	substitutions := len(env.substitutions)
	env.substitutionsMu.RUnlock()

	return Stats{
		Assemblies:         assemblies,
		Singletons:         env.singletons.len(),
		WeakSingletons:     env.weakSingletons.len(),
		LiveWeakSingletons: env.weakSingletons.live(),
		Substitutions:      substitutions,
	}
}

// Within runs fn as a single resolution pass. Graph-scoped dependencies
// resolved by different accessor calls inside fn share one instance.
// If ctx already belongs to a pass of env, fn joins it.
func Within(ctx context.Context, env *Environment, fn func(ctx context.Context) error) error {
	if env == nil {
		return ErrNilEnvironment
	}
	if fn == nil {
		return nil
	}
	if env.IsClosed() {
		env.reportFault(ErrEnvironmentClosed, 1)
		return ErrEnvironmentClosed
	}

	ctx, _, release := env.enter(ctx)
	defer release()

	env.depth++
	err := fn(ctx)
	env.depth--
	if env.depth == 0 {
		env.endPass()
	}

	return err
}

// Close disposes the environment. Singletons implementing Disposable or
// DisposableWithContext are closed in reverse creation order, then every
// store is emptied. Accessors of the environment's assemblies fail with
// ErrEnvironmentClosed afterwards. Calling Close again is a no-op.
//
// Close waits for the running pass to finish and cannot be called from
// inside a pass of the same environment.
func (env *Environment) Close(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if activePass(ctx, env) != nil {
		return ErrCloseInsidePass
	}

	if !env.closed.CompareAndSwap(false, true) {
		return nil
	}

	env.mu.Lock()
	defer env.mu.Unlock()

	var errs []error
	for _, instance := range env.singletons.reversed() {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		var err error
		switch d := instance.(type) {
		case DisposableWithContext:
			err = d.Close(ctx)
		case Disposable:
			err = d.Close()
		}

		if err != nil {
			env.logger.Error("failed to close singleton", "environment", env.id, "error", err)
			errs = append(errs, err)
		}
	}

	singletons := env.singletons.clear()
	env.weakSingletons.clear()
	clear(env.inFlight)
	env.depth = 0

	env.substitutionsMu.Lock()
	clear(env.substitutions)
	env.substitutionsMu.Unlock()

	env.assembliesMu.Lock()
	clear(env.assemblies)
	env.assembliesMu.Unlock()

	env.logger.Debug("environment closed", "environment", env.id, "singletons", singletons)

	if len(errs) > 0 {
		return DisposalError{Context: "environment", Errors: errs}
	}

	return nil
}

// endPass clears the in-flight cache once the depth returned to zero.
func (env *Environment) endPass() {
	discarded := len(env.inFlight)
	clear(env.inFlight)

	env.logger.Debug("resolution pass completed", "environment", env.id, "discarded", discarded)

	if env.hooks.OnPassComplete != nil {
		env.hooks.OnPassComplete(discarded)
	}
}

// finishPass runs when the lock of a top-level pass is released. A pass
// aborted by a panic leaves depth and cache behind; they are reset here.
func (env *Environment) finishPass() {
	if env.depth != 0 || len(env.inFlight) != 0 {
		env.depth = 0
		env.endPass()
	}
}

func (env *Environment) recordNode(key Key) {
	if env.graph != nil {
		env.graph.AddNode(key)
	}
}

func (env *Environment) recordEdge(from, to Key) {
	if env.graph != nil {
		env.graph.AddEdge(from, to)
	}
}

func (env *Environment) recordLifetime(key Key, lifetime Lifetime) {
	if env.graph != nil {
		env.graph.SetLabel(key, lifetime.String())
	}
}
