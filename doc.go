// Package weave provides dependency resolution for object graphs that may
// contain cycles, without reflection-driven constructor discovery.
//
// # Overview
//
// Dependencies are declared in assemblies: structs embedding weave.Assembly
// whose methods call Define. Each accessor names a factory that creates the
// raw instance and an optional injector that wires it by calling other
// accessors. The library provides:
//   - Four lifetimes: Graph, Transient, Singleton and WeakSingleton
//   - Cyclic graphs resolved through an in-flight cache shared by one pass
//   - Substitutions that replace any accessor, typically in tests
//   - Placeholders for instances the caller already owns
//   - An injectable fault handler for wiring defects
//   - Thread-safe environments with serialized resolution passes
//
// # Basic Usage
//
// Declare an assembly, obtain it from an environment and call its accessors:
//
//	type FamilyAssembly struct {
//	    weave.Assembly
//	}
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
//
//	func (a *FamilyAssembly) Child(ctx context.Context) (*Child, error) {
//	    return weave.Define(ctx, a, "child", weave.Definition[*Child]{
//	        Factory: func(context.Context) (*Child, error) { return &Child{}, nil },
//	        Inject: func(ctx context.Context, c *Child) (*Child, error) {
//	            parent, err := a.Parent(ctx)
//	            c.Parent = parent
//	            return c, err
//	        },
//	    })
//	}
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
//	// parent.Child.Parent == parent
//
// # Lifetimes
//
//   - Graph: one instance per top-level call. This is the default.
//   - Transient: a new instance on every call, never cached.
//   - Singleton: one instance per environment, held until Close.
//   - WeakSingleton: one live instance at a time, held weakly.
//
// # Resolution Passes
//
// The outermost accessor call opens a pass and holds the environment lock
// until it returns. Factories and injectors receive a context carrying the
// pass; accessors called with that context join the pass, share its
// in-flight cache and never wait for the lock. Always pass the received
// context on. Use Within to run several top-level calls as one pass.
//
// # Substitutions
//
// Substitute replaces an accessor in one environment:
//
//	weave.Substitute(family, "child", func(context.Context) (*Child, error) {
//	    return &Child{Name: "stub"}, nil
//	})
//
// The substitution wins over every lifetime and its result is never cached.
//
// # Faults
//
// Wiring defects such as type mismatches, unresolved placeholders and
// conflicting singletons are returned as errors and reported to the
// environment's FaultHandler. The default handler logs them; PanicOnFault
// makes them fatal:
//
//	env := weave.New(weave.WithFaultHandler(weave.PanicOnFault))
//
// # Error Handling
//
// Failures of factories and injectors are wrapped in ResolutionError, one per
// accessor on the failing path:
//
//	_, err := family.Parent(ctx)
//	var re weave.ResolutionError
//	if errors.As(err, &re) {
//	    log.Printf("failed at %s", re.Key)
//	}
//
// # Disposal
//
// Close disposes singletons implementing Disposable or DisposableWithContext
// in reverse creation order.
//
// # Graph Inspection
//
// Every environment records which accessors requested which. Graph returns a
// snapshot that can be written as DOT for Graphviz:
//
//	env.Graph().WriteDOT(os.Stdout)
package weave
