package testutil

import (
	"context"
	"sync/atomic"

	"github.com/junioryono/weave"
)

// Counts tallies factory calls so tests can observe constructions.
type Counts struct {
	Parents  atomic.Int32
	Children atomic.Int32
	Sessions atomic.Int32
	Subjects atomic.Int32
}

// FamilyAssembly declares a parent and a child that reference each other.
// Lifetimes are read on the first call of each accessor, so set them right
// after obtaining the assembly. The zero value uses Graph for both.
type FamilyAssembly struct {
	weave.Assembly

	ParentLifetime weave.Lifetime
	ChildLifetime  weave.Lifetime

	Counts Counts
}

// Parent resolves a parent whose injector asks for the child twice.
func (a *FamilyAssembly) Parent(ctx context.Context) (*Parent, error) {
	return weave.Define(ctx, a, "parent", weave.Definition[*Parent]{
		Lifetime: a.ParentLifetime,
		Factory: func(context.Context) (*Parent, error) {
			a.Counts.Parents.Add(1)
			return NewParent(), nil
		},
		Inject: func(ctx context.Context, p *Parent) (*Parent, error) {
			first, err := a.Child(ctx)
			if err != nil {
				return nil, err
			}
			second, err := a.Child(ctx)
			if err != nil {
				return nil, err
			}
			p.Child = first
			p.Children = []*Child{first, second}
			return p, nil
		},
	})
}

// Child resolves a child whose injector asks for the parent.
func (a *FamilyAssembly) Child(ctx context.Context) (*Child, error) {
	return weave.Define(ctx, a, "child", weave.Definition[*Child]{
		Lifetime: a.ChildLifetime,
		Factory: func(context.Context) (*Child, error) {
			a.Counts.Children.Add(1)
			return NewChild(), nil
		},
		Inject: func(ctx context.Context, c *Child) (*Child, error) {
			p, err := a.Parent(ctx)
			if err != nil {
				return nil, err
			}
			c.Parent = p
			return c, nil
		},
	})
}

// SessionAssembly declares weakly held sessions.
type SessionAssembly struct {
	weave.Assembly

	Counts Counts
}

// Session returns the live session, creating one when none is held.
func (a *SessionAssembly) Session(ctx context.Context) (*Session, error) {
	return weave.Define(ctx, a, "session", weave.Definition[*Session]{
		Lifetime: weave.WeakSingleton,
		Factory: func(context.Context) (*Session, error) {
			a.Counts.Sessions.Add(1)
			return NewSession(), nil
		},
	})
}

// Shared returns the environment-wide session.
func (a *SessionAssembly) Shared(ctx context.Context) (*Session, error) {
	return weave.Define(ctx, a, "shared", weave.Definition[*Session]{
		Lifetime: weave.Singleton,
		Factory: func(context.Context) (*Session, error) {
			a.Counts.Sessions.Add(1)
			return NewSession(), nil
		},
	})
}

// HubAssembly declares a parent whose children come from SpokeAssembly.
type HubAssembly struct {
	weave.Assembly

	HubLifetime weave.Lifetime
}

// Hub resolves the parent and wires one graph-scoped and two transient spokes.
func (a *HubAssembly) Hub(ctx context.Context) (*Parent, error) {
	return weave.Define(ctx, a, "hub", weave.Definition[*Parent]{
		Lifetime: a.HubLifetime,
		Factory:  func(context.Context) (*Parent, error) { return NewParent(), nil },
		Inject: func(ctx context.Context, p *Parent) (*Parent, error) {
			spokes, err := weave.Sibling[SpokeAssembly](a)
			if err != nil {
				return nil, err
			}

			spoke, err := spokes.Spoke(ctx)
			if err != nil {
				return nil, err
			}
			p.Child = spoke
			p.Children = []*Child{spoke}

			for range 2 {
				transient, err := spokes.TransientSpoke(ctx)
				if err != nil {
					return nil, err
				}
				p.Children = append(p.Children, transient)
			}

			return p, nil
		},
	})
}

// SpokeAssembly declares children pointing back to the hub.
type SpokeAssembly struct {
	weave.Assembly
}

// Spoke is graph-scoped.
func (a *SpokeAssembly) Spoke(ctx context.Context) (*Child, error) {
	return weave.Define(ctx, a, "spoke", weave.Definition[*Child]{
		Factory: func(context.Context) (*Child, error) { return NewChild(), nil },
		Inject:  a.attach,
	})
}

// TransientSpoke creates a new child on every call.
func (a *SpokeAssembly) TransientSpoke(ctx context.Context) (*Child, error) {
	return weave.Define(ctx, a, "transientSpoke", weave.Definition[*Child]{
		Lifetime: weave.Transient,
		Factory:  func(context.Context) (*Child, error) { return NewChild(), nil },
		Inject:   a.attach,
	})
}

func (a *SpokeAssembly) attach(ctx context.Context, c *Child) (*Child, error) {
	hubs, err := weave.Sibling[HubAssembly](a)
	if err != nil {
		return nil, err
	}
	hub, err := hubs.Hub(ctx)
	if err != nil {
		return nil, err
	}
	c.Parent = hub
	return c, nil
}

// SubjectAssembly declares an interface-typed dependency for substitution tests.
type SubjectAssembly struct {
	weave.Assembly

	Counts Counts
}

// Subject resolves the primary implementation wired with a companion.
func (a *SubjectAssembly) Subject(ctx context.Context) (Subject, error) {
	return weave.Define(ctx, a, "subject", weave.Definition[Subject]{
		Factory: func(context.Context) (Subject, error) {
			a.Counts.Subjects.Add(1)
			return &PrimarySubject{}, nil
		},
		Inject: func(ctx context.Context, s Subject) (Subject, error) {
			companion, err := a.Companion(ctx)
			if err != nil {
				return nil, err
			}
			primary := s.(*PrimarySubject)
			primary.Value = 10
			primary.Peer = companion
			return primary, nil
		},
	})
}

// Number is a plain value dependency.
func (a *SubjectAssembly) Number(ctx context.Context) (int, error) {
	return weave.Define(ctx, a, "number", weave.Definition[int]{
		Factory: func(context.Context) (int, error) { return 20, nil },
	})
}

// Companion references whatever Subject resolves to.
func (a *SubjectAssembly) Companion(ctx context.Context) (*Companion, error) {
	return weave.Define(ctx, a, "companion", weave.Definition[*Companion]{
		Factory: func(context.Context) (*Companion, error) { return &Companion{}, nil },
		Inject: func(ctx context.Context, c *Companion) (*Companion, error) {
			subject, err := a.Subject(ctx)
			if err != nil {
				return nil, err
			}
			c.Subject = subject
			return c, nil
		},
	})
}
