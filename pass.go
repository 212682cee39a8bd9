package weave

import (
	"context"
	"sync/atomic"
)

// pass is the token of a top-level resolution pass. It is stored in the
// context handed to factories, injectors and substitutions, and its presence
// tells the engine that the environment lock is already held by this call
// chain. Passes of different environments chain through parent.
type pass struct {
	env    *Environment
	parent *pass
	done   atomic.Bool

	// stack holds the keys under construction, innermost last.
	stack []Key
}

type passContextKey struct{}

// activePass returns the open pass of env recorded in ctx, if any.
// Passes that already ended are ignored so a context retained after its pass
// cannot be used to bypass the lock.
func activePass(ctx context.Context, env *Environment) *pass {
	p, _ := ctx.Value(passContextKey{}).(*pass)
	for ; p != nil; p = p.parent {
		if p.env == env && !p.done.Load() {
			return p
		}
	}
	return nil
}

// enter joins the pass of env found in ctx or opens a new one. Opening a pass
// acquires the environment lock; the returned release function ends the pass
// and unlocks, and must be called on every exit path.
func (env *Environment) enter(ctx context.Context) (context.Context, *pass, func()) {
	if ctx == nil {
		ctx = context.Background()
	}

	if p := activePass(ctx, env); p != nil {
		return ctx, p, func() {}
	}

	env.mu.Lock()

	parent, _ := ctx.Value(passContextKey{}).(*pass)
	p := &pass{env: env, parent: parent}

	release := func() {
		p.done.Store(true)
		env.finishPass()
		env.mu.Unlock()
	}

	return context.WithValue(ctx, passContextKey{}, p), p, release
}

// push records that key is being resolved, adding an edge from the key that
// requested it.
func (p *pass) push(key Key) {
	if n := len(p.stack); n > 0 {
		p.env.recordEdge(p.stack[n-1], key)
	} else {
		p.env.recordNode(key)
	}
	p.stack = append(p.stack, key)
}

// pop removes the innermost key.
func (p *pass) pop() {
	if n := len(p.stack); n > 0 {
		p.stack = p.stack[:n-1]
	}
}

// InPass reports whether ctx belongs to an open resolution pass of env.
func InPass(ctx context.Context, env *Environment) bool {
	if ctx == nil || env == nil {
		return false
	}
	return activePass(ctx, env) != nil
}
