package weave

import "sync/atomic"

// defaultEnvironment holds the process-wide convenience Environment.
var defaultEnvironment atomic.Pointer[Environment]

// Default returns the process-wide Environment, creating it on first use.
// It exists for the outermost call boundary of small programs; the engine
// itself never consults it, and libraries should accept an Environment
// instead of relying on it.
func Default() *Environment {
	if env := defaultEnvironment.Load(); env != nil {
		return env
	}

	env := New()
	if defaultEnvironment.CompareAndSwap(nil, env) {
		return env
	}
	return defaultEnvironment.Load()
}

// SetDefault replaces the process-wide Environment. This is similar to
// slog.SetDefault. Passing nil makes the next Default call create a fresh one.
func SetDefault(env *Environment) {
	defaultEnvironment.Store(env)
}
