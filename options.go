package weave

import (
	"log/slog"
	"time"
)

// Option configures an Environment.
type Option interface {
	apply(*options)
}

// options holds environment configuration.
type options struct {
	id           string
	logger       *slog.Logger
	faultHandler FaultHandler
	hooks        Hooks
	recordGraph  bool
}

// optionFunc adapts a function to Option.
type optionFunc func(*options)

func (f optionFunc) apply(opts *options) {
	f(opts)
}

// WithID sets the environment ID instead of a generated UUID.
func WithID(id string) Option {
	return optionFunc(func(opts *options) {
		opts.id = id
	})
}

// WithLogger sets the logger used for debug records and the default fault handler.
// A nil logger restores slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return optionFunc(func(opts *options) {
		opts.logger = logger
	})
}

// WithFaultHandler installs the handler notified of usage faults.
// Test suites use it to assert on faults instead of only inspecting errors.
func WithFaultHandler(handler FaultHandler) Option {
	return optionFunc(func(opts *options) {
		opts.faultHandler = handler
	})
}

// WithHooks installs resolution hooks. Hooks from repeated calls are chained.
func WithHooks(hooks Hooks) Option {
	return optionFunc(func(opts *options) {
		opts.hooks = opts.hooks.chain(hooks)
	})
}

// WithGraphRecording enables or disables recording of resolution edges.
// Recording is enabled by default.
func WithGraphRecording(enabled bool) Option {
	return optionFunc(func(opts *options) {
		opts.recordGraph = enabled
	})
}

// Hooks observe resolution. They run on the resolving goroutine while the
// environment lock is held, so they must not resolve dependencies themselves.
type Hooks struct {
	// OnConstruct is called after a factory produced a new instance.
	OnConstruct func(key Key, lifetime Lifetime)

	// OnResolve is called when an accessor returns, with the time it took
	// and its error, if any.
	OnResolve func(key Key, lifetime Lifetime, duration time.Duration, err error)

	// OnPassComplete is called when a top-level pass ends, with the number of
	// in-flight entries that were discarded.
	OnPassComplete func(discarded int)
}

// chain returns hooks that call h first and then next.
func (h Hooks) chain(next Hooks) Hooks {
	out := h

	if next.OnConstruct != nil {
		if prev := h.OnConstruct; prev != nil {
			out.OnConstruct = func(key Key, lifetime Lifetime) {
				prev(key, lifetime)
				next.OnConstruct(key, lifetime)
			}
		} else {
			out.OnConstruct = next.OnConstruct
		}
	}

	if next.OnResolve != nil {
		if prev := h.OnResolve; prev != nil {
			out.OnResolve = func(key Key, lifetime Lifetime, d time.Duration, err error) {
				prev(key, lifetime, d, err)
				next.OnResolve(key, lifetime, d, err)
			}
		} else {
			out.OnResolve = next.OnResolve
		}
	}

	if next.OnPassComplete != nil {
		if prev := h.OnPassComplete; prev != nil {
			out.OnPassComplete = func(discarded int) {
				prev(discarded)
				next.OnPassComplete(discarded)
			}
		} else {
			out.OnPassComplete = next.OnPassComplete
		}
	}

	return out
}
