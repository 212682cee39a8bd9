package testutil

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/junioryono/weave"
)

// EnvironmentBuilder provides a fluent interface for building test environments
type EnvironmentBuilder struct {
	t        testing.TB
	opts     []weave.Option
	recorder *FaultRecorder
}

// NewEnvironmentBuilder creates a builder whose environments log nothing and
// record faults instead of logging them.
func NewEnvironmentBuilder(t testing.TB) *EnvironmentBuilder {
	return &EnvironmentBuilder{
		t:        t,
		opts:     []weave.Option{weave.WithLogger(slog.New(slog.DiscardHandler))},
		recorder: &FaultRecorder{},
	}
}

// WithOptions appends environment options
func (b *EnvironmentBuilder) WithOptions(opts ...weave.Option) *EnvironmentBuilder {
	b.opts = append(b.opts, opts...)
	return b
}

// WithHooks installs resolution hooks
func (b *EnvironmentBuilder) WithHooks(hooks weave.Hooks) *EnvironmentBuilder {
	return b.WithOptions(weave.WithHooks(hooks))
}

// WithoutGraph disables graph recording
func (b *EnvironmentBuilder) WithoutGraph() *EnvironmentBuilder {
	return b.WithOptions(weave.WithGraphRecording(false))
}

// Recorder returns the recorder installed as fault handler
func (b *EnvironmentBuilder) Recorder() *FaultRecorder {
	return b.recorder
}

// Build creates the environment and closes it when the test ends
func (b *EnvironmentBuilder) Build() *weave.Environment {
	opts := append([]weave.Option{weave.WithFaultHandler(b.recorder.Handler())}, b.opts...)
	env := weave.New(opts...)

	b.t.Cleanup(func() {
		if !env.IsClosed() {
			require.NoError(b.t, env.Close(context.Background()))
		}
	})

	return env
}

// NewEnvironment builds a default test environment and its fault recorder
func NewEnvironment(t testing.TB) (*weave.Environment, *FaultRecorder) {
	t.Helper()
	b := NewEnvironmentBuilder(t)
	return b.Build(), b.Recorder()
}

// Obtain returns the assembly of type A from env and fails the test on error
func Obtain[A any, P interface {
	*A
	weave.Assembler
}](t testing.TB, env *weave.Environment) P {
	t.Helper()
	asm, err := weave.Obtain[A, P](env)
	require.NoError(t, err)
	return asm
}
