package testutil

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/weave"
)

// FaultRecorder collects the faults reported by an environment.
type FaultRecorder struct {
	mu     sync.Mutex
	faults []weave.Fault
}

// Handler returns the FaultHandler that feeds the recorder.
func (r *FaultRecorder) Handler() weave.FaultHandler {
	return func(f weave.Fault) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.faults = append(r.faults, f)
	}
}

// Faults returns the recorded faults in reporting order.
func (r *FaultRecorder) Faults() []weave.Fault {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]weave.Fault(nil), r.faults...)
}

// Last returns the most recent fault.
func (r *FaultRecorder) Last() (weave.Fault, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.faults) == 0 {
		return weave.Fault{}, false
	}
	return r.faults[len(r.faults)-1], true
}

// Reset forgets every recorded fault.
func (r *FaultRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.faults = nil
}

// AssertNoFaults checks that nothing was reported
func AssertNoFaults(t *testing.T, r *FaultRecorder) {
	t.Helper()
	assert.Empty(t, r.Faults(), "unexpected faults reported")
}

// AssertFault checks that exactly one fault was reported and that it matches target
func AssertFault(t *testing.T, r *FaultRecorder, target error) weave.Fault {
	t.Helper()
	faults := r.Faults()
	require.Len(t, faults, 1, "expected exactly one fault, got %v", faults)
	assert.True(t, errors.Is(faults[0].Err, target), "expected fault %v, got %v", target, faults[0].Err)
	assert.NotEmpty(t, faults[0].File, "fault has no call site")
	return faults[0]
}

// AssertPanicsWithError checks if a function panics with specific error
func AssertPanicsWithError(t *testing.T, expectedError error, f func(), msgAndArgs ...any) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			assert.Fail(t, "function did not panic", msgAndArgs...)
			return
		}

		err, ok := r.(error)
		if !ok {
			assert.Fail(t, "panic value is not an error: %v", r)
			return
		}

		assert.ErrorIs(t, err, expectedError, msgAndArgs...)
	}()
	f()
}

// AssertSameInstance verifies two resolutions returned the same instance
func AssertSameInstance(t *testing.T, expected, actual any, msgAndArgs ...any) {
	t.Helper()
	assert.Same(t, expected, actual, msgAndArgs...)
}

// AssertDifferentInstances verifies two resolutions returned different instances
func AssertDifferentInstances(t *testing.T, first, second any, msgAndArgs ...any) {
	t.Helper()
	assert.NotSame(t, first, second, msgAndArgs...)
}

// AssertErrorType checks if an error is of a specific type
func AssertErrorType[T error](t *testing.T, err error, msgAndArgs ...any) T {
	t.Helper()
	var target T
	assert.ErrorAs(t, err, &target, msgAndArgs...)
	return target
}

// AssertClosed checks if an error indicates a closed environment
func AssertClosed(t *testing.T, err error) {
	t.Helper()
	assert.Error(t, err)
	assert.True(t, weave.IsClosed(err), "expected closed error, got: %v", err)
}
