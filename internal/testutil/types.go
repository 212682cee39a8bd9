package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Common test errors
var (
	ErrTest        = errors.New("test error")
	ErrIntentional = errors.New("intentional error")
	ErrDisposal    = errors.New("disposal error")
)

// Parent is the owning side of a parent/child cycle.
type Parent struct {
	ID       string
	Child    *Child
	Children []*Child
}

// NewParent creates a new parent with a unique ID.
func NewParent() *Parent {
	return &Parent{ID: uuid.NewString()}
}

// Child points back to its parent.
type Child struct {
	ID     string
	Parent *Parent
}

// NewChild creates a new child with a unique ID.
func NewChild() *Child {
	return &Child{ID: uuid.NewString()}
}

// Session is a heap object large enough to be weakly referenced on its own.
type Session struct {
	ID        string
	CreatedAt time.Time
	Data      []byte
}

// NewSession creates a new session.
func NewSession() *Session {
	return &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		Data:      make([]byte, 64),
	}
}

// Subject is implemented by the objects substitutions replace.
type Subject interface {
	Number() int
	Companion() *Companion
}

// Companion references the Subject it was injected into.
type Companion struct {
	Subject Subject
}

// PrimarySubject is the declared implementation of Subject.
type PrimarySubject struct {
	Value int
	Peer  *Companion
}

func (s *PrimarySubject) Number() int          { return s.Value }
func (s *PrimarySubject) Companion() *Companion { return s.Peer }

// AlternateSubject is the implementation installed by substitutions.
type AlternateSubject struct {
	Value int
	Peer  *Companion
}

func (s *AlternateSubject) Number() int          { return s.Value }
func (s *AlternateSubject) Companion() *Companion { return s.Peer }

// DisposalLog records the order in which disposables were closed.
type DisposalLog struct {
	mu    sync.Mutex
	names []string
}

// Record appends name to the log.
func (l *DisposalLog) Record(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.names = append(l.names, name)
}

// Names returns the recorded names in closing order.
func (l *DisposalLog) Names() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.names...)
}

// TestDisposable is a disposable test service
type TestDisposable struct {
	Name string
	Log  *DisposalLog

	mu       sync.Mutex
	disposed bool
	closeErr error
}

// NewTestDisposable creates a disposable that records itself in log.
func NewTestDisposable(name string, log *DisposalLog) *TestDisposable {
	return &TestDisposable{Name: name, Log: log}
}

// NewTestDisposableWithError creates a disposable whose Close fails with err.
func NewTestDisposableWithError(name string, log *DisposalLog, err error) *TestDisposable {
	return &TestDisposable{Name: name, Log: log, closeErr: err}
}

func (s *TestDisposable) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.disposed = true
	if s.Log != nil {
		s.Log.Record(s.Name)
	}
	return s.closeErr
}

// IsDisposed reports whether Close was called.
func (s *TestDisposable) IsDisposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

// TestContextDisposable is a context-aware disposable test service
type TestContextDisposable struct {
	Name string
	Log  *DisposalLog

	mu          sync.Mutex
	disposed    bool
	sawContext  bool
	disposeTime time.Duration
}

// NewTestContextDisposable creates a context-aware disposable.
func NewTestContextDisposable(name string, log *DisposalLog) *TestContextDisposable {
	return &TestContextDisposable{Name: name, Log: log}
}

// SetDisposeTime makes Close take d unless the context ends first.
func (s *TestContextDisposable) SetDisposeTime(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disposeTime = d
}

func (s *TestContextDisposable) Close(ctx context.Context) error {
	s.mu.Lock()
	wait := s.disposeTime
	s.sawContext = ctx != nil
	s.mu.Unlock()

	if wait > 0 {
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	s.mu.Lock()
	s.disposed = true
	s.mu.Unlock()

	if s.Log != nil {
		s.Log.Record(s.Name)
	}
	return nil
}

// WasDisposedWithContext reports whether Close received a context.
func (s *TestContextDisposable) WasDisposedWithContext() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sawContext
}

// IsDisposed reports whether Close completed.
func (s *TestContextDisposable) IsDisposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}
