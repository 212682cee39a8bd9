package weave

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ========================================
// Core Error Values (Sentinel Errors)
// ========================================
// These are base errors. The engine wraps them in typed errors when it can
// add context, so always compare with errors.Is.

var (
	// Environment errors.
	ErrNilEnvironment    = errors.New("environment cannot be nil")
	ErrNoEnvironment     = errors.New("assembly has no environment to work in")
	ErrEnvironmentClosed = errors.New("environment has been closed")
	ErrCloseInsidePass   = errors.New("environment cannot be closed from inside a resolution pass")

	// Declaration errors.
	ErrEmptyName       = errors.New("definition name cannot be empty")
	ErrNilFactory      = errors.New("factory cannot be nil")
	ErrNilSubstitution = errors.New("substitution cannot be nil")
)

var (
	_ error = LifetimeError{}
	_ error = ResolutionError{}
	_ error = TypeMismatchError{}
	_ error = UnresolvedPlaceholderError{}
	_ error = SingletonConflictError{}
	_ error = WeakReferenceError{}
	_ error = PanicError{}
	_ error = DisposalError{}
)

// ========================================
// Typed Errors for Rich Context
// ========================================

// LifetimeError indicates an invalid lifetime value.
type LifetimeError struct {
	Value any
}

func (e LifetimeError) Error() string {
	return fmt.Sprintf("invalid lifetime: %v", e.Value)
}

// ResolutionError wraps an error returned by the factory, injector or
// substitution of the dependency identified by Key.
// Nested failures produce a chain of ResolutionErrors, outermost first.
type ResolutionError struct {
	Key   Key
	Cause error
}

func (e ResolutionError) Error() string {
	return fmt.Sprintf("resolve %s: %v", e.Key, e.Cause)
}

func (e ResolutionError) Unwrap() error {
	return e.Cause
}

// TypeMismatchError indicates that a factory, injector or substitution produced
// a value that cannot be converted to the type declared at the call site.
type TypeMismatchError struct {
	Key      Key
	Expected reflect.Type
	Actual   reflect.Type
}

func (e TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch for %s: expected %s, received %s",
		e.Key, formatType(e.Expected), formatType(e.Actual))
}

// UnresolvedPlaceholderError indicates a placeholder was evaluated while
// nothing was stored under its key in the current pass.
type UnresolvedPlaceholderError struct {
	Key Key
}

func (e UnresolvedPlaceholderError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("placeholder %s is not present in the current object graph\n\n", e.Key))
	b.WriteString("A placeholder only returns an instance that an injection with the same name\n")
	b.WriteString("stored earlier in the same resolution pass.\n\n")
	b.WriteString("To resolve this:\n")
	b.WriteString(fmt.Sprintf("  • Call the placeholder from an injector reached through DefineInjection(%q)\n", e.Key.Name))
	b.WriteString("  • Use Define if the dependency can be constructed by the assembly\n")
	return b.String()
}

// SingletonConflictError indicates that a second instance of a singleton was
// completed while the first one was still being constructed. This happens
// when a singleton's factory (not its injector) reaches, through the graph,
// an injector that asks for the same singleton.
// The instance stored first is kept.
type SingletonConflictError struct {
	Key      Key
	Existing reflect.Type
	Rejected reflect.Type
}

func (e SingletonConflictError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("singleton %s already exists, inspect your dependency graph\n\n", e.Key))
	b.WriteString("The singleton was constructed twice in one resolution pass: its factory\n")
	b.WriteString("resolved a dependency whose injector asked for the singleton again\n")
	b.WriteString("before the factory returned.\n\n")
	b.WriteString("To resolve this:\n")
	b.WriteString("  • Move the dependency from the factory into the injector\n")
	b.WriteString("  • Break the cycle with a Graph-scoped intermediary\n")
	return b.String()
}

// WeakReferenceError indicates a weak singleton produced a value that cannot
// be weakly referenced.
type WeakReferenceError struct {
	Key    Key
	Type   reflect.Type
	Reason string
}

func (e WeakReferenceError) Error() string {
	return fmt.Sprintf("weak singleton %s of type %s: %s", e.Key, formatType(e.Type), e.Reason)
}

// PanicError indicates a factory, injector or substitution panicked.
// It captures the panic value and stack trace for debugging.
type PanicError struct {
	Key   Key
	Panic any
	Stack []byte
}

func (e PanicError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("definition %s panicked: %v\n", e.Key, e.Panic))

	if len(e.Stack) > 0 {
		b.WriteString("\nStack trace:\n")
		b.Write(e.Stack)
	}

	return b.String()
}

// DisposalError aggregates disposal errors
type DisposalError struct {
	Context string // "environment", "singleton"
	Errors  []error
}

func (e DisposalError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("%s disposal failed: %v", e.Context, e.Errors[0])
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s disposal failed with %d errors:", e.Context, len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("\n  %d. %v", i+1, err))
	}
	return sb.String()
}

func (e DisposalError) Unwrap() []error {
	return e.Errors
}

// ========================================
// Error predicates
// ========================================

// IsTypeMismatch reports whether err contains a TypeMismatchError.
func IsTypeMismatch(err error) bool {
	var target TypeMismatchError
	return errors.As(err, &target)
}

// IsUnresolvedPlaceholder reports whether err contains an UnresolvedPlaceholderError.
func IsUnresolvedPlaceholder(err error) bool {
	var target UnresolvedPlaceholderError
	return errors.As(err, &target)
}

// IsSingletonConflict reports whether err contains a SingletonConflictError.
func IsSingletonConflict(err error) bool {
	var target SingletonConflictError
	return errors.As(err, &target)
}

// IsClosed reports whether err was caused by using a closed environment.
func IsClosed(err error) bool {
	return errors.Is(err, ErrEnvironmentClosed)
}

// IsFault reports whether err belongs to the usage-error taxonomy: a defect in
// the way assemblies are declared or wired rather than a failure of the
// objects being built.
func IsFault(err error) bool {
	if err == nil {
		return false
	}

	var (
		mismatch    TypeMismatchError
		placeholder UnresolvedPlaceholderError
		conflict    SingletonConflictError
		weakRef     WeakReferenceError
	)

	return errors.Is(err, ErrNoEnvironment) ||
		errors.Is(err, ErrEnvironmentClosed) ||
		errors.As(err, &mismatch) ||
		errors.As(err, &placeholder) ||
		errors.As(err, &conflict) ||
		errors.As(err, &weakRef)
}

// formatType formats a reflect.Type for error messages.
func formatType(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}

	switch t.Kind() {
	case reflect.Pointer:
		// Format pointers as *Type instead of *package.Type
		elem := t.Elem()
		if elem.PkgPath() != "" && elem.Name() != "" {
			return "*" + elem.Name()
		}
		return t.String()
	case reflect.Slice:
		elem := t.Elem()
		if elem.PkgPath() != "" && elem.Name() != "" {
			return "[]" + elem.Name()
		}
		return t.String()
	case reflect.Func:
		return t.String()
	default:
		if t.Name() != "" {
			return t.Name()
		}
		return t.String()
	}
}
