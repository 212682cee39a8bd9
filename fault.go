package weave

import (
	"log/slog"
	"runtime"
)

// Fault describes a usage error together with the call site of the accessor
// that raised it.
type Fault struct {
	Err  error
	File string
	Line int
}

// Message returns the error text of the fault.
func (f Fault) Message() string {
	if f.Err == nil {
		return ""
	}
	return f.Err.Error()
}

// FaultHandler is notified of every usage fault before the error is returned
// to the caller. Handlers may panic or exit to make faults fatal.
type FaultHandler func(Fault)

// LogFaults returns a FaultHandler that logs faults at error level.
func LogFaults(logger *slog.Logger) FaultHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(f Fault) {
		logger.Error("dependency resolution fault",
			"error", f.Err,
			"file", f.File,
			"line", f.Line,
		)
	}
}

// PanicOnFault is a FaultHandler that panics with the fault error, mirroring
// a hard abort for applications that prefer to crash on wiring defects.
func PanicOnFault(f Fault) {
	panic(f.Err)
}

// reportFault notifies the fault handler. skip counts the frames above
// reportFault's caller, so skip 1 reports the caller's caller.
func (env *Environment) reportFault(err error, skip int) {
	if env == nil || env.faults == nil {
		return
	}

	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		file, line = "???", 0
	}

	env.faults(Fault{Err: err, File: file, Line: line})
}
