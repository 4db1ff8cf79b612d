package app

import "fmt"

// Exit codes follow sysexits(3).
const (
	ExitFailure = 1
	ExitUsage   = 64 // EX_USAGE
	ExitConfig  = 78 // EX_CONFIG
)

// ExitError carries the process exit code for a fatal error.
// cmd/lights exits with Code through the ExitCode() interface.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

func (e *ExitError) ExitCode() int { return e.Code }

func configError(err error) error { return &ExitError{Code: ExitConfig, Err: err} }

func usageError(format string, args ...any) error {
	return &ExitError{Code: ExitUsage, Err: fmt.Errorf(format, args...)}
}
