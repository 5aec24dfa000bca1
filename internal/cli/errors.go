package cli

import "fmt"

// Exit codes returned by the sqlbatch binary.
const (
	ExitCodeError    = 1
	ExitCodeMismatch = 2
)

// ExitError carries a specific process exit code up to main. Commands return
// it when scripts must be able to tell a failure kind apart, such as a row
// mismatch found by verification.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit code %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }
