package compiler

import "fmt"

// CompileError is a failed compilation of one root. Other roots are not
// affected by it.
type CompileError struct {
	Message    string
	SourcePath string
	Err        error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s: %s", e.SourcePath, e.Message)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}
