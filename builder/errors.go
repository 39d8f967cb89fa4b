package builder

import "errors"

// ErrNotPrepared is returned by Process before Prepare.
var ErrNotPrepared = errors.New("model builder not prepared")

// ErrCancelled is returned by Interrupter checks after Cancel.
var ErrCancelled = errors.New("model build cancelled")

// RenderEngineError is returned when a processor or script hook fails. The
// render is aborted.
type RenderEngineError struct {
	Method string
	Err    error
}

func (e *RenderEngineError) Error() string {
	return "Error invoking " + e.Method + ": " + e.Err.Error()
}

func (e *RenderEngineError) Unwrap() error {
	return e.Err
}
