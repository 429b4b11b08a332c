package params

import "fmt"

// ParameterLoadError reports a missing or malformed parameter definition.
// It is fatal and raised before any oracle process is started.
type ParameterLoadError struct {
	Path   string
	Line   int
	Reason string
	Err    error
}

func (e *ParameterLoadError) Error() string {
	msg := "parameter load error"
	if e.Path != "" {
		msg += " in " + e.Path
	}
	if e.Line > 0 {
		msg += fmt.Sprintf(" (line %d)", e.Line)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParameterLoadError) Unwrap() error {
	return e.Err
}
