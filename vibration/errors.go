package vibration

import "fmt"

// ValidationError reports user-correctable input, such as a signal that is
// shorter than MinSignalLength. Pipeline state is left untouched.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return e.Field + ": " + e.Message
	}
	return e.Message
}

// TransportError reports a failed inbound stream. The pipeline moves to
// StateStopped until the caller runs it again.
type TransportError struct {
	URL   string
	Cause error
}

func (e *TransportError) Error() string {
	msg := "stream transport failed"
	if e.URL != "" {
		msg += " (" + e.URL + ")"
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// ArtifactGenerationError reports a failed diagnostic report request. No
// partial document is ever handed back alongside it.
type ArtifactGenerationError struct {
	StatusCode int
	Cause      error
}

func (e *ArtifactGenerationError) Error() string {
	msg := "failed to generate report"
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s: renderer returned status %d", msg, e.StatusCode)
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *ArtifactGenerationError) Unwrap() error {
	return e.Cause
}

// ParseError reports malformed or empty CSV content.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("csv line %d: %s", e.Line, e.Message)
	}
	return "csv: " + e.Message
}

// MinSignalLength is the shortest signal accepted for classification,
// reports and CSV import.
const MinSignalLength = 100

// ValidateSignal rejects signals shorter than MinSignalLength.
func ValidateSignal(signal []float64) error {
	if len(signal) < MinSignalLength {
		return &ValidationError{
			Field:   "signal",
			Message: fmt.Sprintf("signal too short (minimum %d samples, got %d)", MinSignalLength, len(signal)),
		}
	}
	return nil
}
