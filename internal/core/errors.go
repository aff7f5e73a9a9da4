package core

import "errors"

var (
	// ErrEmptyInput is returned when no analysable input was provided
	ErrEmptyInput = errors.New("no input provided")
	// ErrUnsupportedInput is returned for input types the pipeline cannot handle
	ErrUnsupportedInput = errors.New("unsupported input")
	// ErrNoContent is returned when nothing could be extracted for analysis
	ErrNoContent = errors.New("no extractable content")
	// ErrCacheMiss is returned by cache repositories on a miss or an expired entry
	ErrCacheMiss = errors.New("cache entry not found")
)

// InputError is a user-facing input problem (unsupported file, empty content).
// It is reported to the caller as a message, never as an internal failure.
type InputError struct {
	Message string
	Err     error
}

// NewInputError wraps err with a user-facing message
func NewInputError(message string, err error) *InputError {
	return &InputError{Message: message, Err: err}
}

func (e *InputError) Error() string {
	return e.Message
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// IsInputError reports whether err is caused by the caller's input
func IsInputError(err error) bool {
	var ie *InputError
	if errors.As(err, &ie) {
		return true
	}
	return errors.Is(err, ErrEmptyInput) || errors.Is(err, ErrUnsupportedInput) || errors.Is(err, ErrNoContent)
}

// UserMessage returns the message to show for an input error
func UserMessage(err error) string {
	var ie *InputError
	if errors.As(err, &ie) {
		return ie.Message
	}
	switch {
	case errors.Is(err, ErrEmptyInput):
		return "Provide a text, a URL, an image or an .eml file."
	case errors.Is(err, ErrUnsupportedInput):
		return "Unsupported file type."
	case errors.Is(err, ErrNoContent):
		return "Could not extract any content to analyse."
	}
	return "Analysis failed."
}
