package audio

import "errors"

// ErrEmptyWaveform is returned when nothing is left after the offset and
// duration window has been applied.
var ErrEmptyWaveform = errors.New("decoded waveform is empty")

// Decode error codes
const (
	ErrCodeOpen        = "OPEN_FAILED"
	ErrCodeUnsupported = "UNSUPPORTED_FORMAT"
	ErrCodeDecoding    = "DECODING_FAILED"
	ErrCodeEmpty       = "EMPTY_AUDIO"
)

// DecodeError represents a failure to turn a source file into samples
type DecodeError struct {
	Path    string `json:"path"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *DecodeError) Error() string {
	msg := e.Message
	if e.Path != "" {
		msg = e.Path + ": " + msg
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// NewDecodeError creates a new decode error
func NewDecodeError(path, code, message string, cause error) *DecodeError {
	return &DecodeError{
		Path:    path,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// IsDecodeError reports whether err came from decoding a source file
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
