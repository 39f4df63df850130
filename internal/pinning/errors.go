package pinning

import (
	"errors"
	"fmt"
)

// Kind classifies gateway failures so callers can branch without string matching.
type Kind int

const (
	// KindUnknown is returned by GetKind for errors that did not come from this package.
	KindUnknown Kind = iota
	// KindConfiguration means the API credential is missing. Detected before any I/O.
	KindConfiguration
	// KindValidation means caller-supplied content failed a precondition. Detected before any I/O.
	KindValidation
	// KindUpload means the pinning service answered with a non-success status.
	KindUpload
	// KindNetwork means the request never got a usable answer (DNS, timeout, reset).
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindValidation:
		return "validation"
	case KindUpload:
		return "upload"
	case KindNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// ErrMissingCredential is wrapped by every KindConfiguration error.
var ErrMissingCredential = errors.New("pinning service JWT not configured")

// Error is the single error type returned by Client operations.
type Error struct {
	Kind       Kind
	Op         string
	Message    string
	StatusCode int   // set for KindUpload
	Err        error // underlying cause, returned unchanged by Unwrap
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, msg)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func configurationError(op string) *Error {
	return &Error{Kind: KindConfiguration, Op: op, Message: ErrMissingCredential.Error(), Err: ErrMissingCredential}
}

func validationError(op, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: fmt.Sprintf(format, args...)}
}

func uploadError(op string, status int, reason string) *Error {
	return &Error{
		Kind:       KindUpload,
		Op:         op,
		StatusCode: status,
		Message:    fmt.Sprintf("pinning service rejected upload (status %d): %s", status, reason),
	}
}

func networkError(op string, err error) *Error {
	return &Error{Kind: KindNetwork, Op: op, Message: err.Error(), Err: err}
}

// GetKind extracts the Kind from anywhere in err's chain.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given Kind.
func IsKind(err error, kind Kind) bool {
	return GetKind(err) == kind
}
