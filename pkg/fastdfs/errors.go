package fastdfs

import (
	"errors"
	"fmt"

	"github.com/fastdfs-go/fastdfs/pkg/wire"
)

// Error codes returned by Error.Code. Server-reported codes come from the
// status byte of a tracker/storage response (Protocol covers any status byte
// not in the known table); client-side codes (InvalidResponse, Connection,
// Timeout, ClientClosed, NoStorageServer) never reach the wire.
const (
	CodeFileNotFound      = "FILE_NOT_FOUND"
	CodeFileAlreadyExists = "FILE_ALREADY_EXISTS"
	CodeInvalidArgument   = "INVALID_ARGUMENT"
	CodeInsufficientSpace = "INSUFFICIENT_SPACE"
	CodeProtocol          = "PROTOCOL_ERROR"
	CodeInvalidResponse   = "INVALID_RESPONSE"
	CodeConnection        = "CONNECTION_FAILED"
	CodeTimeout           = "TIMEOUT"
	CodeClientClosed      = "CLIENT_CLOSED"
	CodeNoStorageServer   = "NO_STORAGE_SERVER"
)

// Error is the typed error returned by every fastdfs client operation.
type Error struct {
	Code      string
	Message   string
	Operation string
	Cause     error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Operation, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is(err, ErrFileNotFound) etc. match by Code rather than by
// pointer identity, since every occurrence constructs a fresh *Error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Sentinel errors usable with errors.Is. Only Code is compared.
var (
	ErrFileNotFound      = &Error{Code: CodeFileNotFound}
	ErrFileAlreadyExists = &Error{Code: CodeFileAlreadyExists}
	ErrInvalidArgument   = &Error{Code: CodeInvalidArgument}
	ErrInsufficientSpace = &Error{Code: CodeInsufficientSpace}
	ErrProtocol          = &Error{Code: CodeProtocol}
	ErrInvalidResponse   = &Error{Code: CodeInvalidResponse}
	ErrConnection        = &Error{Code: CodeConnection}
	ErrTimeout           = &Error{Code: CodeTimeout}
	ErrClientClosed      = &Error{Code: CodeClientClosed}
	ErrNoStorageServer   = &Error{Code: CodeNoStorageServer}
)

// newError builds an *Error for a given code, attaching operation and cause.
func newError(code, message, operation string, cause error) *Error {
	return &Error{Code: code, Message: message, Operation: operation, Cause: cause}
}

// errorFromStatus maps a storage/tracker response status byte to a typed
// Error. Any non-zero status not in the known table becomes CodeProtocol,
// since an unrecognized status is a protocol-level surprise rather than a
// condition the caller can act on specifically.
func errorFromStatus(status uint8, operation string) *Error {
	switch status {
	case wire.StatusSuccess:
		return nil
	case wire.StatusFileNotFound:
		return newError(CodeFileNotFound, "file not found", operation, nil)
	case wire.StatusFileAlreadyExists:
		return newError(CodeFileAlreadyExists, "file already exists", operation, nil)
	case wire.StatusInvalidArgument:
		return newError(CodeInvalidArgument, "invalid argument", operation, nil)
	case wire.StatusInsufficientSpace:
		return newError(CodeInsufficientSpace, "insufficient storage space", operation, nil)
	default:
		return newError(CodeProtocol, fmt.Sprintf("unexpected server status %d", status), operation, nil)
	}
}

// IsTransient reports whether err is the kind of failure a retry might
// resolve: a connection failure, a timeout, or a tracker that reported no
// storage server. Everything else — a
// definitive server answer like FileNotFound, or a malformed response — is
// permanent and retrying it would only repeat it.
//
// The default retry policy (see Config.RetryCount) does not currently
// consult this; it retries every error regardless of kind. IsTransient is
// exported for callers who want to build a stricter policy on top of
// Client themselves.
func IsTransient(err error) bool {
	var fe *Error
	if !errors.As(err, &fe) {
		return false
	}
	switch fe.Code {
	case CodeConnection, CodeTimeout, CodeNoStorageServer:
		return true
	default:
		return false
	}
}
