package review

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindValidation  ErrorKind = "validation"
	KindBusy        ErrorKind = "busy"
	KindCapture     ErrorKind = "capture"
	KindWrite       ErrorKind = "write"
	KindNotFound    ErrorKind = "not_found"
	KindUnavailable ErrorKind = "unavailable"
)

// Error carries one human readable Message for the reviewer; Err keeps the
// backend cause for logs only.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

const msgNothingToSave = "Add comment or mark an annotation first."

var (
	ErrNothingToSave   = &Error{Kind: KindValidation, Message: msgNothingToSave}
	ErrSaveInProgress  = &Error{Kind: KindBusy, Message: "a save is already in progress"}
	ErrCaptureInactive = &Error{Kind: KindCapture, Message: "annotation capture is off"}
	ErrCapturePaused   = &Error{Kind: KindCapture, Message: "pause playback to draw"}
	ErrSessionNotFound = &Error{Kind: KindNotFound, Message: "review session not found"}
	ErrMediaNotFound   = &Error{Kind: KindNotFound, Message: "media item not found"}
	ErrCommentNotFound = &Error{Kind: KindNotFound, Message: "comment not found"}
)

func validationError(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Message returns the reviewer-facing text for any error.
func Message(err error) string {
	var re *Error
	if errors.As(err, &re) {
		return re.Message
	}
	return "something went wrong"
}

func KindOf(err error) ErrorKind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return ""
}
