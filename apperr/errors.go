package apperr

import (
	"context"
	"errors"
	"fmt"
)

type AppError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

func New(code Code, message string) error {
	return &AppError{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) error {
	return &AppError{Code: code, Message: message, Cause: cause}
}

// CodeOf returns the taxonomy code carried by err, or CodeUnknown.
func CodeOf(err error) Code {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeUnknown
}

func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

func AlreadyFriends(msg string) error {
	return New(CodeAlreadyFriends, msg)
}

func RequestPending(msg string) error {
	return New(CodeRequestPending, msg)
}

func AttemptsExhausted(msg string) error {
	return New(CodeAttemptsExhausted, msg)
}

func NotFound(msg string) error {
	return New(CodeNotFound, msg)
}

func NotPending(msg string) error {
	return New(CodeNotPending, msg)
}

func NotFriends(msg string) error {
	return New(CodeNotFriends, msg)
}

func EmptyParticipants(msg string) error {
	return New(CodeEmptyParticipants, msg)
}

func InvalidArg(msg string) error {
	return New(CodeInvalidArgument, msg)
}

func Internal(msg string, cause error) error {
	return Wrap(CodeInternal, msg, cause)
}

func UniquenessConflict(msg string) error {
	return New(CodeUniquenessConflict, msg)
}

// FromStore classifies an error coming back from a store call. A timed out
// or cancelled call surfaces as StoreUnavailable so callers can retry with
// backoff; anything else stays internal.
func FromStore(err error) error {
	if err == nil {
		return nil
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Wrap(CodeStoreUnavailable, "store unavailable", err)
	}
	return Wrap(CodeInternal, "store error", err)
}
