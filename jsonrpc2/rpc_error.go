package jsonrpc2

import (
	"net/http"

	"kawan/apperr"
)

// ErrorFrom converts an application error into an RPCError for the
// response envelope.
func ErrorFrom(err error) *RPCError {
	if err == nil {
		return nil
	}
	return &RPCError{Code: StatusOf(err), Message: err.Error()}
}

// StatusOf maps a taxonomy code to the http-ish code carried in RPCError.
// Deterministic rejections are bad requests, only store trouble maps to a
// retryable status.
func StatusOf(err error) int {
	switch apperr.CodeOf(err) {
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodeUniquenessConflict:
		return http.StatusConflict
	case apperr.CodeStoreUnavailable:
		return http.StatusServiceUnavailable
	case apperr.CodeInternal, apperr.CodeUnknown:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}
