// Package vaulterr defines the error taxonomy shared by the proof pipeline,
// the relay gate and the HTTP surface. Every client-visible failure carries a
// stable code and an HTTP status; internal causes are wrapped, never exposed.
package vaulterr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies an error category.
type Code string

const (
	CodeValidation Code = "VALIDATION_ERROR"
	CodeNotFound   Code = "NOT_FOUND"
	CodeProof      Code = "PROOF_ERROR"
	CodeRelayer    Code = "RELAYER_ERROR"
	CodeRPC        Code = "RPC_ERROR"
	CodeInternal   Code = "INTERNAL_ERROR"
)

// Error is a structured error with a stable code for API consumers.
type Error struct {
	Code    Code
	Status  int
	Message string
	Details map[string]any
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithCause attaches an underlying cause error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithDetail adds a structured detail for the client response.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func newError(code Code, status int, format string, args ...any) *Error {
	return &Error{Code: code, Status: status, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error {
	return newError(CodeValidation, http.StatusBadRequest, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return newError(CodeNotFound, http.StatusNotFound, format, args...)
}

func Proof(format string, args ...any) *Error {
	return newError(CodeProof, http.StatusInternalServerError, format, args...)
}

func Relayer(format string, args ...any) *Error {
	return newError(CodeRelayer, http.StatusInternalServerError, format, args...)
}

// RelayerUnavailable marks the relayer as administratively disabled.
func RelayerUnavailable(format string, args ...any) *Error {
	return newError(CodeRelayer, http.StatusServiceUnavailable, format, args...)
}

// Overloaded signals load shedding, e.g. a full proof queue.
func Overloaded(format string, args ...any) *Error {
	return newError(CodeInternal, http.StatusServiceUnavailable, format, args...)
}

func RPC(format string, args ...any) *Error {
	return newError(CodeRPC, http.StatusBadGateway, format, args...)
}

func Internal(format string, args ...any) *Error {
	return newError(CodeInternal, http.StatusInternalServerError, format, args...)
}

// From converts any error into a taxonomy error. Already-typed errors pass
// through; everything else becomes an internal error with the cause hidden
// from clients.
func From(err error) *Error {
	var ve *Error
	if errors.As(err, &ve) {
		return ve
	}
	return Internal("an unexpected error occurred").WithCause(err)
}
