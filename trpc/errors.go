package trpc

import (
	"net/http"

	"github.com/iamcapote/semantic-flow-sub001/internal/errors"
)

var errInvalidJSON = errors.New("input is not valid json")

// Code is a tRPC error code as it appears in error.data.code
type Code string

const (
	CodeParseError          Code = "PARSE_ERROR"
	CodeBadRequest          Code = "BAD_REQUEST"
	CodeUnauthorized        Code = "UNAUTHORIZED"
	CodeForbidden           Code = "FORBIDDEN"
	CodeNotFound            Code = "NOT_FOUND"
	CodeMethodNotSupported  Code = "METHOD_NOT_SUPPORTED"
	CodeConflict            Code = "CONFLICT"
	CodeTooManyRequests     Code = "TOO_MANY_REQUESTS"
	CodeInternalServerError Code = "INTERNAL_SERVER_ERROR"
	CodeNotImplemented      Code = "NOT_IMPLEMENTED"
	CodeBadGateway          Code = "BAD_GATEWAY"
)

type codeInfo struct {
	rpc    int
	status int
}

var codes = map[Code]codeInfo{
	CodeParseError:          {-32700, http.StatusBadRequest},
	CodeBadRequest:          {-32600, http.StatusBadRequest},
	CodeUnauthorized:        {-32001, http.StatusUnauthorized},
	CodeForbidden:           {-32003, http.StatusForbidden},
	CodeNotFound:            {-32004, http.StatusNotFound},
	CodeMethodNotSupported:  {-32005, http.StatusMethodNotAllowed},
	CodeConflict:            {-32009, http.StatusConflict},
	CodeTooManyRequests:     {-32029, http.StatusTooManyRequests},
	CodeInternalServerError: {-32603, http.StatusInternalServerError},
	CodeNotImplemented:      {-32603, http.StatusNotImplemented},
	CodeBadGateway:          {-32603, http.StatusBadGateway},
}

// RPCCode returns the JSON-RPC number for the code
func (c Code) RPCCode() int {
	if info, ok := codes[c]; ok {
		return info.rpc
	}
	return codes[CodeInternalServerError].rpc
}

// HTTPStatus returns the HTTP status sent with the code
func (c Code) HTTPStatus() int {
	if info, ok := codes[c]; ok {
		return info.status
	}
	return http.StatusInternalServerError
}

// Error is a procedure failure with an explicit code
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// FromError maps an application error onto a tRPC error. Internal failures
// keep a generic message.
func FromError(err error) *Error {
	var te *Error
	if errors.As(err, &te) {
		return te
	}
	switch {
	case errors.Is(err, errors.ErrInvalidRequest):
		return &Error{Code: CodeBadRequest, Message: err.Error(), Cause: err}
	case errors.Is(err, errors.ErrInvalidToken), errors.Is(err, errors.ErrTokenExpired):
		return &Error{Code: CodeUnauthorized, Message: "unauthorized", Cause: err}
	case errors.Is(err, errors.ErrForbidden):
		return &Error{Code: CodeForbidden, Message: "forbidden", Cause: err}
	case errors.Is(err, errors.ErrNotFound):
		return &Error{Code: CodeNotFound, Message: "not found", Cause: err}
	case errors.Is(err, errors.ErrConflict):
		return &Error{Code: CodeConflict, Message: err.Error(), Cause: err}
	case errors.Is(err, errors.ErrNotConfigured):
		return &Error{Code: CodeNotImplemented, Message: "not configured", Cause: err}
	case errors.Is(err, errors.ErrUpstream):
		return &Error{Code: CodeBadGateway, Message: "upstream_error", Cause: err}
	}
	return &Error{Code: CodeInternalServerError, Message: "internal server error", Cause: err}
}
