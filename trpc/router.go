// Package trpc serves procedures using the tRPC HTTP wire format for
// single, non-batched calls.
//
// Queries are GET /{procedure}?input=<json>, mutations are POST /{procedure}
// with the input as the JSON body. Results are wrapped as
// {"result":{"data":...}} and failures as {"error":{...}}.
package trpc

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

const maxInputBytes = 1 << 20

type Kind int

const (
	Query Kind = iota
	Mutation
)

func (k Kind) String() string {
	if k == Mutation {
		return "mutation"
	}
	return "query"
}

// HandlerFunc runs a procedure. Input is nil when the caller sent none.
type HandlerFunc func(ctx context.Context, input json.RawMessage) (any, error)

type procedure struct {
	kind    Kind
	handler HandlerFunc
}

type Router struct {
	procedures map[string]procedure
}

func NewRouter() *Router {
	return &Router{procedures: make(map[string]procedure)}
}

func (rt *Router) Query(path string, h HandlerFunc) {
	rt.procedures[path] = procedure{kind: Query, handler: h}
}

func (rt *Router) Mutation(path string, h HandlerFunc) {
	rt.procedures[path] = procedure{kind: Mutation, handler: h}
}

// Procedures lists the registered paths in order
func (rt *Router) Procedures() []string {
	paths := make([]string, 0, len(rt.procedures))
	for p := range rt.procedures {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Handler serves a single procedure named by the {procedure} path value
func (rt *Router) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.PathValue("procedure")
		proc, ok := rt.procedures[path]
		if !ok {
			writeError(w, path, NewError(CodeNotFound, "no procedure found on path \""+path+"\""))
			return
		}

		var (
			input json.RawMessage
			err   error
		)
		switch {
		case proc.kind == Query && r.Method == http.MethodGet:
			input, err = queryInput(r)
		case proc.kind == Mutation && r.Method == http.MethodPost:
			input, err = bodyInput(r)
		default:
			writeError(w, path, NewError(CodeMethodNotSupported, "unsupported "+r.Method+" for "+proc.kind.String()))
			return
		}
		if err != nil {
			writeError(w, path, &Error{Code: CodeParseError, Message: "invalid input", Cause: err})
			return
		}

		data, err := proc.handler(r.Context(), input)
		if err != nil {
			te := FromError(err)
			if te.Code.HTTPStatus() >= http.StatusInternalServerError {
				log.Err(err).Str("procedure", path).Msg("trpc procedure failed")
			}
			writeError(w, path, te)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"result": map[string]any{"data": data}})
	}
}

// Decode unmarshals input into a typed value. Missing input leaves the zero value.
func Decode[T any](input json.RawMessage) (T, error) {
	var v T
	if len(input) == 0 || string(input) == "null" {
		return v, nil
	}
	if err := json.Unmarshal(input, &v); err != nil {
		return v, &Error{Code: CodeBadRequest, Message: "invalid input", Cause: err}
	}
	return v, nil
}

// Typed adapts a function with typed input and output into a HandlerFunc
func Typed[I, O any](fn func(ctx context.Context, in I) (O, error)) HandlerFunc {
	return func(ctx context.Context, input json.RawMessage) (any, error) {
		in, err := Decode[I](input)
		if err != nil {
			return nil, err
		}
		return fn(ctx, in)
	}
}

func queryInput(r *http.Request) (json.RawMessage, error) {
	raw := r.URL.Query().Get("input")
	if raw == "" {
		return nil, nil
	}
	if !json.Valid([]byte(raw)) {
		return nil, errInvalidJSON
	}
	return json.RawMessage(raw), nil
}

func bodyInput(r *http.Request) (json.RawMessage, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxInputBytes))
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, nil
	}
	if !json.Valid(body) {
		return nil, errInvalidJSON
	}
	return json.RawMessage(body), nil
}

type errorData struct {
	Code       Code   `json:"code"`
	HTTPStatus int    `json:"httpStatus"`
	Path       string `json:"path"`
}

type errorShape struct {
	Message string    `json:"message"`
	Code    int       `json:"code"`
	Data    errorData `json:"data"`
}

func writeError(w http.ResponseWriter, path string, e *Error) {
	status := e.Code.HTTPStatus()
	writeJSON(w, status, map[string]any{"error": errorShape{
		Message: e.Message,
		Code:    e.Code.RPCCode(),
		Data: errorData{
			Code:       e.Code,
			HTTPStatus: status,
			Path:       path,
		},
	}})
}

// WriteError sends a tRPC error for procedures rejected before dispatch
func WriteError(w http.ResponseWriter, path string, code Code, message string) {
	writeError(w, path, NewError(code, message))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Err(err).Msg("trpc: write response")
	}
}
