// Package llm forwards chat completions to a provider chosen by the user,
// authenticating with a key the browser supplies on each request.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/iamcapote/semantic-flow-sub001/internal/errors"
	"github.com/iamcapote/semantic-flow-sub001/providers"
)

// HeaderProviderKey carries the user's provider API key. It is never stored or logged.
const HeaderProviderKey = "X-Provider-Key"

const (
	completionsPath = "/chat/completions"
	maxErrorBody    = 4 << 10
)

// RequestTimeout bounds a non-streamed completion, body included. Streams
// have no overall timeout and end with the request context.
var RequestTimeout = 2 * time.Minute

var validRoles = map[string]struct{}{
	"system":    {},
	"user":      {},
	"assistant": {},
	"tool":      {},
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	ProviderID  string    `json:"providerId,omitempty"`
	BaseURL     string    `json:"baseUrl"`
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Stream      bool      `json:"stream"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   *int      `json:"maxTokens,omitempty"`
}

// completion is the OpenAI compatible body sent upstream
type completion struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Stream      bool      `json:"stream"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
}

// Validate checks the request and normalises the base URL
func (req *ChatRequest) Validate() error {
	base, err := providers.ValidateBaseURL(req.BaseURL)
	if err != nil {
		return err
	}
	req.BaseURL = base
	req.Model = strings.TrimSpace(req.Model)
	if req.Model == "" {
		return errors.Wrapf(errors.ErrInvalidRequest, "model is required")
	}
	if len(req.Messages) == 0 {
		return errors.Wrapf(errors.ErrInvalidRequest, "messages are required")
	}
	for i, m := range req.Messages {
		if _, ok := validRoles[m.Role]; !ok {
			return errors.Wrapf(errors.ErrInvalidRequest, "message %d has unknown role %q", i, m.Role)
		}
	}
	return nil
}

type Proxy struct {
	base http.RoundTripper
}

// NewProxy returns a proxy sending requests through base, or the default
// transport when base is nil.
func NewProxy(base http.RoundTripper) *Proxy {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Proxy{base: base}
}

func (p *Proxy) client(key string, stream bool) *http.Client {
	timeout := RequestTimeout
	if stream {
		timeout = 0
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: key, TokenType: "Bearer"}),
			Base:   p.base,
		},
	}
}

// Chat sends the completion request and returns the open response on a 2xx
// status. Other statuses are returned as *errors.UpstreamError.
func (p *Proxy) Chat(ctx context.Context, key string, req ChatRequest) (*http.Response, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "%s header is required", HeaderProviderKey)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(completion{
		Model:       req.Model,
		Messages:    req.Messages,
		Stream:      req.Stream,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "encode completion")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.BaseURL+completionsPath, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "build request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if req.Stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	} else {
		httpReq.Header.Set("Accept", "application/json")
	}

	resp, err := p.client(key, req.Stream).Do(httpReq)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrUpstream, "chat completion: %v", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &errors.UpstreamError{Status: resp.StatusCode, Body: body}
	}
	return resp, nil
}
