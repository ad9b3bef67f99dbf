package discourse

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/iamcapote/semantic-flow-sub001/internal/errors"
)

const (
	semanticSearchPath = "/discourse-ai/embeddings/semantic-search.json"
	personasPath       = "/admin/plugins/discourse-ai/ai-personas.json"
	personaStreamPath  = "/admin/plugins/discourse-ai/ai-personas/stream-reply.json"
)

// StreamRequest is the body forwarded to the persona stream endpoint
type StreamRequest struct {
	PersonaID int64  `json:"persona_id,omitempty"`
	Persona   string `json:"persona_name,omitempty"`
	Query     string `json:"query"`
	TopicID   int64  `json:"topic_id,omitempty"`
	Username  string `json:"username,omitempty"`
}

// Search runs a semantic search and returns the upstream JSON verbatim
func (c *Client) Search(ctx context.Context, query string) ([]byte, error) {
	if err := c.requireAPIKey(); err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "query is required")
	}
	return c.GetJSON(ctx, semanticSearchPath, url.Values{"q": {query}, "hyde": {"true"}})
}

// Personas lists the configured AI personas
func (c *Client) Personas(ctx context.Context) ([]byte, error) {
	if err := c.requireAPIKey(); err != nil {
		return nil, err
	}
	return c.GetJSON(ctx, personasPath, nil)
}

// StreamReply opens a persona reply stream. The caller closes the body.
func (c *Client) StreamReply(ctx context.Context, req StreamRequest) (*http.Response, error) {
	if err := c.requireAPIKey(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Query) == "" {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "query is required")
	}
	if req.PersonaID <= 0 && req.Persona == "" {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "persona is required")
	}
	return c.Stream(ctx, personaStreamPath, req)
}

func (c *Client) requireAPIKey() error {
	if !c.HasAPIKey() {
		return errors.Wrapf(errors.ErrNotConfigured, "discourse api key")
	}
	return nil
}
