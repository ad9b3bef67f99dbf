package discourse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/iamcapote/semantic-flow-sub001/internal/errors"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

const (
	searchPath = "/search.json"
	postsPath  = "/posts.json"

	maxSeedTitle   = 255
	seedLookupJobs = 4
)

// SeedRequest describes a context topic to create on the forum
type SeedRequest struct {
	Title      string   `json:"title"`
	Kind       string   `json:"kind"`
	Body       string   `json:"body"`
	Tags       []string `json:"tags,omitempty"`
	CategoryID int      `json:"categoryId,omitempty"`
}

// SeedResult reports the topic a seed maps to
type SeedResult struct {
	Created bool  `json:"created"`
	TopicID int64 `json:"topicId"`
}

// SeedLookup is one entry of a LookupSeeds answer. TopicID is nil when no topic has the title.
type SeedLookup struct {
	Title   string `json:"title"`
	TopicID *int64 `json:"topicId"`
}

type frontMatter struct {
	Kind    string   `yaml:"kind"`
	Author  string   `yaml:"author,omitempty"`
	Created string   `yaml:"created"`
	Tags    []string `yaml:"tags,flow,omitempty"`
}

type searchResponse struct {
	Topics []struct {
		ID    int64  `json:"id"`
		Title string `json:"title"`
	} `json:"topics"`
}

type createPostResponse struct {
	ID      int64 `json:"id"`
	TopicID int64 `json:"topic_id"`
}

// Validate normalises the request and checks required fields
func (r *SeedRequest) Validate() error {
	r.Title = strings.TrimSpace(r.Title)
	r.Kind = strings.TrimSpace(r.Kind)
	if r.Title == "" {
		return errors.Wrapf(errors.ErrInvalidRequest, "title is required")
	}
	if len(r.Title) > maxSeedTitle {
		return errors.Wrapf(errors.ErrInvalidRequest, "title is longer than %d characters", maxSeedTitle)
	}
	if r.Kind == "" {
		r.Kind = "context"
	}
	return nil
}

// FindTopicByTitle searches for a topic whose title matches exactly (case-insensitive)
func (c *Client) FindTopicByTitle(ctx context.Context, title string) (int64, bool, error) {
	body, err := c.GetJSON(ctx, searchPath, url.Values{"q": {fmt.Sprintf("%q in:title", title)}})
	if err != nil {
		return 0, false, err
	}
	var result searchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return 0, false, errors.Wrapf(errors.ErrUpstream, "decode search response")
	}
	for _, t := range result.Topics {
		if strings.EqualFold(strings.TrimSpace(t.Title), title) {
			return t.ID, true, nil
		}
	}
	return 0, false, nil
}

// Seed creates the topic unless one with the same title already exists
func (c *Client) Seed(ctx context.Context, req SeedRequest, author string, categoryFallback int) (*SeedResult, error) {
	if err := c.requireAPIKey(); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if id, found, err := c.FindTopicByTitle(ctx, req.Title); err != nil {
		return nil, err
	} else if found {
		return &SeedResult{Created: false, TopicID: id}, nil
	}

	raw, err := ComposeSeedContent(req, author, NowTimeFunc())
	if err != nil {
		return nil, err
	}
	post := map[string]any{
		"title": req.Title,
		"raw":   raw,
	}
	if category := req.CategoryID; category > 0 {
		post["category"] = category
	} else if categoryFallback > 0 {
		post["category"] = categoryFallback
	}
	if len(req.Tags) > 0 {
		post["tags"] = req.Tags
	}

	body, err := c.PostJSON(ctx, postsPath, post)
	if err != nil {
		return nil, err
	}
	var created createPostResponse
	if err := json.Unmarshal(body, &created); err != nil || created.TopicID == 0 {
		return nil, errors.Wrapf(errors.ErrUpstream, "create post returned no topic id")
	}
	return &SeedResult{Created: true, TopicID: created.TopicID}, nil
}

// LookupSeeds resolves several titles concurrently, preserving order
func (c *Client) LookupSeeds(ctx context.Context, titles []string) ([]SeedLookup, error) {
	results := make([]SeedLookup, len(titles))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(seedLookupJobs)
	for i, title := range titles {
		results[i].Title = title
		g.Go(func() error {
			id, found, err := c.FindTopicByTitle(gctx, title)
			if err != nil {
				return err
			}
			if found {
				results[i].TopicID = &id
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// ComposeSeedContent renders the YAML front matter followed by the body
func ComposeSeedContent(req SeedRequest, author string, now time.Time) (string, error) {
	meta, err := yaml.Marshal(frontMatter{
		Kind:    req.Kind,
		Author:  author,
		Created: now.UTC().Format(time.RFC3339),
		Tags:    req.Tags,
	})
	if err != nil {
		return "", fmt.Errorf("encode front matter: %w", err)
	}
	var b strings.Builder
	b.WriteString("---\n")
	b.Write(meta)
	b.WriteString("---\n\n")
	b.WriteString(strings.TrimSpace(req.Body))
	b.WriteString("\n")
	return b.String(), nil
}

// SplitTitles parses a comma separated titles query, dropping blanks
func SplitTitles(raw string) []string {
	var titles []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			titles = append(titles, t)
		}
	}
	return titles
}
