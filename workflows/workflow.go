package workflows

import (
	"strings"
	"time"

	"github.com/iamcapote/semantic-flow-sub001/internal/errors"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 5000
	maxTags              = 20
	maxTagLength         = 40
)

// Viewport is the canvas position saved with a workflow
type Viewport struct {
	X    float64 `json:"x" yaml:"x"`
	Y    float64 `json:"y" yaml:"y"`
	Zoom float64 `json:"zoom" yaml:"zoom"`
}

// Content is the graph itself. Nodes and edges are kept as the editor sent them.
type Content struct {
	Nodes    []map[string]any `json:"nodes" yaml:"nodes"`
	Edges    []map[string]any `json:"edges" yaml:"edges"`
	Viewport Viewport         `json:"viewport" yaml:"viewport"`
}

type Workflow struct {
	ID          string    `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description" yaml:"description,omitempty"`
	Content     Content   `json:"content" yaml:"content"`
	UserID      string    `json:"userId" yaml:"userId"`
	Version     int       `json:"version" yaml:"version"`
	IsPublic    bool      `json:"isPublic" yaml:"isPublic"`
	ForkCount   int       `json:"forkCount" yaml:"forkCount"`
	StarCount   int       `json:"starCount" yaml:"starCount"`
	ForkedFrom  string    `json:"forkedFrom,omitempty" yaml:"forkedFrom,omitempty"`
	Tags        []string  `json:"tags" yaml:"tags"`
	CreatedAt   time.Time `json:"createdAt" yaml:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" yaml:"updatedAt"`
}

// Input is the editable part of a workflow, shared by create and update
type Input struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Content     *Content `json:"content"`
	IsPublic    bool     `json:"isPublic"`
	Tags        []string `json:"tags"`
}

// Normalize trims fields, drops empty and duplicate tags and validates lengths
func (in *Input) Normalize() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if in.Title == "" {
		return errors.Wrapf(errors.ErrInvalidRequest, "title is required")
	}
	if len(in.Title) > maxTitleLength {
		return errors.Wrapf(errors.ErrInvalidRequest, "title is longer than %d characters", maxTitleLength)
	}
	if len(in.Description) > maxDescriptionLength {
		return errors.Wrapf(errors.ErrInvalidRequest, "description is longer than %d characters", maxDescriptionLength)
	}

	seen := make(map[string]struct{}, len(in.Tags))
	tags := make([]string, 0, len(in.Tags))
	for _, tag := range in.Tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if len(tag) > maxTagLength {
			return errors.Wrapf(errors.ErrInvalidRequest, "tag %q is longer than %d characters", tag, maxTagLength)
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	if len(tags) > maxTags {
		return errors.Wrapf(errors.ErrInvalidRequest, "at most %d tags are allowed", maxTags)
	}
	in.Tags = tags

	if in.Content == nil {
		in.Content = &Content{}
	}
	in.Content.normalize()
	return nil
}

func (c *Content) normalize() {
	if c.Nodes == nil {
		c.Nodes = []map[string]any{}
	}
	if c.Edges == nil {
		c.Edges = []map[string]any{}
	}
	if c.Viewport.Zoom == 0 {
		c.Viewport.Zoom = 1
	}
}

// CanRead reports whether userID may see the workflow
func (w *Workflow) CanRead(userID string) bool {
	return w.IsPublic || w.UserID == userID
}

// Clone returns a deep enough copy for storage isolation
func (w *Workflow) Clone() *Workflow {
	c := *w
	c.Tags = append([]string(nil), w.Tags...)
	c.Content.Nodes = cloneMaps(w.Content.Nodes)
	c.Content.Edges = cloneMaps(w.Content.Edges)
	return &c
}

func cloneMaps(in []map[string]any) []map[string]any {
	if in == nil {
		return nil
	}
	out := make([]map[string]any, len(in))
	for i, m := range in {
		cm := make(map[string]any, len(m))
		for k, v := range m {
			cm[k] = v
		}
		out[i] = cm
	}
	return out
}
