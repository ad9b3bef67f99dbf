package workflows

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/iamcapote/semantic-flow-sub001/internal/errors"
	"gopkg.in/yaml.v3"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

const (
	FormatJSON = "json"
	FormatYAML = "yaml"

	defaultPublicLimit = 50
	maxPublicLimit     = 200
)

// Service applies ownership and versioning rules on top of a Repo
type Service struct {
	repo Repo
}

func NewService(repo Repo) *Service {
	return &Service{repo: repo}
}

// ListOptions selects what List returns
type ListOptions struct {
	IncludePublic bool `json:"includePublic"`
	Offset        int  `json:"offset"`
	Limit         int  `json:"limit"`
}

// UpdateInput carries the expected version for optimistic concurrency. Zero skips the check.
type UpdateInput struct {
	ID      string `json:"id"`
	Version int    `json:"version"`
	Input
}

// List returns the caller's workflows, followed by other users' public ones when requested
func (s *Service) List(ctx context.Context, userID string, opts ListOptions) ([]*Workflow, error) {
	own, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrapf(err, "list workflows")
	}
	if !opts.IncludePublic {
		return own, nil
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultPublicLimit
	}
	if limit > maxPublicLimit {
		limit = maxPublicLimit
	}
	public, err := s.repo.ListPublic(ctx, max(opts.Offset, 0), limit)
	if err != nil {
		return nil, errors.Wrapf(err, "list public workflows")
	}
	for _, w := range public {
		if w.UserID != userID {
			own = append(own, w)
		}
	}
	return own, nil
}

// Get hides private workflows of other users behind ErrNotFound
func (s *Service) Get(ctx context.Context, userID, id string) (*Workflow, error) {
	w, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !w.CanRead(userID) {
		return nil, errors.ErrNotFound
	}
	return w, nil
}

func (s *Service) Create(ctx context.Context, userID string, in Input) (*Workflow, error) {
	if err := in.Normalize(); err != nil {
		return nil, err
	}
	now := NowTimeFunc().UTC()
	w := &Workflow{
		ID:          uuid.New().String(),
		Title:       in.Title,
		Description: in.Description,
		Content:     *in.Content,
		UserID:      userID,
		Version:     1,
		IsPublic:    in.IsPublic,
		Tags:        in.Tags,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Insert(ctx, w); err != nil {
		return nil, errors.Wrapf(err, "create workflow")
	}
	return w, nil
}

// Update replaces the editable fields and bumps the version
func (s *Service) Update(ctx context.Context, userID string, in UpdateInput) (*Workflow, error) {
	w, err := s.owned(ctx, userID, in.ID)
	if err != nil {
		return nil, err
	}
	if in.Version != 0 && in.Version != w.Version {
		return nil, errors.Wrapf(errors.ErrConflict, "workflow is at version %d", w.Version)
	}
	if err := in.Input.Normalize(); err != nil {
		return nil, err
	}

	expected := w.Version
	w.Title = in.Title
	w.Description = in.Description
	w.Content = *in.Content
	w.IsPublic = in.IsPublic
	w.Tags = in.Tags
	w.Version++
	w.UpdatedAt = NowTimeFunc().UTC()
	if err := s.repo.Update(ctx, w, expected); err != nil {
		return nil, errors.Wrapf(err, "update workflow")
	}
	return w, nil
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// Fork copies a readable workflow into a new private one owned by userID
func (s *Service) Fork(ctx context.Context, userID, id string) (*Workflow, error) {
	src, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	now := NowTimeFunc().UTC()
	fork := src.Clone()
	fork.ID = uuid.New().String()
	fork.UserID = userID
	fork.Version = 1
	fork.IsPublic = false
	fork.ForkCount = 0
	fork.StarCount = 0
	fork.ForkedFrom = src.ID
	fork.CreatedAt = now
	fork.UpdatedAt = now
	if !strings.HasSuffix(fork.Title, " (fork)") && len(fork.Title)+len(" (fork)") <= maxTitleLength {
		fork.Title += " (fork)"
	}

	if err := s.repo.Insert(ctx, fork); err != nil {
		return nil, errors.Wrapf(err, "insert fork")
	}
	if err := s.repo.IncrementForkCount(ctx, src.ID); err != nil {
		return nil, errors.Wrapf(err, "count fork")
	}
	return fork, nil
}

// Star increments the star count of a readable workflow and returns the new count
func (s *Service) Star(ctx context.Context, userID, id string) (int, error) {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return 0, err
	}
	return s.repo.IncrementStarCount(ctx, id)
}

// Export renders a readable workflow as JSON or YAML
func (s *Service) Export(ctx context.Context, userID, id, format string) (string, error) {
	w, err := s.Get(ctx, userID, id)
	if err != nil {
		return "", err
	}
	switch strings.ToLower(format) {
	case "", FormatJSON:
		b, err := json.MarshalIndent(w, "", "  ")
		if err != nil {
			return "", errors.Wrapf(err, "encode json")
		}
		return string(b), nil
	case FormatYAML:
		b, err := yaml.Marshal(w)
		if err != nil {
			return "", errors.Wrapf(err, "encode yaml")
		}
		return string(b), nil
	default:
		return "", errors.Wrapf(errors.ErrInvalidRequest, "unsupported format %q", format)
	}
}

func (s *Service) owned(ctx context.Context, userID, id string) (*Workflow, error) {
	w, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if w.UserID != userID {
		if w.IsPublic {
			return nil, errors.ErrForbidden
		}
		return nil, errors.ErrNotFound
	}
	return w, nil
}
