// Package providers stores the LLM endpoints a user has configured. API keys
// are never part of a record; they stay in the browser.
package providers

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/iamcapote/semantic-flow-sub001/internal/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

type Kind string

const (
	KindOpenAI     Kind = "openai"
	KindAnthropic  Kind = "anthropic"
	KindOpenRouter Kind = "openrouter"
	KindCustom     Kind = "custom"
)

var knownKinds = map[Kind]struct{}{
	KindOpenAI:     {},
	KindAnthropic:  {},
	KindOpenRouter: {},
	KindCustom:     {},
}

type Provider struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	Kind      Kind      `json:"kind"`
	BaseURL   string    `json:"baseUrl"`
	Models    []string  `json:"models"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Input is the editable part of a provider
type Input struct {
	Name     string   `json:"name"`
	Kind     Kind     `json:"kind"`
	BaseURL  string   `json:"baseUrl"`
	Models   []string `json:"models"`
	IsActive bool     `json:"isActive"`
}

type UpdateInput struct {
	ID string `json:"id"`
	Input
}

type Repo interface {
	Insert(ctx context.Context, p *Provider) error
	Update(ctx context.Context, p *Provider) error
	Get(ctx context.Context, id string) (*Provider, error)
	Delete(ctx context.Context, id string) error
	ListByUser(ctx context.Context, userID string) ([]*Provider, error)
}

func (in *Input) Normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return errors.Wrapf(errors.ErrInvalidRequest, "name is required")
	}
	in.Kind = Kind(strings.ToLower(strings.TrimSpace(string(in.Kind))))
	if in.Kind == "" {
		in.Kind = KindCustom
	}
	if _, ok := knownKinds[in.Kind]; !ok {
		return errors.Wrapf(errors.ErrInvalidRequest, "unknown provider kind %q", in.Kind)
	}
	base, err := ValidateBaseURL(in.BaseURL)
	if err != nil {
		return err
	}
	in.BaseURL = base

	models := make([]string, 0, len(in.Models))
	for _, m := range in.Models {
		if m = strings.TrimSpace(m); m != "" {
			models = append(models, m)
		}
	}
	in.Models = models
	return nil
}

// ValidateBaseURL accepts https URLs, and plain http only for loopback hosts
func ValidateBaseURL(raw string) (string, error) {
	raw = strings.TrimRight(strings.TrimSpace(raw), "/")
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", errors.Wrapf(errors.ErrInvalidRequest, "base url must be absolute")
	}
	switch u.Scheme {
	case "https":
	case "http":
		host := u.Hostname()
		if host != "localhost" && host != "127.0.0.1" && host != "::1" {
			return "", errors.Wrapf(errors.ErrInvalidRequest, "base url must use https")
		}
	default:
		return "", errors.Wrapf(errors.ErrInvalidRequest, "base url must use https")
	}
	if u.User != nil {
		return "", errors.Wrapf(errors.ErrInvalidRequest, "base url must not carry credentials")
	}
	return raw, nil
}

// Service applies ownership rules on top of a Repo
type Service struct {
	repo Repo
}

func NewService(repo Repo) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, userID string) ([]*Provider, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Get returns ErrNotFound for providers of other users
func (s *Service) Get(ctx context.Context, userID, id string) (*Provider, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, errors.ErrNotFound
	}
	return p, nil
}

func (s *Service) Create(ctx context.Context, userID string, in Input) (*Provider, error) {
	if err := in.Normalize(); err != nil {
		return nil, err
	}
	now := NowTimeFunc().UTC()
	p := &Provider{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      in.Name,
		Kind:      in.Kind,
		BaseURL:   in.BaseURL,
		Models:    in.Models,
		IsActive:  in.IsActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, p); err != nil {
		return nil, errors.Wrapf(err, "create provider")
	}
	return p, nil
}

func (s *Service) Update(ctx context.Context, userID string, in UpdateInput) (*Provider, error) {
	p, err := s.Get(ctx, userID, in.ID)
	if err != nil {
		return nil, err
	}
	if err := in.Input.Normalize(); err != nil {
		return nil, err
	}
	p.Name = in.Name
	p.Kind = in.Kind
	p.BaseURL = in.BaseURL
	p.Models = in.Models
	p.IsActive = in.IsActive
	p.UpdatedAt = NowTimeFunc().UTC()
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, errors.Wrapf(err, "update provider")
	}
	return p, nil
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
