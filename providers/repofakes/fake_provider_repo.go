package repofakes

import (
	"context"
	"sort"
	"sync"

	"github.com/iamcapote/semantic-flow-sub001/internal/errors"
	"github.com/iamcapote/semantic-flow-sub001/providers"
)

var _ providers.Repo = (*FakeProviderRepo)(nil)

type FakeProviderRepo struct {
	mu        sync.RWMutex
	providers map[string]*providers.Provider
}

func NewFakeProviderRepo() *FakeProviderRepo {
	return &FakeProviderRepo{
		providers: make(map[string]*providers.Provider),
	}
}

func clone(p *providers.Provider) *providers.Provider {
	c := *p
	c.Models = append([]string(nil), p.Models...)
	return &c
}

func (r *FakeProviderRepo) Insert(_ context.Context, p *providers.Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[p.ID]; exists {
		return errors.Wrapf(errors.ErrConflict, "provider %s already exists", p.ID)
	}
	r.providers[p.ID] = clone(p)
	return nil
}

func (r *FakeProviderRepo) Update(_ context.Context, p *providers.Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[p.ID]; !exists {
		return errors.ErrNotFound
	}
	r.providers[p.ID] = clone(p)
	return nil
}

func (r *FakeProviderRepo) Get(_ context.Context, id string) (*providers.Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	return clone(p), nil
}

func (r *FakeProviderRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[id]; !ok {
		return errors.ErrNotFound
	}
	delete(r.providers, id)
	return nil
}

func (r *FakeProviderRepo) ListByUser(_ context.Context, userID string) ([]*providers.Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*providers.Provider, 0)
	for _, p := range r.providers {
		if p.UserID == userID {
			out = append(out, clone(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
