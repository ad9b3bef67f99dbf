package repofakes

import (
	"context"
	"sort"
	"sync"

	"github.com/iamcapote/semantic-flow-sub001/internal/errors"
	"github.com/iamcapote/semantic-flow-sub001/workflows"
)

var _ workflows.Repo = (*FakeWorkflowRepo)(nil)

// FakeWorkflowRepo is the in-memory store used when no database is configured
type FakeWorkflowRepo struct {
	mu        sync.RWMutex
	workflows map[string]*workflows.Workflow
}

func NewFakeWorkflowRepo() *FakeWorkflowRepo {
	return &FakeWorkflowRepo{
		workflows: make(map[string]*workflows.Workflow),
	}
}

func (r *FakeWorkflowRepo) Insert(_ context.Context, w *workflows.Workflow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.workflows[w.ID]; exists {
		return errors.Wrapf(errors.ErrConflict, "workflow %s already exists", w.ID)
	}
	r.workflows[w.ID] = w.Clone()
	return nil
}

func (r *FakeWorkflowRepo) Update(_ context.Context, w *workflows.Workflow, expectedVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, exists := r.workflows[w.ID]
	if !exists {
		return errors.ErrNotFound
	}
	if stored.Version != expectedVersion {
		return errors.Wrapf(errors.ErrConflict, "workflow is at version %d", stored.Version)
	}
	r.workflows[w.ID] = w.Clone()
	return nil
}

func (r *FakeWorkflowRepo) Get(_ context.Context, id string) (*workflows.Workflow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.workflows[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	return w.Clone(), nil
}

func (r *FakeWorkflowRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.workflows[id]; !ok {
		return errors.ErrNotFound
	}
	delete(r.workflows, id)
	return nil
}

func (r *FakeWorkflowRepo) ListByUser(_ context.Context, userID string) ([]*workflows.Workflow, error) {
	return r.filter(func(w *workflows.Workflow) bool { return w.UserID == userID }, 0, 0), nil
}

func (r *FakeWorkflowRepo) ListPublic(_ context.Context, offset, limit int) ([]*workflows.Workflow, error) {
	return r.filter(func(w *workflows.Workflow) bool { return w.IsPublic }, offset, limit), nil
}

func (r *FakeWorkflowRepo) IncrementForkCount(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.workflows[id]
	if !ok {
		return errors.ErrNotFound
	}
	w.ForkCount++
	return nil
}

func (r *FakeWorkflowRepo) IncrementStarCount(_ context.Context, id string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.workflows[id]
	if !ok {
		return 0, errors.ErrNotFound
	}
	w.StarCount++
	return w.StarCount, nil
}

func (r *FakeWorkflowRepo) filter(keep func(*workflows.Workflow) bool, offset, limit int) []*workflows.Workflow {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*workflows.Workflow, 0)
	for _, w := range r.workflows {
		if keep(w) {
			out = append(out, w.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})

	if offset >= len(out) {
		return []*workflows.Workflow{}
	}
	end := len(out)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return out[offset:end]
}
