package workflows

import "context"

// Repo stores workflow records. Implementations return errors.ErrNotFound for unknown ids.
type Repo interface {
	Insert(ctx context.Context, w *Workflow) error
	// Update replaces the record only while it is still at expectedVersion,
	// returning errors.ErrConflict otherwise
	Update(ctx context.Context, w *Workflow, expectedVersion int) error
	Get(ctx context.Context, id string) (*Workflow, error)
	Delete(ctx context.Context, id string) error
	// ListByUser returns the user's workflows, most recently updated first
	ListByUser(ctx context.Context, userID string) ([]*Workflow, error)
	// ListPublic returns public workflows of every user, most recently updated first
	ListPublic(ctx context.Context, offset, limit int) ([]*Workflow, error)
	IncrementForkCount(ctx context.Context, id string) error
	IncrementStarCount(ctx context.Context, id string) (int, error)
}
