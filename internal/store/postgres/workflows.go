package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"

	"github.com/iamcapote/semantic-flow-sub001/internal/errors"
	"github.com/iamcapote/semantic-flow-sub001/workflows"
)

var _ workflows.Repo = (*WorkflowRepo)(nil)

type WorkflowRepo struct {
	db DB
}

func NewWorkflowRepo(db DB) *WorkflowRepo {
	return &WorkflowRepo{db: db}
}

const selectWorkflowColumns = `SELECT id, user_id, title, description, content, version, is_public,
	fork_count, star_count, forked_from, tags, created_at, updated_at FROM workflows`

const insertWorkflowSQL = `INSERT INTO workflows (id, user_id, title, description, content, version, is_public,
	fork_count, star_count, forked_from, tags, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

const updateWorkflowSQL = `UPDATE workflows SET title = $2, description = $3, content = $4, version = $5,
	is_public = $6, tags = $7, updated_at = $8 WHERE id = $1 AND version = $9`

func (r *WorkflowRepo) Insert(ctx context.Context, w *workflows.Workflow) error {
	content, err := json.Marshal(w.Content)
	if err != nil {
		return errors.Wrapf(err, "encode workflow content")
	}
	_, err = r.db.Exec(ctx, insertWorkflowSQL,
		w.ID,
		w.UserID,
		w.Title,
		w.Description,
		content,
		w.Version,
		w.IsPublic,
		w.ForkCount,
		w.StarCount,
		w.ForkedFrom,
		nonNil(w.Tags),
		w.CreatedAt,
		w.UpdatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "insert workflow %s", w.ID)
	}
	return nil
}

func (r *WorkflowRepo) Update(ctx context.Context, w *workflows.Workflow, expectedVersion int) error {
	content, err := json.Marshal(w.Content)
	if err != nil {
		return errors.Wrapf(err, "encode workflow content")
	}
	tag, err := r.db.Exec(ctx, updateWorkflowSQL,
		w.ID,
		w.Title,
		w.Description,
		content,
		w.Version,
		w.IsPublic,
		nonNil(w.Tags),
		w.UpdatedAt,
		expectedVersion,
	)
	if err != nil {
		return errors.Wrapf(err, "update workflow %s", w.ID)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Nothing matched: either the row is gone or another update won
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM workflows WHERE id = $1)`, w.ID).Scan(&exists); err != nil {
		return errors.Wrapf(err, "check workflow %s", w.ID)
	}
	if !exists {
		return errors.ErrNotFound
	}
	return errors.Wrapf(errors.ErrConflict, "workflow %s was modified concurrently", w.ID)
}

func (r *WorkflowRepo) Get(ctx context.Context, id string) (*workflows.Workflow, error) {
	w, err := scanWorkflow(r.db.QueryRow(ctx, selectWorkflowColumns+` WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return w, nil
}

func (r *WorkflowRepo) Delete(ctx context.Context, id string) error {
	return mustAffect(r.db.Exec(ctx, `DELETE FROM workflows WHERE id = $1`, id))
}

func (r *WorkflowRepo) ListByUser(ctx context.Context, userID string) ([]*workflows.Workflow, error) {
	rows, err := r.db.Query(ctx, selectWorkflowColumns+` WHERE user_id = $1 ORDER BY updated_at DESC, id`, userID)
	if err != nil {
		return nil, errors.Wrapf(err, "list workflows")
	}
	return collectWorkflows(rows)
}

func (r *WorkflowRepo) ListPublic(ctx context.Context, offset, limit int) ([]*workflows.Workflow, error) {
	rows, err := r.db.Query(ctx, selectWorkflowColumns+` WHERE is_public ORDER BY updated_at DESC, id OFFSET $1 LIMIT $2`, offset, limit)
	if err != nil {
		return nil, errors.Wrapf(err, "list public workflows")
	}
	return collectWorkflows(rows)
}

func (r *WorkflowRepo) IncrementForkCount(ctx context.Context, id string) error {
	return mustAffect(r.db.Exec(ctx, `UPDATE workflows SET fork_count = fork_count + 1 WHERE id = $1`, id))
}

func (r *WorkflowRepo) IncrementStarCount(ctx context.Context, id string) (int, error) {
	var stars int
	err := r.db.QueryRow(ctx, `UPDATE workflows SET star_count = star_count + 1 WHERE id = $1 RETURNING star_count`, id).Scan(&stars)
	if err != nil {
		return 0, notFound(err)
	}
	return stars, nil
}

func collectWorkflows(rows pgx.Rows) ([]*workflows.Workflow, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*workflows.Workflow, error) {
		return scanWorkflow(row)
	})
}

func scanWorkflow(row pgx.Row) (*workflows.Workflow, error) {
	var (
		w       workflows.Workflow
		content []byte
	)
	if err := row.Scan(
		&w.ID,
		&w.UserID,
		&w.Title,
		&w.Description,
		&content,
		&w.Version,
		&w.IsPublic,
		&w.ForkCount,
		&w.StarCount,
		&w.ForkedFrom,
		&w.Tags,
		&w.CreatedAt,
		&w.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(content, &w.Content); err != nil {
		return nil, errors.Wrapf(err, "decode workflow %s content", w.ID)
	}
	return &w, nil
}
