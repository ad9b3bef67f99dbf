package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/iamcapote/semantic-flow-sub001/internal/errors"
	"github.com/iamcapote/semantic-flow-sub001/providers"
)

var _ providers.Repo = (*ProviderRepo)(nil)

type ProviderRepo struct {
	db DB
}

func NewProviderRepo(db DB) *ProviderRepo {
	return &ProviderRepo{db: db}
}

const selectProviderColumns = `SELECT id, user_id, name, kind, base_url, models, is_active, created_at, updated_at FROM providers`

func (r *ProviderRepo) Insert(ctx context.Context, p *providers.Provider) error {
	_, err := r.db.Exec(ctx, `INSERT INTO providers (id, user_id, name, kind, base_url, models, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID,
		p.UserID,
		p.Name,
		string(p.Kind),
		p.BaseURL,
		nonNil(p.Models),
		p.IsActive,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "insert provider %s", p.ID)
	}
	return nil
}

func (r *ProviderRepo) Update(ctx context.Context, p *providers.Provider) error {
	return mustAffect(r.db.Exec(ctx, `UPDATE providers SET name = $2, kind = $3, base_url = $4, models = $5,
	is_active = $6, updated_at = $7 WHERE id = $1`,
		p.ID,
		p.Name,
		string(p.Kind),
		p.BaseURL,
		nonNil(p.Models),
		p.IsActive,
		p.UpdatedAt,
	))
}

func (r *ProviderRepo) Get(ctx context.Context, id string) (*providers.Provider, error) {
	p, err := scanProvider(r.db.QueryRow(ctx, selectProviderColumns+` WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

func (r *ProviderRepo) Delete(ctx context.Context, id string) error {
	return mustAffect(r.db.Exec(ctx, `DELETE FROM providers WHERE id = $1`, id))
}

func (r *ProviderRepo) ListByUser(ctx context.Context, userID string) ([]*providers.Provider, error) {
	rows, err := r.db.Query(ctx, selectProviderColumns+` WHERE user_id = $1 ORDER BY name, id`, userID)
	if err != nil {
		return nil, errors.Wrapf(err, "list providers")
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*providers.Provider, error) {
		return scanProvider(row)
	})
}

func scanProvider(row pgx.Row) (*providers.Provider, error) {
	var (
		p    providers.Provider
		kind string
	)
	if err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.Name,
		&kind,
		&p.BaseURL,
		&p.Models,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	p.Kind = providers.Kind(kind)
	return &p, nil
}
