package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/victorivanov/mship/internal/models"
)

type accountRepo struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(pool *pgxpool.Pool) AccountRepository {
	return &accountRepo{pool: pool}
}

func (r *accountRepo) Create(ctx context.Context, a *models.Account) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO accounts (id, name, email, created_at) VALUES ($1, $2, $3, $4)`,
		a.ID, a.Name, a.Email, a.CreatedAt,
	)
	return err
}

func (r *accountRepo) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	a := &models.Account{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, email, created_at FROM accounts WHERE id = $1`, id,
	).Scan(&a.ID, &a.Name, &a.Email, &a.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return a, err
}

func (r *accountRepo) GetByIDs(ctx context.Context, ids []int64) (map[int64]*models.Account, error) {
	out := make(map[int64]*models.Account, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, email, created_at FROM accounts WHERE id = ANY($1)`, ids,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		a := &models.Account{}
		if err := rows.Scan(&a.ID, &a.Name, &a.Email, &a.CreatedAt); err != nil {
			return nil, err
		}
		out[a.ID] = a
	}
	return out, rows.Err()
}

func (r *accountRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	return err
}
