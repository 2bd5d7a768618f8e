package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/victorivanov/mship/internal/models"
)

const banColumns = `id, account_id, banned_by, type, reason, reason_extra,
	period_amount, period_unit, period_start, period_finish,
	repealed_at, created_at, updated_at`

type banRepo struct {
	pool *pgxpool.Pool
}

func NewBanRepository(pool *pgxpool.Pool) BanRepository {
	return &banRepo{pool: pool}
}

func scanBan(row pgx.Row, ban *models.Ban) error {
	return row.Scan(
		&ban.ID, &ban.AccountID, &ban.BannedBy, &ban.Type, &ban.Reason, &ban.ReasonExtra,
		&ban.PeriodAmount, &ban.PeriodUnit, &ban.PeriodStart, &ban.PeriodFinish,
		&ban.RepealedAt, &ban.CreatedAt, &ban.UpdatedAt,
	)
}

func (r *banRepo) Create(ctx context.Context, ban *models.Ban) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO bans (`+banColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		ban.ID, ban.AccountID, ban.BannedBy, ban.Type, ban.Reason, ban.ReasonExtra,
		ban.PeriodAmount, ban.PeriodUnit, ban.PeriodStart, ban.PeriodFinish,
		ban.RepealedAt, ban.CreatedAt, ban.UpdatedAt,
	)
	return err
}

func (r *banRepo) GetByID(ctx context.Context, id int64) (*models.Ban, error) {
	ban := &models.Ban{}
	err := scanBan(r.pool.QueryRow(ctx,
		`SELECT `+banColumns+` FROM bans WHERE id = $1`, id,
	), ban)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return ban, err
}

func (r *banRepo) GetByAccountID(ctx context.Context, accountID int64) ([]models.Ban, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+banColumns+` FROM bans WHERE account_id = $1
		 ORDER BY created_at DESC, id DESC`, accountID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bans []models.Ban
	for rows.Next() {
		var ban models.Ban
		if err := scanBan(rows, &ban); err != nil {
			return nil, err
		}
		bans = append(bans, ban)
	}
	return bans, rows.Err()
}

func (r *banRepo) Repeal(ctx context.Context, id int64, at time.Time, note *models.Note) (bool, error) {
	return r.updateWithNote(ctx, note,
		`UPDATE bans SET repealed_at = $2, updated_at = $2
		 WHERE id = $1 AND repealed_at IS NULL`, id, at,
	)
}

func (r *banRepo) UpdatePeriod(ctx context.Context, id int64, amount int, unit models.PeriodUnit, finish *time.Time, at time.Time, note *models.Note) (bool, error) {
	return r.updateWithNote(ctx, note,
		`UPDATE bans SET period_amount = $2, period_unit = $3, period_finish = $4, updated_at = $5
		 WHERE id = $1 AND repealed_at IS NULL`, id, amount, unit, finish, at,
	)
}

// updateWithNote runs a single-row ban update and the optional note insert
// in one transaction. Nothing is committed unless exactly one row matched.
func (r *banRepo) updateWithNote(ctx context.Context, note *models.Note, sql string, args ...any) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, sql, args...)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() != 1 {
		return false, nil
	}

	if note != nil {
		if err := insertNote(ctx, tx, note); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (r *banRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM bans WHERE id = $1`, id)
	return err
}
