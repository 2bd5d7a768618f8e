package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/victorivanov/mship/internal/models"
)

type noteRepo struct {
	pool *pgxpool.Pool
}

func NewNoteRepository(pool *pgxpool.Pool) NoteRepository {
	return &noteRepo{pool: pool}
}

// execer is satisfied by both *pgxpool.Pool and pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertNote(ctx context.Context, db execer, note *models.Note) error {
	_, err := db.Exec(ctx,
		`INSERT INTO notes (id, account_id, ban_id, writer_id, content, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		note.ID, note.AccountID, note.BanID, note.WriterID, note.Content, note.CreatedAt,
	)
	return err
}

func (r *noteRepo) Create(ctx context.Context, note *models.Note) error {
	return insertNote(ctx, r.pool, note)
}

func (r *noteRepo) GetByBanIDs(ctx context.Context, banIDs []int64) (map[int64][]models.Note, error) {
	out := make(map[int64][]models.Note, len(banIDs))
	for _, id := range banIDs {
		out[id] = []models.Note{}
	}
	if len(banIDs) == 0 {
		return out, nil
	}

	// Snowflake ids grow with insertion, so ordering by id preserves it.
	rows, err := r.pool.Query(ctx,
		`SELECT id, account_id, ban_id, writer_id, content, created_at
		 FROM notes WHERE ban_id = ANY($1)
		 ORDER BY id`, banIDs,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var n models.Note
		if err := rows.Scan(&n.ID, &n.AccountID, &n.BanID, &n.WriterID, &n.Content, &n.CreatedAt); err != nil {
			return nil, err
		}
		out[*n.BanID] = append(out[*n.BanID], n)
	}
	return out, rows.Err()
}

func (r *noteRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM notes WHERE id = $1`, id)
	return err
}
