package database

import (
	"context"
	"time"

	"github.com/victorivanov/mship/internal/models"
)

type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	GetByID(ctx context.Context, id int64) (*models.Account, error)
	GetByIDs(ctx context.Context, ids []int64) (map[int64]*models.Account, error)
	Delete(ctx context.Context, id int64) error
}

type RoleRepository interface {
	Create(ctx context.Context, role *models.Role) error
	GetByAccount(ctx context.Context, accountID int64) ([]models.Role, error)
	Assign(ctx context.Context, accountID, roleID int64) error
	Unassign(ctx context.Context, accountID, roleID int64) error
	Delete(ctx context.Context, id int64) error
}

type BanRepository interface {
	Create(ctx context.Context, ban *models.Ban) error
	GetByID(ctx context.Context, id int64) (*models.Ban, error)
	GetByAccountID(ctx context.Context, accountID int64) ([]models.Ban, error)
	// Repeal marks an unrepealed ban as repealed and stores note, when
	// non-nil, in the same transaction. It reports false, writing nothing,
	// when the ban does not exist or was already repealed.
	Repeal(ctx context.Context, id int64, at time.Time, note *models.Note) (bool, error)
	// UpdatePeriod rewrites the period of an unrepealed ban and stores note
	// alongside it. It reports false, writing nothing, when the ban does not
	// exist or has been repealed.
	UpdatePeriod(ctx context.Context, id int64, amount int, unit models.PeriodUnit, finish *time.Time, at time.Time, note *models.Note) (bool, error)
	Delete(ctx context.Context, id int64) error
}

type NoteRepository interface {
	Create(ctx context.Context, note *models.Note) error
	// GetByBanIDs returns notes grouped by ban, in insertion order. Every
	// requested ban has an entry, empty when it has no notes.
	GetByBanIDs(ctx context.Context, banIDs []int64) (map[int64][]models.Note, error)
	Delete(ctx context.Context, id int64) error
}
