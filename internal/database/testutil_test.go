package database

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/victorivanov/mship/internal/models"
)

// testPool connects to DATABASE_URL, which must point at a migrated schema.
// Tests are skipped when it is unset.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}
	pool, err := NewPostgresPool(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connecting to test database: %v", err)
	}
	t.Cleanup(func() { pool.Close() })
	return pool
}

// Starts well above zero to stay clear of seeded data.
var testIDCounter int64 = 100000

func nextID() int64 {
	return atomic.AddInt64(&testIDCounter, 1)
}

func createTestAccount(t *testing.T, repo AccountRepository) *models.Account {
	t.Helper()
	ctx := context.Background()
	id := nextID()
	a := &models.Account{
		ID:        id,
		Name:      fmt.Sprintf("Member %d", id),
		Email:     fmt.Sprintf("member%d@example.test", id),
		CreatedAt: time.Now().Truncate(time.Microsecond),
	}
	if err := repo.Create(ctx, a); err != nil {
		t.Fatalf("createTestAccount: %v", err)
	}
	t.Cleanup(func() { _ = repo.Delete(ctx, a.ID) })
	return a
}

func createTestBan(t *testing.T, repo BanRepository, accountID, bannerID int64) *models.Ban {
	t.Helper()
	ctx := context.Background()
	now := time.Now().Truncate(time.Microsecond)
	finish := now.Add(30 * 24 * time.Hour)
	ban := &models.Ban{
		ID:           nextID(),
		AccountID:    accountID,
		BannedBy:     bannerID,
		Type:         models.BanTypeLocal,
		Reason:       "Abusive behaviour",
		PeriodAmount: 30,
		PeriodUnit:   models.PeriodDays,
		PeriodStart:  now,
		PeriodFinish: &finish,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repo.Create(ctx, ban); err != nil {
		t.Fatalf("createTestBan: %v", err)
	}
	t.Cleanup(func() { _ = repo.Delete(ctx, ban.ID) })
	return ban
}
