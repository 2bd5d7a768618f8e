package api

import (
	"context"
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/victorivanov/mship/internal/auth"
	"github.com/victorivanov/mship/internal/models"
	redisclient "github.com/victorivanov/mship/internal/redis"
	"github.com/victorivanov/mship/internal/snowflake"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

func newTestContext(method, path string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}

func setAuthUser(c echo.Context, accountID int64) {
	auth.SetAccountID(c, accountID)
}

func newTestRedis(t *testing.T) *redisclient.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb, err := redisclient.NewClient("redis://" + mr.Addr())
	if err != nil {
		t.Fatalf("creating test redis client: %v", err)
	}
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func testSnowflake() *snowflake.Generator {
	sf, _ := snowflake.NewGenerator(1)
	return sf
}

func ptrTime(t time.Time) *time.Time { return &t }

// ---------------------------------------------------------------------------
// Mock gateway dispatcher
// ---------------------------------------------------------------------------

type dispatchedEvent struct {
	AccountID int64
	Event     string
	Data      any
}

type mockGateway struct {
	mu     sync.Mutex
	events []dispatchedEvent
}

func (m *mockGateway) DispatchToAccount(accountID int64, event string, data interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, dispatchedEvent{AccountID: accountID, Event: event, Data: data})
}

func (m *mockGateway) last() (dispatchedEvent, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.events) == 0 {
		return dispatchedEvent{}, false
	}
	return m.events[len(m.events)-1], true
}

// ---------------------------------------------------------------------------
// Mock repositories
// ---------------------------------------------------------------------------

// mockAccountRepo implements database.AccountRepository over a fixed map.
type mockAccountRepo struct {
	accounts map[int64]*models.Account
}

func (m *mockAccountRepo) Create(context.Context, *models.Account) error { return nil }
func (m *mockAccountRepo) Delete(context.Context, int64) error           { return nil }

func (m *mockAccountRepo) GetByID(_ context.Context, id int64) (*models.Account, error) {
	return m.accounts[id], nil
}

func (m *mockAccountRepo) GetByIDs(_ context.Context, ids []int64) (map[int64]*models.Account, error) {
	out := make(map[int64]*models.Account)
	for _, id := range ids {
		if a, ok := m.accounts[id]; ok {
			out[id] = a
		}
	}
	return out, nil
}

// mockRoleRepo implements database.RoleRepository.
type mockRoleRepo struct {
	GetByAccountFn func(ctx context.Context, accountID int64) ([]models.Role, error)
}

func (m *mockRoleRepo) Create(context.Context, *models.Role) error   { return nil }
func (m *mockRoleRepo) Assign(context.Context, int64, int64) error   { return nil }
func (m *mockRoleRepo) Unassign(context.Context, int64, int64) error { return nil }
func (m *mockRoleRepo) Delete(context.Context, int64) error          { return nil }
func (m *mockRoleRepo) GetByAccount(ctx context.Context, accountID int64) ([]models.Role, error) {
	if m.GetByAccountFn != nil {
		return m.GetByAccountFn(ctx, accountID)
	}
	return nil, nil
}

// mockBanRepo implements database.BanRepository.
type mockBanRepo struct {
	GetByIDFn        func(ctx context.Context, id int64) (*models.Ban, error)
	GetByAccountIDFn func(ctx context.Context, accountID int64) ([]models.Ban, error)
	RepealFn         func(ctx context.Context, id int64, at time.Time, note *models.Note) (bool, error)
	UpdatePeriodFn   func(ctx context.Context, id int64, amount int, unit models.PeriodUnit, finish *time.Time, at time.Time, note *models.Note) (bool, error)
}

func (m *mockBanRepo) Create(context.Context, *models.Ban) error { return nil }
func (m *mockBanRepo) Delete(context.Context, int64) error       { return nil }

func (m *mockBanRepo) GetByID(ctx context.Context, id int64) (*models.Ban, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockBanRepo) GetByAccountID(ctx context.Context, accountID int64) ([]models.Ban, error) {
	if m.GetByAccountIDFn != nil {
		return m.GetByAccountIDFn(ctx, accountID)
	}
	return nil, nil
}

func (m *mockBanRepo) Repeal(ctx context.Context, id int64, at time.Time, note *models.Note) (bool, error) {
	if m.RepealFn != nil {
		return m.RepealFn(ctx, id, at, note)
	}
	return true, nil
}

func (m *mockBanRepo) UpdatePeriod(ctx context.Context, id int64, amount int, unit models.PeriodUnit, finish *time.Time, at time.Time, note *models.Note) (bool, error) {
	if m.UpdatePeriodFn != nil {
		return m.UpdatePeriodFn(ctx, id, amount, unit, finish, at, note)
	}
	return true, nil
}

// mockNoteRepo implements database.NoteRepository, keeping created notes in
// memory.
type mockNoteRepo struct {
	mu    sync.Mutex
	notes []models.Note
}

func (m *mockNoteRepo) Create(_ context.Context, note *models.Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notes = append(m.notes, *note)
	return nil
}

func (m *mockNoteRepo) GetByBanIDs(_ context.Context, banIDs []int64) (map[int64][]models.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int64][]models.Note, len(banIDs))
	for _, id := range banIDs {
		out[id] = []models.Note{}
	}
	for _, n := range m.notes {
		if n.BanID != nil {
			if _, ok := out[*n.BanID]; ok {
				out[*n.BanID] = append(out[*n.BanID], n)
			}
		}
	}
	return out, nil
}

func (m *mockNoteRepo) Delete(context.Context, int64) error { return nil }
