package service

import (
	"context"
	"sync"
	"time"

	"github.com/victorivanov/mship/internal/models"
	"github.com/victorivanov/mship/internal/presenter"
	"github.com/victorivanov/mship/internal/snowflake"
)

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

// ---------------------------------------------------------------------------
// Mock repositories
// ---------------------------------------------------------------------------

// mockAccountRepo implements database.AccountRepository.
type mockAccountRepo struct {
	CreateFn   func(ctx context.Context, a *models.Account) error
	GetByIDFn  func(ctx context.Context, id int64) (*models.Account, error)
	GetByIDsFn func(ctx context.Context, ids []int64) (map[int64]*models.Account, error)
	DeleteFn   func(ctx context.Context, id int64) error
}

func (m *mockAccountRepo) Create(ctx context.Context, a *models.Account) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, a)
	}
	return nil
}

func (m *mockAccountRepo) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockAccountRepo) GetByIDs(ctx context.Context, ids []int64) (map[int64]*models.Account, error) {
	if m.GetByIDsFn != nil {
		return m.GetByIDsFn(ctx, ids)
	}
	return map[int64]*models.Account{}, nil
}

func (m *mockAccountRepo) Delete(ctx context.Context, id int64) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	return nil
}

// mockRoleRepo implements database.RoleRepository.
type mockRoleRepo struct {
	GetByAccountFn func(ctx context.Context, accountID int64) ([]models.Role, error)
	AssignFn       func(ctx context.Context, accountID, roleID int64) error
	UnassignFn     func(ctx context.Context, accountID, roleID int64) error
}

func (m *mockRoleRepo) Create(context.Context, *models.Role) error { return nil }

func (m *mockRoleRepo) Assign(ctx context.Context, accountID, roleID int64) error {
	if m.AssignFn != nil {
		return m.AssignFn(ctx, accountID, roleID)
	}
	return nil
}

func (m *mockRoleRepo) Unassign(ctx context.Context, accountID, roleID int64) error {
	if m.UnassignFn != nil {
		return m.UnassignFn(ctx, accountID, roleID)
	}
	return nil
}

func (m *mockRoleRepo) Delete(context.Context, int64) error { return nil }
func (m *mockRoleRepo) GetByAccount(ctx context.Context, accountID int64) ([]models.Role, error) {
	if m.GetByAccountFn != nil {
		return m.GetByAccountFn(ctx, accountID)
	}
	return nil, nil
}

// mockBanRepo implements database.BanRepository.
type mockBanRepo struct {
	CreateFn         func(ctx context.Context, ban *models.Ban) error
	GetByIDFn        func(ctx context.Context, id int64) (*models.Ban, error)
	GetByAccountIDFn func(ctx context.Context, accountID int64) ([]models.Ban, error)
	RepealFn         func(ctx context.Context, id int64, at time.Time, note *models.Note) (bool, error)
	UpdatePeriodFn   func(ctx context.Context, id int64, amount int, unit models.PeriodUnit, finish *time.Time, at time.Time, note *models.Note) (bool, error)
	DeleteFn         func(ctx context.Context, id int64) error
}

func (m *mockBanRepo) Create(ctx context.Context, ban *models.Ban) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, ban)
	}
	return nil
}

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

func (m *mockBanRepo) Delete(ctx context.Context, id int64) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	return nil
}

// mockNoteRepo implements database.NoteRepository.
type mockNoteRepo struct {
	CreateFn      func(ctx context.Context, note *models.Note) error
	GetByBanIDsFn func(ctx context.Context, banIDs []int64) (map[int64][]models.Note, error)
	DeleteFn      func(ctx context.Context, id int64) error
}

func (m *mockNoteRepo) Create(ctx context.Context, note *models.Note) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, note)
	}
	return nil
}

func (m *mockNoteRepo) GetByBanIDs(ctx context.Context, banIDs []int64) (map[int64][]models.Note, error) {
	if m.GetByBanIDsFn != nil {
		return m.GetByBanIDsFn(ctx, banIDs)
	}
	out := make(map[int64][]models.Note, len(banIDs))
	for _, id := range banIDs {
		out[id] = []models.Note{}
	}
	return out, nil
}

func (m *mockNoteRepo) Delete(ctx context.Context, id int64) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	return nil
}

// mockPermissionCache implements PermissionCache.
type mockPermissionCache struct {
	mu     sync.Mutex
	grants map[int64][]string
	GetErr error
	SetErr error
	sets   int
}

func (m *mockPermissionCache) GetPermissions(_ context.Context, accountID int64) ([]string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, false, m.GetErr
	}
	g, ok := m.grants[accountID]
	return g, ok, nil
}

func (m *mockPermissionCache) SetPermissions(_ context.Context, accountID int64, grants []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	if m.SetErr != nil {
		return m.SetErr
	}
	if m.grants == nil {
		m.grants = make(map[int64][]string)
	}
	m.grants[accountID] = grants
	return nil
}

func (m *mockPermissionCache) InvalidatePermissions(_ context.Context, accountID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.grants, accountID)
	return nil
}

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

var testNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

const (
	adminID   int64 = 100
	subjectID int64 = 200
	bannerID  int64 = 300
	banID     int64 = 1000
)

func ptrTime(t time.Time) *time.Time { return &t }

func testSnowflake() *snowflake.Generator {
	sf, _ := snowflake.NewGenerator(1)
	return sf
}

func activeBan() *models.Ban {
	return &models.Ban{
		ID:           banID,
		AccountID:    subjectID,
		BannedBy:     bannerID,
		Type:         models.BanTypeLocal,
		Reason:       "Abusive behaviour",
		PeriodAmount: 30,
		PeriodUnit:   models.PeriodDays,
		PeriodStart:  testNow.Add(-24 * time.Hour),
		PeriodFinish: ptrTime(testNow.Add(29 * 24 * time.Hour)),
		CreatedAt:    testNow.Add(-24 * time.Hour),
		UpdatedAt:    testNow.Add(-24 * time.Hour),
	}
}

// rolesGranting returns a role repo giving adminID the listed grants.
func rolesGranting(grants ...string) *mockRoleRepo {
	return &mockRoleRepo{
		GetByAccountFn: func(_ context.Context, accountID int64) ([]models.Role, error) {
			if accountID != adminID {
				return nil, nil
			}
			return []models.Role{{ID: 1, Name: "ban-team", Permissions: grants}}, nil
		},
	}
}

// knownAccounts resolves the admin, subject and banner accounts.
func knownAccounts() *mockAccountRepo {
	all := map[int64]*models.Account{
		adminID:   {ID: adminID, Name: "Admin"},
		subjectID: {ID: subjectID, Name: "Subject"},
		bannerID:  {ID: bannerID, Name: "Banner"},
	}
	return &mockAccountRepo{
		GetByIDFn: func(_ context.Context, id int64) (*models.Account, error) {
			return all[id], nil
		},
		GetByIDsFn: func(_ context.Context, ids []int64) (map[int64]*models.Account, error) {
			out := make(map[int64]*models.Account)
			for _, id := range ids {
				if a, ok := all[id]; ok {
					out[id] = a
				}
			}
			return out, nil
		},
	}
}

// storedBan serves a copy of ban from GetByID, so that mutations made by the
// service do not leak between loads.
func storedBan(ban *models.Ban) *mockBanRepo {
	return &mockBanRepo{
		GetByIDFn: func(_ context.Context, id int64) (*models.Ban, error) {
			if id != ban.ID {
				return nil, nil
			}
			cp := *ban
			return &cp, nil
		},
		GetByAccountIDFn: func(_ context.Context, accountID int64) ([]models.Ban, error) {
			if accountID != ban.AccountID {
				return nil, nil
			}
			return []models.Ban{*ban}, nil
		},
	}
}

type testDeps struct {
	bans     *mockBanRepo
	notes    *mockNoteRepo
	accounts *mockAccountRepo
	roles    *mockRoleRepo
	gw       *mockGateway
}

func newTestBanService(d testDeps) *BanService {
	if d.notes == nil {
		d.notes = &mockNoteRepo{}
	}
	if d.accounts == nil {
		d.accounts = knownAccounts()
	}
	if d.roles == nil {
		d.roles = &mockRoleRepo{}
	}
	if d.gw == nil {
		d.gw = &mockGateway{}
	}
	perms := NewPermissionLoader(d.roles, nil, nil)
	p := presenter.New(presenter.WithClock(func() time.Time { return testNow }))
	svc := NewBanService(d.bans, d.notes, d.accounts, perms, p, testSnowflake(), d.gw, nil)
	svc.now = func() time.Time { return testNow }
	return svc
}
