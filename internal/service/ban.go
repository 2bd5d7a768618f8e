package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/victorivanov/mship/internal/database"
	"github.com/victorivanov/mship/internal/gateway"
	"github.com/victorivanov/mship/internal/metrics"
	"github.com/victorivanov/mship/internal/models"
	"github.com/victorivanov/mship/internal/policy"
	"github.com/victorivanov/mship/internal/presenter"
	"github.com/victorivanov/mship/internal/snowflake"
)

// MaxNoteLength is the longest note, in characters, an admin may attach.
const MaxNoteLength = 2000

// BanService loads bans for the account details page and carries out the
// actions a ban panel offers.
type BanService struct {
	bans      database.BanRepository
	notes     database.NoteRepository
	accounts  database.AccountRepository
	perms     *PermissionLoader
	presenter *presenter.Presenter
	snowflake *snowflake.Generator
	gateway   gateway.Dispatcher
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewBanService creates a BanService. metrics may be nil.
func NewBanService(
	bans database.BanRepository,
	notes database.NoteRepository,
	accounts database.AccountRepository,
	perms *PermissionLoader,
	p *presenter.Presenter,
	sf *snowflake.Generator,
	gw gateway.Dispatcher,
	m *metrics.Metrics,
) *BanService {
	return &BanService{
		bans:      bans,
		notes:     notes,
		accounts:  accounts,
		perms:     perms,
		presenter: p,
		snowflake: sf,
		gateway:   gw,
		metrics:   m,
		now:       time.Now,
	}
}

// GetBanView renders a single ban panel for viewerID.
func (s *BanService) GetBanView(ctx context.Context, viewerID, banID int64, hint presenter.TabHint) (*presenter.BanView, error) {
	viewer, err := s.viewer(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	ban, err := s.getBan(ctx, banID)
	if err != nil {
		return nil, err
	}
	if !viewer.CanViewBans(ban.AccountID) {
		return nil, Forbidden("MISSING_PERMISSIONS", "you do not have permission to view this account's bans")
	}

	if err := s.hydrate(ctx, []*models.Ban{ban}); err != nil {
		return nil, err
	}
	return s.present(ban, viewer, hint, s.now())
}

// ListAccountBans renders every ban of an account, newest first. All panels
// share one render instant.
func (s *BanService) ListAccountBans(ctx context.Context, viewerID, accountID int64, hint presenter.TabHint) ([]*presenter.BanView, error) {
	viewer, err := s.viewer(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	if !viewer.CanViewBans(accountID) {
		return nil, Forbidden("MISSING_PERMISSIONS", "you do not have permission to view this account's bans")
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}
	if account == nil {
		return nil, NotFound("UNKNOWN_ACCOUNT", "account not found")
	}

	stored, err := s.bans.GetByAccountID(ctx, accountID)
	if err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}
	bans := make([]*models.Ban, len(stored))
	for i := range stored {
		bans[i] = &stored[i]
	}
	if err := s.hydrate(ctx, bans); err != nil {
		return nil, err
	}

	now := s.now()
	views := make([]*presenter.BanView, 0, len(bans))
	for _, ban := range bans {
		v, err := s.present(ban, viewer, hint, now)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

// RepealBan lifts a local, unrepealed ban. A non-empty note is attached to
// the ban as the repeal reason.
func (s *BanService) RepealBan(ctx context.Context, viewerID, banID int64, note string) (view *presenter.BanView, err error) {
	defer func() { s.observeAction(policy.ActionRepeal, err) }()

	viewer, err := s.viewer(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	ban, err := s.getBan(ctx, banID)
	if err != nil {
		return nil, err
	}
	if !viewer.CanRepeal(ban.ID) {
		return nil, Forbidden("MISSING_PERMISSIONS", "you do not have permission to repeal this ban")
	}
	if !ban.IsLocal() {
		return nil, Conflict("BAN_NOT_LOCAL", "network bans cannot be changed here")
	}
	if ban.IsRepealed() {
		return nil, Conflict("BAN_ALREADY_REPEALED", "ban has already been repealed")
	}
	note, err = optionalNote(note)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var repealNote *models.Note
	if note != "" {
		repealNote = s.newNote(ban, viewerID, note, now)
	}
	ok, err := s.bans.Repeal(ctx, ban.ID, now, repealNote)
	if err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}
	if !ok {
		return nil, Conflict("BAN_ALREADY_REPEALED", "ban has already been repealed")
	}
	ban.RepealedAt = &now

	event := gateway.BanEventData{BanID: ban.ID, AccountID: ban.AccountID, ActorID: viewerID, RepealedAt: &now}
	if repealNote != nil {
		event.Note = s.withWriter(ctx, repealNote)
	}
	s.gateway.DispatchToAccount(ban.AccountID, gateway.EventBanRepeal, event)

	return s.reload(ctx, ban.ID, viewer)
}

// ModifyBan moves the finish of an active local ban. A nil finish makes the
// ban open-ended; the stored amount and unit follow the new period.
func (s *BanService) ModifyBan(ctx context.Context, viewerID, banID int64, finish *time.Time, note string) (view *presenter.BanView, err error) {
	defer func() { s.observeAction(policy.ActionModify, err) }()

	viewer, err := s.viewer(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	ban, err := s.getBan(ctx, banID)
	if err != nil {
		return nil, err
	}
	if !viewer.CanModify(ban.ID) {
		return nil, Forbidden("MISSING_PERMISSIONS", "you do not have permission to modify this ban")
	}
	if !ban.IsLocal() {
		return nil, Conflict("BAN_NOT_LOCAL", "network bans cannot be changed here")
	}

	now := s.now()
	if !ban.IsActive(now) {
		return nil, Conflict("BAN_NOT_ACTIVE", "only active bans can be modified")
	}
	if finish != nil && finish.Before(ban.PeriodStart) {
		return nil, BadRequest("INVALID_PERIOD", "period finish must not precede period start")
	}
	note, err = optionalNote(note)
	if err != nil {
		return nil, err
	}

	var modifyNote *models.Note
	if note != "" {
		modifyNote = s.newNote(ban, viewerID, note, now)
	}
	amount, unit := models.PeriodBetween(ban.PeriodStart, finish)
	ok, err := s.bans.UpdatePeriod(ctx, ban.ID, amount, unit, finish, now, modifyNote)
	if err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}
	if !ok {
		// Repealed between the load and the update.
		return nil, Conflict("BAN_NOT_ACTIVE", "only active bans can be modified")
	}

	event := gateway.BanEventData{BanID: ban.ID, AccountID: ban.AccountID, ActorID: viewerID, PeriodFinish: finish}
	if modifyNote != nil {
		event.Note = s.withWriter(ctx, modifyNote)
	}
	s.gateway.DispatchToAccount(ban.AccountID, gateway.EventBanUpdate, event)

	return s.reload(ctx, ban.ID, viewer)
}

// AttachNote adds a note to a local, unrepealed ban.
func (s *BanService) AttachNote(ctx context.Context, viewerID, banID int64, content string) (note *models.Note, err error) {
	defer func() { s.observeAction(policy.ActionNoteCreate, err) }()

	viewer, err := s.viewer(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	ban, err := s.getBan(ctx, banID)
	if err != nil {
		return nil, err
	}
	if !viewer.CanCreateNote(ban.AccountID) {
		return nil, Forbidden("MISSING_PERMISSIONS", "you do not have permission to add notes to this account")
	}
	if !ban.IsLocal() {
		return nil, Conflict("BAN_NOT_LOCAL", "network bans cannot be changed here")
	}
	if ban.IsRepealed() {
		return nil, Conflict("BAN_REPEALED", "notes cannot be attached to a repealed ban")
	}

	content, err = optionalNote(content)
	if err != nil {
		return nil, err
	}
	if content == "" {
		return nil, BadRequest("INVALID_NOTE", "note must not be empty")
	}

	note, err = s.createNote(ctx, ban, viewerID, content, s.now())
	if err != nil {
		return nil, err
	}
	s.gateway.DispatchToAccount(ban.AccountID, gateway.EventBanNoteAdd, gateway.BanEventData{
		BanID: ban.ID, AccountID: ban.AccountID, ActorID: viewerID, Note: note,
	})
	return note, nil
}

func (s *BanService) viewer(ctx context.Context, viewerID int64) (*policy.Viewer, error) {
	v, err := s.perms.Viewer(ctx, viewerID)
	if err != nil {
		slog.Error("failed to load permissions", "accountID", viewerID, "error", err)
		return nil, Internal("INTERNAL", "internal server error")
	}
	return v, nil
}

func (s *BanService) getBan(ctx context.Context, banID int64) (*models.Ban, error) {
	ban, err := s.bans.GetByID(ctx, banID)
	if err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}
	if ban == nil {
		return nil, NotFound("UNKNOWN_BAN", "ban not found")
	}
	return ban, nil
}

// reload renders a ban after an action for the viewer that took it.
func (s *BanService) reload(ctx context.Context, banID int64, viewer *policy.Viewer) (*presenter.BanView, error) {
	ban, err := s.getBan(ctx, banID)
	if err != nil {
		return nil, err
	}
	if err := s.hydrate(ctx, []*models.Ban{ban}); err != nil {
		return nil, err
	}
	return s.present(ban, viewer, presenter.TabHint{Tab: presenter.BansTab, TabID: ban.ID}, s.now())
}

// hydrate loads the banner and notes, with their writers, of every ban.
func (s *BanService) hydrate(ctx context.Context, bans []*models.Ban) error {
	if len(bans) == 0 {
		return nil
	}

	banIDs := make([]int64, len(bans))
	for i, b := range bans {
		banIDs[i] = b.ID
	}
	notes, err := s.notes.GetByBanIDs(ctx, banIDs)
	if err != nil {
		return Internal("INTERNAL", "internal server error")
	}

	seen := make(map[int64]bool)
	var accountIDs []int64
	want := func(id int64) {
		if !seen[id] {
			seen[id] = true
			accountIDs = append(accountIDs, id)
		}
	}
	for _, b := range bans {
		want(b.BannedBy)
		for _, n := range notes[b.ID] {
			want(n.WriterID)
		}
	}

	accounts, err := s.accounts.GetByIDs(ctx, accountIDs)
	if err != nil {
		return Internal("INTERNAL", "internal server error")
	}

	for _, b := range bans {
		b.Banner = accounts[b.BannedBy]
		b.Notes = notes[b.ID]
		if b.Notes == nil {
			b.Notes = []models.Note{}
		}
		for i := range b.Notes {
			b.Notes[i].Writer = accounts[b.Notes[i].WriterID]
		}
	}
	return nil
}

func (s *BanService) present(ban *models.Ban, viewer *policy.Viewer, hint presenter.TabHint, now time.Time) (*presenter.BanView, error) {
	started := time.Now()
	view, err := s.presenter.PresentAt(ban, viewer, hint, now)
	if err != nil {
		slog.Error("failed to present ban", "banID", ban.ID, "error", err)
		if s.metrics != nil {
			s.metrics.ObservePresentError(presentErrorReason(err))
		}
		return nil, InvalidBanState("ban record could not be displayed")
	}

	if s.metrics != nil {
		offered := make([]string, len(view.Actions))
		for i, a := range view.Actions {
			offered[i] = string(a.Kind)
		}
		s.metrics.ObservePresented(time.Since(started), offered)
	}
	return view, nil
}

// newNote builds a note on ban without storing it.
func (s *BanService) newNote(ban *models.Ban, writerID int64, content string, at time.Time) *models.Note {
	banID := ban.ID
	return &models.Note{
		ID:        s.snowflake.Generate(),
		AccountID: ban.AccountID,
		BanID:     &banID,
		WriterID:  writerID,
		Content:   content,
		CreatedAt: at,
	}
}

// withWriter fills note.Writer; a failed lookup leaves it unset.
func (s *BanService) withWriter(ctx context.Context, note *models.Note) *models.Note {
	if writer, err := s.accounts.GetByID(ctx, note.WriterID); err == nil {
		note.Writer = writer
	}
	return note
}

func (s *BanService) createNote(ctx context.Context, ban *models.Ban, writerID int64, content string, at time.Time) (*models.Note, error) {
	note := s.newNote(ban, writerID, content, at)
	if err := s.notes.Create(ctx, note); err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}
	return s.withWriter(ctx, note), nil
}

func (s *BanService) observeAction(action policy.Action, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveAction(string(action), actionOutcome(err))
}

// optionalNote trims content and enforces MaxNoteLength. Empty is allowed.
func optionalNote(content string) (string, error) {
	content = strings.TrimSpace(content)
	if utf8.RuneCountInString(content) > MaxNoteLength {
		return "", BadRequest("INVALID_NOTE", "note must be at most 2000 characters")
	}
	return content, nil
}

func actionOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrBadRequest):
		return "bad_request"
	default:
		return "error"
	}
}

func presentErrorReason(err error) string {
	switch {
	case errors.Is(err, presenter.ErrInvalidBanState):
		return "invalid_ban_state"
	case errors.Is(err, presenter.ErrMissingPermissionContext):
		return "missing_permission_context"
	default:
		return "unknown"
	}
}
