// Package policy exposes a typed authorization surface over scoped
// permission paths, decided by a pluggable Engine.
package policy

import "github.com/victorivanov/mship/internal/permissions"

// Action names a scoped operation on a ban or account.
type Action string

const (
	ActionRepeal     Action = "repeal"
	ActionModify     Action = "modify"
	ActionNoteCreate Action = "note_create"
	ActionViewBans   Action = "view_bans"
)

// Capabilities is what a viewer may do to a specific target.
type Capabilities interface {
	CanRepeal(banID int64) bool
	CanModify(banID int64) bool
	CanCreateNote(accountID int64) bool
}

// Request is a single authorization question put to an Engine.
type Request struct {
	ViewerID int64
	Action   Action
	TargetID int64
	// Path is the scoped permission path for Action on TargetID.
	Path string
	// Granted reports whether the viewer's grants match Path.
	Granted bool
}

// Engine decides requests.
type Engine interface {
	Allow(req Request) bool
}

// GrantEngine allows exactly what the viewer's grants match.
type GrantEngine struct{}

func (GrantEngine) Allow(req Request) bool { return req.Granted }

// Viewer binds an account and its grants to an Engine.
type Viewer struct {
	ID     int64
	grants permissions.Set
	engine Engine
}

// NewViewer returns a Viewer. A nil engine falls back to GrantEngine.
func NewViewer(id int64, grants permissions.Set, engine Engine) *Viewer {
	if engine == nil {
		engine = GrantEngine{}
	}
	return &Viewer{ID: id, grants: grants, engine: engine}
}

// Grants returns the viewer's resolved permission set.
func (v *Viewer) Grants() permissions.Set { return v.grants }

func (v *Viewer) allow(action Action, target int64, path string) bool {
	return v.engine.Allow(Request{
		ViewerID: v.ID,
		Action:   action,
		TargetID: target,
		Path:     path,
		Granted:  v.grants.Has(path),
	})
}

func (v *Viewer) CanRepeal(banID int64) bool {
	return v.allow(ActionRepeal, banID, permissions.BanRepeal(banID))
}

func (v *Viewer) CanModify(banID int64) bool {
	return v.allow(ActionModify, banID, permissions.BanModify(banID))
}

func (v *Viewer) CanCreateNote(accountID int64) bool {
	return v.allow(ActionNoteCreate, accountID, permissions.AccountNoteCreate(accountID))
}

// CanViewBans reports whether the viewer may see an account's bans.
func (v *Viewer) CanViewBans(accountID int64) bool {
	return v.allow(ActionViewBans, accountID, permissions.AccountBansView(accountID))
}
