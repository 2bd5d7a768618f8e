// Package presenter turns a hydrated ban into the view model of a ban panel:
// display strings, newest-first notes and the actions the viewer may take.
package presenter

import (
	"fmt"
	"html/template"
	"slices"
	"strconv"
	"time"

	"github.com/victorivanov/mship/internal/models"
	"github.com/victorivanov/mship/internal/policy"
)

// DefaultAccountURL is the account details route used for banner and note
// author links.
const DefaultAccountURL = "/adm/mship/account/%d"

// Presenter is safe for concurrent use; it holds only configuration.
type Presenter struct {
	loc        *time.Location
	accountURL string
	clock      func() time.Time
}

type Option func(*Presenter)

// WithLocation sets the zone absolute timestamps are rendered in.
func WithLocation(loc *time.Location) Option {
	return func(p *Presenter) {
		if loc != nil {
			p.loc = loc
		}
	}
}

// WithAccountURL sets the printf format for account links. It receives the
// account id.
func WithAccountURL(format string) Option {
	return func(p *Presenter) {
		if format != "" {
			p.accountURL = format
		}
	}
}

// WithClock overrides time.Now for Present.
func WithClock(clock func() time.Time) Option {
	return func(p *Presenter) {
		if clock != nil {
			p.clock = clock
		}
	}
}

func New(opts ...Option) *Presenter {
	p := &Presenter{
		loc:        time.UTC,
		accountURL: DefaultAccountURL,
		clock:      time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Present renders ban for viewer at the current instant.
func (p *Presenter) Present(ban *models.Ban, viewer policy.Capabilities, hint TabHint) (*BanView, error) {
	return p.PresentAt(ban, viewer, hint, p.clock())
}

// PresentAt renders ban for viewer with every relative time measured from
// now. Identical inputs yield identical views.
func (p *Presenter) PresentAt(ban *models.Ban, viewer policy.Capabilities, hint TabHint, now time.Time) (*BanView, error) {
	if err := validate(ban); err != nil {
		return nil, err
	}
	if viewer == nil {
		return nil, &Error{BanID: ban.ID, Err: ErrMissingPermissionContext, Detail: "viewer has no capabilities"}
	}

	repealed := ban.IsRepealed()
	active := ban.IsActive(now)
	local := ban.IsLocal()

	v := &BanView{
		ID:          ban.ID,
		ElementID:   "ban-" + strconv.FormatInt(ban.ID, 10),
		PanelStyle:  "danger",
		TypeLabel:   ban.Type.Label(),
		PeriodLabel: ban.PeriodAmountString(),
		Banner:      p.accountRef(ban.Banner.ID, ban.Banner.Name),
		Local:       local,
		Active:      active,
		Repealed:    repealed,

		CreatedRelative:     relative(ban.CreatedAt, now),
		CreatedAbsolute:     p.absolute(ban.CreatedAt),
		PeriodStartRelative: relative(ban.PeriodStart, now),
		PeriodStartAbsolute: p.absolute(ban.PeriodStart),

		ReasonText:      ban.Reason,
		ReasonExtraHTML: template.HTML(ban.ReasonExtra),

		NotesAnchor:           "banNotes" + strconv.FormatInt(ban.ID, 10),
		NotesVisibleByDefault: hint.Tab == BansTab && hint.TabID == ban.ID,
	}

	v.HeaderLabel = v.TypeLabel + " - " + v.PeriodLabel
	if repealed {
		v.HeaderLabel += " " + RepealedMarker
		v.PanelStyle = "info"
	}

	if !ban.IsOpenEnded() {
		v.PeriodFinishRelative = relative(*ban.PeriodFinish, now)
		v.PeriodFinishAbsolute = p.absolute(*ban.PeriodFinish)
	} else {
		v.PeriodFinishRelative = NeverLabel
	}

	v.Actions = availableActions(ban, viewer, local, active, repealed)
	v.Notes = p.orderedNotes(ban.Notes, now)
	v.HasNotes = len(v.Notes) > 0

	return v, nil
}

func validate(ban *models.Ban) error {
	if ban == nil {
		return invalid(0, "ban is nil")
	}
	if !ban.IsOpenEnded() && ban.PeriodFinish.Before(ban.PeriodStart) {
		return invalid(ban.ID, "period finish precedes period start")
	}
	if ban.Notes == nil {
		return invalid(ban.ID, "notes were not loaded")
	}
	if ban.Banner == nil {
		return invalid(ban.ID, "banner was not loaded")
	}
	return nil
}

// availableActions keeps the historical button order: repeal, modify, note.
func availableActions(ban *models.Ban, viewer policy.Capabilities, local, active, repealed bool) []Action {
	actions := make([]Action, 0, 3)
	if !local {
		return actions
	}
	if !repealed && viewer.CanRepeal(ban.ID) {
		actions = append(actions, Action{
			Kind: ActionRepeal, Label: "Repeal Ban", Style: "danger",
			Route: "adm.mship.ban.repeal", TargetID: ban.ID,
		})
	}
	if active && viewer.CanModify(ban.ID) {
		actions = append(actions, Action{
			Kind: ActionModify, Label: "Modify Ban", Style: "warning",
			Route: "adm.mship.ban.modify", TargetID: ban.ID,
		})
	}
	if !repealed && viewer.CanCreateNote(ban.AccountID) {
		actions = append(actions, Action{
			Kind: ActionAttachNote, Label: "Attach Note", Style: "info",
			Route: "adm.mship.ban.comment", TargetID: ban.ID,
		})
	}
	return actions
}

func (p *Presenter) orderedNotes(notes []models.Note, now time.Time) []NoteView {
	sorted := slices.Clone(notes)
	slices.SortStableFunc(sorted, func(a, b models.Note) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	out := make([]NoteView, 0, len(sorted))
	for _, n := range sorted {
		name := "#" + strconv.FormatInt(n.WriterID, 10)
		if n.Writer != nil {
			name = n.Writer.Name
		}
		out = append(out, NoteView{
			ID:              n.ID,
			Author:          p.accountRef(n.WriterID, name),
			Content:         n.Content,
			CreatedRelative: relative(n.CreatedAt, now),
			CreatedAbsolute: p.absolute(n.CreatedAt),
		})
	}
	return out
}

func (p *Presenter) accountRef(id int64, name string) AccountRef {
	return AccountRef{AccountID: id, Name: name, Href: fmt.Sprintf(p.accountURL, id)}
}
