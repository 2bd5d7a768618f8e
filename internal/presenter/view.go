package presenter

import "html/template"

// RepealedMarker is appended to the header of a repealed ban.
const RepealedMarker = "**REPEALED**"

// BansTab is the account page tab that lists bans.
const BansTab = "bans"

// TabHint is the navigation state of the page the ban is rendered into.
type TabHint struct {
	Tab   string
	TabID int64
}

// ActionKind identifies a button the viewer may press.
type ActionKind string

const (
	ActionRepeal     ActionKind = "repeal"
	ActionModify     ActionKind = "modify"
	ActionAttachNote ActionKind = "attach_note"
)

// Action is an authorized operation on the ban. Route names the external
// endpoint that performs it.
type Action struct {
	Kind     ActionKind `json:"kind"`
	Label    string     `json:"label"`
	Style    string     `json:"style"`
	Route    string     `json:"route"`
	TargetID int64      `json:"target_id,string"`
}

// AccountRef is a display name plus a link to the account details page.
type AccountRef struct {
	AccountID int64  `json:"account_id,string"`
	Name      string `json:"name"`
	Href      string `json:"href"`
}

type NoteView struct {
	ID              int64      `json:"id,string"`
	Author          AccountRef `json:"author"`
	Content         string     `json:"content"`
	CreatedRelative string     `json:"created_relative"`
	CreatedAbsolute string     `json:"created_absolute"`
}

// BanView is everything the rendering layer needs for one ban panel.
type BanView struct {
	ID         int64  `json:"id,string"`
	ElementID  string `json:"element_id"`
	PanelStyle string `json:"panel_style"`

	HeaderLabel string     `json:"header_label"`
	TypeLabel   string     `json:"type_label"`
	PeriodLabel string     `json:"period_label"`
	Banner      AccountRef `json:"banner"`

	Local    bool `json:"local"`
	Active   bool `json:"active"`
	Repealed bool `json:"repealed"`

	CreatedRelative      string `json:"created_relative"`
	CreatedAbsolute      string `json:"created_absolute"`
	PeriodStartRelative  string `json:"period_start_relative"`
	PeriodStartAbsolute  string `json:"period_start_absolute"`
	PeriodFinishRelative string `json:"period_finish_relative"`
	PeriodFinishAbsolute string `json:"period_finish_absolute"`

	ReasonText string `json:"reason_text"`
	// ReasonExtraHTML is trusted markup; it is never escaped or altered here.
	ReasonExtraHTML template.HTML `json:"reason_extra_html,omitempty"`

	Actions []Action `json:"actions"`

	Notes                 []NoteView `json:"notes"`
	HasNotes              bool       `json:"has_notes"`
	NotesAnchor           string     `json:"notes_anchor"`
	NotesVisibleByDefault bool       `json:"notes_visible_by_default"`
}

// HasAction reports whether kind is among the view's actions.
func (v *BanView) HasAction(kind ActionKind) bool {
	for _, a := range v.Actions {
		if a.Kind == kind {
			return true
		}
	}
	return false
}
