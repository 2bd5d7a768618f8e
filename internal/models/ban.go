package models

import (
	"strconv"
	"time"
)

// BanType categorises where a ban comes from.
type BanType string

const (
	// BanTypeLocal bans are issued and managed by this panel.
	BanTypeLocal BanType = "local"
	// BanTypeNetwork bans are mirrored from the network and read-only here.
	BanTypeNetwork BanType = "network"
)

// Label returns the human-readable type name shown in the ban header.
func (t BanType) Label() string {
	switch t {
	case BanTypeLocal:
		return "Local Ban"
	case BanTypeNetwork:
		return "Network Ban"
	default:
		return "Unknown Ban"
	}
}

// PeriodUnit is the unit PeriodAmount is expressed in.
type PeriodUnit string

const (
	PeriodMinutes PeriodUnit = "M"
	PeriodHours   PeriodUnit = "H"
	PeriodDays    PeriodUnit = "D"
)

func (u PeriodUnit) noun(n int) string {
	var s string
	switch u {
	case PeriodMinutes:
		s = "minute"
	case PeriodHours:
		s = "hour"
	default:
		s = "day"
	}
	if n != 1 {
		s += "s"
	}
	return s
}

// Duration returns the length of amount units.
func (u PeriodUnit) Duration(amount int) time.Duration {
	switch u {
	case PeriodMinutes:
		return time.Duration(amount) * time.Minute
	case PeriodHours:
		return time.Duration(amount) * time.Hour
	default:
		return time.Duration(amount) * 24 * time.Hour
	}
}

type Ban struct {
	ID           int64      `json:"id,string"`
	AccountID    int64      `json:"account_id,string"`
	BannedBy     int64      `json:"banned_by,string"`
	Type         BanType    `json:"type"`
	Reason       string     `json:"reason"`
	ReasonExtra  string     `json:"reason_extra,omitempty"`
	PeriodAmount int        `json:"period_amount"`
	PeriodUnit   PeriodUnit `json:"period_unit"`
	PeriodStart  time.Time  `json:"period_start"`
	PeriodFinish *time.Time `json:"period_finish,omitempty"`
	RepealedAt   *time.Time `json:"repealed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	// Banner and Notes are hydrated by the caller. A nil Notes slice means
	// the notes were never loaded; an empty slice means there are none.
	Banner *Account `json:"banner,omitempty"`
	Notes  []Note   `json:"notes,omitempty"`
}

// IsLocal reports whether the ban originates from this panel.
func (b *Ban) IsLocal() bool { return b.Type == BanTypeLocal }

// IsRepealed reports whether the ban has been lifted.
func (b *Ban) IsRepealed() bool { return b.RepealedAt != nil }

// IsOpenEnded reports whether the ban has no finish instant.
func (b *Ban) IsOpenEnded() bool { return b.PeriodFinish == nil }

// IsActive reports whether now lies within [start, finish) and the ban has
// not been repealed.
func (b *Ban) IsActive(now time.Time) bool {
	if b.IsRepealed() {
		return false
	}
	if now.Before(b.PeriodStart) {
		return false
	}
	return b.IsOpenEnded() || now.Before(*b.PeriodFinish)
}

// PeriodAmountString describes the ban length, e.g. "30 days" or "Permanent".
func (b *Ban) PeriodAmountString() string {
	if b.PeriodAmount <= 0 || b.IsOpenEnded() {
		return "Permanent"
	}
	return strconv.Itoa(b.PeriodAmount) + " " + b.PeriodUnit.noun(b.PeriodAmount)
}

// PeriodBetween expresses the span from start to finish in the largest unit
// that divides it evenly, rounding partial minutes up. A nil finish is an
// open-ended period of amount 0.
func PeriodBetween(start time.Time, finish *time.Time) (int, PeriodUnit) {
	if finish == nil {
		return 0, PeriodDays
	}
	d := finish.Sub(start)
	if d <= 0 {
		return 0, PeriodMinutes
	}
	switch {
	case d%(24*time.Hour) == 0:
		return int(d / (24 * time.Hour)), PeriodDays
	case d%time.Hour == 0:
		return int(d / time.Hour), PeriodHours
	default:
		return int((d + time.Minute - 1) / time.Minute), PeriodMinutes
	}
}
