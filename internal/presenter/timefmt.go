package presenter

import (
	"time"

	"github.com/dustin/go-humanize"
)

// AbsoluteLayout is the fixed timestamp format used next to relative times.
const AbsoluteLayout = "2006-01-02 15:04:05"

// NeverLabel is the relative rendering of an open-ended finish.
const NeverLabel = "never"

// relative renders t against now, e.g. "3 days ago" or "2 hours from now".
func relative(t, now time.Time) string {
	return humanize.RelTime(t, now, "ago", "from now")
}

func (p *Presenter) absolute(t time.Time) string {
	return t.In(p.loc).Format(AbsoluteLayout)
}
