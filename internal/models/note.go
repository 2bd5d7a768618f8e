package models

import "time"

// Note is a free-text annotation on an account, optionally tied to a ban.
type Note struct {
	ID        int64     `json:"id,string"`
	AccountID int64     `json:"account_id,string"`
	BanID     *int64    `json:"ban_id,omitempty"`
	WriterID  int64     `json:"writer_id,string"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`

	Writer *Account `json:"writer,omitempty"`
}
