package models

// Role groups permission path grants, e.g. "adm/mship/ban/*/repeal".
type Role struct {
	ID          int64    `json:"id,string"`
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}
