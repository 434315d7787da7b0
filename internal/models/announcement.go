package models

import "time"

// Announcement is a home-page notice shown on the portal dashboard.
type Announcement struct {
	ID        string     `db:"id" json:"id"`
	Title     string     `db:"title" json:"title"`
	Body      string     `db:"body" json:"body"`
	Audience  string     `db:"audience" json:"audience"`
	Published bool       `db:"published" json:"published"`
	PostedAt  time.Time  `db:"posted_at" json:"posted_at"`
	ExpiresAt *time.Time `db:"expires_at" json:"expires_at,omitempty"`
}
