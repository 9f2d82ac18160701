package model

import "time"

// LinkTTL is the fixed lifetime of every capture link.
const LinkTTL = 30 * 24 * time.Hour

// Link describes a disposable capture endpoint addressed by its short code.
type Link struct {
	ID        string
	Code      string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the link is past its expiry at now.
func (l Link) Expired(now time.Time) bool {
	return !now.Before(l.ExpiresAt)
}
