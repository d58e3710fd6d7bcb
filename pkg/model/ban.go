package model

import "time"

// Ban is a time-bounded denial of publish rights for one account.
// It keys on the numeric Telegram user ID; the display name is only a
// snapshot taken at ban time. Revocation flips Active instead of deleting
// the row so history is preserved.
type Ban struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	Username   string    `json:"username"` // display name when the ban was issued
	IssuerID   int64     `json:"issuer_id"`
	IssuerName string    `json:"issuer_name"`
	Reason     string    `json:"reason"`
	Until      time.Time `json:"until"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}

// Expired reports whether the ban has run out at the given instant.
func (b *Ban) Expired(now time.Time) bool {
	return !b.Until.After(now)
}

// Remaining returns how long the ban still holds at the given instant,
// never negative.
func (b *Ban) Remaining(now time.Time) time.Duration {
	if b.Expired(now) {
		return 0
	}
	return b.Until.Sub(now)
}
