// Package model defines the core domain types for TeaBot.
package model

import (
	"errors"
	"strings"
	"time"
)

var ErrUsernameEmpty = errors.New("username must not be empty")

// Forward is one publish event: who posted what kind of content and when.
// Rows are append-only; the daily reset is the only bulk delete.
type Forward struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"` // display name at publish time, not a stable ID
	Kind      Kind      `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

func (f *Forward) Validate() error {
	if strings.TrimSpace(f.Username) == "" {
		return ErrUsernameEmpty
	}
	if !f.Kind.Valid() {
		return ErrInvalidKind
	}
	return nil
}

// UserCount pairs a display name with its forward count inside some window.
type UserCount struct {
	Username string `json:"username"`
	Count    int    `json:"count"`
}

// YearCount is one entry of the sparse all-history year histogram.
type YearCount struct {
	Year  int `json:"year"`
	Count int `json:"count"`
}
