// Package policy decides whether a publish attempt is allowed right now.
//
// Three gates run in a fixed order (ban, cooldown, quota) and the first
// failing gate wins. Ban is the only per-identity gate and keys on the
// numeric account ID; cooldown and quota are global, throttling the channel
// rather than individual posters.
package policy

import (
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/chaynik/teabot/pkg/model"
)

var (
	ErrBadDuration  = errors.New("ban duration must be a positive number of hours")
	ErrAdminSubject = errors.New("administrators cannot be banned")
)

// Denial names the gate that rejected a publish attempt.
type Denial int

const (
	DenialNone Denial = iota
	DenialBanned
	DenialCooldown
	DenialQuota
)

func (d Denial) String() string {
	switch d {
	case DenialNone:
		return "none"
	case DenialBanned:
		return "banned"
	case DenialCooldown:
		return "cooldown"
	case DenialQuota:
		return "quota_exceeded"
	default:
		return "unknown"
	}
}

// Decision is the outcome of one publish check. Denials are first-class
// results, not errors: RetryIn carries the remaining wait for banned and
// cooldown outcomes, Ban carries the ban detail for rendering.
type Decision struct {
	Denial  Denial
	RetryIn time.Duration
	Ban     *model.Ban
}

func (d Decision) Allowed() bool {
	return d.Denial == DenialNone
}

// Rules is the immutable configuration of the engine. Construct once at
// startup and pass by value; nothing here is read from globals.
type Rules struct {
	DailyLimit int
	Cooldown   time.Duration
	ResetHour  int            // quota cycle boundary, local hour 0..23
	Admins     map[int64]bool // numeric IDs exempt from bans, allowed admin commands
	Location   *time.Location
}

// Store is the persistence surface the engine needs.
type Store interface {
	AddForward(username string, kind model.Kind, at time.Time) (int64, error)
	CountSince(t time.Time) (int, error)
	DeleteSince(t time.Time) (int64, error)
	LatestForward() (time.Time, error)
	CreateBan(subjectID int64, subjectName string, issuerID int64, issuerName string, until time.Time, reason string) (int64, error)
	ActiveBan(subjectID int64) (*model.Ban, error)
	RevokeBan(subjectID int64) (int64, error)
}

// Engine evaluates publish attempts and owns all ban/quota mutations.
type Engine struct {
	rules Rules
	store Store
	clock clockwork.Clock
}

func New(rules Rules, store Store, clock clockwork.Clock) *Engine {
	if rules.Location == nil {
		rules.Location = time.UTC
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Engine{rules: rules, store: store, clock: clock}
}

// Rules returns the engine's configuration.
func (e *Engine) Rules() Rules {
	return e.rules
}

// IsAdmin reports whether the ID is on the administrator allowlist.
func (e *Engine) IsAdmin(userID int64) bool {
	return e.rules.Admins[userID]
}

// CycleStart returns the start of the quota "day" containing now: today at
// resetHour:00 local, or yesterday's if the reset hour has not passed yet.
// The statistics day boundary uses this same function, so the two can never
// disagree.
func CycleStart(now time.Time, resetHour int, loc *time.Location) time.Time {
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), resetHour, 0, 0, 0, loc)
	if local.Hour() < resetHour {
		start = start.AddDate(0, 0, -1)
	}
	return start
}

// CycleStart applies the engine's rules to the package-level CycleStart.
func (e *Engine) CycleStart(now time.Time) time.Time {
	return CycleStart(now, e.rules.ResetHour, e.rules.Location)
}

// Check evaluates the three gates for one publish attempt. Gates short out:
// once one denies, the later ones are never consulted.
//
// Check and Record are deliberately not one transaction; two near-simultaneous
// attempts can both pass the quota gate before either records. Accepted for a
// single low-traffic group chat.
func (e *Engine) Check(userID int64) (Decision, error) {
	now := e.clock.Now()

	ban, err := e.store.ActiveBan(userID)
	if err != nil {
		return Decision{}, fmt.Errorf("policy: ban check: %w", err)
	}
	if ban != nil {
		return Decision{Denial: DenialBanned, RetryIn: ban.Remaining(now), Ban: ban}, nil
	}

	last, err := e.store.LatestForward()
	if err != nil {
		return Decision{}, fmt.Errorf("policy: cooldown check: %w", err)
	}
	if !last.IsZero() {
		if elapsed := now.Sub(last); elapsed < e.rules.Cooldown {
			return Decision{Denial: DenialCooldown, RetryIn: e.rules.Cooldown - elapsed}, nil
		}
	}

	count, err := e.store.CountSince(e.CycleStart(now))
	if err != nil {
		return Decision{}, fmt.Errorf("policy: quota check: %w", err)
	}
	if count >= e.rules.DailyLimit {
		return Decision{Denial: DenialQuota}, nil
	}

	return Decision{}, nil
}

// Record persists a successful publish. Callers must only invoke this after
// the external post went through; a failed post must not consume quota.
func (e *Engine) Record(username string, kind model.Kind) (int64, error) {
	id, err := e.store.AddForward(username, kind, e.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("policy: record publish: %w", err)
	}
	return id, nil
}

// Remaining returns how many publishes are left in the current cycle, never
// negative.
func (e *Engine) Remaining() (int, error) {
	count, err := e.store.CountSince(e.CycleStart(e.clock.Now()))
	if err != nil {
		return 0, fmt.Errorf("policy: remaining: %w", err)
	}
	if count >= e.rules.DailyLimit {
		return 0, nil
	}
	return e.rules.DailyLimit - count, nil
}

// ResetToday deletes every forward in the current cycle and returns the
// count. Destructive and not undoable.
func (e *Engine) ResetToday() (int64, error) {
	deleted, err := e.store.DeleteSince(e.CycleStart(e.clock.Now()))
	if err != nil {
		return 0, fmt.Errorf("policy: reset today: %w", err)
	}
	return deleted, nil
}

// BanUser issues a ban lasting hours from now. Admin subjects are unbannable
// and non-positive durations are rejected before any store mutation.
func (e *Engine) BanUser(subjectID int64, subjectName string, issuerID int64, issuerName string, hours int, reason string) (*model.Ban, error) {
	if hours <= 0 {
		return nil, ErrBadDuration
	}
	if e.IsAdmin(subjectID) {
		return nil, ErrAdminSubject
	}
	now := e.clock.Now()
	until := now.Add(time.Duration(hours) * time.Hour)
	id, err := e.store.CreateBan(subjectID, subjectName, issuerID, issuerName, until, reason)
	if err != nil {
		return nil, fmt.Errorf("policy: ban user: %w", err)
	}
	return &model.Ban{
		ID:         id,
		UserID:     subjectID,
		Username:   subjectName,
		IssuerID:   issuerID,
		IssuerName: issuerName,
		Reason:     reason,
		Until:      until,
		Active:     true,
		CreatedAt:  now,
	}, nil
}

// UnbanUser revokes all active bans for the subject and returns how many
// were revoked.
func (e *Engine) UnbanUser(subjectID int64) (int64, error) {
	revoked, err := e.store.RevokeBan(subjectID)
	if err != nil {
		return 0, fmt.Errorf("policy: unban user: %w", err)
	}
	return revoked, nil
}
