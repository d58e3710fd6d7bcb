package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/chaynik/teabot/pkg/model"
)

// CreateBan adds a ban record and returns its ID. Duration validation is the
// caller's job; the store only persists.
func (s *Store) CreateBan(subjectID int64, subjectName string, issuerID int64, issuerName string, until time.Time, reason string) (int64, error) {
	now := s.clock.Now()
	res, err := s.db.ExecContext(context.Background(),
		"INSERT INTO bans (user_id, username, issuer_id, issuer_name, reason, banned_until, active, created_at) VALUES (?, ?, ?, ?, ?, ?, 1, ?)",
		subjectID, subjectName, issuerID, issuerName, reason, s.formatDBTime(until), s.formatDBTime(now))
	if err != nil {
		return 0, fmt.Errorf("store: create ban: %w", err)
	}
	id, _ := res.LastInsertId()
	slog.Info("ban created", "id", id, "user_id", subjectID, "user", subjectName,
		"issuer_id", issuerID, "until", s.formatDBTime(until), "reason", reason)
	return id, nil
}

// ActiveBan returns the subject's ban iff one is active and unexpired, nil
// otherwise. If bad data leaves several such rows, the most recently created
// one wins.
func (s *Store) ActiveBan(subjectID int64) (*model.Ban, error) {
	now := s.formatDBTime(s.clock.Now())
	b := &model.Ban{}
	var until, createdAt string
	var activeInt int
	err := s.db.QueryRowContext(context.Background(),
		`SELECT id, user_id, username, issuer_id, issuer_name, reason, banned_until, active, created_at
		 FROM bans
		 WHERE user_id = ? AND active = 1 AND banned_until > ?
		 ORDER BY created_at DESC, id DESC LIMIT 1`,
		subjectID, now).
		Scan(&b.ID, &b.UserID, &b.Username, &b.IssuerID, &b.IssuerName, &b.Reason, &until, &activeInt, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: active ban: %w", err)
	}
	b.Active = activeInt != 0
	if b.Until, err = s.parseDBTime(until); err != nil {
		return nil, fmt.Errorf("store: active ban: %w", err)
	}
	if b.CreatedAt, err = s.parseDBTime(createdAt); err != nil {
		return nil, fmt.Errorf("store: active ban: %w", err)
	}
	return b, nil
}

// RevokeBan flips active off on all of the subject's active bans and returns
// how many rows changed. Zero means there was nothing to revoke.
func (s *Store) RevokeBan(subjectID int64) (int64, error) {
	res, err := s.db.ExecContext(context.Background(),
		"UPDATE bans SET active = 0 WHERE user_id = ? AND active = 1", subjectID)
	if err != nil {
		return 0, fmt.Errorf("store: revoke ban: %w", err)
	}
	updated, _ := res.RowsAffected()
	slog.Info("ban revoked", "user_id", subjectID, "count", updated)
	return updated, nil
}
