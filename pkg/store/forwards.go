package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/chaynik/teabot/pkg/model"
)

// AddForward records one publish event and returns its ID.
// A zero at means "now" on the store clock.
func (s *Store) AddForward(username string, kind model.Kind, at time.Time) (int64, error) {
	f := model.Forward{Username: username, Kind: kind}
	if err := f.Validate(); err != nil {
		return 0, fmt.Errorf("store: add forward: %w", err)
	}
	if at.IsZero() {
		at = s.clock.Now()
	}
	res, err := s.db.ExecContext(context.Background(),
		"INSERT INTO forwards (username, kind, created_at) VALUES (?, ?, ?)",
		username, kind.String(), s.formatDBTime(at))
	if err != nil {
		return 0, fmt.Errorf("store: add forward: %w", err)
	}
	id, _ := res.LastInsertId()
	slog.Info("forward recorded", "id", id, "user", username, "kind", kind.String())
	return id, nil
}

// CountSince counts forwards with created_at >= t.
func (s *Store) CountSince(t time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM forwards WHERE created_at >= ?", s.formatDBTime(t)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("store: count since: %w", err)
	}
	return count, nil
}

// DeleteSince removes forwards with created_at >= t and returns the number
// of rows deleted. Used by the daily reset; nothing else deletes forwards.
func (s *Store) DeleteSince(t time.Time) (int64, error) {
	res, err := s.db.ExecContext(context.Background(),
		"DELETE FROM forwards WHERE created_at >= ?", s.formatDBTime(t))
	if err != nil {
		return 0, fmt.Errorf("store: delete since: %w", err)
	}
	deleted, _ := res.RowsAffected()
	slog.Info("forwards deleted", "since", s.formatDBTime(t), "count", deleted)
	return deleted, nil
}

// LatestForward returns the newest forward timestamp, or the zero time when
// no forwards exist.
func (s *Store) LatestForward() (time.Time, error) {
	return s.latest("SELECT MAX(created_at) FROM forwards")
}

// LatestForwardBy is LatestForward scoped to one display name.
func (s *Store) LatestForwardBy(username string) (time.Time, error) {
	return s.latest("SELECT MAX(created_at) FROM forwards WHERE username = ?", username)
}

func (s *Store) latest(query string, args ...any) (time.Time, error) {
	var raw sql.NullString
	err := s.db.QueryRowContext(context.Background(), query, args...).Scan(&raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("store: latest forward: %w", err)
	}
	if !raw.Valid {
		return time.Time{}, nil
	}
	t, err := s.parseDBTime(raw.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("store: latest forward: %w", err)
	}
	return t, nil
}

// CountInRange counts forwards in the half-open range [start, end).
func (s *Store) CountInRange(start, end time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM forwards WHERE created_at >= ? AND created_at < ?",
		s.formatDBTime(start), s.formatDBTime(end)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("store: count in range: %w", err)
	}
	return count, nil
}

// UsersRanked returns (username, count) pairs for [start, end) sorted by
// count descending. Ties keep storage order.
func (s *Store) UsersRanked(start, end time.Time) ([]model.UserCount, error) {
	return s.rankUsers(
		"SELECT username, COUNT(*) AS cnt FROM forwards WHERE created_at >= ? AND created_at < ? GROUP BY username ORDER BY cnt DESC",
		s.formatDBTime(start), s.formatDBTime(end))
}

// TopUsers is UsersRanked truncated to limit entries.
func (s *Store) TopUsers(start, end time.Time, limit int) ([]model.UserCount, error) {
	return s.rankUsers(
		"SELECT username, COUNT(*) AS cnt FROM forwards WHERE created_at >= ? AND created_at < ? GROUP BY username ORDER BY cnt DESC LIMIT ?",
		s.formatDBTime(start), s.formatDBTime(end), limit)
}

func (s *Store) rankUsers(query string, args ...any) ([]model.UserCount, error) {
	rows, err := s.db.QueryContext(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: rank users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ranked []model.UserCount
	for rows.Next() {
		var uc model.UserCount
		if err := rows.Scan(&uc.Username, &uc.Count); err != nil {
			return nil, fmt.Errorf("store: scan user count: %w", err)
		}
		ranked = append(ranked, uc)
	}
	return ranked, rows.Err()
}

// HourHistogram returns 24 buckets for hours 0..23 in [start, end),
// zero-filled for empty hours.
func (s *Store) HourHistogram(start, end time.Time) ([]int, error) {
	return s.histogram(24, 0,
		"SELECT CAST(strftime('%H', created_at) AS INTEGER) AS bucket, COUNT(*) FROM forwards WHERE created_at >= ? AND created_at < ? GROUP BY bucket",
		s.formatDBTime(start), s.formatDBTime(end))
}

// WeekdayHistogram returns 7 buckets for [start, end) with 0=Monday.
// SQLite's %w counts 0=Sunday, so bucket indices are remapped to the ISO
// Monday-first convention.
func (s *Store) WeekdayHistogram(start, end time.Time) ([]int, error) {
	return s.histogram(7, 0,
		"SELECT (CAST(strftime('%w', created_at) AS INTEGER) + 6) % 7 AS bucket, COUNT(*) FROM forwards WHERE created_at >= ? AND created_at < ? GROUP BY bucket",
		s.formatDBTime(start), s.formatDBTime(end))
}

// DayOfMonthHistogram returns one bucket per day of the given civil month,
// zero-filled, indexed from day 1.
func (s *Store) DayOfMonthHistogram(month time.Month, year int) ([]int, error) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, s.loc)
	end := start.AddDate(0, 1, 0)
	days := end.AddDate(0, 0, -1).Day()
	return s.histogram(days, 1,
		"SELECT CAST(strftime('%d', created_at) AS INTEGER) AS bucket, COUNT(*) FROM forwards WHERE created_at >= ? AND created_at < ? GROUP BY bucket",
		s.formatDBTime(start), s.formatDBTime(end))
}

// MonthHistogram returns 12 buckets for the given civil year, indexed from
// January.
func (s *Store) MonthHistogram(year int) ([]int, error) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, s.loc)
	end := start.AddDate(1, 0, 0)
	return s.histogram(12, 1,
		"SELECT CAST(strftime('%m', created_at) AS INTEGER) AS bucket, COUNT(*) FROM forwards WHERE created_at >= ? AND created_at < ? GROUP BY bucket",
		s.formatDBTime(start), s.formatDBTime(end))
}

// histogram runs a grouped count query and spreads the rows over a dense,
// zero-filled bucket slice. lowest is the bucket value of index 0.
func (s *Store) histogram(size, lowest int, query string, args ...any) ([]int, error) {
	rows, err := s.db.QueryContext(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: histogram: %w", err)
	}
	defer func() { _ = rows.Close() }()

	buckets := make([]int, size)
	for rows.Next() {
		var bucket, count int
		if err := rows.Scan(&bucket, &count); err != nil {
			return nil, fmt.Errorf("store: scan histogram: %w", err)
		}
		idx := bucket - lowest
		if idx < 0 || idx >= size {
			continue
		}
		buckets[idx] = count
	}
	return buckets, rows.Err()
}

// YearHistogram returns (year, count) pairs across all recorded history,
// sparse and ordered by year ascending.
func (s *Store) YearHistogram() ([]model.YearCount, error) {
	rows, err := s.db.QueryContext(context.Background(),
		"SELECT CAST(strftime('%Y', created_at) AS INTEGER) AS y, COUNT(*) FROM forwards GROUP BY y ORDER BY y")
	if err != nil {
		return nil, fmt.Errorf("store: year histogram: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var years []model.YearCount
	for rows.Next() {
		var yc model.YearCount
		if err := rows.Scan(&yc.Year, &yc.Count); err != nil {
			return nil, fmt.Errorf("store: scan year count: %w", err)
		}
		years = append(years, yc)
	}
	return years, rows.Err()
}

// DistinctUsers returns the sorted display names seen in [start, end).
func (s *Store) DistinctUsers(start, end time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(context.Background(),
		"SELECT DISTINCT username FROM forwards WHERE created_at >= ? AND created_at < ? ORDER BY username",
		s.formatDBTime(start), s.formatDBTime(end))
	if err != nil {
		return nil, fmt.Errorf("store: distinct users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var users []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("store: scan username: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
