// Package stats slices the forward log into calendar-bucketed statistics.
// It is a pure read layer: nothing here writes.
package stats

import (
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/chaynik/teabot/pkg/model"
	"github.com/chaynik/teabot/pkg/policy"
)

var (
	ErrBadMonth      = errors.New("month must be between 1 and 12")
	ErrMonthTooOld   = errors.New("month is older than 11 months back")
	ErrMonthInFuture = errors.New("month has not started yet")
)

// allTimeYear anchors the synthetic lower bound for windows that have no
// natural calendar start (hour and weekday histograms).
const allTimeYear = 2000

// topUsersLimit caps the leaderboard in the summary.
const topUsersLimit = 5

// Store is the read-only query surface the reporter needs.
type Store interface {
	CountSince(t time.Time) (int, error)
	CountInRange(start, end time.Time) (int, error)
	TopUsers(start, end time.Time, limit int) ([]model.UserCount, error)
	HourHistogram(start, end time.Time) ([]int, error)
	WeekdayHistogram(start, end time.Time) ([]int, error)
	DayOfMonthHistogram(month time.Month, year int) ([]int, error)
	MonthHistogram(year int) ([]int, error)
	YearHistogram() ([]model.YearCount, error)
	DistinctUsers(start, end time.Time) ([]string, error)
}

// Reporter computes calendar-aligned statistics over the forward log.
type Reporter struct {
	rules policy.Rules
	store Store
	clock clockwork.Clock
}

func New(rules policy.Rules, store Store, clock clockwork.Clock) *Reporter {
	if rules.Location == nil {
		rules.Location = time.UTC
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Reporter{rules: rules, store: store, clock: clock}
}

// Summary is the headline numbers for the current instant.
type Summary struct {
	Today      int
	Limit      int
	Remaining  int
	ThisMonth  int
	ThisYear   int
	AllTime    int
	TopMonth   []model.UserCount
	TodayUsers []string
}

// Summary gathers today/month/year/all-time totals, the month leaderboard,
// and who posted today.
func (r *Reporter) Summary() (Summary, error) {
	now := r.clock.Now()
	dayStart := r.cycleStart(now)
	dayEnd := dayStart.Add(24 * time.Hour)
	monthStart, monthEnd := r.monthBounds(now)
	yearStart, yearEnd := r.yearBounds(now)

	sum := Summary{Limit: r.rules.DailyLimit}

	var err error
	if sum.Today, err = r.store.CountInRange(dayStart, dayEnd); err != nil {
		return Summary{}, fmt.Errorf("stats: today count: %w", err)
	}
	sum.Remaining = r.rules.DailyLimit - sum.Today
	if sum.Remaining < 0 {
		sum.Remaining = 0
	}
	if sum.ThisMonth, err = r.store.CountInRange(monthStart, monthEnd); err != nil {
		return Summary{}, fmt.Errorf("stats: month count: %w", err)
	}
	if sum.ThisYear, err = r.store.CountInRange(yearStart, yearEnd); err != nil {
		return Summary{}, fmt.Errorf("stats: year count: %w", err)
	}
	if sum.AllTime, err = r.store.CountSince(r.allTimeStart()); err != nil {
		return Summary{}, fmt.Errorf("stats: all-time count: %w", err)
	}
	if sum.TopMonth, err = r.store.TopUsers(monthStart, monthEnd, topUsersLimit); err != nil {
		return Summary{}, fmt.Errorf("stats: top users: %w", err)
	}
	if sum.TodayUsers, err = r.store.DistinctUsers(dayStart, dayEnd); err != nil {
		return Summary{}, fmt.Errorf("stats: today users: %w", err)
	}
	return sum, nil
}

// HourActivity returns the 24-bucket hour-of-day histogram over all
// recorded history.
func (r *Reporter) HourActivity() ([]int, error) {
	buckets, err := r.store.HourHistogram(r.allTimeStart(), r.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("stats: hour activity: %w", err)
	}
	return buckets, nil
}

// WeekdayActivity returns the 7-bucket weekday histogram (0=Monday) over
// all recorded history.
func (r *Reporter) WeekdayActivity() ([]int, error) {
	buckets, err := r.store.WeekdayHistogram(r.allTimeStart(), r.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("stats: weekday activity: %w", err)
	}
	return buckets, nil
}

// MonthOfYear returns the 12-bucket month histogram for the current civil
// year.
func (r *Reporter) MonthOfYear() ([]int, error) {
	year := r.clock.Now().In(r.rules.Location).Year()
	buckets, err := r.store.MonthHistogram(year)
	if err != nil {
		return nil, fmt.Errorf("stats: month histogram: %w", err)
	}
	return buckets, nil
}

// YearCounts returns the sparse per-year totals across all history.
func (r *Reporter) YearCounts() ([]model.YearCount, error) {
	years, err := r.store.YearHistogram()
	if err != nil {
		return nil, fmt.Errorf("stats: year counts: %w", err)
	}
	return years, nil
}

// MonthReport holds the per-day histogram and totals of one resolved month.
type MonthReport struct {
	Month   time.Month
	Year    int
	Total   int
	Days    []int // index 0 = day 1, dense over the whole month
	TopUser []model.UserCount
}

// MonthDetail resolves a requested month number and returns its day-by-day
// activity. See ResolveMonth for the resolution rules.
func (r *Reporter) MonthDetail(req int) (MonthReport, error) {
	start, end, err := r.ResolveMonth(req)
	if err != nil {
		return MonthReport{}, err
	}
	rep := MonthReport{Month: start.Month(), Year: start.Year()}
	if rep.Days, err = r.store.DayOfMonthHistogram(start.Month(), start.Year()); err != nil {
		return MonthReport{}, fmt.Errorf("stats: month detail: %w", err)
	}
	if rep.Total, err = r.store.CountInRange(start, end); err != nil {
		return MonthReport{}, fmt.Errorf("stats: month detail: %w", err)
	}
	if rep.TopUser, err = r.store.TopUsers(start, end, topUsersLimit); err != nil {
		return MonthReport{}, fmt.Errorf("stats: month detail: %w", err)
	}
	return rep, nil
}

// ResolveMonth maps a requested month number 1-12 to the most recent past
// occurrence: a number above the current month resolves to last year, never
// to this year's future one. Occurrences older than 11 months back or still
// in the future are rejected.
func (r *Reporter) ResolveMonth(req int) (start, end time.Time, err error) {
	if req < 1 || req > 12 {
		return time.Time{}, time.Time{}, ErrBadMonth
	}
	now := r.clock.Now().In(r.rules.Location)
	year := now.Year()
	if req > int(now.Month()) {
		year--
	}
	start = time.Date(year, time.Month(req), 1, 0, 0, 0, 0, r.rules.Location)
	end = start.AddDate(0, 1, 0)

	if start.After(now) {
		return time.Time{}, time.Time{}, ErrMonthInFuture
	}
	oldest := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, r.rules.Location).AddDate(0, -11, 0)
	if start.Before(oldest) {
		return time.Time{}, time.Time{}, ErrMonthTooOld
	}
	return start, end, nil
}

// CurrentMonth returns the current civil month on the reporter's clock.
func (r *Reporter) CurrentMonth() time.Month {
	return r.clock.Now().In(r.rules.Location).Month()
}

// CurrentYear returns the current civil year on the reporter's clock.
func (r *Reporter) CurrentYear() int {
	return r.clock.Now().In(r.rules.Location).Year()
}

// cycleStart shares the quota day boundary with the policy engine.
func (r *Reporter) cycleStart(now time.Time) time.Time {
	return policy.CycleStart(now, r.rules.ResetHour, r.rules.Location)
}

func (r *Reporter) monthBounds(now time.Time) (time.Time, time.Time) {
	local := now.In(r.rules.Location)
	start := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, r.rules.Location)
	return start, start.AddDate(0, 1, 0)
}

func (r *Reporter) yearBounds(now time.Time) (time.Time, time.Time) {
	local := now.In(r.rules.Location)
	start := time.Date(local.Year(), time.January, 1, 0, 0, 0, 0, r.rules.Location)
	return start, start.AddDate(1, 0, 0)
}

func (r *Reporter) allTimeStart() time.Time {
	return time.Date(allTimeYear, time.January, 1, 0, 0, 0, 0, r.rules.Location)
}
