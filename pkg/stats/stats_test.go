package stats_test

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"

	"github.com/chaynik/teabot/pkg/model"
	"github.com/chaynik/teabot/pkg/policy"
	"github.com/chaynik/teabot/pkg/stats"
	"github.com/chaynik/teabot/pkg/store"
)

func mustLoc() *time.Location {
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		panic(err)
	}
	return loc
}

func testRules() policy.Rules {
	return policy.Rules{
		DailyLimit: 5,
		Cooldown:   30 * time.Minute,
		ResetHour:  4,
		Location:   mustLoc(),
	}
}

func newTestReporter(t *testing.T, at time.Time) (*stats.Reporter, *store.Store) {
	t.Helper()

	clock := clockwork.NewFakeClockAt(at)
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"), mustLoc(), clock)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	return stats.New(testRules(), st, clock), st
}

func TestSummary(t *testing.T) {
	t.Parallel()

	loc := mustLoc()
	now := time.Date(2024, time.June, 11, 15, 0, 0, 0, loc)
	reporter, st := newTestReporter(t, now)

	seed := []struct {
		user string
		at   time.Time
	}{
		{"@alice", now.Add(-time.Hour)},                              // today
		{"@bob", now.Add(-2 * time.Hour)},                            // today
		{"@bob", time.Date(2024, time.June, 2, 12, 0, 0, 0, loc)},    // this month
		{"@carol", time.Date(2024, time.March, 2, 12, 0, 0, 0, loc)}, // this year
		{"@carol", time.Date(2023, time.March, 2, 12, 0, 0, 0, loc)}, // all time
	}
	for _, s := range seed {
		if _, err := st.AddForward(s.user, model.KindText, s.at); err != nil {
			t.Fatalf("AddForward: %v", err)
		}
	}

	sum, err := reporter.Summary()
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}

	want := stats.Summary{
		Today:     2,
		Limit:     5,
		Remaining: 3,
		ThisMonth: 3,
		ThisYear:  4,
		AllTime:   5,
		TopMonth: []model.UserCount{
			{Username: "@bob", Count: 2},
			{Username: "@alice", Count: 1},
		},
		TodayUsers: []string{"@alice", "@bob"},
	}
	if diff := cmp.Diff(want, sum); diff != "" {
		t.Errorf("Summary mismatch (-want +got):\n%s", diff)
	}
}

func TestSummaryRemainingNeverNegative(t *testing.T) {
	t.Parallel()

	loc := mustLoc()
	now := time.Date(2024, time.June, 11, 15, 0, 0, 0, loc)
	reporter, st := newTestReporter(t, now)

	for i := 0; i < 7; i++ { // over the limit of 5
		if _, err := st.AddForward("@alice", model.KindText, now.Add(-time.Minute)); err != nil {
			t.Fatalf("AddForward: %v", err)
		}
	}

	sum, err := reporter.Summary()
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if sum.Remaining != 0 {
		t.Errorf("Remaining = %d, want 0", sum.Remaining)
	}
}

// The statistics "today" and the quota cycle share one boundary: an event
// before the reset hour must be invisible to both.
func TestTodayWindowMatchesQuotaCycle(t *testing.T) {
	t.Parallel()

	loc := mustLoc()
	now := time.Date(2024, time.June, 11, 5, 0, 0, 0, loc)
	reporter, st := newTestReporter(t, now)

	if _, err := st.AddForward("@alice", model.KindText, time.Date(2024, time.June, 11, 3, 59, 0, 0, loc)); err != nil {
		t.Fatalf("AddForward: %v", err)
	}
	if _, err := st.AddForward("@bob", model.KindText, time.Date(2024, time.June, 11, 4, 1, 0, 0, loc)); err != nil {
		t.Fatalf("AddForward: %v", err)
	}

	sum, err := reporter.Summary()
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if sum.Today != 1 {
		t.Errorf("Today = %d, want 1 (03:59 event belongs to yesterday's cycle)", sum.Today)
	}
	if diff := cmp.Diff([]string{"@bob"}, sum.TodayUsers); diff != "" {
		t.Errorf("TodayUsers mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveMonth(t *testing.T) {
	t.Parallel()

	loc := mustLoc()
	// Current instant: June 2024.
	now := time.Date(2024, time.June, 11, 15, 0, 0, 0, loc)

	type tcase struct {
		req       int
		wantStart time.Time
		wantErr   error
	}

	tcases := map[string]tcase{
		"current_month": {
			req:       6,
			wantStart: time.Date(2024, time.June, 1, 0, 0, 0, 0, loc),
		},
		"earlier_this_year": {
			req:       3,
			wantStart: time.Date(2024, time.March, 1, 0, 0, 0, 0, loc),
		},
		"later_month_resolves_last_year": {
			req:       11,
			wantStart: time.Date(2023, time.November, 1, 0, 0, 0, 0, loc),
		},
		"eleven_months_back": {
			req:       7,
			wantStart: time.Date(2023, time.July, 1, 0, 0, 0, 0, loc),
		},
		"zero": {
			req:     0,
			wantErr: stats.ErrBadMonth,
		},
		"thirteen": {
			req:     13,
			wantErr: stats.ErrBadMonth,
		},
	}

	for name, tc := range tcases {
		t.Run(name, func(t *testing.T) {
			reporter, _ := newTestReporter(t, now)

			start, end, err := reporter.ResolveMonth(tc.req)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("err = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveMonth: %v", err)
			}
			if !start.Equal(tc.wantStart) {
				t.Errorf("start = %v, want %v", start, tc.wantStart)
			}
			if wantEnd := tc.wantStart.AddDate(0, 1, 0); !end.Equal(wantEnd) {
				t.Errorf("end = %v, want %v", end, wantEnd)
			}
		})
	}
}

func TestMonthDetail(t *testing.T) {
	t.Parallel()

	loc := mustLoc()
	now := time.Date(2024, time.June, 11, 15, 0, 0, 0, loc)
	reporter, st := newTestReporter(t, now)

	// February 2024 is a leap month: 29 dense buckets.
	if _, err := st.AddForward("@alice", model.KindText, time.Date(2024, time.February, 14, 9, 0, 0, 0, loc)); err != nil {
		t.Fatalf("AddForward: %v", err)
	}

	rep, err := reporter.MonthDetail(2)
	if err != nil {
		t.Fatalf("MonthDetail: %v", err)
	}
	if rep.Month != time.February || rep.Year != 2024 {
		t.Errorf("resolved %s %d, want February 2024", rep.Month, rep.Year)
	}
	if len(rep.Days) != 29 {
		t.Errorf("day buckets = %d, want 29", len(rep.Days))
	}
	if rep.Days[13] != 1 {
		t.Errorf("Days[13] = %d, want 1", rep.Days[13])
	}
	if rep.Total != 1 {
		t.Errorf("Total = %d, want 1", rep.Total)
	}
}

func TestHistogramProductsAreDense(t *testing.T) {
	t.Parallel()

	loc := mustLoc()
	now := time.Date(2024, time.June, 11, 15, 0, 0, 0, loc)
	reporter, _ := newTestReporter(t, now)

	// No data at all: density is a property of the calendar, not the log.
	hours, err := reporter.HourActivity()
	if err != nil {
		t.Fatalf("HourActivity: %v", err)
	}
	if len(hours) != 24 {
		t.Errorf("hour buckets = %d, want 24", len(hours))
	}

	weekdays, err := reporter.WeekdayActivity()
	if err != nil {
		t.Fatalf("WeekdayActivity: %v", err)
	}
	if len(weekdays) != 7 {
		t.Errorf("weekday buckets = %d, want 7", len(weekdays))
	}

	months, err := reporter.MonthOfYear()
	if err != nil {
		t.Fatalf("MonthOfYear: %v", err)
	}
	if len(months) != 12 {
		t.Errorf("month buckets = %d, want 12", len(months))
	}
}
