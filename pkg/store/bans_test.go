package store_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/chaynik/teabot/pkg/model"
)

func TestCreateAndActiveBan(t *testing.T) {
	t.Parallel()

	st, clock := newTestStore(t)

	until := clock.Now().Add(24 * time.Hour)
	id, err := st.CreateBan(42, "@mallory", 1, "@admin", until, "spam")
	if err != nil {
		t.Fatalf("CreateBan: %v", err)
	}

	ban, err := st.ActiveBan(42)
	if err != nil {
		t.Fatalf("ActiveBan: %v", err)
	}
	if ban == nil {
		t.Fatal("expected an active ban")
	}

	want := &model.Ban{
		ID:         id,
		UserID:     42,
		Username:   "@mallory",
		IssuerID:   1,
		IssuerName: "@admin",
		Reason:     "spam",
		Active:     true,
	}
	if diff := cmp.Diff(want, ban, cmpopts.IgnoreFields(model.Ban{}, "Until", "CreatedAt")); diff != "" {
		t.Errorf("ActiveBan mismatch (-want +got):\n%s", diff)
	}
	if !ban.Until.Equal(until.Truncate(time.Second)) {
		t.Errorf("Until = %v, want %v", ban.Until, until)
	}
}

func TestActiveBanNone(t *testing.T) {
	t.Parallel()

	st, _ := newTestStore(t)

	ban, err := st.ActiveBan(42)
	if err != nil {
		t.Fatalf("ActiveBan: %v", err)
	}
	if ban != nil {
		t.Errorf("expected nil, got %+v", ban)
	}
}

func TestActiveBanExpiry(t *testing.T) {
	t.Parallel()

	st, clock := newTestStore(t)

	until := clock.Now().Add(2 * time.Hour)
	if _, err := st.CreateBan(42, "@mallory", 1, "@admin", until, ""); err != nil {
		t.Fatalf("CreateBan: %v", err)
	}

	// The active flag is still set, but the ban has run out.
	clock.Advance(2 * time.Hour)

	ban, err := st.ActiveBan(42)
	if err != nil {
		t.Fatalf("ActiveBan: %v", err)
	}
	if ban != nil {
		t.Errorf("expired ban still returned: %+v", ban)
	}
}

func TestActiveBanNewestWins(t *testing.T) {
	t.Parallel()

	st, clock := newTestStore(t)

	if _, err := st.CreateBan(42, "@mallory", 1, "@admin", clock.Now().Add(time.Hour), "first"); err != nil {
		t.Fatalf("CreateBan: %v", err)
	}
	clock.Advance(time.Minute)
	if _, err := st.CreateBan(42, "@mallory", 1, "@admin", clock.Now().Add(time.Hour), "second"); err != nil {
		t.Fatalf("CreateBan: %v", err)
	}

	ban, err := st.ActiveBan(42)
	if err != nil {
		t.Fatalf("ActiveBan: %v", err)
	}
	if ban == nil {
		t.Fatal("expected an active ban")
	}
	if ban.Reason != "second" {
		t.Errorf("reason = %q, want the most recently created ban", ban.Reason)
	}
}

func TestRevokeBan(t *testing.T) {
	t.Parallel()

	st, clock := newTestStore(t)

	revoked, err := st.RevokeBan(42)
	if err != nil {
		t.Fatalf("RevokeBan: %v", err)
	}
	if revoked != 0 {
		t.Errorf("revoked = %d, want 0 with no bans", revoked)
	}

	if _, err := st.CreateBan(42, "@mallory", 1, "@admin", clock.Now().Add(time.Hour), ""); err != nil {
		t.Fatalf("CreateBan: %v", err)
	}
	if _, err := st.CreateBan(42, "@mallory", 1, "@admin", clock.Now().Add(2*time.Hour), ""); err != nil {
		t.Fatalf("CreateBan: %v", err)
	}

	revoked, err = st.RevokeBan(42)
	if err != nil {
		t.Fatalf("RevokeBan: %v", err)
	}
	if revoked != 2 {
		t.Errorf("revoked = %d, want 2", revoked)
	}

	ban, err := st.ActiveBan(42)
	if err != nil {
		t.Fatalf("ActiveBan: %v", err)
	}
	if ban != nil {
		t.Errorf("ban still active after revoke: %+v", ban)
	}
}
