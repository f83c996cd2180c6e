package session

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/noobyalan/Multi-Platform-Social-Media-Content-Filter/internal/model"
)

func testState(sessionID string) *model.SessionState {
	return &model.SessionState{
		SessionID: sessionID,
		FilterSpec: model.FilterSpec{
			Platform:       model.PlatformReddit,
			Target:         "r/technology",
			TimeRangeStart: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
			TimeRangeEnd:   time.Date(2026, 8, 8, 0, 0, 0, 0, time.UTC),
			MinPopularity:  100,
		},
		RawItems: []model.RawItem{
			{PlatformID: "p1", Platform: model.PlatformReddit, Title: "hello", PopularityScore: 150},
		},
		Selection: []string{"p1"},
		UpdatedAt: time.Date(2026, 8, 2, 12, 0, 0, 0, time.UTC),
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	s := NewStore(time.Minute)
	want := testState("sess-1")
	s.Put("sess-1", want)

	got, ok := s.Get("sess-1")
	if !ok {
		t.Fatal("expected session to be present")
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Get() mismatch (-want +got):\n%s", diff)
	}
}

func TestGetAbsent(t *testing.T) {
	s := NewStore(time.Minute)
	if _, ok := s.Get("nope"); ok {
		t.Fatal("expected absent session")
	}
}

func TestPutOverwritesWholeState(t *testing.T) {
	s := NewStore(time.Minute)
	first := testState("sess-1")
	s.Put("sess-1", first)

	second := testState("sess-1")
	second.RawItems = nil
	second.Summary = &model.Summary{Text: "fresh", ModelUsed: "deepseek-chat"}
	second.Selection = nil
	s.Put("sess-1", second)

	got, ok := s.Get("sess-1")
	if !ok {
		t.Fatal("expected session to be present")
	}
	if diff := cmp.Diff(second, got); diff != "" {
		t.Errorf("overwrite mismatch (-want +got):\n%s", diff)
	}
}

func TestStoredStateIsIsolatedFromCaller(t *testing.T) {
	s := NewStore(time.Minute)
	state := testState("sess-1")
	s.Put("sess-1", state)

	// Mutating what we passed in must not change what was stored.
	state.RawItems[0].Title = "mutated"
	state.Selection[0] = "mutated"

	got, _ := s.Get("sess-1")
	if got.RawItems[0].Title != "hello" {
		t.Errorf("stored item aliased caller slice: %q", got.RawItems[0].Title)
	}
	if got.Selection[0] != "p1" {
		t.Errorf("stored selection aliased caller slice: %q", got.Selection[0])
	}

	// And mutating what we read back must not change the store either.
	got.RawItems[0].Title = "mutated again"
	again, _ := s.Get("sess-1")
	if again.RawItems[0].Title != "hello" {
		t.Errorf("returned state aliased stored slice: %q", again.RawItems[0].Title)
	}
}

func TestTTLExpiry(t *testing.T) {
	s := NewStore(40 * time.Millisecond)
	s.Put("sess-1", testState("sess-1"))

	time.Sleep(80 * time.Millisecond)

	if _, ok := s.Get("sess-1"); ok {
		t.Fatal("expected session to expire after TTL")
	}
	if s.Touch("sess-1") {
		t.Fatal("expected Touch on expired session to fail")
	}
}

func TestGetSlidesExpiry(t *testing.T) {
	s := NewStore(60 * time.Millisecond)
	s.Put("sess-1", testState("sess-1"))

	// Keep reading within the TTL; the sliding refresh must keep the
	// session alive well past the original deadline.
	for i := 0; i < 5; i++ {
		time.Sleep(30 * time.Millisecond)
		if _, ok := s.Get("sess-1"); !ok {
			t.Fatalf("session expired on read %d despite sliding refresh", i)
		}
	}
}

func TestTouchSlidesExpiry(t *testing.T) {
	s := NewStore(60 * time.Millisecond)
	s.Put("sess-1", testState("sess-1"))

	for i := 0; i < 5; i++ {
		time.Sleep(30 * time.Millisecond)
		if !s.Touch("sess-1") {
			t.Fatalf("session expired on touch %d despite sliding refresh", i)
		}
	}
	if _, ok := s.Get("sess-1"); !ok {
		t.Fatal("expected session to still be present")
	}
}

func TestClear(t *testing.T) {
	s := NewStore(time.Minute)
	s.Put("sess-1", testState("sess-1"))
	s.Put("sess-2", testState("sess-2"))

	s.Clear("sess-1")

	if _, ok := s.Get("sess-1"); ok {
		t.Fatal("expected cleared session to be absent")
	}
	if _, ok := s.Get("sess-2"); !ok {
		t.Fatal("clearing one session must not touch another")
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	s := NewStore(time.Minute)
	a := testState("a")
	b := testState("b")
	b.RawItems[0].Title = "other"
	s.Put("a", a)
	s.Put("b", b)

	gotA, _ := s.Get("a")
	gotB, _ := s.Get("b")
	if gotA.RawItems[0].Title == gotB.RawItems[0].Title {
		t.Error("sessions leaked into each other")
	}
}
