package presence

import (
	"testing"
	"time"
)

func testRules() Rules {
	return Rules{
		AppearSustain: 800 * time.Millisecond,
		AbsenceGrace:  2 * time.Second,
		EventDebounce: 3 * time.Second,
		MinSession:    15 * time.Second,
	}
}

// advance observes the entity as seen (or not) every 100ms for the given
// duration and returns the last non-None action.
func advance(t *testing.T, r Rules, st *State, start time.Time, d time.Duration, seen bool) (Action, time.Time) {
	t.Helper()
	act := ActionNone
	now := start
	for elapsed := time.Duration(0); elapsed <= d; elapsed += 100 * time.Millisecond {
		now = start.Add(elapsed)
		if a := r.Observe(st, now, seen); a != ActionNone {
			act = a
		}
	}
	return act, now
}

func TestCheckInRequiresSustain(t *testing.T) {
	r := testRules()
	st := &State{}
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	act, _ := advance(t, r, st, base, 700*time.Millisecond, true)
	if act != ActionNone {
		t.Fatalf("got %v before sustain elapsed", act)
	}

	act, now := advance(t, r, st, base.Add(800*time.Millisecond), 100*time.Millisecond, true)
	if act != ActionCheckIn {
		t.Fatalf("expected check-in after sustain, got %v", act)
	}
	r.Commit(st, act, now)
	if !st.Present {
		t.Error("state not present after committed check-in")
	}
	if st.Phase() != "present" {
		t.Errorf("phase = %q, want present", st.Phase())
	}
}

func TestFlickerNeverFires(t *testing.T) {
	r := testRules()
	st := &State{}
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	// Alternate seen/unseen every 300ms for 10 seconds. The entering
	// window collapses on every miss so sustain never accumulates.
	seen := true
	for i := range 34 {
		now := base.Add(time.Duration(i) * 300 * time.Millisecond)
		if act := r.Observe(st, now, seen); act != ActionNone {
			t.Fatalf("flicker produced %v at tick %d", act, i)
		}
		seen = !seen
	}
	if st.Present {
		t.Error("flicker ended up present")
	}
}

func TestCheckOutRequiresGraceAndMinSession(t *testing.T) {
	r := testRules()
	st := &State{}
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	act, now := advance(t, r, st, base, time.Second, true)
	if act != ActionCheckIn {
		t.Fatalf("setup: expected check-in, got %v", act)
	}
	r.Commit(st, act, now)

	// Gone right away: grace passes but the session is shorter than
	// MinSession, so no check-out yet.
	act, _ = advance(t, r, st, now.Add(100*time.Millisecond), 5*time.Second, false)
	if act != ActionNone {
		t.Fatalf("check-out fired before min session, got %v", act)
	}
	if st.Phase() != "leaving" {
		t.Errorf("phase = %q, want leaving", st.Phase())
	}

	// Once the session is old enough the still-open absence window
	// confirms immediately.
	late := st.EnteredAt.Add(16 * time.Second)
	act = r.Observe(st, late, false)
	if act != ActionCheckOut {
		t.Fatalf("expected check-out after min session, got %v", act)
	}
	r.Commit(st, act, late)
	if st.Present {
		t.Error("state still present after committed check-out")
	}
	if st.Phase() != "absent" {
		t.Errorf("phase = %q, want absent", st.Phase())
	}
}

func TestReappearanceResetsAbsenceWindow(t *testing.T) {
	r := testRules()
	st := &State{}
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	act, now := advance(t, r, st, base, time.Second, true)
	r.Commit(st, act, now)
	entered := st.EnteredAt

	// 1.5s absence, then a sighting, then another 1.5s absence. Neither
	// window alone reaches the 2s grace.
	_, now = advance(t, r, st, entered.Add(20*time.Second), 1500*time.Millisecond, false)
	if a := r.Observe(st, now.Add(100*time.Millisecond), true); a != ActionNone {
		t.Fatalf("sighting produced %v", a)
	}
	if !st.MissingSince.IsZero() {
		t.Error("missingSince not cleared by sighting")
	}
	act, _ = advance(t, r, st, now.Add(200*time.Millisecond), 1500*time.Millisecond, false)
	if act != ActionNone {
		t.Fatalf("check-out fired across reset windows, got %v", act)
	}
}

func TestDebounceFloorsReEntry(t *testing.T) {
	r := testRules()
	r.MinSession = 0
	st := &State{}
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	act, now := advance(t, r, st, base, time.Second, true)
	r.Commit(st, act, now)

	act, now = advance(t, r, st, now.Add(100*time.Millisecond), 3500*time.Millisecond, false)
	if act != ActionCheckOut {
		t.Fatalf("setup: expected check-out, got %v", act)
	}
	r.Commit(st, act, now)
	toggled := st.LastToggleAt

	// Immediately back in view. Sustain elapses well before the debounce
	// window does, so the check-in must wait for the debounce.
	act, _ = advance(t, r, st, toggled.Add(100*time.Millisecond), 2500*time.Millisecond, true)
	if act != ActionNone {
		t.Fatalf("check-in fired inside debounce window, got %v", act)
	}
	act = r.Observe(st, toggled.Add(3100*time.Millisecond), true)
	if act != ActionCheckIn {
		t.Fatalf("expected check-in after debounce, got %v", act)
	}
}

func TestFailedToggleKeepsWindowOpen(t *testing.T) {
	r := testRules()
	st := &State{}
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	act, now := advance(t, r, st, base, time.Second, true)
	if act != ActionCheckIn {
		t.Fatalf("setup: expected check-in, got %v", act)
	}
	// Gateway failed: no Commit. The next sighting must resolve to the
	// same action with the state unchanged.
	if st.Present {
		t.Fatal("observe mutated Present")
	}
	again := r.Observe(st, now.Add(100*time.Millisecond), true)
	if again != ActionCheckIn {
		t.Fatalf("expected check-in to re-fire after failed toggle, got %v", again)
	}
}

func TestStaleOnlyForNeverConfirmed(t *testing.T) {
	r := testRules()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	fresh := &State{LastSeenAt: base}
	if r.Stale(fresh, base.Add(5*time.Second)) {
		t.Error("entity stale before 3x grace")
	}
	if !r.Stale(fresh, base.Add(7*time.Second)) {
		t.Error("never-confirmed entity not stale after 3x grace")
	}

	toggled := &State{LastSeenAt: base, LastToggleAt: base}
	if r.Stale(toggled, base.Add(time.Hour)) {
		t.Error("confirmed entity reported stale")
	}

	present := &State{Present: true, LastSeenAt: base, LastToggleAt: base}
	if r.Stale(present, base.Add(time.Hour)) {
		t.Error("present entity reported stale")
	}
}
