// Package presence implements the per-entity attendance state machine that
// converts noisy seen/not-seen signals into confirmed check-in and
// check-out transitions.
//
// The state machine is split in two halves so that a failed gateway call
// cannot corrupt local state: Observe records the observation and reports
// the transition that is ready to confirm, Commit applies the transition.
// The orchestrator calls Commit only after the external attendance store
// acknowledged the toggle; until then the timing windows stay open and the
// same transition re-fires on the next qualifying tick.
package presence

import "time"

// Kind distinguishes gallery identities from unknown fingerprints.
type Kind string

const (
	KindKnown   Kind = "known"
	KindUnknown Kind = "unknown"
)

// Key identifies one tracked entity: a known label or an unknown fingerprint.
type Key struct {
	Kind Kind
	ID   string
}

func (k Key) String() string {
	return string(k.Kind) + ":" + k.ID
}

// Action is the transition a tick resolved to.
type Action int

const (
	ActionNone Action = iota
	ActionCheckIn
	ActionCheckOut
)

func (a Action) String() string {
	switch a {
	case ActionCheckIn:
		return "check-in"
	case ActionCheckOut:
		return "check-out"
	default:
		return "none"
	}
}

// State holds the presence bookkeeping for one entity. Zero value means
// the entity has never been observed.
type State struct {
	Present      bool      // check-in confirmed, no check-out confirmed since
	FirstSeenAt  time.Time // start of the open entering window, zero if none
	LastSeenAt   time.Time // most recent tick the entity was seen
	EnteredAt    time.Time // when the last check-in was confirmed
	LastToggleAt time.Time // time of the last confirmed transition
	MissingSince time.Time // start of the open leaving window, zero if none
}

// Phase returns the human-readable state machine phase.
func (s *State) Phase() string {
	switch {
	case s.Present && !s.MissingSince.IsZero():
		return "leaving"
	case s.Present:
		return "present"
	case !s.FirstSeenAt.IsZero():
		return "entering"
	default:
		return "absent"
	}
}

// Rules holds the timing windows governing transitions.
type Rules struct {
	AppearSustain time.Duration // continuous observation required before check-in
	AbsenceGrace  time.Duration // continuous absence required before check-out
	EventDebounce time.Duration // global floor between any two toggles per entity
	MinSession    time.Duration // minimum time between check-in and check-out
}

// Observe folds one tick's observation into the state and returns the
// transition that is ready to confirm, if any. Only observation
// bookkeeping is mutated; confirmed-transition fields change in Commit.
func (r Rules) Observe(st *State, now time.Time, seen bool) Action {
	if seen {
		st.LastSeenAt = now
		st.MissingSince = time.Time{}

		if st.Present {
			return ActionNone
		}
		if st.FirstSeenAt.IsZero() {
			st.FirstSeenAt = now
		}
		if now.Sub(st.FirstSeenAt) >= r.AppearSustain && r.debounced(st, now) {
			return ActionCheckIn
		}
		return ActionNone
	}

	if !st.Present {
		// Transient flicker that never sustained: collapse the entering
		// window without producing an event.
		st.FirstSeenAt = time.Time{}
		return ActionNone
	}

	if st.MissingSince.IsZero() {
		st.MissingSince = now
	}
	if now.Sub(st.MissingSince) >= r.AbsenceGrace &&
		now.Sub(st.EnteredAt) >= r.MinSession &&
		r.debounced(st, now) {
		return ActionCheckOut
	}
	return ActionNone
}

// Commit applies a confirmed transition. Call only after the attendance
// gateway accepted the toggle.
func (r Rules) Commit(st *State, act Action, now time.Time) {
	switch act {
	case ActionCheckIn:
		st.Present = true
		st.EnteredAt = now
		st.LastToggleAt = now
		st.FirstSeenAt = time.Time{}
	case ActionCheckOut:
		st.Present = false
		st.EnteredAt = time.Time{}
		st.MissingSince = time.Time{}
		st.FirstSeenAt = time.Time{}
		st.LastToggleAt = now
	}
}

// StaleAfter is how long a never-confirmed entity may stay unseen before
// its state is reclaimed.
func (r Rules) StaleAfter() time.Duration {
	return 3 * r.AbsenceGrace
}

// Stale reports whether the state belongs to an entity that never reached
// Present and has been unseen long enough to reclaim. LastToggleAt is the
// never-confirmed marker: it is only ever set by Commit.
func (r Rules) Stale(st *State, now time.Time) bool {
	if st.Present || !st.LastToggleAt.IsZero() {
		return false
	}
	if st.LastSeenAt.IsZero() {
		return false
	}
	return now.Sub(st.LastSeenAt) > r.StaleAfter()
}

func (r Rules) debounced(st *State, now time.Time) bool {
	return st.LastToggleAt.IsZero() || now.Sub(st.LastToggleAt) >= r.EventDebounce
}
