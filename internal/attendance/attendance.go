// Package attendance talks to the attendance backend. The backend owns
// the attendance records; this package only toggles presence and reads
// the people directory.
package attendance

import (
	"context"
	"errors"
	"time"
)

// Toggle outcomes reported by the backend.
const (
	StatusCheckedIn  = "checked-in"
	StatusCheckedOut = "checked-out"
)

// ErrPersonNotFound is returned when a gallery label has no person record
// in the backend directory.
var ErrPersonNotFound = errors.New("person not found in attendance directory")

// ToggleResult is the backend's answer to a toggle request.
type ToggleResult struct {
	Status string `json:"status"`
	Visits int    `json:"visits"`
}

// Person is one entry of the backend people directory.
type Person struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Gateway flips presence records in the attendance backend. The backend
// decides the direction: a toggle for a checked-out person checks them
// in and vice versa, so retrying a failed call is safe.
type Gateway interface {
	// ToggleKnown flips the presence record of a directory person.
	ToggleKnown(ctx context.Context, personID string, at time.Time) (*ToggleResult, error)

	// ToggleUnknown flips the presence record of an unknown visitor
	// identified by fingerprint. snapshotRef may be empty when no face
	// snapshot was stored.
	ToggleUnknown(ctx context.Context, fingerprint string, at time.Time, snapshotRef string) (*ToggleResult, error)
}

// PeopleLister reads the backend people directory.
type PeopleLister interface {
	ListPeople(ctx context.Context) ([]Person, error)
}
