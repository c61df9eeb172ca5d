// Package snapshot stores face crops of unknown visitors so a staff
// member can later match a fingerprint to a real person. Upload failures
// are reported but never block attendance: a check-in without a snapshot
// beats no check-in.
package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/face-attendance/internal/fingerprint"
)

// Store persists one face crop and returns a stable reference to it.
type Store interface {
	Upload(ctx context.Context, fp string, at time.Time, jpeg []byte) (string, error)
}

// objectName builds the snapshot object name. The fingerprint prefix
// keeps snapshots of one visitor adjacent in listings; the uuid makes
// repeated uploads within one second distinct.
func objectName(fp string, at time.Time) string {
	return fmt.Sprintf("%s_%s_%s.jpg",
		fingerprint.Prefix(fp),
		at.UTC().Format("20060102T150405"),
		uuid.NewString()[:8],
	)
}
