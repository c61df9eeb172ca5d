package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Dir stores snapshots on the local filesystem. Useful for single-box
// deployments and for replaying recorded sessions without a bucket.
type Dir struct {
	root string
}

func NewDir(root string) (*Dir, error) {
	if err := os.MkdirAll(root, 0750); err != nil {
		return nil, fmt.Errorf("could not create snapshot directory: %w", err)
	}
	return &Dir{root: root}, nil
}

// Upload writes the crop to disk and returns the file name as reference.
func (d *Dir) Upload(_ context.Context, fp string, at time.Time, jpeg []byte) (string, error) {
	name := objectName(fp, at)
	if err := os.WriteFile(filepath.Join(d.root, name), jpeg, 0640); err != nil {
		return "", fmt.Errorf("could not write snapshot: %w", err)
	}
	return name, nil
}
