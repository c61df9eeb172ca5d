// Package eventlog appends confirmed attendance events to a daily CSV
// file. The log is the local audit trail; the attendance backend stays
// the source of truth.
package eventlog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

var header = []string{"Name", "Time", "Event"}

// Writer appends events to <dir>/<YYYY-MM-DD>.csv, rolling over to a new
// file at midnight. It is not goroutine safe; all access happens on the
// tick loop goroutine.
type Writer struct {
	dir  string
	day  string
	file *os.File
	csv  *csv.Writer
}

func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("could not create event log directory: %w", err)
	}
	return &Writer{dir: dir}, nil
}

// Append writes one event row and flushes it to disk.
func (w *Writer) Append(name string, at time.Time, event string) error {
	if err := w.rotate(at); err != nil {
		return err
	}

	if err := w.csv.Write([]string{name, at.Format("15:04:05"), event}); err != nil {
		return fmt.Errorf("could not write event row: %w", err)
	}
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return fmt.Errorf("could not flush event log: %w", err)
	}
	return nil
}

// rotate opens the file for the event's day, writing the header when the
// file is new.
func (w *Writer) rotate(at time.Time) error {
	day := at.Format("2006-01-02")
	if w.file != nil && day == w.day {
		return nil
	}

	if w.file != nil {
		_ = w.file.Close()
		w.file = nil
	}

	path := filepath.Join(w.dir, day+".csv")
	info, statErr := os.Stat(path)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
	if err != nil {
		return fmt.Errorf("could not open event log: %w", err)
	}

	w.file = f
	w.csv = csv.NewWriter(f)
	w.day = day

	if statErr != nil || info.Size() == 0 {
		if err := w.csv.Write(header); err != nil {
			return fmt.Errorf("could not write event log header: %w", err)
		}
		w.csv.Flush()
		if err := w.csv.Error(); err != nil {
			return fmt.Errorf("could not flush event log header: %w", err)
		}
	}
	return nil
}

// Close closes the current day's file.
func (w *Writer) Close() error {
	if w.file == nil {
		return nil
	}
	w.csv.Flush()
	err := w.file.Close()
	w.file = nil
	return err
}
