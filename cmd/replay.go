package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database/postgres"
	"github.com/kozaktomas/face-attendance/internal/detector"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/pipeline"
	"github.com/kozaktomas/face-attendance/internal/snapshot"
)

var replayCmd = &cobra.Command{
	Use:   "replay <frames.jsonl>",
	Short: "Replay recorded detector frames through the pipeline",
	Long: `Replay recorded detector frames through the full pipeline without
touching the attendance backend. Each line of the input file is one
detector frame in the same JSON format the detector serves. Useful for
tuning timing profiles and recognition thresholds against a recorded
session.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().Bool("live", false, "Send toggles to the real attendance backend instead of dry run")
	replayCmd.Flags().String("snapshot-dir", "", "Write unknown-face crops to this directory")
}

// dryRunGateway accepts every toggle without side effects. Toggles for
// different entities may arrive concurrently.
type dryRunGateway struct {
	mu     sync.Mutex
	visits map[string]int
}

func (g *dryRunGateway) toggle(id string) (*attendance.ToggleResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.visits == nil {
		g.visits = make(map[string]int)
	}
	g.visits[id]++
	status := attendance.StatusCheckedIn
	if g.visits[id]%2 == 0 {
		status = attendance.StatusCheckedOut
	}
	return &attendance.ToggleResult{Status: status, Visits: (g.visits[id] + 1) / 2}, nil
}

func (g *dryRunGateway) ToggleKnown(ctx context.Context, personID string, at time.Time) (*attendance.ToggleResult, error) {
	return g.toggle(personID)
}

func (g *dryRunGateway) ToggleUnknown(ctx context.Context, fp string, at time.Time, ref string) (*attendance.ToggleResult, error) {
	return g.toggle(fp)
}

// labelResolver resolves every label to itself, so dry runs need no
// people directory.
type labelResolver struct{}

func (labelResolver) FindByName(ctx context.Context, name string) (string, error) {
	return name, nil
}

func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("could not open input: %w", err)
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		if len(scanner.Bytes()) > 0 {
			count++
		}
	}
	return count, scanner.Err()
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.Initialize(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	defer pool.Close()

	ctx := context.Background()
	g := gallery.New()
	if err := g.Refresh(ctx, postgres.NewGalleryRepository(pool)); err != nil {
		return fmt.Errorf("failed to load gallery: %w", err)
	}
	if g.Size() == 0 {
		return errors.New("enrollment gallery is empty, enroll people before replaying")
	}
	fmt.Printf("Loaded gallery with %d people (profile %q)\n", g.Size(), cfg.Presence.Profile)

	var gateway attendance.Gateway
	var directory pipeline.PersonResolver
	if mustGetBool(cmd, "live") {
		if cfg.Attendance.URL == "" {
			return errors.New("ATTENDANCE_URL environment variable is required for --live")
		}
		client, err := attendance.NewClient(cfg.Attendance.URL, cfg.Attendance.APIKey, cfg.Attendance.Timeout)
		if err != nil {
			return err
		}
		dir := attendance.NewDirectory(client)
		if err := dir.Refresh(ctx); err != nil {
			return fmt.Errorf("failed to load people directory: %w", err)
		}
		gateway = client
		directory = dir
	} else {
		gateway = &dryRunGateway{}
		directory = labelResolver{}
	}

	total, err := countLines(args[0])
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("could not open input: %w", err)
	}
	defer f.Close()

	var snapshots snapshot.Store
	if dir := mustGetString(cmd, "snapshot-dir"); dir != "" {
		snapshots, err = snapshot.NewDir(dir)
		if err != nil {
			return err
		}
	}

	processor := newProcessor(cfg, g, gateway, directory, snapshots, nil, nil)

	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Replaying frames"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("frames"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		line++
		tick, err := detector.ParseFrame(scanner.Bytes())
		if err != nil {
			log.Printf("skipping frame %d: %v", line, err)
			continue
		}
		processor.ProcessTick(ctx, tick)
		_ = bar.Add(1)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	processor.Flush(30 * time.Second)

	events := processor.RecentEvents()
	fmt.Printf("\nReplay finished: %d frames, %d events\n", line, len(events))
	for _, ev := range events {
		fmt.Printf("  %s  %-30s %s\n", ev.At.Format("15:04:05"), ev.Name, ev.Action)
	}
	return nil
}
