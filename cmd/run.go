package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database/postgres"
	"github.com/kozaktomas/face-attendance/internal/detector"
	"github.com/kozaktomas/face-attendance/internal/eventlog"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/identify"
	"github.com/kozaktomas/face-attendance/internal/pipeline"
	"github.com/kozaktomas/face-attendance/internal/presence"
	"github.com/kozaktomas/face-attendance/internal/snapshot"
	"github.com/kozaktomas/face-attendance/internal/unknowns"
	"github.com/kozaktomas/face-attendance/internal/web"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the attendance tick loop",
	Long: `Run the attendance tick loop: poll the face detector, smooth the
detections over time and toggle presence in the attendance backend.
Also serves the read-only ops API.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Int("port", 0, "Ops API port (overrides WEB_PORT)")
	runCmd.Flags().Bool("no-web", false, "Disable the ops API server")
}

// newProcessor builds the pipeline from configuration. Shared by run and
// replay, which differ only in gateway and side-effect wiring.
func newProcessor(
	cfg *config.Config,
	g *gallery.Gallery,
	gateway attendance.Gateway,
	directory pipeline.PersonResolver,
	snapshots snapshot.Store,
	events *eventlog.Writer,
	sightings pipeline.SightingRecorder,
) *pipeline.Processor {
	return pipeline.NewProcessor(
		pipeline.Options{
			Rules: presence.Rules{
				AppearSustain: cfg.Presence.AppearSustain,
				AbsenceGrace:  cfg.Presence.AbsenceGrace,
				EventDebounce: cfg.Presence.EventDebounce,
				MinSession:    cfg.Presence.MinSession,
			},
			MinBoxSize: cfg.Recognition.MinBoxSize,
		},
		identify.NewIdentifier(g, cfg.Recognition.Tolerance, cfg.Recognition.GapMargin),
		identify.NewVoter(cfg.Recognition.VotesWindow, cfg.Recognition.VotesRequired),
		unknowns.NewResolver(cfg.Recognition.UnknownMergeDistance),
		gateway,
		directory,
		snapshots,
		events,
		sightings,
	)
}

// newSnapshotStore picks the snapshot backend from configuration. Returns
// nil when snapshots are disabled.
func newSnapshotStore(cfg *config.SnapshotConfig) (snapshot.Store, error) {
	if cfg.BucketURL != "" {
		return snapshot.NewBucket(cfg.BucketURL, cfg.APIKey, cfg.Timeout)
	}
	if cfg.LocalDir != "" {
		return snapshot.NewDir(cfg.LocalDir)
	}
	return nil, nil
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}
	if cfg.Attendance.URL == "" {
		return errors.New("ATTENDANCE_URL environment variable is required")
	}

	fmt.Printf("Connecting to PostgreSQL database...\n")
	pool, err := postgres.Initialize(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	defer pool.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo := postgres.NewGalleryRepository(pool)
	g := gallery.New()
	if err := g.Refresh(ctx, repo); err != nil {
		return fmt.Errorf("failed to load gallery: %w", err)
	}
	if g.Size() == 0 {
		return errors.New("enrollment gallery is empty, enroll people before running")
	}
	fmt.Printf("Loaded gallery with %d people (profile %q)\n", g.Size(), cfg.Presence.Profile)

	client, err := attendance.NewClient(cfg.Attendance.URL, cfg.Attendance.APIKey, cfg.Attendance.Timeout)
	if err != nil {
		return err
	}
	directory := attendance.NewDirectory(client)
	if err := directory.Refresh(ctx); err != nil {
		return fmt.Errorf("failed to load people directory: %w", err)
	}
	fmt.Printf("People directory loaded with %d people\n", directory.Size())

	snapshots, err := newSnapshotStore(&cfg.Snapshot)
	if err != nil {
		return err
	}

	var events *eventlog.Writer
	if cfg.EventLogDir != "" {
		events, err = eventlog.NewWriter(cfg.EventLogDir)
		if err != nil {
			return err
		}
		defer events.Close()
	}

	processor := newProcessor(cfg, g, client, directory, snapshots, events, repo)

	if !mustGetBool(cmd, "no-web") {
		port := cfg.Web.Port
		if flagPort := mustGetInt(cmd, "port"); flagPort != 0 {
			port = flagPort
		}
		server := web.NewServer(port, processor, g, directory)
		go func() {
			if err := server.Start(); err != nil {
				log.Printf("ops API server failed: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Printf("Error during shutdown: %v", err)
			}
		}()
	}

	dc := detector.NewClient(cfg.Detector.URL, cfg.Detector.Timeout)
	ticker := time.NewTicker(cfg.Presence.PollInterval)
	defer ticker.Stop()

	fmt.Printf("Polling detector every %s. Press Ctrl+C to stop\n", cfg.Presence.PollInterval)
	for {
		select {
		case <-ctx.Done():
			fmt.Println("\nShutting down...")
			processor.Flush(10 * time.Second)
			return nil
		case <-ticker.C:
			tick, err := dc.NextTick(ctx)
			if err != nil {
				if ctx.Err() != nil {
					continue
				}
				log.Printf("detector tick failed: %v", err)
				continue
			}
			processor.ProcessTick(ctx, tick)
		}
	}
}
