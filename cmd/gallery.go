package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database/postgres"
	"github.com/kozaktomas/face-attendance/internal/gallery"
)

var galleryCmd = &cobra.Command{
	Use:   "gallery",
	Short: "Inspect the enrollment gallery",
}

var galleryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List enrolled people and their enrollment counts",
	RunE:  runGalleryList,
}

var galleryStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show gallery and unknown-visitor statistics",
	RunE:  runGalleryStats,
}

func init() {
	rootCmd.AddCommand(galleryCmd)
	galleryCmd.AddCommand(galleryListCmd)
	galleryCmd.AddCommand(galleryStatsCmd)

	galleryStatsCmd.Flags().Int("unknowns", 10, "Number of recent unknown visitors to show")
}

func openGalleryRepo() (*postgres.Pool, *postgres.GalleryRepository, error) {
	cfg := config.Load()
	if cfg.Database.URL == "" {
		return nil, nil, errors.New("DATABASE_URL environment variable is required")
	}
	pool, err := postgres.Initialize(&cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	return pool, postgres.NewGalleryRepository(pool), nil
}

func runGalleryList(cmd *cobra.Command, args []string) error {
	pool, repo, err := openGalleryRepo()
	if err != nil {
		return err
	}
	defer pool.Close()

	ctx := context.Background()
	g := gallery.New()
	if err := g.Refresh(ctx, repo); err != nil {
		return fmt.Errorf("failed to load gallery: %w", err)
	}

	if g.Size() == 0 {
		fmt.Println("Gallery is empty")
		return nil
	}
	for _, label := range g.Labels() {
		fmt.Printf("%-30s %d enrollments\n", label, len(g.Embeddings(label)))
	}
	return nil
}

func runGalleryStats(cmd *cobra.Command, args []string) error {
	pool, repo, err := openGalleryRepo()
	if err != nil {
		return err
	}
	defer pool.Close()

	ctx := context.Background()
	people, err := repo.CountPeople(ctx)
	if err != nil {
		return err
	}
	enrollments, err := repo.CountEnrollments(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("People:      %d\n", people)
	fmt.Printf("Enrollments: %d\n", enrollments)

	unknowns, err := repo.ListUnknownSightings(ctx, mustGetInt(cmd, "unknowns"))
	if err != nil {
		return err
	}
	if len(unknowns) == 0 {
		return nil
	}
	fmt.Printf("\nRecent unknown visitors:\n")
	for _, u := range unknowns {
		fmt.Printf("  %s  seen %dx  last %s  %s\n",
			u.Fingerprint[:8], u.Sightings, u.LastSeen.Format("2006-01-02 15:04"), u.SnapshotRef)
	}
	return nil
}
