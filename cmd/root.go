package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "face-attendance",
	Short: "Temporal stabilization layer between a face detector and an attendance backend",
	Long: `Face Attendance consumes per-frame face detections, smooths them over
time and turns them into reliable check-in and check-out events in an
external attendance backend. Unrecognized faces are tracked by embedding
fingerprint so visitors get attendance records too.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
