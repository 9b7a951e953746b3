package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "facial-attendance",
	Short: "Face recognition attendance for classroom sessions",
	Long: `Facial Attendance resolves face embeddings to enrolled students, records
at most one attendance entry per student, session and day, and reports
per-subject attendance dashboards.

Configuration is read from the environment (and an optional .env file).
DATABASE_URL selects PostgreSQL, or a local SQLite file with sqlite://path.`,
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
