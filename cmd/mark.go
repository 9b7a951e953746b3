package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/kozaktomas/facial-attendance/internal/config"
	"github.com/kozaktomas/facial-attendance/internal/constants"
	"github.com/spf13/cobra"
)

var markCmd = &cobra.Command{
	Use:   "mark <image>",
	Short: "Mark attendance from a face image",
	Long: `Recognize the face in an image and mark the student present in a session.
Intended for offline kiosks; the record is stored with mode "offline".

Examples:
  facial-attendance mark capture.jpg --session DBMS-A`,
	Args: cobra.ExactArgs(1),
	RunE: runMark,
}

func init() {
	rootCmd.AddCommand(markCmd)

	markCmd.Flags().String("session", "", "Session name (required)")
	markCmd.Flags().String("mode", constants.ModeOffline, "Attendance mode recorded with the entry")
	markCmd.Flags().Bool("json", false, "Output as JSON")
	_ = markCmd.MarkFlagRequired("session")
}

func runMark(cmd *cobra.Command, args []string) error {
	sessionName := mustGetString(cmd, "session")
	mode := mustGetString(cmd, "mode")
	jsonOutput := mustGetBool(cmd, "json")

	image, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	ctx := context.Background()
	a, err := newApp(ctx, config.Load())
	if err != nil {
		return err
	}
	defer a.Close()
	if !a.service.HasExtractor() {
		return errors.New("EMBEDDING_URL environment variable is required")
	}

	result, err := a.service.ResolveImageAndMark(ctx, image, sessionName, mode)
	if err != nil {
		return err
	}
	if jsonOutput {
		return outputJSON(result)
	}

	fmt.Println(result.Message)
	if result.Identity != nil {
		fmt.Printf("  Student:    %s\n", result.Identity.RegNo)
		fmt.Printf("  Similarity: %.3f\n", result.Identity.Similarity)
	}
	if result.Record != nil {
		fmt.Printf("  Recorded:   %s %s (%s)\n", result.Record.Date, result.Record.Time, result.Record.Mode)
	}
	return nil
}
