package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/kozaktomas/facial-attendance/internal/attendance"
	"github.com/kozaktomas/facial-attendance/internal/config"
	"github.com/kozaktomas/facial-attendance/internal/constants"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll",
	Short: "Enroll student faces",
	Long:  `Commands for enrolling face embeddings of students.`,
}

var enrollDirCmd = &cobra.Command{
	Use:   "dir <directory>",
	Short: "Enroll every student folder in a directory",
	Long: `Enroll students from a directory with one folder per registration number:

  photos/
    21BCE001/  front.jpg side.jpg
    21BCE002/  portrait.png

The embeddings of all usable images in a folder are averaged. Names are taken
from the student directory.

Examples:
  # Enroll all students
  facial-attendance enroll dir ./photos

  # JSON output
  facial-attendance enroll dir ./photos --json`,
	Args: cobra.ExactArgs(1),
	RunE: runEnrollDir,
}

var enrollImagesCmd = &cobra.Command{
	Use:   "images <reg-no> <image>...",
	Short: "Enroll one student from image files",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runEnrollImages,
}

func init() {
	rootCmd.AddCommand(enrollCmd)
	enrollCmd.AddCommand(enrollDirCmd)
	enrollCmd.AddCommand(enrollImagesCmd)

	enrollDirCmd.Flags().Bool("json", false, "Output as JSON")
	enrollImagesCmd.Flags().String("name", "", "Display name (default from the student directory)")
}

// EnrollDirResult represents the result of a directory enrollment
type EnrollDirResult struct {
	Success    bool                      `json:"success"`
	Students   int                       `json:"students"`
	Enrolled   int                       `json:"enrolled"`
	Failed     map[string]string         `json:"failed,omitempty"`
	Results    []attendance.EnrollResult `json:"results"`
	DurationMs int64                     `json:"duration_ms"`
}

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".webp"}

// readImages reads all image files directly inside dir.
func readImages(dir string) ([][]byte, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var images [][]byte
	for _, e := range entries {
		if e.IsDir() || !slices.Contains(imageExtensions, strings.ToLower(filepath.Ext(e.Name()))) {
			continue
		}
		if len(images) == constants.MaxEnrollImages {
			break
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		images = append(images, data)
	}
	return images, nil
}

func runEnrollDir(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")
	root := args[0]

	entries, err := os.ReadDir(root)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", root, err)
	}
	var regNos []string
	for _, e := range entries {
		if e.IsDir() {
			regNos = append(regNos, e.Name())
		}
	}
	if len(regNos) == 0 {
		return fmt.Errorf("no student folders found in %s", root)
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

	var bar *progressbar.ProgressBar
	if !jsonOutput {
		bar = progressbar.NewOptions(len(regNos),
			progressbar.OptionSetDescription("Enrolling"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("students"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
		)
	}

	startTime := time.Now()
	result := EnrollDirResult{Students: len(regNos), Failed: map[string]string{}}
	for _, regNo := range regNos {
		res, err := enrollFolder(ctx, a.service, regNo, filepath.Join(root, regNo))
		if err != nil {
			result.Failed[regNo] = err.Error()
		} else {
			result.Results = append(result.Results, *res)
		}
		if bar != nil {
			bar.Add(1)
		}
	}
	if bar != nil {
		fmt.Println()
	}

	duration := time.Since(startTime)
	result.Success = len(result.Failed) == 0
	result.Enrolled = len(result.Results)
	result.DurationMs = duration.Milliseconds()

	if jsonOutput {
		return outputJSON(result)
	}

	fmt.Println("\nEnrollment complete!")
	fmt.Printf("  Students: %d\n", result.Students)
	fmt.Printf("  Enrolled: %d\n", result.Enrolled)
	for _, r := range result.Results {
		for _, c := range r.Conflicts {
			fmt.Printf("  Warning: %s resembles %s (%s), similarity %.3f\n", r.RegNo, c.RegNo, c.DisplayName, c.Similarity)
		}
	}
	for regNo, msg := range result.Failed {
		fmt.Printf("  Failed %s: %s\n", regNo, msg)
	}
	fmt.Printf("  Duration: %s\n", formatDuration(duration))
	return nil
}

func enrollFolder(ctx context.Context, svc *attendance.Service, regNo, dir string) (*attendance.EnrollResult, error) {
	images, err := readImages(dir)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, errors.New("no images")
	}
	return svc.Enroll(ctx, regNo, "", images)
}

func runEnrollImages(cmd *cobra.Command, args []string) error {
	regNo := args[0]
	name := mustGetString(cmd, "name")

	images := make([][]byte, 0, len(args)-1)
	for _, path := range args[1:] {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		images = append(images, data)
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

	res, err := a.service.Enroll(ctx, regNo, name, images)
	if err != nil {
		return err
	}
	fmt.Printf("Enrolled %s (%s) from %d images, %d skipped\n", res.RegNo, res.DisplayName, res.Processed, res.Skipped)
	for _, c := range res.Conflicts {
		fmt.Printf("  Warning: resembles %s (%s), similarity %.3f\n", c.RegNo, c.DisplayName, c.Similarity)
	}
	return nil
}
