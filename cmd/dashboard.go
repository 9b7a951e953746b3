package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/facial-attendance/internal/config"
	"github.com/spf13/cobra"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard <reg-no>",
	Short: "Show the attendance dashboard of a student",
	Args:  cobra.ExactArgs(1),
	RunE:  runDashboard,
}

func init() {
	rootCmd.AddCommand(dashboardCmd)

	dashboardCmd.Flags().Bool("json", false, "Output as JSON")
}

func runDashboard(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")

	ctx := context.Background()
	a, err := newApp(ctx, config.Load())
	if err != nil {
		return err
	}
	defer a.Close()

	data, err := a.service.GetDashboard(ctx, args[0])
	if err != nil {
		return err
	}
	if jsonOutput {
		return outputJSON(data)
	}

	fmt.Printf("\n%s (%s)\n\n", data.Name, data.RegNo)
	fmt.Printf("%-28s %8s %8s %8s\n", "SUBJECT", "ATTENDED", "TOTAL", "PERCENT")
	for _, s := range data.SubjectWise {
		fmt.Printf("%-28s %8d %8d %7.1f%%\n", s.SubjectName, s.Attended, s.Total, s.Percentage)
	}
	fmt.Printf("\nOverall:  %d%%\n", data.Overall.OverallPercentage)
	fmt.Printf("Attended: %d\n", data.Overall.ClassesAttended)
	fmt.Printf("Missed:   %d\n", data.Overall.ClassesMissed)
	return nil
}
