package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/facial-attendance/internal/config"
	"github.com/kozaktomas/facial-attendance/internal/database"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Session definition commands",
}

var sessionCreateCmd = &cobra.Command{
	Use:   "create <session-name>",
	Short: "Create a session",
	Long: `Create a session definition. Attendance is marked against the session
name; the subject groups sessions on student dashboards.

Examples:
  facial-attendance session create DBMS-A --subject DBMS --total-classes 40 \
    --department CSE --year 2 --section A --faculty-email prof@example.edu`,
	Args: cobra.ExactArgs(1),
	RunE: runSessionCreate,
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions",
	RunE:  runSessionList,
}

var sessionAttendanceCmd = &cobra.Command{
	Use:   "attendance <session-name>",
	Short: "Show who was present in a session on a day",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionAttendance,
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionCreateCmd)
	sessionCmd.AddCommand(sessionListCmd)
	sessionCmd.AddCommand(sessionAttendanceCmd)

	sessionCreateCmd.Flags().String("subject", "", "Subject the session belongs to (required)")
	sessionCreateCmd.Flags().Int("total-classes", 0, "Number of classes planned for the session")
	sessionCreateCmd.Flags().String("department", "", "Department")
	sessionCreateCmd.Flags().Int("year", 0, "Year of study")
	sessionCreateCmd.Flags().String("section", "", "Section")
	sessionCreateCmd.Flags().String("faculty-email", "", "Faculty contact email")
	_ = sessionCreateCmd.MarkFlagRequired("subject")

	sessionListCmd.Flags().Bool("json", false, "Output as JSON")

	sessionAttendanceCmd.Flags().String("date", "", "Date as YYYY-MM-DD (default today)")
	sessionAttendanceCmd.Flags().Bool("json", false, "Output as JSON")
}

func runSessionCreate(cmd *cobra.Command, args []string) error {
	session := database.Session{
		SessionName:  args[0],
		Subject:      mustGetString(cmd, "subject"),
		TotalClasses: mustGetInt(cmd, "total-classes"),
		Department:   mustGetString(cmd, "department"),
		Year:         mustGetInt(cmd, "year"),
		Section:      mustGetString(cmd, "section"),
		FacultyEmail: mustGetString(cmd, "faculty-email"),
	}

	ctx := context.Background()
	a, err := newApp(ctx, config.Load())
	if err != nil {
		return err
	}
	defer a.Close()

	created, err := a.service.CreateSession(ctx, session)
	if err != nil {
		return err
	}
	fmt.Printf("Created session %s (subject %s, %d classes)\n", created.SessionName, created.Subject, created.TotalClasses)
	return nil
}

func runSessionList(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")

	ctx := context.Background()
	a, err := newApp(ctx, config.Load())
	if err != nil {
		return err
	}
	defer a.Close()

	sessions, err := a.service.ListSessions(ctx)
	if err != nil {
		return err
	}
	if jsonOutput {
		return outputJSON(sessions)
	}

	fmt.Printf("\n%-20s %-24s %8s\n", "SESSION", "SUBJECT", "CLASSES")
	for _, s := range sessions {
		fmt.Printf("%-20s %-24s %8d\n", s.SessionName, s.Subject, s.TotalClasses)
	}
	fmt.Printf("\nTotal: %d\n", len(sessions))
	return nil
}

func runSessionAttendance(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")
	cfg := config.Load()

	date := mustGetString(cmd, "date")
	if date == "" {
		date = time.Now().In(cfg.Ledger.Location()).Format(database.DateLayout)
	}

	ctx := context.Background()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	records, err := a.service.ListSessionAttendance(ctx, args[0], date)
	if err != nil {
		return err
	}
	if jsonOutput {
		return outputJSON(records)
	}

	fmt.Printf("\n%s on %s\n\n", args[0], date)
	for _, r := range records {
		fmt.Printf("%-16s %-28s %s %s\n", r.RegNo, r.DisplayName, r.Time, r.Mode)
	}
	fmt.Printf("\nPresent: %d\n", len(records))
	return nil
}
