package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/facial-attendance/internal/attendance"
	"github.com/kozaktomas/facial-attendance/internal/config"
	"github.com/kozaktomas/facial-attendance/internal/database"
	"github.com/spf13/cobra"
)

var studentCmd = &cobra.Command{
	Use:   "student",
	Short: "Student directory commands",
}

var studentAddCmd = &cobra.Command{
	Use:   "add <reg-no> <first-name> [last-name]",
	Short: "Add or update a student",
	Long: `Add or update a student in the local directory.
Not available when DIRECTORY_DATABASE_URL points to an external directory.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runStudentAdd,
}

var studentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List students with their enrollment status",
	RunE:  runStudentList,
}

func init() {
	rootCmd.AddCommand(studentCmd)
	studentCmd.AddCommand(studentAddCmd)
	studentCmd.AddCommand(studentListCmd)

	studentAddCmd.Flags().String("department", "", "Department")
	studentAddCmd.Flags().String("email", "", "Email address")

	studentListCmd.Flags().String("query", "", "Filter by registration number or name")
	studentListCmd.Flags().Bool("unenrolled", false, "Only students without an enrolled face")
	studentListCmd.Flags().Bool("json", false, "Output as JSON")
}

func runStudentAdd(cmd *cobra.Command, args []string) error {
	student := database.Student{
		RegNo:      args[0],
		FirstName:  args[1],
		Department: mustGetString(cmd, "department"),
		Email:      mustGetString(cmd, "email"),
	}
	if len(args) == 3 {
		student.LastName = args[2]
	}

	ctx := context.Background()
	a, err := newApp(ctx, config.Load())
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.service.UpsertStudent(ctx, student); err != nil {
		return err
	}
	fmt.Printf("Saved student %s (%s)\n", student.RegNo, student.DisplayName())
	return nil
}

func runStudentList(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")
	filter := attendance.StudentFilter{Query: mustGetString(cmd, "query")}
	if mustGetBool(cmd, "unenrolled") {
		enrolled := false
		filter.Enrolled = &enrolled
	}

	ctx := context.Background()
	a, err := newApp(ctx, config.Load())
	if err != nil {
		return err
	}
	defer a.Close()

	students, err := a.service.ListStudents(ctx, filter)
	if err != nil {
		return err
	}
	if jsonOutput {
		return outputJSON(students)
	}

	fmt.Printf("\n%-16s %-32s %s\n", "REG NO", "NAME", "ENROLLED")
	for _, s := range students {
		enrolled := "no"
		if s.Enrolled {
			enrolled = "yes"
		}
		fmt.Printf("%-16s %-32s %s\n", s.RegNo, s.DisplayName(), enrolled)
	}
	fmt.Printf("\nTotal: %d\n", len(students))
	return nil
}
