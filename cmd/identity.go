package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/kozaktomas/facial-attendance/internal/config"
	"github.com/spf13/cobra"
)

var identityCmd = &cobra.Command{
	Use:   "identity",
	Short: "Enrolled identity commands",
}

var identityListCmd = &cobra.Command{
	Use:   "list",
	Short: "List enrolled identities",
	RunE:  runIdentityList,
}

var identityDeleteCmd = &cobra.Command{
	Use:   "delete <reg-no>",
	Short: "Delete the enrolled face of a student",
	Args:  cobra.ExactArgs(1),
	RunE:  runIdentityDelete,
}

func init() {
	rootCmd.AddCommand(identityCmd)
	identityCmd.AddCommand(identityListCmd)
	identityCmd.AddCommand(identityDeleteCmd)

	identityListCmd.Flags().Bool("json", false, "Output as JSON")
	identityDeleteCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
}

func runIdentityList(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")

	a, err := newApp(context.Background(), config.Load())
	if err != nil {
		return err
	}
	defer a.Close()

	identities := a.service.ListIdentities()
	if jsonOutput {
		return outputJSON(identities)
	}

	fmt.Printf("\n%-16s %s\n", "REG NO", "NAME")
	for _, id := range identities {
		fmt.Printf("%-16s %s\n", id.RegNo, id.DisplayName)
	}
	fmt.Printf("\nTotal: %d\n", len(identities))
	return nil
}

// confirm asks a yes/no question on stdin.
func confirm(question string) bool {
	fmt.Printf("%s (y/n): ", question)
	answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	return strings.ToLower(strings.TrimSpace(answer)) == "y"
}

func runIdentityDelete(cmd *cobra.Command, args []string) error {
	regNo := args[0]
	yes := mustGetBool(cmd, "yes")

	ctx := context.Background()
	a, err := newApp(ctx, config.Load())
	if err != nil {
		return err
	}
	defer a.Close()

	entry, ok := a.service.Identity(regNo)
	if !ok {
		return fmt.Errorf("no enrolled face for registration number %s", regNo)
	}
	fmt.Printf("Found: %s (%s)\n", entry.RegNo, entry.DisplayName)
	if !yes && !confirm("Delete this enrolled face?") {
		fmt.Println("Deletion cancelled.")
		return nil
	}

	if _, err := a.service.DeleteIdentity(ctx, regNo); err != nil {
		return err
	}
	fmt.Printf("Deleted enrolled face of %s\n", regNo)
	return nil
}
