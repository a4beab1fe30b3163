package cli

import (
	"fmt"
	"time"

	"github.com/ogulcanaydogan/pfm-alerts/pkg/fixtures"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load accounts, goals, budgets, bills, transactions and alerts from YAML",
	Long: `Load a YAML fixture document into the store. Without --file the built-in demo
document is loaded for the user "demo-user". Seeding is repeatable: entities are
upserted and alerts that already exist are left untouched.`,
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().StringP("file", "f", "", "Fixture file (default: built-in demo)")
}

func runSeed(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	path, _ := cmd.Flags().GetString("file")

	var doc *fixtures.Document
	if path != "" {
		doc, err = fixtures.Load(path)
	} else {
		doc, err = fixtures.Demo()
	}
	if err != nil {
		return err
	}

	store, err := initStorage(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	sum, err := doc.Apply(cmd.Context(), store, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("apply fixtures: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Seeded:\n")
	fmt.Fprintf(out, "  Users:         %d\n", sum.Users)
	fmt.Fprintf(out, "  Accounts:      %d\n", sum.Accounts)
	fmt.Fprintf(out, "  Goals:         %d\n", sum.Goals)
	fmt.Fprintf(out, "  Budgets:       %d\n", sum.Budgets)
	fmt.Fprintf(out, "  Bills:         %d\n", sum.Bills)
	fmt.Fprintf(out, "  Transactions:  %d\n", sum.Transactions)
	fmt.Fprintf(out, "  Alerts:        %d new, %d existing\n", sum.Alerts, sum.AlertsExisted)

	return nil
}
