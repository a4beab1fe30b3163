package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/ogulcanaydogan/pfm-alerts/pkg/engine"
	"github.com/spf13/cobra"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate alert rules now",
	Long: `Evaluate alert rules against current data and record a notification for every match.

With --alert a single alert is evaluated. Otherwise every active periodic alert of each
user is evaluated, and --bills adds the daily upcoming_bill pass.`,
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)
	evaluateCmd.Flags().StringSliceP("user", "u", nil, "User id (repeatable)")
	evaluateCmd.Flags().StringP("alert", "a", "", "Evaluate only this alert (requires a single --user)")
	evaluateCmd.Flags().Bool("bills", false, "Also evaluate upcoming_bill alerts")
	evaluateCmd.Flags().Bool("json", false, "Print reports as JSON")
	_ = evaluateCmd.MarkFlagRequired("user")
}

func runEvaluate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	users, _ := cmd.Flags().GetStringSlice("user")
	alertID, _ := cmd.Flags().GetString("alert")
	bills, _ := cmd.Flags().GetBool("bills")
	asJSON, _ := cmd.Flags().GetBool("json")

	d, store, err := initDispatcher(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	if cfg.Evaluation.BatchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Evaluation.BatchTimeout)
		defer cancel()
	}

	out := cmd.OutOrStdout()
	if alertID != "" {
		if len(users) != 1 {
			return errors.New("--alert requires exactly one --user")
		}
		outcome, err := d.EvaluateAlertByID(ctx, users[0], alertID)
		if err != nil {
			return fmt.Errorf("evaluate alert %s: %w", alertID, err)
		}
		if asJSON {
			return writeJSON(out, outcome)
		}
		fmt.Fprintf(out, "Alert %s (%s): %s\n", outcome.AlertID, outcome.Kind, outcome.Status)
		if n := outcome.Notification; n != nil {
			fmt.Fprintf(out, "  %s\n  %s\n", n.Title, n.Message)
		}
		return nil
	}

	reports := d.EvaluateUsers(ctx, users, cfg.Evaluation.Workers)
	if bills {
		for _, userID := range users {
			reports = append(reports, d.EvaluateUpcomingBills(ctx, userID))
		}
	}

	if asJSON {
		return writeJSON(out, reports)
	}
	for _, r := range reports {
		printReport(out, r)
	}
	return nil
}

func printReport(out io.Writer, r engine.BatchReport) {
	fmt.Fprintf(out, "=== %s ===\n", r.UserID)
	fmt.Fprintf(out, "Evaluated: %d  Triggered: %d  Not matched: %d  Skipped: %d  Failed: %d\n",
		r.Evaluated(), r.Triggered, r.NotMatched, r.Skipped, r.Failed)
	if r.Aborted {
		fmt.Fprintln(out, "Batch aborted before completion; see logs.")
	}

	if len(r.Results) > 0 {
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "  ALERT\tKIND\tSTATUS\tERROR\n")
		for _, res := range r.Results {
			fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", res.AlertID, res.Kind, res.Status, res.Error)
		}
		w.Flush()
	}

	for _, n := range r.Notifications {
		fmt.Fprintf(out, "  -> %s\n", n.Title)
	}
	fmt.Fprintln(out)
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
