package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/ogulcanaydogan/pfm-alerts/pkg/model"
	"github.com/spf13/cobra"
)

var alertCmd = &cobra.Command{
	Use:   "alert",
	Short: "Manage alert rules",
}

var alertCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an alert rule",
	Long: `Create an alert rule. Conditions are given as a JSON object whose shape depends on the kind:

  account_threshold   {"threshold": "500", "direction": "below"}
  goal_milestone      {"milestone_percentage": 50}
  merchant_name       {"merchant_pattern": "amazon", "match_type": "contains"}
  spending_target     {"threshold_percentage": 80}
  transaction_limit   {"amount": "1000", "account_id": "optional"}
  upcoming_bill       {"days_before": 3}`,
	RunE: runAlertCreate,
}

var alertListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a user's alert rules",
	RunE:  runAlertList,
}

var alertEnableCmd = &cobra.Command{
	Use:   "enable <alert-id>",
	Short: "Enable an alert rule",
	Args:  cobra.ExactArgs(1),
	RunE:  runAlertSetActive(true),
}

var alertDisableCmd = &cobra.Command{
	Use:   "disable <alert-id>",
	Short: "Disable an alert rule",
	Args:  cobra.ExactArgs(1),
	RunE:  runAlertSetActive(false),
}

var alertDeleteCmd = &cobra.Command{
	Use:   "delete <alert-id>",
	Short: "Delete an alert rule",
	Args:  cobra.ExactArgs(1),
	RunE:  runAlertDelete,
}

func init() {
	rootCmd.AddCommand(alertCmd)
	alertCmd.AddCommand(alertCreateCmd, alertListCmd, alertEnableCmd, alertDisableCmd, alertDeleteCmd)

	alertCreateCmd.Flags().StringP("user", "u", "", "Owning user id")
	alertCreateCmd.Flags().StringP("kind", "k", "", "Alert kind")
	alertCreateCmd.Flags().StringP("name", "n", "", "Alert name")
	alertCreateCmd.Flags().String("source-id", "", "Watched account, goal, budget or bill id")
	alertCreateCmd.Flags().StringP("conditions", "c", "{}", "Conditions as a JSON object")
	alertCreateCmd.Flags().Bool("email", false, "Request email delivery")
	alertCreateCmd.Flags().Bool("sms", false, "Request SMS delivery")
	alertCreateCmd.Flags().Bool("inactive", false, "Create the alert disabled")
	_ = alertCreateCmd.MarkFlagRequired("user")
	_ = alertCreateCmd.MarkFlagRequired("kind")
	_ = alertCreateCmd.MarkFlagRequired("name")

	alertListCmd.Flags().StringP("user", "u", "", "User id")
	_ = alertListCmd.MarkFlagRequired("user")
}

func runAlertCreate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	user, _ := cmd.Flags().GetString("user")
	kind, _ := cmd.Flags().GetString("kind")
	name, _ := cmd.Flags().GetString("name")
	sourceID, _ := cmd.Flags().GetString("source-id")
	rawConditions, _ := cmd.Flags().GetString("conditions")
	email, _ := cmd.Flags().GetBool("email")
	sms, _ := cmd.Flags().GetBool("sms")
	inactive, _ := cmd.Flags().GetBool("inactive")

	var conditions map[string]any
	if err := json.Unmarshal([]byte(rawConditions), &conditions); err != nil {
		return fmt.Errorf("parse conditions: %w", err)
	}

	alert, err := model.NewAlert(model.NewAlertParams{
		UserID:        user,
		Kind:          model.AlertKind(kind),
		Name:          name,
		SourceID:      sourceID,
		Conditions:    conditions,
		EmailDelivery: email,
		SMSDelivery:   sms,
		Active:        !inactive,
	})
	if err != nil {
		return err
	}

	store, err := initStorage(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.CreateAlert(cmd.Context(), alert); err != nil {
		return fmt.Errorf("create alert: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Alert created:\n")
	fmt.Fprintf(out, "  ID:      %s\n", alert.ID)
	fmt.Fprintf(out, "  Kind:    %s\n", alert.Kind)
	fmt.Fprintf(out, "  Name:    %s\n", alert.Name)
	if alert.SourceID != "" {
		fmt.Fprintf(out, "  Source:  %s %s\n", alert.SourceType, alert.SourceID)
	}
	fmt.Fprintf(out, "  Active:  %t\n", alert.Active)

	return nil
}

func runAlertList(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	user, _ := cmd.Flags().GetString("user")

	store, err := initStorage(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	alerts, err := store.ListAlerts(cmd.Context(), user)
	if err != nil {
		return fmt.Errorf("list alerts: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(alerts) == 0 {
		fmt.Fprintln(out, "No alerts configured. Use 'pfa alert create' to add one.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tKIND\tNAME\tSOURCE\tACTIVE\tLAST TRIGGERED\tCONDITIONS\n")
	for _, a := range alerts {
		last := "-"
		if a.LastTriggeredAt != nil {
			last = a.LastTriggeredAt.Format("2006-01-02 15:04")
		}
		conditions := "<undecodable>"
		if a.Conditions != nil {
			b, _ := json.Marshal(a.Conditions.Map())
			conditions = string(b)
		}
		source := "-"
		if a.SourceID != "" {
			source = string(a.SourceType) + ":" + a.SourceID
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\t%s\t%s\n",
			a.ID, a.Kind, a.Name, source, a.Active, last, conditions,
		)
	}
	w.Flush()

	return nil
}

func runAlertSetActive(active bool) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		store, err := initStorage(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.SetAlertActive(cmd.Context(), args[0], active); err != nil {
			return err
		}
		state := "disabled"
		if active {
			state = "enabled"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Alert %s %s\n", args[0], state)
		return nil
	}
}

func runAlertDelete(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := initStorage(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.DeleteAlert(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Alert %s deleted\n", args[0])
	return nil
}
