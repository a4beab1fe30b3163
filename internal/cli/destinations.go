package cli

import (
	"errors"
	"fmt"

	"github.com/ogulcanaydogan/pfm-alerts/pkg/model"
	"github.com/ogulcanaydogan/pfm-alerts/pkg/storage"
	"github.com/spf13/cobra"
)

var destinationsCmd = &cobra.Command{
	Use:   "destinations",
	Short: "Manage where a user's notifications may be delivered",
}

var destinationsGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show a user's destination preferences",
	RunE:  runDestinationsGet,
}

var destinationsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Create or replace a user's destination preferences",
	RunE:  runDestinationsSet,
}

func init() {
	rootCmd.AddCommand(destinationsCmd)
	destinationsCmd.AddCommand(destinationsGetCmd, destinationsSetCmd)

	destinationsCmd.PersistentFlags().StringP("user", "u", "", "User id")
	_ = destinationsCmd.MarkPersistentFlagRequired("user")

	destinationsSetCmd.Flags().String("email", "", "Email address")
	destinationsSetCmd.Flags().String("phone", "", "Phone number in E.164 format")
	destinationsSetCmd.Flags().Bool("email-enabled", false, "Allow email delivery")
	destinationsSetCmd.Flags().Bool("sms-enabled", false, "Allow SMS delivery")
}

func runDestinationsGet(cmd *cobra.Command, _ []string) error {
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

	out := cmd.OutOrStdout()
	prefs, err := store.GetDestinationPreferences(cmd.Context(), user)
	if errors.Is(err, storage.ErrNotFound) {
		fmt.Fprintf(out, "No destinations configured for %s. Use 'pfa destinations set' to add them.\n", user)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get destinations: %w", err)
	}

	printPreferences(cmd, prefs)
	return nil
}

func runDestinationsSet(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	user, _ := cmd.Flags().GetString("user")
	email, _ := cmd.Flags().GetString("email")
	phone, _ := cmd.Flags().GetString("phone")
	emailEnabled, _ := cmd.Flags().GetBool("email-enabled")
	smsEnabled, _ := cmd.Flags().GetBool("sms-enabled")

	prefs := &model.DestinationPreferences{
		UserID:       user,
		Email:        email,
		Phone:        phone,
		EmailEnabled: emailEnabled,
		SMSEnabled:   smsEnabled,
	}

	store, err := initStorage(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.SetDestinationPreferences(cmd.Context(), prefs); err != nil {
		return fmt.Errorf("set destinations: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Destinations set:\n")
	printPreferences(cmd, prefs)
	return nil
}

func printPreferences(cmd *cobra.Command, p *model.DestinationPreferences) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "  User:   %s\n", p.UserID)
	fmt.Fprintf(out, "  Email:  %s (enabled: %t)\n", orDash(p.Email), p.EmailEnabled)
	fmt.Fprintf(out, "  Phone:  %s (enabled: %t)\n", orDash(p.Phone), p.SMSEnabled)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
