package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/ogulcanaydogan/pfm-alerts/pkg/model"
	"github.com/spf13/cobra"
)

var notificationsCmd = &cobra.Command{
	Use:     "notifications",
	Aliases: []string{"notif"},
	Short:   "Read recorded notifications",
}

var notificationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a user's notifications, newest first",
	RunE:  runNotificationsList,
}

var notificationsReadCmd = &cobra.Command{
	Use:   "read <notification-id>",
	Short: "Mark a notification as read",
	Args:  cobra.ExactArgs(1),
	RunE:  runNotificationsRead,
}

func init() {
	rootCmd.AddCommand(notificationsCmd)
	notificationsCmd.AddCommand(notificationsListCmd, notificationsReadCmd)

	notificationsCmd.PersistentFlags().StringP("user", "u", "", "User id")
	_ = notificationsCmd.MarkPersistentFlagRequired("user")

	notificationsListCmd.Flags().Bool("unread", false, "Only unread notifications")
	notificationsListCmd.Flags().String("alert", "", "Only notifications of this alert")
	notificationsListCmd.Flags().IntP("limit", "l", 50, "Maximum rows")
}

func runNotificationsList(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	user, _ := cmd.Flags().GetString("user")
	unread, _ := cmd.Flags().GetBool("unread")
	alertID, _ := cmd.Flags().GetString("alert")
	limit, _ := cmd.Flags().GetInt("limit")

	store, err := initStorage(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	notes, err := store.ListNotifications(cmd.Context(), user, model.NotificationFilter{
		UnreadOnly: unread,
		AlertID:    alertID,
		Limit:      limit,
	})
	if err != nil {
		return fmt.Errorf("list notifications: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(notes) == 0 {
		fmt.Fprintln(out, "No notifications.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tCREATED\tREAD\tTITLE\n")
	for _, n := range notes {
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", n.ID, n.CreatedAt.Format("2006-01-02 15:04"), n.Read, n.Title)
	}
	w.Flush()

	return nil
}

func runNotificationsRead(cmd *cobra.Command, args []string) error {
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

	if err := store.MarkNotificationRead(cmd.Context(), user, args[0], time.Now().UTC()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Notification %s marked read\n", args[0])
	return nil
}
