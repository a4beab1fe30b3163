package cli

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ogulcanaydogan/pfm-alerts/pkg/model"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var txnCmd = &cobra.Command{
	Use:   "txn",
	Short: "Record a transaction and run merchant and limit alerts against it",
	Long: `Record a single posted transaction, then evaluate the owner's merchant_name and
transaction_limit alerts against it, as the Kafka consumer does for each event.
Negative amounts are outflows.`,
	RunE: runTxn,
}

func init() {
	rootCmd.AddCommand(txnCmd)
	txnCmd.Flags().StringP("user", "u", "", "Owning user id")
	txnCmd.Flags().String("account", "", "Account id")
	txnCmd.Flags().String("amount", "", "Signed amount, e.g. -42.50")
	txnCmd.Flags().StringP("merchant", "m", "", "Merchant name")
	txnCmd.Flags().String("category", "uncategorized", "Category")
	txnCmd.Flags().String("id", "", "Transaction id (default: random)")
	_ = txnCmd.MarkFlagRequired("user")
	_ = txnCmd.MarkFlagRequired("account")
	_ = txnCmd.MarkFlagRequired("amount")
}

func runTxn(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	user, _ := cmd.Flags().GetString("user")
	account, _ := cmd.Flags().GetString("account")
	rawAmount, _ := cmd.Flags().GetString("amount")
	merchant, _ := cmd.Flags().GetString("merchant")
	category, _ := cmd.Flags().GetString("category")
	id, _ := cmd.Flags().GetString("id")

	amount, err := decimal.NewFromString(rawAmount)
	if err != nil {
		return fmt.Errorf("parse amount %q: %w", rawAmount, err)
	}
	if id == "" {
		id = uuid.New().String()
	}

	txn := model.Transaction{
		ID:        id,
		UserID:    user,
		AccountID: account,
		Amount:    amount,
		Category:  category,
		Date:      time.Now().UTC(),
	}
	if merchant != "" {
		txn.MerchantName = &merchant
	}

	d, store, err := initDispatcher(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.RecordTransaction(cmd.Context(), &txn); err != nil {
		return fmt.Errorf("record transaction: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Recorded transaction %s\n", txn.ID)

	notes, err := d.EvaluateTransaction(cmd.Context(), txn)
	for _, n := range notes {
		fmt.Fprintf(out, "  -> %s\n", n.Title)
	}
	if err != nil {
		return fmt.Errorf("evaluate transaction: %w", err)
	}
	if len(notes) == 0 {
		fmt.Fprintln(out, "No alerts triggered.")
	}
	return nil
}
