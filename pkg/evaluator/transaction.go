package evaluator

import (
	"fmt"
	"strings"

	"github.com/ogulcanaydogan/pfm-alerts/pkg/model"
)

// MerchantName matches a transaction's merchant against a pattern, ignoring case.
// Transactions without a merchant name never match.
func MerchantName() Evaluator {
	return strategy[model.MerchantNameConditions, TransactionSubject]{
		kind:     model.KindMerchantName,
		evaluate: merchantMatches,
		notify:   merchantDraft,
	}
}

func merchantMatches(c model.MerchantNameConditions, s TransactionSubject) bool {
	name := s.Transaction.MerchantName
	if name == nil || *name == "" {
		return false
	}
	merchant := strings.ToLower(*name)
	pattern := strings.ToLower(c.MerchantPattern)

	switch c.MatchType {
	case model.MatchExact:
		return merchant == pattern
	case model.MatchContains:
		return strings.Contains(merchant, pattern)
	}
	return false
}

func merchantDraft(a *model.Alert, c model.MerchantNameConditions, s TransactionSubject) model.NotificationDraft {
	txn := s.Transaction
	merchant := ""
	if txn.MerchantName != nil {
		merchant = *txn.MerchantName
	}
	return model.NotificationDraft{
		Title: fmt.Sprintf("Transaction at %s", merchant),
		Message: fmt.Sprintf("A transaction of %s at %s matched your alert %q.",
			money(txn.Amount.Abs()), merchant, a.Name),
		Metadata: map[string]any{
			"transaction_id":   txn.ID,
			"account_id":       txn.AccountID,
			"merchant_name":    merchant,
			"merchant_pattern": c.MerchantPattern,
			"match_type":       string(c.MatchType),
			"amount":           txn.Amount.StringFixed(2),
			"transaction_date": txn.Date.UTC().Format("2006-01-02"),
		},
	}
}

// TransactionLimit fires when the absolute transaction amount is strictly greater than
// the limit. Filtering by the alert's account happens at the call site.
func TransactionLimit() Evaluator {
	return strategy[model.TransactionLimitConditions, TransactionSubject]{
		kind: model.KindTransactionLimit,
		evaluate: func(c model.TransactionLimitConditions, s TransactionSubject) bool {
			return s.Transaction.Amount.Abs().GreaterThan(c.Amount)
		},
		notify: transactionLimitDraft,
	}
}

func transactionLimitDraft(_ *model.Alert, c model.TransactionLimitConditions, s TransactionSubject) model.NotificationDraft {
	txn := s.Transaction
	meta := map[string]any{
		"transaction_id": txn.ID,
		"account_id":     txn.AccountID,
		"amount":         txn.Amount.StringFixed(2),
		"limit":          c.Amount.StringFixed(2),
	}
	where := ""
	if txn.MerchantName != nil && *txn.MerchantName != "" {
		meta["merchant_name"] = *txn.MerchantName
		where = " at " + *txn.MerchantName
	}
	return model.NotificationDraft{
		Title: "Large transaction detected",
		Message: fmt.Sprintf("A transaction of %s%s exceeds your limit of %s.",
			money(txn.Amount.Abs()), where, money(c.Amount)),
		Metadata: meta,
	}
}
