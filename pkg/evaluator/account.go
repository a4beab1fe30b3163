package evaluator

import (
	"fmt"

	"github.com/ogulcanaydogan/pfm-alerts/pkg/model"
)

// AccountThreshold fires when an account balance is strictly below or above a threshold.
// A balance sitting exactly on the threshold never fires in either direction.
func AccountThreshold() Evaluator {
	return strategy[model.AccountThresholdConditions, AccountSubject]{
		kind:     model.KindAccountThreshold,
		evaluate: accountThresholdMatches,
		notify:   accountThresholdDraft,
	}
}

func accountThresholdMatches(c model.AccountThresholdConditions, s AccountSubject) bool {
	switch c.Direction {
	case model.DirectionBelow:
		return s.Account.Balance.LessThan(c.Threshold)
	case model.DirectionAbove:
		return s.Account.Balance.GreaterThan(c.Threshold)
	}
	return false
}

func accountThresholdDraft(_ *model.Alert, c model.AccountThresholdConditions, s AccountSubject) model.NotificationDraft {
	acct := s.Account
	return model.NotificationDraft{
		Title: fmt.Sprintf("%s balance %s %s", acct.Name, c.Direction, money(c.Threshold)),
		Message: fmt.Sprintf("Your %s balance is %s, which is %s your alert threshold of %s.",
			acct.Name, money(acct.Balance), c.Direction, money(c.Threshold)),
		Metadata: map[string]any{
			"account_id":      acct.ID,
			"account_name":    acct.Name,
			"current_balance": acct.Balance.StringFixed(2),
			"threshold":       c.Threshold.StringFixed(2),
			"direction":       string(c.Direction),
		},
	}
}
