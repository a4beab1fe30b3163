package evaluator

import (
	"fmt"

	"github.com/ogulcanaydogan/pfm-alerts/pkg/model"
)

// SpendingTarget fires when the share of a budget already spent reaches the threshold.
// The spend is aggregated by the caller; this evaluator never sums transactions.
func SpendingTarget() Evaluator {
	return strategy[model.SpendingTargetConditions, BudgetSubject]{
		kind: model.KindSpendingTarget,
		evaluate: func(c model.SpendingTargetConditions, s BudgetSubject) bool {
			pct := SpendPercent(s.Spend.SpentAmount, s.Spend.Budget.BudgetAmount)
			return pct.GreaterThanOrEqual(c.ThresholdPercentage)
		},
		notify: spendingTargetDraft,
	}
}

func spendingTargetDraft(_ *model.Alert, c model.SpendingTargetConditions, s BudgetSubject) model.NotificationDraft {
	b := s.Spend.Budget
	pct := SpendPercent(s.Spend.SpentAmount, b.BudgetAmount)

	meta := map[string]any{
		"budget_id":            b.ID,
		"budget_name":          b.Name,
		"category":             b.Category,
		"period":               string(b.Period),
		"spent_amount":         s.Spend.SpentAmount.StringFixed(2),
		"budget_amount":        b.BudgetAmount.StringFixed(2),
		"percent_used":         pct.StringFixed(2),
		"threshold_percentage": c.ThresholdPercentage.String(),
	}
	if !s.Spend.PeriodStart.IsZero() {
		meta["period_start"] = s.Spend.PeriodStart.UTC().Format("2006-01-02")
		meta["period_end"] = s.Spend.PeriodEnd.UTC().Format("2006-01-02")
	}

	return model.NotificationDraft{
		Title: fmt.Sprintf("Budget alert: %s", b.Name),
		Message: fmt.Sprintf("You have used %s%% of your %s budget (%s of %s).",
			pct.StringFixed(1), b.Name, money(s.Spend.SpentAmount), money(b.BudgetAmount)),
		Metadata: meta,
	}
}
