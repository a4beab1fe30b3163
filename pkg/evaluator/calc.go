package evaluator

import (
	"math"
	"time"

	"github.com/ogulcanaydogan/pfm-alerts/pkg/model"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// GoalProgress returns how far along a goal is, as a percentage in [0, 100].
//
// Payoff goals measure how much of the initial value has been paid down; the initial
// value comes from the goal's metadata so later edits do not move the baseline. When it
// was never captured the current amount stands in, which yields 0% for an open debt.
// Savings goals measure the current amount against the target.
func GoalProgress(g model.Goal) decimal.Decimal {
	if g.GoalType == model.GoalPayoff {
		initial, ok := g.InitialValue()
		if !ok {
			initial = g.CurrentAmount
		}
		if !initial.IsPositive() {
			return hundred
		}
		paid := initial.Sub(g.CurrentAmount)
		return clampPercent(paid.Div(initial).Mul(hundred))
	}

	if !g.TargetAmount.IsPositive() {
		return decimal.Zero
	}
	return clampPercent(g.CurrentAmount.Div(g.TargetAmount).Mul(hundred))
}

// SpendPercent returns spent as a percentage of the budget amount. It is not clamped;
// an overspent budget reports more than 100. A non-positive budget reports 0.
func SpendPercent(spent, budgetAmount decimal.Decimal) decimal.Decimal {
	if !budgetAmount.IsPositive() {
		return decimal.Zero
	}
	return spent.Div(budgetAmount).Mul(hundred)
}

// DaysUntilDue counts whole calendar days (UTC) from now until due. Past due dates
// produce negative values.
func DaysUntilDue(due, now time.Time) int {
	d := due.UTC()
	n := now.UTC()
	dueDay := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	today := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
	return int(math.Round(dueDay.Sub(today).Hours() / 24))
}

func clampPercent(p decimal.Decimal) decimal.Decimal {
	if p.IsNegative() {
		return decimal.Zero
	}
	if p.GreaterThan(hundred) {
		return hundred
	}
	return p
}

// money renders an amount as dollars with two decimals, sign first.
func money(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-$" + d.Abs().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}
