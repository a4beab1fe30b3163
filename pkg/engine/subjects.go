package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/ogulcanaydogan/pfm-alerts/pkg/evaluator"
	"github.com/ogulcanaydogan/pfm-alerts/pkg/model"
	"github.com/ogulcanaydogan/pfm-alerts/pkg/storage"
)

// resolve loads the entity a subject-bound alert watches. Missing, soft-deleted and
// foreign-owned entities are reported as dangling references.
func (d *Dispatcher) resolve(ctx context.Context, alert *model.Alert) (evaluator.Subject, error) {
	if alert.SourceID == "" {
		return nil, dangling(alert, errors.New("alert has no source id"))
	}
	now := d.now()

	switch alert.Kind {
	case model.KindAccountThreshold:
		acct, err := d.store.GetAccount(ctx, alert.SourceID)
		if err != nil {
			return nil, subjectErr(alert, err)
		}
		if err := owned(alert, acct.UserID); err != nil {
			return nil, err
		}
		return evaluator.AccountSubject{Account: *acct}, nil

	case model.KindGoalMilestone:
		goal, err := d.store.GetGoal(ctx, alert.SourceID)
		if err != nil {
			return nil, subjectErr(alert, err)
		}
		if err := owned(alert, goal.UserID); err != nil {
			return nil, err
		}
		return evaluator.GoalSubject{Goal: *goal}, nil

	case model.KindSpendingTarget:
		spend, err := d.store.GetBudgetWithSpend(ctx, alert.SourceID, now)
		if err != nil {
			return nil, subjectErr(alert, err)
		}
		if err := owned(alert, spend.Budget.UserID); err != nil {
			return nil, err
		}
		return evaluator.BudgetSubject{Spend: *spend}, nil

	case model.KindUpcomingBill:
		due, err := d.store.GetBillWithDaysUntilDue(ctx, alert.SourceID, now)
		if err != nil {
			return nil, subjectErr(alert, err)
		}
		if err := owned(alert, due.Bill.UserID); err != nil {
			return nil, err
		}
		return evaluator.BillSubject{Due: *due}, nil
	}
	return nil, fmt.Errorf("%w: %s alerts have no stored subject", evaluator.ErrSubjectMismatch, alert.Kind)
}

func subjectErr(alert *model.Alert, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return dangling(alert, err)
	}
	return fmt.Errorf("load %s %s: %w", alert.SourceType, alert.SourceID, err)
}

func owned(alert *model.Alert, ownerID string) error {
	if ownerID != alert.UserID {
		return dangling(alert, fmt.Errorf("owned by another user"))
	}
	return nil
}
