package evaluator

import (
	"fmt"

	"github.com/ogulcanaydogan/pfm-alerts/pkg/model"
)

// UpcomingBill fires while a bill is due within the alert's window, including the due
// day itself. Bills already past due do not fire.
func UpcomingBill() Evaluator {
	return strategy[model.UpcomingBillConditions, BillSubject]{
		kind: model.KindUpcomingBill,
		evaluate: func(c model.UpcomingBillConditions, s BillSubject) bool {
			days := s.Due.DaysUntilDue
			return days >= 0 && days <= c.DaysBefore
		},
		notify: upcomingBillDraft,
	}
}

func upcomingBillDraft(_ *model.Alert, c model.UpcomingBillConditions, s BillSubject) model.NotificationDraft {
	bill := s.Due.Bill
	return model.NotificationDraft{
		Title:   fmt.Sprintf("Upcoming bill: %s", bill.Name),
		Message: fmt.Sprintf("%s (%s) is due %s.", bill.Name, money(bill.Amount), duePhrase(s.Due.DaysUntilDue)),
		Metadata: map[string]any{
			"bill_id":        bill.ID,
			"bill_name":      bill.Name,
			"amount":         bill.Amount.StringFixed(2),
			"due_date":       bill.NextDueDate.UTC().Format("2006-01-02"),
			"days_until_due": s.Due.DaysUntilDue,
			"days_before":    c.DaysBefore,
		},
	}
}

func duePhrase(days int) string {
	switch days {
	case 0:
		return "today"
	case 1:
		return "tomorrow"
	}
	return fmt.Sprintf("in %d days", days)
}
