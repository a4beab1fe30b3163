package evaluator

import (
	"fmt"

	"github.com/ogulcanaydogan/pfm-alerts/pkg/model"
)

// GoalMilestone fires once progress has reached or passed the milestone. It does not
// detect crossings, so a goal past its milestone matches on every evaluation.
func GoalMilestone() Evaluator {
	return strategy[model.GoalMilestoneConditions, GoalSubject]{
		kind: model.KindGoalMilestone,
		evaluate: func(c model.GoalMilestoneConditions, s GoalSubject) bool {
			return GoalProgress(s.Goal).GreaterThanOrEqual(c.MilestonePercentage)
		},
		notify: goalMilestoneDraft,
	}
}

func goalMilestoneDraft(_ *model.Alert, c model.GoalMilestoneConditions, s GoalSubject) model.NotificationDraft {
	g := s.Goal
	progress := GoalProgress(g)

	meta := map[string]any{
		"goal_id":              g.ID,
		"goal_name":            g.Name,
		"goal_type":            string(g.GoalType),
		"progress_percentage":  progress.StringFixed(2),
		"milestone_percentage": c.MilestonePercentage.String(),
		"current_amount":       g.CurrentAmount.StringFixed(2),
		"target_amount":        g.TargetAmount.StringFixed(2),
	}
	if initial, ok := g.InitialValue(); ok {
		meta["initial_value"] = initial.StringFixed(2)
	}

	verb := "saved"
	if g.GoalType == model.GoalPayoff {
		verb = "paid off"
	}
	return model.NotificationDraft{
		Title: fmt.Sprintf("Goal milestone reached: %s", g.Name),
		Message: fmt.Sprintf("You have %s %s%% of your goal %q, reaching your %s%% milestone.",
			verb, progress.StringFixed(1), g.Name, c.MilestonePercentage.String()),
		Metadata: meta,
	}
}
