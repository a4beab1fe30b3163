package evaluator

import (
	"fmt"

	"github.com/ogulcanaydogan/pfm-alerts/pkg/model"
)

// Registry maps alert kinds to their evaluator. It is built once and never mutated,
// so it is safe for concurrent use.
type Registry struct {
	evaluators map[model.AlertKind]Evaluator
}

// NewRegistry binds every kind in model.AllKinds to its evaluator.
func NewRegistry() *Registry {
	r := &Registry{evaluators: make(map[model.AlertKind]Evaluator, len(model.AllKinds()))}
	for _, kind := range model.AllKinds() {
		if ev := forKind(kind); ev != nil {
			r.evaluators[kind] = ev
		}
	}
	return r
}

// forKind is the single switch that must grow with model.AllKinds.
func forKind(kind model.AlertKind) Evaluator {
	switch kind {
	case model.KindAccountThreshold:
		return AccountThreshold()
	case model.KindGoalMilestone:
		return GoalMilestone()
	case model.KindMerchantName:
		return MerchantName()
	case model.KindSpendingTarget:
		return SpendingTarget()
	case model.KindTransactionLimit:
		return TransactionLimit()
	case model.KindUpcomingBill:
		return UpcomingBill()
	}
	return nil
}

// Get returns the evaluator for kind.
func (r *Registry) Get(kind model.AlertKind) (Evaluator, error) {
	ev, ok := r.evaluators[kind]
	if !ok {
		return nil, fmt.Errorf("%w: no evaluator registered for %q", model.ErrUnknownKind, kind)
	}
	return ev, nil
}

// Kinds returns the registered kinds in model.AllKinds order.
func (r *Registry) Kinds() []model.AlertKind {
	kinds := make([]model.AlertKind, 0, len(r.evaluators))
	for _, kind := range model.AllKinds() {
		if _, ok := r.evaluators[kind]; ok {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}
