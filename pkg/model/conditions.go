package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidConditions is returned when a condition payload does not fit its alert kind.
	ErrInvalidConditions = errors.New("invalid alert conditions")

	// ErrUnknownKind is returned for an alert kind outside the closed set.
	ErrUnknownKind = errors.New("unknown alert kind")
)

// ConditionError names the offending field of a rejected condition payload.
type ConditionError struct {
	Kind   AlertKind
	Field  string
	Reason string
}

func (e *ConditionError) Error() string {
	return fmt.Sprintf("%s conditions: %s %s", e.Kind, e.Field, e.Reason)
}

func (e *ConditionError) Unwrap() error {
	return ErrInvalidConditions
}

// Conditions is the typed condition payload of one alert kind.
// The set of implementations is closed to this package.
type Conditions interface {
	Kind() AlertKind
	// Map returns the wire form stored alongside the alert.
	Map() map[string]any
	conditions()
}

// Direction is the side of an account threshold that fires.
type Direction string

const (
	DirectionBelow Direction = "below"
	DirectionAbove Direction = "above"
)

// MatchType selects how a merchant pattern is compared.
type MatchType string

const (
	MatchExact    MatchType = "exact"
	MatchContains MatchType = "contains"
)

type AccountThresholdConditions struct {
	Threshold decimal.Decimal
	Direction Direction
}

func (AccountThresholdConditions) Kind() AlertKind { return KindAccountThreshold }
func (AccountThresholdConditions) conditions()     {}
func (c AccountThresholdConditions) Map() map[string]any {
	return map[string]any{"threshold": c.Threshold.String(), "direction": string(c.Direction)}
}

type GoalMilestoneConditions struct {
	MilestonePercentage decimal.Decimal
}

func (GoalMilestoneConditions) Kind() AlertKind { return KindGoalMilestone }
func (GoalMilestoneConditions) conditions()     {}
func (c GoalMilestoneConditions) Map() map[string]any {
	return map[string]any{"milestone_percentage": c.MilestonePercentage.String()}
}

type MerchantNameConditions struct {
	MerchantPattern string
	MatchType       MatchType
}

func (MerchantNameConditions) Kind() AlertKind { return KindMerchantName }
func (MerchantNameConditions) conditions()     {}
func (c MerchantNameConditions) Map() map[string]any {
	return map[string]any{"merchant_pattern": c.MerchantPattern, "match_type": string(c.MatchType)}
}

type SpendingTargetConditions struct {
	ThresholdPercentage decimal.Decimal
}

func (SpendingTargetConditions) Kind() AlertKind { return KindSpendingTarget }
func (SpendingTargetConditions) conditions()     {}
func (c SpendingTargetConditions) Map() map[string]any {
	return map[string]any{"threshold_percentage": c.ThresholdPercentage.String()}
}

// TransactionLimitConditions fire on large transactions. AccountID is empty when the
// alert applies to every account of the user.
type TransactionLimitConditions struct {
	Amount    decimal.Decimal
	AccountID string
}

func (TransactionLimitConditions) Kind() AlertKind { return KindTransactionLimit }
func (TransactionLimitConditions) conditions()     {}
func (c TransactionLimitConditions) Map() map[string]any {
	m := map[string]any{"amount": c.Amount.String()}
	if c.AccountID != "" {
		m["account_id"] = c.AccountID
	}
	return m
}

type UpcomingBillConditions struct {
	DaysBefore int
}

func (UpcomingBillConditions) Kind() AlertKind { return KindUpcomingBill }
func (UpcomingBillConditions) conditions()     {}
func (c UpcomingBillConditions) Map() map[string]any {
	return map[string]any{"days_before": c.DaysBefore}
}

var hundred = decimal.NewFromInt(100)

// DecodeConditions turns a raw condition bag into the typed payload for kind.
// It is the only entry point for untyped conditions.
func DecodeConditions(kind AlertKind, raw map[string]any) (Conditions, error) {
	d := decoder{kind: kind, raw: raw}
	switch kind {
	case KindAccountThreshold:
		threshold, err := d.decimal("threshold")
		if err != nil {
			return nil, err
		}
		dir, err := d.str("direction")
		if err != nil {
			return nil, err
		}
		direction := Direction(strings.ToLower(dir))
		if direction != DirectionBelow && direction != DirectionAbove {
			return nil, d.fail("direction", `must be "below" or "above"`)
		}
		return AccountThresholdConditions{Threshold: threshold, Direction: direction}, nil

	case KindGoalMilestone:
		pct, err := d.decimal("milestone_percentage")
		if err != nil {
			return nil, err
		}
		if pct.IsNegative() || pct.GreaterThan(hundred) {
			return nil, d.fail("milestone_percentage", "must be between 0 and 100")
		}
		return GoalMilestoneConditions{MilestonePercentage: pct}, nil

	case KindMerchantName:
		pattern, err := d.str("merchant_pattern")
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(pattern) == "" {
			return nil, d.fail("merchant_pattern", "must not be empty")
		}
		mt, err := d.str("match_type")
		if err != nil {
			return nil, err
		}
		matchType := MatchType(strings.ToLower(mt))
		if matchType != MatchExact && matchType != MatchContains {
			return nil, d.fail("match_type", `must be "exact" or "contains"`)
		}
		return MerchantNameConditions{MerchantPattern: pattern, MatchType: matchType}, nil

	case KindSpendingTarget:
		pct, err := d.decimal("threshold_percentage")
		if err != nil {
			return nil, err
		}
		if pct.IsNegative() {
			return nil, d.fail("threshold_percentage", "must not be negative")
		}
		return SpendingTargetConditions{ThresholdPercentage: pct}, nil

	case KindTransactionLimit:
		amount, err := d.decimal("amount")
		if err != nil {
			return nil, err
		}
		if amount.IsNegative() {
			return nil, d.fail("amount", "must not be negative")
		}
		c := TransactionLimitConditions{Amount: amount}
		if _, ok := raw["account_id"]; ok && raw["account_id"] != nil {
			accountID, err := d.str("account_id")
			if err != nil {
				return nil, err
			}
			c.AccountID = strings.TrimSpace(accountID)
		}
		return c, nil

	case KindUpcomingBill:
		days, err := d.integer("days_before")
		if err != nil {
			return nil, err
		}
		if days < 0 {
			return nil, d.fail("days_before", "must not be negative")
		}
		return UpcomingBillConditions{DaysBefore: days}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

type decoder struct {
	kind AlertKind
	raw  map[string]any
}

func (d decoder) fail(field, reason string) error {
	return &ConditionError{Kind: d.kind, Field: field, Reason: reason}
}

func (d decoder) value(field string) (any, error) {
	v, ok := d.raw[field]
	if !ok || v == nil {
		return nil, d.fail(field, "is required")
	}
	return v, nil
}

func (d decoder) str(field string) (string, error) {
	v, err := d.value(field)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", d.fail(field, "must be a string")
	}
	return s, nil
}

func (d decoder) decimal(field string) (decimal.Decimal, error) {
	v, err := d.value(field)
	if err != nil {
		return decimal.Zero, err
	}
	out, err := toDecimal(v)
	if err != nil {
		return decimal.Zero, d.fail(field, "must be a decimal number")
	}
	return out, nil
}

func (d decoder) integer(field string) (int, error) {
	v, err := d.value(field)
	if err != nil {
		return 0, err
	}
	n, err := toDecimal(v)
	if err != nil || !n.IsInteger() {
		return 0, d.fail(field, "must be an integer")
	}
	if n.GreaterThan(decimal.NewFromInt(math.MaxInt32)) || n.LessThan(decimal.NewFromInt(math.MinInt32)) {
		return 0, d.fail(field, "is out of range")
	}
	return int(n.IntPart()), nil
}

// toDecimal accepts the shapes a decoded JSON or YAML document produces.
func toDecimal(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, nil
	case string:
		return decimal.NewFromString(strings.TrimSpace(n))
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return decimal.Zero, fmt.Errorf("not a finite number")
		}
		return decimal.NewFromFloat(n), nil
	case float32:
		return decimal.NewFromFloat32(n), nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case int32:
		return decimal.NewFromInt32(n), nil
	case json.Number:
		return decimal.NewFromString(n.String())
	}
	return decimal.Zero, fmt.Errorf("unsupported numeric type %T", v)
}
