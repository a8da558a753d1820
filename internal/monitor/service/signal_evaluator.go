package service

import (
	"fmt"

	"golang-stock-monitor/internal/entity"

	"github.com/shopspring/decimal"
)

// EvaluationInput is the state one position is evaluated against.
// Price, MA5 and MA20 are nil when the corresponding fetch failed.
type EvaluationInput struct {
	Position       *entity.MonitoredPosition
	Price          *float64
	MA5            *float64
	MA20           *float64
	Previous       *entity.PriceSample
	MaxHoldingDays int
}

// Trigger is a fired rule with the snapshot it fired on.
type Trigger struct {
	AlertType entity.AlertType
	Reason    string
	Price     *float64
	MA5       *float64
	MA20      *float64
}

// Rule is a single alert predicate. Match returns the alert reason when it fires.
type Rule struct {
	Type  entity.AlertType
	Match func(in EvaluationInput) (string, bool)
}

// SignalEvaluator turns one position's state into at most one trigger.
type SignalEvaluator interface {
	Evaluate(in EvaluationInput) *Trigger
	Rules() []Rule
}

type signalEvaluator struct {
	rules []Rule
}

// NewSignalEvaluator evaluates rules in the given order; the first match wins.
// With no rules it uses DefaultRules.
func NewSignalEvaluator(rules ...Rule) SignalEvaluator {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &signalEvaluator{rules: rules}
}

// DefaultRules returns the alert rules in priority order.
func DefaultRules() []Rule {
	return []Rule{
		{Type: entity.AlertTypeHoldingPeriodExpired, Match: holdingPeriodExpired},
		{Type: entity.AlertTypeMACross, Match: maCrossDown},
		{Type: entity.AlertTypeTakeProfit, Match: takeProfitReached},
		{Type: entity.AlertTypeStopLoss, Match: stopLossReached},
		{Type: entity.AlertTypeEntryRange, Match: entryRangeHit},
	}
}

func (e *signalEvaluator) Rules() []Rule {
	return e.rules
}

func (e *signalEvaluator) Evaluate(in EvaluationInput) *Trigger {
	if in.Position == nil {
		return nil
	}
	for _, rule := range e.rules {
		reason, ok := rule.Match(in)
		if !ok {
			continue
		}
		return &Trigger{
			AlertType: rule.Type,
			Reason:    reason,
			Price:     in.Price,
			MA5:       in.MA5,
			MA20:      in.MA20,
		}
	}
	return nil
}

func holdingPeriodExpired(in EvaluationInput) (string, bool) {
	if in.MaxHoldingDays <= 0 || in.Position.HoldingDays < in.MaxHoldingDays {
		return "", false
	}
	return fmt.Sprintf("held %d days, limit is %d days", in.Position.HoldingDays, in.MaxHoldingDays), true
}

func maCrossDown(in EvaluationInput) (string, bool) {
	prev := in.Previous
	if prev == nil || prev.MA5 == nil || prev.MA20 == nil || in.MA5 == nil || in.MA20 == nil {
		return "", false
	}
	wasAbove := dec(*prev.MA5).GreaterThanOrEqual(dec(*prev.MA20))
	nowBelow := dec(*in.MA5).LessThan(dec(*in.MA20))
	if !wasAbove || !nowBelow {
		return "", false
	}
	return fmt.Sprintf("MA5 %.2f crossed below MA20 %.2f", *in.MA5, *in.MA20), true
}

func takeProfitReached(in EvaluationInput) (string, bool) {
	tp := in.Position.TakeProfit
	if in.Price == nil || tp == nil {
		return "", false
	}
	if !dec(*in.Price).GreaterThanOrEqual(dec(*tp)) {
		return "", false
	}
	return fmt.Sprintf("price %.2f reached take profit %.2f", *in.Price, *tp), true
}

func stopLossReached(in EvaluationInput) (string, bool) {
	sl := in.Position.StopLoss
	if in.Price == nil || sl == nil {
		return "", false
	}
	if !dec(*in.Price).LessThanOrEqual(dec(*sl)) {
		return "", false
	}
	return fmt.Sprintf("price %.2f fell to stop loss %.2f", *in.Price, *sl), true
}

func entryRangeHit(in EvaluationInput) (string, bool) {
	p := in.Position
	if in.Price == nil || !p.IsCandidate() || p.EntryMin == nil || p.EntryMax == nil {
		return "", false
	}
	price := dec(*in.Price)
	if price.LessThan(dec(*p.EntryMin)) || price.GreaterThan(dec(*p.EntryMax)) {
		return "", false
	}
	return fmt.Sprintf("price %.2f is inside entry range %.2f-%.2f", *in.Price, *p.EntryMin, *p.EntryMax), true
}

// dec converts a price to a decimal rounded to 4 places so float noise does not
// flip threshold comparisons.
func dec(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(4)
}
