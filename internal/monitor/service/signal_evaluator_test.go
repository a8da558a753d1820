package service

import (
	"testing"
	"time"

	"golang-stock-monitor/internal/entity"
	"golang-stock-monitor/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func heldPosition() *entity.MonitoredPosition {
	return &entity.MonitoredPosition{
		ID:          1,
		Symbol:      "600519",
		EntryPrice:  utils.ToPointer(10.0),
		TakeProfit:  utils.ToPointer(12.0),
		StopLoss:    utils.ToPointer(9.5),
		BuyDate:     time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
		HoldingDays: 1,
		Status:      entity.PositionStatusHolding,
	}
}

func crossedSample() *entity.PriceSample {
	return &entity.PriceSample{MA5: utils.ToPointer(10.5), MA20: utils.ToPointer(10.4)}
}

func TestDefaultRules_Order(t *testing.T) {
	var got []entity.AlertType
	for _, r := range NewSignalEvaluator().Rules() {
		got = append(got, r.Type)
	}
	assert.Equal(t, []entity.AlertType{
		entity.AlertTypeHoldingPeriodExpired,
		entity.AlertTypeMACross,
		entity.AlertTypeTakeProfit,
		entity.AlertTypeStopLoss,
		entity.AlertTypeEntryRange,
	}, got)
}

func TestSignalEvaluator_Evaluate(t *testing.T) {
	evaluator := NewSignalEvaluator()

	tests := []struct {
		name  string
		build func() EvaluationInput
		want  entity.AlertType
	}{
		{
			name: "nothing fires",
			build: func() EvaluationInput {
				return EvaluationInput{Position: heldPosition(), Price: utils.ToPointer(10.5), MaxHoldingDays: 5}
			},
		},
		{
			name: "holding period beats ma cross",
			build: func() EvaluationInput {
				p := heldPosition()
				p.HoldingDays = 5
				return EvaluationInput{
					Position: p, Price: utils.ToPointer(10.3),
					MA5: utils.ToPointer(10.2), MA20: utils.ToPointer(10.3),
					Previous: crossedSample(), MaxHoldingDays: 5,
				}
			},
			want: entity.AlertTypeHoldingPeriodExpired,
		},
		{
			name: "holding period fires without a price",
			build: func() EvaluationInput {
				p := heldPosition()
				p.HoldingDays = 7
				return EvaluationInput{Position: p, MaxHoldingDays: 5}
			},
			want: entity.AlertTypeHoldingPeriodExpired,
		},
		{
			name: "ma cross beats take profit",
			build: func() EvaluationInput {
				return EvaluationInput{
					Position: heldPosition(), Price: utils.ToPointer(12.5),
					MA5: utils.ToPointer(10.2), MA20: utils.ToPointer(10.3),
					Previous: crossedSample(), MaxHoldingDays: 5,
				}
			},
			want: entity.AlertTypeMACross,
		},
		{
			name: "ma cross needs a previous sample",
			build: func() EvaluationInput {
				return EvaluationInput{
					Position: heldPosition(), Price: utils.ToPointer(10.5),
					MA5: utils.ToPointer(10.2), MA20: utils.ToPointer(10.3),
					MaxHoldingDays: 5,
				}
			},
		},
		{
			name: "ma already below is not a cross",
			build: func() EvaluationInput {
				return EvaluationInput{
					Position: heldPosition(), Price: utils.ToPointer(10.5),
					MA5: utils.ToPointer(10.1), MA20: utils.ToPointer(10.3),
					Previous:       &entity.PriceSample{MA5: utils.ToPointer(10.2), MA20: utils.ToPointer(10.3)},
					MaxHoldingDays: 5,
				}
			},
		},
		{
			name: "take profit at threshold",
			build: func() EvaluationInput {
				return EvaluationInput{Position: heldPosition(), Price: utils.ToPointer(12.0), MaxHoldingDays: 5}
			},
			want: entity.AlertTypeTakeProfit,
		},
		{
			name: "stop loss at threshold",
			build: func() EvaluationInput {
				return EvaluationInput{Position: heldPosition(), Price: utils.ToPointer(9.5), MaxHoldingDays: 5}
			},
			want: entity.AlertTypeStopLoss,
		},
		{
			name: "float noise does not miss the threshold",
			build: func() EvaluationInput {
				return EvaluationInput{Position: heldPosition(), Price: utils.ToPointer(11.9 + 0.1), MaxHoldingDays: 5}
			},
			want: entity.AlertTypeTakeProfit,
		},
		{
			name: "entry range for a candidate",
			build: func() EvaluationInput {
				return EvaluationInput{
					Position: &entity.MonitoredPosition{
						Symbol: "000001", EntryMin: utils.ToPointer(9.8), EntryMax: utils.ToPointer(10.2),
					},
					Price: utils.ToPointer(10.2), MaxHoldingDays: 5,
				}
			},
			want: entity.AlertTypeEntryRange,
		},
		{
			name: "entry range ignored once entered",
			build: func() EvaluationInput {
				p := heldPosition()
				p.EntryMin = utils.ToPointer(9.8)
				p.EntryMax = utils.ToPointer(10.2)
				return EvaluationInput{Position: p, Price: utils.ToPointer(10.0), MaxHoldingDays: 5}
			},
		},
		{
			name: "candidate outside range",
			build: func() EvaluationInput {
				return EvaluationInput{
					Position: &entity.MonitoredPosition{
						Symbol: "000001", EntryMin: utils.ToPointer(9.8), EntryMax: utils.ToPointer(10.2),
					},
					Price: utils.ToPointer(10.21), MaxHoldingDays: 5,
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trigger := evaluator.Evaluate(tt.build())
			if tt.want == "" {
				assert.Nil(t, trigger)
				return
			}
			require.NotNil(t, trigger)
			assert.Equal(t, tt.want, trigger.AlertType)
			assert.NotEmpty(t, trigger.Reason)
		})
	}
}

func TestSignalEvaluator_PriceSequence(t *testing.T) {
	evaluator := NewSignalEvaluator()
	p := heldPosition()

	var fired []entity.AlertType
	for _, price := range []float64{10.0, 11.5, 12.3} {
		trigger := evaluator.Evaluate(EvaluationInput{Position: p, Price: utils.ToPointer(price), MaxHoldingDays: 5})
		if trigger != nil {
			fired = append(fired, trigger.AlertType)
		}
	}
	assert.Equal(t, []entity.AlertType{entity.AlertTypeTakeProfit}, fired)
}

func TestSignalEvaluator_CustomRules(t *testing.T) {
	evaluator := NewSignalEvaluator(Rule{
		Type: entity.AlertTypeStopLoss,
		Match: func(in EvaluationInput) (string, bool) {
			return "always", true
		},
	})
	trigger := evaluator.Evaluate(EvaluationInput{Position: heldPosition()})
	require.NotNil(t, trigger)
	assert.Equal(t, entity.AlertTypeStopLoss, trigger.AlertType)
	assert.Equal(t, "always", trigger.Reason)
}
