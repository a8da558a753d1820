package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang-stock-monitor/internal/monitor/dto"
	"golang-stock-monitor/pkg/common"
	"golang-stock-monitor/pkg/logger"
	"golang-stock-monitor/pkg/market"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const sellReply = "Analysis follows.\n```json\n{\"action\":\"SELL\",\"confidence\":82,\"reasoning\":\"MA5 crossed below MA20\",\"risk_level\":\"medium\"}\n```"

func decisionRequest(at time.Time, position *dto.PositionSnapshot) *dto.DecisionRequest {
	return &dto.DecisionRequest{
		Symbol:   "600519",
		Name:     "Kweichow Moutai",
		Trigger:  "MA5 crossed below MA20",
		Market:   dto.MarketSnapshot{ChangePct: -1.2, High: 1700, Low: 1670},
		Position: position,
		Session:  market.DefaultSchedule().Classify(at),
	}
}

func TestDecisionGate_SameDaySellBecomesHold(t *testing.T) {
	ai := new(MockAIRepository)
	ai.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return(sellReply, nil).Once()
	gate := NewDecisionGate(ai, market.DefaultSchedule(), false, logger.NewNop())

	at := shanghai(2024, 6, 17, 10, 15)
	decision, err := gate.Decide(context.Background(), decisionRequest(at, &dto.PositionSnapshot{
		EntryPrice: 1680,
		Quantity:   100,
		BuyDate:    time.Date(2024, 6, 17, 0, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, err)

	assert.Equal(t, dto.ActionHold, decision.Action)
	assert.Equal(t, 82, decision.Confidence)
	assert.True(t, decision.Overridden)
	assert.True(t, decision.Executable)
	assert.Contains(t, decision.Reasoning, "MA5 crossed below MA20")
	assert.Contains(t, decision.Reasoning, "T+1")
	assert.Equal(t, "mock", decision.Provider)
	assert.Equal(t, string(market.MorningSession), decision.Session)
	ai.AssertExpectations(t)
}

func TestDecisionGate_SellNextDayPasses(t *testing.T) {
	ai := new(MockAIRepository)
	ai.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return(sellReply, nil).Once()
	gate := NewDecisionGate(ai, market.DefaultSchedule(), false, logger.NewNop())

	at := shanghai(2024, 6, 18, 13, 30)
	decision, err := gate.Decide(context.Background(), decisionRequest(at, &dto.PositionSnapshot{
		EntryPrice: 1680,
		Quantity:   100,
		BuyDate:    time.Date(2024, 6, 17, 0, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, err)
	assert.Equal(t, dto.ActionSell, decision.Action)
	assert.False(t, decision.Overridden)
}

func TestDecisionGate_SellWithoutPosition(t *testing.T) {
	ai := new(MockAIRepository)
	ai.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return(sellReply, nil).Once()
	gate := NewDecisionGate(ai, market.DefaultSchedule(), false, logger.NewNop())

	decision, err := gate.Decide(context.Background(), decisionRequest(shanghai(2024, 6, 17, 10, 15), nil))
	require.NoError(t, err)
	assert.Equal(t, dto.ActionHold, decision.Action)
	assert.True(t, decision.Overridden)
	assert.Contains(t, decision.Reasoning, "no position held")
}

func TestDecisionGate_NotTradable(t *testing.T) {
	lunch := shanghai(2024, 6, 17, 12, 0)

	t.Run("skipped without analysis only", func(t *testing.T) {
		ai := new(MockAIRepository)
		gate := NewDecisionGate(ai, market.DefaultSchedule(), false, logger.NewNop())

		_, err := gate.Decide(context.Background(), decisionRequest(lunch, nil))
		assert.ErrorIs(t, err, ErrDecisionSkipped)
		ai.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("analysis only is not executable", func(t *testing.T) {
		ai := new(MockAIRepository)
		ai.On("Complete", mock.Anything, mock.Anything, mock.Anything).
			Return(`{"action":"BUY","confidence":60,"reasoning":"pullback to support"}`, nil).Once()
		gate := NewDecisionGate(ai, market.DefaultSchedule(), true, logger.NewNop())

		decision, err := gate.Decide(context.Background(), decisionRequest(lunch, nil))
		require.NoError(t, err)
		assert.Equal(t, dto.ActionBuy, decision.Action)
		assert.False(t, decision.Executable)
		assert.Contains(t, decision.Reasoning, "analysis only")
		assert.Equal(t, string(market.LunchBreak), decision.Session)
	})
}

func TestDecisionGate_ProviderError(t *testing.T) {
	ai := new(MockAIRepository)
	ai.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("quota exceeded")).Once()
	gate := NewDecisionGate(ai, market.DefaultSchedule(), false, logger.NewNop())

	_, err := gate.Decide(context.Background(), decisionRequest(shanghai(2024, 6, 17, 10, 15), nil))
	require.Error(t, err)
	assert.True(t, common.IsProvider(err))
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestDecisionGate_UnparseableReplyHolds(t *testing.T) {
	ai := new(MockAIRepository)
	ai.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return("I would probably buy.", nil).Once()
	gate := NewDecisionGate(ai, market.DefaultSchedule(), false, logger.NewNop())

	decision, err := gate.Decide(context.Background(), decisionRequest(shanghai(2024, 6, 17, 10, 15), nil))
	require.NoError(t, err)
	assert.Equal(t, dto.ActionHold, decision.Action)
	assert.Equal(t, 0, decision.Confidence)
	assert.Equal(t, dto.RiskHigh, decision.RiskLevel)
	assert.Zero(t, decision.PositionSizePct)
	assert.Equal(t, 5.0, decision.StopLossPct)
	assert.Equal(t, 10.0, decision.TakeProfitPct)
	assert.NotEmpty(t, decision.ParseError)
}

func TestParseDecision(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		action     string
		confidence int
		parseError bool
	}{
		{
			name:       "json fence",
			raw:        "```json\n{\"action\":\"buy\",\"confidence\":70.4,\"reasoning\":\"breakout\"}\n```",
			action:     dto.ActionBuy,
			confidence: 70,
		},
		{
			name:       "plain fence",
			raw:        "```\n{\"action\":\"HOLD\",\"confidence\":50,\"reasoning\":\"wait\"}\n```",
			action:     dto.ActionHold,
			confidence: 50,
		},
		{
			name:       "braces in prose",
			raw:        "My answer is {\"action\":\"SELL\",\"confidence\":90,\"reasoning\":\"broke support\"} thanks",
			action:     dto.ActionSell,
			confidence: 90,
		},
		{
			name:       "unknown action",
			raw:        `{"action":"SHORT","confidence":90,"reasoning":"x"}`,
			action:     dto.ActionHold,
			parseError: true,
		},
		{
			name:       "confidence out of range",
			raw:        `{"action":"BUY","confidence":140,"reasoning":"x"}`,
			action:     dto.ActionHold,
			parseError: true,
		},
		{
			name:       "missing reasoning",
			raw:        `{"action":"BUY","confidence":40}`,
			action:     dto.ActionHold,
			parseError: true,
		},
		{
			name:       "broken json",
			raw:        `{"action":"BUY",`,
			action:     dto.ActionHold,
			parseError: true,
		},
		{
			name:       "empty",
			raw:        "   ",
			action:     dto.ActionHold,
			parseError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := ParseDecision(tt.raw)
			assert.Equal(t, tt.action, d.Action)
			if tt.parseError {
				assert.NotEmpty(t, d.ParseError)
				assert.Equal(t, 0, d.Confidence)
				assert.Equal(t, dto.RiskHigh, d.RiskLevel)
				assert.Equal(t, defaultStopLossPct, d.StopLossPct)
				assert.Equal(t, defaultTakeProfitPct, d.TakeProfitPct)
				return
			}
			assert.Empty(t, d.ParseError)
			assert.Equal(t, tt.confidence, d.Confidence)
		})
	}
}

func TestParseDecision_Defaults(t *testing.T) {
	d := ParseDecision(`{"action":"BUY","confidence":65,"reasoning":"trend","key_price_levels":{"support":9.5,"resistance":11,"stop_loss":9.2}}`)
	assert.Equal(t, defaultPositionSizePct, d.PositionSizePct)
	assert.Equal(t, defaultStopLossPct, d.StopLossPct)
	assert.Equal(t, defaultTakeProfitPct, d.TakeProfitPct)
	assert.Equal(t, dto.RiskMedium, d.RiskLevel)
	assert.Equal(t, 9.5, d.PriceLevels.Support)
	assert.Equal(t, 11.0, d.PriceLevels.Resistance)
}
