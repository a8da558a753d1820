package telegram

import (
	"testing"
	"time"

	"golang-stock-monitor/internal/entity"
	"golang-stock-monitor/internal/monitor/dto"
	"golang-stock-monitor/pkg/market"

	"github.com/stretchr/testify/assert"
)

func TestFormatAlertForTelegram(t *testing.T) {
	price, entry, ma5, ma20 := 9.4, 10.0, 9.8, 9.9
	alert := &entity.Alert{
		AlertType: entity.AlertTypeStopLoss,
		Reason:    "price 9.40 fell to stop_loss 9.50",
		Price:     &price,
		MA5:       &ma5,
		MA20:      &ma20,
		CreatedAt: time.Date(2024, 6, 17, 2, 5, 0, 0, time.UTC),
		Position: &entity.MonitoredPosition{
			Symbol:      "600519",
			Name:        "Kweichow_Moutai",
			EntryPrice:  &entry,
			HoldingDays: 3,
		},
	}
	schedule := market.DefaultSchedule()
	msg := FormatAlertForTelegram(alert, schedule.Classify(alert.CreatedAt), schedule.Location)

	assert.Contains(t, msg, "Stop Loss")
	assert.Contains(t, msg, "`600519` Kweichow\\_Moutai")
	assert.Contains(t, msg, "*Price:* 9.40")
	assert.Contains(t, msg, "9.80 / 9.90")
	assert.Contains(t, msg, "stop\\_loss")
	assert.Contains(t, msg, "2024-06-17 10:05")
	assert.Contains(t, msg, "Morning continuous trading")
}

func TestFormatDecisionForTelegram(t *testing.T) {
	msg := FormatDecisionForTelegram(&dto.Decision{
		Symbol:     "000001",
		Action:     dto.ActionHold,
		Confidence: 64,
		RiskLevel:  dto.RiskMedium,
		Reasoning:  "wait for confirmation",
		Executable: false,
	})
	assert.Contains(t, msg, "`000001`")
	assert.Contains(t, msg, "*Action:* HOLD")
	assert.Contains(t, msg, "64%")
	assert.Contains(t, msg, "Analysis only")
	assert.NotContains(t, msg, "*Size:*")

	msg = FormatDecisionForTelegram(&dto.Decision{
		Symbol: "000001", Action: dto.ActionBuy, Confidence: 80, PositionSizePct: 20, StopLossPct: 5, TakeProfitPct: 10,
		Executable: true,
	})
	assert.Contains(t, msg, "*Size:* 20%")
	assert.NotContains(t, msg, "Analysis only")
}
