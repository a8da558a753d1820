package telegram

import (
	"fmt"
	"strings"
	"time"

	"golang-stock-monitor/internal/entity"
	"golang-stock-monitor/internal/monitor/dto"
	"golang-stock-monitor/pkg/market"
)

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

func alertIcon(t entity.AlertType) (string, string) {
	switch t {
	case entity.AlertTypeTakeProfit:
		return "🎯", "Take Profit"
	case entity.AlertTypeStopLoss:
		return "🛑", "Stop Loss"
	case entity.AlertTypeMACross:
		return "📉", "MA5/MA20 Cross Down"
	case entity.AlertTypeHoldingPeriodExpired:
		return "⏰", "Holding Period Expired"
	case entity.AlertTypeEntryRange:
		return "🟢", "Entry Range Hit"
	default:
		return "🔔", string(t)
	}
}

// FormatAlertForTelegram formats a pending alert into a Markdown message.
func FormatAlertForTelegram(alert *entity.Alert, session market.SessionInfo, loc *time.Location) string {
	var sb strings.Builder

	icon, title := alertIcon(alert.AlertType)
	sb.WriteString(fmt.Sprintf("%s *%s*\n\n", icon, title))

	if alert.Position != nil {
		name := alert.Position.Name
		if name != "" {
			name = " " + markdownEscaper.Replace(name)
		}
		sb.WriteString(fmt.Sprintf("📈 *Stock:* `%s`%s\n", alert.Position.Symbol, name))
		if alert.Position.EntryPrice != nil {
			sb.WriteString(fmt.Sprintf("💵 *Entry:* %.2f\n", *alert.Position.EntryPrice))
		}
		sb.WriteString(fmt.Sprintf("📅 *Holding:* %d days\n", alert.Position.HoldingDays))
	}
	if alert.Price != nil {
		sb.WriteString(fmt.Sprintf("💰 *Price:* %.2f\n", *alert.Price))
	}
	if alert.MA5 != nil && alert.MA20 != nil {
		sb.WriteString(fmt.Sprintf("📊 *MA5/MA20:* %.2f / %.2f\n", *alert.MA5, *alert.MA20))
	}
	sb.WriteString(fmt.Sprintf("📝 *Reason:* %s\n", markdownEscaper.Replace(alert.Reason)))
	sb.WriteString(fmt.Sprintf("🕒 *Session:* %s\n", markdownEscaper.Replace(session.Description)))
	sb.WriteString(fmt.Sprintf("⏱ %s", alert.CreatedAt.In(loc).Format("2006-01-02 15:04")))

	return sb.String()
}

// FormatDecisionForTelegram formats a gated decision into a Markdown message.
func FormatDecisionForTelegram(d *dto.Decision) string {
	var sb strings.Builder

	var actionIcon string
	switch d.Action {
	case dto.ActionBuy:
		actionIcon = "🟢"
	case dto.ActionSell:
		actionIcon = "🔴"
	default:
		actionIcon = "🟡"
	}

	sb.WriteString(fmt.Sprintf("🤖 *Decision for* `%s`\n\n", d.Symbol))
	sb.WriteString(fmt.Sprintf("%s *Action:* %s\n", actionIcon, d.Action))
	sb.WriteString(fmt.Sprintf("🎯 *Confidence:* %d%%\n", d.Confidence))
	sb.WriteString(fmt.Sprintf("⚠️ *Risk:* %s\n", d.RiskLevel))
	if d.Action != dto.ActionHold {
		sb.WriteString(fmt.Sprintf("📦 *Size:* %.0f%% | *SL:* %.1f%% | *TP:* %.1f%%\n", d.PositionSizePct, d.StopLossPct, d.TakeProfitPct))
	}
	if !d.Executable {
		sb.WriteString("🔒 _Analysis only, market not tradable_\n")
	}
	sb.WriteString(fmt.Sprintf("\n🤔 *Reasoning:*\n%s", markdownEscaper.Replace(d.Reasoning)))

	return sb.String()
}
