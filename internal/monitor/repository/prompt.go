package repository

import (
	"fmt"
	"strings"
	"time"

	"golang-stock-monitor/internal/monitor/dto"
)

// DecisionSystemPrompt instructs the model to answer with a single JSON decision.
const DecisionSystemPrompt = `You are a disciplined A-share trading assistant. You follow T+1 settlement:
shares bought today cannot be sold until the next trading day. You never recommend
acting outside continuous trading sessions. Answer with exactly one JSON object and
nothing else:
{
  "action": "BUY" | "SELL" | "HOLD",
  "confidence": 0-100,
  "reasoning": "short explanation",
  "position_size_pct": 0-100,
  "stop_loss_pct": number,
  "take_profit_pct": number,
  "risk_level": "low" | "medium" | "high",
  "key_price_levels": {"support": number, "resistance": number, "stop_loss": number}
}`

// BuildDecisionPrompt renders the decision context for the model.
func BuildDecisionPrompt(req *dto.DecisionRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Symbol: %s", req.Symbol)
	if req.Name != "" {
		fmt.Fprintf(&b, " (%s)", req.Name)
	}
	b.WriteString("\n")
	if req.Trigger != "" {
		fmt.Fprintf(&b, "Triggered rule: %s\n", req.Trigger)
	}

	b.WriteString("\n## Session\n")
	fmt.Fprintf(&b, "Time: %s\n", req.Session.At.Format(time.DateTime))
	fmt.Fprintf(&b, "Session: %s (%s)\n", req.Session.Session, req.Session.Description)
	fmt.Fprintf(&b, "Can trade: %t\n", req.Session.CanTrade)
	fmt.Fprintf(&b, "Volatility: %s\n", req.Session.Volatility)
	fmt.Fprintf(&b, "Guidance: %s\n", req.Session.Recommendation)

	b.WriteString("\n## Market\n")
	writeOptional(&b, "Price", req.Market.Price)
	fmt.Fprintf(&b, "Change: %.2f%%\n", req.Market.ChangePct)
	if req.Market.High > 0 {
		fmt.Fprintf(&b, "Day range: %.2f - %.2f\n", req.Market.Low, req.Market.High)
	}
	writeOptional(&b, "MA5", req.Market.MA5)
	writeOptional(&b, "MA20", req.Market.MA20)

	b.WriteString("\n## Account\n")
	fmt.Fprintf(&b, "Cash: %.2f\n", req.Account.Cash)
	fmt.Fprintf(&b, "Open positions: %d\n", req.Account.PositionCount)

	b.WriteString("\n## Position\n")
	if req.Position == nil {
		b.WriteString("No position held. SELL is not possible.\n")
	} else {
		p := req.Position
		fmt.Fprintf(&b, "Entry price: %.2f\n", p.EntryPrice)
		fmt.Fprintf(&b, "Quantity: %d\n", p.Quantity)
		fmt.Fprintf(&b, "Bought: %s (%d days held)\n", p.BuyDate.Format(time.DateOnly), p.HoldingDays)
		fmt.Fprintf(&b, "Unrealised P&L: %.2f%%\n", p.ProfitPct)
		if p.CanSellToday {
			b.WriteString("Can sell today: yes\n")
		} else {
			b.WriteString("Can sell today: no (bought today, T+1)\n")
		}
	}

	b.WriteString("\nReturn the JSON decision now.")
	return b.String()
}

func writeOptional(b *strings.Builder, label string, v *float64) {
	if v == nil {
		fmt.Fprintf(b, "%s: unavailable\n", label)
		return
	}
	fmt.Fprintf(b, "%s: %.2f\n", label, *v)
}
