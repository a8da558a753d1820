package service

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"regexp"
	"strings"
	"time"

	"golang-stock-monitor/internal/monitor/dto"
	"golang-stock-monitor/internal/monitor/repository"
	"golang-stock-monitor/pkg/common"
	"golang-stock-monitor/pkg/logger"
	"golang-stock-monitor/pkg/market"
	"golang-stock-monitor/pkg/utils"

	"github.com/go-playground/validator/v10"
)

const (
	defaultPositionSizePct = 20.0
	defaultStopLossPct     = 5.0
	defaultTakeProfitPct   = 10.0

	overrideSameDaySell = "[override: position opened today, T+1 settlement forbids selling before the next trading day]"
	overrideNoPosition  = "[override: no position held, nothing to sell]"
	noteAnalysisOnly    = "[analysis only: session is not tradable, do not act on this decision]"
)

// ErrDecisionSkipped is returned when the session is not tradable and
// analysis-only decisions are disabled.
var ErrDecisionSkipped = errors.New("decision skipped: session is not tradable")

var (
	jsonFencePattern = regexp.MustCompile("(?s)```json\\s*(\\{.*?\\})\\s*```")
	anyFencePattern  = regexp.MustCompile("(?s)```\\s*(\\{.*?\\})\\s*```")
)

// DecisionGate asks the decision service for an action and enforces the hard
// trading constraints on the answer.
type DecisionGate interface {
	Decide(ctx context.Context, req *dto.DecisionRequest) (*dto.Decision, error)
}

type decisionGate struct {
	aiRepo       repository.AIRepository
	schedule     market.Schedule
	analysisOnly bool
	logger       *logger.Logger
}

// NewDecisionGate creates a DecisionGate. When analysisOnly is true the gate
// still consults the model outside tradable sessions but marks the result as
// not executable.
func NewDecisionGate(aiRepo repository.AIRepository, schedule market.Schedule, analysisOnly bool, log *logger.Logger) DecisionGate {
	return &decisionGate{
		aiRepo:       aiRepo,
		schedule:     schedule,
		analysisOnly: analysisOnly,
		logger:       log,
	}
}

func (g *decisionGate) Decide(ctx context.Context, req *dto.DecisionRequest) (*dto.Decision, error) {
	executable := req.Session.CanTrade
	if !executable && !g.analysisOnly {
		return nil, ErrDecisionSkipped
	}

	raw, err := g.aiRepo.Complete(ctx, repository.DecisionSystemPrompt, repository.BuildDecisionPrompt(req))
	if err != nil {
		return nil, &common.ProviderError{Provider: g.aiRepo.Name(), Op: "decide", Err: err}
	}

	decision := ParseDecision(raw)
	decision.Symbol = req.Symbol
	decision.Provider = g.aiRepo.Name()
	decision.Session = string(req.Session.Session)
	decision.Executable = executable
	if decision.ParseError != "" {
		g.logger.WarnContext(ctx, "Decision payload rejected, holding",
			logger.StringField("symbol", req.Symbol),
			logger.StringField("parse_error", decision.ParseError))
	}

	g.enforce(req, decision)
	return decision, nil
}

func (g *decisionGate) enforce(req *dto.DecisionRequest, d *dto.Decision) {
	if d.Action == dto.ActionSell {
		switch {
		case req.Position == nil:
			d.Action = dto.ActionHold
			d.Overridden = true
			d.Reasoning = appendNote(d.Reasoning, overrideNoPosition)
		case g.openedOnTradingDay(req.Position.BuyDate, req.Session.At):
			d.Action = dto.ActionHold
			d.Overridden = true
			d.Reasoning = appendNote(d.Reasoning, overrideSameDaySell)
		}
	}
	if !d.Executable {
		d.Reasoning = appendNote(d.Reasoning, noteAnalysisOnly)
	}
}

// openedOnTradingDay compares the stored civil buy date with the exchange-local date of at.
func (g *decisionGate) openedOnTradingDay(buyDate, at time.Time) bool {
	return utils.CivilDate(buyDate, time.UTC).Equal(g.schedule.TradingDay(at))
}

func appendNote(reasoning, note string) string {
	if reasoning == "" {
		return note
	}
	return reasoning + " " + note
}

var payloadValidator = validator.New()

// ParseDecision locates and validates the decision payload in a model reply.
// It never fails: an invalid reply yields a HOLD with zero confidence, high
// risk and ParseError set.
func ParseDecision(raw string) *dto.Decision {
	payload, err := ExtractDecisionPayload(raw)
	if err != nil {
		reason := err.Error()
		var parseErr *common.ParseError
		if errors.As(err, &parseErr) {
			reason = parseErr.Reason
		}
		return &dto.Decision{
			Action:        dto.ActionHold,
			Confidence:    0,
			Reasoning:     "parse failed: " + reason,
			StopLossPct:   defaultStopLossPct,
			TakeProfitPct: defaultTakeProfitPct,
			RiskLevel:     dto.RiskHigh,
			ParseError:    reason,
			Raw:           raw,
		}
	}

	d := &dto.Decision{
		Action:          *payload.Action,
		Confidence:      int(math.Round(*payload.Confidence)),
		Reasoning:       strings.TrimSpace(*payload.Reasoning),
		PositionSizePct: defaultPositionSizePct,
		StopLossPct:     defaultStopLossPct,
		TakeProfitPct:   defaultTakeProfitPct,
		RiskLevel:       dto.RiskMedium,
		Raw:             raw,
	}
	if payload.PositionSizePct != nil {
		d.PositionSizePct = *payload.PositionSizePct
	}
	if payload.StopLossPct != nil {
		d.StopLossPct = *payload.StopLossPct
	}
	if payload.TakeProfitPct != nil {
		d.TakeProfitPct = *payload.TakeProfitPct
	}
	if payload.RiskLevel != nil {
		d.RiskLevel = *payload.RiskLevel
	}
	if payload.KeyPriceLevels != nil {
		d.PriceLevels = *payload.KeyPriceLevels
	}
	return d
}

// ExtractDecisionPayload tries a ```json fence, then any fence, then the
// outermost braces, and validates the first candidate that decodes.
func ExtractDecisionPayload(raw string) (*dto.DecisionPayload, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, &common.ParseError{Reason: "empty response", Raw: raw}
	}

	var candidates []string
	if m := jsonFencePattern.FindStringSubmatch(raw); m != nil {
		candidates = append(candidates, m[1])
	}
	if m := anyFencePattern.FindStringSubmatch(raw); m != nil {
		candidates = append(candidates, m[1])
	}
	if start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); start >= 0 && end > start {
		candidates = append(candidates, raw[start:end+1])
	}
	if len(candidates) == 0 {
		return nil, &common.ParseError{Reason: "no JSON object found in response", Raw: raw}
	}

	var lastErr error
	for _, candidate := range candidates {
		var payload dto.DecisionPayload
		if err := json.Unmarshal([]byte(candidate), &payload); err != nil {
			lastErr = err
			continue
		}
		normalizePayload(&payload)
		if err := payloadValidator.Struct(&payload); err != nil {
			return nil, &common.ParseError{Reason: "invalid decision payload: " + err.Error(), Raw: raw}
		}
		return &payload, nil
	}
	return nil, &common.ParseError{Reason: "invalid JSON: " + lastErr.Error(), Raw: raw}
}

func normalizePayload(p *dto.DecisionPayload) {
	if p.Action != nil {
		action := strings.ToUpper(strings.TrimSpace(*p.Action))
		p.Action = &action
	}
	if p.RiskLevel != nil {
		risk := strings.ToLower(strings.TrimSpace(*p.RiskLevel))
		p.RiskLevel = &risk
	}
}
