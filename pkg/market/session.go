package market

import (
	"fmt"
	"time"

	"golang-stock-monitor/pkg/utils"
)

// Session is a trading-session state of the exchange.
type Session string

const (
	Closed           Session = "closed"
	PreOpenAuction   Session = "pre_open_auction"
	MorningSession   Session = "morning_session"
	LunchBreak       Session = "lunch_break"
	AfternoonSession Session = "afternoon_session"
	ClosingWindow    Session = "closing_window"
	PostClose        Session = "post_close"
)

// CanTrade reports whether orders can be executed during s.
func (s Session) CanTrade() bool {
	switch s {
	case MorningSession, AfternoonSession, ClosingWindow:
		return true
	}
	return false
}

// Clock is a wall-clock cutoff as hour and minute.
type Clock struct {
	Hour   int
	Minute int
}

func (c Clock) minutes() int { return c.Hour*60 + c.Minute }

func (c Clock) String() string { return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute) }

// ParseClock parses "HH:MM".
func ParseClock(s string) (Clock, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return Clock{}, fmt.Errorf("invalid clock %q: %w", s, err)
	}
	return Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// Schedule holds the session cutoffs of an exchange. Each session runs from its
// start cutoff (inclusive) up to the next cutoff (exclusive).
type Schedule struct {
	Location       *time.Location
	PreOpenStart   Clock
	MorningStart   Clock
	LunchStart     Clock
	AfternoonStart Clock
	ClosingStart   Clock
	AfternoonEnd   Clock
	// Holidays are exchange-local dates (2006-01-02) classified as Closed.
	Holidays map[string]struct{}
}

// DefaultSchedule returns the Shanghai/Shenzhen A-share schedule.
func DefaultSchedule() Schedule {
	return Schedule{
		Location:       utils.LoadLocation(utils.DefaultExchangeTimezone),
		PreOpenStart:   Clock{9, 0},
		MorningStart:   Clock{9, 30},
		LunchStart:     Clock{11, 30},
		AfternoonStart: Clock{13, 0},
		ClosingStart:   Clock{14, 30},
		AfternoonEnd:   Clock{15, 0},
	}
}

// Validate checks that the cutoffs are strictly increasing.
func (s Schedule) Validate() error {
	cutoffs := []Clock{s.PreOpenStart, s.MorningStart, s.LunchStart, s.AfternoonStart, s.ClosingStart, s.AfternoonEnd}
	for i := 1; i < len(cutoffs); i++ {
		if cutoffs[i].minutes() <= cutoffs[i-1].minutes() {
			return fmt.Errorf("session cutoff %s must be after %s", cutoffs[i], cutoffs[i-1])
		}
	}
	return nil
}

// SessionInfo is the classification of one instant.
type SessionInfo struct {
	Session        Session   `json:"session"`
	CanTrade       bool      `json:"can_trade"`
	Description    string    `json:"description"`
	Volatility     string    `json:"volatility"`
	Recommendation string    `json:"recommendation"`
	At             time.Time `json:"at"`
}

type sessionMeta struct {
	description    string
	volatility     string
	recommendation string
}

var meta = map[Session]sessionMeta{
	Closed:           {"Market closed (weekend or holiday)", "none", "Review positions and plan for the next trading day"},
	PreOpenAuction:   {"Opening call auction", "high", "Watch the auction price; orders cannot be executed yet"},
	MorningSession:   {"Morning continuous trading", "high", "Opening volatility is elevated; confirm direction before acting"},
	LunchBreak:       {"Midday break", "none", "Review the morning and prepare for the afternoon session"},
	AfternoonSession: {"Afternoon continuous trading", "medium", "Trend is usually clearer; act on confirmed signals"},
	ClosingWindow:    {"Last half hour before the close", "high", "Decide whether to carry positions overnight"},
	PostClose:        {"After the close", "none", "Summarise the day and plan for tomorrow"},
}

// Classify maps t to the session it falls in.
func (s Schedule) Classify(t time.Time) SessionInfo {
	session := s.session(t)
	m := meta[session]
	return SessionInfo{
		Session:        session,
		CanTrade:       session.CanTrade(),
		Description:    m.description,
		Volatility:     m.volatility,
		Recommendation: m.recommendation,
		At:             t.In(s.location()),
	}
}

func (s Schedule) session(t time.Time) Session {
	local := t.In(s.location())
	if wd := local.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return Closed
	}
	if _, ok := s.Holidays[local.Format(time.DateOnly)]; ok {
		return Closed
	}

	m := local.Hour()*60 + local.Minute()
	switch {
	case m < s.PreOpenStart.minutes():
		return PostClose
	case m < s.MorningStart.minutes():
		return PreOpenAuction
	case m < s.LunchStart.minutes():
		return MorningSession
	case m < s.AfternoonStart.minutes():
		return LunchBreak
	case m < s.ClosingStart.minutes():
		return AfternoonSession
	case m < s.AfternoonEnd.minutes():
		return ClosingWindow
	default:
		return PostClose
	}
}

// IsTradingHours reports whether t falls in a tradable session.
func (s Schedule) IsTradingHours(t time.Time) bool {
	return s.session(t).CanTrade()
}

// TradingDay returns the exchange-local calendar date of t as midnight UTC.
func (s Schedule) TradingDay(t time.Time) time.Time {
	return utils.CivilDate(t, s.location())
}

// SameTradingDay reports whether a and b fall on the same exchange-local date.
func (s Schedule) SameTradingDay(a, b time.Time) bool {
	return s.TradingDay(a).Equal(s.TradingDay(b))
}

func (s Schedule) location() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}
