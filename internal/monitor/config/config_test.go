package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang-stock-monitor/pkg/market"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 60*time.Second, cfg.Monitor.PollInterval)
	assert.Equal(t, 60*time.Minute, cfg.Monitor.AlertCooldown)
	assert.Equal(t, 5, cfg.Monitor.MaxHoldingDays)
	assert.Equal(t, 4, cfg.Monitor.WorkerPoolSize)
	assert.Equal(t, 30, cfg.Monitor.AlertRetentionDays)
	assert.False(t, cfg.Monitor.DecisionEnabled)
	assert.Equal(t, []string{"tencent", "yahoo"}, cfg.MarketData.Providers)
	assert.Equal(t, "09:30", cfg.Session.MorningStart)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
monitor:
  max_holding_days: 3
  alert_cooldown: 15m
  decision_enabled: true
session:
  holidays:
    - "2024-10-01"
market_data:
  providers: [yahoo]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Monitor.MaxHoldingDays)
	assert.Equal(t, 15*time.Minute, cfg.Monitor.AlertCooldown)
	assert.True(t, cfg.Monitor.DecisionEnabled)
	assert.Equal(t, []string{"yahoo"}, cfg.MarketData.Providers)
	assert.Equal(t, []string{"2024-10-01"}, cfg.Session.Holidays)
	// untouched keys keep their defaults
	assert.Equal(t, 4, cfg.Monitor.WorkerPoolSize)
}

func validSession() Session {
	return Session{
		Timezone:       "Asia/Shanghai",
		PreOpenStart:   "09:00",
		MorningStart:   "09:30",
		LunchStart:     "11:30",
		AfternoonStart: "13:00",
		ClosingStart:   "14:30",
		AfternoonEnd:   "15:00",
	}
}

func TestSession_Schedule(t *testing.T) {
	s := validSession()
	s.Holidays = []string{"2024-10-01"}

	sched, err := s.Schedule()
	require.NoError(t, err)
	assert.Equal(t, market.Clock{Hour: 14, Minute: 30}, sched.ClosingStart)

	holiday := time.Date(2024, 10, 1, 10, 0, 0, 0, sched.Location)
	assert.Equal(t, market.Closed, sched.Classify(holiday).Session)
}

func TestSession_ScheduleRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *Session)
	}{
		{"malformed clock", func(s *Session) { s.LunchStart = "11h30" }},
		{"cutoffs out of order", func(s *Session) { s.AfternoonStart = "11:00" }},
		{"malformed holiday", func(s *Session) { s.Holidays = []string{"01/10/2024"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSession()
			tt.mutate(&s)
			_, err := s.Schedule()
			assert.Error(t, err)
		})
	}
}
