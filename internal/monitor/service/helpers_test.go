package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"golang-stock-monitor/internal/monitor/dto"
	"golang-stock-monitor/internal/monitor/repository"
	"golang-stock-monitor/pkg/database"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewDB(database.Config{
		Driver: database.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "monitor.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, repository.AutoMigrate(db.DB))
	return db.DB
}

// shanghai returns a wall-clock time in the exchange timezone.
func shanghai(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.FixedZone("CST", 8*60*60))
}

// MockAIRepository is a mock implementation of AIRepository
type MockAIRepository struct {
	mock.Mock
}

func (m *MockAIRepository) Name() string { return "mock" }

func (m *MockAIRepository) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	args := m.Called(ctx, systemPrompt, userPrompt)
	return args.String(0), args.Error(1)
}

// fakeMarketData serves fixed quotes per symbol; symbols without a quote fail.
type fakeMarketData struct {
	mu     sync.Mutex
	quotes map[string]float64
	mas    map[string]dto.MovingAverages
	calls  int
	block  chan struct{}
}

func newFakeMarketData() *fakeMarketData {
	return &fakeMarketData{quotes: map[string]float64{}, mas: map[string]dto.MovingAverages{}}
}

func (f *fakeMarketData) Name() string { return "fake" }

func (f *fakeMarketData) setPrice(symbol string, price float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quotes[symbol] = price
}

func (f *fakeMarketData) setMA(symbol string, ma5, ma20 float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mas[symbol] = dto.MovingAverages{MA5: ma5, MA20: ma20, Source: "fake"}
}

func (f *fakeMarketData) GetCurrentPrice(ctx context.Context, symbol string) (*dto.Quote, error) {
	f.mu.Lock()
	f.calls++
	block := f.block
	price, ok := f.quotes[symbol]
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if !ok {
		return nil, errors.New("quote unavailable")
	}
	return &dto.Quote{Symbol: symbol, Price: price, Source: "fake"}, nil
}

func (f *fakeMarketData) GetMovingAverages(ctx context.Context, symbol string) (*dto.MovingAverages, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ma, ok := f.mas[symbol]
	if !ok {
		return nil, errors.New("history unavailable")
	}
	return &ma, nil
}

// recordingNotifier stores every message it is asked to send.
type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (n *recordingNotifier) SendMessage(text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.messages = append(n.messages, text)
	return nil
}

func (n *recordingNotifier) sent() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}
