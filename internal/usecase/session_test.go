package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/currency_rates/internal/domain"
)

type fetchResult struct {
	rate float64
	err  error
}

// MockFetcher blocks every FetchRate call until a result is released.
type MockFetcher struct {
	calls   chan refreshCall
	release chan fetchResult
}

func NewMockFetcher() *MockFetcher {
	return &MockFetcher{
		calls:   make(chan refreshCall, 10),
		release: make(chan fetchResult),
	}
}

func (m *MockFetcher) FetchRate(ctx context.Context, source, destination domain.CurrencyCode) (float64, error) {
	m.calls <- refreshCall{source, destination}
	select {
	case r := <-m.release:
		return r.rate, r.err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

type MockRefreshLog struct {
	mu      sync.Mutex
	records []*domain.RefreshRecord
}

func (m *MockRefreshLog) SaveRefresh(ctx context.Context, rec *domain.RefreshRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func (m *MockRefreshLog) ListRefreshes(ctx context.Context, limit int) ([]*domain.RefreshRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.RefreshRecord(nil), m.records...), nil
}

func (m *MockRefreshLog) Records() []*domain.RefreshRecord {
	recs, _ := m.ListRefreshes(context.Background(), 0)
	return recs
}

type MockObserver struct {
	mu       sync.Mutex
	observed []*domain.RefreshRecord
}

func (m *MockObserver) ObserveRefresh(rec *domain.RefreshRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observed = append(m.observed, rec)
}

func (m *MockObserver) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.observed)
}

type sessionHarness struct {
	session *Session
	fetcher *MockFetcher
	log     *MockRefreshLog
	ticks   chan time.Time
	now     time.Time
	cancel  context.CancelFunc
	errCh   chan error
}

func startSession(t *testing.T, cfg SessionConfig, opts ...SessionOption) *sessionHarness {
	t.Helper()
	h := &sessionHarness{
		fetcher: NewMockFetcher(),
		log:     &MockRefreshLog{},
		ticks:   make(chan time.Time),
		now:     epoch,
		errCh:   make(chan error, 1),
	}
	opts = append([]SessionOption{
		WithRefreshLog(h.log),
		WithTicker(func(time.Duration) (<-chan time.Time, func()) { return h.ticks, func() {} }),
	}, opts...)

	s, err := NewSession(cfg, h.fetcher, testLookup(), opts...)
	require.NoError(t, err)
	h.session = s

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.errCh <- s.Run(ctx) }()
	t.Cleanup(func() {
		h.stop(t)
	})
	return h
}

func fastSessionConfig() SessionConfig {
	return SessionConfig{Widget: fastWidgetConfig()}
}

// tick delivers one frame; the unbuffered send returns once Run took it.
func (h *sessionHarness) tick(d time.Duration) {
	h.now = h.now.Add(d)
	h.ticks <- h.now
}

// snapshot reads the widget on the session goroutine, after every event
// delivered so far has been handled.
func (h *sessionHarness) snapshot(t *testing.T) View {
	t.Helper()
	var v View
	require.NoError(t, h.session.do(context.Background(), func(w *Widget) { v = w.View() }))
	return v
}

func (h *sessionHarness) stop(t *testing.T) {
	t.Helper()
	h.cancel()
	select {
	case err := <-h.errCh:
		require.NoError(t, err)
		h.errCh <- nil
	case <-time.After(2 * time.Second):
		t.Fatal("session did not stop")
	}
}

func (h *sessionHarness) awaitFetch(t *testing.T) refreshCall {
	t.Helper()
	select {
	case c := <-h.fetcher.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no fetch started")
		return refreshCall{}
	}
}

func TestSession_RefreshCycle(t *testing.T) {
	obs := &MockObserver{}
	h := startSession(t, fastSessionConfig(), WithObserver(obs))

	h.tick(cycleStep)
	h.tick(cycleStep)
	assert.InDelta(t, 0.6, h.snapshot(t).Progress, 1e-9)

	h.tick(cycleStep)
	assert.Equal(t, refreshCall{"AUD", "USD"}, h.awaitFetch(t))

	v := h.snapshot(t)
	assert.True(t, v.Loading)
	assert.Equal(t, 0.0, v.Progress)

	// Frozen while the fetch is in flight.
	for i := 0; i < 5; i++ {
		h.tick(cycleStep)
	}
	v = h.snapshot(t)
	assert.Equal(t, 0.0, v.Progress)
	assert.Equal(t, DefaultFallbackRate, v.Rate)

	h.fetcher.release <- fetchResult{rate: 0.7712}
	require.Eventually(t, func() bool {
		return h.snapshot(t).Rate == 0.7712
	}, 2*time.Second, 5*time.Millisecond)
	assert.False(t, h.snapshot(t).Loading)

	recs := h.log.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, domain.CurrencyCode("AUD"), recs[0].Source)
	assert.Equal(t, domain.CurrencyCode("USD"), recs[0].Destination)
	assert.Equal(t, 0.7712, recs[0].Rate)
	assert.True(t, recs[0].Succeeded())
	assert.NotEmpty(t, recs[0].ID)
	assert.Equal(t, 1, obs.Count())
}

func TestSession_FailedRefreshKeepsRate(t *testing.T) {
	h := startSession(t, fastSessionConfig())
	require.True(t, mustSetAmount(t, h.session, "100"))

	for i := 0; i < 3; i++ {
		h.tick(cycleStep)
	}
	h.awaitFetch(t)
	h.fetcher.release <- fetchResult{err: &domain.RateFetchError{Source: "AUD", Destination: "USD", StatusCode: 503, Err: errors.New("API error")}}

	require.Eventually(t, func() bool {
		return !h.snapshot(t).Loading
	}, 2*time.Second, 5*time.Millisecond)

	v := h.snapshot(t)
	assert.Equal(t, DefaultFallbackRate, v.Rate)
	require.NotNil(t, v.Result)
	assert.Equal(t, "74.56", v.Result.TrueAmountText)

	recs := h.log.Records()
	require.Len(t, recs, 1)
	assert.False(t, recs[0].Succeeded())
	assert.Contains(t, recs[0].Error, "status 503")

	// The clock is running again.
	h.tick(cycleStep)
	h.tick(cycleStep)
	assert.InDelta(t, 0.6, h.snapshot(t).Progress, 1e-9)
}

func TestSession_RefreshTimeout(t *testing.T) {
	cfg := fastSessionConfig()
	cfg.RefreshTimeout = 20 * time.Millisecond
	h := startSession(t, cfg)

	for i := 0; i < 3; i++ {
		h.tick(cycleStep)
	}
	h.awaitFetch(t)

	require.Eventually(t, func() bool {
		return !h.snapshot(t).Loading
	}, 2*time.Second, 5*time.Millisecond)
	recs := h.log.Records()
	require.Len(t, recs, 1)
	assert.Contains(t, recs[0].Error, context.DeadlineExceeded.Error())
}

// steppingClock advances by step on every reading.
type steppingClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

func TestSession_RefreshRecordTiming(t *testing.T) {
	clock := &steppingClock{now: epoch, step: 350 * time.Millisecond}
	h := startSession(t, fastSessionConfig(), WithClock(clock.Now))

	for i := 0; i < 3; i++ {
		h.tick(cycleStep)
	}
	h.awaitFetch(t)
	h.fetcher.release <- fetchResult{rate: 0.7}

	require.Eventually(t, func() bool {
		return len(h.log.Records()) == 1
	}, 2*time.Second, 5*time.Millisecond)
	rec := h.log.Records()[0]
	assert.Equal(t, epoch, rec.StartedAt)
	assert.Equal(t, 350*time.Millisecond, rec.Duration)
}

func mustSetAmount(t *testing.T, s *Session, raw string) bool {
	t.Helper()
	accepted, _, err := s.SetAmount(context.Background(), raw)
	require.NoError(t, err)
	return accepted
}

func TestSession_Commands(t *testing.T) {
	h := startSession(t, fastSessionConfig())
	ctx := context.Background()

	v, err := h.session.SetDestinationCountry(ctx, "GB")
	require.NoError(t, err)
	assert.Equal(t, SideView{Country: "GB", Currency: "GBP"}, v.Destination)

	_, err = h.session.SetSourceCountry(ctx, "XX")
	assert.ErrorIs(t, err, domain.ErrUnknownCountry)

	v, err = h.session.SetSourceCountry(ctx, "NZ")
	require.NoError(t, err)
	assert.Equal(t, domain.CurrencyCode("NZD"), v.Source.Currency)

	accepted, v, err := h.session.SetAmount(ctx, "50")
	require.NoError(t, err)
	assert.True(t, accepted)
	assert.Equal(t, "50", v.Amount)

	accepted, v, err = h.session.SetAmount(ctx, "50x")
	require.NoError(t, err)
	assert.False(t, accepted)
	assert.Equal(t, "50", v.Amount)

	require.Eventually(t, func() bool {
		return h.session.View().Amount == "50"
	}, time.Second, 5*time.Millisecond)
}

func TestSession_SubscribeReceivesLatestView(t *testing.T) {
	h := startSession(t, fastSessionConfig())

	views, unsubscribe := h.session.Subscribe()
	defer unsubscribe()

	mustSetAmount(t, h.session, "1")
	mustSetAmount(t, h.session, "2")

	require.Eventually(t, func() bool {
		select {
		case v := <-views:
			return v.Amount == "2"
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}

func TestSession_ShutdownClosesEverything(t *testing.T) {
	h := startSession(t, fastSessionConfig())
	views, _ := h.session.Subscribe()

	h.stop(t)

	for range views {
	}
	_, _, err := h.session.SetAmount(context.Background(), "1")
	assert.ErrorIs(t, err, ErrSessionClosed)
	_, err = h.session.SetSourceCountry(context.Background(), "US")
	assert.ErrorIs(t, err, ErrSessionClosed)

	late, _ := h.session.Subscribe()
	_, ok := <-late
	assert.True(t, ok, "late subscriber gets the final view")
	_, ok = <-late
	assert.False(t, ok)
}

func TestSession_ResultAfterShutdownDropped(t *testing.T) {
	h := startSession(t, fastSessionConfig())
	for i := 0; i < 3; i++ {
		h.tick(cycleStep)
	}
	h.awaitFetch(t)

	h.stop(t)
	h.fetcher.release <- fetchResult{rate: 1.5}
	h.session.Wait()

	assert.Equal(t, DefaultFallbackRate, h.session.View().Rate)
	assert.Len(t, h.log.Records(), 1)
}

func TestSession_RunOnlyOnce(t *testing.T) {
	h := startSession(t, fastSessionConfig())
	h.snapshot(t)

	err := h.session.Run(context.Background())
	assert.ErrorIs(t, err, ErrSessionRunning)
}

func TestNewSession_RejectsBadWidgetConfig(t *testing.T) {
	cfg := fastSessionConfig()
	cfg.Widget.SourceCountry = "XX"
	_, err := NewSession(cfg, NewMockFetcher(), testLookup())
	assert.ErrorIs(t, err, domain.ErrUnknownCountry)
}
