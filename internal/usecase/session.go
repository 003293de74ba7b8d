package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/vitos/currency_rates/internal/domain"
	"go.uber.org/zap"
)

var (
	ErrSessionClosed  = errors.New("session closed")
	ErrSessionRunning = errors.New("session already running")
)

const DefaultFrameInterval = 16 * time.Millisecond

type SessionConfig struct {
	Widget        WidgetConfig
	FrameInterval time.Duration
	// RefreshTimeout caps a single refresh. Zero means a refresh may stay
	// in flight indefinitely, freezing the progress cycle meanwhile.
	RefreshTimeout time.Duration
}

type SessionOption func(*Session)

// WithRefreshLog records every settled refresh in repo.
func WithRefreshLog(repo domain.RefreshLogRepository) SessionOption {
	return func(s *Session) { s.refreshLog = repo }
}

func WithObserver(o domain.RefreshObserver) SessionOption {
	return func(s *Session) { s.observers = append(s.observers, o) }
}

// WithTicker replaces the frame ticker, mainly for tests.
func WithTicker(newTicker func(d time.Duration) (<-chan time.Time, func())) SessionOption {
	return func(s *Session) { s.newTicker = newTicker }
}

// WithClock replaces time.Now for refresh record timestamps.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.timeNow = now }
}

func WithLogger(logger *zap.Logger) SessionOption {
	return func(s *Session) { s.logger = logger }
}

// Session hosts one mounted widget. A single goroutine (Run) owns the
// widget and serializes frames, refresh results and user commands.
type Session struct {
	cfg        SessionConfig
	fetcher    domain.RateFetcher
	refreshLog domain.RefreshLogRepository
	observers  []domain.RefreshObserver
	logger     *zap.Logger
	newTicker  func(d time.Duration) (<-chan time.Time, func())
	timeNow    func() time.Time

	widget  *Widget
	frames  *frameQueue
	events  chan func()
	done    chan struct{}
	running atomic.Bool
	fetches sync.WaitGroup

	mu      sync.RWMutex
	view    View
	subs    map[int]chan View
	nextSub int
	closed  bool
}

func NewSession(cfg SessionConfig, fetcher domain.RateFetcher, lookup domain.CurrencyLookup, opts ...SessionOption) (*Session, error) {
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = DefaultFrameInterval
	}
	s := &Session{
		cfg:       cfg,
		fetcher:   fetcher,
		logger:    zap.NewNop(),
		newTicker: defaultTicker,
		timeNow:   time.Now,
		frames:    newFrameQueue(),
		events:    make(chan func()),
		done:      make(chan struct{}),
		subs:      make(map[int]chan View),
	}
	for _, opt := range opts {
		opt(s)
	}

	w, err := NewWidget(cfg.Widget, lookup, s.frames, s, s.logger)
	if err != nil {
		return nil, err
	}
	s.widget = w
	s.view = w.View()
	return s, nil
}

func defaultTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// Run mounts the widget and processes events until ctx is done, then
// unmounts it. A session can run only once.
func (s *Session) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrSessionRunning
	}

	ticks, stop := s.newTicker(s.cfg.FrameInterval)
	defer stop()

	s.widget.Mount()
	s.publish()
	s.logger.Info("Widget mounted",
		zap.Duration("frame_interval", s.cfg.FrameInterval),
		zap.Float64("rate", s.widget.Rate()))

	for {
		changed := false
		select {
		case <-ctx.Done():
			s.widget.Unmount()
			s.publish()
			close(s.done)
			s.closeSubscribers()
			s.logger.Info("Widget unmounted")
			return nil
		case now := <-ticks:
			changed = s.frames.flush(now) > 0
		case fn := <-s.events:
			fn()
			changed = true
		}
		if changed {
			s.publish()
		}
	}
}

// Wait blocks until every started refresh has returned.
func (s *Session) Wait() {
	s.fetches.Wait()
}

// StartRefresh runs the fetch on its own goroutine. The fetch is not tied
// to the session context, so it always runs to completion; its result is
// dropped if the session is gone by then.
func (s *Session) StartRefresh(source, destination domain.CurrencyCode) {
	s.fetches.Add(1)
	go func() {
		defer s.fetches.Done()

		ctx := context.Background()
		if s.cfg.RefreshTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.cfg.RefreshTimeout)
			defer cancel()
		}

		started := s.timeNow()
		rate, err := s.fetcher.FetchRate(ctx, source, destination)
		rec := &domain.RefreshRecord{
			ID:          uuid.NewString(),
			Source:      source,
			Destination: destination,
			StartedAt:   started,
			Duration:    s.timeNow().Sub(started),
		}
		if err != nil {
			rec.Error = err.Error()
		} else {
			rec.Rate = rate
		}
		s.record(rec)

		select {
		case s.events <- func() { s.widget.SettleRefresh(rate, err) }:
		case <-s.done:
			s.logger.Debug("Dropping refresh result after unmount", zap.String("refresh_id", rec.ID))
		}
	}()
}

func (s *Session) record(rec *domain.RefreshRecord) {
	for _, o := range s.observers {
		o.ObserveRefresh(rec)
	}
	if s.refreshLog == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.refreshLog.SaveRefresh(ctx, rec); err != nil {
		s.logger.Error("Failed to save refresh record", zap.String("refresh_id", rec.ID), zap.Error(err))
	}
}

// do runs fn on the session goroutine and waits for it.
func (s *Session) do(ctx context.Context, fn func(w *Widget)) error {
	finished := make(chan struct{})
	select {
	case s.events <- func() { fn(s.widget); close(finished) }:
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	<-finished
	return nil
}

func (s *Session) SetSourceCountry(ctx context.Context, c domain.CountryCode) (View, error) {
	var (
		v   View
		err error
	)
	if e := s.do(ctx, func(w *Widget) {
		err = w.SetSourceCountry(c)
		v = w.View()
	}); e != nil {
		return View{}, e
	}
	return v, err
}

func (s *Session) SetDestinationCountry(ctx context.Context, c domain.CountryCode) (View, error) {
	var (
		v   View
		err error
	)
	if e := s.do(ctx, func(w *Widget) {
		err = w.SetDestinationCountry(c)
		v = w.View()
	}); e != nil {
		return View{}, e
	}
	return v, err
}

// SetAmount reports whether raw was accepted along with the resulting view.
func (s *Session) SetAmount(ctx context.Context, raw string) (bool, View, error) {
	var (
		v        View
		accepted bool
	)
	if err := s.do(ctx, func(w *Widget) {
		accepted = w.SetAmount(raw)
		v = w.View()
	}); err != nil {
		return false, View{}, err
	}
	return accepted, v, nil
}

// View returns the latest published view.
func (s *Session) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

// Subscribe returns a channel that always holds the most recent view.
// The channel is closed by the returned func or when the session ends.
func (s *Session) Subscribe() (<-chan View, func()) {
	ch := make(chan View, 1)

	s.mu.Lock()
	if s.closed {
		ch <- s.view
		close(ch)
		s.mu.Unlock()
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.view
	s.mu.Unlock()

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

func (s *Session) publish() {
	v := s.widget.View()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = v
	for _, ch := range s.subs {
		select {
		case ch <- v:
		default:
			// latest wins
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- v:
			default:
			}
		}
	}
}

func (s *Session) closeSubscribers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
}

// frameQueue is the FrameHost of a session: callbacks requested during
// one frame run on the next tick.
type frameQueue struct {
	next    int
	pending map[int]func(now time.Time)
}

func newFrameQueue() *frameQueue {
	return &frameQueue{pending: make(map[int]func(now time.Time))}
}

func (q *frameQueue) RequestFrame(cb func(now time.Time)) func() {
	id := q.next
	q.next++
	q.pending[id] = cb
	return func() { delete(q.pending, id) }
}

func (q *frameQueue) flush(now time.Time) int {
	if len(q.pending) == 0 {
		return 0
	}
	batch := q.pending
	q.pending = make(map[int]func(now time.Time))
	for _, cb := range batch {
		cb(now)
	}
	return len(batch)
}
