package usecase

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/vitos/currency_rates/internal/domain"
	"go.uber.org/zap"
)

const DefaultFallbackRate = 0.7456

type WidgetConfig struct {
	FallbackRate       float64
	Markup             float64
	Threshold          float64
	ProgressPerMilli   float64
	SourceCountry      domain.CountryCode
	DestinationCountry domain.CountryCode
}

func DefaultWidgetConfig() WidgetConfig {
	return WidgetConfig{
		FallbackRate:       DefaultFallbackRate,
		Markup:             DefaultMarkup,
		Threshold:          DefaultRefreshCycleThreshold,
		ProgressPerMilli:   DefaultProgressPerMilli,
		SourceCountry:      "AU",
		DestinationCountry: "US",
	}
}

// RefreshStarter begins an asynchronous rate fetch. The outcome must be
// handed back through Widget.SettleRefresh on the widget's own goroutine.
type RefreshStarter interface {
	StartRefresh(source, destination domain.CurrencyCode)
}

type SideView struct {
	Country  domain.CountryCode  `json:"country"`
	Currency domain.CurrencyCode `json:"currency"`
}

// View is everything the presentation layer renders.
type View struct {
	Progress     float64         `json:"progress"`
	Loading      bool            `json:"loading"`
	Rate         float64         `json:"rate"`
	MarkedUpRate decimal.Decimal `json:"marked_up_rate"`
	Source       SideView        `json:"source"`
	Destination  SideView        `json:"destination"`
	Amount       string          `json:"amount"`
	Result       *Conversion     `json:"result,omitempty"` // only when amount > 0
}

// Widget is the state of one mounted converter. It is not safe for
// concurrent use: every method must run on the goroutine that delivers
// frames and refresh results.
type Widget struct {
	cfg     WidgetConfig
	lookup  domain.CurrencyLookup
	starter RefreshStarter
	logger  *zap.Logger

	scheduler *RefreshScheduler
	loop      *AnimationLoop

	selection   domain.CurrencySelection
	amount      string
	amountValue decimal.Decimal
	rate        float64
	loading     bool
	mounted     bool
}

func NewWidget(cfg WidgetConfig, lookup domain.CurrencyLookup, host FrameHost, starter RefreshStarter, logger *zap.Logger) (*Widget, error) {
	if cfg.FallbackRate <= 0 {
		return nil, fmt.Errorf("fallback rate must be positive, got %v", cfg.FallbackRate)
	}
	if cfg.Markup < 0 {
		return nil, fmt.Errorf("markup must not be negative, got %v", cfg.Markup)
	}
	for _, c := range []domain.CountryCode{cfg.SourceCountry, cfg.DestinationCountry} {
		if _, ok := lookup.CurrencyFor(c); !ok {
			return nil, fmt.Errorf("default country %q: %w", c, domain.ErrUnknownCountry)
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	w := &Widget{
		cfg:     cfg,
		lookup:  lookup,
		starter: starter,
		logger:  logger,
		selection: domain.CurrencySelection{
			Source:      cfg.SourceCountry,
			Destination: cfg.DestinationCountry,
		},
		amountValue: decimal.Zero,
		rate:        cfg.FallbackRate,
	}
	w.scheduler = NewRefreshScheduler(cfg.Threshold, cfg.ProgressPerMilli, w.refresh)
	w.loop = NewAnimationLoop(host, func(delta float64) {
		w.scheduler.Tick(delta)
	})
	return w, nil
}

// Mount starts the frame clock.
func (w *Widget) Mount() {
	w.mounted = true
	if !w.loading {
		w.loop.Enable()
	}
}

// Unmount stops the frame clock; later refresh results are ignored.
func (w *Widget) Unmount() {
	w.mounted = false
	w.loop.Stop()
}

func (w *Widget) refresh() {
	if w.loading {
		return
	}
	source, _ := w.lookup.CurrencyFor(w.selection.Source)
	destination, _ := w.lookup.CurrencyFor(w.selection.Destination)

	w.loading = true
	w.loop.Disable()
	w.logger.Debug("Refreshing rate",
		zap.String("source", string(source)),
		zap.String("destination", string(destination)))
	w.starter.StartRefresh(source, destination)
}

// SettleRefresh applies the outcome of the in-flight refresh. A failed
// refresh keeps the previous rate.
func (w *Widget) SettleRefresh(rate float64, err error) {
	if !w.mounted {
		w.logger.Debug("Ignoring refresh result after unmount")
		return
	}
	w.loading = false

	switch {
	case err != nil:
		w.logger.Error("Failed to refresh rate", zap.Error(err), zap.Float64("kept_rate", w.rate))
	case rate <= 0:
		w.logger.Error("Ignoring non-positive rate", zap.Float64("rate", rate))
	default:
		w.rate = rate
	}

	w.loop.Enable()
}

// SetSourceCountry selects the country whose currency is converted from.
func (w *Widget) SetSourceCountry(c domain.CountryCode) error {
	if _, ok := w.lookup.CurrencyFor(c); !ok {
		return fmt.Errorf("source %q: %w", c, domain.ErrUnknownCountry)
	}
	w.selection.Source = c
	return nil
}

// SetDestinationCountry selects the country whose currency is converted to.
func (w *Widget) SetDestinationCountry(c domain.CountryCode) error {
	if _, ok := w.lookup.CurrencyFor(c); !ok {
		return fmt.Errorf("destination %q: %w", c, domain.ErrUnknownCountry)
	}
	w.selection.Destination = c
	return nil
}

// SetAmount stores raw if it is a valid amount and reports whether it was
// accepted. Rejected input leaves the previous amount untouched.
func (w *Widget) SetAmount(raw string) bool {
	v, err := ParseAmount(raw)
	if err != nil {
		return false
	}
	w.amount = raw
	w.amountValue = v
	return true
}

func (w *Widget) Progress() float64                   { return w.scheduler.Progress() }
func (w *Widget) Loading() bool                       { return w.loading }
func (w *Widget) Rate() float64                       { return w.rate }
func (w *Widget) Amount() string                      { return w.amount }
func (w *Widget) Selection() domain.CurrencySelection { return w.selection }
func (w *Widget) Mounted() bool                       { return w.mounted }
func (w *Widget) FrameClockEnabled() bool             { return w.loop.Enabled() }

func (w *Widget) View() View {
	source, _ := w.lookup.CurrencyFor(w.selection.Source)
	destination, _ := w.lookup.CurrencyFor(w.selection.Destination)

	v := View{
		Progress:     w.scheduler.Progress(),
		Loading:      w.loading,
		Rate:         w.rate,
		MarkedUpRate: MarkedUpRate(decimal.NewFromFloat(w.rate), decimal.NewFromFloat(w.cfg.Markup)),
		Source:       SideView{Country: w.selection.Source, Currency: source},
		Destination:  SideView{Country: w.selection.Destination, Currency: destination},
		Amount:       w.amount,
	}
	if w.amountValue.IsPositive() {
		c := Convert(w.amountValue, w.rate, w.cfg.Markup)
		v.Result = &c
	}
	return v
}
