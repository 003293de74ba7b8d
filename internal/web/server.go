package web

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vitos/currency_rates/internal/domain"
	"github.com/vitos/currency_rates/internal/usecase"
	"go.uber.org/zap"
)

// WidgetSession is the part of usecase.Session the handlers drive.
type WidgetSession interface {
	View() usecase.View
	Subscribe() (<-chan usecase.View, func())
	SetSourceCountry(ctx context.Context, c domain.CountryCode) (usecase.View, error)
	SetDestinationCountry(ctx context.Context, c domain.CountryCode) (usecase.View, error)
	SetAmount(ctx context.Context, raw string) (bool, usecase.View, error)
}

type Server struct {
	router     *http.ServeMux
	server     *http.Server
	session    WidgetSession
	lookup     domain.CurrencyLookup
	refreshLog domain.RefreshLogRepository
	gatherer   prometheus.Gatherer
	logger     *zap.Logger
}

// NewServer wires the HTTP surface. refreshLog may be nil; a nil gatherer
// serves the default prometheus registry.
func NewServer(
	port int,
	session WidgetSession,
	lookup domain.CurrencyLookup,
	refreshLog domain.RefreshLogRepository,
	gatherer prometheus.Gatherer,
	logger *zap.Logger,
) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s := &Server{
		router:     http.NewServeMux(),
		session:    session,
		lookup:     lookup,
		refreshLog: refreshLog,
		gatherer:   gatherer,
		logger:     logger,
	}
	s.routes()
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.Handler(),
	}
	return s
}

func (s *Server) routes() {
	// Widget state
	s.router.HandleFunc("GET /api/state", s.handleState)
	s.router.HandleFunc("GET /ws", s.handleViewStream)

	// Selection and amount input
	s.router.HandleFunc("GET /api/countries", s.handleCountries)
	s.router.HandleFunc("PUT /api/selection/source", s.handleSetSource)
	s.router.HandleFunc("PUT /api/selection/destination", s.handleSetDestination)
	s.router.HandleFunc("PUT /api/amount", s.handleSetAmount)

	// Diagnostics
	s.router.HandleFunc("GET /api/refreshes", s.handleRefreshes)
	s.router.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
}

// Handler returns the router with middleware applied.
func (s *Server) Handler() http.Handler {
	return LoggingMiddleware(s.logger)(s.router)
}

func (s *Server) Start() error {
	s.logger.Info("Starting web server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
