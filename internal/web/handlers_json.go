package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/vitos/currency_rates/internal/domain"
	"github.com/vitos/currency_rates/internal/usecase"
	"go.uber.org/zap"
)

type countryOption struct {
	Key    domain.CountryCode  `json:"key"`
	Option domain.CurrencyCode `json:"option"`
	Flag   string              `json:"flag"`
}

type selectionRequest struct {
	Country domain.CountryCode `json:"country"`
}

type amountRequest struct {
	Value string `json:"value"`
}

type amountResponse struct {
	Accepted bool         `json:"accepted"`
	View     usecase.View `json:"view"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrUnknownCountry):
		status = http.StatusBadRequest
	case errors.Is(err, usecase.ErrSessionClosed):
		status = http.StatusServiceUnavailable
	default:
		s.logger.Error("Request failed", zap.Error(err))
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.session.View())
}

func (s *Server) handleCountries(w http.ResponseWriter, r *http.Request) {
	countries := s.lookup.Countries()
	options := make([]countryOption, 0, len(countries))
	for _, c := range countries {
		currency, _ := s.lookup.CurrencyFor(c.Code)
		options = append(options, countryOption{
			Key:    c.Code,
			Option: currency,
			Flag:   "/img/flags/" + string(c.Code) + ".svg",
		})
	}
	s.writeJSON(w, http.StatusOK, options)
}

func (s *Server) handleSetSource(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	view, err := s.session.SetSourceCountry(r.Context(), req.Country)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleSetDestination(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	view, err := s.session.SetDestinationCountry(r.Context(), req.Country)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

// handleSetAmount answers 200 even for rejected input; the keystroke is
// simply not applied.
func (s *Server) handleSetAmount(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	accepted, view, err := s.session.SetAmount(r.Context(), req.Value)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, amountResponse{Accepted: accepted, View: view})
}

func (s *Server) handleRefreshes(w http.ResponseWriter, r *http.Request) {
	if s.refreshLog == nil {
		s.writeJSON(w, http.StatusOK, []*domain.RefreshRecord{})
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid limit"})
			return
		}
		limit = n
	}

	records, err := s.refreshLog.ListRefreshes(r.Context(), limit)
	if err != nil {
		s.logger.Error("Failed to list refreshes", zap.Error(err))
		http.Error(w, "Failed to list refreshes", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []*domain.RefreshRecord{}
	}
	s.writeJSON(w, http.StatusOK, records)
}
