package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/yourusername/race-odds/internal/history"
	"github.com/yourusername/race-odds/internal/models"
)

const codeBadRequest = "bad_request"

// ErrorBody is the JSON error envelope.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a failed request.
type ErrorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// HistoryResponse is returned by GET /v1/history/{name}.
type HistoryResponse struct {
	Name       string                    `json:"name"`
	Normalized string                    `json:"normalized"`
	Strategy   string                    `json:"strategy"`
	Key        string                    `json:"key,omitempty"`
	Records    []models.HistoricalRecord `json:"records"`
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req models.PredictRequest
	body := http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, codeBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	dist, err := s.predictor.Predict(r.Context(), req)
	if err != nil {
		s.writePredictError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dist)
}

func (s *Server) writePredictError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		s.writeError(w, r, http.StatusBadRequest, verr.Code, verr.Message)
	case errors.Is(err, models.ErrInvariantViolation):
		s.logger.WithError(err).WithField("request_id", middleware.GetReqID(r.Context())).Error("Prediction violated an invariant")
		s.writeError(w, r, http.StatusInternalServerError, "invariant_violation", err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		s.writeError(w, r, http.StatusServiceUnavailable, "timeout", err.Error())
	default:
		s.logger.WithError(err).Error("Prediction failed")
		s.writeError(w, r, http.StatusInternalServerError, "internal", "prediction failed")
	}
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"models": s.predictor.Models(),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	res, err := s.history.Match(r.Context(), name)
	if err != nil {
		s.logger.WithError(err).WithField("name", name).Warn("History lookup failed")
		s.writeError(w, r, http.StatusBadGateway, "history_unavailable", err.Error())
		return
	}

	status := http.StatusOK
	if res.Strategy == history.MatchNone {
		status = http.StatusNotFound
	}
	records := res.Records
	if records == nil {
		records = []models.HistoricalRecord{}
	}
	writeJSON(w, status, HistoryResponse{
		Name:       name,
		Normalized: res.Normalized,
		Strategy:   res.Strategy,
		Key:        res.Key,
		Records:    records,
	})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, ErrorBody{Error: ErrorDetail{
		Code:      code,
		Message:   message,
		RequestID: middleware.GetReqID(r.Context()),
	}})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
