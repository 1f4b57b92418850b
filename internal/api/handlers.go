package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/terra-clan/carprice-engine/internal/catalog"
	"github.com/terra-clan/carprice-engine/internal/models"
	"github.com/terra-clan/carprice-engine/internal/predictor"
)

// Response helpers

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondAPIError(w, status, &apiError{Code: code, Message: message})
}

func respondAPIError(w http.ResponseWriter, status int, apiErr *apiError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: false,
		Error:   apiErr,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// respondPricingError maps encoder and predictor failures to HTTP statuses
func respondPricingError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *models.ValidationError
	switch {
	case errors.As(err, &vErr):
		respondAPIError(w, http.StatusBadRequest, &apiError{
			Code:    "validation_error",
			Message: vErr.Error(),
			Field:   vErr.Field,
		})
	case errors.Is(err, predictor.ErrSchemaMismatch):
		slog.Error("artifact schema mismatch", "error", err, "request_id", middleware.GetReqID(r.Context()))
		respondError(w, http.StatusInternalServerError, "internal_error", "model and feature schema are out of sync")
	default:
		slog.Error("prediction failed", "error", err, "request_id", middleware.GetReqID(r.Context()))
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to predict price")
	}
}

// decodeAttributes reads a JSON CarAttributes body
func decodeAttributes(w http.ResponseWriter, r *http.Request) (models.CarAttributes, bool) {
	var attrs models.CarAttributes

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&attrs); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body: "+err.Error())
		return attrs, false
	}

	return attrs, true
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	// Artifacts are loaded before the server exists; a nil service means a wiring bug
	if s.pricing == nil || s.pricing.Registry() == nil {
		respondError(w, http.StatusServiceUnavailable, "not_ready", "artifacts not loaded")
		return
	}

	reg := s.pricing.Registry()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ready",
		"source":    reg.Source(),
		"loaded_at": reg.LoadedAt().Format(time.RFC3339),
		"columns":   len(reg.Columns()),
	})
}

// Schema and catalog handlers

func (s *Server) handleGetSchema(w http.ResponseWriter, r *http.Request) {
	reg := s.pricing.Registry()
	enc := reg.Encoder()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"columns":            reg.Columns(),
		"numeric_fields":     enc.NumericFields(),
		"categorical_fields": enc.CategoricalFields(),
		"model_features":     reg.Model().NumFeatures(),
		"numeric_inputs":     models.NumericInputs,
	})
}

func (s *Server) handleListCatalog(w http.ResponseWriter, r *http.Request) {
	u := s.pricing.Registry().Universe()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"fields":         u.Snapshot(),
		"reference_rows": u.Rows(),
	})
}

func (s *Server) handleGetCatalogField(w http.ResponseWriter, r *http.Request) {
	field := chi.URLParam(r, "field")

	values, err := s.pricing.Registry().Universe().Values(field)
	if err != nil {
		if errors.Is(err, catalog.ErrUnknownField) {
			respondError(w, http.StatusNotFound, "not_found", "unknown categorical field: "+field)
			return
		}
		slog.Error("failed to list catalog values", "error", err, "field", field)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list values")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"field":  field,
		"values": values,
		"total":  len(values),
	})
}

// Prediction handlers

func (s *Server) handleCreatePrediction(w http.ResponseWriter, r *http.Request) {
	attrs, ok := decodeAttributes(w, r)
	if !ok {
		return
	}

	prediction, err := s.pricing.Estimate(attrs)
	if err != nil {
		respondPricingError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, prediction)
}

func (s *Server) handleEncode(w http.ResponseWriter, r *http.Request) {
	attrs, ok := decodeAttributes(w, r)
	if !ok {
		return
	}

	vec, err := s.pricing.Encode(attrs)
	if err != nil {
		respondPricingError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, vec)
}
