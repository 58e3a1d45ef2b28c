package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mchmarny/chefskiss/pkg/city"
	"github.com/mchmarny/chefskiss/pkg/feature"
	"github.com/mchmarny/chefskiss/pkg/runtime"
	"github.com/mchmarny/chefskiss/pkg/score"
)

const (
	maxRequestBytes = 1 << 20

	statusLoading = "loading"
	statusHealthy = "healthy"

	codeBadRequest        = "BAD_REQUEST"
	codeInvalid           = "VALIDATION_ERROR"
	codeNotReady          = "NOT_READY"
	codeNotFound          = "NOT_FOUND"
	codePredictionFailure = "PREDICTION_FAILURE"
	codeEncoding          = "ENCODING_ERROR"
)

type errorResponse struct {
	Error     string `json:"error"`
	Detail    string `json:"detail"`
	RequestID string `json:"request_id,omitempty"`
}

type healthResponse struct {
	Status             string   `json:"status"`
	Version            string   `json:"version"`
	ModelLoaded        bool     `json:"model_loaded"`
	DataLoaded         bool     `json:"data_loaded"`
	ExplainerAvailable bool     `json:"explainer_available"`
	TotalZipCodes      int      `json:"total_zip_codes"`
	AvailableSubtypes  []string `json:"available_subtypes"`
}

type predictRequest struct {
	City    string   `json:"city"`
	State   string   `json:"state"`
	Subtype string   `json:"subtype"`
	Price   *float64 `json:"price_range"`
}

type zipCodesResponse struct {
	City     string   `json:"city,omitempty"`
	State    string   `json:"state,omitempty"`
	Total    int      `json:"total_zip_codes"`
	ZipCodes []string `json:"zip_codes"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to encode JSON response", "error", err)
		status = http.StatusInternalServerError
		b, _ = json.Marshal(errorResponse{
			Error:  codeEncoding,
			Detail: "failed to encode response",
		})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(b, '\n')); err != nil {
		slog.Debug("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	writeJSON(w, status, errorResponse{
		Error:     code,
		Detail:    msg,
		RequestID: requestID(r.Context()),
	})
}

func notFoundDetail(c, state string) string {
	where := c
	if state != "" {
		where += ", " + state
	}
	return fmt.Sprintf("No zip codes found for city: %s. Try adding a state code or check /cities for available cities.", where)
}

func healthHandler(gate *runtime.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := healthResponse{
			Status:            statusLoading,
			Version:           version,
			AvailableSubtypes: feature.Subtypes(),
		}
		if rt, err := gate.Get(); err == nil {
			resp.Status = statusHealthy
			resp.ModelLoaded = rt.Model != nil
			resp.DataLoaded = rt.Store != nil
			resp.ExplainerAvailable = rt.ExplainerAvailable()
			resp.TotalZipCodes = rt.Store.Len()
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func predictHandler(gate *runtime.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req predictRequest
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, http.StatusBadRequest, codeBadRequest, "malformed request body")
			return
		}

		if req.Price == nil {
			writeError(w, r, http.StatusUnprocessableEntity, codeInvalid, "price_range is required")
			return
		}

		q := score.Query{
			City:    strings.TrimSpace(req.City),
			State:   strings.TrimSpace(req.State),
			Subtype: strings.TrimSpace(req.Subtype),
			Price:   *req.Price,
		}
		if err := q.Validate(); err != nil {
			writeError(w, r, http.StatusUnprocessableEntity, codeInvalid, err.Error())
			return
		}

		rt, err := gate.Get()
		if err != nil {
			writeError(w, r, http.StatusServiceUnavailable, codeNotReady, "Model or data not loaded")
			return
		}

		resp, err := rt.Scorer.ScoreCity(r.Context(), q)
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, resp)
		case errors.Is(err, score.ErrNotFound):
			writeError(w, r, http.StatusNotFound, codeNotFound, notFoundDetail(q.City, q.State))
		case errors.Is(err, score.ErrPredictionFailure):
			slog.Error("prediction failed", "city", q.City, "state", q.State, "error", err)
			writeError(w, r, http.StatusInternalServerError, codePredictionFailure, "Failed to generate predictions for any zip codes")
		default:
			slog.Error("scoring failed", "city", q.City, "state", q.State, "error", err)
			writeError(w, r, http.StatusInternalServerError, codePredictionFailure, "failed to score city")
		}
	}
}

func citiesHandler(gate *runtime.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rt, err := gate.Get()
		if err != nil {
			writeError(w, r, http.StatusServiceUnavailable, codeNotReady, "Model or data not loaded")
			return
		}
		list := rt.Resolver.Cities()
		if list == nil {
			list = []city.City{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func subtypesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, feature.Subtypes())
	}
}

func zipCodesHandler(gate *runtime.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rt, err := gate.Get()
		if err != nil {
			writeError(w, r, http.StatusServiceUnavailable, codeNotReady, "Model or data not loaded")
			return
		}

		c := strings.TrimSpace(r.URL.Query().Get("city"))
		state := strings.TrimSpace(r.URL.Query().Get("state"))

		if c == "" {
			ids := rt.Store.IDs()
			writeJSON(w, http.StatusOK, zipCodesResponse{Total: len(ids), ZipCodes: ids})
			return
		}

		ids := rt.Resolver.Resolve(c, state)
		if len(ids) == 0 {
			writeError(w, r, http.StatusNotFound, codeNotFound, notFoundDetail(c, state))
			return
		}
		writeJSON(w, http.StatusOK, zipCodesResponse{City: c, State: state, Total: len(ids), ZipCodes: ids})
	}
}
