package server

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ruslanbaba/battery-health-service/internal/insight"
	"github.com/ruslanbaba/battery-health-service/internal/validation"
)

type predictResponse struct {
	PredictedRUL            float64             `json:"predicted_rul"`
	BatteryHealthPercentage float64             `json:"battery_health_percentage"`
	Status                  string              `json:"status"`
	InputData               *validation.Request `json:"input_data"`
	Insight                 string              `json:"insight,omitempty"`
	InsightProvider         string              `json:"insight_provider,omitempty"`
	Recommendations         []string            `json:"recommendations,omitempty"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Status string `json:"status"`
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "EV Battery Health Prediction API",
		"version": s.version,
		"endpoints": map[string]string{
			"GET /":        "API information",
			"GET /health":  "Health check",
			"GET /metrics": "Prometheus metrics",
			"POST /predict": "Predict battery health (RUL)",
		},
		"example_request": map[string]interface{}{
			"endpoint":     "/predict",
			"method":       "POST",
			"content_type": "application/json",
			"body": map[string]float64{
				"battery_temperature": 32.5,
				"voltage":             3.9,
				"current":             1.2,
				"charging_cycles":     540,
				"state_of_charge":     76,
			},
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	loaded := s.runtime != nil

	status := "healthy"
	if !loaded {
		status = "unhealthy"
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":        status,
		"model_loaded":  loaded,
		"scaler_loaded": loaded,
	})
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() {
		s.metrics.PredictionDuration.Observe(time.Since(start).Seconds())
	}()

	if ct := r.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		s.writeError(w, http.StatusBadRequest, "Content-Type must be application/json")
		return
	}

	var raw map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		s.writeError(w, http.StatusBadRequest, "request body is not valid JSON")
		return
	}

	req, err := s.validator.Validate(raw)
	if err != nil {
		var valErr *validation.ValidationError
		if errors.As(err, &valErr) {
			s.metrics.ValidationFailures.Inc()
			s.metrics.PredictionsTotal.WithLabelValues("validation_error").Inc()
			s.writeError(w, http.StatusBadRequest, valErr.Error())
			return
		}
		s.metrics.PredictionsTotal.WithLabelValues("internal_error").Inc()
		s.writeError(w, http.StatusInternalServerError, "prediction failed due to an internal error")
		return
	}

	vector, err := s.preparer.Prepare(req)
	if err != nil {
		// Schema resolution detail stays internal, the caller cannot fix it.
		s.logger.Error("Feature preparation failed", zap.Error(err))
		s.metrics.PredictionsTotal.WithLabelValues("internal_error").Inc()
		s.writeError(w, http.StatusInternalServerError, "prediction failed due to an internal error")
		return
	}

	rawRUL, err := s.runtime.Predict(vector)
	if err != nil {
		s.logger.Error("Inference failed", zap.Error(err))
		s.metrics.PredictionsTotal.WithLabelValues("internal_error").Inc()
		s.writeError(w, http.StatusInternalServerError, "prediction failed due to an internal error")
		return
	}

	rawRUL = math.Max(0, rawRUL)
	healthPct := s.converter.Percentage(rawRUL)

	s.metrics.PredictedRUL.Observe(rawRUL)
	s.metrics.HealthPercentage.Observe(healthPct)

	// Insight and recommendations run independently: neither can fail the
	// prediction, and a slow provider does not delay the cheap rule pass.
	in := insight.Input{Request: *req, RawRUL: rawRUL, HealthPercentage: healthPct}

	var (
		wg            sync.WaitGroup
		insightResult *insight.Result
		recs          []string
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		insightResult = s.insights.Analyze(r.Context(), in)
	}()
	go func() {
		defer wg.Done()
		recs = s.recommender.Recommend(r.Context(), *req, healthPct)
	}()
	wg.Wait()

	resp := predictResponse{
		PredictedRUL:            round2(rawRUL),
		BatteryHealthPercentage: round2(healthPct),
		Status:                  "success",
		InputData:               req,
		Recommendations:         recs,
	}
	if insightResult != nil {
		resp.Insight = insightResult.Text
		resp.InsightProvider = insightResult.Provider
	}

	s.metrics.PredictionsTotal.WithLabelValues("success").Inc()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message, Status: "error"})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
