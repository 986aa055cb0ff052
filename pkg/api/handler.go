package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hazyhaar/nutrimatch/pkg/lookup"
)

// NewRouter returns an http.Handler with all nutrimatch API routes.
// Cross-cutting middleware is applied by the caller.
func NewRouter(svc *lookup.Service, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()
	h := &handler{endpoints: newEndpoints(svc, logger), svc: svc}

	mux.HandleFunc("GET /v1/resolve/batch", methodNotAllowed) // prevent GET on batch
	mux.HandleFunc("POST /v1/resolve/batch", h.handleResolveBatch)
	mux.HandleFunc("GET /v1/resolve/{label}", h.handleResolve)
	mux.HandleFunc("GET /v1/estimate/{label}", h.handleEstimate)
	mux.HandleFunc("POST /v1/analyze", h.handleAnalyze)
	mux.HandleFunc("GET /v1/health", h.handleHealth)

	return mux
}

type handler struct {
	endpoints
	svc *lookup.Service
}

// --- resolve single label ---

func (h *handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	resp, err := h.resolve(r.Context(), &resolveReq{Label: r.PathValue("label")})
	if err != nil {
		writeError(w, statusOf(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- resolve batch ---

type httpBatchRequest struct {
	Labels []string `json:"labels"`
}

func (h *handler) handleResolveBatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 64*1024) // 64 KiB max
	var req httpBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	resp, err := h.resolveBatch(r.Context(), &resolveBatchReq{Labels: req.Labels})
	if err != nil {
		writeError(w, statusOf(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- estimate ---

func (h *handler) handleEstimate(w http.ResponseWriter, r *http.Request) {
	resp, err := h.estimate(r.Context(), &estimateReq{Label: r.PathValue("label")})
	if err != nil {
		writeError(w, statusOf(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- analyze ---

type httpAnalyzeRequest struct {
	Predictions []lookup.Prediction `json:"predictions"`
}

func (h *handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 64*1024)
	var req httpAnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	resp, err := h.analyze(r.Context(), &analyzeReq{Predictions: req.Predictions})
	if err != nil {
		writeError(w, statusOf(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- health ---

type healthResponse struct {
	Status         string  `json:"status"`
	CatalogRows    int     `json:"catalog_rows"`
	MatchThreshold float64 `json:"match_threshold"`
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:         "ok",
		CatalogRows:    h.svc.CatalogRows(),
		MatchThreshold: h.svc.Policy().MatchThreshold,
	})
}

// --- helpers ---

func statusOf(err error) int {
	switch {
	case errors.Is(err, errNotFound):
		return http.StatusNotFound
	case errors.Is(err, errInvalid):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
