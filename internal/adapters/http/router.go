package httpadapter

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kirillkom/mediscan/internal/core/domain"
	"github.com/kirillkom/mediscan/internal/core/ports"
	"github.com/kirillkom/mediscan/internal/observability/metrics"
)

const serviceName = "mediscan-api"

type Router struct {
	analyzer ports.MedicineAnalyzer
	history  ports.HistoryService
	metrics  *metrics.HTTPServerMetrics

	maxBody int64
	limiter *rate.Limiter
}

func NewRouter(
	analyzer ports.MedicineAnalyzer,
	history ports.HistoryService,
	serverMetrics *metrics.HTTPServerMetrics,
	maxBody int64,
	analyzeRPS float64,
	analyzeBurst int,
) *Router {
	if maxBody <= 0 {
		maxBody = 10 << 20
	}
	if analyzeRPS <= 0 {
		analyzeRPS = 1
	}
	if analyzeBurst <= 0 {
		analyzeBurst = 1
	}
	return &Router{
		analyzer: analyzer,
		history:  history,
		metrics:  serverMetrics,
		maxBody:  maxBody,
		limiter:  rate.NewLimiter(rate.Limit(analyzeRPS), analyzeBurst),
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.Handle("/v1/analyze", rateLimitMiddleware(http.HandlerFunc(rt.analyze), rt.limiter, rt.recordRateLimited))
	mux.HandleFunc("/v1/history", rt.searchHistory)
	mux.HandleFunc("/v1/history/export", rt.exportHistory)
	mux.HandleFunc("/v1/searches/", rt.getSearch)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = corsMiddleware(mux)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) analyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, rt.maxBody)

	var req struct {
		ImageData string  `json:"imageData"`
		UserID    *string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	image, mimeType, err := decodeImagePayload(req.ImageData)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	start := time.Now()
	outcome, err := rt.analyzer.Analyze(r.Context(), image, mimeType, req.UserID)
	if err != nil {
		rt.recordAnalysis("error", 0, nil, time.Duration(0))
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}

	rt.recordAnalysis("success", len(image), outcome, time.Since(start))
	writeSuccess(w, http.StatusOK, outcome)
}

func (rt *Router) searchHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	query := r.URL.Query().Get("q")
	userID := optionalParam(r, "user_id")

	results, err := rt.history.Search(r.Context(), query, userID)
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}
	writeSuccess(w, http.StatusOK, results)
}

func (rt *Router) getSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/searches/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "search id is required")
		return
	}

	record, err := rt.history.GetSearch(r.Context(), id)
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}
	writeSuccess(w, http.StatusOK, record)
}

func (rt *Router) exportHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	// Buffer the workbook so a failed export still gets a JSON error body.
	var buf bytes.Buffer
	err := rt.history.Export(r.Context(), userID, &buf)
	if rt.metrics != nil {
		rt.metrics.RecordHistoryExport(serviceName, err)
	}
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="medicine-history.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (rt *Router) recordAnalysis(status string, imageBytes int, outcome *domain.AnalysisOutcome, duration time.Duration) {
	if rt.metrics == nil {
		return
	}
	labelFound := false
	fallback := false
	if outcome != nil {
		labelFound = len(outcome.FDAData) > 0
		fallback = outcome.SummaryDegraded
	}
	rt.metrics.RecordAnalysis(serviceName, status, imageBytes, labelFound, fallback, duration)
}

func (rt *Router) recordRateLimited() {
	if rt.metrics != nil {
		rt.metrics.RecordRateLimited(serviceName)
	}
}

// decodeImagePayload accepts either a data URL ("data:image/png;base64,...")
// or a bare base64 string, which defaults to JPEG.
func decodeImagePayload(payload string) ([]byte, string, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, "", domain.WrapError(domain.ErrInvalidInput, "decode image", errMissingImage)
	}

	mimeType := "image/jpeg"
	if strings.HasPrefix(payload, "data:") {
		meta, data, ok := strings.Cut(payload[len("data:"):], ",")
		if !ok {
			return nil, "", domain.WrapError(domain.ErrInvalidInput, "decode image", errMalformedDataURL)
		}
		meta = strings.TrimSuffix(meta, ";base64")
		if meta != "" {
			mimeType = meta
		}
		payload = data
	}

	image, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", domain.WrapError(domain.ErrInvalidInput, "decode image", err)
	}
	if len(image) == 0 {
		return nil, "", domain.WrapError(domain.ErrInvalidInput, "decode image", errMissingImage)
	}
	return image, mimeType, nil
}

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: false, Error: message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func optionalParam(r *http.Request, name string) *string {
	value := strings.TrimSpace(r.URL.Query().Get(name))
	if value == "" {
		return nil
	}
	return &value
}

var (
	errMissingImage     = errors.New("imageData is required")
	errMalformedDataURL = errors.New("malformed data URL")
)
