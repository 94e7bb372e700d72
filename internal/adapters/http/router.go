package httpadapter

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/hiring-pipeline/internal/core/ports"
	"github.com/kirillkom/hiring-pipeline/internal/observability/metrics"
)

const serviceName = "api"

type Router struct {
	reader     ports.ApplicationReader
	matcher    ports.CandidateMatcher
	batch      ports.AutoRejectRunner
	vectorizer ports.JobVectorizer

	metrics     *metrics.HTTPServerMetrics
	defaultTopK int

	rateLimitRPS   float64
	rateLimitBurst int
	maxInFlight    int
}

type RouterOptions struct {
	Metrics     *metrics.HTTPServerMetrics
	DefaultTopK int

	RateLimitRPS   float64
	RateLimitBurst int
	MaxInFlight    int
}

func NewRouter(
	reader ports.ApplicationReader,
	matcher ports.CandidateMatcher,
	batch ports.AutoRejectRunner,
	vectorizer ports.JobVectorizer,
	options RouterOptions,
) *Router {
	topK := options.DefaultTopK
	if topK <= 0 {
		topK = 10
	}
	return &Router{
		reader:         reader,
		matcher:        matcher,
		batch:          batch,
		vectorizer:     vectorizer,
		metrics:        options.Metrics,
		defaultTopK:    topK,
		rateLimitRPS:   options.RateLimitRPS,
		rateLimitBurst: options.RateLimitBurst,
		maxInFlight:    options.MaxInFlight,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/applications/", rt.getApplicationByID)
	mux.HandleFunc("/v1/jobs/", rt.getJobMatches)
	mux.HandleFunc("/v1/admin/companies/", rt.adminCompanyAction)
	mux.HandleFunc("/v1/admin/jobs/", rt.adminVectorizeJob)

	var handler http.Handler = mux
	if rt.maxInFlight > 0 {
		handler = backpressureMiddleware(handler, rt.maxInFlight, 100*time.Millisecond)
	}
	if rt.rateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.rateLimitRPS, rt.rateLimitBurst)
	}
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) getApplicationByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/applications/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "application id is required"})
		return
	}

	app, err := rt.reader.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

// GET /v1/jobs/{job_id}/matches
func (rt *Router) getJobMatches(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/v1/jobs/")
	jobID, action, ok := strings.Cut(rest, "/")
	if !ok || action != "matches" || jobID == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}

	topK := rt.defaultTopK
	if raw := r.URL.Query().Get("top_k"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "top_k must be a positive integer"})
			return
		}
		topK = parsed
	}

	matches, err := rt.matcher.MatchCandidates(r.Context(), jobID, topK)
	if rt.metrics != nil {
		rt.metrics.RecordMatchRequest(serviceName, len(matches), err)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"job_id":  jobID,
		"matches": matches,
	})
}

// POST /v1/admin/companies/{company_id}/auto-reject-run
// POST /v1/admin/companies/{company_id}/vectorize
func (rt *Router) adminCompanyAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/v1/admin/companies/")
	companyID, action, ok := strings.Cut(rest, "/")
	if !ok || companyID == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}

	switch action {
	case "auto-reject-run":
		summary, err := rt.batch.RunForCompany(r.Context(), companyID)
		if rt.metrics != nil {
			rt.metrics.RecordBatchRun(serviceName, summary.Processed, err)
		}
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	case "vectorize":
		summary, err := rt.vectorizer.VectorizeCompanyJobs(r.Context(), companyID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	}
}

// POST /v1/admin/jobs/{job_id}/vectorize
func (rt *Router) adminVectorizeJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/v1/admin/jobs/")
	jobID, action, ok := strings.Cut(rest, "/")
	if !ok || action != "vectorize" || jobID == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}

	if err := rt.vectorizer.VectorizeJob(r.Context(), jobID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "job_id": jobID})
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
