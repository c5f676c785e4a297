package httpadapter

import (
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/openclinic/docpipeline/internal/core/domain"
	"github.com/openclinic/docpipeline/internal/core/ports"
)

// TrafficConfig tunes the admission gates in front of the mux.
type TrafficConfig struct {
	RateLimitRPS   int
	RateLimitBurst int
	MaxInFlight    int
	QueueWait      time.Duration
}

type Router struct {
	processor ports.FileProcessor
	batch     ports.BatchProcessor
	store     ports.DocumentStore
	traffic   TrafficConfig
}

func NewRouter(
	processor ports.FileProcessor,
	batch ports.BatchProcessor,
	store ports.DocumentStore,
	traffic TrafficConfig,
) *Router {
	if traffic.QueueWait <= 0 {
		traffic.QueueWait = 2 * time.Second
	}
	return &Router{
		processor: processor,
		batch:     batch,
		store:     store,
		traffic:   traffic,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/documents", rt.uploadDocument)
	mux.HandleFunc("/v1/documents/batch", rt.uploadBatch)
	mux.HandleFunc("/v1/documents/", rt.getDocumentByID)
	mux.HandleFunc("/v1/jobs/", rt.jobRoutes)

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.traffic.MaxInFlight, rt.traffic.QueueWait)
	handler = rateLimitMiddleware(handler, rt.traffic.RateLimitRPS, rt.traffic.RateLimitBurst)
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	result, err := rt.processor.Process(r.Context(), ports.ProcessRequest{
		Body:         file,
		FileName:     filepath.Base(fileHeader.Filename),
		DeclaredSize: fileHeader.Size,
		TherapistID:  strings.TrimSpace(r.FormValue("therapist_id")),
		ClientID:     strings.TrimSpace(r.FormValue("client_id")),
		Compress:     parseBoolField(r.FormValue("compress")),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusCreated
	if result.Duplicate {
		status = http.StatusOK
	}
	writeJSON(w, status, result)
}

func (rt *Router) uploadBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart body"})
		return
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'files' is required"})
		return
	}

	compress := parseBoolField(r.FormValue("compress"))
	files := make([]domain.BatchFile, 0, len(headers))
	for _, header := range headers {
		files = append(files, domain.BatchFile{
			Name: filepath.Base(header.Filename),
			Size: header.Size,
			Open: func() (io.ReadCloser, error) {
				return header.Open()
			},
			Compress: compress,
		})
	}

	result, err := rt.batch.ProcessBatch(
		r.Context(),
		files,
		strings.TrimSpace(r.FormValue("therapist_id")),
		strings.TrimSpace(r.FormValue("client_id")),
	)
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusOK
	if result.Failed > 0 {
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, result)
}

func (rt *Router) getDocumentByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	doc, err := rt.store.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) jobRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/jobs/")

	if jobID, ok := strings.CutSuffix(rest, "/cancel"); ok {
		rt.cancelJob(w, r, jobID)
		return
	}
	rt.getJob(w, r, rest)
}

func (rt *Router) getJob(w http.ResponseWriter, r *http.Request, jobID string) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if jobID == "" || strings.Contains(jobID, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "job id is required"})
		return
	}

	job, ok := rt.processor.Job(jobID)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "job not found"})
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (rt *Router) cancelJob(w http.ResponseWriter, r *http.Request, jobID string) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if jobID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "job id is required"})
		return
	}

	cancelled := rt.processor.Cancel(jobID)
	if !cancelled {
		writeJSON(w, http.StatusConflict, map[string]any{
			"job_id":    jobID,
			"cancelled": false,
			"error":     "job is past the cancellation window or unknown",
		})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":    jobID,
		"cancelled": true,
	})
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func parseBoolField(raw string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return v
}
