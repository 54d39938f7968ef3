package api

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/maltedev/amazon-bsr-checker/internal/batch"
	"github.com/maltedev/amazon-bsr-checker/internal/jobs"
	"github.com/maltedev/amazon-bsr-checker/internal/spreadsheet"
)

//go:embed index.html
var indexHTML []byte

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// JobStore is the part of the job manager the handlers need.
type JobStore interface {
	Submit(b *batch.Batch) (jobs.Job, error)
	Get(id string) (jobs.Job, error)
	ResultsPath(id string) (string, error)
	FailedPath(id string) (string, error)
}

type Handlers struct {
	jobs           JobStore
	defaultVariant batch.Variant
	maxUploadBytes int64
	logger         *slog.Logger
}

func NewHandlers(store JobStore, defaultVariant batch.Variant, maxUploadMB int, logger *slog.Logger) *Handlers {
	if maxUploadMB <= 0 {
		maxUploadMB = 20
	}
	return &Handlers{
		jobs:           store,
		defaultVariant: defaultVariant,
		maxUploadBytes: int64(maxUploadMB) << 20,
		logger:         logger.With("component", "api"),
	}
}

// Routes mounts the upload page and the job endpoints.
func (h *Handlers) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Index)
	r.Route("/api/v1/jobs", func(r chi.Router) {
		r.Post("/", h.CreateJob)
		r.Get("/{jobID}", h.GetJob)
		r.Get("/{jobID}/results", h.DownloadResults)
		r.Get("/{jobID}/failed", h.DownloadFailed)
	})
	return r
}

func (h *Handlers) Index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(indexHTML)
}

// CreateJobResponse is returned once an upload has been accepted
type CreateJobResponse struct {
	JobID  string      `json:"job_id"`
	Status jobs.Status `json:"status"`
	Total  int         `json:"total"`
}

// CreateJob accepts a multipart upload and starts a run
func (h *Handlers) CreateJob(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid upload: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".xlsx") {
		h.respondError(w, http.StatusBadRequest, "only .xlsx files are accepted")
		return
	}

	variant := h.defaultVariant
	if name := r.FormValue("variant"); name != "" {
		if variant, err = batch.VariantByName(name); err != nil {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	table, err := spreadsheet.Read(file)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("could not read spreadsheet: %v", err))
		return
	}

	b, err := batch.Prepare(table, variant)
	if err != nil {
		if batch.IsValidationError(err) {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to prepare batch", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to prepare batch")
		return
	}

	job, err := h.jobs.Submit(b)
	if err != nil {
		if errors.Is(err, jobs.ErrClosed) {
			h.respondError(w, http.StatusServiceUnavailable, "server is shutting down")
			return
		}
		h.logger.Error("failed to create job", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to create job")
		return
	}

	h.logger.Info("upload accepted", "job_id", job.ID, "file", header.Filename, "variant", variant.Name, "rows", job.Total)
	h.respondJSON(w, http.StatusCreated, CreateJobResponse{
		JobID:  job.ID,
		Status: job.Status,
		Total:  job.Total,
	})
}

// GetJob handles job status retrieval
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.jobs.Get(chi.URLParam(r, "jobID"))
	if err != nil {
		h.respondError(w, http.StatusNotFound, "job not found")
		return
	}

	h.respondJSON(w, http.StatusOK, job)
}

func (h *Handlers) DownloadResults(w http.ResponseWriter, r *http.Request) {
	h.download(w, r, h.jobs.ResultsPath)
}

func (h *Handlers) DownloadFailed(w http.ResponseWriter, r *http.Request) {
	h.download(w, r, h.jobs.FailedPath)
}

func (h *Handlers) download(w http.ResponseWriter, r *http.Request, locate func(id string) (string, error)) {
	path, err := locate(chi.URLParam(r, "jobID"))
	switch {
	case errors.Is(err, jobs.ErrNotFound):
		h.respondError(w, http.StatusNotFound, "job not found")
		return
	case errors.Is(err, jobs.ErrNotReady):
		h.respondError(w, http.StatusNotFound, "file not available")
		return
	case err != nil:
		h.logger.Error("failed to locate artifact", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to locate file")
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	http.ServeFile(w, r, path)
}

// Helper methods
func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
