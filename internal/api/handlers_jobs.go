package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/dgallion1/hierchunk/internal/export"
	"github.com/dgallion1/hierchunk/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	up, err := s.readUpload(w, r)
	if err != nil {
		jsonError(w, err.Error(), errorStatus(err))
		return
	}
	cfg, err := s.chunking(up)
	if err != nil {
		jsonError(w, err.Error(), errorStatus(err))
		return
	}

	docID := up.Options["doc_id"]
	if docID != "" {
		docID = sanitizeFilename(docID)
	}
	job := pipeline.NewJob(uuid.NewString(), up.Filename, docID, up.Data)
	job.Chunking = cfg
	if v, ok := up.Options["skip_index"]; ok {
		job.SkipIndex, _ = strconv.ParseBool(v)
	}

	if err := s.orchestrator.Submit(job); err != nil {
		code := http.StatusServiceUnavailable
		if !errors.Is(err, pipeline.ErrQueueFull) && !errors.Is(err, pipeline.ErrStopped) {
			code = http.StatusInternalServerError
		}
		jsonError(w, err.Error(), code)
		return
	}

	snap := job.Snapshot()
	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":     snap.ID,
		"doc_id":     snap.DocID,
		"status":     snap.Status,
		"poll_url":   fmt.Sprintf("/api/jobs/%s", snap.ID),
		"result_url": fmt.Sprintf("/api/jobs/%s/result", snap.ID),
	})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

func (s *Server) handleJobResult(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	result := job.Result()
	if result == nil {
		snap := job.Snapshot()
		code := http.StatusConflict
		if snap.Status == pipeline.StatusFailed {
			code = http.StatusUnprocessableEntity
		}
		jsonError(w, fmt.Sprintf("no result: job is %s", snap.Status), code)
		return
	}

	format := export.JSON
	if v := r.URL.Query().Get("format"); v != "" {
		var err error
		if format, err = export.ParseFormat(v); err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	switch format {
	case export.Markdown:
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	case export.JSONL:
		w.Header().Set("Content-Type", "application/x-ndjson")
	default:
		w.Header().Set("Content-Type", "application/json")
	}
	if err := export.Write(w, format, result); err != nil {
		s.log.Warn("write job result", "job_id", job.ID, "error", err)
	}
}
