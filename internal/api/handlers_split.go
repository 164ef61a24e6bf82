package api

import (
	"net/http"
	"time"

	"github.com/dgallion1/hierchunk/internal/document"
	"github.com/dgallion1/hierchunk/internal/export"
	"github.com/dgallion1/hierchunk/internal/hierarchy"
	"github.com/dgallion1/hierchunk/internal/normalize"
	"github.com/dgallion1/hierchunk/internal/tableguard"
)

// handleSplit converts and splits a document synchronously.
func (s *Server) handleSplit(w http.ResponseWriter, r *http.Request) {
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
	builder, err := s.builderFor(cfg)
	if err != nil {
		jsonError(w, err.Error(), errorStatus(err))
		return
	}

	var res *document.ConversionResult
	if up.IsText {
		res = document.FromText(up.Filename, up.Text)
	} else {
		res, _, err = s.orchestrator.Worker().Convert(r.Context(), up.Filename, up.Data)
		if err != nil {
			jsonError(w, "conversion failed: "+err.Error(), errorStatus(err))
			return
		}
	}

	format := export.JSON
	if v := up.Options["format"]; v != "" {
		if format, err = export.ParseFormat(v); err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	if up.Options["mode"] == "flat" {
		chunks := builder.SplitFlat(res, nil)
		if format == export.Markdown {
			w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
			export.WriteFlatMarkdown(w, chunks)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"chunks": chunks,
			"stats":  hierarchy.FlatStatistics(chunks),
		})
		return
	}

	start := time.Now()
	result := builder.BuildConversion(res)
	s.orchestrator.Stats().Record(time.Since(start), len(result.Parents), len(result.Children))

	switch format {
	case export.Markdown:
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	case export.JSONL:
		w.Header().Set("Content-Type", "application/x-ndjson")
	default:
		w.Header().Set("Content-Type", "application/json")
	}
	if err := export.Write(w, format, result); err != nil {
		s.log.Warn("write split response", "error", err)
	}
}

// handleNormalize runs the normalizer over inline text.
func (s *Server) handleNormalize(w http.ResponseWriter, r *http.Request) {
	up, err := s.readUpload(w, r)
	if err != nil {
		jsonError(w, err.Error(), errorStatus(err))
		return
	}
	text := up.Text
	if !up.IsText {
		res, _, err := s.orchestrator.Worker().Convert(r.Context(), up.Filename, up.Data)
		if err != nil {
			jsonError(w, "conversion failed: "+err.Error(), errorStatus(err))
			return
		}
		text = res.Content
	}

	out := normalize.Normalize(text)
	writeJSON(w, http.StatusOK, map[string]any{
		"text":   out,
		"tables": tableguard.CountTables(out),
	})
}
