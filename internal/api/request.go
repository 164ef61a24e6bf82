package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/dgallion1/hierchunk/internal/chunker"
	"github.com/dgallion1/hierchunk/internal/document"
	"github.com/dgallion1/hierchunk/internal/hierarchy"
	"github.com/dgallion1/hierchunk/internal/parser"
)

// upload is a request body after decoding: either a file or inline text,
// plus the optional form or JSON options.
type upload struct {
	Filename string
	Data     []byte
	Text     string
	IsText   bool
	Options  map[string]string
	Chunking json.RawMessage
}

// splitBody is the JSON form of a split request.
type splitBody struct {
	Text     string            `json:"text"`
	Name     string            `json:"name"`
	Options  map[string]string `json:"options"`
	Chunking json.RawMessage   `json:"chunking"`
}

var optionKeys = []string{"doc_id", "mode", "format", "skip_index",
	"parent_chunk_size", "parent_chunk_overlap", "child_chunk_size", "child_chunk_overlap", "table_policy"}

// readUpload accepts multipart/form-data with a "file" field or a JSON body
// with "text".
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*upload, error) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return nil, fmt.Errorf("invalid multipart form: %w", err)
		}
		defer r.MultipartForm.RemoveAll()

		file, header, err := r.FormFile("file")
		if err != nil {
			return nil, fmt.Errorf("file is required: %w", err)
		}
		defer file.Close()

		filename := sanitizeFilename(header.Filename)
		if !parser.IsSupportedExtension(filename) {
			return nil, fmt.Errorf("unsupported file type: %s", filepath.Ext(filename))
		}
		data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
		if int64(len(data)) > s.cfg.MaxUploadBytes {
			return nil, errTooLarge
		}

		up := &upload{Filename: filename, Data: data, Options: map[string]string{}}
		for _, k := range optionKeys {
			if v := r.FormValue(k); v != "" {
				up.Options[k] = v
			}
		}
		return up, nil
	}

	var body splitBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("invalid json body: %w", err)
	}
	if int64(len(body.Text)) > s.cfg.MaxUploadBytes {
		return nil, errTooLarge
	}
	name := body.Name
	if name == "" {
		name = "input.md"
	}
	if body.Options == nil {
		body.Options = map[string]string{}
	}
	return &upload{
		Filename: sanitizeFilename(name),
		Data:     []byte(body.Text),
		Text:     body.Text,
		IsText:   true,
		Options:  body.Options,
		Chunking: body.Chunking,
	}, nil
}

var errTooLarge = errors.New("upload exceeds max size")

// chunking applies per-request overrides to the service defaults. It returns
// nil when the request overrides nothing.
func (s *Server) chunking(up *upload) (*hierarchy.Config, error) {
	cfg := s.cfg.Chunking
	cfg.HeaderLevels = slices.Clone(cfg.HeaderLevels)
	changed := false
	if len(up.Chunking) > 0 && string(up.Chunking) != "null" {
		if err := json.Unmarshal(up.Chunking, &cfg); err != nil {
			return nil, fmt.Errorf("%w: %v", chunker.ErrInvalidConfig, err)
		}
		changed = true
	}
	ints := map[string]*int{
		"parent_chunk_size":    &cfg.ParentChunkSize,
		"parent_chunk_overlap": &cfg.ParentChunkOverlap,
		"child_chunk_size":     &cfg.ChildChunkSize,
		"child_chunk_overlap":  &cfg.ChildChunkOverlap,
	}
	for k, dst := range ints {
		v, ok := up.Options[k]
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be an integer", chunker.ErrInvalidConfig, k)
		}
		*dst = n
		changed = true
	}
	if v, ok := up.Options["table_policy"]; ok {
		cfg.TablePolicy = v
		changed = true
	}
	if !changed {
		return nil, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// builderFor returns the shared builder or one built from overrides.
func (s *Server) builderFor(cfg *hierarchy.Config) (*hierarchy.Builder, error) {
	if cfg == nil {
		return s.orchestrator.Builder(), nil
	}
	return hierarchy.NewBuilder(*cfg, hierarchy.WithLogger(s.log))
}

// errorStatus maps domain errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, errTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, chunker.ErrInvalidConfig):
		return http.StatusBadRequest
	}
	switch document.KindOf(err) {
	case document.InvalidInputKind:
		return http.StatusBadRequest
	case document.NotFoundKind:
		return http.StatusNotFound
	case document.MalformedCacheKind:
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadRequest
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(v)
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
