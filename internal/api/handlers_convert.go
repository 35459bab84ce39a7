package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/notemark/internal/parser"
	"github.com/dgallion1/notemark/internal/pipeline"
	"github.com/dgallion1/notemark/internal/refs"
	"github.com/dgallion1/notemark/internal/source"
)

// defaultName is used for raw request bodies sent without ?name=.
const defaultName = "document.mmd"

// upload is one document received in a request.
type upload struct {
	name string
	data []byte
}

// readUpload accepts either a multipart form with a "file" field or a raw
// markup body named by the "name" query parameter.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*upload, int, error) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return nil, http.StatusBadRequest, fmt.Errorf("invalid multipart form: %w", err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return nil, http.StatusBadRequest, fmt.Errorf("file is required: %w", err)
		}
		defer file.Close()
		return s.readPart(sanitizeFilename(header.Filename), file)
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		name = defaultName
	}
	return s.readPart(sanitizeFilename(name), r.Body)
}

func (s *Server) readPart(filename string, r io.Reader) (*upload, int, error) {
	if !source.IsSupportedExtension(filename) {
		return nil, http.StatusBadRequest, fmt.Errorf("unsupported file type: %q", filepath.Ext(filename))
	}
	data, err := io.ReadAll(io.LimitReader(r, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return nil, http.StatusBadRequest, fmt.Errorf("failed to read file: %w", err)
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return nil, http.StatusRequestEntityTooLarge, fmt.Errorf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes)
	}
	return &upload{name: filename, data: data}, http.StatusOK, nil
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	switch format {
	case "":
		format = "json"
	case "json", "html", "text":
	default:
		jsonError(w, fmt.Sprintf("unknown format %q", format), http.StatusBadRequest)
		return
	}

	up, code, err := s.readUpload(w, r)
	if err != nil {
		jsonError(w, err.Error(), code)
		return
	}
	text, err := pipeline.ReadSource(up.name, up.data, s.cfg.PDFFallbackPdftotext)
	if err != nil {
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	res, err := s.orchestrator.Converter().Convert(r.Context(), up.name, text)
	if err != nil {
		s.log.Warn("conversion failed", "filename", up.name, "error", err)
		jsonError(w, err.Error(), conversionStatus(err))
		return
	}

	etag := `"` + pipeline.ContentHashHex([]byte(res.HTML))[:32] + `"`
	w.Header().Set("ETag", etag)
	if match := r.Header.Get("If-None-Match"); match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	switch format {
	case "html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, res.HTML)
	case "text":
		plain, err := res.Text()
		if err != nil {
			jsonError(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, plain)
	default:
		writeJSON(w, http.StatusOK, map[string]any{
			"name":         res.Name,
			"title":        res.Document.Title,
			"content_hash": pipeline.ContentHashHex([]byte(text)),
			"duration_ms":  res.Duration.Milliseconds(),
			"blocks":       res.Blocks,
		})
	}
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	up, code, err := s.readUpload(w, r)
	if err != nil {
		jsonError(w, err.Error(), code)
		return
	}
	text, err := pipeline.ReadSource(up.name, up.data, s.cfg.PDFFallbackPdftotext)
	if err != nil {
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	report, err := s.orchestrator.Converter().Check(text)
	if err != nil {
		jsonError(w, err.Error(), conversionStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":   up.name,
		"ok":     report.OK(),
		"report": report,
	})
}

func (s *Server) handleBatchConvert(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*10+10*1024*1024)

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}

	results := make([]map[string]any, 0, len(files))
	for _, fh := range files {
		filename := sanitizeFilename(fh.Filename)
		f, err := fh.Open()
		if err != nil {
			results = append(results, map[string]any{"filename": filename, "error": "failed to open file"})
			continue
		}
		up, _, err := s.readPart(filename, f)
		f.Close()
		if err != nil {
			results = append(results, map[string]any{"filename": filename, "error": err.Error()})
			continue
		}

		job := pipeline.NewJob(up.name, up.data)
		if err := s.orchestrator.Submit(job); err != nil {
			results = append(results, map[string]any{"filename": filename, "job_id": job.ID, "error": err.Error()})
			continue
		}
		results = append(results, map[string]any{
			"filename": filename,
			"job_id":   job.ID,
			"status":   pipeline.StatusQueued,
			"poll_url": fmt.Sprintf("/api/jobs/%s", job.ID),
		})
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"jobs": results})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

func (s *Server) handleJobPage(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	res := job.Result()
	if res == nil {
		jsonError(w, fmt.Sprintf("job is %s", job.Snapshot().Status), http.StatusConflict)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, res.HTML)
}

// conversionStatus maps document errors to 422 and everything else to 500.
func conversionStatus(err error) int {
	var malformed *parser.MalformedDirectiveError
	var runaway *refs.RunawayExpansionError
	if errors.As(err, &malformed) || errors.As(err, &runaway) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
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
