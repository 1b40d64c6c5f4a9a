package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/docchat/internal/loader"
	"github.com/dgallion1/docchat/internal/pipeline"
)

// handleIngest stores an uploaded document under the data directory and
// queues it for indexing. Re-uploading identical content is a no-op.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !loader.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	hash := pipeline.ContentHashHex(data)
	dest := filepath.Join(s.pipeline.DataDir(), filename)
	log := s.log.With("filename", filename, "content_hash", hash[:16])

	existing, err := os.ReadFile(dest)
	replacing := err == nil
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		jsonError(w, "failed to read existing document", http.StatusInternalServerError)
		return
	}

	force, _ := strconv.ParseBool(r.FormValue("force"))
	if replacing && !force && pipeline.ContentHashHex(existing) == hash {
		job := pipeline.NewUploadJob(dest, filename, "api", false)
		job.ContentHash = hash
		job.SetStatus(pipeline.StatusUnchanged, "done")
		s.pipeline.Record(job)
		log.Info("upload unchanged", "job_id", job.ID)
		writeJSON(w, http.StatusOK, jobResponse(job))
		return
	}

	if err := writeAtomic(dest, data); err != nil {
		log.Error("store upload failed", "error", err)
		jsonError(w, "failed to store document", http.StatusInternalServerError)
		return
	}

	job := pipeline.NewUploadJob(dest, filename, "api", replacing)
	job.ContentHash = hash
	if err := s.pipeline.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	log.Info("upload accepted", "job_id", job.ID, "bytes", len(data), "replacing", replacing)
	writeJSON(w, http.StatusAccepted, jobResponse(job))
}

type reindexRequest struct {
	Reset bool `json:"reset"`
}

// handleReindex queues a run over the whole data directory. The body is
// optional.
func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	var req reindexRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	job, err := s.pipeline.SubmitReindex("api", req.Reset)
	if err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusAccepted, jobResponse(job))
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.pipeline.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

func jobResponse(job *pipeline.Job) map[string]any {
	snap := job.Snapshot()
	resp := map[string]any{
		"job_id":   snap.ID,
		"kind":     snap.Kind,
		"status":   snap.Status,
		"poll_url": fmt.Sprintf("/api/jobs/%s", snap.ID),
	}
	if snap.Filename != "" {
		resp["filename"] = snap.Filename
	}
	return resp
}

// writeAtomic writes data to a hidden temp file beside path and renames
// it into place.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "_")
	name = strings.TrimLeft(name, ".")
	if name == "" || name == "/" {
		name = "unnamed"
	}
	return name
}
