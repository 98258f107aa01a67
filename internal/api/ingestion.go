package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/quaystone/threadline/internal/events"
	"github.com/quaystone/threadline/internal/telegram"
)

// IngestRequest triggers a pipeline run over the configured export file.
type IngestRequest struct {
	Incremental bool `json:"incremental"`
	Force       bool `json:"force"`
}

type IngestResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// triggerIngest starts an ingestion run in the background and returns
// immediately; progress lands in the logs and the completion event.
func (s *Server) triggerIngest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeError(w, http.StatusBadRequest, 1003, fmt.Sprintf("invalid JSON: %v", err))
		return
	}

	opts := s.deps.IngestOpts
	opts.Incremental = req.Incremental
	opts.ForceReindex = req.Force

	go func() {
		// Detached from the request: a long run must not die with the
		// client connection.
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Hour)
		defer cancel()

		stats, err := s.deps.Runner.Run(ctx, s.deps.ExportPath, opts)
		if err != nil {
			s.logger.Error("ingestion run failed", "error", err)
			return
		}
		s.logger.Info("ingestion run finished",
			"run_id", stats.RunID,
			"successful", stats.Successful,
			"failed", stats.Failed,
			"skipped", stats.Skipped,
		)
	}()

	writeJSON(w, http.StatusAccepted, IngestResponse{
		Status:  "started",
		Message: "ingestion started in background",
	})
}

// UploadResponse reports the outcome of an export upload.
type UploadResponse struct {
	Status        string `json:"status"`
	Message       string `json:"message"`
	Filename      string `json:"filename"`
	Size          int64  `json:"size"`
	Mode          string `json:"mode"`
	TotalMessages int    `json:"total_messages"`
}

// upload accepts a chat export as multipart form data. With ?merge=true
// the incoming messages are merged into the existing export by id;
// otherwise the file replaces it.
func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, 1003, fmt.Sprintf("missing file field: %v", err))
		return
	}
	defer file.Close()

	var incoming telegram.Export
	if err := json.NewDecoder(file).Decode(&incoming); err != nil {
		writeError(w, http.StatusBadRequest, 1004, fmt.Sprintf("not a valid export document: %v", err))
		return
	}
	if len(incoming.Messages) == 0 {
		writeError(w, http.StatusBadRequest, 1004, "export contains no messages")
		return
	}

	mode := "replace"
	final := incoming
	if r.URL.Query().Get("merge") == "true" {
		existing, err := readExport(s.deps.ExportPath)
		switch {
		case err == nil:
			mode = "merge"
			final = telegram.MergeExports(existing, incoming)
		case os.IsNotExist(err):
			// Nothing to merge into; the upload becomes the export.
		default:
			s.logger.Warn("could not read existing export, replacing instead", "error", err)
		}
	}

	if err := writeExport(s.deps.ExportPath, final); err != nil {
		s.logger.Error("failed to store export", "error", err)
		writeError(w, http.StatusInternalServerError, 5000, "failed to store export")
		return
	}

	s.logger.Info("export uploaded",
		"filename", header.Filename,
		"size", header.Size,
		"mode", mode,
		"messages", len(final.Messages),
	)

	if s.deps.Events != nil {
		err := s.deps.Events.Publish(events.SubjectExportUploaded, events.ExportUploaded{
			Path:          s.deps.ExportPath,
			Filename:      header.Filename,
			Size:          header.Size,
			Mode:          mode,
			TotalMessages: len(final.Messages),
		})
		if err != nil {
			s.logger.Warn("failed to publish upload event", "error", err)
		}
	}

	writeJSON(w, http.StatusOK, UploadResponse{
		Status:        "ok",
		Message:       "export stored",
		Filename:      header.Filename,
		Size:          header.Size,
		Mode:          mode,
		TotalMessages: len(final.Messages),
	})
}

func readExport(path string) (telegram.Export, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return telegram.Export{}, err
	}
	var export telegram.Export
	if err := json.Unmarshal(data, &export); err != nil {
		return telegram.Export{}, fmt.Errorf("parse existing export: %w", err)
	}
	return export, nil
}

func writeExport(path string, export telegram.Export) error {
	data, err := json.Marshal(export)
	if err != nil {
		return fmt.Errorf("marshal export: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create export dir: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return os.Rename(tmp, path)
}
