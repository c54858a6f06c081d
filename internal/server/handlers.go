package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/finbot/internal/admin"
	"github.com/hyperjump/finbot/internal/config"
	"github.com/hyperjump/finbot/internal/models"
	"github.com/hyperjump/finbot/internal/rag"
	"github.com/hyperjump/finbot/pkg/utils"
)

const (
	msgUnavailable   = "Core services (Ollama/Redis) are not available."
	msgInternal      = "Internal server error occurred."
	msgNoFiles       = "No files provided"
	msgInvalidKey    = "Invalid admin key"
	msgInvalidBody   = "invalid request body"
	multipartMemory  = 8 << 20
	defaultMaxUpload = 32
)

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if s.responder == nil {
		s.respondError(w, http.StatusServiceUnavailable, msgUnavailable)
		return
	}
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	if utils.IsBlank(req.Message) {
		s.respondError(w, http.StatusBadRequest, "message is required")
		return
	}
	if req.UserID == "" {
		req.UserID = models.DefaultUserID
	}
	s.logger.Debug("chat request", zap.String("user_id", req.UserID), zap.Int("length", len(req.Message)))
	resp, err := s.responder.Answer(r.Context(), req.Message, req.UserID)
	if err != nil {
		if errors.Is(err, rag.ErrEmptyQuery) {
			s.respondError(w, http.StatusBadRequest, "message is required")
			return
		}
		s.logger.Error("chat failed", zap.String("user_id", req.UserID), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, msgInternal)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUploadMultiple(w http.ResponseWriter, r *http.Request) {
	if s.ingester == nil {
		s.respondError(w, http.StatusServiceUnavailable, msgUnavailable)
		return
	}
	maxMB := s.config.MaxUploadMB
	if maxMB <= 0 {
		maxMB = defaultMaxUpload
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxMB<<20)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d MB", maxMB))
			return
		}
		if errors.Is(err, http.ErrNotMultipart) {
			s.respondError(w, http.StatusBadRequest, msgNoFiles)
			return
		}
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		s.respondError(w, http.StatusBadRequest, msgNoFiles)
		return
	}
	userID := strings.TrimSpace(r.FormValue("user_id"))
	if userID == "" {
		s.respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	files := make([]models.UploadFile, 0, len(headers))
	for _, fh := range headers {
		f, err := readUpload(fh)
		if err != nil {
			s.logger.Error("failed to read uploaded file", zap.String("file", fh.Filename), zap.Error(err))
			s.respondError(w, http.StatusBadRequest, "failed to read uploaded file")
			return
		}
		files = append(files, f)
	}

	s.logger.Debug("upload request", zap.String("user_id", userID), zap.Int("files", len(files)))
	result, err := s.ingester.Ingest(r.Context(), files, userID, models.SourceHTTP)
	if err != nil {
		s.logger.Error("upload failed", zap.String("user_id", userID), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, msgInternal)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func readUpload(fh *multipart.FileHeader) (models.UploadFile, error) {
	f, err := fh.Open()
	if err != nil {
		return models.UploadFile{}, err
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return models.UploadFile{}, err
	}
	return models.UploadFile{
		Name:     filepath.Base(fh.Filename),
		MIMEType: fh.Header.Get("Content-Type"),
		Content:  content,
	}, nil
}

func (s *Server) handleClearAll(w http.ResponseWriter, r *http.Request) {
	if s.admin == nil {
		s.respondError(w, http.StatusServiceUnavailable, msgUnavailable)
		return
	}
	resp, err := s.admin.ClearAll(r.Context(), r.URL.Query().Get("admin_key"))
	if err != nil {
		if errors.Is(err, admin.ErrUnauthorized) {
			s.respondError(w, http.StatusForbidden, msgInvalidKey)
			return
		}
		s.logger.Error("clear-all failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, msgInternal)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(w, r) {
		return
	}
	resp, err := s.admin.Status(r.Context())
	if err != nil {
		s.logger.Error("status failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, msgInternal)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.admin != nil {
		s.respondJSON(w, http.StatusOK, s.admin.Health())
		return
	}
	s.respondJSON(w, http.StatusOK, &models.HealthResponse{
		Status:    "healthy",
		Service:   admin.ServiceName,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// authorized checks the admin_key query parameter and writes 403 on mismatch.
func (s *Server) authorized(w http.ResponseWriter, r *http.Request) bool {
	if s.admin == nil {
		s.respondError(w, http.StatusServiceUnavailable, msgUnavailable)
		return false
	}
	if err := s.admin.Authorize(r.URL.Query().Get("admin_key")); err != nil {
		s.respondError(w, http.StatusForbidden, msgInvalidKey)
		return false
	}
	return true
}

func (s *Server) handleWatchDirectoriesList(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	if !s.authorized(w, r) {
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"directories": s.watch.Directories()})
}

type watchAddRequest struct {
	Path string `json:"path"`
	Sync *bool  `json:"sync,omitempty"`
}

func (s *Server) handleWatchDirectoriesAdd(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	if !s.authorized(w, r) {
		return
	}
	var req watchAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			s.respondError(w, http.StatusNotFound, "directory not found")
			return
		}
		s.logger.Error("watch add: stat failed", zap.String("path", abs), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, msgInternal)
		return
	}
	if !info.IsDir() {
		s.respondError(w, http.StatusBadRequest, "path is not a directory")
		return
	}
	syncExisting := true
	if req.Sync != nil {
		syncExisting = *req.Sync
	}
	if err := s.watch.AddDirectory(abs, syncExisting); err != nil {
		s.logger.Error("watch add directory failed", zap.String("path", abs), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, msgInternal)
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusCreated, map[string]string{"path": abs, "status": "added"})
}

func (s *Server) handleWatchDirectoriesRemove(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	if !s.authorized(w, r) {
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		var body struct {
			Path string `json:"path"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			path = body.Path
		}
	}
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required (query or body)")
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	if err := s.watch.RemoveDirectory(abs); err != nil {
		s.logger.Error("watch remove directory failed", zap.String("path", abs), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, msgInternal)
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusOK, map[string]string{"path": abs, "status": "removed"})
}

// persistWatchDirectories writes the current watch roots back to the config file.
func (s *Server) persistWatchDirectories() {
	if s.configPath == "" {
		return
	}
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	if err := config.SaveWatchDirectories(s.configPath, s.watch.Directories()); err != nil {
		s.logger.Warn("failed to persist watch config", zap.Error(err))
	}
}

// errorResponse carries the message under both "error" and the "detail" key
// that existing chatbot front-ends read.
type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, errorResponse{Error: message, Detail: message})
}
