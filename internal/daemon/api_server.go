package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"reelsmith/internal/api"
	"reelsmith/internal/config"
	"reelsmith/internal/jobstore"
	"reelsmith/internal/logging"
	"reelsmith/internal/timeline"
)

const maxMultipartMemory = 32 << 20

type apiServer struct {
	bind      string
	uploadDir string
	logger    *slog.Logger
	daemon    *Daemon
	store     *jobstore.Store

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}

	srv := &apiServer{
		bind:      bind,
		uploadDir: filepath.Join(cfg.WorkDir(), "uploads"),
		logger:    logger,
		daemon:    d,
		store:     d.store,
	}

	token := strings.TrimSpace(cfg.Paths.APIToken)
	mux := http.NewServeMux()
	mux.HandleFunc("/api/jobs", authMiddleware(token, srv.handleJobs))
	mux.HandleFunc("/api/jobs/", authMiddleware(token, srv.handleJobByID))
	mux.HandleFunc("/api/status", authMiddleware(token, srv.handleStatus))

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleSubmit(w, r)
	case http.MethodGet:
		s.handleList(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var (
		script        string
		options       api.JobOptions
		recordingPath string
	)

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}
		script = r.FormValue("script")
		if raw := strings.TrimSpace(r.FormValue("options")); raw != "" {
			if err := json.Unmarshal([]byte(raw), &options); err != nil {
				s.writeError(w, http.StatusBadRequest, "invalid options payload")
				return
			}
		}
		path, err := s.saveRecording(r)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		recordingPath = path
	} else {
		var req api.SubmitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		script = req.Script
		options = req.Options
	}

	if strings.TrimSpace(script) == "" {
		s.writeError(w, http.StatusBadRequest, "script is required")
		return
	}

	job, err := s.store.Create(r.Context(), script, jobstore.Options{
		Voice:         options.Voice,
		Captions:      options.Captions,
		CaptionStyle:  options.CaptionStyle,
		Music:         options.Music,
		Mood:          options.Mood,
		AspectRatio:   options.AspectRatio,
		RecordingPath: recordingPath,
	})
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.log().Info("job submitted",
		logging.String(logging.FieldJobID, job.ID),
		logging.Bool("has_recording", recordingPath != ""))
	s.writeJSON(w, http.StatusAccepted, api.SubmitResponse{JobID: job.ID, Status: string(job.Status)})
}

// saveRecording persists an optional uploaded narration take and returns its
// path, or empty when the form carries no recording.
func (s *apiServer) saveRecording(r *http.Request) (string, error) {
	file, header, err := r.FormFile("recording")
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read recording upload: %w", err)
	}
	defer file.Close()

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload directory: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext == "" {
		ext = ".mp3"
	}
	destPath := filepath.Join(s.uploadDir, uuid.NewString()+ext)
	out, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		os.Remove(destPath)
		return "", fmt.Errorf("store upload: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(destPath)
		return "", fmt.Errorf("flush upload: %w", err)
	}
	return destPath, nil
}

func (s *apiServer) handleList(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	jobs, err := s.store.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	payload := api.JobListResponse{Jobs: make([]api.Job, 0, len(jobs))}
	for _, job := range jobs {
		payload.Jobs = append(payload.Jobs, toAPIJob(job))
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handleJobByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	id, sub, _ := strings.Cut(rest, "/")
	if id == "" || strings.Contains(sub, "/") {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}

	switch {
	case sub == "" && r.Method == http.MethodGet:
		s.handleJobStatus(w, r, id)
	case sub == "result" && r.Method == http.MethodGet:
		s.handleJobResult(w, r, id)
	case sub == "cancel" && r.Method == http.MethodPost:
		s.handleJobCancel(w, r, id)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleJobStatus(w http.ResponseWriter, r *http.Request, id string) {
	job, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if job == nil {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	s.writeJSON(w, http.StatusOK, toAPIJob(job))
}

func (s *apiServer) handleJobResult(w http.ResponseWriter, r *http.Request, id string) {
	job, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if job == nil {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if job.Status != jobstore.StatusCompleted {
		s.writeError(w, http.StatusConflict, fmt.Sprintf("job is %s, not completed", job.Status))
		return
	}
	if _, err := os.Stat(job.OutputPath); err != nil {
		s.writeError(w, http.StatusNotFound, "output file missing")
		return
	}
	w.Header().Set("Content-Type", "video/mp4")
	http.ServeFile(w, r, job.OutputPath)
}

func (s *apiServer) handleJobCancel(w http.ResponseWriter, r *http.Request, id string) {
	job, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if job == nil {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	ok, err := s.store.RequestCancel(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.CancelResponse{JobID: id, Cancelled: ok})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.daemon.Status(r.Context())
	depStatuses := make([]api.DependencyStatus, 0, len(status.Dependencies))
	for _, dep := range status.Dependencies {
		depStatuses = append(depStatuses, api.DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		})
	}
	s.writeJSON(w, http.StatusOK, api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		DatabasePath: status.DatabasePath,
		LockFilePath: status.LockFilePath,
		Jobs: api.JobCounts{
			Total:      status.Jobs.Total,
			Pending:    status.Jobs.Pending,
			Processing: status.Jobs.Processing,
			Completed:  status.Jobs.Completed,
			Failed:     status.Jobs.Failed,
			Cancelled:  status.Jobs.Cancelled,
		},
		Dependencies: depStatuses,
	})
}

func toAPIJob(job *jobstore.Job) api.Job {
	opts, err := job.Options()
	if err != nil {
		opts = jobstore.Options{}
	}
	sceneCount := 0
	if scenes, err := timeline.DecodeScenes(job.ScenesJSON); err == nil {
		sceneCount = len(scenes)
	}
	return api.Job{
		ID:         job.ID,
		Status:     string(job.Status),
		Stage:      job.Stage,
		Progress:   job.Progress,
		Error:      job.ErrorMessage,
		OutputPath: job.OutputPath,
		SceneCount: sceneCount,
		Options: api.JobOptions{
			Voice:        opts.Voice,
			Captions:     opts.Captions,
			CaptionStyle: opts.CaptionStyle,
			Music:        opts.Music,
			Mood:         opts.Mood,
			AspectRatio:  opts.AspectRatio,
		},
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}

func (s *apiServer) log() *slog.Logger {
	return logging.NewComponentLogger(s.logger, "api-server")
}
