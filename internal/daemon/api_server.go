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
	"strconv"
	"strings"
	"time"

	"photolog/internal/api"
	"photolog/internal/config"
	"photolog/internal/ingest"
	"photolog/internal/job"
	"photolog/internal/logging"
	"photolog/internal/services"
)

const maxRequestBody = 1 << 20

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	handler  http.Handler
	listener net.Listener
	server   *http.Server
}

// UploadRequest is the body of POST /api/uploads.
type UploadRequest struct {
	Path string   `json:"path"`
	Name string   `json:"name,omitempty"`
	Tags []string `json:"tags,omitempty"`
	Skip []string `json:"skip,omitempty"`
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
		bind:   bind,
		logger: logger,
		daemon: d,
	}
	token := strings.TrimSpace(cfg.Paths.APIToken)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", srv.requireToken(token, srv.handleStatus))
	mux.HandleFunc("GET /api/queue", srv.requireToken(token, srv.handleQueue))
	mux.HandleFunc("GET /api/queue/bad", srv.requireToken(token, srv.handleBad))
	mux.HandleFunc("POST /api/queue/retry", srv.requireToken(token, srv.handleRetry))
	mux.HandleFunc("DELETE /api/queue/bad", srv.requireToken(token, srv.handlePurgeAll))
	mux.HandleFunc("DELETE /api/queue/bad/{id}", srv.requireToken(token, srv.handlePurgeOne))
	mux.HandleFunc("POST /api/jobs", srv.requireToken(token, srv.handleEnqueue))
	// Uploads name a file on this host, so they are only served behind a token.
	if token != "" {
		mux.HandleFunc("POST /api/uploads", srv.requireToken(token, srv.handleUpload))
	} else {
		mux.HandleFunc("POST /api/uploads", srv.handleUploadDisabled)
	}
	srv.handler = mux

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
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
			s.log().Error("api server error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "api_serve_failed"))
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

func (s *apiServer) address() string {
	if s == nil {
		return ""
	}
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.bind
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.daemon.Status(r.Context()).ToAPI())
}

func (s *apiServer) handleQueue(w http.ResponseWriter, r *http.Request) {
	limit, ok := s.limit(w, r)
	if !ok {
		return
	}
	resp, err := s.daemon.PeekQueue(r.Context(), limit)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleBad(w http.ResponseWriter, r *http.Request) {
	limit, ok := s.limit(w, r)
	if !ok {
		return
	}
	resp, err := s.daemon.BadJobs(r.Context(), limit)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleRetry(w http.ResponseWriter, r *http.Request) {
	resp, err := s.daemon.RetryBad(r.Context())
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handlePurgeAll(w http.ResponseWriter, r *http.Request) {
	resp, err := s.daemon.PurgeAllBad(r.Context())
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handlePurgeOne(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		s.writeError(w, http.StatusBadRequest, "invalid quarantine id")
		return
	}
	result, err := s.daemon.PurgeBad(r.Context(), []int64{id})
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	if result.Removed == 0 {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("quarantined job %d not found", id))
		return
	}
	s.writeJSON(w, http.StatusOK, api.PurgeResponse{Removed: result.Removed})
}

func (s *apiServer) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	var rec job.Record
	if !s.decode(w, r, &rec) {
		return
	}
	queued, err := s.daemon.Enqueue(r.Context(), &rec)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, api.EnqueueResponse{Key: queued.Key, Type: string(queued.Kind())})
}

func (s *apiServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	var req UploadRequest
	if !s.decode(w, r, &req) {
		return
	}
	result, err := s.daemon.AddFile(r.Context(), ingest.Request{Path: req.Path, Name: req.Name, Tags: req.Tags, Skip: req.Skip})
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, api.EnqueueResponse{Key: result.Key, Type: string(job.TypeUpload), Filename: result.Filename})
}

func (s *apiServer) handleUploadDisabled(w http.ResponseWriter, _ *http.Request) {
	s.writeError(w, http.StatusForbidden, "uploads over HTTP require paths.api_token to be set")
}

func (s *apiServer) limit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return api.DefaultPeekLimit, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return 0, false
	}
	return limit, true
}

func (s *apiServer) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := io.LimitReader(r.Body, maxRequestBody)
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation), errors.Is(err, api.ErrNoPurgeTarget):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, services.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *apiServer) writeFailure(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log().Error("api request failed", logging.Args(logging.ErrorAttrs(err)...)...)
	}
	s.writeError(w, status, err.Error())
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
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String(logging.FieldComponent, "api-server"))
	}
	return logging.NewNop()
}
