package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"podstudio/internal/api"
	"podstudio/internal/config"
	"podstudio/internal/logging"
	"podstudio/internal/services"
)

// maxJSONBody bounds request bodies on JSON endpoints. Audio uploads go
// through multipart handling with their own limit.
const maxJSONBody = 1 << 20

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.Paths.APIBind),
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
	}
	srv.server = &http.Server{
		Handler:           srv.routes(cfg.Paths.APIToken),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) routes(token string) http.Handler {
	mux := http.NewServeMux()
	auth := func(h http.HandlerFunc) http.HandlerFunc {
		return requireAuth(token, h)
	}

	mux.HandleFunc("GET /api/status", auth(s.handleStatus))
	mux.HandleFunc("GET /api/usage", auth(s.handleUsage))

	mux.HandleFunc("POST /api/episodes", auth(s.handleCreateEpisode))
	mux.HandleFunc("GET /api/episodes", auth(s.handleListEpisodes))
	mux.HandleFunc("GET /api/episodes/{id}", auth(s.handleGetEpisode))
	mux.HandleFunc("DELETE /api/episodes/{id}", auth(s.handleDeleteEpisode))
	mux.HandleFunc("POST /api/episodes/{id}/render", auth(s.handleRender))
	mux.HandleFunc("GET /api/episodes/{id}/audio", auth(s.handleEpisodeAudio))

	mux.HandleFunc("GET /api/episodes/{id}/segments", auth(s.handleListSegments))
	mux.HandleFunc("POST /api/episodes/{id}/segments", auth(s.handleCreateSegment))
	mux.HandleFunc("PUT /api/episodes/{id}/segments/order", auth(s.handleReorderSegments))
	mux.HandleFunc("GET /api/episodes/{id}/segments/{segmentID}", auth(s.handleGetSegment))
	mux.HandleFunc("PATCH /api/episodes/{id}/segments/{segmentID}", auth(s.handleRenameSegment))
	mux.HandleFunc("DELETE /api/episodes/{id}/segments/{segmentID}", auth(s.handleDeleteSegment))
	mux.HandleFunc("GET /api/episodes/{id}/segments/{segmentID}/audio", auth(s.handleSegmentAudio))

	mux.HandleFunc("POST /api/episodes/{id}/segments/{segmentID}/trim", auth(s.handleTrim))
	mux.HandleFunc("POST /api/episodes/{id}/segments/{segmentID}/silence", auth(s.handleRemoveSilence))
	mux.HandleFunc("POST /api/episodes/{id}/segments/{segmentID}/denoise", auth(s.handleSuppressNoise))

	mux.HandleFunc("GET /api/episodes/{id}/segments/{segmentID}/transcript", auth(s.handleGetTranscript))
	mux.HandleFunc("POST /api/episodes/{id}/segments/{segmentID}/transcript", auth(s.handleGenerateTranscript))
	mux.HandleFunc("PUT /api/episodes/{id}/segments/{segmentID}/transcript", auth(s.handleOverwriteTranscript))
	mux.HandleFunc("DELETE /api/episodes/{id}/segments/{segmentID}/transcript", auth(s.handleDeleteTranscript))

	mux.HandleFunc("GET /api/assets", auth(s.handleListAssets))
	mux.HandleFunc("POST /api/assets", auth(s.handleImportAsset))
	mux.HandleFunc("GET /api/assets/{id}", auth(s.handleGetAsset))
	mux.HandleFunc("DELETE /api/assets/{id}", auth(s.handleDeleteAsset))

	return mux
}

func (s *apiServer) start(ctx context.Context) error {
	if s.bind == "" {
		return errors.New("api bind address is empty")
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Args(logging.Error(err))...)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.Args(logging.String("address", listener.Addr().String()))...)
	return nil
}

func (s *apiServer) stop() {
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

// addr returns the bound listen address once the server has started.
func (s *apiServer) addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status()
	s.writeJSON(w, http.StatusOK, api.Status{
		Running:       status.Running,
		PID:           status.PID,
		DatabasePath:  status.DatabasePath,
		LockFilePath:  status.LockFilePath,
		Transcription: status.Transcription,
	})
}

func (s *apiServer) handleUsage(w http.ResponseWriter, r *http.Request) {
	used, err := s.daemon.quota.Usage(r.Context(), userID(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.Usage{UsedBytes: used, LimitBytes: s.daemon.limit})
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, services.Wrap(services.ErrValidation, "api", "parse", "invalid identifier", nil)
	}
	return id, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return services.Wrap(services.ErrValidation, "api", "decode", "malformed request body", err)
	}
	return nil
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Args(logging.Error(err))...)
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, err error) {
	status := services.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", logging.Args(logging.Error(err))...)
	}
	s.writeJSON(w, status, api.Error{Error: api.ErrorDetail{Code: services.Code(err), Message: err.Error()}})
}
