// Package bridge serves the local HTTP and websocket API that editor
// plugins and the CLI use to feed and query the live context buffer.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	bridgeerrors "github.com/atinylittleshell/ctxbridge/internal/errors"
	"github.com/atinylittleshell/ctxbridge/internal/enhance"
	"github.com/atinylittleshell/ctxbridge/internal/livecontext"
	"github.com/atinylittleshell/ctxbridge/internal/provider"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Snapshotter answers snapshot queries.
type Snapshotter interface {
	Snapshot(window time.Duration) livecontext.Snapshot
}

// Enhancer builds enhanced prompts.
type Enhancer interface {
	EnhanceAt(ctx context.Context, prompt string, level enhance.Level) (*enhance.Result, error)
	Level() enhance.Level
}

// Options wires a Server to the rest of the daemon. Enhancer and
// Providers may be nil, in which case their endpoints answer 503.
type Options struct {
	Snapshots Snapshotter
	Enhancer  Enhancer
	Providers func() []provider.ProviderDescriptor
	Logger    *zap.Logger
}

// Server is both the daemon's HTTP API and a livecontext.Host fed by
// websocket clients.
type Server struct {
	livecontext.Emitter
	docs livecontext.Documents

	opts     Options
	logger   *zap.Logger
	upgrader websocket.Upgrader
	clients  atomic.Int32
}

// NewServer creates a server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		opts:   opts,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 << 10,
			WriteBufferSize: 16 << 10,
			// The server only listens on loopback; plugins connect from
			// webview origins that vary by editor.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// SetSnapshots attaches the buffer once it exists.
func (s *Server) SetSnapshots(snap Snapshotter) {
	s.opts.Snapshots = snap
}

// OpenDocuments lists documents opened by connected editors.
func (s *Server) OpenDocuments() []livecontext.Document {
	return s.docs.OpenDocuments()
}

// Clients returns the number of connected websocket clients.
func (s *Server) Clients() int {
	return int(s.clients.Load())
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWebsocket)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /snapshot", s.handleSnapshot)
	mux.HandleFunc("POST /enhance", s.handleEnhance)
	mux.HandleFunc("GET /providers", s.handleProviders)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("bridge listening", zap.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down bridge: %w", err)
		}
		return nil
	}
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("failed to upgrade websocket", zap.Error(err))
		return
	}
	defer conn.Close()

	s.clients.Add(1)
	defer s.clients.Add(-1)
	s.logger.Info("editor connected", zap.String("remote", r.RemoteAddr))

	for {
		var frame Frame
		if err := conn.ReadJSON(&frame); err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) || errors.Is(err, net.ErrClosed) {
				s.logger.Info("editor disconnected", zap.String("remote", r.RemoteAddr))
				return
			}
			if isDecodeError(err) {
				if werr := conn.WriteJSON(ErrorFrame{Type: FrameError, Error: "malformed frame"}); werr != nil {
					return
				}
				continue
			}
			s.logger.Info("editor connection closed", zap.Error(err))
			return
		}

		if err := s.Dispatch(frame); err != nil {
			if werr := conn.WriteJSON(ErrorFrame{Type: FrameError, Error: err.Error()}); werr != nil {
				s.logger.Warn("failed to write websocket frame", zap.Error(werr))
				return
			}
		}
	}
}

func isDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}

// Dispatch validates frame and emits the matching host notification.
func (s *Server) Dispatch(frame Frame) error {
	if err := frameValidate.Struct(frame); err != nil {
		return bridgeerrors.NewInvalidRequest(fmt.Sprintf("invalid %q frame: %v", frame.Type, err))
	}

	switch frame.Type {
	case FrameOpen:
		s.docs.Open(frame.File, frame.language())
	case FrameClose:
		s.docs.Close(frame.File)
	case FrameChange:
		s.docs.Open(frame.File, frame.language())
		s.EmitChange(livecontext.ChangeNotification{
			File:     frame.File,
			Language: frame.language(),
			Changes:  frame.Changes,
		})
	case FrameSave:
		s.EmitSave(frame.File)
	case FrameFocus:
		s.EmitActiveEditor(frame.File)
	case FrameSelection:
		n := livecontext.SelectionNotification{File: frame.File, Text: frame.Text}
		if frame.Selection != nil {
			n.Selection = *frame.Selection
		}
		s.EmitSelection(n)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"clients": s.Clients(),
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.opts.Snapshots == nil {
		writeError(w, bridgeerrors.NewServiceUnavailable("live context buffer", nil))
		return
	}
	var window time.Duration
	if raw := r.URL.Query().Get("minutes"); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil || minutes <= 0 {
			writeError(w, bridgeerrors.NewInvalidRequest("minutes must be a positive integer"))
			return
		}
		window = time.Duration(minutes) * time.Minute
	}
	writeJSON(w, http.StatusOK, s.opts.Snapshots.Snapshot(window))
}

// EnhanceRequest is the body of POST /enhance.
type EnhanceRequest struct {
	Prompt string `json:"prompt"`
	Level  string `json:"level,omitempty"`
}

func (s *Server) handleEnhance(w http.ResponseWriter, r *http.Request) {
	if s.opts.Enhancer == nil {
		writeError(w, bridgeerrors.NewServiceUnavailable("enhancer", nil))
		return
	}
	var req EnhanceRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, bridgeerrors.NewInvalidRequest("invalid JSON body"))
		return
	}
	if req.Prompt == "" {
		writeError(w, bridgeerrors.NewInvalidRequest("prompt is required"))
		return
	}

	level := s.opts.Enhancer.Level()
	if req.Level != "" {
		level = enhance.ParseLevel(req.Level)
	}

	res, err := s.opts.Enhancer.EnhanceAt(r.Context(), req.Prompt, level)
	if err != nil {
		s.logger.Warn("enhance request failed", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	if s.opts.Providers == nil {
		writeError(w, bridgeerrors.NewServiceUnavailable("provider detection", nil))
		return
	}
	writeJSON(w, http.StatusOK, s.opts.Providers())
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Code    bridgeerrors.ErrorCode `json:"code"`
	Message string                 `json:"message"`
	Details map[string]any         `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	var bErr *bridgeerrors.BridgeError
	if !errors.As(err, &bErr) {
		bErr = bridgeerrors.NewInternal(err)
	}
	status := bErr.Status
	if bErr.Code == bridgeerrors.ErrServiceError {
		status = http.StatusBadGateway
	}
	if status < 400 || status > 599 {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, errorBody{Code: bErr.Code, Message: bErr.Message, Details: bErr.Details})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
