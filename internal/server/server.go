// Package server exposes the send pipeline as a local JSON and WebSocket API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/SmitUplenchwar2687/Hooksend/internal/app"
	"github.com/SmitUplenchwar2687/Hooksend/internal/draft"
	"github.com/SmitUplenchwar2687/Hooksend/internal/eventlog"
	"github.com/SmitUplenchwar2687/Hooksend/internal/recorder"
	"github.com/SmitUplenchwar2687/Hooksend/internal/sender"
)

// maxBodyBytes leaves room for an 8 MiB data-URI image after base64 inflation.
const maxBodyBytes = 12 << 20

// eventBuffer bounds how many security events can wait for the WebSocket
// pump before new ones are dropped.
const eventBuffer = 64

// Server is the Hooksend HTTP server.
type Server struct {
	httpServer *http.Server
	app        *app.App
	hub        *Hub
	mux        *http.ServeMux
	logger     *zap.Logger
	countdown  time.Duration
	recorder   *recorder.Recorder

	events chan eventlog.Entry
	wg     sync.WaitGroup
}

// New creates a server over a. Addr, countdown interval and allowed
// WebSocket origins come from a's config.
func New(a *app.App) *Server {
	cfg := a.Config.Server
	logger := a.Logger.Named("server")

	s := &Server{
		app:       a,
		hub:       NewHub(cfg.AllowedOrigins, logger),
		mux:       http.NewServeMux(),
		logger:    logger,
		countdown: cfg.CountdownInterval,
		events:    make(chan eventlog.Entry, eventBuffer),
	}
	if s.countdown <= 0 {
		s.countdown = time.Second
	}
	s.routes()
	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleRoot)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/status", s.handleStatus)
	s.mux.HandleFunc("POST /api/send", s.handleSend)
	s.mux.HandleFunc("GET /api/logs", s.handleLogs)
	s.mux.HandleFunc("POST /api/notice/ack", s.handleNoticeAck)
	s.mux.HandleFunc("GET /ws", s.hub.HandleWebSocket)
}

// Handler returns the routed handler wrapped in request logging.
func (s *Server) Handler() http.Handler {
	return LoggingMiddleware(s.mux, s.app.Clock, s.logger)
}

// SetRecorder records every send attempt to rec. Must be called before the
// server starts handling requests.
func (s *Server) SetRecorder(rec *recorder.Recorder) {
	s.recorder = rec
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "hooksend",
		"status":  "running",
		"time":    s.app.Clock.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Sender.Status(r.Context()))
}

// sendResponse carries the outcome and the draft as it stands afterwards, so
// a client sees content cleared after a successful send.
type sendResponse struct {
	sender.Outcome
	Draft *draft.Draft `json:"draft"`
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req draft.Request
	if err := sonic.ConfigStd.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid draft: %v", err))
		return
	}
	d := req.Resolve(s.app.Drafts.Profile(r.Context()))
	if d.WebhookURL == "" {
		d.WebhookURL = s.app.Config.Webhook.DefaultURL
	}

	submitted := *d
	out := s.app.Sender.Send(r.Context(), d)
	if s.recorder != nil {
		if err := s.recorder.Record(recorder.NewAttempt(s.app.Clock.Now(), submitted, out)); err != nil {
			s.logger.Warn("failed to record send attempt", zap.Error(err))
		}
	}
	if out.Notice != nil {
		w.Header().Set("Retry-After", strconv.Itoa(int(out.Notice.Duration.Seconds())))
	}
	writeJSON(w, statusCode(out.Status), sendResponse{Outcome: out, Draft: d})
}

func statusCode(st sender.Status) int {
	switch st {
	case sender.StatusSent:
		return http.StatusOK
	case sender.StatusRejected:
		return http.StatusUnprocessableEntity
	case sender.StatusBlocked:
		return http.StatusForbidden
	case sender.StatusRateLimited:
		return http.StatusTooManyRequests
	case sender.StatusBusy:
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

// handleLogs returns the security log, optionally filtered with ?type=.
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	typ := eventlog.Type(r.URL.Query().Get("type"))
	if typ == "" {
		writeJSON(w, http.StatusOK, s.app.Events.ReadAll(r.Context()))
		return
	}
	if !typ.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown event type %q", typ))
		return
	}
	writeJSON(w, http.StatusOK, s.app.Events.Filter(r.Context(), typ))
}

func (s *Server) handleNoticeAck(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Sender.AcknowledgeNotice(r.Context()); err != nil {
		s.logger.Error("failed to record notice acknowledgement", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not record acknowledgement")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Run starts the background loops: the usage sweep, the countdown broadcast
// and the security-event stream. They stop when ctx is done; Wait blocks
// until they have.
func (s *Server) Run(ctx context.Context) {
	unsubscribe := s.app.Events.Subscribe(func(e eventlog.Entry) {
		select {
		case s.events <- e:
		default:
			s.logger.Warn("websocket event buffer full, dropping event",
				zap.String("type", string(e.Type)))
		}
	})

	s.wg.Add(3)
	go func() {
		defer s.wg.Done()
		s.app.Limiter.Run(ctx)
	}()
	go func() {
		defer s.wg.Done()
		s.broadcastCountdown(ctx)
	}()
	go func() {
		defer s.wg.Done()
		defer unsubscribe()
		s.pumpEvents(ctx)
	}()
}

// Wait blocks until the loops started by Run have returned.
func (s *Server) Wait() {
	s.wg.Wait()
}

func (s *Server) broadcastCountdown(ctx context.Context) {
	ticker := s.app.Clock.NewTicker(s.countdown)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			if s.hub.ClientCount() == 0 {
				continue
			}
			s.hub.Broadcast(Message{Type: MessageStatus, Data: s.app.Sender.Status(ctx)})
		}
	}
}

func (s *Server) pumpEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-s.events:
			s.hub.Broadcast(Message{Type: MessageEvent, Data: e})
		}
	}
}

// Start begins listening. It blocks until the server is shut down.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.StartOnListener(ln)
}

// StartOnListener begins serving on the provided listener.
func (s *Server) StartOnListener(ln net.Listener) error {
	s.logger.Info("hooksend server listening", zap.String("addr", ln.Addr().String()))
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown disconnects WebSocket clients and gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.httpServer.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	sonic.ConfigStd.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
