package webhook

import (
	"bufio"
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/amr/nutrisync/internal/observability"
	"github.com/amr/nutrisync/pkg/store"
	"github.com/amr/nutrisync/pkg/turn"
	"github.com/amr/nutrisync/pkg/turnqueue"
)

const maxUpdateBody = 1 << 20 // Telegram updates are small; photos come via the Bot API.

// Server is the HTTP surface of the coach: the Telegram webhook, the JSON
// chat API and the websocket endpoint.
type Server struct {
	options        ServerOptions
	server         *http.Server
	turns          TurnRunner
	ledger         Ledger
	updates        UpdateHandler
	rateLimiter    *RateLimiter
	metricsTracker *MetricsTracker
	dedup          *turnqueue.DedupCache
	logger         zerolog.Logger
	startTime      time.Time
	isShuttingDown bool
	shutdownMu     sync.RWMutex
	inFlightReqs   sync.WaitGroup
}

// NewServer creates the HTTP server. The update handler may be nil when the
// Telegram channel is disabled; /webhook then returns 404.
func NewServer(options ServerOptions, turns TurnRunner, ledger Ledger, updates UpdateHandler, logger zerolog.Logger) (*Server, error) {
	if turns == nil {
		return nil, fmt.Errorf("turn runner is required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("ledger is required")
	}

	if options.Port == 0 {
		options.Port = 8080
	}
	if options.Host == "" {
		options.Host = "0.0.0.0"
	}
	if options.RateLimitPerMinute == 0 {
		options.RateLimitPerMinute = 100
	}
	if options.DedupWindow == 0 {
		options.DedupWindow = 5 * time.Minute
	}

	return &Server{
		options:        options,
		turns:          turns,
		ledger:         ledger,
		updates:        updates,
		rateLimiter:    NewRateLimiter(options.RateLimitPerMinute),
		metricsTracker: NewMetricsTracker(),
		dedup:          turnqueue.NewDedupCache(options.DedupWindow),
		logger:         logger,
		startTime:      time.Now(),
	}, nil
}

// Start starts the HTTP server and blocks until it is shut down.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", observability.MetricsHandler())
	mux.HandleFunc("/webhook", s.guard(s.handleTelegramWebhook))
	mux.HandleFunc("/api/chat", s.guard(s.handleChat))
	mux.HandleFunc("/api/history", s.guard(s.handleHistory))
	mux.HandleFunc("/ws", s.guard(s.handleWebSocket))

	s.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.options.Host, s.options.Port),
		Handler: mux,
	}

	s.logger.Info().
		Str("host", s.options.Host).
		Int("port", s.options.Port).
		Msg("Starting HTTP server")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Stop drains in-flight requests and shuts the server down.
func (s *Server) Stop() error {
	s.shutdownMu.Lock()
	s.isShuttingDown = true
	s.shutdownMu.Unlock()

	s.logger.Info().Msg("Shutting down HTTP server")

	done := make(chan struct{})
	go func() {
		s.inFlightReqs.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(30 * time.Second):
		s.logger.Warn().Msg("Shutdown timeout reached, forcing close")
	}

	s.rateLimiter.Stop()
	s.dedup.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.logger.Info().Msg("HTTP server stopped")
	return nil
}

// guard applies the shutdown gate, in-flight tracking, per-IP rate limiting
// and per-endpoint metrics around a handler.
func (s *Server) guard(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.shutdownMu.RLock()
		if s.isShuttingDown {
			s.shutdownMu.RUnlock()
			http.Error(w, "Server is shutting down", http.StatusServiceUnavailable)
			return
		}
		s.shutdownMu.RUnlock()

		s.inFlightReqs.Add(1)
		defer s.inFlightReqs.Done()

		ip := s.clientIP(r)
		if !s.rateLimiter.Allow(ip) {
			retryAfter := s.rateLimiter.RetryAfter(ip)
			s.logger.Warn().
				Str("ip", ip).
				Str("path", r.URL.Path).
				Int("retryAfter", retryAfter).
				Msg("Rate limit exceeded")

			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)

		elapsed := time.Since(start)
		s.metricsTracker.Track(r.URL.Path, r.Method, rec.status < 400, float64(elapsed.Milliseconds()))
		observability.RecordHTTPRequest(r.URL.Path, r.Method, rec.status, elapsed)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"uptime":    time.Since(s.startTime).Seconds(),
		"timestamp": time.Now().UnixMilli(),
		"endpoints": s.metricsTracker.Snapshot(),
	})
}

// handleTelegramWebhook accepts a Telegram update, answers 200 immediately
// and processes the update in the background. Telegram redelivers on slow or
// failed responses, so duplicate update ids inside the window are dropped.
func (s *Server) handleTelegramWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.updates == nil {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	if s.options.SecretToken != "" {
		token := r.Header.Get("X-Telegram-Bot-Api-Secret-Token")
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.options.SecretToken)) != 1 {
			s.logger.Warn().Str("ip", s.clientIP(r)).Msg("Webhook secret token mismatch")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxUpdateBody))
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	var envelope struct {
		UpdateID int64 `json:"update_id"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		s.logger.Warn().Err(err).Msg("Malformed Telegram update")
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	if s.dedup.Seen(strconv.FormatInt(envelope.UpdateID, 10)) {
		s.logger.Debug().Int64("update_id", envelope.UpdateID).Msg("Dropping duplicate Telegram update")
		w.WriteHeader(http.StatusOK)
		return
	}

	s.inFlightReqs.Add(1)
	go func() {
		defer s.inFlightReqs.Done()
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error().Interface("panic", rec).Msg("Panic while handling Telegram update")
			}
		}()

		if err := s.updates.HandleUpdate(context.Background(), body); err != nil {
			s.logger.Error().Err(err).Int64("update_id", envelope.UpdateID).Msg("Telegram update failed")
		}
	}()

	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || strings.TrimSpace(req.Message) == "" {
		http.Error(w, "user_id and message are required", http.StatusBadRequest)
		return
	}

	result := s.turns.ProcessTurn(r.Context(), turn.Request{
		UserID: req.UserID,
		Text:   req.Message,
	})

	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		if n > 200 {
			n = 200
		}
		limit = n
	}

	var after time.Time
	if raw := r.URL.Query().Get("after"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, "invalid after timestamp", http.StatusBadRequest)
			return
		}
		after = t
	}

	messages, err := s.ledger.RecentMessages(r.Context(), userID, limit, after)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to read history")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if messages == nil {
		messages = []store.ChatMessage{}
	}

	s.writeJSON(w, http.StatusOK, HistoryResponse{UserID: userID, Messages: messages})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error().Err(err).Msg("Failed to write response")
	}
}

func (s *Server) clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack lets the websocket upgrade pass through the recorder.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return h.Hijack()
}
