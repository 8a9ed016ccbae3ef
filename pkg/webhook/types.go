package webhook

import (
	"context"
	"time"

	"github.com/amr/nutrisync/pkg/store"
	"github.com/amr/nutrisync/pkg/turn"
)

// TurnRunner processes one user turn. Satisfied by *turn.Orchestrator.
type TurnRunner interface {
	ProcessTurn(ctx context.Context, req turn.Request) turn.Result
}

// Ledger reads the chat transcript for the history endpoint.
type Ledger interface {
	RecentMessages(ctx context.Context, userID string, limit int, after time.Time) ([]store.ChatMessage, error)
}

// UpdateHandler consumes a raw Telegram update payload.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, payload []byte) error
}

// ServerOptions configures the HTTP server.
type ServerOptions struct {
	Host               string
	Port               int
	RateLimitPerMinute int
	// SecretToken is compared against the X-Telegram-Bot-Api-Secret-Token
	// header on /webhook. Empty disables the check.
	SecretToken string
	DedupWindow time.Duration
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// HistoryResponse is the body of GET /api/history.
type HistoryResponse struct {
	UserID   string              `json:"user_id"`
	Messages []store.ChatMessage `json:"messages"`
}

// EndpointMetrics tracks request counts and latency per endpoint.
type EndpointMetrics struct {
	Path                string  `json:"path"`
	Method              string  `json:"method"`
	TotalRequests       int64   `json:"totalRequests"`
	SuccessCount        int64   `json:"successCount"`
	FailureCount        int64   `json:"failureCount"`
	AverageResponseTime float64 `json:"averageResponseTime"`
	LastRequestAt       int64   `json:"lastRequestAt"`
}
