package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amr/nutrisync/pkg/store"
	"github.com/amr/nutrisync/pkg/turn"
)

type fakeTurnRunner struct {
	mu       sync.Mutex
	requests []turn.Request
	result   turn.Result
}

func (f *fakeTurnRunner) ProcessTurn(ctx context.Context, req turn.Request) turn.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.result
}

func (f *fakeTurnRunner) calls() []turn.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]turn.Request(nil), f.requests...)
}

type fakeHistoryLedger struct {
	messages []store.ChatMessage
	err      error
	gotLimit int
	gotAfter time.Time
}

func (f *fakeHistoryLedger) RecentMessages(ctx context.Context, userID string, limit int, after time.Time) ([]store.ChatMessage, error) {
	f.gotLimit = limit
	f.gotAfter = after
	return f.messages, f.err
}

type fakeUpdateHandler struct {
	mu       sync.Mutex
	payloads [][]byte
	done     chan struct{}
}

func newFakeUpdateHandler() *fakeUpdateHandler {
	return &fakeUpdateHandler{done: make(chan struct{}, 16)}
}

func (f *fakeUpdateHandler) HandleUpdate(ctx context.Context, payload []byte) error {
	f.mu.Lock()
	f.payloads = append(f.payloads, payload)
	f.mu.Unlock()
	f.done <- struct{}{}
	return nil
}

func (f *fakeUpdateHandler) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

type serverHarness struct {
	server  *Server
	turns   *fakeTurnRunner
	ledger  *fakeHistoryLedger
	updates *fakeUpdateHandler
	mux     *http.ServeMux
}

func newServerHarness(t *testing.T, options ServerOptions) *serverHarness {
	t.Helper()

	turns := &fakeTurnRunner{result: turn.Result{Text: "hello"}}
	ledger := &fakeHistoryLedger{}
	updates := newFakeUpdateHandler()

	s, err := NewServer(options, turns, ledger, updates, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() {
		s.rateLimiter.Stop()
		s.dedup.Stop()
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/webhook", s.guard(s.handleTelegramWebhook))
	mux.HandleFunc("/api/chat", s.guard(s.handleChat))
	mux.HandleFunc("/api/history", s.guard(s.handleHistory))
	mux.HandleFunc("/ws", s.guard(s.handleWebSocket))

	return &serverHarness{server: s, turns: turns, ledger: ledger, updates: updates, mux: mux}
}

func (h *serverHarness) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.mux.ServeHTTP(rec, req)
	return rec
}

func TestNewServerRequiresDependencies(t *testing.T) {
	_, err := NewServer(ServerOptions{}, nil, &fakeHistoryLedger{}, nil, zerolog.Nop())
	assert.Error(t, err)

	_, err = NewServer(ServerOptions{}, &fakeTurnRunner{}, nil, nil, zerolog.Nop())
	assert.Error(t, err)
}

func TestHealthEndpoint(t *testing.T) {
	h := newServerHarness(t, ServerOptions{})

	rec := h.do(httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestChatRunsTurn(t *testing.T) {
	h := newServerHarness(t, ServerOptions{})
	h.turns.result = turn.Result{Text: "logged it", MessageID: "m1"}

	payload, _ := json.Marshal(ChatRequest{UserID: "u1", Message: "I ate 3 eggs"})
	rec := h.do(httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader(payload)))

	require.Equal(t, http.StatusOK, rec.Code)

	var result turn.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "logged it", result.Text)
	assert.Equal(t, "m1", result.MessageID)

	calls := h.turns.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "u1", calls[0].UserID)
	assert.Equal(t, "I ate 3 eggs", calls[0].Text)
}

func TestChatRejectsMissingFields(t *testing.T) {
	h := newServerHarness(t, ServerOptions{})

	payload, _ := json.Marshal(ChatRequest{UserID: "u1"})
	rec := h.do(httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader(payload)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader([]byte("not json"))))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(httptest.NewRequest(http.MethodGet, "/api/chat", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Empty(t, h.turns.calls())
}

func TestHistoryEndpoint(t *testing.T) {
	h := newServerHarness(t, ServerOptions{})
	h.ledger.messages = []store.ChatMessage{
		{ID: "a", UserID: "u1", Role: "user", Content: "hi"},
		{ID: "b", UserID: "u1", Role: "model", Content: "hello"},
	}

	rec := h.do(httptest.NewRequest(http.MethodGet, "/api/history?user_id=u1&limit=10", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10, h.ledger.gotLimit)

	var body HistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "u1", body.UserID)
	require.Len(t, body.Messages, 2)
	assert.Equal(t, "hello", body.Messages[1].Content)
}

func TestHistoryValidation(t *testing.T) {
	h := newServerHarness(t, ServerOptions{})

	rec := h.do(httptest.NewRequest(http.MethodGet, "/api/history", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(httptest.NewRequest(http.MethodGet, "/api/history?user_id=u1&limit=zero", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(httptest.NewRequest(http.MethodGet, "/api/history?user_id=u1&after=yesterday", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistoryCapsLimit(t *testing.T) {
	h := newServerHarness(t, ServerOptions{})

	rec := h.do(httptest.NewRequest(http.MethodGet, "/api/history?user_id=u1&limit=5000", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 200, h.ledger.gotLimit)
}

func TestHistoryLedgerFailure(t *testing.T) {
	h := newServerHarness(t, ServerOptions{})
	h.ledger.err = errors.New("db closed")

	rec := h.do(httptest.NewRequest(http.MethodGet, "/api/history?user_id=u1", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestTelegramWebhookDispatchesUpdate(t *testing.T) {
	h := newServerHarness(t, ServerOptions{})

	update := []byte(`{"update_id":42,"message":{"text":"hi"}}`)
	rec := h.do(httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(update)))

	require.Equal(t, http.StatusOK, rec.Code)

	select {
	case <-h.updates.done:
	case <-time.After(2 * time.Second):
		t.Fatal("update was not dispatched")
	}
	assert.Equal(t, 1, h.updates.count())
}

func TestTelegramWebhookDropsDuplicates(t *testing.T) {
	h := newServerHarness(t, ServerOptions{})

	update := []byte(`{"update_id":7}`)
	rec := h.do(httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(update)))
	require.Equal(t, http.StatusOK, rec.Code)
	<-h.updates.done

	rec = h.do(httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(update)))
	require.Equal(t, http.StatusOK, rec.Code)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, h.updates.count())
}

func TestTelegramWebhookSecretToken(t *testing.T) {
	h := newServerHarness(t, ServerOptions{SecretToken: "s3cret"})

	update := []byte(`{"update_id":1}`)

	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(update))
	rec := h.do(req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(update))
	req.Header.Set("X-Telegram-Bot-Api-Secret-Token", "wrong")
	rec = h.do(req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(update))
	req.Header.Set("X-Telegram-Bot-Api-Secret-Token", "s3cret")
	rec = h.do(req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTelegramWebhookRejectsMalformedBody(t *testing.T) {
	h := newServerHarness(t, ServerOptions{})

	rec := h.do(httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader([]byte("{"))))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateLimitedRequestsGet429(t *testing.T) {
	h := newServerHarness(t, ServerOptions{RateLimitPerMinute: 2})

	for i := 0; i < 2; i++ {
		rec := h.do(httptest.NewRequest(http.MethodGet, "/api/history?user_id=u1", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := h.do(httptest.NewRequest(http.MethodGet, "/api/history?user_id=u1", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestHealthReportsEndpointTraffic(t *testing.T) {
	h := newServerHarness(t, ServerOptions{})

	payload, _ := json.Marshal(ChatRequest{UserID: "u1", Message: "hi"})
	h.do(httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader(payload)))

	rec := h.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Endpoints []EndpointMetrics `json:"endpoints"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Endpoints, 1)
	assert.Equal(t, "/api/chat", body.Endpoints[0].Path)
	assert.Equal(t, int64(1), body.Endpoints[0].SuccessCount)
}
