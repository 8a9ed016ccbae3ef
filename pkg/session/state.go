package session

import "time"

// Session is one user's durable conversation state. State holds the
// rendered context facets the instruction template substitutes.
type Session struct {
	ID        string         `json:"id"`
	AppName   string         `json:"appName"`
	UserID    string         `json:"userId"`
	State     map[string]any `json:"state"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// SessionID returns the stable session identifier for a user. One user
// always maps to the same session so context survives restarts.
func SessionID(userID string) string {
	return "session_" + userID
}

// Clone returns a deep-enough copy for callers that mutate State.
func (s *Session) Clone() *Session {
	cp := *s
	cp.State = make(map[string]any, len(s.State))
	for k, v := range s.State {
		cp.State[k] = v
	}
	return &cp
}
