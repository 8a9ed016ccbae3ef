package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Manager stores sessions as one JSON document per (app, user) pair.
type Manager struct {
	sessionsDir string
	writeLocks  map[string]*sync.Mutex
	locksMu     sync.RWMutex
}

// New creates a Manager rooted at sessionsDir. An empty dir defaults to
// ~/.nutrisync/sessions.
func New(sessionsDir string) (*Manager, error) {
	if sessionsDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		sessionsDir = filepath.Join(homeDir, ".nutrisync", "sessions")
	}

	if err := os.MkdirAll(sessionsDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}

	m := &Manager{
		sessionsDir: sessionsDir,
		writeLocks:  make(map[string]*sync.Mutex),
	}

	log.Info().Str("dir", sessionsDir).Msg("Session manager initialized")

	return m, nil
}

// validateKey rejects keys that could escape the sessions directory.
func (m *Manager) validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("session key cannot be empty")
	}
	if strings.Contains(key, "..") {
		return fmt.Errorf("session key cannot contain '..'")
	}
	if strings.ContainsAny(key, "/\\") {
		return fmt.Errorf("session key cannot contain path separators")
	}
	if strings.Contains(key, "\x00") {
		return fmt.Errorf("session key cannot contain null bytes")
	}
	return nil
}

func sessionKey(appName, userID string) string {
	return appName + "_" + SessionID(userID)
}

func (m *Manager) sessionPath(key string) string {
	return filepath.Join(m.sessionsDir, key+".json")
}

func (m *Manager) getWriteLock(key string) *sync.Mutex {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()

	if lock, exists := m.writeLocks[key]; exists {
		return lock
	}

	lock := &sync.Mutex{}
	m.writeLocks[key] = lock
	return lock
}

func (m *Manager) releaseWriteLock(key string) {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	delete(m.writeLocks, key)
}

// GetOrCreate returns the session for (appName, userID), creating an
// empty one on first contact.
func (m *Manager) GetOrCreate(ctx context.Context, appName, userID string) (*Session, error) {
	key := sessionKey(appName, userID)
	if err := m.validateKey(key); err != nil {
		return nil, err
	}

	lock := m.getWriteLock(key)
	lock.Lock()
	defer lock.Unlock()

	sess, err := m.load(key)
	if err == nil {
		return sess, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}

	now := time.Now().UTC()
	sess = &Session{
		ID:        SessionID(userID),
		AppName:   appName,
		UserID:    userID,
		State:     make(map[string]any),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.write(key, sess); err != nil {
		return nil, err
	}

	log.Info().Str("session_id", sess.ID).Str("user_id", userID).Msg("Session created")
	return sess, nil
}

// Get returns the session if it exists, or nil without error.
func (m *Manager) Get(ctx context.Context, appName, userID string) (*Session, error) {
	key := sessionKey(appName, userID)
	if err := m.validateKey(key); err != nil {
		return nil, err
	}

	sess, err := m.load(key)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// ApplyDelta merges delta into the session state and persists the
// result. A nil value removes the key. The session is created first if
// it does not exist.
func (m *Manager) ApplyDelta(ctx context.Context, appName, userID string, delta map[string]any) (*Session, error) {
	key := sessionKey(appName, userID)
	if err := m.validateKey(key); err != nil {
		return nil, err
	}

	lock := m.getWriteLock(key)
	lock.Lock()
	defer lock.Unlock()

	sess, err := m.load(key)
	if os.IsNotExist(err) {
		now := time.Now().UTC()
		sess = &Session{
			ID:        SessionID(userID),
			AppName:   appName,
			UserID:    userID,
			State:     make(map[string]any),
			CreatedAt: now,
			UpdatedAt: now,
		}
	} else if err != nil {
		return nil, err
	}

	for k, v := range delta {
		if v == nil {
			delete(sess.State, k)
			continue
		}
		sess.State[k] = v
	}
	sess.UpdatedAt = time.Now().UTC()

	if err := m.write(key, sess); err != nil {
		return nil, err
	}

	log.Debug().
		Str("session_id", sess.ID).
		Int("delta_keys", len(delta)).
		Msg("Session state updated")

	return sess, nil
}

// Delete removes a session. Deleting a missing session is not an error.
func (m *Manager) Delete(ctx context.Context, appName, userID string) error {
	key := sessionKey(appName, userID)
	if err := m.validateKey(key); err != nil {
		return err
	}

	lock := m.getWriteLock(key)
	lock.Lock()
	defer lock.Unlock()

	if err := os.Remove(m.sessionPath(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete session file: %w", err)
	}

	m.releaseWriteLock(key)

	log.Info().Str("session_key", key).Msg("Session deleted")
	return nil
}

// List returns every stored session key.
func (m *Manager) List() ([]string, error) {
	entries, err := os.ReadDir(m.sessionsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read sessions directory: %w", err)
	}

	var keys []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".json") {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, ".json"))
	}
	return keys, nil
}

func (m *Manager) load(key string) (*Session, error) {
	data, err := os.ReadFile(m.sessionPath(key))
	if err != nil {
		return nil, err
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}
	if sess.State == nil {
		sess.State = make(map[string]any)
	}
	return &sess, nil
}

// write persists via a temp file and rename so a crash mid-write never
// leaves a truncated document.
func (m *Manager) write(key string, sess *Session) error {
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	sessionPath := m.sessionPath(key)
	tempPath := sessionPath + ".tmp"

	file, err := os.OpenFile(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write session: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync file: %w", err)
	}
	file.Close()

	if err := os.Rename(tempPath, sessionPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace session file: %w", err)
	}

	return nil
}

// Close clears all write locks.
func (m *Manager) Close() error {
	m.locksMu.Lock()
	m.writeLocks = make(map[string]*sync.Mutex)
	m.locksMu.Unlock()

	log.Info().Msg("Session manager closed")
	return nil
}
