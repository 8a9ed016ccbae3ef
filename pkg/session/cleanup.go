package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	DefaultCleanupAge      = 30 * 24 * time.Hour
	DefaultCleanupInterval = 6 * time.Hour
)

// Cleanup prunes session files whose state has not changed in cleanupAge.
type Cleanup struct {
	manager    *Manager
	cleanupAge time.Duration
	interval   time.Duration
	stopCh     chan struct{}
	running    bool
}

// NewCleanup creates a session cleanup handler.
func NewCleanup(manager *Manager, cleanupAge time.Duration) *Cleanup {
	if cleanupAge == 0 {
		cleanupAge = DefaultCleanupAge
	}

	return &Cleanup{
		manager:    manager,
		cleanupAge: cleanupAge,
		interval:   DefaultCleanupInterval,
		stopCh:     make(chan struct{}),
	}
}

// Start starts the cleanup loop.
func (c *Cleanup) Start() error {
	if c.running {
		return fmt.Errorf("cleanup is already running")
	}

	c.running = true
	go c.run()

	log.Info().
		Dur("cleanup_age", c.cleanupAge).
		Msg("Session cleanup started")

	return nil
}

// Stop stops the cleanup loop.
func (c *Cleanup) Stop() error {
	if !c.running {
		return fmt.Errorf("cleanup is not running")
	}

	close(c.stopCh)
	c.running = false

	log.Info().Msg("Session cleanup stopped")
	return nil
}

func (c *Cleanup) run() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := c.RunOnce(); err != nil {
				log.Warn().Err(err).Msg("Session cleanup pass failed")
			}
		case <-c.stopCh:
			return
		}
	}
}

// RunOnce performs a single cleanup pass and returns how many session
// files were removed.
func (c *Cleanup) RunOnce() (int, error) {
	entries, err := os.ReadDir(c.manager.sessionsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read sessions directory: %w", err)
	}

	cutoff := time.Now().Add(-c.cleanupAge)
	removed := 0

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		path := filepath.Join(c.manager.sessionsDir, entry.Name())
		if err := os.Remove(path); err != nil {
			log.Warn().Err(err).Str("file", entry.Name()).Msg("Failed to remove stale session")
			continue
		}
		removed++
	}

	if removed > 0 {
		log.Info().Int("removed", removed).Msg("Stale sessions pruned")
	}

	return removed, nil
}
