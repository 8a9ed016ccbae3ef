package store

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// Store wraps the sqlite database holding all durable user state:
// profiles, daily goal aggregates, context notes, equipment, strength
// records, workout plans, activity logs, and the chat history ledger.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// Config holds store configuration
type Config struct {
	Path   string
	Logger zerolog.Logger
}

// Open opens (or creates) the database and initializes the schema.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("database path is required")
	}

	db, err := sql.Open("sqlite3", cfg.Path+"?_fts5=1&_foreign_keys=1")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL mode for concurrent readers during turn processing
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &Store{
		db:     db,
		logger: cfg.Logger,
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	s.logger.Info().Str("path", cfg.Path).Msg("Store opened")

	return s, nil
}

// DB exposes the underlying handle for read-only maintenance tooling.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS user_profile (
		user_id         TEXT PRIMARY KEY,
		name            TEXT NOT NULL DEFAULT '',
		goal            TEXT NOT NULL DEFAULT '',
		language        TEXT NOT NULL DEFAULT 'en',
		sex             TEXT NOT NULL DEFAULT '',
		age             INTEGER NOT NULL DEFAULT 0,
		height_cm       REAL NOT NULL DEFAULT 0,
		weight_kg       REAL NOT NULL DEFAULT 0,
		activity_level  TEXT NOT NULL DEFAULT '',
		calorie_target  INTEGER NOT NULL DEFAULT 0,
		workout_target  INTEGER NOT NULL DEFAULT 0,
		updated_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS daily_goals (
		user_id            TEXT NOT NULL,
		goal_date          TEXT NOT NULL,
		calories_consumed  INTEGER NOT NULL DEFAULT 0,
		protein_g          REAL NOT NULL DEFAULT 0,
		carbs_g            REAL NOT NULL DEFAULT 0,
		fats_g             REAL NOT NULL DEFAULT 0,
		workouts_completed INTEGER NOT NULL DEFAULT 0,
		calorie_target_met INTEGER NOT NULL DEFAULT 0,
		workout_target_met INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (user_id, goal_date)
	);

	CREATE TABLE IF NOT EXISTS context_notes (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		content    TEXT NOT NULL,
		is_active  INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_notes_user_active ON context_notes(user_id, is_active);

	CREATE TABLE IF NOT EXISTS equipment (
		user_id TEXT NOT NULL,
		name    TEXT NOT NULL,
		PRIMARY KEY (user_id, name)
	);

	CREATE TABLE IF NOT EXISTS strength_records (
		user_id     TEXT NOT NULL,
		exercise    TEXT NOT NULL,
		weight_kg   REAL NOT NULL,
		recorded_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (user_id, exercise)
	);

	CREATE TABLE IF NOT EXISTS workout_plan (
		user_id   TEXT NOT NULL,
		day_index INTEGER NOT NULL,
		day_name  TEXT NOT NULL,
		exercises TEXT NOT NULL DEFAULT '[]',
		PRIMARY KEY (user_id, day_index)
	);

	CREATE TABLE IF NOT EXISTS nutrition_logs (
		id          TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL,
		description TEXT NOT NULL,
		calories    INTEGER NOT NULL DEFAULT 0,
		protein_g   REAL NOT NULL DEFAULT 0,
		carbs_g     REAL NOT NULL DEFAULT 0,
		fats_g      REAL NOT NULL DEFAULT 0,
		created_at  TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_nutrition_user_date ON nutrition_logs(user_id, created_at);

	CREATE TABLE IF NOT EXISTS workout_logs (
		id           TEXT PRIMARY KEY,
		user_id      TEXT NOT NULL,
		description  TEXT NOT NULL,
		duration_min INTEGER NOT NULL DEFAULT 0,
		created_at   TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_workout_user_date ON workout_logs(user_id, created_at);

	CREATE TABLE IF NOT EXISTS sleep_logs (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		sleep_date TEXT NOT NULL,
		hours      REAL NOT NULL,
		quality    TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sleep_user_date ON sleep_logs(user_id, sleep_date);

	CREATE TABLE IF NOT EXISTS body_comp_logs (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		weight_kg  REAL NOT NULL,
		muscle_kg  REAL NOT NULL DEFAULT 0,
		bf_percent REAL NOT NULL DEFAULT 0,
		resting_hr INTEGER NOT NULL DEFAULT 0,
		notes      TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_bodycomp_user_date ON body_comp_logs(user_id, created_at);

	CREATE TABLE IF NOT EXISTS chat_history (
		id             TEXT PRIMARY KEY,
		user_id        TEXT NOT NULL,
		role           TEXT NOT NULL,
		content        TEXT NOT NULL,
		attachment_ref TEXT,
		tool_calls     TEXT,
		created_at     TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_history_user_date ON chat_history(user_id, created_at);

	CREATE VIRTUAL TABLE IF NOT EXISTS chat_history_fts USING fts5(
		content,
		content='chat_history',
		content_rowid='rowid'
	);

	CREATE TRIGGER IF NOT EXISTS chat_history_ai AFTER INSERT ON chat_history BEGIN
		INSERT INTO chat_history_fts(rowid, content) VALUES (new.rowid, new.content);
	END;
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	return nil
}
