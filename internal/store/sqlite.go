package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/affectlab/xai-dialogue/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL mode keeps readers unblocked while a turn record is appended.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS participants (
		participant_id TEXT PRIMARY KEY,
		condition_order TEXT NOT NULL,
		washout_completed INTEGER NOT NULL DEFAULT 0,
		current_step_index INTEGER NOT NULL,
		washout_start INTEGER,
		language TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS stage_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		participant_id TEXT NOT NULL,
		step_name TEXT NOT NULL,
		payload TEXT NOT NULL,
		recorded_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_stage_records_pid ON stage_records(participant_id);

	CREATE TABLE IF NOT EXISTS turn_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		participant_id TEXT NOT NULL,
		condition TEXT NOT NULL,
		turn INTEGER NOT NULL,
		session_part INTEGER NOT NULL,
		user_chars INTEGER NOT NULL,
		user_words INTEGER NOT NULL,
		user_tokens INTEGER NOT NULL,
		user_emotion TEXT NOT NULL,
		user_confidence REAL NOT NULL,
		user_score REAL NOT NULL,
		agent_chars INTEGER NOT NULL,
		agent_words INTEGER NOT NULL,
		agent_tokens INTEGER NOT NULL,
		agent_emotion TEXT NOT NULL,
		agent_confidence REAL NOT NULL,
		agent_score REAL NOT NULL,
		explanation_shown INTEGER NOT NULL,
		recorded_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_turn_records_pid ON turn_records(participant_id);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// GetStatus retrieves a participant's status record.
func (s *SQLiteStore) GetStatus(ctx context.Context, participantID string) (*domain.ParticipantStatus, error) {
	query := `
		SELECT participant_id, condition_order, washout_completed,
		       current_step_index, washout_start, language, created_at, updated_at
		FROM participants WHERE participant_id = ?`

	row := s.db.QueryRowContext(ctx, query, participantID)

	var st domain.ParticipantStatus
	var order string
	var washoutCompleted int
	var washoutStart sql.NullInt64
	var createdAt, updatedAt int64

	err := row.Scan(
		&st.ParticipantID, &order, &washoutCompleted,
		&st.CurrentStepIndex, &washoutStart, &st.Language,
		&createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan participant row: %w", err)
	}

	st.ConditionOrder = domain.ConditionOrder(order)
	st.WashoutCompleted = washoutCompleted != 0
	if washoutStart.Valid {
		ts := time.Unix(washoutStart.Int64, 0)
		st.WashoutStart = &ts
	}
	st.CreatedAt = time.Unix(createdAt, 0)
	st.UpdatedAt = time.Unix(updatedAt, 0)

	return &st, nil
}

// PutStatus atomically replaces or creates a status record.
func (s *SQLiteStore) PutStatus(ctx context.Context, status *domain.ParticipantStatus) error {
	query := `
	INSERT INTO participants (
		participant_id, condition_order, washout_completed,
		current_step_index, washout_start, language, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(participant_id) DO UPDATE SET
		condition_order = excluded.condition_order,
		washout_completed = excluded.washout_completed,
		current_step_index = excluded.current_step_index,
		washout_start = excluded.washout_start,
		language = excluded.language,
		updated_at = excluded.updated_at`

	var washoutCompleted int
	if status.WashoutCompleted {
		washoutCompleted = 1
	}
	var washoutStart interface{}
	if status.WashoutStart != nil {
		washoutStart = status.WashoutStart.Unix()
	}

	err := s.exec(ctx, query,
		status.ParticipantID, string(status.ConditionOrder), washoutCompleted,
		status.CurrentStepIndex, washoutStart, status.Language,
		status.CreatedAt.Unix(), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert participant: %w", err)
	}
	return nil
}

// Advance moves the step index forward. The WHERE clause enforces
// monotonicity: a stale or duplicate advance affects zero rows.
func (s *SQLiteStore) Advance(ctx context.Context, participantID string, nextIndex int) error {
	query := `
		UPDATE participants SET current_step_index = ?, updated_at = ?
		WHERE participant_id = ? AND current_step_index < ?`

	result, err := s.db.ExecContext(ctx, query,
		nextIndex, time.Now().Unix(), participantID, nextIndex)
	if err != nil {
		return fmt.Errorf("advance step index: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		slog.Warn("Advance affected 0 rows", "participant_id", participantID, "next_index", nextIndex)
		return ErrNotAdvanced
	}
	return nil
}

// MarkWashoutStart records the washout entry timestamp. The first recorded
// timestamp wins.
func (s *SQLiteStore) MarkWashoutStart(ctx context.Context, participantID string, start time.Time) error {
	query := `
		UPDATE participants SET washout_start = ?, updated_at = ?
		WHERE participant_id = ? AND washout_start IS NULL`

	if _, err := s.db.ExecContext(ctx, query, start.Unix(), time.Now().Unix(), participantID); err != nil {
		return fmt.Errorf("mark washout start: %w", err)
	}
	return nil
}

// CompleteWashout marks the washout interval as completed.
func (s *SQLiteStore) CompleteWashout(ctx context.Context, participantID string) error {
	query := `
		UPDATE participants SET washout_completed = 1, updated_at = ?
		WHERE participant_id = ?`

	if err := s.exec(ctx, query, time.Now().Unix(), participantID); err != nil {
		return fmt.Errorf("complete washout: %w", err)
	}
	return nil
}

// SaveStageData appends one stage payload.
func (s *SQLiteStore) SaveStageData(ctx context.Context, participantID, stepName string, payload json.RawMessage) error {
	query := `
		INSERT INTO stage_records (participant_id, step_name, payload, recorded_at)
		VALUES (?, ?, ?, ?)`

	if err := s.exec(ctx, query, participantID, stepName, string(payload), time.Now().Unix()); err != nil {
		return fmt.Errorf("save stage data: %w", err)
	}
	return nil
}

// SaveTurnRecord appends one per-turn measurement row.
func (s *SQLiteStore) SaveTurnRecord(ctx context.Context, r *domain.TurnRecord) error {
	query := `
		INSERT INTO turn_records (
			participant_id, condition, turn, session_part,
			user_chars, user_words, user_tokens, user_emotion, user_confidence, user_score,
			agent_chars, agent_words, agent_tokens, agent_emotion, agent_confidence, agent_score,
			explanation_shown, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var explanationShown int
	if r.ExplanationShown {
		explanationShown = 1
	}

	err := s.exec(ctx, query,
		r.ParticipantID, string(r.Condition), r.Turn, r.SessionPart,
		r.UserMetrics.Chars, r.UserMetrics.Words, r.UserMetrics.Tokens,
		r.UserEmotion, r.UserConfidence, r.UserScore,
		r.AgentMetrics.Chars, r.AgentMetrics.Words, r.AgentMetrics.Tokens,
		r.AgentEmotion, r.AgentConfidence, r.AgentScore,
		explanationShown, r.RecordedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("save turn record: %w", err)
	}
	return nil
}

// exec runs a write with retry on SQLite concurrency errors.
func (s *SQLiteStore) exec(ctx context.Context, query string, args ...interface{}) error {
	const maxRetries = 3
	baseDelay := 100 * time.Millisecond

	var err error
	for i := 0; i < maxRetries; i++ {
		_, err = s.db.ExecContext(ctx, query, args...)
		if err == nil {
			return nil
		}
		if !isSQLiteConflict(err) || i == maxRetries-1 {
			return err
		}
		delay := baseDelay * time.Duration(1<<i)
		slog.Debug("SQLite write conflict, retrying", "attempt", i+1, "delay", delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}

// isSQLiteConflict reports SQLITE_BUSY / locked errors that warrant retry.
func isSQLiteConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
