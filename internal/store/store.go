// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/affectlab/xai-dialogue/internal/domain"
)

// ErrNotAdvanced is returned when an Advance would move the step index
// backwards or target an unknown participant. The index is monotone for a
// participant's whole lifetime.
var ErrNotAdvanced = errors.New("store: step index not advanced")

// StatusStore is the durable record of protocol position and condition
// assignment. It is the only component allowed to mutate
// current_step_index, and only through Advance.
type StatusStore interface {
	// GetStatus retrieves a participant's status. Returns (nil, nil) when
	// the participant is unknown.
	GetStatus(ctx context.Context, participantID string) (*domain.ParticipantStatus, error)

	// PutStatus atomically replaces (or creates) a status record.
	PutStatus(ctx context.Context, status *domain.ParticipantStatus) error

	// Advance sets current_step_index to nextIndex. It must only be called
	// after the corresponding stage data was durably saved. Fails with
	// ErrNotAdvanced if nextIndex does not grow the index.
	Advance(ctx context.Context, participantID string, nextIndex int) error

	// MarkWashoutStart records the washout entry timestamp once. Later
	// calls for the same participant keep the original timestamp.
	MarkWashoutStart(ctx context.Context, participantID string, start time.Time) error

	// CompleteWashout marks the washout interval as completed, flipping the
	// derived condition. Used only by the washout completion path.
	CompleteWashout(ctx context.Context, participantID string) error
}

// DataRecorder is the append-only store of stage payloads and per-turn
// measurements. Records are immutable once written.
type DataRecorder interface {
	SaveStageData(ctx context.Context, participantID, stepName string, payload json.RawMessage) error
	SaveTurnRecord(ctx context.Context, record *domain.TurnRecord) error
}

// Repository combines the durable stores behind one connection.
type Repository interface {
	StatusStore
	DataRecorder

	// Ping verifies connectivity.
	Ping(ctx context.Context) error

	// Close closes the underlying connection.
	Close() error
}
