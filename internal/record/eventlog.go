// Package record provides append-only audit artifacts kept outside the
// relational store: per-participant NDJSON event logs and the separate
// follow-up contact CSV.
package record

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Event is one line of a participant's audit trail.
type Event struct {
	Timestamp     string         `json:"ts"`
	ParticipantID string         `json:"participant_id"`
	Kind          string         `json:"kind"` // experiment_start, stage_data, turn, dialogue_end
	Step          string         `json:"step,omitempty"`
	Detail        map[string]any `json:"detail,omitempty"`
}

// EventLogger records audit events without blocking request handling.
type EventLogger interface {
	Log(Event)
	Close() error
}

// NoopLogger discards all events.
type NoopLogger struct{}

// Log implements EventLogger.
func (NoopLogger) Log(Event) {}

// Close implements EventLogger.
func (NoopLogger) Close() error { return nil }

// LogConfig controls the file-backed event logger.
type LogConfig struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// FileEventLogger appends events to <dir>/<participant_id>.ndjson through
// a bounded queue drained by a single writer goroutine. A full queue drops
// the event rather than stalling a dialogue stream.
type FileEventLogger struct {
	dir    string
	queue  chan Event
	done   chan struct{}
	closed sync.Once
	wg     sync.WaitGroup
	logger *slog.Logger
}

// NewEventLogger builds an EventLogger per config. Disabled config yields a
// NoopLogger.
func NewEventLogger(cfg LogConfig, logger *slog.Logger) (EventLogger, error) {
	if !cfg.Enabled {
		return NoopLogger{}, nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create event log directory: %w", err)
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 1000
	}

	l := &FileEventLogger{
		dir:    cfg.Dir,
		queue:  make(chan Event, queueSize),
		done:   make(chan struct{}),
		logger: logger,
	}
	l.wg.Add(1)
	go l.drain()
	return l, nil
}

// Log enqueues an event. Never blocks.
func (l *FileEventLogger) Log(e Event) {
	if e.Timestamp == "" {
		e.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	select {
	case l.queue <- e:
	default:
		l.logger.Warn("event log queue full, dropping event",
			"participant_id", e.ParticipantID, "kind", e.Kind)
	}
}

// Close flushes queued events and stops the writer.
func (l *FileEventLogger) Close() error {
	l.closed.Do(func() {
		close(l.done)
		l.wg.Wait()
	})
	return nil
}

func (l *FileEventLogger) drain() {
	defer l.wg.Done()
	for {
		select {
		case e := <-l.queue:
			l.write(e)
		case <-l.done:
			for {
				select {
				case e := <-l.queue:
					l.write(e)
				default:
					return
				}
			}
		}
	}
}

func (l *FileEventLogger) write(e Event) {
	if e.ParticipantID == "" {
		return
	}
	line, err := json.Marshal(e)
	if err != nil {
		l.logger.Warn("failed to marshal event", "error", err)
		return
	}

	path := filepath.Join(l.dir, e.ParticipantID+".ndjson")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		l.logger.Warn("failed to open event log", "path", path, "error", err)
		return
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			l.logger.Warn("failed to close event log", "path", path, "error", closeErr)
		}
	}()

	if _, err := f.Write(append(line, '\n')); err != nil {
		l.logger.Warn("failed to append event", "path", path, "error", err)
	}
}
