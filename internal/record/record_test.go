package record

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestFileEventLoggerWritesNDJSON(t *testing.T) {
	dir := t.TempDir()
	l, err := NewEventLogger(LogConfig{Enabled: true, Dir: dir, QueueSize: 16}, nil)
	if err != nil {
		t.Fatalf("NewEventLogger: %v", err)
	}

	l.Log(Event{ParticipantID: "P1", Kind: "experiment_start"})
	l.Log(Event{ParticipantID: "P1", Kind: "stage_data", Step: "CONSENT"})
	l.Log(Event{ParticipantID: "P2", Kind: "turn", Detail: map[string]any{"turn": 1}})
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(filepath.Join(dir, "P1.ndjson"))
	if err != nil {
		t.Fatalf("open P1 log: %v", err)
	}
	defer func() { _ = f.Close() }()

	var kinds []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("bad line %q: %v", scanner.Text(), err)
		}
		if e.Timestamp == "" {
			t.Error("event missing timestamp")
		}
		kinds = append(kinds, e.Kind)
	}
	if len(kinds) != 2 || kinds[0] != "experiment_start" || kinds[1] != "stage_data" {
		t.Errorf("P1 kinds = %v", kinds)
	}

	if _, err := os.Stat(filepath.Join(dir, "P2.ndjson")); err != nil {
		t.Errorf("P2 log missing: %v", err)
	}
}

func TestEventLoggerDisabled(t *testing.T) {
	l, err := NewEventLogger(LogConfig{Enabled: false}, nil)
	if err != nil {
		t.Fatalf("NewEventLogger: %v", err)
	}
	if _, ok := l.(NoopLogger); !ok {
		t.Errorf("disabled config yielded %T", l)
	}
	l.Log(Event{ParticipantID: "P1", Kind: "turn"})
	if err := l.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestContactBook(t *testing.T) {
	dir := t.TempDir()
	book, err := NewContactBook(dir)
	if err != nil {
		t.Fatalf("NewContactBook: %v", err)
	}

	if err := book.Save("P1", "one@example.org"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := book.Save("P2", "two@example.org"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	f, err := os.Open(filepath.Join(dir, "follow_up_contacts.csv"))
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer func() { _ = f.Close() }()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}
	if rows[0][0] != "timestamp" || rows[0][2] != "email" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][1] != "P1" || rows[2][2] != "two@example.org" {
		t.Errorf("rows = %v", rows[1:])
	}
}
