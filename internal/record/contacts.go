package record

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// ContactBook stores follow-up interview contacts in a CSV file kept apart
// from the anonymized study data, so deleting the contact file severs the
// only link between participant ids and identities.
type ContactBook struct {
	mu   sync.Mutex
	path string
}

// NewContactBook creates a contact book writing to dir/follow_up_contacts.csv.
func NewContactBook(dir string) (*ContactBook, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create contact directory: %w", err)
	}
	return &ContactBook{path: filepath.Join(dir, "follow_up_contacts.csv")}, nil
}

// Save appends one contact row, writing the header on first use.
func (c *ContactBook) Save(participantID, email string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, statErr := os.Stat(c.path)
	writeHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(c.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open contact file: %w", err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write([]string{"timestamp", "participant_id", "email"}); err != nil {
			return fmt.Errorf("write contact header: %w", err)
		}
	}
	row := []string{
		strconv.FormatInt(time.Now().Unix(), 10),
		participantID,
		email,
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("write contact row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush contact file: %w", err)
	}
	return nil
}
