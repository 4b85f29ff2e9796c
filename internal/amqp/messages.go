package amqp

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LedgerImportMessage asks the worker to load a ledger file into the store.
// The file must be readable by the worker; only its path travels.
type LedgerImportMessage struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerImportMessage(path string) *LedgerImportMessage {
	return &LedgerImportMessage{
		ID:        uuid.NewString(),
		Path:      strings.TrimSpace(path),
		Timestamp: time.Now().UTC(),
	}
}

func (m *LedgerImportMessage) Validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return errors.New("import message without id")
	}
	if strings.TrimSpace(m.Path) == "" {
		return errors.New("import message without path")
	}
	return nil
}

func (m *LedgerImportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerImportMessageFromJSON decodes and validates a message body.
func LedgerImportMessageFromJSON(data []byte) (*LedgerImportMessage, error) {
	var msg LedgerImportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
