package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ChangeMessage announces a committed store change. It carries only which months
// were touched; the worker reads the records itself.
type ChangeMessage struct {
	ID        string    `json:"id"`
	Version   uint64    `json:"version"`
	Months    []string  `json:"months,omitempty"`
	AllMonths bool      `json:"allMonths,omitempty"`
	Settings  bool      `json:"settings,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewChangeMessage creates a message with a fresh id.
func NewChangeMessage(version uint64, months []string, allMonths, settings bool) *ChangeMessage {
	return &ChangeMessage{
		ID:        uuid.NewString(),
		Version:   version,
		Months:    months,
		AllMonths: allMonths,
		Settings:  settings,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON parses a message from JSON bytes.
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
