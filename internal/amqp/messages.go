package amqp

import (
	"encoding/json"
	"time"
)

// ChangeMessage announces that a user scope's transactions changed. It
// carries no rows; receivers re-read the store.
type ChangeMessage struct {
	Scope     string    `json:"scope"`
	Timestamp time.Time `json:"timestamp"`
}

func NewChangeMessage(scope string) *ChangeMessage {
	return &ChangeMessage{
		Scope:     scope,
		Timestamp: time.Now().UTC(),
	}
}

func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
