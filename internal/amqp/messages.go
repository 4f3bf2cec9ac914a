package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"saloncal/internal/core"
)

// MessageTypeDaySaved is set as the AMQP type of day.saved publications.
const MessageTypeDaySaved = "day.saved"

// DaySavedMessage announces that a day was saved. It only names the day;
// the worker reads the current record from the store, so replays and
// out-of-order deliveries converge on the latest state.
type DaySavedMessage struct {
	Date      string    `json:"date"`
	Timestamp time.Time `json:"timestamp"`
}

func NewDaySavedMessage(d core.Date) *DaySavedMessage {
	return &DaySavedMessage{
		Date:      d.Key(),
		Timestamp: time.Now(),
	}
}

// Day parses the message's day key.
func (m *DaySavedMessage) Day() (core.Date, error) {
	return core.ParseDayKey(m.Date)
}

// ToJSON converts the message to JSON bytes
func (m *DaySavedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// DaySavedMessageFromJSON decodes and validates a message body.
func DaySavedMessageFromJSON(data []byte) (*DaySavedMessage, error) {
	var msg DaySavedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if _, err := msg.Day(); err != nil {
		return nil, fmt.Errorf("message date: %w", err)
	}
	return &msg, nil
}
