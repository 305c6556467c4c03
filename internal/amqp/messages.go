package amqp

import (
	"encoding/json"
	"time"

	"mfpreport/internal/core"
)

// DaySyncedMessage announces that one day was committed to the record log.
// Consumers re-read the log rather than trusting a payload of rows.
type DaySyncedMessage struct {
	Date      core.Date `json:"date"`
	Rows      int       `json:"rows"`
	Timestamp time.Time `json:"timestamp"`
}

func NewDaySyncedMessage(date core.Date, rows int) *DaySyncedMessage {
	return &DaySyncedMessage{
		Date:      date,
		Rows:      rows,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *DaySyncedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// DaySyncedMessageFromJSON decodes a message and rejects a missing date.
func DaySyncedMessageFromJSON(data []byte) (*DaySyncedMessage, error) {
	var msg DaySyncedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Date.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
