package amqp

import (
	"encoding/json"
	"time"
)

// EventViewUpdated is the message type published after each committed view
// generation.
const EventViewUpdated = "view.updated"

// ViewUpdatedMessage summarizes a committed generation. Consumers fetch the
// full views over HTTP when they need more than the headline numbers.
type ViewUpdatedMessage struct {
	Type         string    `json:"type"`
	Generation   uint64    `json:"generation"`
	Encoded      string    `json:"encoded"`
	Filters      int       `json:"filters"`
	GrandTotal   int64     `json:"grand_total_cents"`
	NetCashFlow  int64     `json:"net_cash_flow_cents"`
	Transactions int       `json:"transactions"`
	Merchants    int       `json:"merchants"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewViewUpdatedMessage stamps a message with the current time.
func NewViewUpdatedMessage(generation uint64, encoded string, filters int) *ViewUpdatedMessage {
	return &ViewUpdatedMessage{
		Type:       EventViewUpdated,
		Generation: generation,
		Encoded:    encoded,
		Filters:    filters,
		Timestamp:  time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ViewUpdatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ViewUpdatedMessageFromJSON decodes a message body.
func ViewUpdatedMessageFromJSON(data []byte) (*ViewUpdatedMessage, error) {
	var msg ViewUpdatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
