package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"dailyledger/internal/remote"
)

// DocumentMessage carries one mirror document through the queue. The
// document is complete so the worker needs no access to local storage.
type DocumentMessage struct {
	Document    remote.Document `json:"document"`
	PublishedAt time.Time       `json:"publishedAt"`
}

func NewDocumentMessage(doc remote.Document) *DocumentMessage {
	return &DocumentMessage{
		Document:    doc,
		PublishedAt: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *DocumentMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// DocumentMessageFromJSON decodes and validates a message body.
func DocumentMessageFromJSON(data []byte) (*DocumentMessage, error) {
	var msg DocumentMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Document.Validate(); err != nil {
		return nil, fmt.Errorf("invalid document: %w", err)
	}
	return &msg, nil
}
