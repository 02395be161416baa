package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageVersion is the current payload schema version. Payloads without a
// version are read as version 1.
const MessageVersion = 1

// Message asks a worker to run extraction for one document.
type Message struct {
	DocumentID string `json:"documentId"`
	RequestID  string `json:"requestId"`
	EnqueuedAt string `json:"enqueuedAt"`
	Version    int    `json:"version"`
}

// NewMessage stamps a message for documentID.
func NewMessage(documentID, requestID string, now time.Time) Message {
	return Message{
		DocumentID: documentID,
		RequestID:  requestID,
		EnqueuedAt: now.UTC().Format(time.RFC3339),
		Version:    MessageVersion,
	}
}

func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a payload. Versions newer than MessageVersion are
// refused so an old worker never half-reads a payload it does not understand.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	if msg.Version == 0 {
		msg.Version = MessageVersion
	}
	if msg.Version > MessageVersion {
		return Message{}, fmt.Errorf("unsupported message version %d", msg.Version)
	}
	return msg, nil
}
