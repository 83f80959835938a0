package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	KindReceiptSync   = "receipt.sync"
	KindReceiptDelete = "receipt.delete"
)

// ReceiptSyncMessage tells the worker to export one receipt. It carries only
// the ID and version; the worker reads the full receipt from the database so
// the queue never holds stale data.
type ReceiptSyncMessage struct {
	Kind      string    `json:"kind"`
	ID        int64     `json:"id"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewReceiptSyncMessage(id, version int64) *ReceiptSyncMessage {
	return &ReceiptSyncMessage{
		Kind:      KindReceiptSync,
		ID:        id,
		Version:   version,
		Timestamp: time.Now(),
	}
}

// ReceiptDeleteMessage tells the worker a receipt was removed so the export
// can drop its row.
type ReceiptDeleteMessage struct {
	Kind      string    `json:"kind"`
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewReceiptDeleteMessage(id int64) *ReceiptDeleteMessage {
	return &ReceiptDeleteMessage{
		Kind:      KindReceiptDelete,
		ID:        id,
		Timestamp: time.Now(),
	}
}

// envelope is the minimal decode used to route a delivery to its handler.
type envelope struct {
	Kind string `json:"kind"`
}

func messageKind(body []byte) (string, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return "", fmt.Errorf("decode message envelope: %w", err)
	}
	if env.Kind == "" {
		return "", fmt.Errorf("message without kind")
	}
	return env.Kind, nil
}
