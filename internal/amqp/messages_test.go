package amqp

import (
	"encoding/json"
	"testing"
)

func TestReceiptSyncMessageRoundTrip(t *testing.T) {
	msg := NewReceiptSyncMessage(42, 3)
	if msg.Kind != KindReceiptSync {
		t.Errorf("Kind = %q, want %q", msg.Kind, KindReceiptSync)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	kind, err := messageKind(body)
	if err != nil {
		t.Fatalf("messageKind() error = %v", err)
	}
	if kind != KindReceiptSync {
		t.Errorf("messageKind() = %q, want %q", kind, KindReceiptSync)
	}

	var parsed ReceiptSyncMessage
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if parsed.ID != 42 || parsed.Version != 3 {
		t.Errorf("parsed = %+v, want ID 42 version 3", parsed)
	}
	if !parsed.Timestamp.Equal(msg.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", parsed.Timestamp, msg.Timestamp)
	}
}

func TestReceiptDeleteMessageKind(t *testing.T) {
	body, err := json.Marshal(NewReceiptDeleteMessage(7))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	kind, err := messageKind(body)
	if err != nil {
		t.Fatalf("messageKind() error = %v", err)
	}
	if kind != KindReceiptDelete {
		t.Errorf("messageKind() = %q, want %q", kind, KindReceiptDelete)
	}
}

func TestMessageKindErrors(t *testing.T) {
	tests := []struct {
		name string
		body []byte
	}{
		{"invalid json", []byte(`{"kind": `)},
		{"missing kind", []byte(`{"id": 1}`)},
		{"wrong type", []byte(`{"kind": 5}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := messageKind(tt.body); err == nil {
				t.Errorf("messageKind(%s) expected error", tt.body)
			}
		})
	}
}
