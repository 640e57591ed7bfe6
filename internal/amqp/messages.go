package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"parchi/internal/core"
	"parchi/internal/ledger"
)

// LedgerEventMessage announces a persisted ledger change. It carries only
// identifiers; consumers read the ledger itself for the current state.
type LedgerEventMessage struct {
	Type        string    `json:"type"`
	EntryID     string    `json:"entry_id"`
	Category    string    `json:"category,omitempty"`
	AmountCents int64     `json:"amount_cents"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewLedgerEventMessage converts a ledger event, stamping it now when the
// event has no time.
func NewLedgerEventMessage(ev ledger.Event) *LedgerEventMessage {
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	return &LedgerEventMessage{
		Type:        string(ev.Type),
		EntryID:     ev.EntryID,
		Category:    string(ev.Category),
		AmountCents: ev.Amount.Cents,
		Timestamp:   at.UTC(),
	}
}

// Event converts the message back into a ledger event.
func (m *LedgerEventMessage) Event() ledger.Event {
	return ledger.Event{
		Type:     ledger.EventType(m.Type),
		EntryID:  m.EntryID,
		Category: core.Category(m.Category),
		Amount:   core.Money{Cents: m.AmountCents},
		At:       m.Timestamp,
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON decodes a message and checks it names an entry.
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Type == "" || msg.EntryID == "" {
		return nil, fmt.Errorf("ledger event without type or entry id")
	}
	return &msg, nil
}
