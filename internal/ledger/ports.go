package ledger

import (
	"context"
	"errors"
	"time"

	"parchi/internal/core"
)

var (
	ErrEntryNotFound    = errors.New("entry not found")
	ErrStorageParse     = errors.New("stored ledger could not be parsed")
	ErrDeleteDeclined   = errors.New("delete was not confirmed")
	ErrNotUnknownOnline = errors.New("only unknown online entries can be confirmed")
	ErrOverpayment      = core.ErrOverpayment
)

// EventType names a ledger mutation.
type EventType string

const (
	EventEntryAdded     EventType = "entry.added"
	EventEntryUpdated   EventType = "entry.updated"
	EventEntryDeleted   EventType = "entry.deleted"
	EventPaymentAdded   EventType = "payment.added"
	EventEntryConfirmed EventType = "entry.confirmed"
)

// Event describes a mutation that has been persisted.
type Event struct {
	Type     EventType
	EntryID  string
	Category core.Category
	// Amount is the payment amount for EventPaymentAdded and the entry total otherwise.
	Amount core.Money
	At     time.Time
}

// Notifier is told about every persisted mutation.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// Confirmer gates destructive operations behind a yes/no answer.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

// AlwaysConfirm answers yes without asking.
var AlwaysConfirm Confirmer = ConfirmFunc(func(context.Context, string) (bool, error) { return true, nil })
