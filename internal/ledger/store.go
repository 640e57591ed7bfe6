// Package ledger owns the list of entries and persists it as one blob after
// every change.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"parchi/internal/assistant"
	"parchi/internal/core"
	"parchi/internal/log"
	"parchi/internal/storage"
)

// Store is the ledger. Reads return copies; every mutation is validated,
// applied, then saved in full before it becomes visible.
type Store struct {
	mu      sync.Mutex
	entries []core.Entry
	lastID  int64

	blobs     storage.BlobStore
	key       string
	notifier  Notifier
	logger    *log.Logger
	now       func() time.Time
	paymentID func() string
}

type Option func(*Store)

func WithNotifier(n Notifier) Option { return func(s *Store) { s.notifier = n } }

func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

func WithLogger(l *log.Logger) Option { return func(s *Store) { s.logger = l } }

func WithKey(key string) Option { return func(s *Store) { s.key = key } }

// WithPaymentIDs replaces the payment id generator.
func WithPaymentIDs(gen func() string) Option { return func(s *Store) { s.paymentID = gen } }

// Open loads the ledger from blobs. A blob that cannot be parsed is copied to
// "<key>.corrupt" and the ledger starts empty. Only a failing backend is an error.
func Open(ctx context.Context, blobs storage.BlobStore, opts ...Option) (*Store, error) {
	s := &Store{
		blobs:     blobs,
		key:       DefaultKey,
		now:       time.Now,
		paymentID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.Discard()
	}
	s.logger = s.logger.WithComponent(log.ComponentLedger)

	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load(ctx context.Context) error {
	data, err := s.blobs.Load(ctx, s.key)
	if errors.Is(err, storage.ErrNotFound) {
		s.entries = []core.Entry{}
		s.logger.InfoContext(ctx, "Starting with an empty ledger", log.FieldStorageKey, s.key)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}

	entries, err := Decode(data)
	if err != nil {
		backup := s.key + ".corrupt"
		s.logger.ErrorContext(ctx, "Stored ledger is unreadable, starting empty",
			log.FieldStorageKey, s.key, log.FieldError, err, "backup_key", backup)
		if berr := s.blobs.Save(ctx, backup, data); berr != nil {
			s.logger.ErrorContext(ctx, "Failed to back up unreadable ledger", log.FieldError, berr)
		}
		entries = []core.Entry{}
	}

	s.entries = entries
	for _, e := range entries {
		if n, err := strconv.ParseInt(e.ID, 10, 64); err == nil && n > s.lastID {
			s.lastID = n
		}
	}
	s.logger.InfoContext(ctx, "Ledger loaded", log.FieldStorageKey, s.key, log.FieldEntries, len(entries))
	return nil
}

// Now returns the store's current time.
func (s *Store) Now() time.Time { return s.now() }

// Entries returns a copy of every entry, newest first.
func (s *Store) Entries() []core.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.entries)
}

func (s *Store) Get(id string) (core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return core.Entry{}, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}
	return s.entries[i].Clone(), nil
}

// Query filters the ledger. Entries skipped for an unreadable date are logged.
func (s *Store) Query(ctx context.Context, q core.Query) core.FilterResult {
	res := core.Filter(s.Entries(), q, s.now())
	for _, w := range res.Warnings {
		s.logger.WarnContext(ctx, "Entry excluded from month filter", log.FieldEntryID, w.EntryID,
			log.FieldView, string(q.View), log.FieldError, w.Error())
	}
	return res
}

func (s *Store) Summary() core.Summary {
	return core.Summarize(s.Entries(), s.now())
}

// Add creates an entry from d and puts it first in the list.
func (s *Store) Add(ctx context.Context, d core.Draft) (core.Entry, error) {
	if err := d.Validate(); err != nil {
		return core.Entry{}, err
	}
	var created core.Entry
	err := s.mutate(ctx, func(entries []core.Entry) ([]core.Entry, error) {
		created = d.Entry(s.nextID(), core.DateOf(s.now()))
		return append([]core.Entry{created}, entries...), nil
	})
	if err != nil {
		return core.Entry{}, err
	}
	s.notify(ctx, Event{Type: EventEntryAdded, EntryID: created.ID, Category: created.Category, Amount: created.TotalAmount})
	return created.Clone(), nil
}

// Update replaces the entry with e's id, keeping its position. The recorded
// payments are kept; only AddPayment appends to them. An empty status keeps
// the current one.
func (s *Store) Update(ctx context.Context, e core.Entry) (core.Entry, error) {
	e.Payments = nil
	if err := e.Validate(); err != nil {
		return core.Entry{}, err
	}
	err := s.mutate(ctx, func(entries []core.Entry) ([]core.Entry, error) {
		i := indexOf(entries, e.ID)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, e.ID)
		}
		cur := entries[i].Clone()
		e.Payments = cur.Payments
		if e.Payments == nil {
			e.Payments = []core.Payment{}
		}
		if e.Status == "" {
			e.Status = cur.Status
		}
		if err := e.Validate(); err != nil {
			return nil, err
		}
		entries[i] = e.Clone()
		return entries, nil
	})
	if err != nil {
		return core.Entry{}, err
	}
	s.notify(ctx, Event{Type: EventEntryUpdated, EntryID: e.ID, Category: e.Category, Amount: e.TotalAmount})
	return e.Clone(), nil
}

// Delete removes the entry after c agrees. A missing id fails before c is asked.
func (s *Store) Delete(ctx context.Context, id string, c Confirmer) error {
	e, err := s.Get(id)
	if err != nil {
		return err
	}
	if c == nil {
		return ErrDeleteDeclined
	}
	prompt := fmt.Sprintf("Delete %s entry %s for %s (%s)?", e.Category, e.ID, partyOrDash(e.PartyName), e.TotalAmount)
	ok, err := c.Confirm(ctx, prompt)
	if err != nil {
		return fmt.Errorf("confirm delete: %w", err)
	}
	if !ok {
		return ErrDeleteDeclined
	}

	err = s.mutate(ctx, func(entries []core.Entry) ([]core.Entry, error) {
		i := indexOf(entries, id)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
		}
		return append(entries[:i], entries[i+1:]...), nil
	})
	if err != nil {
		return err
	}
	s.notify(ctx, Event{Type: EventEntryDeleted, EntryID: e.ID, Category: e.Category, Amount: e.TotalAmount})
	return nil
}

// AddPayment appends a payment to the entry. A payment larger than the
// outstanding balance is refused.
func (s *Store) AddPayment(ctx context.Context, id string, d core.PaymentDraft) (core.Entry, error) {
	if err := d.Validate(); err != nil {
		return core.Entry{}, err
	}
	var updated core.Entry
	var payment core.Payment
	err := s.mutate(ctx, func(entries []core.Entry) ([]core.Entry, error) {
		i := indexOf(entries, id)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
		}
		e := entries[i]
		if bal := core.Balance(e); d.Amount.Cents > bal.Cents {
			return nil, fmt.Errorf("%w: payment %s, outstanding %s", ErrOverpayment, d.Amount, bal)
		}
		payment = d.Payment(s.paymentID(), core.DateOf(s.now()))
		e.Payments = append(e.Payments, payment)
		entries[i] = e
		updated = e
		return entries, nil
	})
	if err != nil {
		return core.Entry{}, err
	}
	s.notify(ctx, Event{Type: EventPaymentAdded, EntryID: id, Category: updated.Category, Amount: payment.Amount})
	return updated.Clone(), nil
}

// ConfirmUnknown records who sent an unknown online transaction.
func (s *Store) ConfirmUnknown(ctx context.Context, id string, c core.Confirmation) (core.Entry, error) {
	if err := c.Validate(); err != nil {
		return core.Entry{}, err
	}
	var updated core.Entry
	err := s.mutate(ctx, func(entries []core.Entry) ([]core.Entry, error) {
		i := indexOf(entries, id)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
		}
		e := entries[i]
		if e.Category != core.UnknownOnline {
			return nil, fmt.Errorf("%w: %s is %s", ErrNotUnknownOnline, id, e.Category)
		}
		e.Status = core.StatusConfirmed
		e.ConfirmedBy = c.ConfirmedBy
		if c.PartyName != "" {
			e.PartyName = c.PartyName
		}
		e.Date = c.Date
		if !e.Date.Valid() {
			e.Date = core.DateOf(s.now())
		}
		entries[i] = e
		updated = e
		return entries, nil
	})
	if err != nil {
		return core.Entry{}, err
	}
	s.notify(ctx, Event{Type: EventEntryConfirmed, EntryID: id, Category: updated.Category, Amount: updated.TotalAmount})
	return updated.Clone(), nil
}

// AddParsed asks p to read text and adds the result. Any parser failure or
// invalid result leaves the ledger untouched.
func (s *Store) AddParsed(ctx context.Context, p assistant.Parser, text string) (core.Entry, error) {
	d, err := p.Parse(ctx, text)
	if err != nil {
		if !errors.Is(err, assistant.ErrExternalParse) {
			err = fmt.Errorf("%w: %w", assistant.ErrExternalParse, err)
		}
		return core.Entry{}, err
	}
	if err := d.Validate(); err != nil {
		return core.Entry{}, fmt.Errorf("%w: %w", assistant.ErrExternalParse, err)
	}
	return s.Add(ctx, d)
}

// mutate applies fn to a copy of the list and saves the result. The live
// list only changes when the save succeeds.
func (s *Store) mutate(ctx context.Context, fn func([]core.Entry) ([]core.Entry, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lastID := s.lastID
	next, err := fn(cloneAll(s.entries))
	if err != nil {
		s.lastID = lastID
		return err
	}
	data, err := Encode(next)
	if err != nil {
		s.lastID = lastID
		return fmt.Errorf("encode ledger: %w", err)
	}
	if err := s.blobs.Save(ctx, s.key, data); err != nil {
		s.lastID = lastID
		s.logger.ErrorContext(ctx, "Failed to save ledger", log.FieldStorageKey, s.key, log.FieldError, err)
		return fmt.Errorf("save ledger: %w", err)
	}
	s.entries = next
	return nil
}

func (s *Store) notify(ctx context.Context, ev Event) {
	ev.At = s.now()
	s.logger.InfoContext(ctx, "Ledger entry changed",
		log.FieldOperation, string(ev.Type),
		log.FieldEntryID, ev.EntryID,
		log.FieldCategory, string(ev.Category),
		log.FieldAmountCents, ev.Amount.Cents)
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, ev); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish ledger event",
			log.FieldEntryID, ev.EntryID, log.FieldError, err)
	}
}

// nextID returns a millisecond timestamp id, bumped past the last one issued
// so ids stay unique and increasing. Called with mu held.
func (s *Store) nextID() string {
	n := s.now().UnixMilli()
	if n <= s.lastID {
		n = s.lastID + 1
	}
	s.lastID = n
	return strconv.FormatInt(n, 10)
}

func (s *Store) indexOf(id string) int { return indexOf(s.entries, id) }

func indexOf(entries []core.Entry, id string) int {
	for i := range entries {
		if entries[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneAll(entries []core.Entry) []core.Entry {
	out := make([]core.Entry, len(entries))
	for i, e := range entries {
		out[i] = e.Clone()
	}
	return out
}

func partyOrDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
