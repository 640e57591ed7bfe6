package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"parchi/internal/amqp"
	"parchi/internal/core"
	"parchi/internal/ledger"
	"parchi/internal/sheets/memory"
	"parchi/internal/storage"
)

func seed(t *testing.T, blobs storage.BlobStore, entries ...core.Entry) {
	t.Helper()
	data, err := ledger.Encode(entries)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if err := blobs.Save(context.Background(), ledger.DefaultKey, data); err != nil {
		t.Fatalf("Save: %v", err)
	}
}

func TestHandleEvent_ExportsWholeLedger(t *testing.T) {
	blobs := storage.NewMemoryStore()
	seed(t, blobs,
		core.Entry{ID: "1", Category: core.ChaqueReceivables, TotalAmount: core.Money{Cents: 5000}, Payments: []core.Payment{}},
		core.Entry{ID: "2", Category: core.UnknownOnline, TotalAmount: core.Money{Cents: 700}, Payments: []core.Payment{}},
	)
	exp := memory.New()
	w := NewSyncWorker(blobs, "", exp, nil)
	fixed := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return fixed }

	msg := amqp.NewLedgerEventMessage(ledger.Event{Type: ledger.EventEntryAdded, EntryID: "2"})
	if err := w.HandleEvent(context.Background(), msg); err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}

	rows := exp.Rows()
	if len(rows) != 3 {
		t.Fatalf("exported %d rows, want header plus 2", len(rows))
	}
	if rows[1][0] != "1" || rows[2][0] != "2" {
		t.Errorf("rows out of order: %v / %v", rows[1][0], rows[2][0])
	}
	at, res := w.LastExport()
	if !at.Equal(fixed) || res.Rows != 3 {
		t.Errorf("LastExport() = %v %+v", at, res)
	}
}

func TestExport_EmptyLedger(t *testing.T) {
	exp := memory.New()
	w := NewSyncWorker(storage.NewMemoryStore(), ledger.DefaultKey, exp, nil)

	res, err := w.Export(context.Background())
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if res.Rows != 1 {
		t.Errorf("Rows = %d, want only the header", res.Rows)
	}
}

func TestExport_Failures(t *testing.T) {
	t.Run("exporter error", func(t *testing.T) {
		exp := memory.New()
		boom := errors.New("quota exceeded")
		exp.FailWith(boom)
		w := NewSyncWorker(storage.NewMemoryStore(), "", exp, nil)

		msg := &amqp.LedgerEventMessage{Type: "entry.added", EntryID: "1"}
		err := w.HandleEvent(context.Background(), msg)
		if !errors.Is(err, boom) {
			t.Fatalf("HandleEvent() error = %v, want %v", err, boom)
		}
		if at, _ := w.LastExport(); !at.IsZero() {
			t.Error("a failed export must not be recorded")
		}
	})

	t.Run("corrupt ledger", func(t *testing.T) {
		blobs := storage.NewMemoryStore()
		blobs.Save(context.Background(), ledger.DefaultKey, []byte("{not json"))
		w := NewSyncWorker(blobs, "", memory.New(), nil)

		_, err := w.Export(context.Background())
		if !errors.Is(err, ledger.ErrStorageParse) {
			t.Fatalf("Export() error = %v, want ErrStorageParse", err)
		}
	})
}

func TestRun_ExportsOnStartAndTick(t *testing.T) {
	exp := memory.New()
	w := NewSyncWorker(storage.NewMemoryStore(), "", exp, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, 5*time.Millisecond) }()

	deadline := time.After(2 * time.Second)
	for exp.Exports() < 3 {
		select {
		case <-deadline:
			t.Fatalf("only %d exports before deadline", exp.Exports())
		case <-time.After(time.Millisecond):
		}
	}
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}
