package core

import "testing"

func TestSummarize(t *testing.T) {
	entries := []Entry{
		{ID: "1", Category: ChaqueReceivables, TotalAmount: Money{Cents: 1000}, Payments: []Payment{pay(1000)}},
		{ID: "2", Category: ChaqueReceivables, TotalAmount: Money{Cents: 500}, DueDate: NewDate(2024, 3, 1)},
		{ID: "3", Category: ChaquePayables, TotalAmount: Money{Cents: 300}},
		{ID: "4", Category: LongTermPayables, TotalAmount: Money{Cents: 2000}, Payments: []Payment{pay(500)}},
	}

	s := Summarize(entries, refNow)
	if s.AsOf.String() != "2024-03-15" {
		t.Errorf("AsOf = %s", s.AsOf)
	}
	if len(s.Categories) != len(Categories) {
		t.Fatalf("got %d category rows", len(s.Categories))
	}
	for i, row := range s.Categories {
		if row.Category != Categories[i] {
			t.Errorf("row %d is %s, want %s", i, row.Category, Categories[i])
		}
	}

	recv := s.Categories[0]
	if recv.Entries != 2 || recv.Total.Cents != 1500 || recv.Collected.Cents != 1000 || recv.Outstanding.Cents != 500 {
		t.Errorf("receivables row = %+v", recv)
	}
	if recv.Cards.Paid.Count != 1 || recv.Cards.Overdue.Count != 1 || recv.Cards.Pending.Count != 0 {
		t.Errorf("receivables cards = %+v", recv.Cards)
	}

	if empty := s.Categories[4]; empty.Entries != 0 || !empty.Total.IsZero() {
		t.Errorf("unknown online row should be empty: %+v", empty)
	}

	o := s.Overall
	if o.Entries != 4 || o.Total.Cents != 3800 || o.Collected.Cents != 1500 || o.Outstanding.Cents != 2300 {
		t.Errorf("overall = %+v", o)
	}
	// the long term entry is Active and so counts as both pending and overdue
	if o.Cards.Pending.Count != 2 || o.Cards.Pending.Amount.Cents != 1800 {
		t.Errorf("overall pending = %+v", o.Cards.Pending)
	}
	if o.Cards.Overdue.Count != 2 || o.Cards.Overdue.Amount.Cents != 2000 {
		t.Errorf("overall overdue = %+v", o.Cards.Overdue)
	}
	if o.Cards.Total.Count != 4 || o.Cards.Total.Amount.Cents != 3800 {
		t.Errorf("overall total = %+v", o.Cards.Total)
	}
}

func TestStatCardsMatchFilter(t *testing.T) {
	entries := fixture(t)
	entries[0].Payments = []Payment{pay(100)}
	entries[2].DueDate = NewDate(2024, 1, 1)

	cards := StatCards(entries, refNow)
	for stat, want := range map[StatFilter]int{StatTotal: cards.Total.Count, StatPaid: cards.Paid.Count, StatPending: cards.Pending.Count, StatOverdue: cards.Overdue.Count} {
		var n int
		for _, e := range entries {
			if MatchesStat(e, stat, refNow) {
				n++
			}
		}
		if n != want {
			t.Errorf("%s: card count %d, filter count %d", stat, want, n)
		}
	}
}
