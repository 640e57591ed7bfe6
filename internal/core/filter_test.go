package core

import (
	"errors"
	"reflect"
	"testing"
)

func ids(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}

func fixture(t *testing.T) []Entry {
	t.Helper()
	return []Entry{
		{ID: "1", Category: ChaqueReceivables, Date: mustDate(t, "2024-03-01"), TotalAmount: Money{Cents: 100}},
		{ID: "2", Category: ChaquePayables, Date: mustDate(t, "2024-03-10"), TotalAmount: Money{Cents: 100}},
		{ID: "3", Category: ChaqueReceivables, Date: mustDate(t, "2024-02-20"), TotalAmount: Money{Cents: 100}},
		{ID: "4", Category: UnknownOnline, Date: mustDate(t, "2024-03-12"), TotalAmount: Money{Cents: 100}},
		{ID: "5", Category: ChaqueReceivables, Date: mustDate(t, "2024-03-31"), TotalAmount: Money{Cents: 100}},
	}
}

func TestFilter_DashboardReturnsEverything(t *testing.T) {
	entries := fixture(t)
	got := Filter(entries, Query{View: ViewDashboard, Month: MonthLast, Stat: StatPaid}, refNow)
	if !reflect.DeepEqual(got.Entries, entries) {
		t.Fatalf("dashboard entries = %v, want full list", ids(got.Entries))
	}
	if len(got.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", got.Warnings)
	}
}

func TestFilter_CategoryKeepsOrder(t *testing.T) {
	got := Filter(fixture(t), Query{View: CategoryView(ChaqueReceivables), Month: MonthAll}, refNow)
	want := []string{"1", "3", "5"}
	if !reflect.DeepEqual(ids(got.Entries), want) {
		t.Fatalf("entries = %v, want %v", ids(got.Entries), want)
	}
}

func TestFilter_MonthBoundaries(t *testing.T) {
	var entries []Entry
	for i, d := range []string{"2024-03-01", "2024-03-31", "2024-02-28", "2024-04-01", "2024-02-01", "2024-02-29"} {
		entries = append(entries, Entry{
			ID:          string(rune('a' + i)),
			Category:    ChaquePayables,
			Date:        mustDate(t, d),
			TotalAmount: Money{Cents: 1},
		})
	}

	tests := []struct {
		month MonthFilter
		want  []string
	}{
		{MonthAll, []string{"a", "b", "c", "d", "e", "f"}},
		{MonthCurrent, []string{"a", "b"}},
		{MonthLast, []string{"c", "e", "f"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.month), func(t *testing.T) {
			got := Filter(entries, Query{View: CategoryView(ChaquePayables), Month: tt.month}, refNow)
			if !reflect.DeepEqual(ids(got.Entries), tt.want) {
				t.Errorf("entries = %v, want %v", ids(got.Entries), tt.want)
			}
		})
	}
}

func TestMonthRange_January(t *testing.T) {
	first, last, ok := MonthRange(MonthLast, refNow.AddDate(0, -2, 0))
	if !ok {
		t.Fatal("expected a range")
	}
	if first.String() != "2023-12-01" || last.String() != "2023-12-31" {
		t.Errorf("range = %s..%s, want 2023-12-01..2023-12-31", first, last)
	}
}

func TestFilter_InvalidDateWarns(t *testing.T) {
	entries := []Entry{
		{ID: "ok", Category: ChaqueReceivables, Date: NewDate(2024, 3, 2), TotalAmount: Money{Cents: 1}},
		{ID: "bad", Category: ChaqueReceivables, Date: Date{raw: "32/13/2024"}, TotalAmount: Money{Cents: 1}},
		{ID: "empty", Category: ChaqueReceivables, TotalAmount: Money{Cents: 1}},
	}

	got := Filter(entries, Query{View: CategoryView(ChaqueReceivables), Month: MonthCurrent}, refNow)
	if !reflect.DeepEqual(ids(got.Entries), []string{"ok"}) {
		t.Fatalf("entries = %v", ids(got.Entries))
	}
	if len(got.Warnings) != 2 {
		t.Fatalf("warnings = %v, want 2", got.Warnings)
	}
	if got.Warnings[0].EntryID != "bad" || got.Warnings[0].Value != "32/13/2024" {
		t.Errorf("unexpected warning: %+v", got.Warnings[0])
	}
	if !errors.Is(got.Warnings[1], ErrInvalidDate) {
		t.Errorf("warning does not wrap ErrInvalidDate")
	}

	all := Filter(entries, Query{View: CategoryView(ChaqueReceivables), Month: MonthAll}, refNow)
	if len(all.Entries) != 3 || len(all.Warnings) != 0 {
		t.Errorf("month all should keep undated entries: %v %v", ids(all.Entries), all.Warnings)
	}
}

func TestFilter_PaidPayables(t *testing.T) {
	entries := []Entry{
		{ID: "paid", Category: ChaquePayables, Date: NewDate(2024, 3, 1), TotalAmount: Money{Cents: 500}, Payments: []Payment{pay(500)}},
		{ID: "pending", Category: ChaquePayables, Date: NewDate(2024, 3, 2), TotalAmount: Money{Cents: 500}, DueDate: NewDate(2024, 4, 1)},
		{ID: "overdue", Category: ChaquePayables, Date: NewDate(2024, 3, 3), TotalAmount: Money{Cents: 500}, DueDate: NewDate(2024, 3, 1)},
	}
	for _, e := range entries {
		if got := StatusOf(e, refNow); string(got) != capitalize(e.ID) {
			t.Fatalf("fixture %s has status %s", e.ID, got)
		}
	}

	got := Filter(entries, Query{View: CategoryView(ChaquePayables), Month: MonthAll, Stat: StatPaid}, refNow)
	if !reflect.DeepEqual(ids(got.Entries), []string{"paid"}) {
		t.Fatalf("entries = %v, want [paid]", ids(got.Entries))
	}
}

func capitalize(s string) string {
	return string(s[0]-'a'+'A') + s[1:]
}

func TestMatchesStat(t *testing.T) {
	entries := map[Status]Entry{
		StatusPaid:      {Category: ChaqueReceivables, TotalAmount: Money{Cents: 10}, Payments: []Payment{pay(10)}},
		StatusPending:   {Category: ChaqueReceivables, TotalAmount: Money{Cents: 10}},
		StatusOverdue:   {Category: ChaqueReceivables, TotalAmount: Money{Cents: 10}, DueDate: NewDate(2024, 3, 1)},
		StatusConfirmed: {Category: UnknownOnline, TotalAmount: Money{Cents: 10}, ConfirmedBy: "Ali"},
		StatusActive:    {Category: LongTermPayables, TotalAmount: Money{Cents: 10}, Payments: []Payment{pay(5)}},
	}

	tests := []struct {
		stat StatFilter
		want map[Status]bool
	}{
		{StatTotal, map[Status]bool{StatusPaid: true, StatusPending: true, StatusOverdue: true, StatusConfirmed: true, StatusActive: true}},
		{StatPaid, map[Status]bool{StatusPaid: true}},
		{StatPending, map[Status]bool{StatusPending: true, StatusActive: true}},
		{StatOverdue, map[Status]bool{StatusOverdue: true, StatusConfirmed: true, StatusActive: true}},
	}
	for _, tt := range tests {
		t.Run(string(tt.stat), func(t *testing.T) {
			for status, e := range entries {
				if StatusOf(e, refNow) != status {
					t.Fatalf("fixture for %s derives %s", status, StatusOf(e, refNow))
				}
				if got := MatchesStat(e, tt.stat, refNow); got != tt.want[status] {
					t.Errorf("MatchesStat(%s, %s) = %v, want %v", status, tt.stat, got, tt.want[status])
				}
			}
		})
	}
}

func TestParseQuery(t *testing.T) {
	tests := []struct {
		name              string
		view, month, stat string
		want              Query
		wantErr           bool
	}{
		{name: "defaults", want: Query{View: ViewDashboard, Month: MonthAll}},
		{name: "slug view", view: "long-term-payables", month: "current", stat: "overdue",
			want: Query{View: CategoryView(LongTermPayables), Month: MonthCurrent, Stat: StatOverdue}},
		{name: "identifier view", view: "UnknownOnline", month: "LAST",
			want: Query{View: CategoryView(UnknownOnline), Month: MonthLast}},
		{name: "bad view", view: "savings", wantErr: true},
		{name: "bad month", month: "next", wantErr: true},
		{name: "bad stat", stat: "late", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseQuery(tt.view, tt.month, tt.stat)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseQuery() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseQuery() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
