package core

import "time"

type (
	// Bucket counts entries and sums their outstanding balance.
	Bucket struct {
		Count  int   `json:"count"`
		Amount Money `json:"amount"`
	}

	// Cards are the four statistic cards shown above a category table.
	Cards struct {
		Total   Bucket `json:"total"`
		Paid    Bucket `json:"paid"`
		Pending Bucket `json:"pending"`
		Overdue Bucket `json:"overdue"`
	}

	CategorySummary struct {
		Category    Category `json:"category"`
		Entries     int      `json:"entries"`
		Total       Money    `json:"total"`
		Collected   Money    `json:"collected"`
		Outstanding Money    `json:"outstanding"`
		Cards       Cards    `json:"cards"`
	}

	Summary struct {
		AsOf       Date              `json:"asOf"`
		Categories []CategorySummary `json:"categories"`
		Overall    CategorySummary   `json:"overall"`
	}
)

// StatCards evaluates the stat predicates over entries. Total.Amount is the
// face value of all entries; the other buckets sum outstanding balances,
// except Paid which sums collected amounts.
func StatCards(entries []Entry, now time.Time) Cards {
	var c Cards
	for _, e := range entries {
		bal := Balance(e)
		c.Total.Count++
		c.Total.Amount = c.Total.Amount.Add(e.TotalAmount)
		if MatchesStat(e, StatPaid, now) {
			c.Paid.Count++
			c.Paid.Amount = c.Paid.Amount.Add(e.Paid())
		}
		if MatchesStat(e, StatPending, now) {
			c.Pending.Count++
			c.Pending.Amount = c.Pending.Amount.Add(bal)
		}
		if MatchesStat(e, StatOverdue, now) {
			c.Overdue.Count++
			c.Overdue.Amount = c.Overdue.Amount.Add(bal)
		}
	}
	return c
}

// Summarize builds the dashboard: one row per category in display order and
// an overall row across every entry.
func Summarize(entries []Entry, now time.Time) Summary {
	byCategory := make(map[Category][]Entry, len(Categories))
	for _, e := range entries {
		byCategory[e.Category] = append(byCategory[e.Category], e)
	}

	s := Summary{AsOf: DateOf(now), Categories: make([]CategorySummary, 0, len(Categories))}
	for _, c := range Categories {
		row := summarize(byCategory[c], now)
		row.Category = c
		s.Categories = append(s.Categories, row)
	}
	s.Overall = summarize(entries, now)
	return s
}

func summarize(entries []Entry, now time.Time) CategorySummary {
	row := CategorySummary{Entries: len(entries), Cards: StatCards(entries, now)}
	for _, e := range entries {
		row.Total = row.Total.Add(e.TotalAmount)
		row.Collected = row.Collected.Add(e.Paid())
		if bal := Balance(e); bal.IsPositive() {
			row.Outstanding = row.Outstanding.Add(bal)
		}
	}
	return row
}
