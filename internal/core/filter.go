package core

import (
	"fmt"
	"strings"
	"time"
)

// ViewDashboard is the aggregate view; every other view is a category.
const ViewDashboard View = "dashboard"

const (
	MonthAll     MonthFilter = "all"
	MonthCurrent MonthFilter = "current"
	MonthLast    MonthFilter = "last"
)

const (
	StatNone    StatFilter = ""
	StatTotal   StatFilter = "total"
	StatPaid    StatFilter = "paid"
	StatPending StatFilter = "pending"
	StatOverdue StatFilter = "overdue"
)

type (
	// View is either ViewDashboard or the label of a Category.
	View string

	MonthFilter string

	StatFilter string

	Query struct {
		View  View
		Month MonthFilter
		Stat  StatFilter
	}

	// DateWarning reports an entry left out of a month filter because its
	// date could not be read.
	DateWarning struct {
		EntryID string
		Value   string
	}

	FilterResult struct {
		Entries  []Entry
		Warnings []DateWarning
	}
)

func (w DateWarning) Error() string {
	if w.Value == "" {
		return fmt.Sprintf("entry %s: missing date", w.EntryID)
	}
	return fmt.Sprintf("entry %s: %v %q", w.EntryID, ErrInvalidDate, w.Value)
}

func (w DateWarning) Unwrap() error { return ErrInvalidDate }

// CategoryView returns the view listing entries of c.
func CategoryView(c Category) View { return View(c) }

// ParseView accepts "dashboard" or anything ParseCategory accepts.
// The empty string selects the dashboard.
func ParseView(s string) (View, error) {
	if s = strings.TrimSpace(s); s == "" || strings.EqualFold(s, string(ViewDashboard)) {
		return ViewDashboard, nil
	}
	c, err := ParseCategory(s)
	if err != nil {
		return "", fmt.Errorf("invalid view: %w", err)
	}
	return CategoryView(c), nil
}

// Category returns the category shown by v, if any.
func (v View) Category() (Category, bool) {
	c := Category(v)
	return c, c.Valid()
}

func (v View) Title() string {
	if v == ViewDashboard {
		return "Executive Summary"
	}
	return string(v)
}

func ParseMonthFilter(s string) (MonthFilter, error) {
	switch m := MonthFilter(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return MonthAll, nil
	case MonthAll, MonthCurrent, MonthLast:
		return m, nil
	}
	return "", fmt.Errorf("invalid month filter %q: must be one of all, current, last", s)
}

func ParseStatFilter(s string) (StatFilter, error) {
	switch f := StatFilter(strings.ToLower(strings.TrimSpace(s))); f {
	case StatNone, StatTotal, StatPaid, StatPending, StatOverdue:
		return f, nil
	}
	return "", fmt.Errorf("invalid stat filter %q: must be one of total, paid, pending, overdue", s)
}

// ParseQuery builds a Query from its textual parts.
func ParseQuery(view, month, stat string) (Query, error) {
	v, err := ParseView(view)
	if err != nil {
		return Query{}, err
	}
	m, err := ParseMonthFilter(month)
	if err != nil {
		return Query{}, err
	}
	st, err := ParseStatFilter(stat)
	if err != nil {
		return Query{}, err
	}
	return Query{View: v, Month: m, Stat: st}, nil
}

// MonthRange returns the inclusive first and last day selected by m relative
// to now. ok is false for MonthAll.
func MonthRange(m MonthFilter, now time.Time) (first, last Date, ok bool) {
	var offset int
	switch m {
	case MonthCurrent:
	case MonthLast:
		offset = -1
	default:
		return Date{}, Date{}, false
	}
	y, mon := now.Year(), int(now.Month())+offset
	first = NewDate(y, mon, 1)
	last = NewDate(y, mon+1, 0)
	return first, last, true
}

// MatchesStat reports whether e belongs to the statistic card f.
func MatchesStat(e Entry, f StatFilter, now time.Time) bool {
	status := StatusOf(e, now)
	outstanding := Balance(e).IsPositive()
	switch f {
	case StatPaid:
		return status == StatusPaid
	case StatPending:
		return outstanding && status != StatusOverdue && status != StatusConfirmed
	case StatOverdue:
		return outstanding && (status == StatusOverdue || status == StatusActive || status == StatusConfirmed)
	}
	return true
}

// Filter narrows entries to the ones visible for q, keeping their order.
// The dashboard view returns the full list; month and stat filters only
// apply to category views.
func Filter(entries []Entry, q Query, now time.Time) FilterResult {
	if q.View == ViewDashboard || q.View == "" {
		return FilterResult{Entries: cloneAll(entries)}
	}

	var res FilterResult
	first, last, byMonth := MonthRange(q.Month, now)
	for _, e := range entries {
		if View(e.Category) != q.View {
			continue
		}
		if byMonth {
			if !e.Date.Valid() {
				res.Warnings = append(res.Warnings, DateWarning{EntryID: e.ID, Value: e.Date.String()})
				continue
			}
			if e.Date.Compare(first) < 0 || e.Date.Compare(last) > 0 {
				continue
			}
		}
		if q.Stat != StatNone && !MatchesStat(e, q.Stat, now) {
			continue
		}
		res.Entries = append(res.Entries, e.Clone())
	}
	return res
}

func cloneAll(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = e.Clone()
	}
	return out
}
