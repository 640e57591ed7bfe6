package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format of every calendar day in the ledger.
const DateLayout = "2006-01-02"

// Date is a calendar day. A value read from storage that cannot be parsed
// keeps its original text so it survives a load/save cycle unchanged.
type Date struct {
	time.Time
	raw string
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses YYYY-MM-DD, also accepting a full RFC 3339 timestamp.
// The empty string yields the unset date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return Date{Time: t}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return DateOf(t), nil
	}
	return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// Valid reports whether d holds a real calendar day.
func (d Date) Valid() bool {
	return !d.Time.IsZero()
}

// IsSet reports whether any value, valid or not, was provided.
func (d Date) IsSet() bool {
	return !d.IsZero()
}

// IsZero is true only for the unset date; an unparseable value is not zero.
func (d Date) IsZero() bool {
	return d.Time.IsZero() && d.raw == ""
}

func (d Date) String() string {
	if !d.Valid() {
		return d.raw
	}
	return d.Format(DateLayout)
}

// Compare returns -1, 0 or +1 ordering by calendar day.
func (d Date) Compare(o Date) int {
	return d.Time.Compare(o.Time)
}

// AddDays returns the day n days after d.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON never fails on a malformed string; the text is kept and the
// date reports itself as invalid.
func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		*d = Date{raw: s}
		return nil
	}
	*d = parsed
	return nil
}
