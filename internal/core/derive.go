package core

import "time"

// Balance returns the amount still unsettled on e. It is deliberately not
// clamped: a negative result means the recorded payments exceed the total.
func Balance(e Entry) Money {
	return e.TotalAmount.Sub(e.Paid())
}

// StatusOf derives the display status of e as of the calendar day of now.
//
// Rules, first match wins:
//   - nothing left to settle: Paid
//   - payer identified: Confirmed
//   - due date strictly before today: Overdue
//   - long-term instrument with at least one instalment: Active
//   - anything else: Pending
func StatusOf(e Entry, now time.Time) Status {
	if !Balance(e).IsPositive() {
		return StatusPaid
	}
	if e.IsConfirmed() {
		return StatusConfirmed
	}
	if e.DueDate.Valid() && e.DueDate.Compare(DateOf(now)) < 0 {
		return StatusOverdue
	}
	if e.Category.LongTerm() && len(e.Payments) > 0 {
		return StatusActive
	}
	return StatusPending
}
