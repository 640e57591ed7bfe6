package core

import (
	"errors"
	"fmt"
	"strings"
)

const (
	ChaqueReceivables   Category = "Chaque Receivables"
	ChaquePayables      Category = "Chaque Payables"
	LongTermPayables    Category = "Long Term Payables"
	LongTermReceivables Category = "Long Term Receivables"
	UnknownOnline       Category = "Unknown Online"
)

const (
	StatusPending   Status = "Pending"
	StatusPaid      Status = "Paid"
	StatusConfirmed Status = "Confirmed"
	StatusOverdue   Status = "Overdue"
	StatusActive    Status = "Active"
)

type (
	// Category decides which table an entry belongs to.
	Category string

	// Status is the display classification of an entry's settlement state.
	Status string

	Payment struct {
		ID        string `json:"id"`
		Date      Date   `json:"date"`
		Amount    Money  `json:"amount"`
		ChaqueNo  string `json:"chaqueNo"`
		VoucherNo string `json:"voucherNo"`
	}

	Entry struct {
		ID              string    `json:"id"`
		Category        Category  `json:"category"`
		Date            Date      `json:"date"`
		TransactionDate Date      `json:"transactionDate,omitzero"`
		RefNo           string    `json:"refNo"`
		PartyName       string    `json:"partyName"`
		BankName        string    `json:"bankName"`
		BankAccountNum  string    `json:"bankAccountNum"`
		Desc            string    `json:"desc"`
		TotalAmount     Money     `json:"totalAmount"`
		DueDate         Date      `json:"dueDate"`
		Status          Status    `json:"status"`
		ConfirmedBy     string    `json:"confirmedBy,omitempty"`
		Payments        []Payment `json:"payments"`
	}
)

// Categories lists every category in display order.
var Categories = []Category{
	ChaqueReceivables,
	ChaquePayables,
	LongTermPayables,
	LongTermReceivables,
	UnknownOnline,
}

// Banks are the suggested bank names offered when recording an instrument.
var Banks = []string{
	"HBL",
	"Meezan Bank",
	"UBL Bank",
	"Allied Bank",
	"Faysal Bank",
	"Alfalah Bank",
	"Other Bank",
}

var (
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidDate     = errors.New("invalid date")
	ErrOverpayment     = errors.New("payments exceed total amount")
	ErrEmptyID         = errors.New("empty id")
	ErrTextTooLong     = errors.New("text too long")
	ErrInvalidStatus   = errors.New("invalid status")
)

const maxTextLen = 500

// ParseCategory accepts the stored label ("Chaque Payables"), the identifier
// form ("ChaquePayables") and the slug form ("chaque-payables").
func ParseCategory(s string) (Category, error) {
	key := normalizeKey(s)
	for _, c := range Categories {
		if normalizeKey(string(c)) == key {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
}

func normalizeKey(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '_':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(s)))
}

func (c Category) Valid() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusConfirmed, StatusOverdue, StatusActive:
		return true
	}
	return false
}

// LongTerm reports whether the category tracks an obligation settled in instalments.
func (c Category) LongTerm() bool {
	return c == LongTermPayables || c == LongTermReceivables
}

// Slug returns the URL friendly form, e.g. "long-term-payables".
func (c Category) Slug() string {
	return strings.ReplaceAll(strings.ToLower(string(c)), " ", "-")
}

// Paid returns the sum of all recorded payments.
func (e Entry) Paid() Money {
	var total Money
	for _, p := range e.Payments {
		total = total.Add(p.Amount)
	}
	return total
}

// IsConfirmed reports whether the payer of an unknown online transaction was identified.
func (e Entry) IsConfirmed() bool {
	return e.Status == StatusConfirmed || strings.TrimSpace(e.ConfirmedBy) != ""
}

// Clone returns a copy that shares no payment storage with e.
func (e Entry) Clone() Entry {
	if e.Payments != nil {
		e.Payments = append([]Payment(nil), e.Payments...)
	}
	return e
}

// Validate checks a full entry, as accepted by an update.
func (e Entry) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return ErrEmptyID
	}
	if !e.Category.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, e.Category)
	}
	if e.TotalAmount.IsNegative() {
		return fmt.Errorf("%w: total amount cannot be negative", ErrInvalidAmount)
	}
	if e.Status != "" && !e.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, e.Status)
	}
	for _, d := range []struct {
		name string
		date Date
	}{{"date", e.Date}, {"transactionDate", e.TransactionDate}, {"dueDate", e.DueDate}} {
		if d.date.IsSet() && !d.date.Valid() {
			return fmt.Errorf("%w: %s %q", ErrInvalidDate, d.name, d.date.String())
		}
	}
	if err := validateText(e.RefNo, e.PartyName, e.BankName, e.BankAccountNum, e.Desc, e.ConfirmedBy); err != nil {
		return err
	}
	for _, p := range e.Payments {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("payment %s: %w", p.ID, err)
		}
	}
	if e.Paid().Cents > e.TotalAmount.Cents {
		return ErrOverpayment
	}
	return nil
}

func (p Payment) Validate() error {
	if !p.Amount.IsPositive() {
		return fmt.Errorf("%w: payment amount must be positive", ErrInvalidAmount)
	}
	if p.Date.IsSet() && !p.Date.Valid() {
		return fmt.Errorf("%w: payment date %q", ErrInvalidDate, p.Date.String())
	}
	return validateText(p.ChaqueNo, p.VoucherNo)
}

func validateText(values ...string) error {
	for _, v := range values {
		if len(v) > maxTextLen {
			return fmt.Errorf("%w (max %d characters)", ErrTextTooLong, maxTextLen)
		}
	}
	return nil
}
