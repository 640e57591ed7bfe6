package core

import (
	"errors"
	"fmt"
	"strings"
)

var ErrMissingConfirmer = errors.New("confirmed by is required")

type (
	// Draft carries the caller supplied fields of a new entry. Anything left
	// empty is filled with its default when the entry is created.
	Draft struct {
		Category        string `json:"category"`
		Date            Date   `json:"date"`
		TransactionDate Date   `json:"transactionDate"`
		RefNo           string `json:"refNo"`
		PartyName       string `json:"partyName"`
		BankName        string `json:"bankName"`
		BankAccountNum  string `json:"bankAccountNum"`
		Desc            string `json:"desc"`
		TotalAmount     Money  `json:"totalAmount"`
		DueDate         Date   `json:"dueDate"`
	}

	PaymentDraft struct {
		Date      Date   `json:"date"`
		Amount    Money  `json:"amount"`
		ChaqueNo  string `json:"chaqueNo"`
		VoucherNo string `json:"voucherNo"`
	}

	// Confirmation identifies the payer of an unknown online transaction.
	Confirmation struct {
		ConfirmedBy string `json:"confirmedBy"`
		PartyName   string `json:"partyName"`
		Date        Date   `json:"date"`
	}
)

func (d Draft) Validate() error {
	if strings.TrimSpace(d.Category) != "" {
		if _, err := ParseCategory(d.Category); err != nil {
			return err
		}
	}
	if d.TotalAmount.IsNegative() {
		return fmt.Errorf("%w: total amount cannot be negative", ErrInvalidAmount)
	}
	for name, date := range map[string]Date{"date": d.Date, "transactionDate": d.TransactionDate, "dueDate": d.DueDate} {
		if date.IsSet() && !date.Valid() {
			return fmt.Errorf("%w: %s %q", ErrInvalidDate, name, date.String())
		}
	}
	return validateText(d.RefNo, d.PartyName, d.BankName, d.BankAccountNum, d.Desc)
}

// Entry builds a new pending entry from d. Callers validate d first.
func (d Draft) Entry(id string, today Date) Entry {
	category := ChaqueReceivables
	if c, err := ParseCategory(d.Category); err == nil {
		category = c
	}
	date := d.Date
	if !date.Valid() {
		date = today
	}
	return Entry{
		ID:              id,
		Category:        category,
		Date:            date,
		TransactionDate: d.TransactionDate,
		RefNo:           strings.TrimSpace(d.RefNo),
		PartyName:       strings.TrimSpace(d.PartyName),
		BankName:        strings.TrimSpace(d.BankName),
		BankAccountNum:  strings.TrimSpace(d.BankAccountNum),
		Desc:            strings.TrimSpace(d.Desc),
		TotalAmount:     d.TotalAmount,
		DueDate:         d.DueDate,
		Status:          StatusPending,
		Payments:        []Payment{},
	}
}

func (p PaymentDraft) Validate() error {
	if !p.Amount.IsPositive() {
		return fmt.Errorf("%w: payment amount must be positive", ErrInvalidAmount)
	}
	if p.Date.IsSet() && !p.Date.Valid() {
		return fmt.Errorf("%w: payment date %q", ErrInvalidDate, p.Date.String())
	}
	return validateText(p.ChaqueNo, p.VoucherNo)
}

// Payment builds the payment recorded for p, dated today when p has no date.
func (p PaymentDraft) Payment(id string, today Date) Payment {
	date := p.Date
	if !date.Valid() {
		date = today
	}
	return Payment{
		ID:        id,
		Date:      date,
		Amount:    p.Amount,
		ChaqueNo:  strings.TrimSpace(p.ChaqueNo),
		VoucherNo: strings.TrimSpace(p.VoucherNo),
	}
}

func (c Confirmation) Validate() error {
	if strings.TrimSpace(c.ConfirmedBy) == "" {
		return ErrMissingConfirmer
	}
	if c.Date.IsSet() && !c.Date.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidDate, c.Date.String())
	}
	return validateText(c.ConfirmedBy, c.PartyName)
}
