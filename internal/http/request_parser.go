package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"parchi/internal/core"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 64 << 10

var (
	errMalformedBody  = errors.New("malformed request body")
	errInvalidQuery   = errors.New("invalid query")
	errIDMismatch     = errors.New("entry id in body does not match the URL")
	errMissingText    = errors.New("text is required")
	errParserDisabled = errors.New("assistant is not configured")
)

// parseRequest is the body of POST /api/assistant/parse.
type parseRequest struct {
	Text string `json:"text"`
}

// decodeJSON reads exactly one JSON value from the request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errMalformedBody)
		}
		return fmt.Errorf("%w: %w", errMalformedBody, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON value", errMalformedBody)
	}
	return nil
}

// decodeDraft reads a new entry and strips control characters from its text fields.
func decodeDraft(w http.ResponseWriter, r *http.Request) (core.Draft, error) {
	var d core.Draft
	if err := decodeJSON(w, r, &d); err != nil {
		return core.Draft{}, err
	}
	d.Category = sanitizeInput(d.Category)
	d.RefNo = sanitizeInput(d.RefNo)
	d.PartyName = sanitizeInput(d.PartyName)
	d.BankName = sanitizeInput(d.BankName)
	d.BankAccountNum = sanitizeInput(d.BankAccountNum)
	d.Desc = sanitizeInput(d.Desc)
	return d, nil
}

// decodeEntry reads a full entry for an update. The id comes from the URL; a
// body carrying a different id is rejected.
func decodeEntry(w http.ResponseWriter, r *http.Request, id string) (core.Entry, error) {
	var e core.Entry
	if err := decodeJSON(w, r, &e); err != nil {
		return core.Entry{}, err
	}
	if e.ID != "" && e.ID != id {
		return core.Entry{}, fmt.Errorf("%w: %q != %q", errIDMismatch, e.ID, id)
	}
	e.ID = id
	e.RefNo = sanitizeInput(e.RefNo)
	e.PartyName = sanitizeInput(e.PartyName)
	e.BankName = sanitizeInput(e.BankName)
	e.BankAccountNum = sanitizeInput(e.BankAccountNum)
	e.Desc = sanitizeInput(e.Desc)
	e.ConfirmedBy = sanitizeInput(e.ConfirmedBy)
	return e, nil
}

func decodePayment(w http.ResponseWriter, r *http.Request) (core.PaymentDraft, error) {
	var p core.PaymentDraft
	if err := decodeJSON(w, r, &p); err != nil {
		return core.PaymentDraft{}, err
	}
	p.ChaqueNo = sanitizeInput(p.ChaqueNo)
	p.VoucherNo = sanitizeInput(p.VoucherNo)
	return p, nil
}

func decodeConfirmation(w http.ResponseWriter, r *http.Request) (core.Confirmation, error) {
	var c core.Confirmation
	if err := decodeJSON(w, r, &c); err != nil {
		return core.Confirmation{}, err
	}
	c.ConfirmedBy = sanitizeInput(c.ConfirmedBy)
	c.PartyName = sanitizeInput(c.PartyName)
	return c, nil
}

func decodeParseRequest(w http.ResponseWriter, r *http.Request) (string, error) {
	var req parseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return "", err
	}
	text := sanitizeInput(req.Text)
	if text == "" {
		return "", errMissingText
	}
	return text, nil
}

// parseQuery reads the view, month and stat query parameters.
func parseQuery(r *http.Request) (core.Query, error) {
	q := r.URL.Query()
	query, err := core.ParseQuery(q.Get("view"), q.Get("month"), q.Get("stat"))
	if err != nil {
		return core.Query{}, fmt.Errorf("%w: %w", errInvalidQuery, err)
	}
	return query, nil
}

// confirmed reports whether the caller approved a destructive request.
func confirmed(r *http.Request) bool {
	switch strings.ToLower(strings.TrimSpace(r.URL.Query().Get("confirm"))) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}
