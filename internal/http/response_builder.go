package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"parchi/internal/assistant"
	"parchi/internal/core"
	"parchi/internal/ledger"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.body)
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

// ErrorResponse creates a standard error response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Body(errorBody{Error: message, Status: statusCode})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	NewJSONResponse().Status(status).Body(v).Write(w)
}

func writeError(w http.ResponseWriter, status int, message string) {
	ErrorResponse(status, message).Write(w)
}

// errorStatus maps domain errors to HTTP status codes.
func errorStatus(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errInvalidQuery):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrEntryNotFound):
		return http.StatusNotFound
	case errors.Is(err, errParserDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, assistant.ErrExternalParse):
		return http.StatusBadGateway
	case errors.Is(err, ledger.ErrDeleteDeclined),
		errors.Is(err, ledger.ErrOverpayment),
		errors.Is(err, ledger.ErrNotUnknownOnline):
		return http.StatusConflict
	case errors.Is(err, core.ErrInvalidCategory),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrEmptyID),
		errors.Is(err, core.ErrMissingConfirmer),
		errors.Is(err, core.ErrTextTooLong),
		errors.Is(err, core.ErrInvalidStatus),
		errors.Is(err, errMissingText):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errMalformedBody), errors.Is(err, errIDMismatch):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// entryResponse is an entry together with its derived figures.
type entryResponse struct {
	core.Entry
	Status  core.Status `json:"status"`
	Paid    core.Money  `json:"paid"`
	Balance core.Money  `json:"balance"`
}

func newEntryResponse(e core.Entry, now time.Time) entryResponse {
	return entryResponse{
		Entry:   e,
		Status:  core.StatusOf(e, now),
		Paid:    e.Paid(),
		Balance: core.Balance(e),
	}
}

func newEntryResponses(entries []core.Entry, now time.Time) []entryResponse {
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, newEntryResponse(e, now))
	}
	return out
}

// listResponse is the body of GET /api/entries.
type listResponse struct {
	View     core.View        `json:"view"`
	Title    string           `json:"title"`
	Month    core.MonthFilter `json:"month"`
	Stat     core.StatFilter  `json:"stat,omitempty"`
	Cards    core.Cards       `json:"cards"`
	Entries  []entryResponse  `json:"entries"`
	Warnings []string         `json:"warnings,omitempty"`
}
