package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"parchi/internal/assistant"
	"parchi/internal/core"
	"parchi/internal/ledger"
	"parchi/internal/storage"
)

var testNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	store, err := ledger.Open(context.Background(), storage.NewMemoryStore(),
		ledger.WithClock(func() time.Time { return testNow }))
	if err != nil {
		t.Fatalf("ledger.Open() error = %v", err)
	}
	srv := NewServer(":0", store, opts)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

// entryBody mirrors the derived fields of an entry response.
type entryBody struct {
	ID          string         `json:"id"`
	Category    core.Category  `json:"category"`
	PartyName   string         `json:"partyName"`
	Status      core.Status    `json:"status"`
	ConfirmedBy string         `json:"confirmedBy"`
	Paid        core.Money     `json:"paid"`
	Balance     core.Money     `json:"balance"`
	Payments    []core.Payment `json:"payments"`
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, Options{})
	for _, path := range []string{"/healthz", "/readyz"} {
		if rr := do(t, srv, http.MethodGet, path, ""); rr.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, rr.Code)
		}
	}

	down := newTestServer(t, Options{Pinger: pingerFunc(func(context.Context) error { return errors.New("db gone") })})
	rr := do(t, down, http.MethodGet, "/readyz", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz status = %d, want 503", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "db gone") {
		t.Errorf("readyz body missing cause: %s", rr.Body.String())
	}
}

func TestMiddlewareHeaders(t *testing.T) {
	srv := newTestServer(t, Options{})
	rr := do(t, srv, http.MethodGet, "/healthz", "")
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing security headers")
	}
}

func TestEntryLifecycle(t *testing.T) {
	srv := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodPost, "/api/entries",
		`{"category":"chaque-payables","partyName":"Acme Traders","totalAmount":"15,000","dueDate":"2024-03-10"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rr.Code, rr.Body.String())
	}
	created := decode[entryBody](t, rr)
	if rr.Header().Get("Location") != "/api/entries/"+created.ID {
		t.Errorf("Location = %q", rr.Header().Get("Location"))
	}
	if created.Category != core.ChaquePayables || created.Status != core.StatusOverdue {
		t.Errorf("created = %+v", created)
	}

	rr = do(t, srv, http.MethodGet, "/api/entries?view=chaque-payables&stat=overdue", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("list status = %d", rr.Code)
	}
	list := decode[struct {
		Title   string      `json:"title"`
		Cards   core.Cards  `json:"cards"`
		Entries []entryBody `json:"entries"`
	}](t, rr)
	if list.Title != "Chaque Payables" || len(list.Entries) != 1 || list.Cards.Overdue.Count != 1 {
		t.Errorf("list = %+v", list)
	}

	rr = do(t, srv, http.MethodGet, "/api/entries?view=chaque-payables&stat=paid", "")
	list = decode[struct {
		Title   string      `json:"title"`
		Cards   core.Cards  `json:"cards"`
		Entries []entryBody `json:"entries"`
	}](t, rr)
	if len(list.Entries) != 0 || list.Cards.Total.Count != 1 {
		t.Errorf("stat filter must not change the cards: %+v", list)
	}

	rr = do(t, srv, http.MethodPost, "/api/entries/"+created.ID+"/payments", `{"amount":5000,"chaqueNo":"CHQ-1"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("pay status = %d: %s", rr.Code, rr.Body.String())
	}
	paid := decode[entryBody](t, rr)
	if paid.Balance.Cents != 1_000_000 || paid.Paid.Cents != 500_000 || len(paid.Payments) != 1 {
		t.Errorf("after payment = %+v", paid)
	}

	if rr := do(t, srv, http.MethodPost, "/api/entries/"+created.ID+"/payments", `{"amount":20000}`); rr.Code != http.StatusConflict {
		t.Errorf("overpayment status = %d, want 409", rr.Code)
	}

	if rr := do(t, srv, http.MethodPut, "/api/entries/"+created.ID, `{"id":"other","category":"Chaque Payables"}`); rr.Code != http.StatusBadRequest {
		t.Errorf("mismatched id status = %d, want 400", rr.Code)
	}

	rr = do(t, srv, http.MethodPut, "/api/entries/"+created.ID,
		`{"category":"Chaque Payables","partyName":"Acme Ltd","totalAmount":12000,"dueDate":"2024-04-01","payments":[]}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", rr.Code, rr.Body.String())
	}
	updated := decode[entryBody](t, rr)
	if updated.PartyName != "Acme Ltd" || updated.Status != core.StatusPending {
		t.Errorf("updated = %+v", updated)
	}
	if len(updated.Payments) != 1 || updated.Payments[0].ChaqueNo != "CHQ-1" || updated.Balance.Cents != 700_000 {
		t.Errorf("update must keep the payment history: %+v", updated)
	}

	if rr := do(t, srv, http.MethodPut, "/api/entries/"+created.ID, `{"category":"Chaque Payables","totalAmount":4000}`); rr.Code != http.StatusConflict {
		t.Errorf("total below paid status = %d, want 409", rr.Code)
	}
	if rr := do(t, srv, http.MethodPut, "/api/entries/"+created.ID, `{"category":"Chaque Payables","totalAmount":12000,"status":"Bogus"}`); rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("unknown status code = %d, want 422", rr.Code)
	}

	if rr := do(t, srv, http.MethodDelete, "/api/entries/"+created.ID, ""); rr.Code != http.StatusConflict {
		t.Errorf("unconfirmed delete status = %d, want 409", rr.Code)
	}
	if rr := do(t, srv, http.MethodDelete, "/api/entries/"+created.ID+"?confirm=true", ""); rr.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", rr.Code)
	}
	if rr := do(t, srv, http.MethodGet, "/api/entries/"+created.ID, ""); rr.Code != http.StatusNotFound {
		t.Errorf("get deleted status = %d, want 404", rr.Code)
	}
	if rr := do(t, srv, http.MethodDelete, "/api/entries/missing?confirm=true", ""); rr.Code != http.StatusNotFound {
		t.Errorf("delete missing status = %d, want 404", rr.Code)
	}
}

func TestRequestErrors(t *testing.T) {
	srv := newTestServer(t, Options{})

	tests := []struct {
		name   string
		method string
		target string
		body   string
		want   int
	}{
		{"malformed json", http.MethodPost, "/api/entries", `{"category":`, http.StatusBadRequest},
		{"empty body", http.MethodPost, "/api/entries", "", http.StatusBadRequest},
		{"unknown category", http.MethodPost, "/api/entries", `{"category":"Savings"}`, http.StatusUnprocessableEntity},
		{"negative amount", http.MethodPost, "/api/entries", `{"totalAmount":-5}`, http.StatusUnprocessableEntity},
		{"bad amount text", http.MethodPost, "/api/entries", `{"totalAmount":"lots"}`, http.StatusUnprocessableEntity},
		{"invalid date", http.MethodPost, "/api/entries", `{"dueDate":"31/02/2024"}`, http.StatusUnprocessableEntity},
		{"invalid view", http.MethodGet, "/api/entries?view=savings", "", http.StatusBadRequest},
		{"invalid month", http.MethodGet, "/api/entries?view=chaque-payables&month=next", "", http.StatusBadRequest},
		{"zero payment", http.MethodPost, "/api/entries/1/payments", `{"amount":0}`, http.StatusUnprocessableEntity},
		{"payment on missing entry", http.MethodPost, "/api/entries/1/payments", `{"amount":10}`, http.StatusNotFound},
		{"wrong method", http.MethodPatch, "/api/entries/1", `{}`, http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, tt.method, tt.target, tt.body)
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rr.Code, tt.want, rr.Body.String())
			}
		})
	}
}

func TestConfirmUnknownOnline(t *testing.T) {
	srv := newTestServer(t, Options{})

	unknown := decode[entryBody](t, do(t, srv, http.MethodPost, "/api/entries",
		`{"category":"Unknown Online","totalAmount":2500,"bankName":"HBL"}`))
	payable := decode[entryBody](t, do(t, srv, http.MethodPost, "/api/entries",
		`{"category":"Chaque Payables","totalAmount":100}`))

	if rr := do(t, srv, http.MethodPost, "/api/entries/"+unknown.ID+"/confirm", `{"confirmedBy":" "}`); rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("missing confirmer status = %d, want 422", rr.Code)
	}
	if rr := do(t, srv, http.MethodPost, "/api/entries/"+payable.ID+"/confirm", `{"confirmedBy":"Ali"}`); rr.Code != http.StatusConflict {
		t.Errorf("confirm payable status = %d, want 409", rr.Code)
	}

	rr := do(t, srv, http.MethodPost, "/api/entries/"+unknown.ID+"/confirm", `{"confirmedBy":"Ali","partyName":"Ali Traders"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("confirm status = %d: %s", rr.Code, rr.Body.String())
	}
	got := decode[entryBody](t, rr)
	if got.Status != core.StatusConfirmed || got.ConfirmedBy != "Ali" || got.PartyName != "Ali Traders" {
		t.Errorf("confirmed = %+v", got)
	}
}

func TestParse(t *testing.T) {
	if rr := do(t, newTestServer(t, Options{}), http.MethodPost, "/api/assistant/parse", `{"text":"x"}`); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("disabled parser status = %d, want 503", rr.Code)
	}

	parser := assistant.ParserFunc(func(ctx context.Context, text string) (core.Draft, error) {
		if text == "garbage" {
			return core.Draft{}, assistant.ErrExternalParse
		}
		return core.Draft{Category: "Long Term Receivables", PartyName: "Bilal", TotalAmount: core.Money{Cents: 9_000_000}}, nil
	})
	srv := newTestServer(t, Options{Parser: parser})

	rr := do(t, srv, http.MethodPost, "/api/assistant/parse", `{"text":"Bilal owes 90000 long term"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("parse status = %d: %s", rr.Code, rr.Body.String())
	}
	if got := decode[entryBody](t, rr); got.Category != core.LongTermReceivables || got.PartyName != "Bilal" {
		t.Errorf("parsed = %+v", got)
	}

	if rr := do(t, srv, http.MethodPost, "/api/assistant/parse", `{"text":"garbage"}`); rr.Code != http.StatusBadGateway {
		t.Errorf("failed parse status = %d, want 502", rr.Code)
	}
	if rr := do(t, srv, http.MethodPost, "/api/assistant/parse", `{"text":"  "}`); rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("empty text status = %d, want 422", rr.Code)
	}

	rr = do(t, srv, http.MethodGet, "/api/entries?view=long-term-receivables", "")
	if !strings.Contains(rr.Body.String(), "Bilal") || strings.Count(rr.Body.String(), `"id"`) != 1 {
		t.Errorf("failed parses must not add entries: %s", rr.Body.String())
	}
}

func TestDashboardBanksAndReport(t *testing.T) {
	srv := newTestServer(t, Options{Currency: "USD"})
	do(t, srv, http.MethodPost, "/api/entries", `{"category":"Chaque Receivables","partyName":"Zain","totalAmount":1200}`)

	rr := do(t, srv, http.MethodGet, "/api/dashboard", "")
	summary := decode[core.Summary](t, rr)
	if summary.Overall.Entries != 1 || summary.Overall.Outstanding.Cents != 120_000 {
		t.Errorf("summary overall = %+v", summary.Overall)
	}

	rr = do(t, srv, http.MethodGet, "/api/banks", "")
	banks := decode[struct {
		Banks      []string `json:"banks"`
		Categories []string `json:"categories"`
	}](t, rr)
	if len(banks.Banks) != len(core.Banks) || len(banks.Categories) != len(core.Categories) {
		t.Errorf("banks = %+v", banks)
	}

	rr = do(t, srv, http.MethodGet, "/report", "")
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/markdown") {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(rr.Body.String(), "# Executive Summary") {
		t.Errorf("dashboard report missing heading:\n%s", rr.Body.String())
	}

	rr = do(t, srv, http.MethodGet, "/report?view=chaque-receivables", "")
	body := rr.Body.String()
	if !strings.Contains(body, "# Chaque Receivables") || !strings.Contains(body, "Zain") || !strings.Contains(body, "$1,200.00") {
		t.Errorf("category report:\n%s", body)
	}

	rr = do(t, srv, http.MethodGet, "/export.csv?view=chaque-receivables", "")
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("export Content-Type = %q", ct)
	}
	if body := rr.Body.String(); !strings.HasPrefix(body, "id,category,") || !strings.Contains(body, ",Zain,") || !strings.Contains(body, "1200.00") {
		t.Errorf("csv export:\n%s", body)
	}
	if rr := do(t, srv, http.MethodGet, "/export.csv?stat=soon", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("export with bad stat status = %d, want 400", rr.Code)
	}
}

func TestRateLimitAppliesToMutationsOnly(t *testing.T) {
	srv := newTestServer(t, Options{RequestsPerMinute: 1})

	if rr := do(t, srv, http.MethodPost, "/api/entries", `{"totalAmount":1}`); rr.Code != http.StatusCreated {
		t.Fatalf("first POST status = %d", rr.Code)
	}
	rr := do(t, srv, http.MethodPost, "/api/entries", `{"totalAmount":1}`)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second POST status = %d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
	for i := 0; i < 3; i++ {
		if rr := do(t, srv, http.MethodGet, "/api/entries", ""); rr.Code != http.StatusOK {
			t.Errorf("GET %d status = %d", i, rr.Code)
		}
	}
}
