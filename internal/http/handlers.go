package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"parchi/internal/core"
	"parchi/internal/ledger"
	"parchi/internal/log"
	"parchi/internal/report"
)

// parseTimeout bounds a call to the assistant.
const parseTimeout = 30 * time.Second

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := map[string]string{"storage": "ok", "assistant": "disabled"}

	if s.pinger != nil {
		if err := s.pinger.Ping(ctx); err != nil {
			s.logger.WarnContext(ctx, "Readiness check failed", log.FieldError, err)
			checks["storage"] = "failed: " + err.Error()
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		}
	}
	if s.parser != nil {
		checks["assistant"] = "enabled"
	}

	limits := s.limiter.GetMetrics()
	traffic := s.tracer.GetMetrics()
	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
		"entries":   len(s.store.Entries()),
		"metrics": map[string]any{
			"total_requests":       traffic.TotalRequests,
			"server_errors":        traffic.ServerErrors,
			"avg_response_time_us": traffic.AverageResponseTime,
			"rate_limited":         limits.TotalHits,
			"rate_limit_clients":   limits.ClientCount,
			"suspicious_requests":  s.detector.GetMetrics().SuspiciousRequests,
		},
	})
}

// viewEntries applies q to the ledger. Cards are computed before the stat
// filter so that they always describe the whole view.
func (s *Server) viewEntries(ctx context.Context, q core.Query) ([]core.Entry, core.Cards, []string) {
	now := s.store.Now()
	res := s.store.Query(ctx, core.Query{View: q.View, Month: q.Month})
	cards := core.StatCards(res.Entries, now)

	entries := res.Entries
	if q.View != core.ViewDashboard && q.Stat != core.StatNone {
		entries = entries[:0:0]
		for _, e := range res.Entries {
			if core.MatchesStat(e, q.Stat, now) {
				entries = append(entries, e)
			}
		}
	}

	var warnings []string
	for _, w := range res.Warnings {
		warnings = append(warnings, w.Error())
	}
	return entries, cards, warnings
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		s.fail(w, r, "list", err)
		return
	}
	entries, cards, warnings := s.viewEntries(r.Context(), q)
	writeJSON(w, http.StatusOK, listResponse{
		View:     q.View,
		Title:    q.View.Title(),
		Month:    q.Month,
		Stat:     q.Stat,
		Cards:    cards,
		Entries:  newEntryResponses(entries, s.store.Now()),
		Warnings: warnings,
	})
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	e, err := s.store.Get(r.PathValue("id"))
	if err != nil {
		s.fail(w, r, "get", err)
		return
	}
	writeJSON(w, http.StatusOK, newEntryResponse(e, s.store.Now()))
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	d, err := decodeDraft(w, r)
	if err != nil {
		s.fail(w, r, "add", err)
		return
	}
	e, err := s.store.Add(r.Context(), d)
	if err != nil {
		s.fail(w, r, "add", err)
		return
	}
	s.created(w, r, "add", e)
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	e, err := decodeEntry(w, r, r.PathValue("id"))
	if err != nil {
		s.fail(w, r, "update", err)
		return
	}
	e, err = s.store.Update(r.Context(), e)
	if err != nil {
		s.fail(w, r, "update", err)
		return
	}
	s.changed(r.Context(), "update", e)
	writeJSON(w, http.StatusOK, newEntryResponse(e, s.store.Now()))
}

// handleDeleteEntry removes an entry only when the request carries ?confirm=true.
func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var confirmer ledger.Confirmer
	if confirmed(r) {
		confirmer = ledger.AlwaysConfirm
	}
	if err := s.store.Delete(r.Context(), id, confirmer); err != nil {
		if errors.Is(err, ledger.ErrDeleteDeclined) {
			writeError(w, http.StatusConflict, "delete requires ?confirm=true")
			return
		}
		s.fail(w, r, "delete", err)
		return
	}
	log.NewStructuredLogger(log.FromContext(r.Context())).LogEntryChanged(r.Context(), "delete", id, "", 0)
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleAddPayment(w http.ResponseWriter, r *http.Request) {
	p, err := decodePayment(w, r)
	if err != nil {
		s.fail(w, r, "pay", err)
		return
	}
	e, err := s.store.AddPayment(r.Context(), r.PathValue("id"), p)
	if err != nil {
		s.fail(w, r, "pay", err)
		return
	}
	s.changed(r.Context(), "pay", e)
	writeJSON(w, http.StatusCreated, newEntryResponse(e, s.store.Now()))
}

func (s *Server) handleConfirmEntry(w http.ResponseWriter, r *http.Request) {
	c, err := decodeConfirmation(w, r)
	if err != nil {
		s.fail(w, r, "confirm", err)
		return
	}
	e, err := s.store.ConfirmUnknown(r.Context(), r.PathValue("id"), c)
	if err != nil {
		s.fail(w, r, "confirm", err)
		return
	}
	s.changed(r.Context(), "confirm", e)
	writeJSON(w, http.StatusOK, newEntryResponse(e, s.store.Now()))
}

// handleParse reads free text with the assistant and adds the resulting entry.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	if s.parser == nil {
		s.fail(w, r, "parse", errParserDisabled)
		return
	}
	text, err := decodeParseRequest(w, r)
	if err != nil {
		s.fail(w, r, "parse", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), parseTimeout)
	defer cancel()

	e, err := s.store.AddParsed(ctx, s.parser, text)
	if err != nil {
		s.fail(w, r, "parse", err)
		return
	}
	s.created(w, r, "parse", e)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Summary())
}

func (s *Server) handleBanks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"banks":      core.Banks,
		"categories": core.Categories,
	})
}

// handleReport serves the printable Markdown rendition of a view.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		s.fail(w, r, "report", err)
		return
	}

	var md string
	if q.View == core.ViewDashboard {
		md = report.Dashboard(s.store.Summary(), s.currency)
	} else {
		entries, cards, _ := s.viewEntries(r.Context(), q)
		md = report.Markdown(q.View.Title(), entries, cards, s.store.Now(), s.currency)
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(md))
}

// handleExport serves a view as CSV. The dashboard view exports every entry.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		s.fail(w, r, "export", err)
		return
	}
	entries := s.store.Query(r.Context(), q).Entries
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="parchi.csv"`)
	w.WriteHeader(http.StatusOK)
	if err := report.CSV(w, entries, s.store.Now()); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "CSV export failed", log.FieldError, err)
	}
}

func (s *Server) created(w http.ResponseWriter, r *http.Request, op string, e core.Entry) {
	s.changed(r.Context(), op, e)
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/entries/"+e.ID).
		Body(newEntryResponse(e, s.store.Now())).
		Write(w)
}

func (s *Server) changed(ctx context.Context, op string, e core.Entry) {
	log.NewStructuredLogger(log.FromContext(ctx)).LogEntryChanged(ctx, op, e.ID, string(e.Category), e.TotalAmount.Cents)
}

// fail writes the error response for err. Server errors are logged with
// their cause and reported without it.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable && status != http.StatusBadGateway {
		log.NewStructuredLogger(log.FromContext(r.Context())).LogError(r.Context(), "Request failed", err, log.ComponentHTTP, op, log.NewFields())
		writeError(w, status, "internal error")
		return
	}
	log.FromContext(r.Context()).WarnContext(r.Context(), "Request rejected",
		log.FieldOperation, op,
		log.FieldStatusCode, status,
		log.FieldError, err)
	writeError(w, status, err.Error())
}
