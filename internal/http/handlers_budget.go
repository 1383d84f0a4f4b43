package http

import (
	"net/http"
	"time"

	"sobres/internal/core"
)

// monthParam parses ?month=2026-08 (or a full date); empty means the current
// month.
func monthParam(r *http.Request) (time.Time, bool) {
	v := r.URL.Query().Get("month")
	if v == "" {
		return time.Now().UTC(), true
	}
	for _, layout := range []string{"2006-01", core.DateLayout} {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (s *Server) handleBudgetSummary(w http.ResponseWriter, r *http.Request) {
	target, ok := monthParam(r)
	if !ok {
		badRequest(w, "invalid month, expected YYYY-MM")
		return
	}

	summary, err := s.budget.Summary(r.Context(), target)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Month string `json:"month"`
		core.Summary
	}{
		Month:   summary.Month.Format("2006-01"),
		Summary: summary,
	})
}

func (s *Server) handleUpsertAssignment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CategoryID int64      `json:"category_id"`
		Month      string     `json:"month"`
		Amount     core.Money `json:"amount"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	var month time.Time
	for _, layout := range []string{"2006-01", core.DateLayout} {
		if t, err := time.Parse(layout, req.Month); err == nil {
			month = t
			break
		}
	}
	if month.IsZero() {
		writeError(w, r, core.ErrInvalidDate)
		return
	}

	amount, err := s.budget.UpsertAssignment(r.Context(), req.CategoryID, month, req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"category_id": req.CategoryID,
		"month":       core.MonthStart(month).Format("2006-01"),
		"amount":      amount,
	})
}
