package http

import (
	"net/http"
	"time"

	"sobres/internal/core"
)

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name"`
		Order int    `json:"order"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	group := core.CategoryGroup{Name: req.Name, Order: req.Order, IsActive: true}
	if err := s.store.CreateGroup(r.Context(), &group); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, groupView(group))
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.store.ActiveGroups(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]map[string]any, 0, len(groups))
	for _, g := range groups {
		out = append(out, groupView(g))
	}
	writeJSON(w, http.StatusOK, out)
}

func groupView(g core.CategoryGroup) map[string]any {
	return map[string]any{"id": g.ID, "name": g.Name, "order": g.Order}
}

type categoryView struct {
	ID             int64      `json:"id"`
	Name           string     `json:"name"`
	GroupID        int64      `json:"group_id"`
	Order          int        `json:"order"`
	Kind           string     `json:"kind"`
	CardAccountID  int64      `json:"card_account_id,omitempty"`
	GoalType       string     `json:"goal_type"`
	GoalAmount     core.Money `json:"goal_amount,omitempty"`
	GoalTargetDate string     `json:"goal_target_date,omitempty"`
}

func newCategoryView(c core.Category) categoryView {
	v := categoryView{
		ID:            c.ID,
		Name:          c.Name,
		GroupID:       c.GroupID,
		Order:         c.Order,
		Kind:          string(c.Kind),
		CardAccountID: c.CardAccountID,
		GoalType:      string(c.GoalType),
		GoalAmount:    c.GoalAmount,
	}
	if !c.GoalTargetDate.IsZero() {
		v.GoalTargetDate = c.GoalTargetDate.Format(core.DateLayout)
	}
	return v
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name           string     `json:"name"`
		GroupID        int64      `json:"group_id"`
		Order          int        `json:"order"`
		GoalType       string     `json:"goal_type"`
		GoalAmount     core.Money `json:"goal_amount"`
		GoalTargetDate string     `json:"goal_target_date"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	cat := core.Category{
		Name:       req.Name,
		GroupID:    req.GroupID,
		Order:      req.Order,
		IsActive:   true,
		Kind:       core.CategoryRegular,
		GoalType:   core.GoalType(req.GoalType),
		GoalAmount: req.GoalAmount,
	}
	if cat.GoalType == "" {
		cat.GoalType = core.GoalNone
	}
	if req.GoalTargetDate != "" {
		d, err := time.Parse(core.DateLayout, req.GoalTargetDate)
		if err != nil {
			writeError(w, r, core.ErrInvalidDate)
			return
		}
		cat.GoalTargetDate = core.MonthStart(d)
	}

	if err := s.store.CreateCategory(r.Context(), &cat); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newCategoryView(cat))
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.store.ListCategories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]categoryView, 0, len(cats))
	for _, c := range cats {
		out = append(out, newCategoryView(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreatePayee(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name              string `json:"name"`
		DefaultCategoryID int64  `json:"default_category_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	payee := core.Payee{Name: req.Name, DefaultCategoryID: req.DefaultCategoryID}
	if err := s.store.CreatePayee(r.Context(), &payee); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, payeeView(payee))
}

func (s *Server) handleListPayees(w http.ResponseWriter, r *http.Request) {
	payees, err := s.store.ListPayees(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]map[string]any, 0, len(payees))
	for _, p := range payees {
		out = append(out, payeeView(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func payeeView(p core.Payee) map[string]any {
	return map[string]any{
		"id":                  p.ID,
		"name":                p.Name,
		"default_category_id": p.DefaultCategoryID,
	}
}

func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PayeeID  int64  `json:"payee_id"`
		Pattern  string `json:"pattern"`
		Priority int    `json:"priority"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	rule := core.PayeeMatch{PayeeID: req.PayeeID, Pattern: req.Pattern, Priority: req.Priority}
	if err := s.store.CreateRule(r.Context(), &rule); err != nil {
		writeError(w, r, err)
		return
	}
	// The ingestor caches the rule set; a new rule must take effect now.
	s.ingestor.InvalidateRules()
	writeJSON(w, http.StatusCreated, ruleView(rule))
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := s.store.ListRules(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]map[string]any, 0, len(rules))
	for _, m := range rules {
		out = append(out, ruleView(m))
	}
	writeJSON(w, http.StatusOK, out)
}

func ruleView(m core.PayeeMatch) map[string]any {
	return map[string]any{
		"id":       m.ID,
		"payee_id": m.PayeeID,
		"pattern":  m.Pattern,
		"priority": m.Priority,
	}
}
