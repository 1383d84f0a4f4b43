package http

import (
	"net/http"

	"sobres/internal/core"
)

type accountView struct {
	ID                int64      `json:"id"`
	Name              string     `json:"name"`
	Type              string     `json:"type"`
	OffBudget         bool       `json:"off_budget"`
	Identifier        string     `json:"identifier,omitempty"`
	PaymentCategoryID int64      `json:"payment_category_id,omitempty"`
	Balance           core.Money `json:"balance"`
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name       string `json:"name"`
		Type       string `json:"type"`
		OffBudget  bool   `json:"off_budget"`
		Identifier string `json:"identifier"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	acc := core.Account{
		Name:       req.Name,
		Type:       core.AccountType(req.Type),
		OffBudget:  req.OffBudget,
		Identifier: req.Identifier,
	}
	if err := s.accounts.Create(r.Context(), &acc); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, accountView{
		ID:                acc.ID,
		Name:              acc.Name,
		Type:              string(acc.Type),
		OffBudget:         acc.OffBudget,
		Identifier:        acc.Identifier,
		PaymentCategoryID: acc.PaymentCategoryID,
	})
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.store.ListAccounts(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]accountView, 0, len(accounts))
	for _, acc := range accounts {
		balance, err := s.store.SumByAccount(r.Context(), acc.ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		out = append(out, accountView{
			ID:                acc.ID,
			Name:              acc.Name,
			Type:              string(acc.Type),
			OffBudget:         acc.OffBudget,
			Identifier:        acc.Identifier,
			PaymentCategoryID: acc.PaymentCategoryID,
			Balance:           balance,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleReconcileAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid account id")
		return
	}
	var req struct {
		TargetBalance core.Money `json:"target_balance"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	adjustment, err := s.accounts.Reconcile(r.Context(), id, req.TargetBalance)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"account_id": id,
		"adjustment": adjustment,
		"balance":    req.TargetBalance,
	})
}
