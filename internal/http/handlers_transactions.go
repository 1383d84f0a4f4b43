package http

import (
	"net/http"
	"strconv"
	"time"

	"sobres/internal/core"
	"sobres/internal/ledger"
	"sobres/internal/services"
)

type transactionView struct {
	ID         int64      `json:"id"`
	AccountID  int64      `json:"account_id"`
	CategoryID int64      `json:"category_id,omitempty"`
	Date       string     `json:"date"`
	PayeeID    int64      `json:"payee_id,omitempty"`
	Amount     core.Money `json:"amount"`
	RawPayee   string     `json:"payee"`
	Memo       string     `json:"memo,omitempty"`
	ImportID   string     `json:"import_id,omitempty"`
	TransferID int64      `json:"transfer_id,omitempty"`
}

func newTransactionView(t core.Transaction) transactionView {
	return transactionView{
		ID:         t.ID,
		AccountID:  t.AccountID,
		CategoryID: t.CategoryID,
		Date:       t.Date.Format(core.DateLayout),
		PayeeID:    t.PayeeID,
		Amount:     t.Amount,
		RawPayee:   t.RawPayee,
		Memo:       t.Memo,
		ImportID:   t.ImportID,
		TransferID: t.TransferID,
	}
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ledger.TransactionFilter{
		Uncategorized: q.Get("uncategorized") == "true",
	}
	if v := q.Get("account_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			badRequest(w, "invalid account_id")
			return
		}
		filter.AccountID = id
	}
	if v := q.Get("category_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			badRequest(w, "invalid category_id")
			return
		}
		filter.CategoryID = id
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			badRequest(w, "invalid limit")
			return
		}
		filter.Limit = n
	}

	txs, err := s.store.ListTransactions(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]transactionView, 0, len(txs))
	for _, t := range txs {
		out = append(out, newTransactionView(t))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleCreateTransaction is manual entry; it still runs through the full
// ingestion pipeline so duplicate detection and payee rules also apply to
// hand-typed movements.
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID int64      `json:"account_id"`
		Date      string     `json:"date"`
		Payee     string     `json:"payee"`
		Amount    core.Money `json:"amount"`
		Memo      string     `json:"memo"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if req.AccountID == 0 {
		writeError(w, r, core.ErrMissingReference)
		return
	}
	date, err := time.Parse(core.DateLayout, req.Date)
	if err != nil {
		writeError(w, r, core.ErrInvalidDate)
		return
	}

	dto := core.TransactionDTO{
		Date:   date,
		Payee:  req.Payee,
		Amount: req.Amount,
		Memo:   req.Memo,
	}
	tx, created, err := s.ingestor.Ingest(r.Context(), req.AccountID, dto)
	if err != nil {
		writeError(w, r, err)
		return
	}

	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	writeJSON(w, status, newTransactionView(tx))
}

func (s *Server) handleSetTransactionCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid transaction id")
		return
	}
	var req struct {
		CategoryID int64 `json:"category_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	if req.CategoryID != 0 {
		if _, err := s.store.GetCategory(r.Context(), req.CategoryID); err != nil {
			writeError(w, r, err)
			return
		}
	}
	if err := s.store.SetTransactionCategory(r.Context(), id, req.CategoryID); err != nil {
		writeError(w, r, err)
		return
	}

	tx, err := s.store.GetTransaction(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newTransactionView(tx))
}

func (s *Server) handleCreateTransfer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SourceAccountID      int64      `json:"source_account_id"`
		DestinationAccountID int64      `json:"destination_account_id"`
		Amount               core.Money `json:"amount"`
		Date                 string     `json:"date"`
		Memo                 string     `json:"memo"`
		CategoryID           int64      `json:"category_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	date, err := time.Parse(core.DateLayout, req.Date)
	if err != nil {
		writeError(w, r, core.ErrInvalidDate)
		return
	}

	out, in, err := s.transfers.Create(r.Context(), services.CreateTransferRequest{
		SourceAccountID:      req.SourceAccountID,
		DestinationAccountID: req.DestinationAccountID,
		Amount:               req.Amount,
		Date:                 date,
		Memo:                 req.Memo,
		CategoryID:           req.CategoryID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]transactionView{
		"outgoing": newTransactionView(out),
		"incoming": newTransactionView(in),
	})
}

func (s *Server) handleLinkTransfer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TransactionA int64 `json:"transaction_a"`
		TransactionB int64 `json:"transaction_b"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := s.transfers.Link(r.Context(), req.TransactionA, req.TransactionB); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"linked": []int64{req.TransactionA, req.TransactionB},
	})
}

func (s *Server) handleUnlinkTransfer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TransactionID int64 `json:"transaction_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := s.transfers.Unlink(r.Context(), req.TransactionID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"unlinked": req.TransactionID})
}
