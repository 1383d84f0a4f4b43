// Package http is the JSON API surface over the budgeting services.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"time"

	"sobres/internal/ledger"
	"sobres/internal/services"
)

type Server struct {
	http.Server

	accounts  *services.Accounts
	budget    *services.Budget
	ingestor  *services.Ingestor
	transfers *services.Transfers
	store     ledger.Store
}

// NewServer configures routes and returns a ready-to-run server.
func NewServer(addr string, store ledger.Store, accounts *services.Accounts, budget *services.Budget, ingestor *services.Ingestor, transfers *services.Transfers) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           withRequestLogging(mux),
			ReadHeaderTimeout: 10 * time.Second,
		},
		accounts:  accounts,
		budget:    budget,
		ingestor:  ingestor,
		transfers: transfers,
		store:     store,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("POST /api/accounts", s.handleCreateAccount)
	mux.HandleFunc("GET /api/accounts", s.handleListAccounts)
	mux.HandleFunc("POST /api/accounts/{id}/reconcile", s.handleReconcileAccount)

	mux.HandleFunc("POST /api/groups", s.handleCreateGroup)
	mux.HandleFunc("GET /api/groups", s.handleListGroups)
	mux.HandleFunc("POST /api/categories", s.handleCreateCategory)
	mux.HandleFunc("GET /api/categories", s.handleListCategories)

	mux.HandleFunc("POST /api/payees", s.handleCreatePayee)
	mux.HandleFunc("GET /api/payees", s.handleListPayees)
	mux.HandleFunc("POST /api/rules", s.handleCreateRule)
	mux.HandleFunc("GET /api/rules", s.handleListRules)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("PUT /api/transactions/{id}/category", s.handleSetTransactionCategory)

	mux.HandleFunc("POST /api/transfers", s.handleCreateTransfer)
	mux.HandleFunc("POST /api/transfers/link", s.handleLinkTransfer)
	mux.HandleFunc("POST /api/transfers/unlink", s.handleUnlinkTransfer)

	mux.HandleFunc("GET /api/budget/summary", s.handleBudgetSummary)
	mux.HandleFunc("PUT /api/budget/assignments", s.handleUpsertAssignment)

	mux.HandleFunc("POST /api/import/csv", s.handleImportCSV)

	return s
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// withRequestLogging tags every request with an id and logs start and
// completion with duration and status.
func withRequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := newRequestID()

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		slog.InfoContext(ctx, "HTTP request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.status,
			"duration_ms", time.Since(start).Milliseconds())
	})
}

type contextKey string

const requestIDKey contextKey = "request_id"

func newRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "unknown"
	}
	return hex.EncodeToString(b)
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
