package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"sobres/internal/ledger/memory"
	"sobres/internal/services"
)

func newTestServer(t *testing.T) (*Server, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	accounts := services.NewAccounts(store)
	budget := services.NewBudget(store)
	ingestor := services.NewIngestor(store, nil)
	transfers := services.NewTransfers(store, nil)
	return NewServer(":0", store, accounts, budget, ingestor, transfers), store
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
	return out
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := doJSON(t, srv, http.MethodGet, "/healthz", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := decodeBody(t, rr)["status"]; got != "ok" {
		t.Errorf("status field = %v", got)
	}
}

func TestCreateAccount(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/accounts", map[string]any{
		"name": "Visa", "type": "credit_card", "identifier": "5678",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if body["payment_category_id"] == nil {
		t.Error("credit card response missing payment_category_id")
	}
	if body["identifier"] != "5678" {
		t.Errorf("identifier = %v", body["identifier"])
	}

	// Rejected input maps to 422.
	rr = doJSON(t, srv, http.MethodPost, "/api/accounts", map[string]any{
		"name": "X", "type": "wallet",
	})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid type: status = %d, want 422", rr.Code)
	}

	// Unknown fields are rejected outright.
	rr = doJSON(t, srv, http.MethodPost, "/api/accounts", map[string]any{
		"name": "X", "type": "checking", "balance": 100,
	})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("unknown field: status = %d, want 400", rr.Code)
	}
}

func TestListAccountsCarriesBalances(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/accounts", map[string]any{
		"name": "Cuenta", "type": "checking",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create account: %d", rr.Code)
	}
	accountID := int64(decodeBody(t, rr)["id"].(float64))

	rr = doJSON(t, srv, http.MethodPost, "/api/transactions", map[string]any{
		"account_id": accountID, "date": "2026-08-01", "payee": "Sueldo", "amount": 100000,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create transaction: %d, %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/accounts", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list: %d", rr.Code)
	}
	var accounts []map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &accounts); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(accounts) != 1 || accounts[0]["balance"].(float64) != 100000 {
		t.Errorf("accounts = %v", accounts)
	}
}

func TestCreateTransactionDeduplicates(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := doJSON(t, srv, http.MethodPost, "/api/accounts", map[string]any{"name": "Cuenta", "type": "checking"})
	accountID := int64(decodeBody(t, rr)["id"].(float64))

	payload := map[string]any{
		"account_id": accountID, "date": "2026-08-12", "payee": "LIDER", "amount": -12500,
	}
	if rr := doJSON(t, srv, http.MethodPost, "/api/transactions", payload); rr.Code != http.StatusCreated {
		t.Fatalf("first create: %d", rr.Code)
	}
	// The duplicate comes back 200 with the original row.
	rr = doJSON(t, srv, http.MethodPost, "/api/transactions", payload)
	if rr.Code != http.StatusOK {
		t.Errorf("duplicate create: status = %d, want 200", rr.Code)
	}
}

func TestSetTransactionCategory(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := doJSON(t, srv, http.MethodPost, "/api/accounts", map[string]any{"name": "Cuenta", "type": "checking"})
	accountID := int64(decodeBody(t, rr)["id"].(float64))
	rr = doJSON(t, srv, http.MethodPost, "/api/groups", map[string]any{"name": "Vida Diaria"})
	groupID := int64(decodeBody(t, rr)["id"].(float64))
	rr = doJSON(t, srv, http.MethodPost, "/api/categories", map[string]any{"name": "Supermercado", "group_id": groupID})
	categoryID := int64(decodeBody(t, rr)["id"].(float64))
	rr = doJSON(t, srv, http.MethodPost, "/api/transactions", map[string]any{
		"account_id": accountID, "date": "2026-08-12", "payee": "LIDER", "amount": -12500,
	})
	txID := int64(decodeBody(t, rr)["id"].(float64))

	rr = doJSON(t, srv, http.MethodPut, fmt.Sprintf("/api/transactions/%d/category", txID), map[string]any{
		"category_id": categoryID,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("set category: %d, %s", rr.Code, rr.Body.String())
	}
	if got := decodeBody(t, rr)["category_id"].(float64); int64(got) != categoryID {
		t.Errorf("category_id = %v", got)
	}

	// Unknown category maps to 404.
	rr = doJSON(t, srv, http.MethodPut, fmt.Sprintf("/api/transactions/%d/category", txID), map[string]any{
		"category_id": 999,
	})
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown category: status = %d, want 404", rr.Code)
	}
}

func TestTransferEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := doJSON(t, srv, http.MethodPost, "/api/accounts", map[string]any{"name": "Cuenta", "type": "checking"})
	source := int64(decodeBody(t, rr)["id"].(float64))
	rr = doJSON(t, srv, http.MethodPost, "/api/accounts", map[string]any{"name": "Ahorro", "type": "savings"})
	dest := int64(decodeBody(t, rr)["id"].(float64))

	rr = doJSON(t, srv, http.MethodPost, "/api/transfers", map[string]any{
		"source_account_id": source, "destination_account_id": dest,
		"amount": 30000, "date": "2026-08-05",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create transfer: %d, %s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	out := body["outgoing"].(map[string]any)
	in := body["incoming"].(map[string]any)
	if out["amount"].(float64) != -30000 || in["amount"].(float64) != 30000 {
		t.Errorf("leg amounts %v/%v", out["amount"], in["amount"])
	}

	// Conflicting state maps to 409.
	rr = doJSON(t, srv, http.MethodPost, "/api/transfers", map[string]any{
		"source_account_id": source, "destination_account_id": source,
		"amount": 1000, "date": "2026-08-05",
	})
	if rr.Code != http.StatusConflict {
		t.Errorf("same account: status = %d, want 409", rr.Code)
	}

	outID := int64(out["id"].(float64))
	rr = doJSON(t, srv, http.MethodPost, "/api/transfers/unlink", map[string]any{"transaction_id": outID})
	if rr.Code != http.StatusOK {
		t.Errorf("unlink: %d", rr.Code)
	}

	inID := int64(in["id"].(float64))
	rr = doJSON(t, srv, http.MethodPost, "/api/transfers/link", map[string]any{
		"transaction_a": outID, "transaction_b": inID,
	})
	if rr.Code != http.StatusOK {
		t.Errorf("relink: %d, %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/transfers/link", map[string]any{
		"transaction_a": outID, "transaction_b": outID,
	})
	if rr.Code != http.StatusConflict {
		t.Errorf("self link: status = %d, want 409", rr.Code)
	}
}

func TestBudgetSummaryEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := doJSON(t, srv, http.MethodPost, "/api/accounts", map[string]any{"name": "Cuenta", "type": "checking"})
	accountID := int64(decodeBody(t, rr)["id"].(float64))
	rr = doJSON(t, srv, http.MethodPost, "/api/groups", map[string]any{"name": "Vida Diaria"})
	groupID := int64(decodeBody(t, rr)["id"].(float64))
	rr = doJSON(t, srv, http.MethodPost, "/api/categories", map[string]any{"name": "Supermercado", "group_id": groupID})
	categoryID := int64(decodeBody(t, rr)["id"].(float64))

	doJSON(t, srv, http.MethodPost, "/api/transactions", map[string]any{
		"account_id": accountID, "date": "2026-08-01", "payee": "Sueldo", "amount": 100000,
	})
	rr = doJSON(t, srv, http.MethodPut, "/api/budget/assignments", map[string]any{
		"category_id": categoryID, "month": "2026-08", "amount": 40000,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("assign: %d, %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/budget/summary?month=2026-08", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("summary: %d, %s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if body["month"] != "2026-08" {
		t.Errorf("month = %v", body["month"])
	}
	if body["ready_to_assign"].(float64) != 60000 {
		t.Errorf("ready_to_assign = %v, want 60000", body["ready_to_assign"])
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/budget/summary?month=agosto", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad month: status = %d, want 400", rr.Code)
	}
}

func TestRuleCreationRefreshesIngestor(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := doJSON(t, srv, http.MethodPost, "/api/accounts", map[string]any{"name": "Cuenta", "type": "checking"})
	accountID := int64(decodeBody(t, rr)["id"].(float64))

	// Prime the ingestor's rule cache with an empty set.
	doJSON(t, srv, http.MethodPost, "/api/transactions", map[string]any{
		"account_id": accountID, "date": "2026-08-01", "payee": "COPEC LAS CONDES", "amount": -8000,
	})

	rr = doJSON(t, srv, http.MethodPost, "/api/payees", map[string]any{"name": "Copec"})
	payeeID := int64(decodeBody(t, rr)["id"].(float64))
	rr = doJSON(t, srv, http.MethodPost, "/api/rules", map[string]any{
		"payee_id": payeeID, "pattern": "copec", "priority": 1,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create rule: %d, %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/transactions", map[string]any{
		"account_id": accountID, "date": "2026-08-02", "payee": "COPEC PROVIDENCIA", "amount": -9000,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create transaction: %d", rr.Code)
	}
	if got := decodeBody(t, rr)["payee_id"]; got == nil || int64(got.(float64)) != payeeID {
		t.Errorf("new rule not applied, payee_id = %v", got)
	}
}

func TestListTransactionsFilters(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := doJSON(t, srv, http.MethodPost, "/api/accounts", map[string]any{"name": "Cuenta", "type": "checking"})
	accountID := int64(decodeBody(t, rr)["id"].(float64))
	doJSON(t, srv, http.MethodPost, "/api/transactions", map[string]any{
		"account_id": accountID, "date": "2026-08-01", "payee": "A", "amount": -1000,
	})
	doJSON(t, srv, http.MethodPost, "/api/transactions", map[string]any{
		"account_id": accountID, "date": "2026-08-02", "payee": "B", "amount": -2000,
	})

	rr = doJSON(t, srv, http.MethodGet, fmt.Sprintf("/api/transactions?account_id=%d&limit=1", accountID), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list: %d", rr.Code)
	}
	var txs []map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &txs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("limit ignored, got %d rows", len(txs))
	}
	if txs[0]["payee"] != "B" {
		t.Errorf("newest first expected, got %v", txs[0]["payee"])
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/transactions?limit=nope", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad limit: status = %d, want 400", rr.Code)
	}
}

func TestImportCSVEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := doJSON(t, srv, http.MethodPost, "/api/accounts", map[string]any{"name": "Cuenta", "type": "checking"})
	accountID := int64(decodeBody(t, rr)["id"].(float64))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fields := map[string]string{
		"account_id": fmt.Sprintf("%d", accountID),
		"date_col":   "Fecha",
		"payee_col":  "Descripción",
		"amount_col": "Monto",
		"header_row": "0",
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	fw, err := mw.CreateFormFile("file", "cartola.csv")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	csv := "Fecha;Descripción;Monto\n" +
		"12/08/2026;LIDER;-12.500\n" +
		"13/08/2026;COPEC;-8.000\n" +
		"sin fecha;X;-1\n"
	if _, err := io.WriteString(fw, csv); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/import/csv", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp := httptest.NewRecorder()
	srv.Handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("import: %d, %s", resp.Code, resp.Body.String())
	}
	body := decodeBody(t, resp)
	if body["imported"].(float64) != 2 || body["failed"].(float64) != 1 {
		t.Errorf("report = %v, want imported 2, failed 1", body)
	}
}

func TestNotFoundRoute(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := doJSON(t, srv, http.MethodGet, "/api/nope", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}
