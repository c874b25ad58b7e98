package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"daybook/internal/logger"
	"daybook/internal/middleware"
	"daybook/internal/testutil"
)

const testSecret = "flow-secret"

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
}

// testApp holds the full application stack for flow tests.
type testApp struct {
	server *Server
}

func setupApp(t *testing.T, opts Options) *testApp {
	t.Helper()

	db := testutil.SetupTestDB(t)
	if opts.JWTSecret == "" {
		opts.JWTSecret = testSecret
	}
	srv, err := New(db, opts)
	if err != nil {
		t.Fatalf("failed to build server: %v", err)
	}
	t.Cleanup(func() {
		srv.Close()
		testutil.TeardownTestDB(t, db)
	})
	return &testApp{server: srv}
}

func token(t *testing.T, actor string) string {
	t.Helper()
	tok, err := middleware.IssueToken(testSecret, actor, time.Hour)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	return tok
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, tok string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	app.server.Router.ServeHTTP(rec, req)
	return rec
}

// expect makes a request, checks the status and returns the parsed body.
func (app *testApp) expect(t *testing.T, status int, method, path, body, tok string) map[string]interface{} {
	t.Helper()
	rec := app.request(method, path, body, tok)
	if rec.Code != status {
		t.Fatalf("%s %s: expected %d, got %d: %s", method, path, status, rec.Code, rec.Body.String())
	}
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func (app *testApp) createMain(t *testing.T, tok, name string) string {
	t.Helper()
	result := app.expect(t, http.StatusCreated, "POST", "/api/v1/main-accounts", fmt.Sprintf(`{"name":%q}`, name), tok)
	return result["main_account"].(map[string]interface{})["id"].(string)
}

func (app *testApp) createSub(t *testing.T, tok, name, mainID string) string {
	t.Helper()
	result := app.expect(t, http.StatusCreated, "POST", "/api/v1/sub-accounts",
		fmt.Sprintf(`{"name":%q,"main_account_id":%q}`, name, mainID), tok)
	return result["sub_account"].(map[string]interface{})["id"].(string)
}

func (app *testApp) record(t *testing.T, tok, mainID, subID, txType, amount, date, description string) string {
	t.Helper()
	body := fmt.Sprintf(`{"main_account_id":%q,"sub_account_id":%q,"type":%q,"amount":%q,"date":%q,"description":%q}`,
		mainID, subID, txType, amount, date, description)
	result := app.expect(t, http.StatusCreated, "POST", "/api/v1/transactions", body, tok)
	return result["transaction"].(map[string]interface{})["id"].(string)
}

func ledgerOf(result map[string]interface{}) map[string]interface{} {
	return result["ledger"].(map[string]interface{})
}

func assertTotals(t *testing.T, view map[string]interface{}, credit, debit, balance string, count int) {
	t.Helper()
	if view["total_credit"] != credit || view["total_debit"] != debit || view["balance"] != balance {
		t.Errorf("expected totals %s/%s/%s, got %v/%v/%v", credit, debit, balance,
			view["total_credit"], view["total_debit"], view["balance"])
	}
	if txs := view["transactions"].([]interface{}); len(txs) != count {
		t.Errorf("expected %d transactions, got %d", count, len(txs))
	}
}

type books struct {
	household, salary string
	rent, wages       string
	paycheck, rentTx  string
}

func (app *testApp) seed(t *testing.T, tok string) books {
	t.Helper()
	var b books
	b.household = app.createMain(t, tok, "Household")
	b.salary = app.createMain(t, tok, "Salary")
	b.rent = app.createSub(t, tok, "Rent", b.household)
	b.wages = app.createSub(t, tok, "Wages", b.salary)
	b.paycheck = app.record(t, tok, b.salary, b.wages, "credit", "100", "2024-01-05", "paycheck")
	b.rentTx = app.record(t, tok, b.household, b.rent, "debit", "60", "2024-01-10", "rent")
	app.record(t, tok, b.household, b.rent, "debit", "10", "2024-01-20", "late fee")
	return b
}

func TestLedgerFlow_FilterDeleteUndo(t *testing.T) {
	app := setupApp(t, Options{})
	ana := token(t, "ana")
	b := app.seed(t, ana)

	// Unfiltered view
	view := ledgerOf(app.expect(t, http.StatusOK, "GET", "/api/v1/transactions", "", ana))
	assertTotals(t, view, "100", "70", "30", 3)
	first := view["transactions"].([]interface{})[0].(map[string]interface{})
	if first["description"] != "late fee" {
		t.Errorf("expected newest first, got %v", first["description"])
	}
	if first["sub_account"].(map[string]interface{})["name"] != "Rent" {
		t.Error("expected the joined sub account")
	}

	// Filter to Household; the filter is remembered for later reads
	view = ledgerOf(app.expect(t, http.StatusOK, "POST", "/api/v1/transactions/filters",
		fmt.Sprintf(`{"main_account_id":%q}`, b.household), ana))
	assertTotals(t, view, "0", "70", "-70", 2)
	view = ledgerOf(app.expect(t, http.StatusOK, "GET", "/api/v1/transactions", "", ana))
	assertTotals(t, view, "0", "70", "-70", 2)

	// Another actor keeps an independent session
	bo := token(t, "bo")
	view = ledgerOf(app.expect(t, http.StatusOK, "GET", "/api/v1/transactions", "", bo))
	assertTotals(t, view, "100", "70", "30", 3)

	// Delete archives the transaction
	app.expect(t, http.StatusOK, "DELETE", "/api/v1/transactions/"+b.rentTx, "", ana)
	view = ledgerOf(app.expect(t, http.StatusOK, "GET", "/api/v1/transactions", "", ana))
	assertTotals(t, view, "0", "10", "-10", 1)

	archive := app.expect(t, http.StatusOK, "GET", "/api/v1/archive", "", ana)
	if archive["total_items"] != float64(1) {
		t.Fatalf("expected 1 archived entry, got %v", archive["total_items"])
	}
	entry := archive["data"].([]interface{})[0].(map[string]interface{})
	if entry["original_id"] != b.rentTx {
		t.Errorf("expected archive of %s, got %v", b.rentTx, entry["original_id"])
	}

	// Deleting again is not found in the view
	app.expect(t, http.StatusNotFound, "DELETE", "/api/v1/transactions/"+b.rentTx, "", ana)

	// Undo restores it under a new identity
	restored := app.expect(t, http.StatusCreated, "POST", "/api/v1/transactions/"+b.rentTx+"/undo", "", ana)
	tx := restored["transaction"].(map[string]interface{})
	if tx["id"] == b.rentTx {
		t.Error("restored transaction must get a new id")
	}
	if tx["amount"] != "60" || tx["description"] != "rent" || tx["created_by"] != "ana" {
		t.Errorf("unexpected restored fields: %v", tx)
	}
	view = ledgerOf(app.expect(t, http.StatusOK, "GET", "/api/v1/transactions", "", ana))
	assertTotals(t, view, "0", "70", "-70", 2)

	archive = app.expect(t, http.StatusOK, "GET", "/api/v1/archive", "", ana)
	if archive["total_items"] != float64(0) {
		t.Errorf("expected the archive to be empty, got %v", archive["total_items"])
	}

	// A second undo has nothing left
	app.expect(t, http.StatusNotFound, "POST", "/api/v1/transactions/"+b.rentTx+"/undo", "", ana)

	// Every mutation is audited
	audit := app.expect(t, http.StatusOK, "GET", "/api/v1/audit-logs?page_size=100", "", ana)
	if audit["total_items"] != float64(9) {
		t.Errorf("expected 9 audit entries, got %v", audit["total_items"])
	}
}

func TestLedgerFlow_UpdateTransaction(t *testing.T) {
	app := setupApp(t, Options{})
	ana := token(t, "ana")
	b := app.seed(t, ana)

	view := ledgerOf(app.expect(t, http.StatusOK, "PUT", "/api/v1/transactions/"+b.paycheck,
		`{"amount":"150","description":"bonus month"}`, ana))
	assertTotals(t, view, "150", "70", "80", 3)

	got := app.expect(t, http.StatusOK, "GET", "/api/v1/transactions/"+b.paycheck, "", ana)
	if got["transaction"].(map[string]interface{})["description"] != "bonus month" {
		t.Errorf("expected updated description, got %v", got["transaction"])
	}

	// Moving the transaction to a sub account of another main account is rejected
	result := app.expect(t, http.StatusUnprocessableEntity, "PUT", "/api/v1/transactions/"+b.paycheck,
		fmt.Sprintf(`{"sub_account_id":%q}`, b.rent), ana)
	errObj := result["error"].(map[string]interface{})
	if errObj["code"] != "SUB_ACCOUNT_MISMATCH" || errObj["kind"] != "REFERENTIAL_INTEGRITY" {
		t.Errorf("unexpected error: %v", errObj)
	}
}

func TestLedgerFlow_PeriodSummaryAndDashboard(t *testing.T) {
	app := setupApp(t, Options{})
	ana := token(t, "ana")
	b := app.seed(t, ana)
	app.record(t, ana, b.salary, b.wages, "credit", "100", "2024-02-05", "paycheck")

	view := ledgerOf(app.expect(t, http.StatusOK, "POST", "/api/v1/transactions/filters", `{"summary":"monthly"}`, ana))
	periods := view["periods"].([]interface{})
	if len(periods) != 2 {
		t.Fatalf("expected 2 monthly periods, got %d", len(periods))
	}
	if label := periods[0].(map[string]interface{})["label"]; label != "2024-02" {
		t.Errorf("expected newest period first, got %v", label)
	}

	dashboard := app.expect(t, http.StatusOK, "GET", "/api/v1/dashboard", "", ana)["dashboard"].(map[string]interface{})
	if dashboard["balance"] != "130" || dashboard["transaction_count"] != float64(4) {
		t.Errorf("unexpected dashboard totals: %v", dashboard)
	}
	if recent := dashboard["recent_transactions"].([]interface{}); len(recent) != 4 {
		t.Errorf("expected 4 recent transactions, got %d", len(recent))
	}

	// The dashboard does not disturb the caller's filters
	view = ledgerOf(app.expect(t, http.StatusOK, "GET", "/api/v1/transactions", "", ana))
	if view["filters"].(map[string]interface{})["summary"] != "monthly" {
		t.Errorf("expected remembered filters, got %v", view["filters"])
	}
}

func TestLedgerFlow_Search(t *testing.T) {
	app := setupApp(t, Options{})
	ana := token(t, "ana")
	app.seed(t, ana)

	view := ledgerOf(app.expect(t, http.StatusOK, "POST", "/api/v1/transactions/filters", `{"search":"RENT"}`, ana))
	assertTotals(t, view, "0", "70", "-70", 2)

	view = ledgerOf(app.expect(t, http.StatusOK, "POST", "/api/v1/transactions/filters", `{"search":"wages"}`, ana))
	assertTotals(t, view, "100", "0", "100", 1)

	// remembered like any other filter
	view = ledgerOf(app.expect(t, http.StatusOK, "GET", "/api/v1/transactions", "", ana))
	assertTotals(t, view, "100", "0", "100", 1)
	if view["filters"].(map[string]interface{})["search"] != "wages" {
		t.Errorf("expected the search in the view filters, got %v", view["filters"])
	}
}

func TestLedgerFlow_RejectsUnstorableAmounts(t *testing.T) {
	app := setupApp(t, Options{})
	ana := token(t, "ana")
	b := app.seed(t, ana)

	for _, amount := range []string{"0.001", "1.005", "1000000000000"} {
		body := fmt.Sprintf(`{"main_account_id":%q,"sub_account_id":%q,"type":"debit","amount":%q}`, b.household, b.rent, amount)
		result := app.expect(t, http.StatusBadRequest, "POST", "/api/v1/transactions", body, ana)
		errObj := result["error"].(map[string]interface{})
		if errObj["code"] != "INVALID_AMOUNT" || errObj["kind"] != "VALIDATION" {
			t.Errorf("amount %s: unexpected error %v", amount, errObj)
		}
	}

	view := ledgerOf(app.expect(t, http.StatusOK, "GET", "/api/v1/transactions", "", ana))
	assertTotals(t, view, "100", "70", "30", 3)
}

func TestAccountFlow_DependentsBlockDeletes(t *testing.T) {
	app := setupApp(t, Options{})
	ana := token(t, "ana")
	b := app.seed(t, ana)

	result := app.expect(t, http.StatusConflict, "DELETE", "/api/v1/main-accounts/"+b.household, "", ana)
	errObj := result["error"].(map[string]interface{})
	if errObj["code"] != "MAIN_ACCOUNT_HAS_DEPENDENTS" || errObj["kind"] != "HAS_DEPENDENTS" {
		t.Errorf("unexpected error: %v", errObj)
	}
	app.expect(t, http.StatusOK, "GET", "/api/v1/main-accounts/"+b.household, "", ana)
	subs := app.expect(t, http.StatusOK, "GET", "/api/v1/sub-accounts?main_account_id="+b.household, "", ana)
	if len(subs["sub_accounts"].([]interface{})) != 1 {
		t.Errorf("sub accounts should be untouched, got %v", subs["sub_accounts"])
	}

	result = app.expect(t, http.StatusConflict, "DELETE", "/api/v1/sub-accounts/"+b.rent, "", ana)
	if result["error"].(map[string]interface{})["code"] != "SUB_ACCOUNT_HAS_DEPENDENTS" {
		t.Errorf("unexpected error: %v", result["error"])
	}

	// An unused chain can be removed bottom up
	travel := app.createMain(t, ana, "Travel")
	flights := app.createSub(t, ana, "Flights", travel)
	app.expect(t, http.StatusConflict, "DELETE", "/api/v1/main-accounts/"+travel, "", ana)
	app.expect(t, http.StatusOK, "DELETE", "/api/v1/sub-accounts/"+flights, "", ana)
	app.expect(t, http.StatusOK, "DELETE", "/api/v1/main-accounts/"+travel, "", ana)
	app.expect(t, http.StatusNotFound, "GET", "/api/v1/main-accounts/"+travel, "", ana)
}

func TestAccountFlow_InlineAccounts(t *testing.T) {
	app := setupApp(t, Options{})
	ana := token(t, "ana")

	result := app.expect(t, http.StatusCreated, "POST", "/api/v1/transactions",
		`{"new_main_account_name":"Travel","new_sub_account_name":"Flights","type":"debit","amount":"250","date":"2024-03-01"}`, ana)
	tx := result["transaction"].(map[string]interface{})

	mains := app.expect(t, http.StatusOK, "GET", "/api/v1/main-accounts", "", ana)["main_accounts"].([]interface{})
	if len(mains) != 1 || mains[0].(map[string]interface{})["id"] != tx["main_account_id"] {
		t.Errorf("expected the inline main account, got %v", mains)
	}
	app.expect(t, http.StatusOK, "GET", "/api/v1/sub-accounts/"+tx["sub_account_id"].(string), "", ana)

	app.expect(t, http.StatusUnprocessableEntity, "POST", "/api/v1/sub-accounts",
		`{"name":"Orphan","main_account_id":"0190a3c4-5b6d-7e8f-9a0b-1c2d3e4f5a6b"}`, ana)
}

func TestIdentity(t *testing.T) {
	t.Run("health needs no identity", func(t *testing.T) {
		app := setupApp(t, Options{})
		app.expect(t, http.StatusOK, "GET", "/api/health", "", "")
	})

	t.Run("unknown routes use the error format", func(t *testing.T) {
		app := setupApp(t, Options{})
		result := app.expect(t, http.StatusNotFound, "GET", "/api/v1/ledgers", "", "")
		errObj := result["error"].(map[string]interface{})
		if errObj["code"] != "NOT_FOUND" || errObj["kind"] != "NOT_FOUND" {
			t.Errorf("unexpected error: %v", errObj)
		}
	})

	t.Run("rejects anonymous callers", func(t *testing.T) {
		app := setupApp(t, Options{})
		result := app.expect(t, http.StatusUnauthorized, "GET", "/api/v1/main-accounts", "", "")
		if result["error"].(map[string]interface{})["kind"] != "UNAUTHORIZED" {
			t.Errorf("unexpected error: %v", result["error"])
		}
	})

	t.Run("falls back to the default actor", func(t *testing.T) {
		app := setupApp(t, Options{DefaultActor: "desk"})
		app.createMain(t, "", "Household")

		audit := app.expect(t, http.StatusOK, "GET", "/api/v1/audit-logs", "", "")
		entry := audit["data"].([]interface{})[0].(map[string]interface{})
		if entry["actor"] != "desk" {
			t.Errorf("expected actor desk, got %v", entry["actor"])
		}
	})
}

func TestRateLimit(t *testing.T) {
	app := setupApp(t, Options{RateLimit: "2-M"})

	app.expect(t, http.StatusOK, "GET", "/api/health", "", "")
	app.expect(t, http.StatusOK, "GET", "/api/health", "", "")
	app.expect(t, http.StatusTooManyRequests, "GET", "/api/health", "", "")
}

func TestNew_RejectsBadRateLimit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	if _, err := New(db, Options{JWTSecret: testSecret, RateLimit: "fast"}); err == nil {
		t.Fatal("expected an error for a malformed rate limit")
	}
}

func TestCORSConfig(t *testing.T) {
	if cfg := corsConfig([]string{"*"}); !cfg.AllowAllOrigins || len(cfg.AllowOrigins) != 0 {
		t.Errorf("wildcard should allow all origins: %+v", cfg)
	}
	cfg := corsConfig([]string{"https://books.example"})
	if cfg.AllowAllOrigins || len(cfg.AllowOrigins) != 1 {
		t.Errorf("expected explicit origins: %+v", cfg)
	}
}
