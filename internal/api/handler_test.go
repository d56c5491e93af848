package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"bookshop-pos/internal/broker"
	"bookshop-pos/internal/errs"
	"bookshop-pos/internal/models"
	"bookshop-pos/internal/service"
	"bookshop-pos/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAdminToken = "s3cret"

func setupRouter(t *testing.T, opts Options) *gin.Engine {
	t.Helper()
	router, _ := setupRouterWithStore(t, opts)
	return router
}

func setupRouterWithStore(t *testing.T, opts Options) (*gin.Engine, *store.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := store.NewStore(store.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	svc := service.NewInventoryService(st, service.NewLocalLocker(), broker.NewEventPublisher(nil), false)
	require.NoError(t, svc.Seed(context.Background()))

	router := gin.New()
	NewHandler(svc, opts).SetupRoutes(router)
	return router, st
}

func defaultOptions() Options {
	return Options{AdminToken: testAdminToken, RequestTimeout: 5 * time.Second}
}

func do(router *gin.Engine, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func admin() []string {
	return []string{"Authorization", "Bearer " + testAdminToken}
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func snapshot(t *testing.T, router *gin.Engine) models.Snapshot {
	t.Helper()
	w := do(router, http.MethodGet, "/api/data", "")
	require.Equal(t, http.StatusOK, w.Code)
	var snap models.Snapshot
	decode(t, w, &snap)
	return snap
}

func TestGetDataAfterSeed(t *testing.T) {
	router := setupRouter(t, defaultOptions())

	snap := snapshot(t, router)
	assert.Len(t, snap.Books, 16)
	assert.NotNil(t, snap.Transactions)
	assert.Empty(t, snap.Transactions)
}

func TestGetCatalog(t *testing.T) {
	router := setupRouter(t, defaultOptions())

	w := do(router, http.MethodGet, "/api/catalog", "")
	require.Equal(t, http.StatusOK, w.Code)

	var entries []struct {
		Title string `json:"title"`
		Price int64  `json:"price"`
	}
	decode(t, w, &entries)
	require.Len(t, entries, 16)
	assert.Equal(t, "Beginner", entries[0].Title)
	assert.Equal(t, int64(85000), entries[0].Price)
}

func TestAddAndSellFlow(t *testing.T) {
	router := setupRouter(t, defaultOptions())

	w := do(router, http.MethodPost, "/api/books", `{"title":"Beginner","price":85000,"quantity":5}`)
	require.Equal(t, http.StatusOK, w.Code)
	var msg map[string]interface{}
	decode(t, w, &msg)
	assert.Equal(t, "Book quantity updated", msg["message"])

	w = do(router, http.MethodPost, "/api/transactions",
		`{"action":"Added","book":"Beginner","quantity":5,"total":425000,"timestamp":"1/2/2024, 10:00:00 AM"}`)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &msg)
	assert.Equal(t, "Transaction recorded", msg["message"])
	assert.NotZero(t, msg["id"])

	w = do(router, http.MethodPost, "/api/books", `{"title":"Beginner","price":85000,"quantity":-3}`)
	require.Equal(t, http.StatusOK, w.Code)

	snap := snapshot(t, router)
	assert.Equal(t, int64(2), snap.Books[0].Quantity)
	assert.Equal(t, int64(170000), snap.InventoryValue())
	require.Len(t, snap.Transactions, 1)
	assert.Equal(t, "1/2/2024, 10:00:00 AM", snap.Transactions[0].Timestamp)
}

func TestAddNewTitle(t *testing.T) {
	router := setupRouter(t, defaultOptions())

	w := do(router, http.MethodPost, "/api/books", `{"title":"Advanced","price":99000,"quantity":2}`)
	require.Equal(t, http.StatusOK, w.Code)

	var msg map[string]interface{}
	decode(t, w, &msg)
	assert.Equal(t, "Book added", msg["message"])

	snap := snapshot(t, router)
	require.Len(t, snap.Books, 17)
	assert.Equal(t, models.Book{ID: snap.Books[16].ID, Title: "Advanced", Price: 99000, Quantity: 2}, snap.Books[16])
}

func TestOversellReturnsConflict(t *testing.T) {
	router := setupRouter(t, defaultOptions())

	w := do(router, http.MethodPost, "/api/books", `{"title":"Beginner","price":85000,"quantity":-1}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	var body map[string]string
	decode(t, w, &body)
	assert.Equal(t, "Failed to update book", body["error"])
	assert.Contains(t, body["details"], "insufficient stock")
}

func TestAdjustStockBadRequests(t *testing.T) {
	router := setupRouter(t, defaultOptions())

	cases := map[string]string{
		"malformed":        `{"title":`,
		"blank title":      `{"title":"   ","quantity":1}`,
		"missing quantity": `{"title":"Beginner"}`,
		"string quantity":  `{"title":"Beginner","quantity":"two"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w := do(router, http.MethodPost, "/api/books", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestRecordTransactionRequiresFields(t *testing.T) {
	router := setupRouter(t, defaultOptions())

	w := do(router, http.MethodPost, "/api/transactions", `{"book":"Beginner","quantity":1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, http.MethodPost, "/api/transactions", `{"action":"Sold","quantity":1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecordTransactionFillsMissingTimestamp(t *testing.T) {
	router := setupRouter(t, defaultOptions())

	w := do(router, http.MethodPost, "/api/transactions", `{"action":"Sold","book":"Beginner","quantity":1,"total":85000}`)
	require.Equal(t, http.StatusOK, w.Code)

	snap := snapshot(t, router)
	require.Len(t, snap.Transactions, 1)
	_, err := time.ParseInLocation(models.TimestampLayout, snap.Transactions[0].Timestamp, time.Local)
	assert.NoError(t, err)
}

func TestSetBookQuantity(t *testing.T) {
	router := setupRouter(t, defaultOptions())
	id := snapshot(t, router).Books[2].ID

	w := do(router, http.MethodPut, "/api/books/"+itoa(id), `{"quantity":7}`, admin()...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(7), snapshot(t, router).Books[2].Quantity)

	w = do(router, http.MethodPut, "/api/books/99999", `{"quantity":7}`, admin()...)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(router, http.MethodPut, "/api/books/abc", `{"quantity":7}`, admin()...)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, http.MethodPut, "/api/books/"+itoa(id), `{}`, admin()...)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, http.MethodPut, "/api/books/"+itoa(id), `{"quantity":-4}`, admin()...)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminAuth(t *testing.T) {
	router := setupRouter(t, defaultOptions())

	w := do(router, http.MethodDelete, "/api/transactions/1", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(router, http.MethodDelete, "/api/transactions/1", "", "Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(router, http.MethodDelete, "/api/transactions/1", "", admin()...)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminDisabledWithoutToken(t *testing.T) {
	router := setupRouter(t, Options{})

	w := do(router, http.MethodPut, "/api/books/1", `{"quantity":1}`, "Authorization", "Bearer ")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDeleteTransactionIdempotent(t *testing.T) {
	router := setupRouter(t, defaultOptions())

	do(router, http.MethodPost, "/api/transactions", `{"action":"Added","book":"Beginner","quantity":1,"total":85000,"timestamp":"t1"}`)
	do(router, http.MethodPost, "/api/transactions", `{"action":"Added","book":"Elementary","quantity":1,"total":85000,"timestamp":"t2"}`)
	snap := snapshot(t, router)
	require.Len(t, snap.Transactions, 2)
	id := snap.Transactions[0].ID

	w := do(router, http.MethodDelete, "/api/transactions/"+itoa(id), "", admin()...)
	require.Equal(t, http.StatusOK, w.Code)
	w = do(router, http.MethodDelete, "/api/transactions/"+itoa(id), "", admin()...)
	require.Equal(t, http.StatusOK, w.Code)

	snap = snapshot(t, router)
	require.Len(t, snap.Transactions, 1)
	assert.Equal(t, "Elementary", snap.Transactions[0].Book)

	w = do(router, http.MethodDelete, "/api/transactions/x1", "", admin()...)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportCSV(t *testing.T) {
	router := setupRouter(t, defaultOptions())

	w := do(router, http.MethodGet, "/api/export/books.csv", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	lines := strings.Split(w.Body.String(), "\n")
	require.Len(t, lines, 17)
	assert.Equal(t, "id,title,price,quantity", lines[0])
	assert.True(t, strings.HasSuffix(lines[1], `,"Beginner",85000,0`))

	w = do(router, http.MethodGet, "/api/export/transactions.csv", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestHealthAndReady(t *testing.T) {
	router := setupRouter(t, defaultOptions())

	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/ready", "").Code)
	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/metrics", "").Code)
}

func TestServesClient(t *testing.T) {
	router := setupRouter(t, defaultOptions())

	w := do(router, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/static/app.js")

	w = do(router, http.MethodGet, "/static/app.js", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimit(t *testing.T) {
	opts := defaultOptions()
	opts.RateLimitRPS = 0.001
	opts.RateLimitBurst = 1
	router := setupRouter(t, opts)

	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/api/catalog", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(router, http.MethodGet, "/api/catalog", "").Code)
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}

func TestStorageFailureReturnsErrorBody(t *testing.T) {
	router, st := setupRouterWithStore(t, defaultOptions())
	require.NoError(t, st.Close())

	cases := []struct {
		name    string
		method  string
		path    string
		body    string
		headers []string
		summary string
	}{
		{"list data", http.MethodGet, "/api/data", "", nil, "Failed to load data"},
		{"add book", http.MethodPost, "/api/books", `{"title":"Beginner","quantity":1}`, nil, "Failed to update book"},
		{"record transaction", http.MethodPost, "/api/transactions",
			`{"action":"Added","book":"Beginner","quantity":1,"total":85000,"timestamp":"1/2/2024, 10:00:00 AM"}`, nil,
			"Failed to record transaction"},
		{"delete transaction", http.MethodDelete, "/api/transactions/1", "", admin(), "Failed to delete transaction"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(router, tc.method, tc.path, tc.body, tc.headers...)
			require.Equal(t, http.StatusInternalServerError, w.Code)

			var body map[string]string
			decode(t, w, &body)
			assert.Equal(t, tc.summary, body["error"])
			assert.Contains(t, body["details"], "storage")
		})
	}
}

func TestStatusForLockTimeout(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(errs.Lock("title", context.DeadlineExceeded)))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errs.Lock("title", errors.New("redis down"))))
	assert.Equal(t, http.StatusConflict, statusFor(&errs.StockViolationError{Title: "Beginner"}))
}
