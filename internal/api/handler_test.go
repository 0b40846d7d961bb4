package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"upc-catalog/catalog"
	"upc-catalog/internal/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T, records ...*types.CatalogRecord) (*gin.Engine, *catalog.Catalog) {
	t.Helper()
	store := catalog.NewMemory()
	for _, r := range records {
		_, err := store.Upsert(context.Background(), r)
		require.NoError(t, err)
	}
	logger, _ := logtest.NewNullLogger()
	return NewRouter(store, logger), store
}

func do(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func sample(id, title string, retailers ...string) *types.CatalogRecord {
	r := &types.CatalogRecord{ID: id, Title: title, WeightUnit: "kg", Weight: 1}
	for _, name := range retailers {
		r.Retailers = append(r.Retailers, types.RetailerOffer{
			Retailer: name,
			Price:    decimal.NewFromInt(10),
			Currency: "USD",
		})
	}
	return r
}

func decodeMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	msg, _ := body["message"].(string)
	return msg
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t)

	w := do(router, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestCreate(t *testing.T) {
	router, store := newTestRouter(t)
	body := `{"id":"123456789012","title":"Wrench","weight":1.5,"weightUnit":"kg",
		"retailers":[{"retailer":"Acme","productUrl":"https://acme.example/products/wrench","price":"19.99","currency":"CAD"}]}`

	w := do(router, http.MethodPost, "/upc", body)

	require.Equal(t, http.StatusCreated, w.Code)
	var created types.CatalogRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "123456789012", created.ID)

	stored, err := store.Get(context.Background(), "123456789012")
	require.NoError(t, err)
	assert.Equal(t, "Wrench", stored.Title)
	require.Len(t, stored.Retailers, 1)
	assert.True(t, stored.Retailers[0].Price.Equal(decimal.RequireFromString("19.99")))

	w = do(router, http.MethodPost, "/upc", body)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCreate_BadRequests(t *testing.T) {
	router, _ := newTestRouter(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"id":`},
		{"invalid id", `{"id":"12-3456","title":"x"}`},
		{"duplicate retailer", `{"id":"123456789012","retailers":[{"retailer":"a"},{"retailer":"a"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(router, http.MethodPost, "/upc", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestGet(t *testing.T) {
	router, _ := newTestRouter(t, sample("123456789012", "Wrench", "Acme"))

	w := do(router, http.MethodGet, "/upc/123456789012", "")
	require.Equal(t, http.StatusOK, w.Code)
	var record types.CatalogRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &record))
	assert.Equal(t, "Wrench", record.Title)
	assert.Equal(t, "Acme", record.Retailers[0].Retailer)

	w = do(router, http.MethodGet, "/upc/000000000000", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Entry not found", decodeMessage(t, w))
}

func TestUpdate(t *testing.T) {
	router, store := newTestRouter(t, sample("123456789012", "Wrench", "Acme", "Beta"))

	w := do(router, http.MethodPut, "/upc/123456789012", `{"title":"Torque Wrench"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Entry updated successfully", decodeMessage(t, w))

	stored, err := store.Get(context.Background(), "123456789012")
	require.NoError(t, err)
	assert.Equal(t, "Torque Wrench", stored.Title)
	assert.Len(t, stored.Retailers, 2)

	w = do(router, http.MethodPut, "/upc/000000000000", `{"title":"x"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(router, http.MethodPut, "/upc/123456789012", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDelete(t *testing.T) {
	router, _ := newTestRouter(t, sample("123456789012", "Wrench", "Acme"))

	w := do(router, http.MethodDelete, "/upc/123456789012", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Entry deleted successfully", decodeMessage(t, w))

	w = do(router, http.MethodDelete, "/upc/123456789012", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type listResponse struct {
	Total  int                   `json:"total"`
	Limit  int                   `json:"limit"`
	Offset int                   `json:"offset"`
	Items  []types.CatalogRecord `json:"items"`
}

func TestList(t *testing.T) {
	router, _ := newTestRouter(t,
		sample("000000000003", "Wool Runner", "Acme"),
		sample("000000000001", "Tree Dasher", "Acme"),
		sample("000000000002", "Wool Lounger", "Beta"),
	)

	decode := func(w *httptest.ResponseRecorder) listResponse {
		require.Equal(t, http.StatusOK, w.Code)
		var resp listResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		return resp
	}
	ids := func(resp listResponse) []string {
		out := make([]string, 0, len(resp.Items))
		for _, r := range resp.Items {
			out = append(out, r.ID)
		}
		return out
	}

	resp := decode(do(router, http.MethodGet, "/upc", ""))
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, defaultLimit, resp.Limit)
	assert.Equal(t, []string{"000000000001", "000000000002", "000000000003"}, ids(resp))

	resp = decode(do(router, http.MethodGet, "/upc?q=wool&sort=title", ""))
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, []string{"000000000002", "000000000003"}, ids(resp))

	resp = decode(do(router, http.MethodGet, "/upc?sort=-title&limit=1&offset=1", ""))
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, []string{"000000000002"}, ids(resp))

	resp = decode(do(router, http.MethodGet, "/upc?offset=10", ""))
	assert.Empty(t, resp.Items)
}

func TestCounts(t *testing.T) {
	router, _ := newTestRouter(t,
		sample("000000000001", "a", "Acme", "Beta"),
		sample("000000000002", "b", "Acme"),
	)

	w := do(router, http.MethodGet, "/retailers", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"value":"Acme","count":2},{"value":"Beta","count":1}]`, w.Body.String())

	w = do(router, http.MethodGet, "/weight-units", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"value":"kg","count":2}]`, w.Body.String())
}

type brokenStore struct {
	*catalog.Catalog
}

func (brokenStore) List(ctx context.Context) ([]types.CatalogRecord, error) {
	return nil, errors.New("connection reset")
}

func TestList_StoreError(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	router := NewRouter(brokenStore{catalog.NewMemory()}, logger)

	w := do(router, http.MethodGet, "/upc", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"connection reset"}`, w.Body.String())
	require.NotNil(t, hook.LastEntry())
	assert.Contains(t, hook.LastEntry().Message, "connection reset")
}

func TestCORS(t *testing.T) {
	router, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://dashboard.example")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
