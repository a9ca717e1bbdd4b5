package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kairos-exchange/orderbook/internal/book"
	"github.com/kairos-exchange/orderbook/internal/feed"
	"github.com/kairos-exchange/orderbook/internal/telemetry"
)

func newTestServer(t *testing.T) *Server {
	gin.SetMode(gin.TestMode)
	b := book.NewBook()
	t.Cleanup(b.Close)

	reg := prometheus.NewRegistry()
	metrics := telemetry.New(reg)
	hub := feed.NewHub(2, 32)

	return New(b, hub, metrics, reg, book.DefaultTickScale, zap.NewNop())
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandlePlaceOrder_RestsWhenNoCross(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s.Router(), http.MethodPost, "/orders", placeOrderRequest{
		OrderId:   ptr(uint64(1)),
		Side:      "Buy",
		OrderType: "GoodTillCancel",
		Price:     100,
		Quantity:  10,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp placeOrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, uint64(1), resp.OrderId)
	assert.Empty(t, resp.Trades)
}

func TestHandlePlaceOrder_ProducesTradeOnCross(t *testing.T) {
	s := newTestServer(t)
	doJSON(t, s.Router(), http.MethodPost, "/orders", placeOrderRequest{
		OrderId: ptr(uint64(1)), Side: "Buy", OrderType: "GoodTillCancel", Price: 100, Quantity: 10,
	})
	rec := doJSON(t, s.Router(), http.MethodPost, "/orders", placeOrderRequest{
		OrderId: ptr(uint64(2)), Side: "Sell", OrderType: "GoodTillCancel", Price: 100, Quantity: 4,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp placeOrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Trades, 1)
	assert.Equal(t, uint64(1), resp.Trades[0].BidOrderId)
	assert.Equal(t, uint64(2), resp.Trades[0].AskOrderId)
}

func TestHandlePlaceOrder_RejectsUnknownSide(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s.Router(), http.MethodPost, "/orders", placeOrderRequest{
		OrderId: ptr(uint64(1)), Side: "Sideways", OrderType: "GoodTillCancel", Price: 100, Quantity: 10,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleCancelOrder_RemovesResident(t *testing.T) {
	s := newTestServer(t)
	doJSON(t, s.Router(), http.MethodPost, "/orders", placeOrderRequest{
		OrderId: ptr(uint64(1)), Side: "Buy", OrderType: "GoodTillCancel", Price: 100, Quantity: 10,
	})

	rec := doJSON(t, s.Router(), http.MethodDelete, "/orders/1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	book := doJSON(t, s.Router(), http.MethodGet, "/book", nil)
	assert.Equal(t, http.StatusOK, book.Code)
	assert.JSONEq(t, `{"bids":[],"asks":[]}`, book.Body.String())
}

func TestHandleGetBook_ReflectsRestingOrders(t *testing.T) {
	s := newTestServer(t)
	doJSON(t, s.Router(), http.MethodPost, "/orders", placeOrderRequest{
		OrderId: ptr(uint64(1)), Side: "Buy", OrderType: "GoodTillCancel", Price: 100, Quantity: 10,
	})

	rec := doJSON(t, s.Router(), http.MethodGet, "/book", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Bids []struct {
			Price    string `json:"price"`
			Quantity string `json:"quantity"`
		} `json:"bids"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Bids, 1)
	assert.Equal(t, "100", got.Bids[0].Price)
	assert.Equal(t, "10", got.Bids[0].Quantity)
}

func TestMetricsEndpoint_ExposesRegisteredSeries(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s.Router(), http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "orderbook_resident_orders")
}

func ptr[T any](v T) *T { return &v }
