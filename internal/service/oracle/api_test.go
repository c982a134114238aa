package oracle

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	contract "github.com/onchainlabs/price-oracle/oracle"
	"github.com/onchainlabs/price-oracle/statestore"
)

const testOwner = "owner.testnet"

func newTestService(t *testing.T) *Service {
	t.Helper()

	c := contract.New(contract.CallEnv{Account: testOwner})
	s := NewService(c, nil, NewEventHub())
	s.now = func() uint64 { return 1737468044_994731156 }
	return s
}

func doCall(t *testing.T, srv *httptest.Server, caller, method string, args map[string]interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	body, err := json.Marshal(map[string]interface{}{
		"caller": caller,
		"method": method,
		"args":   args,
	})
	require.NoError(t, err)

	resp, err := srv.Client().Post(srv.URL+"/oracle/call", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func errorBody(t *testing.T, decoded map[string]interface{}) map[string]interface{} {
	t.Helper()
	errField, ok := decoded["error"].(map[string]interface{})
	require.True(t, ok, "expected error body, got: %v", decoded)
	return errField
}

func TestCallSurfaceScenario(t *testing.T) {
	s := newTestService(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, body := doCall(t, srv, "alice.testnet", "report_price", map[string]interface{}{
		"source": "coingecko", "price_usd": "5000000",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["ok"])

	resp, _ = doCall(t, srv, "bob.testnet", "report_price", map[string]interface{}{
		"source": "binance", "price_usd": 5200000,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// decimal USD form converts to micro-dollars at the boundary
	resp, _ = doCall(t, srv, "carol.testnet", "report_price", map[string]interface{}{
		"source": "coinmarketcap", "price": "5.40",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = doCall(t, srv, "", "get_source_count", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(3), body["count"])

	resp, body = doCall(t, srv, "", "is_valid", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["valid"])

	resp, body = doCall(t, srv, "", "get_price", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(5200000), body["price_usd"])

	resp, body = doCall(t, srv, "", "get_last_update", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1737468044), body["last_update"])

	httpResp, err := srv.Client().Get(srv.URL + "/oracle/price")
	require.NoError(t, err)
	defer httpResp.Body.Close()
	require.Equal(t, http.StatusOK, httpResp.StatusCode)

	var priceBody map[string]interface{}
	require.NoError(t, json.NewDecoder(httpResp.Body).Decode(&priceBody))
	assert.Equal(t, float64(5200000), priceBody["price_usd"])
}

func TestCallInsufficientSources(t *testing.T) {
	s := newTestService(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	doCall(t, srv, "a.testnet", "report_price", map[string]interface{}{"source": "coingecko", "price_usd": "100"})
	doCall(t, srv, "b.testnet", "report_price", map[string]interface{}{"source": "binance", "price_usd": "200"})

	resp, body := doCall(t, srv, "", "get_price", nil)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	errField := errorBody(t, body)
	assert.Equal(t, "insufficient_sources", errField["code"])
	assert.Equal(t, float64(3), errField["required"])
	assert.Equal(t, float64(2), errField["actual"])
}

func TestCallUnauthorized(t *testing.T) {
	s := newTestService(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	for _, method := range []string{"init", "set_min_sources", "clear_prices"} {
		t.Run(method, func(t *testing.T) {
			resp, body := doCall(t, srv, "mallory.testnet", method, map[string]interface{}{
				"min_sources": 1,
			})
			require.Equal(t, http.StatusForbidden, resp.StatusCode)
			assert.Equal(t, "unauthorized", errorBody(t, body)["code"])
		})
	}

	resp, _ := doCall(t, srv, testOwner, "set_min_sources", map[string]interface{}{"min_sources": 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doCall(t, srv, "", "get_min_sources", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["min_sources"])
}

func TestCallClearPrices(t *testing.T) {
	s := newTestService(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	doCall(t, srv, "a.testnet", "report_price", map[string]interface{}{"source": "coingecko", "price_usd": "100"})

	resp, _ := doCall(t, srv, testOwner, "clear_prices", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doCall(t, srv, "", "get_source_count", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(0), body["count"])

	resp, body = doCall(t, srv, "", "get_last_update", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(0), body["last_update"])
}

func TestCallBadRequests(t *testing.T) {
	s := newTestService(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	tests := []struct {
		name   string
		caller string
		method string
		args   map[string]interface{}
	}{
		{
			name:   "unknown method",
			method: "get_magic",
		},
		{
			name:   "missing caller on write",
			method: "report_price",
			args:   map[string]interface{}{"source": "coingecko", "price_usd": "100"},
		},
		{
			name:   "empty source",
			caller: "a.testnet",
			method: "report_price",
			args:   map[string]interface{}{"source": "", "price_usd": "100"},
		},
		{
			name:   "negative price",
			caller: "a.testnet",
			method: "report_price",
			args:   map[string]interface{}{"source": "coingecko", "price_usd": "-5"},
		},
		{
			name:   "fractional micro-dollars",
			caller: "a.testnet",
			method: "report_price",
			args:   map[string]interface{}{"source": "coingecko", "price_usd": "5.5"},
		},
		{
			name:   "both price fields",
			caller: "a.testnet",
			method: "report_price",
			args:   map[string]interface{}{"source": "coingecko", "price_usd": "100", "price": "1.00"},
		},
		{
			name:   "missing min_sources",
			caller: testOwner,
			method: "set_min_sources",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := doCall(t, srv, tt.caller, tt.method, tt.args)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "bad_request", errorBody(t, body)["code"])
		})
	}
}

func TestFailedWriteDoesNotBumpState(t *testing.T) {
	s := newTestService(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	doCall(t, srv, "a.testnet", "report_price", map[string]interface{}{"source": "coingecko", "price_usd": "100"})

	resp, _ := doCall(t, srv, "mallory.testnet", "clear_prices", nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	_, body := doCall(t, srv, "", "get_source_count", nil)
	assert.Equal(t, float64(1), body["count"])
}

func TestStatePersistsAcrossRestart(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "state")

	st, err := statestore.Open(dbPath)
	require.NoError(t, err)

	c := contract.New(contract.CallEnv{Account: testOwner})
	s := NewService(c, st, NewEventHub())
	srv := httptest.NewServer(s.Handler())

	doCall(t, srv, testOwner, "set_min_sources", map[string]interface{}{"min_sources": 2})
	doCall(t, srv, "a.testnet", "report_price", map[string]interface{}{"source": "coingecko", "price_usd": "100"})
	doCall(t, srv, "b.testnet", "report_price", map[string]interface{}{"source": "binance", "price_usd": "300"})

	srv.Close()
	require.NoError(t, st.Close())

	// reopen as a restarted host would
	st, err = statestore.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	loaded, err := st.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)

	restarted := NewService(contract.FromState(*loaded), st, NewEventHub())
	srv = httptest.NewServer(restarted.Handler())
	defer srv.Close()

	resp, body := doCall(t, srv, "", "get_price", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(200), body["price_usd"])
}

func TestEventStream(t *testing.T) {
	s := newTestService(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/oracle/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	doCall(t, srv, "alice.testnet", "report_price", map[string]interface{}{
		"source": "coingecko", "price_usd": "5250000",
	})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var evt Event
	require.NoError(t, conn.ReadJSON(&evt))
	assert.NotEmpty(t, evt.ID)
	assert.Contains(t, evt.Line, "coingecko")
	assert.Contains(t, evt.Line, "alice.testnet")
	assert.Contains(t, evt.Line, fmt.Sprint(5250000))
}
