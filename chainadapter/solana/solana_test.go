package solana

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"
)

type rpcEnvelope struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	ID     uint64          `json:"id"`
}

func serveOne(t *testing.T, handler func(method string, params json.RawMessage) interface{}) *httptest.Server {
	t.Helper()
	calls := 0
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var env rpcEnvelope
		require.NoError(t, json.NewDecoder(r.Body).Decode(&env))
		calls++
		result := handler(env.Method, env.Params)
		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      env.ID,
			"result":  result,
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestGetSwap_Found(t *testing.T) {
	var swapID chainhash.Hash
	swapID[0] = 0x01

	srv := serveOne(t, func(method string, params json.RawMessage) interface{} {
		require.Equal(t, "get_swap", method)
		return map[string]interface{}{
			"found":       true,
			"secret_hash": hex.EncodeToString(bytes32(0x42)),
			"usdc_amount": 1_000_000,
			"is_redeemed": false,
			"is_refunded": false,
		}
	})
	defer srv.Close()

	c := New(srv.URL, 16)
	view, err := c.GetSwap(context.Background(), swapID)
	require.NoError(t, err)
	require.NotNil(t, view)
	require.EqualValues(t, 1_000_000, view.USDCAmount)
	require.False(t, view.IsRedeemed)
}

func TestGetSwap_NotFound(t *testing.T) {
	var swapID chainhash.Hash
	swapID[0] = 0x02

	srv := serveOne(t, func(method string, params json.RawMessage) interface{} {
		return map[string]interface{}{"found": false}
	})
	defer srv.Close()

	c := New(srv.URL, 16)
	view, err := c.GetSwap(context.Background(), swapID)
	require.NoError(t, err)
	require.Nil(t, view)
}

func TestGetSwap_CachesWithinRecencyWindow(t *testing.T) {
	var swapID chainhash.Hash
	swapID[0] = 0x03
	calls := 0

	srv := serveOne(t, func(method string, params json.RawMessage) interface{} {
		calls++
		return map[string]interface{}{
			"found":       true,
			"secret_hash": hex.EncodeToString(bytes32(0x01)),
			"usdc_amount": 42,
			"is_redeemed": false,
			"is_refunded": false,
		}
	})
	defer srv.Close()

	c := New(srv.URL, 16)
	ctx := context.Background()
	_, err := c.GetSwap(ctx, swapID)
	require.NoError(t, err)
	_, err = c.GetSwap(ctx, swapID)
	require.NoError(t, err)

	require.Equal(t, 1, calls, "second call within the recency window should be served from cache")
}

func TestHealth_SurfacesRPCError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var env rpcEnvelope
		_ = json.NewDecoder(r.Body).Decode(&env)
		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      env.ID,
			"error":   map[string]interface{}{"code": -32000, "message": "node unreachable"},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := New(srv.URL, 16)
	err := c.Health(context.Background())
	require.Error(t, err)
}

func bytes32(b byte) []byte {
	out := make([]byte, 32)
	out[0] = b
	return out
}
