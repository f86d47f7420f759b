package monero

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type staticCreds struct {
	user, pass string
}

func (s staticCreds) WithCredentials(fn func(user, pass string) error) error {
	return fn(s.user, s.pass)
}

type rpcEnvelope struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	ID     uint64          `json:"id"`
}

func serveOne(t *testing.T, handler func(method string, params json.RawMessage, user, pass string) interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var env rpcEnvelope
		require.NoError(t, json.NewDecoder(r.Body).Decode(&env))
		user, pass, _ := r.BasicAuth()
		result := handler(env.Method, env.Params, user, pass)
		resp := map[string]interface{}{"jsonrpc": "2.0", "id": env.ID, "result": result}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestCreateSubaddress_UsesScopedCredentials(t *testing.T) {
	srv := serveOne(t, func(method string, params json.RawMessage, user, pass string) interface{} {
		require.Equal(t, "create_subaddress", method)
		require.Equal(t, "wallet-user", user)
		require.Equal(t, "wallet-pass", pass)
		return map[string]interface{}{"address": "4Example..."}
	})
	defer srv.Close()

	c := New(srv.URL, staticCreds{user: "wallet-user", pass: "wallet-pass"})
	text, blob, err := c.CreateSubaddress(context.Background(), "swap-1")
	require.NoError(t, err)
	require.Equal(t, "4Example...", text)
	require.Equal(t, byte('4'), blob[0])
}

func TestGetTransfer_NotFound(t *testing.T) {
	srv := serveOne(t, func(method string, params json.RawMessage, user, pass string) interface{} {
		return map[string]interface{}{"found": false}
	})
	defer srv.Close()

	c := New(srv.URL, staticCreds{user: "u", pass: "p"})
	tr, err := c.GetTransfer(context.Background(), "deadbeef")
	require.NoError(t, err)
	require.Nil(t, tr)
}

func TestGetTransfer_Found(t *testing.T) {
	srv := serveOne(t, func(method string, params json.RawMessage, user, pass string) interface{} {
		return map[string]interface{}{"found": true, "amount": 500_000_000_000, "confirmations": 12}
	})
	defer srv.Close()

	c := New(srv.URL, staticCreds{user: "u", pass: "p"})
	tr, err := c.GetTransfer(context.Background(), "deadbeef")
	require.NoError(t, err)
	require.NotNil(t, tr)
	require.EqualValues(t, 500_000_000_000, tr.Amount)
	require.EqualValues(t, 12, tr.Confirmations)
}

func TestSendTransfer_ReturnsTxID(t *testing.T) {
	srv := serveOne(t, func(method string, params json.RawMessage, user, pass string) interface{} {
		require.Equal(t, "send_transfer", method)
		return "abc123"
	})
	defer srv.Close()

	c := New(srv.URL, staticCreds{user: "u", pass: "p"})
	txid, err := c.SendTransfer(context.Background(), "4Dest...", 500_000_000_000)
	require.NoError(t, err)
	require.Equal(t, "abc123", txid)
}
