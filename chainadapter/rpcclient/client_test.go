package rpcclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCall_DecodesResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "ping", req.Method)
		resp := response{JSONRPC: "2.0", ID: req.ID, Result: json.RawMessage(`{"ok":true}`)}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	c := New(srv.URL)
	var out struct {
		OK bool `json:"ok"`
	}
	err := c.Call(context.Background(), "ping", nil, &out)
	require.NoError(t, err)
	require.True(t, out.OK)
}

func TestCall_SurfacesRPCError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req request
		_ = json.NewDecoder(r.Body).Decode(&req)
		resp := response{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: -32601, Message: "method not found"}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := New(srv.URL)
	err := c.Call(context.Background(), "nonexistent", nil, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "method not found")
}

func TestCallWithAuth_AttachesBasicAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "alice", user)
		require.Equal(t, "hunter2", pass)
		var req request
		_ = json.NewDecoder(r.Body).Decode(&req)
		resp := response{JSONRPC: "2.0", ID: req.ID, Result: json.RawMessage(`null`)}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := New(srv.URL)
	err := c.CallWithAuth(context.Background(), "secure_method", nil, nil, "alice", "hunter2")
	require.NoError(t, err)
}
