package httpapi

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"

	"github.com/stealthreserve/swapd/chainadapter/monero"
	"github.com/stealthreserve/swapd/chainadapter/solana"
	"github.com/stealthreserve/swapd/coordinator"
	"github.com/stealthreserve/swapd/escrow"
	"github.com/stealthreserve/swapd/metrics"
	"github.com/stealthreserve/swapd/quote"
)

type fakeSubaddresser struct {
	text string
}

func (f *fakeSubaddresser) CreateSubaddress(ctx context.Context, label string) (string, [monero.SubaddressLen]byte, error) {
	var blob [monero.SubaddressLen]byte
	copy(blob[:], f.text)
	return f.text, blob, nil
}

type fakeHealth struct {
	ok     bool
	height uint64
}

func (f *fakeHealth) Health(ctx context.Context) error {
	if f.ok {
		return nil
	}
	return context.DeadlineExceeded
}

func (f *fakeHealth) GetBlockHeight(ctx context.Context) (uint64, error) { return f.height, nil }

func newTestServer(t *testing.T) (*Server, *quote.Manager, *coordinator.Coordinator) {
	t.Helper()
	qm := quote.NewManager(quote.Range{Min: 100, Max: 10_000_000})
	co := coordinator.New(coordinator.Config{
		Quotes:  qm,
		Store:   noopStore{},
		ChainA:  noopChainA{},
		ChainB:  noopChainB{},
		Metrics: metrics.NewRegistry(),
	})
	s := New(Config{
		Quotes:       qm,
		Coordinator:  co,
		ChainB:       &fakeSubaddresser{text: "4Example..."},
		ChainAHealth: &fakeHealth{ok: true, height: 42},
		ChainBHealth: &fakeHealth{ok: true},
		Metrics:      metrics.NewRegistry(),
	})
	return s, qm, co
}

type noopStore struct{}

func (noopStore) PutTrade(t *coordinator.Trade) error             { return nil }
func (noopStore) LoadAllTrades() ([]*coordinator.Trade, error)    { return nil, nil }
func (noopStore) DeleteTrade(swapID chainhash.Hash) error         { return nil }

type noopChainA struct{}

func (noopChainA) GetSwap(ctx context.Context, swapID chainhash.Hash) (*solana.SwapView, error) { return nil, nil }
func (noopChainA) SubmitRefund(ctx context.Context, swapID chainhash.Hash) (string, error) { return "", nil }
func (noopChainA) GetBlockHeight(ctx context.Context) (uint64, error)                      { return 0, nil }
func (noopChainA) Health(ctx context.Context) error                                        { return nil }

type noopChainB struct{}

func (noopChainB) GetTransfer(ctx context.Context, txid string) (*monero.Transfer, error) { return nil, nil }
func (noopChainB) SendTransfer(ctx context.Context, destination string, amount uint64) (string, error) {
	return "", nil
}
func (noopChainB) Health(ctx context.Context) error { return nil }

func TestHandleQuote_IssuesQuote(t *testing.T) {
	s, _, _ := newTestServer(t)

	body := `{"direction":"usdc_to_xmr","usdc_amount":1000000,"xmr_amount":500000000000}`
	req := httptest.NewRequest(http.MethodPost, "/v1/quote", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp quoteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.QuoteID)
	require.Equal(t, "4Example...", resp.MoneroSubAddress)
	require.Len(t, resp.SecretHash, 64)
}

func TestHandleQuote_RejectsBadDirection(t *testing.T) {
	s, _, _ := newTestServer(t)

	body := `{"direction":"bogus","usdc_amount":1000000,"xmr_amount":1}`
	req := httptest.NewRequest(http.MethodPost, "/v1/quote", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleQuote_OutOfRangeIsLogicalError(t *testing.T) {
	s, _, _ := newTestServer(t)

	body := `{"direction":"usdc_to_xmr","usdc_amount":99999999,"xmr_amount":1}`
	req := httptest.NewRequest(http.MethodPost, "/v1/quote", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, false, resp["success"])
}

func TestHandleAccept_ThenStatus_RoundTrips(t *testing.T) {
	s, qm, _ := newTestServer(t)

	q, err := qm.Issue(quote.IssueParams{
		Direction:  escrow.UsdcToXmr,
		USDCAmount: 1_000_000,
		XMRAmount:  500,
		Now:        time.Now(),
	})
	require.NoError(t, err)

	body := `{"quote_id":"` + q.QuoteID.String() + `"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/swap/accept", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var acceptResp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &acceptResp))
	swapIDHex := acceptResp["swap_id"]
	require.Equal(t, hex.EncodeToString(q.SwapID[:]), swapIDHex)

	statusReq := httptest.NewRequest(http.MethodGet, "/v1/swap/"+swapIDHex, nil)
	statusRec := httptest.NewRecorder()
	s.ServeHTTP(statusRec, statusReq)
	require.Equal(t, http.StatusOK, statusRec.Code)

	var status statusResponse
	require.NoError(t, json.Unmarshal(statusRec.Body.Bytes(), &status))
	require.Equal(t, "LockedUsdc", status.State)
}

func TestHandleStatus_UnknownSwapIs404(t *testing.T) {
	s, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/swap/"+hex.EncodeToString(make([]byte, 32)), nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleHealth_ReportsBothChains(t *testing.T) {
	s, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.ChainAConnected)
	require.True(t, resp.ChainBConnected)
	require.EqualValues(t, 42, resp.LastBlockHeight)
}

func TestHandleMetrics_ReturnsSnapshot(t *testing.T) {
	s, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]int64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Contains(t, resp, "swaps_accepted")
}
