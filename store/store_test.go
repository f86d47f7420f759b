package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/stealthreserve/swapd/coordinator"
	"github.com/stealthreserve/swapd/escrow"
)

func sampleTrade() *coordinator.Trade {
	var swapID, secretHash chainhash.Hash
	swapID[0] = 0x01
	secretHash[0] = 0x42

	now := time.Unix(1_700_000_000, 0)
	return &coordinator.Trade{
		SwapID:               swapID,
		QuoteID:               uuid.New(),
		Direction:             escrow.UsdcToXmr,
		SecretHash:            secretHash,
		USDCAmount:            1_000_000,
		XMRAmount:             500_000_000_000,
		MoneroSubAddressText:  "4Example...",
		CreatedAt:             now,
		ExpiresAt:             now.Add(30 * time.Minute),
		State:                 coordinator.LockedUsdc,
	}
}

func TestPutTrade_ThenLoadAllTrades_RoundTrips(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "swapd.db")
	s, err := Open(dbPath)
	require.NoError(t, err)
	defer s.Close()

	want := sampleTrade()
	require.NoError(t, s.PutTrade(want))

	all, err := s.LoadAllTrades()
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, want.SwapID, all[0].SwapID)
	require.Equal(t, want.QuoteID, all[0].QuoteID)
	require.Equal(t, want.USDCAmount, all[0].USDCAmount)
	require.Equal(t, want.State, all[0].State)
}

func TestPutTrade_UpsertsOnSwapID(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "swapd.db")
	s, err := Open(dbPath)
	require.NoError(t, err)
	defer s.Close()

	trade := sampleTrade()
	require.NoError(t, s.PutTrade(trade))

	trade.State = coordinator.Redeemed
	require.NoError(t, s.PutTrade(trade))

	all, err := s.LoadAllTrades()
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, coordinator.Redeemed, all[0].State)
}

func TestDeleteTrade_RemovesRecord(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "swapd.db")
	s, err := Open(dbPath)
	require.NoError(t, err)
	defer s.Close()

	trade := sampleTrade()
	require.NoError(t, s.PutTrade(trade))
	require.NoError(t, s.DeleteTrade(trade.SwapID))

	all, err := s.LoadAllTrades()
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestOpen_ReappliesNoMigrationsOnRestart(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "swapd.db")
	s1, err := Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, s1.PutTrade(sampleTrade()))
	require.NoError(t, s1.Close())

	s2, err := Open(dbPath)
	require.NoError(t, err)
	defer s2.Close()

	all, err := s2.LoadAllTrades()
	require.NoError(t, err)
	require.Len(t, all, 1)
}
