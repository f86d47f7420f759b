package escrow

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"
)

func TestDeriveSwapAddress_Deterministic(t *testing.T) {
	id := newSwapID(0x05)
	addr1, bump1 := DeriveSwapAddress(id)
	addr2, bump2 := DeriveSwapAddress(id)
	require.Equal(t, addr1, addr2)
	require.Equal(t, bump1, bump2)
}

func TestDeriveSwapAddress_DistinctSeedsDiffer(t *testing.T) {
	addr1, _ := DeriveSwapAddress(newSwapID(0x05))
	addr2, _ := DeriveSwapAddress(newSwapID(0x06))
	require.NotEqual(t, addr1, addr2)
}

func TestDeriveCommitmentAddress_DistinctFromSwapAddress(t *testing.T) {
	var commitmentHash chainhash.Hash
	commitmentHash[0] = 0x05

	swapAddr, _ := DeriveSwapAddress(newSwapID(0x05))
	commitAddr, _ := DeriveCommitmentAddress(commitmentHash)
	require.NotEqual(t, swapAddr, commitAddr)
}
