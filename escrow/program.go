package escrow

import (
	"crypto/sha256"
	"sync"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/stealthreserve/swapd/crypto/adaptor"
)

// minExpiryWindow and maxRelayerFeeDivisor encode invariants 4 and 5:
// expiry must clear now+24h, and the relayer fee is capped at 1/20th
// of the locked principal.
const (
	minExpiryWindow      = 24 * time.Hour
	maxRelayerFeeDivisor = 20
)

// Program is the escrow program's in-process state machine: the set
// of swap records plus the ledger backing their vaults. It holds no
// network or storage concerns — those belong to chainadapter and
// store respectively.
type Program struct {
	mu     sync.RWMutex
	swaps  map[chainhash.Hash]*Swap
	ledger *Ledger
}

// NewProgram returns an empty program over ledger. The caller owns
// funding accounts before invoking create operations against them.
func NewProgram(ledger *Ledger) *Program {
	return &Program{
		swaps:  make(map[chainhash.Hash]*Swap),
		ledger: ledger,
	}
}

// vaultAccounts derives the two per-swap vault pseudo-accounts. They
// are addressed under the swap's own identity, not under any
// participant's key, so only this package's operations can move
// their balances.
func vaultAccounts(swapID chainhash.Hash) (vaultUSDC, vaultCollateral Account) {
	vaultUSDC = deriveVaultAccount("vault_usdc", swapID)
	vaultCollateral = deriveVaultAccount("vault_collateral", swapID)
	return
}

func deriveVaultAccount(label string, swapID chainhash.Hash) Account {
	h := sha256.New()
	h.Write([]byte(label))
	h.Write(swapID[:])
	sum := h.Sum(nil)
	var acc Account
	copy(acc[1:], sum) // leave acc[0] zero: vault accounts never collide with a real compressed pubkey's 0x02/0x03 prefix
	return acc
}

// GetSwap returns a copy of the swap record, mirroring the read-only
// query a chain-A adapter would expose to the coordinator.
func (p *Program) GetSwap(swapID chainhash.Hash) (Swap, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.swaps[swapID]
	if !ok {
		return Swap{}, false
	}
	return *s, true
}

// CreateUsdcToXmrParams bundles create_usdc_to_xmr's arguments.
type CreateUsdcToXmrParams struct {
	SwapID           chainhash.Hash
	SecretHash       chainhash.Hash
	USDCAmount       uint64
	XMRAmount        uint64
	MoneroSubAddress [MoneroSubAddressLen]byte
	Expiry           int64
	RelayerFee       uint64
	Alice            Account
	Bob              Account
	Now              time.Time
}

// CreateUsdcToXmr implements §4.2's create_usdc_to_xmr: Alice locks
// USDCAmount as principal, Bob posts an equal amount as anti-grief
// collateral.
func (p *Program) CreateUsdcToXmr(params CreateUsdcToXmrParams) (Swap, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := validateCreate(p.swaps, params.SwapID, params.SecretHash, params.USDCAmount, params.RelayerFee, params.Expiry, params.Now); err != nil {
		return Swap{}, err
	}

	vaultUSDC, vaultCollateral := vaultAccounts(params.SwapID)
	if err := p.ledger.transfer(params.Alice, vaultUSDC, params.USDCAmount); err != nil {
		return Swap{}, err
	}
	if err := p.ledger.transfer(params.Bob, vaultCollateral, params.USDCAmount); err != nil {
		// Undo Alice's deposit so the aborted create leaves no state.
		_ = p.ledger.transfer(vaultUSDC, params.Alice, params.USDCAmount)
		return Swap{}, err
	}

	addr, bump := DeriveSwapAddress(params.SwapID)
	_ = addr

	s := &Swap{
		SwapID:                params.SwapID,
		Bump:                  bump,
		Direction:             UsdcToXmr,
		Alice:                 params.Alice,
		Bob:                   params.Bob,
		SecretHash:            params.SecretHash,
		Expiry:                params.Expiry,
		RelayerFee:            params.RelayerFee,
		USDCAmount:            params.USDCAmount,
		XMRAmount:             params.XMRAmount,
		MoneroSubAddress:      params.MoneroSubAddress,
		BobCollateralLocked:   true,
		AliceCollateralLocked: false,
	}
	p.swaps[params.SwapID] = s
	return *s, nil
}

// CreateXmrToUsdcParams bundles create_xmr_to_usdc's arguments.
type CreateXmrToUsdcParams struct {
	SwapID         chainhash.Hash
	SecretHash     chainhash.Hash
	USDCAmount     uint64
	XMRAmount      uint64
	AliceChainAKey Account
	Expiry         int64
	RelayerFee     uint64
	Bob            Account
	Now            time.Time
}

// CreateXmrToUsdc implements §4.2's create_xmr_to_usdc: Bob locks
// USDCAmount as principal, the counterparty chain-A address is
// recorded as the beneficiary RedeemUSDC pays for this direction.
func (p *Program) CreateXmrToUsdc(params CreateXmrToUsdcParams) (Swap, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := validateCreate(p.swaps, params.SwapID, params.SecretHash, params.USDCAmount, params.RelayerFee, params.Expiry, params.Now); err != nil {
		return Swap{}, err
	}

	vaultUSDC, _ := vaultAccounts(params.SwapID)
	if err := p.ledger.transfer(params.Bob, vaultUSDC, params.USDCAmount); err != nil {
		return Swap{}, err
	}

	_, bump := DeriveSwapAddress(params.SwapID)

	s := &Swap{
		SwapID:         params.SwapID,
		Bump:           bump,
		Direction:      XmrToUsdc,
		Bob:            params.Bob,
		AliceChainAKey: params.AliceChainAKey,
		SecretHash:     params.SecretHash,
		Expiry:         params.Expiry,
		RelayerFee:     params.RelayerFee,
		USDCAmount:     params.USDCAmount,
		XMRAmount:      params.XMRAmount,
	}
	p.swaps[params.SwapID] = s
	return *s, nil
}

func validateCreate(existing map[chainhash.Hash]*Swap, swapID, secretHash chainhash.Hash, usdcAmount, relayerFee uint64, expiry int64, now time.Time) error {
	if _, ok := existing[swapID]; ok {
		return newErr(ErrSwapAlreadyExists, "swap %s already exists", swapID)
	}
	if secretHash == (chainhash.Hash{}) {
		return newErr(ErrInvalidSecretHash, "secret_hash must be non-zero")
	}
	if expiry <= now.Add(minExpiryWindow).Unix() {
		return newErr(ErrInvalidExpiry, "expiry must exceed now+24h")
	}
	if relayerFee*maxRelayerFeeDivisor > usdcAmount {
		return newErr(ErrExcessiveRelayerFee, "relayer_fee %d exceeds usdc_amount/%d", relayerFee, maxRelayerFeeDivisor)
	}
	return nil
}

// RecordMoneroLockProof implements §4.2's record_monero_lock_proof.
// It is informational only: it never gates any money movement.
func (p *Program) RecordMoneroLockProof(swapID chainhash.Hash, moneroLockTxID chainhash.Hash, caller Account) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.swaps[swapID]
	if !ok {
		return newErr(ErrSwapNotFound, "swap %s not found", swapID)
	}
	if caller != s.Bob {
		return newErr(ErrUnauthorized, "only bob may record the monero lock proof")
	}
	s.MoneroLockTxID = moneroLockTxID
	return nil
}

// RedeemUSDCParams bundles redeem_usdc's arguments.
type RedeemUSDCParams struct {
	SwapID     chainhash.Hash
	AdaptorSig []byte
	Parity     byte
	CurvePoint []byte
	Relayer    Account
}

// RedeemUSDCResult carries the extracted secret alongside the amounts
// moved, matching §4.2's "returns the extracted secret in the
// transaction log" requirement.
type RedeemUSDCResult struct {
	Secret          [32]byte
	RelayerPaid     uint64
	BeneficiaryPaid uint64
}

// RedeemUSDC implements §4.2's redeem_usdc: verifies the adaptor
// signature against secret_hash, pays the relayer fee (if any) and
// the remaining vault balance to the beneficiary, and marks the swap
// redeemed.
func (p *Program) RedeemUSDC(params RedeemUSDCParams) (RedeemUSDCResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.swaps[params.SwapID]
	if !ok {
		return RedeemUSDCResult{}, newErr(ErrSwapNotFound, "swap %s not found", params.SwapID)
	}
	if s.terminal() {
		return RedeemUSDCResult{}, newErr(ErrAlreadyFinalized, "swap already finalized")
	}

	secretHash := s.SecretHash
	secret, err := adaptor.Verify(params.AdaptorSig, params.Parity, params.CurvePoint, secretHash[:])
	if err != nil {
		return RedeemUSDCResult{}, newErr(ErrInvalidAdaptorSig, "%v", err)
	}

	beneficiary := s.Bob
	if s.Direction == XmrToUsdc {
		beneficiary = s.AliceChainAKey
	}

	vaultUSDC, _ := vaultAccounts(params.SwapID)
	principal := s.USDCAmount

	var relayerPaid uint64
	if s.RelayerFee > 0 {
		if err := p.ledger.transfer(vaultUSDC, params.Relayer, s.RelayerFee); err != nil {
			return RedeemUSDCResult{}, err
		}
		relayerPaid = s.RelayerFee
	}
	remaining := principal - relayerPaid
	if err := p.ledger.transfer(vaultUSDC, beneficiary, remaining); err != nil {
		return RedeemUSDCResult{}, err
	}

	s.IsRedeemed = true

	return RedeemUSDCResult{
		Secret:          secret,
		RelayerPaid:     relayerPaid,
		BeneficiaryPaid: remaining,
	}, nil
}

// Refund implements §4.2's refund: after expiry, drains both vaults
// back to their original owners and marks the swap refunded.
func (p *Program) Refund(swapID chainhash.Hash, now time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.swaps[swapID]
	if !ok {
		return newErr(ErrSwapNotFound, "swap %s not found", swapID)
	}
	if s.terminal() {
		return newErr(ErrAlreadyFinalized, "swap already finalized")
	}
	if now.Unix() <= s.Expiry {
		return newErr(ErrNotYetExpired, "refund requested before expiry")
	}

	vaultUSDC, vaultCollateral := vaultAccounts(swapID)
	funder := s.Alice
	if s.Direction == XmrToUsdc {
		funder = s.Bob
	}
	if err := p.ledger.transfer(vaultUSDC, funder, p.ledger.Balance(vaultUSDC)); err != nil {
		return err
	}

	collateralBal := p.ledger.Balance(vaultCollateral)
	if collateralBal > 0 {
		collateralOwner := s.Bob
		if err := p.ledger.transfer(vaultCollateral, collateralOwner, collateralBal); err != nil {
			return err
		}
	}

	s.IsRefunded = true
	return nil
}

// ClaimBountyForSecretParams bundles claim_bounty_for_secret's arguments.
type ClaimBountyForSecretParams struct {
	SwapID     chainhash.Hash
	AdaptorSig []byte
	Parity     byte
	CurvePoint []byte
	Claimant   Account
}

// ClaimBountyForSecret implements §4.2's claim_bounty_for_secret: an
// independent collateral-draining path available to anyone who can
// produce a valid adaptor signature over secret_hash, regardless of
// whether the swap itself has redeemed or refunded.
func (p *Program) ClaimBountyForSecret(params ClaimBountyForSecretParams) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.swaps[params.SwapID]
	if !ok {
		return newErr(ErrSwapNotFound, "swap %s not found", params.SwapID)
	}
	if s.BountyClaimed {
		return newErr(ErrBountyAlreadyClaimed, "bounty already claimed")
	}

	secretHash := s.SecretHash
	if _, err := adaptor.Verify(params.AdaptorSig, params.Parity, params.CurvePoint, secretHash[:]); err != nil {
		return newErr(ErrInvalidAdaptorSig, "%v", err)
	}

	_, vaultCollateral := vaultAccounts(params.SwapID)
	bal := p.ledger.Balance(vaultCollateral)
	if err := p.ledger.transfer(vaultCollateral, params.Claimant, bal); err != nil {
		return err
	}

	// Flip the flag only after the transfer succeeds: a failed
	// transfer must leave bounty_claimed untouched (Open Question c).
	s.BountyClaimed = true
	return nil
}
