// Package monero is the chain-B adapter: a thin, stateless wrapper
// around a Monero wallet RPC endpoint exposing the queries the
// coordinator needs to allocate subaddresses, observe deposits, and
// send transfers. Wallet credentials are never held directly here;
// they are pulled from an opaque secret container only for the
// duration of a single call.
package monero

import (
	"context"
	"fmt"

	"github.com/stealthreserve/swapd/chainadapter/rpcclient"
)

// CredentialSource supplies the wallet RPC's basic-auth credentials
// for exactly the duration of fn, zeroing them on return. secretbox
// implements this interface.
type CredentialSource interface {
	WithCredentials(fn func(user, pass string) error) error
}

// Client is the chain-B JSON-RPC adapter.
type Client struct {
	rpc   *rpcclient.Client
	creds CredentialSource
}

// New returns a chain-B adapter targeting walletRPCURL, drawing
// wallet-RPC credentials from creds at call time.
func New(walletRPCURL string, creds CredentialSource) *Client {
	return &Client{
		rpc:   rpcclient.New(walletRPCURL),
		creds: creds,
	}
}

// call wraps rpcclient.Call with the credential-scoped basic-auth
// the wallet RPC expects; the underlying transport only sees the
// credentials while fn is running.
func (c *Client) call(ctx context.Context, method string, params, out interface{}) error {
	return c.creds.WithCredentials(func(user, pass string) error {
		return c.rpc.CallWithAuth(ctx, method, params, out, user, pass)
	})
}

// SubaddressLen is the fixed, zero-padded width a subaddress is
// stored in on an escrow swap record.
const SubaddressLen = 64

// CreateSubaddress allocates a fresh receiving subaddress labeled
// label, returning both its text form and the zero-padded blob the
// escrow program stores.
func (c *Client) CreateSubaddress(ctx context.Context, label string) (text string, blob [SubaddressLen]byte, err error) {
	var result struct {
		Address string `json:"address"`
	}
	params := struct {
		Label string `json:"label"`
	}{Label: label}

	if err = c.call(ctx, "create_subaddress", params, &result); err != nil {
		return "", blob, fmt.Errorf("monero: create_subaddress: %w", err)
	}
	if len(result.Address) > SubaddressLen {
		return "", blob, fmt.Errorf("monero: subaddress %q exceeds %d bytes", result.Address, SubaddressLen)
	}
	copy(blob[:], result.Address)
	return result.Address, blob, nil
}

// Transfer is the observed state of a chain-B transaction.
type Transfer struct {
	Amount        uint64
	Confirmations uint64
}

// GetTransfer returns the transfer observed for txid, or (nil, nil) if
// it has not yet appeared.
func (c *Client) GetTransfer(ctx context.Context, txid string) (*Transfer, error) {
	var result struct {
		Found         bool   `json:"found"`
		Amount        uint64 `json:"amount"`
		Confirmations uint64 `json:"confirmations"`
	}
	params := struct {
		TxID string `json:"txid"`
	}{TxID: txid}

	if err := c.call(ctx, "get_transfer", params, &result); err != nil {
		return nil, fmt.Errorf("monero: get_transfer %s: %w", txid, err)
	}
	if !result.Found {
		return nil, nil
	}
	return &Transfer{Amount: result.Amount, Confirmations: result.Confirmations}, nil
}

// SendTransfer sends amount to destination and returns the resulting
// chain-B transaction id.
func (c *Client) SendTransfer(ctx context.Context, destination string, amount uint64) (txid string, err error) {
	params := struct {
		Destination string `json:"destination"`
		Amount      uint64 `json:"amount"`
	}{Destination: destination, Amount: amount}

	if err = c.call(ctx, "send_transfer", params, &txid); err != nil {
		return "", fmt.Errorf("monero: send_transfer to %s: %w", destination, err)
	}
	log.Debugf("sent %d to %s, txid %s", amount, destination, txid)
	return txid, nil
}

// Balance reports the wallet's locked, unlocked, and total balance.
type Balance struct {
	Locked   uint64
	Unlocked uint64
	Total    uint64
}

// GetBalance returns the wallet's current balance.
func (c *Client) GetBalance(ctx context.Context) (Balance, error) {
	var result Balance
	if err := c.call(ctx, "get_balance", nil, &result); err != nil {
		return Balance{}, fmt.Errorf("monero: get_balance: %w", err)
	}
	return result, nil
}

// ValidateAddress reports whether text is a well-formed chain-B
// address, without attempting to resolve or fund it.
func (c *Client) ValidateAddress(ctx context.Context, text string) (bool, error) {
	var result struct {
		Valid bool `json:"valid"`
	}
	params := struct {
		Address string `json:"address"`
	}{Address: text}

	if err := c.call(ctx, "validate_address", params, &result); err != nil {
		return false, fmt.Errorf("monero: validate_address: %w", err)
	}
	return result.Valid, nil
}

// Health reports whether the wallet RPC endpoint is reachable.
func (c *Client) Health(ctx context.Context) error {
	if err := c.call(ctx, "health", nil, nil); err != nil {
		return fmt.Errorf("monero: health: %w", err)
	}
	return nil
}
