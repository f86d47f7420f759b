package escrow

import "sync"

// Account identifies a token account by its 33-byte compressed pubkey.
type Account [33]byte

// Ledger is the program's view of token account balances. The real
// chain-A runtime owns actual token accounts; this package models
// instruction execution in isolation, so transfers move balances in
// an in-memory ledger the same way settlement/claimable modeled
// balance predicates without a real chain underneath it.
type Ledger struct {
	mu       sync.Mutex
	balances map[Account]uint64
}

// NewLedger returns an empty ledger. Callers fund accounts with Credit
// before exercising operations that debit them.
func NewLedger() *Ledger {
	return &Ledger{balances: make(map[Account]uint64)}
}

// Credit adds amount to account's balance, for test and deposit setup.
func (l *Ledger) Credit(account Account, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[account] += amount
}

// Balance returns account's current balance.
func (l *Ledger) Balance(account Account) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account]
}

// transfer moves amount from one account to another. It fails closed:
// insufficient balance leaves both accounts untouched.
func (l *Ledger) transfer(from, to Account, amount uint64) error {
	if amount == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[from] < amount {
		return newErr(ErrUnauthorized, "insufficient balance in account %x", from[:4])
	}
	l.balances[from] -= amount
	l.balances[to] += amount
	return nil
}
