// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package ledger defines the asset-ledger collaborator the escrow state
// machine runs against, plus an in-memory reference implementation. The
// ledger owns all balance movement: an escrow locks funds into a ledger-held
// holding account at creation and drains it through Release on its terminal
// transition.
package ledger

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/zeebo/blake3"
)

// Handle identifies a ledger-owned holding account.
type Handle common.Hash

// Errors
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrUnknownHandle     = errors.New("unknown holding account")
	ErrZeroAmount        = errors.New("amount must be positive")
)

// Ledger is the minimal asset interface the swap core needs. Implementations
// must pair each debit/credit atomically with the caller's own state
// transition; the in-memory ledger does this under the caller's lock.
type Ledger interface {
	// Lock debits payer and opens a holding account funded with amount.
	Lock(payer common.Address, amount *uint256.Int) (Handle, error)

	// Release moves amount out of the holding account to recipient. A
	// drained account is removed.
	Release(h Handle, amount *uint256.Int, recipient common.Address) error

	// Balance returns the remaining holding-account balance, zero for
	// unknown handles.
	Balance(h Handle) *uint256.Int
}

// MemLedger is an in-memory Ledger used by the reference deployment and the
// test suites.
type MemLedger struct {
	balances map[common.Address]*uint256.Int
	holdings map[Handle]*uint256.Int
	seq      uint64

	mu sync.RWMutex
}

var _ Ledger = (*MemLedger)(nil)

// NewMemLedger creates an empty in-memory ledger.
func NewMemLedger() *MemLedger {
	return &MemLedger{
		balances: make(map[common.Address]*uint256.Int),
		holdings: make(map[Handle]*uint256.Int),
	}
}

// Mint credits an account out of thin air. Test and genesis setup only.
func (l *MemLedger) Mint(account common.Address, amount *uint256.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.balances[account] == nil {
		l.balances[account] = uint256.NewInt(0)
	}
	l.balances[account] = new(uint256.Int).Add(l.balances[account], amount)
}

// BalanceOf returns the free (non-escrowed) balance of an account.
func (l *MemLedger) BalanceOf(account common.Address) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if bal, ok := l.balances[account]; ok {
		return bal.Clone()
	}
	return uint256.NewInt(0)
}

// Lock implements Ledger.
func (l *MemLedger) Lock(payer common.Address, amount *uint256.Int) (Handle, error) {
	if amount == nil || amount.IsZero() {
		return Handle{}, ErrZeroAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	bal := l.balances[payer]
	if bal == nil || bal.Lt(amount) {
		return Handle{}, fmt.Errorf("%w: payer %s", ErrInsufficientFunds, payer.Hex())
	}

	l.seq++
	h := deriveHandle(payer, l.seq)

	l.balances[payer] = new(uint256.Int).Sub(bal, amount)
	l.holdings[h] = amount.Clone()
	return h, nil
}

// Release implements Ledger.
func (l *MemLedger) Release(h Handle, amount *uint256.Int, recipient common.Address) error {
	if amount == nil || amount.IsZero() {
		return ErrZeroAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	held := l.holdings[h]
	if held == nil {
		return ErrUnknownHandle
	}
	if held.Lt(amount) {
		return fmt.Errorf("%w: holding %s below %s", ErrInsufficientFunds, held, amount)
	}

	rest := new(uint256.Int).Sub(held, amount)
	if rest.IsZero() {
		delete(l.holdings, h)
	} else {
		l.holdings[h] = rest
	}

	if l.balances[recipient] == nil {
		l.balances[recipient] = uint256.NewInt(0)
	}
	l.balances[recipient] = new(uint256.Int).Add(l.balances[recipient], amount)
	return nil
}

// Balance implements Ledger.
func (l *MemLedger) Balance(h Handle) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if held, ok := l.holdings[h]; ok {
		return held.Clone()
	}
	return uint256.NewInt(0)
}

// deriveHandle computes a holding-account id from the payer and a ledger
// sequence number.
func deriveHandle(payer common.Address, seq uint64) Handle {
	var buf [common.AddressLength + 8]byte
	copy(buf[:], payer.Bytes())
	binary.BigEndian.PutUint64(buf[common.AddressLength:], seq)
	return Handle(blake3.Sum256(buf[:]))
}
