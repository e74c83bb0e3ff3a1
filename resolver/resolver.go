// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package resolver implements the off-chain agent that drives swaps to
// completion. A resolver custodies order secrets, submits orders to the
// escrow factory under its own authorized address, and releases escrows once
// the counter-leg conditions are met. It keeps its own directory of chains it
// is willing to serve, separate from the factory's global one.
package resolver

import (
	"errors"
	"fmt"
	"sync"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	log "github.com/luxfi/log"

	"github.com/luxfi/htlc/chains"
	"github.com/luxfi/htlc/escrow"
	"github.com/luxfi/htlc/factory"
	"github.com/luxfi/htlc/hashlock"
	"github.com/luxfi/htlc/order"
	"github.com/luxfi/htlc/timelock"
)

// Errors
var (
	ErrInvalidConfig   = errors.New("invalid resolver config")
	ErrUnauthorized    = errors.New("caller not authorized")
	ErrUnknownOrder    = errors.New("no secret stored for order")
	ErrSecretMismatch  = errors.New("secret does not match order hashlock")
	ErrCorruptedSecret = errors.New("stored secret no longer matches hashlock")
)

// Resolver is one swap-completion agent. The zero value is unusable; use New.
type Resolver struct {
	address   common.Address
	owner     common.Address
	operators map[common.Address]bool

	secrets map[common.Hash][]byte      // order hash -> pre-image
	hashes  map[common.Hash]common.Hash // order hash -> commitment, for audit

	directory *chains.Registry

	log log.Logger
	mu  sync.RWMutex
}

// New creates a resolver acting as address, controlled by owner. The owner is
// always an operator.
func New(address, owner common.Address, logger log.Logger) (*Resolver, error) {
	if address == (common.Address{}) || owner == (common.Address{}) {
		return nil, fmt.Errorf("%w: zero address", ErrInvalidConfig)
	}
	if logger == nil {
		logger = log.NewTestLogger(log.InfoLevel)
	}
	return &Resolver{
		address:   address,
		owner:     owner,
		operators: map[common.Address]bool{owner: true},
		secrets:   make(map[common.Hash][]byte),
		hashes:    make(map[common.Hash]common.Hash),
		directory: chains.NewRegistry(),
		log:       logger,
	}, nil
}

// Address returns the identity the resolver acts as on-ledger.
func (r *Resolver) Address() common.Address { return r.address }

// Owner returns the controlling identity.
func (r *Resolver) Owner() common.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.owner
}

// AuthorizeOperator grants an identity the right to submit and complete
// swaps. Owner-only, idempotent.
func (r *Resolver) AuthorizeOperator(caller, operator common.Address) error {
	if operator == (common.Address{}) {
		return fmt.Errorf("%w: zero operator", ErrInvalidConfig)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if caller != r.owner {
		return fmt.Errorf("%w: owner is %s", ErrUnauthorized, r.owner.Hex())
	}
	r.operators[operator] = true
	return nil
}

// RevokeOperator removes an operator. Owner-only; the owner itself cannot be
// revoked.
func (r *Resolver) RevokeOperator(caller, operator common.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if caller != r.owner {
		return fmt.Errorf("%w: owner is %s", ErrUnauthorized, r.owner.Hex())
	}
	if operator == r.owner {
		return fmt.Errorf("%w: owner cannot be revoked", ErrUnauthorized)
	}
	delete(r.operators, operator)
	return nil
}

// IsOperator reports whether an identity may act through this resolver.
func (r *Resolver) IsOperator(addr common.Address) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.operators[addr]
}

func (r *Resolver) requireOperator(caller common.Address) error {
	r.mu.RLock()
	ok := r.operators[caller]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s is not an operator", ErrUnauthorized, caller.Hex())
	}
	return nil
}

// SubmitOrderAndSecret stores the order's secret and submits the order to the
// factory under the resolver's address, funding the destination leg. The
// secret must be the pre-image of the order's secret hash; it is kept until
// CleanupProcessedOrder.
func (r *Resolver) SubmitOrderAndSecret(
	caller common.Address,
	fac *factory.EscrowFactory,
	ord *order.CrossChainOrder,
	secret []byte,
	lockedAmount *uint256.Int,
	safetyDeposit *uint256.Int,
	offsets timelock.Offsets,
) (*escrow.Escrow, error) {
	if err := r.requireOperator(caller); err != nil {
		return nil, err
	}
	if ord == nil {
		return nil, fmt.Errorf("%w: nil order", order.ErrInvalidOrder)
	}
	if err := hashlock.ValidateSecret(secret); err != nil {
		return nil, err
	}
	if !hashlock.Verify(secret, ord.SecretHash) {
		return nil, fmt.Errorf("%w: order %s", ErrSecretMismatch, ord.Hash().Hex())
	}

	esc, err := fac.ProcessCrossChainOrder(r.address, ord, lockedAmount, safetyDeposit, offsets)
	if err != nil {
		return nil, err
	}

	orderHash := ord.Hash()
	r.mu.Lock()
	r.secrets[orderHash] = append([]byte(nil), secret...)
	r.hashes[orderHash] = ord.SecretHash
	r.mu.Unlock()

	r.log.Info(fmt.Sprintf("resolver %s submitted order %s", r.address.Hex(), orderHash.Hex()))
	return esc, nil
}

// LearnSecret records a secret observed elsewhere, typically from a withdrawn
// record on the counter-leg. Operator-only; the secret must open the given
// commitment.
func (r *Resolver) LearnSecret(caller common.Address, orderHash common.Hash, secret []byte, lock common.Hash) error {
	if err := r.requireOperator(caller); err != nil {
		return err
	}
	if !hashlock.Verify(secret, lock) {
		return fmt.Errorf("%w: order %s", ErrSecretMismatch, orderHash.Hex())
	}

	r.mu.Lock()
	r.secrets[orderHash] = append([]byte(nil), secret...)
	r.hashes[orderHash] = lock
	r.mu.Unlock()
	return nil
}

// Secret returns the stored pre-image for an order hash.
func (r *Resolver) Secret(orderHash common.Hash) ([]byte, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.secrets[orderHash]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), s...), true
}

// CompleteSwapWithSecret withdraws an escrow using the secret stored for its
// order hash. The stored secret is re-verified against the escrow's own
// hashlock first; a mismatch means the custody store is corrupted and the
// call refuses to spend it.
func (r *Resolver) CompleteSwapWithSecret(caller common.Address, esc *escrow.Escrow) error {
	if err := r.requireOperator(caller); err != nil {
		return err
	}

	orderHash := esc.OrderHash()
	r.mu.RLock()
	secret, ok := r.secrets[orderHash]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownOrder, orderHash.Hex())
	}
	if !hashlock.VerifyWith(esc.Scheme(), secret, esc.Hashlock()) {
		return fmt.Errorf("%w: order %s", ErrCorruptedSecret, orderHash.Hex())
	}

	if err := esc.Withdraw(r.address, secret); err != nil {
		return err
	}
	r.log.Info(fmt.Sprintf("resolver %s completed %s leg of %s",
		r.address.Hex(), esc.Leg(), orderHash.Hex()))
	return nil
}

// EmergencyWithdrawTo redirects an escrow's locked amount to an explicit
// target using the stored secret. Owner-only.
func (r *Resolver) EmergencyWithdrawTo(caller common.Address, esc *escrow.Escrow, target common.Address) error {
	r.mu.RLock()
	owner := r.owner
	secret, ok := r.secrets[esc.OrderHash()]
	r.mu.RUnlock()

	if caller != owner {
		return fmt.Errorf("%w: owner is %s", ErrUnauthorized, owner.Hex())
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownOrder, esc.OrderHash().Hex())
	}
	return esc.WithdrawTo(r.address, secret, target)
}

// CleanupProcessedOrder drops the stored secret for a completed order.
// Operator-only, idempotent.
func (r *Resolver) CleanupProcessedOrder(caller common.Address, orderHash common.Hash) error {
	if err := r.requireOperator(caller); err != nil {
		return err
	}

	r.mu.Lock()
	delete(r.secrets, orderHash)
	delete(r.hashes, orderHash)
	r.mu.Unlock()
	return nil
}

// RegisterChain records a chain this resolver serves. Owner-only.
func (r *Resolver) RegisterChain(caller common.Address, chainID uint64, scheme chains.Scheme, identity chains.RemoteIdentity) error {
	r.mu.RLock()
	owner := r.owner
	r.mu.RUnlock()

	if caller != owner {
		return fmt.Errorf("%w: owner is %s", ErrUnauthorized, owner.Hex())
	}
	return r.directory.Register(chainID, scheme, identity)
}

// RegisterChains is the batch form of RegisterChain; it applies all bindings
// or none.
func (r *Resolver) RegisterChains(caller common.Address, chainIDs []uint64, schemes []chains.Scheme, identities []chains.RemoteIdentity) error {
	r.mu.RLock()
	owner := r.owner
	r.mu.RUnlock()

	if caller != owner {
		return fmt.Errorf("%w: owner is %s", ErrUnauthorized, owner.Hex())
	}
	return r.directory.RegisterBatch(chainIDs, schemes, identities)
}

// IsChainSupported reports whether this resolver serves a chain id.
func (r *Resolver) IsChainSupported(chainID uint64) bool {
	return r.directory.Supported(chainID)
}

// ChainBinding returns the resolver's binding for a chain id.
func (r *Resolver) ChainBinding(chainID uint64) (chains.Binding, bool) {
	return r.directory.Get(chainID)
}
