// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package factory implements the order registry and escrow factory: it
// authorizes resolvers, deduplicates order hashes, creates leg escrows and
// keeps the global cross-VM chain directory. One order hash enters the
// processed set at most once, ever; the set is mirrored into an optional
// keyvalue journal so a restarted factory keeps rejecting replays.
package factory

import (
	"errors"
	"fmt"
	"sync"

	"github.com/luxfi/database"
	"github.com/luxfi/geth/common"
	log "github.com/luxfi/log"

	"github.com/luxfi/htlc/chains"
	"github.com/luxfi/htlc/escrow"
	"github.com/luxfi/htlc/events"
	"github.com/luxfi/htlc/ledger"
	"github.com/luxfi/htlc/order"
	"github.com/luxfi/htlc/timelock"
)

// Errors
var (
	ErrUnauthorized          = errors.New("caller not authorized")
	ErrOrderAlreadyProcessed = errors.New("order already processed")
	ErrInsufficientAmount    = errors.New("insufficient amount")
	ErrUnknownEscrow         = errors.New("unknown escrow")
	ErrInvalidConfig         = errors.New("invalid factory config")
)

var processedPrefix = []byte("htlc/processed/")

type escrowKey struct {
	orderHash common.Hash
	leg       timelock.Leg
}

// Config wires the factory's collaborators.
type Config struct {
	Admin  common.Address
	Assets ledger.Ledger
	Clock  ledger.Clock

	// Sink receives protocol records; nil discards them.
	Sink events.Sink

	// Journal persists the processed-order set across restarts. Optional.
	Journal database.Database

	// Logger defaults to a test logger when nil.
	Logger log.Logger

	// Rescue delays per leg, seconds. Zero selects the escrow default.
	SrcRescueDelay uint64
	DstRescueDelay uint64
}

// EscrowFactory is the on-chain entry point of the swap protocol.
type EscrowFactory struct {
	admin     common.Address
	resolvers map[common.Address]bool
	processed map[common.Hash]bool
	escrows   map[escrowKey]*escrow.Escrow
	orders    map[common.Hash]*order.CrossChainOrder

	directory *chains.Registry

	srcRescueDelay uint64
	dstRescueDelay uint64

	assets  ledger.Ledger
	clock   ledger.Clock
	sink    events.Sink
	journal database.Database
	log     log.Logger

	mu sync.RWMutex
}

// New creates a factory with the given admin and collaborators.
func New(cfg Config) (*EscrowFactory, error) {
	if cfg.Admin == (common.Address{}) {
		return nil, fmt.Errorf("%w: zero admin", ErrInvalidConfig)
	}
	if cfg.Assets == nil || cfg.Clock == nil {
		return nil, fmt.Errorf("%w: assets and clock are required", ErrInvalidConfig)
	}
	sink := cfg.Sink
	if sink == nil {
		sink = events.NopSink{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewTestLogger(log.InfoLevel)
	}

	return &EscrowFactory{
		admin:          cfg.Admin,
		resolvers:      make(map[common.Address]bool),
		processed:      make(map[common.Hash]bool),
		escrows:        make(map[escrowKey]*escrow.Escrow),
		orders:         make(map[common.Hash]*order.CrossChainOrder),
		directory:      chains.NewRegistry(),
		srcRescueDelay: cfg.SrcRescueDelay,
		dstRescueDelay: cfg.DstRescueDelay,
		assets:         cfg.Assets,
		clock:          cfg.Clock,
		sink:           sink,
		journal:        cfg.Journal,
		log:            logger,
	}, nil
}

// Admin returns the current admin identity.
func (f *EscrowFactory) Admin() common.Address {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.admin
}

// AuthorizeResolver adds a resolver to the authorized set. Admin-only,
// idempotent.
func (f *EscrowFactory) AuthorizeResolver(caller, resolver common.Address) error {
	if resolver == (common.Address{}) {
		return fmt.Errorf("%w: zero resolver", ErrInvalidConfig)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if caller != f.admin {
		return fmt.Errorf("%w: admin is %s", ErrUnauthorized, f.admin.Hex())
	}
	if f.resolvers[resolver] {
		return nil
	}
	f.resolvers[resolver] = true

	f.sink.Emit(events.ResolverRegistered{
		Resolver:  resolver,
		Admin:     caller,
		Timestamp: f.clock.Now(),
	})
	return nil
}

// RevokeResolver removes a resolver from the authorized set. Admin-only.
func (f *EscrowFactory) RevokeResolver(caller, resolver common.Address) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if caller != f.admin {
		return fmt.Errorf("%w: admin is %s", ErrUnauthorized, f.admin.Hex())
	}
	delete(f.resolvers, resolver)
	return nil
}

// IsResolverAuthorized reports membership in the authorized set.
func (f *EscrowFactory) IsResolverAuthorized(resolver common.Address) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.resolvers[resolver]
}

// TransferAdmin hands the admin role to a new identity. Admin-only.
func (f *EscrowFactory) TransferAdmin(caller, newAdmin common.Address) error {
	if newAdmin == (common.Address{}) {
		return fmt.Errorf("%w: zero admin", ErrInvalidConfig)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if caller != f.admin {
		return fmt.Errorf("%w: admin is %s", ErrUnauthorized, f.admin.Hex())
	}
	f.admin = newAdmin
	return nil
}

// UpdateRescueDelays sets the per-leg rescue delays applied to escrows
// created afterwards. Admin-only.
func (f *EscrowFactory) UpdateRescueDelays(caller common.Address, src, dst uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if caller != f.admin {
		return fmt.Errorf("%w: admin is %s", ErrUnauthorized, f.admin.Hex())
	}
	f.srcRescueDelay = src
	f.dstRescueDelay = dst
	return nil
}

// RegisterChain records a remote chain binding in the factory's global
// directory. Admin-only; re-registering a chain id updates the binding.
func (f *EscrowFactory) RegisterChain(caller common.Address, chainID uint64, scheme chains.Scheme, identity chains.RemoteIdentity) error {
	f.mu.RLock()
	admin := f.admin
	f.mu.RUnlock()

	if caller != admin {
		return fmt.Errorf("%w: admin is %s", ErrUnauthorized, admin.Hex())
	}
	return f.directory.Register(chainID, scheme, identity)
}

// BindLocalIdentity records the local address a remote identity translates
// to. Admin-only.
func (f *EscrowFactory) BindLocalIdentity(caller common.Address, chainID uint64, identity chains.RemoteIdentity, local common.Address) error {
	f.mu.RLock()
	admin := f.admin
	f.mu.RUnlock()

	if caller != admin {
		return fmt.Errorf("%w: admin is %s", ErrUnauthorized, admin.Hex())
	}
	f.directory.BindLocal(chainID, identity, local)
	return nil
}

// IsChainSupported reports whether the global directory knows a chain id.
func (f *EscrowFactory) IsChainSupported(chainID uint64) bool {
	return f.directory.Supported(chainID)
}

// Directory exposes the global chain directory for reads.
func (f *EscrowFactory) Directory() *chains.Registry {
	return f.directory
}

// IsOrderProcessed reports whether an order hash has been consumed, by this
// process or, via the journal, by a previous one.
func (f *EscrowFactory) IsOrderProcessed(orderHash common.Hash) bool {
	f.mu.RLock()
	hit := f.processed[orderHash]
	f.mu.RUnlock()
	if hit {
		return true
	}
	return f.journalHas(orderHash)
}

func (f *EscrowFactory) journalHas(orderHash common.Hash) bool {
	if f.journal == nil {
		return false
	}
	ok, err := f.journal.Has(journalKey(orderHash))
	if err != nil {
		f.log.Warn(fmt.Sprintf("processed-order journal read failed for %s: %v", orderHash.Hex(), err))
		return false
	}
	return ok
}

func (f *EscrowFactory) journalPut(orderHash common.Hash) {
	if f.journal == nil {
		return
	}
	if err := f.journal.Put(journalKey(orderHash), []byte{1}); err != nil {
		f.log.Warn(fmt.Sprintf("processed-order journal write failed for %s: %v", orderHash.Hex(), err))
	}
}

func journalKey(orderHash common.Hash) []byte {
	return append(append([]byte(nil), processedPrefix...), orderHash.Bytes()...)
}

// Escrow returns the escrow created for an order hash and leg.
func (f *EscrowFactory) Escrow(orderHash common.Hash, leg timelock.Leg) (*escrow.Escrow, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	e, ok := f.escrows[escrowKey{orderHash, leg}]
	return e, ok
}

// Order returns the recorded order for an order hash.
func (f *EscrowFactory) Order(orderHash common.Hash) (*order.CrossChainOrder, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	o, ok := f.orders[orderHash]
	return o, ok
}
