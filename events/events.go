// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package events models the append-only record log the swap protocol emits.
// Off-chain resolvers watch this log for cross-chain triggers: an
// EscrowWithdrawn record on one leg carries the revealed secret, which is the
// only channel by which the counter-leg learns it.
package events

import (
	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/htlc/timelock"
)

// Event type names.
const (
	TypeEscrowCreated      = "EscrowCreated"
	TypeEscrowWithdrawn    = "EscrowWithdrawn"
	TypeEscrowCancelled    = "EscrowCancelled"
	TypeOrderProcessed     = "OrderProcessed"
	TypeResolverRegistered = "ResolverRegistered"
)

// Event is one protocol record. Related returns the order hash the record
// correlates to, the zero hash if none.
type Event interface {
	Type() string
	Related() common.Hash
	Time() uint64
}

// EscrowCreated is emitted when a leg escrow is funded and deployed.
type EscrowCreated struct {
	OrderHash     common.Hash
	Leg           timelock.Leg
	Maker         common.Address
	Taker         common.Address
	Hashlock      common.Hash
	Amount        *uint256.Int
	SafetyDeposit *uint256.Int
	DeployedAt    uint64
}

func (e EscrowCreated) Type() string         { return TypeEscrowCreated }
func (e EscrowCreated) Related() common.Hash { return e.OrderHash }
func (e EscrowCreated) Time() uint64         { return e.DeployedAt }

// EscrowWithdrawn is emitted on a successful withdrawal. Secret is the
// revealed pre-image.
type EscrowWithdrawn struct {
	OrderHash common.Hash
	Leg       timelock.Leg
	Caller    common.Address
	Recipient common.Address
	Amount    *uint256.Int
	Secret    []byte
	Timestamp uint64
}

func (e EscrowWithdrawn) Type() string         { return TypeEscrowWithdrawn }
func (e EscrowWithdrawn) Related() common.Hash { return e.OrderHash }
func (e EscrowWithdrawn) Time() uint64         { return e.Timestamp }

// EscrowCancelled is emitted when a leg escrow is cancelled and refunded.
type EscrowCancelled struct {
	OrderHash common.Hash
	Leg       timelock.Leg
	Caller    common.Address
	Refundee  common.Address
	Amount    *uint256.Int
	Timestamp uint64
}

func (e EscrowCancelled) Type() string         { return TypeEscrowCancelled }
func (e EscrowCancelled) Related() common.Hash { return e.OrderHash }
func (e EscrowCancelled) Time() uint64         { return e.Timestamp }

// OrderProcessed is emitted when the factory consumes a cross-chain order.
type OrderProcessed struct {
	OrderHash  common.Hash
	Resolver   common.Address
	SrcChainID uint64
	DstChainID uint64
	Timestamp  uint64
}

func (e OrderProcessed) Type() string         { return TypeOrderProcessed }
func (e OrderProcessed) Related() common.Hash { return e.OrderHash }
func (e OrderProcessed) Time() uint64         { return e.Timestamp }

// ResolverRegistered is emitted when the factory admin authorizes a resolver.
type ResolverRegistered struct {
	Resolver  common.Address
	Admin     common.Address
	Timestamp uint64
}

func (e ResolverRegistered) Type() string         { return TypeResolverRegistered }
func (e ResolverRegistered) Related() common.Hash { return common.Hash{} }
func (e ResolverRegistered) Time() uint64         { return e.Timestamp }
