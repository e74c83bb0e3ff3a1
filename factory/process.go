// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package factory

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/htlc/chains"
	"github.com/luxfi/htlc/escrow"
	"github.com/luxfi/htlc/events"
	"github.com/luxfi/htlc/hashlock"
	"github.com/luxfi/htlc/order"
	"github.com/luxfi/htlc/timelock"
)

// ProcessCrossChainOrder consumes a cross-chain order: it creates the
// destination-leg escrow bound to the order's secret hash, funded by the
// calling resolver, and burns the order hash. The caller must be an
// authorized resolver, the locked amount must cover the order's taking
// amount and the safety deposit must be positive. Signed orders must recover
// to their maker.
//
// The escrow's maker is the calling resolver (it originates the funds and is
// refunded on cancellation); the taker is the local beneficiary for the
// order's maker. If the global directory holds a local binding for the
// maker's remote identity that address is used, otherwise the order's maker
// address is taken as-is. The remote chain binding, when registered, is
// preserved on the escrow for auditability.
func (f *EscrowFactory) ProcessCrossChainOrder(
	caller common.Address,
	ord *order.CrossChainOrder,
	lockedAmount *uint256.Int,
	safetyDeposit *uint256.Int,
	offsets timelock.Offsets,
) (*escrow.Escrow, error) {
	if ord == nil {
		return nil, fmt.Errorf("%w: nil order", order.ErrInvalidOrder)
	}
	if err := ord.Validate(); err != nil {
		return nil, err
	}
	if ord.Signed() {
		if err := ord.VerifySignature(); err != nil {
			return nil, err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.resolvers[caller] {
		return nil, fmt.Errorf("%w: %s is not an authorized resolver", ErrUnauthorized, caller.Hex())
	}

	orderHash := ord.Hash()
	if f.processed[orderHash] || f.journalHas(orderHash) {
		return nil, fmt.Errorf("%w: %s", ErrOrderAlreadyProcessed, orderHash.Hex())
	}

	if lockedAmount == nil || lockedAmount.Lt(ord.TakingAmount) {
		return nil, fmt.Errorf("%w: locked %s below taking amount %s",
			ErrInsufficientAmount, lockedAmount, ord.TakingAmount)
	}
	if safetyDeposit == nil || safetyDeposit.IsZero() {
		return nil, fmt.Errorf("%w: safety deposit must be positive", ErrInsufficientAmount)
	}

	taker := ord.Maker
	var binding *chains.Binding
	if b, ok := f.directory.Get(ord.SrcChainID); ok {
		binding = &b
		if local, ok := f.directory.LocalFor(ord.SrcChainID, b.Identity); ok {
			taker = local
		}
	}

	esc, err := escrow.New(f.assets, f.clock, f.sink, escrow.Params{
		OrderHash:     orderHash,
		Hashlock:      ord.SecretHash,
		Maker:         caller,
		Taker:         taker,
		LockedAmount:  lockedAmount,
		SafetyDeposit: safetyDeposit,
		Offsets:       offsets,
		Leg:           timelock.DestinationLeg,
		Binding:       binding,
		RescueDelay:   f.dstRescueDelay,
	})
	if err != nil {
		return nil, err
	}

	f.processed[orderHash] = true
	f.journalPut(orderHash)
	f.escrows[escrowKey{orderHash, timelock.DestinationLeg}] = esc
	f.orders[orderHash] = ord

	f.sink.Emit(events.OrderProcessed{
		OrderHash:  orderHash,
		Resolver:   caller,
		SrcChainID: ord.SrcChainID,
		DstChainID: ord.DstChainID,
		Timestamp:  f.clock.Now(),
	})
	f.log.Info(fmt.Sprintf("processed order %s by resolver %s", orderHash.Hex(), caller.Hex()))
	return esc, nil
}

// CreateParams describes a direct (non-order) escrow creation.
type CreateParams struct {
	OrderHash     common.Hash
	Hashlock      common.Hash
	Maker         common.Address
	Taker         common.Address
	Amount        *uint256.Int
	SafetyDeposit *uint256.Int
	Offsets       timelock.Offsets
	Scheme        hashlock.Scheme
	Binding       *chains.Binding
}

// CreateSrcEscrow creates a source-leg escrow from caller-supplied parties
// rather than a signed order. Resolver-only; the order hash is still
// deduplicated against the processed set.
func (f *EscrowFactory) CreateSrcEscrow(caller common.Address, p CreateParams) (*escrow.Escrow, error) {
	return f.createEscrow(caller, p, timelock.SourceLeg)
}

// CreateDstEscrow is the destination-leg counterpart of CreateSrcEscrow.
func (f *EscrowFactory) CreateDstEscrow(caller common.Address, p CreateParams) (*escrow.Escrow, error) {
	return f.createEscrow(caller, p, timelock.DestinationLeg)
}

func (f *EscrowFactory) createEscrow(caller common.Address, p CreateParams, leg timelock.Leg) (*escrow.Escrow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.resolvers[caller] {
		return nil, fmt.Errorf("%w: %s is not an authorized resolver", ErrUnauthorized, caller.Hex())
	}

	key := escrowKey{p.OrderHash, leg}
	if _, exists := f.escrows[key]; exists {
		return nil, fmt.Errorf("%w: %s %s leg", ErrOrderAlreadyProcessed, p.OrderHash.Hex(), leg)
	}
	if p.SafetyDeposit == nil || p.SafetyDeposit.IsZero() {
		return nil, fmt.Errorf("%w: safety deposit must be positive", ErrInsufficientAmount)
	}

	rescueDelay := f.srcRescueDelay
	if leg == timelock.DestinationLeg {
		rescueDelay = f.dstRescueDelay
	}

	esc, err := escrow.New(f.assets, f.clock, f.sink, escrow.Params{
		OrderHash:     p.OrderHash,
		Hashlock:      p.Hashlock,
		Maker:         p.Maker,
		Taker:         p.Taker,
		LockedAmount:  p.Amount,
		SafetyDeposit: p.SafetyDeposit,
		Offsets:       p.Offsets,
		Leg:           leg,
		Scheme:        p.Scheme,
		Binding:       p.Binding,
		RescueDelay:   rescueDelay,
	})
	if err != nil {
		return nil, err
	}

	f.escrows[key] = esc
	return esc, nil
}
