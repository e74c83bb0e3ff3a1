// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package escrow implements the per-leg state machine of a cross-chain
// atomic swap. An escrow is created atomically with its funding: the locked
// amount plus a safety deposit move into a ledger holding account, the
// deployment timestamp is stamped from the host clock, and from then on the
// only way out is a secret-gated withdrawal or a time-gated cancellation.
// Every transition re-checks the terminal flag and the stage window under the
// escrow's lock, so of two racing calls only the first commits; the loser
// observes ErrAlreadyCompleted.
package escrow

import (
	"errors"
	"fmt"
	"sync"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/htlc/chains"
	"github.com/luxfi/htlc/events"
	"github.com/luxfi/htlc/hashlock"
	"github.com/luxfi/htlc/ledger"
	"github.com/luxfi/htlc/timelock"
)

// DefaultRescueDelay is the time after deployment before stray funds can be
// rescued, in seconds.
const DefaultRescueDelay uint64 = 7 * 24 * 3600

// Errors
var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrAlreadyCompleted   = errors.New("escrow already completed")
	ErrTimelockNotReached = errors.New("timelock not reached")
	ErrTimelockExpired    = errors.New("timelock expired")
	ErrInvalidSecret      = errors.New("invalid secret")
	ErrInvalidParams      = errors.New("invalid escrow parameters")
	ErrRescueNotReady     = errors.New("rescue delay not elapsed")
	ErrNothingToRescue    = errors.New("no rescuable funds")
)

// Status is the escrow lifecycle state. Withdrawn and Cancelled are both
// terminal; the transition out of Active happens exactly once.
type Status uint8

const (
	StatusActive Status = iota
	StatusWithdrawn
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusWithdrawn:
		return "withdrawn"
	case StatusCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// Params carries everything needed to create one leg escrow.
type Params struct {
	OrderHash     common.Hash
	Hashlock      common.Hash
	Maker         common.Address // funds originator and refund recipient
	Taker         common.Address // counter-party driving the swap
	LockedAmount  *uint256.Int
	SafetyDeposit *uint256.Int
	Offsets       timelock.Offsets
	Leg           timelock.Leg

	// Scheme is the hash scheme of Hashlock; both legs of a swap must
	// agree. Zero value is the protocol-default keccak256.
	Scheme hashlock.Scheme

	// Binding optionally records the remote-chain identity this leg is
	// paired with. Informational; never used for authorization.
	Binding *chains.Binding

	// RescueDelay in seconds; zero selects DefaultRescueDelay.
	RescueDelay uint64
}

func (p *Params) validate() error {
	if p.OrderHash == (common.Hash{}) {
		return fmt.Errorf("%w: zero order hash", ErrInvalidParams)
	}
	if p.Hashlock == (common.Hash{}) {
		return fmt.Errorf("%w: zero hashlock", ErrInvalidParams)
	}
	if p.Maker == (common.Address{}) || p.Taker == (common.Address{}) {
		return fmt.Errorf("%w: zero party address", ErrInvalidParams)
	}
	if p.LockedAmount == nil || p.LockedAmount.IsZero() {
		return fmt.Errorf("%w: locked amount must be positive", ErrInvalidParams)
	}
	if p.SafetyDeposit == nil || p.SafetyDeposit.IsZero() {
		return fmt.Errorf("%w: safety deposit must be positive", ErrInvalidParams)
	}
	if p.Binding != nil {
		if err := p.Binding.Scheme.Validate(p.Binding.Identity); err != nil {
			return err
		}
	}
	return nil
}

// Escrow is one leg of one swap.
type Escrow struct {
	orderHash     common.Hash
	lock          common.Hash
	maker         common.Address
	taker         common.Address
	lockedAmount  *uint256.Int
	safetyDeposit *uint256.Int
	timelocks     timelock.Timelocks
	leg           timelock.Leg
	scheme        hashlock.Scheme
	binding       *chains.Binding
	rescueDelay   uint64

	status Status
	handle ledger.Handle

	assets ledger.Ledger
	clock  ledger.Clock
	sink   events.Sink

	mu sync.Mutex
}

// New validates params, locks LockedAmount+SafetyDeposit from the maker into
// a fresh holding account and stamps the schedule with the host clock. There
// is no observable unfunded state: if any step fails the lock is unwound and
// an error returned.
func New(assets ledger.Ledger, clock ledger.Clock, sink events.Sink, p Params) (*Escrow, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	tl, err := timelock.New(p.Offsets)
	if err != nil {
		return nil, err
	}
	if sink == nil {
		sink = events.NopSink{}
	}

	total := new(uint256.Int).Add(p.LockedAmount, p.SafetyDeposit)
	handle, err := assets.Lock(p.Maker, total)
	if err != nil {
		return nil, err
	}

	now := clock.Now()
	if err := tl.SetDeployedAt(now); err != nil {
		// Unwind the funding lock; the escrow was never created.
		if rerr := assets.Release(handle, total, p.Maker); rerr != nil {
			return nil, fmt.Errorf("%v (unwind failed: %v)", err, rerr)
		}
		return nil, err
	}

	rescueDelay := p.RescueDelay
	if rescueDelay == 0 {
		rescueDelay = DefaultRescueDelay
	}

	var binding *chains.Binding
	if p.Binding != nil {
		b := *p.Binding
		b.Identity = b.Identity.Clone()
		binding = &b
	}

	e := &Escrow{
		orderHash:     p.OrderHash,
		lock:          p.Hashlock,
		maker:         p.Maker,
		taker:         p.Taker,
		lockedAmount:  p.LockedAmount.Clone(),
		safetyDeposit: p.SafetyDeposit.Clone(),
		timelocks:     tl,
		leg:           p.Leg,
		scheme:        p.Scheme,
		binding:       binding,
		rescueDelay:   rescueDelay,
		status:        StatusActive,
		handle:        handle,
		assets:        assets,
		clock:         clock,
		sink:          sink,
	}

	sink.Emit(events.EscrowCreated{
		OrderHash:     e.orderHash,
		Leg:           e.leg,
		Maker:         e.maker,
		Taker:         e.taker,
		Hashlock:      e.lock,
		Amount:        e.lockedAmount.Clone(),
		SafetyDeposit: e.safetyDeposit.Clone(),
		DeployedAt:    now,
	})
	return e, nil
}

// OrderHash returns the correlation id of the swap this leg belongs to.
func (e *Escrow) OrderHash() common.Hash { return e.orderHash }

// Hashlock returns the secret commitment gating withdrawal.
func (e *Escrow) Hashlock() common.Hash { return e.lock }

// Maker returns the funds originator and refund recipient.
func (e *Escrow) Maker() common.Address { return e.maker }

// Taker returns the counter-party driving the swap.
func (e *Escrow) Taker() common.Address { return e.taker }

// Leg returns which side of the swap this escrow is.
func (e *Escrow) Leg() timelock.Leg { return e.leg }

// LockedAmount returns the escrowed swap amount.
func (e *Escrow) LockedAmount() *uint256.Int { return e.lockedAmount.Clone() }

// SafetyDeposit returns the incentive amount paid to whoever executes the
// terminal step.
func (e *Escrow) SafetyDeposit() *uint256.Int { return e.safetyDeposit.Clone() }

// Timelocks returns the stamped schedule.
func (e *Escrow) Timelocks() timelock.Timelocks {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.timelocks
}

// Binding returns a copy of the remote-chain binding, nil if none was
// recorded.
func (e *Escrow) Binding() *chains.Binding {
	if e.binding == nil {
		return nil
	}
	b := *e.binding
	b.Identity = b.Identity.Clone()
	return &b
}

// Scheme returns the hash scheme of the escrow's hashlock.
func (e *Escrow) Scheme() hashlock.Scheme { return e.scheme }

// Status returns the current lifecycle state.
func (e *Escrow) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Completed reports whether a terminal transition has committed.
func (e *Escrow) Completed() bool {
	return e.Status() != StatusActive
}

// withdrawBeneficiary is who receives the locked amount on withdrawal: the
// maker on the source leg (the refund path doubles as swap completion there)
// and the taker on the destination leg.
func (e *Escrow) withdrawBeneficiary() common.Address {
	if e.leg == timelock.SourceLeg {
		return e.maker
	}
	return e.taker
}

// stageTime never fails after construction: the schedule was validated and
// stamped in New.
func (e *Escrow) stageTime(stage timelock.Stage) uint64 {
	at, err := e.timelocks.StageTime(e.leg, stage)
	if err != nil {
		panic(fmt.Sprintf("escrow schedule broken: %v", err))
	}
	return at
}

// checkWithdrawWindow gates a withdrawal at time now. The window opens at
// start (private or public withdrawal stage) and closes when cancellation
// opens.
func (e *Escrow) checkWithdrawWindow(start timelock.Stage, now uint64) error {
	if opens := e.stageTime(start); now < opens {
		return fmt.Errorf("%w: %s %s opens at %d, now %d",
			ErrTimelockNotReached, e.leg, start, opens, now)
	}
	if closes := e.stageTime(timelock.Cancellation); now >= closes {
		return fmt.Errorf("%w: %s withdrawal closed at %d, now %d",
			ErrTimelockExpired, e.leg, closes, now)
	}
	return nil
}

// finalizeWithdraw moves the locked amount to recipient and the safety
// deposit to caller, then commits the terminal state. Caller must hold e.mu.
func (e *Escrow) finalizeWithdraw(caller, recipient common.Address, secret []byte, now uint64) error {
	if err := e.assets.Release(e.handle, e.lockedAmount, recipient); err != nil {
		return err
	}
	if err := e.assets.Release(e.handle, e.safetyDeposit, caller); err != nil {
		return err
	}
	e.status = StatusWithdrawn

	e.sink.Emit(events.EscrowWithdrawn{
		OrderHash: e.orderHash,
		Leg:       e.leg,
		Caller:    caller,
		Recipient: recipient,
		Amount:    e.lockedAmount.Clone(),
		Secret:    append([]byte(nil), secret...),
		Timestamp: now,
	})
	return nil
}

// Withdraw releases the locked amount to the leg's beneficiary. Only the
// taker may call it, only inside [withdrawal, cancellation), and only with
// the pre-image of the hashlock. The safety deposit pays the caller.
func (e *Escrow) Withdraw(caller common.Address, secret []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status != StatusActive {
		return ErrAlreadyCompleted
	}
	now := e.clock.Now()
	if err := e.checkWithdrawWindow(timelock.Withdrawal, now); err != nil {
		return err
	}
	if caller != e.taker {
		return fmt.Errorf("%w: withdraw restricted to taker %s", ErrUnauthorized, e.taker.Hex())
	}
	if !hashlock.VerifyWith(e.scheme, secret, e.lock) {
		return ErrInvalidSecret
	}
	return e.finalizeWithdraw(caller, e.withdrawBeneficiary(), secret, now)
}

// PublicWithdraw is Withdraw without the caller restriction, open once the
// public withdrawal stage is reached. The safety deposit rewards whoever
// completes the swap when the taker is unresponsive.
func (e *Escrow) PublicWithdraw(caller common.Address, secret []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status != StatusActive {
		return ErrAlreadyCompleted
	}
	now := e.clock.Now()
	if err := e.checkWithdrawWindow(timelock.PublicWithdrawal, now); err != nil {
		return err
	}
	if !hashlock.VerifyWith(e.scheme, secret, e.lock) {
		return ErrInvalidSecret
	}
	return e.finalizeWithdraw(caller, e.withdrawBeneficiary(), secret, now)
}

// WithdrawTo is the taker-only variant that redirects the locked amount to
// an explicit target, for beneficiaries that are themselves routing agents.
func (e *Escrow) WithdrawTo(caller common.Address, secret []byte, target common.Address) error {
	if target == (common.Address{}) {
		return fmt.Errorf("%w: zero withdraw target", ErrInvalidParams)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status != StatusActive {
		return ErrAlreadyCompleted
	}
	now := e.clock.Now()
	if err := e.checkWithdrawWindow(timelock.Withdrawal, now); err != nil {
		return err
	}
	if caller != e.taker {
		return fmt.Errorf("%w: withdraw restricted to taker %s", ErrUnauthorized, e.taker.Hex())
	}
	if !hashlock.VerifyWith(e.scheme, secret, e.lock) {
		return ErrInvalidSecret
	}
	return e.finalizeWithdraw(caller, target, secret, now)
}

// Cancel refunds the locked amount to the maker once the cancellation stage
// is reached and pays the safety deposit to the caller. On the source leg
// the call is taker-only until public cancellation opens, then
// permissionless; on the destination leg it is taker-only at all times.
func (e *Escrow) Cancel(caller common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status != StatusActive {
		return ErrAlreadyCompleted
	}
	now := e.clock.Now()
	if opens := e.stageTime(timelock.Cancellation); now < opens {
		return fmt.Errorf("%w: %s cancellation opens at %d, now %d",
			ErrTimelockNotReached, e.leg, opens, now)
	}

	takerOnly := e.leg == timelock.DestinationLeg ||
		now < e.stageTime(timelock.PublicCancellation)
	if takerOnly && caller != e.taker {
		return fmt.Errorf("%w: cancel restricted to taker %s", ErrUnauthorized, e.taker.Hex())
	}

	if err := e.assets.Release(e.handle, e.lockedAmount, e.maker); err != nil {
		return err
	}
	if err := e.assets.Release(e.handle, e.safetyDeposit, caller); err != nil {
		return err
	}
	e.status = StatusCancelled

	e.sink.Emit(events.EscrowCancelled{
		OrderHash: e.orderHash,
		Leg:       e.leg,
		Caller:    caller,
		Refundee:  e.maker,
		Amount:    e.lockedAmount.Clone(),
		Timestamp: now,
	})
	return nil
}

// EmergencyCancel is the maker-only escape hatch for misconfigured or
// abandoned swaps. It bypasses the timelock gates entirely and returns the
// full balance, safety deposit included, to the maker. A trusted override,
// not a public path.
func (e *Escrow) EmergencyCancel(caller common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status != StatusActive {
		return ErrAlreadyCompleted
	}
	if caller != e.maker {
		return fmt.Errorf("%w: emergency cancel restricted to maker %s", ErrUnauthorized, e.maker.Hex())
	}

	total := new(uint256.Int).Add(e.lockedAmount, e.safetyDeposit)
	if err := e.assets.Release(e.handle, total, e.maker); err != nil {
		return err
	}
	e.status = StatusCancelled

	e.sink.Emit(events.EscrowCancelled{
		OrderHash: e.orderHash,
		Leg:       e.leg,
		Caller:    caller,
		Refundee:  e.maker,
		Amount:    total,
		Timestamp: e.clock.Now(),
	})
	return nil
}

// Rescue lets the taker recover funds stranded in the holding account by
// external ledger quirks once the rescue delay has elapsed. While the escrow
// is still active the reserved lockedAmount+safetyDeposit stays untouchable;
// only the surplus above it may leave, so a rescue can never leave a later
// Withdraw or Cancel half-applied.
func (e *Escrow) Rescue(caller common.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return fmt.Errorf("%w: rescue amount must be positive", ErrInvalidParams)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.taker {
		return fmt.Errorf("%w: rescue restricted to taker %s", ErrUnauthorized, e.taker.Hex())
	}
	now := e.clock.Now()
	ready := e.timelocks.DeployedAt() + e.rescueDelay
	if now < ready {
		return fmt.Errorf("%w: ready at %d, now %d", ErrRescueNotReady, ready, now)
	}

	rescuable := e.assets.Balance(e.handle)
	if e.status == StatusActive {
		reserved := new(uint256.Int).Add(e.lockedAmount, e.safetyDeposit)
		if rescuable.Lt(reserved) {
			rescuable.Clear()
		} else {
			rescuable.Sub(rescuable, reserved)
		}
	}
	if rescuable.Lt(amount) {
		return fmt.Errorf("%w: rescuable %s below requested %s", ErrNothingToRescue, rescuable, amount)
	}
	return e.assets.Release(e.handle, amount, caller)
}
