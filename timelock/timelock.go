// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package timelock implements the stage schedule shared by both legs of a
// cross-chain atomic swap. Every escrow carries one schedule: eight offsets
// relative to the deployment timestamp, four per leg, that gate when funds
// may be withdrawn or the swap cancelled.
package timelock

import (
	"errors"
	"fmt"
)

// Leg identifies which side of a swap a schedule entry belongs to.
type Leg uint8

const (
	SourceLeg Leg = iota
	DestinationLeg
)

func (l Leg) String() string {
	switch l {
	case SourceLeg:
		return "src"
	case DestinationLeg:
		return "dst"
	default:
		return fmt.Sprintf("leg(%d)", uint8(l))
	}
}

// Other returns the counter-leg of a swap.
func (l Leg) Other() Leg {
	if l == SourceLeg {
		return DestinationLeg
	}
	return SourceLeg
}

// Stage is one of the four named deadlines within a leg.
type Stage uint8

const (
	Withdrawal Stage = iota
	PublicWithdrawal
	Cancellation
	PublicCancellation
)

func (s Stage) String() string {
	switch s {
	case Withdrawal:
		return "withdrawal"
	case PublicWithdrawal:
		return "publicWithdrawal"
	case Cancellation:
		return "cancellation"
	case PublicCancellation:
		return "publicCancellation"
	default:
		return fmt.Sprintf("stage(%d)", uint8(s))
	}
}

// Errors
var (
	ErrInvalidTimelockOrdering = errors.New("timelock stages out of order")
	ErrAlreadyDeployed         = errors.New("deployment timestamp already set")
	ErrNotDeployed             = errors.New("deployment timestamp not set")
	ErrInvalidTimestamp        = errors.New("invalid deployment timestamp")
	ErrUnknownLeg              = errors.New("unknown leg")
	ErrUnknownStage            = errors.New("unknown stage")
)

// LegOffsets holds the four stage offsets of one leg, in seconds from the
// deployment timestamp.
type LegOffsets struct {
	Withdrawal         uint64
	PublicWithdrawal   uint64
	Cancellation       uint64
	PublicCancellation uint64
}

func (o LegOffsets) stage(s Stage) (uint64, error) {
	switch s {
	case Withdrawal:
		return o.Withdrawal, nil
	case PublicWithdrawal:
		return o.PublicWithdrawal, nil
	case Cancellation:
		return o.Cancellation, nil
	case PublicCancellation:
		return o.PublicCancellation, nil
	default:
		return 0, ErrUnknownStage
	}
}

// validate enforces the intra-leg ordering invariant:
// withdrawal <= publicWithdrawal <= cancellation <= publicCancellation.
func (o LegOffsets) validate(leg Leg) error {
	if o.Withdrawal > o.PublicWithdrawal {
		return fmt.Errorf("%w: %s withdrawal %d > publicWithdrawal %d",
			ErrInvalidTimelockOrdering, leg, o.Withdrawal, o.PublicWithdrawal)
	}
	if o.PublicWithdrawal > o.Cancellation {
		return fmt.Errorf("%w: %s publicWithdrawal %d > cancellation %d",
			ErrInvalidTimelockOrdering, leg, o.PublicWithdrawal, o.Cancellation)
	}
	if o.Cancellation > o.PublicCancellation {
		return fmt.Errorf("%w: %s cancellation %d > publicCancellation %d",
			ErrInvalidTimelockOrdering, leg, o.Cancellation, o.PublicCancellation)
	}
	return nil
}

// Offsets is the full eight-stage schedule covering both legs.
type Offsets struct {
	Src LegOffsets
	Dst LegOffsets
}

func (o Offsets) leg(l Leg) (LegOffsets, error) {
	switch l {
	case SourceLeg:
		return o.Src, nil
	case DestinationLeg:
		return o.Dst, nil
	default:
		return LegOffsets{}, ErrUnknownLeg
	}
}

// DefaultOffsets returns the standard production schedule: 5 minute private
// withdrawal, 10 minute public withdrawal, 30 minute cancellation and 1 hour
// public cancellation, mirrored on both legs.
func DefaultOffsets() Offsets {
	std := LegOffsets{
		Withdrawal:         300,
		PublicWithdrawal:   600,
		Cancellation:       1800,
		PublicCancellation: 3600,
	}
	return Offsets{Src: std, Dst: std}
}

// FastOffsets returns a compressed schedule for local development chains.
func FastOffsets() Offsets {
	fast := LegOffsets{
		Withdrawal:         10,
		PublicWithdrawal:   20,
		Cancellation:       60,
		PublicCancellation: 120,
	}
	return Offsets{Src: fast, Dst: fast}
}

// Timelocks binds a validated offset schedule to an escrow deployment
// timestamp. The timestamp is stamped exactly once, at escrow creation, from
// the host chain's clock; all deadline queries fail before that.
type Timelocks struct {
	deployedAt uint64
	offsets    Offsets
}

// New validates the schedule and returns it with the deployment timestamp
// unset.
func New(offsets Offsets) (Timelocks, error) {
	if err := offsets.Src.validate(SourceLeg); err != nil {
		return Timelocks{}, err
	}
	if err := offsets.Dst.validate(DestinationLeg); err != nil {
		return Timelocks{}, err
	}
	return Timelocks{offsets: offsets}, nil
}

// MustNew is New for schedules known to be valid, such as the package
// defaults. Panics otherwise.
func MustNew(offsets Offsets) Timelocks {
	tl, err := New(offsets)
	if err != nil {
		panic(err)
	}
	return tl
}

// SetDeployedAt stamps the deployment timestamp. It may be called exactly
// once per schedule and never accepts a zero timestamp.
func (t *Timelocks) SetDeployedAt(ts uint64) error {
	if t.deployedAt != 0 {
		return ErrAlreadyDeployed
	}
	if ts == 0 {
		return ErrInvalidTimestamp
	}
	t.deployedAt = ts
	return nil
}

// DeployedAt returns the stamped deployment timestamp, zero if unset.
func (t Timelocks) DeployedAt() uint64 {
	return t.deployedAt
}

// Deployed reports whether the schedule has been bound to a deployment time.
func (t Timelocks) Deployed() bool {
	return t.deployedAt != 0
}

// Offsets returns the validated offset schedule.
func (t Timelocks) Offsets() Offsets {
	return t.offsets
}

// StageTime returns the absolute unix time at which the given stage of the
// given leg opens.
func (t Timelocks) StageTime(leg Leg, stage Stage) (uint64, error) {
	if t.deployedAt == 0 {
		return 0, ErrNotDeployed
	}
	lo, err := t.offsets.leg(leg)
	if err != nil {
		return 0, err
	}
	off, err := lo.stage(stage)
	if err != nil {
		return 0, err
	}
	return t.deployedAt + off, nil
}

// IsReached reports whether the given stage deadline has passed at time now.
func (t Timelocks) IsReached(leg Leg, stage Stage, now uint64) (bool, error) {
	at, err := t.StageTime(leg, stage)
	if err != nil {
		return false, err
	}
	return now >= at, nil
}
