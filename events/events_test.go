// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package events

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	log "github.com/luxfi/log"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/htlc/timelock"
)

func TestLogAppendsInOrder(t *testing.T) {
	l := NewLog()

	order := common.HexToHash("0x01")
	l.Emit(EscrowCreated{OrderHash: order, Leg: timelock.SourceLeg, Amount: uint256.NewInt(5), DeployedAt: 100})
	l.Emit(EscrowWithdrawn{OrderHash: order, Leg: timelock.SourceLeg, Timestamp: 200})
	l.Emit(ResolverRegistered{Timestamp: 300})

	all := l.All()
	require.Len(t, all, 3)
	require.Equal(t, TypeEscrowCreated, all[0].Type())
	require.Equal(t, TypeEscrowWithdrawn, all[1].Type())
	require.Equal(t, TypeResolverRegistered, all[2].Type())
	require.Equal(t, 3, l.Len())
}

func TestByOrder(t *testing.T) {
	l := NewLog()

	a := common.HexToHash("0x0a")
	b := common.HexToHash("0x0b")

	l.Emit(EscrowCreated{OrderHash: a, DeployedAt: 1})
	l.Emit(EscrowCreated{OrderHash: b, DeployedAt: 2})
	l.Emit(EscrowCancelled{OrderHash: a, Timestamp: 3})
	l.Emit(ResolverRegistered{Timestamp: 4})

	got := l.ByOrder(a)
	require.Len(t, got, 2)
	require.Equal(t, TypeEscrowCreated, got[0].Type())
	require.Equal(t, TypeEscrowCancelled, got[1].Type())

	// ResolverRegistered correlates to no order but still lands in the log.
	require.Len(t, l.ByOrder(common.Hash{}), 1)
}

func TestSubscribeReceivesLaterRecords(t *testing.T) {
	l := NewLog()

	l.Emit(ResolverRegistered{Timestamp: 1})
	ch := l.Subscribe()
	l.Emit(EscrowWithdrawn{OrderHash: common.HexToHash("0x02"), Secret: []byte{1}, Timestamp: 2})

	select {
	case ev := <-ch:
		require.Equal(t, TypeEscrowWithdrawn, ev.Type())
	default:
		t.Fatal("expected a record on the subscription channel")
	}

	// The record emitted before Subscribe is not delivered.
	select {
	case ev := <-ch:
		t.Fatalf("unexpected record %s", ev.Type())
	default:
	}
}

func TestSubscribeDropsWhenFull(t *testing.T) {
	l := NewLog()
	ch := l.Subscribe()

	for i := 0; i < subscriberBuffer+10; i++ {
		l.Emit(ResolverRegistered{Timestamp: uint64(i)})
	}

	// Emit never blocks; the log itself keeps everything.
	require.Equal(t, subscriberBuffer+10, l.Len())
	require.Len(t, ch, subscriberBuffer)
}

func TestNopSink(t *testing.T) {
	var s Sink = NopSink{}
	s.Emit(ResolverRegistered{})
}

func TestLoggerSinkChains(t *testing.T) {
	next := NewLog()
	s := NewLoggerSink(log.NewTestLogger(log.InfoLevel), next)
	s.Emit(ResolverRegistered{Timestamp: 9})
	require.Equal(t, 1, next.Len())
}

func TestLoggerSinkNilNext(t *testing.T) {
	s := NewLoggerSink(log.NewTestLogger(log.InfoLevel), nil)
	s.Emit(EscrowCreated{OrderHash: common.HexToHash("0x03"), DeployedAt: 7})
}
