// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package resolver

import (
	"context"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/htlc/chains"
	"github.com/luxfi/htlc/escrow"
	"github.com/luxfi/htlc/events"
	"github.com/luxfi/htlc/factory"
	"github.com/luxfi/htlc/hashlock"
	"github.com/luxfi/htlc/ledger"
	"github.com/luxfi/htlc/order"
	"github.com/luxfi/htlc/timelock"
)

const startTime = uint64(1_700_000_000)

var (
	admin        = common.HexToAddress("0xad010000000000000000000000000000000000ad")
	resolverAddr = common.HexToAddress("0x1e500000000000000000000000000000000000e5")
	owner        = common.HexToAddress("0x0e0e0000000000000000000000000000000000ee")
	operator     = common.HexToAddress("0x0b0b00000000000000000000000000000000000b")
	maker        = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	stranger     = common.HexToAddress("0xcccccccccccccccccccccccccccccccccccccccc")
)

type fixture struct {
	resolver *Resolver
	factory  *factory.EscrowFactory
	assets   *ledger.MemLedger
	clock    *ledger.ManualClock
	sink     *events.Log
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		assets: ledger.NewMemLedger(),
		clock:  ledger.NewManualClock(startTime),
		sink:   events.NewLog(),
	}
	f.assets.Mint(resolverAddr, uint256.NewInt(10_000_000))
	f.assets.Mint(maker, uint256.NewInt(10_000_000))

	fac, err := factory.New(factory.Config{
		Admin:  admin,
		Assets: f.assets,
		Clock:  f.clock,
		Sink:   f.sink,
	})
	require.NoError(t, err)
	require.NoError(t, fac.AuthorizeResolver(admin, resolverAddr))
	f.factory = fac

	r, err := New(resolverAddr, owner, nil)
	require.NoError(t, err)
	require.NoError(t, r.AuthorizeOperator(owner, operator))
	f.resolver = r
	return f
}

func testOrder(salt uint64) (*order.CrossChainOrder, []byte) {
	secret, secretHash := order.NewOrderSecret(byte(salt))
	return &order.CrossChainOrder{
		Maker:        maker,
		Taker:        resolverAddr,
		MakingAmount: uint256.NewInt(1_000_000),
		TakingAmount: uint256.NewInt(990_000),
		SecretHash:   secretHash,
		SrcChainID:   96369,
		DstChainID:   1,
		Salt:         salt,
	}, secret
}

func TestNewValidation(t *testing.T) {
	_, err := New(common.Address{}, owner, nil)
	require.ErrorIs(t, err, ErrInvalidConfig)
	_, err = New(resolverAddr, common.Address{}, nil)
	require.ErrorIs(t, err, ErrInvalidConfig)

	r, err := New(resolverAddr, owner, nil)
	require.NoError(t, err)
	require.Equal(t, resolverAddr, r.Address())
	require.Equal(t, owner, r.Owner())
	require.True(t, r.IsOperator(owner))
}

func TestOperatorManagement(t *testing.T) {
	f := newFixture(t)
	r := f.resolver

	require.True(t, r.IsOperator(operator))
	require.ErrorIs(t, r.AuthorizeOperator(owner, common.Address{}), ErrInvalidConfig)
	require.ErrorIs(t, r.AuthorizeOperator(stranger, stranger), ErrUnauthorized)
	require.ErrorIs(t, r.RevokeOperator(operator, operator), ErrUnauthorized)

	// The owner cannot revoke itself out of the operator set.
	require.ErrorIs(t, r.RevokeOperator(owner, owner), ErrUnauthorized)

	require.NoError(t, r.RevokeOperator(owner, operator))
	require.False(t, r.IsOperator(operator))
}

func TestSubmitOrderAndSecret(t *testing.T) {
	f := newFixture(t)
	ord, secret := testOrder(1)

	_, err := f.resolver.SubmitOrderAndSecret(stranger, f.factory, ord, secret,
		uint256.NewInt(990_000), uint256.NewInt(1_000), timelock.FastOffsets())
	require.ErrorIs(t, err, ErrUnauthorized)

	wrong := make([]byte, hashlock.SecretSize)
	_, err = f.resolver.SubmitOrderAndSecret(operator, f.factory, ord, wrong,
		uint256.NewInt(990_000), uint256.NewInt(1_000), timelock.FastOffsets())
	require.ErrorIs(t, err, ErrSecretMismatch)

	esc, err := f.resolver.SubmitOrderAndSecret(operator, f.factory, ord, secret,
		uint256.NewInt(990_000), uint256.NewInt(1_000), timelock.FastOffsets())
	require.NoError(t, err)
	require.Equal(t, timelock.DestinationLeg, esc.Leg())
	require.True(t, f.factory.IsOrderProcessed(ord.Hash()))

	stored, ok := f.resolver.Secret(ord.Hash())
	require.True(t, ok)
	require.Equal(t, secret, stored)

	// Stored copy is independent of the caller's buffer.
	stored[0] ^= 0xff
	again, _ := f.resolver.Secret(ord.Hash())
	require.Equal(t, secret, again)
}

func TestCompleteSwapWithSecret(t *testing.T) {
	f := newFixture(t)

	secret, secretHash := order.NewOrderSecret(0x21)
	orderHash := common.HexToHash("0x0101")
	esc, err := f.factory.CreateSrcEscrow(resolverAddr, factory.CreateParams{
		OrderHash:     orderHash,
		Hashlock:      secretHash,
		Maker:         maker,
		Taker:         resolverAddr,
		Amount:        uint256.NewInt(500_000),
		SafetyDeposit: uint256.NewInt(2_000),
		Offsets:       timelock.FastOffsets(),
	})
	require.NoError(t, err)

	require.ErrorIs(t, f.resolver.CompleteSwapWithSecret(operator, esc), ErrUnknownOrder)

	require.NoError(t, f.resolver.LearnSecret(operator, orderHash, secret, secretHash))
	require.ErrorIs(t, f.resolver.CompleteSwapWithSecret(stranger, esc), ErrUnauthorized)

	// Window not open yet.
	require.ErrorIs(t, f.resolver.CompleteSwapWithSecret(operator, esc), escrow.ErrTimelockNotReached)

	f.clock.Advance(11)
	require.NoError(t, f.resolver.CompleteSwapWithSecret(operator, esc))
	require.Equal(t, escrow.StatusWithdrawn, esc.Status())
}

func TestCompleteSwapRejectsCorruptedSecret(t *testing.T) {
	f := newFixture(t)

	secret, secretHash := order.NewOrderSecret(0x22)
	_, otherHash := order.NewOrderSecret(0x23)
	orderHash := common.HexToHash("0x0202")

	// The stored secret opens secretHash but the escrow is locked to a
	// different commitment.
	require.NoError(t, f.resolver.LearnSecret(operator, orderHash, secret, secretHash))

	esc, err := f.factory.CreateSrcEscrow(resolverAddr, factory.CreateParams{
		OrderHash:     orderHash,
		Hashlock:      otherHash,
		Maker:         maker,
		Taker:         resolverAddr,
		Amount:        uint256.NewInt(500_000),
		SafetyDeposit: uint256.NewInt(2_000),
		Offsets:       timelock.FastOffsets(),
	})
	require.NoError(t, err)

	f.clock.Advance(11)
	require.ErrorIs(t, f.resolver.CompleteSwapWithSecret(operator, esc), ErrCorruptedSecret)
	require.Equal(t, escrow.StatusActive, esc.Status())
}

func TestLearnSecretRejectsMismatch(t *testing.T) {
	f := newFixture(t)

	_, secretHash := order.NewOrderSecret(0x24)
	wrong := make([]byte, hashlock.SecretSize)
	require.ErrorIs(t,
		f.resolver.LearnSecret(operator, common.HexToHash("0x0303"), wrong, secretHash),
		ErrSecretMismatch)
	require.ErrorIs(t,
		f.resolver.LearnSecret(stranger, common.HexToHash("0x0303"), wrong, secretHash),
		ErrUnauthorized)
}

func TestEmergencyWithdrawTo(t *testing.T) {
	f := newFixture(t)

	secret, secretHash := order.NewOrderSecret(0x25)
	orderHash := common.HexToHash("0x0404")
	target := common.HexToAddress("0xdddddddddddddddddddddddddddddddddddddddd")

	esc, err := f.factory.CreateSrcEscrow(resolverAddr, factory.CreateParams{
		OrderHash:     orderHash,
		Hashlock:      secretHash,
		Maker:         maker,
		Taker:         resolverAddr,
		Amount:        uint256.NewInt(500_000),
		SafetyDeposit: uint256.NewInt(2_000),
		Offsets:       timelock.FastOffsets(),
	})
	require.NoError(t, err)
	require.NoError(t, f.resolver.LearnSecret(operator, orderHash, secret, secretHash))

	f.clock.Advance(11)
	require.ErrorIs(t, f.resolver.EmergencyWithdrawTo(operator, esc, target), ErrUnauthorized)

	require.NoError(t, f.resolver.EmergencyWithdrawTo(owner, esc, target))
	require.Equal(t, uint256.NewInt(500_000), f.assets.BalanceOf(target))
}

func TestCleanupProcessedOrder(t *testing.T) {
	f := newFixture(t)
	ord, secret := testOrder(2)

	_, err := f.resolver.SubmitOrderAndSecret(operator, f.factory, ord, secret,
		uint256.NewInt(990_000), uint256.NewInt(1_000), timelock.FastOffsets())
	require.NoError(t, err)

	require.ErrorIs(t, f.resolver.CleanupProcessedOrder(stranger, ord.Hash()), ErrUnauthorized)
	require.NoError(t, f.resolver.CleanupProcessedOrder(operator, ord.Hash()))

	_, ok := f.resolver.Secret(ord.Hash())
	require.False(t, ok)

	// Idempotent.
	require.NoError(t, f.resolver.CleanupProcessedOrder(operator, ord.Hash()))
}

func TestResolverChainDirectory(t *testing.T) {
	f := newFixture(t)
	r := f.resolver

	id := chains.RemoteIdentity(maker.Bytes())
	require.ErrorIs(t, r.RegisterChain(operator, 1, chains.SchemeEVM, id), ErrUnauthorized)

	require.NoError(t, r.RegisterChain(owner, 1, chains.SchemeEVM, id))
	require.True(t, r.IsChainSupported(1))
	require.False(t, r.IsChainSupported(2))

	b, ok := r.ChainBinding(1)
	require.True(t, ok)
	require.Equal(t, chains.SchemeEVM, b.Scheme)

	// Batch is all-or-nothing.
	err := r.RegisterChains(owner,
		[]uint64{2, 3},
		[]chains.Scheme{chains.SchemeEVM},
		[]chains.RemoteIdentity{id, id})
	require.ErrorIs(t, err, chains.ErrArrayLengthMismatch)
	require.False(t, r.IsChainSupported(2))

	require.NoError(t, r.RegisterChains(owner,
		[]uint64{2, 3},
		[]chains.Scheme{chains.SchemeEVM, chains.SchemeEVM},
		[]chains.RemoteIdentity{id, id}))
	require.True(t, r.IsChainSupported(2))
	require.True(t, r.IsChainSupported(3))
}

// TestWatchAndComplete exercises the full two-leg flow: the order maker
// withdraws the destination leg, revealing the secret on the record log, and
// the watching resolver uses it to release the source leg it is taker of.
func TestWatchAndComplete(t *testing.T) {
	f := newFixture(t)
	ord, secret := testOrder(3)
	orderHash := ord.Hash()

	src, err := f.factory.CreateSrcEscrow(resolverAddr, factory.CreateParams{
		OrderHash:     orderHash,
		Hashlock:      ord.SecretHash,
		Maker:         maker,
		Taker:         resolverAddr,
		Amount:        ord.MakingAmount,
		SafetyDeposit: uint256.NewInt(1_000),
		Offsets:       timelock.FastOffsets(),
	})
	require.NoError(t, err)

	dst, err := f.resolver.SubmitOrderAndSecret(operator, f.factory, ord, secret,
		uint256.NewInt(990_000), uint256.NewInt(1_000), timelock.FastOffsets())
	require.NoError(t, err)

	feed := f.sink.Subscribe()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- f.resolver.WatchAndComplete(ctx, feed, f.factory) }()

	f.clock.Advance(11)
	require.NoError(t, dst.Withdraw(maker, secret))

	require.Eventually(t, src.Completed, 2*time.Second, 5*time.Millisecond)
	require.Equal(t, escrow.StatusWithdrawn, src.Status())

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}
