// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chains

import (
	"bytes"
	"testing"

	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"
)

func TestSchemeValidate(t *testing.T) {
	tests := []struct {
		name    string
		scheme  Scheme
		id      RemoteIdentity
		wantErr bool
	}{
		{"evm ok", SchemeEVM, common.HexToAddress("0x1234000000000000000000000000000000005678").Bytes(), false},
		{"evm wrong size", SchemeEVM, make([]byte, 19), true},
		{"evm zero address", SchemeEVM, make([]byte, 20), true},
		{"move ok", SchemeMove, bytes.Repeat([]byte{0x07}, 32), false},
		{"move wrong size", SchemeMove, bytes.Repeat([]byte{0x07}, 20), true},
		{"named ok", SchemeNamed, RemoteIdentity("sui:0xdeadbeef"), false},
		{"named empty", SchemeNamed, nil, true},
		{"named too long", SchemeNamed, bytes.Repeat([]byte{'a'}, 65), true},
		{"named non-printable", SchemeNamed, RemoteIdentity{0x00, 0x01}, true},
		{"unknown scheme", Scheme(9), RemoteIdentity("x"), true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.scheme.Validate(tc.id)
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestRegisterIsIdempotentUpdate(t *testing.T) {
	r := NewRegistry()

	first := common.HexToAddress("0x1111111111111111111111111111111111111111")
	second := common.HexToAddress("0x2222222222222222222222222222222222222222")

	require.NoError(t, r.Register(1, SchemeEVM, first.Bytes()))
	require.True(t, r.Supported(1))

	b, ok := r.Get(1)
	require.True(t, ok)
	require.Equal(t, RemoteIdentity(first.Bytes()), b.Identity)

	// Re-registering the same chain id updates the binding, it does not
	// duplicate it.
	require.NoError(t, r.Register(1, SchemeEVM, second.Bytes()))
	require.True(t, r.Supported(1))

	b, ok = r.Get(1)
	require.True(t, ok)
	require.Equal(t, RemoteIdentity(second.Bytes()), b.Identity)
	require.Len(t, r.ChainIDs(), 1)
}

func TestRegisterRejectsMalformed(t *testing.T) {
	r := NewRegistry()
	err := r.Register(1, SchemeEVM, make([]byte, 5))
	require.ErrorIs(t, err, ErrInvalidBinding)
	require.False(t, r.Supported(1))
}

func TestRegisterBatch(t *testing.T) {
	r := NewRegistry()

	ids := []uint64{1, 101, 2}
	schemes := []Scheme{SchemeEVM, SchemeMove, SchemeNamed}
	identities := []RemoteIdentity{
		common.HexToAddress("0x3333333333333333333333333333333333333333").Bytes(),
		bytes.Repeat([]byte{0xAA}, 32),
		RemoteIdentity("aptos::swap_registry"),
	}

	require.NoError(t, r.RegisterBatch(ids, schemes, identities))
	for _, id := range ids {
		require.True(t, r.Supported(id))
	}
}

func TestRegisterBatchLengthMismatch(t *testing.T) {
	r := NewRegistry()
	err := r.RegisterBatch([]uint64{1, 2}, []Scheme{SchemeEVM}, []RemoteIdentity{{0x01}})
	require.ErrorIs(t, err, ErrArrayLengthMismatch)
}

func TestRegisterBatchAllOrNothing(t *testing.T) {
	r := NewRegistry()

	ids := []uint64{1, 2}
	schemes := []Scheme{SchemeEVM, SchemeEVM}
	identities := []RemoteIdentity{
		common.HexToAddress("0x4444444444444444444444444444444444444444").Bytes(),
		make([]byte, 3), // malformed
	}

	require.ErrorIs(t, r.RegisterBatch(ids, schemes, identities), ErrInvalidBinding)
	require.False(t, r.Supported(1))
	require.False(t, r.Supported(2))
}

func TestRemove(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(7, SchemeNamed, RemoteIdentity("sui-testnet")))
	require.True(t, r.Supported(7))

	r.Remove(7)
	require.False(t, r.Supported(7))
}

func TestLocalBinding(t *testing.T) {
	r := NewRegistry()

	remote := bytes.Repeat([]byte{0x5A}, 32)
	local := common.HexToAddress("0x9999999999999999999999999999999999999999")

	_, ok := r.LocalFor(101, remote)
	require.False(t, ok)

	r.BindLocal(101, remote, local)
	got, ok := r.LocalFor(101, remote)
	require.True(t, ok)
	require.Equal(t, local, got)
}
