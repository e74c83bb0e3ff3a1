// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package chains maps external chain identifiers to remote party identities
// for cross-VM addressing. A remote identity is an opaque byte blob with a
// per-scheme validator, so no single ledger's address format leaks into the
// swap core. The registry is a directory, not a trust anchor: resolver
// authorization lives in the factory.
package chains

import (
	"bytes"
	"errors"
	"fmt"
	"unicode"

	"github.com/luxfi/geth/common"
)

// Errors
var (
	ErrInvalidBinding        = errors.New("invalid remote identity binding")
	ErrArrayLengthMismatch   = errors.New("batch registration array length mismatch")
	ErrUnknownIdentityScheme = errors.New("unknown identity scheme")
)

// RemoteIdentity is an opaque remote-chain identity encoding.
type RemoteIdentity []byte

// Clone returns an independent copy.
func (id RemoteIdentity) Clone() RemoteIdentity {
	return bytes.Clone(id)
}

// Scheme names the encoding a remote identity uses.
type Scheme uint8

const (
	// SchemeEVM is a 20-byte EVM address.
	SchemeEVM Scheme = iota
	// SchemeMove is a 32-byte Sui/Aptos-style account address.
	SchemeMove
	// SchemeNamed is a short printable chain-native label.
	SchemeNamed
)

const (
	evmIdentitySize  = common.AddressLength
	moveIdentitySize = 32
	maxNamedIdentity = 64
)

func (s Scheme) String() string {
	switch s {
	case SchemeEVM:
		return "evm"
	case SchemeMove:
		return "move"
	case SchemeNamed:
		return "named"
	default:
		return fmt.Sprintf("scheme(%d)", uint8(s))
	}
}

// Validate checks that id is well formed under scheme s.
func (s Scheme) Validate(id RemoteIdentity) error {
	switch s {
	case SchemeEVM:
		if len(id) != evmIdentitySize {
			return fmt.Errorf("%w: evm identity must be %d bytes, got %d",
				ErrInvalidBinding, evmIdentitySize, len(id))
		}
		if bytes.Equal(id, make([]byte, evmIdentitySize)) {
			return fmt.Errorf("%w: zero evm address", ErrInvalidBinding)
		}
	case SchemeMove:
		if len(id) != moveIdentitySize {
			return fmt.Errorf("%w: move identity must be %d bytes, got %d",
				ErrInvalidBinding, moveIdentitySize, len(id))
		}
	case SchemeNamed:
		if len(id) == 0 || len(id) > maxNamedIdentity {
			return fmt.Errorf("%w: named identity must be 1-%d bytes, got %d",
				ErrInvalidBinding, maxNamedIdentity, len(id))
		}
		for _, r := range string(id) {
			if !unicode.IsPrint(r) {
				return fmt.Errorf("%w: named identity contains non-printable rune", ErrInvalidBinding)
			}
		}
	default:
		return fmt.Errorf("%w: %d", ErrUnknownIdentityScheme, uint8(s))
	}
	return nil
}

// Binding ties an external chain id to a validated remote identity.
type Binding struct {
	ChainID  uint64
	Scheme   Scheme
	Identity RemoteIdentity
}

// NewBinding validates and builds a binding.
func NewBinding(chainID uint64, scheme Scheme, identity RemoteIdentity) (Binding, error) {
	if err := scheme.Validate(identity); err != nil {
		return Binding{}, err
	}
	return Binding{ChainID: chainID, Scheme: scheme, Identity: identity.Clone()}, nil
}

// EVMBinding builds a binding for a 20-byte EVM address.
func EVMBinding(chainID uint64, addr common.Address) Binding {
	return Binding{ChainID: chainID, Scheme: SchemeEVM, Identity: addr.Bytes()}
}
