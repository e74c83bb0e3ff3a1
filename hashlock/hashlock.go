// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package hashlock implements the secret-to-commitment binding that ties the
// two legs of a cross-chain swap together. Both legs must agree byte-for-byte
// on the hash scheme and the secret encoding; the protocol default is
// keccak256 on every chain.
package hashlock

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"

	luxcrypto "github.com/luxfi/crypto"
	"github.com/luxfi/geth/common"
	"github.com/zeebo/blake3"
)

// SecretSize is the fixed length of a swap secret in bytes.
const SecretSize = 32

// Errors
var (
	ErrInvalidSecretSize = errors.New("secret must be exactly 32 bytes")
	ErrUnknownScheme     = errors.New("unknown hash scheme")
)

// Scheme selects the one-way hash used for the commitment. Keccak256 is the
// protocol default; SHA256 and Blake3 cover development chains whose native
// hash differs. Both legs of a swap must use the same scheme.
type Scheme uint8

const (
	Keccak256 Scheme = iota
	SHA256
	Blake3
)

func (s Scheme) String() string {
	switch s {
	case Keccak256:
		return "keccak256"
	case SHA256:
		return "sha256"
	case Blake3:
		return "blake3"
	default:
		return fmt.Sprintf("scheme(%d)", uint8(s))
	}
}

// SchemeFromString parses a scheme name.
func SchemeFromString(name string) (Scheme, error) {
	switch name {
	case "keccak256":
		return Keccak256, nil
	case "sha256":
		return SHA256, nil
	case "blake3":
		return Blake3, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownScheme, name)
	}
}

// ValidateSecret checks the fixed secret encoding.
func ValidateSecret(secret []byte) error {
	if len(secret) != SecretSize {
		return fmt.Errorf("%w: got %d", ErrInvalidSecretSize, len(secret))
	}
	return nil
}

// Commit returns the keccak256 commitment of a secret.
func Commit(secret []byte) common.Hash {
	return CommitWith(Keccak256, secret)
}

// CommitWith returns the commitment of a secret under the given scheme.
func CommitWith(scheme Scheme, secret []byte) common.Hash {
	switch scheme {
	case SHA256:
		return common.Hash(sha256.Sum256(secret))
	case Blake3:
		return common.Hash(blake3.Sum256(secret))
	default:
		return common.BytesToHash(luxcrypto.Keccak256(secret))
	}
}

// Verify reports whether secret is the pre-image of lock under keccak256.
func Verify(secret []byte, lock common.Hash) bool {
	return VerifyWith(Keccak256, secret, lock)
}

// VerifyWith recomputes the commitment under the given scheme and compares
// it in constant time against lock.
func VerifyWith(scheme Scheme, secret []byte, lock common.Hash) bool {
	if ValidateSecret(secret) != nil {
		return false
	}
	got := CommitWith(scheme, secret)
	return subtle.ConstantTimeCompare(got[:], lock[:]) == 1
}
