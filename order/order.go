// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package order defines the signed cross-chain swap order consumed by the
// escrow factory. An order is created off-chain by the maker, identified by
// its keccak256 hash, and consumed exactly once.
package order

import (
	"crypto/ecdsa"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/crypto"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/htlc/hashlock"
)

// Errors
var (
	ErrInvalidOrder     = errors.New("invalid order")
	ErrInvalidSignature = errors.New("invalid order signature")
)

// orderTypeHash tags the packed encoding so order hashes can never collide
// with other signed payloads.
var orderTypeHash = crypto.Keccak256Hash([]byte(
	"CrossChainOrder(address maker,address taker,uint256 makingAmount,uint256 takingAmount,bytes32 secretHash,uint64 srcChainId,uint64 dstChainId,uint64 salt)",
))

// CrossChainOrder describes one atomic swap: the maker gives MakingAmount on
// the source chain for TakingAmount on the destination chain, gated by
// SecretHash on both legs.
type CrossChainOrder struct {
	Maker        common.Address
	Taker        common.Address
	MakingAmount *uint256.Int
	TakingAmount *uint256.Int
	SecretHash   common.Hash
	SrcChainID   uint64
	DstChainID   uint64
	Salt         uint64

	// Signature is the maker's 65-byte secp256k1 signature over Hash().
	// Optional; unsigned orders rely on the factory's caller checks alone.
	Signature []byte
}

// Hash returns the keccak256 order hash over the fixed packed encoding. It
// is the correlation id deduplicated by the factory.
func (o *CrossChainOrder) Hash() common.Hash {
	buf := make([]byte, 0, 32+2*common.AddressLength+3*32+3*8)
	buf = append(buf, orderTypeHash.Bytes()...)
	buf = append(buf, o.Maker.Bytes()...)
	buf = append(buf, o.Taker.Bytes()...)
	buf = appendAmount(buf, o.MakingAmount)
	buf = appendAmount(buf, o.TakingAmount)
	buf = append(buf, o.SecretHash.Bytes()...)
	buf = binary.BigEndian.AppendUint64(buf, o.SrcChainID)
	buf = binary.BigEndian.AppendUint64(buf, o.DstChainID)
	buf = binary.BigEndian.AppendUint64(buf, o.Salt)
	return common.Keccak256Hash(buf)
}

func appendAmount(buf []byte, amount *uint256.Int) []byte {
	var word [32]byte
	if amount != nil {
		word = amount.Bytes32()
	}
	return append(buf, word[:]...)
}

// Sign signs the order hash with the maker's key and attaches the signature.
func (o *CrossChainOrder) Sign(key *ecdsa.PrivateKey) error {
	h := o.Hash()
	sig, err := crypto.Sign(h.Bytes(), key)
	if err != nil {
		return err
	}
	o.Signature = sig
	return nil
}

// RecoverMaker recovers the signer address from the attached signature.
func (o *CrossChainOrder) RecoverMaker() (common.Address, error) {
	if len(o.Signature) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("%w: signature must be %d bytes, got %d",
			ErrInvalidSignature, crypto.SignatureLength, len(o.Signature))
	}
	h := o.Hash()
	pub, err := crypto.SigToPub(h.Bytes(), o.Signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return common.PubkeyToAddress(*pub), nil
}

// VerifySignature checks that the attached signature recovers to the order's
// maker.
func (o *CrossChainOrder) VerifySignature() error {
	signer, err := o.RecoverMaker()
	if err != nil {
		return err
	}
	if signer != o.Maker {
		return fmt.Errorf("%w: signed by %s, maker is %s",
			ErrInvalidSignature, signer.Hex(), o.Maker.Hex())
	}
	return nil
}

// Signed reports whether a signature is attached.
func (o *CrossChainOrder) Signed() bool {
	return len(o.Signature) > 0
}

// Validate enforces the basic well-formedness rules.
func (o *CrossChainOrder) Validate() error {
	if o.Maker == (common.Address{}) {
		return fmt.Errorf("%w: zero maker", ErrInvalidOrder)
	}
	if o.Taker == (common.Address{}) {
		return fmt.Errorf("%w: zero taker", ErrInvalidOrder)
	}
	if o.MakingAmount == nil || o.MakingAmount.IsZero() {
		return fmt.Errorf("%w: making amount must be positive", ErrInvalidOrder)
	}
	if o.TakingAmount == nil || o.TakingAmount.IsZero() {
		return fmt.Errorf("%w: taking amount must be positive", ErrInvalidOrder)
	}
	if o.SecretHash == (common.Hash{}) {
		return fmt.Errorf("%w: secret hash not set", ErrInvalidOrder)
	}
	if o.SrcChainID == o.DstChainID {
		return fmt.Errorf("%w: source and destination chain ids are equal (%d)",
			ErrInvalidOrder, o.SrcChainID)
	}
	return nil
}

// NewOrderSecret is a convenience for building test orders: it returns a
// 32-byte secret filled with fill plus its keccak256 commitment.
func NewOrderSecret(fill byte) ([]byte, common.Hash) {
	secret := make([]byte, hashlock.SecretSize)
	for i := range secret {
		secret[i] = fill
	}
	return secret, hashlock.Commit(secret)
}
