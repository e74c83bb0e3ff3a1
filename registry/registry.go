// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package registry assigns the precompile addresses and base gas costs of the
// atomic-swap family.
package registry

import (
	"fmt"

	"github.com/luxfi/geth/common"
)

// ============================================================================
// SWAP FAMILY ADDRESS SCHEME - Aligned with LP Numbering (LP-0099)
// ============================================================================
//
// All Lux-native precompiles use trailing-significant 20-byte addresses:
//   Format: 0x0000000000000000000000000000000000PCII
//
// The selector encodes:
//   0x 0000...0000 P C II
//                  │ │ └┴─ Item/function (8 bits, 256 items per family×chain)
//                  │ └──── Chain slot    (4 bits, 16 chains max)
//                  └────── Family page   (4 bits, aligned with LP-Pxxx)
//
// The swap family lives on the bridges page (P=6, LP-6xxx) in the 0x4x item
// block: escrow factory, resolver registry and chain directory each get one
// item slot per chain.
//
// Example: EscrowFactory on C-Chain = P=6 (Bridges), C=2 (C-Chain), II=0x40
//          Address = 0x0000000000000000000000000000000000006240 (LP-6240)

const (
	// Swap core (II = 0x40-0x4F)
	EscrowFactoryCChain = "0x0000000000000000000000000000000000006240" // C-Chain EscrowFactory (LP-6240)
	EscrowFactoryBChain = "0x0000000000000000000000000000000000006540" // B-Chain EscrowFactory (LP-6540)
	ResolverCChain      = "0x0000000000000000000000000000000000006241" // C-Chain Resolver registry (LP-6241)
	ResolverBChain      = "0x0000000000000000000000000000000000006541" // B-Chain Resolver registry (LP-6541)
	ChainDirCChain      = "0x0000000000000000000000000000000000006242" // C-Chain chain directory (LP-6242)
	ChainDirBChain      = "0x0000000000000000000000000000000000006542" // B-Chain chain directory (LP-6542)

	// Escrow views (II = 0x50-0x5F)
	EscrowSrcCChain = "0x0000000000000000000000000000000000006250" // C-Chain source-leg view (LP-6250)
	EscrowDstCChain = "0x0000000000000000000000000000000000006251" // C-Chain destination-leg view (LP-6251)
)

// Base gas costs per operation.
const (
	ProcessOrderGas   uint64 = 100_000
	CreateEscrowGas   uint64 = 75_000
	WithdrawGas       uint64 = 25_000
	PublicWithdrawGas uint64 = 30_000
	CancelGas         uint64 = 25_000
	RescueGas         uint64 = 20_000
	RegisterChainGas  uint64 = 10_000
	AuthorizeGas      uint64 = 5_000
	ReadGas           uint64 = 2_000
)

// PrecompileAddress calculates an address from (P, C, II) nibbles.
// P = Family page (aligned with LP-Pxxx), C = Chain slot, II = Item.
// Returns trailing-significant format: 0x0000000000000000000000000000000000PCII.
func PrecompileAddress(p, c, ii uint8) common.Address {
	if p > 15 || c > 15 {
		return common.Address{}
	}
	selector := fmt.Sprintf("%x%x%02x", p, c, ii)
	addr := "0000000000000000000000000000000000" + selector
	return common.HexToAddress("0x" + addr)
}

// ChainSlot returns the C-nibble for a chain name.
func ChainSlot(chain string) uint8 {
	switch chain {
	case "P", "p":
		return 0
	case "X", "x":
		return 1
	case "C", "c":
		return 2
	case "Q", "q":
		return 3
	case "A", "a":
		return 4
	case "B", "b":
		return 5
	case "Z", "z":
		return 6
	default:
		return 0xFF
	}
}

// BridgesPage is the family page of the swap precompiles (LP-6xxx).
const BridgesPage uint8 = 6

// SwapFamilyAddress returns the address of a swap-family item on a chain.
func SwapFamilyAddress(chain string, item uint8) common.Address {
	slot := ChainSlot(chain)
	if slot == 0xFF {
		return common.Address{}
	}
	return PrecompileAddress(BridgesPage, slot, item)
}

// PrecompileInfo contains metadata about one swap-family precompile.
type PrecompileInfo struct {
	Address     string
	Name        string
	Description string
	GasBase     uint64
	Chains      []string
	LPRange     string
}

// SwapPrecompiles lists the swap family with its metadata.
var SwapPrecompiles = []PrecompileInfo{
	{EscrowFactoryCChain, "ESCROW_FACTORY", "Order registry and escrow factory", ProcessOrderGas, []string{"C", "B"}, "LP-6240"},
	{ResolverCChain, "RESOLVER", "Resolver authorization registry", AuthorizeGas, []string{"C", "B"}, "LP-6241"},
	{ChainDirCChain, "CHAIN_DIRECTORY", "Cross-VM chain binding directory", RegisterChainGas, []string{"C", "B"}, "LP-6242"},
	{EscrowSrcCChain, "ESCROW_SRC", "Source-leg escrow view", WithdrawGas, []string{"C"}, "LP-6250"},
	{EscrowDstCChain, "ESCROW_DST", "Destination-leg escrow view", WithdrawGas, []string{"C"}, "LP-6251"},
}

// ChainPrecompiles defines which swap precompiles are enabled per chain.
var ChainPrecompiles = map[string][]string{
	"C": {
		EscrowFactoryCChain, ResolverCChain, ChainDirCChain,
		EscrowSrcCChain, EscrowDstCChain,
	},
	"B": {
		EscrowFactoryBChain, ResolverBChain, ChainDirBChain,
	},
}

// GetPrecompileAddress returns the address for a precompile by name.
func GetPrecompileAddress(name string) common.Address {
	for _, p := range SwapPrecompiles {
		if p.Name == name {
			return common.HexToAddress(p.Address)
		}
	}
	return common.Address{}
}

// GetChainPrecompiles returns all swap precompile addresses for a chain.
func GetChainPrecompiles(chainLetter string) []common.Address {
	addrs, ok := ChainPrecompiles[chainLetter]
	if !ok {
		return nil
	}

	result := make([]common.Address, len(addrs))
	for i, addr := range addrs {
		result[i] = common.HexToAddress(addr)
	}
	return result
}

// IsPrecompileEnabled checks if a swap precompile is enabled for a chain.
func IsPrecompileEnabled(chainLetter string, precompileAddr common.Address) bool {
	for _, addr := range ChainPrecompiles[chainLetter] {
		if common.HexToAddress(addr) == precompileAddr {
			return true
		}
	}
	return false
}
