// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package registry

import (
	"github.com/luxfi/geth/common"

	"github.com/luxfi/htlc/modules"
)

// Config keys used in json config files to enable the swap modules.
const (
	FactoryConfigKey  = "escrowFactoryConfig"
	ResolverConfigKey = "resolverConfig"
	ChainDirConfigKey = "chainDirectoryConfig"
)

// FactoryModule is the escrow factory precompile module (LP-6240).
var FactoryModule = modules.Module{
	ConfigKey: FactoryConfigKey,
	Address:   common.HexToAddress(EscrowFactoryCChain),
}

// ResolverModule is the resolver registry precompile module (LP-6241).
var ResolverModule = modules.Module{
	ConfigKey: ResolverConfigKey,
	Address:   common.HexToAddress(ResolverCChain),
}

// ChainDirModule is the chain directory precompile module (LP-6242).
var ChainDirModule = modules.Module{
	ConfigKey: ChainDirConfigKey,
	Address:   common.HexToAddress(ChainDirCChain),
}

func init() {
	for _, m := range []modules.Module{FactoryModule, ResolverModule, ChainDirModule} {
		if err := modules.RegisterModule(m); err != nil {
			panic(err)
		}
	}
}
