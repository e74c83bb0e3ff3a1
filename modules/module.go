// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package modules keeps the deterministic registry of swap-family precompile
// modules. Registration is address-sorted so iteration order never depends on
// init order.
package modules

import (
	"bytes"

	"github.com/luxfi/geth/common"
)

// Module pairs a precompile's config key with its reserved address.
type Module struct {
	// ConfigKey is the key used in json config files to enable this module.
	ConfigKey string
	// Address is the module's precompile address.
	Address common.Address
}

type moduleArray []Module

func (m moduleArray) Len() int      { return len(m) }
func (m moduleArray) Swap(i, j int) { m[i], m[j] = m[j], m[i] }
func (m moduleArray) Less(i, j int) bool {
	return bytes.Compare(m[i].Address.Bytes(), m[j].Address.Bytes()) < 0
}
