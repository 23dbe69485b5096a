// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package modules keeps the ordered registry of stateful precompile
// modules. Each family package registers its module in init(); the EVM
// looks modules up by address when dispatching a call and by config key
// when applying upgrades.
package modules

import (
	"bytes"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/sweep/contract"
)

// Module pairs a precompile contract with its address and its upgrade
// configurator.
type Module struct {
	// ConfigKey is the unique key this module's config uses in upgrade
	// JSON.
	ConfigKey string
	// Address is the precompile's fixed address.
	Address common.Address
	// Contract is the precompile implementation.
	Contract contract.StatefulPrecompiledContract
	// Configurator sets up the module's genesis state at activation.
	Configurator contract.Configurator
}

// moduleArray sorts modules by address for deterministic iteration.
type moduleArray []Module

func (m moduleArray) Len() int {
	return len(m)
}

func (m moduleArray) Less(i, j int) bool {
	return bytes.Compare(m[i].Address.Bytes(), m[j].Address.Bytes()) < 0
}

func (m moduleArray) Swap(i, j int) {
	m[i], m[j] = m[j], m[i]
}
