// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package precompileconfig declares the configuration surface shared by
// all precompile modules: every module's Config names its upgrade key,
// carries an activation timestamp, and can be disabled by a later upgrade.
package precompileconfig

import "math/big"

// Config is implemented by the per-module configuration structs. Configs
// are parsed from the chain's upgrade JSON and compared across upgrades.
type Config interface {
	// Key returns the unique module key, matching the module registration.
	Key() string
	// Timestamp returns the activation timestamp, nil if never active.
	Timestamp() *uint64
	// IsDisabled reports whether this upgrade deactivates the precompile.
	IsDisabled() bool
	// Equal reports deep equality with another config of the same module.
	Equal(Config) bool
	// Verify checks the config is internally consistent.
	Verify(ChainConfig) error
}

// ChainConfig exposes the chain rules a config may need to validate
// against.
type ChainConfig interface {
	ChainID() *big.Int
}

// Upgrade is embedded by every module Config and carries the shared
// activation fields.
type Upgrade struct {
	BlockTimestamp *uint64 `json:"blockTimestamp,omitempty"`
	Disable        bool    `json:"disable,omitempty"`
}

// Timestamp returns the upgrade activation timestamp.
func (u *Upgrade) Timestamp() *uint64 {
	return u.BlockTimestamp
}

// IsDisabled reports whether the upgrade disables the precompile.
func (u *Upgrade) IsDisabled() bool {
	return u.Disable
}

// Equal reports whether two upgrades activate at the same time with the
// same disable flag.
func (u *Upgrade) Equal(other *Upgrade) bool {
	if other == nil {
		return false
	}
	if u.Disable != other.Disable {
		return false
	}
	if (u.BlockTimestamp == nil) != (other.BlockTimestamp == nil) {
		return false
	}
	if u.BlockTimestamp != nil && *u.BlockTimestamp != *other.BlockTimestamp {
		return false
	}
	return true
}
