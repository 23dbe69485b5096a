// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package royalty implements the royalty registry precompile for the Lux
// EVM. Address: LP-9140 (0x...9140)
//
// The registry answers three questions for the sweep router: which address
// is the authoritative royalty lookup target for a collection (an override
// or the collection itself), whether that target supports the royalty-info
// capability, and what (recipient, fee) a given sale price yields. Absence
// of the capability is a valid outcome and yields a zero quote; the
// registry never clamps fees, bounds are the caller's concern.
package royalty

import (
	"errors"
	"math/big"

	"github.com/luxfi/geth/common"
	"github.com/zeebo/blake3"

	"github.com/luxfi/sweep/nft"
)

// StateDB is the interface for registry state access
type StateDB interface {
	GetState(addr common.Address, key common.Hash) common.Hash
	SetState(addr common.Address, key common.Hash, value common.Hash)
}

// RegistryAddress is the royalty registry precompile address (LP-9140)
const RegistryAddress = "0x0000000000000000000000000000000000009140"

var registryAddr = common.HexToAddress(RegistryAddress)

// Storage key prefixes for registry state
var (
	targetPrefix     = []byte("trgt")
	capabilityPrefix = []byte("capa")
	recipientPrefix  = []byte("rcpt")
	feeBpsPrefix     = []byte("rbps")
)

// Errors - royalty registry
var (
	ErrNotAuthorized  = errors.New("caller may not configure this target")
	ErrZeroRecipient  = errors.New("zero royalty recipient")
	ErrNoCapability   = errors.New("target has no royalty info configured")
	ErrTargetNotFound = errors.New("lookup target not configured")
)

const bpsDenominator = 10_000

// Registry implements the royalty registry engine. Authorization for
// overrides follows the asset ledger: a collection's admin controls its
// lookup target and, when the target is the collection itself, its fee
// configuration.
type Registry struct {
	ledger *nft.Ledger
}

// NewRegistry creates a registry engine bound to an asset ledger.
func NewRegistry(ledger *nft.Ledger) *Registry {
	return &Registry{ledger: ledger}
}

func makeStorageKey(prefix []byte, parts ...[]byte) common.Hash {
	h := blake3.New()
	h.Write(prefix)
	for _, p := range parts {
		h.Write(p)
	}
	var key common.Hash
	h.Digest().Read(key[:])
	return key
}

// =========================================================================
// Lookup targets
// =========================================================================

// SetLookupTarget points [collection]'s royalty lookup at [target]. Only
// the collection admin may override; a zero target clears the override.
func (r *Registry) SetLookupTarget(state StateDB, caller common.Address, collection common.Address, target common.Address) error {
	admin := r.ledger.CollectionAdmin(state, collection)
	if admin == (common.Address{}) || caller != admin {
		return ErrNotAuthorized
	}
	key := makeStorageKey(targetPrefix, collection.Bytes())
	state.SetState(registryAddr, key, common.BytesToHash(target.Bytes()))
	return nil
}

// LookupTarget resolves the royalty lookup target for [collection]. With
// no override the collection itself is the target; resolution always
// succeeds.
func (r *Registry) LookupTarget(state StateDB, collection common.Address) common.Address {
	key := makeStorageKey(targetPrefix, collection.Bytes())
	raw := state.GetState(registryAddr, key)
	if raw == (common.Hash{}) {
		return collection
	}
	return common.BytesToAddress(raw.Bytes())
}

// =========================================================================
// Royalty info
// =========================================================================

// SetRoyaltyInfo configures [target]'s royalty capability: every sale
// quotes [recipient] and feeBps basis points of the sale price. The fee is
// not capped here; consumers enforce their own bound against the sale
// price. Authorization: the target itself, or the admin when the target is
// a registered collection.
func (r *Registry) SetRoyaltyInfo(state StateDB, caller common.Address, target common.Address, recipient common.Address, feeBps uint64) error {
	if recipient == (common.Address{}) {
		return ErrZeroRecipient
	}
	if !r.mayConfigure(state, caller, target) {
		return ErrNotAuthorized
	}

	state.SetState(registryAddr, makeStorageKey(capabilityPrefix, target.Bytes()), common.Hash{31: 1})
	state.SetState(registryAddr, makeStorageKey(recipientPrefix, target.Bytes()), common.BytesToHash(recipient.Bytes()))
	state.SetState(registryAddr, makeStorageKey(feeBpsPrefix, target.Bytes()), common.BigToHash(new(big.Int).SetUint64(feeBps)))
	return nil
}

// ClearRoyaltyInfo removes [target]'s royalty capability.
func (r *Registry) ClearRoyaltyInfo(state StateDB, caller common.Address, target common.Address) error {
	if !r.mayConfigure(state, caller, target) {
		return ErrNotAuthorized
	}
	state.SetState(registryAddr, makeStorageKey(capabilityPrefix, target.Bytes()), common.Hash{})
	state.SetState(registryAddr, makeStorageKey(recipientPrefix, target.Bytes()), common.Hash{})
	state.SetState(registryAddr, makeStorageKey(feeBpsPrefix, target.Bytes()), common.Hash{})
	return nil
}

func (r *Registry) mayConfigure(state StateDB, caller common.Address, target common.Address) bool {
	if caller == target {
		return true
	}
	admin := r.ledger.CollectionAdmin(state, target)
	return admin != (common.Address{}) && caller == admin
}

// SupportsRoyaltyInfo reports whether [target] has the royalty-info
// capability.
func (r *Registry) SupportsRoyaltyInfo(state StateDB, target common.Address) bool {
	return state.GetState(registryAddr, makeStorageKey(capabilityPrefix, target.Bytes())) != (common.Hash{})
}

// RoyaltyInfo returns the configured recipient and the fee owed on
// [salePrice] for one asset of [target]. The asset id is part of the call
// contract; fees are currently uniform per target.
func (r *Registry) RoyaltyInfo(state StateDB, target common.Address, id *big.Int, salePrice *big.Int) (common.Address, *big.Int, error) {
	if !r.SupportsRoyaltyInfo(state, target) {
		return common.Address{}, nil, ErrNoCapability
	}
	recipient := common.BytesToAddress(state.GetState(registryAddr, makeStorageKey(recipientPrefix, target.Bytes())).Bytes())
	feeBps := state.GetState(registryAddr, makeStorageKey(feeBpsPrefix, target.Bytes())).Big()

	fee := new(big.Int).Mul(salePrice, feeBps)
	fee.Div(fee, big.NewInt(bpsDenominator))
	return recipient, fee, nil
}

// Quote resolves the lookup target for [collection] and computes the
// royalty owed on [salePrice] for one asset. A target without the
// capability yields a zero quote and no error.
func (r *Registry) Quote(state StateDB, collection common.Address, id *big.Int, salePrice *big.Int) (common.Address, *big.Int, error) {
	target := r.LookupTarget(state, collection)
	if !r.SupportsRoyaltyInfo(state, target) {
		return common.Address{}, new(big.Int), nil
	}
	recipient, fee, err := r.RoyaltyInfo(state, target, id, salePrice)
	if err != nil {
		return common.Address{}, nil, err
	}
	return recipient, fee, nil
}
