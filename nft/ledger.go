// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package nft implements the asset ledger precompile for the Lux EVM.
// Address: LP-9130 (0x...9130)
//
// The ledger keeps ownership, per-asset approvals, and operator approvals
// for every non-fungible collection traded by the NFT market family. It is
// the transfer authority the sweep router and the pool engines rely on:
// moving an asset requires being its owner, its approvee, or an approved
// operator of the owner.
package nft

import (
	"errors"
	"math/big"

	"github.com/luxfi/geth/common"
	"github.com/zeebo/blake3"
)

// StateDB is the interface for ledger state access
type StateDB interface {
	GetState(addr common.Address, key common.Hash) common.Hash
	SetState(addr common.Address, key common.Hash, value common.Hash)
}

// LedgerAddress is the asset ledger precompile address (LP-9130)
const LedgerAddress = "0x0000000000000000000000000000000000009130"

var ledgerAddr = common.HexToAddress(LedgerAddress)

// Storage key prefixes for ledger state
var (
	collectionPrefix = []byte("coll")
	ownerPrefix      = []byte("ownr")
	balancePrefix    = []byte("balc")
	approvalPrefix   = []byte("apvl")
	operatorPrefix   = []byte("oper")
)

// Errors - asset ledger
var (
	ErrCollectionExists   = errors.New("collection already registered")
	ErrCollectionNotFound = errors.New("collection not registered")
	ErrAssetExists        = errors.New("asset already minted")
	ErrAssetNotFound      = errors.New("asset not found")
	ErrNotCollectionAdmin = errors.New("caller is not the collection admin")
	ErrWrongOwner         = errors.New("transfer from wrong owner")
	ErrNotAuthorized      = errors.New("caller is not owner nor approved")
	ErrZeroAddress        = errors.New("zero address")
)

// Ledger implements the singleton asset ledger engine. All collections
// live in this single precompile; a collection is keyed by the address of
// its originating contract.
type Ledger struct{}

// NewLedger creates a new ledger engine instance
func NewLedger() *Ledger {
	return &Ledger{}
}

// makeStorageKey creates a storage key from prefix and identifier
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

func idBytes(id *big.Int) []byte {
	return common.BigToHash(id).Bytes()
}

// =========================================================================
// Collections
// =========================================================================

// CreateCollection registers a collection and assigns its admin. The
// creator becomes the admin and is the only account allowed to mint.
func (l *Ledger) CreateCollection(state StateDB, creator common.Address, collection common.Address) error {
	if creator == (common.Address{}) || collection == (common.Address{}) {
		return ErrZeroAddress
	}
	key := makeStorageKey(collectionPrefix, collection.Bytes())
	if state.GetState(ledgerAddr, key) != (common.Hash{}) {
		return ErrCollectionExists
	}
	state.SetState(ledgerAddr, key, common.BytesToHash(creator.Bytes()))
	return nil
}

// CollectionAdmin returns the admin of a collection, or the zero address
// if the collection is not registered.
func (l *Ledger) CollectionAdmin(state StateDB, collection common.Address) common.Address {
	key := makeStorageKey(collectionPrefix, collection.Bytes())
	return common.BytesToAddress(state.GetState(ledgerAddr, key).Bytes())
}

// =========================================================================
// Minting and ownership
// =========================================================================

// Mint assigns a fresh asset id to [to]. Only the collection admin may
// mint.
func (l *Ledger) Mint(state StateDB, caller common.Address, collection common.Address, to common.Address, id *big.Int) error {
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	admin := l.CollectionAdmin(state, collection)
	if admin == (common.Address{}) {
		return ErrCollectionNotFound
	}
	if caller != admin {
		return ErrNotCollectionAdmin
	}

	ownerKey := makeStorageKey(ownerPrefix, collection.Bytes(), idBytes(id))
	if state.GetState(ledgerAddr, ownerKey) != (common.Hash{}) {
		return ErrAssetExists
	}
	state.SetState(ledgerAddr, ownerKey, common.BytesToHash(to.Bytes()))
	l.adjustBalance(state, collection, to, 1)
	return nil
}

// OwnerOf returns the current owner of (collection, id).
func (l *Ledger) OwnerOf(state StateDB, collection common.Address, id *big.Int) (common.Address, error) {
	ownerKey := makeStorageKey(ownerPrefix, collection.Bytes(), idBytes(id))
	raw := state.GetState(ledgerAddr, ownerKey)
	if raw == (common.Hash{}) {
		return common.Address{}, ErrAssetNotFound
	}
	return common.BytesToAddress(raw.Bytes()), nil
}

// BalanceOf returns the number of assets [owner] holds in [collection].
func (l *Ledger) BalanceOf(state StateDB, collection common.Address, owner common.Address) uint64 {
	balKey := makeStorageKey(balancePrefix, collection.Bytes(), owner.Bytes())
	return state.GetState(ledgerAddr, balKey).Big().Uint64()
}

func (l *Ledger) adjustBalance(state StateDB, collection common.Address, owner common.Address, delta int64) {
	balKey := makeStorageKey(balancePrefix, collection.Bytes(), owner.Bytes())
	bal := state.GetState(ledgerAddr, balKey).Big().Int64()
	bal += delta
	if bal < 0 {
		bal = 0
	}
	state.SetState(ledgerAddr, balKey, common.BigToHash(big.NewInt(bal)))
}

// =========================================================================
// Transfers and approvals
// =========================================================================

// Transfer moves (collection, id) from [from] to [to] on behalf of
// [operator]. The operator must be the owner, the per-asset approvee, or
// an approved operator of the owner. The per-asset approval is cleared on
// transfer.
func (l *Ledger) Transfer(state StateDB, operator common.Address, collection common.Address, from common.Address, to common.Address, id *big.Int) error {
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	owner, err := l.OwnerOf(state, collection, id)
	if err != nil {
		return err
	}
	if owner != from {
		return ErrWrongOwner
	}
	if operator != owner &&
		l.Approved(state, collection, id) != operator &&
		!l.IsApprovedForAll(state, collection, owner, operator) {
		return ErrNotAuthorized
	}

	approvalKey := makeStorageKey(approvalPrefix, collection.Bytes(), idBytes(id))
	if state.GetState(ledgerAddr, approvalKey) != (common.Hash{}) {
		state.SetState(ledgerAddr, approvalKey, common.Hash{})
	}

	ownerKey := makeStorageKey(ownerPrefix, collection.Bytes(), idBytes(id))
	state.SetState(ledgerAddr, ownerKey, common.BytesToHash(to.Bytes()))
	l.adjustBalance(state, collection, from, -1)
	l.adjustBalance(state, collection, to, 1)
	return nil
}

// Approve sets [approved] as the per-asset approvee of (collection, id).
// The caller must be the owner or an approved operator of the owner.
func (l *Ledger) Approve(state StateDB, caller common.Address, collection common.Address, id *big.Int, approved common.Address) error {
	owner, err := l.OwnerOf(state, collection, id)
	if err != nil {
		return err
	}
	if caller != owner && !l.IsApprovedForAll(state, collection, owner, caller) {
		return ErrNotAuthorized
	}
	approvalKey := makeStorageKey(approvalPrefix, collection.Bytes(), idBytes(id))
	state.SetState(ledgerAddr, approvalKey, common.BytesToHash(approved.Bytes()))
	return nil
}

// Approved returns the per-asset approvee of (collection, id), or the
// zero address.
func (l *Ledger) Approved(state StateDB, collection common.Address, id *big.Int) common.Address {
	approvalKey := makeStorageKey(approvalPrefix, collection.Bytes(), idBytes(id))
	return common.BytesToAddress(state.GetState(ledgerAddr, approvalKey).Bytes())
}

// SetApprovalForAll grants or revokes [operator] transfer authority over
// every asset [owner] holds in [collection]. Setting an unchanged value
// is a no-op, so repeated grants within one batch are safe.
func (l *Ledger) SetApprovalForAll(state StateDB, owner common.Address, collection common.Address, operator common.Address, approved bool) {
	if l.IsApprovedForAll(state, collection, owner, operator) == approved {
		return
	}
	operKey := makeStorageKey(operatorPrefix, collection.Bytes(), owner.Bytes(), operator.Bytes())
	var value common.Hash
	if approved {
		value[31] = 1
	}
	state.SetState(ledgerAddr, operKey, value)
}

// IsApprovedForAll reports whether [operator] may move every asset of
// [owner] in [collection].
func (l *Ledger) IsApprovedForAll(state StateDB, collection common.Address, owner common.Address, operator common.Address) bool {
	operKey := makeStorageKey(operatorPrefix, collection.Bytes(), owner.Bytes(), operator.Bytes())
	return state.GetState(ledgerAddr, operKey) != (common.Hash{})
}
