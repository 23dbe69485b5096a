// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package router implements the sweep router precompile for the Lux EVM.
// Address: LP-9100 (0x...9100)
//
// The router executes ordered batches of exchange instructions against
// the market pool family as one all-or-nothing unit. Assets and value
// pass through the router only for the duration of a call; every batch
// ends with the router holding nothing and any surplus refunded to the
// caller. Failure anywhere aborts the whole batch through the EVM
// revert.
package router

import (
	"errors"
	"math/big"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/sweep/pool"
)

// RouterAddress is the sweep router precompile address (LP-9100)
const RouterAddress = "0x0000000000000000000000000000000000009100"

var routerAddr = common.HexToAddress(RouterAddress)

// Errors - sweep router
var (
	ErrDeadlineExpired      = errors.New("deadline passed")
	ErrOutputAmountTooSmall = errors.New("output below minimum")
	ErrPriceOutOfRange      = errors.New("pool price outside bounds")
	ErrInvalidRoyaltyFee    = errors.New("royalty fee exceeds sale price")
	ErrInsufficientValue    = errors.New("attached value too small")
	ErrUnknownPoolKind      = errors.New("unknown pool kind")
	ErrCustodyNotSettled    = errors.New("router retains custody after batch")
)

// PoolKind selects the dispatch path for a batch entry. The set is
// closed; a kind outside it fails the batch with ErrUnknownPoolKind.
type PoolKind uint8

const (
	// PoolKindPublic targets a curve pool with automated pricing.
	PoolKindPublic PoolKind = iota
	// PoolKindPrivate targets a weighted pool with caller-supplied
	// weights and an allow-list proof.
	PoolKindPrivate
)

// BuyEntry instructs the router to buy a basket of assets from one pool.
// Weights and Proof apply to private pools only; public pools price by
// basket size.
type BuyEntry struct {
	Pool         common.Address  `json:"pool"`
	PoolKind     PoolKind        `json:"poolKind"`
	Collection   common.Address  `json:"collection"`
	Ids          []*big.Int      `json:"ids"`
	Weights      []*big.Int      `json:"weights,omitempty"`
	Proof        pool.MultiProof `json:"proof"`
	ValueOffered *big.Int        `json:"valueOffered"`
}

// SellEntry instructs the router to sell a basket of assets to one pool.
// PerAssetProofs feed a public pool's allow-list check, Weights and
// Proof a private pool's. Attestations are forwarded verbatim to either
// kind.
type SellEntry struct {
	Pool           common.Address  `json:"pool"`
	PoolKind       PoolKind        `json:"poolKind"`
	Collection     common.Address  `json:"collection"`
	Ids            []*big.Int      `json:"ids"`
	Weights        []*big.Int      `json:"weights,omitempty"`
	Proof          pool.MultiProof `json:"proof"`
	PerAssetProofs [][]common.Hash `json:"perAssetProofs,omitempty"`
	Attestations   [][]byte        `json:"attestations,omitempty"`
}

// ChangeEntry instructs the router to swap an input basket for an output
// basket against one weighted pool. Only private pools expose change,
// so there is no kind tag. The pool's change fee is covered out of the
// value attached to the batch.
type ChangeEntry struct {
	Pool          common.Address  `json:"pool"`
	Collection    common.Address  `json:"collection"`
	InputIds      []*big.Int      `json:"inputIds"`
	InputWeights  []*big.Int      `json:"inputWeights,omitempty"`
	InputProof    pool.MultiProof `json:"inputProof"`
	OutputIds     []*big.Int      `json:"outputIds"`
	OutputWeights []*big.Int      `json:"outputWeights,omitempty"`
	OutputProof   pool.MultiProof `json:"outputProof"`
	Attestations  [][]byte        `json:"attestations,omitempty"`
}
