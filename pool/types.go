// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package pool implements the two liquidity pool precompiles of the Lux
// NFT market family: the curve pool (LP-9110), priced by a constant
// product over its real reserves, and the weighted pool (LP-9120), priced
// by xy=k over virtual reserves with Merkle allow-listed per-asset
// weights. Each precompile is a factory plus the exchange engine serving
// every pool instance it has created; a pool instance is an address whose
// value balance and ledger holdings are its real reserves.
package pool

import (
	"encoding/binary"
	"errors"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/zeebo/blake3"

	"github.com/luxfi/sweep/nft"
)

// StateDB is the interface for pool state access
type StateDB interface {
	GetState(addr common.Address, key common.Hash) common.Hash
	SetState(addr common.Address, key common.Hash, value common.Hash)
	GetBalance(addr common.Address) *uint256.Int
	AddBalance(addr common.Address, amount *uint256.Int)
	SubBalance(addr common.Address, amount *uint256.Int)
}

// Precompile addresses
const (
	CurvePoolAddress    = "0x0000000000000000000000000000000000009110" // LP-9110
	WeightedPoolAddress = "0x0000000000000000000000000000000000009120" // LP-9120
)

var (
	curveAddr    = common.HexToAddress(CurvePoolAddress)
	weightedAddr = common.HexToAddress(WeightedPoolAddress)
)

// Storage key prefixes for pool records
var (
	curvePrefix    = []byte("cpol")
	weightedPrefix = []byte("wpol")
)

// Per-pool record field suffixes (one StateDB slot each, dex style)
var (
	fieldMeta         = []byte("meta")
	fieldRoot         = []byte("root")
	fieldVirtualValue = []byte("vval")
	fieldVirtualNft   = []byte("vnft")
)

// Errors - pool engines
var (
	ErrPoolExists          = errors.New("pool already exists")
	ErrPoolNotFound        = errors.New("pool not found")
	ErrZeroCollection      = errors.New("zero collection address")
	ErrFeeTooHigh          = errors.New("fee rate too high")
	ErrEmptyBasket         = errors.New("empty asset basket")
	ErrLengthMismatch      = errors.New("ids and weights length mismatch")
	ErrUnexpectedWeights   = errors.New("weights supplied without allow-list root")
	ErrProofInvalid        = errors.New("allow-list proof invalid")
	ErrZeroVirtualReserves = errors.New("virtual reserves must be positive")
	ErrInsufficientReserve = errors.New("insufficient pool reserve")
	ErrInsufficientInput   = errors.New("insufficient input value")
	ErrSlippageExceeded    = errors.New("output below minimum")
	ErrDeadlineExpired     = errors.New("deadline passed")
	ErrBasketTooLight      = errors.New("input basket weight below output basket weight")
	ErrAttestationCount    = errors.New("attestation count mismatch")
	ErrProofCount          = errors.New("proof count mismatch")
)

const (
	// MaxFeeBps caps pool fee rates at 50%.
	MaxFeeBps = uint64(5_000)

	bpsDenominator = 10_000
)

// WAD is the unit asset weight (1e18), used when a pool has no allow-list.
var WAD = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// CurvePool is the persisted record of a curve pool instance. Reserves are
// not part of the record: the value reserve is the pool address balance and
// the asset reserve is its ledger holding.
type CurvePool struct {
	Collection common.Address
	FeeBps     uint64
	MerkleRoot common.Hash
	UseOracle  bool
}

// WeightedPool is the persisted record of a weighted pool instance. The
// virtual reserves drive pricing and shift with every buy and sell; real
// reserves live on the pool address like the curve pool's.
type WeightedPool struct {
	Collection    common.Address
	FeeBps        uint64
	MerkleRoot    common.Hash
	UseOracle     bool
	VirtualValue  *big.Int
	VirtualWeight *big.Int
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

// DerivePoolAddress computes the deterministic address of a pool instance.
func DerivePoolAddress(prefix []byte, creator common.Address, collection common.Address, nonce uint64) common.Address {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], nonce)
	h := blake3.New()
	h.Write(prefix)
	h.Write(creator.Bytes())
	h.Write(collection.Bytes())
	h.Write(n[:])
	var sum [32]byte
	h.Digest().Read(sum[:])
	return common.BytesToAddress(sum[12:])
}

// =========================================================================
// Record codecs
// =========================================================================

// The meta slot packs collection (20 bytes), feeBps (2 bytes), flags
// (1 byte) and an existence marker into one hash:
//
//	[0:20] collection  [20:22] feeBps  [22] flags  [31] exists

const flagUseOracle = byte(0x01)

func packMeta(collection common.Address, feeBps uint64, useOracle bool) common.Hash {
	var meta common.Hash
	copy(meta[0:20], collection.Bytes())
	binary.BigEndian.PutUint16(meta[20:22], uint16(feeBps))
	if useOracle {
		meta[22] |= flagUseOracle
	}
	meta[31] = 1
	return meta
}

func unpackMeta(meta common.Hash) (collection common.Address, feeBps uint64, useOracle bool, exists bool) {
	if meta[31] == 0 {
		return common.Address{}, 0, false, false
	}
	collection = common.BytesToAddress(meta[0:20])
	feeBps = uint64(binary.BigEndian.Uint16(meta[20:22]))
	useOracle = meta[22]&flagUseOracle != 0
	return collection, feeBps, useOracle, true
}

func getCurvePool(state StateDB, pool common.Address) (*CurvePool, error) {
	meta := state.GetState(curveAddr, makeStorageKey(curvePrefix, pool.Bytes(), fieldMeta))
	collection, feeBps, useOracle, exists := unpackMeta(meta)
	if !exists {
		return nil, ErrPoolNotFound
	}
	return &CurvePool{
		Collection: collection,
		FeeBps:     feeBps,
		UseOracle:  useOracle,
		MerkleRoot: state.GetState(curveAddr, makeStorageKey(curvePrefix, pool.Bytes(), fieldRoot)),
	}, nil
}

func setCurvePool(state StateDB, pool common.Address, p *CurvePool) {
	state.SetState(curveAddr, makeStorageKey(curvePrefix, pool.Bytes(), fieldMeta), packMeta(p.Collection, p.FeeBps, p.UseOracle))
	state.SetState(curveAddr, makeStorageKey(curvePrefix, pool.Bytes(), fieldRoot), p.MerkleRoot)
}

func getWeightedPool(state StateDB, pool common.Address) (*WeightedPool, error) {
	meta := state.GetState(weightedAddr, makeStorageKey(weightedPrefix, pool.Bytes(), fieldMeta))
	collection, feeBps, useOracle, exists := unpackMeta(meta)
	if !exists {
		return nil, ErrPoolNotFound
	}
	p := &WeightedPool{
		Collection:    collection,
		FeeBps:        feeBps,
		UseOracle:     useOracle,
		MerkleRoot:    state.GetState(weightedAddr, makeStorageKey(weightedPrefix, pool.Bytes(), fieldRoot)),
		VirtualValue:  state.GetState(weightedAddr, makeStorageKey(weightedPrefix, pool.Bytes(), fieldVirtualValue)).Big(),
		VirtualWeight: state.GetState(weightedAddr, makeStorageKey(weightedPrefix, pool.Bytes(), fieldVirtualNft)).Big(),
	}
	return p, nil
}

func setWeightedPool(state StateDB, pool common.Address, p *WeightedPool) {
	state.SetState(weightedAddr, makeStorageKey(weightedPrefix, pool.Bytes(), fieldMeta), packMeta(p.Collection, p.FeeBps, p.UseOracle))
	state.SetState(weightedAddr, makeStorageKey(weightedPrefix, pool.Bytes(), fieldRoot), p.MerkleRoot)
	state.SetState(weightedAddr, makeStorageKey(weightedPrefix, pool.Bytes(), fieldVirtualValue), common.BigToHash(p.VirtualValue))
	state.SetState(weightedAddr, makeStorageKey(weightedPrefix, pool.Bytes(), fieldVirtualNft), common.BigToHash(p.VirtualWeight))
}

// seedPool moves the creator's seed basket and value into a freshly
// created pool. The creator transfers as owner, so no prior approval is
// needed.
func seedPool(state StateDB, ledger *nft.Ledger, creator common.Address, collection common.Address, pool common.Address, seedIds []*big.Int, seedValue *big.Int) error {
	for _, id := range seedIds {
		if err := ledger.Transfer(state, creator, collection, creator, pool, id); err != nil {
			return err
		}
	}
	if seedValue != nil && seedValue.Sign() > 0 {
		if state.GetBalance(creator).ToBig().Cmp(seedValue) < 0 {
			return ErrInsufficientInput
		}
		state.SubBalance(creator, bigToU256(seedValue))
		state.AddBalance(pool, bigToU256(seedValue))
	}
	return nil
}

// =========================================================================
// Weight resolution
// =========================================================================

// idLeaf is the allow-list leaf payload for a bare asset id.
func idLeaf(id *big.Int) common.Hash {
	return LeafHash(common.BigToHash(id).Bytes())
}

// weightLeaf is the allow-list leaf payload for an (id, weight) pair.
func weightLeaf(id *big.Int, weight *big.Int) common.Hash {
	payload := make([]byte, 0, 64)
	payload = append(payload, common.BigToHash(id).Bytes()...)
	payload = append(payload, common.BigToHash(weight).Bytes()...)
	return LeafHash(payload)
}

// resolveWeights returns the total weight of a basket. With a zero root
// the pool has no allow-list: weights must be absent and every asset
// counts one WAD. Otherwise weights parallel ids and the multiproof must
// bind every (id, weight) pair to the root.
func resolveWeights(root common.Hash, ids []*big.Int, weights []*big.Int, proof MultiProof) (*big.Int, error) {
	if len(ids) == 0 {
		return nil, ErrEmptyBasket
	}
	if root == (common.Hash{}) {
		if len(weights) != 0 {
			return nil, ErrUnexpectedWeights
		}
		return new(big.Int).Mul(big.NewInt(int64(len(ids))), WAD), nil
	}
	if len(weights) != len(ids) {
		return nil, ErrLengthMismatch
	}

	leaves := make([]common.Hash, len(ids))
	total := new(big.Int)
	for i, id := range ids {
		leaves[i] = weightLeaf(id, weights[i])
		total.Add(total, weights[i])
	}
	if !VerifyMultiProof(root, leaves, proof) {
		return nil, ErrProofInvalid
	}
	return total, nil
}

func bigToU256(v *big.Int) *uint256.Int {
	u, _ := uint256.FromBig(v)
	return u
}

// mulDivUp computes ceil(a*b/d).
func mulDivUp(a, b, d *big.Int) *big.Int {
	num := new(big.Int).Mul(a, b)
	out, rem := new(big.Int).QuoRem(num, d, new(big.Int))
	if rem.Sign() != 0 {
		out.Add(out, big.NewInt(1))
	}
	return out
}
