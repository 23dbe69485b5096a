// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"math/big"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/sweep/nft"
	"github.com/luxfi/sweep/oracle"
)

// CurveEngine prices exchanges with a constant product over a pool's real
// reserves: the pool address value balance against its ledger holding,
// one reserve unit per asset. A basis-point fee is folded into each quote.
type CurveEngine struct {
	ledger   *nft.Ledger
	verifier *oracle.Verifier
}

// NewCurveEngine creates a curve engine bound to an asset ledger and a
// provenance verifier.
func NewCurveEngine(ledger *nft.Ledger, verifier *oracle.Verifier) *CurveEngine {
	return &CurveEngine{ledger: ledger, verifier: verifier}
}

// Create registers a new curve pool instance and returns its address.
// The seed basket and value move creator to pool at creation; reserves
// can also grow later by transferring directly to the pool address.
func (e *CurveEngine) Create(state StateDB, creator common.Address, collection common.Address, feeBps uint64, merkleRoot common.Hash, useOracle bool, seedIds []*big.Int, seedValue *big.Int, nonce uint64) (common.Address, error) {
	if collection == (common.Address{}) {
		return common.Address{}, ErrZeroCollection
	}
	if feeBps > MaxFeeBps {
		return common.Address{}, ErrFeeTooHigh
	}

	pool := DerivePoolAddress(curvePrefix, creator, collection, nonce)
	if _, err := getCurvePool(state, pool); err == nil {
		return common.Address{}, ErrPoolExists
	}

	setCurvePool(state, pool, &CurvePool{
		Collection: collection,
		FeeBps:     feeBps,
		MerkleRoot: merkleRoot,
		UseOracle:  useOracle,
	})
	if err := seedPool(state, e.ledger, creator, collection, pool, seedIds, seedValue); err != nil {
		return common.Address{}, err
	}
	return pool, nil
}

// reserves returns the pool's current (asset, value) reserves.
func (e *CurveEngine) reserves(state StateDB, pool common.Address, collection common.Address) (*big.Int, *big.Int) {
	assets := new(big.Int).SetUint64(e.ledger.BalanceOf(state, collection, pool))
	value := state.GetBalance(pool).ToBig()
	return assets, value
}

// BuyQuote returns the value required to take [n] assets out of the pool,
// fee included, rounded against the buyer.
func (e *CurveEngine) BuyQuote(state StateDB, pool common.Address, n int) (*big.Int, error) {
	p, err := getCurvePool(state, pool)
	if err != nil {
		return nil, err
	}
	assets, value := e.reserves(state, pool, p.Collection)

	out := big.NewInt(int64(n))
	if assets.Cmp(out) <= 0 {
		return nil, ErrInsufficientReserve
	}

	// input = ceil(n * 10000 * R_value / ((R_asset - n) * (10000 - fee)))
	num := new(big.Int).Mul(out, big.NewInt(bpsDenominator))
	den := new(big.Int).Sub(assets, out)
	den.Mul(den, big.NewInt(int64(bpsDenominator-p.FeeBps)))
	return mulDivUp(num, value, den), nil
}

// SellQuote returns the value paid out for [n] assets sold into the pool,
// fee included, rounded against the seller.
func (e *CurveEngine) SellQuote(state StateDB, pool common.Address, n int) (*big.Int, error) {
	p, err := getCurvePool(state, pool)
	if err != nil {
		return nil, err
	}
	assets, value := e.reserves(state, pool, p.Collection)

	in := big.NewInt(int64(n))
	// output = n * (10000 - fee) * R_value / (R_asset * 10000 + n * (10000 - fee))
	effIn := new(big.Int).Mul(in, big.NewInt(int64(bpsDenominator-p.FeeBps)))
	num := new(big.Int).Mul(effIn, value)
	den := new(big.Int).Mul(assets, big.NewInt(bpsDenominator))
	den.Add(den, effIn)
	if den.Sign() == 0 {
		return new(big.Int), nil
	}
	return num.Div(num, den), nil
}

// ExchangeForAssets swaps offered value for the named assets. The full
// quote is taken from [caller] and the assets move pool to caller; the
// quote is returned as the value spent. minAssetsOut below the basket
// size always passes (the basket is exact).
func (e *CurveEngine) ExchangeForAssets(state StateDB, caller common.Address, pool common.Address, ids []*big.Int, valueOffered *big.Int, minAssetsOut int) (*big.Int, error) {
	p, err := getCurvePool(state, pool)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, ErrEmptyBasket
	}
	if minAssetsOut > len(ids) {
		return nil, ErrSlippageExceeded
	}

	input, err := e.BuyQuote(state, pool, len(ids))
	if err != nil {
		return nil, err
	}
	if valueOffered == nil {
		valueOffered = new(big.Int)
	}
	if input.Cmp(valueOffered) > 0 {
		return nil, ErrInsufficientInput
	}

	state.SubBalance(caller, bigToU256(input))
	state.AddBalance(pool, bigToU256(input))
	for _, id := range ids {
		if err := e.ledger.Transfer(state, pool, p.Collection, pool, caller, id); err != nil {
			return nil, err
		}
	}
	return input, nil
}

// ExchangeForValue swaps the named assets for value. Assets move caller
// to pool (the pool must hold transfer authority from the caller) and the
// quote is paid out to [caller]. With an allow-list root set every id
// needs an inclusion proof; with provenance checking on every id needs an
// attestation clearing the oracle at block time [now].
func (e *CurveEngine) ExchangeForValue(state StateDB, caller common.Address, pool common.Address, ids []*big.Int, minValueOut *big.Int, deadline uint64, now uint64, proofs [][]common.Hash, attestations [][]byte) (*big.Int, error) {
	p, err := getCurvePool(state, pool)
	if err != nil {
		return nil, err
	}
	if deadline != 0 && now > deadline {
		return nil, ErrDeadlineExpired
	}
	if len(ids) == 0 {
		return nil, ErrEmptyBasket
	}

	if p.MerkleRoot != (common.Hash{}) {
		if len(proofs) != len(ids) {
			return nil, ErrProofCount
		}
		for i, id := range ids {
			if !VerifyProof(p.MerkleRoot, idLeaf(id), proofs[i]) {
				return nil, ErrProofInvalid
			}
		}
	}
	if p.UseOracle {
		if len(attestations) != len(ids) {
			return nil, ErrAttestationCount
		}
		for i, id := range ids {
			if err := e.verifier.Check(p.Collection, id, attestations[i], now); err != nil {
				return nil, err
			}
		}
	}

	output, err := e.SellQuote(state, pool, len(ids))
	if err != nil {
		return nil, err
	}
	if minValueOut != nil && output.Cmp(minValueOut) < 0 {
		return nil, ErrSlippageExceeded
	}
	if state.GetBalance(pool).ToBig().Cmp(output) < 0 {
		return nil, ErrInsufficientReserve
	}

	for _, id := range ids {
		if err := e.ledger.Transfer(state, pool, p.Collection, caller, pool, id); err != nil {
			return nil, err
		}
	}
	state.SubBalance(pool, bigToU256(output))
	state.AddBalance(caller, bigToU256(output))
	return output, nil
}
