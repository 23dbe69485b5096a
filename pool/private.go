// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"math/big"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/sweep/nft"
	"github.com/luxfi/sweep/oracle"
)

// WeightedEngine prices exchanges with xy=k over a pool's virtual
// reserves: a virtual value reserve against a virtual weight reserve.
// Buys and sells shift the virtual reserves; changes and deposits leave
// them untouched. Basket weight comes from the allow-list (one WAD per
// asset when the pool has no root).
type WeightedEngine struct {
	ledger   *nft.Ledger
	verifier *oracle.Verifier
}

// NewWeightedEngine creates a weighted engine bound to an asset ledger
// and a provenance verifier.
func NewWeightedEngine(ledger *nft.Ledger, verifier *oracle.Verifier) *WeightedEngine {
	return &WeightedEngine{ledger: ledger, verifier: verifier}
}

// Create registers a new weighted pool instance and returns its address.
// The seed basket and value move creator to pool at creation; virtual
// reserves set the price and are independent of what is seeded.
func (e *WeightedEngine) Create(state StateDB, creator common.Address, collection common.Address, feeBps uint64, merkleRoot common.Hash, useOracle bool, virtualValue *big.Int, virtualWeight *big.Int, seedIds []*big.Int, seedValue *big.Int, nonce uint64) (common.Address, error) {
	if collection == (common.Address{}) {
		return common.Address{}, ErrZeroCollection
	}
	if feeBps > MaxFeeBps {
		return common.Address{}, ErrFeeTooHigh
	}
	if virtualValue == nil || virtualValue.Sign() <= 0 || virtualWeight == nil || virtualWeight.Sign() <= 0 {
		return common.Address{}, ErrZeroVirtualReserves
	}

	pool := DerivePoolAddress(weightedPrefix, creator, collection, nonce)
	if _, err := getWeightedPool(state, pool); err == nil {
		return common.Address{}, ErrPoolExists
	}

	setWeightedPool(state, pool, &WeightedPool{
		Collection:    collection,
		FeeBps:        feeBps,
		MerkleRoot:    merkleRoot,
		UseOracle:     useOracle,
		VirtualValue:  new(big.Int).Set(virtualValue),
		VirtualWeight: new(big.Int).Set(virtualWeight),
	})
	if err := seedPool(state, e.ledger, creator, collection, pool, seedIds, seedValue); err != nil {
		return common.Address{}, err
	}
	return pool, nil
}

// buyQuote returns (net, raw) for taking [weight] out of the pool: raw is
// the reserve shift, net adds the fee and is what the buyer pays.
func (e *WeightedEngine) buyQuote(p *WeightedPool, weight *big.Int) (*big.Int, *big.Int, error) {
	if weight.Cmp(p.VirtualWeight) >= 0 {
		return nil, nil, ErrInsufficientReserve
	}
	den := new(big.Int).Sub(p.VirtualWeight, weight)
	raw := mulDivUp(weight, p.VirtualValue, den)
	fee := new(big.Int).Mul(raw, new(big.Int).SetUint64(p.FeeBps))
	fee.Div(fee, big.NewInt(bpsDenominator))
	return new(big.Int).Add(raw, fee), raw, nil
}

// sellQuote returns (net, raw) for selling [weight] into the pool: raw is
// the reserve shift, net deducts the fee and is what the seller receives.
func (e *WeightedEngine) sellQuote(p *WeightedPool, weight *big.Int) (*big.Int, *big.Int) {
	den := new(big.Int).Add(p.VirtualWeight, weight)
	raw := new(big.Int).Mul(weight, p.VirtualValue)
	raw.Div(raw, den)
	fee := new(big.Int).Mul(raw, new(big.Int).SetUint64(p.FeeBps))
	fee.Div(fee, big.NewInt(bpsDenominator))
	return new(big.Int).Sub(raw, fee), raw
}

// BuyQuote returns the net value required to buy [weight] from the pool.
func (e *WeightedEngine) BuyQuote(state StateDB, pool common.Address, weight *big.Int) (*big.Int, error) {
	p, err := getWeightedPool(state, pool)
	if err != nil {
		return nil, err
	}
	net, _, err := e.buyQuote(p, weight)
	return net, err
}

// SellQuote returns the net value paid for selling [weight] to the pool.
func (e *WeightedEngine) SellQuote(state StateDB, pool common.Address, weight *big.Int) (*big.Int, error) {
	p, err := getWeightedPool(state, pool)
	if err != nil {
		return nil, err
	}
	net, _ := e.sellQuote(p, weight)
	return net, nil
}

// CurrentPrice returns the pool's value per WAD of weight.
func (e *WeightedEngine) CurrentPrice(state StateDB, pool common.Address) (*big.Int, error) {
	p, err := getWeightedPool(state, pool)
	if err != nil {
		return nil, err
	}
	price := new(big.Int).Mul(p.VirtualValue, WAD)
	return price.Div(price, p.VirtualWeight), nil
}

// Buy swaps offered value for the named assets at the weighted quote.
// The net quote is taken from [caller], the assets move pool to caller,
// and the raw quote shifts the virtual reserves.
func (e *WeightedEngine) Buy(state StateDB, caller common.Address, pool common.Address, ids []*big.Int, weights []*big.Int, proof MultiProof, valueOffered *big.Int) (*big.Int, error) {
	p, err := getWeightedPool(state, pool)
	if err != nil {
		return nil, err
	}
	weight, err := resolveWeights(p.MerkleRoot, ids, weights, proof)
	if err != nil {
		return nil, err
	}
	net, raw, err := e.buyQuote(p, weight)
	if err != nil {
		return nil, err
	}
	if valueOffered == nil {
		valueOffered = new(big.Int)
	}
	if net.Cmp(valueOffered) > 0 {
		return nil, ErrInsufficientInput
	}

	state.SubBalance(caller, bigToU256(net))
	state.AddBalance(pool, bigToU256(net))
	for _, id := range ids {
		if err := e.ledger.Transfer(state, pool, p.Collection, pool, caller, id); err != nil {
			return nil, err
		}
	}

	p.VirtualValue.Add(p.VirtualValue, raw)
	p.VirtualWeight.Sub(p.VirtualWeight, weight)
	setWeightedPool(state, pool, p)
	return net, nil
}

// Sell swaps the named assets for value at the weighted quote. Assets
// move caller to pool (the pool must hold transfer authority from the
// caller); with provenance checking on every id needs an attestation
// clearing the oracle at block time [now].
func (e *WeightedEngine) Sell(state StateDB, caller common.Address, pool common.Address, ids []*big.Int, weights []*big.Int, proof MultiProof, attestations [][]byte, now uint64) (*big.Int, error) {
	p, err := getWeightedPool(state, pool)
	if err != nil {
		return nil, err
	}
	weight, err := resolveWeights(p.MerkleRoot, ids, weights, proof)
	if err != nil {
		return nil, err
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

	net, raw := e.sellQuote(p, weight)
	if state.GetBalance(pool).ToBig().Cmp(net) < 0 {
		return nil, ErrInsufficientReserve
	}

	for _, id := range ids {
		if err := e.ledger.Transfer(state, pool, p.Collection, caller, pool, id); err != nil {
			return nil, err
		}
	}
	state.SubBalance(pool, bigToU256(net))
	state.AddBalance(caller, bigToU256(net))

	p.VirtualValue.Sub(p.VirtualValue, raw)
	p.VirtualWeight.Add(p.VirtualWeight, weight)
	setWeightedPool(state, pool, p)
	return net, nil
}

// Change swaps an input basket for an output basket of equal or lower
// weight against a flat fee on the input weight. Virtual reserves are
// unchanged; the fee is what the caller pays.
func (e *WeightedEngine) Change(state StateDB, caller common.Address, pool common.Address, inputIds []*big.Int, inputWeights []*big.Int, inputProof MultiProof, outputIds []*big.Int, outputWeights []*big.Int, outputProof MultiProof, attestations [][]byte, valueOffered *big.Int, now uint64) (*big.Int, error) {
	p, err := getWeightedPool(state, pool)
	if err != nil {
		return nil, err
	}
	inWeight, err := resolveWeights(p.MerkleRoot, inputIds, inputWeights, inputProof)
	if err != nil {
		return nil, err
	}
	outWeight, err := resolveWeights(p.MerkleRoot, outputIds, outputWeights, outputProof)
	if err != nil {
		return nil, err
	}
	if inWeight.Cmp(outWeight) < 0 {
		return nil, ErrBasketTooLight
	}
	if p.UseOracle {
		if len(attestations) != len(inputIds) {
			return nil, ErrAttestationCount
		}
		for i, id := range inputIds {
			if err := e.verifier.Check(p.Collection, id, attestations[i], now); err != nil {
				return nil, err
			}
		}
	}

	fee := mulDivUp(inWeight, p.VirtualValue, p.VirtualWeight)
	fee.Mul(fee, new(big.Int).SetUint64(p.FeeBps))
	fee.Div(fee, big.NewInt(bpsDenominator))
	if valueOffered == nil {
		valueOffered = new(big.Int)
	}
	if fee.Cmp(valueOffered) > 0 {
		return nil, ErrInsufficientInput
	}

	for _, id := range inputIds {
		if err := e.ledger.Transfer(state, pool, p.Collection, caller, pool, id); err != nil {
			return nil, err
		}
	}
	for _, id := range outputIds {
		if err := e.ledger.Transfer(state, pool, p.Collection, pool, caller, id); err != nil {
			return nil, err
		}
	}
	if fee.Sign() > 0 {
		state.SubBalance(caller, bigToU256(fee))
		state.AddBalance(pool, bigToU256(fee))
	}
	return fee, nil
}

// Deposit moves assets and value from [caller] into the pool's real
// reserves. Pricing is untouched; deposits are donations to the pool.
func (e *WeightedEngine) Deposit(state StateDB, caller common.Address, pool common.Address, ids []*big.Int, value *big.Int) error {
	p, err := getWeightedPool(state, pool)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := e.ledger.Transfer(state, pool, p.Collection, caller, pool, id); err != nil {
			return err
		}
	}
	if value != nil && value.Sign() > 0 {
		state.SubBalance(caller, bigToU256(value))
		state.AddBalance(pool, bigToU256(value))
	}
	return nil
}
