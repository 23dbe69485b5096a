// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/tracing"

	"github.com/luxfi/sweep/contract"
	"github.com/luxfi/sweep/modules"
	"github.com/luxfi/sweep/nft"
	"github.com/luxfi/sweep/oracle"
	"github.com/luxfi/sweep/precompileconfig"
)

var _ contract.Configurator = (*curveConfigurator)(nil)
var _ contract.Configurator = (*weightedConfigurator)(nil)
var _ contract.StatefulPrecompiledContract = (*CurveContract)(nil)
var _ contract.StatefulPrecompiledContract = (*WeightedContract)(nil)

// Config keys used in json config files to specify these precompile configs.
const (
	CurveConfigKey    = "curvePoolConfig"
	WeightedConfigKey = "weightedPoolConfig"
)

// Contract addresses for the pool precompiles
var (
	CurveContractAddress    = common.HexToAddress(CurvePoolAddress)
	WeightedContractAddress = common.HexToAddress(WeightedPoolAddress)
)

// CurvePrecompile is the singleton curve pool instance
var CurvePrecompile = &CurveContract{
	engine: NewCurveEngine(nft.LedgerPrecompile.Ledger(), oracle.Default()),
}

// WeightedPrecompile is the singleton weighted pool instance
var WeightedPrecompile = &WeightedContract{
	engine: NewWeightedEngine(nft.LedgerPrecompile.Ledger(), oracle.Default()),
}

// CurveModule is the precompile module (CurvePool at LP-9110)
var CurveModule = modules.Module{
	ConfigKey:    CurveConfigKey,
	Address:      CurveContractAddress,
	Contract:     CurvePrecompile,
	Configurator: &curveConfigurator{},
}

// WeightedModule is the precompile module (WeightedPool at LP-9120)
var WeightedModule = modules.Module{
	ConfigKey:    WeightedConfigKey,
	Address:      WeightedContractAddress,
	Contract:     WeightedPrecompile,
	Configurator: &weightedConfigurator{},
}

func init() {
	if err := modules.RegisterModule(CurveModule); err != nil {
		panic(err)
	}
	if err := modules.RegisterModule(WeightedModule); err != nil {
		panic(err)
	}
}

// Method selectors for the curve pool
const (
	SelectorCurveCreate       uint32 = 0x01000000 // create(json)
	SelectorExchangeForAssets uint32 = 0x02000000 // exchangeForAssets(json)
	SelectorExchangeForValue  uint32 = 0x03000000 // exchangeForValue(json)
	SelectorCurveBuyQuote     uint32 = 0x04000000 // buyQuote(json)
	SelectorCurveSellQuote    uint32 = 0x05000000 // sellQuote(json)
)

// Method selectors for the weighted pool
const (
	SelectorWeightedCreate  uint32 = 0x01000000 // create(json)
	SelectorWeightedBuy     uint32 = 0x02000000 // buy(json)
	SelectorWeightedSell    uint32 = 0x03000000 // sell(json)
	SelectorWeightedChange  uint32 = 0x04000000 // change(json)
	SelectorWeightedDeposit uint32 = 0x05000000 // deposit(json)
	SelectorCurrentPrice    uint32 = 0x06000000 // currentPrice(json)
)

// Gas costs for pool operations
const (
	GasPoolCreate  = uint64(40_000) // pool record slots
	GasExchange    = uint64(60_000) // quote + balance moves + ledger writes
	GasPoolDeposit = uint64(30_000) // balance move + ledger writes
	GasPoolQuote   = uint64(5_000)  // record read + math
)

type curveConfigurator struct{}
type weightedConfigurator struct{}

// CurveConfig implements the precompile config for the curve pool
type CurveConfig struct {
	precompileconfig.Upgrade
	// OracleSigners are registered on the shared provenance verifier at
	// activation time.
	OracleSigners []common.Address `json:"oracleSigners,omitempty"`
}

// WeightedConfig implements the precompile config for the weighted pool
type WeightedConfig struct {
	precompileconfig.Upgrade
	// OracleSigners are registered on the shared provenance verifier at
	// activation time.
	OracleSigners []common.Address `json:"oracleSigners,omitempty"`
}

func (*curveConfigurator) MakeConfig() precompileconfig.Config {
	return new(CurveConfig)
}

func (*curveConfigurator) Configure(
	chainConfig precompileconfig.ChainConfig,
	cfg precompileconfig.Config,
	state contract.StateDB,
	blockContext contract.ConfigurationBlockContext,
) error {
	config, ok := cfg.(*CurveConfig)
	if !ok {
		return fmt.Errorf("expected config type %T, got %T: %v", &CurveConfig{}, cfg, cfg)
	}
	for _, signer := range config.OracleSigners {
		oracle.Default().AddSigner(signer)
	}
	return nil
}

func (*weightedConfigurator) MakeConfig() precompileconfig.Config {
	return new(WeightedConfig)
}

func (*weightedConfigurator) Configure(
	chainConfig precompileconfig.ChainConfig,
	cfg precompileconfig.Config,
	state contract.StateDB,
	blockContext contract.ConfigurationBlockContext,
) error {
	config, ok := cfg.(*WeightedConfig)
	if !ok {
		return fmt.Errorf("expected config type %T, got %T: %v", &WeightedConfig{}, cfg, cfg)
	}
	for _, signer := range config.OracleSigners {
		oracle.Default().AddSigner(signer)
	}
	return nil
}

func (c *CurveConfig) Key() string { return CurveConfigKey }

func (c *CurveConfig) Timestamp() *uint64 { return c.Upgrade.Timestamp() }

func (c *CurveConfig) IsDisabled() bool { return c.Upgrade.Disable }

func (c *CurveConfig) Equal(cfg precompileconfig.Config) bool {
	other, ok := cfg.(*CurveConfig)
	if !ok {
		return false
	}
	return c.Upgrade.Equal(&other.Upgrade) && signersEqual(c.OracleSigners, other.OracleSigners)
}

func (c *CurveConfig) Verify(chainConfig precompileconfig.ChainConfig) error {
	return verifySigners(c.OracleSigners)
}

func (c *WeightedConfig) Key() string { return WeightedConfigKey }

func (c *WeightedConfig) Timestamp() *uint64 { return c.Upgrade.Timestamp() }

func (c *WeightedConfig) IsDisabled() bool { return c.Upgrade.Disable }

func (c *WeightedConfig) Equal(cfg precompileconfig.Config) bool {
	other, ok := cfg.(*WeightedConfig)
	if !ok {
		return false
	}
	return c.Upgrade.Equal(&other.Upgrade) && signersEqual(c.OracleSigners, other.OracleSigners)
}

func (c *WeightedConfig) Verify(chainConfig precompileconfig.ChainConfig) error {
	return verifySigners(c.OracleSigners)
}

func signersEqual(a, b []common.Address) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func verifySigners(signers []common.Address) error {
	for _, s := range signers {
		if s == (common.Address{}) {
			return fmt.Errorf("oracle signer with zero address")
		}
	}
	return nil
}

// =========================================================================
// Call payloads (selector + JSON)
// =========================================================================

// CreateCurveInput creates a curve pool; the caller becomes the creator
// and funds the optional seed basket and value.
type CreateCurveInput struct {
	Collection common.Address `json:"collection"`
	FeeBps     uint64         `json:"feeBps"`
	MerkleRoot common.Hash    `json:"merkleRoot"`
	UseOracle  bool           `json:"useOracle"`
	SeedIds    []*big.Int     `json:"seedIds,omitempty"`
	SeedValue  *big.Int       `json:"seedValue,omitempty"`
	Nonce      uint64         `json:"nonce"`
}

// CreateWeightedInput creates a weighted pool.
type CreateWeightedInput struct {
	Collection    common.Address `json:"collection"`
	FeeBps        uint64         `json:"feeBps"`
	MerkleRoot    common.Hash    `json:"merkleRoot"`
	UseOracle     bool           `json:"useOracle"`
	VirtualValue  *big.Int       `json:"virtualValue"`
	VirtualWeight *big.Int       `json:"virtualWeight"`
	SeedIds       []*big.Int     `json:"seedIds,omitempty"`
	SeedValue     *big.Int       `json:"seedValue,omitempty"`
	Nonce         uint64         `json:"nonce"`
}

// CreateOutput reports the derived pool address.
type CreateOutput struct {
	Pool common.Address `json:"pool"`
}

// ExchangeForAssetsInput buys the named assets from a curve pool.
type ExchangeForAssetsInput struct {
	Pool         common.Address `json:"pool"`
	Ids          []*big.Int     `json:"ids"`
	ValueOffered *big.Int       `json:"valueOffered"`
	MinAssetsOut int            `json:"minAssetsOut"`
}

// ExchangeForValueInput sells the named assets to a curve pool.
type ExchangeForValueInput struct {
	Pool         common.Address  `json:"pool"`
	Ids          []*big.Int      `json:"ids"`
	MinValueOut  *big.Int        `json:"minValueOut"`
	Deadline     uint64          `json:"deadline"`
	Proofs       [][]common.Hash `json:"proofs,omitempty"`
	Attestations [][]byte        `json:"attestations,omitempty"`
}

// QuoteInput requests a curve quote for a basket size.
type QuoteInput struct {
	Pool  common.Address `json:"pool"`
	Count int            `json:"count"`
}

// ValueOutput reports a value amount.
type ValueOutput struct {
	Value *big.Int `json:"value"`
}

// WeightedBuyInput buys the named assets from a weighted pool.
type WeightedBuyInput struct {
	Pool         common.Address `json:"pool"`
	Ids          []*big.Int     `json:"ids"`
	Weights      []*big.Int     `json:"weights,omitempty"`
	Proof        MultiProof     `json:"proof"`
	ValueOffered *big.Int       `json:"valueOffered"`
}

// WeightedSellInput sells the named assets to a weighted pool.
type WeightedSellInput struct {
	Pool         common.Address `json:"pool"`
	Ids          []*big.Int     `json:"ids"`
	Weights      []*big.Int     `json:"weights,omitempty"`
	Proof        MultiProof     `json:"proof"`
	Attestations [][]byte       `json:"attestations,omitempty"`
}

// WeightedChangeInput swaps an input basket for an output basket.
type WeightedChangeInput struct {
	Pool          common.Address `json:"pool"`
	InputIds      []*big.Int     `json:"inputIds"`
	InputWeights  []*big.Int     `json:"inputWeights,omitempty"`
	InputProof    MultiProof     `json:"inputProof"`
	OutputIds     []*big.Int     `json:"outputIds"`
	OutputWeights []*big.Int     `json:"outputWeights,omitempty"`
	OutputProof   MultiProof     `json:"outputProof"`
	Attestations  [][]byte       `json:"attestations,omitempty"`
	ValueOffered  *big.Int       `json:"valueOffered"`
}

// WeightedDepositInput donates assets and value to a weighted pool.
type WeightedDepositInput struct {
	Pool  common.Address `json:"pool"`
	Ids   []*big.Int     `json:"ids"`
	Value *big.Int       `json:"value"`
}

// PriceInput requests a weighted pool's current price.
type PriceInput struct {
	Pool common.Address `json:"pool"`
}

func decodeInput(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func encodeOutput(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// =========================================================================
// Curve pool contract
// =========================================================================

// CurveContract implements the curve pool precompile
type CurveContract struct {
	engine *CurveEngine
}

// Engine returns the underlying engine, shared with the sweep router.
func (c *CurveContract) Engine() *CurveEngine {
	return c.engine
}

// Run executes the precompile
func (c *CurveContract) Run(
	accessibleState contract.AccessibleState,
	caller common.Address,
	addr common.Address,
	input []byte,
	suppliedGas uint64,
	readOnly bool,
) (ret []byte, remainingGas uint64, err error) {
	if len(input) < 4 {
		return nil, suppliedGas, fmt.Errorf("input too short")
	}

	selector := binary.BigEndian.Uint32(input[:4])
	data := input[4:]

	switch selector {
	case SelectorCurveCreate:
		return c.runCreate(accessibleState, caller, data, suppliedGas, readOnly)
	case SelectorExchangeForAssets:
		return c.runExchangeForAssets(accessibleState, caller, data, suppliedGas, readOnly)
	case SelectorExchangeForValue:
		return c.runExchangeForValue(accessibleState, caller, data, suppliedGas, readOnly)
	case SelectorCurveBuyQuote:
		return c.runBuyQuote(accessibleState, data, suppliedGas)
	case SelectorCurveSellQuote:
		return c.runSellQuote(accessibleState, data, suppliedGas)
	default:
		return nil, suppliedGas, fmt.Errorf("unknown method selector: %x", selector)
	}
}

func (c *CurveContract) runCreate(
	state contract.AccessibleState,
	caller common.Address,
	input []byte,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, fmt.Errorf("cannot write in read-only mode")
	}
	if suppliedGas < GasPoolCreate {
		return nil, 0, fmt.Errorf("out of gas")
	}

	var in CreateCurveInput
	if err := decodeInput(input, &in); err != nil {
		return nil, suppliedGas - GasPoolCreate, err
	}

	adapter := &poolStateAdapter{state.GetStateDB()}
	pool, err := c.engine.Create(adapter, caller, in.Collection, in.FeeBps, in.MerkleRoot, in.UseOracle, in.SeedIds, in.SeedValue, in.Nonce)
	if err != nil {
		return nil, suppliedGas - GasPoolCreate, err
	}
	ret, err := encodeOutput(&CreateOutput{Pool: pool})
	return ret, suppliedGas - GasPoolCreate, err
}

func (c *CurveContract) runExchangeForAssets(
	state contract.AccessibleState,
	caller common.Address,
	input []byte,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, fmt.Errorf("cannot write in read-only mode")
	}
	if suppliedGas < GasExchange {
		return nil, 0, fmt.Errorf("out of gas")
	}

	var in ExchangeForAssetsInput
	if err := decodeInput(input, &in); err != nil {
		return nil, suppliedGas - GasExchange, err
	}

	adapter := &poolStateAdapter{state.GetStateDB()}
	spent, err := c.engine.ExchangeForAssets(adapter, caller, in.Pool, in.Ids, in.ValueOffered, in.MinAssetsOut)
	if err != nil {
		return nil, suppliedGas - GasExchange, err
	}
	ret, err := encodeOutput(&ValueOutput{Value: spent})
	return ret, suppliedGas - GasExchange, err
}

func (c *CurveContract) runExchangeForValue(
	state contract.AccessibleState,
	caller common.Address,
	input []byte,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, fmt.Errorf("cannot write in read-only mode")
	}
	if suppliedGas < GasExchange {
		return nil, 0, fmt.Errorf("out of gas")
	}

	var in ExchangeForValueInput
	if err := decodeInput(input, &in); err != nil {
		return nil, suppliedGas - GasExchange, err
	}

	adapter := &poolStateAdapter{state.GetStateDB()}
	now := state.GetBlockContext().Timestamp()
	received, err := c.engine.ExchangeForValue(adapter, caller, in.Pool, in.Ids, in.MinValueOut, in.Deadline, now, in.Proofs, in.Attestations)
	if err != nil {
		return nil, suppliedGas - GasExchange, err
	}
	ret, err := encodeOutput(&ValueOutput{Value: received})
	return ret, suppliedGas - GasExchange, err
}

func (c *CurveContract) runBuyQuote(
	state contract.AccessibleState,
	input []byte,
	suppliedGas uint64,
) ([]byte, uint64, error) {
	if suppliedGas < GasPoolQuote {
		return nil, 0, fmt.Errorf("out of gas")
	}

	var in QuoteInput
	if err := decodeInput(input, &in); err != nil {
		return nil, suppliedGas - GasPoolQuote, err
	}

	adapter := &poolStateAdapter{state.GetStateDB()}
	value, err := c.engine.BuyQuote(adapter, in.Pool, in.Count)
	if err != nil {
		return nil, suppliedGas - GasPoolQuote, err
	}
	ret, err := encodeOutput(&ValueOutput{Value: value})
	return ret, suppliedGas - GasPoolQuote, err
}

func (c *CurveContract) runSellQuote(
	state contract.AccessibleState,
	input []byte,
	suppliedGas uint64,
) ([]byte, uint64, error) {
	if suppliedGas < GasPoolQuote {
		return nil, 0, fmt.Errorf("out of gas")
	}

	var in QuoteInput
	if err := decodeInput(input, &in); err != nil {
		return nil, suppliedGas - GasPoolQuote, err
	}

	adapter := &poolStateAdapter{state.GetStateDB()}
	value, err := c.engine.SellQuote(adapter, in.Pool, in.Count)
	if err != nil {
		return nil, suppliedGas - GasPoolQuote, err
	}
	ret, err := encodeOutput(&ValueOutput{Value: value})
	return ret, suppliedGas - GasPoolQuote, err
}

// =========================================================================
// Weighted pool contract
// =========================================================================

// WeightedContract implements the weighted pool precompile
type WeightedContract struct {
	engine *WeightedEngine
}

// Engine returns the underlying engine, shared with the sweep router.
func (c *WeightedContract) Engine() *WeightedEngine {
	return c.engine
}

// Run executes the precompile
func (c *WeightedContract) Run(
	accessibleState contract.AccessibleState,
	caller common.Address,
	addr common.Address,
	input []byte,
	suppliedGas uint64,
	readOnly bool,
) (ret []byte, remainingGas uint64, err error) {
	if len(input) < 4 {
		return nil, suppliedGas, fmt.Errorf("input too short")
	}

	selector := binary.BigEndian.Uint32(input[:4])
	data := input[4:]

	switch selector {
	case SelectorWeightedCreate:
		return c.runCreate(accessibleState, caller, data, suppliedGas, readOnly)
	case SelectorWeightedBuy:
		return c.runBuy(accessibleState, caller, data, suppliedGas, readOnly)
	case SelectorWeightedSell:
		return c.runSell(accessibleState, caller, data, suppliedGas, readOnly)
	case SelectorWeightedChange:
		return c.runChange(accessibleState, caller, data, suppliedGas, readOnly)
	case SelectorWeightedDeposit:
		return c.runDeposit(accessibleState, caller, data, suppliedGas, readOnly)
	case SelectorCurrentPrice:
		return c.runCurrentPrice(accessibleState, data, suppliedGas)
	default:
		return nil, suppliedGas, fmt.Errorf("unknown method selector: %x", selector)
	}
}

func (c *WeightedContract) runCreate(
	state contract.AccessibleState,
	caller common.Address,
	input []byte,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, fmt.Errorf("cannot write in read-only mode")
	}
	if suppliedGas < GasPoolCreate {
		return nil, 0, fmt.Errorf("out of gas")
	}

	var in CreateWeightedInput
	if err := decodeInput(input, &in); err != nil {
		return nil, suppliedGas - GasPoolCreate, err
	}

	adapter := &poolStateAdapter{state.GetStateDB()}
	pool, err := c.engine.Create(adapter, caller, in.Collection, in.FeeBps, in.MerkleRoot, in.UseOracle, in.VirtualValue, in.VirtualWeight, in.SeedIds, in.SeedValue, in.Nonce)
	if err != nil {
		return nil, suppliedGas - GasPoolCreate, err
	}
	ret, err := encodeOutput(&CreateOutput{Pool: pool})
	return ret, suppliedGas - GasPoolCreate, err
}

func (c *WeightedContract) runBuy(
	state contract.AccessibleState,
	caller common.Address,
	input []byte,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, fmt.Errorf("cannot write in read-only mode")
	}
	if suppliedGas < GasExchange {
		return nil, 0, fmt.Errorf("out of gas")
	}

	var in WeightedBuyInput
	if err := decodeInput(input, &in); err != nil {
		return nil, suppliedGas - GasExchange, err
	}

	adapter := &poolStateAdapter{state.GetStateDB()}
	spent, err := c.engine.Buy(adapter, caller, in.Pool, in.Ids, in.Weights, in.Proof, in.ValueOffered)
	if err != nil {
		return nil, suppliedGas - GasExchange, err
	}
	ret, err := encodeOutput(&ValueOutput{Value: spent})
	return ret, suppliedGas - GasExchange, err
}

func (c *WeightedContract) runSell(
	state contract.AccessibleState,
	caller common.Address,
	input []byte,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, fmt.Errorf("cannot write in read-only mode")
	}
	if suppliedGas < GasExchange {
		return nil, 0, fmt.Errorf("out of gas")
	}

	var in WeightedSellInput
	if err := decodeInput(input, &in); err != nil {
		return nil, suppliedGas - GasExchange, err
	}

	adapter := &poolStateAdapter{state.GetStateDB()}
	now := state.GetBlockContext().Timestamp()
	received, err := c.engine.Sell(adapter, caller, in.Pool, in.Ids, in.Weights, in.Proof, in.Attestations, now)
	if err != nil {
		return nil, suppliedGas - GasExchange, err
	}
	ret, err := encodeOutput(&ValueOutput{Value: received})
	return ret, suppliedGas - GasExchange, err
}

func (c *WeightedContract) runChange(
	state contract.AccessibleState,
	caller common.Address,
	input []byte,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, fmt.Errorf("cannot write in read-only mode")
	}
	if suppliedGas < GasExchange {
		return nil, 0, fmt.Errorf("out of gas")
	}

	var in WeightedChangeInput
	if err := decodeInput(input, &in); err != nil {
		return nil, suppliedGas - GasExchange, err
	}

	adapter := &poolStateAdapter{state.GetStateDB()}
	now := state.GetBlockContext().Timestamp()
	fee, err := c.engine.Change(adapter, caller, in.Pool, in.InputIds, in.InputWeights, in.InputProof, in.OutputIds, in.OutputWeights, in.OutputProof, in.Attestations, in.ValueOffered, now)
	if err != nil {
		return nil, suppliedGas - GasExchange, err
	}
	ret, err := encodeOutput(&ValueOutput{Value: fee})
	return ret, suppliedGas - GasExchange, err
}

func (c *WeightedContract) runDeposit(
	state contract.AccessibleState,
	caller common.Address,
	input []byte,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, fmt.Errorf("cannot write in read-only mode")
	}
	if suppliedGas < GasPoolDeposit {
		return nil, 0, fmt.Errorf("out of gas")
	}

	var in WeightedDepositInput
	if err := decodeInput(input, &in); err != nil {
		return nil, suppliedGas - GasPoolDeposit, err
	}

	adapter := &poolStateAdapter{state.GetStateDB()}
	if err := c.engine.Deposit(adapter, caller, in.Pool, in.Ids, in.Value); err != nil {
		return nil, suppliedGas - GasPoolDeposit, err
	}
	return nil, suppliedGas - GasPoolDeposit, nil
}

func (c *WeightedContract) runCurrentPrice(
	state contract.AccessibleState,
	input []byte,
	suppliedGas uint64,
) ([]byte, uint64, error) {
	if suppliedGas < GasPoolQuote {
		return nil, 0, fmt.Errorf("out of gas")
	}

	var in PriceInput
	if err := decodeInput(input, &in); err != nil {
		return nil, suppliedGas - GasPoolQuote, err
	}

	adapter := &poolStateAdapter{state.GetStateDB()}
	price, err := c.engine.CurrentPrice(adapter, in.Pool)
	if err != nil {
		return nil, suppliedGas - GasPoolQuote, err
	}
	ret, err := encodeOutput(&ValueOutput{Value: price})
	return ret, suppliedGas - GasPoolQuote, err
}

// poolStateAdapter adapts contract.StateDB to pool.StateDB
type poolStateAdapter struct {
	stateDB contract.StateDB
}

func (a *poolStateAdapter) GetState(addr common.Address, key common.Hash) common.Hash {
	return a.stateDB.GetState(addr, key)
}

func (a *poolStateAdapter) SetState(addr common.Address, key common.Hash, value common.Hash) {
	a.stateDB.SetState(addr, key, value)
}

func (a *poolStateAdapter) GetBalance(addr common.Address) *uint256.Int {
	return a.stateDB.GetBalance(addr)
}

func (a *poolStateAdapter) AddBalance(addr common.Address, amount *uint256.Int) {
	a.stateDB.AddBalance(addr, amount, tracing.BalanceChangeTransfer)
}

func (a *poolStateAdapter) SubBalance(addr common.Address, amount *uint256.Int) {
	a.stateDB.SubBalance(addr, amount, tracing.BalanceChangeTransfer)
}
