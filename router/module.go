// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package router

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
	"github.com/luxfi/sweep/pool"
	"github.com/luxfi/sweep/precompileconfig"
	"github.com/luxfi/sweep/royalty"
)

var _ contract.Configurator = (*configurator)(nil)
var _ contract.StatefulPrecompiledContract = (*RouterContract)(nil)

// ConfigKey is the key used in json config files to specify this
// precompile config.
const ConfigKey = "sweepRouterConfig"

// ContractAddress is the defined address of the router precompile
var ContractAddress = common.HexToAddress(RouterAddress)

// RouterPrecompile is the singleton router instance, wired to the ledger,
// both pool engines, and the royalty registry.
var RouterPrecompile = &RouterContract{
	router: NewRouter(
		nft.LedgerPrecompile.Ledger(),
		pool.CurvePrecompile.Engine(),
		pool.WeightedPrecompile.Engine(),
		royalty.RegistryPrecompile.Registry(),
	),
}

// Module is the precompile module. It is used to register the precompile
// contract.
var Module = modules.Module{
	ConfigKey:    ConfigKey,
	Address:      ContractAddress,
	Contract:     RouterPrecompile,
	Configurator: &configurator{},
}

type configurator struct{}

func init() {
	if err := modules.RegisterModule(Module); err != nil {
		panic(err)
	}
}

// Method selectors for the router
const (
	SelectorBuy     uint32 = 0x01000000 // buy(json)
	SelectorSell    uint32 = 0x02000000 // sell(json)
	SelectorChange  uint32 = 0x03000000 // change(json)
	SelectorDeposit uint32 = 0x04000000 // deposit(json)
)

// Gas costs for router operations
const (
	GasBuy     = uint64(80_000) // per-entry dispatch + custody moves
	GasSell    = uint64(80_000)
	GasChange  = uint64(80_000)
	GasDeposit = uint64(40_000) // single pool, no batch loop
)

// Config implements the precompile config for the router
type Config struct {
	precompileconfig.Upgrade
}

// MakeConfig returns a new config instance
func (*configurator) MakeConfig() precompileconfig.Config {
	return new(Config)
}

// Configure configures the state at activation. The router holds no
// state of its own, so there is nothing to set up.
func (*configurator) Configure(
	chainConfig precompileconfig.ChainConfig,
	cfg precompileconfig.Config,
	state contract.StateDB,
	blockContext contract.ConfigurationBlockContext,
) error {
	if _, ok := cfg.(*Config); !ok {
		return fmt.Errorf("expected config type %T, got %T: %v", &Config{}, cfg, cfg)
	}
	return nil
}

func (c *Config) Key() string { return ConfigKey }

func (c *Config) Timestamp() *uint64 { return c.Upgrade.Timestamp() }

func (c *Config) IsDisabled() bool { return c.Upgrade.Disable }

func (c *Config) Equal(cfg precompileconfig.Config) bool {
	other, ok := cfg.(*Config)
	if !ok {
		return false
	}
	return c.Upgrade.Equal(&other.Upgrade)
}

func (c *Config) Verify(chainConfig precompileconfig.ChainConfig) error { return nil }

// =========================================================================
// Call payloads (selector + JSON)
// =========================================================================

// BuyInput is a buy batch. Value is the native value attached to fund
// the entries; the unconsumed part comes back with the call.
type BuyInput struct {
	Entries      []BuyEntry `json:"entries"`
	Deadline     uint64     `json:"deadline"`
	PayRoyalties bool       `json:"payRoyalties"`
	Value        *big.Int   `json:"value"`
}

// SellInput is a sell batch. MinOutputAmount is the floor on the total
// proceeds across all entries.
type SellInput struct {
	Entries         []SellEntry `json:"entries"`
	MinOutputAmount *big.Int    `json:"minOutputAmount"`
	Deadline        uint64      `json:"deadline"`
	PayRoyalties    bool        `json:"payRoyalties"`
}

// ChangeInput is a change batch. Value covers the pools' change fees.
type ChangeInput struct {
	Entries  []ChangeEntry `json:"entries"`
	Deadline uint64        `json:"deadline"`
	Value    *big.Int      `json:"value"`
}

// DepositInput forwards a basket and value into one weighted pool,
// bounded by the pool's spot price.
type DepositInput struct {
	Pool       common.Address `json:"pool"`
	Collection common.Address `json:"collection"`
	Ids        []*big.Int     `json:"ids"`
	Value      *big.Int       `json:"value"`
	MinPrice   *big.Int       `json:"minPrice"`
	MaxPrice   *big.Int       `json:"maxPrice"`
	Deadline   uint64         `json:"deadline"`
}

// AmountOutput reports the settled amount of an operation: value
// consumed for buys, payout for sells, fees paid for changes.
type AmountOutput struct {
	Amount *big.Int `json:"amount"`
}

func decodeInput(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func encodeOutput(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// =========================================================================
// Contract
// =========================================================================

// RouterContract implements the router precompile
type RouterContract struct {
	router *Router
}

// Router returns the underlying batch engine.
func (c *RouterContract) Router() *Router {
	return c.router
}

// Run executes the precompile
func (c *RouterContract) Run(
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
	case SelectorBuy:
		return c.runBuy(accessibleState, caller, data, suppliedGas, readOnly)
	case SelectorSell:
		return c.runSell(accessibleState, caller, data, suppliedGas, readOnly)
	case SelectorChange:
		return c.runChange(accessibleState, caller, data, suppliedGas, readOnly)
	case SelectorDeposit:
		return c.runDeposit(accessibleState, caller, data, suppliedGas, readOnly)
	default:
		return nil, suppliedGas, fmt.Errorf("unknown method selector: %x", selector)
	}
}

func (c *RouterContract) runBuy(
	state contract.AccessibleState,
	caller common.Address,
	input []byte,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, fmt.Errorf("cannot write in read-only mode")
	}
	if suppliedGas < GasBuy {
		return nil, 0, fmt.Errorf("out of gas")
	}

	var in BuyInput
	if err := decodeInput(input, &in); err != nil {
		return nil, suppliedGas - GasBuy, err
	}

	adapter := &routerStateAdapter{state.GetStateDB()}
	now := state.GetBlockContext().Timestamp()
	consumed, err := c.router.Buy(adapter, caller, in.Entries, in.Deadline, in.PayRoyalties, in.Value, now)
	if err != nil {
		return nil, suppliedGas - GasBuy, err
	}
	ret, err := encodeOutput(&AmountOutput{Amount: consumed})
	return ret, suppliedGas - GasBuy, err
}

func (c *RouterContract) runSell(
	state contract.AccessibleState,
	caller common.Address,
	input []byte,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, fmt.Errorf("cannot write in read-only mode")
	}
	if suppliedGas < GasSell {
		return nil, 0, fmt.Errorf("out of gas")
	}

	var in SellInput
	if err := decodeInput(input, &in); err != nil {
		return nil, suppliedGas - GasSell, err
	}

	adapter := &routerStateAdapter{state.GetStateDB()}
	now := state.GetBlockContext().Timestamp()
	payout, err := c.router.Sell(adapter, caller, in.Entries, in.MinOutputAmount, in.Deadline, in.PayRoyalties, now)
	if err != nil {
		return nil, suppliedGas - GasSell, err
	}
	ret, err := encodeOutput(&AmountOutput{Amount: payout})
	return ret, suppliedGas - GasSell, err
}

func (c *RouterContract) runChange(
	state contract.AccessibleState,
	caller common.Address,
	input []byte,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, fmt.Errorf("cannot write in read-only mode")
	}
	if suppliedGas < GasChange {
		return nil, 0, fmt.Errorf("out of gas")
	}

	var in ChangeInput
	if err := decodeInput(input, &in); err != nil {
		return nil, suppliedGas - GasChange, err
	}

	adapter := &routerStateAdapter{state.GetStateDB()}
	now := state.GetBlockContext().Timestamp()
	fees, err := c.router.Change(adapter, caller, in.Entries, in.Deadline, in.Value, now)
	if err != nil {
		return nil, suppliedGas - GasChange, err
	}
	ret, err := encodeOutput(&AmountOutput{Amount: fees})
	return ret, suppliedGas - GasChange, err
}

func (c *RouterContract) runDeposit(
	state contract.AccessibleState,
	caller common.Address,
	input []byte,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, fmt.Errorf("cannot write in read-only mode")
	}
	if suppliedGas < GasDeposit {
		return nil, 0, fmt.Errorf("out of gas")
	}

	var in DepositInput
	if err := decodeInput(input, &in); err != nil {
		return nil, suppliedGas - GasDeposit, err
	}

	adapter := &routerStateAdapter{state.GetStateDB()}
	now := state.GetBlockContext().Timestamp()
	if err := c.router.Deposit(adapter, caller, in.Pool, in.Collection, in.Ids, in.Value, in.MinPrice, in.MaxPrice, in.Deadline, now); err != nil {
		return nil, suppliedGas - GasDeposit, err
	}
	return nil, suppliedGas - GasDeposit, nil
}

// routerStateAdapter adapts contract.StateDB to router.StateDB
type routerStateAdapter struct {
	stateDB contract.StateDB
}

func (a *routerStateAdapter) GetState(addr common.Address, key common.Hash) common.Hash {
	return a.stateDB.GetState(addr, key)
}

func (a *routerStateAdapter) SetState(addr common.Address, key common.Hash, value common.Hash) {
	a.stateDB.SetState(addr, key, value)
}

func (a *routerStateAdapter) GetBalance(addr common.Address) *uint256.Int {
	return a.stateDB.GetBalance(addr)
}

func (a *routerStateAdapter) AddBalance(addr common.Address, amount *uint256.Int) {
	a.stateDB.AddBalance(addr, amount, tracing.BalanceChangeTransfer)
}

func (a *routerStateAdapter) SubBalance(addr common.Address, amount *uint256.Int) {
	a.stateDB.SubBalance(addr, amount, tracing.BalanceChangeTransfer)
}
