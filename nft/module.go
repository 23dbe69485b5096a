// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package nft

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/sweep/contract"
	"github.com/luxfi/sweep/modules"
	"github.com/luxfi/sweep/precompileconfig"
)

var _ contract.Configurator = (*configurator)(nil)
var _ contract.StatefulPrecompiledContract = (*LedgerContract)(nil)

// ConfigKey is the key used in json config files to specify this precompile config.
const ConfigKey = "assetLedgerConfig"

// ContractAddress is the asset ledger precompile address (LP-9130)
var ContractAddress = common.HexToAddress(LedgerAddress)

// LedgerPrecompile is the singleton instance
var LedgerPrecompile = &LedgerContract{
	ledger: NewLedger(),
}

// Module is the precompile module (AssetLedger at LP-9130)
var Module = modules.Module{
	ConfigKey:    ConfigKey,
	Address:      ContractAddress,
	Contract:     LedgerPrecompile,
	Configurator: &configurator{},
}

// Method selectors for the asset ledger
const (
	SelectorCreateCollection  uint32 = 0x01000000 // createCollection(address)
	SelectorMint              uint32 = 0x02000000 // mint(address,address,uint256)
	SelectorTransferFrom      uint32 = 0x03000000 // transferFrom(address,address,address,uint256)
	SelectorApprove           uint32 = 0x04000000 // approve(address,uint256,address)
	SelectorSetApprovalForAll uint32 = 0x05000000 // setApprovalForAll(address,address,bool)
	SelectorOwnerOf           uint32 = 0x06000000 // ownerOf(address,uint256)
	SelectorBalanceOf         uint32 = 0x07000000 // balanceOf(address,address)
	SelectorIsApprovedForAll  uint32 = 0x08000000 // isApprovedForAll(address,address,address)
)

// Gas costs for ledger operations
const (
	GasCollectionCreate = uint64(30_000) // new collection record
	GasMint             = uint64(25_000) // owner slot + balance slot
	GasTransfer         = uint64(20_000) // owner slot + two balance slots
	GasApprove          = uint64(10_000) // single approval slot
	GasLedgerRead       = uint64(2_000)  // single slot read
)

type configurator struct{}

func init() {
	if err := modules.RegisterModule(Module); err != nil {
		panic(err)
	}
}

// CollectionConfig pre-registers a collection at activation.
type CollectionConfig struct {
	Collection common.Address `json:"collection"`
	Admin      common.Address `json:"admin"`
}

// Config implements the precompile config for the asset ledger
type Config struct {
	precompileconfig.Upgrade
	// Collections registered at activation time.
	Collections []CollectionConfig `json:"collections,omitempty"`
}

func (*configurator) MakeConfig() precompileconfig.Config {
	return new(Config)
}

func (*configurator) Configure(
	chainConfig precompileconfig.ChainConfig,
	cfg precompileconfig.Config,
	state contract.StateDB,
	blockContext contract.ConfigurationBlockContext,
) error {
	config, ok := cfg.(*Config)
	if !ok {
		return fmt.Errorf("expected config type %T, got %T: %v", &Config{}, cfg, cfg)
	}

	adapter := &ledgerStateAdapter{state}
	for _, c := range config.Collections {
		if err := LedgerPrecompile.ledger.CreateCollection(adapter, c.Admin, c.Collection); err != nil {
			return fmt.Errorf("configure collection %s: %w", c.Collection, err)
		}
	}
	return nil
}

func (c *Config) Key() string {
	return ConfigKey
}

func (c *Config) Timestamp() *uint64 {
	return c.Upgrade.Timestamp()
}

func (c *Config) IsDisabled() bool {
	return c.Upgrade.Disable
}

func (c *Config) Equal(cfg precompileconfig.Config) bool {
	other, ok := cfg.(*Config)
	if !ok {
		return false
	}
	if !c.Upgrade.Equal(&other.Upgrade) {
		return false
	}
	if len(c.Collections) != len(other.Collections) {
		return false
	}
	for i := range c.Collections {
		if c.Collections[i] != other.Collections[i] {
			return false
		}
	}
	return true
}

func (c *Config) Verify(chainConfig precompileconfig.ChainConfig) error {
	for _, coll := range c.Collections {
		if coll.Collection == (common.Address{}) || coll.Admin == (common.Address{}) {
			return fmt.Errorf("collection config with zero address: %+v", coll)
		}
	}
	return nil
}

// LedgerContract implements the asset ledger precompile
type LedgerContract struct {
	ledger *Ledger
}

// Ledger returns the underlying engine, shared with the other market
// precompiles.
func (c *LedgerContract) Ledger() *Ledger {
	return c.ledger
}

// Run executes the precompile
func (c *LedgerContract) Run(
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
	case SelectorCreateCollection:
		return c.runCreateCollection(accessibleState, caller, data, suppliedGas, readOnly)
	case SelectorMint:
		return c.runMint(accessibleState, caller, data, suppliedGas, readOnly)
	case SelectorTransferFrom:
		return c.runTransferFrom(accessibleState, caller, data, suppliedGas, readOnly)
	case SelectorApprove:
		return c.runApprove(accessibleState, caller, data, suppliedGas, readOnly)
	case SelectorSetApprovalForAll:
		return c.runSetApprovalForAll(accessibleState, caller, data, suppliedGas, readOnly)
	case SelectorOwnerOf:
		return c.runOwnerOf(accessibleState, data, suppliedGas)
	case SelectorBalanceOf:
		return c.runBalanceOf(accessibleState, data, suppliedGas)
	case SelectorIsApprovedForAll:
		return c.runIsApprovedForAll(accessibleState, data, suppliedGas)
	default:
		return nil, suppliedGas, fmt.Errorf("unknown method selector: %x", selector)
	}
}

func (c *LedgerContract) runCreateCollection(
	state contract.AccessibleState,
	caller common.Address,
	input []byte,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, fmt.Errorf("cannot write in read-only mode")
	}
	if suppliedGas < GasCollectionCreate {
		return nil, 0, fmt.Errorf("out of gas")
	}
	if len(input) < 32 {
		return nil, suppliedGas - GasCollectionCreate, fmt.Errorf("input too short")
	}

	collection := common.BytesToAddress(input[12:32])
	adapter := &ledgerStateAdapter{state.GetStateDB()}
	if err := c.ledger.CreateCollection(adapter, caller, collection); err != nil {
		return nil, suppliedGas - GasCollectionCreate, err
	}
	return nil, suppliedGas - GasCollectionCreate, nil
}

func (c *LedgerContract) runMint(
	state contract.AccessibleState,
	caller common.Address,
	input []byte,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, fmt.Errorf("cannot write in read-only mode")
	}
	if suppliedGas < GasMint {
		return nil, 0, fmt.Errorf("out of gas")
	}
	if len(input) < 96 {
		return nil, suppliedGas - GasMint, fmt.Errorf("input too short")
	}

	collection := common.BytesToAddress(input[12:32])
	to := common.BytesToAddress(input[44:64])
	id := new(big.Int).SetBytes(input[64:96])

	adapter := &ledgerStateAdapter{state.GetStateDB()}
	if err := c.ledger.Mint(adapter, caller, collection, to, id); err != nil {
		return nil, suppliedGas - GasMint, err
	}
	return nil, suppliedGas - GasMint, nil
}

func (c *LedgerContract) runTransferFrom(
	state contract.AccessibleState,
	caller common.Address,
	input []byte,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, fmt.Errorf("cannot write in read-only mode")
	}
	if suppliedGas < GasTransfer {
		return nil, 0, fmt.Errorf("out of gas")
	}
	if len(input) < 128 {
		return nil, suppliedGas - GasTransfer, fmt.Errorf("input too short")
	}

	collection := common.BytesToAddress(input[12:32])
	from := common.BytesToAddress(input[44:64])
	to := common.BytesToAddress(input[76:96])
	id := new(big.Int).SetBytes(input[96:128])

	adapter := &ledgerStateAdapter{state.GetStateDB()}
	if err := c.ledger.Transfer(adapter, caller, collection, from, to, id); err != nil {
		return nil, suppliedGas - GasTransfer, err
	}
	return nil, suppliedGas - GasTransfer, nil
}

func (c *LedgerContract) runApprove(
	state contract.AccessibleState,
	caller common.Address,
	input []byte,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, fmt.Errorf("cannot write in read-only mode")
	}
	if suppliedGas < GasApprove {
		return nil, 0, fmt.Errorf("out of gas")
	}
	if len(input) < 96 {
		return nil, suppliedGas - GasApprove, fmt.Errorf("input too short")
	}

	collection := common.BytesToAddress(input[12:32])
	id := new(big.Int).SetBytes(input[32:64])
	approved := common.BytesToAddress(input[76:96])

	adapter := &ledgerStateAdapter{state.GetStateDB()}
	if err := c.ledger.Approve(adapter, caller, collection, id, approved); err != nil {
		return nil, suppliedGas - GasApprove, err
	}
	return nil, suppliedGas - GasApprove, nil
}

func (c *LedgerContract) runSetApprovalForAll(
	state contract.AccessibleState,
	caller common.Address,
	input []byte,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, fmt.Errorf("cannot write in read-only mode")
	}
	if suppliedGas < GasApprove {
		return nil, 0, fmt.Errorf("out of gas")
	}
	if len(input) < 96 {
		return nil, suppliedGas - GasApprove, fmt.Errorf("input too short")
	}

	collection := common.BytesToAddress(input[12:32])
	operator := common.BytesToAddress(input[44:64])
	approved := input[95] == 1

	adapter := &ledgerStateAdapter{state.GetStateDB()}
	c.ledger.SetApprovalForAll(adapter, caller, collection, operator, approved)
	return nil, suppliedGas - GasApprove, nil
}

func (c *LedgerContract) runOwnerOf(
	state contract.AccessibleState,
	input []byte,
	suppliedGas uint64,
) ([]byte, uint64, error) {
	if suppliedGas < GasLedgerRead {
		return nil, 0, fmt.Errorf("out of gas")
	}
	if len(input) < 64 {
		return nil, suppliedGas - GasLedgerRead, fmt.Errorf("input too short")
	}

	collection := common.BytesToAddress(input[12:32])
	id := new(big.Int).SetBytes(input[32:64])

	adapter := &ledgerStateAdapter{state.GetStateDB()}
	owner, err := c.ledger.OwnerOf(adapter, collection, id)
	if err != nil {
		return nil, suppliedGas - GasLedgerRead, err
	}
	return common.BytesToHash(owner.Bytes()).Bytes(), suppliedGas - GasLedgerRead, nil
}

func (c *LedgerContract) runBalanceOf(
	state contract.AccessibleState,
	input []byte,
	suppliedGas uint64,
) ([]byte, uint64, error) {
	if suppliedGas < GasLedgerRead {
		return nil, 0, fmt.Errorf("out of gas")
	}
	if len(input) < 64 {
		return nil, suppliedGas - GasLedgerRead, fmt.Errorf("input too short")
	}

	collection := common.BytesToAddress(input[12:32])
	owner := common.BytesToAddress(input[44:64])

	adapter := &ledgerStateAdapter{state.GetStateDB()}
	bal := c.ledger.BalanceOf(adapter, collection, owner)
	return common.BigToHash(new(big.Int).SetUint64(bal)).Bytes(), suppliedGas - GasLedgerRead, nil
}

func (c *LedgerContract) runIsApprovedForAll(
	state contract.AccessibleState,
	input []byte,
	suppliedGas uint64,
) ([]byte, uint64, error) {
	if suppliedGas < GasLedgerRead {
		return nil, 0, fmt.Errorf("out of gas")
	}
	if len(input) < 96 {
		return nil, suppliedGas - GasLedgerRead, fmt.Errorf("input too short")
	}

	collection := common.BytesToAddress(input[12:32])
	owner := common.BytesToAddress(input[44:64])
	operator := common.BytesToAddress(input[76:96])

	adapter := &ledgerStateAdapter{state.GetStateDB()}
	result := make([]byte, 32)
	if c.ledger.IsApprovedForAll(adapter, collection, owner, operator) {
		result[31] = 1
	}
	return result, suppliedGas - GasLedgerRead, nil
}

// ledgerStateAdapter adapts contract.StateDB to nft.StateDB
type ledgerStateAdapter struct {
	stateDB contract.StateDB
}

func (a *ledgerStateAdapter) GetState(addr common.Address, key common.Hash) common.Hash {
	return a.stateDB.GetState(addr, key)
}

func (a *ledgerStateAdapter) SetState(addr common.Address, key common.Hash, value common.Hash) {
	a.stateDB.SetState(addr, key, value)
}
