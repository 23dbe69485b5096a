// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package royalty

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/sweep/contract"
	"github.com/luxfi/sweep/modules"
	"github.com/luxfi/sweep/nft"
	"github.com/luxfi/sweep/precompileconfig"
)

var _ contract.Configurator = (*configurator)(nil)
var _ contract.StatefulPrecompiledContract = (*RegistryContract)(nil)

// ConfigKey is the key used in json config files to specify this precompile config.
const ConfigKey = "royaltyRegistryConfig"

// ContractAddress is the royalty registry precompile address (LP-9140)
var ContractAddress = common.HexToAddress(RegistryAddress)

// RegistryPrecompile is the singleton instance
var RegistryPrecompile = &RegistryContract{
	registry: NewRegistry(nft.LedgerPrecompile.Ledger()),
}

// Module is the precompile module (RoyaltyRegistry at LP-9140)
var Module = modules.Module{
	ConfigKey:    ConfigKey,
	Address:      ContractAddress,
	Contract:     RegistryPrecompile,
	Configurator: &configurator{},
}

// Method selectors for the royalty registry
const (
	SelectorSetLookupTarget     uint32 = 0x01000000 // setLookupTarget(address,address)
	SelectorSetRoyaltyInfo      uint32 = 0x02000000 // setRoyaltyInfo(address,address,uint256)
	SelectorClearRoyaltyInfo    uint32 = 0x03000000 // clearRoyaltyInfo(address)
	SelectorLookupTarget        uint32 = 0x04000000 // lookupTarget(address)
	SelectorRoyaltyInfo         uint32 = 0x05000000 // royaltyInfo(address,uint256,uint256)
	SelectorSupportsRoyaltyInfo uint32 = 0x06000000 // supportsRoyaltyInfo(address)
)

// Gas costs for registry operations
const (
	GasRoyaltySet   = uint64(20_000) // capability + recipient + bps slots
	GasRoyaltyClear = uint64(10_000) // three slot clears
	GasRoyaltyRead  = uint64(3_000)  // up to three slot reads
)

type configurator struct{}

func init() {
	if err := modules.RegisterModule(Module); err != nil {
		panic(err)
	}
}

// RoyaltyConfig pre-configures a royalty target at activation.
type RoyaltyConfig struct {
	Target    common.Address `json:"target"`
	Recipient common.Address `json:"recipient"`
	FeeBps    uint64         `json:"feeBps"`
}

// Config implements the precompile config for the royalty registry
type Config struct {
	precompileconfig.Upgrade
	// Royalties configured at activation time.
	Royalties []RoyaltyConfig `json:"royalties,omitempty"`
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

	adapter := &registryStateAdapter{state}
	for _, rc := range config.Royalties {
		// Self-configuration is always authorized.
		if err := RegistryPrecompile.registry.SetRoyaltyInfo(adapter, rc.Target, rc.Target, rc.Recipient, rc.FeeBps); err != nil {
			return fmt.Errorf("configure royalty target %s: %w", rc.Target, err)
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
	if len(c.Royalties) != len(other.Royalties) {
		return false
	}
	for i := range c.Royalties {
		if c.Royalties[i] != other.Royalties[i] {
			return false
		}
	}
	return true
}

func (c *Config) Verify(chainConfig precompileconfig.ChainConfig) error {
	for _, rc := range c.Royalties {
		if rc.Target == (common.Address{}) || rc.Recipient == (common.Address{}) {
			return fmt.Errorf("royalty config with zero address: %+v", rc)
		}
	}
	return nil
}

// RegistryContract implements the royalty registry precompile
type RegistryContract struct {
	registry *Registry
}

// Registry returns the underlying engine, shared with the sweep router.
func (c *RegistryContract) Registry() *Registry {
	return c.registry
}

// Run executes the precompile
func (c *RegistryContract) Run(
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
	case SelectorSetLookupTarget:
		return c.runSetLookupTarget(accessibleState, caller, data, suppliedGas, readOnly)
	case SelectorSetRoyaltyInfo:
		return c.runSetRoyaltyInfo(accessibleState, caller, data, suppliedGas, readOnly)
	case SelectorClearRoyaltyInfo:
		return c.runClearRoyaltyInfo(accessibleState, caller, data, suppliedGas, readOnly)
	case SelectorLookupTarget:
		return c.runLookupTarget(accessibleState, data, suppliedGas)
	case SelectorRoyaltyInfo:
		return c.runRoyaltyInfo(accessibleState, data, suppliedGas)
	case SelectorSupportsRoyaltyInfo:
		return c.runSupportsRoyaltyInfo(accessibleState, data, suppliedGas)
	default:
		return nil, suppliedGas, fmt.Errorf("unknown method selector: %x", selector)
	}
}

func (c *RegistryContract) runSetLookupTarget(
	state contract.AccessibleState,
	caller common.Address,
	input []byte,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, fmt.Errorf("cannot write in read-only mode")
	}
	if suppliedGas < GasRoyaltySet {
		return nil, 0, fmt.Errorf("out of gas")
	}
	if len(input) < 64 {
		return nil, suppliedGas - GasRoyaltySet, fmt.Errorf("input too short")
	}

	collection := common.BytesToAddress(input[12:32])
	target := common.BytesToAddress(input[44:64])

	adapter := &registryStateAdapter{state.GetStateDB()}
	if err := c.registry.SetLookupTarget(adapter, caller, collection, target); err != nil {
		return nil, suppliedGas - GasRoyaltySet, err
	}
	return nil, suppliedGas - GasRoyaltySet, nil
}

func (c *RegistryContract) runSetRoyaltyInfo(
	state contract.AccessibleState,
	caller common.Address,
	input []byte,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, fmt.Errorf("cannot write in read-only mode")
	}
	if suppliedGas < GasRoyaltySet {
		return nil, 0, fmt.Errorf("out of gas")
	}
	if len(input) < 96 {
		return nil, suppliedGas - GasRoyaltySet, fmt.Errorf("input too short")
	}

	target := common.BytesToAddress(input[12:32])
	recipient := common.BytesToAddress(input[44:64])
	feeBps := new(big.Int).SetBytes(input[64:96])
	if !feeBps.IsUint64() {
		return nil, suppliedGas - GasRoyaltySet, fmt.Errorf("fee bps out of range")
	}

	adapter := &registryStateAdapter{state.GetStateDB()}
	if err := c.registry.SetRoyaltyInfo(adapter, caller, target, recipient, feeBps.Uint64()); err != nil {
		return nil, suppliedGas - GasRoyaltySet, err
	}
	return nil, suppliedGas - GasRoyaltySet, nil
}

func (c *RegistryContract) runClearRoyaltyInfo(
	state contract.AccessibleState,
	caller common.Address,
	input []byte,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, fmt.Errorf("cannot write in read-only mode")
	}
	if suppliedGas < GasRoyaltyClear {
		return nil, 0, fmt.Errorf("out of gas")
	}
	if len(input) < 32 {
		return nil, suppliedGas - GasRoyaltyClear, fmt.Errorf("input too short")
	}

	target := common.BytesToAddress(input[12:32])
	adapter := &registryStateAdapter{state.GetStateDB()}
	if err := c.registry.ClearRoyaltyInfo(adapter, caller, target); err != nil {
		return nil, suppliedGas - GasRoyaltyClear, err
	}
	return nil, suppliedGas - GasRoyaltyClear, nil
}

func (c *RegistryContract) runLookupTarget(
	state contract.AccessibleState,
	input []byte,
	suppliedGas uint64,
) ([]byte, uint64, error) {
	if suppliedGas < GasRoyaltyRead {
		return nil, 0, fmt.Errorf("out of gas")
	}
	if len(input) < 32 {
		return nil, suppliedGas - GasRoyaltyRead, fmt.Errorf("input too short")
	}

	collection := common.BytesToAddress(input[12:32])
	adapter := &registryStateAdapter{state.GetStateDB()}
	target := c.registry.LookupTarget(adapter, collection)
	return common.BytesToHash(target.Bytes()).Bytes(), suppliedGas - GasRoyaltyRead, nil
}

func (c *RegistryContract) runRoyaltyInfo(
	state contract.AccessibleState,
	input []byte,
	suppliedGas uint64,
) ([]byte, uint64, error) {
	if suppliedGas < GasRoyaltyRead {
		return nil, 0, fmt.Errorf("out of gas")
	}
	if len(input) < 96 {
		return nil, suppliedGas - GasRoyaltyRead, fmt.Errorf("input too short")
	}

	target := common.BytesToAddress(input[12:32])
	id := new(big.Int).SetBytes(input[32:64])
	salePrice := new(big.Int).SetBytes(input[64:96])

	adapter := &registryStateAdapter{state.GetStateDB()}
	recipient, fee, err := c.registry.RoyaltyInfo(adapter, target, id, salePrice)
	if err != nil {
		return nil, suppliedGas - GasRoyaltyRead, err
	}

	ret := make([]byte, 64)
	copy(ret[:32], common.BytesToHash(recipient.Bytes()).Bytes())
	copy(ret[32:], common.BigToHash(fee).Bytes())
	return ret, suppliedGas - GasRoyaltyRead, nil
}

func (c *RegistryContract) runSupportsRoyaltyInfo(
	state contract.AccessibleState,
	input []byte,
	suppliedGas uint64,
) ([]byte, uint64, error) {
	if suppliedGas < GasRoyaltyRead {
		return nil, 0, fmt.Errorf("out of gas")
	}
	if len(input) < 32 {
		return nil, suppliedGas - GasRoyaltyRead, fmt.Errorf("input too short")
	}

	target := common.BytesToAddress(input[12:32])
	adapter := &registryStateAdapter{state.GetStateDB()}
	result := make([]byte, 32)
	if c.registry.SupportsRoyaltyInfo(adapter, target) {
		result[31] = 1
	}
	return result, suppliedGas - GasRoyaltyRead, nil
}

// registryStateAdapter adapts contract.StateDB to royalty.StateDB
type registryStateAdapter struct {
	stateDB contract.StateDB
}

func (a *registryStateAdapter) GetState(addr common.Address, key common.Hash) common.Hash {
	return a.stateDB.GetState(addr, key)
}

func (a *registryStateAdapter) SetState(addr common.Address, key common.Hash, value common.Hash) {
	a.stateDB.SetState(addr, key, value)
}
