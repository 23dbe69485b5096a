// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package registry

import (
	"fmt"

	"github.com/luxfi/geth/common"
)

// ============================================================================
// NFT MARKET PRECOMPILE ADDRESSES - Aligned with LP Numbering (LP-0099)
// ============================================================================
//
// All Lux-native precompiles use trailing-significant 20-byte addresses:
//   Format: 0x0000000000000000000000000000000000PCII
//
// The address ends with the 16-bit LP number (PCII) for easy identification.
// The selector encodes:
//   0x 0000...0000 P C II
//                  │ │ └┴─ Item/function (8 bits, 256 items per family×chain)
//                  │ └──── Chain slot    (4 bits)
//                  └────── Family page   (4 bits, aligned with LP-Pxxx)
//
// The NFT market family lives on page 9 (LP-9xxx, DEX/Markets), items
// 0x00-0xFF of the LP-91xx block:
//
//   LP-9100 SweepRouter     batch buy/sell/change/deposit routing
//   LP-9110 CurvePool       curve-priced NFT pools (public variant)
//   LP-9120 WeightedPool    weighted allow-list NFT pools (private variant)
//   LP-9130 AssetLedger     NFT ownership and approvals
//   LP-9140 RoyaltyRegistry royalty lookup targets and fee info

const (
	// NFT market family (LP-9100 series)
	SweepRouter     = "0x0000000000000000000000000000000000009100" // LP-9100 batch execution router
	CurvePool       = "0x0000000000000000000000000000000000009110" // LP-9110 public pool engine + factory
	WeightedPool    = "0x0000000000000000000000000000000000009120" // LP-9120 private pool engine + factory
	AssetLedger     = "0x0000000000000000000000000000000000009130" // LP-9130 NFT ownership ledger
	RoyaltyRegistry = "0x0000000000000000000000000000000000009140" // LP-9140 royalty lookup registry

	// Adjacent LP-9010 series (fungible DEX) is assigned elsewhere; the
	// family here must stay within LP-9100-LP-91FF.
)

// PrecompileAddress calculates address from (P, C, II) nibbles
// P = Family page (aligned with LP-Pxxx), C = Chain slot, II = Item
// Returns trailing-significant format: 0x0000000000000000000000000000000000PCII
func PrecompileAddress(p, c, ii uint8) common.Address {
	if p > 15 || c > 15 {
		return common.Address{}
	}
	selector := fmt.Sprintf("%x%x%02x", p, c, ii)
	addr := "0000000000000000000000000000000000" + selector
	return common.HexToAddress("0x" + addr)
}

// ChainSlot returns the C-nibble for a chain name
func ChainSlot(chain string) uint8 {
	switch chain {
	case "P", "p":
		return 0
	case "X", "x":
		return 1
	case "C", "c":
		return 2
	case "Zoo", "zoo":
		return 8
	default:
		return 0xFF
	}
}

// ChainPrecompiles defines which market precompiles are enabled per chain
var ChainPrecompiles = map[string][]string{
	// C-Chain (main EVM) - full family
	"C": {
		SweepRouter, CurvePool, WeightedPool, AssetLedger, RoyaltyRegistry,
	},

	// Zoo - NFT trading chain, same addresses
	"Zoo": {
		SweepRouter, CurvePool, WeightedPool, AssetLedger, RoyaltyRegistry,
	},
}

// PrecompileInfo contains metadata about a precompile
type PrecompileInfo struct {
	Address     string
	Name        string
	Description string
	GasBase     uint64
	Chains      []string
	LPRange     string // LP-Pxxx range alignment
}

// AllPrecompiles lists the family's precompiles with their metadata
var AllPrecompiles = []PrecompileInfo{
	{SweepRouter, "SWEEP_ROUTER", "Batch NFT buy/sell/change/deposit routing", 25000, []string{"C", "Zoo"}, "LP-9100"},
	{CurvePool, "CURVE_POOL", "Curve-priced NFT pools (public variant)", 50000, []string{"C", "Zoo"}, "LP-9110"},
	{WeightedPool, "WEIGHTED_POOL", "Weighted allow-list NFT pools (private variant)", 50000, []string{"C", "Zoo"}, "LP-9120"},
	{AssetLedger, "ASSET_LEDGER", "NFT ownership and transfer approvals", 10000, []string{"C", "Zoo"}, "LP-9130"},
	{RoyaltyRegistry, "ROYALTY_REGISTRY", "Royalty lookup targets and fee info", 10000, []string{"C", "Zoo"}, "LP-9140"},
}

// GetPrecompileAddress returns the address for a precompile by name
func GetPrecompileAddress(name string) common.Address {
	for _, p := range AllPrecompiles {
		if p.Name == name {
			return common.HexToAddress(p.Address)
		}
	}
	return common.Address{}
}

// GetChainPrecompiles returns all precompile addresses for a chain
func GetChainPrecompiles(chainLetter string) []common.Address {
	addrs, ok := ChainPrecompiles[chainLetter]
	if !ok {
		return nil
	}

	result := make([]common.Address, len(addrs))
	for i, addr := range addrs {
		result[i] = common.HexToAddress(addr)
	}
	return result
}

// IsPrecompileEnabled checks if a precompile is enabled for a chain
func IsPrecompileEnabled(chainLetter string, precompileAddr common.Address) bool {
	addrs := ChainPrecompiles[chainLetter]

	for _, addr := range addrs {
		if common.HexToAddress(addr) == precompileAddr {
			return true
		}
	}
	return false
}
