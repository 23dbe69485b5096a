// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package royalty

import (
	"math/big"
	"testing"

	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/sweep/nft"
)

// mockStateDB implements the registry StateDB interface for testing
type mockStateDB struct {
	storage map[common.Address]map[common.Hash]common.Hash
}

func newMockStateDB() *mockStateDB {
	return &mockStateDB{storage: make(map[common.Address]map[common.Hash]common.Hash)}
}

func (m *mockStateDB) GetState(addr common.Address, key common.Hash) common.Hash {
	if m.storage[addr] == nil {
		return common.Hash{}
	}
	return m.storage[addr][key]
}

func (m *mockStateDB) SetState(addr common.Address, key common.Hash, value common.Hash) {
	if m.storage[addr] == nil {
		m.storage[addr] = make(map[common.Hash]common.Hash)
	}
	m.storage[addr][key] = value
}

var (
	testAdmin      = common.HexToAddress("0x1000000000000000000000000000000000000001")
	testStranger   = common.HexToAddress("0x2000000000000000000000000000000000000002")
	testRecipient  = common.HexToAddress("0x3000000000000000000000000000000000000003")
	testCollection = common.HexToAddress("0xc000000000000000000000000000000000000001")
)

func newTestRegistry(t *testing.T) (*Registry, *mockStateDB) {
	t.Helper()
	ledger := nft.NewLedger()
	state := newMockStateDB()
	require.NoError(t, ledger.CreateCollection(state, testAdmin, testCollection))
	return NewRegistry(ledger), state
}

func TestLookupTargetDefaultsToCollection(t *testing.T) {
	registry, state := newTestRegistry(t)
	require.Equal(t, testCollection, registry.LookupTarget(state, testCollection))
}

func TestSetLookupTarget(t *testing.T) {
	registry, state := newTestRegistry(t)
	override := common.HexToAddress("0x5000000000000000000000000000000000000005")

	t.Run("requires collection admin", func(t *testing.T) {
		err := registry.SetLookupTarget(state, testStranger, testCollection, override)
		require.ErrorIs(t, err, ErrNotAuthorized)
	})

	require.NoError(t, registry.SetLookupTarget(state, testAdmin, testCollection, override))
	require.Equal(t, override, registry.LookupTarget(state, testCollection))

	t.Run("zero target clears the override", func(t *testing.T) {
		require.NoError(t, registry.SetLookupTarget(state, testAdmin, testCollection, common.Address{}))
		require.Equal(t, testCollection, registry.LookupTarget(state, testCollection))
	})
}

func TestSetRoyaltyInfo(t *testing.T) {
	registry, state := newTestRegistry(t)

	t.Run("unauthorized caller fails", func(t *testing.T) {
		err := registry.SetRoyaltyInfo(state, testStranger, testCollection, testRecipient, 500)
		require.ErrorIs(t, err, ErrNotAuthorized)
	})

	t.Run("zero recipient fails", func(t *testing.T) {
		err := registry.SetRoyaltyInfo(state, testAdmin, testCollection, common.Address{}, 500)
		require.ErrorIs(t, err, ErrZeroRecipient)
	})

	require.False(t, registry.SupportsRoyaltyInfo(state, testCollection))
	require.NoError(t, registry.SetRoyaltyInfo(state, testAdmin, testCollection, testRecipient, 500))
	require.True(t, registry.SupportsRoyaltyInfo(state, testCollection))

	recipient, fee, err := registry.RoyaltyInfo(state, testCollection, big.NewInt(1), big.NewInt(1000))
	require.NoError(t, err)
	require.Equal(t, testRecipient, recipient)
	require.Equal(t, int64(50), fee.Int64())

	t.Run("a target may configure itself", func(t *testing.T) {
		target := common.HexToAddress("0x6000000000000000000000000000000000000006")
		require.NoError(t, registry.SetRoyaltyInfo(state, target, target, testRecipient, 250))
		require.True(t, registry.SupportsRoyaltyInfo(state, target))
	})
}

func TestRoyaltyInfoWithoutCapability(t *testing.T) {
	registry, state := newTestRegistry(t)

	_, _, err := registry.RoyaltyInfo(state, testCollection, big.NewInt(1), big.NewInt(1000))
	require.ErrorIs(t, err, ErrNoCapability)
}

func TestClearRoyaltyInfo(t *testing.T) {
	registry, state := newTestRegistry(t)
	require.NoError(t, registry.SetRoyaltyInfo(state, testAdmin, testCollection, testRecipient, 500))

	t.Run("unauthorized caller fails", func(t *testing.T) {
		err := registry.ClearRoyaltyInfo(state, testStranger, testCollection)
		require.ErrorIs(t, err, ErrNotAuthorized)
	})

	require.NoError(t, registry.ClearRoyaltyInfo(state, testAdmin, testCollection))
	require.False(t, registry.SupportsRoyaltyInfo(state, testCollection))
	_, _, err := registry.RoyaltyInfo(state, testCollection, big.NewInt(1), big.NewInt(1000))
	require.ErrorIs(t, err, ErrNoCapability)
}

func TestQuote(t *testing.T) {
	registry, state := newTestRegistry(t)

	t.Run("zero quote without capability", func(t *testing.T) {
		recipient, fee, err := registry.Quote(state, testCollection, big.NewInt(1), big.NewInt(1000))
		require.NoError(t, err)
		require.Equal(t, common.Address{}, recipient)
		require.Equal(t, int64(0), fee.Int64())
	})

	require.NoError(t, registry.SetRoyaltyInfo(state, testAdmin, testCollection, testRecipient, 500))

	tests := []struct {
		name      string
		salePrice int64
		fee       int64
	}{
		{"5% of 1000", 1000, 50},
		{"5% of 100", 100, 5},
		{"rounds down", 19, 0},
		{"zero sale price", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recipient, fee, err := registry.Quote(state, testCollection, big.NewInt(1), big.NewInt(tt.salePrice))
			require.NoError(t, err)
			require.Equal(t, testRecipient, recipient)
			require.Equal(t, tt.fee, fee.Int64())
		})
	}
}

func TestQuoteFollowsLookupOverride(t *testing.T) {
	registry, state := newTestRegistry(t)
	target := common.HexToAddress("0x6000000000000000000000000000000000000006")

	require.NoError(t, registry.SetLookupTarget(state, testAdmin, testCollection, target))
	require.NoError(t, registry.SetRoyaltyInfo(state, target, target, testRecipient, 1000))

	recipient, fee, err := registry.Quote(state, testCollection, big.NewInt(1), big.NewInt(500))
	require.NoError(t, err)
	require.Equal(t, testRecipient, recipient)
	require.Equal(t, int64(50), fee.Int64())
}

// The registry does not cap the configured rate; a rate above 100% is
// returned as quoted and the consumer enforces its own bound.
func TestQuoteAboveSalePrice(t *testing.T) {
	registry, state := newTestRegistry(t)
	require.NoError(t, registry.SetRoyaltyInfo(state, testAdmin, testCollection, testRecipient, 20_000))

	_, fee, err := registry.Quote(state, testCollection, big.NewInt(1), big.NewInt(100))
	require.NoError(t, err)
	require.Equal(t, int64(200), fee.Int64())
}
