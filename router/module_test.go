// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package router

import (
	"encoding/binary"
	"encoding/json"
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/tracing"
	ethtypes "github.com/luxfi/geth/core/types"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/sweep/contract"
	"github.com/luxfi/sweep/nft"
	"github.com/luxfi/sweep/pool"
	"github.com/luxfi/sweep/precompileconfig"
)

// MockStateDB implements contract.StateDB interface for testing
type MockStateDB struct {
	storage  map[common.Address]map[common.Hash]common.Hash
	balances map[common.Address]*uint256.Int
	nonces   map[common.Address]uint64
	logs     []*ethtypes.Log
}

func NewMockStateDB() *MockStateDB {
	return &MockStateDB{
		storage:  make(map[common.Address]map[common.Hash]common.Hash),
		balances: make(map[common.Address]*uint256.Int),
		nonces:   make(map[common.Address]uint64),
		logs:     make([]*ethtypes.Log, 0),
	}
}

func (m *MockStateDB) GetState(addr common.Address, key common.Hash) common.Hash {
	if m.storage[addr] == nil {
		return common.Hash{}
	}
	return m.storage[addr][key]
}

func (m *MockStateDB) SetState(addr common.Address, key, value common.Hash) common.Hash {
	if m.storage[addr] == nil {
		m.storage[addr] = make(map[common.Hash]common.Hash)
	}
	prev := m.storage[addr][key]
	m.storage[addr][key] = value
	return prev
}

func (m *MockStateDB) GetBalance(addr common.Address) *uint256.Int {
	if bal, ok := m.balances[addr]; ok {
		return bal.Clone()
	}
	return uint256.NewInt(0)
}

func (m *MockStateDB) AddBalance(addr common.Address, amount *uint256.Int, _ tracing.BalanceChangeReason) uint256.Int {
	if m.balances[addr] == nil {
		m.balances[addr] = uint256.NewInt(0)
	}
	prev := m.balances[addr].Clone()
	m.balances[addr] = new(uint256.Int).Add(m.balances[addr], amount)
	return *prev
}

func (m *MockStateDB) SubBalance(addr common.Address, amount *uint256.Int, _ tracing.BalanceChangeReason) uint256.Int {
	if m.balances[addr] == nil {
		m.balances[addr] = uint256.NewInt(0)
	}
	prev := m.balances[addr].Clone()
	m.balances[addr] = new(uint256.Int).Sub(m.balances[addr], amount)
	return *prev
}

func (m *MockStateDB) SetNonce(addr common.Address, nonce uint64, _ tracing.NonceChangeReason) {
	m.nonces[addr] = nonce
}

func (m *MockStateDB) GetNonce(addr common.Address) uint64 {
	return m.nonces[addr]
}

func (m *MockStateDB) GetBalanceMultiCoin(common.Address, common.Hash) *big.Int {
	return big.NewInt(0)
}

func (m *MockStateDB) AddBalanceMultiCoin(common.Address, common.Hash, *big.Int) {}
func (m *MockStateDB) SubBalanceMultiCoin(common.Address, common.Hash, *big.Int) {}
func (m *MockStateDB) CreateAccount(common.Address)                              {}
func (m *MockStateDB) Exist(common.Address) bool                                 { return true }
func (m *MockStateDB) AddLog(log *ethtypes.Log)                                  { m.logs = append(m.logs, log) }
func (m *MockStateDB) Logs() []*ethtypes.Log                                     { return m.logs }
func (m *MockStateDB) GetPredicateStorageSlots(common.Address, int) ([]byte, bool) {
	return nil, false
}
func (m *MockStateDB) TxHash() common.Hash  { return common.Hash{} }
func (m *MockStateDB) Snapshot() int        { return 0 }
func (m *MockStateDB) RevertToSnapshot(int) {}

// mockBlockContext implements contract.BlockContext for testing
type mockBlockContext struct {
	number    *big.Int
	timestamp uint64
}

func (m *mockBlockContext) Number() *big.Int  { return m.number }
func (m *mockBlockContext) Timestamp() uint64 { return m.timestamp }

// mockAccessibleState implements contract.AccessibleState for testing
type mockAccessibleState struct {
	state *MockStateDB
	block *mockBlockContext
}

func (m *mockAccessibleState) GetStateDB() contract.StateDB           { return m.state }
func (m *mockAccessibleState) GetBlockContext() contract.BlockContext { return m.block }

func newTestState(timestamp uint64) (*mockAccessibleState, *MockStateDB) {
	mock := NewMockStateDB()
	return &mockAccessibleState{
		state: mock,
		block: &mockBlockContext{number: big.NewInt(1), timestamp: timestamp},
	}, mock
}

func packInput(t *testing.T, selector uint32, payload interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	input := make([]byte, 4, 4+len(data))
	binary.BigEndian.PutUint32(input, selector)
	return append(input, data...)
}

func TestRunInputValidation(t *testing.T) {
	as, _ := newTestState(100)

	t.Run("input too short", func(t *testing.T) {
		_, remaining, err := RouterPrecompile.Run(as, testUser, ContractAddress, []byte{0x01}, GasBuy, false)
		require.Error(t, err)
		require.Equal(t, GasBuy, remaining)
	})

	t.Run("unknown selector", func(t *testing.T) {
		input := []byte{0xff, 0x00, 0x00, 0x00}
		_, remaining, err := RouterPrecompile.Run(as, testUser, ContractAddress, input, GasBuy, false)
		require.ErrorContains(t, err, "unknown method selector")
		require.Equal(t, GasBuy, remaining)
	})

	t.Run("malformed payload", func(t *testing.T) {
		input := append([]byte{0x01, 0x00, 0x00, 0x00}, []byte("{not json")...)
		_, remaining, err := RouterPrecompile.Run(as, testUser, ContractAddress, input, GasBuy, false)
		require.Error(t, err)
		require.Equal(t, uint64(0), remaining)
	})
}

func TestRunReadOnlyRejected(t *testing.T) {
	as, _ := newTestState(100)
	for _, selector := range []uint32{SelectorBuy, SelectorSell, SelectorChange, SelectorDeposit} {
		input := packInput(t, selector, struct{}{})
		_, remaining, err := RouterPrecompile.Run(as, testUser, ContractAddress, input, GasBuy, true)
		require.ErrorContains(t, err, "read-only", "selector %x", selector)
		require.Equal(t, GasBuy, remaining)
	}
}

func TestRunOutOfGas(t *testing.T) {
	as, _ := newTestState(100)
	tests := []struct {
		selector uint32
		gas      uint64
	}{
		{SelectorBuy, GasBuy - 1},
		{SelectorSell, GasSell - 1},
		{SelectorChange, GasChange - 1},
		{SelectorDeposit, GasDeposit - 1},
	}
	for _, tt := range tests {
		input := packInput(t, tt.selector, struct{}{})
		_, remaining, err := RouterPrecompile.Run(as, testUser, ContractAddress, input, tt.gas, false)
		require.ErrorContains(t, err, "out of gas", "selector %x", tt.selector)
		require.Equal(t, uint64(0), remaining)
	}
}

func TestRunBuy(t *testing.T) {
	as, mock := newTestState(100)
	adapter := &routerStateAdapter{mock}
	ledger := nft.LedgerPrecompile.Ledger()
	curve := pool.CurvePrecompile.Engine()

	require.NoError(t, ledger.CreateCollection(adapter, testAdmin, testCollection))
	p, err := curve.Create(adapter, testAdmin, testCollection, 0, common.Hash{}, false, nil, nil, 0)
	require.NoError(t, err)
	for i := int64(1); i <= 10; i++ {
		require.NoError(t, ledger.Mint(adapter, testAdmin, testCollection, p, big.NewInt(i)))
	}
	adapter.AddBalance(p, uint256.NewInt(1000))
	adapter.AddBalance(testUser, uint256.NewInt(300))

	input := packInput(t, SelectorBuy, &BuyInput{
		Entries: []BuyEntry{{
			Pool:         p,
			PoolKind:     PoolKindPublic,
			Collection:   testCollection,
			Ids:          ids(1),
			ValueOffered: big.NewInt(200),
		}},
		Value: big.NewInt(300),
	})

	ret, remaining, err := RouterPrecompile.Run(as, testUser, ContractAddress, input, 100_000, false)
	require.NoError(t, err)
	require.Equal(t, uint64(20_000), remaining)

	var out AmountOutput
	require.NoError(t, json.Unmarshal(ret, &out))
	require.Equal(t, int64(112), out.Amount.Int64())

	owner, err := ledger.OwnerOf(adapter, testCollection, big.NewInt(1))
	require.NoError(t, err)
	require.Equal(t, testUser, owner)
	require.Equal(t, uint64(188), mock.GetBalance(testUser).Uint64())
}

func TestRunDeposit(t *testing.T) {
	as, mock := newTestState(100)
	adapter := &routerStateAdapter{mock}
	ledger := nft.LedgerPrecompile.Ledger()
	weighted := pool.WeightedPrecompile.Engine()

	require.NoError(t, ledger.CreateCollection(adapter, testAdmin, testCollection))
	vv := big.NewInt(1000)
	vw := new(big.Int).Mul(big.NewInt(5), pool.WAD)
	p, err := weighted.Create(adapter, testAdmin, testCollection, 0, common.Hash{}, false, vv, vw, nil, nil, 0)
	require.NoError(t, err)

	id := big.NewInt(6)
	require.NoError(t, ledger.Mint(adapter, testAdmin, testCollection, testUser, id))
	ledger.SetApprovalForAll(adapter, testUser, testCollection, routerAddr, true)
	adapter.AddBalance(testUser, uint256.NewInt(100))

	input := packInput(t, SelectorDeposit, &DepositInput{
		Pool:       p,
		Collection: testCollection,
		Ids:        []*big.Int{id},
		Value:      big.NewInt(100),
		MinPrice:   big.NewInt(150),
		MaxPrice:   big.NewInt(250),
	})

	ret, remaining, err := RouterPrecompile.Run(as, testUser, ContractAddress, input, GasDeposit, false)
	require.NoError(t, err)
	require.Nil(t, ret)
	require.Equal(t, uint64(0), remaining)

	owner, err := ledger.OwnerOf(adapter, testCollection, id)
	require.NoError(t, err)
	require.Equal(t, p, owner)
	require.Equal(t, uint64(100), mock.GetBalance(p).Uint64())
	require.Equal(t, uint64(0), mock.GetBalance(testUser).Uint64())
}

func TestRunSellDeadlineFromBlockTime(t *testing.T) {
	as, _ := newTestState(50)
	input := packInput(t, SelectorSell, &SellInput{Deadline: 49})
	_, _, err := RouterPrecompile.Run(as, testUser, ContractAddress, input, GasSell, false)
	require.ErrorIs(t, err, ErrDeadlineExpired)
}

func TestConfig(t *testing.T) {
	ts := uint64(1000)
	config := &Config{Upgrade: precompileconfig.Upgrade{BlockTimestamp: &ts}}

	require.Equal(t, ConfigKey, config.Key())
	require.Equal(t, ts, *config.Timestamp())
	require.False(t, config.IsDisabled())
	require.NoError(t, config.Verify(nil))

	t.Run("equal", func(t *testing.T) {
		same := &Config{Upgrade: precompileconfig.Upgrade{BlockTimestamp: &ts}}
		require.True(t, config.Equal(same))

		other := uint64(2000)
		require.False(t, config.Equal(&Config{Upgrade: precompileconfig.Upgrade{BlockTimestamp: &other}}))
		require.False(t, config.Equal(nil))
	})

	t.Run("disable", func(t *testing.T) {
		disabled := &Config{Upgrade: precompileconfig.Upgrade{BlockTimestamp: &ts, Disable: true}}
		require.True(t, disabled.IsDisabled())
		require.False(t, config.Equal(disabled))
	})

	t.Run("configure accepts own config type", func(t *testing.T) {
		c := &configurator{}
		require.IsType(t, &Config{}, c.MakeConfig())
		require.NoError(t, c.Configure(nil, &Config{}, NewMockStateDB(), nil))
		require.Error(t, c.Configure(nil, nil, NewMockStateDB(), nil))
	})
}
