// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

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
	"github.com/luxfi/sweep/oracle"
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

func TestCurveContractRun(t *testing.T) {
	as, mock := newTestState(100)
	adapter := &poolStateAdapter{mock}
	ledger := nft.LedgerPrecompile.Ledger()
	require.NoError(t, ledger.CreateCollection(adapter, testAdmin, testCollection))

	input := packInput(t, SelectorCurveCreate, &CreateCurveInput{Collection: testCollection})
	ret, remaining, err := CurvePrecompile.Run(as, testAdmin, CurveContractAddress, input, 50_000, false)
	require.NoError(t, err)
	require.Equal(t, uint64(10_000), remaining)

	var created CreateOutput
	require.NoError(t, json.Unmarshal(ret, &created))
	require.Equal(t, DerivePoolAddress(curvePrefix, testAdmin, testCollection, 0), created.Pool)

	for i := int64(1); i <= 10; i++ {
		require.NoError(t, ledger.Mint(adapter, testAdmin, testCollection, created.Pool, big.NewInt(i)))
	}
	adapter.AddBalance(created.Pool, uint256.NewInt(1000))

	t.Run("quotes work in read-only mode", func(t *testing.T) {
		input := packInput(t, SelectorCurveBuyQuote, &QuoteInput{Pool: created.Pool, Count: 1})
		ret, remaining, err := CurvePrecompile.Run(as, testBuyer, CurveContractAddress, input, GasPoolQuote, true)
		require.NoError(t, err)
		require.Equal(t, uint64(0), remaining)

		var out ValueOutput
		require.NoError(t, json.Unmarshal(ret, &out))
		require.Equal(t, int64(112), out.Value.Int64())
	})

	t.Run("exchange", func(t *testing.T) {
		adapter.AddBalance(testBuyer, uint256.NewInt(200))
		input := packInput(t, SelectorExchangeForAssets, &ExchangeForAssetsInput{
			Pool:         created.Pool,
			Ids:          []*big.Int{big.NewInt(1)},
			ValueOffered: big.NewInt(200),
		})
		ret, _, err := CurvePrecompile.Run(as, testBuyer, CurveContractAddress, input, GasExchange, false)
		require.NoError(t, err)

		var out ValueOutput
		require.NoError(t, json.Unmarshal(ret, &out))
		require.Equal(t, int64(112), out.Value.Int64())

		owner, err := ledger.OwnerOf(adapter, testCollection, big.NewInt(1))
		require.NoError(t, err)
		require.Equal(t, testBuyer, owner)
	})

	t.Run("seeded create", func(t *testing.T) {
		seed := big.NewInt(50)
		require.NoError(t, ledger.Mint(adapter, testAdmin, testCollection, testAdmin, seed))
		adapter.AddBalance(testAdmin, uint256.NewInt(300))

		input := packInput(t, SelectorCurveCreate, &CreateCurveInput{
			Collection: testCollection,
			SeedIds:    []*big.Int{seed},
			SeedValue:  big.NewInt(150),
			Nonce:      1,
		})
		ret, _, err := CurvePrecompile.Run(as, testAdmin, CurveContractAddress, input, GasPoolCreate, false)
		require.NoError(t, err)

		var out CreateOutput
		require.NoError(t, json.Unmarshal(ret, &out))
		owner, err := ledger.OwnerOf(adapter, testCollection, seed)
		require.NoError(t, err)
		require.Equal(t, out.Pool, owner)
		require.Equal(t, uint64(150), adapter.GetBalance(out.Pool).Uint64())
	})
}

func TestWeightedContractRun(t *testing.T) {
	as, mock := newTestState(100)
	adapter := &poolStateAdapter{mock}
	ledger := nft.LedgerPrecompile.Ledger()
	require.NoError(t, ledger.CreateCollection(adapter, testAdmin, testCollection))

	input := packInput(t, SelectorWeightedCreate, &CreateWeightedInput{
		Collection:    testCollection,
		VirtualValue:  big.NewInt(1000),
		VirtualWeight: new(big.Int).Mul(big.NewInt(5), WAD),
	})
	ret, _, err := WeightedPrecompile.Run(as, testAdmin, WeightedContractAddress, input, GasPoolCreate, false)
	require.NoError(t, err)

	var created CreateOutput
	require.NoError(t, json.Unmarshal(ret, &created))

	t.Run("current price in read-only mode", func(t *testing.T) {
		input := packInput(t, SelectorCurrentPrice, &PriceInput{Pool: created.Pool})
		ret, _, err := WeightedPrecompile.Run(as, testBuyer, WeightedContractAddress, input, GasPoolQuote, true)
		require.NoError(t, err)

		var out ValueOutput
		require.NoError(t, json.Unmarshal(ret, &out))
		require.Equal(t, int64(200), out.Value.Int64())
	})

	t.Run("deposit", func(t *testing.T) {
		id := big.NewInt(6)
		require.NoError(t, ledger.Mint(adapter, testAdmin, testCollection, testSeller, id))
		ledger.SetApprovalForAll(adapter, testSeller, testCollection, created.Pool, true)
		adapter.AddBalance(testSeller, uint256.NewInt(100))

		input := packInput(t, SelectorWeightedDeposit, &WeightedDepositInput{
			Pool:  created.Pool,
			Ids:   []*big.Int{id},
			Value: big.NewInt(100),
		})
		ret, remaining, err := WeightedPrecompile.Run(as, testSeller, WeightedContractAddress, input, GasPoolDeposit, false)
		require.NoError(t, err)
		require.Nil(t, ret)
		require.Equal(t, uint64(0), remaining)
		require.Equal(t, uint64(100), mock.GetBalance(created.Pool).Uint64())
	})
}

func TestPoolRunGuards(t *testing.T) {
	as, _ := newTestState(100)

	t.Run("input too short", func(t *testing.T) {
		_, remaining, err := CurvePrecompile.Run(as, testBuyer, CurveContractAddress, []byte{0x01}, GasExchange, false)
		require.Error(t, err)
		require.Equal(t, GasExchange, remaining)
	})

	t.Run("unknown selector", func(t *testing.T) {
		input := []byte{0x09, 0x00, 0x00, 0x00}
		_, _, err := CurvePrecompile.Run(as, testBuyer, CurveContractAddress, input, GasExchange, false)
		require.ErrorContains(t, err, "unknown method selector")
		_, _, err = WeightedPrecompile.Run(as, testBuyer, WeightedContractAddress, input, GasExchange, false)
		require.ErrorContains(t, err, "unknown method selector")
	})

	t.Run("writes rejected in read-only mode", func(t *testing.T) {
		input := packInput(t, SelectorExchangeForAssets, struct{}{})
		_, _, err := CurvePrecompile.Run(as, testBuyer, CurveContractAddress, input, GasExchange, true)
		require.ErrorContains(t, err, "read-only")

		input = packInput(t, SelectorWeightedBuy, struct{}{})
		_, _, err = WeightedPrecompile.Run(as, testBuyer, WeightedContractAddress, input, GasExchange, true)
		require.ErrorContains(t, err, "read-only")
	})

	t.Run("out of gas", func(t *testing.T) {
		input := packInput(t, SelectorCurveCreate, struct{}{})
		_, remaining, err := CurvePrecompile.Run(as, testBuyer, CurveContractAddress, input, GasPoolCreate-1, false)
		require.ErrorContains(t, err, "out of gas")
		require.Equal(t, uint64(0), remaining)
	})
}

func TestPoolConfigs(t *testing.T) {
	signer := common.HexToAddress("0x5000000000000000000000000000000000000005")
	ts := uint64(1000)

	t.Run("keys", func(t *testing.T) {
		require.Equal(t, CurveConfigKey, (&CurveConfig{}).Key())
		require.Equal(t, WeightedConfigKey, (&WeightedConfig{}).Key())
	})

	t.Run("equal tracks signers", func(t *testing.T) {
		a := &CurveConfig{Upgrade: precompileconfig.Upgrade{BlockTimestamp: &ts}, OracleSigners: []common.Address{signer}}
		b := &CurveConfig{Upgrade: precompileconfig.Upgrade{BlockTimestamp: &ts}, OracleSigners: []common.Address{signer}}
		require.True(t, a.Equal(b))

		b.OracleSigners = nil
		require.False(t, a.Equal(b))
		require.False(t, a.Equal(&WeightedConfig{}))
	})

	t.Run("verify rejects zero signer", func(t *testing.T) {
		bad := &WeightedConfig{OracleSigners: []common.Address{{}}}
		require.Error(t, bad.Verify(nil))
		require.NoError(t, (&WeightedConfig{OracleSigners: []common.Address{signer}}).Verify(nil))
	})

	t.Run("configure registers signers", func(t *testing.T) {
		defer oracle.Default().RemoveSigner(signer)
		c := &curveConfigurator{}
		require.IsType(t, &CurveConfig{}, c.MakeConfig())
		require.NoError(t, c.Configure(nil, &CurveConfig{OracleSigners: []common.Address{signer}}, NewMockStateDB(), nil))
		require.True(t, oracle.Default().IsSigner(signer))

		require.Error(t, c.Configure(nil, &WeightedConfig{}, NewMockStateDB(), nil))
	})
}
