// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package contract defines the framework shared by every stateful
// precompile in this repository: the state access surface, the execution
// environment handed to Run, and the configurator hooks used to activate a
// precompile at a network upgrade.
package contract

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/tracing"
	ethtypes "github.com/luxfi/geth/core/types"

	"github.com/luxfi/sweep/precompileconfig"
)

var (
	ErrOutOfGas          = errors.New("out of gas")
	ErrWriteProtection   = errors.New("write protection")
	ErrExecutionReverted = errors.New("execution reverted")
)

// StateDB is the EVM state surface precompiles operate on. It mirrors the
// methods of the node's state database; mocks in tests implement the same
// set.
type StateDB interface {
	GetState(addr common.Address, key common.Hash) common.Hash
	SetState(addr common.Address, key common.Hash, value common.Hash) common.Hash

	GetBalance(addr common.Address) *uint256.Int
	AddBalance(addr common.Address, amount *uint256.Int, reason tracing.BalanceChangeReason) uint256.Int
	SubBalance(addr common.Address, amount *uint256.Int, reason tracing.BalanceChangeReason) uint256.Int

	GetBalanceMultiCoin(addr common.Address, coinID common.Hash) *big.Int
	AddBalanceMultiCoin(addr common.Address, coinID common.Hash, amount *big.Int)
	SubBalanceMultiCoin(addr common.Address, coinID common.Hash, amount *big.Int)

	GetNonce(addr common.Address) uint64
	SetNonce(addr common.Address, nonce uint64, reason tracing.NonceChangeReason)

	CreateAccount(addr common.Address)
	Exist(addr common.Address) bool

	AddLog(log *ethtypes.Log)
	Logs() []*ethtypes.Log

	GetPredicateStorageSlots(address common.Address, index int) ([]byte, bool)
	TxHash() common.Hash

	Snapshot() int
	RevertToSnapshot(snapshot int)
}

// BlockContext exposes block information to a running precompile.
type BlockContext interface {
	Number() *big.Int
	Timestamp() uint64
}

// ConfigurationBlockContext is the block information available while a
// precompile is being configured at an upgrade boundary.
type ConfigurationBlockContext interface {
	Number() *big.Int
	Timestamp() uint64
}

// AccessibleState is the execution environment passed to Run.
type AccessibleState interface {
	GetStateDB() StateDB
	GetBlockContext() BlockContext
}

// StatefulPrecompiledContract is the interface every precompile contract
// implements. Run receives the full calldata (selector included), the gas
// supplied by the call, and the static-call flag; it returns the output,
// the gas left over, and any error. A non-nil error causes the EVM to
// revert the enclosing transaction.
type StatefulPrecompiledContract interface {
	Run(
		accessibleState AccessibleState,
		caller common.Address,
		addr common.Address,
		input []byte,
		suppliedGas uint64,
		readOnly bool,
	) (ret []byte, remainingGas uint64, err error)
}

// Configurator sets up a precompile's initial state when its activation
// upgrade executes.
type Configurator interface {
	MakeConfig() precompileconfig.Config
	Configure(
		chainConfig precompileconfig.ChainConfig,
		precompileConfig precompileconfig.Config,
		state StateDB,
		blockContext ConfigurationBlockContext,
	) error
}

// DeductGas checks the supplied gas against the required amount and
// returns the remainder.
func DeductGas(suppliedGas uint64, requiredGas uint64) (uint64, error) {
	if suppliedGas < requiredGas {
		return 0, ErrOutOfGas
	}
	return suppliedGas - requiredGas, nil
}
