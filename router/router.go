// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package router

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/sweep/nft"
	"github.com/luxfi/sweep/pool"
	"github.com/luxfi/sweep/royalty"
)

// StateDB is the interface for router state access
type StateDB interface {
	GetState(addr common.Address, key common.Hash) common.Hash
	SetState(addr common.Address, key common.Hash, value common.Hash)
	GetBalance(addr common.Address) *uint256.Int
	AddBalance(addr common.Address, amount *uint256.Int)
	SubBalance(addr common.Address, amount *uint256.Int)
}

// PublicPool is the call contract of a curve pool as the router consumes
// it. Quotes, proofs, and reserve checks are the pool's own business.
type PublicPool interface {
	ExchangeForAssets(state pool.StateDB, caller common.Address, p common.Address, ids []*big.Int, valueOffered *big.Int, minAssetsOut int) (*big.Int, error)
	ExchangeForValue(state pool.StateDB, caller common.Address, p common.Address, ids []*big.Int, minValueOut *big.Int, deadline uint64, now uint64, proofs [][]common.Hash, attestations [][]byte) (*big.Int, error)
}

// PrivatePool is the call contract of a weighted pool as the router
// consumes it.
type PrivatePool interface {
	Buy(state pool.StateDB, caller common.Address, p common.Address, ids []*big.Int, weights []*big.Int, proof pool.MultiProof, valueOffered *big.Int) (*big.Int, error)
	Sell(state pool.StateDB, caller common.Address, p common.Address, ids []*big.Int, weights []*big.Int, proof pool.MultiProof, attestations [][]byte, now uint64) (*big.Int, error)
	Change(state pool.StateDB, caller common.Address, p common.Address, inputIds []*big.Int, inputWeights []*big.Int, inputProof pool.MultiProof, outputIds []*big.Int, outputWeights []*big.Int, outputProof pool.MultiProof, attestations [][]byte, valueOffered *big.Int, now uint64) (*big.Int, error)
	Deposit(state pool.StateDB, caller common.Address, p common.Address, ids []*big.Int, value *big.Int) error
	CurrentPrice(state pool.StateDB, p common.Address) (*big.Int, error)
}

// RoyaltyQuoter resolves the royalty leg for one asset sale.
type RoyaltyQuoter interface {
	Quote(state royalty.StateDB, collection common.Address, id *big.Int, salePrice *big.Int) (common.Address, *big.Int, error)
}

// AssetLedger is the slice of the asset ledger the router needs to move
// custody and to authorize pools to pull from it.
type AssetLedger interface {
	Transfer(state nft.StateDB, operator common.Address, collection common.Address, from common.Address, to common.Address, id *big.Int) error
	SetApprovalForAll(state nft.StateDB, owner common.Address, collection common.Address, operator common.Address, approved bool)
}

var (
	_ PublicPool    = (*pool.CurveEngine)(nil)
	_ PrivatePool   = (*pool.WeightedEngine)(nil)
	_ RoyaltyQuoter = (*royalty.Registry)(nil)
	_ AssetLedger   = (*nft.Ledger)(nil)
)

// Router fans a batch of exchange instructions out to the pool family
// and reconciles custody afterwards. It keeps no state between calls;
// everything it holds mid-batch is drained before the call returns.
type Router struct {
	ledger  AssetLedger
	public  PublicPool
	private PrivatePool
	quoter  RoyaltyQuoter
}

// NewRouter creates a router over the given collaborators.
func NewRouter(ledger AssetLedger, public PublicPool, private PrivatePool, quoter RoyaltyQuoter) *Router {
	return &Router{ledger: ledger, public: public, private: private, quoter: quoter}
}

// checkDeadline fails when a nonzero [deadline] lies in the past. Zero
// means no deadline.
func checkDeadline(deadline uint64, now uint64) error {
	if deadline != 0 && now > deadline {
		return ErrDeadlineExpired
	}
	return nil
}

func valueOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

// =========================================================================
// Custody
// =========================================================================

// custody is the call-local account of what the router holds while a
// batch is in flight. Every asset that enters router custody is recorded
// and must leave again before the batch settles; the value balance is
// drained to the caller during reconciliation.
type custody struct {
	state  StateDB
	ledger AssetLedger
	held   map[heldAsset]struct{}
}

type heldAsset struct {
	collection common.Address
	id         string
}

func newCustody(state StateDB, ledger AssetLedger) *custody {
	return &custody{state: state, ledger: ledger, held: make(map[heldAsset]struct{})}
}

func (c *custody) balance() *big.Int {
	return c.state.GetBalance(routerAddr).ToBig()
}

// pullValue moves [amount] of attached value from [from] into the
// router.
func (c *custody) pullValue(from common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if amount.Sign() < 0 || c.state.GetBalance(from).ToBig().Cmp(amount) < 0 {
		return ErrInsufficientValue
	}
	u := uint256.MustFromBig(amount)
	c.state.SubBalance(from, u)
	c.state.AddBalance(routerAddr, u)
	return nil
}

// pullAsset moves (collection, id) from [from] into router custody. The
// owner must have approved the router on the ledger beforehand.
func (c *custody) pullAsset(collection common.Address, id *big.Int, from common.Address) error {
	if err := c.ledger.Transfer(c.state, routerAddr, collection, from, routerAddr, id); err != nil {
		return err
	}
	c.record(collection, id)
	return nil
}

// giveAsset moves a router-held (collection, id) out to [to].
func (c *custody) giveAsset(collection common.Address, id *big.Int, to common.Address) error {
	if err := c.ledger.Transfer(c.state, routerAddr, collection, routerAddr, to, id); err != nil {
		return err
	}
	c.clear(collection, id)
	return nil
}

// record marks an asset a pool delivered into router custody.
func (c *custody) record(collection common.Address, id *big.Int) {
	c.held[heldAsset{collection, id.String()}] = struct{}{}
}

// clear marks an asset a pool pulled back out of router custody.
func (c *custody) clear(collection common.Address, id *big.Int) {
	delete(c.held, heldAsset{collection, id.String()})
}

// drain pays the router's entire value balance to [to] and returns the
// amount paid.
func (c *custody) drain(to common.Address) *big.Int {
	bal := new(uint256.Int).Set(c.state.GetBalance(routerAddr))
	if bal.IsZero() {
		return new(big.Int)
	}
	c.state.SubBalance(routerAddr, bal)
	c.state.AddBalance(to, bal)
	return bal.ToBig()
}

// settled fails if any asset taken into custody this call has not left
// again.
func (c *custody) settled() error {
	if len(c.held) != 0 {
		return ErrCustodyNotSettled
	}
	return nil
}

// =========================================================================
// Batch operations
// =========================================================================

// grantTransferAuthority lets [p] pull router-held assets of
// [collection]. Pools are hit from many entries, so repeated grants must
// be safe; the ledger makes them no-ops.
func (r *Router) grantTransferAuthority(state StateDB, collection common.Address, p common.Address) {
	r.ledger.SetApprovalForAll(state, routerAddr, collection, p, true)
}

// payRoyalties settles the royalty leg for one entry out of the router
// balance. The sale price is the entry proceeds split evenly across the
// basket; the division remainder stays with the payer. A quote above the
// sale price fails the batch rather than being clamped.
func (r *Router) payRoyalties(state StateDB, collection common.Address, ids []*big.Int, proceeds *big.Int) (*big.Int, error) {
	total := new(big.Int)
	if len(ids) == 0 {
		return total, nil
	}
	salePrice := new(big.Int).Div(proceeds, big.NewInt(int64(len(ids))))
	for _, id := range ids {
		recipient, fee, err := r.quoter.Quote(state, collection, id, salePrice)
		if err != nil {
			return nil, err
		}
		if fee.Cmp(salePrice) > 0 {
			return nil, ErrInvalidRoyaltyFee
		}
		if fee.Sign() > 0 && recipient != (common.Address{}) {
			u := uint256.MustFromBig(fee)
			state.SubBalance(routerAddr, u)
			state.AddBalance(recipient, u)
			total.Add(total, fee)
		}
	}
	return total, nil
}

// Buy executes a batch of buy entries. The attached [value] funds every
// entry; each entry forwards its own offered amount to its pool, the
// bought assets pass through the router to the caller, and whatever the
// pools and royalty legs did not consume is refunded. Returns the total
// value consumed.
func (r *Router) Buy(state StateDB, caller common.Address, entries []BuyEntry, deadline uint64, payRoyalties bool, value *big.Int, now uint64) (*big.Int, error) {
	if err := checkDeadline(deadline, now); err != nil {
		return nil, err
	}
	c := newCustody(state, r.ledger)
	if err := c.pullValue(caller, value); err != nil {
		return nil, err
	}

	consumed := new(big.Int)
	for i := range entries {
		entry := &entries[i]
		offered := valueOrZero(entry.ValueOffered)
		if c.balance().Cmp(offered) < 0 {
			return nil, ErrInsufficientValue
		}

		var spent *big.Int
		var err error
		switch entry.PoolKind {
		case PoolKindPublic:
			spent, err = r.public.ExchangeForAssets(state, routerAddr, entry.Pool, entry.Ids, offered, 0)
		case PoolKindPrivate:
			spent, err = r.private.Buy(state, routerAddr, entry.Pool, entry.Ids, entry.Weights, entry.Proof, offered)
		default:
			return nil, ErrUnknownPoolKind
		}
		if err != nil {
			return nil, err
		}
		for _, id := range entry.Ids {
			c.record(entry.Collection, id)
		}
		consumed.Add(consumed, spent)

		if payRoyalties {
			paid, err := r.payRoyalties(state, entry.Collection, entry.Ids, spent)
			if err != nil {
				return nil, err
			}
			consumed.Add(consumed, paid)
		}

		for _, id := range entry.Ids {
			if err := c.giveAsset(entry.Collection, id, caller); err != nil {
				return nil, err
			}
		}
	}

	c.drain(caller)
	if err := c.settled(); err != nil {
		return nil, err
	}
	return consumed, nil
}

// Sell executes a batch of sell entries. The named assets pass through
// the router into the pools and the proceeds accumulate in the router;
// the batch fails unless they reach [minOutputAmount], and on success
// the caller receives the entire accumulated balance, not just the
// excess. Returns the payout.
func (r *Router) Sell(state StateDB, caller common.Address, entries []SellEntry, minOutputAmount *big.Int, deadline uint64, payRoyalties bool, now uint64) (*big.Int, error) {
	if err := checkDeadline(deadline, now); err != nil {
		return nil, err
	}
	c := newCustody(state, r.ledger)

	for i := range entries {
		entry := &entries[i]
		for _, id := range entry.Ids {
			if err := c.pullAsset(entry.Collection, id, caller); err != nil {
				return nil, err
			}
		}
		r.grantTransferAuthority(state, entry.Collection, entry.Pool)

		var proceeds *big.Int
		var err error
		switch entry.PoolKind {
		case PoolKindPublic:
			proceeds, err = r.public.ExchangeForValue(state, routerAddr, entry.Pool, entry.Ids, nil, 0, now, entry.PerAssetProofs, entry.Attestations)
		case PoolKindPrivate:
			proceeds, err = r.private.Sell(state, routerAddr, entry.Pool, entry.Ids, entry.Weights, entry.Proof, entry.Attestations, now)
		default:
			return nil, ErrUnknownPoolKind
		}
		if err != nil {
			return nil, err
		}
		for _, id := range entry.Ids {
			c.clear(entry.Collection, id)
		}

		if payRoyalties {
			if _, err := r.payRoyalties(state, entry.Collection, entry.Ids, proceeds); err != nil {
				return nil, err
			}
		}
	}

	payout := c.balance()
	if minOutputAmount != nil && payout.Cmp(minOutputAmount) < 0 {
		return nil, ErrOutputAmountTooSmall
	}
	c.drain(caller)
	if err := c.settled(); err != nil {
		return nil, err
	}
	return payout, nil
}

// Change executes a batch of basket swaps against weighted pools. Input
// baskets pass through the router into the pools, output baskets come
// back out to the caller, and the attached [value] covers the change
// fees with any dust refunded. Returns the total fees paid.
func (r *Router) Change(state StateDB, caller common.Address, entries []ChangeEntry, deadline uint64, value *big.Int, now uint64) (*big.Int, error) {
	if err := checkDeadline(deadline, now); err != nil {
		return nil, err
	}
	c := newCustody(state, r.ledger)
	if err := c.pullValue(caller, value); err != nil {
		return nil, err
	}

	fees := new(big.Int)
	for i := range entries {
		entry := &entries[i]
		for _, id := range entry.InputIds {
			if err := c.pullAsset(entry.Collection, id, caller); err != nil {
				return nil, err
			}
		}
		r.grantTransferAuthority(state, entry.Collection, entry.Pool)

		fee, err := r.private.Change(state, routerAddr, entry.Pool,
			entry.InputIds, entry.InputWeights, entry.InputProof,
			entry.OutputIds, entry.OutputWeights, entry.OutputProof,
			entry.Attestations, c.balance(), now)
		if err != nil {
			return nil, err
		}
		fees.Add(fees, fee)
		for _, id := range entry.InputIds {
			c.clear(entry.Collection, id)
		}

		for _, id := range entry.OutputIds {
			c.record(entry.Collection, id)
			if err := c.giveAsset(entry.Collection, id, caller); err != nil {
				return nil, err
			}
		}
	}

	c.drain(caller)
	if err := c.settled(); err != nil {
		return nil, err
	}
	return fees, nil
}

// Deposit forwards assets and value into one weighted pool, bounded by
// the pool's spot price at execution time. There is no batch loop and
// nothing to refund; the pool takes exactly what the caller attached.
// Nil bounds are open on that side.
func (r *Router) Deposit(state StateDB, caller common.Address, poolAddr common.Address, collection common.Address, ids []*big.Int, value *big.Int, minPrice *big.Int, maxPrice *big.Int, deadline uint64, now uint64) error {
	if err := checkDeadline(deadline, now); err != nil {
		return err
	}
	price, err := r.private.CurrentPrice(state, poolAddr)
	if err != nil {
		return err
	}
	if minPrice != nil && price.Cmp(minPrice) < 0 {
		return ErrPriceOutOfRange
	}
	if maxPrice != nil && price.Cmp(maxPrice) > 0 {
		return ErrPriceOutOfRange
	}

	c := newCustody(state, r.ledger)
	if err := c.pullValue(caller, value); err != nil {
		return err
	}
	for _, id := range ids {
		if err := c.pullAsset(collection, id, caller); err != nil {
			return err
		}
	}
	r.grantTransferAuthority(state, collection, poolAddr)
	if err := r.private.Deposit(state, routerAddr, poolAddr, ids, value); err != nil {
		return err
	}
	for _, id := range ids {
		c.clear(collection, id)
	}
	return c.settled()
}
