package pool

import (
	"math"

	"github.com/loangraph/microlend/internal/chain"
	"github.com/loangraph/microlend/internal/domain/asset"
	"github.com/loangraph/microlend/internal/domain/authority"
	"github.com/loangraph/microlend/internal/domain/codes"
)

// Ledger is the liquidity pool: staked positions, claim tokens and the
// custody balance held under the pool's own principal.
type Ledger struct {
	repo    Repository
	assets  AssetSource
	auth    *authority.Service
	native  *chain.Token
	claims  *chain.Token
	custody chain.Principal
}

func NewLedger(repo Repository, assets AssetSource, auth *authority.Service, native, claims *chain.Token, custody chain.Principal) *Ledger {
	return &Ledger{
		repo:    repo,
		assets:  assets,
		auth:    auth,
		native:  native,
		claims:  claims,
		custody: custody,
	}
}

func (l *Ledger) Custody() chain.Principal { return l.custody }

func (l *Ledger) CustodyBalance() uint64 { return l.native.Balance(l.custody) }

func (l *Ledger) ClaimBalance(who chain.Principal) uint64 { return l.claims.Balance(who) }

func (l *Ledger) ClaimSupply() uint64 { return l.claims.Supply() }

func (l *Ledger) Paused() bool { return l.repo.Paused() }

func (l *Ledger) Position(assetID uint64, who chain.Principal) (Position, bool) {
	return l.repo.Get(PositionKey{AssetID: assetID, Depositor: who})
}

// Staked satisfies asset.StakeReader.
func (l *Ledger) Staked(assetID uint64, who chain.Principal) (uint64, bool) {
	pos, ok := l.Position(assetID, who)
	if !ok {
		return 0, false
	}
	return pos.Staked, true
}

// PendingYield is what ClaimYield would pay at height.
func (l *Ledger) PendingYield(assetID uint64, who chain.Principal, height uint64) (uint64, error) {
	a, ok := l.assets.Get(assetID)
	if !ok {
		return 0, codes.ErrAssetNotFound
	}
	pos, ok := l.Position(assetID, who)
	if !ok {
		return 0, codes.ErrAssetNotFound
	}
	earned, err := earnedYield(pos, a, height)
	if err != nil {
		return 0, err
	}
	return pos.YieldAccrued + earned, nil
}

func (l *Ledger) SetPaused(tx *chain.Tx, paused bool) error {
	if err := l.auth.RequireAuthority(tx.Caller()); err != nil {
		return err
	}
	l.repo.SetPaused(paused)
	tx.Emit("pool-paused-changed", map[string]any{"paused": paused})
	return nil
}

func (l *Ledger) liveAsset(id uint64) (asset.Asset, error) {
	a, ok := l.assets.Get(id)
	if !ok {
		return asset.Asset{}, codes.ErrAssetNotFound
	}
	if l.repo.Paused() || !a.Active {
		return asset.Asset{}, codes.ErrPoolPaused
	}
	return a, nil
}

func (l *Ledger) AddLiquidity(tx *chain.Tx, assetID, amount uint64) (Position, error) {
	a, err := l.liveAsset(assetID)
	if err != nil {
		return Position{}, err
	}
	if amount < a.MinDeposit || amount > a.MaxDeposit {
		return Position{}, codes.ErrInvalidAmount
	}
	caller := tx.Caller()
	if l.native.Balance(caller) < amount {
		return Position{}, codes.ErrInsufficientBalance
	}
	now := tx.Height()
	if now+a.LockPeriod < now {
		return Position{}, codes.ErrInvalidAmount
	}

	if err := l.native.Transfer(caller, l.custody, amount); err != nil {
		return Position{}, err
	}
	key := PositionKey{AssetID: assetID, Depositor: caller}
	pos, _ := l.repo.Get(key)
	if pos.Staked+amount < pos.Staked {
		return Position{}, codes.ErrInvalidAmount
	}
	pos.Staked += amount
	pos.LastDepositHeight = now
	// Every deposit relocks the whole balance from now.
	pos.LockedUntilHeight = now + a.LockPeriod
	l.repo.Put(key, pos)

	if err := l.claims.Mint(caller, amount); err != nil {
		return Position{}, err
	}

	tx.Emit("liquidity-added", map[string]any{
		"asset_id":     assetID,
		"depositor":    string(caller),
		"amount":       amount,
		"staked":       pos.Staked,
		"locked_until": pos.LockedUntilHeight,
	})
	return pos, nil
}

func (l *Ledger) WithdrawLiquidity(tx *chain.Tx, assetID, amount uint64) (Withdrawal, error) {
	a, err := l.liveAsset(assetID)
	if err != nil {
		return Withdrawal{}, err
	}
	caller := tx.Caller()
	key := PositionKey{AssetID: assetID, Depositor: caller}
	pos, ok := l.repo.Get(key)
	if !ok {
		// A missing position deliberately reports asset-not-found.
		return Withdrawal{}, codes.ErrAssetNotFound
	}
	if amount == 0 {
		return Withdrawal{}, codes.ErrInvalidAmount
	}
	if pos.Staked < amount {
		return Withdrawal{}, codes.ErrInsufficientBalance
	}
	now := tx.Height()
	if now < pos.LockedUntilHeight {
		return Withdrawal{}, codes.ErrClaimNotReady
	}

	w := Withdrawal{Amount: amount, Burned: amount}
	// The lock gate above normally makes this window unreachable; a yield
	// claim moves LastDepositHeight forward and reopens it.
	windowEnd := pos.LastDepositHeight + a.LockPeriod
	if windowEnd < pos.LastDepositHeight {
		windowEnd = math.MaxUint64
	}
	if now < windowEnd {
		penalty, ok := chain.MulDiv(amount, a.PenaltyRate, 1, BasisPoints)
		if !ok {
			return Withdrawal{}, codes.ErrInvalidAmount
		}
		w.Penalty = penalty
	}
	w.Net = amount - w.Penalty

	pos.Staked -= amount
	l.repo.Put(key, pos)

	if err := l.claims.Burn(caller, amount); err != nil {
		return Withdrawal{}, err
	}
	if w.Net > 0 {
		if err := l.native.Transfer(l.custody, caller, w.Net); err != nil {
			return Withdrawal{}, err
		}
	}
	if w.Penalty > 0 {
		auth, ok := l.auth.Authority()
		if !ok {
			return Withdrawal{}, codes.ErrNotAuthorized
		}
		if err := l.native.Transfer(l.custody, auth, w.Penalty); err != nil {
			return Withdrawal{}, err
		}
	}

	tx.Emit("liquidity-withdrawn", map[string]any{
		"asset_id":  assetID,
		"depositor": string(caller),
		"amount":    w.Net,
		"penalty":   w.Penalty,
		"staked":    pos.Staked,
	})
	return w, nil
}

func (l *Ledger) ClaimYield(tx *chain.Tx, assetID uint64) (uint64, error) {
	a, err := l.liveAsset(assetID)
	if err != nil {
		return 0, err
	}
	caller := tx.Caller()
	key := PositionKey{AssetID: assetID, Depositor: caller}
	pos, ok := l.repo.Get(key)
	if !ok {
		return 0, codes.ErrAssetNotFound
	}
	now := tx.Height()
	earned, err := earnedYield(pos, a, now)
	if err != nil {
		return 0, err
	}
	payable := pos.YieldAccrued + earned
	if payable < earned {
		return 0, codes.ErrInvalidAmount
	}

	pos.YieldAccrued = 0
	pos.LastDepositHeight = now
	l.repo.Put(key, pos)

	// Yield comes out of the same custody that backs withdrawals.
	if payable > 0 {
		if err := l.native.Transfer(l.custody, caller, payable); err != nil {
			return 0, err
		}
	}

	tx.Emit("yield-claimed", map[string]any{
		"asset_id":  assetID,
		"depositor": string(caller),
		"amount":    payable,
	})
	return payable, nil
}

// TransferFunds moves custody funds out of the pool. Only the authority or
// the designated loan manager may call it.
func (l *Ledger) TransferFunds(tx *chain.Tx, to chain.Principal, amount uint64) error {
	if !l.auth.CanMoveFunds(tx.ContractCaller()) {
		return codes.ErrNotAuthorized
	}
	if amount == 0 {
		return codes.ErrInvalidAmount
	}
	if l.CustodyBalance() < amount {
		return codes.ErrInsufficientBalance
	}
	if err := l.native.Transfer(l.custody, to, amount); err != nil {
		return err
	}
	tx.Emit("funds-transferred", map[string]any{
		"to":     string(to),
		"amount": amount,
		"by":     string(tx.ContractCaller()),
	})
	return nil
}

// ReceiveFunds credits custody from a payer, e.g. a loan repayment.
func (l *Ledger) ReceiveFunds(tx *chain.Tx, from chain.Principal, amount uint64) error {
	return l.native.Transfer(from, l.custody, amount)
}

func earnedYield(pos Position, a asset.Asset, now uint64) (uint64, error) {
	if now <= pos.LastDepositHeight {
		return 0, nil
	}
	earned, ok := chain.MulDiv(pos.Staked, a.YieldRate, now-pos.LastDepositHeight, YieldDivisor)
	if !ok {
		return 0, codes.ErrInvalidAmount
	}
	return earned, nil
}
