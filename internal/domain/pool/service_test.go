package pool_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/loangraph/microlend/internal/chain"
	"github.com/loangraph/microlend/internal/domain/asset"
	"github.com/loangraph/microlend/internal/domain/authority"
	"github.com/loangraph/microlend/internal/domain/codes"
	"github.com/loangraph/microlend/internal/domain/pool"
	"github.com/loangraph/microlend/internal/repository/memory"
)

const (
	authID  chain.Principal = "auth"
	alice   chain.Principal = "alice"
	bob     chain.Principal = "bob"
	manager chain.Principal = "contract:loan-manager"
	custody chain.Principal = "contract:liquidity-pool"
)

type stakes struct{ ledger *pool.Ledger }

func (s *stakes) Staked(id uint64, who chain.Principal) (uint64, bool) { return s.ledger.Staked(id, who) }

type fixture struct {
	t        *testing.T
	host     *chain.Host
	native   *chain.Token
	claims   *chain.Token
	auth     *authority.Service
	registry *asset.Registry
	ledger   *pool.Ledger
	assetID  uint64
}

// newFixture registers one asset: deposits 100..10000, 500bp yield, lock 10,
// 200bp penalty.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	h := chain.NewHost()
	f := &fixture{t: t, host: h}
	f.native = chain.NewToken(h, "stx")
	f.claims = chain.NewToken(h, "mlp")
	f.auth = authority.NewService(memory.NewRoleRepository(h))
	st := &stakes{}
	f.registry = asset.NewRegistry(memory.NewAssetRepository(h), f.auth, st, f.native, asset.Settings{MaxAssets: 5})
	f.ledger = pool.NewLedger(memory.NewPositionRepository(h), f.registry, f.auth, f.native, f.claims, custody)
	st.ledger = f.ledger

	f.mustCall("genesis", func(*chain.Tx) error {
		f.auth.Bootstrap(map[authority.Role]chain.Principal{authority.RoleAuthority: authID})
		if err := f.native.Mint(alice, 50_000); err != nil {
			return err
		}
		return f.native.Mint(bob, 5_000)
	})
	f.mustCall(alice, func(tx *chain.Tx) error {
		id, err := f.registry.AddAsset(tx, asset.Params{
			Symbol:       "MAIZE",
			MinDeposit:   100,
			MaxDeposit:   10_000,
			YieldRate:    500,
			LockPeriod:   10,
			PenaltyRate:  200,
			GovThreshold: 1,
			Location:     "Nakuru",
			Currency:     asset.CurrencySTX,
		})
		f.assetID = id
		return err
	})
	return f
}

func (f *fixture) call(caller chain.Principal, fn func(tx *chain.Tx) error) error {
	return f.host.Execute(context.Background(), caller, fn)
}

func (f *fixture) mustCall(caller chain.Principal, fn func(tx *chain.Tx) error) {
	f.t.Helper()
	if err := f.call(caller, fn); err != nil {
		f.t.Fatalf("call as %s: %v", caller, err)
	}
}

func (f *fixture) deposit(who chain.Principal, amount uint64) (pool.Position, error) {
	var pos pool.Position
	err := f.call(who, func(tx *chain.Tx) error {
		var err error
		pos, err = f.ledger.AddLiquidity(tx, f.assetID, amount)
		return err
	})
	return pos, err
}

func (f *fixture) withdraw(who chain.Principal, amount uint64) (pool.Withdrawal, error) {
	var w pool.Withdrawal
	err := f.call(who, func(tx *chain.Tx) error {
		var err error
		w, err = f.ledger.WithdrawLiquidity(tx, f.assetID, amount)
		return err
	})
	return w, err
}

func (f *fixture) claim(who chain.Principal) (uint64, error) {
	var paid uint64
	err := f.call(who, func(tx *chain.Tx) error {
		var err error
		paid, err = f.ledger.ClaimYield(tx, f.assetID)
		return err
	})
	return paid, err
}

func (f *fixture) advanceTo(height uint64) {
	f.t.Helper()
	if _, err := f.host.SetHeight(context.Background(), height); err != nil {
		f.t.Fatalf("set height: %v", err)
	}
}

func TestAddLiquidityLocksAndMintsClaims(t *testing.T) {
	f := newFixture(t)
	f.advanceTo(4)

	pos, err := f.deposit(alice, 1000)
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if pos.Staked != 1000 || pos.LastDepositHeight != 4 || pos.LockedUntilHeight != 14 {
		t.Fatalf("unexpected position: %+v", pos)
	}
	if f.native.Balance(alice) != 49_000 || f.ledger.CustodyBalance() != 1000 {
		t.Fatalf("unexpected balances: alice=%d custody=%d", f.native.Balance(alice), f.ledger.CustodyBalance())
	}
	if f.ledger.ClaimBalance(alice) != 1000 || f.ledger.ClaimSupply() != 1000 {
		t.Fatalf("expected claim tokens minted 1:1")
	}

	f.advanceTo(8)
	pos, err = f.deposit(alice, 500)
	if err != nil {
		t.Fatalf("second deposit: %v", err)
	}
	if pos.Staked != 1500 || pos.LockedUntilHeight != 18 {
		t.Fatalf("expected lock recomputed from latest deposit, got %+v", pos)
	}
}

func TestAddLiquidityRejections(t *testing.T) {
	f := newFixture(t)

	if _, err := f.deposit(alice, 99); !errors.Is(err, codes.ErrInvalidAmount) {
		t.Fatalf("expected below-min rejected, got %v", err)
	}
	if _, err := f.deposit(alice, 10_001); !errors.Is(err, codes.ErrInvalidAmount) {
		t.Fatalf("expected above-max rejected, got %v", err)
	}
	if _, err := f.deposit("carol", 100); !errors.Is(err, codes.ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	err := f.call(alice, func(tx *chain.Tx) error {
		_, err := f.ledger.AddLiquidity(tx, 42, 100)
		return err
	})
	if !errors.Is(err, codes.ErrAssetNotFound) {
		t.Fatalf("expected unknown asset, got %v", err)
	}
	if _, ok := f.ledger.Position(f.assetID, alice); ok {
		t.Fatalf("rejected deposits must not create a position")
	}
}

func TestPausedPoolAndInactiveAsset(t *testing.T) {
	f := newFixture(t)
	if _, err := f.deposit(alice, 1000); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	if err := f.call(alice, func(tx *chain.Tx) error { return f.ledger.SetPaused(tx, true) }); !errors.Is(err, codes.ErrNotAuthorized) {
		t.Fatalf("expected only authority may pause, got %v", err)
	}
	f.mustCall(authID, func(tx *chain.Tx) error { return f.ledger.SetPaused(tx, true) })
	if !f.ledger.Paused() {
		t.Fatalf("expected paused")
	}
	if _, err := f.deposit(alice, 1000); !errors.Is(err, codes.ErrPoolPaused) {
		t.Fatalf("expected paused deposit rejected, got %v", err)
	}
	if _, err := f.claim(alice); !errors.Is(err, codes.ErrPoolPaused) {
		t.Fatalf("expected paused claim rejected, got %v", err)
	}
	f.mustCall(authID, func(tx *chain.Tx) error { return f.ledger.SetPaused(tx, false) })

	f.mustCall(alice, func(tx *chain.Tx) error { return f.registry.SetAssetStatus(tx, f.assetID, false) })
	f.advanceTo(20)
	if _, err := f.withdraw(alice, 100); !errors.Is(err, codes.ErrPoolPaused) {
		t.Fatalf("expected inactive asset rejected, got %v", err)
	}
}

func TestWithdrawHonoursLock(t *testing.T) {
	f := newFixture(t)
	if _, err := f.deposit(alice, 1000); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	f.advanceTo(9)
	if _, err := f.withdraw(alice, 100); !errors.Is(err, codes.ErrClaimNotReady) {
		t.Fatalf("expected locked withdrawal rejected, got %v", err)
	}
	if _, err := f.withdraw(bob, 100); !errors.Is(err, codes.ErrAssetNotFound) {
		t.Fatalf("expected missing position reported as asset not found, got %v", err)
	}

	f.advanceTo(10)
	if _, err := f.withdraw(alice, 1001); !errors.Is(err, codes.ErrInsufficientBalance) {
		t.Fatalf("expected overdraw rejected, got %v", err)
	}
	w, err := f.withdraw(alice, 400)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if w.Penalty != 0 || w.Net != 400 || w.Burned != 400 {
		t.Fatalf("expected no penalty at lock expiry, got %+v", w)
	}
	if f.native.Balance(alice) != 49_400 || f.ledger.CustodyBalance() != 600 || f.ledger.ClaimBalance(alice) != 600 {
		t.Fatalf("unexpected balances after withdraw")
	}
	if staked, _ := f.ledger.Staked(f.assetID, alice); staked != 600 {
		t.Fatalf("expected 600 staked, got %d", staked)
	}
}

func TestClaimYieldReopensPenaltyWindow(t *testing.T) {
	f := newFixture(t)
	if _, err := f.deposit(alice, 1000); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	// Seed custody so yield has something to draw from beyond principal.
	f.mustCall(bob, func(*chain.Tx) error { return f.native.Transfer(bob, custody, 100) })

	f.advanceTo(10)
	pending, err := f.ledger.PendingYield(f.assetID, alice, 10)
	if err != nil || pending != 5 {
		t.Fatalf("expected 5 pending, got %d %v", pending, err)
	}
	paid, err := f.claim(alice)
	if err != nil || paid != 5 {
		t.Fatalf("expected 5 paid, got %d %v", paid, err)
	}
	again, err := f.claim(alice)
	if err != nil || again != 0 {
		t.Fatalf("expected second claim at same height to pay 0, got %d %v", again, err)
	}

	w, err := f.withdraw(alice, 500)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if w.Penalty != 10 || w.Net != 490 {
		t.Fatalf("expected 2%% penalty after claim, got %+v", w)
	}
	if f.native.Balance(authID) != 10 {
		t.Fatalf("expected penalty paid to authority, got %d", f.native.Balance(authID))
	}
	if f.ledger.CustodyBalance() != 1100-5-500 {
		t.Fatalf("unexpected custody %d", f.ledger.CustodyBalance())
	}

	f.advanceTo(20)
	w, err = f.withdraw(alice, 500)
	if err != nil || w.Penalty != 0 {
		t.Fatalf("expected penalty window closed, got %+v %v", w, err)
	}
}

func TestClaimYieldWithoutPosition(t *testing.T) {
	f := newFixture(t)
	if _, err := f.claim(bob); !errors.Is(err, codes.ErrAssetNotFound) {
		t.Fatalf("expected asset not found, got %v", err)
	}
	if _, err := f.ledger.PendingYield(f.assetID, bob, 5); !errors.Is(err, codes.ErrAssetNotFound) {
		t.Fatalf("expected asset not found, got %v", err)
	}
}

func TestTransferFundsAuthorization(t *testing.T) {
	f := newFixture(t)
	if _, err := f.deposit(alice, 5000); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	transfer := func(caller chain.Principal, amount uint64) error {
		return f.call(caller, func(tx *chain.Tx) error { return f.ledger.TransferFunds(tx, bob, amount) })
	}

	if err := transfer(alice, 100); !errors.Is(err, codes.ErrNotAuthorized) {
		t.Fatalf("expected depositor rejected, got %v", err)
	}
	if err := transfer(authID, 0); !errors.Is(err, codes.ErrInvalidAmount) {
		t.Fatalf("expected zero amount rejected, got %v", err)
	}
	if err := transfer(authID, 5001); !errors.Is(err, codes.ErrInsufficientBalance) {
		t.Fatalf("expected custody overdraw rejected, got %v", err)
	}
	if err := transfer(authID, 100); err != nil {
		t.Fatalf("authority transfer: %v", err)
	}

	viaManager := func() error {
		return f.call(alice, func(tx *chain.Tx) error {
			return tx.AsContract(manager, func() error { return f.ledger.TransferFunds(tx, bob, 200) })
		})
	}
	if err := viaManager(); !errors.Is(err, codes.ErrNotAuthorized) {
		t.Fatalf("expected undesignated manager rejected, got %v", err)
	}
	f.mustCall(authID, func(tx *chain.Tx) error { return f.auth.SetLoanManager(tx, manager) })
	if err := viaManager(); err != nil {
		t.Fatalf("manager transfer: %v", err)
	}
	if f.native.Balance(bob) != 5_300 || f.ledger.CustodyBalance() != 4_700 {
		t.Fatalf("unexpected balances bob=%d custody=%d", f.native.Balance(bob), f.ledger.CustodyBalance())
	}
}

func (f *fixture) addLongLockAsset(lock, yield uint64) {
	f.t.Helper()
	f.mustCall(alice, func(tx *chain.Tx) error {
		id, err := f.registry.AddAsset(tx, asset.Params{
			Symbol:       "TEAK",
			MinDeposit:   100,
			MaxDeposit:   10_000,
			YieldRate:    yield,
			LockPeriod:   lock,
			PenaltyRate:  200,
			GovThreshold: 1,
			Location:     "Arusha",
			Currency:     asset.CurrencySTX,
		})
		f.assetID = id
		return err
	})
}

func TestAddLiquidityRejectsLockOverflow(t *testing.T) {
	f := newFixture(t)
	f.addLongLockAsset(math.MaxUint64, 500)
	f.advanceTo(5)

	if _, err := f.deposit(alice, 1000); !errors.Is(err, codes.ErrInvalidAmount) {
		t.Fatalf("expected lock overflow rejected, got %v", err)
	}
	if f.native.Balance(alice) != 50_000 || f.ledger.CustodyBalance() != 0 {
		t.Fatalf("expected rejected deposit to leave balances untouched")
	}
	if _, err := f.withdraw(alice, 1000); !errors.Is(err, codes.ErrAssetNotFound) {
		t.Fatalf("expected no position after rejected deposit, got %v", err)
	}
}

func TestPenaltyWindowSaturatesNearMaxHeight(t *testing.T) {
	f := newFixture(t)
	f.addLongLockAsset(math.MaxUint64-10, 0)
	f.advanceTo(5)
	pos, err := f.deposit(alice, 1000)
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if pos.LockedUntilHeight != math.MaxUint64-5 {
		t.Fatalf("unexpected lock: %d", pos.LockedUntilHeight)
	}

	f.advanceTo(math.MaxUint64 - 5)
	if _, err := f.claim(alice); err != nil {
		t.Fatalf("claim: %v", err)
	}
	w, err := f.withdraw(alice, 1000)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if w.Penalty != 20 || w.Net != 980 {
		t.Fatalf("expected penalty window open after claim, got %+v", w)
	}
}

func TestWithdrawZeroIsInvalidAmount(t *testing.T) {
	f := newFixture(t)
	if _, err := f.withdraw(alice, 0); !errors.Is(err, codes.ErrAssetNotFound) {
		t.Fatalf("expected missing position first, got %v", err)
	}
	if _, err := f.deposit(alice, 1000); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if _, err := f.withdraw(alice, 0); !errors.Is(err, codes.ErrInvalidAmount) {
		t.Fatalf("expected zero withdrawal rejected, got %v", err)
	}
}
