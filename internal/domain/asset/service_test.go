package asset_test

import (
	"context"
	"errors"
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
	custody chain.Principal = "contract:liquidity-pool"
)

type stakes struct{ ledger *pool.Ledger }

func (s *stakes) Staked(id uint64, who chain.Principal) (uint64, bool) { return s.ledger.Staked(id, who) }

type fixture struct {
	host     *chain.Host
	native   *chain.Token
	registry *asset.Registry
	ledger   *pool.Ledger
}

func newFixture(t *testing.T, settings asset.Settings) *fixture {
	t.Helper()
	h := chain.NewHost()
	native := chain.NewToken(h, "stx")
	claims := chain.NewToken(h, "mlp")
	auth := authority.NewService(memory.NewRoleRepository(h))
	st := &stakes{}
	registry := asset.NewRegistry(memory.NewAssetRepository(h), auth, st, native, settings)
	ledger := pool.NewLedger(memory.NewPositionRepository(h), registry, auth, native, claims, custody)
	st.ledger = ledger

	err := h.Execute(context.Background(), "genesis", func(*chain.Tx) error {
		auth.Bootstrap(map[authority.Role]chain.Principal{authority.RoleAuthority: authID})
		if err := native.Mint(alice, 50_000); err != nil {
			return err
		}
		return native.Mint(bob, 5_000)
	})
	if err != nil {
		t.Fatalf("genesis: %v", err)
	}
	return &fixture{host: h, native: native, registry: registry, ledger: ledger}
}

func (f *fixture) call(caller chain.Principal, fn func(tx *chain.Tx) error) error {
	return f.host.Execute(context.Background(), caller, fn)
}

func (f *fixture) add(caller chain.Principal, p asset.Params) (uint64, error) {
	var id uint64
	err := f.call(caller, func(tx *chain.Tx) error {
		var err error
		id, err = f.registry.AddAsset(tx, p)
		return err
	})
	return id, err
}

func params(symbol string) asset.Params {
	return asset.Params{
		Symbol:       symbol,
		MinDeposit:   100,
		MaxDeposit:   10_000,
		YieldRate:    500,
		LockPeriod:   10,
		PenaltyRate:  200,
		GovThreshold: 50,
		Location:     "Nakuru",
		Currency:     asset.CurrencyUSD,
	}
}

func TestAddAssetChargesFeeAndIndexesSymbol(t *testing.T) {
	f := newFixture(t, asset.Settings{MaxAssets: 5, Fee: 1000})

	var events []chain.Event
	f.host.Subscribe(func(evs []chain.Event) { events = append(events, evs...) })

	id, err := f.add(alice, params("MAIZE"))
	if err != nil {
		t.Fatalf("add asset: %v", err)
	}
	if id != 0 {
		t.Fatalf("expected first id 0, got %d", id)
	}
	if f.native.Balance(alice) != 49_000 || f.native.Balance(authID) != 1000 {
		t.Fatalf("fee not moved: alice=%d auth=%d", f.native.Balance(alice), f.native.Balance(authID))
	}

	a, ok := f.registry.GetBySymbol("MAIZE")
	if !ok || a.ID != id || a.Creator != alice || !a.Active || a.Currency != asset.CurrencyUSD {
		t.Fatalf("unexpected asset: %+v %v", a, ok)
	}
	if f.registry.Count() != 1 || len(f.registry.List()) != 1 {
		t.Fatalf("expected count 1")
	}
	if len(events) != 1 || events[0].Name != "asset-added" || events[0].Fields["fee"] != uint64(1000) {
		t.Fatalf("unexpected events: %+v", events)
	}

	next, err := f.add(bob, params("COFFEE"))
	if err != nil || next != 1 {
		t.Fatalf("expected second id 1, got %d %v", next, err)
	}
}

func TestAddAssetFailures(t *testing.T) {
	f := newFixture(t, asset.Settings{MaxAssets: 2, Fee: 1000})
	if _, err := f.add(alice, params("MAIZE")); err != nil {
		t.Fatalf("seed asset: %v", err)
	}

	bad := params("")
	bad.MinDeposit = 0
	if _, err := f.add(alice, bad); !errors.Is(err, codes.ErrInvalidSymbol) {
		t.Fatalf("expected invalid symbol first, got %v", err)
	}
	if _, err := f.add(alice, params("MAIZE")); !errors.Is(err, codes.ErrAssetAlreadyExists) {
		t.Fatalf("expected duplicate symbol, got %v", err)
	}
	if _, err := f.add("carol", params("TEA")); !errors.Is(err, codes.ErrInsufficientBalance) {
		t.Fatalf("expected unpaid fee rejected, got %v", err)
	}
	if f.registry.Count() != 1 {
		t.Fatalf("failed adds must not persist, count=%d", f.registry.Count())
	}
	if _, ok := f.registry.GetBySymbol("TEA"); ok {
		t.Fatalf("failed add left a symbol index entry")
	}

	if _, err := f.add(alice, params("TEA")); err != nil {
		t.Fatalf("second asset: %v", err)
	}
	if _, err := f.add(alice, bad); !errors.Is(err, codes.ErrMaxAssetsExceeded) {
		t.Fatalf("expected cap checked before validation, got %v", err)
	}
}

func TestAddAssetRequiresAuthority(t *testing.T) {
	h := chain.NewHost()
	native := chain.NewToken(h, "stx")
	auth := authority.NewService(memory.NewRoleRepository(h))
	registry := asset.NewRegistry(memory.NewAssetRepository(h), auth, &stakes{}, native, asset.Settings{MaxAssets: 1})

	err := h.Execute(context.Background(), alice, func(tx *chain.Tx) error {
		_, err := registry.AddAsset(tx, params("MAIZE"))
		return err
	})
	if !errors.Is(err, codes.ErrNotAuthorized) {
		t.Fatalf("expected not authorized without an authority, got %v", err)
	}
}

func TestUpdateAssetReindexesSymbol(t *testing.T) {
	f := newFixture(t, asset.Settings{MaxAssets: 5})
	maize, _ := f.add(alice, params("MAIZE"))
	coffee, _ := f.add(bob, params("COFFEE"))

	update := func(caller chain.Principal, id uint64, symbol string, lo, hi uint64) error {
		return f.call(caller, func(tx *chain.Tx) error {
			return f.registry.UpdateAsset(tx, id, symbol, lo, hi)
		})
	}

	if err := update(bob, maize, "CORN", 1, 2); !errors.Is(err, codes.ErrNotAuthorized) {
		t.Fatalf("expected creator-only update, got %v", err)
	}
	if err := update(alice, 99, "CORN", 1, 2); !errors.Is(err, codes.ErrAssetNotFound) {
		t.Fatalf("expected asset not found, got %v", err)
	}
	if err := update(alice, maize, "COFFEE", 1, 2); !errors.Is(err, codes.ErrAssetAlreadyExists) {
		t.Fatalf("expected taken symbol rejected, got %v", err)
	}
	if err := update(alice, maize, "CORN", 0, 2); !errors.Is(err, codes.ErrInvalidMinDeposit) {
		t.Fatalf("expected min revalidated, got %v", err)
	}

	if _, err := f.host.Advance(context.Background(), 3); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if err := update(alice, maize, "CORN", 200, 20_000); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, ok := f.registry.GetBySymbol("MAIZE"); ok {
		t.Fatalf("old symbol still indexed")
	}
	a, ok := f.registry.GetBySymbol("CORN")
	if !ok || a.ID != maize || a.MinDeposit != 200 || a.MaxDeposit != 20_000 || a.YieldRate != 500 {
		t.Fatalf("unexpected updated asset: %+v", a)
	}
	rec, ok := f.registry.LastUpdate(maize)
	if !ok || rec.NewSymbol != "CORN" || rec.Height != 3 || rec.Updater != alice {
		t.Fatalf("unexpected audit record: %+v", rec)
	}

	if err := update(alice, maize, "CORN", 300, 20_000); err != nil {
		t.Fatalf("same-symbol update: %v", err)
	}
	rec, _ = f.registry.LastUpdate(maize)
	if rec.NewMin != 300 {
		t.Fatalf("expected audit overwritten, got %+v", rec)
	}
	if got, _ := f.registry.GetBySymbol("COFFEE"); got.ID != coffee {
		t.Fatalf("unrelated symbol index changed")
	}
}

func TestSetAssetStatusCreatorOnly(t *testing.T) {
	f := newFixture(t, asset.Settings{MaxAssets: 5})
	id, _ := f.add(alice, params("MAIZE"))

	err := f.call(bob, func(tx *chain.Tx) error { return f.registry.SetAssetStatus(tx, id, false) })
	if !errors.Is(err, codes.ErrNotAuthorized) {
		t.Fatalf("expected not authorized, got %v", err)
	}
	err = f.call(alice, func(tx *chain.Tx) error { return f.registry.SetAssetStatus(tx, id, false) })
	if err != nil {
		t.Fatalf("set status: %v", err)
	}
	if a, _ := f.registry.Get(id); a.Active {
		t.Fatalf("expected asset inactive")
	}
}

func TestProposeGovChangeRequiresStake(t *testing.T) {
	f := newFixture(t, asset.Settings{MaxAssets: 5})
	id, _ := f.add(alice, params("MAIZE"))

	propose := func(caller chain.Principal, threshold uint64) error {
		return f.call(caller, func(tx *chain.Tx) error { return f.registry.ProposeGovChange(tx, id, threshold) })
	}

	if err := propose(bob, 20); !errors.Is(err, codes.ErrNotAuthorized) {
		t.Fatalf("expected stakeless proposal rejected, got %v", err)
	}

	err := f.call(bob, func(tx *chain.Tx) error {
		_, err := f.ledger.AddLiquidity(tx, id, 100)
		return err
	})
	if err != nil {
		t.Fatalf("stake: %v", err)
	}
	if err := propose(bob, 0); !errors.Is(err, codes.ErrInvalidGovThreshold) {
		t.Fatalf("expected threshold validated, got %v", err)
	}
	if err := propose(bob, 20); err != nil {
		t.Fatalf("propose: %v", err)
	}
	if a, _ := f.registry.Get(id); a.GovThreshold != 20 {
		t.Fatalf("expected threshold 20, got %d", a.GovThreshold)
	}
	if err := propose(alice, 30); !errors.Is(err, codes.ErrNotAuthorized) {
		t.Fatalf("creator without stake must not propose, got %v", err)
	}
}
