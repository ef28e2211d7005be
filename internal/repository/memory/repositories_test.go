package memory

import (
	"context"
	"testing"

	"github.com/loangraph/microlend/internal/chain"
	"github.com/loangraph/microlend/internal/domain/asset"
	"github.com/loangraph/microlend/internal/domain/loan"
	"github.com/loangraph/microlend/internal/domain/pool"
)

type captureSink struct{ rows []chain.Change }

func (s *captureSink) Persist(_ context.Context, b chain.Batch) error {
	s.rows = append(s.rows, b.Changes...)
	return nil
}

func TestCompositeKeysSurviveRestore(t *testing.T) {
	sink := &captureSink{}
	h := chain.NewHost(chain.WithSink(sink))
	positions := NewPositionRepository(h)
	loans := NewLoanRepository(h)

	posKey := pool.PositionKey{AssetID: 3, Depositor: "org/treasury"}
	repKey := loan.RepaymentKey{LoanID: 9, Seq: 2}
	err := h.Execute(context.Background(), "alice", func(*chain.Tx) error {
		positions.Put(posKey, pool.Position{Staked: 500, LockedUntilHeight: 12})
		positions.SetPaused(true)
		loans.PutRepayment(repKey, loan.Repayment{Amount: 40, Height: 7})
		loans.PutSetting(loan.SettingMinScore, 650)
		return nil
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	restored := chain.NewHost()
	positions2 := NewPositionRepository(restored)
	loans2 := NewLoanRepository(restored)
	if err := restored.Restore(sink.rows, 0); err != nil {
		t.Fatalf("restore: %v", err)
	}

	pos, ok := positions2.Get(posKey)
	if !ok || pos.Staked != 500 || pos.LockedUntilHeight != 12 {
		t.Fatalf("unexpected restored position: %+v %v", pos, ok)
	}
	if !positions2.Paused() {
		t.Fatalf("expected paused flag restored")
	}
	if rp, ok := loans2.GetRepayment(repKey); !ok || rp.Amount != 40 {
		t.Fatalf("unexpected restored repayment: %+v", rp)
	}
	if v, ok := loans2.Setting(loan.SettingMinScore); !ok || v != 650 {
		t.Fatalf("unexpected restored setting: %d %v", v, ok)
	}
}

func TestParseKeysRejectMalformed(t *testing.T) {
	if _, err := pool.ParsePositionKey("nokey"); err == nil {
		t.Fatalf("expected malformed position key rejected")
	}
	if _, err := pool.ParsePositionKey("x/alice"); err == nil {
		t.Fatalf("expected non-numeric asset id rejected")
	}
	if _, err := loan.ParseRepaymentKey("1/x"); err == nil {
		t.Fatalf("expected non-numeric seq rejected")
	}
}

func TestAssetListIsOrderedByID(t *testing.T) {
	h := chain.NewHost()
	repo := NewAssetRepository(h)
	_ = h.Execute(context.Background(), "auth", func(*chain.Tx) error {
		for id := uint64(11); ; id-- {
			repo.Put(asset.Asset{ID: id})
			if id == 0 {
				break
			}
		}
		return nil
	})

	list := repo.List()
	if len(list) != 12 {
		t.Fatalf("expected 12 assets, got %d", len(list))
	}
	for i, a := range list {
		if a.ID != uint64(i) {
			t.Fatalf("expected id %d at position %d, got %d", i, i, a.ID)
		}
	}
}
