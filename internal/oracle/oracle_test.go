package oracle

import (
	"context"
	"errors"
	"testing"

	"github.com/loangraph/microlend/internal/chain"
	"github.com/loangraph/microlend/internal/config"
)

type fixedIdentity bool

func (f fixedIdentity) IsVerified(context.Context, chain.Principal) (bool, error) {
	return bool(f), nil
}

func TestStaticPredicates(t *testing.T) {
	ctx := context.Background()
	st := NewStatic().Verify("alice").AddApprover("auth").SetScore("alice", 720)

	if ok, _ := st.IsVerified(ctx, "alice"); !ok {
		t.Fatalf("expected alice verified")
	}
	if ok, _ := st.IsVerified(ctx, "bob"); ok {
		t.Fatalf("expected bob unverified")
	}
	if ok, _ := st.IsApprover(ctx, "auth"); !ok {
		t.Fatalf("expected auth approver")
	}
	if score, err := st.Score(ctx, "alice"); err != nil || score != 720 {
		t.Fatalf("unexpected score %d %v", score, err)
	}
	if _, err := st.Score(ctx, "bob"); !errors.Is(err, ErrNoScore) {
		t.Fatalf("expected ErrNoScore, got %v", err)
	}
}

func TestNewSetFromConfigStatic(t *testing.T) {
	ctx := context.Background()
	cfg := config.Config{
		OracleMode:      "static",
		StaticVerified:  []string{"alice"},
		StaticApprovers: []string{"auth"},
		StaticScores:    map[string]uint64{"alice": 650},
	}

	set, err := NewSetFromConfig(cfg, nil)
	if err != nil {
		t.Fatalf("new set: %v", err)
	}
	defer set.Close()
	if ok, _ := set.Identity.IsVerified(ctx, "alice"); !ok {
		t.Fatalf("expected seeded verification")
	}
	if score, _ := set.Scores.Score(ctx, "alice"); score != 650 {
		t.Fatalf("expected seeded score, got %d", score)
	}
	if ok, _ := set.Approvers.IsApprover(ctx, "auth"); !ok {
		t.Fatalf("expected seeded approver")
	}

	set, err = NewSetFromConfig(cfg, fixedIdentity(false))
	if err != nil {
		t.Fatalf("new set with identity: %v", err)
	}
	if ok, _ := set.Identity.IsVerified(ctx, "alice"); ok {
		t.Fatalf("expected identity override to win")
	}
}

func TestNewSetFromConfigRejectsUnknownMode(t *testing.T) {
	if _, err := NewSetFromConfig(config.Config{OracleMode: "ldap"}, nil); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}
