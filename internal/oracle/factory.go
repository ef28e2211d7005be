package oracle

import (
	"fmt"
	"strings"

	"github.com/loangraph/microlend/internal/chain"
	"github.com/loangraph/microlend/internal/config"
	"github.com/loangraph/microlend/internal/domain/loan"
)

type Set struct {
	Identity  loan.IdentityVerifier
	Scores    loan.ScoreProvider
	Approvers loan.ApproverRegistry
	closers   []func() error
}

func (s Set) Close() error {
	for _, c := range s.closers {
		if err := c(); err != nil {
			return err
		}
	}
	return nil
}

// NewSetFromConfig builds the collaborators. identity overrides the identity
// predicate when non-nil (the Postgres registry in persistent deployments).
func NewSetFromConfig(cfg config.Config, identity loan.IdentityVerifier) (Set, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.OracleMode))
	switch mode {
	case "", "static":
		st := NewStatic()
		for _, p := range cfg.StaticVerified {
			st.Verify(chain.Principal(p))
		}
		for _, p := range cfg.StaticApprovers {
			st.AddApprover(chain.Principal(p))
		}
		for p, score := range cfg.StaticScores {
			st.SetScore(chain.Principal(p), score)
		}
		set := Set{Identity: st, Scores: st, Approvers: st}
		if identity != nil {
			set.Identity = identity
		}
		return set, nil
	case "redis":
		client, err := NewRedisClient(cfg.RedisURL)
		if err != nil {
			return Set{}, err
		}
		book := NewRedisBook(client)
		set := Set{Identity: book, Scores: book, Approvers: book, closers: []func() error{client.Close}}
		if identity != nil {
			set.Identity = identity
		}
		return set, nil
	default:
		return Set{}, fmt.Errorf("invalid ORACLE_MODE: %s", cfg.OracleMode)
	}
}
