// Package oracle adapts the external identity, credit-score and approver
// services consumed by the loan engine.
package oracle

import (
	"context"
	"errors"
	"sync"

	"github.com/loangraph/microlend/internal/chain"
)

var ErrNoScore = errors.New("no_score")

// Static serves all three predicates from in-process sets. Used locally and
// in tests.
type Static struct {
	mu        sync.RWMutex
	verified  map[chain.Principal]struct{}
	approvers map[chain.Principal]struct{}
	scores    map[chain.Principal]uint64
}

func NewStatic() *Static {
	return &Static{
		verified:  map[chain.Principal]struct{}{},
		approvers: map[chain.Principal]struct{}{},
		scores:    map[chain.Principal]uint64{},
	}
}

func (s *Static) Verify(who chain.Principal) *Static {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verified[who] = struct{}{}
	return s
}

func (s *Static) AddApprover(who chain.Principal) *Static {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.approvers[who] = struct{}{}
	return s
}

func (s *Static) SetScore(who chain.Principal, score uint64) *Static {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores[who] = score
	return s
}

func (s *Static) IsVerified(_ context.Context, who chain.Principal) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.verified[who]
	return ok, nil
}

func (s *Static) IsApprover(_ context.Context, who chain.Principal) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.approvers[who]
	return ok, nil
}

func (s *Static) Score(_ context.Context, who chain.Principal) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	score, ok := s.scores[who]
	if !ok {
		return 0, ErrNoScore
	}
	return score, nil
}
