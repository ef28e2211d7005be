package postgres

import (
	"github.com/loangraph/microlend/internal/chain"
	"github.com/loangraph/microlend/internal/domain/loan"
	"github.com/loangraph/microlend/internal/jobs"
)

var (
	_ chain.Sink            = (*LedgerRepository)(nil)
	_ chain.HeightSink      = (*LedgerRepository)(nil)
	_ jobs.OutboxRepository = (*OutboxRepository)(nil)
	_ loan.IdentityVerifier = (*IdentityRepository)(nil)
)
