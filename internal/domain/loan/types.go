package loan

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/loangraph/microlend/internal/chain"
)

const BasisPoints = 10000

type Status string

const (
	StatusRequested Status = "requested"
	StatusApproved  Status = "approved"
	StatusDisbursed Status = "disbursed"
	StatusRepaid    Status = "repaid"
	StatusDefaulted Status = "defaulted"
)

type Loan struct {
	ID              uint64          `json:"id"`
	Borrower        chain.Principal `json:"borrower"`
	PrincipalAmount uint64          `json:"principal_amount"`
	InterestRateBP  uint64          `json:"interest_rate_bp"`
	DurationHeights uint64          `json:"duration_heights"`
	RequestedAt     uint64          `json:"requested_at_height"`
	StartHeight     uint64          `json:"start_height"`
	Approved        bool            `json:"approved"`
	Disbursed       bool            `json:"disbursed"`
	Repaid          bool            `json:"repaid"`
	Defaulted       bool            `json:"defaulted"`
	Outstanding     uint64          `json:"outstanding"`
	TotalDue        uint64          `json:"total_due"`
	RepaymentsMade  uint64          `json:"repayments_made"`
}

func (l Loan) Status() Status {
	switch {
	case l.Defaulted:
		return StatusDefaulted
	case l.Repaid:
		return StatusRepaid
	case l.Disbursed:
		return StatusDisbursed
	case l.Approved:
		return StatusApproved
	default:
		return StatusRequested
	}
}

// DefaultDeadline is the last height at which the loan cannot yet be defaulted.
func (l Loan) DefaultDeadline(grace uint64) uint64 {
	return l.StartHeight + l.DurationHeights + grace
}

// RepaymentKey addresses the seq-th repayment of a loan; seq starts at 1.
type RepaymentKey struct {
	LoanID uint64
	Seq    uint64
}

func (k RepaymentKey) String() string {
	return fmt.Sprintf("%d/%d", k.LoanID, k.Seq)
}

func ParseRepaymentKey(s string) (RepaymentKey, error) {
	rawLoan, rawSeq, ok := strings.Cut(s, "/")
	if !ok {
		return RepaymentKey{}, fmt.Errorf("malformed repayment key %q", s)
	}
	loanID, err := strconv.ParseUint(rawLoan, 10, 64)
	if err != nil {
		return RepaymentKey{}, err
	}
	seq, err := strconv.ParseUint(rawSeq, 10, 64)
	if err != nil {
		return RepaymentKey{}, err
	}
	return RepaymentKey{LoanID: loanID, Seq: seq}, nil
}

type Repayment struct {
	Amount uint64 `json:"amount"`
	Height uint64 `json:"height"`
}

type Stats struct {
	NextID    uint64 `json:"next_id"`
	Issued    uint64 `json:"issued"`
	Repaid    uint64 `json:"repaid"`
	Defaulted uint64 `json:"defaulted"`
}

// Params are fixed at construction. MinScore and MaxInterest seed the
// admin-mutable settings.
type Params struct {
	MinAmount       uint64
	MaxAmount       uint64
	MinDuration     uint64
	MaxDuration     uint64
	DefaultInterest uint64
	MaxInterest     uint64
	MinScore        uint64
	GracePeriod     uint64
	PenaltyInterest uint64
}

type Setting string

const (
	SettingMinScore    Setting = "min_score"
	SettingMaxInterest Setting = "max_interest"
)

type Repository interface {
	Get(id uint64) (Loan, bool)
	Put(l Loan)
	GetRepayment(k RepaymentKey) (Repayment, bool)
	PutRepayment(k RepaymentKey, r Repayment)
	Stats() Stats
	PutStats(s Stats)
	Setting(name Setting) (uint64, bool)
	PutSetting(name Setting, v uint64)
}

// IdentityVerifier is the external KYC predicate.
type IdentityVerifier interface {
	IsVerified(ctx context.Context, who chain.Principal) (bool, error)
}

// ScoreProvider is the external credit-score lookup.
type ScoreProvider interface {
	Score(ctx context.Context, who chain.Principal) (uint64, error)
}

// ApproverRegistry is the external governance predicate for loan approvals.
type ApproverRegistry interface {
	IsApprover(ctx context.Context, who chain.Principal) (bool, error)
}

// FundSource is the pool side of disbursement and repayment.
type FundSource interface {
	TransferFunds(tx *chain.Tx, to chain.Principal, amount uint64) error
	ReceiveFunds(tx *chain.Tx, from chain.Principal, amount uint64) error
}
