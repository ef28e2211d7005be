package loan

import (
	"context"

	"github.com/loangraph/microlend/internal/chain"
	"github.com/loangraph/microlend/internal/domain/authority"
	"github.com/loangraph/microlend/internal/domain/codes"
)

type Service struct {
	repo      Repository
	auth      *authority.Service
	identity  IdentityVerifier
	scores    ScoreProvider
	approvers ApproverRegistry
	funds     FundSource
	self      chain.Principal
	params    Params
}

func NewService(repo Repository, auth *authority.Service, identity IdentityVerifier, scores ScoreProvider, approvers ApproverRegistry, funds FundSource, self chain.Principal, params Params) *Service {
	return &Service{
		repo:      repo,
		auth:      auth,
		identity:  identity,
		scores:    scores,
		approvers: approvers,
		funds:     funds,
		self:      self,
		params:    params,
	}
}

func (s *Service) Params() Params { return s.params }

func (s *Service) MinScore() uint64 {
	if v, ok := s.repo.Setting(SettingMinScore); ok {
		return v
	}
	return s.params.MinScore
}

func (s *Service) MaxInterest() uint64 {
	if v, ok := s.repo.Setting(SettingMaxInterest); ok {
		return v
	}
	return s.params.MaxInterest
}

func (s *Service) Get(id uint64) (Loan, bool) {
	return s.repo.Get(id)
}

func (s *Service) Repayment(loanID, seq uint64) (Repayment, bool) {
	return s.repo.GetRepayment(RepaymentKey{LoanID: loanID, Seq: seq})
}

func (s *Service) Stats() Stats {
	return s.repo.Stats()
}

// TotalDue is principal plus linear interest over the maximum duration.
func (s *Service) TotalDue(amount, rateBP, duration uint64) (uint64, bool) {
	interest, ok := chain.MulDiv(amount, rateBP, duration, BasisPoints*s.params.MaxDuration)
	if !ok || amount+interest < amount {
		return 0, false
	}
	return amount + interest, true
}

func (s *Service) RequestLoan(ctx context.Context, tx *chain.Tx, amount, duration uint64) (uint64, error) {
	borrower := tx.Caller()
	verified, err := s.identity.IsVerified(ctx, borrower)
	if err != nil || !verified {
		return 0, codes.ErrLoanNotAuthorized
	}
	score, err := s.scores.Score(ctx, borrower)
	if err != nil || score < s.MinScore() {
		return 0, codes.ErrLowScore
	}
	if amount < s.params.MinAmount || amount > s.params.MaxAmount {
		return 0, codes.ErrLoanInvalidAmount
	}
	if duration < s.params.MinDuration || duration > s.params.MaxDuration {
		return 0, codes.ErrInvalidDuration
	}
	totalDue, ok := s.TotalDue(amount, s.params.DefaultInterest, duration)
	if !ok {
		return 0, codes.ErrLoanInvalidAmount
	}

	stats := s.repo.Stats()
	if stats.NextID == 0 {
		stats.NextID = 1
	}
	l := Loan{
		ID:              stats.NextID,
		Borrower:        borrower,
		PrincipalAmount: amount,
		InterestRateBP:  s.params.DefaultInterest,
		DurationHeights: duration,
		RequestedAt:     tx.Height(),
		Outstanding:     totalDue,
		TotalDue:        totalDue,
	}
	s.repo.Put(l)
	stats.NextID++
	s.repo.PutStats(stats)

	tx.Emit("loan_requested", map[string]any{
		"loan_id":   l.ID,
		"borrower":  string(borrower),
		"amount":    amount,
		"duration":  duration,
		"total_due": totalDue,
		"score":     score,
	})
	return l.ID, nil
}

// ApproveLoan flips the approval flag and stores a custom rate. The amount
// due stays as computed at request time.
func (s *Service) ApproveLoan(ctx context.Context, tx *chain.Tx, id, customInterest uint64) error {
	ok, err := s.approvers.IsApprover(ctx, tx.Caller())
	if err != nil || !ok {
		return codes.ErrLoanNotAuthorized
	}
	l, found := s.repo.Get(id)
	if !found {
		return codes.ErrLoanNotFound
	}
	if l.Approved {
		return codes.ErrLoanAlreadyApproved
	}
	if customInterest > s.MaxInterest() {
		return codes.ErrLoanInvalidAmount
	}
	l.Approved = true
	if customInterest > 0 {
		l.InterestRateBP = customInterest
	}
	s.repo.Put(l)
	tx.Emit("loan_approved", map[string]any{
		"loan_id":  id,
		"approver": string(tx.Caller()),
		"interest": l.InterestRateBP,
	})
	return nil
}

func (s *Service) DisburseLoan(tx *chain.Tx, id uint64) error {
	l, ok := s.repo.Get(id)
	if !ok {
		return codes.ErrLoanNotFound
	}
	if !l.Approved {
		return codes.ErrLoanNotApproved
	}
	if l.Disbursed {
		return codes.ErrLoanAlreadyDisbursed
	}
	err := tx.AsContract(s.self, func() error {
		return s.funds.TransferFunds(tx, l.Borrower, l.PrincipalAmount)
	})
	if err != nil {
		return err
	}
	l.Disbursed = true
	l.StartHeight = tx.Height()
	s.repo.Put(l)

	stats := s.repo.Stats()
	stats.Issued++
	s.repo.PutStats(stats)

	tx.Emit("loan_disbursed", map[string]any{
		"loan_id":      id,
		"borrower":     string(l.Borrower),
		"amount":       l.PrincipalAmount,
		"start_height": l.StartHeight,
	})
	return nil
}

func (s *Service) RepayLoan(tx *chain.Tx, id, amount uint64) (Loan, error) {
	l, ok := s.repo.Get(id)
	if !ok {
		return Loan{}, codes.ErrLoanNotFound
	}
	if tx.Caller() != l.Borrower {
		return Loan{}, codes.ErrLoanNotAuthorized
	}
	if !l.Disbursed {
		return Loan{}, codes.ErrLoanNotApproved
	}
	if l.Repaid {
		// Reuses the approval code for a fully repaid loan.
		return Loan{}, codes.ErrLoanAlreadyApproved
	}
	if l.Defaulted {
		return Loan{}, codes.ErrLoanDefaulted
	}
	if amount == 0 {
		return Loan{}, codes.ErrLoanInvalidAmount
	}
	if amount > l.Outstanding {
		return Loan{}, codes.ErrRepaymentExceedsDue
	}

	if err := s.funds.ReceiveFunds(tx, l.Borrower, amount); err != nil {
		return Loan{}, err
	}

	seq := l.RepaymentsMade + 1
	s.repo.PutRepayment(RepaymentKey{LoanID: id, Seq: seq}, Repayment{Amount: amount, Height: tx.Height()})
	l.RepaymentsMade = seq
	l.Outstanding -= amount

	event := "partial_repayment"
	if l.Outstanding == 0 {
		l.Repaid = true
		stats := s.repo.Stats()
		stats.Repaid++
		s.repo.PutStats(stats)
		event = "loan_repaid"
	}
	s.repo.Put(l)

	tx.Emit(event, map[string]any{
		"loan_id":      id,
		"borrower":     string(l.Borrower),
		"amount":       amount,
		"repayment_id": seq,
		"outstanding":  l.Outstanding,
	})
	return l, nil
}

func (s *Service) CheckDefault(tx *chain.Tx, id uint64) (Loan, error) {
	l, ok := s.repo.Get(id)
	if !ok {
		return Loan{}, codes.ErrLoanNotFound
	}
	if !l.Disbursed {
		return Loan{}, codes.ErrLoanNotApproved
	}
	if l.Defaulted {
		return Loan{}, codes.ErrLoanDefaulted
	}
	if l.Repaid {
		return Loan{}, codes.ErrLoanAlreadyApproved
	}
	if tx.Height() <= l.DefaultDeadline(s.params.GracePeriod) {
		return Loan{}, codes.ErrGracePeriodNotOver
	}

	penalty, ok := chain.MulDiv(l.Outstanding, s.params.PenaltyInterest, 1, BasisPoints)
	if !ok || l.Outstanding+penalty < l.Outstanding {
		return Loan{}, codes.ErrLoanInvalidAmount
	}
	l.Outstanding += penalty
	l.Defaulted = true
	s.repo.Put(l)

	stats := s.repo.Stats()
	stats.Defaulted++
	s.repo.PutStats(stats)

	tx.Emit("loan_defaulted", map[string]any{
		"loan_id":     id,
		"borrower":    string(l.Borrower),
		"penalty":     penalty,
		"outstanding": l.Outstanding,
		"caller":      string(tx.Caller()),
	})
	return l, nil
}

func (s *Service) UpdateMinScore(tx *chain.Tx, v uint64) error {
	if err := s.auth.RequireLoanAdmin(tx.Caller()); err != nil {
		return err
	}
	s.repo.PutSetting(SettingMinScore, v)
	tx.Emit("min_score_updated", map[string]any{"min_score": v})
	return nil
}

func (s *Service) UpdateMaxInterest(tx *chain.Tx, v uint64) error {
	if err := s.auth.RequireLoanAdmin(tx.Caller()); err != nil {
		return err
	}
	s.repo.PutSetting(SettingMaxInterest, v)
	tx.Emit("max_interest_updated", map[string]any{"max_interest": v})
	return nil
}
