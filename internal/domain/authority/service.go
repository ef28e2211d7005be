package authority

import (
	"github.com/loangraph/microlend/internal/chain"
	"github.com/loangraph/microlend/internal/domain/codes"
)

type Role string

const (
	RoleAuthority   Role = "authority"
	RoleLoanAdmin   Role = "loan_admin"
	RoleLoanManager Role = "loan_manager"
)

type Repository interface {
	Get(role Role) (chain.Principal, bool)
	Set(role Role, p chain.Principal)
}

// Service holds the process-wide identities. Asset-scoped checks compare
// against the asset's creator directly.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Authority() (chain.Principal, bool) {
	return s.repo.Get(RoleAuthority)
}

func (s *Service) LoanAdmin() (chain.Principal, bool) {
	return s.repo.Get(RoleLoanAdmin)
}

func (s *Service) LoanManager() (chain.Principal, bool) {
	return s.repo.Get(RoleLoanManager)
}

// Bootstrap fills roles that have never been set. Existing holders win.
func (s *Service) Bootstrap(roles map[Role]chain.Principal) {
	for role, p := range roles {
		if p == "" {
			continue
		}
		if _, ok := s.repo.Get(role); !ok {
			s.repo.Set(role, p)
		}
	}
}

func (s *Service) RequireAuthority(p chain.Principal) error {
	auth, ok := s.Authority()
	if !ok || auth != p {
		return codes.ErrNotAuthorized
	}
	return nil
}

func (s *Service) RequireLoanAdmin(p chain.Principal) error {
	admin, ok := s.LoanAdmin()
	if !ok || admin != p {
		return codes.ErrLoanNotAuthorized
	}
	return nil
}

// CanMoveFunds reports whether p may pull funds out of pool custody.
func (s *Service) CanMoveFunds(p chain.Principal) bool {
	if auth, ok := s.Authority(); ok && auth == p {
		return true
	}
	mgr, ok := s.LoanManager()
	return ok && mgr == p
}

func (s *Service) SetAuthority(tx *chain.Tx, next chain.Principal) error {
	if err := s.RequireAuthority(tx.Caller()); err != nil {
		return err
	}
	if next == "" {
		return codes.ErrNotAuthorized
	}
	s.repo.Set(RoleAuthority, next)
	tx.Emit("authority-changed", map[string]any{"previous": string(tx.Caller()), "authority": string(next)})
	return nil
}

func (s *Service) SetLoanManager(tx *chain.Tx, mgr chain.Principal) error {
	if err := s.RequireAuthority(tx.Caller()); err != nil {
		return err
	}
	if mgr == "" {
		return codes.ErrNotAuthorized
	}
	s.repo.Set(RoleLoanManager, mgr)
	tx.Emit("loan-manager-changed", map[string]any{"loan_manager": string(mgr)})
	return nil
}

func (s *Service) SetLoanAdmin(tx *chain.Tx, admin chain.Principal) error {
	if err := s.RequireLoanAdmin(tx.Caller()); err != nil {
		return err
	}
	if admin == "" {
		return codes.ErrLoanNotAuthorized
	}
	s.repo.Set(RoleLoanAdmin, admin)
	tx.Emit("loan_admin_changed", map[string]any{"loan_admin": string(admin)})
	return nil
}

// RequireCreator gates asset-scoped admin actions.
func RequireCreator(caller, creator chain.Principal) error {
	if caller != creator {
		return codes.ErrNotAuthorized
	}
	return nil
}

// MeetsThreshold is the stake-weighted governance check.
func MeetsThreshold(staked, threshold uint64) bool {
	return staked >= threshold
}
