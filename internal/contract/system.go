package contract

import (
	"context"

	"github.com/loangraph/microlend/internal/chain"
	"github.com/loangraph/microlend/internal/config"
	"github.com/loangraph/microlend/internal/domain/asset"
	"github.com/loangraph/microlend/internal/domain/authority"
	"github.com/loangraph/microlend/internal/domain/loan"
	"github.com/loangraph/microlend/internal/domain/pool"
	"github.com/loangraph/microlend/internal/repository/memory"
)

const GenesisPrincipal chain.Principal = "genesis"

type Settings struct {
	NativeSymbol         string
	ClaimSymbol          string
	PoolPrincipal        chain.Principal
	LoanManagerPrincipal chain.Principal
	Authority            chain.Principal
	LoanAdmin            chain.Principal
	Asset                asset.Settings
	Loan                 loan.Params
	Genesis              map[chain.Principal]uint64
}

func SettingsFromConfig(cfg config.Config) Settings {
	genesis := map[chain.Principal]uint64{}
	for p, amount := range cfg.GenesisBalances {
		genesis[chain.Principal(p)] = amount
	}
	return Settings{
		NativeSymbol:         cfg.NativeSymbol,
		ClaimSymbol:          cfg.ClaimSymbol,
		PoolPrincipal:        chain.Principal(cfg.PoolPrincipal),
		LoanManagerPrincipal: chain.Principal(cfg.LoanManagerPrincipal),
		Authority:            chain.Principal(cfg.LedgerAuthority),
		LoanAdmin:            chain.Principal(cfg.LoanAdmin),
		Asset: asset.Settings{
			MaxAssets: cfg.MaxAssets,
			Fee:       cfg.AssetFee,
		},
		Loan: loan.Params{
			MinAmount:       cfg.LoanMinAmount,
			MaxAmount:       cfg.LoanMaxAmount,
			MinDuration:     cfg.LoanMinDuration,
			MaxDuration:     cfg.LoanMaxDuration,
			DefaultInterest: cfg.LoanDefaultInterest,
			MaxInterest:     cfg.LoanMaxInterest,
			MinScore:        cfg.LoanMinScore,
			GracePeriod:     cfg.LoanGracePeriod,
			PenaltyInterest: cfg.LoanPenaltyInterest,
		},
		Genesis: genesis,
	}
}

type Collaborators struct {
	Identity  loan.IdentityVerifier
	Scores    loan.ScoreProvider
	Approvers loan.ApproverRegistry
}

// System is the pool and loan manager wired onto one host.
type System struct {
	Host      *chain.Host
	Native    *chain.Token
	Claims    *chain.Token
	Authority *authority.Service
	Assets    *asset.Registry
	Pool      *pool.Ledger
	Loans     *loan.Service
	settings  Settings
}

func NewSystem(host *chain.Host, s Settings, c Collaborators) *System {
	native := chain.NewToken(host, s.NativeSymbol)
	claims := chain.NewToken(host, s.ClaimSymbol)
	auth := authority.NewService(memory.NewRoleRepository(host))
	positions := memory.NewPositionRepository(host)
	assetRepo := memory.NewAssetRepository(host)

	// The registry reads stakes through the ledger, which reads assets
	// through the registry; the stake reader is bound after both exist.
	stakes := &stakeReader{}
	registry := asset.NewRegistry(assetRepo, auth, stakes, native, s.Asset)
	ledger := pool.NewLedger(positions, registry, auth, native, claims, s.PoolPrincipal)
	stakes.ledger = ledger

	loans := loan.NewService(
		memory.NewLoanRepository(host),
		auth,
		c.Identity,
		c.Scores,
		c.Approvers,
		ledger,
		s.LoanManagerPrincipal,
		s.Loan,
	)

	return &System{
		Host:      host,
		Native:    native,
		Claims:    claims,
		Authority: auth,
		Assets:    registry,
		Pool:      ledger,
		Loans:     loans,
		settings:  s,
	}
}

// Genesis seeds roles and native balances on a fresh ledger. It is a no-op
// for anything already present after a restore.
func (s *System) Genesis(ctx context.Context) error {
	return s.Host.Execute(ctx, GenesisPrincipal, func(tx *chain.Tx) error {
		s.Authority.Bootstrap(map[authority.Role]chain.Principal{
			authority.RoleAuthority:   s.settings.Authority,
			authority.RoleLoanAdmin:   s.settings.LoanAdmin,
			authority.RoleLoanManager: s.settings.LoanManagerPrincipal,
		})
		if s.Native.Supply() > 0 {
			return nil
		}
		for p, amount := range s.settings.Genesis {
			if amount == 0 {
				continue
			}
			if err := s.Native.Mint(p, amount); err != nil {
				return err
			}
			tx.Emit("genesis-mint", map[string]any{"to": string(p), "amount": amount})
		}
		return nil
	})
}

type stakeReader struct {
	ledger *pool.Ledger
}

func (r *stakeReader) Staked(assetID uint64, who chain.Principal) (uint64, bool) {
	return r.ledger.Staked(assetID, who)
}
