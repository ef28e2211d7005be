package contract

import (
	"context"

	"github.com/loangraph/microlend/internal/chain"
	"github.com/loangraph/microlend/internal/domain/asset"
	"github.com/loangraph/microlend/internal/domain/codes"
	"github.com/loangraph/microlend/internal/domain/loan"
	"github.com/loangraph/microlend/internal/domain/pool"
)

type PositionView struct {
	pool.Position
	Pending uint64 `json:"pending_yield"`
}

type LoanView struct {
	loan.Loan
	Status loan.Status `json:"status"`
}

func poolMethods(sys *System) map[string]method {
	reg, led := sys.Assets, sys.Pool
	return map[string]method{
		"add-asset": {arity: 9, public: func(_ context.Context, tx *chain.Tx, a Args) (any, error) {
			symbol, err := a.String(0)
			if err != nil {
				return nil, err
			}
			n, err := Args(a[1:7]).uints(6)
			if err != nil {
				return nil, shiftArg(err, 1)
			}
			location, err := a.String(7)
			if err != nil {
				return nil, err
			}
			currency, err := a.String(8)
			if err != nil {
				return nil, err
			}
			return reg.AddAsset(tx, asset.Params{
				Symbol:       symbol,
				MinDeposit:   n[0],
				MaxDeposit:   n[1],
				YieldRate:    n[2],
				LockPeriod:   n[3],
				PenaltyRate:  n[4],
				GovThreshold: n[5],
				Location:     location,
				Currency:     asset.Currency(currency),
			})
		}},
		"update-asset": {arity: 4, public: func(_ context.Context, tx *chain.Tx, a Args) (any, error) {
			id, err := a.Uint(0)
			if err != nil {
				return nil, err
			}
			symbol, err := a.String(1)
			if err != nil {
				return nil, err
			}
			minDeposit, err := a.Uint(2)
			if err != nil {
				return nil, err
			}
			maxDeposit, err := a.Uint(3)
			if err != nil {
				return nil, err
			}
			return true, reg.UpdateAsset(tx, id, symbol, minDeposit, maxDeposit)
		}},
		"set-asset-status": {arity: 2, public: func(_ context.Context, tx *chain.Tx, a Args) (any, error) {
			id, err := a.Uint(0)
			if err != nil {
				return nil, err
			}
			active, err := a.Bool(1)
			if err != nil {
				return nil, err
			}
			return true, reg.SetAssetStatus(tx, id, active)
		}},
		"propose-gov-change": {arity: 2, public: func(_ context.Context, tx *chain.Tx, a Args) (any, error) {
			n, err := a.uints(2)
			if err != nil {
				return nil, err
			}
			return true, reg.ProposeGovChange(tx, n[0], n[1])
		}},
		"add-liquidity": {arity: 2, public: func(_ context.Context, tx *chain.Tx, a Args) (any, error) {
			n, err := a.uints(2)
			if err != nil {
				return nil, err
			}
			return led.AddLiquidity(tx, n[0], n[1])
		}},
		"withdraw-liquidity": {arity: 2, public: func(_ context.Context, tx *chain.Tx, a Args) (any, error) {
			n, err := a.uints(2)
			if err != nil {
				return nil, err
			}
			return led.WithdrawLiquidity(tx, n[0], n[1])
		}},
		"claim-yield": {arity: 1, public: func(_ context.Context, tx *chain.Tx, a Args) (any, error) {
			id, err := a.Uint(0)
			if err != nil {
				return nil, err
			}
			return led.ClaimYield(tx, id)
		}},
		"transfer-funds": {arity: 2, public: func(_ context.Context, tx *chain.Tx, a Args) (any, error) {
			to, err := a.Principal(0)
			if err != nil {
				return nil, err
			}
			amount, err := a.Uint(1)
			if err != nil {
				return nil, err
			}
			return true, led.TransferFunds(tx, to, amount)
		}},
		"set-authority": {arity: 1, public: func(_ context.Context, tx *chain.Tx, a Args) (any, error) {
			next, err := a.Principal(0)
			if err != nil {
				return nil, err
			}
			return true, sys.Authority.SetAuthority(tx, next)
		}},
		"set-loan-manager": {arity: 1, public: func(_ context.Context, tx *chain.Tx, a Args) (any, error) {
			mgr, err := a.Principal(0)
			if err != nil {
				return nil, err
			}
			return true, sys.Authority.SetLoanManager(tx, mgr)
		}},
		"set-paused": {arity: 1, public: func(_ context.Context, tx *chain.Tx, a Args) (any, error) {
			paused, err := a.Bool(0)
			if err != nil {
				return nil, err
			}
			return true, led.SetPaused(tx, paused)
		}},

		"get-asset": {arity: 1, read: func(_ uint64, a Args) (any, error) {
			id, err := a.Uint(0)
			if err != nil {
				return nil, err
			}
			found, ok := reg.Get(id)
			if !ok {
				return nil, codes.ErrAssetNotFound
			}
			return found, nil
		}},
		"get-asset-by-symbol": {arity: 1, read: func(_ uint64, a Args) (any, error) {
			symbol, err := a.String(0)
			if err != nil {
				return nil, err
			}
			found, ok := reg.GetBySymbol(symbol)
			if !ok {
				return nil, codes.ErrAssetNotFound
			}
			return found, nil
		}},
		"get-asset-count": {read: func(uint64, Args) (any, error) {
			return reg.Count(), nil
		}},
		"list-assets": {read: func(uint64, Args) (any, error) {
			return reg.List(), nil
		}},
		"get-last-update": {arity: 1, read: func(_ uint64, a Args) (any, error) {
			id, err := a.Uint(0)
			if err != nil {
				return nil, err
			}
			rec, ok := reg.LastUpdate(id)
			if !ok {
				return nil, codes.ErrAssetNotFound
			}
			return rec, nil
		}},
		"get-position": {arity: 2, read: func(height uint64, a Args) (any, error) {
			id, err := a.Uint(0)
			if err != nil {
				return nil, err
			}
			who, err := a.Principal(1)
			if err != nil {
				return nil, err
			}
			pos, ok := led.Position(id, who)
			if !ok {
				return nil, codes.ErrAssetNotFound
			}
			pending, err := led.PendingYield(id, who, height)
			if err != nil {
				return nil, err
			}
			return PositionView{Position: pos, Pending: pending}, nil
		}},
		"pending-yield": {arity: 2, read: func(height uint64, a Args) (any, error) {
			id, err := a.Uint(0)
			if err != nil {
				return nil, err
			}
			who, err := a.Principal(1)
			if err != nil {
				return nil, err
			}
			return led.PendingYield(id, who, height)
		}},
		"get-claim-balance": {arity: 1, read: func(_ uint64, a Args) (any, error) {
			who, err := a.Principal(0)
			if err != nil {
				return nil, err
			}
			return led.ClaimBalance(who), nil
		}},
		"get-claim-supply": {read: func(uint64, Args) (any, error) {
			return led.ClaimSupply(), nil
		}},
		"get-custody-balance": {read: func(uint64, Args) (any, error) {
			return led.CustodyBalance(), nil
		}},
		"get-balance": {arity: 1, read: func(_ uint64, a Args) (any, error) {
			who, err := a.Principal(0)
			if err != nil {
				return nil, err
			}
			return sys.Native.Balance(who), nil
		}},
		"get-authority": {read: func(uint64, Args) (any, error) {
			p, ok := sys.Authority.Authority()
			if !ok {
				return nil, codes.ErrNotAuthorized
			}
			return p, nil
		}},
		"is-paused": {read: func(uint64, Args) (any, error) {
			return led.Paused(), nil
		}},
	}
}

func loanMethods(sys *System) map[string]method {
	svc := sys.Loans
	return map[string]method{
		"request-loan": {arity: 2, public: func(ctx context.Context, tx *chain.Tx, a Args) (any, error) {
			n, err := a.uints(2)
			if err != nil {
				return nil, err
			}
			return svc.RequestLoan(ctx, tx, n[0], n[1])
		}},
		"approve-loan": {arity: 2, public: func(ctx context.Context, tx *chain.Tx, a Args) (any, error) {
			n, err := a.uints(2)
			if err != nil {
				return nil, err
			}
			return true, svc.ApproveLoan(ctx, tx, n[0], n[1])
		}},
		"disburse-loan": {arity: 1, public: func(_ context.Context, tx *chain.Tx, a Args) (any, error) {
			id, err := a.Uint(0)
			if err != nil {
				return nil, err
			}
			return true, svc.DisburseLoan(tx, id)
		}},
		"repay-loan": {arity: 2, public: func(_ context.Context, tx *chain.Tx, a Args) (any, error) {
			n, err := a.uints(2)
			if err != nil {
				return nil, err
			}
			l, err := svc.RepayLoan(tx, n[0], n[1])
			if err != nil {
				return nil, err
			}
			return LoanView{Loan: l, Status: l.Status()}, nil
		}},
		"check-default": {arity: 1, public: func(_ context.Context, tx *chain.Tx, a Args) (any, error) {
			id, err := a.Uint(0)
			if err != nil {
				return nil, err
			}
			l, err := svc.CheckDefault(tx, id)
			if err != nil {
				return nil, err
			}
			return LoanView{Loan: l, Status: l.Status()}, nil
		}},
		"update-min-score": {arity: 1, public: func(_ context.Context, tx *chain.Tx, a Args) (any, error) {
			v, err := a.Uint(0)
			if err != nil {
				return nil, err
			}
			return true, svc.UpdateMinScore(tx, v)
		}},
		"update-max-interest": {arity: 1, public: func(_ context.Context, tx *chain.Tx, a Args) (any, error) {
			v, err := a.Uint(0)
			if err != nil {
				return nil, err
			}
			return true, svc.UpdateMaxInterest(tx, v)
		}},
		"set-loan-admin": {arity: 1, public: func(_ context.Context, tx *chain.Tx, a Args) (any, error) {
			admin, err := a.Principal(0)
			if err != nil {
				return nil, err
			}
			return true, sys.Authority.SetLoanAdmin(tx, admin)
		}},

		"get-loan": {arity: 1, read: func(_ uint64, a Args) (any, error) {
			id, err := a.Uint(0)
			if err != nil {
				return nil, err
			}
			l, ok := svc.Get(id)
			if !ok {
				return nil, codes.ErrLoanNotFound
			}
			return LoanView{Loan: l, Status: l.Status()}, nil
		}},
		"loan-status": {arity: 1, read: func(_ uint64, a Args) (any, error) {
			id, err := a.Uint(0)
			if err != nil {
				return nil, err
			}
			l, ok := svc.Get(id)
			if !ok {
				return nil, codes.ErrLoanNotFound
			}
			return l.Status(), nil
		}},
		"get-repayment": {arity: 2, read: func(_ uint64, a Args) (any, error) {
			n, err := a.uints(2)
			if err != nil {
				return nil, err
			}
			rp, ok := svc.Repayment(n[0], n[1])
			if !ok {
				return nil, codes.ErrLoanNotFound
			}
			return rp, nil
		}},
		"get-loan-stats": {read: func(uint64, Args) (any, error) {
			return svc.Stats(), nil
		}},
		"get-min-score": {read: func(uint64, Args) (any, error) {
			return svc.MinScore(), nil
		}},
		"get-max-interest": {read: func(uint64, Args) (any, error) {
			return svc.MaxInterest(), nil
		}},
	}
}

func shiftArg(err error, by int) error {
	if ae, ok := err.(*ArgError); ok {
		return &ArgError{Index: ae.Index + by, Reason: ae.Reason}
	}
	return err
}
