package asset

import (
	"github.com/loangraph/microlend/internal/chain"
	"github.com/loangraph/microlend/internal/domain/authority"
	"github.com/loangraph/microlend/internal/domain/codes"
)

type Registry struct {
	repo     Repository
	auth     *authority.Service
	stakes   StakeReader
	bank     Bank
	settings Settings
}

func NewRegistry(repo Repository, auth *authority.Service, stakes StakeReader, bank Bank, settings Settings) *Registry {
	return &Registry{repo: repo, auth: auth, stakes: stakes, bank: bank, settings: settings}
}

func (r *Registry) Get(id uint64) (Asset, bool) {
	return r.repo.Get(id)
}

func (r *Registry) GetBySymbol(symbol string) (Asset, bool) {
	id, ok := r.repo.IDBySymbol(symbol)
	if !ok {
		return Asset{}, false
	}
	return r.repo.Get(id)
}

func (r *Registry) Count() uint64 {
	return r.repo.Count()
}

func (r *Registry) List() []Asset {
	return r.repo.List()
}

func (r *Registry) LastUpdate(id uint64) (UpdateRecord, bool) {
	return r.repo.LastUpdate(id)
}

func (r *Registry) AddAsset(tx *chain.Tx, p Params) (uint64, error) {
	count := r.repo.Count()
	if count >= r.settings.MaxAssets {
		return 0, codes.ErrMaxAssetsExceeded
	}
	if err := ValidateParams(p); err != nil {
		return 0, err
	}
	if _, taken := r.repo.IDBySymbol(p.Symbol); taken {
		return 0, codes.ErrAssetAlreadyExists
	}
	auth, ok := r.auth.Authority()
	if !ok {
		return 0, codes.ErrNotAuthorized
	}

	// The fee moves first; a failed transfer leaves nothing behind.
	if r.settings.Fee > 0 {
		if err := r.bank.Transfer(tx.Caller(), auth, r.settings.Fee); err != nil {
			return 0, err
		}
	}

	a := Asset{
		ID:              count,
		Symbol:          p.Symbol,
		MinDeposit:      p.MinDeposit,
		MaxDeposit:      p.MaxDeposit,
		YieldRate:       p.YieldRate,
		LockPeriod:      p.LockPeriod,
		PenaltyRate:     p.PenaltyRate,
		GovThreshold:    p.GovThreshold,
		CreatedAtHeight: tx.Height(),
		Creator:         tx.Caller(),
		Active:          true,
		Location:        p.Location,
		Currency:        p.Currency,
	}
	r.repo.Put(a)
	r.repo.IndexSymbol(a.Symbol, a.ID)
	r.repo.SetCount(count + 1)

	tx.Emit("asset-added", map[string]any{
		"id":       a.ID,
		"symbol":   a.Symbol,
		"creator":  string(a.Creator),
		"currency": string(a.Currency),
		"fee":      r.settings.Fee,
	})
	return a.ID, nil
}

func (r *Registry) UpdateAsset(tx *chain.Tx, id uint64, symbol string, minDeposit, maxDeposit uint64) error {
	a, ok := r.repo.Get(id)
	if !ok {
		return codes.ErrAssetNotFound
	}
	if err := authority.RequireCreator(tx.Caller(), a.Creator); err != nil {
		return err
	}
	if err := ValidateSymbol(symbol); err != nil {
		return err
	}
	if err := ValidateMinDeposit(minDeposit); err != nil {
		return err
	}
	if err := ValidateMaxDeposit(maxDeposit); err != nil {
		return err
	}
	if owner, taken := r.repo.IDBySymbol(symbol); taken && owner != id {
		return codes.ErrAssetAlreadyExists
	}

	if symbol != a.Symbol {
		r.repo.UnindexSymbol(a.Symbol)
		r.repo.IndexSymbol(symbol, id)
	}
	a.Symbol = symbol
	a.MinDeposit = minDeposit
	a.MaxDeposit = maxDeposit
	r.repo.Put(a)
	r.repo.PutUpdate(id, UpdateRecord{
		NewSymbol: symbol,
		NewMin:    minDeposit,
		NewMax:    maxDeposit,
		Height:    tx.Height(),
		Updater:   tx.Caller(),
	})

	tx.Emit("asset-updated", map[string]any{
		"id":          id,
		"symbol":      symbol,
		"min_deposit": minDeposit,
		"max_deposit": maxDeposit,
		"updater":     string(tx.Caller()),
	})
	return nil
}

func (r *Registry) SetAssetStatus(tx *chain.Tx, id uint64, active bool) error {
	a, ok := r.repo.Get(id)
	if !ok {
		return codes.ErrAssetNotFound
	}
	if err := authority.RequireCreator(tx.Caller(), a.Creator); err != nil {
		return err
	}
	a.Active = active
	r.repo.Put(a)
	tx.Emit("asset-status-changed", map[string]any{"id": id, "active": active})
	return nil
}

func (r *Registry) ProposeGovChange(tx *chain.Tx, id uint64, threshold uint64) error {
	a, ok := r.repo.Get(id)
	if !ok {
		return codes.ErrAssetNotFound
	}
	staked, ok := r.stakes.Staked(id, tx.Caller())
	if !ok || !authority.MeetsThreshold(staked, a.GovThreshold) {
		return codes.ErrNotAuthorized
	}
	if err := ValidateGovThreshold(threshold); err != nil {
		return err
	}
	prev := a.GovThreshold
	a.GovThreshold = threshold
	r.repo.Put(a)
	tx.Emit("gov-threshold-changed", map[string]any{
		"id":        id,
		"previous":  prev,
		"threshold": threshold,
		"proposer":  string(tx.Caller()),
	})
	return nil
}
