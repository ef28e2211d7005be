// Package memory implements the domain repositories on transactional host
// tables. Every write is staged until the surrounding call commits.
package memory

import (
	"github.com/loangraph/microlend/internal/chain"
	"github.com/loangraph/microlend/internal/domain/asset"
	"github.com/loangraph/microlend/internal/domain/authority"
	"github.com/loangraph/microlend/internal/domain/loan"
	"github.com/loangraph/microlend/internal/domain/pool"
)

const (
	metaKey         = "meta"
	pausedKey       = "paused"
	TableRoles      = "roles"
	TableAssets     = "assets"
	TableSymbols    = "assets_by_symbol"
	TableAssetAudit = "asset_updates"
	TableAssetMeta  = "asset_meta"
	TablePositions  = "pool_positions"
	TablePoolFlags  = "pool_flags"
	TableLoans      = "loans"
	TableRepayments = "loan_repayments"
	TableLoanStats  = "loan_stats"
	TableLoanConfig = "loan_settings"
)

type RoleRepository struct {
	rows *chain.Table[authority.Role, chain.Principal]
}

func NewRoleRepository(h *chain.Host) *RoleRepository {
	return &RoleRepository{rows: chain.NewTable[authority.Role, chain.Principal](h, TableRoles, chain.StringKeys[authority.Role]())}
}

func (r *RoleRepository) Get(role authority.Role) (chain.Principal, bool) {
	return r.rows.Get(role)
}

func (r *RoleRepository) Set(role authority.Role, p chain.Principal) {
	r.rows.Put(role, p)
}

type AssetRepository struct {
	assets  *chain.Table[uint64, asset.Asset]
	symbols *chain.Table[string, uint64]
	audit   *chain.Table[uint64, asset.UpdateRecord]
	meta    *chain.Table[string, uint64]
}

func NewAssetRepository(h *chain.Host) *AssetRepository {
	return &AssetRepository{
		assets:  chain.NewTable[uint64, asset.Asset](h, TableAssets, chain.Uint64Keys()),
		symbols: chain.NewTable[string, uint64](h, TableSymbols, chain.StringKeys[string]()),
		audit:   chain.NewTable[uint64, asset.UpdateRecord](h, TableAssetAudit, chain.Uint64Keys()),
		meta:    chain.NewTable[string, uint64](h, TableAssetMeta, chain.StringKeys[string]()),
	}
}

func (r *AssetRepository) Get(id uint64) (asset.Asset, bool) { return r.assets.Get(id) }

func (r *AssetRepository) Put(a asset.Asset) { r.assets.Put(a.ID, a) }

func (r *AssetRepository) List() []asset.Asset {
	out := make([]asset.Asset, 0)
	r.assets.Range(func(_ uint64, a asset.Asset) bool {
		out = append(out, a)
		return true
	})
	return out
}

func (r *AssetRepository) IDBySymbol(symbol string) (uint64, bool) { return r.symbols.Get(symbol) }

func (r *AssetRepository) IndexSymbol(symbol string, id uint64) { r.symbols.Put(symbol, id) }

func (r *AssetRepository) UnindexSymbol(symbol string) { r.symbols.Delete(symbol) }

func (r *AssetRepository) Count() uint64 {
	n, _ := r.meta.Get(metaKey)
	return n
}

func (r *AssetRepository) SetCount(n uint64) { r.meta.Put(metaKey, n) }

func (r *AssetRepository) LastUpdate(id uint64) (asset.UpdateRecord, bool) { return r.audit.Get(id) }

func (r *AssetRepository) PutUpdate(id uint64, rec asset.UpdateRecord) { r.audit.Put(id, rec) }

type PositionRepository struct {
	positions *chain.Table[pool.PositionKey, pool.Position]
	flags     *chain.Table[string, bool]
}

func NewPositionRepository(h *chain.Host) *PositionRepository {
	codec := chain.KeyCodec[pool.PositionKey]{
		Encode: func(k pool.PositionKey) string { return k.String() },
		Decode: pool.ParsePositionKey,
		Less: func(a, b pool.PositionKey) bool {
			if a.AssetID != b.AssetID {
				return a.AssetID < b.AssetID
			}
			return a.Depositor < b.Depositor
		},
	}
	return &PositionRepository{
		positions: chain.NewTable[pool.PositionKey, pool.Position](h, TablePositions, codec),
		flags:     chain.NewTable[string, bool](h, TablePoolFlags, chain.StringKeys[string]()),
	}
}

func (r *PositionRepository) Get(k pool.PositionKey) (pool.Position, bool) { return r.positions.Get(k) }

func (r *PositionRepository) Put(k pool.PositionKey, p pool.Position) { r.positions.Put(k, p) }

func (r *PositionRepository) Paused() bool {
	v, _ := r.flags.Get(pausedKey)
	return v
}

func (r *PositionRepository) SetPaused(paused bool) { r.flags.Put(pausedKey, paused) }

type LoanRepository struct {
	loans      *chain.Table[uint64, loan.Loan]
	repayments *chain.Table[loan.RepaymentKey, loan.Repayment]
	stats      *chain.Table[string, loan.Stats]
	settings   *chain.Table[loan.Setting, uint64]
}

func NewLoanRepository(h *chain.Host) *LoanRepository {
	codec := chain.KeyCodec[loan.RepaymentKey]{
		Encode: func(k loan.RepaymentKey) string { return k.String() },
		Decode: loan.ParseRepaymentKey,
		Less: func(a, b loan.RepaymentKey) bool {
			if a.LoanID != b.LoanID {
				return a.LoanID < b.LoanID
			}
			return a.Seq < b.Seq
		},
	}
	return &LoanRepository{
		loans:      chain.NewTable[uint64, loan.Loan](h, TableLoans, chain.Uint64Keys()),
		repayments: chain.NewTable[loan.RepaymentKey, loan.Repayment](h, TableRepayments, codec),
		stats:      chain.NewTable[string, loan.Stats](h, TableLoanStats, chain.StringKeys[string]()),
		settings:   chain.NewTable[loan.Setting, uint64](h, TableLoanConfig, chain.StringKeys[loan.Setting]()),
	}
}

func (r *LoanRepository) Get(id uint64) (loan.Loan, bool) { return r.loans.Get(id) }

func (r *LoanRepository) Put(l loan.Loan) { r.loans.Put(l.ID, l) }

func (r *LoanRepository) GetRepayment(k loan.RepaymentKey) (loan.Repayment, bool) {
	return r.repayments.Get(k)
}

func (r *LoanRepository) PutRepayment(k loan.RepaymentKey, rp loan.Repayment) {
	r.repayments.Put(k, rp)
}

func (r *LoanRepository) Stats() loan.Stats {
	s, _ := r.stats.Get(metaKey)
	return s
}

func (r *LoanRepository) PutStats(s loan.Stats) { r.stats.Put(metaKey, s) }

func (r *LoanRepository) Setting(name loan.Setting) (uint64, bool) { return r.settings.Get(name) }

func (r *LoanRepository) PutSetting(name loan.Setting, v uint64) { r.settings.Put(name, v) }

var (
	_ authority.Repository = (*RoleRepository)(nil)
	_ asset.Repository     = (*AssetRepository)(nil)
	_ pool.Repository      = (*PositionRepository)(nil)
	_ loan.Repository      = (*LoanRepository)(nil)
)
