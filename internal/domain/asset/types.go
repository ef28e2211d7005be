package asset

import "github.com/loangraph/microlend/internal/chain"

type Currency string

const (
	CurrencySTX Currency = "STX"
	CurrencyBTC Currency = "BTC"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
)

var Currencies = []Currency{CurrencySTX, CurrencyBTC, CurrencyUSD, CurrencyEUR}

const (
	MaxSymbolLen     = 20
	MaxLocationLen   = 100
	MaxYieldRateBP   = 1000
	MaxPenaltyRateBP = 500
	MinGovThreshold  = 1
	MaxGovThreshold  = 100
)

type Asset struct {
	ID              uint64          `json:"id"`
	Symbol          string          `json:"symbol"`
	MinDeposit      uint64          `json:"min_deposit"`
	MaxDeposit      uint64          `json:"max_deposit"`
	YieldRate       uint64          `json:"yield_rate"`
	LockPeriod      uint64          `json:"lock_period"`
	PenaltyRate     uint64          `json:"penalty_rate"`
	GovThreshold    uint64          `json:"gov_threshold"`
	CreatedAtHeight uint64          `json:"created_at_height"`
	Creator         chain.Principal `json:"creator"`
	Active          bool            `json:"active"`
	Location        string          `json:"location"`
	Currency        Currency        `json:"currency"`
}

type Params struct {
	Symbol       string   `json:"symbol"`
	MinDeposit   uint64   `json:"min_deposit"`
	MaxDeposit   uint64   `json:"max_deposit"`
	YieldRate    uint64   `json:"yield_rate"`
	LockPeriod   uint64   `json:"lock_period"`
	PenaltyRate  uint64   `json:"penalty_rate"`
	GovThreshold uint64   `json:"gov_threshold"`
	Location     string   `json:"location"`
	Currency     Currency `json:"currency"`
}

// UpdateRecord is the single-slot audit entry for an asset's latest update.
type UpdateRecord struct {
	NewSymbol string          `json:"new_symbol"`
	NewMin    uint64          `json:"new_min"`
	NewMax    uint64          `json:"new_max"`
	Height    uint64          `json:"height"`
	Updater   chain.Principal `json:"updater"`
}

type Repository interface {
	Get(id uint64) (Asset, bool)
	Put(a Asset)
	List() []Asset
	IDBySymbol(symbol string) (uint64, bool)
	IndexSymbol(symbol string, id uint64)
	UnindexSymbol(symbol string)
	Count() uint64
	SetCount(n uint64)
	LastUpdate(id uint64) (UpdateRecord, bool)
	PutUpdate(id uint64, rec UpdateRecord)
}

// StakeReader exposes pool positions for governance threshold checks.
type StakeReader interface {
	Staked(assetID uint64, who chain.Principal) (uint64, bool)
}

// Bank moves native currency.
type Bank interface {
	Transfer(from, to chain.Principal, amount uint64) error
}

type Settings struct {
	MaxAssets uint64
	Fee       uint64
}
