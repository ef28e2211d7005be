// Package codes holds the numeric failure taxonomy shared by the pool and
// loan ledgers. 100s are pool authorization/validation, 1000s loan
// authorization, 3000s loan validation and state.
package codes

import (
	"errors"
	"fmt"
)

type Code uint32

const (
	ErrNotAuthorized       Code = 100
	ErrInvalidAmount       Code = 101
	ErrInsufficientBalance Code = 102
	ErrAssetNotFound       Code = 103
	ErrAssetAlreadyExists  Code = 104
	ErrPoolPaused          Code = 105
	ErrClaimNotReady       Code = 106
	ErrMaxAssetsExceeded   Code = 107
	ErrInvalidSymbol       Code = 108
	ErrInvalidMinDeposit   Code = 109
	ErrInvalidMaxDeposit   Code = 110
	ErrInvalidYieldRate    Code = 111
	ErrInvalidLockPeriod   Code = 112
	ErrInvalidPenaltyRate  Code = 113
	ErrInvalidGovThreshold Code = 114
	ErrInvalidLocation     Code = 115
	ErrInvalidCurrency     Code = 116

	ErrLoanNotAuthorized Code = 1000
	ErrLowScore          Code = 1001

	ErrLoanInvalidAmount     Code = 3000
	ErrInvalidDuration       Code = 3001
	ErrLoanNotFound          Code = 3002
	ErrLoanAlreadyApproved   Code = 3003
	ErrLoanNotApproved       Code = 3004
	ErrLoanAlreadyDisbursed  Code = 3005
	ErrLoanDefaulted         Code = 3006
	ErrRepaymentExceedsDue   Code = 3007
	ErrGracePeriodNotOver    Code = 3008
	ErrInvalidInterest       Code = 3009
)

var names = map[Code]string{
	ErrNotAuthorized:       "not_authorized",
	ErrInvalidAmount:       "invalid_amount",
	ErrInsufficientBalance: "insufficient_balance",
	ErrAssetNotFound:       "asset_not_found",
	ErrAssetAlreadyExists:  "asset_already_exists",
	ErrPoolPaused:          "pool_paused",
	ErrClaimNotReady:       "claim_not_ready",
	ErrMaxAssetsExceeded:   "max_assets_exceeded",
	ErrInvalidSymbol:       "invalid_symbol",
	ErrInvalidMinDeposit:   "invalid_min_deposit",
	ErrInvalidMaxDeposit:   "invalid_max_deposit",
	ErrInvalidYieldRate:    "invalid_yield_rate",
	ErrInvalidLockPeriod:   "invalid_lock_period",
	ErrInvalidPenaltyRate:  "invalid_penalty_rate",
	ErrInvalidGovThreshold: "invalid_gov_threshold",
	ErrInvalidLocation:     "invalid_location",
	ErrInvalidCurrency:     "invalid_currency",

	ErrLoanNotAuthorized: "loan_not_authorized",
	ErrLowScore:          "low_score",

	ErrLoanInvalidAmount:    "loan_invalid_amount",
	ErrInvalidDuration:      "invalid_duration",
	ErrLoanNotFound:         "loan_not_found",
	ErrLoanAlreadyApproved:  "loan_already_approved",
	ErrLoanNotApproved:      "loan_not_approved",
	ErrLoanAlreadyDisbursed: "loan_already_disbursed",
	ErrLoanDefaulted:        "loan_defaulted",
	ErrRepaymentExceedsDue:  "repayment_exceeds_due",
	ErrGracePeriodNotOver:   "grace_period_not_over",
	ErrInvalidInterest:      "invalid_interest",
}

func (c Code) Error() string {
	if name, ok := names[c]; ok {
		return name
	}
	return fmt.Sprintf("code_%d", uint32(c))
}

// Of extracts the ledger code from err. ok is false for infrastructure errors.
func Of(err error) (Code, bool) {
	var c Code
	if errors.As(err, &c) {
		return c, true
	}
	return 0, false
}
