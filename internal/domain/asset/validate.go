package asset

import "github.com/loangraph/microlend/internal/domain/codes"

func ValidateSymbol(symbol string) error {
	if len(symbol) == 0 || len(symbol) > MaxSymbolLen {
		return codes.ErrInvalidSymbol
	}
	return nil
}

func ValidateMinDeposit(v uint64) error {
	if v == 0 {
		return codes.ErrInvalidMinDeposit
	}
	return nil
}

func ValidateMaxDeposit(v uint64) error {
	if v == 0 {
		return codes.ErrInvalidMaxDeposit
	}
	return nil
}

func ValidateYieldRate(bp uint64) error {
	if bp > MaxYieldRateBP {
		return codes.ErrInvalidYieldRate
	}
	return nil
}

func ValidateLockPeriod(heights uint64) error {
	if heights == 0 {
		return codes.ErrInvalidLockPeriod
	}
	return nil
}

func ValidatePenaltyRate(bp uint64) error {
	if bp > MaxPenaltyRateBP {
		return codes.ErrInvalidPenaltyRate
	}
	return nil
}

func ValidateGovThreshold(v uint64) error {
	if v < MinGovThreshold || v > MaxGovThreshold {
		return codes.ErrInvalidGovThreshold
	}
	return nil
}

func ValidateLocation(location string) error {
	if len(location) == 0 || len(location) > MaxLocationLen {
		return codes.ErrInvalidLocation
	}
	return nil
}

func ValidateCurrency(c Currency) error {
	for _, known := range Currencies {
		if c == known {
			return nil
		}
	}
	return codes.ErrInvalidCurrency
}

// ValidateParams checks every field in a fixed order and returns the first
// failure.
func ValidateParams(p Params) error {
	checks := []func() error{
		func() error { return ValidateSymbol(p.Symbol) },
		func() error { return ValidateMinDeposit(p.MinDeposit) },
		func() error { return ValidateMaxDeposit(p.MaxDeposit) },
		func() error { return ValidateYieldRate(p.YieldRate) },
		func() error { return ValidateLockPeriod(p.LockPeriod) },
		func() error { return ValidatePenaltyRate(p.PenaltyRate) },
		func() error { return ValidateGovThreshold(p.GovThreshold) },
		func() error { return ValidateLocation(p.Location) },
		func() error { return ValidateCurrency(p.Currency) },
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}
