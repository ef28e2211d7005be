package pool

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/loangraph/microlend/internal/chain"
	"github.com/loangraph/microlend/internal/domain/asset"
)

const (
	BasisPoints  = 10000
	YieldDivisor = 1_000_000
)

// PositionKey addresses one depositor's stake in one asset.
type PositionKey struct {
	AssetID   uint64
	Depositor chain.Principal
}

func (k PositionKey) String() string {
	return fmt.Sprintf("%d/%s", k.AssetID, k.Depositor)
}

func ParsePositionKey(s string) (PositionKey, error) {
	rawID, who, ok := strings.Cut(s, "/")
	if !ok {
		return PositionKey{}, fmt.Errorf("malformed position key %q", s)
	}
	id, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil {
		return PositionKey{}, err
	}
	return PositionKey{AssetID: id, Depositor: chain.Principal(who)}, nil
}

type Position struct {
	Staked            uint64 `json:"staked"`
	YieldAccrued      uint64 `json:"yield_accrued"`
	LastDepositHeight uint64 `json:"last_deposit_height"`
	LockedUntilHeight uint64 `json:"locked_until_height"`
}

type Withdrawal struct {
	Amount  uint64 `json:"amount"`
	Net     uint64 `json:"net"`
	Penalty uint64 `json:"penalty"`
	Burned  uint64 `json:"burned"`
}

type Repository interface {
	Get(k PositionKey) (Position, bool)
	Put(k PositionKey, p Position)
	Paused() bool
	SetPaused(paused bool)
}

type AssetSource interface {
	Get(id uint64) (asset.Asset, bool)
}
