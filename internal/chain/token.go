package chain

import "github.com/loangraph/microlend/internal/domain/codes"

const supplyKey = "total"

// Token is a fungible balance ledger stored in host tables.
type Token struct {
	symbol   string
	balances *Table[Principal, uint64]
	supply   *Table[string, uint64]
}

func NewToken(h *Host, symbol string) *Token {
	return &Token{
		symbol:   symbol,
		balances: NewTable[Principal, uint64](h, symbol+".balances", StringKeys[Principal]()),
		supply:   NewTable[string, uint64](h, symbol+".supply", StringKeys[string]()),
	}
}

func (t *Token) Symbol() string { return t.symbol }

func (t *Token) Balance(p Principal) uint64 {
	v, _ := t.balances.Get(p)
	return v
}

func (t *Token) Supply() uint64 {
	v, _ := t.supply.Get(supplyKey)
	return v
}

func (t *Token) Mint(to Principal, amount uint64) error {
	if amount == 0 {
		return codes.ErrInvalidAmount
	}
	supply := t.Supply()
	if supply+amount < supply {
		return codes.ErrInvalidAmount
	}
	t.supply.Put(supplyKey, supply+amount)
	t.balances.Put(to, t.Balance(to)+amount)
	return nil
}

func (t *Token) Burn(from Principal, amount uint64) error {
	if amount == 0 {
		return codes.ErrInvalidAmount
	}
	bal := t.Balance(from)
	if bal < amount {
		return codes.ErrInsufficientBalance
	}
	t.balances.Put(from, bal-amount)
	t.supply.Put(supplyKey, t.Supply()-amount)
	return nil
}

func (t *Token) Transfer(from, to Principal, amount uint64) error {
	if amount == 0 {
		return codes.ErrInvalidAmount
	}
	bal := t.Balance(from)
	if bal < amount {
		return codes.ErrInsufficientBalance
	}
	if from == to {
		return nil
	}
	t.balances.Put(from, bal-amount)
	t.balances.Put(to, t.Balance(to)+amount)
	return nil
}
