package contract

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/loangraph/microlend/internal/chain"
)

// ArgError is a malformed call, rejected before it reaches the ledger.
type ArgError struct {
	Index  int
	Reason string
}

func (e *ArgError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid arguments: %s", e.Reason)
	}
	return fmt.Sprintf("invalid argument %d: %s", e.Index, e.Reason)
}

// Args are positional JSON values.
type Args []json.RawMessage

// Uint accepts a JSON number or a decimal string, so amounts above 2^53
// survive JavaScript clients.
func (a Args) Uint(i int) (uint64, error) {
	raw, err := a.at(i)
	if err != nil {
		return 0, err
	}
	var n uint64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, &ArgError{Index: i, Reason: "expected unsigned integer"}
	}
	n, err = strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, &ArgError{Index: i, Reason: "expected unsigned integer"}
	}
	return n, nil
}

func (a Args) String(i int) (string, error) {
	raw, err := a.at(i)
	if err != nil {
		return "", err
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", &ArgError{Index: i, Reason: "expected string"}
	}
	return s, nil
}

func (a Args) Bool(i int) (bool, error) {
	raw, err := a.at(i)
	if err != nil {
		return false, err
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false, &ArgError{Index: i, Reason: "expected boolean"}
	}
	return b, nil
}

func (a Args) Principal(i int) (chain.Principal, error) {
	s, err := a.String(i)
	if err != nil {
		return "", err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", &ArgError{Index: i, Reason: "empty principal"}
	}
	return chain.Principal(s), nil
}

func (a Args) at(i int) (json.RawMessage, error) {
	if i < 0 || i >= len(a) {
		return nil, &ArgError{Index: i, Reason: "missing"}
	}
	return a[i], nil
}

// uints decodes the first n arguments as unsigned integers.
func (a Args) uints(n int) ([]uint64, error) {
	out := make([]uint64, n)
	for i := 0; i < n; i++ {
		v, err := a.Uint(i)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
