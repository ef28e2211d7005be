package contract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/loangraph/microlend/internal/chain"
	"github.com/loangraph/microlend/internal/domain/codes"
)

const (
	LiquidityPool = "liquidity-pool"
	LoanManager   = "loan-manager"
)

var (
	ErrUnknownContract = errors.New("unknown_contract")
	ErrUnknownMethod   = errors.New("unknown_method")
	ErrReadOnly        = errors.New("read_only_method")
)

// Call names one contract method and its positional arguments.
type Call struct {
	Contract string
	Method   string
	Caller   chain.Principal
	Args     Args
}

// Result is the tagged outcome of a call: a value on success or a numeric
// ledger code on failure. Transport errors are returned separately.
type Result struct {
	OK     bool
	Value  any
	Code   codes.Code
	Error  string
	TxID   string
	Height uint64
	Events []chain.Event
}

// MarshalJSON renders {"ok": value} on success and {"err": code, "error": name}
// on failure.
func (r Result) MarshalJSON() ([]byte, error) {
	if !r.OK {
		return json.Marshal(struct {
			Err    uint32 `json:"err"`
			Error  string `json:"error"`
			Height uint64 `json:"height"`
		}{uint32(r.Code), r.Error, r.Height})
	}
	return json.Marshal(struct {
		OK     any           `json:"ok"`
		TxID   string        `json:"tx_id,omitempty"`
		Height uint64        `json:"height"`
		Events []chain.Event `json:"events,omitempty"`
	}{r.Value, r.TxID, r.Height, r.Events})
}

type publicFn func(ctx context.Context, tx *chain.Tx, a Args) (any, error)

type readFn func(height uint64, a Args) (any, error)

type method struct {
	arity  int
	public publicFn
	read   readFn
}

func (m method) readOnly() bool { return m.read != nil }

type Dispatcher struct {
	sys       *System
	contracts map[string]map[string]method
	logger    *slog.Logger
}

func NewDispatcher(sys *System, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{sys: sys, logger: logger}
	d.contracts = map[string]map[string]method{
		LiquidityPool: poolMethods(sys),
		LoanManager:   loanMethods(sys),
	}
	return d
}

func (d *Dispatcher) System() *System { return d.sys }

// Methods lists a contract's methods, split by kind.
func (d *Dispatcher) Methods(contract string) (public []string, readOnly []string, err error) {
	methods, ok := d.contracts[contract]
	if !ok {
		return nil, nil, ErrUnknownContract
	}
	for name, m := range methods {
		if m.readOnly() {
			readOnly = append(readOnly, name)
		} else {
			public = append(public, name)
		}
	}
	sort.Strings(public)
	sort.Strings(readOnly)
	return public, readOnly, nil
}

func (d *Dispatcher) lookup(contract, name string) (method, error) {
	methods, ok := d.contracts[contract]
	if !ok {
		return method{}, ErrUnknownContract
	}
	m, ok := methods[name]
	if !ok {
		return method{}, ErrUnknownMethod
	}
	return m, nil
}

// Invoke executes a state-changing call as one ledger transaction.
func (d *Dispatcher) Invoke(ctx context.Context, call Call) (Result, error) {
	m, err := d.lookup(call.Contract, call.Method)
	if err != nil {
		return Result{}, err
	}
	if m.readOnly() {
		return Result{}, ErrReadOnly
	}
	if len(call.Args) != m.arity {
		return Result{}, &ArgError{Index: -1, Reason: fmt.Sprintf("%s expects %d arguments, got %d", call.Method, m.arity, len(call.Args))}
	}

	var (
		value  any
		txID   string
		height uint64
		events []chain.Event
	)
	err = d.sys.Host.Execute(ctx, call.Caller, func(tx *chain.Tx) error {
		txID, height = tx.ID(), tx.Height()
		v, err := m.public(ctx, tx, call.Args)
		if err != nil {
			return err
		}
		value, events = v, tx.Events()
		return nil
	})
	if err != nil {
		res, ferr := failure(err)
		if ferr != nil {
			return Result{}, ferr
		}
		res.Height = height
		d.logger.Info("call rejected", "contract", call.Contract, "method", call.Method, "caller", string(call.Caller), "code", uint32(res.Code), "error", res.Error)
		return res, nil
	}
	d.logger.Info("call committed", "contract", call.Contract, "method", call.Method, "caller", string(call.Caller), "tx_id", txID, "events", len(events))
	return Result{OK: true, Value: value, TxID: txID, Height: height, Events: events}, nil
}

// Read evaluates a read-only method against committed state.
func (d *Dispatcher) Read(ctx context.Context, call Call) (Result, error) {
	m, err := d.lookup(call.Contract, call.Method)
	if err != nil {
		return Result{}, err
	}
	if !m.readOnly() {
		return Result{}, ErrUnknownMethod
	}
	if len(call.Args) != m.arity {
		return Result{}, &ArgError{Index: -1, Reason: fmt.Sprintf("%s expects %d arguments, got %d", call.Method, m.arity, len(call.Args))}
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	var (
		value  any
		height uint64
	)
	d.sys.Host.Query(func(h uint64) {
		height = h
		value, err = m.read(h, call.Args)
	})
	if err != nil {
		res, ferr := failure(err)
		if ferr != nil {
			return Result{}, ferr
		}
		res.Height = height
		return res, nil
	}
	return Result{OK: true, Value: value, Height: height}, nil
}

// failure turns ledger codes into a failed Result and passes anything else
// through as a transport error.
func failure(err error) (Result, error) {
	if code, ok := codes.Of(err); ok {
		return Result{OK: false, Code: code, Error: code.Error()}, nil
	}
	return Result{}, err
}
