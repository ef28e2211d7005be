package chain

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Principal is an authenticated caller or contract identity.
type Principal string

// Batch is everything one committed transaction wrote.
type Batch struct {
	TxID    string
	Height  uint64
	Caller  Principal
	Changes []Change
	Events  []Event
}

// Sink persists a batch before it becomes visible in memory. A Sink error
// aborts the transaction.
type Sink interface {
	Persist(ctx context.Context, b Batch) error
}

// HeightSink is implemented by sinks that also record height advances made
// outside of transactions.
type HeightSink interface {
	PersistHeight(ctx context.Context, height uint64) error
}

type Listener func(events []Event)

type Option func(*Host)

func WithSink(s Sink) Option {
	return func(h *Host) { h.sink = s }
}

func WithLogger(l *slog.Logger) Option {
	return func(h *Host) { h.logger = l }
}

func WithHeight(height uint64) Option {
	return func(h *Host) { h.height = height }
}

// Host serializes every ledger call. Each Execute is all-or-nothing.
type Host struct {
	mu        sync.Mutex
	height    uint64
	tables    []journal
	byName    map[string]journal
	sink      Sink
	listeners []Listener
	logger    *slog.Logger
}

func NewHost(opts ...Option) *Host {
	h := &Host{
		byName: map[string]journal{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Host) register(j journal) {
	if _, dup := h.byName[j.tableName()]; dup {
		panic(fmt.Sprintf("chain: duplicate table %q", j.tableName()))
	}
	h.tables = append(h.tables, j)
	h.byName[j.tableName()] = j
}

func (h *Host) Subscribe(l Listener) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, l)
}

func (h *Host) Height() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.height
}

// Advance moves the height forward by n.
func (h *Host) Advance(ctx context.Context, n uint64) (uint64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.height+n < h.height {
		return h.height, fmt.Errorf("advance by %d overflows height %d", n, h.height)
	}
	return h.setHeightLocked(ctx, h.height+n)
}

// SetHeight jumps to height. Heights never decrease.
func (h *Host) SetHeight(ctx context.Context, height uint64) (uint64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if height < h.height {
		return h.height, fmt.Errorf("height %d is behind current %d", height, h.height)
	}
	return h.setHeightLocked(ctx, height)
}

func (h *Host) setHeightLocked(ctx context.Context, height uint64) (uint64, error) {
	if hs, ok := h.sink.(HeightSink); ok {
		if err := hs.PersistHeight(ctx, height); err != nil {
			return h.height, fmt.Errorf("persist height: %w", err)
		}
	}
	h.height = height
	return h.height, nil
}

// Execute runs fn as one atomic transaction on behalf of caller.
func (h *Host) Execute(ctx context.Context, caller Principal, fn func(tx *Tx) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	tx := &Tx{
		id:             uuid.NewString(),
		caller:         caller,
		contractCaller: caller,
		height:         h.height,
	}
	if err := fn(tx); err != nil {
		h.rollbackLocked()
		return err
	}

	batch := Batch{TxID: tx.id, Height: tx.height, Caller: caller, Events: tx.events}
	for _, t := range h.tables {
		ch, err := t.changes()
		if err != nil {
			h.rollbackLocked()
			return err
		}
		batch.Changes = append(batch.Changes, ch...)
	}

	if h.sink != nil {
		if err := h.sink.Persist(ctx, batch); err != nil {
			h.rollbackLocked()
			return fmt.Errorf("persist tx %s: %w", tx.id, err)
		}
	}
	for _, t := range h.tables {
		t.commit()
	}

	names := make([]string, 0, len(batch.Events))
	for _, ev := range batch.Events {
		names = append(names, ev.Name)
	}
	h.logger.Debug("tx committed", "tx_id", tx.id, "height", tx.height, "caller", string(caller), "events", names, "rows", len(batch.Changes))
	if len(batch.Events) > 0 {
		for _, l := range h.listeners {
			l(batch.Events)
		}
	}
	return nil
}

// Query runs a read-only callback against committed state.
func (h *Host) Query(fn func(height uint64)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fn(h.height)
}

// Restore loads journaled rows straight into committed state. Only valid
// before the host starts serving calls.
func (h *Host) Restore(rows []Change, height uint64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, row := range rows {
		t, ok := h.byName[row.Table]
		if !ok {
			return fmt.Errorf("restore: unknown table %q", row.Table)
		}
		if err := t.restore(row.Key, row.Payload); err != nil {
			return err
		}
	}
	if height > h.height {
		h.height = height
	}
	return nil
}

func (h *Host) rollbackLocked() {
	for _, t := range h.tables {
		t.rollback()
	}
}

// Tx is the view of the host handed to a running call.
type Tx struct {
	id             string
	caller         Principal
	contractCaller Principal
	height         uint64
	events         []Event
}

func (tx *Tx) ID() string { return tx.id }

// Caller is the principal that submitted the call.
func (tx *Tx) Caller() Principal { return tx.caller }

// ContractCaller is the immediate caller: the submitting principal, or the
// contract identity inside AsContract.
func (tx *Tx) ContractCaller() Principal { return tx.contractCaller }

func (tx *Tx) Height() uint64 { return tx.height }

func (tx *Tx) AsContract(p Principal, fn func() error) error {
	prev := tx.contractCaller
	tx.contractCaller = p
	defer func() { tx.contractCaller = prev }()
	return fn()
}

func (tx *Tx) Emit(name string, fields map[string]any) {
	seq := len(tx.events)
	tx.events = append(tx.events, Event{
		TxID:        tx.id,
		Seq:         seq,
		Height:      tx.height,
		Name:        name,
		Fields:      fields,
		Fingerprint: fingerprint(tx.id, seq, name),
	})
}

func (tx *Tx) Events() []Event { return tx.events }
