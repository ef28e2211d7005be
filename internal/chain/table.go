package chain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// KeyCodec turns table keys into the stable strings used by the journal.
// Less orders keys for Range; when nil, encoded strings are compared.
type KeyCodec[K comparable] struct {
	Encode func(K) string
	Decode func(string) (K, error)
	Less   func(a, b K) bool
}

func StringKeys[K ~string]() KeyCodec[K] {
	return KeyCodec[K]{
		Encode: func(k K) string { return string(k) },
		Decode: func(s string) (K, error) { return K(s), nil },
	}
}

func Uint64Keys() KeyCodec[uint64] {
	return KeyCodec[uint64]{
		Encode: func(k uint64) string { return strconv.FormatUint(k, 10) },
		Decode: func(s string) (uint64, error) { return strconv.ParseUint(s, 10, 64) },
		Less:   func(a, b uint64) bool { return a < b },
	}
}

// Change is one journaled row write. A nil Payload is a delete.
type Change struct {
	Table   string
	Key     string
	Payload []byte
}

type journal interface {
	tableName() string
	changes() ([]Change, error)
	commit()
	rollback()
	restore(key string, payload []byte) error
}

// Table is a transactional map. Writes land in an overlay that Host.Execute
// either applies or discards. Access is guarded by the owning Host.
type Table[K comparable, V any] struct {
	name    string
	codec   KeyCodec[K]
	rows    map[K]V
	overlay map[K]*V
	touched []K
}

func NewTable[K comparable, V any](h *Host, name string, codec KeyCodec[K]) *Table[K, V] {
	t := &Table[K, V]{
		name:    name,
		codec:   codec,
		rows:    map[K]V{},
		overlay: map[K]*V{},
	}
	h.register(t)
	return t
}

func (t *Table[K, V]) Get(k K) (V, bool) {
	if v, ok := t.overlay[k]; ok {
		if v == nil {
			var zero V
			return zero, false
		}
		return *v, true
	}
	v, ok := t.rows[k]
	return v, ok
}

func (t *Table[K, V]) Has(k K) bool {
	_, ok := t.Get(k)
	return ok
}

func (t *Table[K, V]) Put(k K, v V) {
	t.touch(k)
	cp := v
	t.overlay[k] = &cp
}

func (t *Table[K, V]) Delete(k K) {
	t.touch(k)
	t.overlay[k] = nil
}

// Range visits committed rows merged with pending writes in key order.
func (t *Table[K, V]) Range(fn func(K, V) bool) {
	keys := make([]K, 0, len(t.rows)+len(t.overlay))
	seen := map[K]struct{}{}
	for k := range t.rows {
		keys = append(keys, k)
		seen[k] = struct{}{}
	}
	for k := range t.overlay {
		if _, ok := seen[k]; !ok {
			keys = append(keys, k)
		}
	}
	less := t.codec.Less
	if less == nil {
		less = func(a, b K) bool { return t.codec.Encode(a) < t.codec.Encode(b) }
	}
	sort.Slice(keys, func(i, j int) bool { return less(keys[i], keys[j]) })
	for _, k := range keys {
		v, ok := t.Get(k)
		if !ok {
			continue
		}
		if !fn(k, v) {
			return
		}
	}
}

func (t *Table[K, V]) touch(k K) {
	if _, ok := t.overlay[k]; !ok {
		t.touched = append(t.touched, k)
	}
}

func (t *Table[K, V]) tableName() string { return t.name }

func (t *Table[K, V]) changes() ([]Change, error) {
	out := make([]Change, 0, len(t.touched))
	for _, k := range t.touched {
		ch := Change{Table: t.name, Key: t.codec.Encode(k)}
		if v := t.overlay[k]; v != nil {
			payload, err := json.Marshal(*v)
			if err != nil {
				return nil, fmt.Errorf("encode %s/%s: %w", t.name, ch.Key, err)
			}
			ch.Payload = payload
		}
		out = append(out, ch)
	}
	return out, nil
}

func (t *Table[K, V]) commit() {
	for _, k := range t.touched {
		if v := t.overlay[k]; v != nil {
			t.rows[k] = *v
		} else {
			delete(t.rows, k)
		}
	}
	t.rollback()
}

func (t *Table[K, V]) rollback() {
	t.overlay = map[K]*V{}
	t.touched = t.touched[:0]
}

func (t *Table[K, V]) restore(key string, payload []byte) error {
	k, err := t.codec.Decode(key)
	if err != nil {
		return fmt.Errorf("decode key %s/%s: %w", t.name, key, err)
	}
	if payload == nil {
		delete(t.rows, k)
		return nil
	}
	var v V
	if err := json.Unmarshal(payload, &v); err != nil {
		return fmt.Errorf("decode row %s/%s: %w", t.name, key, err)
	}
	t.rows[k] = v
	return nil
}
