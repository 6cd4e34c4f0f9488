package docstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// Memory is an in-process Store with the same versioned-commit semantics as
// the DynamoDB implementation. It backs tests and local development.
type Memory struct {
	mu   sync.Mutex
	cols map[string]map[string]*memEntry
}

type memEntry struct {
	doc Doc
	ver int64
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{cols: make(map[string]map[string]*memEntry)}
}

func (m *Memory) Get(_ context.Context, col, key string) (Doc, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.cols[col][key]
	if !ok {
		return nil, ErrDocMissing
	}
	return cloneDoc(e.doc), nil
}

func (m *Memory) Query(_ context.Context, q Query) ([]Doc, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	docs, _ := m.queryLocked(q)
	return docs, nil
}

func (m *Memory) RunTransaction(ctx context.Context, fn func(tx Tx) error) error {
	for attempt := 0; attempt < txAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		tx := &memTx{store: m, reads: make(map[[2]string]int64)}
		if err := fn(tx); err != nil {
			return err
		}
		if m.commit(tx) {
			return nil
		}
	}
	return ErrTxConflict
}

// queryLocked evaluates a query and returns matching docs plus their versions,
// in result order. Callers hold m.mu.
func (m *Memory) queryLocked(q Query) ([]Doc, []int64) {
	type hit struct {
		key string
		e   *memEntry
	}
	var hits []hit
	for key, e := range m.cols[q.Col] {
		if matches(e.doc, q.Filters) {
			hits = append(hits, hit{key, e})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		var less bool
		if q.OrderBy == "" {
			less = hits[i].key < hits[j].key
		} else {
			less = compareVals(hits[i].e.doc[q.OrderBy], hits[j].e.doc[q.OrderBy]) < 0
		}
		if q.Desc {
			return !less
		}
		return less
	})

	// Cursor semantics match DynamoDB's ExclusiveStartKey: resume from the
	// cursor's position in key order even when that key has been deleted
	// between pages.
	if q.StartAfter != "" {
		idx := 0
		for idx < len(hits) {
			k := hits[idx].key
			if k == q.StartAfter {
				idx++
				break
			}
			past := k > q.StartAfter
			if q.Desc {
				past = k < q.StartAfter
			}
			if past {
				break
			}
			idx++
		}
		hits = hits[idx:]
	}
	if q.Limit > 0 && len(hits) > q.Limit {
		hits = hits[:q.Limit]
	}

	docs := make([]Doc, 0, len(hits))
	vers := make([]int64, 0, len(hits))
	for _, h := range hits {
		d := cloneDoc(h.e.doc)
		d[KeyField] = h.key
		docs = append(docs, d)
		vers = append(vers, h.e.ver)
	}
	return docs, vers
}

// --- transaction ------------------------------------------------------------

type memOpKind int

const (
	opSet memOpKind = iota
	opPatch
	opDelete
	opIncrement
)

type memOp struct {
	kind  memOpKind
	col   string
	key   string
	doc   Doc
	field string
	delta int64
}

type memTx struct {
	store *Memory
	reads map[[2]string]int64 // (col,key) -> version seen; 0 = absent
	ops   []memOp
}

func (t *memTx) Get(col, key string) (Doc, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	e, ok := t.store.cols[col][key]
	if !ok {
		t.reads[[2]string{col, key}] = 0
		return nil, ErrDocMissing
	}
	t.reads[[2]string{col, key}] = e.ver
	return cloneDoc(e.doc), nil
}

func (t *memTx) Query(q Query) ([]Doc, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	docs, vers := t.store.queryLocked(q)
	for i, d := range docs {
		t.reads[[2]string{q.Col, AsString(d[KeyField])}] = vers[i]
	}
	return docs, nil
}

func (t *memTx) Set(col, key string, doc Doc) {
	t.ops = append(t.ops, memOp{kind: opSet, col: col, key: key, doc: cloneDoc(doc)})
}

func (t *memTx) Patch(col, key string, fields Doc) {
	t.ops = append(t.ops, memOp{kind: opPatch, col: col, key: key, doc: cloneDoc(fields)})
}

func (t *memTx) Delete(col, key string) {
	t.ops = append(t.ops, memOp{kind: opDelete, col: col, key: key})
}

func (t *memTx) Increment(col, key, field string, delta int64) {
	t.ops = append(t.ops, memOp{kind: opIncrement, col: col, key: key, field: field, delta: delta})
}

// commit validates every registered read and applies staged ops atomically.
// Returns false when the attempt must be retried.
func (m *Memory) commit(t *memTx) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for rk, seen := range t.reads {
		e, ok := m.cols[rk[0]][rk[1]]
		switch {
		case !ok && seen != 0:
			return false
		case ok && e.ver != seen:
			return false
		}
	}
	// Increments never create documents; a vanished target fails the attempt.
	for _, op := range t.ops {
		if op.kind == opIncrement {
			if _, ok := m.cols[op.col][op.key]; !ok {
				return false
			}
		}
	}

	for _, op := range t.ops {
		col := m.cols[op.col]
		if col == nil {
			col = make(map[string]*memEntry)
			m.cols[op.col] = col
		}
		switch op.kind {
		case opSet:
			ver := int64(1)
			if e, ok := col[op.key]; ok {
				ver = e.ver + 1
			}
			col[op.key] = &memEntry{doc: cloneDoc(op.doc), ver: ver}
		case opPatch:
			e, ok := col[op.key]
			if !ok {
				e = &memEntry{doc: Doc{}}
				col[op.key] = e
			}
			for k, v := range op.doc {
				e.doc[k] = v
			}
			e.ver++
		case opDelete:
			delete(col, op.key)
		case opIncrement:
			e := col[op.key]
			e.doc[op.field] = AsInt(e.doc[op.field]) + op.delta
			e.ver++
		}
	}
	return true
}

// --- evaluation helpers -----------------------------------------------------

func matches(d Doc, filters []Filter) bool {
	for _, f := range filters {
		v, ok := d[f.Field]
		if !ok {
			return false
		}
		switch f.Op {
		case OpEq:
			if compareVals(v, f.Value) != 0 {
				return false
			}
		case OpGTE:
			if compareVals(v, f.Value) < 0 {
				return false
			}
		case OpLT:
			if compareVals(v, f.Value) >= 0 {
				return false
			}
		case OpContains:
			want := AsString(f.Value)
			found := false
			for _, s := range AsStringSlice(v) {
				if s == want {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func compareVals(a, b any) int {
	if isNumeric(a) && isNumeric(b) {
		return AsDecimal(a).Cmp(AsDecimal(b))
	}
	return strings.Compare(AsString(a), AsString(b))
}

func isNumeric(v any) bool {
	switch v.(type) {
	case int, int64, float64, decimal.Decimal:
		return true
	}
	return false
}

func cloneDoc(d Doc) Doc {
	out := make(Doc, len(d))
	for k, v := range d {
		out[k] = cloneVal(v)
	}
	return out
}

func cloneVal(v any) any {
	switch x := v.(type) {
	case Doc:
		return cloneDoc(x)
	case map[string]any:
		return cloneDoc(Doc(x))
	case []string:
		return append([]string(nil), x...)
	case []Doc:
		out := make([]Doc, len(x))
		for i, d := range x {
			out[i] = cloneDoc(d)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = cloneVal(e)
		}
		return out
	}
	return v
}
