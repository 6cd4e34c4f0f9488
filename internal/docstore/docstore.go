// Package docstore is a small document-store abstraction: per-tenant
// collections of keyed documents with snapshot-read optimistic transactions.
// The production implementation runs on DynamoDB; an in-memory implementation
// with the same commit semantics backs tests and local development.
package docstore

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// KeyField is the reserved document field carrying the document key on reads.
const KeyField = "_key"

// versionField is the store-managed optimistic lock counter. It never appears
// in documents handed back to callers.
const versionField = "_v"

var (
	// ErrDocMissing is returned when a read references an absent document.
	ErrDocMissing = errors.New("docstore: document missing")

	// ErrTxConflict is returned when a transaction could not commit after
	// bounded retries because read documents kept changing underneath it.
	ErrTxConflict = errors.New("docstore: transaction conflict")
)

// Doc is one document. Values are limited to string, bool, int64, float64,
// decimal.Decimal, []string, []Doc and nested Doc.
type Doc map[string]any

// FilterOp enumerates the supported query operators.
type FilterOp string

const (
	OpEq       FilterOp = "=="
	OpGTE      FilterOp = ">="
	OpLT       FilterOp = "<"
	OpContains FilterOp = "contains" // membership in a []string field
)

// Filter restricts a query to documents matching one predicate.
type Filter struct {
	Field string
	Op    FilterOp
	Value any
}

// Query describes a collection read. The zero OrderBy sorts by document key.
// StartAfter is an opaque cursor: the last-seen document key.
type Query struct {
	Col        string
	Filters    []Filter
	OrderBy    string
	Desc       bool
	Limit      int
	StartAfter string
}

// Tx is the handle passed to a transaction function. Reads observe a
// consistent snapshot and register the documents they saw; staged writes are
// applied atomically at commit, and the commit fails if any read document
// changed since it was read.
type Tx interface {
	// Get reads one document, registering it for conflict detection.
	// Absent documents return ErrDocMissing (absence is also registered:
	// a concurrent create conflicts the transaction).
	Get(col, key string) (Doc, error)

	// Query runs a collection query inside the transaction; every returned
	// document is registered for conflict detection.
	Query(q Query) ([]Doc, error)

	// Set stages a full-document write.
	Set(col, key string, doc Doc)

	// Patch stages a field-level merge into the document, creating it if
	// absent.
	Patch(col, key string, fields Doc)

	// Delete stages a document removal.
	Delete(col, key string)

	// Increment stages a commutative numeric add on one field. It does not
	// register a version check, so it never conflicts with unrelated
	// concurrent writers, but it requires the document to exist: an
	// increment staged against a vanished document fails the transaction.
	// Stub documents are never created.
	Increment(col, key, field string, delta int64)
}

// Store is the document-store client surface consumed by repositories.
type Store interface {
	// Get reads one document outside any transaction.
	Get(ctx context.Context, col, key string) (Doc, error)

	// Query reads a collection outside any transaction.
	Query(ctx context.Context, q Query) ([]Doc, error)

	// RunTransaction executes fn against a transaction handle and commits
	// its staged writes atomically. On optimistic conflict the function is
	// re-run from scratch a bounded number of times before ErrTxConflict
	// is returned. Any other error from fn aborts immediately and is
	// returned unwrapped.
	RunTransaction(ctx context.Context, fn func(tx Tx) error) error
}

// txAttempts bounds optimistic retries, mirroring the hosted store's policy.
const txAttempts = 5

// --- value coercion helpers -------------------------------------------------
//
// Numeric fields round-trip through the backends as different concrete types
// (int64 in memory, decimal out of DynamoDB). Repositories use these helpers
// instead of asserting concrete types.

// AsString returns the field as a string, or "" when absent or mistyped.
func AsString(v any) string {
	s, _ := v.(string)
	return s
}

// AsInt returns the field as an int64.
func AsInt(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case decimal.Decimal:
		return n.IntPart()
	}
	return 0
}

// AsDecimal returns the field as a decimal, Zero when absent.
func AsDecimal(v any) decimal.Decimal {
	switch n := v.(type) {
	case decimal.Decimal:
		return n
	case int64:
		return decimal.NewFromInt(n)
	case int:
		return decimal.NewFromInt(int64(n))
	case float64:
		return decimal.NewFromFloat(n)
	case string:
		d, err := decimal.NewFromString(n)
		if err == nil {
			return d
		}
	}
	return decimal.Zero
}

// AsStringSlice returns the field as a []string.
func AsStringSlice(v any) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, e := range s {
			if str, ok := e.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

// AsDocSlice returns the field as a []Doc.
func AsDocSlice(v any) []Doc {
	switch s := v.(type) {
	case []Doc:
		return s
	case []any:
		out := make([]Doc, 0, len(s))
		for _, e := range s {
			switch d := e.(type) {
			case Doc:
				out = append(out, d)
			case map[string]any:
				out = append(out, Doc(d))
			}
		}
		return out
	}
	return nil
}
