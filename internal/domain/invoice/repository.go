package invoice

import (
	"context"
	"strings"
)

// Repository persists invoice records keyed by invoice number.
// Save is a keyed upsert of the whole record.
type Repository interface {
	FindAll(ctx context.Context) (map[string]*Record, error)
	FindByNumber(ctx context.Context, number string) (*Record, error)
	Save(ctx context.Context, record *Record) error
}

// Counter stores the sequence value of the last auto-assigned number
type Counter interface {
	Current(ctx context.Context) (int, error)
	Store(ctx context.Context, n int) error
}

// StatusFilter selects records by paid status
type StatusFilter string

const (
	StatusAll    StatusFilter = "all"
	StatusPaid   StatusFilter = "paid"
	StatusUnpaid StatusFilter = "unpaid"
)

// ParseStatusFilter parses a filter name; empty means all
func ParseStatusFilter(s string) (StatusFilter, bool) {
	switch StatusFilter(strings.ToLower(strings.TrimSpace(s))) {
	case "", StatusAll:
		return StatusAll, true
	case StatusPaid:
		return StatusPaid, true
	case StatusUnpaid:
		return StatusUnpaid, true
	}
	return "", false
}

// Matches reports whether the record passes the filter
func (f StatusFilter) Matches(r *Record) bool {
	switch f {
	case StatusPaid:
		return r.MarkAsPaid
	case StatusUnpaid:
		return !r.MarkAsPaid
	default:
		return true
	}
}
