// Package id issues time-sortable run identifiers.
package id

import (
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// New returns a ULID for the current time. Ids issued within the same
// millisecond still sort in issue order.
func New() string {
	return ulid.Make().String()
}

// NewAt returns a ULID stamped with t.
func NewAt(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), ulid.DefaultEntropy()).String()
}

// Time returns the timestamp encoded in a run id.
func Time(s string) (time.Time, error) {
	u, err := ulid.ParseStrict(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad run id %q: %w", s, err)
	}
	return ulid.Time(u.Time()).UTC(), nil
}
