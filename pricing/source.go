package pricing

import (
	"context"
	"errors"
	"fmt"
)

// ErrTickerNotFound matches every TickerNotFoundError via errors.Is.
var ErrTickerNotFound = errors.New("ticker not found")

// TickerNotFoundError reports that the price source has no data for a
// symbol. It is the one condition a caller can fix by choosing another
// ticker.
type TickerNotFoundError struct {
	Ticker string
}

func (e *TickerNotFoundError) Error() string {
	return fmt.Sprintf("ticker %q not found", e.Ticker)
}

func (e *TickerNotFoundError) Is(target error) bool {
	return target == ErrTickerNotFound
}

// Source returns the full daily history of a ticker with both unadjusted and
// adjusted close. Implementations return *TickerNotFoundError when the
// vendor has nothing for the symbol.
type Source interface {
	Name() string
	FetchDaily(ctx context.Context, ticker string) ([]RawBar, error)
}
