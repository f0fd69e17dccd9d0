package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rustyeddy/stratlab/pricing"
)

// SeriesInfo describes one cached ticker series.
type SeriesInfo struct {
	Ticker    string    `json:"ticker"`
	Source    string    `json:"source"`
	Bars      int       `json:"bars"`
	FirstDate string    `json:"first_date"`
	LastDate  string    `json:"last_date"`
	FetchedAt time.Time `json:"fetched_at"`
}

// HasBar reports whether ticker has a stored bar dated exactly day.
func (j *SQLite) HasBar(ctx context.Context, ticker string, day time.Time) (bool, error) {
	var n int
	err := j.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM prices WHERE ticker = ? AND date = ?`,
		ticker, pricing.FormatDate(day),
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("probe %s: %w", ticker, err)
	}
	return n > 0, nil
}

// ReplaceSeries swaps the whole stored series for ticker in a single
// transaction: readers see either the old series or the new one.
func (j *SQLite) ReplaceSeries(ctx context.Context, ticker, source string, bars []pricing.Candle) error {
	if len(bars) == 0 {
		return fmt.Errorf("replace %s: empty series", ticker)
	}
	return j.Scoped(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM prices WHERE ticker = ?`, ticker); err != nil {
			return fmt.Errorf("clear %s: %w", ticker, err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO prices (ticker, date, open, high, low, close, volume)
			VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, b := range bars {
			if _, err := stmt.ExecContext(ctx, ticker, b.Date(), b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
				return fmt.Errorf("insert %s %s: %w", ticker, b.Date(), err)
			}
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO price_series (ticker, source, bars, first_date, last_date, fetched_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(ticker) DO UPDATE SET
				source = excluded.source,
				bars = excluded.bars,
				first_date = excluded.first_date,
				last_date = excluded.last_date,
				fetched_at = excluded.fetched_at`,
			ticker, source, len(bars), bars[0].Date(), bars[len(bars)-1].Date(), formatTime(time.Now()))
		return err
	})
}

// ReadRange returns the stored bars with start <= date <= end, ascending.
func (j *SQLite) ReadRange(ctx context.Context, ticker string, start, end time.Time) ([]pricing.Candle, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT date, open, high, low, close, volume
		FROM prices
		WHERE ticker = ? AND date >= ? AND date <= ?
		ORDER BY date ASC`,
		ticker, pricing.FormatDate(start), pricing.FormatDate(end))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ticker, err)
	}
	defer rows.Close()

	out := []pricing.Candle{}
	for rows.Next() {
		var (
			c    pricing.Candle
			date string
		)
		if err := rows.Scan(&date, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, err
		}
		if c.Time, err = pricing.ParseDate(date); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListSeries describes every cached ticker, sorted by ticker.
func (j *SQLite) ListSeries(ctx context.Context) ([]SeriesInfo, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT ticker, source, bars, first_date, last_date, fetched_at
		FROM price_series
		ORDER BY ticker ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SeriesInfo
	for rows.Next() {
		var (
			s       SeriesInfo
			fetched string
		)
		if err := rows.Scan(&s.Ticker, &s.Source, &s.Bars, &s.FirstDate, &s.LastDate, &fetched); err != nil {
			return nil, err
		}
		if s.FetchedAt, err = parseTime(fetched); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
