package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/stratlab/backtest"
	"github.com/rustyeddy/stratlab/pricing"
	"github.com/rustyeddy/stratlab/session"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionNotFoundError reports a missing (owner, name) pair.
type SessionNotFoundError struct {
	Owner string
	Name  string
}

func (e *SessionNotFoundError) Error() string {
	return fmt.Sprintf("session %q not found for %q", e.Name, e.Owner)
}

func (e *SessionNotFoundError) Is(target error) bool { return target == ErrSessionNotFound }

// Save upserts s by (Owner, Name). An existing row is fully replaced, its
// trades included; nothing of the previous version survives.
//
// Save never grants permanence, only Rename does. A new row is stored
// ephemeral. Overwriting a permanent row keeps it permanent only when
// s.Permanent is set, so a replay can preserve it. s.Permanent is updated
// to the stored value.
func (j *SQLite) Save(ctx context.Context, s *session.Session) error {
	if err := s.Validate(); err != nil {
		return err
	}
	state, err := s.State.Encode()
	if err != nil {
		return err
	}
	opt, err := encodeOptional(s.OptValues)
	if err != nil {
		return err
	}
	var stats []byte
	if s.Stats != nil {
		if stats, err = json.Marshal(s.Stats); err != nil {
			return err
		}
	}
	s.UpdatedAt = time.Now().UTC()

	return j.Scoped(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO sessions
			(owner, name, strategy_id, ticker, start_date, end_date, frequency, commission,
			 engine_state, opt_values, stats, permanent, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?)
			ON CONFLICT(owner, name) DO UPDATE SET
				strategy_id = excluded.strategy_id,
				ticker = excluded.ticker,
				start_date = excluded.start_date,
				end_date = excluded.end_date,
				frequency = excluded.frequency,
				commission = excluded.commission,
				engine_state = excluded.engine_state,
				opt_values = excluded.opt_values,
				stats = excluded.stats,
				permanent = CASE WHEN ? THEN sessions.permanent ELSE 0 END,
				updated_at = excluded.updated_at`,
			s.Owner, s.Name, s.StrategyID, s.Ticker,
			pricing.FormatDate(s.Start), pricing.FormatDate(s.End),
			s.Frequency, s.Commission, string(state), opt, nullable(stats),
			formatTime(s.UpdatedAt), s.Permanent)
		if err != nil {
			return fmt.Errorf("upsert session %s/%s: %w", s.Owner, s.Name, err)
		}
		if err := tx.QueryRowContext(ctx,
			`SELECT permanent FROM sessions WHERE owner = ? AND name = ?`, s.Owner, s.Name,
		).Scan(&s.Permanent); err != nil {
			return err
		}
		return replaceTrades(ctx, tx, s.Owner, s.Name, s.Trades)
	})
}

func replaceTrades(ctx context.Context, tx *sql.Tx, owner, name string, trades []backtest.Trade) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM trades WHERE owner = ? AND session = ?`, owner, name); err != nil {
		return err
	}
	if len(trades) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trades
		(owner, session, seq, side, units, entry_bar, exit_bar, entry_price, exit_price,
		 open_time, close_time, realized_pl, return_pct, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, t := range trades {
		_, err := stmt.ExecContext(ctx, owner, name, i, t.Side, t.Units, t.EntryBar, t.ExitBar,
			t.EntryPrice, t.ExitPrice, formatTime(t.EntryTime), formatTime(t.ExitTime),
			t.PNL, t.ReturnPct, t.Reason)
		if err != nil {
			return fmt.Errorf("insert trade %d: %w", i, err)
		}
	}
	return nil
}

const sessionColumns = `owner, name, strategy_id, ticker, start_date, end_date, frequency, commission,
	engine_state, opt_values, stats, permanent, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(r rowScanner) (*session.Session, error) {
	var (
		s                   session.Session
		start, end, updated string
		state               string
		opt, stats          sql.NullString
	)
	err := r.Scan(&s.Owner, &s.Name, &s.StrategyID, &s.Ticker, &start, &end,
		&s.Frequency, &s.Commission, &state, &opt, &stats, &s.Permanent, &updated)
	if err != nil {
		return nil, err
	}

	if s.Start, err = pricing.ParseDate(start); err != nil {
		return nil, err
	}
	if s.End, err = pricing.ParseDate(end); err != nil {
		return nil, err
	}
	if s.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	if s.State, err = session.DecodeSnapshot([]byte(state)); err != nil {
		return nil, err
	}
	if opt.Valid {
		if err := json.Unmarshal([]byte(opt.String), &s.OptValues); err != nil {
			return nil, fmt.Errorf("decode opt_values: %w", err)
		}
	}
	if stats.Valid {
		s.Stats = new(backtest.Stats)
		if err := json.Unmarshal([]byte(stats.String), s.Stats); err != nil {
			return nil, fmt.Errorf("decode stats: %w", err)
		}
	}
	return &s, nil
}

// Load returns the session stored under (owner, name) with its trades.
func (j *SQLite) Load(ctx context.Context, owner, name string) (*session.Session, error) {
	row := j.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE owner = ? AND name = ?`, owner, name)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &SessionNotFoundError{Owner: owner, Name: name}
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s/%s: %w", owner, name, err)
	}

	if s.Trades, err = j.ListTrades(ctx, owner, name); err != nil {
		return nil, err
	}
	return s, nil
}

// List returns owner's sessions sorted by name, without trades.
func (j *SQLite) List(ctx context.Context, owner string) ([]*session.Session, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE owner = ? ORDER BY name ASC`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*session.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListTrades returns the trades stored with a session, in trade order.
func (j *SQLite) ListTrades(ctx context.Context, owner, name string) ([]backtest.Trade, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT side, units, entry_bar, exit_bar, entry_price, exit_price,
		       open_time, close_time, realized_pl, return_pct, reason
		FROM trades
		WHERE owner = ? AND session = ?
		ORDER BY seq ASC`, owner, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []backtest.Trade
	for rows.Next() {
		var (
			t           backtest.Trade
			open, close string
		)
		if err := rows.Scan(&t.Side, &t.Units, &t.EntryBar, &t.ExitBar, &t.EntryPrice, &t.ExitPrice,
			&open, &close, &t.PNL, &t.ReturnPct, &t.Reason); err != nil {
			return nil, err
		}
		if t.EntryTime, err = parseTime(open); err != nil {
			return nil, err
		}
		if t.ExitTime, err = parseTime(close); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Rename moves (owner, oldName) to newName and marks it permanent. It
// reports false when oldName does not exist. A session already stored
// under newName is replaced.
func (j *SQLite) Rename(ctx context.Context, owner, oldName, newName string) (bool, error) {
	if newName == "" {
		return false, errors.New("rename: new name is required")
	}

	var found bool
	err := j.Scoped(ctx, func(tx *sql.Tx) error {
		var n int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM sessions WHERE owner = ? AND name = ?`, owner, oldName,
		).Scan(&n); err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		found = true

		if newName != oldName {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM sessions WHERE owner = ? AND name = ?`, owner, newName); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx, `
			UPDATE sessions SET name = ?, permanent = 1, updated_at = ?
			WHERE owner = ? AND name = ?`,
			newName, formatTime(time.Now()), owner, oldName)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("rename session %s/%s: %w", owner, oldName, err)
	}
	return found, nil
}

// Delete removes one session and its trades.
func (j *SQLite) Delete(ctx context.Context, owner, name string) (bool, error) {
	res, err := j.db.ExecContext(ctx, `DELETE FROM sessions WHERE owner = ? AND name = ?`, owner, name)
	if err != nil {
		return false, fmt.Errorf("delete session %s/%s: %w", owner, name, err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// PurgeEphemeral deletes every non-permanent session of owner and returns
// how many were removed. Permanent sessions are never touched.
func (j *SQLite) PurgeEphemeral(ctx context.Context, owner string) (int64, error) {
	res, err := j.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE owner = ? AND permanent = 0`, owner)
	if err != nil {
		return 0, fmt.Errorf("purge sessions of %s: %w", owner, err)
	}
	return res.RowsAffected()
}

func encodeOptional(m map[string]float64) (any, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func nullable(b []byte) any {
	if b == nil {
		return nil
	}
	return string(b)
}
