package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rustyeddy/stratlab/strategies"
)

// SyncCatalog replaces the stored strategy catalog with descs.
func (j *SQLite) SyncCatalog(ctx context.Context, descs []strategies.Descriptor) error {
	return j.Scoped(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM strategies`); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO strategies (id, display_name, description, params)
			VALUES (?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, d := range descs {
			params, err := json.Marshal(d.Params)
			if err != nil {
				return err
			}
			if _, err := stmt.ExecContext(ctx, d.ID, d.Name, d.Description, string(params)); err != nil {
				return fmt.Errorf("catalog %s: %w", d.ID, err)
			}
		}
		return nil
	})
}

// ListCatalog returns the stored catalog sorted by id.
func (j *SQLite) ListCatalog(ctx context.Context) ([]strategies.Descriptor, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, display_name, description, params FROM strategies ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []strategies.Descriptor
	for rows.Next() {
		var (
			d      strategies.Descriptor
			params string
		)
		if err := rows.Scan(&d.ID, &d.Name, &d.Description, &params); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(params), &d.Params); err != nil {
			return nil, fmt.Errorf("decode params of %s: %w", d.ID, err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
