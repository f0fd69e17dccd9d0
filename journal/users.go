package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var (
	ErrUserExists   = errors.New("user already exists")
	ErrUserNotFound = errors.New("user not found")
)

type User struct {
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// CreateUser stores u. A taken username yields ErrUserExists.
func (j *SQLite) CreateUser(ctx context.Context, u User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?)`,
		u.Username, u.PasswordHash, formatTime(u.CreatedAt))
	if isConstraint(err) {
		return fmt.Errorf("%w: %s", ErrUserExists, u.Username)
	}
	return err
}

func (j *SQLite) GetUser(ctx context.Context, username string) (User, error) {
	var (
		u       User
		created string
	)
	err := j.db.QueryRowContext(ctx,
		`SELECT username, password_hash, created_at FROM users WHERE username = ?`, username,
	).Scan(&u.Username, &u.PasswordHash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return u, fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	if err != nil {
		return u, err
	}
	u.CreatedAt, err = parseTime(created)
	return u, err
}
