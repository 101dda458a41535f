package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"expensetracker/internal/alarm"
)

// AlarmRegistry keeps pending wake-ups in the alarms table so that the
// CLI and the daemon share them.
type AlarmRegistry struct {
	db *DB
}

func NewAlarmRegistry(db *DB) *AlarmRegistry {
	return &AlarmRegistry{db: db}
}

func (r *AlarmRegistry) Put(ctx context.Context, reg alarm.Registration) error {
	if reg.CreatedAt.IsZero() {
		reg.CreatedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO alarms (token, fire_at, precision, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(token) DO UPDATE SET
			fire_at = excluded.fire_at,
			precision = excluded.precision,
			created_at = excluded.created_at`,
		reg.Token, toMillis(reg.FireAt), string(reg.Precision), toMillis(reg.CreatedAt))
	if err != nil {
		return fmt.Errorf("put alarm %s: %w", reg.Token, err)
	}
	return nil
}

func (r *AlarmRegistry) Remove(ctx context.Context, token string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM alarms WHERE token = ?`, token); err != nil {
		return fmt.Errorf("remove alarm %s: %w", token, err)
	}
	return nil
}

func (r *AlarmRegistry) Get(ctx context.Context, token string) (*alarm.Registration, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT token, fire_at, precision, created_at FROM alarms WHERE token = ?`, token)
	reg, err := scanAlarm(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get alarm %s: %w", token, err)
	}
	return &reg, nil
}

func (r *AlarmRegistry) List(ctx context.Context) ([]alarm.Registration, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT token, fire_at, precision, created_at FROM alarms ORDER BY fire_at, token`)
	if err != nil {
		return nil, fmt.Errorf("list alarms: %w", err)
	}
	defer rows.Close()

	var out []alarm.Registration
	for rows.Next() {
		reg, err := scanAlarm(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, reg)
	}
	return out, rows.Err()
}

// Take deletes the row only while it still carries fireAt; a concurrent
// re-registration wins over a stale firing.
func (r *AlarmRegistry) Take(ctx context.Context, token string, fireAt time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM alarms WHERE token = ? AND fire_at = ?`, token, toMillis(fireAt))
	if err != nil {
		return false, fmt.Errorf("take alarm %s: %w", token, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *AlarmRegistry) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM alarms`); err != nil {
		return fmt.Errorf("clear alarms: %w", err)
	}
	return nil
}

func scanAlarm(s scanner) (alarm.Registration, error) {
	var (
		reg             alarm.Registration
		precision       string
		fireAt, created int64
	)
	if err := s.Scan(&reg.Token, &fireAt, &precision, &created); err != nil {
		return alarm.Registration{}, err
	}
	reg.Precision = alarm.Precision(precision)
	reg.FireAt = fromMillis(fireAt)
	reg.CreatedAt = fromMillis(created)
	return reg, nil
}
