package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"expensetracker/internal/models"
	"github.com/rs/zerolog"
)

// Preference keys of the reminder configuration.
const (
	KeyReminderEnabled   = "reminder.enabled"
	KeyReminderHour      = "reminder.hour"
	KeyReminderMinute    = "reminder.minute"
	KeyReminderSound     = "reminder.sound"
	KeyReminderVibration = "reminder.vibration"
)

// PreferenceStore persists scalar preferences as key/value rows.
// Every write bumps a single revision counter so that other processes can
// notice changes cheaply.
type PreferenceStore struct {
	db     *DB
	logger *zerolog.Logger
}

func NewPreferenceStore(db *DB, logger *zerolog.Logger) *PreferenceStore {
	return &PreferenceStore{db: db, logger: logger}
}

// Get returns the reminder configuration. Missing keys resolve to their
// defaults; unreadable or out-of-range values are logged and replaced by
// the default of that field.
func (s *PreferenceStore) Get(ctx context.Context) (models.ReminderConfig, error) {
	cfg := models.DefaultReminderConfig()

	values, err := s.values(ctx, KeyReminderEnabled, KeyReminderHour, KeyReminderMinute,
		KeyReminderSound, KeyReminderVibration)
	if err != nil {
		return cfg, err
	}

	if v, ok := values[KeyReminderEnabled]; ok {
		cfg.Enabled = s.parseBool(KeyReminderEnabled, v, cfg.Enabled)
	}
	if v, ok := values[KeyReminderHour]; ok {
		cfg.Hour = s.parseInt(KeyReminderHour, v, 0, 23, cfg.Hour)
	}
	if v, ok := values[KeyReminderMinute]; ok {
		cfg.Minute = s.parseInt(KeyReminderMinute, v, 0, 59, cfg.Minute)
	}
	if v, ok := values[KeyReminderSound]; ok {
		cfg.SoundRef = v
	}
	if v, ok := values[KeyReminderVibration]; ok {
		cfg.VibrationEnabled = s.parseBool(KeyReminderVibration, v, cfg.VibrationEnabled)
	}
	return cfg, nil
}

// Set writes every field of cfg in one transaction. An empty sound
// reference removes the stored one so the default applies.
func (s *PreferenceStore) Set(ctx context.Context, cfg models.ReminderConfig) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		now := toMillis(time.Now())
		pairs := []struct{ key, value string }{
			{KeyReminderEnabled, strconv.FormatBool(cfg.Enabled)},
			{KeyReminderHour, strconv.Itoa(cfg.Hour)},
			{KeyReminderMinute, strconv.Itoa(cfg.Minute)},
			{KeyReminderVibration, strconv.FormatBool(cfg.VibrationEnabled)},
		}
		for _, p := range pairs {
			if err := upsertPreference(ctx, tx, p.key, p.value, now); err != nil {
				return err
			}
		}
		if cfg.HasCustomSound() {
			return upsertPreference(ctx, tx, KeyReminderSound, cfg.SoundRef, now)
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM preferences WHERE key = ?`, KeyReminderSound)
		return err
	})
}

// Bool reads a boolean flag, returning def when it was never written.
func (s *PreferenceStore) Bool(ctx context.Context, key string, def bool) (bool, error) {
	values, err := s.values(ctx, key)
	if err != nil {
		return def, err
	}
	v, ok := values[key]
	if !ok {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("preference %s: %w", key, err)
	}
	return b, nil
}

func (s *PreferenceStore) SetBool(ctx context.Context, key string, value bool) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return upsertPreference(ctx, tx, key, strconv.FormatBool(value), toMillis(time.Now()))
	})
}

// Revision returns a counter that increases on every write.
func (s *PreferenceStore) Revision(ctx context.Context) (int64, error) {
	var rev int64
	err := s.db.QueryRowContext(ctx, `SELECT revision FROM preference_revision WHERE id = 1`).Scan(&rev)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return rev, err
}

// values reads every key in one statement so the result comes from a
// single snapshot and never mixes two writes.
func (s *PreferenceStore) values(ctx context.Context, keys ...string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	args := make([]any, len(keys))
	for i, key := range keys {
		args[i] = key
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")

	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM preferences WHERE key IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("read preferences: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan preference: %w", err)
		}
		out[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read preferences: %w", err)
	}
	return out, nil
}

func (s *PreferenceStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin preferences tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return fmt.Errorf("write preferences: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE preference_revision SET revision = revision + 1 WHERE id = 1`); err != nil {
		return fmt.Errorf("bump preferences revision: %w", err)
	}
	return tx.Commit()
}

func upsertPreference(ctx context.Context, tx *sql.Tx, key, value string, now int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		key, value, now)
	return err
}

func (s *PreferenceStore) parseBool(key, v string, def bool) bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		s.logger.Warn().Str("key", key).Str("value", v).Msg("invalid stored preference, using default")
		return def
	}
	return b
}

func (s *PreferenceStore) parseInt(key, v string, lo, hi, def int) int {
	n, err := strconv.Atoi(v)
	if err != nil || n < lo || n > hi {
		s.logger.Warn().Str("key", key).Str("value", v).Msg("invalid stored preference, using default")
		return def
	}
	return n
}
