package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"pathwise/api/internal/checkin"
	"pathwise/api/internal/identity"
)

const uniqueViolation = "23505"

// PostgresStore implements identity.UserStore and checkin.Store.
type PostgresStore struct {
	db *sql.DB
}

var (
	_ identity.UserStore = (*PostgresStore)(nil)
	_ checkin.Store      = (*PostgresStore)(nil)
)

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (identity.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE email=$1`, email))
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (identity.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE id=$1`, id))
}

func (s *PostgresStore) scanUser(row *sql.Row) (identity.User, error) {
	var user identity.User
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return identity.User{}, identity.ErrUserNotFound
	}
	if err != nil {
		return identity.User{}, fmt.Errorf("lookup user: %w", err)
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return user, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, user identity.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
	`, user.ID, user.Email, user.PasswordHash, user.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return identity.ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) AppendRecord(ctx context.Context, record checkin.Record) error {
	var progress sql.NullInt32
	if record.ProgressUpdate != nil {
		progress = sql.NullInt32{Int32: int32(*record.ProgressUpdate), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO checkin_records
			(id, user_id, goal_id, checkin_date, mood, notes, progress_update, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, record.ID, record.UserID, record.GoalID, record.CheckinDate, record.Mood, record.Notes,
		progress, record.CreatedAt, record.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert check-in: %w", err)
	}
	return nil
}

const selectRecords = `
	SELECT id, user_id, goal_id, checkin_date, mood, notes, progress_update, created_at, updated_at
	FROM checkin_records
`

func (s *PostgresStore) ListRecords(ctx context.Context, userID string) ([]checkin.Record, error) {
	rows, err := s.db.QueryContext(ctx, selectRecords+`WHERE user_id=$1 ORDER BY seq ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list check-ins: %w", err)
	}
	return scanRecords(rows)
}

func (s *PostgresStore) ListRecordsForGoal(ctx context.Context, userID, goalID string) ([]checkin.Record, error) {
	rows, err := s.db.QueryContext(ctx, selectRecords+`WHERE user_id=$1 AND goal_id=$2 ORDER BY seq ASC`, userID, goalID)
	if err != nil {
		return nil, fmt.Errorf("list check-ins for goal: %w", err)
	}
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]checkin.Record, error) {
	defer rows.Close()
	records := []checkin.Record{}
	for rows.Next() {
		var (
			record   checkin.Record
			progress sql.NullInt32
		)
		if err := rows.Scan(
			&record.ID,
			&record.UserID,
			&record.GoalID,
			&record.CheckinDate,
			&record.Mood,
			&record.Notes,
			&progress,
			&record.CreatedAt,
			&record.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan check-in: %w", err)
		}
		if progress.Valid {
			value := int(progress.Int32)
			record.ProgressUpdate = &value
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate check-ins: %w", err)
	}
	return records, nil
}

const selectConfigs = `
	SELECT user_id, checkin_interval, checkin_time, reminders_enabled,
		last_checkin, next_checkin, created_at, updated_at
	FROM checkin_configs
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConfig(row rowScanner) (checkin.Config, error) {
	var (
		cfg      checkin.Config
		interval string
		last     sql.NullTime
		next     sql.NullTime
	)
	if err := row.Scan(
		&cfg.UserID,
		&interval,
		&cfg.Time,
		&cfg.RemindersEnabled,
		&last,
		&next,
		&cfg.CreatedAt,
		&cfg.UpdatedAt,
	); err != nil {
		return checkin.Config{}, err
	}
	cfg.Interval = checkin.Interval(interval)
	cfg.LastCheckin = nullTimePtr(last)
	cfg.NextCheckin = nullTimePtr(next)
	return cfg, nil
}

func (s *PostgresStore) GetConfig(ctx context.Context, userID string) (checkin.Config, error) {
	cfg, err := scanConfig(s.db.QueryRowContext(ctx, selectConfigs+`WHERE user_id=$1`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return checkin.Config{}, checkin.ErrNotFound
	}
	if err != nil {
		return checkin.Config{}, fmt.Errorf("get check-in config: %w", err)
	}
	return cfg, nil
}

func (s *PostgresStore) SaveConfig(ctx context.Context, cfg checkin.Config) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO checkin_configs
			(user_id, checkin_interval, checkin_time, reminders_enabled, last_checkin, next_checkin, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id) DO UPDATE SET
			checkin_interval = EXCLUDED.checkin_interval,
			checkin_time = EXCLUDED.checkin_time,
			reminders_enabled = EXCLUDED.reminders_enabled,
			last_checkin = EXCLUDED.last_checkin,
			next_checkin = EXCLUDED.next_checkin,
			updated_at = EXCLUDED.updated_at
	`, cfg.UserID, string(cfg.Interval), cfg.Time, cfg.RemindersEnabled,
		timePtrNull(cfg.LastCheckin), timePtrNull(cfg.NextCheckin), cfg.CreatedAt, cfg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert check-in config: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListDueConfigs(ctx context.Context, at time.Time) ([]checkin.Config, error) {
	rows, err := s.db.QueryContext(ctx, selectConfigs+`
		WHERE reminders_enabled AND next_checkin IS NOT NULL AND next_checkin <= $1
		ORDER BY next_checkin ASC
	`, at)
	if err != nil {
		return nil, fmt.Errorf("list due check-in configs: %w", err)
	}
	defer rows.Close()

	var due []checkin.Config
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("scan check-in config: %w", err)
		}
		due = append(due, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate check-in configs: %w", err)
	}
	return due, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func nullTimePtr(value sql.NullTime) *time.Time {
	if !value.Valid {
		return nil
	}
	t := value.Time
	return &t
}

func timePtrNull(value *time.Time) sql.NullTime {
	if value == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *value, Valid: true}
}
