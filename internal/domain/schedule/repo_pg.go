package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medsched/medsched/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// repoPG stores one schedule_config row per doctor. The weekly plan,
// exception list and preferences travel as JSONB documents; version_id
// carries the optimistic-lock counter.
type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const configCols = `doctor_id, weekly, exceptions, preferences, version_id, created_at, updated_at`

func (r *repoPG) scanConfig(row pgx.Row) (*ScheduleConfig, error) {
	var (
		cfg        ScheduleConfig
		weekly     []byte
		exceptions []byte
		prefs      []byte
	)
	err := row.Scan(&cfg.DoctorID, &weekly, &exceptions, &prefs,
		&cfg.VersionID, &cfg.CreatedAt, &cfg.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(weekly, &cfg.Weekly); err != nil {
		return nil, fmt.Errorf("decode weekly plan: %w", err)
	}
	if err := json.Unmarshal(exceptions, &cfg.Exceptions); err != nil {
		return nil, fmt.Errorf("decode exceptions: %w", err)
	}
	if err := json.Unmarshal(prefs, &cfg.Prefs); err != nil {
		return nil, fmt.Errorf("decode preferences: %w", err)
	}
	return &cfg, nil
}

func marshalConfig(cfg *ScheduleConfig) (weekly, exceptions, prefs []byte, err error) {
	if weekly, err = json.Marshal(cfg.Weekly); err != nil {
		return nil, nil, nil, fmt.Errorf("encode weekly plan: %w", err)
	}
	if cfg.Exceptions == nil {
		cfg.Exceptions = []Exception{}
	}
	if exceptions, err = json.Marshal(cfg.Exceptions); err != nil {
		return nil, nil, nil, fmt.Errorf("encode exceptions: %w", err)
	}
	if prefs, err = json.Marshal(cfg.Prefs); err != nil {
		return nil, nil, nil, fmt.Errorf("encode preferences: %w", err)
	}
	return weekly, exceptions, prefs, nil
}

func (r *repoPG) Create(ctx context.Context, cfg *ScheduleConfig) error {
	weekly, exceptions, prefs, err := marshalConfig(cfg)
	if err != nil {
		return err
	}
	cfg.VersionID = 1
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO schedule_config (doctor_id, weekly, exceptions, preferences, version_id)
		VALUES ($1, $2, $3, $4, $5)`,
		cfg.DoctorID, weekly, exceptions, prefs, cfg.VersionID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConfigExists
		}
		return err
	}
	return nil
}

func (r *repoPG) GetByDoctor(ctx context.Context, doctorID uuid.UUID) (*ScheduleConfig, error) {
	cfg, err := r.scanConfig(r.conn(ctx).QueryRow(ctx,
		`SELECT `+configCols+` FROM schedule_config WHERE doctor_id = $1`, doctorID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrConfigNotFound
	}
	return cfg, err
}

// Save writes the aggregate back conditioned on the version it was read
// at. On success the in-memory VersionID is bumped to match the row.
func (r *repoPG) Save(ctx context.Context, cfg *ScheduleConfig) error {
	weekly, exceptions, prefs, err := marshalConfig(cfg)
	if err != nil {
		return err
	}
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE schedule_config
		SET weekly = $2, exceptions = $3, preferences = $4,
			version_id = version_id + 1, updated_at = NOW()
		WHERE doctor_id = $1 AND version_id = $5`,
		cfg.DoctorID, weekly, exceptions, prefs, cfg.VersionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		err := r.conn(ctx).QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM schedule_config WHERE doctor_id = $1)`,
			cfg.DoctorID).Scan(&exists)
		if err != nil {
			return err
		}
		if !exists {
			return ErrConfigNotFound
		}
		return ErrVersionConflict
	}
	cfg.VersionID++
	return nil
}
