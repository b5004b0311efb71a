package schedule

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists ScheduleConfig aggregates. Save must be conditional
// on the aggregate's version and return ErrVersionConflict when the stored
// row has moved on, so concurrent writers cannot overwrite each other.
type Repository interface {
	Create(ctx context.Context, cfg *ScheduleConfig) error
	GetByDoctor(ctx context.Context, doctorID uuid.UUID) (*ScheduleConfig, error)
	Save(ctx context.Context, cfg *ScheduleConfig) error
}
