package schedule

import "errors"

// Errors returned by the scheduling engine.
var (
	// ErrConfigNotFound means no ScheduleConfig exists for the doctor.
	ErrConfigNotFound = errors.New("schedule configuration not found")

	// ErrConfigExists is returned by InitializeDefault when the doctor is
	// already onboarded.
	ErrConfigExists = errors.New("schedule configuration already exists")

	// ErrScheduleNotFound means no day schedule covers the requested weekday.
	// Callers treat it as zero availability.
	ErrScheduleNotFound = errors.New("no schedule found for this day")

	// ErrSlotNotFound means the requested start time does not correspond to
	// any generated slot.
	ErrSlotNotFound = errors.New("time slot not found")

	// ErrSlotUnavailable means the slot exists but is already booked or the
	// date is blocked by an exception. Recoverable: re-query and retry with
	// a different slot.
	ErrSlotUnavailable = errors.New("time slot is not available")

	// ErrDailyLimitReached means the doctor's max appointments per day
	// preference would be exceeded.
	ErrDailyLimitReached = errors.New("daily appointment limit reached")

	// ErrInvalidScheduleConfig covers malformed day templates: inverted
	// times, non-positive slot duration. Raised at configuration-update
	// time, never at booking time.
	ErrInvalidScheduleConfig = errors.New("invalid schedule configuration")

	// ErrExceptionNotFound means no exception with the given id exists.
	ErrExceptionNotFound = errors.New("schedule exception not found")

	// ErrInvalidException covers malformed exception entries: unknown kind,
	// missing date, or a partial-day entry without a valid window.
	ErrInvalidException = errors.New("invalid schedule exception")

	// ErrVersionConflict means the aggregate was modified concurrently and
	// the conditional save did not apply.
	ErrVersionConflict = errors.New("schedule configuration was modified concurrently")
)
