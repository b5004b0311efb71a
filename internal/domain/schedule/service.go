package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// doctorLocks hands out one mutex per doctor so every mutating path on a
// given aggregate is serialized within the process. Entries are never
// evicted; the population is bounded by the doctor roster.
type doctorLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newDoctorLocks() *doctorLocks {
	return &doctorLocks{locks: make(map[uuid.UUID]*sync.Mutex)}
}

func (dl *doctorLocks) lock(doctorID uuid.UUID) *sync.Mutex {
	dl.mu.Lock()
	defer dl.mu.Unlock()
	l, ok := dl.locks[doctorID]
	if !ok {
		l = &sync.Mutex{}
		dl.locks[doctorID] = l
	}
	return l
}

// Service is the availability and booking engine over per-doctor
// ScheduleConfig aggregates.
//
// Concurrency contract: at most one booking may hold a given
// (doctor, date, start) slot at any time. A per-doctor mutex serializes
// the read-check-write cycle in this process; the repository's
// version-conditional Save rejects lost updates from other writers, which
// BookSlot resolves by reloading and re-checking the slot.
type Service struct {
	repo  Repository
	locks *doctorLocks
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, locks: newDoctorLocks()}
}

// InitializeDefault onboards a doctor with the default weekly template.
func (s *Service) InitializeDefault(ctx context.Context, doctorID uuid.UUID) (*ScheduleConfig, error) {
	l := s.locks.lock(doctorID)
	l.Lock()
	defer l.Unlock()

	if _, err := s.repo.GetByDoctor(ctx, doctorID); err == nil {
		return nil, ErrConfigExists
	} else if !errors.Is(err, ErrConfigNotFound) {
		return nil, err
	}

	cfg := DefaultConfig(doctorID)
	if err := s.repo.Create(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GetConfig returns the doctor's full schedule configuration.
func (s *Service) GetConfig(ctx context.Context, doctorID uuid.UUID) (*ScheduleConfig, error) {
	return s.repo.GetByDoctor(ctx, doctorID)
}

// GetAvailableSlots resolves the date's weekday template, applies
// exceptions and existing bookings, and returns open slots in ascending
// start order. Non-working or uncovered weekdays yield an empty list, as
// does a full-day exception. If the day's slot cache materializes during
// the call, the aggregate is saved so the generated slots persist.
func (s *Service) GetAvailableSlots(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]TimeSlot, error) {
	l := s.locks.lock(doctorID)
	l.Lock()
	defer l.Unlock()

	cfg, err := s.repo.GetByDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	day := cfg.DayFor(date.Weekday())
	if day == nil || !day.Working {
		return []TimeSlot{}, nil
	}

	ex := cfg.ExceptionFor(date)
	if ex != nil && ex.FullDay {
		return []TimeSlot{}, nil
	}

	generated, err := day.EnsureSlots()
	if err != nil {
		return nil, err
	}
	if generated {
		if err := s.repo.Save(ctx, cfg); err != nil {
			return nil, err
		}
	}

	out := []TimeSlot{}
	for _, sl := range day.Slots {
		if !sl.Available {
			continue
		}
		if ex != nil && excludedByException(ex, sl.Start) {
			continue
		}
		out = append(out, sl)
	}
	return out, nil
}

func invalidExceptionf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrInvalidException}, args...)...)
}

// excludedByException reports whether a partial-day exception hides a slot
// starting at t.
func excludedByException(ex *Exception, t TimeOfDay) bool {
	if ex.FullDay || ex.Start == nil || ex.End == nil {
		return false
	}
	return !t.Before(*ex.Start) && t.Before(*ex.End)
}

// BookSlot marks the slot at (date, start) occupied and links it to the
// appointment. It fails with ErrScheduleNotFound when the weekday has no
// template, ErrSlotNotFound when no slot starts at the given time,
// ErrSlotUnavailable when the slot or date is already taken, and
// ErrDailyLimitReached when the doctor's per-day cap is hit. A losing
// concurrent attempt always receives ErrSlotUnavailable; it never
// overwrites the winner's appointment id.
func (s *Service) BookSlot(ctx context.Context, doctorID uuid.UUID, date time.Time, start TimeOfDay, appointmentID uuid.UUID) (*TimeSlot, error) {
	l := s.locks.lock(doctorID)
	l.Lock()
	defer l.Unlock()

	// One reload on version conflict: another process may have committed
	// between our read and write. The slot is re-checked from fresh state,
	// so the loser surfaces ErrSlotUnavailable rather than clobbering.
	for attempt := 0; attempt < 2; attempt++ {
		cfg, err := s.repo.GetByDoctor(ctx, doctorID)
		if err != nil {
			return nil, err
		}

		slot, err := s.bookInConfig(cfg, date, start, appointmentID)
		if err != nil {
			return nil, err
		}

		err = s.repo.Save(ctx, cfg)
		if err == nil {
			booked := *slot
			return &booked, nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return nil, err
		}
	}
	return nil, ErrVersionConflict
}

func (s *Service) bookInConfig(cfg *ScheduleConfig, date time.Time, start TimeOfDay, appointmentID uuid.UUID) (*TimeSlot, error) {
	day := cfg.DayFor(date.Weekday())
	if day == nil || !day.Working {
		return nil, ErrScheduleNotFound
	}

	ex := cfg.ExceptionFor(date)
	if ex != nil && ex.FullDay {
		return nil, ErrSlotUnavailable
	}

	if _, err := day.EnsureSlots(); err != nil {
		return nil, err
	}

	slot := day.SlotAt(start)
	if slot == nil {
		return nil, ErrSlotNotFound
	}
	if !slot.Available || slot.AppointmentID != nil {
		return nil, ErrSlotUnavailable
	}
	if ex != nil && excludedByException(ex, start) {
		return nil, ErrSlotUnavailable
	}
	if max := cfg.Prefs.MaxAppointmentsPerDay; max > 0 && day.BookedCount() >= max {
		return nil, ErrDailyLimitReached
	}

	id := appointmentID
	slot.Available = false
	slot.AppointmentID = &id
	return slot, nil
}

// ReleaseSlot frees the slot at (date, start). It is best-effort: a
// missing configuration, day schedule, or slot yields false with no error
// so cancellation flows are never blocked. Releasing an already-free slot
// returns true.
func (s *Service) ReleaseSlot(ctx context.Context, doctorID uuid.UUID, date time.Time, start TimeOfDay) (bool, error) {
	l := s.locks.lock(doctorID)
	l.Lock()
	defer l.Unlock()

	cfg, err := s.repo.GetByDoctor(ctx, doctorID)
	if errors.Is(err, ErrConfigNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	day := cfg.DayFor(date.Weekday())
	if day == nil {
		return false, nil
	}
	slot := day.SlotAt(start)
	if slot == nil {
		return false, nil
	}
	if slot.Available && slot.AppointmentID == nil {
		return true, nil
	}

	slot.Available = true
	slot.AppointmentID = nil
	if err := s.repo.Save(ctx, cfg); err != nil {
		return false, err
	}
	return true, nil
}

// AddException records a date override. At most one exception exists per
// date: an existing entry for the same date is replaced, so lookups never
// depend on insertion order. Partial-day exceptions must carry a valid
// start/end window.
func (s *Service) AddException(ctx context.Context, doctorID uuid.UUID, ex Exception) (*Exception, error) {
	if !validExceptionKinds[ex.Kind] {
		return nil, invalidExceptionf("unknown kind %q", ex.Kind)
	}
	if ex.Date.IsZero() {
		return nil, invalidExceptionf("date is required")
	}
	if !ex.FullDay {
		if ex.Start == nil || ex.End == nil {
			return nil, invalidExceptionf("partial-day exception requires start and end")
		}
		if !ex.Start.Before(*ex.End) {
			return nil, invalidExceptionf("start %s must be before end %s", *ex.Start, *ex.End)
		}
	}

	l := s.locks.lock(doctorID)
	l.Lock()
	defer l.Unlock()

	cfg, err := s.repo.GetByDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	if ex.ID == uuid.Nil {
		ex.ID = uuid.New()
	}
	replaced := false
	for i := range cfg.Exceptions {
		if sameDate(cfg.Exceptions[i].Date, ex.Date) {
			cfg.Exceptions[i] = ex
			replaced = true
			break
		}
	}
	if !replaced {
		cfg.Exceptions = append(cfg.Exceptions, ex)
	}

	if err := s.repo.Save(ctx, cfg); err != nil {
		return nil, err
	}
	return &ex, nil
}

// RemoveException deletes the exception with the given id.
func (s *Service) RemoveException(ctx context.Context, doctorID, exceptionID uuid.UUID) error {
	l := s.locks.lock(doctorID)
	l.Lock()
	defer l.Unlock()

	cfg, err := s.repo.GetByDoctor(ctx, doctorID)
	if err != nil {
		return err
	}

	for i := range cfg.Exceptions {
		if cfg.Exceptions[i].ID == exceptionID {
			cfg.Exceptions = append(cfg.Exceptions[:i], cfg.Exceptions[i+1:]...)
			return s.repo.Save(ctx, cfg)
		}
	}
	return ErrExceptionNotFound
}

// ListExceptions returns exceptions within [from, to], inclusive, in no
// guaranteed order. Zero bounds are open.
func (s *Service) ListExceptions(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]Exception, error) {
	cfg, err := s.repo.GetByDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	var out []Exception
	for _, ex := range cfg.Exceptions {
		if !from.IsZero() && ex.Date.Before(from) && !sameDate(ex.Date, from) {
			continue
		}
		if !to.IsZero() && ex.Date.After(to) && !sameDate(ex.Date, to) {
			continue
		}
		out = append(out, ex)
	}
	return out, nil
}

// UpdateDaySchedule replaces one weekday's template and regenerates its
// slots. Existing bookings are re-bound by start time; bookings that no
// longer map to a slot come back as displaced, and the caller is
// responsible for re-homing or cancelling those appointments.
func (s *Service) UpdateDaySchedule(ctx context.Context, doctorID uuid.UUID, updated DaySchedule) (*ScheduleConfig, []TimeSlot, error) {
	if updated.Working {
		if err := updated.Validate(); err != nil {
			return nil, nil, err
		}
	}

	l := s.locks.lock(doctorID)
	l.Lock()
	defer l.Unlock()

	cfg, err := s.repo.GetByDoctor(ctx, doctorID)
	if err != nil {
		return nil, nil, err
	}

	day := cfg.DayFor(updated.Day)
	if day == nil {
		return nil, nil, ErrScheduleNotFound
	}

	prior := day.Slots
	day.Working = updated.Working
	day.Start = updated.Start
	day.End = updated.End
	day.SlotMinutes = updated.SlotMinutes
	day.Breaks = updated.Breaks
	day.Slots = prior

	var displaced []TimeSlot
	if day.Working {
		displaced, err = day.RegenerateSlots()
		if err != nil {
			return nil, nil, err
		}
	} else {
		// A day taken out of service displaces every booking it held.
		for _, sl := range prior {
			if sl.AppointmentID != nil {
				displaced = append(displaced, sl)
			}
		}
		day.Slots = nil
	}

	if err := s.repo.Save(ctx, cfg); err != nil {
		return nil, nil, err
	}
	return cfg, displaced, nil
}

// UpdatePreferences replaces the doctor's booking policies.
func (s *Service) UpdatePreferences(ctx context.Context, doctorID uuid.UUID, prefs Preferences) (*ScheduleConfig, error) {
	if prefs.MaxAppointmentsPerDay < 0 || prefs.BufferMinutes < 0 || prefs.AdvanceBookingDays < 0 {
		return nil, ErrInvalidScheduleConfig
	}

	l := s.locks.lock(doctorID)
	l.Lock()
	defer l.Unlock()

	cfg, err := s.repo.GetByDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	cfg.Prefs = prefs
	if err := s.repo.Save(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
