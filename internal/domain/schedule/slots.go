package schedule

import "fmt"

// Validate checks the day template parameters that slot generation depends
// on. Violations are configuration errors and must be rejected at
// schedule-update time, not at booking time.
func (d *DaySchedule) Validate() error {
	if d.SlotMinutes <= 0 {
		return fmt.Errorf("%w: slot duration must be positive, got %d", ErrInvalidScheduleConfig, d.SlotMinutes)
	}
	if !d.Start.Before(d.End) {
		return fmt.Errorf("%w: start %s must be before end %s", ErrInvalidScheduleConfig, d.Start, d.End)
	}
	for _, br := range d.Breaks {
		if !br.Start.Before(br.End) {
			return fmt.Errorf("%w: break start %s must be before end %s", ErrInvalidScheduleConfig, br.Start, br.End)
		}
	}
	return nil
}

// inBreak reports whether a slot starting at t is blocked by a break.
func (d *DaySchedule) inBreak(t TimeOfDay) bool {
	for _, br := range d.Breaks {
		if !t.Before(br.Start) && t.Before(br.End) {
			return true
		}
	}
	return false
}

// GenerateSlots replaces d.Slots with the full template walk: candidates
// of SlotMinutes length from Start, skipping any whose start falls inside
// a break, stopping before a candidate would cross End. A trailing partial
// slot is never emitted. Existing appointment bindings are discarded; use
// RegenerateSlots to preserve them.
func (d *DaySchedule) GenerateSlots() error {
	if err := d.Validate(); err != nil {
		return err
	}
	var slots []TimeSlot
	for cur := d.Start; cur.Add(d.SlotMinutes).Minutes() <= d.End.Minutes(); cur = cur.Add(d.SlotMinutes) {
		if d.inBreak(cur) {
			continue
		}
		slots = append(slots, TimeSlot{
			Start:     cur,
			End:       cur.Add(d.SlotMinutes),
			Available: true,
		})
	}
	d.Slots = slots
	return nil
}

// EnsureSlots generates the slot cache if it has not been materialized
// yet. It reports whether generation ran, so callers know the aggregate
// changed and needs saving.
func (d *DaySchedule) EnsureSlots() (bool, error) {
	if len(d.Slots) > 0 {
		return false, nil
	}
	if err := d.GenerateSlots(); err != nil {
		return false, err
	}
	return true, nil
}

// RegenerateSlots rebuilds the template and re-binds existing bookings
// whose start time still maps to a slot. Bookings that no longer fit are
// returned so the caller can re-home or cancel the appointments instead of
// losing them silently.
func (d *DaySchedule) RegenerateSlots() ([]TimeSlot, error) {
	var booked []TimeSlot
	for _, sl := range d.Slots {
		if sl.AppointmentID != nil {
			booked = append(booked, sl)
		}
	}

	if err := d.GenerateSlots(); err != nil {
		return nil, err
	}

	var displaced []TimeSlot
	for _, old := range booked {
		if sl := d.SlotAt(old.Start); sl != nil {
			sl.Available = false
			sl.AppointmentID = old.AppointmentID
		} else {
			displaced = append(displaced, old)
		}
	}
	return displaced, nil
}

// SlotAt returns the slot starting exactly at t, or nil.
func (d *DaySchedule) SlotAt(t TimeOfDay) *TimeSlot {
	for i := range d.Slots {
		if d.Slots[i].Start == t {
			return &d.Slots[i]
		}
	}
	return nil
}

// BookedCount returns the number of occupied slots in the day.
func (d *DaySchedule) BookedCount() int {
	n := 0
	for i := range d.Slots {
		if d.Slots[i].AppointmentID != nil {
			n++
		}
	}
	return n
}
