package schedule

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TimeSlot is a fixed-duration bookable interval within a working day.
// Available is false iff AppointmentID is set.
type TimeSlot struct {
	Start         TimeOfDay  `json:"start"`
	End           TimeOfDay  `json:"end"`
	Available     bool       `json:"available"`
	AppointmentID *uuid.UUID `json:"appointment_id,omitempty"`
}

// BreakInterval blocks slot generation: no slot is generated whose start
// falls within [Start, End).
type BreakInterval struct {
	Start  TimeOfDay `json:"start"`
	End    TimeOfDay `json:"end"`
	Reason string    `json:"reason,omitempty"`
}

// DaySchedule is the template for one weekday. Slots is a lazily
// materialized cache: empty until EnsureSlots or GenerateSlots runs.
// The weekday travels on the wire as its lower-cased name ("monday"),
// not as an integer; see the JSON codec below.
type DaySchedule struct {
	Day         time.Weekday
	Working     bool
	Start       TimeOfDay
	End         TimeOfDay
	SlotMinutes int
	Breaks      []BreakInterval
	Slots       []TimeSlot
}

// ParseWeekday matches a weekday name case-insensitively.
func ParseWeekday(s string) (time.Weekday, bool) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(s, d.String()) {
			return d, true
		}
	}
	return 0, false
}

type dayScheduleJSON struct {
	Day         string          `json:"day_of_week"`
	Working     bool            `json:"is_working_day"`
	Start       TimeOfDay       `json:"start"`
	End         TimeOfDay       `json:"end"`
	SlotMinutes int             `json:"slot_duration_minutes"`
	Breaks      []BreakInterval `json:"breaks,omitempty"`
	Slots       []TimeSlot      `json:"slots,omitempty"`
}

func (d DaySchedule) MarshalJSON() ([]byte, error) {
	return json.Marshal(dayScheduleJSON{
		Day:         strings.ToLower(d.Day.String()),
		Working:     d.Working,
		Start:       d.Start,
		End:         d.End,
		SlotMinutes: d.SlotMinutes,
		Breaks:      d.Breaks,
		Slots:       d.Slots,
	})
}

// UnmarshalJSON accepts the weekday name in any case. An absent
// day_of_week is tolerated; route handlers fill the day from the URL.
func (d *DaySchedule) UnmarshalJSON(data []byte) error {
	var raw dayScheduleJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	day := time.Sunday
	if raw.Day != "" {
		parsed, ok := ParseWeekday(raw.Day)
		if !ok {
			return fmt.Errorf("invalid day_of_week %q", raw.Day)
		}
		day = parsed
	}
	*d = DaySchedule{
		Day:         day,
		Working:     raw.Working,
		Start:       raw.Start,
		End:         raw.End,
		SlotMinutes: raw.SlotMinutes,
		Breaks:      raw.Breaks,
		Slots:       raw.Slots,
	}
	return nil
}

// ExceptionKind classifies a date-specific schedule override.
type ExceptionKind string

const (
	ExceptionLeave      ExceptionKind = "leave"
	ExceptionVacation   ExceptionKind = "vacation"
	ExceptionSick       ExceptionKind = "sick"
	ExceptionConference ExceptionKind = "conference"
	ExceptionEmergency  ExceptionKind = "emergency"
	ExceptionCustom     ExceptionKind = "custom"
)

var validExceptionKinds = map[ExceptionKind]bool{
	ExceptionLeave: true, ExceptionVacation: true, ExceptionSick: true,
	ExceptionConference: true, ExceptionEmergency: true, ExceptionCustom: true,
}

// Exception is a single-date override layered on top of the weekly
// template. A full-day exception removes all availability for the date; a
// partial-day exception hides slots starting within [Start, End). Date is
// a calendar date ("2026-03-02" on the wire, midnight UTC in memory).
type Exception struct {
	ID      uuid.UUID
	Date    time.Time
	Kind    ExceptionKind
	Reason  string
	FullDay bool
	Start   *TimeOfDay
	End     *TimeOfDay
}

const dateLayout = "2006-01-02"

type exceptionJSON struct {
	ID      uuid.UUID     `json:"id"`
	Date    string        `json:"date"`
	Kind    ExceptionKind `json:"kind"`
	Reason  string        `json:"reason,omitempty"`
	FullDay bool          `json:"is_full_day"`
	Start   *TimeOfDay    `json:"start,omitempty"`
	End     *TimeOfDay    `json:"end,omitempty"`
}

func (e Exception) MarshalJSON() ([]byte, error) {
	raw := exceptionJSON{
		ID:      e.ID,
		Kind:    e.Kind,
		Reason:  e.Reason,
		FullDay: e.FullDay,
		Start:   e.Start,
		End:     e.End,
	}
	if !e.Date.IsZero() {
		raw.Date = e.Date.Format(dateLayout)
	}
	return json.Marshal(raw)
}

func (e *Exception) UnmarshalJSON(data []byte) error {
	var raw exceptionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var date time.Time
	if raw.Date != "" {
		var err error
		date, err = time.Parse(dateLayout, raw.Date)
		if err != nil {
			return fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", raw.Date, err)
		}
	}
	*e = Exception{
		ID:      raw.ID,
		Date:    date,
		Kind:    raw.Kind,
		Reason:  raw.Reason,
		FullDay: raw.FullDay,
		Start:   raw.Start,
		End:     raw.End,
	}
	return nil
}

// Preferences are per-doctor booking policies.
type Preferences struct {
	MaxAppointmentsPerDay int  `json:"max_appointments_per_day"`
	BufferMinutes         int  `json:"buffer_minutes"`
	AllowOnlineBooking    bool `json:"allow_online_booking"`
	AdvanceBookingDays    int  `json:"advance_booking_days"`
}

// ScheduleConfig is the aggregate root: one per doctor, created at
// onboarding, never deleted.
type ScheduleConfig struct {
	DoctorID   uuid.UUID     `db:"doctor_id" json:"doctor_id"`
	Weekly     []DaySchedule `db:"weekly" json:"weekly_schedule"`
	Exceptions []Exception   `db:"exceptions" json:"exceptions"`
	Prefs      Preferences   `db:"preferences" json:"preferences"`
	VersionID  int           `db:"version_id" json:"version_id"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time     `db:"updated_at" json:"updated_at"`
}

// GetVersionID returns the current version.
func (c *ScheduleConfig) GetVersionID() int { return c.VersionID }

// SetVersionID sets the current version.
func (c *ScheduleConfig) SetVersionID(v int) { c.VersionID = v }

// DayFor returns the day schedule for the given weekday, or nil when the
// weekly template has no entry for it.
func (c *ScheduleConfig) DayFor(day time.Weekday) *DaySchedule {
	for i := range c.Weekly {
		if c.Weekly[i].Day == day {
			return &c.Weekly[i]
		}
	}
	return nil
}

// ExceptionFor returns the exception covering the given date, or nil.
// Dates are compared at day granularity. At most one exception exists per
// date; AddException enforces that.
func (c *ScheduleConfig) ExceptionFor(date time.Time) *Exception {
	for i := range c.Exceptions {
		if sameDate(c.Exceptions[i].Date, date) {
			return &c.Exceptions[i]
		}
	}
	return nil
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Defaults used when onboarding a doctor.
const (
	defaultSlotMinutes = 30
)

var (
	defaultDayStart   = MustTimeOfDay("09:00")
	defaultDayEnd     = MustTimeOfDay("17:00")
	defaultBreakStart = MustTimeOfDay("12:00")
	defaultBreakEnd   = MustTimeOfDay("13:00")
)

// DefaultConfig builds the onboarding schedule: Monday through Saturday
// working 09:00-17:00 with 30-minute slots and a 12:00-13:00 lunch break,
// Sunday off. Slots are generated eagerly for every working day.
func DefaultConfig(doctorID uuid.UUID) *ScheduleConfig {
	cfg := &ScheduleConfig{
		DoctorID: doctorID,
		Weekly:   make([]DaySchedule, 0, 7),
		Prefs: Preferences{
			MaxAppointmentsPerDay: 20,
			BufferMinutes:         0,
			AllowOnlineBooking:    true,
			AdvanceBookingDays:    30,
		},
	}
	for day := time.Sunday; day <= time.Saturday; day++ {
		ds := DaySchedule{
			Day:         day,
			Working:     day != time.Sunday,
			Start:       defaultDayStart,
			End:         defaultDayEnd,
			SlotMinutes: defaultSlotMinutes,
			Breaks: []BreakInterval{
				{Start: defaultBreakStart, End: defaultBreakEnd, Reason: "Lunch break"},
			},
		}
		if ds.Working {
			// Template values are known-valid here.
			_ = ds.GenerateSlots()
		}
		cfg.Weekly = append(cfg.Weekly, ds)
	}
	return cfg
}
