package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func workday(start, end string, slotMinutes int, breaks ...BreakInterval) DaySchedule {
	return DaySchedule{
		Day:         time.Monday,
		Working:     true,
		Start:       MustTimeOfDay(start),
		End:         MustTimeOfDay(end),
		SlotMinutes: slotMinutes,
		Breaks:      breaks,
	}
}

func TestGenerateSlots_Count(t *testing.T) {
	d := workday("09:00", "17:00", 30)
	if err := d.GenerateSlots(); err != nil {
		t.Fatalf("GenerateSlots() error: %v", err)
	}
	if len(d.Slots) != 16 {
		t.Fatalf("expected 16 slots, got %d", len(d.Slots))
	}
	if d.Slots[0].Start != MustTimeOfDay("09:00") {
		t.Errorf("expected first slot at 09:00, got %s", d.Slots[0].Start)
	}
	if d.Slots[15].End != MustTimeOfDay("17:00") {
		t.Errorf("expected last slot to end at 17:00, got %s", d.Slots[15].End)
	}
	for _, sl := range d.Slots {
		if !sl.Available || sl.AppointmentID != nil {
			t.Errorf("slot %s: expected fresh slot to be available", sl.Start)
		}
	}
}

func TestGenerateSlots_BreakExcluded(t *testing.T) {
	d := workday("09:00", "17:00", 30,
		BreakInterval{Start: MustTimeOfDay("12:00"), End: MustTimeOfDay("13:00")})
	if err := d.GenerateSlots(); err != nil {
		t.Fatalf("GenerateSlots() error: %v", err)
	}
	if len(d.Slots) != 14 {
		t.Fatalf("expected 14 slots, got %d", len(d.Slots))
	}
	for _, banned := range []string{"12:00", "12:30"} {
		if d.SlotAt(MustTimeOfDay(banned)) != nil {
			t.Errorf("expected no slot at %s", banned)
		}
	}
	// A slot ending exactly at break start survives: exclusion is on start.
	if d.SlotAt(MustTimeOfDay("11:30")) == nil {
		t.Error("expected slot at 11:30")
	}
	if d.SlotAt(MustTimeOfDay("13:00")) == nil {
		t.Error("expected slot at 13:00")
	}
}

func TestGenerateSlots_TrailingPartialDropped(t *testing.T) {
	d := workday("09:00", "10:45", 30)
	if err := d.GenerateSlots(); err != nil {
		t.Fatalf("GenerateSlots() error: %v", err)
	}
	// 09:00, 09:30, 10:00 fit; 10:30-11:00 would cross 10:45.
	if len(d.Slots) != 3 {
		t.Fatalf("expected 3 slots, got %d", len(d.Slots))
	}
	if last := d.Slots[len(d.Slots)-1]; last.End != MustTimeOfDay("10:30") {
		t.Errorf("expected last slot to end at 10:30, got %s", last.End)
	}
}

func TestGenerateSlots_Adjacent(t *testing.T) {
	d := workday("08:00", "12:00", 20)
	if err := d.GenerateSlots(); err != nil {
		t.Fatalf("GenerateSlots() error: %v", err)
	}
	for i := 1; i < len(d.Slots); i++ {
		if d.Slots[i].Start != d.Slots[i-1].End {
			t.Errorf("gap between slot %d and %d: %s != %s",
				i-1, i, d.Slots[i-1].End, d.Slots[i].Start)
		}
	}
}

func TestDaySchedule_Validate(t *testing.T) {
	bad := []DaySchedule{
		workday("09:00", "17:00", 0),
		workday("09:00", "17:00", -15),
		workday("17:00", "09:00", 30),
		workday("09:00", "09:00", 30),
		workday("09:00", "17:00", 30,
			BreakInterval{Start: MustTimeOfDay("13:00"), End: MustTimeOfDay("12:00")}),
	}
	for i, d := range bad {
		if err := d.Validate(); !errors.Is(err, ErrInvalidScheduleConfig) {
			t.Errorf("case %d: expected ErrInvalidScheduleConfig, got %v", i, err)
		}
	}

	good := workday("09:00", "17:00", 30,
		BreakInterval{Start: MustTimeOfDay("12:00"), End: MustTimeOfDay("13:00")})
	if err := good.Validate(); err != nil {
		t.Errorf("expected valid template, got %v", err)
	}
}

func TestEnsureSlots(t *testing.T) {
	d := workday("09:00", "11:00", 30)
	generated, err := d.EnsureSlots()
	if err != nil {
		t.Fatalf("EnsureSlots() error: %v", err)
	}
	if !generated {
		t.Error("expected first EnsureSlots to report generation")
	}
	generated, err = d.EnsureSlots()
	if err != nil {
		t.Fatalf("EnsureSlots() error: %v", err)
	}
	if generated {
		t.Error("expected second EnsureSlots to be a no-op")
	}
}

func TestRegenerateSlots_PreservesBookings(t *testing.T) {
	d := workday("09:00", "17:00", 30)
	if err := d.GenerateSlots(); err != nil {
		t.Fatalf("GenerateSlots() error: %v", err)
	}
	apptID := uuid.New()
	slot := d.SlotAt(MustTimeOfDay("10:00"))
	slot.Available = false
	slot.AppointmentID = &apptID

	// Same template: the booking must survive regeneration.
	displaced, err := d.RegenerateSlots()
	if err != nil {
		t.Fatalf("RegenerateSlots() error: %v", err)
	}
	if len(displaced) != 0 {
		t.Fatalf("expected no displaced bookings, got %d", len(displaced))
	}
	slot = d.SlotAt(MustTimeOfDay("10:00"))
	if slot.Available || slot.AppointmentID == nil || *slot.AppointmentID != apptID {
		t.Error("expected booking at 10:00 to survive regeneration")
	}
}

func TestRegenerateSlots_DisplacesOrphans(t *testing.T) {
	d := workday("09:00", "17:00", 30)
	if err := d.GenerateSlots(); err != nil {
		t.Fatalf("GenerateSlots() error: %v", err)
	}
	keepID, dropID := uuid.New(), uuid.New()
	keep := d.SlotAt(MustTimeOfDay("14:00"))
	keep.Available = false
	keep.AppointmentID = &keepID
	drop := d.SlotAt(MustTimeOfDay("09:30"))
	drop.Available = false
	drop.AppointmentID = &dropID

	// Day now starts at 10:00: the 09:30 booking has nowhere to go.
	d.Start = MustTimeOfDay("10:00")
	displaced, err := d.RegenerateSlots()
	if err != nil {
		t.Fatalf("RegenerateSlots() error: %v", err)
	}
	if len(displaced) != 1 {
		t.Fatalf("expected 1 displaced booking, got %d", len(displaced))
	}
	if displaced[0].AppointmentID == nil || *displaced[0].AppointmentID != dropID {
		t.Error("expected the 09:30 booking to be displaced")
	}
	if sl := d.SlotAt(MustTimeOfDay("14:00")); sl == nil || sl.AppointmentID == nil || *sl.AppointmentID != keepID {
		t.Error("expected the 14:00 booking to be re-bound")
	}
}

func TestBookedCount(t *testing.T) {
	d := workday("09:00", "12:00", 30)
	if err := d.GenerateSlots(); err != nil {
		t.Fatalf("GenerateSlots() error: %v", err)
	}
	if d.BookedCount() != 0 {
		t.Errorf("expected 0 booked, got %d", d.BookedCount())
	}
	id := uuid.New()
	d.Slots[0].Available = false
	d.Slots[0].AppointmentID = &id
	if d.BookedCount() != 1 {
		t.Errorf("expected 1 booked, got %d", d.BookedCount())
	}
}

func TestDefaultConfig(t *testing.T) {
	doctorID := uuid.New()
	cfg := DefaultConfig(doctorID)

	if cfg.DoctorID != doctorID {
		t.Error("expected doctor id to be set")
	}
	if len(cfg.Weekly) != 7 {
		t.Fatalf("expected 7 day schedules, got %d", len(cfg.Weekly))
	}

	sunday := cfg.DayFor(time.Sunday)
	if sunday == nil || sunday.Working {
		t.Error("expected Sunday to be non-working")
	}
	if len(sunday.Slots) != 0 {
		t.Errorf("expected no slots on Sunday, got %d", len(sunday.Slots))
	}

	monday := cfg.DayFor(time.Monday)
	if monday == nil || !monday.Working {
		t.Fatal("expected Monday to be a working day")
	}
	if len(monday.Slots) != 14 {
		t.Errorf("expected 14 slots on Monday, got %d", len(monday.Slots))
	}
	if monday.SlotMinutes != 30 {
		t.Errorf("expected 30-minute slots, got %d", monday.SlotMinutes)
	}
	if monday.SlotAt(MustTimeOfDay("12:00")) != nil || monday.SlotAt(MustTimeOfDay("12:30")) != nil {
		t.Error("expected lunch break to exclude 12:00 and 12:30")
	}

	if cfg.Prefs.MaxAppointmentsPerDay != 20 || !cfg.Prefs.AllowOnlineBooking {
		t.Errorf("unexpected default preferences: %+v", cfg.Prefs)
	}
}

func TestExceptionFor(t *testing.T) {
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	cfg := DefaultConfig(uuid.New())
	cfg.Exceptions = []Exception{
		{ID: uuid.New(), Date: date, Kind: ExceptionLeave, FullDay: true},
	}

	// Day granularity: the hour on the lookup date is irrelevant.
	if cfg.ExceptionFor(date.Add(15*time.Hour)) == nil {
		t.Error("expected exception for the same calendar date")
	}
	if cfg.ExceptionFor(date.AddDate(0, 0, 1)) != nil {
		t.Error("expected no exception for the following date")
	}
}
