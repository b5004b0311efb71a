package schedule

import (
	"encoding/json"
	"testing"
)

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"00:00", 0},
		{"09:00", 540},
		{"09:30", 570},
		{"12:05", 725},
		{"23:59", 1439},
	}
	for _, tt := range tests {
		got, err := ParseTimeOfDay(tt.input)
		if err != nil {
			t.Fatalf("ParseTimeOfDay(%q) error: %v", tt.input, err)
		}
		if got.Minutes() != tt.want {
			t.Errorf("ParseTimeOfDay(%q) = %d minutes, want %d", tt.input, got.Minutes(), tt.want)
		}
	}
}

func TestParseTimeOfDay_Invalid(t *testing.T) {
	for _, input := range []string{"", "late", "24:00", "12:60", "-1:30", "09:00junk", "9:5"} {
		if _, err := ParseTimeOfDay(input); err == nil {
			t.Errorf("ParseTimeOfDay(%q): expected error", input)
		}
	}
}

func TestTimeOfDay_String(t *testing.T) {
	if got := MustTimeOfDay("09:05").String(); got != "09:05" {
		t.Errorf("expected 09:05, got %s", got)
	}
	if got := TimeOfDay(0).String(); got != "00:00" {
		t.Errorf("expected 00:00, got %s", got)
	}
}

func TestTimeOfDay_AddBefore(t *testing.T) {
	start := MustTimeOfDay("09:00")
	next := start.Add(30)
	if next.String() != "09:30" {
		t.Errorf("expected 09:30, got %s", next)
	}
	if !start.Before(next) {
		t.Error("expected 09:00 to be before 09:30")
	}
	if next.Before(start) {
		t.Error("expected 09:30 not to be before 09:00")
	}
	if start.Before(start) {
		t.Error("Before must be strict")
	}
}

func TestTimeOfDay_JSON(t *testing.T) {
	b, err := json.Marshal(MustTimeOfDay("14:30"))
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	if string(b) != `"14:30"` {
		t.Errorf(`expected "14:30", got %s`, b)
	}

	var parsed TimeOfDay
	if err := json.Unmarshal([]byte(`"08:15"`), &parsed); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if parsed != MustTimeOfDay("08:15") {
		t.Errorf("expected 08:15, got %s", parsed)
	}

	if err := json.Unmarshal([]byte(`"25:00"`), &parsed); err == nil {
		t.Error("expected error for out-of-range time")
	}
}
