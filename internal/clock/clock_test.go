package clock_test

import (
	"errors"
	"testing"
	"time"

	"github.com/edgard/hivebot/internal/clock"
)

func TestParseTimeOfDay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "Midnight", input: "00:00", want: "00:00"},
		{name: "Morning", input: "08:20", want: "08:20"},
		{name: "Last minute", input: "23:59", want: "23:59"},
		{name: "Surrounding whitespace", input: "  08:30\n", want: "08:30"},
		{name: "Hour out of range", input: "24:00", wantErr: true},
		{name: "Minute out of range", input: "12:60", wantErr: true},
		{name: "Single digit hour", input: "8:20", wantErr: true},
		{name: "Seconds included", input: "08:20:00", wantErr: true},
		{name: "Wrong separator", input: "08-20", wantErr: true},
		{name: "Letters", input: "ab:cd", wantErr: true},
		{name: "Empty", input: "", wantErr: true},
		{name: "Signed", input: "+8:20", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := clock.ParseTimeOfDay(tt.input)
			if tt.wantErr {
				if !errors.Is(err, clock.ErrInvalidTimeFormat) {
					t.Errorf("ParseTimeOfDay(%q) error = %v, want ErrInvalidTimeFormat", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTimeOfDay(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseTimeOfDay(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTimeOfDayDropsSeconds(t *testing.T) {
	t.Parallel()

	ts := time.Date(2025, 3, 6, 8, 30, 59, 0, time.UTC)
	if got := clock.TimeOfDay(ts); got != "08:30" {
		t.Errorf("TimeOfDay() = %q, want %q", got, "08:30")
	}
}

func TestLocalUsesLocation(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+3", 3*60*60)
	now := clock.Local{Location: loc}.Now()
	if now.Location() != loc {
		t.Errorf("Local.Now() location = %v, want %v", now.Location(), loc)
	}
}
