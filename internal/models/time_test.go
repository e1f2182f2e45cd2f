package models

import (
	"testing"
	"time"
)

func TestStartOfDay(t *testing.T) {
	tests := []struct {
		name string
		in   Millis
		want Millis
	}{
		{"epoch", 0, 0},
		{"within first day", 2000, 0},
		{"exact boundary", 86_400_000, 86_400_000},
		{"one before boundary", 86_399_999, 0},
		{"mid second day", 86_400_000 + 5_000, 86_400_000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StartOfDay(tt.in); got != tt.want {
				t.Errorf("StartOfDay(%d) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestStartOfDayIsUTCMidnight(t *testing.T) {
	ts := time.Date(2026, 3, 14, 22, 45, 0, 0, time.FixedZone("UTC-5", -5*3600))
	got := StartOfDay(FromTime(ts)).Time().UTC()

	want := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestDaysAgo(t *testing.T) {
	now := Millis(10 * 86_400_000)
	if got := DaysAgo(now, 7); got != Millis(3*86_400_000) {
		t.Errorf("expected 3 days, got %d", got)
	}
}
