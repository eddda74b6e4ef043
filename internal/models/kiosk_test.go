package models

import (
	"testing"
	"time"
)

func TestKioskTimeLocation(t *testing.T) {
	tests := []struct {
		name     string
		timezone string
		want     string
	}{
		{"named zone", "Asia/Kolkata", "Asia/Kolkata"},
		{"unset falls back to server local", "", time.Local.String()},
		{"unknown zone falls back to server local", "Mars/Olympus", time.Local.String()},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			k := &Kiosk{Name: "lobby", Timezone: tc.timezone}
			if got := k.TimeLocation().String(); got != tc.want {
				t.Errorf("TimeLocation() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestKioskTimeLocationShiftsDay(t *testing.T) {
	k := &Kiosk{Name: "mumbai", Timezone: "Asia/Kolkata"}

	// 22:30 UTC is already past midnight in Kolkata, so the kiosk-local
	// calendar date is the next day.
	ts := time.Date(2025, 6, 2, 22, 30, 0, 0, time.UTC).In(k.TimeLocation())
	if ts.Day() != 3 {
		t.Errorf("kiosk-local day = %d, want 3", ts.Day())
	}
}
