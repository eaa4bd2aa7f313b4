package model

import (
	"testing"
	"time"
)

func TestElectionStatusAt(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, time.March, 10, 8, 0, 0, 0, time.UTC)
	end := time.Date(2026, time.March, 12, 18, 0, 0, 0, time.UTC)
	election := &Election{
		ID:        "e1",
		Title:     "Departmental Executive Election",
		StartDate: start,
		EndDate:   end,
	}

	tests := []struct {
		name string
		now  time.Time
		want ElectionStatus
	}{
		{"day before start", start.Add(-24 * time.Hour), ElectionUpcoming},
		{"instant before start", start.Add(-time.Nanosecond), ElectionUpcoming},
		{"exactly at start", start, ElectionOngoing},
		{"mid window", start.Add(12 * time.Hour), ElectionOngoing},
		{"exactly at end", end, ElectionOngoing},
		{"instant after end", end.Add(time.Nanosecond), ElectionCompleted},
		{"day after end", end.Add(24 * time.Hour), ElectionCompleted},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := election.StatusAt(test.now); got != test.want {
				t.Errorf("StatusAt(%s) = %s, want %s", test.now, got, test.want)
			}
		})
	}
}

func TestElectionIsOngoing(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()

	open := &Election{StartDate: now.Add(-time.Hour), EndDate: now.Add(time.Hour)}
	if !open.IsOngoing() {
		t.Error("IsOngoing() = false for an open window, want true")
	}

	past := &Election{StartDate: now.Add(-2 * time.Hour), EndDate: now.Add(-time.Hour)}
	if past.IsOngoing() {
		t.Error("IsOngoing() = true for a closed window, want false")
	}

	future := &Election{StartDate: now.Add(time.Hour), EndDate: now.Add(2 * time.Hour)}
	if future.IsOngoing() {
		t.Error("IsOngoing() = true for a pending window, want false")
	}
}
