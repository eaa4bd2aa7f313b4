// Package model defines domain entities for the application.
package model

import "time"

// ElectionStatus represents the computed lifecycle stage of an election.
type ElectionStatus string

const (
	ElectionUpcoming  ElectionStatus = "upcoming"
	ElectionOngoing   ElectionStatus = "ongoing"
	ElectionCompleted ElectionStatus = "completed"
)

// Election represents a single election with a fixed voting window.
// Status is never stored; it is derived from the window so it cannot
// drift out of sync with the dates.
type Election struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StatusAt computes the election status at the given instant.
func (e *Election) StatusAt(now time.Time) ElectionStatus {
	if now.Before(e.StartDate) {
		return ElectionUpcoming
	}
	if now.After(e.EndDate) {
		return ElectionCompleted
	}
	return ElectionOngoing
}

// Status computes the current election status.
func (e *Election) Status() ElectionStatus {
	return e.StatusAt(time.Now().UTC())
}

// IsOngoing returns true if votes can currently be cast.
func (e *Election) IsOngoing() bool {
	return e.Status() == ElectionOngoing
}
