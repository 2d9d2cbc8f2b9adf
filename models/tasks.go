package models

import "time"

// CalendarSyncPayload asks the worker to put a paid reservation on the calendar.
type CalendarSyncPayload struct {
	ReservationID string `json:"reservationId"`
}

// HoldReleasePayload frees a reservation's slots if it is still unpaid.
// HeldAt pins the release to the hold it was scheduled for.
type HoldReleasePayload struct {
	ReservationID string    `json:"reservationId"`
	HeldAt        time.Time `json:"heldAt"`
}
