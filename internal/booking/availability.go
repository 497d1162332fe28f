// Package booking holds the room availability engine and the booking lifecycle policy.
// Everything here is pure and safe for concurrent use on a snapshot of bookings.
package booking

import "roombook/internal/models"

// Available reports whether the candidate interval is free among bookings.
// Only active bookings (scheduled or in progress) are considered, and the booking
// with id excludeID is always skipped. Pass 0 to exclude nothing.
func Available(bookings []*models.Booking, candidate models.Interval, excludeID int64) bool {
	return len(Conflicts(bookings, candidate, excludeID)) == 0
}

// Conflicts returns the active bookings that overlap the candidate interval.
func Conflicts(bookings []*models.Booking, candidate models.Interval, excludeID int64) []*models.Booking {
	var conflicts []*models.Booking
	for _, b := range bookings {
		if b == nil || !b.IsActive() {
			continue
		}
		if excludeID != 0 && b.ID == excludeID {
			continue
		}
		if candidate.Overlaps(b.Interval()) {
			conflicts = append(conflicts, b)
		}
	}
	return conflicts
}

// ActiveOnly filters bookings down to the ones that block their room.
func ActiveOnly(bookings []*models.Booking) []*models.Booking {
	active := make([]*models.Booking, 0, len(bookings))
	for _, b := range bookings {
		if b != nil && b.IsActive() {
			active = append(active, b)
		}
	}
	return active
}
