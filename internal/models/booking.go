package models

import "time"

type Booking struct {
	ID              int64     `json:"id"`
	RoomID          int64     `json:"room_id"`
	UserID          int64     `json:"user_id"`
	ResponsibleName string    `json:"responsible_name"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	Status          Status    `json:"status"` // stored status, see booking.EffectiveStatus for the derived one
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	Version         int64     `json:"version"`
}

func (b *Booking) Interval() Interval {
	return Interval{Start: b.StartTime, End: b.EndTime}
}

// IsActive reports whether the booking still occupies its room.
func (b *Booking) IsActive() bool {
	return b.Status.IsActive()
}

func (b *Booking) OwnedBy(userID int64) bool {
	return userID > 0 && b.UserID == userID
}

// BookingPatch carries the optional fields of an update request. Nil means "not supplied".
type BookingPatch struct {
	ResponsibleName *string
	StartTime       *time.Time
	EndTime         *time.Time
	Status          *Status
}

// Cancels reports whether the patch asks for cancellation.
func (p BookingPatch) Cancels() bool {
	return p.Status != nil && *p.Status == StatusCancelled
}

func (p BookingPatch) HasTimes() bool {
	return p.StartTime != nil || p.EndTime != nil
}

func (p BookingPatch) IsEmpty() bool {
	return p.ResponsibleName == nil && !p.HasTimes() && p.Status == nil
}

// CreateBookingInput is a booking request before validation.
type CreateBookingInput struct {
	RoomID          int64
	ResponsibleName string
	StartTime       time.Time
	EndTime         time.Time
}
