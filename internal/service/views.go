package service

import (
	"time"

	"roombook/internal/booking"
	"roombook/internal/models"
)

// projectBooking renders b for viewerID. Non-owners only see the interval and status.
// room is attached for owners when given.
func projectBooking(b *models.Booking, room *models.Room, viewerID int64, now time.Time) models.BookingView {
	view := models.BookingView{
		StartTime: models.FormatTime(b.StartTime),
		EndTime:   models.FormatTime(b.EndTime),
		Status:    booking.EffectiveStatus(b.Status, b.Interval(), now),
	}
	if b.OwnedBy(viewerID) {
		view.ID = b.ID
		view.ResponsibleName = b.ResponsibleName
		view.Room = room.Summary()
	}
	return view
}

func projectRoom(room *models.Room, bookings []*models.Booking, viewerID int64, now time.Time) models.RoomView {
	view := models.RoomView{
		ID:       room.ID,
		Name:     room.Name,
		Capacity: room.Capacity,
		Bookings: make([]models.BookingView, 0, len(bookings)),
	}
	for _, b := range bookings {
		view.Bookings = append(view.Bookings, projectBooking(b, nil, viewerID, now))
	}
	return view
}
