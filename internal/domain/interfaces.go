package domain

import (
	"context"
	"time"

	"roombook/internal/models"
)

type Repository interface {
	GetRoom(ctx context.Context, id int64) (*models.Room, error)
	ListRooms(ctx context.Context) ([]*models.Room, error)
	UpsertRoom(ctx context.Context, room *models.Room) error

	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	// GetActiveRoomBookings returns scheduled and in-progress bookings of a room ordered by start time.
	GetActiveRoomBookings(ctx context.Context, roomID int64) ([]*models.Booking, error)
	// GetCandidateConflicts returns active bookings of a room that may overlap the interval.
	// The final decision is made by booking.Available.
	GetCandidateConflicts(ctx context.Context, roomID int64, interval models.Interval) ([]*models.Booking, error)
	GetUserBookings(ctx context.Context, userID int64) ([]*models.Booking, error)

	// CreateBookingWithLock re-checks availability and inserts the booking in one transaction.
	CreateBookingWithLock(ctx context.Context, booking *models.Booking) error
	// UpdateBookingWithLock stores the booking if its version still equals fromVersion.
	// With recheck set, availability of the new interval is verified inside the same transaction.
	UpdateBookingWithLock(ctx context.Context, booking *models.Booking, fromVersion int64, recheck bool) error
}

// QuotaStore counts events per key inside a fixed window.
type QuotaStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type BookingService interface {
	CreateBooking(ctx context.Context, requesterID int64, input models.CreateBookingInput) (*models.BookingView, error)
	UpdateBooking(ctx context.Context, bookingID, requesterID int64, patch models.BookingPatch) (*models.BookingView, error)
	GetBooking(ctx context.Context, bookingID, requesterID int64) (*models.BookingView, error)
	ListUserBookings(ctx context.Context, requesterID int64) ([]models.BookingView, error)
	GetRoom(ctx context.Context, roomID, requesterID int64) (*models.RoomView, error)
	ListRooms(ctx context.Context, requesterID int64) ([]models.RoomView, error)
	RoomSchedule(ctx context.Context, roomID int64) (*models.RoomWithBookings, error)
}
