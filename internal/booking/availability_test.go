package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"roombook/internal/models"
)

func at(hour, min int) time.Time {
	return time.Date(2024, 10, 25, hour, min, 0, 0, time.UTC)
}

func newBooking(id int64, start, end time.Time, status models.Status) *models.Booking {
	return &models.Booking{ID: id, RoomID: 1, UserID: 1, StartTime: start, EndTime: end, Status: status}
}

func TestAvailable_BackToBack(t *testing.T) {
	bookings := []*models.Booking{newBooking(1, at(10, 0), at(11, 0), models.StatusScheduled)}

	assert.True(t, Available(bookings, models.Interval{Start: at(11, 0), End: at(12, 0)}, 0))
	assert.True(t, Available(bookings, models.Interval{Start: at(9, 0), End: at(10, 0)}, 0))
}

func TestAvailable_Containment(t *testing.T) {
	bookings := []*models.Booking{newBooking(1, at(10, 0), at(12, 0), models.StatusScheduled)}

	assert.False(t, Available(bookings, models.Interval{Start: at(10, 30), End: at(11, 30)}, 0))
	assert.False(t, Available(bookings, models.Interval{Start: at(9, 0), End: at(13, 0)}, 0))
}

func TestAvailable_InactiveNeverBlocks(t *testing.T) {
	candidate := models.Interval{Start: at(10, 0), End: at(11, 0)}

	for _, status := range []models.Status{models.StatusCancelled, models.StatusCompleted} {
		bookings := []*models.Booking{newBooking(1, at(10, 0), at(11, 0), status)}
		assert.True(t, Available(bookings, candidate, 0), status)
	}

	inProgress := []*models.Booking{newBooking(1, at(10, 0), at(11, 0), models.StatusInProgress)}
	assert.False(t, Available(inProgress, candidate, 0))
}

func TestAvailable_ExcludesSelf(t *testing.T) {
	bookings := []*models.Booking{
		newBooking(1, at(14, 0), at(16, 0), models.StatusScheduled),
		newBooking(2, at(16, 0), at(17, 0), models.StatusScheduled),
	}

	assert.True(t, Available(bookings, models.Interval{Start: at(14, 0), End: at(16, 0)}, 1))
	assert.False(t, Available(bookings, models.Interval{Start: at(14, 0), End: at(16, 30)}, 1))
	assert.False(t, Available(bookings, models.Interval{Start: at(14, 0), End: at(16, 0)}, 0))
}

func TestAvailable_Empty(t *testing.T) {
	assert.True(t, Available(nil, models.Interval{Start: at(10, 0), End: at(11, 0)}, 0))
}

func TestConflicts(t *testing.T) {
	bookings := []*models.Booking{
		newBooking(1, at(8, 0), at(9, 0), models.StatusScheduled),
		newBooking(2, at(9, 30), at(10, 30), models.StatusScheduled),
		newBooking(3, at(10, 0), at(11, 0), models.StatusCancelled),
		newBooking(4, at(10, 45), at(12, 0), models.StatusScheduled),
	}

	got := Conflicts(bookings, models.Interval{Start: at(10, 0), End: at(11, 0)}, 0)
	if assert.Len(t, got, 2) {
		assert.Equal(t, int64(2), got[0].ID)
		assert.Equal(t, int64(4), got[1].ID)
	}

	assert.Len(t, ActiveOnly(bookings), 3)
}
