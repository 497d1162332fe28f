package database

import (
	"context"
	"testing"
	"time"

	"roombook/internal/domain"
	"roombook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hour, min int) time.Time {
	return time.Date(2030, 10, 25, hour, min, 0, 0, time.UTC)
}

func newBooking(roomID, userID int64, start, end time.Time) *models.Booking {
	return &models.Booking{
		RoomID:          roomID,
		UserID:          userID,
		ResponsibleName: "Alice",
		StartTime:       start,
		EndTime:         end,
		Status:          models.StatusScheduled,
	}
}

func TestCreateAndGetBooking(t *testing.T) {
	db := setupTestDB(t)
	seedRoom(t, db, 1)
	ctx := context.Background()

	b := newBooking(1, 7, at(10, 0), at(11, 0))
	require.NoError(t, db.CreateBookingWithLock(ctx, b))
	assert.NotZero(t, b.ID)
	assert.Equal(t, int64(1), b.Version)

	got, err := db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.UserID)
	assert.Equal(t, "Alice", got.ResponsibleName)
	assert.Equal(t, at(10, 0), got.StartTime)
	assert.Equal(t, at(11, 0), got.EndTime)
	assert.Equal(t, models.StatusScheduled, got.Status)
	assert.Equal(t, time.UTC, got.StartTime.Location())

	_, err = db.GetBooking(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateBookingWithLock_Conflicts(t *testing.T) {
	db := setupTestDB(t)
	seedRoom(t, db, 1)
	seedRoom(t, db, 2)
	ctx := context.Background()

	require.NoError(t, db.CreateBookingWithLock(ctx, newBooking(1, 1, at(10, 0), at(12, 0))))

	err := db.CreateBookingWithLock(ctx, newBooking(1, 2, at(10, 30), at(11, 30)))
	assert.ErrorIs(t, err, domain.ErrRoomUnavailable)

	// back to back on both sides
	require.NoError(t, db.CreateBookingWithLock(ctx, newBooking(1, 2, at(12, 0), at(13, 0))))
	require.NoError(t, db.CreateBookingWithLock(ctx, newBooking(1, 2, at(9, 0), at(10, 0))))

	// other room is independent
	require.NoError(t, db.CreateBookingWithLock(ctx, newBooking(2, 2, at(10, 30), at(11, 30))))

	active, err := db.GetActiveRoomBookings(ctx, 1)
	require.NoError(t, err)
	require.Len(t, active, 3)
	assert.Equal(t, at(9, 0), active[0].StartTime)
	assert.Equal(t, at(10, 0), active[1].StartTime)
	assert.Equal(t, at(12, 0), active[2].StartTime)
}

func TestCreateBookingWithLock_UnknownRoom(t *testing.T) {
	db := setupTestDB(t)

	err := db.CreateBookingWithLock(context.Background(), newBooking(42, 1, at(10, 0), at(11, 0)))
	assert.Error(t, err)
}

func TestUpdateBookingWithLock(t *testing.T) {
	db := setupTestDB(t)
	seedRoom(t, db, 1)
	ctx := context.Background()

	a := newBooking(1, 1, at(14, 0), at(16, 0))
	require.NoError(t, db.CreateBookingWithLock(ctx, a))
	other := newBooking(1, 2, at(16, 0), at(17, 0))
	require.NoError(t, db.CreateBookingWithLock(ctx, other))

	t.Run("unchanged interval excludes itself", func(t *testing.T) {
		require.NoError(t, db.UpdateBookingWithLock(ctx, a, a.Version, true))
		assert.Equal(t, int64(2), a.Version)
	})

	t.Run("conflicting move", func(t *testing.T) {
		moved := *a
		moved.EndTime = at(16, 30)
		err := db.UpdateBookingWithLock(ctx, &moved, moved.Version, true)
		assert.ErrorIs(t, err, domain.ErrRoomUnavailable)
	})

	t.Run("stale version", func(t *testing.T) {
		stale := *a
		stale.ResponsibleName = "Bob"
		err := db.UpdateBookingWithLock(ctx, &stale, 1, false)
		assert.ErrorIs(t, err, domain.ErrConcurrentModification)
	})

	t.Run("cancel frees the slot", func(t *testing.T) {
		cancelled := *other
		cancelled.Status = models.StatusCancelled
		require.NoError(t, db.UpdateBookingWithLock(ctx, &cancelled, cancelled.Version, false))

		moved := *a
		moved.EndTime = at(16, 30)
		require.NoError(t, db.UpdateBookingWithLock(ctx, &moved, moved.Version, true))

		got, err := db.GetBooking(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, at(16, 30), got.EndTime)
		assert.Equal(t, int64(3), got.Version)
	})
}

func TestGetCandidateConflicts(t *testing.T) {
	db := setupTestDB(t)
	seedRoom(t, db, 1)
	ctx := context.Background()

	require.NoError(t, db.CreateBookingWithLock(ctx, newBooking(1, 1, at(8, 0), at(9, 0))))
	require.NoError(t, db.CreateBookingWithLock(ctx, newBooking(1, 1, at(10, 0), at(11, 0))))
	require.NoError(t, db.CreateBookingWithLock(ctx, newBooking(1, 1, at(13, 0), at(14, 0))))

	got, err := db.GetCandidateConflicts(ctx, 1, models.Interval{Start: at(9, 0), End: at(12, 0)})
	require.NoError(t, err)
	// touching 8-9 row comes back from the prefilter, 13-14 does not
	require.Len(t, got, 2)
	assert.Equal(t, at(8, 0), got[0].StartTime)
	assert.Equal(t, at(10, 0), got[1].StartTime)
}

func TestGetUserBookings(t *testing.T) {
	db := setupTestDB(t)
	seedRoom(t, db, 1)
	seedRoom(t, db, 2)
	ctx := context.Background()

	require.NoError(t, db.CreateBookingWithLock(ctx, newBooking(2, 5, at(15, 0), at(16, 0))))
	require.NoError(t, db.CreateBookingWithLock(ctx, newBooking(1, 5, at(9, 0), at(10, 0))))
	require.NoError(t, db.CreateBookingWithLock(ctx, newBooking(1, 6, at(11, 0), at(12, 0))))

	bookings, err := db.GetUserBookings(ctx, 5)
	require.NoError(t, err)
	require.Len(t, bookings, 2)
	assert.Equal(t, at(9, 0), bookings[0].StartTime)
	assert.Equal(t, at(15, 0), bookings[1].StartTime)

	none, err := db.GetUserBookings(ctx, 99)
	require.NoError(t, err)
	assert.Empty(t, none)
}
