package database

import (
	"context"
	"sync"
	"testing"

	"roombook/internal/domain"
	"roombook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrentBooking(t *testing.T) {
	db := setupTestDB(t)
	seedRoom(t, db, 1)
	ctx := context.Background()

	const numGoroutines = 10
	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	results := make(chan error, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			// every request overlaps every other one
			start := at(10, id)
			results <- db.CreateBookingWithLock(ctx, newBooking(1, int64(id+1), start, at(12, 0)))
		}(i)
	}

	wg.Wait()
	close(results)

	successCount := 0
	for err := range results {
		if err == nil {
			successCount++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrRoomUnavailable)
	}

	assert.Equal(t, 1, successCount, "only one overlapping booking may succeed")

	active, err := db.GetActiveRoomBookings(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestConcurrentUpdate(t *testing.T) {
	db := setupTestDB(t)
	seedRoom(t, db, 1)
	ctx := context.Background()

	b := newBooking(1, 1, at(10, 0), at(11, 0))
	require.NoError(t, db.CreateBookingWithLock(ctx, b))

	const numGoroutines = 5
	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	results := make(chan error, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			cp := *b
			cp.Status = models.StatusCancelled
			results <- db.UpdateBookingWithLock(ctx, &cp, 1, false)
		}()
	}

	wg.Wait()
	close(results)

	successCount := 0
	for err := range results {
		if err == nil {
			successCount++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrConcurrentModification)
	}
	assert.Equal(t, 1, successCount)
}
