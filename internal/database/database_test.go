package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"roombook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.Nop()
	db, err := NewDB(filepath.Join(t.TempDir(), "roombook.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedRoom(t *testing.T, db *DB, id int64) *models.Room {
	t.Helper()
	room := &models.Room{ID: id, Name: "Room", Capacity: 10}
	require.NoError(t, db.UpsertRoom(context.Background(), room))
	return room
}

func TestNewDB_DirectoryCreation(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "test.db")
	logger := zerolog.Nop()

	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	defer db.Close()

	assert.FileExists(t, dbPath)
	assert.Equal(t, dbPath, db.Path())
}

func TestNewDB_Memory(t *testing.T) {
	logger := zerolog.Nop()
	db, err := NewDB(":memory:", &logger)
	require.NoError(t, err)
	defer db.Close()

	assert.NoError(t, db.PingContext(context.Background()))
}

func TestEnsureBookingVersionColumn(t *testing.T) {
	db := setupTestDB(t)

	// second call hits the duplicate column path
	require.NoError(t, db.ensureBookingVersionColumn())
}

func TestDSN(t *testing.T) {
	assert.Equal(t, "a.db?_txlock=immediate&_busy_timeout=5000&_foreign_keys=on", dsn("a.db"))
	assert.Equal(t, "file:a.db?mode=rwc&_txlock=immediate&_busy_timeout=5000&_foreign_keys=on", dsn("file:a.db?mode=rwc"))
}

func TestRooms(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	room := &models.Room{ID: 2, Name: "Green", Capacity: 6}
	require.NoError(t, db.UpsertRoom(ctx, room))
	assert.False(t, room.CreatedAt.IsZero())

	room.Name = "Green Hall"
	room.Capacity = 12
	require.NoError(t, db.UpsertRoom(ctx, room))

	seedRoom(t, db, 1)

	rooms, err := db.ListRooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, int64(1), rooms[0].ID)
	assert.Equal(t, "Green Hall", rooms[1].Name)
	assert.Equal(t, 12, rooms[1].Capacity)

	err = db.UpsertRoom(ctx, &models.Room{ID: 3, Name: "Broken", Capacity: 0})
	assert.Error(t, err)
}

func TestDB_ErrorPaths(t *testing.T) {
	logger := zerolog.Nop()
	db, err := NewDB(filepath.Join(t.TempDir(), "closed.db"), &logger)
	require.NoError(t, err)
	db.Close()

	ctx := context.Background()
	start := time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC)
	b := &models.Booking{RoomID: 1, UserID: 1, ResponsibleName: "x", StartTime: start, EndTime: start.Add(time.Hour), Status: models.StatusScheduled}

	_, err = db.GetRoom(ctx, 1)
	assert.Error(t, err)
	_, err = db.ListRooms(ctx)
	assert.Error(t, err)
	_, err = db.GetUserBookings(ctx, 1)
	assert.Error(t, err)
	assert.Error(t, db.CreateBookingWithLock(ctx, b))
	assert.Error(t, db.UpdateBookingWithLock(ctx, b, 1, true))
}
