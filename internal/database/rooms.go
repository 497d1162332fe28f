package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"roombook/internal/domain"
	"roombook/internal/models"
)

// UpsertRoom inserts the room or updates name and capacity of an existing one.
func (db *DB) UpsertRoom(ctx context.Context, room *models.Room) error {
	if room == nil {
		return fmt.Errorf("room is nil")
	}
	if room.Capacity <= 0 {
		return domain.NewValidationError("capacity", "must be greater than zero")
	}

	now := models.Normalize(time.Now())
	query := `INSERT INTO rooms (id, name, capacity, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?)
              ON CONFLICT(id) DO UPDATE SET
                name = excluded.name,
                capacity = excluded.capacity,
                updated_at = excluded.updated_at`
	if _, err := db.ExecContext(ctx, query, room.ID, room.Name, room.Capacity, formatTime(now), formatTime(now)); err != nil {
		return fmt.Errorf("failed to upsert room %d: %w", room.ID, err)
	}

	stored, err := db.GetRoom(ctx, room.ID)
	if err != nil {
		return err
	}
	*room = *stored
	return nil
}

// SyncRooms upserts every configured room.
func (db *DB) SyncRooms(ctx context.Context, rooms []models.Room) error {
	for i := range rooms {
		if err := db.UpsertRoom(ctx, &rooms[i]); err != nil {
			return err
		}
	}
	db.logger.Info().Int("count", len(rooms)).Msg("Rooms synchronized")
	return nil
}

func (db *DB) GetRoom(ctx context.Context, id int64) (*models.Room, error) {
	row := db.QueryRowContext(ctx, `SELECT id, name, capacity, created_at, updated_at FROM rooms WHERE id = ?`, id)
	room, err := scanRoom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("room %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	return room, nil
}

func (db *DB) ListRooms(ctx context.Context) ([]*models.Room, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, name, capacity, created_at, updated_at FROM rooms ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*models.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

func scanRoom(r rowScanner) (*models.Room, error) {
	var room models.Room
	var createdAt, updatedAt string
	if err := r.Scan(&room.ID, &room.Name, &room.Capacity, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if room.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return nil, err
	}
	if room.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return nil, err
	}
	return &room, nil
}
