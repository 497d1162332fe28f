package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"roombook/internal/booking"
	"roombook/internal/domain"
	"roombook/internal/models"
)

const bookingColumns = `id, room_id, user_id, responsible_name, start_time, end_time,
                        status, created_at, updated_at, version`

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	row := db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("booking %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return b, nil
}

func (db *DB) GetActiveRoomBookings(ctx context.Context, roomID int64) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE room_id = ? AND status IN (?, ?)
              ORDER BY start_time, id`
	bookings, err := queryBookings(ctx, db, query, roomID, models.StatusScheduled, models.StatusInProgress)
	if err != nil {
		return nil, fmt.Errorf("failed to get room bookings: %w", err)
	}
	return bookings, nil
}

func (db *DB) GetCandidateConflicts(ctx context.Context, roomID int64, interval models.Interval) ([]*models.Booking, error) {
	bookings, err := candidateConflicts(ctx, db, roomID, interval)
	if err != nil {
		return nil, fmt.Errorf("failed to get candidate conflicts: %w", err)
	}
	return bookings, nil
}

// GetUserBookings returns every booking of the user ordered by start time.
func (db *DB) GetUserBookings(ctx context.Context, userID int64) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE user_id = ? ORDER BY start_time, id`
	bookings, err := queryBookings(ctx, db, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user bookings: %w", err)
	}
	return bookings, nil
}

// CreateBookingWithLock re-runs the availability check inside the write transaction
// and inserts the booking only if the room is still free.
func (db *DB) CreateBookingWithLock(ctx context.Context, b *models.Booking) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := ensureAvailable(ctx, tx, b.RoomID, b.Interval(), 0); err != nil {
		return err
	}

	createdAt := nowOr(b.CreatedAt)
	updatedAt := nowOr(b.UpdatedAt)
	queryInsert := `INSERT INTO bookings (
				room_id, user_id, responsible_name, start_time, end_time,
				status, created_at, updated_at, version
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1)`
	result, err := tx.ExecContext(ctx, queryInsert,
		b.RoomID,
		b.UserID,
		b.ResponsibleName,
		formatTime(b.StartTime),
		formatTime(b.EndTime),
		b.Status,
		formatTime(createdAt),
		formatTime(updatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert booking in tx: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id in tx: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit booking: %w", err)
	}

	b.ID = id
	b.CreatedAt = createdAt
	b.UpdatedAt = updatedAt
	b.Version = 1
	return nil
}

// UpdateBookingWithLock writes the mutable fields of b when the stored version equals fromVersion.
// With recheck set, the new interval must still be free, ignoring b itself.
func (db *DB) UpdateBookingWithLock(ctx context.Context, b *models.Booking, fromVersion int64, recheck bool) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if recheck {
		if err := ensureAvailable(ctx, tx, b.RoomID, b.Interval(), b.ID); err != nil {
			return err
		}
	}

	updatedAt := nowOr(b.UpdatedAt)
	query := `UPDATE bookings
              SET responsible_name = ?, start_time = ?, end_time = ?, status = ?,
                  updated_at = ?, version = version + 1
              WHERE id = ? AND version = ?`
	result, err := tx.ExecContext(ctx, query,
		b.ResponsibleName,
		formatTime(b.StartTime),
		formatTime(b.EndTime),
		b.Status,
		formatTime(updatedAt),
		b.ID,
		fromVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return domain.ErrConcurrentModification
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit booking update: %w", err)
	}

	b.UpdatedAt = updatedAt
	b.Version = fromVersion + 1
	return nil
}

func ensureAvailable(ctx context.Context, q querier, roomID int64, interval models.Interval, excludeID int64) error {
	candidates, err := candidateConflicts(ctx, q, roomID, interval)
	if err != nil {
		return fmt.Errorf("failed to check availability in tx: %w", err)
	}
	if !booking.Available(candidates, interval, excludeID) {
		return domain.ErrRoomUnavailable
	}
	return nil
}

// candidateConflicts narrows the room's active bookings to the ones touching the interval.
// Boundary-touching rows are included here and sorted out by booking.Available.
func candidateConflicts(ctx context.Context, q querier, roomID int64, interval models.Interval) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE room_id = ? AND status IN (?, ?)
                AND start_time <= ? AND end_time >= ?
              ORDER BY start_time, id`
	return queryBookings(ctx, q, query,
		roomID,
		models.StatusScheduled,
		models.StatusInProgress,
		formatTime(interval.End),
		formatTime(interval.Start),
	)
}

func queryBookings(ctx context.Context, q querier, query string, args ...interface{}) ([]*models.Booking, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func scanBooking(r rowScanner) (*models.Booking, error) {
	var b models.Booking
	var start, end, createdAt, updatedAt string
	err := r.Scan(
		&b.ID, &b.RoomID, &b.UserID, &b.ResponsibleName, &start, &end,
		&b.Status, &createdAt, &updatedAt, &b.Version,
	)
	if err != nil {
		return nil, err
	}

	if b.StartTime, err = parseTime("start_time", start); err != nil {
		return nil, err
	}
	if b.EndTime, err = parseTime("end_time", end); err != nil {
		return nil, err
	}
	if b.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return nil, err
	}
	if b.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}
