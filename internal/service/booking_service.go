package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"roombook/internal/booking"
	"roombook/internal/clock"
	"roombook/internal/domain"
	"roombook/internal/events"
	"roombook/internal/metrics"
	"roombook/internal/models"

	"github.com/rs/zerolog"
)

type Options struct {
	Retry            RetryPolicy
	WriteQuota       int
	WriteQuotaWindow time.Duration
}

type BookingService struct {
	repo        domain.Repository
	quota       domain.QuotaStore
	eventBus    domain.EventPublisher
	clock       clock.Clock
	retry       RetryPolicy
	quotaLimit  int
	quotaWindow time.Duration
	logger      *zerolog.Logger
}

var _ domain.BookingService = (*BookingService)(nil)

// NewBookingService wires the service. quota and eventBus may be nil.
func NewBookingService(
	repo domain.Repository,
	quota domain.QuotaStore,
	eventBus domain.EventPublisher,
	clk clock.Clock,
	opts Options,
	logger *zerolog.Logger,
) *BookingService {
	if clk == nil {
		clk = clock.Real{}
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = DefaultRetryPolicy(models.DefaultUpdateRetries)
	}
	if opts.WriteQuotaWindow <= 0 {
		opts.WriteQuotaWindow = time.Duration(models.DefaultWriteQuotaWindow) * time.Second
	}
	return &BookingService{
		repo:        repo,
		quota:       quota,
		eventBus:    eventBus,
		clock:       clk,
		retry:       opts.Retry,
		quotaLimit:  opts.WriteQuota,
		quotaWindow: opts.WriteQuotaWindow,
		logger:      logger,
	}
}

func (s *BookingService) CreateBooking(ctx context.Context, requesterID int64, input models.CreateBookingInput) (view *models.BookingView, err error) {
	defer s.observe("create", time.Now(), &err)

	if requesterID <= 0 {
		return nil, domain.ErrUnauthenticated
	}
	if err := s.checkQuota(ctx, requesterID); err != nil {
		return nil, err
	}

	name, err := booking.NormalizeResponsibleName(input.ResponsibleName)
	if err != nil {
		return nil, err
	}
	if input.RoomID <= 0 {
		return nil, domain.NewValidationError("room_id", "is required")
	}
	if input.StartTime.IsZero() {
		return nil, domain.NewValidationError("start_time", "is required")
	}
	if input.EndTime.IsZero() {
		return nil, domain.NewValidationError("end_time", "is required")
	}

	now := s.clock.Now()
	interval := models.Interval{Start: models.Normalize(input.StartTime), End: models.Normalize(input.EndTime)}
	if err := booking.ValidateInterval(interval, now); err != nil {
		return nil, err
	}

	room, err := s.repo.GetRoom(ctx, input.RoomID)
	if err != nil {
		return nil, err
	}

	if err := s.ensureAvailable(ctx, room.ID, interval, 0); err != nil {
		return nil, err
	}

	b := &models.Booking{
		RoomID:          room.ID,
		UserID:          requesterID,
		ResponsibleName: name,
		StartTime:       interval.Start,
		EndTime:         interval.End,
		Status:          models.StatusScheduled,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.CreateBookingWithLock(ctx, b); err != nil {
		return nil, err
	}

	s.publishEvent(events.EventBookingCreated, b, requesterID)
	s.logger.Info().
		Int64("booking_id", b.ID).
		Int64("room_id", b.RoomID).
		Int64("user_id", requesterID).
		Str("interval", b.Interval().String()).
		Msg("Booking created")

	v := projectBooking(b, room, requesterID, now)
	return &v, nil
}

// UpdateBooking applies patch to a booking owned by requesterID. A lost compare-and-commit race
// is retried from a fresh read, so every gate runs again against the latest stored state.
func (s *BookingService) UpdateBooking(ctx context.Context, bookingID, requesterID int64, patch models.BookingPatch) (view *models.BookingView, err error) {
	defer s.observe("update", time.Now(), &err)

	if requesterID <= 0 {
		return nil, domain.ErrUnauthenticated
	}
	if err := s.checkQuota(ctx, requesterID); err != nil {
		return nil, err
	}

	attempts := s.retry.attempts()
	for attempt := 1; ; attempt++ {
		view, err = s.updateOnce(ctx, bookingID, requesterID, patch)
		if !errors.Is(err, domain.ErrConcurrentModification) || attempt >= attempts {
			return view, err
		}

		delay := s.retry.NextDelay(attempt)
		s.logger.Debug().
			Int64("booking_id", bookingID).
			Int("attempt", attempt).
			Dur("delay", delay).
			Msg("Concurrent booking update, retrying")
		if err := sleepContext(ctx, delay); err != nil {
			return nil, err
		}
	}
}

func (s *BookingService) updateOnce(ctx context.Context, bookingID, requesterID int64, patch models.BookingPatch) (*models.BookingView, error) {
	current, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !current.OwnedBy(requesterID) {
		return nil, domain.ErrForbidden
	}
	if err := booking.CheckMutation(current.Status, patch); err != nil {
		return nil, err
	}

	if patch.ResponsibleName != nil {
		name, err := booking.NormalizeResponsibleName(*patch.ResponsibleName)
		if err != nil {
			return nil, err
		}
		patch.ResponsibleName = &name
	}

	now := s.clock.Now()
	merged := booking.Merge(current, patch)
	if patch.HasTimes() {
		if err := booking.ValidateInterval(merged.Interval(), now); err != nil {
			return nil, err
		}
	}

	recheck := patch.HasTimes() && !patch.Cancels()
	if recheck {
		if err := s.ensureAvailable(ctx, merged.RoomID, merged.Interval(), merged.ID); err != nil {
			return nil, err
		}
	}

	merged.UpdatedAt = now
	if err := s.repo.UpdateBookingWithLock(ctx, merged, current.Version, recheck); err != nil {
		return nil, err
	}

	eventType := events.EventBookingUpdated
	if patch.Cancels() {
		eventType = events.EventBookingCancelled
	}
	s.publishEvent(eventType, merged, requesterID)
	s.logger.Info().
		Int64("booking_id", merged.ID).
		Int64("user_id", requesterID).
		Str("status", merged.Status.String()).
		Str("interval", merged.Interval().String()).
		Msg("Booking updated")

	room, err := s.repo.GetRoom(ctx, merged.RoomID)
	if err != nil {
		s.logger.Warn().Err(err).Int64("room_id", merged.RoomID).Msg("Failed to load room for booking view")
	}
	v := projectBooking(merged, room, requesterID, now)
	return &v, nil
}

// GetBooking returns the full view of a booking to its owner. Anyone else gets ErrForbidden.
func (s *BookingService) GetBooking(ctx context.Context, bookingID, requesterID int64) (*models.BookingView, error) {
	if requesterID <= 0 {
		return nil, domain.ErrUnauthenticated
	}

	b, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !b.OwnedBy(requesterID) {
		return nil, domain.ErrForbidden
	}

	room, err := s.repo.GetRoom(ctx, b.RoomID)
	if err != nil {
		return nil, err
	}

	v := projectBooking(b, room, requesterID, s.clock.Now())
	return &v, nil
}

// ListUserBookings returns all bookings of the requester ordered by start time.
func (s *BookingService) ListUserBookings(ctx context.Context, requesterID int64) ([]models.BookingView, error) {
	if requesterID <= 0 {
		return nil, domain.ErrUnauthenticated
	}

	bookings, err := s.repo.GetUserBookings(ctx, requesterID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	rooms := make(map[int64]*models.Room)
	views := make([]models.BookingView, 0, len(bookings))
	for _, b := range bookings {
		room, ok := rooms[b.RoomID]
		if !ok {
			room, err = s.repo.GetRoom(ctx, b.RoomID)
			if err != nil {
				return nil, fmt.Errorf("room of booking %d: %w", b.ID, err)
			}
			rooms[b.RoomID] = room
		}
		views = append(views, projectBooking(b, room, requesterID, now))
	}
	return views, nil
}

// GetRoom returns a room with its active bookings as seen by requesterID.
func (s *BookingService) GetRoom(ctx context.Context, roomID, requesterID int64) (*models.RoomView, error) {
	schedule, err := s.RoomSchedule(ctx, roomID)
	if err != nil {
		return nil, err
	}
	v := projectRoom(schedule.Room, schedule.Bookings, requesterID, s.clock.Now())
	return &v, nil
}

func (s *BookingService) ListRooms(ctx context.Context, requesterID int64) ([]models.RoomView, error) {
	rooms, err := s.repo.ListRooms(ctx)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	views := make([]models.RoomView, 0, len(rooms))
	for _, room := range rooms {
		bookings, err := s.repo.GetActiveRoomBookings(ctx, room.ID)
		if err != nil {
			return nil, err
		}
		views = append(views, projectRoom(room, bookings, requesterID, now))
	}
	return views, nil
}

// RoomSchedule returns the room and a snapshot of its active bookings ordered by start.
func (s *BookingService) RoomSchedule(ctx context.Context, roomID int64) (*models.RoomWithBookings, error) {
	room, err := s.repo.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	bookings, err := s.repo.GetActiveRoomBookings(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return &models.RoomWithBookings{Room: room, Bookings: bookings}, nil
}

// Now exposes the service clock to transports that render effective statuses.
func (s *BookingService) Now() time.Time {
	return s.clock.Now()
}

func (s *BookingService) ensureAvailable(ctx context.Context, roomID int64, interval models.Interval, excludeID int64) error {
	candidates, err := s.repo.GetCandidateConflicts(ctx, roomID, interval)
	if err != nil {
		return err
	}
	available := booking.Available(candidates, interval, excludeID)
	metrics.IncAvailability(available)
	if !available {
		return domain.ErrRoomUnavailable
	}
	return nil
}

// checkQuota enforces the per-user write quota. A failing store lets the write through.
func (s *BookingService) checkQuota(ctx context.Context, userID int64) error {
	if s.quota == nil || s.quotaLimit <= 0 {
		return nil
	}
	allowed, err := s.quota.Allow(ctx, fmt.Sprintf("user:%d", userID), s.quotaLimit, s.quotaWindow)
	if err != nil {
		s.logger.Warn().Err(err).Int64("user_id", userID).Msg("Write quota check failed")
		return nil
	}
	if !allowed {
		return domain.ErrRateLimited
	}
	return nil
}

func (s *BookingService) publishEvent(eventType string, b *models.Booking, changedBy int64) {
	if s.eventBus == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID: b.ID,
		RoomID:    b.RoomID,
		UserID:    b.UserID,
		Status:    b.Status.String(),
		StartTime: b.StartTime,
		EndTime:   b.EndTime,
		ChangedBy: changedBy,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("booking_id", b.ID).Msg("publish event error")
	}
}

func (s *BookingService) observe(operation string, started time.Time, err *error) {
	metrics.ObserveBookingOp(operation, domain.Classify(*err), time.Since(started))
}
