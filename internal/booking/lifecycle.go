package booking

import (
	"strings"
	"time"
	"unicode/utf8"

	"roombook/internal/domain"
	"roombook/internal/models"
)

const (
	msgCompleted  = "cannot alter a past booking"
	msgInProgress = "cannot alter a booking in progress"
	msgCancelled  = "cannot alter a cancelled booking"
)

// EffectiveStatus derives the status a booking appears to have at now.
// Storage is never touched.
func EffectiveStatus(stored models.Status, interval models.Interval, now time.Time) models.Status {
	switch stored {
	case models.StatusCancelled, models.StatusCompleted:
		return stored
	}
	switch {
	case now.Before(interval.Start):
		return models.StatusScheduled
	case now.Before(interval.End):
		return models.StatusInProgress
	default:
		return models.StatusCompleted
	}
}

// CheckMutation gates a patch against the stored status of a booking.
// The order of the checks is significant: completed, then in progress, then cancelled.
func CheckMutation(stored models.Status, patch models.BookingPatch) error {
	if stored == models.StatusCompleted {
		return &domain.LockedStateError{Status: stored, Message: msgCompleted}
	}
	if !patch.Cancels() && stored == models.StatusInProgress {
		return &domain.LockedStateError{Status: stored, Message: msgInProgress}
	}
	if stored == models.StatusCancelled {
		return &domain.LockedStateError{Status: stored, Message: msgCancelled}
	}
	if patch.Status != nil && *patch.Status != models.StatusCancelled {
		return domain.NewValidationError("status", "the only status that can be set is %q", models.StatusCancelled)
	}
	return nil
}

// ValidateInterval checks ordering and that the interval starts strictly after now.
func ValidateInterval(interval models.Interval, now time.Time) error {
	if !interval.Start.After(now) {
		return domain.NewValidationError("start_time", "must be a date after now")
	}
	if !interval.End.After(interval.Start) {
		return domain.NewValidationError("end_time", "must be a date after start_time")
	}
	return nil
}

// NormalizeResponsibleName trims the name and checks it is present and short enough.
func NormalizeResponsibleName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", domain.NewValidationError("responsible_name", "is required")
	}
	if utf8.RuneCountInString(name) > models.MaxResponsibleNameLength {
		return "", domain.NewValidationError("responsible_name", "must not be longer than %d characters", models.MaxResponsibleNameLength)
	}
	return name, nil
}

// Merge applies the patch to a copy of the booking. Status is taken as is; callers gate it first.
func Merge(b *models.Booking, patch models.BookingPatch) *models.Booking {
	merged := *b
	if patch.ResponsibleName != nil {
		merged.ResponsibleName = *patch.ResponsibleName
	}
	if patch.StartTime != nil {
		merged.StartTime = models.Normalize(*patch.StartTime)
	}
	if patch.EndTime != nil {
		merged.EndTime = models.Normalize(*patch.EndTime)
	}
	if patch.Status != nil {
		merged.Status = *patch.Status
	}
	return &merged
}
