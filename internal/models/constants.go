package models

// Status is the persisted booking status.
type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// ActiveStatuses are the stored statuses that block a room.
var ActiveStatuses = []Status{StatusScheduled, StatusInProgress}

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

func (s Status) IsActive() bool {
	return s == StatusScheduled || s == StatusInProgress
}

func (s Status) String() string { return string(s) }

const (
	// TimeLayout is the wire and storage format of instants (always UTC).
	TimeLayout = "2006-01-02 15:04:05"
	// MaxResponsibleNameLength limits responsible_name in characters.
	MaxResponsibleNameLength = 255
	// DefaultUpdateRetries bounds compare-and-commit retries of an update.
	DefaultUpdateRetries = 3
	// DefaultWriteQuota is the number of booking writes per user per window.
	DefaultWriteQuota = 30
	// DefaultWriteQuotaWindow is the write quota window in seconds.
	DefaultWriteQuotaWindow = 60
)
