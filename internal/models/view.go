package models

// RoomSummary is the room block embedded in an owner's booking view.
type RoomSummary struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}

// BookingView is the wire projection of a booking. Identity fields are left empty
// (and omitted from JSON) when the viewer is not the owner.
type BookingView struct {
	ID              int64        `json:"id,omitempty"`
	ResponsibleName string       `json:"responsible_name,omitempty"`
	StartTime       string       `json:"start_time"`
	EndTime         string       `json:"end_time"`
	Status          Status       `json:"status"`
	Room            *RoomSummary `json:"room,omitempty"`
}

type RoomView struct {
	ID       int64         `json:"id"`
	Name     string        `json:"name"`
	Capacity int           `json:"capacity"`
	Bookings []BookingView `json:"bookings"`
}

func (r *Room) Summary() *RoomSummary {
	if r == nil {
		return nil
	}
	return &RoomSummary{ID: r.ID, Name: r.Name, Capacity: r.Capacity}
}
