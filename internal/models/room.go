package models

import "time"

type Room struct {
	ID        int64     `yaml:"id" json:"id"`
	Name      string    `yaml:"name" json:"name"`
	Capacity  int       `yaml:"capacity" json:"capacity"`
	CreatedAt time.Time `yaml:"-" json:"created_at"`
	UpdatedAt time.Time `yaml:"-" json:"updated_at"`
}

// RoomWithBookings is a room together with a snapshot of its active bookings.
type RoomWithBookings struct {
	Room     *Room
	Bookings []*Booking
}
