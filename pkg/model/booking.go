package model

import (
	"time"
)

const (
	BookingsTable = "bookings"

	MaxGuestNameLength = 100
)

type Booking struct {
	ID            string    `json:"id" bson:"_id"`
	RoomID        string    `json:"room_id" bson:"room_id"`
	GuestName     string    `json:"guest_name" bson:"guest_name"`
	StartDatetime time.Time `json:"start_datetime" bson:"start_datetime"`
	EndDatetime   time.Time `json:"end_datetime" bson:"end_datetime"`
	Nights        int       `json:"nights" bson:"nights"`
	TotalPrice    float64   `json:"total_price" bson:"total_price"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"`
}

func (b *Booking) GetID() string   { return b.ID }
func (b *Booking) SetID(id string) { b.ID = id }

// BookingRequest is the client-writable part of a booking. Nights and price are derived.
type BookingRequest struct {
	RoomID        string    `json:"room_id" validate:"required,uuid"`
	GuestName     string    `json:"guest_name" validate:"required,min=1,max=100"`
	StartDatetime time.Time `json:"start_datetime" validate:"required"`
	EndDatetime   time.Time `json:"end_datetime" validate:"required"`
}
