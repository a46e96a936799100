package errors

import "errors"

var (
	ErrNotFound = errors.New("room not found")

	ErrInvalidID = errors.New("invalid room ID format")

	ErrHasBookings = errors.New("room has existing bookings")

	ErrInvalidRoomType = errors.New("invalid room type")

	ErrEmptyUpdate = errors.New("update contains no fields")
)
