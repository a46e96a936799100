package service

import (
	"context"
	"errors"
	"time"

	"hotelbook/internal/bookings/stay"
	roomserrors "hotelbook/internal/rooms/errors"
	"hotelbook/internal/rooms/validator"
	"hotelbook/pkg/config"
	apperrors "hotelbook/pkg/errors"
	"hotelbook/pkg/lock"
	"hotelbook/pkg/model"
	"hotelbook/pkg/sanitizer"
	"hotelbook/pkg/store"
	"hotelbook/pkg/validation"
)

type RoomService interface {
	Create(ctx context.Context, room *model.Room) (*model.Room, error)
	GetByID(ctx context.Context, id string) (*model.Room, error)
	GetAll(ctx context.Context, roomType string) ([]*model.Room, error)
	Update(ctx context.Context, id string, update *model.RoomUpdate) (*model.Room, error)
	Delete(ctx context.Context, id string) error
	Availability(ctx context.Context, id string, start, end time.Time) (*model.RoomAvailability, error)
}

type roomService struct {
	rooms     store.Store[*model.Room]
	bookings  store.Store[*model.Booking]
	locker    lock.Locker
	validator *validator.RoomValidator
	cfg       *config.Config
}

// NewRoomService wires the room table together with the booking table it guards deletes against.
// locker must be the same one the booking service uses so deletes and new bookings on a room are serialized.
func NewRoomService(
	rooms store.Store[*model.Room],
	bookings store.Store[*model.Booking],
	locker lock.Locker,
	validator *validator.RoomValidator,
	cfg *config.Config,
) RoomService {
	return &roomService{
		rooms:     rooms,
		bookings:  bookings,
		locker:    locker,
		validator: validator,
		cfg:       cfg,
	}
}

func (s *roomService) Create(ctx context.Context, room *model.Room) (*model.Room, error) {
	room.ID = ""
	room.RoomType = model.RoomType(sanitizer.SanitizeRoomType(string(room.RoomType)))

	if err := s.validator.Validate(room); err != nil {
		s.cfg.Log.Warn("Room validation failed", "error", err)
		return nil, validation.ToAppError("Room validation failed", err)
	}

	created, err := s.rooms.Create(ctx, room)
	if err != nil {
		s.cfg.Log.Error("Failed to create room", "error", err)
		return nil, apperrors.Internal("Failed to create room", err)
	}

	s.cfg.Log.Info("Room created successfully",
		"id", created.ID,
		"room_type", created.RoomType,
		"price_per_night", created.PricePerNight,
	)
	return created, nil
}

func (s *roomService) GetByID(ctx context.Context, id string) (*model.Room, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Room ID cannot be empty")
	}

	room, err := s.rooms.Retrieve(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Room", id).WithCause(roomserrors.ErrNotFound)
		}
		return nil, apperrors.Internal("Failed to retrieve room", err)
	}
	return room, nil
}

func (s *roomService) GetAll(ctx context.Context, roomType string) ([]*model.Room, error) {
	var filter model.RoomType
	if roomType != "" {
		filter = model.RoomType(sanitizer.SanitizeRoomType(roomType))
		if !filter.Valid() {
			return nil, apperrors.InvalidInput("Invalid room_type filter: " + roomType).WithCause(roomserrors.ErrInvalidRoomType)
		}
	}

	rooms, err := s.rooms.RetrieveAll(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to list rooms", "error", err)
		return nil, apperrors.Internal("Failed to retrieve rooms", err)
	}

	if filter == "" {
		return rooms, nil
	}

	filtered := make([]*model.Room, 0, len(rooms))
	for _, r := range rooms {
		if r.RoomType == filter {
			filtered = append(filtered, r)
		}
	}

	s.cfg.Log.Debug("Room filter applied", "room_type", filter, "count", len(filtered), "total", len(rooms))
	return filtered, nil
}

func (s *roomService) Update(ctx context.Context, id string, update *model.RoomUpdate) (*model.Room, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Room ID cannot be empty")
	}

	if update.RoomType != nil {
		rt := model.RoomType(sanitizer.SanitizeRoomType(string(*update.RoomType)))
		update.RoomType = &rt
	}

	if err := s.validator.ValidateUpdate(update); err != nil {
		s.cfg.Log.Warn("Room update validation failed", "id", id, "error", err)
		return nil, validation.ToAppError("Invalid update input", err)
	}

	updated, err := s.rooms.Update(ctx, id, func(r *model.Room) error {
		update.Apply(r)
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Room", id).WithCause(roomserrors.ErrNotFound)
		}
		s.cfg.Log.Error("Failed to update room", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to update room", err)
	}

	s.cfg.Log.Info("Room updated successfully", "id", id)
	return updated, nil
}

// Delete refuses to remove a room that any booking still references.
func (s *roomService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Room ID cannot be empty")
	}

	unlock, err := s.locker.Lock(ctx, id)
	if err != nil {
		s.cfg.Log.Error("Failed to acquire room lock", "id", id, "error", err)
		if lock.IsTimeout(err) {
			return apperrors.Timeout("Timed out waiting for room lock").WithCause(err)
		}
		return apperrors.Unavailable("Room lock").WithCause(err)
	}
	defer unlock()

	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}

	bookings, err := s.bookings.RetrieveAll(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to load bookings for room delete", "id", id, "error", err)
		return apperrors.Internal("Failed to check room bookings", err)
	}

	active := 0
	for _, b := range bookings {
		if b.RoomID == id {
			active++
		}
	}
	if active > 0 {
		s.cfg.Log.Warn("Room delete rejected", "id", id, "bookings", active)
		return apperrors.ConflictWrap(roomserrors.ErrHasBookings, "Room has existing bookings and cannot be deleted").
			WithDetails(map[string]any{"room_id": id, "bookings": active})
	}

	removed, err := s.rooms.Delete(ctx, id)
	if err != nil {
		s.cfg.Log.Error("Failed to delete room", "id", id, "error", err)
		return apperrors.Internal("Failed to delete room", err)
	}
	if !removed {
		return apperrors.NotFoundWithID("Room", id).WithCause(roomserrors.ErrNotFound)
	}

	s.cfg.Log.Info("Room deleted successfully", "id", id)
	return nil
}

// Availability quotes a stay without reserving it.
func (s *roomService) Availability(ctx context.Context, id string, start, end time.Time) (*model.RoomAvailability, error) {
	room, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	candidate := stay.Interval{Start: start, End: end}
	if !candidate.Valid() {
		return nil, apperrors.InvalidInput("end_datetime must be after start_datetime")
	}

	bookings, err := s.bookings.RetrieveAll(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to load bookings for availability", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to check room availability", err)
	}

	var existing []stay.Interval
	for _, b := range bookings {
		if b.RoomID == id {
			existing = append(existing, stay.Interval{Start: b.StartDatetime, End: b.EndDatetime})
		}
	}

	nights := stay.Nights(start, end)
	return &model.RoomAvailability{
		RoomID:        room.ID,
		Available:     stay.Available(candidate, existing),
		Nights:        nights,
		PricePerNight: room.PricePerNight,
		TotalPrice:    stay.TotalPrice(nights, room.PricePerNight),
	}, nil
}
