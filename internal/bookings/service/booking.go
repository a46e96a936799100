package service

import (
	"context"
	"errors"
	"time"

	bookingserrors "hotelbook/internal/bookings/errors"
	"hotelbook/internal/bookings/events"
	"hotelbook/internal/bookings/stay"
	"hotelbook/internal/bookings/validator"
	"hotelbook/pkg/config"
	apperrors "hotelbook/pkg/errors"
	"hotelbook/pkg/lock"
	"hotelbook/pkg/model"
	"hotelbook/pkg/sanitizer"
	"hotelbook/pkg/store"
	"hotelbook/pkg/validation"

	"github.com/google/uuid"
)

// publishTimeout bounds event delivery once the booking is stored. It is
// detached from the request so a cancelled client does not drop the event.
const publishTimeout = 5 * time.Second

type BookingService interface {
	Create(ctx context.Context, req *model.BookingRequest) (*model.Booking, error)
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	GetAll(ctx context.Context, roomID string) ([]*model.Booking, error)
	Cancel(ctx context.Context, id string) error
}

type bookingService struct {
	bookings  store.Store[*model.Booking]
	rooms     store.Store[*model.Room]
	locker    lock.Locker
	validator *validator.BookingValidator
	publisher events.Publisher
	cfg       *config.Config
	now       func() time.Time
}

func NewBookingService(
	bookings store.Store[*model.Booking],
	rooms store.Store[*model.Room],
	locker lock.Locker,
	validator *validator.BookingValidator,
	publisher events.Publisher,
	cfg *config.Config,
) BookingService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &bookingService{
		bookings:  bookings,
		rooms:     rooms,
		locker:    locker,
		validator: validator,
		publisher: publisher,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create reserves a room for the requested stay. The availability check and the
// write happen under the room's lock; the event is published after it is released.
func (s *bookingService) Create(ctx context.Context, req *model.BookingRequest) (*model.Booking, error) {
	req.GuestName = sanitizer.SanitizeGuestName(req.GuestName)
	if id, err := uuid.Parse(req.RoomID); err == nil {
		req.RoomID = id.String()
	}

	if err := s.validator.Validate(req); err != nil {
		s.cfg.Log.Warn("Booking validation failed", "room_id", req.RoomID, "error", err)
		return nil, validation.ToAppError("Booking validation failed", err)
	}

	unlock, err := s.locker.Lock(ctx, req.RoomID)
	if err != nil {
		s.cfg.Log.Error("Failed to acquire room lock", "room_id", req.RoomID, "error", err)
		return nil, lockError(err)
	}
	defer unlock()

	room, err := s.rooms.Retrieve(ctx, req.RoomID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.cfg.Log.Warn("Booking rejected, room not found", "room_id", req.RoomID)
			return nil, apperrors.NotFoundWithID("Room", req.RoomID).WithCause(bookingserrors.ErrRoomNotFound)
		}
		s.cfg.Log.Error("Failed to load room for booking", "room_id", req.RoomID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve room", err)
	}

	candidate := stay.Interval{Start: req.StartDatetime, End: req.EndDatetime}
	if !candidate.Valid() {
		s.cfg.Log.Warn("Booking rejected, invalid time range",
			"room_id", req.RoomID,
			"start_datetime", req.StartDatetime,
			"end_datetime", req.EndDatetime,
		)
		return nil, apperrors.ConflictWrap(bookingserrors.ErrInvalidTimeRange, "end_datetime must be after start_datetime")
	}

	existing, err := s.roomBookings(ctx, req.RoomID)
	if err != nil {
		return nil, err
	}

	intervals := make([]stay.Interval, len(existing))
	for i, b := range existing {
		intervals[i] = stay.Interval{Start: b.StartDatetime, End: b.EndDatetime}
	}
	if i := stay.FirstConflict(candidate, intervals); i >= 0 {
		conflict := existing[i]
		s.cfg.Log.Warn("Booking rejected, time conflict",
			"room_id", req.RoomID,
			"conflicting_booking_id", conflict.ID,
		)
		return nil, apperrors.ConflictWrap(bookingserrors.ErrTimeConflict, "Room is already booked for the requested dates").
			WithDetails(map[string]any{
				"room_id":                req.RoomID,
				"conflicting_booking_id": conflict.ID,
				"conflicting_start_time": conflict.StartDatetime,
				"conflicting_end_time":   conflict.EndDatetime,
			})
	}

	nights := stay.Nights(req.StartDatetime, req.EndDatetime)
	booking := &model.Booking{
		RoomID:        req.RoomID,
		GuestName:     req.GuestName,
		StartDatetime: req.StartDatetime,
		EndDatetime:   req.EndDatetime,
		Nights:        nights,
		TotalPrice:    stay.TotalPrice(nights, room.PricePerNight),
		CreatedAt:     s.now(),
	}

	created, err := s.bookings.Create(ctx, booking)
	if err != nil {
		s.cfg.Log.Error("Failed to create booking", "room_id", req.RoomID, "error", err)
		return nil, apperrors.Internal("Failed to create booking", err)
	}

	unlock()

	s.cfg.Log.Info("Booking created successfully",
		"id", created.ID,
		"room_id", created.RoomID,
		"nights", created.Nights,
		"total_price", created.TotalPrice,
	)

	pubCtx, cancel := publishContext(ctx)
	defer cancel()
	if err := s.publisher.BookingCreated(pubCtx, created); err != nil {
		s.cfg.Log.Error("Failed to publish booking created event", "id", created.ID, "error", err)
	}
	return created, nil
}

func (s *bookingService) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.bookings.Retrieve(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", id).WithCause(bookingserrors.ErrNotFound)
		}
		s.cfg.Log.Error("Failed to retrieve booking", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}
	return booking, nil
}

func (s *bookingService) GetAll(ctx context.Context, roomID string) ([]*model.Booking, error) {
	if roomID != "" {
		return s.roomBookings(ctx, roomID)
	}

	bookings, err := s.bookings.RetrieveAll(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to list bookings", "error", err)
		return nil, apperrors.Internal("Failed to retrieve bookings", err)
	}
	return bookings, nil
}

// Cancel deletes the booking. Nothing on the room changes since availability is derived.
func (s *bookingService) Cancel(ctx context.Context, id string) error {
	booking, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	removed, err := s.bookings.Delete(ctx, id)
	if err != nil {
		s.cfg.Log.Error("Failed to delete booking", "id", id, "error", err)
		return apperrors.Internal("Failed to cancel booking", err)
	}
	if !removed {
		s.cfg.Log.Error("Booking vanished during cancel", "id", id)
		return apperrors.Internal("Failed to cancel booking", bookingserrors.ErrDeleteFailed)
	}

	s.cfg.Log.Info("Booking cancelled successfully", "id", id, "room_id", booking.RoomID)

	pubCtx, cancel := publishContext(ctx)
	defer cancel()
	if err := s.publisher.BookingCancelled(pubCtx, booking); err != nil {
		s.cfg.Log.Error("Failed to publish booking cancelled event", "id", id, "error", err)
	}
	return nil
}

func (s *bookingService) roomBookings(ctx context.Context, roomID string) ([]*model.Booking, error) {
	all, err := s.bookings.RetrieveAll(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to list bookings", "room_id", roomID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve bookings", err)
	}

	filtered := make([]*model.Booking, 0, len(all))
	for _, b := range all {
		if b.RoomID == roomID {
			filtered = append(filtered, b)
		}
	}
	return filtered, nil
}

// publishContext keeps request values such as the request id but not its deadline.
func publishContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
}

// lockError maps a failed lock acquisition to a timeout when the caller gave up
// waiting, and to unavailable when the lock backend itself failed.
func lockError(err error) *apperrors.AppError {
	if lock.IsTimeout(err) {
		return apperrors.Timeout("Timed out waiting for room lock").WithCause(err)
	}
	return apperrors.Unavailable("Room lock").WithCause(err)
}
