package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	roomserrors "hotelbook/internal/rooms/errors"
	"hotelbook/internal/rooms/validator"
	"hotelbook/pkg/config"
	apperrors "hotelbook/pkg/errors"
	"hotelbook/pkg/lock"
	"hotelbook/pkg/logger"
	"hotelbook/pkg/model"
	"hotelbook/pkg/store"
)

type fixture struct {
	service  RoomService
	rooms    *store.MemoryStore[*model.Room]
	bookings *store.MemoryStore[*model.Booking]
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.Discard()
	cfg := &config.Config{Log: log}

	rooms := store.NewMemoryStore[*model.Room]()
	bookings := store.NewMemoryStore[*model.Booking]()

	return &fixture{
		service:  NewRoomService(rooms, bookings, lock.NewLocal(), validator.NewRoomValidator(log), cfg),
		rooms:    rooms,
		bookings: bookings,
	}
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %T: %v", err, err)
	}
	return appErr.StatusCode()
}

func day(d, hour int) time.Time {
	return time.Date(2025, time.June, d, hour, 0, 0, 0, time.UTC)
}

func TestCreate_RoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, &model.Room{RoomType: model.RoomTypeDouble, PricePerNight: 149.99})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected store-assigned id")
	}

	got, err := f.service.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID() error: %v", err)
	}
	if got.RoomType != model.RoomTypeDouble || got.PricePerNight != 149.99 {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestCreate_NormalizesRoomTypeAndIgnoresClientID(t *testing.T) {
	f := newFixture(t)

	created, err := f.service.Create(context.Background(), &model.Room{
		ID:            "client-chosen",
		RoomType:      "  suite ",
		PricePerNight: 300,
	})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if created.RoomType != model.RoomTypeSuite {
		t.Errorf("expected Suite, got %q", created.RoomType)
	}
	if created.ID == "client-chosen" {
		t.Error("client supplied id must be replaced")
	}
}

func TestCreate_ValidationFailure(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Create(context.Background(), &model.Room{RoomType: "Penthouse", PricePerNight: -1})
	if statusOf(t, err) != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %v", err)
	}

	all, _ := f.rooms.RetrieveAll(context.Background())
	if len(all) != 0 {
		t.Errorf("invalid room must not be stored, found %d", len(all))
	}
}

func TestGetByID_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.GetByID(context.Background(), "7c1b7a36-6a55-4ab4-9d7c-3a3c0a5cbb1e")
	if statusOf(t, err) != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
	if !errors.Is(err, roomserrors.ErrNotFound) {
		t.Error("expected ErrNotFound cause")
	}
}

func TestGetAll_FilterByRoomType(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, r := range []model.Room{
		{RoomType: model.RoomTypeSingle, PricePerNight: 80},
		{RoomType: model.RoomTypeSuite, PricePerNight: 300},
		{RoomType: model.RoomTypeSingle, PricePerNight: 85},
	} {
		if _, err := f.service.Create(ctx, &r); err != nil {
			t.Fatalf("Create() error: %v", err)
		}
	}

	all, err := f.service.GetAll(ctx, "")
	if err != nil || len(all) != 3 {
		t.Fatalf("expected 3 rooms, got %d (err %v)", len(all), err)
	}

	singles, err := f.service.GetAll(ctx, "single")
	if err != nil {
		t.Fatalf("GetAll(single) error: %v", err)
	}
	if len(singles) != 2 {
		t.Errorf("expected 2 singles, got %d", len(singles))
	}
	if singles[0].PricePerNight != 80 || singles[1].PricePerNight != 85 {
		t.Error("filter must keep insertion order")
	}

	doubles, err := f.service.GetAll(ctx, "Double")
	if err != nil || len(doubles) != 0 {
		t.Errorf("expected no doubles, got %d (err %v)", len(doubles), err)
	}

	_, err = f.service.GetAll(ctx, "Igloo")
	if statusOf(t, err) != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown filter, got %v", err)
	}
}

func TestUpdate_PartialFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	room, _ := f.service.Create(ctx, &model.Room{RoomType: model.RoomTypeSingle, PricePerNight: 80})

	price := 95.0
	updated, err := f.service.Update(ctx, room.ID, &model.RoomUpdate{PricePerNight: &price})
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if updated.PricePerNight != 95 || updated.RoomType != model.RoomTypeSingle {
		t.Errorf("unexpected room after price update: %+v", updated)
	}

	rt := model.RoomType("double")
	updated, err = f.service.Update(ctx, room.ID, &model.RoomUpdate{RoomType: &rt})
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if updated.RoomType != model.RoomTypeDouble || updated.PricePerNight != 95 {
		t.Errorf("unexpected room after type update: %+v", updated)
	}
	if updated.ID != room.ID {
		t.Error("update must not change identity")
	}
}

func TestUpdate_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	price := 10.0
	_, err := f.service.Update(ctx, "7c1b7a36-6a55-4ab4-9d7c-3a3c0a5cbb1e", &model.RoomUpdate{PricePerNight: &price})
	if statusOf(t, err) != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}

	room, _ := f.service.Create(ctx, &model.Room{RoomType: model.RoomTypeSingle, PricePerNight: 80})

	_, err = f.service.Update(ctx, room.ID, &model.RoomUpdate{})
	if statusOf(t, err) != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for empty update, got %v", err)
	}

	negative := -3.0
	_, err = f.service.Update(ctx, room.ID, &model.RoomUpdate{PricePerNight: &negative})
	if statusOf(t, err) != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for negative price, got %v", err)
	}

	got, _ := f.service.GetByID(ctx, room.ID)
	if got.PricePerNight != 80 {
		t.Error("rejected update must not change the room")
	}
}

func TestDelete_WithoutBookings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	room, _ := f.service.Create(ctx, &model.Room{RoomType: model.RoomTypeSuite, PricePerNight: 300})

	if err := f.service.Delete(ctx, room.ID); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}

	all, _ := f.service.GetAll(ctx, "")
	for _, r := range all {
		if r.ID == room.ID {
			t.Fatal("deleted room still listed")
		}
	}

	err := f.service.Delete(ctx, room.ID)
	if statusOf(t, err) != http.StatusNotFound {
		t.Errorf("expected 404 on second delete, got %v", err)
	}
}

type failingLocker struct{ err error }

func (l failingLocker) Lock(context.Context, string) (lock.Unlock, error) { return nil, l.err }

func TestDelete_LockFailures(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"backend down", errors.New("dial tcp: connection refused"), http.StatusServiceUnavailable},
		{"wait expired", lock.ErrNotAcquired, http.StatusGatewayTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := logger.Discard()
			rooms := store.NewMemoryStore[*model.Room]()
			svc := NewRoomService(rooms, store.NewMemoryStore[*model.Booking](), failingLocker{err: tt.err},
				validator.NewRoomValidator(log), &config.Config{Log: log})

			room, err := rooms.Create(context.Background(), &model.Room{RoomType: model.RoomTypeSuite, PricePerNight: 300})
			if err != nil {
				t.Fatalf("seed room: %v", err)
			}

			err = svc.Delete(context.Background(), room.ID)
			if got := statusOf(t, err); got != tt.status {
				t.Fatalf("status = %d, want %d (%v)", got, tt.status, err)
			}
			if !errors.Is(err, tt.err) {
				t.Error("lock error should be kept as the cause")
			}
		})
	}
}

func TestDelete_BlockedByBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	room, _ := f.service.Create(ctx, &model.Room{RoomType: model.RoomTypeSuite, PricePerNight: 300})
	if _, err := f.bookings.Create(ctx, &model.Booking{RoomID: room.ID, GuestName: "Ada", StartDatetime: day(1, 14), EndDatetime: day(3, 11)}); err != nil {
		t.Fatalf("seed booking: %v", err)
	}

	err := f.service.Delete(ctx, room.ID)
	if statusOf(t, err) != http.StatusConflict {
		t.Fatalf("expected 409, got %v", err)
	}
	if !errors.Is(err, roomserrors.ErrHasBookings) {
		t.Error("expected ErrHasBookings cause")
	}

	if _, err := f.service.GetByID(ctx, room.ID); err != nil {
		t.Errorf("room must survive a rejected delete: %v", err)
	}
}

func TestAvailability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	room, _ := f.service.Create(ctx, &model.Room{RoomType: model.RoomTypeDouble, PricePerNight: 100})
	if _, err := f.bookings.Create(ctx, &model.Booking{RoomID: room.ID, StartDatetime: day(10, 14), EndDatetime: day(12, 11)}); err != nil {
		t.Fatalf("seed booking: %v", err)
	}

	quote, err := f.service.Availability(ctx, room.ID, day(12, 11), day(14, 11))
	if err != nil {
		t.Fatalf("Availability() error: %v", err)
	}
	if !quote.Available {
		t.Error("back-to-back stay should be available")
	}
	if quote.Nights != 2 || quote.TotalPrice != 200 || quote.PricePerNight != 100 {
		t.Errorf("unexpected quote: %+v", quote)
	}

	quote, err = f.service.Availability(ctx, room.ID, day(11, 14), day(13, 11))
	if err != nil {
		t.Fatalf("Availability() error: %v", err)
	}
	if quote.Available {
		t.Error("overlapping stay must be unavailable")
	}

	_, err = f.service.Availability(ctx, room.ID, day(13, 11), day(12, 11))
	if statusOf(t, err) != http.StatusBadRequest {
		t.Errorf("expected 400 for reversed range, got %v", err)
	}

	_, err = f.service.Availability(ctx, "7c1b7a36-6a55-4ab4-9d7c-3a3c0a5cbb1e", day(12, 11), day(13, 11))
	if statusOf(t, err) != http.StatusNotFound {
		t.Errorf("expected 404 for unknown room, got %v", err)
	}
}
