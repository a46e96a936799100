package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	bookingserrors "hotelbook/internal/bookings/errors"
	"hotelbook/internal/bookings/validator"
	"hotelbook/pkg/config"
	apperrors "hotelbook/pkg/errors"
	"hotelbook/pkg/lock"
	"hotelbook/pkg/logger"
	"hotelbook/pkg/model"
	"hotelbook/pkg/store"
)

type recordingPublisher struct {
	mu        sync.Mutex
	created   []string
	cancelled []string
	err       error
}

func (p *recordingPublisher) BookingCreated(ctx context.Context, b *model.Booking) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, b.ID)
	return p.err
}

func (p *recordingPublisher) BookingCancelled(ctx context.Context, b *model.Booking) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelled = append(p.cancelled, b.ID)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

// blockingPublisher holds the first created event until release is closed.
type blockingPublisher struct {
	recordingPublisher
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
	ctxErr  error
}

func newBlockingPublisher() *blockingPublisher {
	return &blockingPublisher{entered: make(chan struct{}), release: make(chan struct{})}
}

func (p *blockingPublisher) BookingCreated(ctx context.Context, b *model.Booking) error {
	if p.calls.Add(1) == 1 {
		close(p.entered)
		select {
		case <-p.release:
		case <-time.After(5 * time.Second):
		}
		p.mu.Lock()
		p.ctxErr = ctx.Err()
		p.mu.Unlock()
	}
	return p.recordingPublisher.BookingCreated(ctx, b)
}

type failingLocker struct{ err error }

func (l failingLocker) Lock(context.Context, string) (lock.Unlock, error) { return nil, l.err }

// deleteMissStore reports every delete as a miss.
type deleteMissStore struct {
	*store.MemoryStore[*model.Booking]
}

func (deleteMissStore) Delete(context.Context, string) (bool, error) { return false, nil }

type fixture struct {
	service   BookingService
	rooms     *store.MemoryStore[*model.Room]
	bookings  *store.MemoryStore[*model.Booking]
	publisher *recordingPublisher
	room      *model.Room
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.Discard()
	cfg := &config.Config{Log: log}

	rooms := store.NewMemoryStore[*model.Room]()
	bookings := store.NewMemoryStore[*model.Booking]()
	publisher := &recordingPublisher{}

	room, err := rooms.Create(context.Background(), &model.Room{RoomType: model.RoomTypeDouble, PricePerNight: 120})
	if err != nil {
		t.Fatalf("seed room: %v", err)
	}

	return &fixture{
		service:   NewBookingService(bookings, rooms, lock.NewLocal(), validator.NewBookingValidator(log), publisher, cfg),
		rooms:     rooms,
		bookings:  bookings,
		publisher: publisher,
		room:      room,
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
	return time.Date(2025, time.July, d, hour, 0, 0, 0, time.UTC)
}

func (f *fixture) request(start, end time.Time) *model.BookingRequest {
	return &model.BookingRequest{
		RoomID:        f.room.ID,
		GuestName:     "Grace Hopper",
		StartDatetime: start,
		EndDatetime:   end,
	}
}

func TestCreate_ComputesNightsAndPrice(t *testing.T) {
	f := newFixture(t)

	booking, err := f.service.Create(context.Background(), f.request(day(1, 10), day(3, 10)))
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if booking.ID == "" {
		t.Error("expected assigned id")
	}
	if booking.Nights != 2 {
		t.Errorf("expected 2 nights, got %d", booking.Nights)
	}
	if booking.TotalPrice != 240 {
		t.Errorf("expected total 240, got %v", booking.TotalPrice)
	}
	if booking.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}
	if len(f.publisher.created) != 1 || f.publisher.created[0] != booking.ID {
		t.Errorf("expected one created event for %s, got %v", booking.ID, f.publisher.created)
	}

	stored, err := f.service.GetByID(context.Background(), booking.ID)
	if err != nil {
		t.Fatalf("GetByID() error: %v", err)
	}
	if stored.GuestName != "Grace Hopper" || stored.Nights != 2 {
		t.Errorf("unexpected stored booking: %+v", stored)
	}
}

func TestCreate_ShortStayChargesOneNight(t *testing.T) {
	f := newFixture(t)

	booking, err := f.service.Create(context.Background(), f.request(day(1, 13), day(1, 20)))
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if booking.Nights != 1 || booking.TotalPrice != 120 {
		t.Errorf("expected 1 night at 120, got %d nights at %v", booking.Nights, booking.TotalPrice)
	}
}

func TestCreate_SanitizesGuestName(t *testing.T) {
	f := newFixture(t)

	req := f.request(day(1, 14), day(2, 11))
	req.GuestName = "  Ada \t  Lovelace\x00 "
	booking, err := f.service.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if booking.GuestName != "Ada Lovelace" {
		t.Errorf("expected sanitized name, got %q", booking.GuestName)
	}
}

func TestCreate_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.BookingRequest)
	}{
		{"blank guest", func(r *model.BookingRequest) { r.GuestName = "   " }},
		{"guest too long", func(r *model.BookingRequest) { r.GuestName = strings.Repeat("x", 101) }},
		{"missing room", func(r *model.BookingRequest) { r.RoomID = "" }},
		{"room not uuid", func(r *model.BookingRequest) { r.RoomID = "room-1" }},
		{"missing start", func(r *model.BookingRequest) { r.StartDatetime = time.Time{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			req := f.request(day(1, 14), day(2, 11))
			tt.mutate(req)

			_, err := f.service.Create(context.Background(), req)
			if statusOf(t, err) != http.StatusUnprocessableEntity {
				t.Errorf("expected 422, got %v", err)
			}
		})
	}
}

func TestCreate_UnknownRoom(t *testing.T) {
	f := newFixture(t)

	req := f.request(day(1, 14), day(2, 11))
	req.RoomID = "0b6d7a8e-5f4c-4d3b-9a2e-1c0f9e8d7c6b"
	_, err := f.service.Create(context.Background(), req)
	if statusOf(t, err) != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
	if !errors.Is(err, bookingserrors.ErrRoomNotFound) {
		t.Error("expected ErrRoomNotFound cause")
	}
}

func TestCreate_InvalidRangeIsConflict(t *testing.T) {
	f := newFixture(t)

	for _, r := range [][2]time.Time{
		{day(3, 11), day(1, 14)},
		{day(2, 12), day(2, 12)},
	} {
		_, err := f.service.Create(context.Background(), f.request(r[0], r[1]))
		if statusOf(t, err) != http.StatusConflict {
			t.Errorf("expected 409, got %v", err)
		}
		if !errors.Is(err, bookingserrors.ErrInvalidTimeRange) {
			t.Error("expected ErrInvalidTimeRange cause")
		}
	}
}

func TestCreate_OverlapIsConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.service.Create(ctx, f.request(day(10, 14), day(12, 11)))
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	_, err = f.service.Create(ctx, f.request(day(11, 14), day(13, 11)))
	if statusOf(t, err) != http.StatusConflict {
		t.Fatalf("expected 409, got %v", err)
	}
	if !errors.Is(err, bookingserrors.ErrTimeConflict) {
		t.Error("expected ErrTimeConflict cause")
	}
	if got := apperrors.AsAppError(err).Details["conflicting_booking_id"]; got != first.ID {
		t.Errorf("expected conflicting booking %s, got %v", first.ID, got)
	}

	if _, err := f.service.Create(ctx, f.request(day(12, 11), day(13, 11))); err != nil {
		t.Errorf("back-to-back stay should be accepted: %v", err)
	}

	other, _ := f.rooms.Create(ctx, &model.Room{RoomType: model.RoomTypeSingle, PricePerNight: 80})
	req := f.request(day(10, 14), day(12, 11))
	req.RoomID = other.ID
	if _, err := f.service.Create(ctx, req); err != nil {
		t.Errorf("same dates on another room should be accepted: %v", err)
	}
}

func TestCreate_ConcurrentRequestsForSameRoom(t *testing.T) {
	f := newFixture(t)

	const attempts = 8
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.Create(context.Background(), f.request(day(20, 14), day(22, 11)))
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		}
	}
	if succeeded != 1 {
		t.Errorf("expected exactly one booking to win, got %d", succeeded)
	}
}

func TestCreate_PublishFailureDoesNotFailRequest(t *testing.T) {
	f := newFixture(t)
	f.publisher.err = fmt.Errorf("broker down")

	if _, err := f.service.Create(context.Background(), f.request(day(1, 14), day(2, 11))); err != nil {
		t.Fatalf("Create() should succeed when publishing fails: %v", err)
	}
	all, _ := f.bookings.RetrieveAll(context.Background())
	if len(all) != 1 {
		t.Errorf("expected booking to be stored, found %d", len(all))
	}
}

func TestCreate_SlowPublishDoesNotHoldRoomLock(t *testing.T) {
	f := newFixture(t)
	log := logger.Discard()
	pub := newBlockingPublisher()
	svc := NewBookingService(f.bookings, f.rooms, lock.NewLocal(), validator.NewBookingValidator(log), pub, &config.Config{Log: log})

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	defer cancelFirst()
	firstDone := make(chan error, 1)
	go func() {
		_, err := svc.Create(firstCtx, f.request(day(1, 14), day(3, 11)))
		firstDone <- err
	}()

	select {
	case <-pub.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first booking never reached the publisher")
	}
	// The first client goes away while its event is still in flight.
	cancelFirst()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	start := time.Now()
	if _, err := svc.Create(ctx, f.request(day(5, 14), day(7, 11))); err != nil {
		t.Fatalf("second booking on the same room waited %v: %v", time.Since(start), err)
	}

	close(pub.release)
	if err := <-firstDone; err != nil {
		t.Fatalf("first Create() error: %v", err)
	}

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if pub.ctxErr != nil {
		t.Errorf("publish context ended with the request: %v", pub.ctxErr)
	}
	if len(pub.created) != 2 {
		t.Errorf("expected 2 created events, got %d", len(pub.created))
	}
}

func TestCreate_UppercaseRoomID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := f.request(day(1, 14), day(3, 11))
	req.RoomID = strings.ToUpper(f.room.ID)

	booking, err := f.service.Create(ctx, req)
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if booking.RoomID != f.room.ID {
		t.Errorf("expected room id %s, got %s", f.room.ID, booking.RoomID)
	}

	_, err = f.service.Create(ctx, f.request(day(2, 14), day(4, 11)))
	if statusOf(t, err) != http.StatusConflict {
		t.Errorf("expected overlap with the upper-case booking to conflict, got %v", err)
	}
}

func TestCreate_LockFailures(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"backend down", errors.New("dial tcp: connection refused"), http.StatusServiceUnavailable},
		{"wait expired", context.DeadlineExceeded, http.StatusGatewayTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			log := logger.Discard()
			svc := NewBookingService(f.bookings, f.rooms, failingLocker{err: tt.err},
				validator.NewBookingValidator(log), f.publisher, &config.Config{Log: log})

			_, err := svc.Create(context.Background(), f.request(day(1, 14), day(3, 11)))
			if got := statusOf(t, err); got != tt.status {
				t.Fatalf("status = %d, want %d (%v)", got, tt.status, err)
			}
			all, _ := f.bookings.RetrieveAll(context.Background())
			if len(all) != 0 {
				t.Errorf("nothing should be stored, found %d", len(all))
			}
		})
	}
}

func TestGetAll_FilterByRoom(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	other, _ := f.rooms.Create(ctx, &model.Room{RoomType: model.RoomTypeSuite, PricePerNight: 300})

	if _, err := f.service.Create(ctx, f.request(day(1, 14), day(2, 11))); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	req := f.request(day(1, 14), day(2, 11))
	req.RoomID = other.ID
	if _, err := f.service.Create(ctx, req); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	all, err := f.service.GetAll(ctx, "")
	if err != nil || len(all) != 2 {
		t.Fatalf("expected 2 bookings, got %d (err %v)", len(all), err)
	}

	filtered, err := f.service.GetAll(ctx, other.ID)
	if err != nil {
		t.Fatalf("GetAll() error: %v", err)
	}
	if len(filtered) != 1 || filtered[0].RoomID != other.ID {
		t.Errorf("unexpected filtered bookings: %+v", filtered)
	}
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	booking, err := f.service.Create(ctx, f.request(day(1, 14), day(3, 11)))
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	if err := f.service.Cancel(ctx, booking.ID); err != nil {
		t.Fatalf("Cancel() error: %v", err)
	}
	if len(f.publisher.cancelled) != 1 || f.publisher.cancelled[0] != booking.ID {
		t.Errorf("expected cancelled event for %s, got %v", booking.ID, f.publisher.cancelled)
	}

	_, err = f.service.GetByID(ctx, booking.ID)
	if statusOf(t, err) != http.StatusNotFound {
		t.Errorf("expected 404 after cancel, got %v", err)
	}
	if !errors.Is(err, bookingserrors.ErrNotFound) {
		t.Error("expected ErrNotFound cause")
	}

	err = f.service.Cancel(ctx, booking.ID)
	if statusOf(t, err) != http.StatusNotFound {
		t.Errorf("expected 404 on second cancel, got %v", err)
	}

	if _, err := f.service.Create(ctx, f.request(day(1, 14), day(3, 11))); err != nil {
		t.Errorf("cancelled dates should be bookable again: %v", err)
	}
}

func TestCancel_DeleteMissIsInternalError(t *testing.T) {
	log := logger.Discard()
	bookings := store.NewMemoryStore[*model.Booking]()
	rooms := store.NewMemoryStore[*model.Room]()

	ctx := context.Background()
	seeded, _ := bookings.Create(ctx, &model.Booking{RoomID: "r", GuestName: "x", StartDatetime: day(1, 14), EndDatetime: day(2, 11)})

	svc := NewBookingService(deleteMissStore{bookings}, rooms, lock.NewLocal(), validator.NewBookingValidator(log), nil, &config.Config{Log: log})

	err := svc.Cancel(ctx, seeded.ID)
	if statusOf(t, err) != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %v", err)
	}
	if !errors.Is(err, bookingserrors.ErrDeleteFailed) {
		t.Error("expected ErrDeleteFailed cause")
	}
}
