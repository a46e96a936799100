package app_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	bookinghandler "hotelbook/internal/bookings/handler"
	bookingservice "hotelbook/internal/bookings/service"
	bookingvalidator "hotelbook/internal/bookings/validator"
	"hotelbook/internal/health"
	roomhandler "hotelbook/internal/rooms/handler"
	roomservice "hotelbook/internal/rooms/service"
	roomvalidator "hotelbook/internal/rooms/validator"
	"hotelbook/pkg/app"
	"hotelbook/pkg/client"
	"hotelbook/pkg/config"
	apperrors "hotelbook/pkg/errors"
	"hotelbook/pkg/lock"
	"hotelbook/pkg/logger"
	"hotelbook/pkg/model"
	"hotelbook/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	rooms    *client.RoomClient
	bookings *client.BookingClient
	http     *client.HttpClient
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := logger.Discard()
	cfg := &config.Config{
		Port:            "0",
		RequestTimeout:  5 * time.Second,
		IdempotencyTTL:  time.Hour,
		MaxRequestSize:  1 << 20,
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    5 * time.Second,
		IdleTimeout:     5 * time.Second,
		ShutdownTimeout: time.Second,
		Log:             log,
		Client:          client.NewClient(),
	}

	rooms := store.NewMemoryStore[*model.Room]()
	bookings := store.NewMemoryStore[*model.Booking]()
	locker := lock.NewLocal()

	roomSvc := roomservice.NewRoomService(rooms, bookings, locker, roomvalidator.NewRoomValidator(log), cfg)
	bookingSvc := bookingservice.NewBookingService(bookings, rooms, locker, bookingvalidator.NewBookingValidator(log), nil, cfg)

	application := app.NewApplication(cfg)
	application.SetApp(
		map[string]health.Pinger{"rooms": rooms, "bookings": bookings},
		roomhandler.NewRoomHandler(roomSvc, log),
		bookinghandler.NewBookingHandler(bookingSvc, log),
	)

	srv := httptest.NewServer(application.Handler())
	t.Cleanup(func() {
		srv.Close()
		application.Stop(context.Background())
	})

	return &testServer{
		rooms:    client.NewRoomClient(srv.URL),
		bookings: client.NewBookingClient(srv.URL),
		http:     client.NewHttpClient(srv.URL),
	}
}

func stayDay(d, hour int) time.Time {
	return time.Date(2025, time.August, d, hour, 0, 0, 0, time.UTC)
}

func errorCode(t *testing.T, resp *client.Response) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, resp.DecodeJSON(&body))
	return body.Code
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	require.NoError(t, ts.http.WaitForHealthy(ctx))

	resp, err := ts.http.GET(ctx, "/ready")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRoomLifecycle(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	resp, err := ts.rooms.Create(ctx, model.Room{RoomType: "suite", PricePerNight: 250})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode, client.GetErrorMessage(resp))
	room, err := client.DecodeRoom(resp)
	require.NoError(t, err)
	assert.Equal(t, model.RoomTypeSuite, room.RoomType)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp, err = ts.rooms.Create(ctx, model.Room{RoomType: model.RoomTypeSingle, PricePerNight: 90})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = ts.rooms.GetByID(ctx, room.ID)
	require.NoError(t, err)
	fetched, err := client.DecodeRoom(resp)
	require.NoError(t, err)
	assert.Equal(t, *room, *fetched)

	resp, err = ts.rooms.List(ctx, "Suite")
	require.NoError(t, err)
	suites, err := client.DecodeRooms(resp)
	require.NoError(t, err)
	require.Len(t, suites, 1)
	assert.Equal(t, room.ID, suites[0].ID)

	resp, err = ts.rooms.List(ctx, "Castle")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	price := 275.0
	resp, err = ts.rooms.Update(ctx, room.ID, model.RoomUpdate{PricePerNight: &price})
	require.NoError(t, err)
	updated, err := client.DecodeRoom(resp)
	require.NoError(t, err)
	assert.Equal(t, 275.0, updated.PricePerNight)
	assert.Equal(t, model.RoomTypeSuite, updated.RoomType)

	resp, err = ts.rooms.Create(ctx, model.Room{RoomType: "Penthouse", PricePerNight: 0})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, apperrors.CodeValidation, errorCode(t, resp))

	resp, err = ts.rooms.Delete(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = ts.rooms.GetByID(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBookingLifecycle(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	resp, err := ts.rooms.Create(ctx, model.Room{RoomType: model.RoomTypeDouble, PricePerNight: 100})
	require.NoError(t, err)
	room, err := client.DecodeRoom(resp)
	require.NoError(t, err)

	req := model.BookingRequest{
		RoomID:        room.ID,
		GuestName:     "Ada Lovelace",
		StartDatetime: stayDay(1, 10),
		EndDatetime:   stayDay(3, 10),
	}
	resp, err = ts.bookings.Create(ctx, req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode, client.GetErrorMessage(resp))
	booking, err := client.DecodeBooking(resp)
	require.NoError(t, err)
	assert.Equal(t, 2, booking.Nights)
	assert.Equal(t, 200.0, booking.TotalPrice)

	overlapping := req
	overlapping.StartDatetime = stayDay(2, 14)
	overlapping.EndDatetime = stayDay(4, 11)
	resp, err = ts.bookings.Create(ctx, overlapping)
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	reversed := req
	reversed.StartDatetime, reversed.EndDatetime = stayDay(9, 14), stayDay(8, 11)
	resp, err = ts.bookings.Create(ctx, reversed)
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, err = ts.rooms.Availability(ctx, room.ID, stayDay(2, 14), stayDay(4, 11))
	require.NoError(t, err)
	var quote model.RoomAvailability
	require.NoError(t, resp.DecodeData(&quote))
	assert.False(t, quote.Available)

	resp, err = ts.rooms.Delete(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, err = ts.bookings.List(ctx, room.ID)
	require.NoError(t, err)
	list, err := client.DecodeBookings(resp)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	resp, err = ts.bookings.Cancel(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = ts.bookings.GetByID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = ts.rooms.Delete(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestBookingCreate_Idempotent(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	resp, err := ts.rooms.Create(ctx, model.Room{RoomType: model.RoomTypeSingle, PricePerNight: 80})
	require.NoError(t, err)
	room, err := client.DecodeRoom(resp)
	require.NoError(t, err)

	req := model.BookingRequest{
		RoomID:        room.ID,
		GuestName:     "Grace",
		StartDatetime: stayDay(10, 14),
		EndDatetime:   stayDay(11, 11),
	}

	first, err := ts.bookings.CreateIdempotent(ctx, req, "retry-1")
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, first.StatusCode)

	second, err := ts.bookings.CreateIdempotent(ctx, req, "retry-1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, second.StatusCode, "a retried request replays instead of conflicting")
	assert.Equal(t, string(first.Body), string(second.Body))

	resp, err = ts.bookings.List(ctx, "")
	require.NoError(t, err)
	list, err := client.DecodeBookings(resp)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestBookingCreate_RejectsUnknownFields(t *testing.T) {
	ts := newTestServer(t)

	resp, err := ts.bookings.CreateRaw(context.Background(), []byte(`{"room_id":"x","guest_name":"a","start_datetime":"2025-08-01T14:00:00Z","end_datetime":"2025-08-02T11:00:00Z","total_price":1}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, apperrors.CodeInvalidInput, errorCode(t, resp))
}
