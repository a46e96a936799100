package main

import (
	"context"

	"hotelbook/internal/bookings/events"
	bookinghandler "hotelbook/internal/bookings/handler"
	bookingservice "hotelbook/internal/bookings/service"
	bookingvalidator "hotelbook/internal/bookings/validator"
	"hotelbook/internal/health"
	roomhandler "hotelbook/internal/rooms/handler"
	roomservice "hotelbook/internal/rooms/service"
	roomvalidator "hotelbook/internal/rooms/validator"
	"hotelbook/pkg/app"
	"hotelbook/pkg/config"
	"hotelbook/pkg/contracts"
	"hotelbook/pkg/kafka"
	kafkamiddleware "hotelbook/pkg/kafka/middleware"
	"hotelbook/pkg/lock"
	"hotelbook/pkg/model"
	"hotelbook/pkg/store"
)

const ServiceName = "hotel"

func main() {
	cfg := config.Load(ServiceName)

	if err := cfg.ConnectStore(); err != nil {
		cfg.Log.Fatal("Failed to connect store backend", "backend", cfg.StoreBackend, "error", err)
	}

	cfg.Log.Info("Starting hotel service")
	serverApp := app.NewApplication(cfg)
	checks, handlers, publisher := initServices(cfg)
	serverApp.SetApp(checks, handlers...)
	serverApp.OnShutdown("event publisher", func(context.Context) error { return publisher.Close() })
	serverApp.OnShutdown("store clients", func(ctx context.Context) error {
		cfg.GracefulShutdown(ctx)
		return nil
	})
	serverApp.Run()
}

func initServices(cfg *config.Config) (map[string]health.Pinger, []contracts.Handler, events.Publisher) {
	opts := cfg.StoreOptions()

	rooms, err := store.Open[*model.Room](opts, model.RoomsTable)
	if err != nil {
		cfg.Log.Fatal("Failed to open rooms table", "backend", cfg.StoreBackend, "error", err)
	}
	bookings, err := store.Open[*model.Booking](opts, model.BookingsTable)
	if err != nil {
		cfg.Log.Fatal("Failed to open bookings table", "backend", cfg.StoreBackend, "error", err)
	}

	locker := initLocker(cfg)
	publisher := initPublisher(cfg)

	roomService := roomservice.NewRoomService(rooms, bookings, locker, roomvalidator.NewRoomValidator(cfg.Log), cfg)
	bookingService := bookingservice.NewBookingService(bookings, rooms, locker, bookingvalidator.NewBookingValidator(cfg.Log), publisher, cfg)

	cfg.Log.Info("Services initialized", "store_backend", cfg.StoreBackend)

	checks := map[string]health.Pinger{
		model.RoomsTable:    rooms,
		model.BookingsTable: bookings,
	}
	handlers := []contracts.Handler{
		roomhandler.NewRoomHandler(roomService, cfg.Log),
		bookinghandler.NewBookingHandler(bookingService, cfg.Log),
	}
	return checks, handlers, publisher
}

// initLocker shares room locks through Redis when the data lives there, so
// several instances serialize on the same keys.
func initLocker(cfg *config.Config) lock.Locker {
	if cfg.Client.Redis != nil {
		cfg.Log.Info("Using Redis room locks", "ttl", lock.DefaultRedisTTL)
		return lock.NewRedis(cfg.Client.Redis, cfg.RedisKeyPrefix, lock.DefaultRedisTTL)
	}
	return lock.NewLocal()
}

func initPublisher(cfg *config.Config) events.Publisher {
	if cfg.Kafka == nil || !cfg.Kafka.Enabled {
		cfg.Log.Info("Kafka disabled, booking events will not be published")
		return events.Noop{}
	}

	producer, err := kafka.NewProducer(cfg.Kafka, cfg.Kafka.BookingEventsTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	if cfg.Kafka.EnableMiddleware {
		producer.Use(kafkamiddleware.LoggingProducerMiddleware(cfg.Log))
	}

	cfg.Log.Info("Publishing booking events", "topic", producer.Topic())
	return events.NewKafkaPublisher(producer)
}
