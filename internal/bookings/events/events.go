// Package events announces booking lifecycle changes to other services.
package events

import (
	"context"
	"time"

	"hotelbook/pkg/kafka"
	"hotelbook/pkg/middleware"
	"hotelbook/pkg/model"
)

const (
	TypeBookingCreated   = "booking.created"
	TypeBookingCancelled = "booking.cancelled"

	SchemaVersion = "1"
	Source        = "hotel-api"
)

// BookingEvent is the payload published for every lifecycle change.
type BookingEvent struct {
	Type       string        `json:"type"`
	Booking    model.Booking `json:"booking"`
	OccurredAt time.Time     `json:"occurred_at"`
}

type Publisher interface {
	BookingCreated(ctx context.Context, booking *model.Booking) error
	BookingCancelled(ctx context.Context, booking *model.Booking) error
	Close() error
}

type messagePublisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
	Close() error
}

// KafkaPublisher keys every event by room id so a room's history stays ordered on one partition.
type KafkaPublisher struct {
	producer messagePublisher
	now      func() time.Time
}

func NewKafkaPublisher(producer *kafka.Producer) *KafkaPublisher {
	return newKafkaPublisher(producer)
}

func newKafkaPublisher(producer messagePublisher) *KafkaPublisher {
	return &KafkaPublisher{
		producer: producer,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (p *KafkaPublisher) BookingCreated(ctx context.Context, booking *model.Booking) error {
	return p.publish(ctx, TypeBookingCreated, booking)
}

func (p *KafkaPublisher) BookingCancelled(ctx context.Context, booking *model.Booking) error {
	return p.publish(ctx, TypeBookingCancelled, booking)
}

func (p *KafkaPublisher) publish(ctx context.Context, eventType string, booking *model.Booking) error {
	msg, err := kafka.NewMessage().
		WithKey(booking.RoomID).
		WithValue(BookingEvent{
			Type:       eventType,
			Booking:    *booking,
			OccurredAt: p.now(),
		}).
		WithEventType(eventType).
		WithSchemaVersion(SchemaVersion).
		WithSource(Source).
		WithCorrelationID(middleware.RequestID(ctx)).
		Build()
	if err != nil {
		return err
	}
	return p.producer.Publish(ctx, msg)
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// Noop drops every event. Used when Kafka is disabled.
type Noop struct{}

func (Noop) BookingCreated(context.Context, *model.Booking) error   { return nil }
func (Noop) BookingCancelled(context.Context, *model.Booking) error { return nil }
func (Noop) Close() error                                           { return nil }
