package kafka

import "errors"

var (
	// ErrProducerClosed indicates the producer has been closed
	ErrProducerClosed = errors.New("kafka producer is closed")

	// ErrInvalidMessage indicates the message could not be built
	ErrInvalidMessage = errors.New("invalid message")

	ErrEmptyKey   = errors.New("message key cannot be empty")
	ErrEmptyValue = errors.New("message value cannot be empty")
)
