package messaging

import (
	"context"
)

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// Message is the envelope put on the wire for every published event.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// UserChannel is the realtime channel a user's in-app notifications are pushed to.
func UserChannel(userID string) string {
	return "notifications:" + userID
}

// EventChannel is the channel lifecycle events of one event type are published to.
func EventChannel(eventType string) string {
	return "events:" + eventType
}
