// Package channel defines the outbound transports used by the notification dispatcher.
package channel

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrUnconfigured is returned by Send when the transport has no credentials.
	ErrUnconfigured = errors.New("transport is not configured")
	// ErrPanicked wraps a panic raised inside a transport.
	ErrPanicked = errors.New("transport panicked")
)

// Message is one outbound email or SMS.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Transport delivers messages over one channel.
type Transport interface {
	// Configured reports whether the transport has what it needs to send.
	Configured() bool
	Send(ctx context.Context, msg Message) error
}

// Run calls fn and returns early with ctx.Err() if ctx finishes first.
// fn keeps running in the background in that case. A panic in fn is
// returned as an error wrapping ErrPanicked.
func Run(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("%w: %v", ErrPanicked, r)
			}
		}()
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
