package channel

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRun_ReturnsResult(t *testing.T) {
	boom := errors.New("smtp refused")
	assert.ErrorIs(t, Run(context.Background(), func() error { return boom }), boom)
	assert.NoError(t, Run(context.Background(), func() error { return nil }))
}

func TestRun_HonoursDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	release := make(chan struct{})
	defer close(release)

	err := Run(ctx, func() error {
		<-release
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRun_RecoversPanic(t *testing.T) {
	err := Run(context.Background(), func() error {
		panic("nil map write in sdk")
	})
	assert.ErrorIs(t, err, ErrPanicked)
	assert.ErrorContains(t, err, "nil map write in sdk")
}
