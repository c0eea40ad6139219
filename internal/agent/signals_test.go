package agent

import (
	"context"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestSignalController_CancelsBoundTask(t *testing.T) {
	defer goleak.VerifyNone(t)

	ch := make(chan os.Signal, 1)
	s := newSignalController(ch, false)
	defer s.Close()

	ctx, release := s.Bind(context.Background())
	defer release()

	ch <- os.Interrupt
	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("task context was not cancelled")
	}

	select {
	case <-s.C():
		t.Fatal("interrupt during a task must not reach the prompt")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSignalController_DeliversWhenIdle(t *testing.T) {
	defer goleak.VerifyNone(t)

	ch := make(chan os.Signal, 1)
	s := newSignalController(ch, false)

	ctx, release := s.Bind(context.Background())
	release()
	require.Error(t, ctx.Err())

	ch <- syscall.SIGTERM
	select {
	case sig := <-s.C():
		assert.Equal(t, syscall.SIGTERM, sig)
	case <-time.After(2 * time.Second):
		t.Fatal("idle interrupt was not delivered")
	}

	s.Close()
	s.Close()
}

func TestNewSignalControllerStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewSignalController()
	s.Close()
}
