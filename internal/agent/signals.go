package agent

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// SignalController turns SIGINT and SIGTERM into task cancellation. While a
// task is bound, an interrupt cancels only that task; otherwise it is
// delivered on C for the interactive prompt.
type SignalController struct {
	ch     chan os.Signal
	out    chan os.Signal
	done   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
	cancel context.CancelFunc
	once   sync.Once
}

func NewSignalController() *SignalController {
	return newSignalController(make(chan os.Signal, 1), true)
}

func newSignalController(ch chan os.Signal, notify bool) *SignalController {
	if notify {
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	}
	s := &SignalController{
		ch:   ch,
		out:  make(chan os.Signal, 1),
		done: make(chan struct{}),
	}
	s.wg.Add(1)
	go s.loop()
	return s
}

func (s *SignalController) loop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case sig := <-s.ch:
			s.mu.Lock()
			cancel := s.cancel
			s.cancel = nil
			s.mu.Unlock()

			if cancel != nil {
				cancel()
				continue
			}
			select {
			case s.out <- sig:
			default:
			}
		}
	}
}

// Bind returns a context for one task. The release func must be called when
// the task ends.
func (s *SignalController) Bind(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	return ctx, func() {
		s.mu.Lock()
		s.cancel = nil
		s.mu.Unlock()
		cancel()
	}
}

// C delivers interrupts that arrive while no task is bound.
func (s *SignalController) C() <-chan os.Signal {
	return s.out
}

func (s *SignalController) Close() {
	s.once.Do(func() {
		signal.Stop(s.ch)
		close(s.done)
		s.wg.Wait()
	})
}
