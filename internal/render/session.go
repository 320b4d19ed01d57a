// SPDX-License-Identifier: MIT
package render

import (
	"context"
	"sync"
	"sync/atomic"
)

// Session is the owned handle for one in-flight render. It exposes the
// only controls the engine supports: cooperative cancellation and
// pause/resume. The engine keeps no state beyond the session itself.
type Session struct {
	cancel context.CancelFunc
	pause  *atomic.Bool
	done   chan struct{}

	columns int
	err     error
}

// Start validates the request synchronously, then runs the render in its
// own goroutine. Invalid requests fail before the session exists.
func Start(ctx context.Context, req Request, dst *Raster, opts Options) (*Session, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		cancel: cancel,
		pause:  &atomic.Bool{},
		done:   make(chan struct{}),
	}
	opts.Pause = s.pause

	go func() {
		defer close(s.done)
		defer cancel()
		s.columns, s.err = Render(ctx, req, dst, opts)
	}()

	return s, nil
}

// Cancel requests cooperative cancellation. The render finishes its
// current column first; use Wait or Done to observe the exit.
func (s *Session) Cancel() {
	s.cancel()
}

// SetPaused suspends or resumes the column loop. A paused render still
// observes Cancel.
func (s *Session) SetPaused(paused bool) {
	s.pause.Store(paused)
}

// Done is closed when the render goroutine has exited and ownership of
// the raster has passed back to the caller.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the render exits and returns the columns completed
// and any render error. Cancellation reports a nil error with fewer
// columns than the raster width.
func (s *Session) Wait() (int, error) {
	<-s.done
	return s.columns, s.err
}

// Coordinator serializes renders that share an output surface: at most
// one session is active per viewport. Starting a new render first
// cancels any prior one and waits for its cooperative exit, so two
// renders never write the same raster concurrently.
type Coordinator struct {
	mu     sync.Mutex
	active *Session
}

// Start supersedes the active session, if any, and starts a new one.
func (c *Coordinator) Start(ctx context.Context, req Request, dst *Raster, opts Options) (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != nil {
		c.active.Cancel()
		<-c.active.Done()
	}

	s, err := Start(ctx, req, dst, opts)
	if err != nil {
		return nil, err
	}
	c.active = s
	return s, nil
}
