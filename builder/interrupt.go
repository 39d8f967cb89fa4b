package builder

import (
	"context"
	"sync"
)

// Interrupter lets another goroutine cancel, pause and resume a running
// build. Requests take effect at the next row.
type Interrupter struct {
	mu        sync.Mutex
	cancelled bool
	resume    chan struct{} // non-nil while paused
}

func (i *Interrupter) Cancel() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.cancelled = true
	i.release()
}

func (i *Interrupter) Pause() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.resume == nil {
		i.resume = make(chan struct{})
	}
}

func (i *Interrupter) Resume() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.release()
}

func (i *Interrupter) release() {
	if i.resume != nil {
		close(i.resume)
		i.resume = nil
	}
}

// Cancelled reports whether Cancel was called.
func (i *Interrupter) Cancelled() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.cancelled
}

// check blocks while paused. It returns ErrCancelled after Cancel and the
// context error when ctx is done.
func (i *Interrupter) check(ctx context.Context) error {
	for {
		i.mu.Lock()
		cancelled, resume := i.cancelled, i.resume
		i.mu.Unlock()

		if cancelled {
			return ErrCancelled
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if resume == nil {
			return nil
		}
		select {
		case <-resume:
		case <-ctx.Done():
		}
	}
}

// TileCompletionListener is notified after each row of the render pass.
type TileCompletionListener interface {
	OnTileCompleted(row, rows int)
}

// TileCompletionFunc adapts a function to TileCompletionListener.
type TileCompletionFunc func(row, rows int)

func (f TileCompletionFunc) OnTileCompleted(row, rows int) {
	f(row, rows)
}
