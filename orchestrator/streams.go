package orchestrator

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Consume drains the landmark and audio streams into the session, each in
// its own goroutine and in arrival order. It returns when both channels are
// closed, the session finishes, or ctx is cancelled. Nil channels are
// treated as already closed.
func (s *Session) Consume(ctx context.Context, frames <-chan FrameInput, buffers <-chan []uint8) error {
	g, ctx := errgroup.WithContext(ctx)

	if frames != nil {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-s.done:
					return nil
				case in, ok := <-frames:
					if !ok {
						return nil
					}
					s.ObserveFrame(in)
				}
			}
		})
	}

	if buffers != nil {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-s.done:
					return nil
				case buf, ok := <-buffers:
					if !ok {
						return nil
					}
					s.ObserveAudio(buf)
				}
			}
		})
	}

	return g.Wait()
}
