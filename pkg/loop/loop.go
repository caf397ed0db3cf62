package loop

import (
	"context"
	"fmt"
	"time"
)

// Next is the verdict of a single loop iteration.
type Next struct {
	// if not nil, breaks with error
	err error

	// if quit == true and err == nil, breaks without error
	quit bool

	// otherwise, continue loop with interval.
	interval time.Duration
}

func (n Next) String() string {
	if n.err != nil {
		return fmt.Sprintf("[break] with error: %v", n.err)
	}
	if n.quit {
		return "[break] without error"
	}
	return fmt.Sprintf("[continue] interval: %s", n.interval)
}

// Continue lets the loop run the task once more after interval.
func Continue(interval time.Duration) Next {
	return Next{interval: interval}
}

// Break stops the loop. Pass nil to stop without error.
func Break(err error) Next {
	return Next{quit: true, err: err}
}

// Task is one iteration of a loop.
//
// It receives the value the previous iteration returned and decides,
// via Next, whether the loop should go on.
type Task[T any] func(context.Context, T) (T, Next)

// Start runs task repeatedly until it breaks or ctx is done.
//
// Polling a remote status is the typical use:
//
//	status, err := loop.Start(ctx, initial, func(ctx context.Context, s Status) (Status, loop.Next) {
//		s, err := describe(ctx)
//		if err != nil {
//			return s, loop.Break(err)
//		}
//		if s.Terminal() {
//			return s, loop.Break(nil)
//		}
//		return s, loop.Continue(30 * time.Second)
//	})
//
// The hard timeout of a poll is expressed by a deadline on ctx;
// when ctx is done, Start returns the last value and ctx.Err().
func Start[T any](ctx context.Context, init T, task Task[T]) (T, error) {
	select {
	case <-ctx.Done():
		return init, ctx.Err()
	default:
	}

	value := init
	for {
		v, n := task(ctx, value)
		if n.err != nil {
			return v, n.err
		}
		if n.quit {
			return v, nil
		}
		value = v

		timer := time.NewTimer(n.interval)
		select {
		case <-ctx.Done():
			// shutting down takes priority over the timer.
			if !timer.Stop() {
				<-timer.C // drain. see: time.Timer.Stop's document
			}
			return value, ctx.Err()

		case <-timer.C:
		}
	}
}
