// internal/protocol/listener.go
package protocol

import (
	"context"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
)

// replyListener hands chunks read by a connection's reader goroutine to at
// most one waiting Read. A chunk that arrives while no Read is waiting is
// dropped, so a reply that shows up after its Read timed out never reaches
// the next Read.
type replyListener struct {
	logger  *zap.Logger
	mu      sync.Mutex
	waiting chan []byte
	err     error
	done    chan struct{}
}

func newReplyListener(logger *zap.Logger) *replyListener {
	return &replyListener{
		logger: logger,
		done:   make(chan struct{}),
	}
}

// run reads from r until it returns an error other than a timeout.
// isTimeout may be nil when r never times out on its own.
func (l *replyListener) run(r io.Reader, bufferSize int, isTimeout func(error) bool) {
	defer close(l.done)

	if bufferSize <= 0 {
		bufferSize = 1024
	}
	buffer := make([]byte, bufferSize)

	for {
		n, err := r.Read(buffer)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buffer[:n])
			l.deliver(chunk)
		}

		if err != nil {
			if isTimeout != nil && isTimeout(err) {
				continue
			}
			l.mu.Lock()
			l.err = err
			l.mu.Unlock()
			l.logger.Debug("Reader stopped", zap.Error(err))
			return
		}
	}
}

func (l *replyListener) deliver(chunk []byte) {
	l.mu.Lock()
	waiting := l.waiting
	l.waiting = nil
	l.mu.Unlock()

	if waiting == nil {
		l.logger.Debug("Dropping unsolicited printer data", zap.Binary("data", chunk))
		return
	}

	// buffered and detached above, never blocks
	waiting <- chunk
}

// wait attaches a one-shot listener and blocks until a chunk arrives, the
// timeout elapses (empty slice, nil error), ctx ends, or the reader stops.
// A zero timeout waits without a time limit.
func (l *replyListener) wait(ctx context.Context, timeout time.Duration) ([]byte, error) {
	waiting := make(chan []byte, 1)

	l.mu.Lock()
	if l.err != nil {
		err := l.err
		l.mu.Unlock()
		return nil, err
	}
	l.waiting = waiting
	l.mu.Unlock()

	defer l.detach(waiting)

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case chunk := <-waiting:
		return chunk, nil
	case <-expired:
		return []byte{}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.done:
		select {
		case chunk := <-waiting:
			return chunk, nil
		default:
		}
		return nil, l.readErr()
	}
}

func (l *replyListener) detach(waiting chan []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.waiting == waiting {
		l.waiting = nil
	}
}

func (l *replyListener) readErr() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err == nil {
		return io.EOF
	}
	return l.err
}
