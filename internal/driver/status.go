// internal/driver/status.go
package driver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"escpos-service/pkg/escpos"
)

// ErrStatusTimeout is returned when the printer sends nothing back within the
// transport's read timeout
var ErrStatusTimeout = errors.New("get status timeout")

// Transport is the byte-stream capability a status exchange needs. Read
// returns an empty slice when the read timeout elapsed without data.
type Transport interface {
	Write(ctx context.Context, data []byte) error
	Read(ctx context.Context) ([]byte, error)
}

// ExchangeState tracks one request/response exchange
type ExchangeState int

const (
	ExchangeIdle ExchangeState = iota
	ExchangeAwaitingReply
	ExchangeDecoded
	ExchangeTimedOut
)

func (s ExchangeState) String() string {
	switch s {
	case ExchangeIdle:
		return "idle"
	case ExchangeAwaitingReply:
		return "awaiting_reply"
	case ExchangeDecoded:
		return "decoded"
	case ExchangeTimedOut:
		return "timed_out"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// statusEngine runs status exchanges over a transport. It holds no state
// between exchanges. A non-zero exchangeTimeout bounds every exchange on its
// own, so a silent kind cannot eat into the time left for the next one.
type statusEngine struct {
	transport       Transport
	logger          *zap.Logger
	exchangeTimeout time.Duration
}

func newStatusEngine(transport Transport, logger *zap.Logger) *statusEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &statusEngine{transport: transport, logger: logger}
}

// GetStatus sends one status request and decodes the first byte of the reply
func GetStatus(ctx context.Context, transport Transport, descriptor escpos.StatusDescriptor) (escpos.StatusValue, error) {
	return newStatusEngine(transport, nil).getStatus(ctx, descriptor)
}

// GetStatuses runs the status battery in order. Kinds that time out are left
// out of the result; any other error aborts the battery.
func GetStatuses(ctx context.Context, transport Transport) ([]escpos.StatusValue, error) {
	return newStatusEngine(transport, nil).getStatuses(ctx)
}

func (e *statusEngine) transition(kind string, state ExchangeState) {
	e.logger.Debug("Status exchange",
		zap.String("kind", kind),
		zap.Stringer("state", state),
	)
}

// bound derives the context for one exchange
func (e *statusEngine) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.exchangeTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, e.exchangeTimeout)
}

// expired reports whether the exchange's own deadline ended it while the
// caller's context is still live
func expired(ctx, exchangeCtx context.Context) bool {
	return ctx.Err() == nil && errors.Is(exchangeCtx.Err(), context.DeadlineExceeded)
}

// write sends raw bytes within one exchange deadline
func (e *statusEngine) write(ctx context.Context, data []byte) error {
	exchangeCtx, cancel := e.bound(ctx)
	defer cancel()
	return e.transport.Write(exchangeCtx, data)
}

func (e *statusEngine) getStatus(ctx context.Context, descriptor escpos.StatusDescriptor) (escpos.StatusValue, error) {
	kind := descriptor.Name()
	e.transition(kind, ExchangeIdle)

	exchangeCtx, cancel := e.bound(ctx)
	defer cancel()

	if err := e.transport.Write(exchangeCtx, descriptor.Command()); err != nil {
		if expired(ctx, exchangeCtx) {
			e.transition(kind, ExchangeTimedOut)
			return nil, ErrStatusTimeout
		}
		return nil, fmt.Errorf("%s status request: %w", kind, err)
	}
	e.transition(kind, ExchangeAwaitingReply)

	reply, err := e.transport.Read(exchangeCtx)
	if err != nil {
		if expired(ctx, exchangeCtx) {
			e.transition(kind, ExchangeTimedOut)
			return nil, ErrStatusTimeout
		}
		return nil, fmt.Errorf("%s status reply: %w", kind, err)
	}

	if len(reply) == 0 {
		e.transition(kind, ExchangeTimedOut)
		return nil, ErrStatusTimeout
	}

	if len(reply) > 1 {
		e.logger.Debug("Discarding extra status reply bytes",
			zap.String("kind", kind),
			zap.Binary("data", reply[1:]),
		)
	}

	value := descriptor.Decode(reply[0])
	e.transition(kind, ExchangeDecoded)
	return value, nil
}

// getStatuses runs the battery. A timed-out kind is skipped. When the
// caller's deadline passes, the kinds decoded so far are returned and the
// rest count as timed out. Cancellation and transport errors abort.
func (e *statusEngine) getStatuses(ctx context.Context) ([]escpos.StatusValue, error) {
	battery := escpos.StatusBattery()
	values := make([]escpos.StatusValue, 0, len(battery))

	for i, descriptor := range battery {
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				e.deadlineReached(battery[i:])
				break
			}
			return nil, err
		}

		value, err := e.getStatus(ctx, descriptor)
		if errors.Is(err, ErrStatusTimeout) {
			e.logger.Warn("Status kind timed out, skipping",
				zap.String("kind", descriptor.Name()),
			)
			continue
		}
		if err != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				e.deadlineReached(battery[i:])
				break
			}
			return nil, err
		}
		values = append(values, value)
	}

	return values, nil
}

func (e *statusEngine) deadlineReached(remaining []escpos.StatusDescriptor) {
	kinds := make([]string, 0, len(remaining))
	for _, descriptor := range remaining {
		kinds = append(kinds, descriptor.Name())
	}
	e.logger.Warn("Status battery deadline reached, returning partial results",
		zap.Strings("unanswered", kinds),
	)
}
