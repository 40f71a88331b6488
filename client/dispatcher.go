package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/plgd-dev/coaps/message"
	coapNet "github.com/plgd-dev/coaps/net"
	"github.com/plgd-dev/coaps/options/config"
	"github.com/plgd-dev/coaps/pkg/cache"
	coapsErrors "github.com/plgd-dev/coaps/pkg/errors"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"
)

// Sender writes one encoded request to the session.
type Sender interface {
	Send(payload []byte) error
}

// Dispatcher multiplexes exchanges over one session.
//
// Every submitted exchange is completed exactly once: by its response, by expiration
// or by the session failure fan-out. Whoever removes the exchange from the pending
// table completes it.
type Dispatcher struct {
	sender   Sender
	codec    Codec
	lifetime time.Duration
	errors   config.ErrorFunc
	logger   zerolog.Logger

	pending     *cache.Cache[CorrelationID, *PendingExchange]
	nextID      atomic.Uint64
	outstanding atomic.Int64
	closed      atomic.Bool
	cause       atomic.Error

	changedLock sync.Mutex
	changed     chan struct{}
}

// NewDispatcher creates a dispatcher sending through sender.
func NewDispatcher(sender Sender, codec Codec, opts ...Option) *Dispatcher {
	cfg := DefaultConfig
	for _, o := range opts {
		o.ClientApply(&cfg)
	}
	return newDispatcher(sender, codec, &cfg)
}

func newDispatcher(sender Sender, codec Codec, cfg *Config) *Dispatcher {
	errorsFunc := cfg.Errors
	if errorsFunc == nil {
		errorsFunc = func(error) {
			// default no-op
		}
	}
	d := &Dispatcher{
		sender:   sender,
		codec:    codec,
		lifetime: cfg.ExchangeLifetime,
		logger:   cfg.Logger,
		pending:  cache.NewCache[CorrelationID, *PendingExchange](),
		changed:  make(chan struct{}),
		errors: func(err error) {
			if coapNet.IsCancelOrCloseError(err) {
				return
			}
			errorsFunc(err)
		},
	}
	// random start keeps IDs of consecutive dispatchers apart
	d.nextID.Store(message.RandUint64() >> 1)
	return d
}

func (d *Dispatcher) closedError() error {
	cause := d.cause.Load()
	if cause == nil || errors.Is(cause, coapsErrors.ErrSessionClosed) {
		return coapsErrors.ErrSessionClosed
	}
	return fmt.Errorf("%w: %w", coapsErrors.ErrSessionClosed, cause)
}

// Submit stores a pending exchange for req and forwards the encoded request to the session.
// It never blocks on the network. After the session failed or was closed it returns
// ErrSessionClosed and stores nothing.
func (d *Dispatcher) Submit(req Request, handler CompletionFunc) (CorrelationID, error) {
	if handler == nil {
		handler = func(Result) {
			// default no-op
		}
	}
	if d.closed.Load() {
		return 0, d.closedError()
	}
	id := CorrelationID(d.nextID.Inc())
	data, err := d.codec.EncodeRequest(id, req)
	if err != nil {
		return 0, fmt.Errorf("cannot encode request: %w", err)
	}
	now := time.Now()
	var validUntil time.Time
	if d.lifetime > 0 {
		validUntil = now.Add(d.lifetime)
	}
	e := &PendingExchange{
		ID:         id,
		Request:    req,
		EnqueuedAt: now,
		handler:    handler,
	}
	d.outstanding.Inc()
	if _, loaded := d.pending.LoadOrStore(id, cache.NewElement(e, validUntil, d.expire)); loaded {
		d.release()
		return 0, fmt.Errorf("correlation id %v: %w", id, coapsErrors.ErrKeyAlreadyExists)
	}
	if d.closed.Load() {
		// the failure fan-out may already own the exchange
		if _, ok := d.pending.LoadAndDelete(id); ok {
			d.release()
			return 0, d.closedError()
		}
		return id, nil
	}
	if err := d.sender.Send(data); err != nil {
		if _, ok := d.pending.LoadAndDelete(id); ok {
			d.release()
			return 0, err
		}
		return id, nil
	}
	d.logger.Trace().Str("id", id.String()).Str("code", req.Code.String()).Str("path", req.Path).Msg("exchange submitted")
	return id, nil
}

// ProcessPayload handles one inbound datagram. Datagrams that cannot be decoded or
// correlated are reported and dropped.
func (d *Dispatcher) ProcessPayload(raw []byte) {
	in, err := d.codec.DecodeResponse(raw)
	if len(in.Reply) > 0 {
		if errSend := d.sender.Send(in.Reply); errSend != nil {
			d.errors(fmt.Errorf("cannot send reply: %w", errSend))
		}
	}
	if err != nil {
		d.logger.Debug().Err(err).Int("size", len(raw)).Msg("dropping datagram")
		d.errors(err)
		return
	}
	if in.Response == nil {
		return
	}
	id := in.Response.CorrelationID
	e, ok := d.pending.LoadAndDelete(id)
	if !ok {
		err := fmt.Errorf("%w: no pending exchange %v", coapsErrors.ErrMalformedResponse, id)
		d.logger.Debug().Err(err).Msg("dropping response")
		d.errors(err)
		return
	}
	d.complete(e.Data(), Result{Response: in.Response})
}

// OnSessionFailure completes every pending exchange with an error wrapping err.
// Submissions afterwards fail with ErrSessionClosed.
func (d *Dispatcher) OnSessionFailure(err error) {
	if err == nil {
		err = coapsErrors.ErrSessionClosed
	}
	d.cause.Store(err)
	d.closed.Store(true)
	pending := d.pending.LoadAndDeleteAll()
	if len(pending) > 0 {
		d.logger.Debug().Err(err).Int("pending", len(pending)).Msg("failing pending exchanges")
	}
	for id, e := range pending {
		d.complete(e, Result{Err: fmt.Errorf("exchange %v: %w", id, err)})
	}
}

// Cancel removes the exchange without invoking its handler. It reports whether the
// exchange was still pending.
func (d *Dispatcher) Cancel(id CorrelationID) bool {
	if _, ok := d.pending.LoadAndDelete(id); !ok {
		return false
	}
	d.release()
	return true
}

// CheckExpirations completes exchanges older than the exchange lifetime with ErrExchangeTimeout.
func (d *Dispatcher) CheckExpirations(now time.Time) {
	d.pending.CheckExpirations(now)
}

func (d *Dispatcher) expire(e *PendingExchange) {
	d.complete(e, Result{Err: fmt.Errorf("exchange %v: %w", e.ID, coapsErrors.ErrExchangeTimeout)})
}

func (d *Dispatcher) complete(e *PendingExchange, r Result) {
	if r.Err != nil {
		d.logger.Trace().Str("id", e.ID.String()).Err(r.Err).Msg("exchange failed")
	} else {
		d.logger.Trace().Str("id", e.ID.String()).Str("code", r.Response.Code.String()).Dur("rtt", time.Since(e.EnqueuedAt)).Msg("exchange completed")
	}
	defer d.release()
	e.handler(r)
}

// release marks one exchange as done and wakes AwaitIdle.
func (d *Dispatcher) release() {
	d.outstanding.Dec()
	d.changedLock.Lock()
	close(d.changed)
	d.changed = make(chan struct{})
	d.changedLock.Unlock()
}

func (d *Dispatcher) changedCh() <-chan struct{} {
	d.changedLock.Lock()
	defer d.changedLock.Unlock()
	return d.changed
}

// Pending returns the number of exchanges awaiting completion.
func (d *Dispatcher) Pending() int {
	return d.pending.Length()
}

// AwaitIdle blocks until every submitted exchange was completed or cancelled and its
// handler has returned.
func (d *Dispatcher) AwaitIdle(ctx context.Context) error {
	for {
		ch := d.changedCh()
		if d.outstanding.Load() <= 0 {
			return nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Closed reports whether the session behind the dispatcher is gone.
func (d *Dispatcher) Closed() bool {
	return d.closed.Load()
}
