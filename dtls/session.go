package dtls

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/google/uuid"
	piondtls "github.com/pion/dtls/v2"
	coapNet "github.com/plgd-dev/coaps/net"
	coapsErrors "github.com/plgd-dev/coaps/pkg/errors"
	"github.com/plgd-dev/coaps/pkg/fn"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
)

// Session is one DTLS channel to a single peer.
//
// Payloads sent before the handshake completes are queued and written in submission
// order once the session is established. Network I/O never happens on the caller's goroutine.
type Session struct {
	id          uuid.UUID
	cfg         Config
	bindAddress string
	peerAddress string
	attempts    []handshakeAttempt
	logger      zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wake   chan struct{}
	done   chan struct{}
	wg     sync.WaitGroup
	mode   atomic.Int32

	mutex     sync.Mutex
	state     State
	queue     [][]byte
	release   fn.FuncList
	err       error
	onClose   []func(error)
	localAddr net.Addr
}

// ID identifies the session in logs.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.state
}

// Mode returns the negotiated authentication mode, ModeUnknown until established.
func (s *Session) Mode() Mode {
	return Mode(s.mode.Load())
}

// Done is closed when the session reaches Closed or Failed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err returns the cause of the terminal transition, nil while the session is alive.
func (s *Session) Err() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.err
}

// LocalAddr returns the bound local address, nil before Start.
func (s *Session) LocalAddr() net.Addr {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.localAddr
}

// RemoteAddr returns the configured peer address.
func (s *Session) RemoteAddr() string {
	return s.peerAddress
}

// AddOnClose registers f to be called once with the cause of the terminal transition.
// When the session is already terminal f is called immediately.
func (s *Session) AddOnClose(f func(error)) {
	s.mutex.Lock()
	if s.state.IsTerminal() {
		err := s.err
		s.mutex.Unlock()
		f(err)
		return
	}
	s.onClose = append(s.onClose, f)
	s.mutex.Unlock()
}

// Start binds the local address and starts the handshake in the background.
func (s *Session) Start() error {
	s.mutex.Lock()
	switch {
	case s.state.IsTerminal():
		s.mutex.Unlock()
		return coapsErrors.ErrSessionClosed
	case s.state != StateUnstarted:
		s.mutex.Unlock()
		return errors.New("session is already started")
	}
	udpConn, err := s.bind()
	if err != nil {
		s.mutex.Unlock()
		s.finish(StateFailed, err)
		return err
	}
	s.release = append(s.release, func() {
		_ = udpConn.Close()
	})
	s.localAddr = udpConn.LocalAddr()
	s.state = StateHandshaking
	s.mutex.Unlock()

	s.logger.Debug().Str("local", udpConn.LocalAddr().String()).Msg("handshake started")
	s.wg.Add(2)
	go s.watchContext()
	go s.handshake(udpConn)
	return nil
}

// watchContext closes the session when the parent context is cancelled.
func (s *Session) watchContext() {
	defer s.wg.Done()
	select {
	case <-s.ctx.Done():
		s.finish(StateClosed, fmt.Errorf("%w: %w", coapsErrors.ErrSessionClosed, s.ctx.Err()))
	case <-s.done:
	}
}

func (s *Session) bind() (*net.UDPConn, error) {
	var laddr *net.UDPAddr
	if s.bindAddress != "" {
		a, err := net.ResolveUDPAddr(s.cfg.Net, s.bindAddress)
		if err != nil {
			return nil, fmt.Errorf("%w: cannot resolve %v: %w", coapsErrors.ErrBind, s.bindAddress, err)
		}
		laddr = a
	}
	raddr, err := net.ResolveUDPAddr(s.cfg.Net, s.peerAddress)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot resolve peer %v: %w", coapsErrors.ErrBind, s.peerAddress, err)
	}
	c, err := net.DialUDP(s.cfg.Net, laddr, raddr)
	if err != nil {
		if coapNet.IsAddrInUseError(err) {
			return nil, fmt.Errorf("%w: address %v is in use: %w", coapsErrors.ErrBind, s.bindAddress, err)
		}
		return nil, fmt.Errorf("%w: %w", coapsErrors.ErrBind, err)
	}
	return c, nil
}

// rebind replaces the socket of a rejected handshake attempt; pion closes it on a fatal alert.
func (s *Session) rebind(prev *net.UDPConn) (*net.UDPConn, error) {
	_ = prev.Close()
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.state != StateHandshaking {
		return nil, coapsErrors.ErrSessionClosed
	}
	c, err := s.bind()
	if err != nil {
		return nil, err
	}
	s.release = append(s.release, func() {
		_ = c.Close()
	})
	s.localAddr = c.LocalAddr()
	return c, nil
}

func (s *Session) handshake(udpConn *net.UDPConn) {
	defer s.wg.Done()
	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.HandshakeTimeout)
	defer cancel()
	var errs []error
	for i, attempt := range s.attempts {
		if i > 0 {
			c, err := s.rebind(udpConn)
			if errors.Is(err, coapsErrors.ErrSessionClosed) {
				return
			}
			if err != nil {
				errs = append(errs, err)
				break
			}
			udpConn = c
		}
		dtlsConn, err := piondtls.ClientWithContext(ctx, udpConn, attempt.config)
		if err == nil {
			s.established(dtlsConn, attempt.mode)
			return
		}
		errs = append(errs, fmt.Errorf("%v: %w", attempt.mode, err))
		if ctx.Err() != nil {
			break
		}
		s.logger.Debug().Err(err).Str("mode", attempt.mode.String()).Msg("handshake attempt rejected")
	}
	if s.ctx.Err() != nil {
		s.finish(StateClosed, fmt.Errorf("%w: %w", coapsErrors.ErrSessionClosed, s.ctx.Err()))
		return
	}
	s.finish(StateFailed, fmt.Errorf("%w: %w", coapsErrors.ErrHandshake, errors.Join(errs...)))
}

func (s *Session) established(dtlsConn *piondtls.Conn, mode Mode) {
	conn := coapNet.NewConn(dtlsConn, coapNet.WithHeartBeat(s.cfg.HeartBeat))

	s.mutex.Lock()
	if s.state != StateHandshaking {
		s.mutex.Unlock()
		_ = dtlsConn.Close()
		return
	}
	s.mode.Store(int32(mode))
	s.release = append(s.release, func() {
		_ = conn.Close()
	})
	s.state = StateEstablished
	queued := len(s.queue)
	s.mutex.Unlock()

	s.logger.Info().Str("mode", mode.String()).Int("queued", queued).Msg("session established")
	s.wg.Add(2)
	go s.writeLoop(conn)
	go s.readLoop(conn)
	s.signal()
}

// Send queues payload for writing. It fails with ErrSessionClosed once the session is Closed or Failed.
func (s *Session) Send(payload []byte) error {
	s.mutex.Lock()
	if s.state.IsTerminal() {
		err := s.err
		s.mutex.Unlock()
		if err != nil && !errors.Is(err, coapsErrors.ErrSessionClosed) {
			return fmt.Errorf("%w: %w", coapsErrors.ErrSessionClosed, err)
		}
		return coapsErrors.ErrSessionClosed
	}
	s.queue = append(s.queue, payload)
	established := s.state == StateEstablished
	s.mutex.Unlock()
	if established {
		s.signal()
	}
	return nil
}

func (s *Session) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Session) dequeue() [][]byte {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.state != StateEstablished {
		return nil
	}
	q := s.queue
	s.queue = nil
	return q
}

func (s *Session) writeLoop(conn *coapNet.Conn) {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.wake:
		}
		for batch := s.dequeue(); len(batch) > 0; batch = s.dequeue() {
			for _, p := range batch {
				if err := conn.WriteWithContext(s.ctx, p); err != nil {
					if s.ctx.Err() == nil {
						s.finish(StateFailed, fmt.Errorf("%w: cannot write: %w", coapsErrors.ErrConnectionLost, err))
					}
					return
				}
			}
		}
	}
}

func (s *Session) readLoop(conn *coapNet.Conn) {
	defer s.wg.Done()
	var workers errgroup.Group
	workers.SetLimit(s.cfg.InboundWorkers)
	defer func() {
		_ = workers.Wait()
	}()
	buf := make([]byte, s.cfg.MaxMessageSize)
	for {
		n, err := conn.ReadWithContext(s.ctx, buf)
		if err != nil {
			var tempErr *piondtls.TemporaryError
			if errors.As(err, &tempErr) {
				s.cfg.Errors(fmt.Errorf("cannot read datagram: %w", err))
				continue
			}
			if s.ctx.Err() != nil {
				return
			}
			s.finish(StateFailed, fmt.Errorf("%w: %w", coapsErrors.ErrConnectionLost, err))
			return
		}
		payload := append([]byte(nil), buf[:n]...)
		workers.Go(func() error {
			s.cfg.Handler(payload)
			return nil
		})
	}
}

// finish moves the session into a terminal state once; later calls are no-ops.
func (s *Session) finish(state State, cause error) bool {
	s.mutex.Lock()
	if s.state.IsTerminal() {
		s.mutex.Unlock()
		return false
	}
	prev := s.state
	s.state = state
	s.err = cause
	dropped := len(s.queue)
	s.queue = nil
	release := s.release
	s.release = nil
	listeners := s.onClose
	s.onClose = nil
	s.mutex.Unlock()

	s.cancel()
	release.Execute()
	close(s.done)

	ev := s.logger.Info()
	if state == StateFailed {
		ev = s.logger.Warn().Err(cause)
	}
	ev.Str("from", prev.String()).Str("to", state.String()).Int("dropped", dropped).Msg("session terminated")
	if state == StateFailed {
		s.cfg.Errors(cause)
	}
	for _, f := range listeners {
		f(cause)
	}
	return true
}

// Close moves the session to Closed and releases the socket. Queued payloads are dropped.
func (s *Session) Close() error {
	s.finish(StateClosed, coapsErrors.ErrSessionClosed)
	return nil
}

// Wait blocks until the background goroutines of a terminated session have exited or ctx is done.
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-s.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	stopped := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(stopped)
	}()
	select {
	case <-stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
