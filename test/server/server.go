// Package server runs a DTLS CoAP peer on the loopback interface for tests.
package server

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	piondtls "github.com/pion/dtls/v2"
	"github.com/plgd-dev/coaps/message"
	"github.com/plgd-dev/coaps/message/codes"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
)

// HandlerFunc is called for every decoded request in arrival order of its connection.
type HandlerFunc = func(c *Conn, req *message.Message)

type Config struct {
	// PSK enables the PSK suites; the client identity must match PSKIdentity.
	PSKIdentity []byte
	PSKSecret   []byte

	// Certificate enables the certificate suites.
	Certificate *tls.Certificate
	// ClientCAs verifies client certificates; with it set the server requires one.
	ClientCAs *x509.CertPool

	CipherSuites     []piondtls.CipherSuiteID
	HandshakeTimeout time.Duration
	Handler          HandlerFunc
}

// Server accepts DTLS sessions and serves CoAP requests over them.
type Server struct {
	cfg      Config
	listener net.Listener
	group    errgroup.Group
	closed   atomic.Bool

	mutex           sync.Mutex
	conns           []*Conn
	received        []*message.Message
	handshakeErrors []error
}

// New listens on an ephemeral loopback port. Call Serve to start accepting.
func New(cfg Config) (*Server, error) {
	if cfg.Handler == nil {
		cfg.Handler = Echo
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = time.Second * 5
	}
	pionCfg := &piondtls.Config{
		ExtendedMasterSecret: piondtls.RequestExtendedMasterSecret,
		CipherSuites:         cfg.CipherSuites,
		ConnectContextMaker: func() (context.Context, func()) {
			return context.WithTimeout(context.Background(), cfg.HandshakeTimeout)
		},
	}
	if cfg.PSKSecret != nil {
		identity := cfg.PSKIdentity
		secret := cfg.PSKSecret
		pionCfg.PSK = func(hint []byte) ([]byte, error) {
			if identity != nil && string(hint) != string(identity) {
				return nil, fmt.Errorf("unknown psk identity %q", hint)
			}
			return secret, nil
		}
	}
	if cfg.Certificate != nil {
		pionCfg.Certificates = []tls.Certificate{*cfg.Certificate}
	}
	if cfg.ClientCAs != nil {
		pionCfg.ClientCAs = cfg.ClientCAs
		pionCfg.ClientAuth = piondtls.RequireAndVerifyClientCert
	}
	if pionCfg.CipherSuites == nil {
		pionCfg.CipherSuites = defaultCipherSuites(cfg)
	}
	l, err := piondtls.Listen("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)}, pionCfg)
	if err != nil {
		return nil, fmt.Errorf("cannot listen: %w", err)
	}
	return &Server{
		cfg:      cfg,
		listener: l,
	}, nil
}

func defaultCipherSuites(cfg Config) []piondtls.CipherSuiteID {
	var suites []piondtls.CipherSuiteID
	if cfg.PSKSecret != nil {
		suites = append(suites, piondtls.TLS_PSK_WITH_AES_128_CCM_8, piondtls.TLS_PSK_WITH_AES_128_GCM_SHA256)
	}
	if cfg.Certificate != nil {
		suites = append(suites, piondtls.TLS_ECDHE_ECDSA_WITH_AES_128_CCM_8, piondtls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256)
	}
	return suites
}

// Addr returns the listening address as host:port.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Serve accepts connections in the background until Close.
func (s *Server) Serve() {
	s.group.Go(func() error {
		for {
			c, err := s.listener.Accept()
			if err != nil {
				if s.closed.Load() {
					return nil
				}
				s.mutex.Lock()
				s.handshakeErrors = append(s.handshakeErrors, err)
				s.mutex.Unlock()
				continue
			}
			dtlsConn, ok := c.(*piondtls.Conn)
			if !ok {
				_ = c.Close()
				continue
			}
			conn := &Conn{server: s, conn: dtlsConn}
			s.mutex.Lock()
			if s.closed.Load() {
				s.mutex.Unlock()
				_ = dtlsConn.Close()
				return nil
			}
			s.conns = append(s.conns, conn)
			s.mutex.Unlock()
			s.group.Go(func() error {
				conn.serve()
				return nil
			})
		}
	})
}

// Close stops accepting, closes every connection and waits for the serving goroutines.
func (s *Server) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := s.listener.Close()
	s.mutex.Lock()
	conns := append([]*Conn(nil), s.conns...)
	s.mutex.Unlock()
	for _, c := range conns {
		_ = c.Close()
	}
	_ = s.group.Wait()
	return err
}

// Received returns the requests received so far in arrival order.
func (s *Server) Received() []*message.Message {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return append([]*message.Message(nil), s.received...)
}

// Conns returns the established connections.
func (s *Server) Conns() []*Conn {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return append([]*Conn(nil), s.conns...)
}

// HandshakeErrors returns the errors of rejected handshakes.
func (s *Server) HandshakeErrors() []error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return append([]error(nil), s.handshakeErrors...)
}

func (s *Server) record(req *message.Message) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.received = append(s.received, req)
}

// Conn is one accepted DTLS session.
type Conn struct {
	server *Server
	conn   *piondtls.Conn
	lock   sync.Mutex
}

func (c *Conn) serve() {
	buf := make([]byte, 64*1024)
	for {
		n, err := c.conn.Read(buf)
		if err != nil {
			var tempErr *piondtls.TemporaryError
			if errors.As(err, &tempErr) {
				continue
			}
			return
		}
		var req message.Message
		if err := req.Unmarshal(buf[:n]); err != nil {
			continue
		}
		if req.Type == message.Acknowledgement || req.Type == message.Reset {
			continue
		}
		c.server.record(&req)
		c.server.cfg.Handler(c, &req)
	}
}

// PeerCertificates returns the raw certificates presented by the client.
func (c *Conn) PeerCertificates() [][]byte {
	return c.conn.ConnectionState().PeerCertificates
}

// Write sends msg to the client.
func (c *Conn) Write(msg *message.Message) error {
	data, err := msg.Marshal()
	if err != nil {
		return err
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	_, err = c.conn.Write(data)
	return err
}

// WriteRaw sends data to the client without encoding.
func (c *Conn) WriteRaw(data []byte) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	_, err := c.conn.Write(data)
	return err
}

// Response builds a piggybacked response to req.
func Response(req *message.Message, code codes.Code, contentFormat message.MediaType, payload []byte) *message.Message {
	resp := &message.Message{
		Type:      message.Acknowledgement,
		Code:      code,
		MessageID: req.MessageID,
		Token:     append(message.Token(nil), req.Token...),
		Payload:   payload,
	}
	if req.Type != message.Confirmable {
		resp.Type = message.NonConfirmable
		resp.MessageID = message.GetMID()
	}
	if payload != nil {
		resp.Options = resp.Options.SetContentFormat(contentFormat)
	}
	return resp
}

// Reply answers req with a piggybacked response.
func (c *Conn) Reply(req *message.Message, code codes.Code, payload []byte) error {
	cf, err := req.Options.ContentFormat()
	if err != nil {
		cf = message.TextPlain
	}
	return c.Write(Response(req, code, cf, payload))
}

// Close sends close_notify and closes the connection.
func (c *Conn) Close() error {
	return c.conn.Close()
}

// Echo answers POST and PUT with 2.04 Changed echoing the payload, GET with 2.05 Content
// carrying the path and everything else with 4.05 Method Not Allowed.
func Echo(c *Conn, req *message.Message) {
	switch req.Code {
	case codes.POST, codes.PUT:
		_ = c.Reply(req, codes.Changed, req.Payload)
	case codes.GET:
		path, _ := req.Options.Path()
		_ = c.Reply(req, codes.Content, []byte(path))
	default:
		_ = c.Reply(req, codes.MethodNotAllowed, nil)
	}
}
