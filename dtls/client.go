package dtls

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	piondtls "github.com/pion/dtls/v2"
	"github.com/plgd-dev/coaps/credentials"
	coapNet "github.com/plgd-dev/coaps/net"
	"github.com/plgd-dev/coaps/options/config"
	coapsErrors "github.com/plgd-dev/coaps/pkg/errors"
	coapsLog "github.com/plgd-dev/coaps/pkg/log"
	"github.com/rs/zerolog"
)

// PayloadHandler receives every decrypted inbound datagram.
type PayloadHandler = func(payload []byte)

// VerifyPeerIdentityFunc is called with the verified leaf certificate of the peer.
type VerifyPeerIdentityFunc = func(leaf *x509.Certificate) error

type Config struct {
	config.Common
	Net                string
	HandshakeTimeout   time.Duration
	FlightInterval     time.Duration
	HeartBeat          time.Duration
	InboundWorkers     int
	ServerName         string
	VerifyPeerIdentity VerifyPeerIdentityFunc
	CipherSuites       []piondtls.CipherSuiteID
	Handler            PayloadHandler
}

var DefaultConfig = func() Config {
	return Config{
		Common:           config.NewCommon(),
		Net:              "udp",
		HandshakeTimeout: time.Second * 10,
		FlightInterval:   time.Second,
		HeartBeat:        time.Millisecond * 200,
		InboundWorkers:   4,
		Handler: func([]byte) {
			// default no-op
		},
	}
}()

// Option configures a Session.
type Option interface {
	DTLSApply(cfg *Config)
}

var (
	pskCipherSuites = []piondtls.CipherSuiteID{
		piondtls.TLS_PSK_WITH_AES_128_CCM_8,
		piondtls.TLS_PSK_WITH_AES_128_GCM_SHA256,
		piondtls.TLS_PSK_WITH_AES_128_CBC_SHA256,
	}
	certificateCipherSuites = []piondtls.CipherSuiteID{
		piondtls.TLS_ECDHE_ECDSA_WITH_AES_128_CCM_8,
		piondtls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
		piondtls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
	}
)

// NewSession creates an unstarted session to peerAddress. No network I/O is done.
func NewSession(bindAddress, peerAddress string, identity credentials.Identity, anchors credentials.TrustAnchorSet, opts ...Option) (*Session, error) {
	cfg := DefaultConfig
	for _, o := range opts {
		o.DTLSApply(&cfg)
	}
	return NewSessionWithConfig(bindAddress, peerAddress, identity, anchors, cfg)
}

// NewSessionWithConfig is NewSession with an already assembled configuration.
func NewSessionWithConfig(bindAddress, peerAddress string, identity credentials.Identity, anchors credentials.TrustAnchorSet, cfg Config) (*Session, error) {
	if err := identity.Validate(); err != nil {
		return nil, err
	}
	if _, _, err := net.SplitHostPort(peerAddress); err != nil {
		return nil, fmt.Errorf("%w: invalid peer address %q: %w", coapsErrors.ErrConfiguration, peerAddress, err)
	}
	if bindAddress != "" {
		if _, _, err := net.SplitHostPort(bindAddress); err != nil {
			return nil, fmt.Errorf("%w: invalid bind address %q: %w", coapsErrors.ErrConfiguration, bindAddress, err)
		}
	}
	cfg = normalizeConfig(cfg)

	id := uuid.New()
	logger := cfg.Logger.With().Str("session", id.String()).Str("peer", peerAddress).Logger()
	errorsFunc := cfg.Errors
	cfg.Errors = func(err error) {
		if coapNet.IsCancelOrCloseError(err) {
			// this error was produced by cancellation context or closing connection.
			return
		}
		logger.Debug().Err(err).Msg("session error")
		errorsFunc(fmt.Errorf("dtls: %v: %w", peerAddress, err))
	}

	attempts := newHandshakeAttempts(identity, anchors, &cfg, logger)

	ctx, cancel := context.WithCancel(cfg.Ctx)
	return &Session{
		id:          id,
		cfg:         cfg,
		bindAddress: bindAddress,
		peerAddress: peerAddress,
		attempts:    attempts,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
		wake:        make(chan struct{}, 1),
		done:        make(chan struct{}),
	}, nil
}

func normalizeConfig(cfg Config) Config {
	if cfg.Ctx == nil {
		cfg.Ctx = context.Background()
	}
	if cfg.Net == "" {
		cfg.Net = DefaultConfig.Net
	}
	if cfg.Errors == nil {
		cfg.Errors = func(error) {
			// default no-op
		}
	}
	if cfg.Handler == nil {
		cfg.Handler = DefaultConfig.Handler
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = DefaultConfig.HandshakeTimeout
	}
	if cfg.FlightInterval <= 0 {
		cfg.FlightInterval = DefaultConfig.FlightInterval
	}
	if cfg.HeartBeat <= 0 {
		cfg.HeartBeat = DefaultConfig.HeartBeat
	}
	if cfg.InboundWorkers <= 0 {
		cfg.InboundWorkers = DefaultConfig.InboundWorkers
	}
	if cfg.MaxMessageSize == 0 {
		cfg.MaxMessageSize = DefaultConfig.MaxMessageSize
	}
	return cfg
}

// handshakeAttempt is one pion configuration offered to the peer during the handshake.
type handshakeAttempt struct {
	mode   Mode
	config *piondtls.Config
}

// newHandshakeAttempts returns one attempt per configured credential, PSK first. pion derives the
// client key exchange from the local configuration, not from the suite the server chose, so each
// attempt carries a single mode and the peer selects by rejecting the suites it does not serve.
func newHandshakeAttempts(identity credentials.Identity, anchors credentials.TrustAnchorSet, cfg *Config, logger zerolog.Logger) []handshakeAttempt {
	newConfig := func(suites []piondtls.CipherSuiteID) *piondtls.Config {
		if len(cfg.CipherSuites) > 0 {
			suites = cfg.CipherSuites
		}
		return &piondtls.Config{
			ExtendedMasterSecret: piondtls.RequestExtendedMasterSecret,
			FlightInterval:       cfg.FlightInterval,
			LoggerFactory:        coapsLog.NewLoggerFactory(logger.With().Str("component", "pion").Logger()),
			CipherSuites:         suites,
		}
	}
	var attempts []handshakeAttempt
	if psk := identity.PSK(); psk != nil {
		pionCfg := newConfig(pskCipherSuites)
		secret := psk.Secret
		pionCfg.PSK = func([]byte) ([]byte, error) {
			return secret, nil
		}
		pionCfg.PSKIdentityHint = psk.Identity
		attempts = append(attempts, handshakeAttempt{mode: ModePSK, config: pionCfg})
	}
	if cert := identity.Certificate(); cert != nil {
		pionCfg := newConfig(certificateCipherSuites)
		pionCfg.RootCAs = anchors.Pool()
		pionCfg.ServerName = cfg.ServerName
		chain := cert.Chain
		send := cert.SendCertificateRequest
		pionCfg.GetClientCertificate = func(*piondtls.CertificateRequestInfo) (*tls.Certificate, error) {
			if !send {
				return new(tls.Certificate), nil
			}
			return &chain, nil
		}
		if verify := cfg.VerifyPeerIdentity; verify != nil {
			pionCfg.VerifyPeerCertificate = func(_ [][]byte, verifiedChains [][]*x509.Certificate) error {
				if len(verifiedChains) == 0 || len(verifiedChains[0]) == 0 {
					return fmt.Errorf("%w: certificate is not verified", coapsErrors.ErrPeerRejected)
				}
				if err := verify(verifiedChains[0][0]); err != nil {
					return fmt.Errorf("%w: %w", coapsErrors.ErrPeerRejected, err)
				}
				return nil
			}
		}
		attempts = append(attempts, handshakeAttempt{mode: ModeCertificate, config: pionCfg})
	}
	return attempts
}
