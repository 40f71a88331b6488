package options

import (
	"time"

	piondtls "github.com/pion/dtls/v2"
	"github.com/plgd-dev/coaps/client"
	"github.com/plgd-dev/coaps/dtls"
)

// HandshakeTimeoutOpt bounds the whole handshake.
type HandshakeTimeoutOpt struct {
	timeout time.Duration
}

func (o HandshakeTimeoutOpt) DTLSApply(cfg *dtls.Config) {
	cfg.HandshakeTimeout = o.timeout
}

func (o HandshakeTimeoutOpt) ClientApply(cfg *client.Config) {
	o.DTLSApply(&cfg.Config)
}

// WithHandshakeTimeout fails the session when the handshake does not complete in time.
func WithHandshakeTimeout(timeout time.Duration) HandshakeTimeoutOpt {
	return HandshakeTimeoutOpt{timeout: timeout}
}

// FlightIntervalOpt handshake retransmission option.
type FlightIntervalOpt struct {
	interval time.Duration
}

func (o FlightIntervalOpt) DTLSApply(cfg *dtls.Config) {
	cfg.FlightInterval = o.interval
}

func (o FlightIntervalOpt) ClientApply(cfg *client.Config) {
	o.DTLSApply(&cfg.Config)
}

// WithFlightInterval sets how often handshake flights are retransmitted.
func WithFlightInterval(interval time.Duration) FlightIntervalOpt {
	return FlightIntervalOpt{interval: interval}
}

// HeartBeatOpt read/write deadline granularity.
type HeartBeatOpt struct {
	heartbeat time.Duration
}

func (o HeartBeatOpt) DTLSApply(cfg *dtls.Config) {
	cfg.HeartBeat = o.heartbeat
}

func (o HeartBeatOpt) ClientApply(cfg *client.Config) {
	o.DTLSApply(&cfg.Config)
}

// WithHeartBeat set deadline's for read/write operations over client connection.
func WithHeartBeat(heartbeat time.Duration) HeartBeatOpt {
	return HeartBeatOpt{heartbeat: heartbeat}
}

// InboundWorkersOpt limits concurrent inbound processing.
type InboundWorkersOpt struct {
	workers int
}

func (o InboundWorkersOpt) DTLSApply(cfg *dtls.Config) {
	cfg.InboundWorkers = o.workers
}

func (o InboundWorkersOpt) ClientApply(cfg *client.Config) {
	o.DTLSApply(&cfg.Config)
}

// WithInboundWorkers sets how many inbound datagrams are processed concurrently.
func WithInboundWorkers(workers int) InboundWorkersOpt {
	return InboundWorkersOpt{workers: workers}
}

// ServerNameOpt peer hostname verification option.
type ServerNameOpt struct {
	serverName string
}

func (o ServerNameOpt) DTLSApply(cfg *dtls.Config) {
	cfg.ServerName = o.serverName
}

func (o ServerNameOpt) ClientApply(cfg *client.Config) {
	o.DTLSApply(&cfg.Config)
}

// WithServerName requires the peer certificate to be valid for serverName.
func WithServerName(serverName string) ServerNameOpt {
	return ServerNameOpt{serverName: serverName}
}

// VerifyPeerIdentityOpt peer identity policy option.
type VerifyPeerIdentityOpt struct {
	verify dtls.VerifyPeerIdentityFunc
}

func (o VerifyPeerIdentityOpt) DTLSApply(cfg *dtls.Config) {
	cfg.VerifyPeerIdentity = o.verify
}

func (o VerifyPeerIdentityOpt) ClientApply(cfg *client.Config) {
	o.DTLSApply(&cfg.Config)
}

// WithVerifyPeerIdentity runs verify on the verified peer leaf certificate; an error fails the handshake.
func WithVerifyPeerIdentity(verify dtls.VerifyPeerIdentityFunc) VerifyPeerIdentityOpt {
	return VerifyPeerIdentityOpt{verify: verify}
}

// CipherSuitesOpt cipher suites option.
type CipherSuitesOpt struct {
	suites []piondtls.CipherSuiteID
}

func (o CipherSuitesOpt) DTLSApply(cfg *dtls.Config) {
	cfg.CipherSuites = o.suites
}

func (o CipherSuitesOpt) ClientApply(cfg *client.Config) {
	o.DTLSApply(&cfg.Config)
}

// WithCipherSuites overrides the suites derived from the identity.
func WithCipherSuites(suites ...piondtls.CipherSuiteID) CipherSuitesOpt {
	return CipherSuitesOpt{suites: suites}
}

// NetworkOpt network option.
type NetworkOpt struct {
	net string
}

func (o NetworkOpt) DTLSApply(cfg *dtls.Config) {
	cfg.Net = o.net
}

func (o NetworkOpt) ClientApply(cfg *client.Config) {
	o.DTLSApply(&cfg.Config)
}

// WithNetwork define's udp version (udp4, udp6, udp) for client.
func WithNetwork(net string) NetworkOpt {
	return NetworkOpt{net: net}
}

// PayloadHandlerOpt inbound payload handler option.
type PayloadHandlerOpt struct {
	h dtls.PayloadHandler
}

func (o PayloadHandlerOpt) DTLSApply(cfg *dtls.Config) {
	cfg.Handler = o.h
}

// WithPayloadHandler sets the handler of decrypted inbound datagrams of a bare session.
func WithPayloadHandler(h dtls.PayloadHandler) PayloadHandlerOpt {
	return PayloadHandlerOpt{h: h}
}
