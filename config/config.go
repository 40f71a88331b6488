// Package config loads the TOML configuration of the coaps-client command.
package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/alecthomas/units"
	"github.com/plgd-dev/coaps/client"
	"github.com/plgd-dev/coaps/credentials"
	"github.com/plgd-dev/coaps/options"
	coapsErrors "github.com/plgd-dev/coaps/pkg/errors"
)

type fileConfig struct {
	Peer                   string `toml:"peer"`
	Bind                   string `toml:"bind"`
	PSKIdentity            string `toml:"psk_identity"`
	PSKSecret              string `toml:"psk_secret"`
	CertFile               string `toml:"cert_file"`
	KeyFile                string `toml:"key_file"`
	SendCertificateRequest bool   `toml:"send_certificate_request"`
	CAFile                 string `toml:"ca_file"`
	ServerName             string `toml:"server_name"`
	HandshakeTimeout       string `toml:"handshake_timeout"`
	ExchangeLifetime       string `toml:"exchange_lifetime"`
	InboundWorkers         int    `toml:"inbound_workers"`
	MaxMessageSize         string `toml:"max_message_size"`
	LogLevel               string `toml:"log_level"`
	LogConsole             bool   `toml:"log_console"`
}

type LogConfig struct {
	Level   string
	Console bool
}

// Config describes one client instance. Credential paths are explicit; nothing is read
// from fixed locations.
type Config struct {
	Peer             string
	Bind             string
	Credentials      credentials.FileStore
	ServerName       string
	HandshakeTimeout time.Duration
	ExchangeLifetime time.Duration
	InboundWorkers   int
	MaxMessageSize   units.Base2Bytes
	Log              LogConfig
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Peer:             "127.0.0.1:5684",
		HandshakeTimeout: 10 * time.Second,
		ExchangeLifetime: 247 * time.Second,
		InboundWorkers:   4,
		MaxMessageSize:   64 * units.KiB,
		Log: LogConfig{
			Level:   "info",
			Console: true,
		},
	}
}

// Load reads path and applies the keys it defines on top of base.
func Load(base Config, path string) (Config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	cfg, err := apply(base, raw, meta)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML text on top of base.
func Parse(base Config, data string) (Config, error) {
	var raw fileConfig
	meta, err := toml.Decode(data, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("config parse failed: %w", err)
	}
	return apply(base, raw, meta)
}

func parseDuration(key, v string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func apply(cfg Config, raw fileConfig, meta toml.MetaData) (Config, error) {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("unknown key %v", undecoded[0])
	}
	if meta.IsDefined("peer") {
		cfg.Peer = strings.TrimSpace(raw.Peer)
	}
	if meta.IsDefined("bind") {
		cfg.Bind = strings.TrimSpace(raw.Bind)
	}
	if meta.IsDefined("psk_identity") {
		cfg.Credentials.PSKIdentity = raw.PSKIdentity
	}
	if meta.IsDefined("psk_secret") {
		cfg.Credentials.PSKSecret = raw.PSKSecret
	}
	if meta.IsDefined("cert_file") {
		cfg.Credentials.CertFile = strings.TrimSpace(raw.CertFile)
	}
	if meta.IsDefined("key_file") {
		cfg.Credentials.KeyFile = strings.TrimSpace(raw.KeyFile)
	}
	if meta.IsDefined("send_certificate_request") {
		cfg.Credentials.SendCertificateRequest = raw.SendCertificateRequest
	}
	if meta.IsDefined("ca_file") {
		cfg.Credentials.CAFile = strings.TrimSpace(raw.CAFile)
	}
	if meta.IsDefined("server_name") {
		cfg.ServerName = strings.TrimSpace(raw.ServerName)
	}
	var err error
	if meta.IsDefined("handshake_timeout") {
		if cfg.HandshakeTimeout, err = parseDuration("handshake_timeout", raw.HandshakeTimeout); err != nil {
			return Config{}, err
		}
	}
	if meta.IsDefined("exchange_lifetime") {
		if cfg.ExchangeLifetime, err = parseDuration("exchange_lifetime", raw.ExchangeLifetime); err != nil {
			return Config{}, err
		}
	}
	if meta.IsDefined("inbound_workers") {
		cfg.InboundWorkers = raw.InboundWorkers
	}
	if meta.IsDefined("max_message_size") {
		if cfg.MaxMessageSize, err = units.ParseBase2Bytes(strings.TrimSpace(raw.MaxMessageSize)); err != nil {
			return Config{}, fmt.Errorf("parse max_message_size: %w", err)
		}
	}
	if meta.IsDefined("log_level") {
		cfg.Log.Level = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("log_console") {
		cfg.Log.Console = raw.LogConsole
	}
	return cfg, cfg.Validate()
}

// Validate checks the values that can be checked without touching the network or the disk.
func (c Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.Peer); err != nil {
		return fmt.Errorf("%w: peer(%q): %w", coapsErrors.ErrConfiguration, c.Peer, err)
	}
	if c.Bind != "" {
		if _, _, err := net.SplitHostPort(c.Bind); err != nil {
			return fmt.Errorf("%w: bind(%q): %w", coapsErrors.ErrConfiguration, c.Bind, err)
		}
	}
	if c.Credentials.PSKIdentity == "" && c.Credentials.PSKSecret == "" && c.Credentials.CertFile == "" {
		return fmt.Errorf("%w: neither psk nor certificate configured", coapsErrors.ErrConfiguration)
	}
	if (c.Credentials.CertFile == "") != (c.Credentials.KeyFile == "") {
		return fmt.Errorf("%w: cert_file and key_file must be set together", coapsErrors.ErrConfiguration)
	}
	if c.HandshakeTimeout <= 0 {
		return fmt.Errorf("%w: handshake_timeout(%v) must be positive", coapsErrors.ErrConfiguration, c.HandshakeTimeout)
	}
	if c.ExchangeLifetime < 0 {
		return fmt.Errorf("%w: exchange_lifetime(%v) cannot be negative", coapsErrors.ErrConfiguration, c.ExchangeLifetime)
	}
	if c.InboundWorkers <= 0 {
		return fmt.Errorf("%w: inbound_workers(%v) must be positive", coapsErrors.ErrConfiguration, c.InboundWorkers)
	}
	if c.MaxMessageSize < 64 || c.MaxMessageSize > units.MiB {
		return fmt.Errorf("%w: max_message_size(%v) out of range", coapsErrors.ErrConfiguration, c.MaxMessageSize)
	}
	return nil
}

// Options converts the configuration into client options.
func (c Config) Options() []client.Option {
	opts := []client.Option{
		options.WithHandshakeTimeout(c.HandshakeTimeout),
		options.WithExchangeLifetime(c.ExchangeLifetime),
		options.WithInboundWorkers(c.InboundWorkers),
		options.WithMaxMessageSize(uint32(c.MaxMessageSize)),
	}
	if c.ServerName != "" {
		opts = append(opts, options.WithServerName(c.ServerName))
	}
	return opts
}

// Store returns the credential store described by the configuration.
func (c Config) Store() credentials.Store {
	store := c.Credentials
	return &store
}
