package client

import (
	"time"

	"github.com/plgd-dev/coaps/dtls"
	"github.com/plgd-dev/coaps/message"
)

type Config struct {
	dtls.Config
	// ExchangeLifetime bounds how long an exchange waits for its response.
	ExchangeLifetime time.Duration
	GetMID           func() uint16
}

var DefaultConfig = func() Config {
	return Config{
		Config:           dtls.DefaultConfig,
		ExchangeLifetime: 247 * time.Second,
		GetMID:           message.GetMID,
	}
}()

// Option configures a Client or a Dispatcher.
type Option interface {
	ClientApply(cfg *Config)
}
