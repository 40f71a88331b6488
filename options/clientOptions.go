package options

import (
	"time"

	"github.com/plgd-dev/coaps/client"
)

// ExchangeLifetimeOpt exchange expiration option.
type ExchangeLifetimeOpt struct {
	lifetime time.Duration
}

func (o ExchangeLifetimeOpt) ClientApply(cfg *client.Config) {
	cfg.ExchangeLifetime = o.lifetime
}

// WithExchangeLifetime completes exchanges without a response after lifetime with ErrExchangeTimeout.
// Zero disables expiration.
func WithExchangeLifetime(lifetime time.Duration) ExchangeLifetimeOpt {
	return ExchangeLifetimeOpt{lifetime: lifetime}
}

// GetMIDOpt message ID generator option.
type GetMIDOpt struct {
	getMID func() uint16
}

func (o GetMIDOpt) ClientApply(cfg *client.Config) {
	cfg.GetMID = o.getMID
}

// WithGetMID set function which generates message ID.
func WithGetMID(getMID func() uint16) GetMIDOpt {
	return GetMIDOpt{getMID: getMID}
}
