package config

import (
	"context"
	"time"

	"github.com/plgd-dev/coaps/pkg/runner/periodic"
	"github.com/rs/zerolog"
)

type ErrorFunc = func(error)

// Common holds the settings shared by the session and the client.
type Common struct {
	Ctx            context.Context
	Errors         ErrorFunc
	Logger         zerolog.Logger
	PeriodicRunner periodic.Func
	MaxMessageSize uint32
}

func NewCommon() Common {
	return Common{
		Ctx:            context.Background(),
		MaxMessageSize: 64 * 1024,
		Errors: func(error) {
			// default no-op
		},
		Logger: zerolog.Nop(),
		PeriodicRunner: func(f func(now time.Time) bool) {
			go func() {
				for f(time.Now()) {
					time.Sleep(4 * time.Second)
				}
			}()
		},
	}
}
