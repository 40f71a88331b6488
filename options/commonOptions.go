package options

import (
	"context"

	"github.com/plgd-dev/coaps/client"
	"github.com/plgd-dev/coaps/dtls"
	"github.com/plgd-dev/coaps/options/config"
	"github.com/plgd-dev/coaps/pkg/runner/periodic"
	"github.com/rs/zerolog"
)

type ErrorFunc = config.ErrorFunc

// ContextOpt handler function option.
type ContextOpt struct {
	ctx context.Context
}

func (o ContextOpt) DTLSApply(cfg *dtls.Config) {
	cfg.Ctx = o.ctx
}

func (o ContextOpt) ClientApply(cfg *client.Config) {
	o.DTLSApply(&cfg.Config)
}

// WithContext set's parent context of the session; cancelling it closes the session.
func WithContext(ctx context.Context) ContextOpt {
	return ContextOpt{ctx: ctx}
}

// MaxMessageSizeOpt handler function option.
type MaxMessageSizeOpt struct {
	maxMessageSize uint32
}

func (o MaxMessageSizeOpt) DTLSApply(cfg *dtls.Config) {
	cfg.MaxMessageSize = o.maxMessageSize
}

func (o MaxMessageSizeOpt) ClientApply(cfg *client.Config) {
	o.DTLSApply(&cfg.Config)
}

// WithMaxMessageSize limit size of processed message.
func WithMaxMessageSize(maxMessageSize uint32) MaxMessageSizeOpt {
	return MaxMessageSizeOpt{maxMessageSize: maxMessageSize}
}

// ErrorsOpt errors option.
type ErrorsOpt struct {
	errors ErrorFunc
}

func (o ErrorsOpt) DTLSApply(cfg *dtls.Config) {
	cfg.Errors = o.errors
}

func (o ErrorsOpt) ClientApply(cfg *client.Config) {
	o.DTLSApply(&cfg.Config)
}

// WithErrors set function for logging error.
func WithErrors(errors ErrorFunc) ErrorsOpt {
	return ErrorsOpt{errors: errors}
}

// LoggerOpt logger option.
type LoggerOpt struct {
	logger zerolog.Logger
}

func (o LoggerOpt) DTLSApply(cfg *dtls.Config) {
	cfg.Logger = o.logger
}

func (o LoggerOpt) ClientApply(cfg *client.Config) {
	o.DTLSApply(&cfg.Config)
}

// WithLogger sets the structured logger; the DTLS layer logs through it too.
func WithLogger(logger zerolog.Logger) LoggerOpt {
	return LoggerOpt{logger: logger}
}

// PeriodicRunnerOpt function which is executed in every ticks
type PeriodicRunnerOpt struct {
	periodicRunner periodic.Func
}

func (o PeriodicRunnerOpt) DTLSApply(cfg *dtls.Config) {
	cfg.PeriodicRunner = o.periodicRunner
}

func (o PeriodicRunnerOpt) ClientApply(cfg *client.Config) {
	o.DTLSApply(&cfg.Config)
}

// WithPeriodicRunner set function which is executed in every ticks.
func WithPeriodicRunner(periodicRunner periodic.Func) PeriodicRunnerOpt {
	return PeriodicRunnerOpt{periodicRunner: periodicRunner}
}
