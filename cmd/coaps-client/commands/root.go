package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/plgd-dev/coaps/client"
	"github.com/plgd-dev/coaps/config"
	"github.com/plgd-dev/coaps/options"
	"github.com/plgd-dev/coaps/pkg/log"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	configPath string
	useCBOR    bool

	cfg    config.Config
	logger zerolog.Logger
)

func Execute() error {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return err
	}
	return nil
}

func newRootCmd() *cobra.Command {
	base := config.Default()
	root := &cobra.Command{
		Use:           "coaps-client",
		Short:         "CoAP over DTLS client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded := base
			if configPath != "" {
				var err error
				if loaded, err = config.Load(base, configPath); err != nil {
					return err
				}
			} else if err := loaded.Validate(); err != nil {
				return err
			}
			cfg = loaded
			l, err := log.New(os.Stderr, cfg.Log.Level, cfg.Log.Console)
			if err != nil {
				return err
			}
			logger = l
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "TOML config file; its keys override the flags")
	flags.StringVar(&base.Peer, "peer", base.Peer, "peer address host:port")
	flags.StringVar(&base.Bind, "bind", base.Bind, "local address host:port (default any)")
	flags.StringVar(&base.Credentials.PSKIdentity, "psk-identity", "Client_identity", "PSK identity")
	flags.StringVar(&base.Credentials.PSKSecret, "psk-secret", "secretPSK", "PSK secret")
	flags.StringVar(&base.Credentials.CertFile, "cert", "", "client certificate chain (PEM)")
	flags.StringVar(&base.Credentials.KeyFile, "key", "", "client private key (PEM)")
	flags.BoolVar(&base.Credentials.SendCertificateRequest, "send-certificate", true, "present the client certificate when the peer asks for it")
	flags.StringVar(&base.Credentials.CAFile, "ca", "", "trust anchors (PEM)")
	flags.StringVar(&base.ServerName, "server-name", "", "expected peer certificate name")
	flags.DurationVar(&base.HandshakeTimeout, "handshake-timeout", base.HandshakeTimeout, "handshake timeout")
	flags.DurationVar(&base.ExchangeLifetime, "exchange-lifetime", base.ExchangeLifetime, "time an exchange waits for its response, 0 waits forever")
	flags.StringVar(&base.Log.Level, "log-level", base.Log.Level, "log level (trace, debug, info, warn, error)")
	flags.BoolVar(&useCBOR, "cbor", false, "send payloads as CBOR text strings")

	root.AddCommand(postCmd(), getCmd())
	return root
}

func newClient(ctx context.Context) (*client.Client, error) {
	opts := append(cfg.Options(),
		options.WithContext(ctx),
		options.WithLogger(logger),
		options.WithErrors(func(err error) {
			logger.Warn().Err(err).Msg("background error")
		}),
	)
	c, err := client.NewFromStore(cfg.Bind, cfg.Peer, cfg.Store(), opts...)
	if err != nil {
		return nil, fmt.Errorf("cannot create client: %w", err)
	}
	return c, nil
}
