package commands

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/plgd-dev/coaps/client"
	"github.com/plgd-dev/coaps/message/codes"
	"github.com/spf13/cobra"
)

// post enqueues count requests with a payload before the handshake and waits for all of them.
func postCmd() *cobra.Command {
	var (
		count   int
		path    string
		prefix  string
		method  string
		non     bool
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "post",
		Short: "Queue POST (or PUT) requests, start the session and print the responses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count <= 0 {
				return fmt.Errorf("count(%v) must be positive", count)
			}
			code, err := codes.ParseMethod(method)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			c, err := newClient(ctx)
			if err != nil {
				return err
			}
			p := &printer{w: cmd.OutOrStdout()}
			for i := 0; i < count; i++ {
				payload, cf, err := encodePayload(prefix + strconv.Itoa(i))
				if err != nil {
					_ = c.Close()
					return err
				}
				req := client.Request{
					Code:           code,
					Path:           path,
					ContentFormat:  cf,
					Payload:        payload,
					NonConfirmable: non,
				}
				if _, err := c.Submit(req, p.handler(strconv.Itoa(i))); err != nil {
					_ = c.Close()
					return err
				}
			}
			logger.Debug().Int("count", count).Str("peer", cfg.Peer).Msg("requests queued")
			if err := c.Start(); err != nil {
				return err
			}
			return finish(ctx, c, p, count, timeout)
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 99, "number of requests")
	cmd.Flags().StringVar(&path, "path", "/secure", "resource path")
	cmd.Flags().StringVar(&method, "method", "POST", "request method")
	cmd.Flags().BoolVar(&non, "non", false, "send non-confirmable requests")
	cmd.Flags().StringVar(&prefix, "prefix", "test", "payload prefix, the request index is appended")
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "time to wait for all responses")
	return cmd
}
