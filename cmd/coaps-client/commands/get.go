package commands

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func getCmd() *cobra.Command {
	var (
		path    string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Send one GET request and print the response",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			c, err := newClient(ctx)
			if err != nil {
				return err
			}
			p := &printer{w: cmd.OutOrStdout()}
			if err := c.Start(); err != nil {
				return err
			}
			if _, err := c.Get(path, p.handler(path)); err != nil {
				_ = c.Close()
				return err
			}
			return finish(ctx, c, p, 1, timeout)
		},
	}
	cmd.Flags().StringVar(&path, "path", "/secure", "resource path")
	cmd.Flags().DurationVar(&timeout, "timeout", time.Second*30, "time to wait for the response")
	return cmd
}
