package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/plgd-dev/coaps/client"
	"github.com/plgd-dev/coaps/message"
	coapsErrors "github.com/plgd-dev/coaps/pkg/errors"
	"go.uber.org/atomic"
)

func encodePayload(s string) ([]byte, message.MediaType, error) {
	if !useCBOR {
		return []byte(s), message.TextPlain, nil
	}
	data, err := cbor.Marshal(s)
	if err != nil {
		return nil, 0, fmt.Errorf("cannot encode payload: %w", err)
	}
	return data, message.AppCBOR, nil
}

func formatPayload(r *client.Response) string {
	if cf, err := r.ContentFormat(); err == nil && cf == message.AppCBOR {
		var v interface{}
		if err := cbor.Unmarshal(r.Payload, &v); err == nil {
			return fmt.Sprint(v)
		}
	}
	return string(r.Payload)
}

// printer writes one line per completed exchange. Errors and non 2.xx codes count as failed.
type printer struct {
	w      io.Writer
	lock   sync.Mutex
	failed atomic.Int32
}

func (p *printer) handler(label string) client.CompletionFunc {
	return func(r client.Result) {
		p.lock.Lock()
		defer p.lock.Unlock()
		if r.Err != nil {
			p.failed.Inc()
			_, _ = fmt.Fprintf(p.w, "%v: error: %v\n", label, r.Err)
			return
		}
		if !r.Response.Code.IsSuccess() {
			p.failed.Inc()
		}
		_, _ = fmt.Fprintf(p.w, "%v: %v %v %q\n", label, r.Response.Code.Dotted(), r.Response.Code, formatPayload(r.Response))
	}
}

// finish waits for the submitted exchanges and shuts the client down.
func finish(ctx context.Context, c *client.Client, p *printer, submitted int, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	err := c.AwaitIdle(waitCtx)
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), time.Second*5)
	defer cancelShutdown()
	if errShutdown := c.Shutdown(shutdownCtx); errShutdown != nil && err == nil {
		err = errShutdown
	}
	if errSession := c.Session().Err(); errSession != nil && !errors.Is(errSession, coapsErrors.ErrSessionClosed) {
		return errSession
	}
	if err != nil {
		return err
	}
	if failed := p.failed.Load(); failed > 0 {
		return fmt.Errorf("%v of %v exchanges failed", failed, submitted)
	}
	return nil
}
