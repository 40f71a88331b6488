package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/plgd-dev/coaps/credentials"
	"github.com/plgd-dev/coaps/dtls"
	"github.com/plgd-dev/coaps/message"
	"github.com/plgd-dev/coaps/message/codes"
	coapNet "github.com/plgd-dev/coaps/net"
	coapsErrors "github.com/plgd-dev/coaps/pkg/errors"
)

// Client composes a Session and a Dispatcher: requests may be submitted before Start,
// they are flushed in order once the handshake completes.
type Client struct {
	session    *dtls.Session
	dispatcher *Dispatcher
}

// New creates an unstarted client to peerAddress.
func New(bindAddress, peerAddress string, identity credentials.Identity, anchors credentials.TrustAnchorSet, opts ...Option) (*Client, error) {
	cfg := DefaultConfig
	for _, o := range opts {
		o.ClientApply(&cfg)
	}
	if cfg.Errors == nil {
		cfg.Errors = func(error) {
			// default no-op
		}
	}
	errorsFunc := cfg.Errors
	cfg.Errors = func(err error) {
		if coapNet.IsCancelOrCloseError(err) {
			// this error was produced by cancellation context or closing connection.
			return
		}
		errorsFunc(fmt.Errorf("coaps: %v: %w", peerAddress, err))
	}

	c := &Client{}
	sessionCfg := cfg.Config
	sessionCfg.Errors = errorsFunc
	sessionCfg.Handler = func(payload []byte) {
		c.dispatcher.ProcessPayload(payload)
	}
	session, err := dtls.NewSessionWithConfig(bindAddress, peerAddress, identity, anchors, sessionCfg)
	if err != nil {
		return nil, err
	}
	c.session = session
	c.dispatcher = newDispatcher(session, NewCoapCodec(cfg.GetMID), &cfg)
	session.AddOnClose(c.dispatcher.OnSessionFailure)

	if cfg.PeriodicRunner != nil {
		cfg.PeriodicRunner(func(now time.Time) bool {
			c.dispatcher.CheckExpirations(now)
			return !c.dispatcher.Closed()
		})
	}
	return c, nil
}

// NewFromStore loads the identity and trust anchors from store and creates the client.
func NewFromStore(bindAddress, peerAddress string, store credentials.Store, opts ...Option) (*Client, error) {
	identity, err := store.Identity()
	if err != nil {
		return nil, err
	}
	anchors, err := store.TrustAnchors()
	if err != nil {
		return nil, err
	}
	return New(bindAddress, peerAddress, identity, anchors, opts...)
}

// Start binds the local address and starts the handshake in the background.
func (c *Client) Start() error {
	return c.session.Start()
}

// Submit sends req; handler receives exactly one Result.
func (c *Client) Submit(req Request, handler CompletionFunc) (CorrelationID, error) {
	return c.dispatcher.Submit(req, handler)
}

// Post submits a POST request with payload tagged by contentFormat.
func (c *Client) Post(path string, contentFormat message.MediaType, payload []byte, handler CompletionFunc) (CorrelationID, error) {
	return c.Submit(Request{
		Code:          codes.POST,
		Path:          path,
		ContentFormat: contentFormat,
		Payload:       payload,
	}, handler)
}

// Get submits a GET request.
func (c *Client) Get(path string, handler CompletionFunc) (CorrelationID, error) {
	return c.Submit(Request{
		Code: codes.GET,
		Path: path,
	}, handler)
}

// Cancel drops the exchange; its handler is not invoked. Safe to call repeatedly.
func (c *Client) Cancel(id CorrelationID) bool {
	return c.dispatcher.Cancel(id)
}

// Pending returns the number of exchanges awaiting completion.
func (c *Client) Pending() int {
	return c.dispatcher.Pending()
}

// AwaitIdle blocks until every submitted exchange has completed.
func (c *Client) AwaitIdle(ctx context.Context) error {
	return c.dispatcher.AwaitIdle(ctx)
}

// Await blocks until the session ends or ctx is done. An explicit close is not reported as an error.
func (c *Client) Await(ctx context.Context) error {
	select {
	case <-c.session.Done():
		if err := c.session.Err(); err != nil && !errors.Is(err, coapsErrors.ErrSessionClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown waits for pending exchanges until ctx is done, then closes the session.
// Exchanges still pending at that point complete with ErrSessionClosed.
func (c *Client) Shutdown(ctx context.Context) error {
	err := c.AwaitIdle(ctx)
	if errClose := c.session.Close(); errClose != nil && err == nil {
		err = errClose
	}
	waitCtx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(context.Background(), time.Second)
		defer cancel()
	}
	if errWait := c.session.Wait(waitCtx); errWait != nil && err == nil {
		err = errWait
	}
	return err
}

// Close closes the session immediately.
func (c *Client) Close() error {
	return c.session.Close()
}

// Session returns the underlying secure session.
func (c *Client) Session() *dtls.Session {
	return c.session
}
