package net

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"
)

// Conn is a message-oriented network connection (one Read returns one datagram)
// that provides Read/Write with context.
//
// Multiple goroutines may invoke methods on a Conn simultaneously; writes are serialized.
type Conn struct {
	heartBeat  time.Duration
	connection net.Conn
	lock       sync.Mutex
}

var defaultConnOptions = connOptions{
	heartBeat: time.Millisecond * 200,
}

type connOptions struct {
	heartBeat time.Duration
}

// A ConnOption sets options such as heartBeat.
type ConnOption interface {
	applyConn(*connOptions)
}

// HeartBeatOpt sets how often a blocked read or write checks its context.
type HeartBeatOpt struct {
	heartBeat time.Duration
}

func (o HeartBeatOpt) applyConn(opts *connOptions) {
	opts.heartBeat = o.heartBeat
}

// WithHeartBeat sets the deadline granularity used to observe context cancellation.
func WithHeartBeat(v time.Duration) HeartBeatOpt {
	return HeartBeatOpt{heartBeat: v}
}

// NewConn creates connection over net.Conn.
func NewConn(c net.Conn, opts ...ConnOption) *Conn {
	cfg := defaultConnOptions
	for _, o := range opts {
		o.applyConn(&cfg)
	}
	if cfg.heartBeat <= 0 {
		cfg.heartBeat = defaultConnOptions.heartBeat
	}
	return &Conn{
		connection: c,
		heartBeat:  cfg.heartBeat,
	}
}

// LocalAddr returns the local network address.
func (c *Conn) LocalAddr() net.Addr {
	return c.connection.LocalAddr()
}

// RemoteAddr returns the remote network address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.connection.RemoteAddr()
}

// NetConn returns the underlying connection that is wrapped by Conn. The Conn returned is shared by all invocations of NetConn, so do not modify it.
func (c *Conn) NetConn() net.Conn {
	return c.connection
}

// Close closes the connection.
func (c *Conn) Close() error {
	return c.connection.Close()
}

// WriteWithContext writes one datagram with context.
func (c *Conn) WriteWithContext(ctx context.Context, data []byte) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		deadline := time.Now().Add(c.heartBeat)
		err := c.connection.SetWriteDeadline(deadline)
		if err != nil {
			return fmt.Errorf("cannot set write deadline for connection: %w", err)
		}
		_, err = c.connection.Write(data)
		if err != nil {
			if isTemporary(err, deadline) {
				continue
			}
			return err
		}
		return nil
	}
}

// ReadWithContext reads one datagram with context.
func (c *Conn) ReadWithContext(ctx context.Context, buffer []byte) (int, error) {
	for {
		select {
		case <-ctx.Done():
			return -1, ctx.Err()
		default:
		}
		deadline := time.Now().Add(c.heartBeat)
		err := c.connection.SetReadDeadline(deadline)
		if err != nil {
			return -1, fmt.Errorf("cannot set read deadline for connection: %w", err)
		}
		n, err := c.connection.Read(buffer)
		if err != nil {
			if isTemporary(err, deadline) {
				continue
			}
			return -1, err
		}
		return n, nil
	}
}
