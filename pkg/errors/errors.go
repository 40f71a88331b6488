package errors

import "errors"

var (
	// ErrKeyAlreadyExists is returned when a value is stored under a key that is already taken.
	ErrKeyAlreadyExists = errors.New("key already exists")

	// ErrConfiguration reports missing or unusable credentials. The session never starts.
	ErrConfiguration = errors.New("invalid configuration")
	// ErrBind reports that the local address could not be bound.
	ErrBind = errors.New("cannot bind local address")
	// ErrHandshake reports a rejected, unverifiable or timed out handshake. It is fatal to the session.
	ErrHandshake = errors.New("handshake failed")
	// ErrPeerRejected reports a verified peer certificate refused by the peer identity policy.
	ErrPeerRejected = errors.New("peer identity rejected")
	// ErrSessionClosed is returned for submissions after the session has failed or was closed.
	ErrSessionClosed = errors.New("session closed")
	// ErrConnectionLost reports that an established session was terminated by the peer or the network.
	ErrConnectionLost = errors.New("connection lost")
	// ErrMalformedResponse reports an inbound datagram that cannot be decoded or correlated.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrExchangeTimeout completes an exchange that did not receive a response within its lifetime.
	ErrExchangeTimeout = errors.New("exchange timeout")
)
