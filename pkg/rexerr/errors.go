// Package rexerr defines the fatal-error taxonomy shared by the
// transport, dispatcher and serving loop.
package rexerr

import "errors"

// ErrRoutingFailure is returned when a parcel addresses a logical name
// not registered at the receiving process.
var ErrRoutingFailure = errors.New("rexfw: routing error")

// ErrProtocolViolation is returned when the dispatcher receives a
// payload tag it does not recognize.
var ErrProtocolViolation = errors.New("rexfw: protocol violation")

// ErrLostPeer is returned when a send or receive fails because the
// remote peer is gone. No reconnection is attempted; callers treat this
// as fatal.
var ErrLostPeer = errors.New("rexfw: lost peer")
