// Package rpcerr classifies failures returned by the blockchain RPC client.
package rpcerr

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"
	"syscall"
)

// Class represents the category an RPC failure falls into.
type Class int

// Set of known classes.
const (
	None Class = iota
	Timeout
	Unreachable
	Internal
)

// String implements the fmt.Stringer interface.
func (c Class) String() string {
	switch c {
	case None:
		return "ok"
	case Timeout:
		return "timeout"
	case Unreachable:
		return "unreachable"
	default:
		return "internal"
	}
}

// Transient reports whether retrying the call later could succeed.
func (c Class) Transient() bool {
	return c == Timeout || c == Unreachable
}

// Classify inspects the error chain and returns the class of the failure.
// Typed errors are checked first. The error text is used as a fallback for
// transports that only surface a message.
func Classify(err error) Class {
	if err == nil {
		return None
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Timeout
	}

	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return Unreachable
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return Unreachable
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return Unreachable
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return Unreachable
	}

	return classifyMessage(err.Error())
}

// classifyMessage applies the substring heuristic to the error text.
func classifyMessage(msg string) Class {
	msg = strings.ToLower(msg)

	if strings.Contains(msg, "timeout") {
		return Timeout
	}

	for _, s := range []string{"network", "fetch", "failed"} {
		if strings.Contains(msg, s) {
			return Unreachable
		}
	}

	return Internal
}
