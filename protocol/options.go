// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"net"
	"strconv"
	"time"
)

// DefaultHost is the host dialed when ConnectOptions.Host is empty.
const DefaultHost = "localhost"

// ConnectOptions are the arguments of a connect call. Field names
// follow the JSON spelling callers write in syncsocket-call arguments;
// the CBOR codec uses the json tags when no cbor tag is present.
type ConnectOptions struct {
	Port int    `json:"port,omitempty"`
	Host string `json:"host,omitempty"`

	// Path selects a Unix domain socket. Port and Host are ignored
	// when it is set.
	Path string `json:"path,omitempty"`

	// Family restricts the address family: 0 (either), 4, or 6.
	Family int `json:"family,omitempty"`

	LocalAddress string `json:"localAddress,omitempty"`
	LocalPort    int    `json:"localPort,omitempty"`

	// Timeout is the dial timeout in milliseconds. Zero uses the
	// worker's configured default.
	Timeout int64 `json:"timeout,omitempty"`

	// NoDelay disables Nagle's algorithm. Absent means true.
	NoDelay *bool `json:"noDelay,omitempty"`

	KeepAlive bool `json:"keepAlive,omitempty"`

	// KeepAliveInitialDelay is in milliseconds. Zero uses the system
	// default.
	KeepAliveInitialDelay int64 `json:"keepAliveInitialDelay,omitempty"`
}

// Validate checks the options for values no dial could succeed with.
func (o ConnectOptions) Validate() error {
	if o.Path == "" && (o.Port < 1 || o.Port > 65535) {
		return Errorf(CodeProtocol, "connect: port must be in 1..65535, got %d", o.Port)
	}
	switch o.Family {
	case 0, 4, 6:
	default:
		return Errorf(CodeProtocol, "connect: family must be 0, 4, or 6, got %d", o.Family)
	}
	if o.LocalAddress != "" && net.ParseIP(o.LocalAddress) == nil {
		return Errorf(CodeProtocol, "connect: localAddress %q is not an IP address", o.LocalAddress)
	}
	if o.LocalPort < 0 || o.LocalPort > 65535 {
		return Errorf(CodeProtocol, "connect: localPort must be in 0..65535, got %d", o.LocalPort)
	}
	if o.Timeout < 0 || o.KeepAliveInitialDelay < 0 {
		return Errorf(CodeProtocol, "connect: timeouts must not be negative")
	}
	return nil
}

// Network returns the net.Dial network for the options.
func (o ConnectOptions) Network() string {
	if o.Path != "" {
		return "unix"
	}
	switch o.Family {
	case 4:
		return "tcp4"
	case 6:
		return "tcp6"
	default:
		return "tcp"
	}
}

// Address returns the net.Dial address for the options.
func (o ConnectOptions) Address() string {
	if o.Path != "" {
		return o.Path
	}
	host := o.Host
	if host == "" {
		host = DefaultHost
	}
	return net.JoinHostPort(host, strconv.Itoa(o.Port))
}

// NoDelayEnabled reports whether TCP_NODELAY should be set.
func (o ConnectOptions) NoDelayEnabled() bool {
	return o.NoDelay == nil || *o.NoDelay
}

// Dialer builds the dialer for the options. fallbackTimeout applies
// when the options carry no timeout.
func (o ConnectOptions) Dialer(fallbackTimeout time.Duration) *net.Dialer {
	dialer := &net.Dialer{Timeout: fallbackTimeout}
	if o.Timeout > 0 {
		dialer.Timeout = time.Duration(o.Timeout) * time.Millisecond
	}
	if o.LocalAddress != "" || o.LocalPort != 0 {
		if o.Path == "" {
			dialer.LocalAddr = &net.TCPAddr{
				IP:   net.ParseIP(o.LocalAddress),
				Port: o.LocalPort,
			}
		}
	}
	if o.KeepAlive {
		dialer.KeepAliveConfig = net.KeepAliveConfig{
			Enable: true,
			Idle:   time.Duration(o.KeepAliveInitialDelay) * time.Millisecond,
		}
	} else {
		dialer.KeepAlive = -1
	}
	return dialer
}

// ConnectionDescriptor describes an established connection. It is the
// result of a successful connect.
type ConnectionDescriptor struct {
	LocalAddress  string `json:"localAddress"`
	LocalPort     int    `json:"localPort"`
	RemoteAddress string `json:"remoteAddress"`
	RemotePort    int    `json:"remotePort"`
	// RemoteFamily is "IPv4", "IPv6", or "unix".
	RemoteFamily string `json:"remoteFamily"`
}

// DescribeConnection builds the descriptor for an established
// connection.
func DescribeConnection(connection net.Conn) ConnectionDescriptor {
	var descriptor ConnectionDescriptor
	if local, ok := connection.LocalAddr().(*net.TCPAddr); ok {
		descriptor.LocalAddress = local.IP.String()
		descriptor.LocalPort = local.Port
	}
	switch remote := connection.RemoteAddr().(type) {
	case *net.TCPAddr:
		descriptor.RemoteAddress = remote.IP.String()
		descriptor.RemotePort = remote.Port
		descriptor.RemoteFamily = "IPv6"
		if remote.IP.To4() != nil {
			descriptor.RemoteFamily = "IPv4"
		}
	case *net.UnixAddr:
		descriptor.RemoteAddress = remote.Name
		descriptor.RemoteFamily = "unix"
	}
	return descriptor
}
