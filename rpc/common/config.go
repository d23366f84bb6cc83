package common

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Defaults
// --------------------------------------------------------------------------

const (
	// DefaultMaxPayloadSize is the largest payload a frame may carry (16 MiB)
	DefaultMaxPayloadSize uint32 = 16 * 1024 * 1024
	// DefaultMaxInFlightPerConn bounds the concurrently running handlers of one connection
	DefaultMaxInFlightPerConn = 64
	// DefaultDialTimeoutSecond is used when a client config has no dial timeout
	DefaultDialTimeoutSecond = 5
)

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

// ServerConfig holds all configuration parameters of an RPC server
type ServerConfig struct {
	// Endpoint is the filesystem path of the unix socket
	Endpoint string
	// SocketMode are the permission bits applied to the socket file after bind (0 = leave as created)
	SocketMode os.FileMode

	// MaxPayloadSize limits request and response payloads (0 = DefaultMaxPayloadSize)
	MaxPayloadSize uint32
	// MaxInFlightPerConn limits concurrent handlers per connection. A value of 1
	// serializes each connection: responses are written in request order.
	MaxInFlightPerConn int

	// WriteTimeoutSecond bounds a single response write (0 = no deadline)
	WriteTimeoutSecond int64
	// HandlerTimeoutSecond sets a context deadline for handlers (0 = no deadline)
	HandlerTimeoutSecond int64

	// RateLimit is the allowed number of calls per second per server (0 = unlimited)
	RateLimit float64
	// RateBurst is the token bucket size of the rate limiter
	RateBurst int

	// Logging configuration
	LogLevel string
}

// WithDefaults returns a copy of the config with all zero values replaced by defaults
func (c ServerConfig) WithDefaults() ServerConfig {
	if c.MaxPayloadSize == 0 {
		c.MaxPayloadSize = DefaultMaxPayloadSize
	}
	if c.MaxInFlightPerConn <= 0 {
		c.MaxInFlightPerConn = DefaultMaxInFlightPerConn
	}
	if c.RateLimit > 0 && c.RateBurst <= 0 {
		c.RateBurst = 1
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	return c
}

// Validate checks the configuration for values the server cannot work with
func (c *ServerConfig) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("no endpoint provided")
	}
	if c.WriteTimeoutSecond < 0 || c.HandlerTimeoutSecond < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate limit must not be negative")
	}
	if _, err := ParseLogLevel(c.LogLevel); c.LogLevel != "" && err != nil {
		return err
	}
	return nil
}

// WriteTimeout returns WriteTimeoutSecond as a duration
func (c *ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutSecond) * time.Second
}

// HandlerTimeout returns HandlerTimeoutSecond as a duration
func (c *ServerConfig) HandlerTimeout() time.Duration {
	return time.Duration(c.HandlerTimeoutSecond) * time.Second
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// RPC settings
	addSection("RPC Server")
	addField("Endpoint", c.Endpoint)
	if c.SocketMode != 0 {
		addField("Socket Mode", fmt.Sprintf("%#o", uint32(c.SocketMode.Perm())))
	} else {
		addField("Socket Mode", "unchanged")
	}
	addField("Max Payload", formatBytes(c.MaxPayloadSize))
	addField("In-Flight / Conn", fmt.Sprintf("%d", c.MaxInFlightPerConn))
	addField("Write Timeout", formatSeconds(c.WriteTimeoutSecond))
	addField("Handler Timeout", formatSeconds(c.HandlerTimeoutSecond))

	// Rate limiting
	addSection("Rate Limit")
	if c.RateLimit > 0 {
		addField("Calls / Second", fmt.Sprintf("%g", c.RateLimit))
		addField("Burst", fmt.Sprintf("%d", c.RateBurst))
	} else {
		addField("Calls / Second", "unlimited")
	}

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

// ClientConfig holds all configuration parameters of a Dispatcher
type ClientConfig struct {
	// Endpoint is the filesystem path of the unix socket
	Endpoint string
	// MaxPayloadSize limits request and response payloads (0 = DefaultMaxPayloadSize)
	MaxPayloadSize uint32
	// DialTimeoutSecond bounds the connection attempt (0 = DefaultDialTimeoutSecond)
	DialTimeoutSecond int
	// WriteTimeoutSecond bounds a single request write (0 = no deadline)
	WriteTimeoutSecond int
}

// WithDefaults returns a copy of the config with all zero values replaced by defaults
func (c ClientConfig) WithDefaults() ClientConfig {
	if c.MaxPayloadSize == 0 {
		c.MaxPayloadSize = DefaultMaxPayloadSize
	}
	if c.DialTimeoutSecond <= 0 {
		c.DialTimeoutSecond = DefaultDialTimeoutSecond
	}
	return c
}

// DialTimeout returns DialTimeoutSecond as a duration
func (c *ClientConfig) DialTimeout() time.Duration {
	return time.Duration(c.DialTimeoutSecond) * time.Second
}

// WriteTimeout returns WriteTimeoutSecond as a duration
func (c *ClientConfig) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutSecond) * time.Second
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Client Configuration")
	addField("Endpoint", c.Endpoint)
	addField("Max Payload", formatBytes(c.MaxPayloadSize))
	addField("Dial Timeout", formatSeconds(int64(c.DialTimeoutSecond)))
	addField("Write Timeout", formatSeconds(int64(c.WriteTimeoutSecond)))

	return sb.String()
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func formatSeconds(s int64) string {
	if s <= 0 {
		return "none"
	}
	return fmt.Sprintf("%d sec", s)
}

func formatBytes(n uint32) string {
	switch {
	case n == 0:
		return "default"
	case n%(1024*1024) == 0:
		return fmt.Sprintf("%d MiB", n/(1024*1024))
	case n%1024 == 0:
		return fmt.Sprintf("%d KiB", n/1024)
	default:
		return fmt.Sprintf("%d B", n)
	}
}
