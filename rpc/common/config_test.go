package common

import (
	"strings"
	"testing"

	"github.com/lni/dragonboat/v4/logger"
)

func TestServerConfigDefaults(t *testing.T) {
	config := ServerConfig{Endpoint: "/tmp/rpc.sock", RateLimit: 10}.WithDefaults()

	if config.MaxPayloadSize != DefaultMaxPayloadSize {
		t.Errorf("MaxPayloadSize = %d, want %d", config.MaxPayloadSize, DefaultMaxPayloadSize)
	}
	if config.MaxInFlightPerConn != DefaultMaxInFlightPerConn {
		t.Errorf("MaxInFlightPerConn = %d, want %d", config.MaxInFlightPerConn, DefaultMaxInFlightPerConn)
	}
	if config.RateBurst != 1 {
		t.Errorf("RateBurst = %d, want 1", config.RateBurst)
	}
	if config.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", config.LogLevel)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestServerConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		config ServerConfig
	}{
		{name: "missing endpoint", config: ServerConfig{}},
		{name: "negative timeout", config: ServerConfig{Endpoint: "/tmp/x.sock", WriteTimeoutSecond: -1}},
		{name: "negative rate", config: ServerConfig{Endpoint: "/tmp/x.sock", RateLimit: -2}},
		{name: "bad log level", config: ServerConfig{Endpoint: "/tmp/x.sock", LogLevel: "loud"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); err == nil {
				t.Errorf("Validate() = nil, want error")
			}
		})
	}
}

func TestConfigString(t *testing.T) {
	server := ServerConfig{Endpoint: "/run/app/rpc.sock", SocketMode: 0600}.WithDefaults()
	out := server.String()
	for _, want := range []string{"RPC SERVER", "/run/app/rpc.sock", "0600", "16 MiB", "unlimited"} {
		if !strings.Contains(out, want) {
			t.Errorf("ServerConfig.String() misses %q:\n%s", want, out)
		}
	}

	client := ClientConfig{Endpoint: "/run/app/rpc.sock", MaxPayloadSize: 2048}.WithDefaults()
	out = client.String()
	for _, want := range []string{"CLIENT CONFIGURATION", "2 KiB", "5 sec"} {
		if !strings.Contains(out, want) {
			t.Errorf("ClientConfig.String() misses %q:\n%s", want, out)
		}
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]logger.LogLevel{
		"debug":   logger.DEBUG,
		"INFO":    logger.INFO,
		"warn":    logger.WARNING,
		"warning": logger.WARNING,
		"error":   logger.ERROR,
	}
	for input, want := range tests {
		got, err := ParseLogLevel(input)
		if err != nil {
			t.Errorf("ParseLogLevel(%q) error: %v", input, err)
		}
		if got != want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", input, got, want)
		}
	}

	if _, err := ParseLogLevel("verbose"); err == nil {
		t.Errorf("ParseLogLevel(verbose) should fail")
	}
	if err := InitLoggers("verbose"); err == nil {
		t.Errorf("InitLoggers(verbose) should fail")
	}
}

func TestLoggerNames(t *testing.T) {
	seen := map[string]bool{}
	for _, name := range loggerNames {
		if !strings.HasPrefix(name, "rpc/") {
			t.Errorf("Logger %q is not a package logger", name)
		}
		if seen[name] {
			t.Errorf("Logger %q listed twice", name)
		}
		seen[name] = true
	}
}
