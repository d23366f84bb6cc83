package util

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ValentinKolb/sockrpc/rpc/client"
	"github.com/ValentinKolb/sockrpc/rpc/common"
	"github.com/ValentinKolb/sockrpc/rpc/serializer"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Version of the sockrpc binary, also returned by the demo version method
	Version = "0.3.0"

	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50

	// DefaultEndpoint is the socket path used when no endpoint is configured
	DefaultEndpoint = "/tmp/sockrpc/demo.sock"
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		if lineWidth > 0 && lineWidth+1+len(word) > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += len(word)
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// InitConfig loads .env files and makes every flag settable as SOCKRPC_<FLAG>
func InitConfig() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix("sockrpc")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// SetupClientFlags adds the connection flags to a client command
func SetupClientFlags(cmd *cobra.Command) {
	key := "timeout"
	cmd.PersistentFlags().Int(key, 10, WrapString("Timeout in seconds for a single call"))

	key = "dial-timeout"
	cmd.PersistentFlags().Int(key, common.DefaultDialTimeoutSecond, WrapString("Timeout in seconds for connecting to the socket"))

	key = "write-timeout"
	cmd.PersistentFlags().Int(key, 0, WrapString("Timeout in seconds for writing a request (0 = none)"))
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// GetClientConfig reads the client configuration from viper
func GetClientConfig() common.ClientConfig {
	return common.ClientConfig{
		Endpoint:           viper.GetString("endpoint"),
		MaxPayloadSize:     viper.GetUint32("max-payload"),
		DialTimeoutSecond:  viper.GetInt("dial-timeout"),
		WriteTimeoutSecond: viper.GetInt("write-timeout"),
	}.WithDefaults()
}

// GetSerializer creates the serializer named by the serializer flag
func GetSerializer() (serializer.IRPCSerializer, error) {
	return serializer.ByName(viper.GetString("serializer"))
}

// CallContext returns a context bounded by the timeout flag
func CallContext() (context.Context, context.CancelFunc) {
	if t := viper.GetInt("timeout"); t > 0 {
		return context.WithTimeout(context.Background(), time.Duration(t)*time.Second)
	}
	return context.WithCancel(context.Background())
}

// Connect opens a dispatcher with the configured endpoint and serializer
func Connect(ctx context.Context) (*client.Dispatcher, error) {
	s, err := GetSerializer()
	if err != nil {
		return nil, err
	}

	config := GetClientConfig()
	d, err := client.Connect(ctx, config, s)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", config.Endpoint, err)
	}
	return d, nil
}
