package serve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	cmdUtil "github.com/ValentinKolb/sockrpc/cmd/util"
	"github.com/ValentinKolb/sockrpc/lib/demo"
	"github.com/ValentinKolb/sockrpc/rpc/common"
	"github.com/ValentinKolb/sockrpc/rpc/server"
	"github.com/VictoriaMetrics/metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Serve the demo contract",
		Long:    `Serve the demo contract (hurt, add, sub, echo, sleep, version) on a unix socket. The configuration can be set via command line flags or environment variables. The format of the environment variables is SOCKRPC_<flag> (e.g. SOCKRPC_MAX_IN_FLIGHT=1)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// add flags
	key := "socket-mode"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Permission bits of the socket file in octal (e.g. 0660). Empty leaves the mode as created"))

	key = "max-in-flight"
	ServeCmd.PersistentFlags().Int(key, common.DefaultMaxInFlightPerConn, cmdUtil.WrapString("Concurrently running handlers per connection. 1 answers each connection in request order"))

	key = "write-timeout"
	ServeCmd.PersistentFlags().Int64(key, 0, cmdUtil.WrapString("Timeout in seconds for writing one response (0 = none)"))

	key = "handler-timeout"
	ServeCmd.PersistentFlags().Int64(key, 0, cmdUtil.WrapString("Deadline in seconds for a single handler (0 = none)"))

	key = "rate-limit"
	ServeCmd.PersistentFlags().Float64(key, 0, cmdUtil.WrapString("Allowed calls per second across all connections (0 = unlimited)"))

	key = "rate-burst"
	ServeCmd.PersistentFlags().Int(key, 1, cmdUtil.WrapString("Token bucket size of the rate limiter"))

	key = "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Address to serve prometheus metrics on (e.g. localhost:9090). Empty disables the endpoint"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.MaxPayloadSize = viper.GetUint32("max-payload")
	serveCmdConfig.MaxInFlightPerConn = viper.GetInt("max-in-flight")
	serveCmdConfig.WriteTimeoutSecond = viper.GetInt64("write-timeout")
	serveCmdConfig.HandlerTimeoutSecond = viper.GetInt64("handler-timeout")
	serveCmdConfig.RateLimit = viper.GetFloat64("rate-limit")
	serveCmdConfig.RateBurst = viper.GetInt("rate-burst")
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	// parse socket mode
	if mode := viper.GetString("socket-mode"); mode != "" {
		m, err := strconv.ParseUint(mode, 8, 32)
		if err != nil || m > 0o777 {
			return fmt.Errorf("invalid socket mode %q (expected octal permission bits like 0660)", mode)
		}
		serveCmdConfig.SocketMode = os.FileMode(m)
	}

	*serveCmdConfig = serveCmdConfig.WithDefaults()
	return serveCmdConfig.Validate()
}

func run(_ *cobra.Command, _ []string) error {
	if err := common.InitLoggers(serveCmdConfig.LogLevel); err != nil {
		return err
	}

	s, err := cmdUtil.GetSerializer()
	if err != nil {
		return err
	}

	table := server.NewHandlerTable(nil, s)
	if err := demo.Bind(table, cmdUtil.Version); err != nil {
		return err
	}

	srv := server.NewServer(*serveCmdConfig, table, nil)
	srv.Use(server.MetricsMiddleware())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if addr := viper.GetString("metrics-endpoint"); addr != "" {
		metricsSrv := startMetrics(addr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsSrv.Shutdown(shutdownCtx)
		}()
	}

	fmt.Println(serveCmdConfig.String())
	fmt.Printf("serving %d methods with %s serializer\n", len(table.Methods()), s.Name())

	return srv.Serve(ctx)
}

// startMetrics serves the global VictoriaMetrics set in prometheus text format
func startMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		metrics.WritePrometheus(w, true)
	})

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			server.Logger.Errorf("metrics endpoint on %s failed: %v", addr, err)
		}
	}()
	return srv
}
