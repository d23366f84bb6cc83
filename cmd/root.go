package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/sockrpc/cmd/bench"
	"github.com/ValentinKolb/sockrpc/cmd/call"
	"github.com/ValentinKolb/sockrpc/cmd/methods"
	"github.com/ValentinKolb/sockrpc/cmd/serve"
	"github.com/ValentinKolb/sockrpc/cmd/util"
	"github.com/spf13/cobra"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "sockrpc",
		Short: "typed rpc over unix domain sockets",
		Long: fmt.Sprintf(`sockrpc (v%s)

Typed request/response calls between processes on the same host,
multiplexed over a single Unix domain socket connection.`, util.Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of sockrpc",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("sockrpc v%s\n", util.Version)
		},
	}
)

func init() {
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(call.CallCommands)
	RootCmd.AddCommand(methods.MethodsCmd)
	RootCmd.AddCommand(bench.BenchCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "endpoint"
	RootCmd.PersistentFlags().String(key, util.DefaultEndpoint, util.WrapString("Path of the unix socket"))
	key = "serializer"
	RootCmd.PersistentFlags().String(key, "msgpack", util.WrapString("serializer to use (msgpack, json, gob). client and server must agree"))
	key = "max-payload"
	RootCmd.PersistentFlags().Uint32(key, 0, util.WrapString("Largest payload in bytes a frame may carry (0 = 16 MiB)"))
	key = "log-level"
	RootCmd.PersistentFlags().String(key, "warn", util.WrapString("level at which logs will be output (debug, info, warn, error)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
