package call

import (
	"github.com/ValentinKolb/sockrpc/cmd/util"
	"github.com/ValentinKolb/sockrpc/rpc/client"
	"github.com/ValentinKolb/sockrpc/rpc/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	dispatcher *client.Dispatcher

	// CallCommands represents the call command group
	CallCommands = &cobra.Command{
		Use:                "call",
		Short:              "Call a method of the demo contract",
		PersistentPreRunE:  setupClient,
		PersistentPostRunE: closeClient,
	}
)

func init() {
	// Add common client flags to the call command
	util.SetupClientFlags(CallCommands)

	// Add subcommands
	CallCommands.AddCommand(hurtCmd)
	CallCommands.AddCommand(addCmd)
	CallCommands.AddCommand(subCmd)
	CallCommands.AddCommand(echoCmd)
	CallCommands.AddCommand(sleepCmd)
	CallCommands.AddCommand(versionCmd)
}

// setupClient connects the dispatcher used by the subcommands
func setupClient(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}
	if err := common.InitLoggers(viper.GetString("log-level")); err != nil {
		return err
	}

	ctx, cancel := util.CallContext()
	defer cancel()

	d, err := util.Connect(ctx)
	if err != nil {
		return err
	}
	dispatcher = d
	return nil
}

func closeClient(_ *cobra.Command, _ []string) error {
	if dispatcher == nil {
		return nil
	}
	return dispatcher.Close()
}
