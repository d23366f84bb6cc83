package methods

import (
	"fmt"
	"os"
	"text/tabwriter"

	// declares the demo contract in contract.Default
	_ "github.com/ValentinKolb/sockrpc/lib/demo"
	"github.com/ValentinKolb/sockrpc/rpc/contract"
	"github.com/spf13/cobra"
)

// MethodsCmd prints the methods of the demo contract with their ids
var MethodsCmd = &cobra.Command{
	Use:   "methods",
	Short: "List the declared methods and their ids",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tID\tSIGNATURE")
		for _, d := range contract.Default.Descriptors() {
			fmt.Fprintf(w, "%s\t%#016x\t%s\n", d.Name, d.ID, d.Signature)
		}
		return w.Flush()
	},
}
