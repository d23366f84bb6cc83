package call

import (
	"fmt"
	"strconv"

	"github.com/ValentinKolb/sockrpc/cmd/util"
	"github.com/ValentinKolb/sockrpc/lib/demo"
	"github.com/ValentinKolb/sockrpc/rpc/client"
	"github.com/ValentinKolb/sockrpc/rpc/contract"
	"github.com/spf13/cobra"
)

var (
	hurtCmd = &cobra.Command{
		Use:   "hurt [health] [damage]",
		Short: "Hurts a goblin and prints it afterwards",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			health, damage, err := parseInts(args)
			if err != nil {
				return err
			}
			hungry, _ := cmd.Flags().GetBool("hungry")

			ctx, cancel := util.CallContext()
			defer cancel()

			g := demo.Goblin{Health: health, Hungry: hungry}
			hurt, err := client.Call(ctx, dispatcher, demo.Hurt, contract.Pack2(g, damage))
			if err != nil {
				return err
			}
			fmt.Printf("before=%+v, after=%+v\n", g, hurt)
			return nil
		},
	}
	addCmd = &cobra.Command{
		Use:   "add [a] [b]",
		Short: "Adds two integers",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return callInts(demo.Add, args)
		},
	}
	subCmd = &cobra.Command{
		Use:   "sub [a] [b]",
		Short: "Subtracts b from a",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return callInts(demo.Sub, args)
		},
	}
	echoCmd = &cobra.Command{
		Use:   "echo [text]",
		Short: "Sends text and prints the reply",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := util.CallContext()
			defer cancel()

			resp, err := client.Call(ctx, dispatcher, demo.Echo, args[0])
			if err != nil {
				return err
			}
			fmt.Println(resp)
			return nil
		},
	}
	sleepCmd = &cobra.Command{
		Use:   "sleep [ms]",
		Short: "Lets the server sleep for ms milliseconds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ms, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("ms must be a number: %w", err)
			}

			ctx, cancel := util.CallContext()
			defer cancel()

			resp, err := client.Call(ctx, dispatcher, demo.Sleep, ms)
			if err != nil {
				return err
			}
			fmt.Printf("slept %d ms\n", resp)
			return nil
		},
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Prints the version of the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := util.CallContext()
			defer cancel()

			resp, err := client.Call(ctx, dispatcher, demo.Version, contract.Unit{})
			if err != nil {
				return err
			}
			fmt.Printf("server v%s\n", resp)
			return nil
		},
	}
)

func init() {
	hurtCmd.Flags().Bool("hungry", false, util.WrapString("Whether the goblin is hungry"))
}

func parseInts(args []string) (int, int, error) {
	a, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, 0, fmt.Errorf("%s is not a number: %w", args[0], err)
	}
	b, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, 0, fmt.Errorf("%s is not a number: %w", args[1], err)
	}
	return a, b, nil
}

func callInts(method contract.Method[contract.Args2[int, int], int], args []string) error {
	a, b, err := parseInts(args)
	if err != nil {
		return err
	}

	ctx, cancel := util.CallContext()
	defer cancel()

	resp, err := client.Call(ctx, dispatcher, method, contract.Pack2(a, b))
	if err != nil {
		return err
	}
	fmt.Printf("%s(%d, %d) = %d\n", method.Name(), a, b, resp)
	return nil
}
