package bench

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ValentinKolb/sockrpc/cmd/util"
	"github.com/ValentinKolb/sockrpc/lib/demo"
	"github.com/ValentinKolb/sockrpc/rpc/client"
	"github.com/ValentinKolb/sockrpc/rpc/common"
	"github.com/ValentinKolb/sockrpc/rpc/contract"
	"github.com/fatih/color"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// BenchCmd measures call latency against a running demo server
	BenchCmd = &cobra.Command{
		Use:     "bench",
		Short:   "Performance testing tool for sockrpc servers",
		PreRunE: processBenchConfig,
		RunE:    run,
	}
	benchCalls     = 10000
	benchWorkers   = 10
	benchValueSize = 64
	benchSkip      []string
)

func init() {
	util.SetupClientFlags(BenchCmd)

	key := "calls"
	BenchCmd.Flags().Int(key, 10000, util.WrapString("Number of calls per benchmark"))
	key = "workers"
	BenchCmd.Flags().Int(key, 10, util.WrapString("Number of goroutines sharing the connection"))
	key = "value-size"
	BenchCmd.Flags().Int(key, 64, util.WrapString("Size in bytes of the string sent by the echo benchmark"))
	key = "skip"
	BenchCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. add,echo)"))
}

func processBenchConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	benchCalls = viper.GetInt("calls")
	benchWorkers = viper.GetInt("workers")
	benchValueSize = viper.GetInt("value-size")
	benchSkip = strings.Split(viper.GetString("skip"), ",")

	if benchCalls <= 0 || benchWorkers <= 0 {
		return fmt.Errorf("calls and workers must be positive")
	}
	return common.InitLoggers(viper.GetString("log-level"))
}

func run(_ *cobra.Command, _ []string) error {
	fmt.Println("Performance testing tool for sockrpc servers")
	config := util.GetClientConfig()
	fmt.Println(config.String())
	fmt.Printf("Calls: %d, Workers: %d\n\n", benchCalls, benchWorkers)

	ctx, cancel := util.CallContext()
	d, err := util.Connect(ctx)
	cancel()
	if err != nil {
		return err
	}
	defer d.Close()

	value := strings.Repeat("x", benchValueSize)
	benchmarks := []struct {
		name string
		call func(ctx context.Context, i int) error
	}{
		{"add", func(ctx context.Context, i int) error {
			_, err := client.Call(ctx, d, demo.Add, contract.Pack2(i, i))
			return err
		}},
		{"hurt", func(ctx context.Context, i int) error {
			_, err := client.Call(ctx, d, demo.Hurt, contract.Pack2(demo.Goblin{Health: i}, 1))
			return err
		}},
		{"echo", func(ctx context.Context, _ int) error {
			_, err := client.Call(ctx, d, demo.Echo, value)
			return err
		}},
	}

	for _, b := range benchmarks {
		if shouldSkip(b.name) {
			continue
		}
		printResult(b.name, measure(b.call))
	}
	return nil
}

type result struct {
	timer    gometrics.Timer
	errors   int64
	duration time.Duration
}

// measure runs benchCalls calls spread over benchWorkers goroutines on one connection
func measure(call func(ctx context.Context, i int) error) result {
	timer := gometrics.NewTimer()
	failures := gometrics.NewCounter()
	jobs := make(chan int)

	var wg sync.WaitGroup
	start := time.Now()
	for w := 0; w < benchWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				ctx, cancel := util.CallContext()
				t := time.Now()
				if err := call(ctx, i); err != nil {
					failures.Inc(1)
				}
				timer.UpdateSince(t)
				cancel()
			}
		}()
	}
	for i := 0; i < benchCalls; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return result{timer: timer, errors: failures.Count(), duration: time.Since(start)}
}

func printResult(name string, r result) {
	snap := r.timer.Snapshot()
	errColor := color.New(color.FgGreen)
	if r.errors > 0 {
		errColor = color.New(color.FgRed, color.Bold)
	}
	ps := snap.Percentiles([]float64{0.5, 0.9, 0.99})
	fmt.Printf("%s %8d calls  %10.0f calls/s  mean %-10s p50 %-10s p90 %-10s p99 %-10s errors %s\n",
		color.CyanString("%-6s", name),
		snap.Count(),
		float64(snap.Count())/r.duration.Seconds(),
		time.Duration(snap.Mean()),
		time.Duration(ps[0]),
		time.Duration(ps[1]),
		time.Duration(ps[2]),
		errColor.Sprint(r.errors),
	)
}

func shouldSkip(name string) bool {
	for _, skip := range benchSkip {
		if strings.TrimSpace(skip) == name {
			return true
		}
	}
	return false
}
