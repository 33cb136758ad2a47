// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command lfring-stress runs concurrent producers and consumers over the
// lfring rings and reports throughput and any correctness violation.
//
// Usage:
//
//	lfring-stress [-engine lf|wf|both] [-order n] [-producers n] [-consumers n]
//	              [-items n] [-duration d] [-mixed] [-pin] [-json] [-progress]
//
// The exit status is 1 if any run found a violation, 2 on invalid flags.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"code.hybscloud.com/lfring/internal/stress"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	def := stress.DefaultConfig()
	fs := flag.NewFlagSet("lfring-stress", flag.ContinueOnError)
	fs.SetOutput(stderr)
	engineFlag := fs.String("engine", "both", "Ring engine: lf, wf or both")
	order := fs.Uint("order", def.Order, "log2 of the ring capacity")
	producers := fs.Int("producers", def.Producers, "Number of producer goroutines")
	consumers := fs.Int("consumers", def.Consumers, "Number of consumer goroutines")
	items := fs.Int("items", def.Items, "Values per producer; 0 runs until -duration")
	duration := fs.Duration("duration", 0, "Production time limit; 0 means none")
	mixed := fs.Bool("mixed", false, "Producers also dequeue at random")
	pin := fs.Bool("pin", false, "Pin each worker to one CPU")
	jsonOut := fs.Bool("json", false, "Print reports as JSON lines")
	progress := fs.Bool("progress", false, "Display a progress bar on stderr")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	var engines []stress.Engine
	if *engineFlag == "both" {
		engines = stress.Engines
	} else {
		e, err := stress.ParseEngine(*engineFlag)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 2
		}
		engines = []stress.Engine{e}
	}

	configs := make([]stress.Config, 0, len(engines))
	for _, engine := range engines {
		cfg := stress.Config{
			Engine:    engine,
			Order:     *order,
			Producers: *producers,
			Consumers: *consumers,
			Items:     *items,
			Duration:  *duration,
			Mixed:     *mixed,
			Pin:       *pin,
		}
		if *progress {
			cfg.Progress = stderr
		}
		if err := cfg.Validate(); err != nil {
			fmt.Fprintln(stderr, err)
			return 2
		}
		configs = append(configs, cfg)
	}

	code := 0
	for _, cfg := range configs {
		rep, err := stress.Run(ctx, cfg)
		if err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", cfg.Engine, err)
			if rep == nil {
				return 1
			}
		}
		if *progress {
			fmt.Fprintln(stderr)
		}

		if *jsonOut {
			data, err := rep.JSON()
			if err != nil {
				fmt.Fprintf(stderr, "Error marshaling report: %v\n", err)
				return 1
			}
			fmt.Fprintln(stdout, string(data))
		} else {
			fmt.Fprintln(stdout, rep)
		}
		if !rep.OK() {
			code = 1
		}
		if ctx.Err() != nil {
			break
		}
	}

	if !*jsonOut {
		h := stress.GatherHost()
		fmt.Fprintf(stdout, "host: %d CPU (%s, %.0f MHz), GOMAXPROCS=%d, %s/%s, %s, finished %s\n",
			h.NumCPU, h.CPUModel, h.CPUSpeedMHz, h.GOMAXPROCS, h.GOOS, h.GOARCH, h.GoVersion,
			time.Now().Format(time.RFC3339))
	}
	return code
}
