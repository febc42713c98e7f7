// Package main provides the d20dist CLI: it evaluates dice expressions from
// the command line and prints the exact probability distribution of each.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/cory-johannsen/d20dist/internal/config"
	"github.com/cory-johannsen/d20dist/internal/engine"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file; empty = defaults")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: d20dist [-config file] EXPRESSION [EXPRESSION...]")
		os.Exit(2)
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("loading config: %v", err)
		}
		cfg = loaded
	}

	limits := engine.Limits{
		Convolution:    cfg.Limits.Convolution,
		Enumeration:    cfg.Limits.Enumeration,
		ExplodeEpsilon: cfg.Limits.ExplodeEpsilon,
	}

	failed := false
	for _, notation := range flag.Args() {
		if err := printDistribution(notation, limits); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", notation, err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func printDistribution(notation string, limits engine.Limits) error {
	d, err := engine.EvaluateNotation(notation, limits)
	if err != nil {
		return err
	}

	fmt.Printf("%s: mean=%.4f stdev=%.4f min=%d max=%d\n",
		notation, d.Mean(), d.Stdev(), d.Min(), d.Max())
	fmt.Printf("%8s %12s %12s\n", "total", "p", "p(>=)")
	for _, k := range d.Keys() {
		fmt.Printf("%8d %11.4f%% %11.4f%%\n", k, 100*d.Get(k), 100*d.GetAtLeast(k))
	}
	return nil
}
