// Command eosmirror is a minimal demo driver for the eossync library:
// it connects to a console, ticks on a fixed interval, prints each
// tick's drained log to stdout, and, when run with --dump, prints the
// show's top-level counts once the mirror is connected and
// synchronized (§"Out of scope":
// the spec assumes a demo CLI driver exists; this is a real one).
/*
 * Copyright (c) 2024, Electronic Theatre Controls, Inc.
 */
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/etclabs/eossync"
	"github.com/etclabs/eossync/config"
	"github.com/etclabs/eossync/syncstats"
	"github.com/etclabs/eossync/target"
)

func main() {
	cfg := config.Default()
	cfg.BindFlags(pflag.CommandLine)
	tickInterval := pflag.Duration("tick-interval", 100*time.Millisecond, "interval between Tick calls")
	dump := pflag.Bool("dump", false, "print show counts once synchronized")
	pflag.Parse()

	stats := syncstats.New(prometheus.NewRegistry())
	facade := eossync.New(cfg, stats)
	facade.Initialize(cfg.Host, cfg.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return runTickLoop(ctx, facade, *tickInterval, *dump) })

	if err := g.Wait(); err != nil && err != context.Canceled {
		fmt.Fprintln(os.Stderr, "eosmirror:", err)
		os.Exit(1)
	}
	facade.Shutdown()
}

func runTickLoop(ctx context.Context, facade *eossync.Facade, interval time.Duration, dump bool) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	printedSynced := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			facade.Tick()
			for _, rec := range facade.GetLog().Drain() {
				fmt.Printf("[%s] %s\n", rec.Kind, rec.Text)
			}
			if dump && facade.IsConnectedAndSynchronized() && !printedSynced {
				printCounts(facade)
				printedSynced = true
			}
		}
	}
}

func printCounts(facade *eossync.Facade) {
	fmt.Println("--- show mirror synchronized ---")
	for _, typ := range target.Types() {
		if typ == target.Cue {
			for _, id := range facade.GetData().CueListIDs() {
				tl := facade.GetCue(id)
				fmt.Printf("%s/%d: %d targets\n", typ, id, tl.NumTargets())
			}
			continue
		}
		tl := facade.GetData().TargetList(typ, 0)
		fmt.Printf("%s: %d targets\n", typ, tl.NumTargets())
	}
}
