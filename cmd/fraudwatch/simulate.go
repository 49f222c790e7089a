package main

import (
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/andreiluca/fraudwatch/internal/classify"
	"github.com/andreiluca/fraudwatch/internal/simulator"
)

func simulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the built-in demo backend",
		Long: `Serves the transaction API and SSE stream locally, emitting synthetic
transactions at a fixed interval. Point "fraudwatch watch" at it for a
self-contained demo.`,
		RunE: runSimulate,
	}

	cmd.Flags().String("addr", ":8000", "listen address")
	cmd.Flags().Duration("interval", 2*time.Second, "interval between generated transactions")
	cmd.Flags().Int64("seed", 0, "generator seed (0 means time-based)")
	cmd.Flags().Int("seed-count", 25, "transactions generated up front as history")

	return cmd
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	interval, _ := cmd.Flags().GetDuration("interval")
	seed, _ := cmd.Flags().GetInt64("seed")
	seedCount, _ := cmd.Flags().GetInt("seed-count")

	classifier := classify.New(thresholdsFromConfig())
	srv := simulator.New(classifier, viper.GetInt("feed.retention"))

	gen := simulator.NewGenerator(seed)
	for i := 0; i < seedCount; i++ {
		if _, err := srv.Inject(gen.Next()); err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	go srv.Generate(ctx, gen, interval)

	slog.Info("Simulator listening", "addr", addr, "interval", interval, "seeded", seedCount)
	return srv.Run(ctx, addr)
}
