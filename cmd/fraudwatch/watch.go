package main

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/andreiluca/fraudwatch/internal/api"
	"github.com/andreiluca/fraudwatch/internal/classify"
	"github.com/andreiluca/fraudwatch/internal/feed"
	"github.com/andreiluca/fraudwatch/internal/stream"
	"github.com/andreiluca/fraudwatch/internal/tui"
)

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the live fraud-monitoring dashboard",
		Long: `Fetches the historical transaction batch, subscribes to the backend's live
event stream, and renders the reconciled feed with KPI cards in the terminal.`,
		RunE: runWatch,
	}

	cmd.Flags().String("api-url", "", "backend base URL (overrides api.base_url)")
	cmd.Flags().Int("retention", 0, "maximum transactions retained in the feed (overrides feed.retention)")

	return cmd
}

func runWatch(cmd *cobra.Command, _ []string) error {
	if u, _ := cmd.Flags().GetString("api-url"); u != "" {
		viper.Set("api.base_url", u)
	}
	if n, _ := cmd.Flags().GetInt("retention"); n > 0 {
		viper.Set("feed.retention", n)
	}

	classifier := classify.New(thresholdsFromConfig())
	reconciled := feed.New(viper.GetInt("feed.retention"))
	client := api.NewClient(viper.GetString("api.base_url"))

	live := stream.New(stream.Config{
		URL:            streamURL(),
		ReconnectDelay: viper.GetDuration("stream.reconnect_delay"),
		MaxRetries:     viper.GetInt("stream.max_retries"),
	}, reconciled)

	ctx := cmd.Context()
	if err := live.Connect(ctx); err != nil {
		return err
	}
	defer live.Disconnect()

	slog.Info("Starting dashboard",
		"api_url", viper.GetString("api.base_url"),
		"stream_url", streamURL(),
		"retention", viper.GetInt("feed.retention"))

	return tui.Run(ctx, tui.Config{
		Source:     client,
		Feed:       reconciled,
		Classifier: classifier,
		Stream:     live,
		BatchLimit: viper.GetInt("api.batch_limit"),
	})
}
