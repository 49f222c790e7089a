package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/andreiluca/fraudwatch/internal/classify"
	"github.com/andreiluca/fraudwatch/internal/common"
	"github.com/andreiluca/fraudwatch/internal/feed"
)

var (
	cfgFile string
	version = "dev"
	rootCmd = &cobra.Command{
		Use:   "fraudwatch",
		Short: "🔎 Real-time fraud-monitoring dashboard",
		Long: `fraudwatch watches a transaction backend over HTTP and SSE, reconciles the
historical batch with the live event stream into one bounded feed, classifies
every transaction, and renders the result as a terminal dashboard.`,
		PersistentPreRunE: initConfig,
	}
)

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.config/fraudwatch/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")

	// Bind flags to viper
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))

	// Add commands
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(simulateCmd())
	rootCmd.AddCommand(submitCmd())
	rootCmd.AddCommand(versionCmd())
}

func main() {
	// Set up signal handling
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("Received interrupt signal, shutting down gracefully...")
		cancel()
	}()

	err := rootCmd.ExecuteContext(ctx)
	cancel() // Always cleanup

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	// Set up config file
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}

		// Search for config in standard locations
		viper.AddConfigPath(fmt.Sprintf("%s/.config/fraudwatch", home))
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	// Environment variables
	viper.SetEnvPrefix("FRAUDWATCH")
	viper.AutomaticEnv()

	setConfigDefaults()

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, we'll use defaults
	}

	if err := common.SetupLogger(viper.GetString("logging.level"), viper.GetString("logging.format")); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}

	return nil
}

func setConfigDefaults() {
	viper.SetDefault("api.base_url", "http://localhost:8000")
	viper.SetDefault("api.batch_limit", feed.DefaultRetention)
	viper.SetDefault("stream.url", "")
	viper.SetDefault("stream.reconnect_delay", 3*time.Second)
	viper.SetDefault("stream.max_retries", 0)
	viper.SetDefault("feed.retention", feed.DefaultRetention)

	defaults := classify.DefaultThresholds()
	viper.SetDefault("classifier.fraud_probability", defaults.FraudProbability)
	viper.SetDefault("classifier.alert_probability", defaults.AlertProbability)
	viper.SetDefault("classifier.fraud_amount", defaults.FraudAmount)
	viper.SetDefault("classifier.suspicious_categories", defaults.SuspiciousCategories)
	viper.SetDefault("classifier.online_shopping_category", defaults.OnlineShoppingCategory)
	viper.SetDefault("classifier.online_shopping_amount", defaults.OnlineShoppingAmount)
}

// thresholdsFromConfig builds the single classifier rule set every component
// shares.
func thresholdsFromConfig() classify.Thresholds {
	return classify.Thresholds{
		FraudProbability:       viper.GetFloat64("classifier.fraud_probability"),
		AlertProbability:       viper.GetFloat64("classifier.alert_probability"),
		FraudAmount:            viper.GetFloat64("classifier.fraud_amount"),
		SuspiciousCategories:   viper.GetStringSlice("classifier.suspicious_categories"),
		OnlineShoppingCategory: viper.GetString("classifier.online_shopping_category"),
		OnlineShoppingAmount:   viper.GetFloat64("classifier.online_shopping_amount"),
	}
}

// streamURL returns the configured stream endpoint, derived from the API base
// URL unless set explicitly.
func streamURL() string {
	if u := viper.GetString("stream.url"); u != "" {
		return u
	}
	return viper.GetString("api.base_url") + "/api/stream"
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			slog.Info("fraudwatch version", "version", version)
		},
	}
}
