package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/andreiluca/fraudwatch/internal/api"
	"github.com/andreiluca/fraudwatch/internal/normalize"
)

func submitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a transaction to the backend",
		Long: `Posts a single transaction for fraud detection. The backend echoes the
stored record; connected dashboards pick it up through the live stream.`,
		RunE: runSubmit,
	}

	cmd.Flags().Float64("amount", 0, "transaction amount")
	cmd.Flags().String("merchant", "", "merchant name")
	cmd.Flags().String("category", "", "transaction category")
	cmd.Flags().String("city", "", "transaction city")
	cmd.Flags().String("state", "", "transaction state")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("merchant")

	return cmd
}

func runSubmit(cmd *cobra.Command, _ []string) error {
	amount, _ := cmd.Flags().GetFloat64("amount")
	merchant, _ := cmd.Flags().GetString("merchant")
	category, _ := cmd.Flags().GetString("category")
	city, _ := cmd.Flags().GetString("city")
	state, _ := cmd.Flags().GetString("state")

	payload := normalize.RawPayload{
		"amount":   amount,
		"merchant": merchant,
	}
	if category != "" {
		payload["category"] = category
	}
	if city != "" {
		payload["city"] = city
	}
	if state != "" {
		payload["state"] = state
	}

	client := api.NewClient(viper.GetString("api.base_url"))
	echoed, err := client.SubmitTransaction(cmd.Context(), payload)
	if err != nil {
		return err
	}

	slog.Info("Transaction submitted",
		"transaction_id", echoed["transaction_id"],
		"status", echoed["status"])
	fmt.Printf("submitted %v (status %v)\n", echoed["transaction_id"], echoed["status"])
	return nil
}
