package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"time"

	"github.com/betbot/transferdesk/pkg/client"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const (
	addrFlag    = "addr"
	jsonFlag    = "json"
	timeoutFlag = "timeout"
)

func main() {
	_ = godotenv.Load()

	root := rootCmd()
	root.AddCommand(statusCmd(), connectCmd(), draftCmd(), sendCmd(), historyCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	defaultAddr := os.Getenv("WALLETD_URL")
	if defaultAddr == "" {
		defaultAddr = "http://127.0.0.1:8080"
	}
	cmd := &cobra.Command{
		Use:          "transferctl",
		Short:        "Drive a walletd transfer session",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().String(addrFlag, defaultAddr, "walletd base URL")
	cmd.PersistentFlags().Bool(jsonFlag, false, "print raw JSON")
	cmd.PersistentFlags().Duration(timeoutFlag, 5*time.Minute, "request timeout")
	return cmd
}

// withClient runs fn with a client and a deadline-bound context, then prints the result.
func withClient(cmd *cobra.Command, fn func(ctx context.Context, c *client.Client) (any, error)) error {
	addr, err := cmd.Flags().GetString(addrFlag)
	if err != nil {
		return err
	}
	timeout, err := cmd.Flags().GetDuration(timeoutFlag)
	if err != nil {
		return err
	}
	asJSON, err := cmd.Flags().GetBool(jsonFlag)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	out, err := fn(ctx, client.New(addr))
	if err != nil {
		return err
	}
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	printHuman(cmd.OutOrStdout(), out)
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
