package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/betbot/transferdesk/internal/session"
	"github.com/betbot/transferdesk/internal/units"
	"github.com/betbot/transferdesk/pkg/client"
	"github.com/spf13/cobra"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the session snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(cmd, func(ctx context.Context, c *client.Client) (any, error) {
				return c.Snapshot(ctx)
			})
		},
	}
}

func connectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Request wallet access",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			silent, err := cmd.Flags().GetBool("silent")
			if err != nil {
				return err
			}
			mode := session.AccessInteractive
			if silent {
				mode = session.AccessSilent
			}
			return withClient(cmd, func(ctx context.Context, c *client.Client) (any, error) {
				return c.Connect(ctx, mode)
			})
		},
	}
	cmd.Flags().Bool("silent", false, "only use accounts the wallet already approved")
	return cmd
}

func draftCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "draft <field> <value>",
		Short: "Set a draft field (addressTo, amount, keyword, message)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, c *client.Client) (any, error) {
				return c.UpdateDraft(ctx, args[0], args[1])
			})
		},
	}
}

func sendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "send",
		Aliases: []string{"submit"},
		Short:   "Submit the draft transfer",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			async, err := cmd.Flags().GetBool("async")
			if err != nil {
				return err
			}
			return withClient(cmd, func(ctx context.Context, c *client.Client) (any, error) {
				return c.Submit(ctx, async)
			})
		},
	}
	cmd.Flags().Bool("async", false, "return once the transfer is sent")
	return cmd
}

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded transfers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			refresh, err := cmd.Flags().GetBool("refresh")
			if err != nil {
				return err
			}
			return withClient(cmd, func(ctx context.Context, c *client.Client) (any, error) {
				return c.Transfers(ctx, refresh)
			})
		},
	}
	cmd.Flags().Bool("refresh", false, "re-read the contract first")
	return cmd
}

func printHuman(w io.Writer, v any) {
	switch out := v.(type) {
	case *session.Snapshot:
		account := out.Account
		if account == "" {
			account = "-"
		}
		fmt.Fprintf(w, "account:    %s (%s)\n", account, out.AccountStatus)
		fmt.Fprintf(w, "history:    %d transfers (%s)\n", len(out.Transfers), out.HistoryStatus)
		fmt.Fprintf(w, "submission: %s\n", out.SubmissionStatus)
		if s := out.LastSubmission; s != nil {
			fmt.Fprintf(w, "  id %s tx %s record %s\n", s.ID, orDash(s.TxHash), orDash(s.RecordTxHash))
			if s.Error != "" {
				fmt.Fprintf(w, "  error: %s\n", s.Error)
			}
		}
		printDraft(w, out.Draft)
		for _, n := range out.Notices {
			fmt.Fprintf(w, "notice:     %s\n", n.Message)
		}
	case *session.TransferDraft:
		printDraft(w, *out)
	case []session.TransferRecord:
		tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
		fmt.Fprintln(tw, "FROM\tTO\tAMOUNT\tTIME\tKEYWORD\tMESSAGE")
		for _, t := range out {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				t.AddressFrom, t.AddressTo, units.FormatEther(t.Amount), t.Timestamp, t.Keyword, t.Message)
		}
		_ = tw.Flush()
	default:
		fmt.Fprintf(w, "%+v\n", out)
	}
}

func printDraft(w io.Writer, d session.TransferDraft) {
	fmt.Fprintf(w, "draft:      to=%s amount=%s keyword=%s message=%q\n",
		orDash(d.AddressTo), orDash(d.Amount), orDash(d.Keyword), d.Message)
}
