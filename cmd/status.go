package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"sol-swap/pkg/chain"
	"sol-swap/pkg/types"
)

var watchStatus bool

var statusCmd = &cobra.Command{
	Use:   "status <signature>",
	Short: "Check the status of a swap transaction",
	Long: `Check the confirmation status of a submitted transaction by its signature.

With --watch the status is polled until the transaction reaches the configured
commitment, fails, or the confirmation timeout elapses.

Examples:
  sol-swap status 5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW
  sol-swap status 5VERv8NMvzbJ... --watch`,
	Args: cobra.ExactArgs(1),
	Run:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVarP(&watchStatus, "watch", "w", false, "Poll until the transaction is confirmed, failed or timed out")
}

func runStatus(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	sig, err := solana.SignatureFromBase58(args[0])
	if err != nil {
		printError(fmt.Errorf("invalid transaction signature: %w", err))
		os.Exit(1)
	}

	a := mustApp(cmd)
	defer a.close()

	if watchStatus {
		watchSignature(a, sig, jsonOutput)
	} else {
		checkSignature(a, sig, jsonOutput)
	}
}

func checkSignature(a *app, sig solana.Signature, jsonOutput bool) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Checking transaction status..."
		s.Start()
	}

	status, err := a.chain.SignatureStatus(context.Background(), sig)
	if !jsonOutput {
		s.Stop()
	}

	if err != nil {
		printError(err)
		os.Exit(1)
	}

	outcome := &types.SwapOutcome{TransactionID: sig.String(), Status: types.SwapPending}
	if status != nil {
		switch {
		case status.Err != nil:
			outcome.Status = types.SwapFailed
			outcome.OnChainErr = status.Err
		case status.Reached(a.chain.Commitment()):
			outcome.Status = types.SwapConfirmed
		}
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(outcome, "", "  ")
		fmt.Println(string(jsonData))
	} else {
		displayStatus(outcome, status)
	}
}

func watchSignature(a *app, sig solana.Signature, jsonOutput bool) {
	if jsonOutput {
		fmt.Println(`{"error": "watch mode not supported with JSON output"}`)
		os.Exit(1)
	}

	fmt.Printf("\nWatching transaction %s\n", color.CyanString(sig.String()))
	fmt.Printf("Checking every %s for up to %s. Press Ctrl+C to stop.\n", a.cfg.PollInterval, a.cfg.ConfirmTimeout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " Waiting for confirmation..."
	s.Start()
	outcome := a.executor().Await(ctx, sig)
	s.Stop()

	displayStatus(outcome, nil)
}

func displayStatus(outcome *types.SwapOutcome, status *chain.SignatureStatus) {
	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                     TRANSACTION STATUS")
	fmt.Println(strings.Repeat("=", 70))

	fmt.Printf("\n  Signature:     %s\n", color.CyanString(outcome.TransactionID))
	fmt.Printf("  Status:        %s\n", getColoredStatus(string(outcome.Status)))
	if status != nil {
		fmt.Printf("  Slot:          %d\n", status.Slot)
		if status.ConfirmationStatus != "" {
			fmt.Printf("  Commitment:    %s\n", status.ConfirmationStatus)
		}
	}
	if outcome.OnChainErr != nil {
		errJSON, _ := json.Marshal(outcome.OnChainErr)
		fmt.Printf("  Error:         %s\n", color.RedString(string(errJSON)))
	}
	if outcome.Err != nil {
		fmt.Printf("  Note:          %v\n", outcome.Err)
	}

	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}

func getColoredStatus(status string) string {
	status = strings.ToUpper(status)

	switch status {
	case "CONFIRMED":
		return color.GreenString(status)
	case "PENDING":
		return color.YellowString(status)
	case "FAILED":
		return color.RedString(status)
	case "UNKNOWN":
		return color.MagentaString(status)
	default:
		return status
	}
}
