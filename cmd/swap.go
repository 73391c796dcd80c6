package cmd

import (
	"bufio"
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
	"github.com/spf13/cobra"

	"sol-swap/pkg/swap"
	"sol-swap/pkg/types"
)

var noConfirm bool

var swapCmd = &cobra.Command{
	Use:   "swap <amount> <source-token> to <dest-token>",
	Short: "Swap tokens through the Jupiter aggregator",
	Long: `Quote, sign, submit and confirm a token swap.

The swap transaction is built by Jupiter, signed with your local key and sent to
the configured RPC endpoint. The signing key is read from SOL_SWAP_PRIVATE_KEY
(base58) or SOL_SWAP_KEYPAIR_PATH (solana-keygen JSON file).

A swap whose confirmation cannot be determined is reported as UNKNOWN, not as
failed. Check it later with 'sol-swap status <signature>' before retrying.

Examples:
  sol-swap swap 1 SOL to USDC
  sol-swap swap 100 USDC to BONK --slippage 100
  sol-swap swap 0.1 SOL to JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN --yes`,
	Args: cobra.MinimumNArgs(1),
	Run:  runSwap,
}

func init() {
	rootCmd.AddCommand(swapCmd)

	swapCmd.Flags().IntVar(&slippageBps, "slippage", -1, "Slippage tolerance in basis points (default from config)")
	swapCmd.Flags().BoolVarP(&noConfirm, "yes", "y", false, "Skip confirmation prompt")
}

func runSwap(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a := mustApp(cmd)
	defer a.close()

	signer, err := a.signer()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	req := mustQuoteRequest(a, strings.Join(args, " "), jsonOutput)

	q, err := fetchQuote(a, req, jsonOutput)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if !jsonOutput {
		displayQuote(q)
		fmt.Printf("  Wallet: %s\n", color.CyanString(signer.PublicKey().String()))
	}

	// Ask for confirmation
	if !noConfirm && !jsonOutput {
		if !confirmSwap() {
			fmt.Println("\nSwap cancelled.")
			os.Exit(0)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	executor := a.executor()
	executor.OnState(func(state swap.State, txid string) {
		if jsonOutput {
			return
		}
		switch state {
		case swap.StatePreparing:
			s.Suffix = " Building swap transaction..."
			s.Start()
		case swap.StateSubmitted:
			s.Suffix = fmt.Sprintf(" Waiting for confirmation of %s...", txid)
		default:
			s.Stop()
		}
	})

	outcome, err := executor.Execute(ctx, q, signer)
	s.Stop()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		output := map[string]interface{}{
			"txid":         outcome.TransactionID,
			"status":       outcome.Status,
			"input_token":  q.Input.Symbol,
			"output_token": q.Output.Symbol,
			"out_amount":   q.OutAmountUI,
		}
		if outcome.OnChainErr != nil {
			output["on_chain_error"] = outcome.OnChainErr
		}
		if outcome.Err != nil {
			output["error"] = outcome.Err.Error()
		}
		jsonData, _ := json.MarshalIndent(output, "", "  ")
		fmt.Println(string(jsonData))
	} else {
		displayOutcome(outcome)
	}

	if !outcome.Succeeded() {
		os.Exit(1)
	}
}

func displayOutcome(outcome *types.SwapOutcome) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	switch outcome.Status {
	case types.SwapConfirmed:
		color.Green("                   SWAP CONFIRMED")
	case types.SwapFailed:
		color.Red("                    SWAP FAILED")
	default:
		color.Yellow("                SWAP STATUS UNKNOWN")
	}
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\n  Transaction: %s\n", color.CyanString(outcome.TransactionID))
	fmt.Printf("  Explorer:    https://solscan.io/tx/%s\n", outcome.TransactionID)
	if outcome.OnChainErr != nil {
		errJSON, _ := json.Marshal(outcome.OnChainErr)
		fmt.Printf("  Error:       %s\n", color.RedString(string(errJSON)))
	}
	if outcome.Err != nil {
		fmt.Printf("  Note:        %v\n", outcome.Err)
	}

	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")

	if outcome.Status == types.SwapUnknown {
		fmt.Println("The transaction may still land. Check it before retrying:")
		color.Cyan("  sol-swap status %s --watch\n", outcome.TransactionID)
	}
}

func confirmSwap() bool {
	reader := bufio.NewReader(os.Stdin)
	fmt.Print("\nProceed with swap? (y/N): ")

	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
