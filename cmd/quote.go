package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"sol-swap/pkg/amount"
	"sol-swap/pkg/parser"
	"sol-swap/pkg/quote"
	"sol-swap/pkg/types"
)

// highPriceImpactPct is the price impact above which a quote is flagged
var highPriceImpactPct = decimal.NewFromInt(5)

var slippageBps int

var quoteCmd = &cobra.Command{
	Use:   "quote <amount> <source-token> to <dest-token>",
	Short: "Get a swap quote without executing it",
	Long: `Fetch a quote from the Jupiter aggregator.

Tokens can be given by symbol (SOL, USDC, BONK, TRUMP, USDT or any custom token)
or by mint address.

Examples:
  sol-swap quote 1 SOL to USDC
  sol-swap quote 250 USDC to JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN --slippage 100`,
	Args: cobra.MinimumNArgs(1),
	Run:  runQuote,
}

func init() {
	rootCmd.AddCommand(quoteCmd)

	quoteCmd.Flags().IntVar(&slippageBps, "slippage", -1, "Slippage tolerance in basis points (default from config)")
}

func runQuote(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a := mustApp(cmd)
	defer a.close()

	req := mustQuoteRequest(a, strings.Join(args, " "), jsonOutput)

	q, err := fetchQuote(a, req, jsonOutput)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		printQuoteJSON(q)
		return
	}
	displayQuote(q)
}

// mustQuoteRequest parses a swap command and resolves both tokens
func mustQuoteRequest(a *app, command string, jsonOutput bool) quote.Request {
	swapReq, err := parser.ParseSwapCommand(command)
	if err == nil {
		err = parser.ValidateSwapRequest(swapReq)
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Resolving tokens..."
		s.Start()
	}

	ctx := context.Background()
	input, err := a.resolver.Resolve(ctx, swapReq.SourceToken)
	var output types.TokenIdentity
	if err == nil {
		output, err = a.resolver.Resolve(ctx, swapReq.DestToken)
	}
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		printError(err)
		fmt.Println("Known tokens can be listed with: sol-swap tokens list")
		os.Exit(1)
	}

	bps := a.cfg.SlippageBps
	if slippageBps >= 0 {
		bps = slippageBps
	}

	return quote.Request{
		Input:       input,
		Output:      output,
		Amount:      swapReq.Amount,
		SlippageBps: bps,
	}
}

func fetchQuote(a *app, req quote.Request, jsonOutput bool) (*types.Quote, error) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Fetching quote..."
		s.Start()
	}

	engine := a.quoteEngine()
	defer engine.Close()

	q, err := engine.GetQuote(context.Background(), req)
	if !jsonOutput {
		s.Stop()
	}
	return q, err
}

func minimumReceivedUI(q *types.Quote) string {
	return amount.ToUI(amount.MinimumReceived(q.OutAmountRaw, q.SlippageBps), q.Output.Decimals)
}

func isHighPriceImpact(q *types.Quote) bool {
	impact, err := decimal.NewFromString(q.PriceImpactPct)
	if err != nil {
		return false
	}
	return impact.GreaterThan(highPriceImpactPct)
}

func printQuoteJSON(q *types.Quote) {
	output := map[string]interface{}{
		"input_token":      q.Input.Symbol,
		"input_mint":       q.Input.Address,
		"in_amount":        amount.ToUI(q.InAmountRaw, q.Input.Decimals),
		"output_token":     q.Output.Symbol,
		"output_mint":      q.Output.Address,
		"out_amount":       q.OutAmountUI,
		"minimum_received": minimumReceivedUI(q),
		"price_impact_pct": q.PriceImpactPct,
		"slippage_bps":     q.SlippageBps,
		"status":           "quote_generated",
	}
	jsonData, _ := json.MarshalIndent(output, "", "  ")
	fmt.Println(string(jsonData))
}

func displayQuote(q *types.Quote) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                     SWAP QUOTE")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\n  From:              %s %s\n", amount.ToUI(q.InAmountRaw, q.Input.Decimals), color.YellowString(q.Input.Symbol))
	fmt.Printf("  To:                ~%s %s\n", q.OutAmountUI, color.YellowString(q.Output.Symbol))
	fmt.Printf("  Minimum Received:  %s %s\n", minimumReceivedUI(q), q.Output.Symbol)
	fmt.Printf("  Slippage:          %s%%\n", decimal.New(int64(q.SlippageBps), -2).String())

	impact := "N/A"
	if d, err := decimal.NewFromString(q.PriceImpactPct); err == nil {
		impact = d.StringFixed(2) + "%"
	}
	if isHighPriceImpact(q) {
		fmt.Printf("  Price Impact:      %s\n", color.RedString(impact))
	} else {
		fmt.Printf("  Price Impact:      %s\n", impact)
	}
	fmt.Printf("  Output Mint:       %s\n", color.HiBlackString(q.Output.Address))

	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")

	if isHighPriceImpact(q) {
		color.Red("Warning: price impact is above %s%%. You may receive significantly less than expected.\n", highPriceImpactPct)
	}
}
