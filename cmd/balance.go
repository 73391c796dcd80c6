package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"sol-swap/pkg/amount"
	"sol-swap/pkg/types"
)

var balanceCmd = &cobra.Command{
	Use:   "balance [wallet-address]",
	Short: "Show SOL and SPL token balances",
	Long: `Show the SOL balance and SPL token accounts of a wallet.

Without an address the wallet of the configured signing key is used.

Examples:
  sol-swap balance
  sol-swap balance 9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM`,
	Args: cobra.MaximumNArgs(1),
	Run:  runBalance,
}

func init() {
	rootCmd.AddCommand(balanceCmd)
}

type balanceLine struct {
	Symbol  string `json:"symbol"`
	Mint    string `json:"mint"`
	Amount  string `json:"amount"`
	Raw     string `json:"raw"`
	Unknown bool   `json:"unknown,omitempty"`
}

func runBalance(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a := mustApp(cmd)
	defer a.close()

	var owner solana.PublicKey
	if len(args) == 1 {
		pk, err := solana.PublicKeyFromBase58(strings.TrimSpace(args[0]))
		if err != nil {
			printError(fmt.Errorf("invalid wallet address: %w", err))
			os.Exit(1)
		}
		owner = pk
	} else {
		signer, err := a.signer()
		if err != nil {
			printError(err)
			os.Exit(1)
		}
		owner = signer.PublicKey()
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Fetching balances..."
		s.Start()
	}

	ctx := context.Background()
	lamports, err := a.chain.Balance(ctx, owner)
	if err != nil {
		s.Stop()
		printError(err)
		os.Exit(1)
	}
	accounts, err := a.chain.TokenBalances(ctx, owner)
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	lines := []balanceLine{{
		Symbol: types.NativeSOL.Symbol,
		Mint:   types.NativeSOL.Address,
		Amount: amount.ToUI(strconv.FormatUint(lamports, 10), types.NativeSOL.Decimals),
		Raw:    strconv.FormatUint(lamports, 10),
	}}
	dir := a.resolver.Directory()
	for _, acc := range accounts {
		if acc.Amount == 0 {
			continue
		}
		raw := strconv.FormatUint(acc.Amount, 10)
		line := balanceLine{Mint: acc.Mint.String(), Raw: raw}
		if id, ok := dir.Lookup(line.Mint); ok {
			line.Symbol = id.Symbol
			line.Amount = amount.ToUI(raw, id.Decimals)
		} else {
			line.Symbol = "?"
			line.Amount = raw
			line.Unknown = true
		}
		lines = append(lines, line)
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(map[string]interface{}{
			"wallet":   owner.String(),
			"balances": lines,
		}, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	color.Green("                                 BALANCES")
	fmt.Println(strings.Repeat("=", 90))
	fmt.Printf("\n  Wallet: %s\n\n", color.CyanString(owner.String()))

	for _, line := range lines {
		amt := line.Amount
		if line.Unknown {
			amt += color.HiBlackString(" (base units)")
		}
		fmt.Printf("  %-10s  %-30s  %s\n", color.YellowString(line.Symbol), amt, color.HiBlackString(line.Mint))
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	if hasUnknown(lines) {
		fmt.Println("\nUnknown mints can be added with: sol-swap tokens add <mint-address>")
	}
	fmt.Println()
}

func hasUnknown(lines []balanceLine) bool {
	for _, line := range lines {
		if line.Unknown {
			return true
		}
	}
	return false
}
