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
	"github.com/spf13/cobra"

	"sol-swap/pkg/types"
)

var (
	filterSymbol string
	importSymbol string
	renameSymbol string
	renameName   string
)

var tokensCmd = &cobra.Command{
	Use:     "tokens",
	Aliases: []string{"list-tokens", "ls"},
	Short:   "Manage the token directory",
	Long: `List the built-in and custom tokens, and add or remove custom tokens.

Custom tokens are validated on-chain before they are added and are stored in
~/.sol-swap-tokens.json (or SOL_SWAP_TOKENS_FILE).

Examples:
  sol-swap tokens list
  sol-swap tokens list --symbol bo
  sol-swap tokens add JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN
  sol-swap tokens add EKpQGSJtjMFqKZ9KQanSqYXRcF8fBopzLHYxdM65zcjm --symbol WIF
  sol-swap tokens update EKpQGSJtjMFqKZ9KQanSqYXRcF8fBopzLHYxdM65zcjm --symbol DOGWIF
  sol-swap tokens validate DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263
  sol-swap tokens remove JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN`,
	Run: runListTokens,
}

var tokensListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known tokens",
	Run:   runListTokens,
}

var tokensAddCmd = &cobra.Command{
	Use:   "add <mint-address>",
	Short: "Validate a mint address and add it as a custom token",
	Args:  cobra.ExactArgs(1),
	Run:   runAddToken,
}

var tokensRemoveCmd = &cobra.Command{
	Use:   "remove <mint-address>",
	Short: "Remove a custom token",
	Args:  cobra.ExactArgs(1),
	Run:   runRemoveToken,
}

var tokensUpdateCmd = &cobra.Command{
	Use:   "update <mint-address>",
	Short: "Change the symbol or name of a custom token",
	Args:  cobra.ExactArgs(1),
	Run:   runUpdateToken,
}

var tokensValidateCmd = &cobra.Command{
	Use:   "validate <mint-address>",
	Short: "Check a mint address on-chain without adding it",
	Args:  cobra.ExactArgs(1),
	Run:   runValidateToken,
}

func init() {
	rootCmd.AddCommand(tokensCmd)
	tokensCmd.AddCommand(tokensListCmd, tokensAddCmd, tokensRemoveCmd, tokensUpdateCmd, tokensValidateCmd)

	tokensCmd.Flags().StringVar(&filterSymbol, "symbol", "", "Filter by token symbol")
	tokensListCmd.Flags().StringVar(&filterSymbol, "symbol", "", "Filter by token symbol")
	tokensAddCmd.Flags().StringVar(&importSymbol, "symbol", "", "Override the symbol reported by metadata")
	tokensUpdateCmd.Flags().StringVar(&renameSymbol, "symbol", "", "New symbol")
	tokensUpdateCmd.Flags().StringVar(&renameName, "name", "", "New name")
}

func runListTokens(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a := mustApp(cmd)
	defer a.close()

	dir := a.resolver.Directory()
	all := dir.ListAll()

	filtered := all
	if filterSymbol != "" {
		var temp []types.TokenIdentity
		for _, token := range filtered {
			if strings.Contains(strings.ToUpper(token.Symbol), strings.ToUpper(filterSymbol)) {
				temp = append(temp, token)
			}
		}
		filtered = temp
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(filtered, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	if len(filtered) == 0 {
		fmt.Println("\nNo tokens found matching the criteria.")
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	color.Green("                                KNOWN TOKENS")
	fmt.Println(strings.Repeat("=", 90))

	var builtin, custom []types.TokenIdentity
	for _, token := range filtered {
		if dir.IsBuiltin(token.Address) {
			builtin = append(builtin, token)
		} else {
			custom = append(custom, token)
		}
	}
	displayTokenGroup("BUILT-IN", builtin)
	displayTokenGroup("CUSTOM", custom)

	fmt.Println("\n" + strings.Repeat("=", 90))
	fmt.Printf("\nTotal: %d tokens (%d custom)\n", len(filtered), len(custom))
	fmt.Printf("Custom tokens file: %s\n\n", color.HiBlackString(a.storage.GetFilePath()))
}

func displayTokenGroup(title string, tokens []types.TokenIdentity) {
	if len(tokens) == 0 {
		return
	}
	color.Cyan("\n%s", title)
	fmt.Println(strings.Repeat("-", 90))
	for _, token := range tokens {
		fmt.Printf("  %-10s  %2d decimals  %-24s %s\n",
			color.YellowString(token.Symbol),
			token.Decimals,
			truncate(token.Name, 24),
			color.HiBlackString(token.Address))
	}
}

func runAddToken(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a := mustApp(cmd)
	defer a.close()

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Validating token..."
		s.Start()
	}

	id, added, err := a.resolver.Import(context.Background(), args[0], importSymbol)
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(map[string]interface{}{"token": id, "added": added}, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	displayToken(id)
	if added {
		printSuccess(color.GreenString("Token %s added.", id.Symbol))
	} else {
		printSuccess(color.YellowString("Token %s is already known.", id.Symbol))
	}
}

func runRemoveToken(cmd *cobra.Command, args []string) {
	a := mustApp(cmd)
	defer a.close()

	if err := a.resolver.Directory().RemoveCustom(args[0]); err != nil {
		printError(err)
		os.Exit(1)
	}
	printSuccess(color.GreenString("Token %s removed.", args[0]))
}

func runUpdateToken(cmd *cobra.Command, args []string) {
	if renameSymbol == "" && renameName == "" {
		printError(fmt.Errorf("nothing to update. Use --symbol and/or --name"))
		os.Exit(1)
	}

	a := mustApp(cmd)
	defer a.close()

	err := a.resolver.Directory().UpdateCustom(args[0], func(rec *types.CustomTokenRecord) {
		if renameSymbol != "" {
			rec.Symbol = renameSymbol
		}
		if renameName != "" {
			rec.Name = renameName
		}
	})
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	printSuccess(color.GreenString("Token %s updated.", args[0]))
}

func runValidateToken(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a := mustApp(cmd)
	defer a.close()

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Validating token..."
		s.Start()
	}

	id, err := a.gate.Validate(context.Background(), args[0])
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(id, "", "  ")
		fmt.Println(string(jsonData))
	} else {
		displayToken(id)
	}
	if !id.IsValid {
		os.Exit(1)
	}
}

func displayToken(id types.TokenIdentity) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	if id.IsValid {
		color.Green("                     VALID TOKEN")
	} else {
		color.Red("                    INVALID TOKEN")
	}
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\n  Symbol:    %s\n", color.YellowString(id.Symbol))
	fmt.Printf("  Name:      %s\n", id.Name)
	fmt.Printf("  Mint:      %s\n", color.CyanString(id.Address))
	if id.IsValid {
		fmt.Printf("  Decimals:  %d\n", id.Decimals)
	}
	if id.LogoURI != "" {
		fmt.Printf("  Logo:      %s\n", color.HiBlackString(id.LogoURI))
	}

	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n-3] + "..."
	}
	return s
}
