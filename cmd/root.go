package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sol-swap/config"
	"sol-swap/pkg/chain"
	"sol-swap/pkg/client"
	"sol-swap/pkg/logging"
	"sol-swap/pkg/metadata"
	"sol-swap/pkg/quote"
	"sol-swap/pkg/swap"
	"sol-swap/pkg/tokens"
	"sol-swap/pkg/validation"
)

var rootCmd = &cobra.Command{
	Use:   "sol-swap",
	Short: "A CLI for Solana token swaps through the Jupiter aggregator",
	Long: `sol-swap is a command-line tool for swapping Solana tokens. Quotes and swap
transactions come from the Jupiter aggregator; transactions are signed with your
local keypair and submitted to a Solana RPC endpoint.

Any SPL token can be used by mint address. Addresses are checked on-chain and
enriched with metadata before they are accepted.

Examples:
  sol-swap quote 1 SOL to USDC
  sol-swap swap 0.5 SOL to BONK --slippage 100
  sol-swap watch SOL USDC
  sol-swap tokens add JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN
  sol-swap balance
  sol-swap status <signature>`,
	Version: "0.1.0",
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")
}

func printError(err error) {
	fmt.Printf("\nError: %v\n\n", err)
}

func printSuccess(message string) {
	fmt.Printf("\n%s\n\n", message)
}

// app holds the components shared by the commands
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	chain    *chain.Client
	jupiter  *client.JupiterClient
	gate     *validation.Gate
	storage  *tokens.Storage
	resolver *tokens.Resolver
}

// mustApp loads configuration and wires the swap core, exiting on failure
func mustApp(cmd *cobra.Command) *app {
	a, err := newApp(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	return a
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = "debug"
	}
	logger, err := logging.New(level, cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	chainClient := chain.NewClient(cfg.RPCURL, cfg.Commitment)

	var sources []metadata.Source
	if cfg.MoralisAPIKey != "" {
		sources = append(sources, metadata.NewMoralis(cfg.MoralisBaseURL, cfg.MoralisAPIKey, cfg.HTTPTimeout))
	}
	sources = append(sources, metadata.NewSolscan(cfg.SolscanBaseURL, cfg.HTTPTimeout))

	gate, err := validation.NewGate(chainClient, sources,
		validation.WithLogger(logger),
		validation.WithCacheSize(cfg.MetadataCacheSize),
	)
	if err != nil {
		return nil, err
	}

	storage, err := tokens.NewStorage(cfg.TokensFile)
	if err != nil {
		return nil, err
	}
	directory, err := tokens.NewDirectory(storage, logger)
	if err != nil {
		return nil, err
	}
	logger.Debug("custom tokens loaded", zap.String("file", storage.GetFilePath()), zap.Int("count", len(directory.Custom())))

	return &app{
		cfg:      cfg,
		logger:   logger,
		chain:    chainClient,
		jupiter:  client.NewJupiterClient(cfg.JupiterBaseURL, cfg.HTTPTimeout, logger),
		gate:     gate,
		storage:  storage,
		resolver: tokens.NewResolver(directory, gate),
	}, nil
}

func (a *app) quoteEngine() *quote.Engine {
	return quote.NewEngine(a.jupiter,
		quote.WithDebounce(a.cfg.Debounce),
		quote.WithLogger(a.logger),
	)
}

func (a *app) executor() *swap.Executor {
	return swap.NewExecutor(a.jupiter, a.chain, swap.Config{
		MaxRetries:                    a.cfg.MaxRetries,
		SkipPreflight:                 a.cfg.SkipPreflight,
		Commitment:                    chain.ParseCommitment(a.cfg.Commitment),
		PollInterval:                  a.cfg.PollInterval,
		ConfirmTimeout:                a.cfg.ConfirmTimeout,
		ComputeUnitPriceMicroLamports: a.cfg.ComputeUnitPrice,
		WrapAndUnwrapSol:              true,
	}, a.logger)
}

func (a *app) signer() (*swap.KeypairSigner, error) {
	return swap.LoadKeypairSigner(a.cfg.PrivateKey, a.cfg.KeypairPath)
}

func (a *app) close() {
	_ = a.logger.Sync()
}
