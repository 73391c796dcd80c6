package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sol-swap/pkg/quote"
)

var metricsAddr string

var watchCmd = &cobra.Command{
	Use:   "watch <source-token> <dest-token>",
	Short: "Live quoting: type amounts and see quotes as you go",
	Long: `Read amounts from standard input, one per line, and keep a live quote for the
latest amount. Requests are debounced and answers for superseded amounts are
discarded.

An empty line refreshes the current quote. Ctrl+D exits.

Examples:
  sol-swap watch SOL USDC
  sol-swap watch USDC BONK --slippage 100 --metrics-addr :9102`,
	Args: cobra.ExactArgs(2),
	Run:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().IntVar(&slippageBps, "slippage", -1, "Slippage tolerance in basis points (default from config)")
	watchCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9102)")
}

func runWatch(cmd *cobra.Command, args []string) {
	a := mustApp(cmd)
	defer a.close()

	// amount is a placeholder; only the tokens and slippage are kept
	base := mustQuoteRequest(a, fmt.Sprintf("1 %s to %s", args[0], args[1]), false)

	if metricsAddr != "" {
		addr, stop, err := serveMetrics(metricsAddr, a.logger)
		if err != nil {
			printError(err)
			os.Exit(1)
		}
		defer stop()
		fmt.Printf("Serving metrics on %s/metrics\n", addr)
	}

	engine := a.quoteEngine()
	defer engine.Close()

	engine.OnChange(displaySnapshot)

	fmt.Printf("\nLive quotes for %s -> %s (slippage %d bps). Enter an amount of %s:\n\n",
		color.YellowString(base.Input.Symbol), color.YellowString(base.Output.Symbol),
		base.SlippageBps, base.Input.Symbol)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			engine.Refresh()
			continue
		}
		req := base
		req.Amount = line
		engine.Update(req)
	}
}

func displaySnapshot(s quote.Snapshot) {
	switch {
	case s.Loading:
		fmt.Printf("  %s %s -> %s\n", color.HiBlackString("..."), s.Request.Amount, s.Request.Output.Symbol)
	case s.Err != nil:
		color.Red("  %s: %v", s.Request.Amount, s.Err)
	case s.Quote != nil:
		q := s.Quote
		line := fmt.Sprintf("  %s %s -> ~%s %s (min %s)",
			s.Request.Amount, q.Input.Symbol, color.GreenString(q.OutAmountUI), q.Output.Symbol, minimumReceivedUI(q))
		if isHighPriceImpact(q) {
			line += color.RedString(" price impact %s%%", q.PriceImpactPct)
		}
		fmt.Println(line)
	}
}

// serveMetrics exposes the Prometheus registry on addr until stop is called
func serveMetrics(addr string, logger *zap.Logger) (string, func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	stop := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("metrics server shutdown failed", zap.Error(err))
		}
	}
	return ln.Addr().String(), stop, nil
}
