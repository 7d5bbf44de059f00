// Command status prints a snapshot of the paper-trading account.
package main

import (
	"flag"
	"fmt"
	"os"

	"btcbot-go/internal/config"
	"btcbot-go/internal/paper"
)

func main() {
	configPath := flag.String("config", "internal/config/config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	store, err := paper.NewStore(cfg.Paper.DataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open paper store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	state, ok, err := store.LoadState()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load portfolio: %v\n", err)
		os.Exit(1)
	}
	if !ok {
		fmt.Println("no portfolio recorded yet")
		return
	}

	trades, err := store.Trades()
	if err != nil {
		fmt.Fprintf(os.Stderr, "read trade ledger: %v\n", err)
		os.Exit(1)
	}

	pnlPct := 0.0
	if state.InitialBalance > 0 {
		pnlPct = state.RealizedPnL / state.InitialBalance * 100
	}

	fmt.Println("=== paper portfolio ===")
	fmt.Printf("initial balance: $%.2f\n", state.InitialBalance)
	fmt.Printf("cash balance:    $%.2f\n", state.CashBalance)
	fmt.Printf("realized pnl:    $%+.2f (%+.2f%%)\n", state.RealizedPnL, pnlPct)
	fmt.Printf("trades:          %d (%d wins, %.0f%% win rate)\n",
		state.TradeCount, state.WinCount, state.WinRate()*100)

	if pos := state.OpenPosition; pos != nil {
		fmt.Println()
		fmt.Println("open position:")
		fmt.Printf("  %s $%.2f @ %.2f  %s\n", pos.Side, pos.SizeUSD, pos.EntryPrice, pos.MarketQuestion)
		fmt.Printf("  opened %s  market %s\n", pos.OpenedAt.Format("2006-01-02 15:04 MST"), pos.MarketID)
	}

	if len(trades) > 0 {
		fmt.Println()
		fmt.Println("recent trades:")
		start := len(trades) - 5
		if start < 0 {
			start = 0
		}
		for _, tr := range trades[start:] {
			fmt.Printf("  %s  %s %s $%.2f @ %.2f  pnl $%+.2f\n",
				tr.ClosedAt.Format("01-02 15:04"), tr.Outcome, tr.Side, tr.SizeUSD, tr.EntryPrice, tr.PnLUSD)
		}
	}
}
