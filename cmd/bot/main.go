package main

import (
	"context"
	"flag"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"btcbot-go/internal/config"
	"btcbot-go/internal/decision"
	"btcbot-go/internal/engine"
	"btcbot-go/internal/exchange"
	"btcbot-go/internal/execution"
	"btcbot-go/internal/indicator"
	"btcbot-go/internal/market"
	"btcbot-go/internal/metrics"
	"btcbot-go/internal/paper"
	"btcbot-go/internal/scoring"
	"btcbot-go/internal/util"
)

// cycleDelay keeps each run a few seconds past the candle boundary so the
// final kline of the interval is closed before we fetch it.
const cycleDelay = 5 * time.Second

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "internal/config/config.yaml", "path to the YAML config file")
	flag.Parse()

	log := util.NewLogger("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	log = util.NewLogger(cfg.App.LogLevel)

	_ = metrics.Serve(cfg.App.MetricsAddr)
	log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	source := exchange.NewCandleSource(
		cfg.Exchange.Provider,
		cfg.Exchange.Symbol,
		cfg.Exchange.Interval,
		log,
		exchange.WithBaseURL(cfg.Exchange.BaseURL),
		exchange.WithStreamURL(cfg.Exchange.StreamURL),
		exchange.WithWindowLimit(cfg.Exchange.WindowLimit),
	)
	if cfg.Exchange.Provider == exchange.ProviderBinanceStream {
		go func() {
			if err := source.Run(ctx); err != nil {
				log.Error().Err(err).Msg("candle stream stopped")
				cancel()
			}
		}()
	}

	store, err := paper.NewStore(cfg.Paper.DataDir)
	if err != nil {
		log.Fatal().Err(err).Msg("open paper store")
	}
	defer store.Close()

	trader, err := paper.NewTrader(cfg.Paper.StartingCash, store, log)
	if err != nil {
		log.Fatal().Err(err).Msg("init paper trader")
	}
	metrics.CashBalance.Set(trader.State().CashBalance)

	venue := market.NewDiscovery(cfg.Venue.BaseURL, cfg.Venue.Keywords, log)
	exec := execution.NewExecutor(
		execution.Mode(cfg.Trading.Mode),
		trader,
		execution.NewLogSubmitter(log),
		cfg.Trading.MaxDailyTrades,
		log,
	)
	eng := engine.New(
		source,
		venue,
		indicator.NewEngine(cfg.IndicatorConfig()),
		scoring.NewScorer(cfg.Weights, scoring.DefaultRSIThresholds()),
		decision.Policy{MinConfidence: cfg.Trading.MinConfidence},
		trader,
		exec,
		engine.Config{TradeAmountUSD: cfg.Trading.TradeAmountUSD, SettleGrace: cfg.SettleGrace()},
		log,
	)

	interval := cfg.CycleInterval()
	log.Info().
		Str("mode", cfg.Trading.Mode).
		Str("symbol", cfg.Exchange.Symbol).
		Dur("interval", interval).
		Msg("bot started")

	timer := time.NewTimer(untilNextCycle(interval))
	defer timer.Stop()
	day := time.Now().UTC().YearDay()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("shutting down")
			return
		case <-timer.C:
			if d := time.Now().UTC().YearDay(); d != day {
				exec.ResetDailyCount()
				day = d
			}

			if tr, err := eng.CheckSettlement(ctx); err != nil {
				log.Error().Err(err).Msg("settlement check failed")
			} else if tr != nil {
				log.Info().
					Str("outcome", string(tr.Outcome)).
					Float64("pnl", tr.PnLUSD).
					Msg("position closed")
			}

			res, err := eng.RunCycle(ctx)
			if err != nil {
				log.Error().Err(err).Str("status", string(res.Status)).Msg("cycle failed")
			} else {
				log.Info().
					Str("status", string(res.Status)).
					Str("direction", string(res.Direction)).
					Float64("confidence", res.Confidence).
					Str("reason", res.Reason).
					Msg("cycle complete")
			}

			timer.Reset(untilNextCycle(interval))
		}
	}
}

// untilNextCycle returns the wait to just past the next interval boundary.
func untilNextCycle(interval time.Duration) time.Duration {
	now := time.Now()
	next := now.Truncate(interval).Add(interval).Add(cycleDelay)
	return next.Sub(now)
}
