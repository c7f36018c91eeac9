package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"smc-prop-engine/internal/api"
	"smc-prop-engine/internal/backtest"
	"smc-prop-engine/internal/service"
)

func main() {
	var (
		symbol     = pflag.String("symbol", "BTCUSDT", "trading pair to backtest")
		from       = pflag.String("from", "", "start date, format 2006-01-02 (default: 60 days ago)")
		to         = pflag.String("to", "", "end date, format 2006-01-02 (default: now)")
		strategyID = pflag.String("strategy", "all", "strategy to run: S1, S2, S3 or all")
		riskPct    = pflag.Float64("risk", 0, "risk percent per trade (0 = config default)")
		minRR      = pflag.Float64("minrr", 0, "minimum risk:reward (0 = config default)")
		mcSeed     = pflag.Int64("seed", 42, "monte carlo random seed")
		configPath = pflag.String("config", "config", "config directory")
		entryTF    = pflag.String("tf", "15m", "entry timeframe")
		htfTF      = pflag.String("htf", "1h", "higher timeframe for liquidity targets")
		verbose    = pflag.BoolP("verbose", "v", false, "debug logging")
	)
	pflag.Parse()

	service.InitLogger(*verbose)
	defer service.Logger.Sync()

	if _, err := service.ParseIntervalDuration(*entryTF); err != nil {
		service.Logger.Fatal("invalid entry timeframe", zap.String("tf", *entryTF), zap.Error(err))
	}
	if _, err := service.ParseIntervalDuration(*htfTF); err != nil {
		service.Logger.Fatal("invalid higher timeframe", zap.String("tf", *htfTF), zap.Error(err))
	}

	cfg := service.LoadConfig(*configPath)
	settings := cfg.Settings
	if *riskPct > 0 {
		settings.RiskPct = *riskPct
	}
	if *minRR > 0 {
		settings.MinRR = *minRR
	}
	switch *strategyID {
	case "S1":
		settings.EnableS2, settings.EnableS3 = false, false
	case "S2":
		settings.EnableS1, settings.EnableS3 = false, false
	case "S3":
		settings.EnableS1, settings.EnableS2 = false, false
	case "all":
	default:
		service.Logger.Fatal("unknown strategy", zap.String("strategy", *strategyID))
	}

	start, end, err := parseRange(*from, *to)
	if err != nil {
		service.Logger.Fatal("invalid date range", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		service.Logger.Info("cancelling backtest")
		cancel()
	}()

	rest := api.NewRESTClient(cfg.Exchange.RESTURL, service.Logger)

	service.Logger.Info("fetching candles",
		zap.String("symbol", *symbol),
		zap.Time("from", start),
		zap.Time("to", end),
	)
	candles, err := rest.FetchHistorical(ctx, *symbol, *entryTF, start.UnixMilli(), end.UnixMilli())
	if err != nil {
		service.Logger.Fatal("failed to fetch entry timeframe", zap.Error(err))
	}
	htf, err := rest.FetchHistorical(ctx, *symbol, *htfTF, start.UnixMilli(), end.UnixMilli())
	if err != nil {
		service.Logger.Fatal("failed to fetch higher timeframe", zap.Error(err))
	}
	service.Logger.Info("candles loaded",
		zap.Int("entry", len(candles)),
		zap.Int("htf", len(htf)),
	)

	runner := backtest.NewRunner(settings, service.Logger)
	runner.SetProgress(func(pct int) {
		fmt.Printf("\rbacktest progress: %3d%%", pct)
	})

	result, err := runner.Run(ctx, candles, htf)
	fmt.Println()
	if err != nil {
		service.Logger.Warn("backtest interrupted, reporting partial results",
			zap.Int("trades", len(result.Trades)), zap.Error(err))
	}

	metrics := backtest.CalcMetrics(result.Trades, result.EquityCurve, settings.InitialEquity)
	if metrics == nil {
		fmt.Println("no trades taken in the tested period")
		return
	}
	printReport(*symbol, result, metrics)

	mc, err := backtest.RunMonteCarlo(result.Trades, settings.InitialEquity, settings.MCIterations, *mcSeed)
	if err != nil {
		service.Logger.Fatal("monte carlo failed", zap.Error(err))
	}
	if mc == nil {
		fmt.Println("\ntoo few trades for monte carlo analysis")
		return
	}
	printMonteCarlo(mc)
}

// parseRange 解析回测时间范围，默认最近 60 天
func parseRange(from, to string) (time.Time, time.Time, error) {
	end := time.Now().UTC()
	if to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parse -to: %w", err)
		}
		end = t
	}
	start := end.AddDate(0, 0, -60)
	if from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parse -from: %w", err)
		}
		start = t
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("start %s is not before end %s", start, end)
	}
	return start, end, nil
}

func printReport(symbol string, result *backtest.Result, m *backtest.Metrics) {
	fmt.Println("==================================================")
	fmt.Printf(" Backtest Report: %s\n", symbol)
	fmt.Println("==================================================")
	fmt.Printf(" Trades        : %d (%d wins / %d losses)\n", m.TotalTrades, m.Wins, m.Losses)
	fmt.Printf(" Win rate      : %.1f%%\n", m.WinRatePct)
	fmt.Printf(" Profit factor : %.2f\n", m.ProfitFactor)
	fmt.Printf(" Expectancy    : %.3fR\n", m.Expectancy)
	fmt.Printf(" Total return  : %.2f%%\n", m.TotalReturn)
	fmt.Printf(" Final equity  : %.2f\n", m.FinalEquity)
	fmt.Printf(" Max drawdown  : %.2f%%\n", m.MaxDrawdown)
	fmt.Printf(" Sharpe        : %.2f   Sortino: %.2f\n", m.Sharpe, m.Sortino)
	fmt.Printf(" Avg win/loss  : %.2f / %.2f   Avg RR: %.2f\n", m.AvgWin, m.AvgLoss, m.AvgRR)

	fmt.Println("\n Per strategy:")
	for _, s := range m.ByStrategy {
		fmt.Printf("   %-3s trades=%-4d wr=%.1f%%  avgR=%-6.2f pnl=%-10.2f gain=%.2f%%\n",
			s.Strategy, s.Trades, s.WinRate*100, s.AvgR, s.PnL, s.GainPct)
	}

	if len(result.MonthlyPnL) > 0 {
		months := make([]string, 0, len(result.MonthlyPnL))
		for k := range result.MonthlyPnL {
			months = append(months, k)
		}
		sort.Strings(months)
		fmt.Println("\n Monthly P&L:")
		for _, month := range months {
			s := result.MonthlyPnL[month]
			fmt.Printf("   %s  pnl=%-10.2f wins=%-3d losses=%d\n", month, s.PnL, s.Wins, s.Losses)
		}
	}
}

func printMonteCarlo(mc *backtest.MCResult) {
	fmt.Println("\n--------------------------------------------------")
	fmt.Printf(" Monte Carlo (%d iterations)\n", mc.Iterations)
	fmt.Println("--------------------------------------------------")
	fmt.Printf(" Final equity  : p10=%.2f  median=%.2f  p90=%.2f\n", mc.P10Final, mc.MedianFinal, mc.P90Final)
	fmt.Printf(" Risk of ruin  : %.1f%%\n", mc.RiskOfRuin)
	fmt.Printf(" Max drawdown  : median=%.1f%%  worst=%.1f%%\n", mc.MedianDD, mc.WorstDD)
}
