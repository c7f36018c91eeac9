package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"smc-prop-engine/internal/alert"
	"smc-prop-engine/internal/api"
	"smc-prop-engine/internal/model"
	"smc-prop-engine/internal/risk"
	"smc-prop-engine/internal/service"
	"smc-prop-engine/internal/session"
	"smc-prop-engine/internal/strategy"
	"smc-prop-engine/pkg/ta"
)

func main() {
	service.InitLogger(false)
	defer service.Logger.Sync()

	cfg := service.LoadConfig("config")
	settings := cfg.Settings

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		service.Logger.Info("shutdown requested")
		cancel()
	}()

	store := model.NewCandleStore()
	rest := api.NewRESTClient(cfg.Exchange.RESTURL, service.Logger)

	// 校验配置的交易对确实可交易；交易所查询失败只告警不阻塞启动
	symbolCache := api.NewSymbolCache(rest, time.Hour)
	if tradable, err := symbolCache.Get(ctx); err != nil {
		service.Logger.Warn("failed to fetch exchange symbols", zap.Error(err))
	} else {
		known := make(map[string]struct{}, len(tradable))
		for _, s := range tradable {
			known[s] = struct{}{}
		}
		for _, s := range cfg.Scan.Symbols {
			if _, ok := known[s]; !ok {
				service.Logger.Warn("symbol not tradable on exchange", zap.String("symbol", s))
			}
		}
	}

	// 历史数据预热，失败直接退出而不是带着空序列开扫
	for _, symbol := range cfg.Scan.Symbols {
		entry, err := rest.FetchKlines(ctx, symbol, cfg.Scan.EntryTF, 300, 0, 0)
		if err != nil {
			service.Logger.Fatal("failed to warm up entry timeframe", zap.String("symbol", symbol), zap.Error(err))
		}
		htf, err := rest.FetchKlines(ctx, symbol, cfg.Scan.HTFTF, 200, 0, 0)
		if err != nil {
			service.Logger.Fatal("failed to warm up higher timeframe", zap.String("symbol", symbol), zap.Error(err))
		}
		store.Set(symbol, cfg.Scan.EntryTF, entry)
		store.Set(symbol, cfg.Scan.HTFTF, htf)

		price, err := rest.FetchCurrentPrice(ctx, symbol)
		if err != nil {
			service.Logger.Warn("failed to fetch current price", zap.String("symbol", symbol), zap.Error(err))
		}
		service.Logger.Info("warmed up",
			zap.String("symbol", symbol),
			zap.Int("entry_candles", len(entry)),
			zap.Int("htf_candles", len(htf)),
			zap.Float64("price", price),
		)
	}

	connector := api.NewConnector(cfg.Exchange.WSURL, cfg.Scan.Symbols,
		[]string{cfg.Scan.EntryTF, cfg.Scan.HTFTF}, service.Logger)
	go connector.Start(ctx)

	scanner := strategy.NewScanner(settings, service.Logger)
	tracker := risk.NewTracker(settings.InitialEquity, risk.Limits{
		MaxDailyRiskPct:    settings.MaxDailyRisk,
		MaxDrawdownStopPct: settings.MaxDrawdownStop,
		MaxConcurrent:      settings.MaxConcurrentTrades,
		MaxTradesPerDay:    settings.MaxTradesPerDay,
	})
	alerts := alert.NewManager(
		time.Duration(cfg.Scan.CooldownMin)*time.Minute,
		time.Duration(cfg.Scan.DedupWindowS)*time.Second,
		func(sig *strategy.Signal, msg string) {
			fmt.Println(msg)
			fmt.Printf("partial tp (%.1fR): %.6f\n", settings.PartialRR,
				risk.CalcPartialTP(sig.Entry, sig.SL, settings.PartialRR, sig.Direction))
			fmt.Println(sig.Reasoning)
		},
		service.Logger,
	)

	// 每个 symbol 独立的已扫池集合，跨扫描轮次去重
	sweptSets := make(map[string]ta.SweptSet)

	scanSymbol := func(symbol string) {
		now := time.Now()
		if !session.IsValid(now, settings.SessionFilter) {
			return
		}
		if ok, reason := tracker.CanTrade(); !ok {
			service.Logger.Debug("risk gate closed", zap.String("reason", reason))
			return
		}
		entryCandles := store.Get(symbol, cfg.Scan.EntryTF)
		htf := store.Get(symbol, cfg.Scan.HTFTF)
		if len(entryCandles) == 0 {
			return
		}
		last := entryCandles[len(entryCandles)-1]

		seen := sweptSets[symbol]
		if seen == nil {
			seen = make(ta.SweptSet)
			sweptSets[symbol] = seen
		}
		pools := ta.MapLiquidityPools(entryCandles, settings.LiquidityTolerance)
		for _, sw := range ta.RecentSweeps(entryCandles, pools, 10, seen) {
			service.Logger.Info("liquidity sweep",
				zap.String("symbol", symbol),
				zap.String("pool", string(sw.Pool.Type)),
				zap.Float64("level", sw.Pool.Price),
				zap.String("bias", string(sw.Direction)),
			)
		}

		// 市场环境快照：多周期共振偏向、premium/discount 分区、OTE 价位、
		// 未回补缺口、连续抬高低点段数、高周期卖方流动性支撑
		entryBias := ta.CalcBias(entryCandles)
		htfBias := ta.CalcBias(htf)
		box := ta.GetDealingRange(entryCandles, 150)
		_, swingLows := ta.LastNSwings(entryCandles, 10, 3, 3)
		fields := []zap.Field{
			zap.String("symbol", symbol),
			zap.String("bias", string(ta.AlignedBias(entryBias, htfBias))),
			zap.String("zone", string(ta.PremiumDiscount(last.Close, box))),
			zap.Float64("ote", ta.FibLevel(box, 0.705)),
			zap.Int("open_fvgs", len(ta.AllFVGs(entryCandles))),
			zap.Int("hl_runs", len(ta.DetectHigherLows(swingLows, 3, 2))),
			zap.Float64("htf_ssl", ta.HTFSellSideLiquidity(htf, 100)),
		}
		if session.IsLondonOrNY(now) {
			// 伦敦/纽约时段里亚盘高低点是常见的扫荡目标
			if ar := session.AsianRange(entryCandles, now); ar != nil {
				fields = append(fields, zap.Float64("asian_high", ar.High), zap.Float64("asian_low", ar.Low))
			}
		}
		service.Logger.Debug("market context", fields...)

		sig := scanner.Scan(symbol, entryCandles, htf)
		if sig != nil {
			if !ta.IsEntryValid(last, sig.SL, sig.Direction) {
				service.Logger.Debug("signal dropped, stop level already violated",
					zap.String("symbol", symbol),
					zap.String("strategy", sig.Strategy),
				)
				return
			}
			service.Logger.Info("signal found",
				zap.String("symbol", symbol),
				zap.String("strategy", sig.Strategy),
				zap.String("htf_bias", string(htfBias)),
				zap.Bool("at_entry", ta.HasRetracedToEntry(last, sig.Entry, sig.Direction, 0.002)),
			)
			alerts.Fire(sig)
		}
	}

	rescan := time.NewTicker(time.Duration(cfg.Scan.IntervalSec) * time.Second)
	defer rescan.Stop()
	dayReset := time.NewTicker(time.Minute)
	defer dayReset.Stop()
	currentDay := time.Now().UTC().Day()

	service.Logger.Info("scanner running",
		zap.Strings("symbols", cfg.Scan.Symbols),
		zap.String("entry_tf", cfg.Scan.EntryTF),
		zap.String("htf_tf", cfg.Scan.HTFTF),
	)

	for {
		select {
		case <-ctx.Done():
			service.Logger.Info("scanner stopped")
			return

		case event, ok := <-connector.Events():
			if !ok {
				service.Logger.Info("event stream closed")
				return
			}
			store.Update(event.Symbol, event.TF, event.Candle)
			// 只在入场周期收盘时立即触发扫描
			if event.Closed && event.TF == cfg.Scan.EntryTF {
				scanSymbol(event.Symbol)
			}

		case <-rescan.C:
			for _, symbol := range cfg.Scan.Symbols {
				scanSymbol(symbol)
			}

		case <-dayReset.C:
			if d := time.Now().UTC().Day(); d != currentDay {
				currentDay = d
				tracker.ResetDay()
				service.Logger.Info("daily risk counters reset")
			}
		}
	}
}
