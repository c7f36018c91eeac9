package backtest

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"smc-prop-engine/internal/model"
	"smc-prop-engine/internal/risk"
	"smc-prop-engine/internal/service"
	"smc-prop-engine/internal/strategy"
	"smc-prop-engine/pkg/stats"
)

const (
	// Warmup 扫描开始前需要积累的 K 线数
	Warmup = 120
	// MaxHoldBars 最长持仓 K 线数，超过即按现价强平
	MaxHoldBars = 100
	// RuinFloorPct 权益跌破初始的这个比例后停止开新仓
	RuinFloorPct = 0.5
	// checkpointEvery 每多少根 K 线检查一次取消与进度
	checkpointEvery = 256
)

// ScanFunc 每根 K 线调用一次的信号扫描函数。candles 为截至当前 K 线的
// 入场周期序列，htf 为按进度比例截断的高周期序列。可注入替身用于测试。
type ScanFunc func(candles, htf []model.Candle) *strategy.Signal

// MonthlyStat 按月聚合的盈亏
type MonthlyStat struct {
	PnL    float64
	Wins   int
	Losses int
}

// Result 一次回测的全部产出。取消时包含取消前已平仓的部分结果。
type Result struct {
	Trades      []model.Trade
	EquityCurve model.EquityCurve
	MonthlyPnL  map[string]MonthlyStat
	FinalEquity float64
}

// Runner 回测执行器。严格单线程顺序回放，单仓位：
// SCANNING 与 IN_POSITION 两态交替，吃完所有 K 线即 DONE。
type Runner struct {
	settings service.Settings
	scan     ScanFunc
	logger   *zap.Logger
	progress func(pct int)
}

// NewRunner 创建回测执行器，默认使用三策略优先级扫描
func NewRunner(settings service.Settings, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	scanner := strategy.NewScanner(settings, logger)
	return &Runner{
		settings: settings,
		logger:   logger,
		scan: func(candles, htf []model.Candle) *strategy.Signal {
			return scanner.Scan("", candles, htf)
		},
	}
}

// SetScanFunc 替换扫描函数 (测试注入固定信号用)
func (r *Runner) SetScanFunc(fn ScanFunc) { r.scan = fn }

// SetProgress 设置进度回调，按百分比周期性调用
func (r *Runner) SetProgress(fn func(pct int)) { r.progress = fn }

// openPosition 持仓中的交易
type openPosition struct {
	sig         *strategy.Signal
	qty         float64
	entryTime   int64
	entryEquity float64
	barsHeld    int
}

// Run 在给定序列上执行完整回测。candles 为入场周期，htf 为高周期 (可为空)。
// 每 256 根 K 线检查一次 ctx：已取消则返回取消前的部分结果和 ctx.Err()。
func (r *Runner) Run(ctx context.Context, candles, htf []model.Candle) (*Result, error) {
	initial := r.settings.InitialEquity
	equity := initial
	res := &Result{
		EquityCurve: model.EquityCurve{equity},
		MonthlyPnL:  make(map[string]MonthlyStat),
		FinalEquity: equity,
	}

	total := len(candles)
	if total <= Warmup {
		return res, nil
	}

	var pos *openPosition

	for i := Warmup; i < total; i++ {
		if i%checkpointEvery == 0 {
			if err := ctx.Err(); err != nil {
				r.logger.Warn("backtest cancelled", zap.Int("bar", i), zap.Int("trades", len(res.Trades)))
				res.FinalEquity = equity
				return res, err
			}
			if r.progress != nil {
				r.progress(i * 100 / total)
			}
		}

		c := candles[i]

		if pos != nil {
			pos.barsHeld++
			exitPrice, outcome, closed := checkExit(c, pos)
			if closed {
				equity = r.closeTrade(res, pos, exitPrice, outcome, c.Time, equity)
				pos = nil
			}
			continue
		}

		// 权益跌破熔断线后不再开新仓，只把剩余 K 线走完
		if equity < initial*RuinFloorPct {
			continue
		}

		slice := candles[:i+1]
		sig := r.scan(slice, htfSlice(htf, i, total))
		if sig == nil {
			continue
		}
		if !validGeometry(sig) {
			continue
		}

		qty := risk.CalcPositionSize(equity, r.settings.RiskPct, sig.Entry, sig.SL)
		if qty <= 0 {
			continue
		}
		// 现货约束：仓位成本不能超过权益，超了就把数量压到满仓
		if qty*sig.Entry > equity {
			qty = equity / sig.Entry
		}

		pos = &openPosition{sig: sig, qty: qty, entryTime: c.Time, entryEquity: equity}
	}

	// 数据吃完仍有持仓：按最后一根收盘强平
	if pos != nil {
		last := candles[total-1]
		outcome := model.OutcomeLoss
		if unrealized(last.Close, pos) > 0 {
			outcome = model.OutcomeWin
		}
		equity = r.closeTrade(res, pos, last.Close, outcome, last.Time, equity)
	}

	if r.progress != nil {
		r.progress(100)
	}
	res.FinalEquity = equity
	return res, nil
}

// htfSlice 按入场周期进度比例截断高周期序列，至少保留 30 根
func htfSlice(htf []model.Candle, i, total int) []model.Candle {
	if len(htf) == 0 {
		return nil
	}
	n := i * len(htf) / total
	if n < 30 {
		n = 30
	}
	if n > len(htf) {
		n = len(htf)
	}
	return htf[:n]
}

// validGeometry 信号几何校验：多头 sl < entry < tp，空头镜像
func validGeometry(sig *strategy.Signal) bool {
	if sig.Direction == model.DirLong {
		return sig.SL < sig.Entry && sig.Entry < sig.TP
	}
	return sig.TP < sig.Entry && sig.Entry < sig.SL
}

// checkExit 固定优先级的离场检查：先 SL，再 TP，最后持仓超时
func checkExit(c model.Candle, pos *openPosition) (exitPrice float64, outcome model.Outcome, closed bool) {
	sig := pos.sig
	if sig.Direction == model.DirLong {
		if c.Low <= sig.SL {
			return sig.SL, model.OutcomeLoss, true
		}
		if c.High >= sig.TP {
			return sig.TP, model.OutcomeWin, true
		}
	} else {
		if c.High >= sig.SL {
			return sig.SL, model.OutcomeLoss, true
		}
		if c.Low <= sig.TP {
			return sig.TP, model.OutcomeWin, true
		}
	}
	if pos.barsHeld >= MaxHoldBars {
		outcome = model.OutcomeLoss
		if unrealized(c.Close, pos) > 0 {
			outcome = model.OutcomeWin
		}
		return c.Close, outcome, true
	}
	return 0, "", false
}

// unrealized 按给定价格计算浮动盈亏
func unrealized(price float64, pos *openPosition) float64 {
	if pos.sig.Direction == model.DirLong {
		return (price - pos.sig.Entry) * pos.qty
	}
	return (pos.sig.Entry - price) * pos.qty
}

// closeTrade 结算一笔交易：更新权益、追加账本和权益曲线、累计月度统计
func (r *Runner) closeTrade(res *Result, pos *openPosition, exitPrice float64, outcome model.Outcome, exitTime int64, equity float64) float64 {
	sig := pos.sig
	pnl := stats.Round(unrealized(exitPrice, pos), 2)

	riskAmount := absDiff(sig.Entry, sig.SL) * pos.qty
	var rMult float64
	if riskAmount > 0 {
		rMult = stats.Round(pnl/riskAmount, 2)
	}

	equity = stats.Round(equity+pnl, 2)

	gainPct := stats.Round((exitPrice-sig.Entry)/sig.Entry*100, 2)
	if sig.Direction == model.DirShort {
		gainPct = -gainPct
	}

	trade := model.Trade{
		ID:          uuid.NewString(),
		EntryTime:   pos.entryTime,
		ExitTime:    exitTime,
		Strategy:    sig.Strategy,
		Direction:   sig.Direction,
		Entry:       sig.Entry,
		SL:          sig.SL,
		TP:          sig.TP,
		ExitPrice:   exitPrice,
		Qty:         pos.qty,
		Outcome:     outcome,
		R:           rMult,
		PnL:         pnl,
		PnLPct:      stats.Round(stats.Pct(pnl, pos.entryEquity), 2),
		GainPct:     gainPct,
		EquityAfter: equity,
		BarsHeld:    pos.barsHeld,
	}
	res.Trades = append(res.Trades, trade)
	res.EquityCurve = append(res.EquityCurve, equity)

	key := time.UnixMilli(pos.entryTime).UTC().Format("2006-01")
	m := res.MonthlyPnL[key]
	m.PnL += pnl
	if outcome == model.OutcomeWin {
		m.Wins++
	} else {
		m.Losses++
	}
	res.MonthlyPnL[key] = m

	return equity
}

func absDiff(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}
