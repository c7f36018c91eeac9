package risk

import (
	"math"
	"sync"

	"github.com/google/uuid"

	"smc-prop-engine/internal/model"
	"smc-prop-engine/pkg/stats"
)

// CalcPositionSize 按风险百分比计算仓位大小。
// 仓位 = 权益 × 风险% / 止损距离，止损距离为 0 时返回 0。
func CalcPositionSize(equity, riskPct, entry, sl float64) float64 {
	riskAmount := equity * (riskPct / 100)
	priceDiff := math.Abs(entry - sl)
	if priceDiff == 0 {
		return 0
	}
	return stats.Round(riskAmount/priceDiff, 4)
}

// CalcRR 风险回报比 = 盈利距离 / 止损距离，止损距离为 0 时返回 0
func CalcRR(entry, sl, tp float64) float64 {
	risk := math.Abs(entry - sl)
	reward := math.Abs(tp - entry)
	if risk == 0 {
		return 0
	}
	return stats.Round(reward/risk, 2)
}

// CalcTP 根据目标 R 倍数反推止盈价
func CalcTP(entry, sl, rrTarget float64, dir model.Direction) float64 {
	riskDist := math.Abs(entry - sl)
	if dir == model.DirLong {
		return stats.Round(entry+riskDist*rrTarget, 6)
	}
	return stats.Round(entry-riskDist*rrTarget, 6)
}

// CalcPartialTP 部分止盈价位
func CalcPartialTP(entry, sl, partialRR float64, dir model.Direction) float64 {
	return CalcTP(entry, sl, partialRR, dir)
}

// Limits 风控硬限制。闸门彼此独立，任一触发即拒绝新开仓，
// 但不影响已有持仓的管理。
type Limits struct {
	MaxDailyRiskPct    float64 // 单日亏损占当日起始权益的百分比上限
	MaxDrawdownStopPct float64 // 峰值回撤百分比熔断线
	MaxConcurrent      int     // 并发持仓上限
	MaxTradesPerDay    int     // 单日开仓次数上限，0 为不限
}

type position struct {
	entry float64
	sl    float64
	tp    float64
	qty   float64
	dir   model.Direction
}

// Tracker 账户级风控追踪器。每个回测/直播会话创建一次，
// 只通过 OpenPosition/ClosePosition/ResetDay 修改内部状态。
type Tracker struct {
	mu sync.Mutex

	initialEquity float64
	equity        float64
	peakEquity    float64
	dailyLoss     float64
	dailyStart    float64
	dailyTrades   int
	limits        Limits

	open map[string]position
}

// NewTracker 创建风控追踪器
func NewTracker(initialEquity float64, limits Limits) *Tracker {
	if limits.MaxDailyRiskPct <= 0 {
		limits.MaxDailyRiskPct = 5
	}
	if limits.MaxDrawdownStopPct <= 0 {
		limits.MaxDrawdownStopPct = 10
	}
	if limits.MaxConcurrent <= 0 {
		limits.MaxConcurrent = 3
	}
	return &Tracker{
		initialEquity: initialEquity,
		equity:        initialEquity,
		peakEquity:    initialEquity,
		dailyStart:    initialEquity,
		limits:        limits,
		open:          make(map[string]position),
	}
}

// Equity 当前权益
func (t *Tracker) Equity() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.equity
}

// ActiveCount 当前持仓数
func (t *Tracker) ActiveCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.open)
}

// Drawdown 当前峰值回撤百分比
func (t *Tracker) Drawdown() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.drawdownLocked()
}

func (t *Tracker) drawdownLocked() float64 {
	if t.peakEquity <= 0 {
		return 0
	}
	return stats.Round((t.peakEquity-t.equity)/t.peakEquity*100, 2)
}

// CanTrade 检查各独立闸门：单日亏损、并发持仓、峰值回撤、单日开仓数。
// 返回 false 时附带拒绝原因。
func (t *Tracker) CanTrade() (bool, string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.dailyStart > 0 {
		dailyLossPct := t.dailyLoss / t.dailyStart * 100
		if dailyLossPct >= t.limits.MaxDailyRiskPct {
			return false, "daily risk cap hit"
		}
	}
	if len(t.open) >= t.limits.MaxConcurrent {
		return false, "max concurrent trades"
	}
	if t.drawdownLocked() >= t.limits.MaxDrawdownStopPct {
		return false, "max drawdown stop"
	}
	if t.limits.MaxTradesPerDay > 0 && t.dailyTrades >= t.limits.MaxTradesPerDay {
		return false, "daily trade cap hit"
	}
	return true, ""
}

// OpenPosition 登记新持仓并返回持仓 ID。不做闸门检查，
// 调用方应先通过 CanTrade。
func (t *Tracker) OpenPosition(entry, sl, tp, qty float64, dir model.Direction) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := uuid.NewString()
	t.open[id] = position{entry: entry, sl: sl, tp: tp, qty: qty, dir: dir}
	t.dailyTrades++
	return id
}

// ClosePosition 平仓：按平仓价结算盈亏，更新权益/峰值/当日亏损，
// 返回本笔 R 倍数与盈亏金额。未知 ID 返回 (0, 0)。
func (t *Tracker) ClosePosition(id string, closePrice float64) (r, pnl float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.open[id]
	if !ok {
		return 0, 0
	}
	delete(t.open, id)

	if p.dir == model.DirLong {
		pnl = (closePrice - p.entry) * p.qty
	} else {
		pnl = (p.entry - closePrice) * p.qty
	}
	pnl = stats.Round(pnl, 2)

	riskAmount := math.Abs(p.entry-p.sl) * p.qty
	if riskAmount > 0 {
		r = stats.Round(pnl/riskAmount, 2)
	}

	t.equity = stats.Round(t.equity+pnl, 2)
	if pnl < 0 {
		t.dailyLoss += math.Abs(pnl)
	}
	if t.equity > t.peakEquity {
		t.peakEquity = t.equity
	}
	return r, pnl
}

// ResetDay 日切：清零当日亏损与开仓计数，当日起始权益取当前权益
func (t *Tracker) ResetDay() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dailyLoss = 0
	t.dailyTrades = 0
	t.dailyStart = t.equity
}
