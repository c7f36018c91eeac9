package backtest

import (
	"math"

	"smc-prop-engine/internal/model"
	"smc-prop-engine/pkg/stats"
)

// StrategyStats 单策略的回测表现
type StrategyStats struct {
	Strategy string
	Trades   int
	WinRate  float64
	AvgR     float64
	PnL      float64
	GainPct  float64 // 策略盈亏相对初始权益的百分比
}

// Metrics 回测绩效汇总。
// Sharpe/Sortino 以逐笔平仓的权益收益率为基础，√252 年化。
type Metrics struct {
	TotalTrades   int
	Wins          int
	Losses        int
	WinRate       float64
	WinRatePct    float64
	ProfitFactor  float64
	Expectancy    float64 // R 倍数口径：winRate×avgWinR - (1-winRate)×avgLossR
	TotalReturn   float64
	FinalEquity   float64
	MaxDrawdown   float64
	Sharpe        float64
	Sortino       float64
	AvgRR         float64
	AvgWin        float64
	AvgLoss       float64
	AvgGainPerWin float64
	AvgLossPct    float64
	GrossWin      float64
	GrossLoss     float64
	LongWinRate   float64
	ShortWinRate  float64
	ByStrategy    []StrategyStats
}

// CalcMetrics 由交易账本和权益曲线计算全部绩效指标。
// 没有交易时返回 nil (没有可统计的东西，不算错误)。
func CalcMetrics(trades []model.Trade, equityCurve model.EquityCurve, initialEquity float64) *Metrics {
	if len(trades) == 0 {
		return nil
	}

	var winPnls, lossPnls, winRs, lossRs []float64
	var totalPnl, rrSum, gainPctWins, gainPctLosses float64
	longs, longWins, shorts, shortWins := 0, 0, 0, 0

	for _, t := range trades {
		totalPnl += t.PnL
		rrSum += t.R
		if t.Outcome == model.OutcomeWin {
			winPnls = append(winPnls, t.PnL)
			winRs = append(winRs, t.R)
			gainPctWins += t.GainPct
		} else {
			lossPnls = append(lossPnls, t.PnL)
			lossRs = append(lossRs, t.R)
			gainPctLosses += math.Abs(t.GainPct)
		}
		if t.Direction == model.DirLong {
			longs++
			if t.Outcome == model.OutcomeWin {
				longWins++
			}
		} else {
			shorts++
			if t.Outcome == model.OutcomeWin {
				shortWins++
			}
		}
	}

	winRate := float64(len(winPnls)) / float64(len(trades))
	grossWin := 0.0
	for _, p := range winPnls {
		grossWin += p
	}
	grossLoss := 0.0
	for _, p := range lossPnls {
		grossLoss += p
	}
	grossLoss = math.Abs(grossLoss)

	finalEquity := initialEquity + totalPnl

	// 逐笔平仓的权益收益率
	var returns []float64
	for i := 1; i < len(equityCurve); i++ {
		if equityCurve[i-1] != 0 {
			returns = append(returns, (equityCurve[i]-equityCurve[i-1])/equityCurve[i-1])
		}
	}

	m := &Metrics{
		TotalTrades:  len(trades),
		Wins:         len(winPnls),
		Losses:       len(lossPnls),
		WinRate:      stats.Round(winRate, 3),
		WinRatePct:   stats.Round(winRate*100, 1),
		ProfitFactor: stats.ProfitFactor(winPnls, lossPnls),
		Expectancy:   stats.Expectancy(winRate, stats.Mean(winRs), stats.Mean(lossRs)),
		TotalReturn:  stats.Round(stats.Pct(finalEquity-initialEquity, initialEquity), 2),
		FinalEquity:  stats.Round(finalEquity, 2),
		MaxDrawdown:  stats.MaxDrawdown(equityCurve),
		Sharpe:       stats.Sharpe(returns, 0),
		Sortino:      stats.Sortino(returns, 0),
		AvgRR:        stats.Round(rrSum/float64(len(trades)), 2),
		GrossWin:     stats.Round(grossWin, 2),
		GrossLoss:    stats.Round(grossLoss, 2),
	}
	if len(winPnls) > 0 {
		m.AvgWin = stats.Round(grossWin/float64(len(winPnls)), 2)
		m.AvgGainPerWin = stats.Round(gainPctWins/float64(len(winPnls)), 2)
	}
	if len(lossPnls) > 0 {
		m.AvgLoss = stats.Round(grossLoss/float64(len(lossPnls)), 2)
		m.AvgLossPct = stats.Round(gainPctLosses/float64(len(lossPnls)), 2)
	}
	if longs > 0 {
		m.LongWinRate = stats.Round(float64(longWins)/float64(longs)*100, 2)
	}
	if shorts > 0 {
		m.ShortWinRate = stats.Round(float64(shortWins)/float64(shorts)*100, 2)
	}

	m.ByStrategy = strategyBreakdown(trades, initialEquity)
	return m
}

// strategyBreakdown 按策略聚合，保持首次出现的顺序
func strategyBreakdown(trades []model.Trade, initialEquity float64) []StrategyStats {
	var order []string
	grouped := make(map[string][]model.Trade)
	for _, t := range trades {
		if _, ok := grouped[t.Strategy]; !ok {
			order = append(order, t.Strategy)
		}
		grouped[t.Strategy] = append(grouped[t.Strategy], t)
	}

	out := make([]StrategyStats, 0, len(order))
	for _, id := range order {
		st := grouped[id]
		wins := 0
		var pnl, rSum float64
		for _, t := range st {
			pnl += t.PnL
			rSum += t.R
			if t.Outcome == model.OutcomeWin {
				wins++
			}
		}
		out = append(out, StrategyStats{
			Strategy: id,
			Trades:   len(st),
			WinRate:  stats.Round(float64(wins)/float64(len(st)), 3),
			AvgR:     stats.Round(rSum/float64(len(st)), 2),
			PnL:      stats.Round(pnl, 2),
			GainPct:  stats.Round(stats.Pct(pnl, initialEquity), 2),
		})
	}
	return out
}
