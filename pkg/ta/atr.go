package ta

import (
	"github.com/markcheno/go-talib"

	"smc-prop-engine/internal/model"
)

// DefaultATRPeriod ATR 默认周期
const DefaultATRPeriod = 14

// ATR 计算 Wilder 平滑的平均真实波幅：前 period 个 TR 取简单平均作为种子，
// 之后按 atr = (atr*(period-1) + tr) / period 平滑。计算交给 talib。
// 数据不足时返回 0 (上层把 0 视为 "ATR 不可用"，直接放弃本轮检测)。
func ATR(candles []model.Candle, period int) float64 {
	if period <= 0 || len(candles) < period+1 {
		return 0
	}

	high := make([]float64, len(candles))
	low := make([]float64, len(candles))
	closes := make([]float64, len(candles))
	for i, c := range candles {
		high[i] = c.High
		low[i] = c.Low
		closes[i] = c.Close
	}

	out := talib.Atr(high, low, closes, period)
	if len(out) == 0 {
		return 0
	}
	return out[len(out)-1]
}

// LatestATR 在最近 max(period*3, 50) 根 K 线的窗口上计算 ATR，
// 避免超长历史拖慢每根 K 线都要执行的检测路径。
func LatestATR(candles []model.Candle, period int) float64 {
	window := period * 3
	if window < 50 {
		window = 50
	}
	if len(candles) > window {
		candles = candles[len(candles)-window:]
	}
	return ATR(candles, period)
}
