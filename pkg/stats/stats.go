package stats

import "math"

// Round 将 val 四舍五入到指定小数位
func Round(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(val*pow) / pow
}

// Clamp 将 val 限制在 [min, max] 区间内
func Clamp(val, min, max float64) float64 {
	return math.Max(min, math.Min(max, val))
}

// Pct 计算 val 占 total 的百分比，total 为 0 时返回 0
func Pct(val, total float64) float64 {
	if total == 0 {
		return 0
	}
	return val / total * 100
}

// Mean 算术平均值，空序列返回 0
func Mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// Std 样本标准差 (n-1)，少于 2 个样本返回 0
func Std(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	m := Mean(vals)
	variance := 0.0
	for _, v := range vals {
		variance += (v - m) * (v - m)
	}
	variance /= float64(len(vals) - 1)
	return math.Sqrt(variance)
}

// annualizeFactor 年化系数：按每年 252 个交易日折算
const annualizeFactor = 15.874507866387544 // sqrt(252)

// Sharpe 年化夏普比率。returns 为单笔收益率序列，波动为 0 时返回 0。
func Sharpe(returns []float64, riskFreeRate float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	excess := make([]float64, len(returns))
	for i, r := range returns {
		excess[i] = r - riskFreeRate
	}
	s := Std(excess)
	if s == 0 {
		return 0
	}
	return Round(Mean(excess)/s*annualizeFactor, 2)
}

// Sortino 年化索提诺比率，只对下行波动惩罚。
// 下行偏差取下行超额收益的均方根 (以 riskFreeRate 为基准，不减均值)，
// 固定比例风控下止损亏损大小相近，样本标准差会退化为 0。
func Sortino(returns []float64, riskFreeRate float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	downSq := 0.0
	n := 0
	for _, r := range returns {
		if r < riskFreeRate {
			d := r - riskFreeRate
			downSq += d * d
			n++
		}
	}
	if n == 0 {
		return 0
	}
	ds := math.Sqrt(downSq / float64(n))
	if ds == 0 {
		return 0
	}
	return Round((Mean(returns)-riskFreeRate)/ds*annualizeFactor, 2)
}

// MaxDrawdown 计算权益曲线的最大回撤 (百分比)
func MaxDrawdown(equityCurve []float64) float64 {
	if len(equityCurve) == 0 {
		return 0
	}
	peak := equityCurve[0]
	if peak <= 0 {
		peak = 1
	}
	maxDD := 0.0
	for _, v := range equityCurve {
		if v > peak {
			peak = v
		}
		dd := (peak - v) / peak
		if dd > maxDD {
			maxDD = dd
		}
	}
	return Round(maxDD*100, 2)
}

// ProfitFactorCap 总亏损为 0 时的盈亏比哨兵值 (有限值，不返回 +Inf)
const ProfitFactorCap = 999.0

// ProfitFactor 盈亏比 = 总盈利 / |总亏损|
func ProfitFactor(wins, losses []float64) float64 {
	totalWin := 0.0
	for _, w := range wins {
		totalWin += w
	}
	totalLoss := 0.0
	for _, l := range losses {
		totalLoss += l
	}
	totalLoss = math.Abs(totalLoss)
	if totalLoss == 0 {
		if totalWin > 0 {
			return ProfitFactorCap
		}
		return 0
	}
	return Round(totalWin/totalLoss, 2)
}

// Expectancy 期望值 = 胜率×平均盈利 - 败率×|平均亏损|
func Expectancy(winRate, avgWin, avgLoss float64) float64 {
	lossRate := 1 - winRate
	return Round(winRate*avgWin-lossRate*math.Abs(avgLoss), 3)
}
