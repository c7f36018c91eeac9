package ta

import (
	"math"

	"smc-prop-engine/internal/model"
)

// MapLiquidityPools 把当前序列映射为一组流动性池：
//   - 等高点对 → BSL，等低点对 → SSL (取对内较极端的价格)
//   - 前一个 24 根周期的极值 → PDH/PDL (15m 数据即前一日，需 ≥96 根)
//   - 最近 5 个摆动高/低点 → SH/SL (minor)
//
// 各类之间不去重：同一价位可以同时是 PDH 和 SH。池每次调用重新计算，
// Swept 初始恒为 false。
func MapLiquidityPools(candles []model.Candle, tolerance float64) []model.LiquidityPool {
	highs, lows := DetectSwings(candles, 3, 3)
	equalHighs, equalLows := DetectEqualHighsLows(highs, lows, tolerance)

	var pools []model.LiquidityPool

	for _, pair := range equalHighs {
		pools = append(pools, model.LiquidityPool{
			Type:     model.PoolBSL,
			Price:    math.Max(pair[0].Price, pair[1].Price),
			Strength: model.StrengthEqual,
			Time:     pair[1].Time,
			Indices:  []int{pair[0].Index, pair[1].Index},
		})
	}
	for _, pair := range equalLows {
		pools = append(pools, model.LiquidityPool{
			Type:     model.PoolSSL,
			Price:    math.Min(pair[0].Price, pair[1].Price),
			Strength: model.StrengthEqual,
			Time:     pair[1].Time,
			Indices:  []int{pair[0].Index, pair[1].Index},
		})
	}

	if len(candles) > 96 {
		prev := candles[len(candles)-96 : len(candles)-48]
		pdh, pdl := prev[0].High, prev[0].Low
		for _, c := range prev {
			if c.High > pdh {
				pdh = c.High
			}
			if c.Low < pdl {
				pdl = c.Low
			}
		}
		pools = append(pools,
			model.LiquidityPool{Type: model.PoolPDH, Price: pdh, Strength: model.StrengthMajor},
			model.LiquidityPool{Type: model.PoolPDL, Price: pdl, Strength: model.StrengthMajor},
		)
	}

	sh := highs
	if len(sh) > 5 {
		sh = sh[len(sh)-5:]
	}
	for _, h := range sh {
		pools = append(pools, model.LiquidityPool{
			Type: model.PoolSH, Price: h.Price, Strength: model.StrengthMinor, Time: h.Time,
		})
	}
	sl := lows
	if len(sl) > 5 {
		sl = sl[len(sl)-5:]
	}
	for _, l := range sl {
		pools = append(pools, model.LiquidityPool{
			Type: model.PoolSL, Price: l.Price, Strength: model.StrengthMinor, Time: l.Time,
		})
	}

	return pools
}

// CheckSweep 扫池判定 (纯谓词，无副作用)：上方池要求影线穿越且实体收回
// (high > price 且 close < price)，下方池镜像。由调用方负责标记 Swept。
func CheckSweep(candle model.Candle, pool model.LiquidityPool) bool {
	if pool.Type.Upper() {
		return candle.High > pool.Price && candle.Close < pool.Price
	}
	return candle.Low < pool.Price && candle.Close > pool.Price
}

// Sweep 一次扫池事件
type Sweep struct {
	Pool      model.LiquidityPool
	Candle    model.Candle
	Direction model.Direction // 上方池被扫偏空，下方池被扫偏多
}

// SweptKey 扫池身份：price+type+time，用于跨扫描去重
type SweptKey struct {
	Type  model.PoolType
	Price float64
	Time  int64
}

// SweptSet 调用方持有的已扫池集合。池本身每轮重算，"同一池不重复告警"
// 的状态放在这里而不是池记录上。
type SweptSet map[SweptKey]struct{}

// Key 取池的身份键
func Key(pool model.LiquidityPool) SweptKey {
	return SweptKey{Type: pool.Type, Price: pool.Price, Time: pool.Time}
}

// RecentSweeps 在最近 lookback 根 K 线内查找扫池事件。单轮内每个池最多
// 命中一次 (置位 Swept)；seen 非空时跳过历史轮次已命中的池并累计新命中。
func RecentSweeps(candles []model.Candle, pools []model.LiquidityPool, lookback int, seen SweptSet) []Sweep {
	recent := candles
	if len(recent) > lookback {
		recent = recent[len(recent)-lookback:]
	}

	var sweeps []Sweep
	for _, candle := range recent {
		for i := range pools {
			if pools[i].Swept {
				continue
			}
			if seen != nil {
				if _, ok := seen[Key(pools[i])]; ok {
					continue
				}
			}
			if !CheckSweep(candle, pools[i]) {
				continue
			}
			pools[i].Swept = true
			if seen != nil {
				seen[Key(pools[i])] = struct{}{}
			}
			dir := model.DirLong
			if pools[i].Type.Upper() {
				dir = model.DirShort
			}
			sweeps = append(sweeps, Sweep{Pool: pools[i], Candle: candle, Direction: dir})
		}
	}
	return sweeps
}

// HTFBuySideLiquidity 高周期买方流动性：最近 lookback 根内的最高点。
// 没有数据时返回 0。
func HTFBuySideLiquidity(candles []model.Candle, lookback int) float64 {
	start := len(candles) - lookback
	if start < 0 {
		start = 0
	}
	max := 0.0
	for i := start; i < len(candles); i++ {
		if candles[i].High > max {
			max = candles[i].High
		}
	}
	return max
}

// HTFSellSideLiquidity 高周期卖方流动性：最近 lookback 根内的最低点。
// 没有数据时返回 0。
func HTFSellSideLiquidity(candles []model.Candle, lookback int) float64 {
	start := len(candles) - lookback
	if start < 0 {
		start = 0
	}
	min := math.Inf(1)
	for i := start; i < len(candles); i++ {
		if candles[i].Low < min {
			min = candles[i].Low
		}
	}
	if math.IsInf(min, 1) {
		return 0
	}
	return min
}
