package ta

import "smc-prop-engine/internal/model"

// IsDisplacement 位移 K 线判定，三个条件全部满足 (AND)：
//  1. 实体 ≥ ATR × atrMult
//  2. 收盘价位于全幅的外侧区间 (阳线收在顶部 30% 内，阴线收在底部 30% 内)
//  3. 成交量通过放量检测 (无量历史时放行)
func IsDisplacement(c model.Candle, history []model.Candle, atrVal, atrMult, volMult float64) bool {
	if atrVal <= 0 {
		return false
	}
	if c.Body() < atrVal*atrMult {
		return false
	}

	pos := c.ClosePosition()
	if c.Bullish() && pos < 0.7 {
		return false
	}
	if !c.Bullish() && pos > 0.3 {
		return false
	}

	return IsVolumeSpike(c, history, volMult, DefaultVolumePeriod)
}

// Zone 一个价格区间及其 50% 回撤位 (OB/FVG 共用)
type Zone struct {
	Top    float64
	Bottom float64
	Mid    float64
	Time   int64
}

// DetectOB 在位移 K 线之前的 1~5 根内找最近的一根反色 K 线作为订单块，
// 其实体 (开/收，不含影线) 定义区间，中点为 50% 入场位。找不到返回 nil。
func DetectOB(candles []model.Candle, dispIdx int, dir model.Direction) *Zone {
	lowest := dispIdx - 5
	if lowest < 0 {
		lowest = 0
	}
	for i := dispIdx - 1; i >= lowest; i-- {
		c := candles[i]
		opposing := (dir == model.DirLong && c.Bearish()) || (dir == model.DirShort && c.Bullish())
		if !opposing {
			continue
		}
		top, bot := c.Open, c.Close
		if bot > top {
			top, bot = bot, top
		}
		return &Zone{Top: top, Bottom: bot, Mid: (c.Open + c.Close) / 2, Time: c.Time}
	}
	return nil
}

// DetectFVG 三根 K 线缺口。看多：candle[i+1].low > candle[i-1].high，
// 区间为 [candle[i-1].high, candle[i+1].low]；看空镜像。没有缺口返回 nil。
func DetectFVG(candles []model.Candle, dispIdx int, dir model.Direction) *Zone {
	if dispIdx < 1 || dispIdx >= len(candles) {
		return nil
	}
	prev := candles[dispIdx-1]
	disp := candles[dispIdx]
	next := disp
	if dispIdx+1 < len(candles) {
		next = candles[dispIdx+1]
	}

	if dir == model.DirLong && next.Low > prev.High {
		return &Zone{Top: next.Low, Bottom: prev.High, Mid: (next.Low + prev.High) / 2, Time: disp.Time}
	}
	if dir == model.DirShort && next.High < prev.Low {
		return &Zone{Top: prev.Low, Bottom: next.High, Mid: (prev.Low + next.High) / 2, Time: disp.Time}
	}
	return nil
}

// FVG 带方向和回补状态的缺口记录
type FVG struct {
	Zone
	Direction model.Direction
	Filled    bool
}

// AllFVGs 扫描整个序列，返回最近 10 个尚未回补的缺口。
// 缺口方向由中间那根 K 线的阴阳决定，回补以后续 K 线触及区间远端为准。
func AllFVGs(candles []model.Candle) []FVG {
	var fvgs []FVG
	for i := 1; i < len(candles)-1; i++ {
		dir := model.DirLong
		if candles[i].Bearish() {
			dir = model.DirShort
		}
		z := DetectFVG(candles, i, dir)
		if z == nil {
			continue
		}
		fvgs = append(fvgs, FVG{Zone: *z, Direction: dir})
	}

	for i := range fvgs {
		for _, c := range candles {
			if c.Time <= fvgs[i].Time {
				continue
			}
			if fvgs[i].Direction == model.DirLong && c.Low <= fvgs[i].Bottom {
				fvgs[i].Filled = true
				break
			}
			if fvgs[i].Direction == model.DirShort && c.High >= fvgs[i].Top {
				fvgs[i].Filled = true
				break
			}
		}
	}

	open := fvgs[:0]
	for _, f := range fvgs {
		if !f.Filled {
			open = append(open, f)
		}
	}
	if len(open) > 10 {
		open = open[len(open)-10:]
	}
	return open
}
