package ta

import (
	"math"

	"smc-prop-engine/internal/model"
)

// EntryZone 综合 OB 与 FVG 选出入场位 (各自的 50% 中点)。
// 两者都存在时取回撤更深的那个：做多取较高的中点，做空取较低的中点。
// 都不存在返回 0，由调用方回退到位移 K 线的开/收盘价。
func EntryZone(candles []model.Candle, dispIdx int, dir model.Direction) float64 {
	ob := DetectOB(candles, dispIdx, dir)
	fvg := DetectFVG(candles, dispIdx, dir)

	switch {
	case ob != nil && fvg != nil:
		if dir == model.DirLong {
			return math.Max(ob.Mid, fvg.Mid)
		}
		return math.Min(ob.Mid, fvg.Mid)
	case ob != nil:
		return ob.Mid
	case fvg != nil:
		return fvg.Mid
	}
	return 0
}

// HasRetracedToEntry 价格是否已回踩到入场区 (带相对容差)
func HasRetracedToEntry(candle model.Candle, entry float64, dir model.Direction, tolerance float64) bool {
	if dir == model.DirLong {
		return candle.Low <= entry*(1+tolerance)
	}
	return candle.High >= entry*(1-tolerance)
}

// IsEntryValid 入场是否仍然有效 (止损尚未被触及)
func IsEntryValid(candle model.Candle, sl float64, dir model.Direction) bool {
	if dir == model.DirLong {
		return candle.Low > sl
	}
	return candle.High < sl
}
