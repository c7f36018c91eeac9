package ta

import "smc-prop-engine/internal/model"

// StructureKind 结构信号级别
type StructureKind string

const (
	// KindMSS 实体收盘突破确认的结构反转
	KindMSS StructureKind = "MSS"
	// KindCHoCH 仅形成更高低点 (或更低高点) 的早期信号，尚无实体突破
	KindCHoCH StructureKind = "CHoCH"
)

// Structure 市场结构事件。BreakLevel 只在 MSS 上有值。
type Structure struct {
	Kind        StructureKind
	Direction   model.Direction
	BreakLevel  float64 // 被实体收盘突破的摆动位 (MSS)
	Pivot       float64 // 构成反转的摆动低点 (做多) / 高点 (做空)
	ConfirmTime int64
}

// DetectMSS 结构反转检测。做多：取最近两个摆动低点，后者更高 (higher low)
// 时再看最后一根 K 线的收盘是否突破区间内最后一个摆动高点 —— 实体收盘
// 突破记 MSS，未突破记 CHoCH。做空镜像。影线穿越从不算突破，
// 这是整个检测引擎的不变量。
func DetectMSS(candles []model.Candle, dir model.Direction, lookback int) *Structure {
	window := candles
	if len(window) > lookback {
		window = window[len(window)-lookback:]
	}
	if len(window) == 0 {
		return nil
	}
	highs, lows := DetectSwings(window, 2, 2)
	latest := window[len(window)-1]

	if dir == model.DirLong {
		if len(lows) < 2 {
			return nil
		}
		lastLow, prevLow := lows[len(lows)-1], lows[len(lows)-2]
		if lastLow.Price <= prevLow.Price {
			return nil
		}
		if len(highs) > 0 {
			breakLevel := highs[len(highs)-1].Price
			if latest.Close > breakLevel {
				return &Structure{
					Kind:        KindMSS,
					Direction:   dir,
					BreakLevel:  breakLevel,
					Pivot:       lastLow.Price,
					ConfirmTime: latest.Time,
				}
			}
		}
		return &Structure{Kind: KindCHoCH, Direction: dir, Pivot: lastLow.Price, ConfirmTime: lastLow.Time}
	}

	if len(highs) < 2 {
		return nil
	}
	lastHigh, prevHigh := highs[len(highs)-1], highs[len(highs)-2]
	if lastHigh.Price >= prevHigh.Price {
		return nil
	}
	if len(lows) > 0 {
		breakLevel := lows[len(lows)-1].Price
		if latest.Close < breakLevel {
			return &Structure{
				Kind:        KindMSS,
				Direction:   dir,
				BreakLevel:  breakLevel,
				Pivot:       lastHigh.Price,
				ConfirmTime: latest.Time,
			}
		}
	}
	return &Structure{Kind: KindCHoCH, Direction: dir, Pivot: lastHigh.Price, ConfirmTime: lastHigh.Time}
}

// ConfirmBodyClose 实体收盘突破判定：只看 close，不看影线
func ConfirmBodyClose(candle model.Candle, level float64, dir model.Direction) bool {
	if dir == model.DirLong {
		return candle.Close > level
	}
	return candle.Close < level
}

// LastSwingHigh 最近 lookback 根内的最后一个摆动高点，不存在返回 nil
func LastSwingHigh(candles []model.Candle, lookback int) *model.SwingPoint {
	window := candles
	if len(window) > lookback {
		window = window[len(window)-lookback:]
	}
	highs, _ := DetectSwings(window, 2, 2)
	if len(highs) == 0 {
		return nil
	}
	h := highs[len(highs)-1]
	return &h
}

// LastSwingLow 最近 lookback 根内的最后一个摆动低点，不存在返回 nil
func LastSwingLow(candles []model.Candle, lookback int) *model.SwingPoint {
	window := candles
	if len(window) > lookback {
		window = window[len(window)-lookback:]
	}
	_, lows := DetectSwings(window, 2, 2)
	if len(lows) == 0 {
		return nil
	}
	l := lows[len(lows)-1]
	return &l
}
