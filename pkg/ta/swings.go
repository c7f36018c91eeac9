package ta

import (
	"math"

	"smc-prop-engine/internal/model"
)

// DetectSwings 检测摆动高低点。第 i 根是摆动高点当且仅当其 high 严格大于
// [i-left, i+right] 窗口内其余所有 K 线的 high (打平即双双失格)；低点对称。
// 返回的两个序列都按时间升序。复杂度 O(n*(left+right))。
func DetectSwings(candles []model.Candle, left, right int) (highs, lows []model.SwingPoint) {
	n := len(candles)
	for i := left; i < n-right; i++ {
		c := candles[i]
		isHigh, isLow := true, true
		for j := i - left; j <= i+right; j++ {
			if j == i {
				continue
			}
			if candles[j].High >= c.High {
				isHigh = false
			}
			if candles[j].Low <= c.Low {
				isLow = false
			}
			if !isHigh && !isLow {
				break
			}
		}
		if isHigh {
			highs = append(highs, model.SwingPoint{Index: i, Price: c.High, Time: c.Time})
		}
		if isLow {
			lows = append(lows, model.SwingPoint{Index: i, Price: c.Low, Time: c.Time})
		}
	}
	return highs, lows
}

// EqualPair 一对相对价差在容差内的摆动点
type EqualPair [2]model.SwingPoint

// DetectEqualHighsLows 在摆动高点 (和低点) 之间两两配对，相对价差 ≤ tolerance
// 的记为等高/等低。刻意 O(n²)，只应在较小的近期窗口上调用。
func DetectEqualHighsLows(swingHighs, swingLows []model.SwingPoint, tolerance float64) (equalHighs, equalLows []EqualPair) {
	for i := 0; i < len(swingHighs)-1; i++ {
		for j := i + 1; j < len(swingHighs); j++ {
			diff := math.Abs(swingHighs[i].Price-swingHighs[j].Price) / swingHighs[i].Price
			if diff <= tolerance {
				equalHighs = append(equalHighs, EqualPair{swingHighs[i], swingHighs[j]})
			}
		}
	}
	for i := 0; i < len(swingLows)-1; i++ {
		for j := i + 1; j < len(swingLows); j++ {
			diff := math.Abs(swingLows[i].Price-swingLows[j].Price) / swingLows[i].Price
			if diff <= tolerance {
				equalLows = append(equalLows, EqualPair{swingLows[i], swingLows[j]})
			}
		}
	}
	return equalHighs, equalLows
}

// LastNSwings 取最近 n 个摆动高低点 (在有限的近期窗口上重算)
func LastNSwings(candles []model.Candle, n, left, right int) (highs, lows []model.SwingPoint) {
	window := n * 5
	if window < 100 {
		window = 100
	}
	if len(candles) > window {
		candles = candles[len(candles)-window:]
	}
	highs, lows = DetectSwings(candles, left, right)
	if len(highs) > n {
		highs = highs[len(highs)-n:]
	}
	if len(lows) > n {
		lows = lows[len(lows)-n:]
	}
	return highs, lows
}

// DetectHigherLows 在摆动低点序列中找连续抬高的分组：每个后继低点价格更高
// 且与前一个至少间隔 minSpacing 根。返回所有长度达到 minCount 的分组前缀。
func DetectHigherLows(lows []model.SwingPoint, minCount, minSpacing int) [][]model.SwingPoint {
	if len(lows) < minCount {
		return nil
	}

	var groups [][]model.SwingPoint
	current := []model.SwingPoint{lows[0]}

	for i := 1; i < len(lows); i++ {
		last := current[len(current)-1]
		if lows[i].Price > last.Price && lows[i].Index-last.Index >= minSpacing {
			current = append(current, lows[i])
			if len(current) >= minCount {
				snapshot := make([]model.SwingPoint, len(current))
				copy(snapshot, current)
				groups = append(groups, snapshot)
			}
		} else if lows[i].Price <= last.Price {
			current = []model.SwingPoint{lows[i]}
		}
	}
	return groups
}
