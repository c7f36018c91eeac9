package ta

import "smc-prop-engine/internal/model"

// DealingRange 最近 lookback 根构成的交易区间
type DealingRange struct {
	High    float64
	Low     float64
	Eq      float64 // 区间中轴 (equilibrium)
	HighIdx int
	LowIdx  int
}

// GetDealingRange 取最近 lookback 根的高低点区间
func GetDealingRange(candles []model.Candle, lookback int) DealingRange {
	window := candles
	if len(window) > lookback {
		window = window[len(window)-lookback:]
	}

	r := DealingRange{}
	for i, c := range window {
		if i == 0 || c.High > r.High {
			r.High = c.High
			r.HighIdx = i
		}
		if i == 0 || c.Low < r.Low {
			r.Low = c.Low
			r.LowIdx = i
		}
	}
	r.Eq = (r.High + r.Low) / 2
	return r
}

// RangeZone premium/discount 分区
type RangeZone string

const (
	ZonePremium  RangeZone = "premium"
	ZoneDiscount RangeZone = "discount"
)

// PremiumDiscount 价格相对区间中轴的分区：中轴之上为 premium，之下为 discount
func PremiumDiscount(price float64, r DealingRange) RangeZone {
	if price >= r.Eq {
		return ZonePremium
	}
	return ZoneDiscount
}

// FibLevel 区间内的斐波那契价位 (fib ∈ [0,1]，0 为区间低点)
func FibLevel(r DealingRange, fib float64) float64 {
	return r.Low + (r.High-r.Low)*fib
}
