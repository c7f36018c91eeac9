package ta

import "smc-prop-engine/internal/model"

// Bias 摆动结构偏向
type Bias string

const (
	BiasBullish Bias = "bullish"
	BiasBearish Bias = "bearish"
	BiasNeutral Bias = "neutral"
)

// CalcBias 由摆动结构判断单周期偏向：HH+HL 为多，LH+LL 为空，其余中性
func CalcBias(candles []model.Candle) Bias {
	if len(candles) < 20 {
		return BiasNeutral
	}
	highs, lows := DetectSwings(candles, 3, 3)
	if len(highs) < 2 || len(lows) < 2 {
		return BiasNeutral
	}

	higherHighs := highs[len(highs)-1].Price > highs[len(highs)-2].Price
	higherLows := lows[len(lows)-1].Price > lows[len(lows)-2].Price
	lowerHighs := highs[len(highs)-1].Price < highs[len(highs)-2].Price
	lowerLows := lows[len(lows)-1].Price < lows[len(lows)-2].Price

	switch {
	case higherHighs && higherLows:
		return BiasBullish
	case lowerHighs && lowerLows:
		return BiasBearish
	}
	return BiasNeutral
}

// AlignedBias 多周期共振：两个高周期同向才给出方向，否则中性
func AlignedBias(h1, h4 Bias) Bias {
	if h1 == BiasBullish && h4 == BiasBullish {
		return BiasBullish
	}
	if h1 == BiasBearish && h4 == BiasBearish {
		return BiasBearish
	}
	return BiasNeutral
}
