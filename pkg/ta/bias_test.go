package ta_test

import (
	"testing"

	"smc-prop-engine/internal/model"
	"smc-prop-engine/pkg/ta"
)

func TestCalcBias(t *testing.T) {
	series := func(low1, high1, low2, high2 float64) []model.Candle {
		out := flatSeries(40, 100)
		out[8].Low = low1
		out[16].High = high1
		out[28].Low = low2
		out[34].High = high2
		return out
	}

	if got := ta.CalcBias(series(90, 105, 93, 108)); got != ta.BiasBullish {
		t.Fatalf("HH+HL must be bullish, got %s", got)
	}
	if got := ta.CalcBias(series(93, 108, 90, 105)); got != ta.BiasBearish {
		t.Fatalf("LH+LL must be bearish, got %s", got)
	}
	// 高点抬高但低点走低：结构矛盾，中性
	if got := ta.CalcBias(series(93, 105, 90, 108)); got != ta.BiasNeutral {
		t.Fatalf("mixed structure must be neutral, got %s", got)
	}
	if got := ta.CalcBias(flatSeries(10, 100)); got != ta.BiasNeutral {
		t.Fatalf("short series must be neutral, got %s", got)
	}
}

func TestAlignedBias(t *testing.T) {
	if got := ta.AlignedBias(ta.BiasBullish, ta.BiasBullish); got != ta.BiasBullish {
		t.Fatalf("aligned bullish = %s", got)
	}
	if got := ta.AlignedBias(ta.BiasBullish, ta.BiasBearish); got != ta.BiasNeutral {
		t.Fatalf("conflicting timeframes must be neutral, got %s", got)
	}
}

func TestDealingRangeZones(t *testing.T) {
	candles := flatSeries(30, 100)
	candles[5].Low = 80
	candles[20].High = 120

	r := ta.GetDealingRange(candles, 30)
	if r.High != 120 || r.Low != 80 || r.Eq != 100 {
		t.Fatalf("range = %+v", r)
	}
	if ta.PremiumDiscount(110, r) != ta.ZonePremium {
		t.Fatal("above equilibrium must be premium")
	}
	if ta.PremiumDiscount(90, r) != ta.ZoneDiscount {
		t.Fatal("below equilibrium must be discount")
	}
	if got := ta.FibLevel(r, 0.705); got != 80+40*0.705 {
		t.Fatalf("fib level = %f", got)
	}

	// lookback 截断：区间外的极值不参与
	short := ta.GetDealingRange(candles, 10)
	if short.Low == 80 {
		t.Fatal("lookback must exclude older candles")
	}
}
