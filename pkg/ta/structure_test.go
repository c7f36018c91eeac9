package ta_test

import (
	"testing"

	"smc-prop-engine/internal/model"
	"smc-prop-engine/pkg/ta"
)

// higherLowSeries 构造两个抬高的摆动低点加一个摆动高点，
// 最后一根 K 线的形态由调用方定制。
func higherLowSeries(last model.Candle) []model.Candle {
	candles := flatSeries(20, 100)
	candles[4] = mk(4, 100, 101, 92, 99)   // 第一个低点 92
	candles[9] = mk(9, 100, 106, 99, 104)  // 摆动高点 106
	candles[14] = mk(14, 100, 101, 95, 99) // 更高的低点 95
	candles[19] = last
	return candles
}

func TestDetectMSS_BodyCloseConfirms(t *testing.T) {
	// 收盘 107 > 摆动高点 106 → MSS
	last := mk(19, 100, 108, 99, 107)
	s := ta.DetectMSS(higherLowSeries(last), model.DirLong, 50)
	if s == nil {
		t.Fatal("expected a structure event")
	}
	if s.Kind != ta.KindMSS {
		t.Fatalf("body close above the swing high must confirm MSS, got %s", s.Kind)
	}
	if s.BreakLevel != 106 {
		t.Fatalf("break level should be the swing high, got %f", s.BreakLevel)
	}
}

func TestDetectMSS_WickNeverConfirms(t *testing.T) {
	// 影线 108 穿过 106 但收盘 104 在下方 → 只能是 CHoCH
	last := mk(19, 100, 108, 99, 104)
	s := ta.DetectMSS(higherLowSeries(last), model.DirLong, 50)
	if s == nil {
		t.Fatal("expected a structure event")
	}
	if s.Kind == ta.KindMSS {
		t.Fatal("a wick through the level must never confirm MSS")
	}
	if s.Kind != ta.KindCHoCH {
		t.Fatalf("expected CHoCH, got %s", s.Kind)
	}
}

func TestDetectMSS_NoHigherLow(t *testing.T) {
	candles := flatSeries(20, 100)
	candles[4] = mk(4, 100, 101, 95, 99)
	candles[14] = mk(14, 100, 101, 92, 99) // 更低的低点
	if s := ta.DetectMSS(candles, model.DirLong, 50); s != nil {
		t.Fatalf("lower low must not produce a bullish structure event, got %+v", s)
	}
}

func TestConfirmBodyClose(t *testing.T) {
	level := 106.0
	if ta.ConfirmBodyClose(mk(0, 100, 108, 99, 104), level, model.DirLong) {
		t.Fatal("wick above without body close must not confirm")
	}
	if !ta.ConfirmBodyClose(mk(0, 100, 108, 99, 107), level, model.DirLong) {
		t.Fatal("body close above must confirm")
	}
}

func TestLastSwingHighLow(t *testing.T) {
	candles := flatSeries(20, 100)
	candles[10] = mk(10, 100, 112, 99, 108)
	candles[15] = mk(15, 100, 101, 88, 95)

	h := ta.LastSwingHigh(candles, 50)
	if h == nil || h.Price != 112 {
		t.Fatalf("expected swing high 112, got %+v", h)
	}
	l := ta.LastSwingLow(candles, 50)
	if l == nil || l.Price != 88 {
		t.Fatalf("expected swing low 88, got %+v", l)
	}
}
