package ta_test

import (
	"testing"

	"smc-prop-engine/internal/model"
	"smc-prop-engine/pkg/ta"
)

func TestIsDisplacement(t *testing.T) {
	history := flatSeries(25, 100)
	atrVal := 2.0

	// 实体 5 > 2×1.5，收在顶部，放量
	bull := model.Candle{Open: 100, High: 105.5, Low: 99.8, Close: 105, Volume: 500}
	if !ta.IsDisplacement(bull, history, atrVal, 1.5, 1.2) {
		t.Fatal("large bullish body closing near the high should be displacement")
	}

	// 实体够大但收在中部
	weakClose := model.Candle{Open: 100, High: 108, Low: 98, Close: 103.5, Volume: 500}
	if ta.IsDisplacement(weakClose, history, atrVal, 1.5, 1.2) {
		t.Fatal("mid-range close must fail the close-position gate")
	}

	// 实体太小
	small := model.Candle{Open: 100, High: 101.5, Low: 99.8, Close: 101, Volume: 500}
	if ta.IsDisplacement(small, history, atrVal, 1.5, 1.2) {
		t.Fatal("small body must fail the ATR gate")
	}

	// ATR 不可用时永远不是位移
	if ta.IsDisplacement(bull, history, 0, 1.5, 1.2) {
		t.Fatal("zero ATR must disable displacement detection")
	}

	// 缩量被拒
	quiet := model.Candle{Open: 100, High: 105.5, Low: 99.8, Close: 105, Volume: 50}
	if ta.IsDisplacement(quiet, history, atrVal, 1.5, 1.2) {
		t.Fatal("below-average volume must fail the volume gate")
	}
}

func TestIsDisplacement_VolumeFailOpen(t *testing.T) {
	// 无量历史：成交量门槛放行
	history := make([]model.Candle, 25)
	for i := range history {
		history[i] = model.Candle{Time: int64(i), Open: 100, High: 101, Low: 99, Close: 100}
	}
	bull := model.Candle{Open: 100, High: 105.5, Low: 99.8, Close: 105}
	if !ta.IsDisplacement(bull, history, 2.0, 1.5, 1.2) {
		t.Fatal("zero-volume history must fail open on the volume gate")
	}
}

func TestDetectOB(t *testing.T) {
	candles := []model.Candle{
		mk(0, 100, 101, 99, 100.5),
		mk(1, 100.5, 101, 98, 99),   // 阴线 = 做多 OB
		mk(2, 99, 106, 98.5, 105.5), // 位移
	}
	ob := ta.DetectOB(candles, 2, model.DirLong)
	if ob == nil {
		t.Fatal("expected an order block")
	}
	if ob.Top != 100.5 || ob.Bottom != 99 {
		t.Fatalf("OB zone must be the candle body, got [%f, %f]", ob.Bottom, ob.Top)
	}
	if ob.Mid != (100.5+99)/2 {
		t.Fatalf("OB mid wrong: %f", ob.Mid)
	}

	// 前面没有反色 K 线
	allBull := []model.Candle{
		mk(0, 99, 101, 98, 100),
		mk(1, 100, 102, 99, 101),
		mk(2, 101, 108, 100, 107),
	}
	if ta.DetectOB(allBull, 2, model.DirLong) != nil {
		t.Fatal("no opposing candle means no OB")
	}
}

func TestDetectFVG(t *testing.T) {
	candles := []model.Candle{
		mk(0, 100, 101, 99, 100.5),
		mk(1, 100.5, 106, 100, 105.5), // 位移
		mk(2, 105.5, 107, 103, 106),   // low 103 > prev.high 101 → 缺口
	}
	fvg := ta.DetectFVG(candles, 1, model.DirLong)
	if fvg == nil {
		t.Fatal("expected a fair value gap")
	}
	if fvg.Bottom != 101 || fvg.Top != 103 {
		t.Fatalf("FVG zone wrong: [%f, %f]", fvg.Bottom, fvg.Top)
	}

	// 无缺口
	noGap := []model.Candle{
		mk(0, 100, 103, 99, 100.5),
		mk(1, 100.5, 106, 100, 105.5),
		mk(2, 105.5, 107, 102, 106),
	}
	if ta.DetectFVG(noGap, 1, model.DirLong) != nil {
		t.Fatal("overlapping candles must not produce an FVG")
	}
}

func TestAllFVGs_FilledExcluded(t *testing.T) {
	candles := []model.Candle{
		mk(0, 100, 101, 99, 100.5),
		mk(1, 100.5, 106, 100, 105.5),
		mk(2, 105.5, 107, 103, 106), // 多头缺口 [101, 103]
		mk(3, 106, 107, 100.5, 102), // 回补到 101 以下
	}
	fvgs := ta.AllFVGs(candles)
	for _, f := range fvgs {
		if f.Bottom == 101 && f.Top == 103 {
			t.Fatal("filled gap must be excluded")
		}
	}
}
