package ta_test

import (
	"reflect"
	"testing"

	"smc-prop-engine/internal/model"
	"smc-prop-engine/pkg/ta"
)

// equalLowSeries 带两个等低点谷底的序列
func equalLowSeries() []model.Candle {
	candles := flatSeries(40, 100)
	candles[10] = mk(10, 100, 101, 95.00, 99)
	candles[25] = mk(25, 100, 101, 95.05, 99)
	return candles
}

func TestMapLiquidityPools_EqualLows(t *testing.T) {
	pools := ta.MapLiquidityPools(equalLowSeries(), 0.0015)

	found := false
	for _, p := range pools {
		if p.Type == model.PoolSSL {
			found = true
			if p.Price != 95.00 {
				t.Fatalf("SSL price should be the lower of the pair, got %f", p.Price)
			}
			if p.Swept {
				t.Fatal("fresh pool must not be marked swept")
			}
		}
	}
	if !found {
		t.Fatal("expected an SSL pool from the equal lows")
	}
}

func TestMapLiquidityPools_Idempotent(t *testing.T) {
	candles := equalLowSeries()
	first := ta.MapLiquidityPools(candles, 0.0015)
	second := ta.MapLiquidityPools(candles, 0.0015)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("mapping pools twice over the same candles must yield identical pools")
	}
}

func TestCheckSweep(t *testing.T) {
	lower := model.LiquidityPool{Type: model.PoolSSL, Price: 95}
	upper := model.LiquidityPool{Type: model.PoolBSL, Price: 105}

	// 影线下破且实体收回 = 扫池
	sweep := mk(0, 96, 97, 94, 96)
	if !ta.CheckSweep(sweep, lower) {
		t.Fatal("wick below with close above should sweep a lower pool")
	}
	// 实体也收在下方 = 真破位，不是扫池
	breakdown := mk(0, 96, 97, 93, 94)
	if ta.CheckSweep(breakdown, lower) {
		t.Fatal("body close below the level is a breakout, not a sweep")
	}
	// 上方池镜像
	sweepUp := mk(0, 104, 106, 103, 104)
	if !ta.CheckSweep(sweepUp, upper) {
		t.Fatal("wick above with close below should sweep an upper pool")
	}
	if ta.CheckSweep(mk(0, 104, 106, 103, 105.5), upper) {
		t.Fatal("body close above the level must not count as a sweep")
	}
}

func TestRecentSweeps_SeenSet(t *testing.T) {
	candles := equalLowSeries()
	// 末尾加一根扫掉 95 的 K 线
	candles = append(candles, mk(40, 96, 97, 94.5, 96))

	pools := ta.MapLiquidityPools(candles[:40], 0.0015)
	seen := make(ta.SweptSet)

	sweeps := ta.RecentSweeps(candles, pools, 10, seen)
	if len(sweeps) == 0 {
		t.Fatal("expected at least one sweep")
	}

	// 第二轮：池重算后同一身份已在 seen 里，不再重复命中
	pools2 := ta.MapLiquidityPools(candles[:40], 0.0015)
	again := ta.RecentSweeps(candles, pools2, 10, seen)
	if len(again) != 0 {
		t.Fatalf("already-seen pools must not re-fire, got %d sweeps", len(again))
	}
}

func TestHTFLiquidity(t *testing.T) {
	candles := flatSeries(50, 100)
	candles[30] = mk(30, 100, 130, 99, 110)
	candles[40] = mk(40, 100, 101, 80, 95)

	if got := ta.HTFBuySideLiquidity(candles, 100); got != 130 {
		t.Fatalf("HTF BSL should be the window high, got %f", got)
	}
	if got := ta.HTFSellSideLiquidity(candles, 100); got != 80 {
		t.Fatalf("HTF SSL should be the window low, got %f", got)
	}
	if got := ta.HTFBuySideLiquidity(nil, 100); got != 0 {
		t.Fatalf("empty series should give 0, got %f", got)
	}
}
