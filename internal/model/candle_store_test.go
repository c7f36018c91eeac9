package model_test

import (
	"testing"

	"smc-prop-engine/internal/model"
)

func candle(tm int64, close float64) model.Candle {
	return model.Candle{Time: tm, Open: close, High: close + 1, Low: close - 1, Close: close}
}

func TestCandleStore_SetGetIsolated(t *testing.T) {
	cs := model.NewCandleStore()
	cs.Set("BTCUSDT", "15m", []model.Candle{candle(1, 100), candle(2, 101)})

	got := cs.Get("BTCUSDT", "15m")
	if len(got) != 2 {
		t.Fatalf("len = %d", len(got))
	}
	// Get 返回副本，调用方改不动存储
	got[0].Close = 999
	if cs.Get("BTCUSDT", "15m")[0].Close == 999 {
		t.Fatal("Get must return a copy")
	}

	if cs.HasData("BTCUSDT", "1h") {
		t.Fatal("different timeframe must be a separate series")
	}
}

func TestCandleStore_UpdateInPlaceOrAppend(t *testing.T) {
	cs := model.NewCandleStore()
	cs.Set("BTCUSDT", "15m", []model.Candle{candle(1, 100)})

	// 同时间戳：原地覆盖 (未收盘 K 线更新)
	cs.Update("BTCUSDT", "15m", candle(1, 105))
	got := cs.Get("BTCUSDT", "15m")
	if len(got) != 1 || got[0].Close != 105 {
		t.Fatalf("same timestamp must overwrite in place, got %+v", got)
	}

	// 新时间戳：追加
	cs.Update("BTCUSDT", "15m", candle(2, 106))
	got = cs.Get("BTCUSDT", "15m")
	if len(got) != 2 || got[1].Close != 106 {
		t.Fatalf("new timestamp must append, got %+v", got)
	}
}

func TestCandleStore_Trim(t *testing.T) {
	cs := model.NewCandleStore()
	var candles []model.Candle
	for i := 0; i < model.DefaultMaxCandles+20; i++ {
		candles = append(candles, candle(int64(i), 100))
	}
	cs.Set("BTCUSDT", "15m", candles)

	got := cs.Get("BTCUSDT", "15m")
	if len(got) != model.DefaultMaxCandles {
		t.Fatalf("len = %d, want %d", len(got), model.DefaultMaxCandles)
	}
	// 保留的是最近的
	if got[len(got)-1].Time != int64(model.DefaultMaxCandles+19) {
		t.Fatalf("last candle time = %d", got[len(got)-1].Time)
	}
}

func TestCandleClosePosition(t *testing.T) {
	c := model.Candle{Open: 100, High: 110, Low: 100, Close: 108}
	if got := c.ClosePosition(); got != 0.8 {
		t.Fatalf("ClosePosition = %f", got)
	}
	// 全幅为 0 时返回 0.5
	flat := model.Candle{Open: 100, High: 100, Low: 100, Close: 100}
	if got := flat.ClosePosition(); got != 0.5 {
		t.Fatalf("zero-range ClosePosition = %f", got)
	}
}
