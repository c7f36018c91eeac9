package ta_test

import (
	"testing"

	"smc-prop-engine/internal/model"
	"smc-prop-engine/pkg/ta"
)

func TestEntryZone_DeeperOfOBAndFVG(t *testing.T) {
	// OB (阴线实体 99.5-100.5, mid 100) 和 FVG (101-103, mid 102) 同时存在:
	// 做多取更高的中点 102
	candles := []model.Candle{
		mk(0, 100.5, 101, 99, 99.5), // 阴线 OB
		mk(1, 99.5, 106, 99, 105.5), // 位移
		mk(2, 105.5, 107, 103, 106), // 缺口下沿 103
	}
	entry := ta.EntryZone(candles, 1, model.DirLong)
	if entry != 102 {
		t.Fatalf("long entry should take the higher mid, got %f", entry)
	}
}

func TestEntryZone_OBOnly(t *testing.T) {
	candles := []model.Candle{
		mk(0, 100.5, 101, 99, 99.5),
		mk(1, 99.5, 106, 99, 105.5),
		mk(2, 105.5, 107, 100, 106), // 无缺口
	}
	entry := ta.EntryZone(candles, 1, model.DirLong)
	want := (100.5 + 99.5) / 2
	if entry != want {
		t.Fatalf("expected OB mid %f, got %f", want, entry)
	}
}

func TestEntryZone_NoneFallsBackToZero(t *testing.T) {
	candles := []model.Candle{
		mk(0, 99, 103, 98, 100), // 阳线，不是 OB
		mk(1, 100, 106, 99, 105.5),
		mk(2, 105.5, 107, 100, 106),
	}
	if entry := ta.EntryZone(candles, 1, model.DirLong); entry != 0 {
		t.Fatalf("no OB and no FVG must return 0, got %f", entry)
	}
}

func TestHasRetracedToEntry(t *testing.T) {
	entry := 100.0
	touched := mk(0, 101, 102, 99.9, 101)
	if !ta.HasRetracedToEntry(touched, entry, model.DirLong, 0) {
		t.Fatal("low at or below entry should count as retraced")
	}
	missed := mk(0, 101, 102, 100.5, 101)
	if ta.HasRetracedToEntry(missed, entry, model.DirLong, 0) {
		t.Fatal("low above entry has not retraced")
	}
}

func TestIsEntryValid(t *testing.T) {
	if ta.IsEntryValid(mk(0, 96, 97, 94, 96), 95, model.DirLong) {
		t.Fatal("low at or below stop invalidates the entry")
	}
	if !ta.IsEntryValid(mk(0, 96, 97, 95.5, 96), 95, model.DirLong) {
		t.Fatal("low above stop keeps the entry valid")
	}
}
