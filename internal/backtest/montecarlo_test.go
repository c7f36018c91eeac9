package backtest_test

import (
	"errors"
	"math"
	"testing"

	"smc-prop-engine/internal/backtest"
	"smc-prop-engine/internal/model"
)

func mcLedger(pnls []float64) []model.Trade {
	trades := make([]model.Trade, len(pnls))
	for i, p := range pnls {
		trades[i] = mkTrade("S1", p, p/100)
	}
	return trades
}

func TestRunMonteCarlo_InvalidIterations(t *testing.T) {
	trades := mcLedger([]float64{10, -5, 7, -3, 4, 1})
	for _, n := range []int{0, -1} {
		if _, err := backtest.RunMonteCarlo(trades, 10000, n, 42); !errors.Is(err, backtest.ErrInvalidIterations) {
			t.Fatalf("iterations=%d: want ErrInvalidIterations, got %v", n, err)
		}
	}
}

func TestRunMonteCarlo_TooFewTrades(t *testing.T) {
	trades := mcLedger([]float64{10, -5, 7})
	res, err := backtest.RunMonteCarlo(trades, 10000, 100, 42)
	if err != nil {
		t.Fatalf("small sample must not be an error, got %v", err)
	}
	if res != nil {
		t.Fatalf("small sample must yield nil result, got %+v", res)
	}
}

func TestRunMonteCarlo_SeedDeterminism(t *testing.T) {
	trades := mcLedger([]float64{120, -60, 45, -30, 80, -15, 200, -90, 10, 33})

	a, err := backtest.RunMonteCarlo(trades, 10000, 200, 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := backtest.RunMonteCarlo(trades, 10000, 200, 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if a.MedianFinal != b.MedianFinal || a.RiskOfRuin != b.RiskOfRuin || a.WorstDD != b.WorstDD {
		t.Fatalf("same seed must reproduce aggregates: %+v vs %+v", a, b)
	}
	for i := range a.FinalEquities {
		if a.FinalEquities[i] != b.FinalEquities[i] {
			t.Fatalf("final equities diverge at %d: %f vs %f", i, a.FinalEquities[i], b.FinalEquities[i])
		}
	}
	for i := range a.Curves.P50 {
		if a.Curves.P50[i] != b.Curves.P50[i] {
			t.Fatalf("median band diverges at %d", i)
		}
	}
}

func TestRunMonteCarlo_ShufflePreservesSum(t *testing.T) {
	// 盈亏足够小，权益永远触不到 0 的钳制，
	// 因此每条重排路径的最终权益都等于初始权益加总盈亏
	pnls := []float64{10, -5, 7, -3, 4, 1, -2, 6}
	sum := 0.0
	for _, p := range pnls {
		sum += p
	}
	want := 1000 + sum

	res, err := backtest.RunMonteCarlo(mcLedger(pnls), 1000, 300, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, f := range res.FinalEquities {
		if math.Abs(f-want) > 1e-9 {
			t.Fatalf("final equity %f, want %f (shuffle must preserve the pnl multiset)", f, want)
		}
	}
	if res.RiskOfRuin != 0 {
		t.Fatalf("risk of ruin = %f, want 0", res.RiskOfRuin)
	}
}

func TestRunMonteCarlo_DipBelowZeroDoesNotDistort(t *testing.T) {
	// 某些重排顺序里权益会中途跌破 0。记录点截到 0，
	// 但累计照常进行，最终权益仍然是 initial + sum(pnl)。
	pnls := []float64{-150, 200, -150, 200, -10, -10}
	res, err := backtest.RunMonteCarlo(mcLedger(pnls), 100, 200, 11)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, f := range res.FinalEquities {
		if f != 180 {
			t.Fatalf("final equity %f, want 180 regardless of shuffle order", f)
		}
	}
	for i := range res.Curves.P10 {
		if res.Curves.P10[i] < 0 {
			t.Fatalf("recorded curve points must be clamped at 0, got %f", res.Curves.P10[i])
		}
	}
}

func TestRunMonteCarlo_BandsOrdered(t *testing.T) {
	trades := mcLedger([]float64{300, -200, 150, -100, 250, -180, 90, -60, 400, -300, 120, -40})

	res, err := backtest.RunMonteCarlo(trades, 5000, 500, 99)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Iterations != 500 || len(res.FinalEquities) != 500 {
		t.Fatalf("iteration bookkeeping wrong: %+v", res)
	}
	if len(res.Curves.P50) != len(trades)+1 {
		t.Fatalf("band length = %d, want %d", len(res.Curves.P50), len(trades)+1)
	}
	for i := range res.Curves.P50 {
		if res.Curves.P10[i] > res.Curves.P25[i] ||
			res.Curves.P25[i] > res.Curves.P50[i] ||
			res.Curves.P50[i] > res.Curves.P75[i] ||
			res.Curves.P75[i] > res.Curves.P90[i] {
			t.Fatalf("percentile bands out of order at index %d", i)
		}
	}
	if res.P10Final > res.MedianFinal || res.MedianFinal > res.P90Final {
		t.Fatalf("final percentiles out of order: %+v", res)
	}
	// 曲线在 0 处钳制，最终权益不可能为负
	for _, f := range res.FinalEquities {
		if f < 0 {
			t.Fatalf("clamped curve produced negative equity %f", f)
		}
	}
}
