package stats_test

import (
	"math"
	"testing"

	"smc-prop-engine/pkg/stats"
)

func almost(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestRound(t *testing.T) {
	if got := stats.Round(1.23456, 2); got != 1.23 {
		t.Fatalf("Round(1.23456, 2) = %f", got)
	}
	if got := stats.Round(-1.005, 2); got != -1.0 {
		t.Fatalf("Round(-1.005, 2) = %f", got)
	}
}

func TestMeanStd(t *testing.T) {
	vals := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	if got := stats.Mean(vals); !almost(got, 5) {
		t.Fatalf("Mean = %f", got)
	}
	// 样本标准差 (n-1)
	if got := stats.Std(vals); !almost(got, math.Sqrt(32.0/7.0)) {
		t.Fatalf("Std = %f", got)
	}
	if stats.Mean(nil) != 0 || stats.Std([]float64{1}) != 0 {
		t.Fatal("degenerate inputs must give 0")
	}
}

func TestClamp(t *testing.T) {
	if got := stats.Clamp(5, 0, 10); got != 5 {
		t.Fatalf("Clamp(5,0,10) = %f", got)
	}
	if got := stats.Clamp(-3, 0, 10); got != 0 {
		t.Fatalf("Clamp(-3,0,10) = %f", got)
	}
	if got := stats.Clamp(42, 0, 10); got != 10 {
		t.Fatalf("Clamp(42,0,10) = %f", got)
	}
}

func TestMaxDrawdown(t *testing.T) {
	curve := []float64{10000, 11000, 9900, 10500, 12000}
	// 峰 11000 → 谷 9900 = 10%
	if got := stats.MaxDrawdown(curve); got != 10 {
		t.Fatalf("MaxDrawdown = %f", got)
	}
	// 单调上升无回撤
	if got := stats.MaxDrawdown([]float64{1, 2, 3}); got != 0 {
		t.Fatalf("monotonic curve must have 0 drawdown, got %f", got)
	}
}

func TestProfitFactor(t *testing.T) {
	if got := stats.ProfitFactor([]float64{300, 200}, []float64{-100, -150}); got != 2 {
		t.Fatalf("ProfitFactor = %f", got)
	}
	// 零亏损 → 有限哨兵值，不是 +Inf
	got := stats.ProfitFactor([]float64{300}, nil)
	if got != stats.ProfitFactorCap {
		t.Fatalf("all-win ledger must hit the sentinel cap, got %f", got)
	}
	if math.IsInf(got, 1) {
		t.Fatal("profit factor must never be infinite")
	}
	if stats.ProfitFactor(nil, nil) != 0 {
		t.Fatal("empty ledger gives 0")
	}
}

func TestExpectancy(t *testing.T) {
	// 0.6×2R - 0.4×1R = 0.8R
	if got := stats.Expectancy(0.6, 2, -1); !almost(got, 0.8) {
		t.Fatalf("Expectancy = %f", got)
	}
}

func TestSharpeZeroVol(t *testing.T) {
	if got := stats.Sharpe([]float64{0.01, 0.01, 0.01}, 0); got != 0 {
		t.Fatalf("zero volatility must give 0, got %f", got)
	}
	if got := stats.Sharpe(nil, 0); got != 0 {
		t.Fatalf("empty returns must give 0, got %f", got)
	}
}

func TestSortinoAllPositive(t *testing.T) {
	if got := stats.Sortino([]float64{0.01, 0.02, 0.03}, 0); got != 0 {
		t.Fatalf("no downside returns must give 0, got %f", got)
	}
}

func TestSortinoEqualLosses(t *testing.T) {
	// 固定比例风控的典型账本：每次止损亏损幅度相同。
	// 下行均方根 = 0.01，均值 0.0075 → 0.75×√252 = 11.91
	got := stats.Sortino([]float64{0.02, -0.01, 0.03, -0.01}, 0)
	if !almost(got, 11.91) {
		t.Fatalf("equal losses must give a finite positive ratio, got %f", got)
	}
}

func TestSortinoSingleLoss(t *testing.T) {
	// 均值 0.04/3，下行均方根 0.01 → 1.3333×√252 = 21.17
	got := stats.Sortino([]float64{0.02, -0.01, 0.03}, 0)
	if !almost(got, 21.17) {
		t.Fatalf("single loss must give a finite positive ratio, got %f", got)
	}
}
