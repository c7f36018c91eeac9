package backtest

import (
	"errors"
	"math"
	"math/rand"
	"runtime"
	"sort"
	"sync"

	"smc-prop-engine/internal/model"
	"smc-prop-engine/pkg/stats"
)

// ruinThresholdPct Monte Carlo 的破产线：最终权益低于初始的这个比例
const ruinThresholdPct = 0.5

// ErrInvalidIterations 迭代次数非法 (≤0) 属于致命配置错误
var ErrInvalidIterations = errors.New("monte carlo iterations must be positive")

// minMCTrades 样本太少时重排毫无意义，静默返回 nil
const minMCTrades = 5

// Bands 每个交易序号处权益的百分位带
type Bands struct {
	P10 []float64
	P25 []float64
	P50 []float64
	P75 []float64
	P90 []float64
}

// MCResult Monte Carlo 输出
type MCResult struct {
	Iterations    int
	FinalEquities []float64 // 升序
	Curves        Bands
	MedianFinal   float64
	P10Final      float64
	P90Final      float64
	RiskOfRuin    float64 // 最终权益低于初始 50% 的模拟占比 (百分比)
	WorstDD       float64
	MedianDD      float64
}

// RunMonteCarlo 重排交易顺序 (保持盈亏多重集不变) iterations 次，
// 对每次重排在相同初始权益上重放出合成权益曲线，量化顺序依赖风险。
// seed 固定时结果完全可复现；每次迭代使用 seed+迭代序号派生的独立随机源，
// 因此迭代间可以安全并行。交易少于 5 笔时返回 (nil, nil)。
// 权益累计不截断，只有曲线上的记录点截到 0：中途跌破 0 的重排
// 不会扭曲后续累计，最终权益始终等于 initial + sum(pnl)。
func RunMonteCarlo(trades []model.Trade, initialEquity float64, iterations int, seed int64) (*MCResult, error) {
	if iterations <= 0 {
		return nil, ErrInvalidIterations
	}
	if len(trades) < minMCTrades {
		return nil, nil
	}

	pnls := make([]float64, len(trades))
	for i, t := range trades {
		pnls[i] = t.PnL
	}

	curveLen := len(trades) + 1
	allCurves := make([][]float64, iterations)

	workers := runtime.GOMAXPROCS(0)
	if workers > iterations {
		workers = iterations
	}
	var wg sync.WaitGroup
	jobs := make(chan int)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for it := range jobs {
				rng := rand.New(rand.NewSource(seed + int64(it)))
				shuffled := make([]float64, len(pnls))
				copy(shuffled, pnls)
				fisherYates(shuffled, rng)

				curve := make([]float64, 0, curveLen)
				eq := initialEquity
				curve = append(curve, eq)
				for _, pnl := range shuffled {
					eq += pnl
					curve = append(curve, stats.Clamp(eq, 0, math.MaxFloat64))
				}
				allCurves[it] = curve
			}
		}()
	}
	for it := 0; it < iterations; it++ {
		jobs <- it
	}
	close(jobs)
	wg.Wait()

	return aggregate(allCurves, initialEquity, iterations, curveLen), nil
}

// fisherYates 无偏洗牌
func fisherYates(arr []float64, rng *rand.Rand) {
	for i := len(arr) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		arr[i], arr[j] = arr[j], arr[i]
	}
}

// aggregate 汇总所有模拟曲线：最终权益分布、百分位带、破产率、回撤分布
func aggregate(allCurves [][]float64, initialEquity float64, iterations, curveLen int) *MCResult {
	finals := make([]float64, iterations)
	ruin := 0
	dds := make([]float64, iterations)
	for i, curve := range allCurves {
		finals[i] = curve[len(curve)-1]
		if finals[i] < initialEquity*ruinThresholdPct {
			ruin++
		}
		dds[i] = stats.MaxDrawdown(curve)
	}
	sort.Float64s(finals)
	sort.Float64s(dds)

	bands := Bands{
		P10: make([]float64, curveLen),
		P25: make([]float64, curveLen),
		P50: make([]float64, curveLen),
		P75: make([]float64, curveLen),
		P90: make([]float64, curveLen),
	}
	col := make([]float64, iterations)
	for i := 0; i < curveLen; i++ {
		for j, curve := range allCurves {
			idx := i
			if idx >= len(curve) {
				idx = len(curve) - 1
			}
			col[j] = curve[idx]
		}
		sort.Float64s(col)
		bands.P10[i] = col[iterations*10/100]
		bands.P25[i] = col[iterations*25/100]
		bands.P50[i] = col[iterations*50/100]
		bands.P75[i] = col[iterations*75/100]
		bands.P90[i] = col[iterations*90/100]
	}

	return &MCResult{
		Iterations:    iterations,
		FinalEquities: finals,
		Curves:        bands,
		MedianFinal:   stats.Round(finals[iterations*50/100], 2),
		P10Final:      stats.Round(finals[iterations*10/100], 2),
		P90Final:      stats.Round(finals[iterations*90/100], 2),
		RiskOfRuin:    stats.Round(float64(ruin)/float64(iterations)*100, 1),
		WorstDD:       stats.Round(dds[len(dds)-1], 1),
		MedianDD:      stats.Round(dds[iterations*50/100], 1),
	}
}
