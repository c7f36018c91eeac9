package strategy

import (
	"fmt"
	"math"
	"strings"

	"smc-prop-engine/internal/model"
	"smc-prop-engine/internal/risk"
	"smc-prop-engine/internal/service"
	"smc-prop-engine/pkg/stats"
	"smc-prop-engine/pkg/ta"
)

// ScanS2 策略二：区间下破扫荡加空头陷阱。
// 形态：支撑区间盘整 → 向下扫掉区间低点 (拿走卖方流动性) →
// 小幅反弹诱空 → 向上位移确认真实方向。
// SL 在扫荡最低点下方，TP 为高周期买方流动性。
// htf 为高周期 K 线，可以为空 (TP 回退到区间高点上方)。
func ScanS2(candles, htf []model.Candle, settings service.Settings) *Signal {
	if !settings.EnableS2 {
		return nil
	}
	if len(candles) < 100 {
		return nil
	}

	atrVal := ta.LatestATR(candles, ta.DefaultATRPeriod)
	if atrVal == 0 {
		return nil
	}

	slBuf := atrVal * settings.SLBuffer
	minRR := settings.MinRR

	window := candles
	if len(window) > 150 {
		window = window[len(window)-150:]
	}
	n := len(window)

	// 1. 识别支撑区间：窗口前 60% 的盘整段
	rangeCandles := window[:n*6/10]
	if len(rangeCandles) < 40 {
		return nil
	}
	box := ta.GetDealingRange(rangeCandles, len(rangeCandles))
	rangeHigh, rangeLow := box.High, box.Low
	rangeSize := rangeHigh - rangeLow

	// 区间太窄不算盘整，太宽不算区间
	if rangeSize < atrVal*2 || rangeSize > atrVal*20 {
		return nil
	}

	// 2. 在窗口后半段找跌破区间低点的扫荡，取最深的那根
	afterRange := window[n/2:]
	sweepIdx := -1
	sweepLow := math.Inf(1)
	for i, c := range afterRange {
		if c.Low < rangeLow-atrVal*0.3 {
			if c.Low < sweepLow {
				sweepLow = c.Low
				sweepIdx = i
			}
		}
	}
	if sweepIdx < 0 {
		return nil
	}

	// 3. 扫荡后的小幅反弹 (诱空)，再找真正的向上位移
	postSweep := afterRange[sweepIdx:]
	if len(postSweep) < 5 {
		return nil
	}

	bounceHigh := sweepLow
	bounceEnd := 0
	bounceScan := len(postSweep)
	if bounceScan > 10 {
		bounceScan = 10
	}
	for i := 1; i < bounceScan; i++ {
		if postSweep[i].High > bounceHigh {
			bounceHigh = postSweep[i].High
			bounceEnd = i
		}
	}
	if bounceHigh-sweepLow < atrVal*0.3 {
		return nil
	}

	afterBounce := postSweep[bounceEnd:]
	if len(afterBounce) < 3 {
		return nil
	}

	mainDispIdx := -1
	for i := 1; i < len(afterBounce); i++ {
		c := afterBounce[i]
		if c.Bullish() && ta.IsDisplacement(c, afterBounce[:i], atrVal, 1.0, settings.VolumeMultiplier) {
			mainDispIdx = i
			break
		}
	}
	if mainDispIdx < 0 {
		return nil
	}

	// 4. 入场：向上位移的 OB/FVG 50% 回撤，没有就取扫荡低点到位移高点的中位
	ob := ta.DetectOB(afterBounce, mainDispIdx, model.DirLong)
	fvg := ta.DetectFVG(afterBounce, mainDispIdx, model.DirLong)
	entry := ta.EntryZone(afterBounce, mainDispIdx, model.DirLong)
	if entry == 0 {
		entry = sweepLow + (afterBounce[mainDispIdx].High-sweepLow)*0.5
	}

	// 5. SL 在扫荡最低点下方
	sl := sweepLow - slBuf

	// 6. TP：高周期买方流动性，没有高周期数据时回退到区间高点上方
	tp := ta.HTFBuySideLiquidity(htf, 100)
	if tp == 0 {
		tp = rangeHigh * 1.015
	}

	cur := candles[len(candles)-1].Close
	if cur > tp*0.99 {
		return nil
	}
	if cur < sl*1.001 {
		return nil
	}
	if math.Abs(cur-entry)/atrVal > 8 {
		return nil
	}

	rr := risk.CalcRR(entry, sl, tp)
	if rr < minRR {
		return nil
	}
	gain := pctGain(entry, tp)

	return &Signal{
		Strategy:  "S2",
		Name:      "Range Sweep + Short Trap",
		Direction: model.DirLong,
		Entry:     stats.Round(entry, 6),
		SL:        stats.Round(sl, 6),
		TP:        stats.Round(tp, 6),
		RR:        rr,
		GainPct:   gain,
		WinRate:   0.60,
		ATR:       atrVal,
		Time:      candles[len(candles)-1].Time,
		Timeframe: "15m",
		Details: S2Details{
			RangeHigh:  stats.Round(rangeHigh, 6),
			RangeLow:   stats.Round(rangeLow, 6),
			SweepLow:   stats.Round(sweepLow, 6),
			BounceHigh: stats.Round(bounceHigh, 6),
			HTFTarget:  stats.Round(tp, 6),
			OB:         ob,
			FVG:        fvg,
		},
		Reasoning: buildS2Reasoning(rangeHigh, rangeLow, sweepLow, bounceHigh, entry, sl, tp, rr, gain),
	}
}

func buildS2Reasoning(rh, rl, sweep, bounce, entry, sl, tp, rr, gain float64) string {
	lines := []string{
		"S2 - Range Sweep + Short Trap -> Displacement",
		"",
		"PATTERN DETECTED:",
		fmt.Sprintf("  support range identified: %.2f to %.2f", rl, rh),
		fmt.Sprintf("  sweep DOWN below range @ %.2f (sell-side liquidity taken)", sweep),
		fmt.Sprintf("  small bounce up to %.2f (trapping shorts)", bounce),
		"  displacement UP move confirmed",
		fmt.Sprintf("  HTF buy-side target: %.2f", tp),
		"",
		"TRADE SETUP:",
		fmt.Sprintf("  Entry  : %.2f (50%% OB/FVG retracement)", entry),
		fmt.Sprintf("  Stop   : %.2f (below sweep low)", sl),
		fmt.Sprintf("  Target : %.2f (HTF buyside liquidity)", tp),
		fmt.Sprintf("  R:R    : %.2f  |  expected gain: +%.2f%%", rr, gain),
	}
	return strings.Join(lines, "\n")
}
