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

// ScanS1 策略一：连续更高高点后的扫荡回升。
// 形态：≥3 个连续 Higher High → 突然的向下位移扫掉低点 →
// 向上位移确认 → 在 OB/FVG 的 50% 回撤处挂多单。
// SL 在扫荡最低点下方，TP 为向上位移的最高点。
func ScanS1(candles []model.Candle, settings service.Settings) *Signal {
	if !settings.EnableS1 {
		return nil
	}
	if len(candles) < 80 {
		return nil
	}

	atrVal := ta.LatestATR(candles, ta.DefaultATRPeriod)
	if atrVal == 0 {
		return nil
	}

	slBuf := atrVal * settings.SLBuffer
	minRR := settings.MinRR

	window := candles
	if len(window) > 120 {
		window = window[len(window)-120:]
	}
	sHigh, _ := ta.DetectSwings(window, 3, 3)

	// 找 ≥3 个连续抬高的摆动高点
	var hh []model.SwingPoint
	for i := 1; i < len(sHigh); i++ {
		if sHigh[i].Price > sHigh[i-1].Price {
			if len(hh) == 0 {
				hh = append(hh, sHigh[i-1])
			}
			hh = append(hh, sHigh[i])
		} else {
			if len(hh) >= 3 {
				break
			}
			hh = hh[:0]
		}
	}
	if len(hh) < 3 {
		return nil
	}

	lastHH := hh[len(hh)-1]
	afterHH := window[lastHH.Index:]
	if len(afterHH) < 6 {
		return nil
	}

	// 最后一个 HH 之后的向下位移扫荡，取最深的那根
	sweepDownIdx := -1
	sweepDownLow := math.Inf(1)
	for i := 1; i < len(afterHH); i++ {
		c := afterHH[i]
		if c.Bearish() && ta.IsDisplacement(c, afterHH[:i], atrVal, 1.0, settings.VolumeMultiplier) {
			if c.Low < sweepDownLow {
				sweepDownLow = c.Low
				sweepDownIdx = i
			}
		}
	}
	// 没有位移级别的扫荡时退而求其次：收阴且低点明显跌破最后一个 HH
	if sweepDownIdx < 0 {
		for i := 1; i < len(afterHH); i++ {
			c := afterHH[i]
			if c.Bearish() && c.Low < lastHH.Price*0.995 {
				if c.Low < sweepDownLow {
					sweepDownLow = c.Low
					sweepDownIdx = i
				}
			}
		}
	}
	if sweepDownIdx < 0 {
		return nil
	}

	// 扫荡之后的向上位移，取最高的那根
	afterSweep := afterHH[sweepDownIdx:]
	if len(afterSweep) < 4 {
		return nil
	}

	upDispIdx := -1
	upDispHigh := math.Inf(-1)
	for i := 1; i < len(afterSweep); i++ {
		c := afterSweep[i]
		if c.Bullish() && ta.IsDisplacement(c, afterSweep[:i], atrVal, 1.0, settings.VolumeMultiplier) {
			if c.High > upDispHigh {
				upDispHigh = c.High
				upDispIdx = i
			}
		}
	}
	if upDispIdx < 0 {
		return nil
	}

	// TP = 向上位移的最高点
	tp := afterSweep[upDispIdx].High

	ob := ta.DetectOB(afterSweep, upDispIdx, model.DirLong)
	fvg := ta.DetectFVG(afterSweep, upDispIdx, model.DirLong)
	entry := ta.EntryZone(afterSweep, upDispIdx, model.DirLong)
	if entry == 0 {
		entry = afterSweep[upDispIdx].Open
	}

	sl := sweepDownLow - slBuf

	// 形态还没失效：TP/SL 都尚未被触达，且现价离入场区不远
	cur := candles[len(candles)-1].Close
	if cur > tp*0.99 {
		return nil
	}
	if cur < sl*1.001 {
		return nil
	}
	if math.Abs(cur-entry)/atrVal > 5 {
		return nil
	}

	rr := risk.CalcRR(entry, sl, tp)
	if rr < minRR {
		return nil
	}
	gain := pctGain(entry, tp)

	return &Signal{
		Strategy:  "S1",
		Name:      "HH Displacement Sweep",
		Direction: model.DirLong,
		Entry:     stats.Round(entry, 6),
		SL:        stats.Round(sl, 6),
		TP:        stats.Round(tp, 6),
		RR:        rr,
		GainPct:   gain,
		WinRate:   0.63,
		ATR:       atrVal,
		Time:      candles[len(candles)-1].Time,
		Timeframe: "15m",
		Details: S1Details{
			HHCount:    len(hh),
			SweepLow:   stats.Round(sweepDownLow, 6),
			UpMoveHigh: stats.Round(upDispHigh, 6),
			OB:         ob,
			FVG:        fvg,
		},
		Reasoning: buildS1Reasoning(len(hh), sweepDownLow, tp, entry, sl, rr, gain),
	}
}

func buildS1Reasoning(hhCount int, sweepLow, tp, entry, sl, rr, gain float64) string {
	lines := []string{
		"S1 - Higher High Displacement Sweep",
		"",
		"PATTERN DETECTED:",
		fmt.Sprintf("  %dx higher highs confirmed (min 3 required)", hhCount),
		fmt.Sprintf("  displacement candle DOWN sweeping lows @ %.2f", sweepLow),
		"  displacement move UP confirmed",
		fmt.Sprintf("  TP target = highest point of up move: %.2f", tp),
		"",
		"TRADE SETUP:",
		fmt.Sprintf("  Entry  : %.2f (50%% OB/FVG retracement)", entry),
		fmt.Sprintf("  Stop   : %.2f (below lowest sweep point)", sl),
		fmt.Sprintf("  Target : %.2f (top of displacement up)", tp),
		fmt.Sprintf("  R:R    : %.2f  |  expected gain: +%.2f%%", rr, gain),
	}
	return strings.Join(lines, "\n")
}
