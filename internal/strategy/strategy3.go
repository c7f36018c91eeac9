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

// ScanS3 策略三：主要卖方流动性扫荡加 MSS 确认。
// 形态：窗口内最显著的摆动低点被影线下破且实体收回 (扫池) →
// 反弹段内形成摆动高点 → 实体收盘突破该高点 (ICT MSS，影线不算) →
// 向上位移 (或连续 3 根阳线) 确认冲击。
// SL 在扫荡最低点下方，TP 为高周期买方流动性。
func ScanS3(candles, htf []model.Candle, settings service.Settings) *Signal {
	if !settings.EnableS3 {
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
	if len(window) > 150 {
		window = window[len(window)-150:]
	}
	_, sLow := ta.DetectSwings(window, 4, 4)
	if len(sLow) < 2 {
		return nil
	}

	// 1. 主要卖方流动性 = 窗口内最低的摆动低点
	majorLow := sLow[0]
	for _, l := range sLow[1:] {
		if l.Price < majorLow.Price {
			majorLow = l
		}
	}

	// 2. 找扫池：影线跌破主要低点但实体收回其上，取最深的那根
	afterMajorLow := window[majorLow.Index:]
	sweepIdx := -1
	sweepLowPrice := math.Inf(1)
	for i := 1; i < len(afterMajorLow); i++ {
		c := afterMajorLow[i]
		if c.Low < majorLow.Price && c.Close > majorLow.Price {
			if c.Low < sweepLowPrice {
				sweepLowPrice = c.Low
				sweepIdx = i
			}
		}
	}
	if sweepIdx < 0 {
		return nil
	}

	postSweep := afterMajorLow[sweepIdx:]
	if len(postSweep) < 5 {
		return nil
	}

	// 3. ICT MSS：反弹段内的第一个摆动高点为 MSS 位，
	//    之后必须出现实体收盘突破 (只看 close，影线从不确认)
	reactionWindow := postSweep
	if len(reactionWindow) > 30 {
		reactionWindow = reactionWindow[:30]
	}
	reactionHighs, _ := ta.DetectSwings(reactionWindow, 2, 2)
	if len(reactionHighs) == 0 {
		return nil
	}

	mssLevel := reactionHighs[0].Price
	mssIdx := -1
	var mssConfirm float64
	for i := reactionHighs[0].Index + 1; i < len(reactionWindow); i++ {
		if ta.ConfirmBodyClose(reactionWindow[i], mssLevel, model.DirLong) {
			mssIdx = i
			mssConfirm = reactionWindow[i].Close
			break
		}
	}
	if mssIdx < 0 {
		return nil
	}

	// 4. MSS 之后的冲击位移，位移不达标时接受连续 3 根阳线
	afterMSS := reactionWindow[mssIdx:]
	if len(afterMSS) < 3 {
		return nil
	}

	impDispIdx := -1
	for i := 0; i < len(afterMSS); i++ {
		c := afterMSS[i]
		if c.Bullish() && ta.IsDisplacement(c, afterMSS[:i], atrVal, 1.1, settings.VolumeMultiplier) {
			impDispIdx = i
			break
		}
	}
	if impDispIdx < 0 {
		consecutive := 0
		for i := 0; i < len(afterMSS); i++ {
			if afterMSS[i].Bullish() {
				consecutive++
			} else {
				consecutive = 0
			}
			if consecutive >= 3 {
				impDispIdx = i
				break
			}
		}
	}
	if impDispIdx < 0 {
		return nil
	}

	// 5. 入场：冲击段 OB/FVG 的 50% 回撤，没有就取冲击段的中位
	impMoveBase := afterMSS[0].Low
	impMoveTop := afterMSS[impDispIdx].High
	ob := ta.DetectOB(afterMSS, impDispIdx, model.DirLong)
	fvg := ta.DetectFVG(afterMSS, impDispIdx, model.DirLong)
	entry := ta.EntryZone(afterMSS, impDispIdx, model.DirLong)
	if entry == 0 {
		entry = impMoveBase + (impMoveTop-impMoveBase)*0.5
	}

	// 6. SL 在扫荡最低点下方
	sl := sweepLowPrice - slBuf

	// 7. TP：高周期买方流动性 → 扫荡前最后一个摆动高点 → 冲击顶部上方
	tp := ta.HTFBuySideLiquidity(htf, 100)
	if tp == 0 {
		preHighs, _ := ta.DetectSwings(window[:majorLow.Index+1], 3, 3)
		if len(preHighs) > 0 {
			tp = preHighs[len(preHighs)-1].Price
		} else {
			tp = impMoveTop * 1.01
		}
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
		Strategy:  "S3",
		Name:      "Major SSL Sweep + MSS",
		Direction: model.DirLong,
		Entry:     stats.Round(entry, 6),
		SL:        stats.Round(sl, 6),
		TP:        stats.Round(tp, 6),
		RR:        rr,
		GainPct:   gain,
		WinRate:   0.65,
		ATR:       atrVal,
		Time:      candles[len(candles)-1].Time,
		Timeframe: "15m",
		Details: S3Details{
			MajorLow:   stats.Round(majorLow.Price, 6),
			SweepLow:   stats.Round(sweepLowPrice, 6),
			MSSLevel:   stats.Round(mssLevel, 6),
			MSSConfirm: stats.Round(mssConfirm, 6),
			HTFTarget:  stats.Round(tp, 6),
			OB:         ob,
			FVG:        fvg,
		},
		Reasoning: buildS3Reasoning(majorLow.Price, sweepLowPrice, mssLevel, entry, sl, tp, rr, gain),
	}
}

func buildS3Reasoning(majorLow, sweepLow, mssLevel, entry, sl, tp, rr, gain float64) string {
	lines := []string{
		"S3 - Major SSL Sweep + ICT MSS Confirmation",
		"",
		"PATTERN DETECTED:",
		fmt.Sprintf("  major sell-side liquidity identified @ %.2f", majorLow),
		fmt.Sprintf("  sweep below major low @ %.2f (wick below, close above)", sweepLow),
		"  reaction / bounce from sweep low",
		fmt.Sprintf("  ICT MSS: body close above %.2f confirmed", mssLevel),
		"  impulsive displacement UP after MSS",
		fmt.Sprintf("  HTF buy-side target: %.2f", tp),
		"",
		"TRADE SETUP:",
		fmt.Sprintf("  Entry  : %.2f (50%% retracement of impulse)", entry),
		fmt.Sprintf("  Stop   : %.2f (below sweep low)", sl),
		fmt.Sprintf("  Target : %.2f (HTF buyside liquidity)", tp),
		fmt.Sprintf("  R:R    : %.2f  |  expected gain: +%.2f%%", rr, gain),
	}
	return strings.Join(lines, "\n")
}
