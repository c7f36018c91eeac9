package ta

import "smc-prop-engine/internal/model"

// DefaultVolumePeriod 平均成交量的回看根数
const DefaultVolumePeriod = 20

// AvgVolume 最近 period 根 K 线的平均成交量
func AvgVolume(candles []model.Candle, period int) float64 {
	if period <= 0 || len(candles) == 0 {
		return 0
	}
	if len(candles) > period {
		candles = candles[len(candles)-period:]
	}
	sum := 0.0
	for _, c := range candles {
		sum += c.Volume
	}
	return sum / float64(len(candles))
}

// IsVolumeSpike 判断成交量是否放大到均量的 multiplier 倍以上。
// 没有成交量历史 (均量为 0) 时放行，宁可多报不可漏报。
func IsVolumeSpike(candle model.Candle, history []model.Candle, multiplier float64, period int) bool {
	avg := AvgVolume(history, period)
	if avg == 0 {
		return true
	}
	return candle.Volume >= avg*multiplier
}
