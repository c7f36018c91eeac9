package session

import (
	"time"

	"smc-prop-engine/internal/model"
)

// Name 交易时段
type Name string

const (
	Asian  Name = "Asian"
	London Name = "London"
	NY     Name = "NY"
	Off    Name = "Off"
)

// Current 按 UTC 小时划分时段：
// Asian 00-08，London 08-12，NY 13-17，其余为 Off
func Current(t time.Time) Name {
	hour := t.UTC().Hour()
	switch {
	case hour < 8:
		return Asian
	case hour < 12:
		return London
	case hour >= 13 && hour < 17:
		return NY
	}
	return Off
}

// IsLondonOrNY 是否处于主力时段 (流动性扫荡形态最可靠的窗口)
func IsLondonOrNY(t time.Time) bool {
	s := Current(t)
	return s == London || s == NY
}

// IsValid 时段过滤开关：关闭时恒真，开启时只要不是 Off 就放行
func IsValid(t time.Time, sessionFilter bool) bool {
	if !sessionFilter {
		return true
	}
	return Current(t) != Off
}

// Range 一个时段的高低点
type Range struct {
	High float64
	Low  float64
}

// AsianRange 当日亚盘 (UTC 00:00-08:00) 的高低点，
// 没有落在窗口内的 K 线时返回 nil。
func AsianRange(candles []model.Candle, now time.Time) *Range {
	day := now.UTC().Truncate(24 * time.Hour)
	start := day.UnixMilli()
	end := day.Add(8 * time.Hour).UnixMilli()

	var r *Range
	for _, c := range candles {
		if c.Time < start || c.Time >= end {
			continue
		}
		if r == nil {
			r = &Range{High: c.High, Low: c.Low}
			continue
		}
		if c.High > r.High {
			r.High = c.High
		}
		if c.Low < r.Low {
			r.Low = c.Low
		}
	}
	return r
}
