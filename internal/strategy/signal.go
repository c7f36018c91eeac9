package strategy

import (
	"smc-prop-engine/internal/model"
	"smc-prop-engine/pkg/ta"
)

// Signal 一次完整的入场信号。扫描命中即生成，不可变；
// 同一形态在相邻 K 线可能重复命中，去重交给告警层。
type Signal struct {
	ID        string
	Strategy  string // S1 / S2 / S3
	Name      string
	Symbol    string
	Direction model.Direction
	Entry     float64
	SL        float64
	TP        float64
	RR        float64
	GainPct   float64 // 入场到止盈的价格变动百分比
	WinRate   float64 // 策略标称胜率 (静态估计)
	ATR       float64
	Time      int64
	Timeframe string
	Details   Details
	Reasoning string
}

// Details 各策略的形态明细，打标签的联合类型
type Details interface {
	StrategyID() string
}

// S1Details 高点连创后扫荡回升形态的明细
type S1Details struct {
	HHCount    int
	SweepLow   float64
	UpMoveHigh float64
	OB         *ta.Zone
	FVG        *ta.Zone
}

func (S1Details) StrategyID() string { return "S1" }

// S2Details 区间下破扫荡加空头陷阱形态的明细
type S2Details struct {
	RangeHigh  float64
	RangeLow   float64
	SweepLow   float64
	BounceHigh float64
	HTFTarget  float64
	OB         *ta.Zone
	FVG        *ta.Zone
}

func (S2Details) StrategyID() string { return "S2" }

// S3Details 主要卖方流动性扫荡加 MSS 确认形态的明细
type S3Details struct {
	MajorLow   float64
	SweepLow   float64
	MSSLevel   float64
	MSSConfirm float64
	HTFTarget  float64
	OB         *ta.Zone
	FVG        *ta.Zone
}

func (S3Details) StrategyID() string { return "S3" }
