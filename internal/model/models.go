package model

// Candle 单根 K 线，时间为毫秒时间戳。序列按时间升序，单一 (symbol, timeframe)
// 序列内不允许重复时间戳；只有直播中的最后一根 (未收盘) 会被原地更新。
type Candle struct {
	Time   int64   // 开盘时间 (epoch ms)
	Open   float64 // 开盘价
	High   float64 // 最高价
	Low    float64 // 最低价
	Close  float64 // 收盘价
	Volume float64 // 成交量
}

// Bullish 收阳
func (c Candle) Bullish() bool { return c.Close > c.Open }

// Bearish 收阴
func (c Candle) Bearish() bool { return c.Close < c.Open }

// Body 实体大小 (绝对值)
func (c Candle) Body() float64 {
	if c.Close > c.Open {
		return c.Close - c.Open
	}
	return c.Open - c.Close
}

// Range 全幅 (最高-最低)
func (c Candle) Range() float64 { return c.High - c.Low }

// ClosePosition 收盘价在全幅中的相对位置 (0=最低点, 1=最高点)。
// 全幅为 0 时返回 0.5，避免除零。
func (c Candle) ClosePosition() float64 {
	r := c.Range()
	if r == 0 {
		return 0.5
	}
	return (c.Close - c.Low) / r
}

// SwingPoint 摆动点：在对称左右窗口内的局部极值。派生数据，按需重算，不可变。
type SwingPoint struct {
	Index int     // 在扫描窗口内的下标
	Price float64 // 极值价格 (高点取 high，低点取 low)
	Time  int64   // 所在 K 线时间 (epoch ms)
}

// PoolType 流动性池类型
type PoolType string

const (
	PoolBSL PoolType = "BSL" // 等高点上方的买方流动性
	PoolSSL PoolType = "SSL" // 等低点下方的卖方流动性
	PoolPDH PoolType = "PDH" // 前 24 根周期高点
	PoolPDL PoolType = "PDL" // 前 24 根周期低点
	PoolSH  PoolType = "SH"  // 近期摆动高点
	PoolSL  PoolType = "SL"  // 近期摆动低点
)

// Upper 上方流动性 (被向上的影线扫掉)
func (t PoolType) Upper() bool {
	return t == PoolBSL || t == PoolPDH || t == PoolSH
}

// PoolStrength 流动性池强度分级
type PoolStrength string

const (
	StrengthEqual PoolStrength = "equal"
	StrengthMajor PoolStrength = "major"
	StrengthMinor PoolStrength = "minor"
)

// LiquidityPool 流动性池。每次扫描重新计算，不跨 K 线持久化；
// Swept 只在单次扫描内由调用方置位。
type LiquidityPool struct {
	Type     PoolType
	Price    float64
	Swept    bool
	Strength PoolStrength
	Time     int64 // 参与构成该池的最后一个摆动点时间，PDH/PDL 为 0
	Indices  []int // 等高/等低对的摆动点下标，其余类型为空
}

// Direction 交易方向
type Direction string

const (
	DirLong  Direction = "long"
	DirShort Direction = "short"
)

func (d Direction) String() string { return string(d) }

// Outcome 平仓结果
type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeLoss Outcome = "loss"
)

// Trade 一笔完整交易。模拟器在接受信号时创建，恰好平仓一次
// (SL/TP 触达、持仓超时或数据末尾强平)，平仓后不可变。
type Trade struct {
	ID          string
	EntryTime   int64
	ExitTime    int64
	Strategy    string
	Direction   Direction
	Entry       float64
	SL          float64
	TP          float64
	ExitPrice   float64
	Qty         float64
	Outcome     Outcome
	R           float64 // 以单笔风险额为单位的盈亏倍数
	PnL         float64
	PnLPct      float64 // 相对开仓时权益的盈亏百分比
	GainPct     float64 // 相对入场价的价格变动百分比
	EquityAfter float64
	BarsHeld    int
}

// EquityCurve 权益曲线：下标 0 为初始权益，之后每平仓一笔追加一个点。
type EquityCurve []float64
