// internal/service/config.go
package service

import (
	"log"
	"math"

	"github.com/spf13/viper"
)

// ExchangeConfig 交易所连接信息 (只读行情，无需密钥)
type ExchangeConfig struct {
	Name    string
	RESTURL string
	WSURL   string
}

// ScanConfig 直播扫描参数
type ScanConfig struct {
	Symbols      []string // 要扫描的交易对
	EntryTF      string   // 信号周期，默认 15m
	HTFTF        string   // 高周期 (流动性目标)，默认 1h
	IntervalSec  int      // 周期性重扫间隔 (秒)
	CooldownMin  int      // 同 (symbol, strategy) 告警冷却 (分钟)
	DedupWindowS int      // 信号去重窗口 (秒)
}

// Settings 检测与回测的全部可调参数。每个字段都有默认值，
// 配置缺失或非法时回退到默认而不是报错。
type Settings struct {
	RiskPct             float64 // 单笔风险占权益百分比
	MinRR               float64 // 最低风险回报比，低于即拒绝信号
	TargetRR            float64 // 目标风险回报比 (计算 TP 用)
	PartialRR           float64 // 部分止盈的 R 倍数
	ATRMultiplier       float64 // 位移 K 线实体的 ATR 倍数门槛
	VolumeMultiplier    float64 // 放量门槛 (相对 20 根均量)
	SLBuffer            float64 // 止损缓冲 (ATR 倍数)
	LiquidityTolerance  float64 // 等高/等低的相对容差
	MaxDailyRisk        float64 // 单日亏损百分比上限
	MaxConcurrentTrades int     // 并发持仓上限
	MaxDrawdownStop     float64 // 峰值回撤百分比熔断线
	MaxTradesPerDay     int     // 单日开仓次数上限
	InitialEquity       float64 // 初始权益
	OnlyLongs           bool    // 现货模式：过滤所有空头信号
	SessionFilter       bool    // 只在 London/NY 时段交易
	EnableS1            bool
	EnableS2            bool
	EnableS3            bool
	MCIterations        int      // Monte Carlo 迭代次数
	StrategyPriority    []string // 扫描器调用顺序，首个非空信号胜出
}

// Config 加载后的全局配置
type Config struct {
	Exchange ExchangeConfig `mapstructure:"Exchange"`
	Scan     ScanConfig     `mapstructure:"Scan"`
	Settings Settings       `mapstructure:"Settings"`
}

// DefaultSettings 返回一份默认参数 (与生产默认一致)
func DefaultSettings() Settings {
	return Settings{
		RiskPct:             1,
		MinRR:               2,
		TargetRR:            3,
		PartialRR:           1.5,
		ATRMultiplier:       1.5,
		VolumeMultiplier:    1.5,
		SLBuffer:            0.5,
		LiquidityTolerance:  0.0015,
		MaxDailyRisk:        5,
		MaxConcurrentTrades: 3,
		MaxDrawdownStop:     10,
		MaxTradesPerDay:     3,
		InitialEquity:       10000,
		OnlyLongs:           true,
		SessionFilter:       false,
		EnableS1:            true,
		EnableS2:            true,
		EnableS3:            true,
		MCIterations:        1000,
		StrategyPriority:    []string{"S1", "S2", "S3"},
	}
}

// Normalize 清洗非法值：NaN/非正数回退到默认，优先级列表为空时补全
func (s *Settings) Normalize() {
	def := DefaultSettings()

	fix := func(v *float64, d float64) {
		if math.IsNaN(*v) || math.IsInf(*v, 0) || *v <= 0 {
			*v = d
		}
	}
	fix(&s.RiskPct, def.RiskPct)
	fix(&s.MinRR, def.MinRR)
	fix(&s.TargetRR, def.TargetRR)
	fix(&s.PartialRR, def.PartialRR)
	fix(&s.ATRMultiplier, def.ATRMultiplier)
	fix(&s.VolumeMultiplier, def.VolumeMultiplier)
	fix(&s.SLBuffer, def.SLBuffer)
	fix(&s.LiquidityTolerance, def.LiquidityTolerance)
	fix(&s.MaxDailyRisk, def.MaxDailyRisk)
	fix(&s.MaxDrawdownStop, def.MaxDrawdownStop)
	fix(&s.InitialEquity, def.InitialEquity)

	if s.MaxConcurrentTrades <= 0 {
		s.MaxConcurrentTrades = def.MaxConcurrentTrades
	}
	if s.MaxTradesPerDay <= 0 {
		s.MaxTradesPerDay = def.MaxTradesPerDay
	}
	if s.MCIterations <= 0 {
		s.MCIterations = def.MCIterations
	}
	if len(s.StrategyPriority) == 0 {
		s.StrategyPriority = def.StrategyPriority
	}
}

// LoadConfig 读取 config/config.yaml 并合并默认值。配置文件不存在时
// 直接使用默认配置 (引擎可以零配置跑回测)，解析失败才算致命错误。
func LoadConfig(configPath string) *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configPath)

	viper.SetDefault("Exchange.Name", "binance")
	viper.SetDefault("Exchange.RESTURL", "https://api.binance.com/api/v3")
	viper.SetDefault("Exchange.WSURL", "wss://stream.binance.com:9443")

	viper.SetDefault("Scan.Symbols", []string{"BTCUSDT"})
	viper.SetDefault("Scan.EntryTF", "15m")
	viper.SetDefault("Scan.HTFTF", "1h")
	viper.SetDefault("Scan.IntervalSec", 30)
	viper.SetDefault("Scan.CooldownMin", 5)
	viper.SetDefault("Scan.DedupWindowS", 300)

	def := DefaultSettings()
	viper.SetDefault("Settings.RiskPct", def.RiskPct)
	viper.SetDefault("Settings.MinRR", def.MinRR)
	viper.SetDefault("Settings.TargetRR", def.TargetRR)
	viper.SetDefault("Settings.PartialRR", def.PartialRR)
	viper.SetDefault("Settings.ATRMultiplier", def.ATRMultiplier)
	viper.SetDefault("Settings.VolumeMultiplier", def.VolumeMultiplier)
	viper.SetDefault("Settings.SLBuffer", def.SLBuffer)
	viper.SetDefault("Settings.LiquidityTolerance", def.LiquidityTolerance)
	viper.SetDefault("Settings.MaxDailyRisk", def.MaxDailyRisk)
	viper.SetDefault("Settings.MaxConcurrentTrades", def.MaxConcurrentTrades)
	viper.SetDefault("Settings.MaxDrawdownStop", def.MaxDrawdownStop)
	viper.SetDefault("Settings.MaxTradesPerDay", def.MaxTradesPerDay)
	viper.SetDefault("Settings.InitialEquity", def.InitialEquity)
	viper.SetDefault("Settings.OnlyLongs", def.OnlyLongs)
	viper.SetDefault("Settings.SessionFilter", def.SessionFilter)
	viper.SetDefault("Settings.EnableS1", def.EnableS1)
	viper.SetDefault("Settings.EnableS2", def.EnableS2)
	viper.SetDefault("Settings.EnableS3", def.EnableS3)
	viper.SetDefault("Settings.MCIterations", def.MCIterations)
	viper.SetDefault("Settings.StrategyPriority", def.StrategyPriority)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Fatalf("Error reading config file: %s", err)
		}
		// 没有配置文件时全部走默认值
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		log.Fatalf("Unable to decode config into struct: %s", err)
	}
	cfg.Settings.Normalize()

	return &cfg
}
