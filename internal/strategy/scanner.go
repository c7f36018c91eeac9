package strategy

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"smc-prop-engine/internal/model"
	"smc-prop-engine/internal/service"
	"smc-prop-engine/pkg/stats"
)

// pctGain 入场到止盈的价格变动百分比
func pctGain(entry, tp float64) float64 {
	if entry == 0 {
		return 0
	}
	return stats.Round((tp-entry)/entry*100, 2)
}

// Scanner 按配置的优先级依次调用三个策略扫描器，
// 第一个非空信号即胜出，策略之间从不合并。
type Scanner struct {
	settings service.Settings
	logger   *zap.Logger
}

// NewScanner 创建扫描调度器
func NewScanner(settings service.Settings, logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{settings: settings, logger: logger}
}

// Scan 对单个交易对执行一轮完整扫描。candles 为入场周期序列，
// htf 为高周期序列 (可为空)。没有命中返回 nil。
func (s *Scanner) Scan(symbol string, candles, htf []model.Candle) *Signal {
	for _, id := range s.settings.StrategyPriority {
		var sig *Signal
		switch id {
		case "S1":
			sig = ScanS1(candles, s.settings)
		case "S2":
			sig = ScanS2(candles, htf, s.settings)
		case "S3":
			sig = ScanS3(candles, htf, s.settings)
		default:
			s.logger.Warn("unknown strategy in priority list", zap.String("strategy", id))
			continue
		}
		if sig == nil {
			continue
		}
		if !s.validate(sig) {
			continue
		}
		sig.ID = uuid.NewString()
		sig.Symbol = symbol
		s.logger.Debug("signal fired",
			zap.String("strategy", sig.Strategy),
			zap.String("symbol", symbol),
			zap.Float64("entry", sig.Entry),
			zap.Float64("sl", sig.SL),
			zap.Float64("tp", sig.TP),
			zap.Float64("rr", sig.RR),
		)
		return sig
	}
	return nil
}

// validate 信号出厂前的最终校验：方向过滤和几何有效性。
// 现货模式下丢弃所有空头信号；多头要求 sl < entry < tp (空头镜像)。
func (s *Scanner) validate(sig *Signal) bool {
	if s.settings.OnlyLongs && sig.Direction != model.DirLong {
		return false
	}
	if sig.Direction == model.DirLong {
		return sig.SL < sig.Entry && sig.Entry < sig.TP
	}
	return sig.TP < sig.Entry && sig.Entry < sig.SL
}
