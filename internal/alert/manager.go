package alert

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"smc-prop-engine/internal/strategy"
)

// DefaultCooldown 同 (symbol, strategy) 的告警冷却时长
const DefaultCooldown = 5 * time.Minute

// DefaultDedupWindow 同策略信号去重窗口：信号时间差在窗口内视为重复
const DefaultDedupWindow = 5 * time.Minute

// maxLog 保留的历史告警条数
const maxLog = 50

// SinkFunc 下游投递函数。告警层不关心信号去了哪里
// (终端打印、webhook、推送)，只保证每条非重复信号恰好投递一次。
type SinkFunc func(sig *strategy.Signal, msg string)

// Manager 告警网关：冷却、去重、留痕。所有方法并发安全。
type Manager struct {
	mu        sync.Mutex
	cooldowns map[string]time.Time
	log       []*strategy.Signal
	cooldown  time.Duration
	dedup     time.Duration
	sink      SinkFunc
	logger    *zap.Logger
	now       func() time.Time
}

// NewManager 创建告警网关。cooldown/dedup 非正时取默认值。
func NewManager(cooldown, dedup time.Duration, sink SinkFunc, logger *zap.Logger) *Manager {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	if dedup <= 0 {
		dedup = DefaultDedupWindow
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		cooldowns: make(map[string]time.Time),
		cooldown:  cooldown,
		dedup:     dedup,
		sink:      sink,
		logger:    logger,
		now:       time.Now,
	}
}

// SetNowFunc 注入时钟 (测试用)
func (m *Manager) SetNowFunc(fn func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = fn
}

// CanAlert 同 (symbol, strategy) 是否已出冷却期
func (m *Manager) CanAlert(symbol, strategyID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.canAlertLocked(symbol, strategyID)
}

func (m *Manager) canAlertLocked(symbol, strategyID string) bool {
	last, ok := m.cooldowns[symbol+"_"+strategyID]
	if !ok {
		return true
	}
	return m.now().Sub(last) > m.cooldown
}

// Fire 尝试投递一条信号。冷却中或与近期信号重复时静默丢弃，
// 返回是否真正投递。
func (m *Manager) Fire(sig *strategy.Signal) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.canAlertLocked(sig.Symbol, sig.Strategy) {
		return false
	}
	if m.isDuplicateLocked(sig) {
		return false
	}

	m.cooldowns[sig.Symbol+"_"+sig.Strategy] = m.now()

	m.log = append([]*strategy.Signal{sig}, m.log...)
	if len(m.log) > maxLog {
		m.log = m.log[:maxLog]
	}

	msg := fmt.Sprintf("%s %s %s | E:%.2f SL:%.2f TP:%.2f | %.2fR",
		sig.Strategy, sig.Direction, sig.Symbol, sig.Entry, sig.SL, sig.TP, sig.RR)

	m.logger.Info("signal alert",
		zap.String("strategy", sig.Strategy),
		zap.String("symbol", sig.Symbol),
		zap.String("direction", sig.Direction.String()),
		zap.Float64("entry", sig.Entry),
		zap.Float64("sl", sig.SL),
		zap.Float64("tp", sig.TP),
		zap.Float64("rr", sig.RR),
	)

	if m.sink != nil {
		m.sink(sig, msg)
	}
	return true
}

// isDuplicateLocked 去重：同 strategy+symbol 且信号时间差在窗口内
func (m *Manager) isDuplicateLocked(sig *strategy.Signal) bool {
	windowMs := m.dedup.Milliseconds()
	for _, prev := range m.log {
		if prev.Strategy != sig.Strategy || prev.Symbol != sig.Symbol {
			continue
		}
		diff := sig.Time - prev.Time
		if diff < 0 {
			diff = -diff
		}
		if diff < windowMs {
			return true
		}
	}
	return false
}

// Log 返回历史告警快照 (新的在前)
func (m *Manager) Log() []*strategy.Signal {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*strategy.Signal, len(m.log))
	copy(out, m.log)
	return out
}

// ClearLog 清空历史告警
func (m *Manager) ClearLog() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log = nil
}
