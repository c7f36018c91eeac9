package model

import "sync"

// DefaultMaxCandles 每个 (symbol, timeframe) 序列保留的最大 K 线数
const DefaultMaxCandles = 500

// CandleStore 多周期 K 线存储。直播模式下由 WS 连接器写入、扫描循环读取，
// 各 symbol 的序列相互独立，读写由内部锁保护。
type CandleStore struct {
	mu         sync.RWMutex
	data       map[string][]Candle
	maxCandles int
}

// NewCandleStore 创建 K 线存储
func NewCandleStore() *CandleStore {
	return &CandleStore{
		data:       make(map[string][]Candle),
		maxCandles: DefaultMaxCandles,
	}
}

func (cs *CandleStore) key(symbol, tf string) string {
	return symbol + "_" + tf
}

// Set 整体替换一个序列 (历史数据加载后调用)，只保留最近 maxCandles 根
func (cs *CandleStore) Set(symbol, tf string, candles []Candle) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if len(candles) > cs.maxCandles {
		candles = candles[len(candles)-cs.maxCandles:]
	}
	stored := make([]Candle, len(candles))
	copy(stored, candles)
	cs.data[cs.key(symbol, tf)] = stored
}

// Get 返回序列副本，调用方可以安全地切片和遍历
func (cs *CandleStore) Get(symbol, tf string) []Candle {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	arr := cs.data[cs.key(symbol, tf)]
	out := make([]Candle, len(arr))
	copy(out, arr)
	return out
}

// Update 更新单根 K 线：时间戳与末根相同则原地覆盖 (未收盘 K 线的更新)，
// 否则追加为新 K 线并按上限裁剪。
func (cs *CandleStore) Update(symbol, tf string, candle Candle) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	k := cs.key(symbol, tf)
	arr := cs.data[k]
	if n := len(arr); n > 0 && arr[n-1].Time == candle.Time {
		arr[n-1] = candle
		return
	}
	arr = append(arr, candle)
	if len(arr) > cs.maxCandles {
		arr = arr[len(arr)-cs.maxCandles:]
	}
	cs.data[k] = arr
}

// HasData 判断指定序列是否已有数据
func (cs *CandleStore) HasData(symbol, tf string) bool {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return len(cs.data[cs.key(symbol, tf)]) > 0
}
