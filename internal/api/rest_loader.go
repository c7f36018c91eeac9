package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"smc-prop-engine/internal/model"
	"smc-prop-engine/internal/service"
)

// maxKlineLimit Binance 单次 klines 请求的上限
const maxKlineLimit = 1000

// paginationDelay 分页拉取之间的限速间隔
const paginationDelay = 300 * time.Millisecond

// RESTClient Binance 现货 REST 行情客户端 (只读公开接口，无需密钥)
type RESTClient struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewRESTClient 创建 REST 客户端
func NewRESTClient(baseURL string, logger *zap.Logger) *RESTClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RESTClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
	}
}

// parseKline 把 Binance 的原始 kline 数组转成内部 Candle。
// 数组布局: [openTime, open, high, low, close, volume, ...]，价格为字符串。
func parseKline(raw []json.RawMessage) (model.Candle, error) {
	var c model.Candle
	if len(raw) < 6 {
		return c, fmt.Errorf("kline array too short: %d fields", len(raw))
	}

	if err := json.Unmarshal(raw[0], &c.Time); err != nil {
		return c, fmt.Errorf("parse open time: %w", err)
	}

	fields := []*float64{&c.Open, &c.High, &c.Low, &c.Close, &c.Volume}
	for i, dst := range fields {
		var s string
		if err := json.Unmarshal(raw[i+1], &s); err != nil {
			return c, fmt.Errorf("parse kline field %d: %w", i+1, err)
		}
		v, err := service.StringToFloat(s)
		if err != nil {
			return c, fmt.Errorf("parse kline field %d: %w", i+1, err)
		}
		*dst = v
	}
	return c, nil
}

// FetchKlines 拉取一批 K 线。startTime/endTime 为毫秒时间戳，0 表示不限定。
// 失败直接上抛，绝不偷偷塞过期或合成数据。
func (c *RESTClient) FetchKlines(ctx context.Context, symbol, interval string, limit int, startTime, endTime int64) ([]model.Candle, error) {
	if limit <= 0 || limit > maxKlineLimit {
		limit = maxKlineLimit
	}

	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	params.Set("limit", strconv.Itoa(limit))
	if startTime > 0 {
		params.Set("startTime", strconv.FormatInt(startTime, 10))
	}
	if endTime > 0 {
		params.Set("endTime", strconv.FormatInt(endTime, 10))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/klines?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("binance klines request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("binance API error: status %d", resp.StatusCode)
	}

	var rows [][]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode klines response: %w", err)
	}

	candles := make([]model.Candle, 0, len(rows))
	for _, row := range rows {
		candle, err := parseKline(row)
		if err != nil {
			return nil, err
		}
		candles = append(candles, candle)
	}
	return candles, nil
}

// FetchHistorical 分页拉取 [startTime, endTime) 的全部 K 线，
// 每批之间加 300ms 限速间隔。
func (c *RESTClient) FetchHistorical(ctx context.Context, symbol, interval string, startTime, endTime int64) ([]model.Candle, error) {
	var candles []model.Candle
	current := startTime

	for current < endTime {
		batch, err := c.FetchKlines(ctx, symbol, interval, maxKlineLimit, current, endTime)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}
		candles = append(candles, batch...)
		current = batch[len(batch)-1].Time + 1
		if len(batch) < maxKlineLimit {
			break
		}

		c.logger.Debug("historical fetch progress",
			zap.String("symbol", symbol),
			zap.String("interval", interval),
			zap.Int("candles", len(candles)),
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(paginationDelay):
		}
	}
	return candles, nil
}

// FetchCurrentPrice 最新成交价
func (c *RESTClient) FetchCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/ticker/price?symbol="+url.QueryEscape(symbol), nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("binance price request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("binance API error: status %d", resp.StatusCode)
	}

	var body struct {
		Price string `json:"price"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode price response: %w", err)
	}
	return service.StringToFloat(body.Price)
}

// FetchSymbols 交易所可交易的现货交易对列表
func (c *RESTClient) FetchSymbols(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/exchangeInfo", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("binance exchangeInfo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("binance API error: status %d", resp.StatusCode)
	}

	var body struct {
		Symbols []struct {
			Symbol string `json:"symbol"`
			Status string `json:"status"`
		} `json:"symbols"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode exchangeInfo response: %w", err)
	}

	var out []string
	for _, s := range body.Symbols {
		if s.Status == "TRADING" {
			out = append(out, s.Symbol)
		}
	}
	return out, nil
}

// SymbolCache 交易对列表的显式 TTL 缓存。作为依赖注入到需要
// 符号发现的组件里，不做进程级全局变量。并发安全。
type SymbolCache struct {
	mu        sync.Mutex
	client    *RESTClient
	value     []string
	fetchedAt time.Time
	ttl       time.Duration
	now       func() time.Time
}

// NewSymbolCache 创建缓存，ttl 非正时取 1 小时
func NewSymbolCache(client *RESTClient, ttl time.Duration) *SymbolCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SymbolCache{client: client, ttl: ttl, now: time.Now}
}

// Get 返回缓存的交易对列表，过期时重新拉取
func (s *SymbolCache) Get(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.value != nil && s.now().Sub(s.fetchedAt) < s.ttl {
		return s.value, nil
	}

	symbols, err := s.client.FetchSymbols(ctx)
	if err != nil {
		// 拉取失败不吞错误，也不用过期数据顶替
		return nil, err
	}
	s.value = symbols
	s.fetchedAt = s.now()
	return symbols, nil
}
