package api

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"smc-prop-engine/internal/model"
	"smc-prop-engine/internal/service"
)

// reconnectDelay 读失败后的重连间隔
const reconnectDelay = 5 * time.Second

// KlineEvent 一条增量 K 线更新。Closed 为真表示该根 K 线已收盘，
// 扫描只应在收盘事件上触发。
type KlineEvent struct {
	Symbol string
	TF     string
	Candle model.Candle
	Closed bool
}

// combinedStreamMsg Binance 组合流的外层信封
type combinedStreamMsg struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// klineMsg kline 频道的数据结构，价格字段为字符串
type klineMsg struct {
	Symbol string `json:"s"`
	Kline  struct {
		OpenTime int64  `json:"t"`
		Interval string `json:"i"`
		Open     string `json:"o"`
		Close    string `json:"c"`
		High     string `json:"h"`
		Low      string `json:"l"`
		Volume   string `json:"v"`
		Closed   bool   `json:"x"`
	} `json:"k"`
}

// Connector Binance 组合 kline 流连接器。一条连接订阅所有
// (symbol, timeframe) 组合，增量更新推给事件通道。
type Connector struct {
	wsURL     string
	streams   []string
	eventChan chan KlineEvent
	logger    *zap.Logger
}

// NewConnector 创建连接器。streams 由 symbols × timeframes 组合而成。
func NewConnector(wsURL string, symbols, timeframes []string, logger *zap.Logger) *Connector {
	if logger == nil {
		logger = zap.NewNop()
	}
	var streams []string
	for _, symbol := range symbols {
		for _, tf := range timeframes {
			streams = append(streams, strings.ToLower(symbol)+"@kline_"+tf)
		}
	}
	logger.Info("connector initialized", zap.Strings("streams", streams))

	return &Connector{
		wsURL:     wsURL,
		streams:   streams,
		eventChan: make(chan KlineEvent, 2048),
		logger:    logger,
	}
}

// Events 增量 K 线事件通道
func (c *Connector) Events() <-chan KlineEvent {
	return c.eventChan
}

// Start 阻塞式运行连接与读循环，断线自动重连。
// ctx 取消后关闭事件通道并返回。
func (c *Connector) Start(ctx context.Context) {
	defer close(c.eventChan)

	url := c.wsURL + "/stream?streams=" + strings.Join(c.streams, "/")
	for {
		if ctx.Err() != nil {
			return
		}
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
		if err != nil {
			c.logger.Error("ws dial failed, retrying", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(reconnectDelay):
			}
			continue
		}
		c.logger.Info("ws connected", zap.Int("streams", len(c.streams)))

		c.readLoop(ctx, conn)
		conn.Close()

		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

// readLoop 持续读消息直到出错或 ctx 取消
func (c *Connector) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		if ctx.Err() != nil {
			return
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			c.logger.Error("ws read error, reconnecting", zap.Error(err))
			return
		}

		var outer combinedStreamMsg
		if err := json.Unmarshal(message, &outer); err != nil {
			continue
		}
		if len(outer.Data) == 0 {
			continue
		}

		var km klineMsg
		if err := json.Unmarshal(outer.Data, &km); err != nil {
			c.logger.Error("kline unmarshal error", zap.Error(err))
			continue
		}
		if km.Symbol == "" {
			continue
		}

		event, err := toEvent(km)
		if err != nil {
			continue
		}

		select {
		case c.eventChan <- event:
		default:
			c.logger.Warn("kline channel full, dropping event",
				zap.String("symbol", event.Symbol), zap.String("tf", event.TF))
		}
	}
}

// toEvent 把 kline 消息转成内部事件，任何字段解析失败都整条丢弃
func toEvent(km klineMsg) (KlineEvent, error) {
	var (
		c   model.Candle
		err error
	)
	c.Time = km.Kline.OpenTime

	parse := func(s string, dst *float64) {
		if err != nil {
			return
		}
		var v float64
		v, err = service.StringToFloat(s)
		if err == nil {
			*dst = v
		}
	}
	parse(km.Kline.Open, &c.Open)
	parse(km.Kline.High, &c.High)
	parse(km.Kline.Low, &c.Low)
	parse(km.Kline.Close, &c.Close)
	parse(km.Kline.Volume, &c.Volume)
	if err != nil {
		return KlineEvent{}, err
	}

	return KlineEvent{
		Symbol: km.Symbol,
		TF:     km.Kline.Interval,
		Candle: c,
		Closed: km.Kline.Closed,
	}, nil
}
