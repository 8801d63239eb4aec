package binance

import (
	"encoding/json"
	"fmt"
)

// KlineEvent is a live kline push event from the <symbol>@kline_<interval>
// stream. Prices arrive as strings and stay strings until normalization.
type KlineEvent struct {
	EventType string `json:"e"`
	EventTime int64  `json:"E"`
	Symbol    string `json:"s"`
	Kline     Kline  `json:"k"`
}

// Kline is the payload of a live kline event. A non-final kline describes a
// still-open interval and is revised by later events for the same StartTime.
type Kline struct {
	StartTime           int64  `json:"t"`
	EndTime             int64  `json:"T"`
	Symbol              string `json:"s"`
	Interval            string `json:"i"`
	FirstTradeID        int64  `json:"f"`
	LastTradeID         int64  `json:"L"`
	Open                string `json:"o"`
	Close               string `json:"c"`
	High                string `json:"h"`
	Low                 string `json:"l"`
	Volume              string `json:"v"`
	Trades              int64  `json:"n"`
	Final               bool   `json:"x"`
	QuoteVolume         string `json:"q"`
	TakerBuyBaseVolume  string `json:"V"`
	TakerBuyQuoteVolume string `json:"Q"`
}

// TradeEvent is a live trade push event from the <symbol>@trade stream.
type TradeEvent struct {
	EventType     string `json:"e"`
	EventTime     int64  `json:"E"`
	Symbol        string `json:"s"`
	TradeID       int64  `json:"t"`
	Price         string `json:"p"`
	Quantity      string `json:"q"`
	BuyerOrderID  int64  `json:"b"`
	SellerOrderID int64  `json:"a"`
	TradeTime     int64  `json:"T"`
	IsBuyerMaker  bool   `json:"m"`
}

// HistoricalKline is one row of the REST /api/v3/klines response. The wire
// format is a positional JSON array; the trailing "ignore" element is
// discarded.
type HistoricalKline struct {
	OpenTime            int64
	Open                string
	High                string
	Low                 string
	Close               string
	Volume              string
	CloseTime           int64
	QuoteVolume         string
	Trades              int64
	TakerBuyBaseVolume  string
	TakerBuyQuoteVolume string
}

// UnmarshalJSON decodes the positional array form.
func (k *HistoricalKline) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("kline row: %w", err)
	}
	if len(raw) < 11 {
		return fmt.Errorf("kline row has %d elements, want at least 11", len(raw))
	}

	targets := []any{
		&k.OpenTime, &k.Open, &k.High, &k.Low, &k.Close, &k.Volume,
		&k.CloseTime, &k.QuoteVolume, &k.Trades,
		&k.TakerBuyBaseVolume, &k.TakerBuyQuoteVolume,
	}
	for i, target := range targets {
		if err := json.Unmarshal(raw[i], target); err != nil {
			return fmt.Errorf("kline row element %d: %w", i, err)
		}
	}
	return nil
}

// HistoricalTrade is one row of the REST /api/v3/historicalTrades response.
// It carries no event time or order ids.
type HistoricalTrade struct {
	ID            int64  `json:"id"`
	Price         string `json:"price"`
	Quantity      string `json:"qty"`
	QuoteQuantity string `json:"quoteQty"`
	Time          int64  `json:"time"`
	IsBuyerMaker  bool   `json:"isBuyerMaker"`
	IsBestMatch   bool   `json:"isBestMatch"`
}
