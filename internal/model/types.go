package model

import "github.com/shopspring/decimal"

// Unknown is the sentinel for ids and timestamps the record's origin cannot
// supply (e.g. order ids on historical trades). It keeps the canonical shape
// uniform across live and historical origins.
const Unknown int64 = -1

// Bar is one fixed-interval candlestick for one instrument+interval.
// StartTime is the primary key within the instrument+interval's entity and
// the dedup key for ingestion.
type Bar struct {
	StartTime           int64           // Interval open time (ms since epoch), primary key
	EndTime             int64           // Interval close time (ms since epoch)
	FirstTradeID        int64           // Unknown for historical bars
	LastTradeID         int64           // Unknown for historical bars
	Open                decimal.Decimal
	Close               decimal.Decimal
	High                decimal.Decimal
	Low                 decimal.Decimal
	Volume              decimal.Decimal
	NumberOfTrades      int64
	IsFinal             bool // Historical bars are always final
	QuoteVolume         decimal.Decimal
	TakerBuyBaseVolume  decimal.Decimal
	TakerBuyQuoteVolume decimal.Decimal
}

// Row returns the bar's values in bar-entity column order.
func (b Bar) Row() []any {
	return []any{
		b.StartTime,
		b.EndTime,
		b.FirstTradeID,
		b.LastTradeID,
		b.Open,
		b.Close,
		b.High,
		b.Low,
		b.Volume,
		b.NumberOfTrades,
		b.IsFinal,
		b.QuoteVolume,
		b.TakerBuyBaseVolume,
		b.TakerBuyQuoteVolume,
	}
}

// Trade is one executed trade for one instrument. EventTime is the primary
// key; for historical trades, which carry no event time of their own, it
// holds the trade time so the key stays meaningful.
type Trade struct {
	EventTime     int64 // ms since epoch, primary key
	TradeID       int64
	Price         decimal.Decimal
	Quantity      decimal.Decimal
	BuyerOrderID  int64 // Unknown for historical trades
	SellerOrderID int64 // Unknown for historical trades
	TradeTime     int64 // Unknown for historical trades (EventTime carries it)
	IsBuyerMaker  bool
}

// Row returns the trade's values in trade-entity column order.
func (t Trade) Row() []any {
	return []any{
		t.EventTime,
		t.TradeID,
		t.Price,
		t.Quantity,
		t.BuyerOrderID,
		t.SellerOrderID,
		t.TradeTime,
		t.IsBuyerMaker,
	}
}
