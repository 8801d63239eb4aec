package normalize

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/klinewatch/kline-data/internal/binance"
	"github.com/klinewatch/kline-data/internal/model"
)

// Record origins, used in error context and metrics labels.
const (
	OriginLiveBar         = "live_bar"
	OriginLiveTrade       = "live_trade"
	OriginHistoricalBar   = "historical_bar"
	OriginHistoricalTrade = "historical_trade"
)

// MalformedRecordError reports an input whose required field is absent or
// not convertible to its target type. The record is dropped, not retried.
type MalformedRecordError struct {
	Origin string
	Field  string
	Err    error
}

func (e *MalformedRecordError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed %s record: field %s: %v", e.Origin, e.Field, e.Err)
	}
	return fmt.Sprintf("malformed %s record: field %s missing", e.Origin, e.Field)
}

func (e *MalformedRecordError) Unwrap() error { return e.Err }

// BarFromEvent converts a live kline push event into a canonical Bar.
// Non-final events are revisions of a still-open interval and share the
// StartTime key with the final bar that eventually replaces them.
func BarFromEvent(ev binance.KlineEvent) (model.Bar, error) {
	k := ev.Kline
	if k.StartTime <= 0 {
		return model.Bar{}, &MalformedRecordError{Origin: OriginLiveBar, Field: "start_time"}
	}
	if k.EndTime <= 0 {
		return model.Bar{}, &MalformedRecordError{Origin: OriginLiveBar, Field: "end_time"}
	}

	dec, err := newDecimals(OriginLiveBar, [][2]string{
		{"open", k.Open}, {"close", k.Close}, {"high", k.High}, {"low", k.Low},
		{"volume", k.Volume}, {"quote_volume", k.QuoteVolume},
		{"taker_buy_base_volume", k.TakerBuyBaseVolume},
		{"taker_buy_quote_volume", k.TakerBuyQuoteVolume},
	})
	if err != nil {
		return model.Bar{}, err
	}

	return model.Bar{
		StartTime:           k.StartTime,
		EndTime:             k.EndTime,
		FirstTradeID:        k.FirstTradeID,
		LastTradeID:         k.LastTradeID,
		Open:                dec[0],
		Close:               dec[1],
		High:                dec[2],
		Low:                 dec[3],
		Volume:              dec[4],
		NumberOfTrades:      k.Trades,
		IsFinal:             k.Final,
		QuoteVolume:         dec[5],
		TakerBuyBaseVolume:  dec[6],
		TakerBuyQuoteVolume: dec[7],
	}, nil
}

// BarFromHistory converts a historical kline row into a canonical Bar.
// Historical rows describe closed intervals only, so the bar is always
// final; trade ids are not available from historical retrieval and carry
// the Unknown sentinel.
func BarFromHistory(row binance.HistoricalKline) (model.Bar, error) {
	if row.OpenTime <= 0 {
		return model.Bar{}, &MalformedRecordError{Origin: OriginHistoricalBar, Field: "start_time"}
	}
	if row.CloseTime <= 0 {
		return model.Bar{}, &MalformedRecordError{Origin: OriginHistoricalBar, Field: "end_time"}
	}

	dec, err := newDecimals(OriginHistoricalBar, [][2]string{
		{"open", row.Open}, {"close", row.Close}, {"high", row.High}, {"low", row.Low},
		{"volume", row.Volume}, {"quote_volume", row.QuoteVolume},
		{"taker_buy_base_volume", row.TakerBuyBaseVolume},
		{"taker_buy_quote_volume", row.TakerBuyQuoteVolume},
	})
	if err != nil {
		return model.Bar{}, err
	}

	return model.Bar{
		StartTime:           row.OpenTime,
		EndTime:             row.CloseTime,
		FirstTradeID:        model.Unknown,
		LastTradeID:         model.Unknown,
		Open:                dec[0],
		Close:               dec[1],
		High:                dec[2],
		Low:                 dec[3],
		Volume:              dec[4],
		NumberOfTrades:      row.Trades,
		IsFinal:             true,
		QuoteVolume:         dec[5],
		TakerBuyBaseVolume:  dec[6],
		TakerBuyQuoteVolume: dec[7],
	}, nil
}

// TradeFromEvent converts a live trade push event into a canonical Trade.
func TradeFromEvent(ev binance.TradeEvent) (model.Trade, error) {
	if ev.EventTime <= 0 {
		return model.Trade{}, &MalformedRecordError{Origin: OriginLiveTrade, Field: "event_time"}
	}
	if ev.TradeID <= 0 {
		return model.Trade{}, &MalformedRecordError{Origin: OriginLiveTrade, Field: "trade_id"}
	}

	price, err := newDecimal(OriginLiveTrade, "price", ev.Price)
	if err != nil {
		return model.Trade{}, err
	}
	qty, err := newDecimal(OriginLiveTrade, "quantity", ev.Quantity)
	if err != nil {
		return model.Trade{}, err
	}

	return model.Trade{
		EventTime:     ev.EventTime,
		TradeID:       ev.TradeID,
		Price:         price,
		Quantity:      qty,
		BuyerOrderID:  ev.BuyerOrderID,
		SellerOrderID: ev.SellerOrderID,
		TradeTime:     ev.TradeTime,
		IsBuyerMaker:  ev.IsBuyerMaker,
	}, nil
}

// TradeFromHistory converts a historical trade row into a canonical Trade.
// Historical retrieval has no event time of its own, so the trade time
// becomes the event_time key; order ids and the separate trade_time column
// carry the Unknown sentinel.
func TradeFromHistory(row binance.HistoricalTrade) (model.Trade, error) {
	if row.Time <= 0 {
		return model.Trade{}, &MalformedRecordError{Origin: OriginHistoricalTrade, Field: "time"}
	}
	if row.ID <= 0 {
		return model.Trade{}, &MalformedRecordError{Origin: OriginHistoricalTrade, Field: "id"}
	}

	price, err := newDecimal(OriginHistoricalTrade, "price", row.Price)
	if err != nil {
		return model.Trade{}, err
	}
	qty, err := newDecimal(OriginHistoricalTrade, "qty", row.Quantity)
	if err != nil {
		return model.Trade{}, err
	}

	return model.Trade{
		EventTime:     row.Time,
		TradeID:       row.ID,
		Price:         price,
		Quantity:      qty,
		BuyerOrderID:  model.Unknown,
		SellerOrderID: model.Unknown,
		TradeTime:     model.Unknown,
		IsBuyerMaker:  row.IsBuyerMaker,
	}, nil
}

func newDecimal(origin, field, value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Decimal{}, &MalformedRecordError{Origin: origin, Field: field}
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, &MalformedRecordError{Origin: origin, Field: field, Err: err}
	}
	return d, nil
}

func newDecimals(origin string, fields [][2]string) ([]decimal.Decimal, error) {
	out := make([]decimal.Decimal, len(fields))
	for i, f := range fields {
		d, err := newDecimal(origin, f[0], f[1])
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}
