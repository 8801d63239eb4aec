package store

import (
	"fmt"
	"strings"
)

// Column describes one column of a storage entity.
type Column struct {
	Name       string
	Type       string
	PrimaryKey bool
}

// Entity identifies one storage collection: all bars for an
// instrument+interval, or all trades for an instrument.
type Entity struct {
	Name    string   // table name, already a valid identifier
	Columns []Column // insert order; exactly one column is the primary key

	// TimeColumn orders range and latest-row queries.
	TimeColumn string
}

// Key returns the entity's primary-key column name.
func (e Entity) Key() string {
	for _, c := range e.Columns {
		if c.PrimaryKey {
			return c.Name
		}
	}
	return ""
}

// ColumnNames returns the column names in insert order.
func (e Entity) ColumnNames() []string {
	names := make([]string, len(e.Columns))
	for i, c := range e.Columns {
		names[i] = c.Name
	}
	return names
}

func barColumns() []Column {
	return []Column{
		{Name: "start_time", Type: "BIGINT", PrimaryKey: true},
		{Name: "end_time", Type: "BIGINT"},
		{Name: "first_trade_id", Type: "BIGINT"},
		{Name: "last_trade_id", Type: "BIGINT"},
		{Name: "open", Type: "NUMERIC"},
		{Name: "close", Type: "NUMERIC"},
		{Name: "high", Type: "NUMERIC"},
		{Name: "low", Type: "NUMERIC"},
		{Name: "volume", Type: "NUMERIC"},
		{Name: "number_of_trades", Type: "INTEGER"},
		{Name: "is_final", Type: "BOOLEAN"},
		{Name: "quote_volume", Type: "NUMERIC"},
		{Name: "taker_buy_base_volume", Type: "NUMERIC"},
		{Name: "taker_buy_quote_volume", Type: "NUMERIC"},
	}
}

func tradeColumns() []Column {
	return []Column{
		{Name: "event_time", Type: "BIGINT", PrimaryKey: true},
		{Name: "trade_id", Type: "BIGINT"},
		{Name: "price", Type: "NUMERIC"},
		{Name: "quantity", Type: "NUMERIC"},
		{Name: "buyer_order_id", Type: "BIGINT"},
		{Name: "seller_order_id", Type: "BIGINT"},
		{Name: "trade_time", Type: "BIGINT"},
		{Name: "is_buyer_maker", Type: "BOOLEAN"},
	}
}

// BarEntity returns the entity holding bars for one instrument+interval.
func BarEntity(symbol, interval string) Entity {
	return Entity{
		Name:       EntityName(fmt.Sprintf("%s_%s", symbol, interval)),
		Columns:    barColumns(),
		TimeColumn: "start_time",
	}
}

// TradeEntity returns the entity holding trades for one instrument.
func TradeEntity(symbol string) Entity {
	return Entity{
		Name:       EntityName(fmt.Sprintf("%s_trade", symbol)),
		Columns:    tradeColumns(),
		TimeColumn: "trade_time",
	}
}

// EntityName lowercases an identity and prefixes it with "num_" when it
// begins with a digit, so instruments like 1INCHUSDT still map to a legal
// table name.
func EntityName(identity string) string {
	identity = strings.ToLower(identity)
	if identity != "" && identity[0] >= '0' && identity[0] <= '9' {
		return "num_" + identity
	}
	return identity
}
