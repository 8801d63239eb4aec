package ingest_test

import (
	"testing"

	"github.com/klinewatch/kline-data/internal/ingest"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		name     string
		kind     string
		interval string
		want     string
		wantErr  bool
	}{
		{name: "kline with interval", kind: "kline", interval: "1m", want: "kline@1m"},
		{name: "trade", kind: "trade", want: "trade"},
		{name: "kline without interval", kind: "kline", wantErr: true},
		{name: "unknown", kind: "ticker", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ingest.ParseKind(tt.kind, tt.interval)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseKind: %v", err)
			}
			if got.String() != tt.want {
				t.Errorf("String = %q, want %q", got.String(), tt.want)
			}
		})
	}
}

func TestKindEntityAndStream(t *testing.T) {
	k := ingest.KlineKind("5m")
	if got := k.Entity("BTCUSD").Name; got != "btcusd_5m" {
		t.Errorf("kline entity = %q, want btcusd_5m", got)
	}
	if got := k.StreamName("BTCUSD"); got != "btcusd@kline_5m" {
		t.Errorf("kline stream = %q, want btcusd@kline_5m", got)
	}

	tr := ingest.TradeKind()
	if got := tr.Entity("BTCUSD").Name; got != "btcusd_trade" {
		t.Errorf("trade entity = %q, want btcusd_trade", got)
	}
	if got := tr.StreamName("BTCUSD"); got != "btcusd@trade" {
		t.Errorf("trade stream = %q, want btcusd@trade", got)
	}
}
