package ingest_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/klinewatch/kline-data/internal/binance"
	"github.com/klinewatch/kline-data/internal/ingest"
	"github.com/klinewatch/kline-data/internal/schema"
	"github.com/klinewatch/kline-data/internal/store"
	"github.com/klinewatch/kline-data/internal/storetest"
)

// The canonical mixed scenario: a backfill of ten historical bars followed by
// a live revision of the fifth. The store ends with exactly ten rows, nine
// carrying historical values and the fifth carrying the live ones.
func TestBackfillThenLiveOverwrite(t *testing.T) {
	db := storetest.NewMemDB()
	reg := schema.NewRegistry(db, nil, testLogger())
	engine := store.NewEngine(db, reg, nil, testLogger())

	var klines []binance.HistoricalKline
	for i := 1; i <= 10; i++ {
		klines = append(klines, histKline(int64(i*60000), strconv.Itoa(i)))
	}
	history := &fakeHistory{klines: klines}
	stream := newFakeStream()

	svc := ingest.NewService(history, stream.dialer(), engine, reg, ingest.ServiceConfig{}, nil, testLogger())

	kind := ingest.KlineKind("1m")
	if err := svc.RunBackfill(context.Background(), "BTCUSD", kind); err != nil {
		t.Fatalf("RunBackfill: %v", err)
	}
	if got := len(db.Rows("btcusd_1m")); got != 10 {
		t.Fatalf("rows after backfill = %d, want 10", got)
	}

	c := ingest.NewLiveConsumer("BTCUSD", kind, stream.dialer(), engine, nil, nil, testLogger())
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Stop(context.Background())

	// Revise record five. Its start time collides with the backfilled row.
	stream.send(t, klineEvent(5*60000, "555"))

	deadline := time.After(2 * time.Second)
	for {
		row, ok := db.Row("btcusd_1m", int64(5*60000))
		if ok && row[4].(interface{ String() string }).String() == "1.5" {
			break
		}
		select {
		case <-deadline:
			t.Fatal("live revision never applied")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if got := len(db.Rows("btcusd_1m")); got != 10 {
		t.Errorf("rows after live revision = %d, want still 10", got)
	}
	row, _ := db.Row("btcusd_1m", int64(5*60000))
	if close := row[5].(interface{ String() string }).String(); close != "555" {
		t.Errorf("close = %s, want the live value 555", close)
	}
	if row[10] != false {
		t.Errorf("is_final = %v, want false from the open live interval", row[10])
	}

	// The untouched neighbours keep their historical values.
	other, _ := db.Row("btcusd_1m", int64(4*60000))
	if close := other[5].(interface{ String() string }).String(); close != "4" {
		t.Errorf("row 4 close = %s, want the historical value 4", close)
	}
}

func TestServiceStartLiveIngestionRunsBackfill(t *testing.T) {
	db := storetest.NewMemDB()
	reg := schema.NewRegistry(db, nil, testLogger())
	engine := store.NewEngine(db, reg, nil, testLogger())

	history := &fakeHistory{klines: []binance.HistoricalKline{histKline(1000, "10")}}
	stream := newFakeStream()

	svc := ingest.NewService(history, stream.dialer(), engine, reg, ingest.ServiceConfig{}, nil, testLogger())

	c, err := svc.StartLiveIngestion(context.Background(), "BTCUSD", ingest.KlineKind("1m"))
	if err != nil {
		t.Fatalf("StartLiveIngestion: %v", err)
	}
	defer c.Stop(context.Background())

	waitForRow(t, db, "btcusd_1m", 1000)
	if history.klineCalls != 1 {
		t.Errorf("backfill fetches = %d, want exactly 1", history.klineCalls)
	}
}

func TestServiceKnownEntities(t *testing.T) {
	db := storetest.NewMemDB()
	reg := schema.NewRegistry(db, nil, testLogger())
	engine := store.NewEngine(db, reg, nil, testLogger())
	svc := ingest.NewService(&fakeHistory{}, nil, engine, reg, ingest.ServiceConfig{}, nil, testLogger())

	ctx := context.Background()
	if err := reg.Ensure(ctx, store.BarEntity("ETHBTC", "1m")); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if err := reg.Ensure(ctx, store.TradeEntity("BTCUSD")); err != nil {
		t.Fatalf("Ensure: %v", err)
	}

	got := svc.KnownEntities()
	want := []string{"btcusd_trade", "ethbtc_1m"}
	if len(got) != len(want) {
		t.Fatalf("KnownEntities = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("KnownEntities[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
