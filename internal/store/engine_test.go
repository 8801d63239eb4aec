package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/klinewatch/kline-data/internal/store"
	"github.com/klinewatch/kline-data/internal/storetest"
)

// directEnsurer provisions straight through the DB without registry caching.
type directEnsurer struct {
	db      store.DB
	calls   int
	failErr error
}

func (d *directEnsurer) Ensure(ctx context.Context, ent store.Entity) error {
	d.calls++
	if d.failErr != nil {
		return d.failErr
	}
	return d.db.CreateTableIfNotExists(ctx, ent)
}

func newTestEngine(db store.DB) (*store.Engine, *directEnsurer) {
	ens := &directEnsurer{db: db}
	return store.NewEngine(db, ens, nil, nil), ens
}

func barRow(startTime int64, open string) []any {
	return []any{
		startTime, startTime + 59999, int64(100), int64(200),
		open, "2", "3", "0.5", "1000",
		int64(10), true, "99", "42", "21",
	}
}

func TestEngine_UpsertOne_Idempotent(t *testing.T) {
	db := storetest.NewMemDB()
	engine, _ := newTestEngine(db)
	ent := store.BarEntity("BTCUSDT", "1m")
	row := barRow(1000, "1.5")

	for i := 0; i < 2; i++ {
		if err := engine.UpsertOne(context.Background(), ent, row, store.Overwrite); err != nil {
			t.Fatalf("upsert %d: %v", i, err)
		}
	}

	rows := db.Rows(ent.Name)
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0][4] != "1.5" {
		t.Errorf("open = %v, want 1.5", rows[0][4])
	}
}

func TestEngine_ConflictPrecedence(t *testing.T) {
	// For a fixed key, an Overwrite row must survive a KeepExisting row in
	// either interleaving order.
	tests := []struct {
		name     string
		policies []store.ConflictPolicy
		opens    []string
		wantOpen string
	}{
		{
			name:     "keep existing after overwrite is a no-op",
			policies: []store.ConflictPolicy{store.Overwrite, store.KeepExisting},
			opens:    []string{"live", "backfill"},
			wantOpen: "live",
		},
		{
			name:     "overwrite after keep existing wins",
			policies: []store.ConflictPolicy{store.KeepExisting, store.Overwrite},
			opens:    []string{"backfill", "live"},
			wantOpen: "live",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := storetest.NewMemDB()
			engine, _ := newTestEngine(db)
			ent := store.BarEntity("BTCUSDT", "1m")

			for i, policy := range tt.policies {
				if err := engine.UpsertOne(context.Background(), ent, barRow(1000, tt.opens[i]), policy); err != nil {
					t.Fatalf("upsert %d: %v", i, err)
				}
			}

			rows := db.Rows(ent.Name)
			if len(rows) != 1 {
				t.Fatalf("got %d rows, want 1", len(rows))
			}
			if rows[0][4] != tt.wantOpen {
				t.Errorf("open = %v, want %v", rows[0][4], tt.wantOpen)
			}
		})
	}
}

func TestEngine_UpsertMany_Validation(t *testing.T) {
	db := storetest.NewMemDB()
	engine, _ := newTestEngine(db)
	ent := store.BarEntity("BTCUSDT", "1m")

	tests := []struct {
		name    string
		rows    [][]any
		wantErr error
	}{
		{name: "empty batch", rows: nil, wantErr: store.ErrEmptyBatch},
		{name: "short row", rows: [][]any{{int64(1), int64(2)}}, wantErr: store.ErrRowShape},
		{
			name: "oversized batch",
			rows: func() [][]any {
				rows := make([][]any, store.MaxBatchRows+1)
				for i := range rows {
					rows[i] = barRow(int64(i), "1")
				}
				return rows
			}(),
			wantErr: store.ErrBatchTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := engine.UpsertMany(context.Background(), ent, tt.rows, store.Overwrite)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			var perr *store.PersistenceError
			if !errors.As(err, &perr) {
				t.Errorf("err is not a *PersistenceError: %v", err)
			}
		})
	}
}

func TestEngine_ProvisioningFailureSurfacesAsPersistenceError(t *testing.T) {
	db := storetest.NewMemDB()
	ens := &directEnsurer{db: db, failErr: errors.New("create refused")}
	engine := store.NewEngine(db, ens, nil, nil)
	ent := store.TradeEntity("BTCUSDT")

	err := engine.UpsertOne(context.Background(), ent, []any{
		int64(1), int64(2), "1", "1", int64(-1), int64(-1), int64(-1), true,
	}, store.KeepExisting)

	var perr *store.PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want *PersistenceError", err)
	}
	if perr.Op != "provision" {
		t.Errorf("Op = %q, want provision", perr.Op)
	}
}

func TestEngine_EnsuresEntityBeforeWriting(t *testing.T) {
	db := storetest.NewMemDB()
	engine, ens := newTestEngine(db)
	ent := store.BarEntity("ETHBTC", "1m")

	rows := [][]any{barRow(1, "1"), barRow(2, "2")}
	if err := engine.UpsertMany(context.Background(), ent, rows, store.KeepExisting); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if ens.calls != 1 {
		t.Errorf("ensure calls = %d, want 1", ens.calls)
	}
	if got := len(db.Rows(ent.Name)); got != 2 {
		t.Errorf("rows = %d, want 2", got)
	}
}

func TestEngine_FailedBatchIsNotPartiallyApplied(t *testing.T) {
	db := storetest.NewMemDB()
	engine, _ := newTestEngine(db)
	ent := store.BarEntity("BTCUSDT", "1m")

	if err := db.CreateTableIfNotExists(context.Background(), ent); err != nil {
		t.Fatal(err)
	}
	db.UpsertErr = errors.New("numeric coercion failed")

	err := engine.UpsertMany(context.Background(), ent, [][]any{barRow(1, "1")}, store.Overwrite)
	if err == nil {
		t.Fatal("expected error")
	}
	if got := len(db.Rows(ent.Name)); got != 0 {
		t.Errorf("rows = %d, want 0 after failed batch", got)
	}
}
