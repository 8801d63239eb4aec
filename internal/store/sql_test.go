package store

import (
	"strconv"
	"strings"
	"testing"
)

func testEntity() Entity {
	return Entity{
		Name: "pairs",
		Columns: []Column{
			{Name: "ts", Type: "BIGINT", PrimaryKey: true},
			{Name: "price", Type: "NUMERIC"},
			{Name: "final", Type: "BOOLEAN"},
		},
		TimeColumn: "ts",
	}
}

func TestCreateTableSQL(t *testing.T) {
	got := createTableSQL(testEntity())
	want := `CREATE TABLE IF NOT EXISTS "pairs" (ts BIGINT PRIMARY KEY, price NUMERIC, final BOOLEAN)`
	if got != want {
		t.Errorf("createTableSQL() = %q, want %q", got, want)
	}
}

func TestUpsertSQL(t *testing.T) {
	tests := []struct {
		name     string
		rowCount int
		policy   ConflictPolicy
		want     string
	}{
		{
			name:     "single row overwrite",
			rowCount: 1,
			policy:   Overwrite,
			want: `INSERT INTO "pairs" (ts, price, final) VALUES ($1, $2, $3)` +
				` ON CONFLICT (ts) DO UPDATE SET (ts, price, final) = (EXCLUDED.ts, EXCLUDED.price, EXCLUDED.final)`,
		},
		{
			name:     "multi row keep existing",
			rowCount: 2,
			policy:   KeepExisting,
			want: `INSERT INTO "pairs" (ts, price, final) VALUES ($1, $2, $3), ($4, $5, $6)` +
				` ON CONFLICT (ts) DO NOTHING`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := upsertSQL(testEntity(), tt.rowCount, tt.policy)
			if got != tt.want {
				t.Errorf("upsertSQL() =\n%q\nwant\n%q", got, tt.want)
			}
		})
	}
}

func TestUpsertSQL_ParameterCount(t *testing.T) {
	ent := BarEntity("BTCUSDT", "1m")
	got := upsertSQL(ent, 3, KeepExisting)

	wantParams := 3 * len(ent.Columns)
	if !strings.Contains(got, "$"+strconv.Itoa(wantParams)) {
		t.Errorf("statement missing final parameter $%d:\n%s", wantParams, got)
	}
	if strings.Contains(got, "$"+strconv.Itoa(wantParams+1)) {
		t.Errorf("statement has excess parameter $%d:\n%s", wantParams+1, got)
	}
}

func TestAllRowsSQL(t *testing.T) {
	tests := []struct {
		name string
		desc bool
		want string
	}{
		{
			name: "chronological",
			want: `SELECT ts, price, final FROM "pairs" ORDER BY ts`,
		},
		{
			name: "descending",
			desc: true,
			want: `SELECT ts, price, final FROM "pairs" ORDER BY ts DESC`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := allRowsSQL(testEntity(), tt.desc)
			if got != tt.want {
				t.Errorf("allRowsSQL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLatestRowsSQL(t *testing.T) {
	tests := []struct {
		name string
		asc  bool
		want string
	}{
		{
			name: "most recent first",
			want: `SELECT ts, price, final FROM "pairs" ORDER BY ts DESC LIMIT $1`,
		},
		{
			name: "ascending re-wraps the newest rows",
			asc:  true,
			want: `SELECT * FROM (SELECT ts, price, final FROM "pairs" ORDER BY ts DESC LIMIT $1) AS latest ORDER BY ts ASC`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := latestRowsSQL(testEntity(), tt.asc)
			if got != tt.want {
				t.Errorf("latestRowsSQL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRowsInRangeSQL(t *testing.T) {
	got := rowsInRangeSQL(testEntity())
	want := `SELECT ts, price, final FROM "pairs" WHERE ts BETWEEN $1 AND $2 ORDER BY ts ASC`
	if got != want {
		t.Errorf("rowsInRangeSQL() = %q, want %q", got, want)
	}
}

// Bar entities order by their open time, trade entities by their trade time.
func TestQuerySQLTimeColumns(t *testing.T) {
	bar := allRowsSQL(BarEntity("BTCUSD", "1m"), false)
	if !strings.HasSuffix(bar, "ORDER BY start_time") {
		t.Errorf("bar query = %q, want ORDER BY start_time", bar)
	}

	trade := allRowsSQL(TradeEntity("BTCUSD"), false)
	if !strings.HasSuffix(trade, "ORDER BY trade_time") {
		t.Errorf("trade query = %q, want ORDER BY trade_time", trade)
	}
}

func TestFlattenRows(t *testing.T) {
	rows := [][]any{
		{int64(1), "a", true},
		{int64(2), "b", false},
	}
	got := flattenRows(rows)
	want := []any{int64(1), "a", true, int64(2), "b", false}

	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("arg %d = %v, want %v", i, got[i], want[i])
		}
	}
}
