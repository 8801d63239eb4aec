package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
instance:
  id: test-watcher
exchange:
  rest_url: https://testnet.binance.vision
database:
  host: localhost
  port: 5432
  name: test_db
  user: testuser
  password: testpass
ingestion:
  watch:
    - symbol: BTCUSD
      kind: kline
      interval: 1m
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Instance.ID != "test-watcher" {
		t.Errorf("Instance.ID = %q, want %q", cfg.Instance.ID, "test-watcher")
	}
	if cfg.Exchange.RestURL != "https://testnet.binance.vision" {
		t.Errorf("Exchange.RestURL = %q, want %q", cfg.Exchange.RestURL, "https://testnet.binance.vision")
	}
	if cfg.Database.Host != "localhost" {
		t.Errorf("Database.Host = %q, want %q", cfg.Database.Host, "localhost")
	}
	if len(cfg.Ingestion.Watch) != 1 || cfg.Ingestion.Watch[0].Symbol != "BTCUSD" {
		t.Errorf("Ingestion.Watch = %+v, want one BTCUSD entry", cfg.Ingestion.Watch)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "secret123")

	yaml := `
instance:
  id: test-watcher
database:
  host: localhost
  name: test_db
  user: testuser
  password: ${TEST_DB_PASSWORD}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.Password != "secret123" {
		t.Errorf("Database.Password = %q, want %q", cfg.Database.Password, "secret123")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
instance:
  id: test-watcher
ingestion:
  watch:
    - symbol: ETHBTC
      kind: trade
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.Exchange.RestURL != DefaultRestURL {
		t.Errorf("Exchange.RestURL = %q, want default %q", cfg.Exchange.RestURL, DefaultRestURL)
	}
	if cfg.Exchange.Timeout != 30*time.Second {
		t.Errorf("Exchange.Timeout = %v, want 30s", cfg.Exchange.Timeout)
	}
	if cfg.Database.Host != DefaultDBHost || cfg.Database.Port != DefaultDBPort {
		t.Errorf("Database = %s:%d, want %s:%d", cfg.Database.Host, cfg.Database.Port, DefaultDBHost, DefaultDBPort)
	}
	if cfg.Database.Name != DefaultDBName || cfg.Database.User != DefaultDBUser {
		t.Errorf("Database name/user = %s/%s, want %s/%s", cfg.Database.Name, cfg.Database.User, DefaultDBName, DefaultDBUser)
	}
	if cfg.Ingestion.ChunkSize != DefaultChunkSize {
		t.Errorf("Ingestion.ChunkSize = %d, want %d", cfg.Ingestion.ChunkSize, DefaultChunkSize)
	}
	if cfg.Ingestion.KlineLimit != DefaultKlineLimit || cfg.Ingestion.TradeLimit != DefaultTradeLimit {
		t.Errorf("limits = %d/%d, want %d/%d",
			cfg.Ingestion.KlineLimit, cfg.Ingestion.TradeLimit, DefaultKlineLimit, DefaultTradeLimit)
	}
	if cfg.Stream.PingTimeout != DefaultPingTimeout {
		t.Errorf("Stream.PingTimeout = %v, want %v", cfg.Stream.PingTimeout, DefaultPingTimeout)
	}
	if cfg.Metrics.Port != DefaultMetricsPort || cfg.Metrics.Path != DefaultMetricsPath {
		t.Errorf("Metrics = %d %s, want %d %s", cfg.Metrics.Port, cfg.Metrics.Path, DefaultMetricsPort, DefaultMetricsPath)
	}
}

func TestLoadAndValidate(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
	}{
		{
			name: "valid",
			yaml: `
instance:
  id: w1
ingestion:
  watch:
    - symbol: BTCUSD
      kind: kline
      interval: 1m
    - symbol: BTCUSD
      kind: trade
`,
		},
		{
			name: "missing instance id",
			yaml: `
ingestion:
  watch:
    - symbol: BTCUSD
      kind: trade
`,
			wantErr: true,
		},
		{
			name: "empty watch list",
			yaml: `
instance:
  id: w1
`,
			wantErr: true,
		},
		{
			name: "kline without interval",
			yaml: `
instance:
  id: w1
ingestion:
  watch:
    - symbol: BTCUSD
      kind: kline
`,
			wantErr: true,
		},
		{
			name: "unknown kind",
			yaml: `
instance:
  id: w1
ingestion:
  watch:
    - symbol: BTCUSD
      kind: orderbook
`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTempFile(t, tt.yaml)
			_, err := LoadAndValidate(path)
			if (err != nil) != tt.wantErr {
				t.Errorf("LoadAndValidate err = %v, wantErr = %v", err, tt.wantErr)
			}
		})
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("POSTGRES_HOST", "db.internal")
	t.Setenv("POSTGRES_PORT", "5433")
	t.Setenv("POSTGRES_USER", "ingest")
	t.Setenv("POSTGRES_PASSWORD", "hunter2")
	t.Setenv("POSTGRES_DB", "marketdata")

	cfg := FromEnv()
	if cfg.Database.Host != "db.internal" {
		t.Errorf("Host = %q", cfg.Database.Host)
	}
	if cfg.Database.Port != 5433 {
		t.Errorf("Port = %d, want 5433", cfg.Database.Port)
	}
	if cfg.Database.User != "ingest" || cfg.Database.Password != "hunter2" || cfg.Database.Name != "marketdata" {
		t.Errorf("credentials = %s/%s@%s", cfg.Database.User, cfg.Database.Password, cfg.Database.Name)
	}
}

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"POSTGRES_HOST", "POSTGRES_PORT", "POSTGRES_USER", "POSTGRES_PASSWORD", "POSTGRES_DB"} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()
	if cfg.Database.Host != DefaultDBHost || cfg.Database.Port != DefaultDBPort {
		t.Errorf("Database = %s:%d, want defaults", cfg.Database.Host, cfg.Database.Port)
	}
	if cfg.Database.User != DefaultDBUser || cfg.Database.Name != DefaultDBName {
		t.Errorf("user/name = %s/%s, want defaults", cfg.Database.User, cfg.Database.Name)
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}
