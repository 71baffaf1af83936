package config

import (
	"os"
	"path/filepath"
	"testing"
)

func validConfig() Config {
	cfg := Config{HTTP: HTTPConfig{Port: 8080}}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_Defaults(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 70000

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_UnknownDriver(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.Areas["sync"] = AreaConfig{Driver: "valkey"}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
	expected := `storage.areas.sync.driver must be memory, sqlite or redis, got "valkey"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_DriverRequirements(t *testing.T) {
	tests := []struct {
		name string
		area AreaConfig
	}{
		{"sqlite without path", AreaConfig{Driver: DriverSQLite}},
		{"redis without addrs", AreaConfig{Driver: DriverRedis}},
		{"negative quota", AreaConfig{Driver: DriverMemory, QuotaBytesPerItem: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Storage.Areas["local"] = tt.area
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestValidate_DomainsMustNotShadowCache(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.Domains = []string{"local", CacheArea}

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when a domain reuses the cache area")
	}
}

func TestValidate_DuplicateDomain(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.Domains = []string{"local", "local"}

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for duplicate domain")
	}
}

func TestValidate_Embedding(t *testing.T) {
	tests := []struct {
		name    string
		emb     EmbeddingConfig
		wantErr bool
	}{
		{"hashing", EmbeddingConfig{Provider: ProviderHashing}, false},
		{"openai with model", EmbeddingConfig{Provider: ProviderOpenAI, Model: "all-minilm"}, false},
		{"openai without model", EmbeddingConfig{Provider: ProviderOpenAI}, true},
		{"unknown provider", EmbeddingConfig{Provider: "onnx"}, true},
		{"negative dims", EmbeddingConfig{Provider: ProviderHashing, Dimensions: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Embedding = tt.emb
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("wantErr=%v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidate_MinScore(t *testing.T) {
	cfg := validConfig()
	cfg.Search.MinScore = 1.5

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for min_score out of range")
	}

	cfg.Search.MinScore = -0.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for negative min_score")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.Port != 8765 {
		t.Errorf("expected Port=8765, got %d", cfg.HTTP.Port)
	}
	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("expected WriteTimeoutSec=60, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Storage.ReadinessTimeout != 10 {
		t.Errorf("expected ReadinessTimeout=10, got %d", cfg.Storage.ReadinessTimeout)
	}
	if len(cfg.Storage.Domains) != 2 || cfg.Storage.Domains[0] != "local" || cfg.Storage.Domains[1] != "sync" {
		t.Errorf("unexpected default domains %v", cfg.Storage.Domains)
	}
	for _, name := range []string{"local", "sync", CacheArea} {
		if cfg.Storage.Areas[name].Driver != DriverMemory {
			t.Errorf("expected area %s driver %q, got %q", name, DriverMemory, cfg.Storage.Areas[name].Driver)
		}
	}
	if cfg.Embedding.Provider != ProviderHashing {
		t.Errorf("expected provider %q, got %q", ProviderHashing, cfg.Embedding.Provider)
	}
	if cfg.Search.DefaultLimit != 20 {
		t.Errorf("expected DefaultLimit=20, got %d", cfg.Search.DefaultLimit)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP: HTTPConfig{Port: 9000, ReadTimeoutSec: 30, WriteTimeoutSec: 5, ShutdownSec: 5},
		Storage: StorageConfig{
			Domains: []string{"sync"},
			Areas:   map[string]AreaConfig{"sync": {Driver: DriverRedis, Addrs: []string{"localhost:6379"}}},
		},
		Embedding: EmbeddingConfig{Provider: ProviderOpenAI, Model: "nomic-embed-text"},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.Port != 9000 || cfg.HTTP.WriteTimeoutSec != 5 {
		t.Errorf("http settings overridden: %+v", cfg.HTTP)
	}
	if cfg.Storage.Areas["sync"].Driver != DriverRedis {
		t.Errorf("driver overridden: %q", cfg.Storage.Areas["sync"].Driver)
	}
	if cfg.Storage.Areas[CacheArea].Driver != DriverMemory {
		t.Errorf("expected cache area default, got %q", cfg.Storage.Areas[CacheArea].Driver)
	}
	if cfg.Embedding.Provider != ProviderOpenAI {
		t.Errorf("provider overridden: %q", cfg.Embedding.Provider)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("SNIPDEX_TEST_KEY", "secret")

	got := string(expandEnvVars([]byte("a: ${SNIPDEX_TEST_KEY}\nb: ${SNIPDEX_TEST_UNSET:-fallback}\nc: ${SNIPDEX_TEST_UNSET}")))
	want := "a: secret\nb: fallback\nc: "
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestLoadFile(t *testing.T) {
	t.Setenv("SNIPDEX_TEST_DIR", "/var/lib/snipdex")
	path := filepath.Join(t.TempDir(), "test.yaml")
	yaml := `
http:
  port: 9100
storage:
  areas:
    local:
      driver: sqlite
      path: ${SNIPDEX_TEST_DIR}/snipdex.db
    sync:
      driver: memory
      quota_bytes_per_item: 8192
embedding:
  provider: hashing
  dimensions: 256
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.HTTP.Port != 9100 {
		t.Errorf("expected port 9100, got %d", cfg.HTTP.Port)
	}
	if got := cfg.Storage.Areas["local"].Path; got != "/var/lib/snipdex/snipdex.db" {
		t.Errorf("expected expanded path, got %q", got)
	}
	if got := cfg.Storage.Areas["sync"].QuotaBytesPerItem; got != 8192 {
		t.Errorf("expected quota 8192, got %d", got)
	}
	if cfg.Embedding.Dimensions != 256 {
		t.Errorf("expected 256 dimensions, got %d", cfg.Embedding.Dimensions)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
