package main

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig("", envMap(nil))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Port != DefaultPort {
		t.Errorf("port: got %d, want %d", cfg.Port, DefaultPort)
	}
	if cfg.DataFile != DefaultDataFile {
		t.Errorf("data_file: got %q, want %q", cfg.DataFile, DefaultDataFile)
	}
	if !reflect.DeepEqual(cfg.APIKeys, []string{DefaultAPIKey}) {
		t.Errorf("api_keys: got %v, want [%s]", cfg.APIKeys, DefaultAPIKey)
	}
	if cfg.Environment != "development" {
		t.Errorf("environment: got %q, want development", cfg.Environment)
	}
	if cfg.Timestamp != "no-timestamp" {
		t.Errorf("timestamp: got %q, want no-timestamp", cfg.Timestamp)
	}
}

func TestLoadConfig_YAML(t *testing.T) {
	p := writeConfig(t, `port: 9090
data_file: /var/lib/datalog/data.json
api_keys:
  - k1
  - k2
environment: staging
timestamp: "2024-01-01T00:00:00Z"
`)
	cfg, err := loadConfig(p, envMap(nil))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Port != 9090 {
		t.Errorf("port: got %d, want 9090", cfg.Port)
	}
	if cfg.DataFile != "/var/lib/datalog/data.json" {
		t.Errorf("data_file: got %q", cfg.DataFile)
	}
	if !reflect.DeepEqual(cfg.APIKeys, []string{"k1", "k2"}) {
		t.Errorf("api_keys: got %v, want [k1 k2]", cfg.APIKeys)
	}
	if cfg.Environment != "staging" {
		t.Errorf("environment: got %q, want staging", cfg.Environment)
	}
	if cfg.Timestamp != "2024-01-01T00:00:00Z" {
		t.Errorf("timestamp: got %q", cfg.Timestamp)
	}
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	p := writeConfig(t, `port: 9090
api_keys: [k1, k2]
environment: staging
`)
	cfg, err := loadConfig(p, envMap(map[string]string{
		"PORT":                "7070",
		"API_KEY":             "from-env",
		"RAILWAY_ENVIRONMENT": "production",
		"RAILWAY_TIMESTAMP":   "deploy-42",
		"DATA_FILE":           "env.json",
	}))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Port != 7070 {
		t.Errorf("port: got %d, want 7070", cfg.Port)
	}
	if !reflect.DeepEqual(cfg.APIKeys, []string{"from-env"}) {
		t.Errorf("api_keys: got %v, want [from-env]", cfg.APIKeys)
	}
	if cfg.Environment != "production" {
		t.Errorf("environment: got %q, want production", cfg.Environment)
	}
	if cfg.Timestamp != "deploy-42" {
		t.Errorf("timestamp: got %q, want deploy-42", cfg.Timestamp)
	}
	if cfg.DataFile != "env.json" {
		t.Errorf("data_file: got %q, want env.json", cfg.DataFile)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	cases := []struct {
		name    string
		yaml    string
		env     map[string]string
		wantErr string
	}{
		{"port out of range", "port: 70000\n", nil, "out of range"},
		{"port not a number", "", map[string]string{"PORT": "eighty"}, "not a number"},
		{"no keys", "api_keys: []\n", nil, "api key"},
		{"blank keys", "api_keys: [\"\"]\n", nil, "api key"},
		{"empty data file", "data_file: \"\"\n", nil, "data_file"},
		{"bad yaml", "port: [\n", nil, "parse yaml"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := writeConfig(t, tc.yaml)
			_, err := loadConfig(p, envMap(tc.env))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "absent.yaml"), envMap(nil))
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}
