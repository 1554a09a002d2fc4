package server

import (
	"testing"
)

func TestConfigAddr(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"explicit host and port", Config{Host: "127.0.0.1", Port: 9090}, "127.0.0.1:9090"},
		{"wildcard host", Config{Host: "0.0.0.0", Port: 8080}, "0.0.0.0:8080"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.Addr(); got != tt.want {
				t.Errorf("Addr() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoadConfigServerDefaults(t *testing.T) {
	v, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	var cfg Config
	if err := v.Sub("server").Unmarshal(&cfg); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got := cfg.Addr(); got != "0.0.0.0:8080" {
		t.Errorf("default Addr() = %q, want %q", got, "0.0.0.0:8080")
	}
	if cfg.DataDir != "./data" {
		t.Errorf("default DataDir = %q, want %q", cfg.DataDir, "./data")
	}
}
