package config

import (
	"io"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AuthPort != DefaultAuthPort {
		t.Errorf("AuthPort: got %d, want %d", cfg.AuthPort, DefaultAuthPort)
	}
	if cfg.AcctPort() != DefaultAuthPort+1 {
		t.Errorf("AcctPort: got %d, want %d", cfg.AcctPort(), DefaultAuthPort+1)
	}
	if !cfg.SpawnMode {
		t.Error("SpawnMode: 既定はtrue")
	}
	if cfg.ValkeyEnabled() {
		t.Error("ValkeyEnabled: REDIS_HOST未設定時はfalse")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("AUTH_PORT", "1645")
	t.Setenv("REDIS_HOST", "valkey.local")
	t.Setenv("REDIS_PORT", "6380")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AuthPort != LegacyAuthPort {
		t.Errorf("AuthPort: got %d, want %d", cfg.AuthPort, LegacyAuthPort)
	}
	if !cfg.ValkeyEnabled() {
		t.Error("ValkeyEnabled: got false, want true")
	}
	if cfg.ValkeyAddr() != "valkey.local:6380" {
		t.Errorf("ValkeyAddr: got %q", cfg.ValkeyAddr())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"既定値は妥当", func(*Config) {}, false},
		{"ポート範囲外", func(c *Config) { c.AuthPort = 70000 }, true},
		{"転送URLスキーム不正", func(c *Config) { c.AcctForwardURL = "ftp://x" }, true},
		{"転送URL妥当", func(c *Config) { c.AcctForwardURL = "http://collector:8080" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			tt.mutate(cfg)
			err = cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate: err=%v, wantErr=%v", err, tt.wantErr)
			}
		})
	}
}

func TestParseFlags(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	show, err := ParseFlags(cfg, []string{
		"-p", "1645",
		"-a", "/tmp/acct",
		"-d", "/tmp/conf",
		"-i", "127.0.0.1",
		"-n",
		"-S",
		"-y",
		"-x", "-x",
	}, io.Discard)
	if err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	if show {
		t.Fatal("showVersion: got true")
	}

	if cfg.AuthPort != 1645 {
		t.Errorf("AuthPort: got %d, want 1645", cfg.AuthPort)
	}
	if cfg.AcctDir != "/tmp/acct" || cfg.ConfDir != "/tmp/conf" {
		t.Errorf("dirs: got %q %q", cfg.AcctDir, cfg.ConfDir)
	}
	if cfg.BindAddr != "127.0.0.1" {
		t.Errorf("BindAddr: got %q", cfg.BindAddr)
	}
	if !cfg.DisableDNS || !cfg.LogStrippedName || !cfg.LogAuth {
		t.Error("bool系フラグが反映されていない")
	}
	if cfg.DebugLevel != 2 {
		t.Errorf("DebugLevel: got %d, want 2", cfg.DebugLevel)
	}
}

func TestParseFlagsSingleMode(t *testing.T) {
	cfg, _ := Load()
	if _, err := ParseFlags(cfg, []string{"-s"}, io.Discard); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	if cfg.SpawnMode {
		t.Error("-s: SpawnModeはfalseになるべき")
	}
}

func TestParseFlagsMegaDebug(t *testing.T) {
	cfg, _ := Load()
	if _, err := ParseFlags(cfg, []string{"-X"}, io.Discard); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}

	// -X は -sfxxyz -l stdout の省略形
	if cfg.SpawnMode {
		t.Error("SpawnMode: got true, want false")
	}
	if !cfg.Foreground {
		t.Error("Foreground: got false, want true")
	}
	if cfg.DebugLevel < 2 {
		t.Errorf("DebugLevel: got %d, want >=2", cfg.DebugLevel)
	}
	if !cfg.LogAuth || !cfg.LogAuthPass {
		t.Error("LogAuth/LogAuthPass: got false, want true")
	}
	if cfg.LogDir != "stdout" {
		t.Errorf("LogDir: got %q, want stdout", cfg.LogDir)
	}
}

func TestParseFlagsVersion(t *testing.T) {
	cfg, _ := Load()
	show, err := ParseFlags(cfg, []string{"-v"}, io.Discard)
	if err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	if !show {
		t.Error("showVersion: got false, want true")
	}
}
