package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LavalinkHost != "127.0.0.1" || cfg.LavalinkPort != 2333 || cfg.LavalinkPassword != "youshallnotpass" {
		t.Errorf("lavalink defaults = %s:%d %s", cfg.LavalinkHost, cfg.LavalinkPort, cfg.LavalinkPassword)
	}
	if cfg.JoinTimeout != 10*time.Second {
		t.Errorf("JoinTimeout = %v, want 10s", cfg.JoinTimeout)
	}
	if cfg.SearchPrefix != "scsearch" {
		t.Errorf("SearchPrefix = %q", cfg.SearchPrefix)
	}
	if cfg.WebUIBaseURL != "http://localhost:3000" {
		t.Errorf("WebUIBaseURL = %q", cfg.WebUIBaseURL)
	}
	if cfg.APIEnabled() {
		t.Errorf("APIEnabled() without client credentials")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("JOIN_TIMEOUT", "3s")
	t.Setenv("LAVALINK_PORT", "4000")
	t.Setenv("DISCORD_CLIENT_ID", "id")
	t.Setenv("DISCORD_CLIENT_SECRET", "secret")
	t.Setenv("DISCORD_REDIRECT_URI", "https://player.example.com/api/auth/callback")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.JoinTimeout != 3*time.Second || cfg.LavalinkPort != 4000 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if !cfg.APIEnabled() {
		t.Errorf("APIEnabled() = false with client credentials")
	}
	if cfg.WebUIBaseURL != "https://player.example.com" {
		t.Errorf("WebUIBaseURL = %q", cfg.WebUIBaseURL)
	}
}

func TestLoadRequiresToken(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")
	if _, err := Load(); err == nil {
		t.Fatal("Load() succeeded without DISCORD_TOKEN")
	}
}

func TestLoadRejectsBadTimeout(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("JOIN_TIMEOUT", "0s")
	if _, err := Load(); err == nil {
		t.Fatal("Load() accepted a zero join timeout")
	}
}
