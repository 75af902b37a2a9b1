package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoad_Defaults(t *testing.T) {
	p := writeConfig(t, `server: {}
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.HTTPPort != DefaultHTTPPort {
		t.Errorf("http_port: got %d, want %d", cfg.Server.HTTPPort, DefaultHTTPPort)
	}
	if cfg.Server.Auth.Mode != "static" {
		t.Errorf("auth.mode: got %q, want static", cfg.Server.Auth.Mode)
	}
	if cfg.Server.Engine.Mode != "local" {
		t.Errorf("engine.mode: got %q, want local", cfg.Server.Engine.Mode)
	}
	if cfg.Server.Engine.Timeout != DefaultEngineTimeout {
		t.Errorf("engine.timeout: got %v, want %v", cfg.Server.Engine.Timeout, DefaultEngineTimeout)
	}
	if cfg.Server.Dispatch.Workers != DefaultWorkers {
		t.Errorf("dispatch.workers: got %d, want %d", cfg.Server.Dispatch.Workers, DefaultWorkers)
	}
	if cfg.Server.Store.Path != DefaultSnapshotPath {
		t.Errorf("store.path: got %q, want %q", cfg.Server.Store.Path, DefaultSnapshotPath)
	}
}

func TestLoad_Full(t *testing.T) {
	p := writeConfig(t, `server:
  http_port: 9091
  cors_origins:
    - https://app.example.com
  auth:
    mode: remote
    verify_url: https://id.example.com/verify
  engine:
    mode: grpc
    address: engine.internal:50051
  dispatch:
    workers: 8
    queue_size: 128
  store:
    path: /var/lib/astroserve/state.json
  notify:
    webhooks:
      - type: slack
        url_env: SLACK_WEBHOOK_URL
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.HTTPPort != 9091 {
		t.Errorf("http_port: got %d, want 9091", cfg.Server.HTTPPort)
	}
	if cfg.Server.Auth.VerifyURL != "https://id.example.com/verify" {
		t.Errorf("auth.verify_url: got %q", cfg.Server.Auth.VerifyURL)
	}
	if cfg.Server.Engine.Address != "engine.internal:50051" {
		t.Errorf("engine.address: got %q", cfg.Server.Engine.Address)
	}
	if cfg.Server.Dispatch.Workers != 8 || cfg.Server.Dispatch.QueueSize != 128 {
		t.Errorf("dispatch: got %+v", cfg.Server.Dispatch)
	}
	if len(cfg.Server.Notify.Webhooks) != 1 || cfg.Server.Notify.Webhooks[0].Type != "slack" {
		t.Errorf("webhooks: got %+v", cfg.Server.Notify.Webhooks)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"bad port", "server:\n  http_port: 99999\n", "http_port"},
		{"bad auth mode", "server:\n  auth:\n    mode: oauth\n", "auth.mode"},
		{"remote without url", "server:\n  auth:\n    mode: remote\n", "verify_url"},
		{"bad engine mode", "server:\n  engine:\n    mode: wasm\n", "engine.mode"},
		{"grpc without address", "server:\n  engine:\n    mode: grpc\n", "engine.address"},
		{"zero workers", "server:\n  dispatch:\n    workers: 0\n", "workers"},
		{"bad webhook type", "server:\n  notify:\n    webhooks:\n      - type: smtp\n", "webhooks"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.yaml))
			if err == nil {
				t.Fatal("Load: expected error, got nil")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("err %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestStaticTokens(t *testing.T) {
	t.Setenv("ASTRO_TOKENS", "tok-1=uid-1, tok-2=uid-2,broken")
	a := AuthConfig{TokensEnv: "ASTRO_TOKENS"}

	tokens := a.StaticTokens()
	if len(tokens) != 2 {
		t.Fatalf("tokens: got %v, want 2 entries", tokens)
	}
	if tokens["tok-1"] != "uid-1" || tokens["tok-2"] != "uid-2" {
		t.Errorf("tokens: got %v", tokens)
	}
}

func TestWebhookURL_FromEnv(t *testing.T) {
	t.Setenv("HOOK_URL", "https://hooks.example.com/x")
	wh := WebhookConfig{Type: "http", URLEnv: "HOOK_URL"}
	if wh.URL() != "https://hooks.example.com/x" {
		t.Errorf("URL: got %q", wh.URL())
	}
	if (WebhookConfig{Type: "http"}).URL() != "" {
		t.Error("URL without env name should be empty")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("Load: expected error for missing file")
	}
}
