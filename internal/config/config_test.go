package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  host: localhost
  name: attend
  user: attend
  password: secret
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Recognition.Tolerance != 0.4 {
		t.Errorf("Recognition.Tolerance = %v, want 0.4", cfg.Recognition.Tolerance)
	}
	if cfg.Recognition.EncodingDim != 128 {
		t.Errorf("Recognition.EncodingDim = %d, want 128", cfg.Recognition.EncodingDim)
	}
	if cfg.Recognition.MinGap != 5*time.Minute {
		t.Errorf("Recognition.MinGap = %v, want 5m", cfg.Recognition.MinGap)
	}
	if cfg.Quality.MinSize != 200 || cfg.Quality.MaxSize != 2000 {
		t.Errorf("Quality size gates = %d/%d, want 200/2000", cfg.Quality.MinSize, cfg.Quality.MaxSize)
	}
	if cfg.Quality.MinFaceRatio != 0.1 {
		t.Errorf("Quality.MinFaceRatio = %v, want 0.1", cfg.Quality.MinFaceRatio)
	}
	if cfg.Liveness.Enabled {
		t.Error("Liveness.Enabled = true, want false by default")
	}
	if cfg.Sync.Retention != 30*24*time.Hour {
		t.Errorf("Sync.Retention = %v, want 720h", cfg.Sync.Retention)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %s/%s, want info/json", cfg.Logging.Level, cfg.Logging.Format)
	}
}

func TestLoadExplicitValues(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
recognition:
  tolerance: 0.35
  min_gap: 2m
liveness:
  enabled: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Recognition.Tolerance != 0.35 {
		t.Errorf("Recognition.Tolerance = %v, want 0.35", cfg.Recognition.Tolerance)
	}
	if cfg.Recognition.MinGap != 2*time.Minute {
		t.Errorf("Recognition.MinGap = %v, want 2m", cfg.Recognition.MinGap)
	}
	if !cfg.Liveness.Enabled {
		t.Error("Liveness.Enabled = false, want true")
	}
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 8080
database:
  host: filehost
`)

	t.Setenv("ATTEND_SERVER_PORT", "7070")
	t.Setenv("ATTEND_DB_HOST", "envhost")
	t.Setenv("ATTEND_TOLERANCE", "0.5")
	t.Setenv("ATTEND_MIN_GAP", "90s")
	t.Setenv("ATTEND_WORKER_COUNT", "8")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want env override 7070", cfg.Server.Port)
	}
	if cfg.Database.Host != "envhost" {
		t.Errorf("Database.Host = %q, want env override", cfg.Database.Host)
	}
	if cfg.Recognition.Tolerance != 0.5 {
		t.Errorf("Recognition.Tolerance = %v, want 0.5", cfg.Recognition.Tolerance)
	}
	if cfg.Recognition.MinGap != 90*time.Second {
		t.Errorf("Recognition.MinGap = %v, want 90s", cfg.Recognition.MinGap)
	}
	if cfg.Recognition.WorkerCount != 8 {
		t.Errorf("Recognition.WorkerCount = %d, want 8", cfg.Recognition.WorkerCount)
	}
}

func TestEnvOverrideIgnoresBadValues(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 8080
`)

	t.Setenv("ATTEND_SERVER_PORT", "not-a-number")
	t.Setenv("ATTEND_MIN_GAP", "soon")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want file value kept", cfg.Server.Port)
	}
	if cfg.Recognition.MinGap != 5*time.Minute {
		t.Errorf("Recognition.MinGap = %v, want default kept", cfg.Recognition.MinGap)
	}
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5433, Name: "attend", User: "svc", Password: "pw"}
	want := "postgres://svc:pw@db:5433/attend?sslmode=disable"
	if got := d.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("Load on missing file: expected error")
	}
}
