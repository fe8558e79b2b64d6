package config

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("MINIO_ACCESS_KEY_ID", "minio")
	t.Setenv("MINIO_SECRET_ACCESS_KEY", "minio-secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.Port != 8080 {
		t.Fatalf("expected default api port 8080, got %d", cfg.API.Port)
	}
	if cfg.Share.PasswordAttemptsPerHour != 10 {
		t.Fatalf("expected 10 password attempts, got %d", cfg.Share.PasswordAttemptsPerHour)
	}
	if cfg.Share.StoreTimeout != 5*time.Second {
		t.Fatalf("expected 5s store timeout, got %s", cfg.Share.StoreTimeout)
	}
	if cfg.Uploads.MaxFilesPerPage != 10 {
		t.Fatalf("expected 10 files per page, got %d", cfg.Uploads.MaxFilesPerPage)
	}
	if got := cfg.Redis.Addr(); got != "localhost:6379" {
		t.Fatalf("unexpected redis addr %q", got)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("API_PORT", "9000")
	t.Setenv("API_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("SHARE_STORE_TIMEOUT", "750ms")
	t.Setenv("UPLOADS_MAX_FILES_PER_PAGE", "3")
	t.Setenv("DATABASE_LOG_LEVEL", "info")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.Port != 9000 {
		t.Fatalf("expected port 9000, got %d", cfg.API.Port)
	}
	if len(cfg.API.AllowedOrigins) != 2 || cfg.API.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins %v", cfg.API.AllowedOrigins)
	}
	if cfg.Share.StoreTimeout != 750*time.Millisecond {
		t.Fatalf("expected 750ms, got %s", cfg.Share.StoreTimeout)
	}
	if cfg.Uploads.MaxFilesPerPage != 3 {
		t.Fatalf("expected 3 files per page, got %d", cfg.Uploads.MaxFilesPerPage)
	}
}

func TestLoad_RejectsInvalid(t *testing.T) {
	cases := map[string]map[string]string{
		"missing minio keys":  {"MINIO_ACCESS_KEY_ID": "", "MINIO_SECRET_ACCESS_KEY": ""},
		"bad log level":       {"DATABASE_LOG_LEVEL": "verbose"},
		"zero store timeout":  {"SHARE_STORE_TIMEOUT": "0s"},
		"zero password limit": {"SHARE_PASSWORD_ATTEMPTS_PER_HOUR": "0"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			setRequiredEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, Name: "portfolio", User: "u", Password: "p", SSLMode: "disable"}
	want := "host=db port=5432 user=u password=p dbname=portfolio sslmode=disable"
	if got := d.DSN(); got != want {
		t.Fatalf("dsn = %q, want %q", got, want)
	}
}
