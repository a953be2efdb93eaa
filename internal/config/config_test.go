package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Database.Path != "./data/rollcall.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if len(cfg.Commands.Checkin) == 0 || len(cfg.Commands.Roster) == 0 {
		t.Error("expected default commands")
	}
	if cfg.Admin.TokenTTL != 12*time.Hour {
		t.Errorf("TokenTTL = %v", cfg.Admin.TokenTTL)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "rollcall.yaml", `
timezone: Asia/Shanghai
telegram:
  token: from-file
database:
  path: /var/lib/rollcall.db
admin:
  jwt_secret: s3cret
  token_ttl: 30m
  ids: ["1001"]
commands:
  checkin: ["/in"]
messages:
  nobody_online: "nobody yet"
  captcha_prompt: "{name}, tap {code}"
redis:
  dedup_ttl: 2h
`)

	t.Setenv("TELEGRAM_TOKEN", "from-env")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Telegram.Token != "from-env" {
		t.Errorf("env should override file, got %q", cfg.Telegram.Token)
	}
	if cfg.Database.Path != "/var/lib/rollcall.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.Admin.TokenTTL != 30*time.Minute {
		t.Errorf("TokenTTL = %v, want 30m", cfg.Admin.TokenTTL)
	}
	if cfg.Redis.DedupTTL != 2*time.Hour {
		t.Errorf("DedupTTL = %v, want 2h", cfg.Redis.DedupTTL)
	}
	if len(cfg.Commands.Checkin) != 1 || cfg.Commands.Checkin[0] != "/in" {
		t.Errorf("Commands.Checkin = %v", cfg.Commands.Checkin)
	}
	if len(cfg.Commands.Roster) == 0 {
		t.Error("roster commands should keep defaults when not in file")
	}
	if cfg.Messages.NobodyOnline != "nobody yet" || cfg.Messages.CaptchaPrompt != "{name}, tap {code}" {
		t.Errorf("Messages = %+v", cfg.Messages)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("Kafka.Brokers = %v", cfg.Kafka.Brokers)
	}

	loc, err := cfg.Location()
	if err != nil {
		t.Fatalf("Location failed: %v", err)
	}
	if loc.String() != "Asia/Shanghai" {
		t.Errorf("Location = %v", loc)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Timezone = "Mars/Olympus"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"telegram.token", "jwt_secret", "timezone"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should mention %q", err, want)
		}
	}

	cfg = Default()
	cfg.Telegram.Token = "t"
	cfg.Admin.JWTSecret = "s"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestParseFlags(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "rollcall.yaml", "telegram:\n  token: t\nadmin:\n  jwt_secret: s\n")

	cfg, err := Parse("rollcall", []string{
		"--config", path,
		"--env-file", filepath.Join(dir, "missing.env"),
		"--db", filepath.Join(dir, "x.db"),
		"--addr", ":9999",
		"--log-level", "debug",
	})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.HTTP.Addr != ":9999" || cfg.LogLevel != "debug" || cfg.Database.Path != filepath.Join(dir, "x.db") {
		t.Errorf("flags not applied: %+v", cfg)
	}
}
