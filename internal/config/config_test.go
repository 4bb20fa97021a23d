package config

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "123456:token")
	t.Setenv("API_ID", "94517")
	t.Setenv("API_HASH", "a1b2c3d4")
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.MongoDBName != "forward_bot" {
		t.Fatalf("unexpected default db name: %q", cfg.MongoDBName)
	}
	if cfg.SessionFile != "session.json" {
		t.Fatalf("unexpected default session file: %q", cfg.SessionFile)
	}
	if cfg.LoginCooldown != 30*time.Second {
		t.Fatalf("unexpected default cooldown: %v", cfg.LoginCooldown)
	}
	if cfg.APIID != 94517 {
		t.Fatalf("unexpected api id: %d", cfg.APIID)
	}
	if len(cfg.BotOwnerIDs) != 0 {
		t.Fatalf("expected no owner ids, got %v", cfg.BotOwnerIDs)
	}
}

func TestLoadMissingRequired(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TELEGRAM_TOKEN", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for missing TELEGRAM_TOKEN")
	}
}

func TestLoadCooldownAndOwners(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("LOGIN_COOLDOWN_SECONDS", "60")
	t.Setenv("BOT_OWNER_IDS", "1001, 1002")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LoginCooldown != 60*time.Second {
		t.Fatalf("unexpected cooldown: %v", cfg.LoginCooldown)
	}
	if len(cfg.BotOwnerIDs) != 2 || cfg.BotOwnerIDs[0] != 1001 || cfg.BotOwnerIDs[1] != 1002 {
		t.Fatalf("unexpected owner ids: %v", cfg.BotOwnerIDs)
	}
}

func TestLoadInvalidCooldown(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("LOGIN_COOLDOWN_SECONDS", "zero")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid cooldown")
	}
}
