package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config 应用程序配置
type Config struct {
	TelegramToken string  // 指令 Bot 的 Telegram Bot API Token
	BotOwnerIDs   []int64 // 允许操作会话/任务的用户 ID 列表（为空则不限制）

	APIID   int    // Telegram MTProto api_id
	APIHash string // Telegram MTProto api_hash

	MongoURI    string // MongoDB 连接 URI
	MongoDBName string // MongoDB 数据库名称

	SessionFile   string        // MTProto 会话文件路径
	LoginCooldown time.Duration // 两次验证码请求之间的最小间隔
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	cfg := &Config{
		TelegramToken: os.Getenv("TELEGRAM_TOKEN"),
		APIHash:       os.Getenv("API_HASH"),
		MongoURI:      os.Getenv("MONGO_URI"),
	}

	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is required")
	}
	if cfg.APIHash == "" {
		return nil, fmt.Errorf("API_HASH is required")
	}
	if cfg.MongoURI == "" {
		return nil, fmt.Errorf("MONGO_URI is required")
	}

	apiIDStr := strings.TrimSpace(os.Getenv("API_ID"))
	if apiIDStr == "" {
		return nil, fmt.Errorf("API_ID is required")
	}
	apiID, err := strconv.Atoi(apiIDStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse API_ID: %w", err)
	}
	cfg.APIID = apiID

	cfg.MongoDBName = os.Getenv("MONGO_DB_NAME")
	if cfg.MongoDBName == "" {
		cfg.MongoDBName = "forward_bot"
	}

	cfg.SessionFile = os.Getenv("SESSION_FILE")
	if cfg.SessionFile == "" {
		cfg.SessionFile = "session.json"
	}

	// 登录冷却时间，默认 30 秒
	cooldownStr := strings.TrimSpace(os.Getenv("LOGIN_COOLDOWN_SECONDS"))
	if cooldownStr == "" {
		cfg.LoginCooldown = 30 * time.Second
	} else {
		seconds, err := strconv.Atoi(cooldownStr)
		if err != nil || seconds < 1 {
			return nil, fmt.Errorf("invalid LOGIN_COOLDOWN_SECONDS: %s", cooldownStr)
		}
		cfg.LoginCooldown = time.Duration(seconds) * time.Second
	}

	// 解析 BOT_OWNER_IDS（可选）
	ownerIDsStr := os.Getenv("BOT_OWNER_IDS")
	if ownerIDsStr != "" {
		cfg.BotOwnerIDs, err = parseOwnerIDs(ownerIDsStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse BOT_OWNER_IDS: %w", err)
		}
	}

	return cfg, nil
}

// parseOwnerIDs 解析逗号分隔的用户ID字符串
// 支持格式: "123456789" 或 "123456789,987654321"
func parseOwnerIDs(s string) ([]int64, error) {
	parts := strings.Split(s, ",")
	ids := make([]int64, 0, len(parts))

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid owner ID %q: %w", part, err)
		}
		ids = append(ids, id)
	}

	return ids, nil
}
