package telegram

import (
	"context"
	"fmt"
	"time"

	"forward_bot/internal/config"
	"forward_bot/internal/logger"
	"forward_bot/internal/telegram/repository"
	"forward_bot/internal/telegram/session"

	"github.com/go-telegram/bot"
	"go.mongodb.org/mongo-driver/mongo"
)

// Config Telegram Bot 配置
type Config struct {
	Token    string  // 指令 Bot Token
	OwnerIDs []int64 // 管理员用户 IDs，为空则不限制
}

// Bot 指令面：把文本命令映射到会话状态机和任务存储
type Bot struct {
	bot        *bot.Bot
	db         *mongo.Database
	ownerIDs   []int64
	sessions   *session.Manager
	taskRepo   repository.TaskRepository
	workerPool *WorkerPool
	startTime  time.Time

	// 出站消息出口，生产路径为 botSend，测试里可替换
	send func(ctx context.Context, chatID int64, text string)
}

// New 创建指令 Bot
func New(cfg Config, db *mongo.Database, sessions *session.Manager, taskRepo repository.TaskRepository) (*Bot, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram token cannot be empty")
	}

	b, err := bot.New(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	telegramBot := &Bot{
		bot:        b,
		db:         db,
		ownerIDs:   cfg.OwnerIDs,
		sessions:   sessions,
		taskRepo:   taskRepo,
		workerPool: NewWorkerPool(4, 64),
		startTime:  time.Now(),
	}
	telegramBot.send = telegramBot.botSend

	telegramBot.registerHandlers()

	if err := taskRepo.EnsureIndexes(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ensure indexes: %w", err)
	}

	logger.L().Info("Telegram bot initialized successfully")
	return telegramBot, nil
}

// InitFromConfig 从应用配置初始化指令 Bot
func InitFromConfig(cfg *config.Config, db *mongo.Database, sessions *session.Manager, taskRepo repository.TaskRepository) (*Bot, error) {
	return New(Config{
		Token:    cfg.TelegramToken,
		OwnerIDs: cfg.BotOwnerIDs,
	}, db, sessions, taskRepo)
}

// Start 启动 Bot（阻塞式，随 ctx 取消而退出）
func (b *Bot) Start(ctx context.Context) {
	logger.L().Info("Starting Telegram bot...")
	b.bot.Start(ctx)
	b.workerPool.Shutdown()
	logger.L().Info("Telegram bot stopped")
}

// registerHandlers 注册所有命令处理器（经工作池异步执行）
func (b *Bot) registerHandlers() {
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact,
		b.asyncHandler(b.handleStart))
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/status", bot.MatchTypeExact,
		b.asyncHandler(b.handleStatus))
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/listtasks", bot.MatchTypeExact,
		b.asyncHandler(b.handleListTasks))

	// 会话与任务变更命令，可通过 BOT_OWNER_IDS 收紧权限
	// /login 和 /login_bot 共用一个前缀入口，在 handler 内部按命令词分流
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/login", bot.MatchTypePrefix,
		b.asyncHandler(b.RequireOwner(b.handleLoginCommands)))
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/code", bot.MatchTypePrefix,
		b.asyncHandler(b.RequireOwner(b.handleCode)))
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/resendcode", bot.MatchTypeExact,
		b.asyncHandler(b.RequireOwner(b.handleResendCode)))
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/addtask", bot.MatchTypePrefix,
		b.asyncHandler(b.RequireOwner(b.handleAddTask)))
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/removetask", bot.MatchTypePrefix,
		b.asyncHandler(b.RequireOwner(b.handleRemoveTask)))

	logger.L().Debug("All handlers registered with async execution")
}
