package app

import (
	"context"
	"fmt"

	"forward_bot/internal/config"
	"forward_bot/internal/logger"
	"forward_bot/internal/mongo"
	"forward_bot/internal/telegram"
	"forward_bot/internal/telegram/dispatch"
	"forward_bot/internal/telegram/repository"
	"forward_bot/internal/telegram/session"
	"forward_bot/internal/userbot"
)

// App 应用服务容器
// 负责管理所有服务的生命周期（初始化、运行、关闭）
type App struct {
	MongoDB     *mongo.Client
	Userbot     *userbot.Client
	Dispatcher  *dispatch.Dispatcher
	Sessions    *session.Manager
	TelegramBot *telegram.Bot
}

// New 初始化应用及其所有服务
// 按顺序初始化各个服务，任何服务初始化失败都会返回错误
func New(cfg *config.Config) (*App, error) {
	app := &App{}

	// 初始化 MongoDB
	mongoClient, err := mongo.InitFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("init MongoDB failed: %w", err)
	}
	app.MongoDB = mongoClient
	logger.L().Info("MongoDB initialized successfully")

	taskRepo := repository.NewMongoTaskRepository(mongoClient.Database())

	// MTProto 客户端：鉴权短连接 + 登录后的长连接监听
	app.Userbot = userbot.NewClient(userbot.Config{
		APIID:       cfg.APIID,
		APIHash:     cfg.APIHash,
		SessionFile: cfg.SessionFile,
	})

	// 转发分发器：每条消息到达时重新读库匹配任务
	app.Dispatcher = dispatch.New(taskRepo, app.Userbot)

	// 会话状态机：登录成功后把新消息接到分发器上
	app.Sessions = session.NewManager(app.Userbot, app.Userbot, taskRepo,
		app.Dispatcher.HandleMessage, cfg.LoginCooldown)

	// 指令 Bot
	app.TelegramBot, err = telegram.InitFromConfig(cfg, mongoClient.Database(), app.Sessions, taskRepo)
	if err != nil {
		app.Close(context.Background())
		return nil, fmt.Errorf("init Telegram bot failed: %w", err)
	}

	return app, nil
}

// Run 运行指令 Bot，阻塞直到 ctx 取消
func (a *App) Run(ctx context.Context) {
	a.TelegramBot.Start(ctx)
}

// Close 优雅关闭所有服务
// 应该在应用退出时调用，确保资源正确释放
func (a *App) Close(ctx context.Context) error {
	if a.Sessions != nil {
		if err := a.Sessions.Close(ctx); err != nil {
			logger.L().Errorf("Failed to close session manager: %v", err)
		}
	}
	if a.Dispatcher != nil {
		a.Dispatcher.Close()
	}
	if a.MongoDB != nil {
		if err := a.MongoDB.Close(ctx); err != nil {
			return fmt.Errorf("close MongoDB failed: %w", err)
		}
	}
	return nil
}
