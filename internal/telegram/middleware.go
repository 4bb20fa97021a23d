package telegram

import (
	"context"

	"forward_bot/internal/logger"

	"github.com/go-telegram/bot"
	botModels "github.com/go-telegram/bot/models"
)

// asyncHandler 把 handler 包装成经工作池异步执行
// 每条命令都要有一条答复：队列满导致任务被丢弃时也回一句繁忙提示
func (b *Bot) asyncHandler(handler bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, botInstance *bot.Bot, update *botModels.Update) {
		ok := b.workerPool.Submit(HandlerTask{
			Ctx:         ctx,
			BotInstance: botInstance,
			Update:      update,
			Handler:     handler,
		})
		if !ok && update.Message != nil {
			b.sendErrorMessage(ctx, update.Message.Chat.ID, "服务器繁忙，请稍后重试")
		}
	}
}

// RequireOwner 中间件：限制命令只有配置的管理员可用
// 未配置 BOT_OWNER_IDS 时不做限制，保持和最初版本一致的开放行为
func (b *Bot) RequireOwner(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, botInstance *bot.Bot, update *botModels.Update) {
		if update.Message == nil || update.Message.From == nil {
			return
		}

		if len(b.ownerIDs) == 0 {
			next(ctx, botInstance, update)
			return
		}

		fromID := update.Message.From.ID
		for _, ownerID := range b.ownerIDs {
			if fromID == ownerID {
				next(ctx, botInstance, update)
				return
			}
		}

		logger.L().Warnf("Non-owner user %d attempted to use restricted command", fromID)
		b.sendErrorMessage(ctx, update.Message.Chat.ID, "此命令仅限 Bot 管理员使用")
	}
}
