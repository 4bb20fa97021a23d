package telegram

import (
	"context"

	"github.com/go-telegram/bot"

	"forward_bot/internal/logger"
)

// sendMessage 发送消息（统一错误处理）
func (b *Bot) sendMessage(ctx context.Context, chatID int64, text string) {
	b.send(ctx, chatID, text)
}

// botSend 通过 Bot API 实际发送，New 里挂到 send 字段上
func (b *Bot) botSend(ctx context.Context, chatID int64, text string) {
	params := &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	}

	if _, err := b.bot.SendMessage(ctx, params); err != nil {
		logger.L().Errorf("Failed to send message to chat %d: %v", chatID, err)
	}
}

// sendErrorMessage 发送错误消息
func (b *Bot) sendErrorMessage(ctx context.Context, chatID int64, message string) {
	b.sendMessage(ctx, chatID, "❌ "+message)
}

// sendSuccessMessage 发送成功消息
func (b *Bot) sendSuccessMessage(ctx context.Context, chatID int64, message string) {
	b.sendMessage(ctx, chatID, "✅ "+message)
}
