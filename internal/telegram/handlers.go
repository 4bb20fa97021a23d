package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"forward_bot/internal/logger"
	"forward_bot/internal/telegram/models"
	"forward_bot/internal/telegram/session"

	"github.com/go-telegram/bot"
	botModels "github.com/go-telegram/bot/models"
)

const usageText = `👋 欢迎使用消息转发 Bot！

登录（二选一）:
/login <手机号> - 个人账号登录，格式 +15551234567
/code aa<5位验证码> - 提交验证码，例如 /code aa12345
/resendcode - 重发验证码
/login_bot <bot_token> - Bot Token 登录

任务管理:
/addtask <源ID> <目标ID> <类型> - 添加转发任务
/listtasks - 查看所有任务
/removetask <任务ID> - 删除任务
/status - 查看会话状态`

// commandArgs 提取命令后的参数（按空白切分）
func commandArgs(text string) []string {
	fields := strings.Fields(text)
	if len(fields) <= 1 {
		return nil
	}
	return fields[1:]
}

// handleStart 处理 /start 命令
func (b *Bot) handleStart(ctx context.Context, botInstance *bot.Bot, update *botModels.Update) {
	if update.Message == nil {
		return
	}
	b.sendMessage(ctx, update.Message.Chat.ID, usageText)
}

// handleLoginCommands 分流 /login 和 /login_bot（共用前缀注册）
func (b *Bot) handleLoginCommands(ctx context.Context, botInstance *bot.Bot, update *botModels.Update) {
	if update.Message == nil {
		return
	}

	fields := strings.Fields(update.Message.Text)
	if len(fields) > 0 && fields[0] == "/login_bot" {
		b.handleLoginBot(ctx, botInstance, update)
		return
	}
	b.handleLogin(ctx, botInstance, update)
}

// handleLogin 处理 /login 命令（手机号登录，发送验证码）
func (b *Bot) handleLogin(ctx context.Context, botInstance *bot.Bot, update *botModels.Update) {
	chatID := update.Message.Chat.ID

	args := commandArgs(update.Message.Text)
	if len(args) != 1 {
		b.sendErrorMessage(ctx, chatID, "用法: /login <手机号>\n例如: /login +15551234567")
		return
	}

	if err := b.sessions.RequestPhoneLogin(ctx, args[0], chatID); err != nil {
		b.replyDelegateError(ctx, chatID, err)
		return
	}

	b.sendSuccessMessage(ctx, chatID,
		"验证码已发送，请查收后用 /code aa<验证码> 提交\n例如: /code aa12345")
}

// handleLoginBot 处理 /login_bot 命令（Bot Token 登录）
func (b *Bot) handleLoginBot(ctx context.Context, botInstance *bot.Bot, update *botModels.Update) {
	chatID := update.Message.Chat.ID

	args := commandArgs(update.Message.Text)
	if len(args) != 1 {
		b.sendErrorMessage(ctx, chatID, "用法: /login_bot <bot_token>")
		return
	}

	if err := b.sessions.RequestBotLogin(ctx, args[0]); err != nil {
		b.replyDelegateError(ctx, chatID, err)
		return
	}

	b.sendSuccessMessage(ctx, chatID,
		"Bot 登录成功！现在可以用 /addtask 添加转发任务了")
}

// handleCode 处理 /code 命令（提交验证码）
func (b *Bot) handleCode(ctx context.Context, botInstance *bot.Bot, update *botModels.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	args := commandArgs(update.Message.Text)
	if len(args) != 1 {
		b.sendErrorMessage(ctx, chatID, "用法: /code aa<5位验证码>\n例如: /code aa12345")
		return
	}

	if err := b.sessions.SubmitCode(ctx, args[0]); err != nil {
		b.replyDelegateError(ctx, chatID, err)
		return
	}

	b.sendSuccessMessage(ctx, chatID, "登录成功！转发已启动，可以用 /addtask 添加任务")
}

// handleResendCode 处理 /resendcode 命令
func (b *Bot) handleResendCode(ctx context.Context, botInstance *bot.Bot, update *botModels.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	if err := b.sessions.ResendCode(ctx); err != nil {
		b.replyDelegateError(ctx, chatID, err)
		return
	}

	b.sendSuccessMessage(ctx, chatID, "新验证码已发送，请用 /code aa<验证码> 提交")
}

// handleStatus 处理 /status 命令
func (b *Bot) handleStatus(ctx context.Context, botInstance *bot.Bot, update *botModels.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	status, err := b.sessions.Snapshot(ctx)
	if err != nil {
		logger.L().Errorf("Failed to build status snapshot: %v", err)
		b.sendErrorMessage(ctx, chatID, "查询状态失败，请稍后重试")
		return
	}

	b.sendMessage(ctx, chatID, b.buildStatusMessage(ctx, status))
}

// handleAddTask 处理 /addtask 命令
func (b *Bot) handleAddTask(ctx context.Context, botInstance *bot.Bot, update *botModels.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	// 前置条件：必须已登录，校验在任何存储调用之前
	if b.sessions.Phase() != session.PhaseAuthenticated {
		b.sendErrorMessage(ctx, chatID, "请先登录（/login <手机号> 或 /login_bot <token>）")
		return
	}

	args, errText := parseAddTaskArgs(update.Message.Text)
	if errText != "" {
		b.sendErrorMessage(ctx, chatID, errText)
		return
	}

	taskID, err := b.taskRepo.AddTask(ctx, args.sourceID, args.destinationID, args.taskType)
	if err != nil {
		logger.L().Errorf("Failed to add task: %v", err)
		b.sendErrorMessage(ctx, chatID, "任务保存失败，请稍后重试")
		return
	}

	b.sendSuccessMessage(ctx, chatID, fmt.Sprintf("任务已创建！Task ID: %s", taskID))
}

// handleListTasks 处理 /listtasks 命令
func (b *Bot) handleListTasks(ctx context.Context, botInstance *bot.Bot, update *botModels.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	tasks, err := b.taskRepo.ListTasks(ctx)
	if err != nil {
		logger.L().Errorf("Failed to list tasks: %v", err)
		b.sendErrorMessage(ctx, chatID, "查询任务失败，请稍后重试")
		return
	}

	b.sendMessage(ctx, chatID, formatTaskList(tasks))
}

// handleRemoveTask 处理 /removetask 命令
func (b *Bot) handleRemoveTask(ctx context.Context, botInstance *bot.Bot, update *botModels.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	args := commandArgs(update.Message.Text)
	if len(args) != 1 {
		b.sendErrorMessage(ctx, chatID, "用法: /removetask <任务ID>")
		return
	}

	deleted, err := b.taskRepo.RemoveTask(ctx, args[0])
	if err != nil {
		logger.L().Errorf("Failed to remove task %s: %v", args[0], err)
		b.sendErrorMessage(ctx, chatID, "删除任务失败，请稍后重试")
		return
	}

	if deleted {
		b.sendSuccessMessage(ctx, chatID, fmt.Sprintf("任务 %s 已删除", args[0]))
	} else {
		b.sendErrorMessage(ctx, chatID, fmt.Sprintf("任务 %s 不存在", args[0]))
	}
}

// replyDelegateError 把委托层错误翻译成一条用户可读的回复
// 已知类型直接用错误文案，未知错误只回通用提示，不外泄内部细节
func (b *Bot) replyDelegateError(ctx context.Context, chatID int64, err error) {
	var vErr *session.ValidationError
	var cErr *session.CooldownError
	var pErr *session.PreconditionError
	var tErr *session.TransportError

	switch {
	case errors.As(err, &vErr), errors.As(err, &cErr), errors.As(err, &pErr), errors.As(err, &tErr):
		b.sendErrorMessage(ctx, chatID, err.Error())
	default:
		logger.L().Errorf("Unhandled command error: %v", err)
		b.sendErrorMessage(ctx, chatID, "内部错误，请稍后重试")
	}
}

type addTaskArgs struct {
	sourceID      string
	destinationID string
	taskType      string
}

// parseAddTaskArgs 解析并校验 /addtask 的参数
// 返回的 errText 非空表示校验失败，直接作为回复文案
func parseAddTaskArgs(text string) (*addTaskArgs, string) {
	args := commandArgs(text)
	if len(args) != 3 {
		return nil, fmt.Sprintf(
			"用法: /addtask <源ID> <目标ID> <类型>\n类型: %s", models.TaskTypeList())
	}

	sourceID, destinationID, taskType := args[0], args[1], args[2]

	if !models.IsValidChatIdentifier(sourceID) {
		return nil, fmt.Sprintf("源ID格式错误: %s（应为数字ID或@用户名）", sourceID)
	}
	if !models.IsValidChatIdentifier(destinationID) {
		return nil, fmt.Sprintf("目标ID格式错误: %s（应为数字ID或@用户名）", destinationID)
	}
	if !models.IsValidTaskType(taskType) {
		return nil, fmt.Sprintf("无效的任务类型: %s\n可用类型: %s", taskType, models.TaskTypeList())
	}

	return &addTaskArgs{
		sourceID:      sourceID,
		destinationID: destinationID,
		taskType:      taskType,
	}, ""
}

// formatTaskList 渲染任务列表
func formatTaskList(tasks []*models.ForwardingTask) string {
	if len(tasks) == 0 {
		return "📝 暂无转发任务，用 /addtask 添加一个吧"
	}

	var text strings.Builder
	text.WriteString(fmt.Sprintf("📋 转发任务（%d 条）:\n\n", len(tasks)))
	for i, task := range tasks {
		text.WriteString(fmt.Sprintf("%d. %s → %s [%s]\n   ID: %s\n",
			i+1, task.SourceID, task.DestinationID, task.Type, task.ID.Hex()))
	}
	return text.String()
}
