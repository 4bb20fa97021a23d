package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"forward_bot/internal/telegram/session"
)

// phaseLabels 各会话阶段的展示文案
var phaseLabels = map[session.Phase]string{
	session.PhaseLoggedOut:     "🔒 未登录",
	session.PhaseCodeRequested: "⏳ 等待验证码（/code aa<验证码>）",
	session.PhaseAuthenticated: "🟢 已登录，转发运行中",
}

// kindLabels 登录方式的展示文案
var kindLabels = map[session.LoginKind]string{
	session.KindBotToken: "Bot Token",
	session.KindPhone:    "手机号",
}

// buildStatusMessage 构建 /status 命令的响应文本
func (b *Bot) buildStatusMessage(ctx context.Context, status *session.Status) string {
	lines := []string{"📊 会话状态"}

	phase, ok := phaseLabels[status.Phase]
	if !ok {
		phase = string(status.Phase)
	}
	lines = append(lines, fmt.Sprintf("状态: %s", phase))

	if kind, ok := kindLabels[status.Kind]; ok {
		lines = append(lines, fmt.Sprintf("登录方式: %s", kind))
	}
	if status.Identifier != "" {
		lines = append(lines, fmt.Sprintf("账号: %s", status.Identifier))
	}

	lines = append(lines, fmt.Sprintf("转发任务: %d 条", status.ActiveTasks))

	if !b.startTime.IsZero() {
		lines = append(lines, fmt.Sprintf("⏱ 运行时间: %s", formatDuration(time.Since(b.startTime))))
	}

	if b.workerPool != nil {
		stats := b.workerPool.Stats()
		lines = append(lines, fmt.Sprintf("🛠 工作池: %d 个协程，队列 %d/%d",
			stats.Workers, stats.QueueLength, stats.QueueCapacity))
	}

	if b.db != nil {
		dbCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		if err := b.db.Client().Ping(dbCtx, nil); err != nil {
			lines = append(lines, fmt.Sprintf("🗄 数据库: ⚠️ %v", err))
		} else {
			lines = append(lines, "🗄 数据库: ✅ 正常")
		}
	}

	return strings.Join(lines, "\n")
}

// formatDuration 将持续时间格式化为人类可读的字符串
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	d = d.Round(time.Second)

	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d / time.Second

	parts := make([]string, 0, 4)
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%d天", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%d小时", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%d分钟", minutes))
	}
	if seconds > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%d秒", seconds))
	}

	return strings.Join(parts, " ")
}
