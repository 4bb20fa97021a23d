package dispatch

import (
	"context"

	"forward_bot/internal/logger"
	"forward_bot/internal/telegram/models"
	"forward_bot/internal/telegram/repository"

	"github.com/google/uuid"
)

// Relay 消息转发能力
// destination 可以是数字 chat id 或 @用户名，由底层负责解析
type Relay interface {
	Forward(ctx context.Context, fromChatID int64, destination string, messageID int) error
}

// Dispatcher 转发调度器
// 每条入站消息都重新读任务表再匹配，不缓存源会话列表，
// 任务的增删对下一条消息立即生效
type Dispatcher struct {
	tasks   repository.TaskRepository
	relay   Relay
	limiter *RateLimiter
}

// New 创建转发调度器
func New(tasks repository.TaskRepository, relay Relay) *Dispatcher {
	return &Dispatcher{
		tasks:   tasks,
		relay:   relay,
		limiter: NewRateLimiter(30), // Telegram 上限 30条/秒
	}
}

// HandleMessage 处理一条来自 chatID 的新消息
// 同一源可能命中多条任务（扇出），每个目标独立转发，失败只记日志不中断
func (d *Dispatcher) HandleMessage(ctx context.Context, chatID int64, messageID int) {
	tasks, err := d.tasks.ListTasks(ctx)
	if err != nil {
		logger.L().Errorf("Failed to load forwarding tasks: %v", err)
		return
	}

	var matched []*models.ForwardingTask
	for _, task := range tasks {
		src, ok := models.NumericChatID(task.SourceID)
		if !ok {
			// @用户名 形式的源不参与匹配，转发只按数字 chat id
			logger.L().Debugf("Skipping non-numeric source %q for task %s", task.SourceID, task.ID.Hex())
			continue
		}
		if src == chatID {
			matched = append(matched, task)
		}
	}

	if len(matched) == 0 {
		return
	}

	batchID := uuid.New().String()
	logger.L().Infof("Dispatching message: batch=%s chat_id=%d message_id=%d targets=%d",
		batchID, chatID, messageID, len(matched))

	successCount := 0
	failedCount := 0
	for _, task := range matched {
		if err := d.limiter.Wait(ctx); err != nil {
			logger.L().Errorf("Rate limiter wait aborted: batch=%s err=%v", batchID, err)
			return
		}

		if err := d.relay.Forward(ctx, chatID, task.DestinationID, messageID); err != nil {
			failedCount++
			logger.L().Errorf("Failed to forward: batch=%s task=%s dest=%s err=%v",
				batchID, task.ID.Hex(), task.DestinationID, err)
			continue
		}
		successCount++
		logger.L().Infof("Forwarded message from %s to %s", task.SourceID, task.DestinationID)
	}

	logger.L().Infof("Dispatch completed: batch=%s success=%d failed=%d", batchID, successCount, failedCount)
}

// Close 释放调度器资源
func (d *Dispatcher) Close() {
	d.limiter.Close()
}
