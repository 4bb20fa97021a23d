package repository

import (
	"context"

	"forward_bot/internal/telegram/models"
)

// TaskRepository 转发任务数据访问接口
type TaskRepository interface {
	// AddTask 新增转发任务，返回生成的任务 ID
	AddTask(ctx context.Context, sourceID, destinationID, taskType string) (string, error)

	// ListTasks 列出所有转发任务，没有任务时返回空列表
	ListTasks(ctx context.Context) ([]*models.ForwardingTask, error)

	// RemoveTask 按 ID 删除任务，返回是否真的删除了记录
	// ID 格式非法按"未找到"处理，不作为错误
	RemoveTask(ctx context.Context, id string) (bool, error)

	// EnsureIndexes 确保索引存在
	EnsureIndexes(ctx context.Context) error
}
