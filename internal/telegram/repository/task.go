package repository

import (
	"context"
	"fmt"

	"forward_bot/internal/telegram/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoTaskRepository 转发任务数据访问层
type MongoTaskRepository struct {
	collection *mongo.Collection
}

// NewMongoTaskRepository 创建转发任务 Repository
func NewMongoTaskRepository(db *mongo.Database) *MongoTaskRepository {
	return &MongoTaskRepository{
		collection: db.Collection("forwarding_tasks"),
	}
}

// AddTask 新增转发任务，返回生成的任务 ID
// 标识格式由调用方预先校验，这里只负责持久化
func (r *MongoTaskRepository) AddTask(ctx context.Context, sourceID, destinationID, taskType string) (string, error) {
	task := &models.ForwardingTask{
		SourceID:      sourceID,
		DestinationID: destinationID,
		Type:          taskType,
	}

	result, err := r.collection.InsertOne(ctx, task)
	if err != nil {
		return "", fmt.Errorf("failed to insert forwarding task: %w", err)
	}

	oid, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected inserted id type %T", result.InsertedID)
	}
	return oid.Hex(), nil
}

// ListTasks 列出所有转发任务
func (r *MongoTaskRepository) ListTasks(ctx context.Context) ([]*models.ForwardingTask, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to query forwarding tasks: %w", err)
	}
	defer cursor.Close(ctx)

	tasks := make([]*models.ForwardingTask, 0)
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("failed to decode forwarding tasks: %w", err)
	}

	return tasks, nil
}

// RemoveTask 按 ID 删除任务
// ID 不是合法的 ObjectID 时按"未找到"处理
func (r *MongoTaskRepository) RemoveTask(ctx context.Context, id string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, nil
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return false, fmt.Errorf("failed to delete forwarding task: %w", err)
	}
	return result.DeletedCount > 0, nil
}

// EnsureIndexes 确保索引存在
// 每条消息都按 source_id 匹配任务，建普通索引
func (r *MongoTaskRepository) EnsureIndexes(ctx context.Context) error {
	index := mongo.IndexModel{
		Keys: bson.D{{Key: "source_id", Value: 1}},
	}

	_, err := r.collection.Indexes().CreateOne(ctx, index)
	if err != nil {
		return fmt.Errorf("failed to create indexes for forwarding_tasks: %w", err)
	}

	return nil
}
