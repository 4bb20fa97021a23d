package models

import (
	"regexp"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ForwardingTask 转发任务：把源会话的新消息转发到目标会话
// 集合 forwarding_tasks，创建后只读，不支持修改，只能整条删除
type ForwardingTask struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	SourceID      string             `bson:"source_id"`      // 源会话，数字 ID（频道/群为负数）或 @用户名
	DestinationID string             `bson:"destination_id"` // 目标会话，格式同 source_id
	Type          string             `bson:"type"`           // 任务类型标签，仅作说明，不影响转发匹配
}

// 任务类型枚举，描述源和目标的预期关系
const (
	TaskTypeChannelToChannel = "channel_to_channel"
	TaskTypeBotToChannel     = "bot_to_channel"
	TaskTypeChannelToBot     = "channel_to_bot"
	TaskTypeChannelToUser    = "channel_to_user"
	TaskTypeUserToBot        = "user_to_bot"
)

// ValidTaskTypes 合法任务类型列表（顺序用于提示文案）
var ValidTaskTypes = []string{
	TaskTypeChannelToChannel,
	TaskTypeBotToChannel,
	TaskTypeChannelToBot,
	TaskTypeChannelToUser,
	TaskTypeUserToBot,
}

// IsValidTaskType 判断任务类型是否在枚举内
func IsValidTaskType(taskType string) bool {
	for _, t := range ValidTaskTypes {
		if taskType == t {
			return true
		}
	}
	return false
}

// TaskTypeList 返回逗号分隔的合法类型列表，用于提示文案
func TaskTypeList() string {
	return strings.Join(ValidTaskTypes, ", ")
}

// Telegram 用户名规则：5-32 位字母数字下划线，字母开头
var handleRe = regexp.MustCompile(`^@[A-Za-z][A-Za-z0-9_]{4,31}$`)

// IsValidChatIdentifier 校验会话标识格式：
// 数字 ID（频道/群为负数，可带 -100 前缀）或 @用户名
func IsValidChatIdentifier(id string) bool {
	if id == "" {
		return false
	}
	if strings.HasPrefix(id, "@") {
		return handleRe.MatchString(id)
	}
	numeric := strings.TrimPrefix(id, "-")
	if numeric == "" {
		return false
	}
	for _, r := range numeric {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// NumericChatID 把数字形式的会话标识解析为 chat id
// @用户名 返回 ok=false，转发匹配只针对数字 ID
func NumericChatID(id string) (int64, bool) {
	if id == "" || strings.HasPrefix(id, "@") {
		return 0, false
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
