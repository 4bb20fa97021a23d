package telegram

import (
	"context"
	"strings"
	"testing"
	"time"

	"forward_bot/internal/telegram/models"
	"forward_bot/internal/telegram/session"

	botModels "github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type recordingTaskRepo struct {
	addCalls int
	lastSrc  string
	lastDst  string
	lastType string
}

func (r *recordingTaskRepo) AddTask(ctx context.Context, sourceID, destinationID, taskType string) (string, error) {
	r.addCalls++
	r.lastSrc, r.lastDst, r.lastType = sourceID, destinationID, taskType
	return "64f000000000000000000001", nil
}

func (r *recordingTaskRepo) ListTasks(ctx context.Context) ([]*models.ForwardingTask, error) {
	return nil, nil
}

func (r *recordingTaskRepo) RemoveTask(ctx context.Context, id string) (bool, error) {
	return false, nil
}

func (r *recordingTaskRepo) EnsureIndexes(ctx context.Context) error { return nil }

type autoTransport struct{}

func (autoTransport) SendCode(ctx context.Context, phone string) (string, error) {
	return "hash", nil
}

func (autoTransport) SignIn(ctx context.Context, phone, codeHash, code string) error { return nil }

func (autoTransport) AuthorizeBot(ctx context.Context, token string) error { return nil }

type idleListener struct{}

func (idleListener) Listen(ctx context.Context, handler session.MessageHandler) error {
	<-ctx.Done()
	return ctx.Err()
}

// newHandlerBot 构造只带会话和任务存储的 Bot，出站消息收集到返回的切片里
func newHandlerBot(repo *recordingTaskRepo, mgr *session.Manager) (*Bot, *[]string) {
	var replies []string
	b := &Bot{
		sessions: mgr,
		taskRepo: repo,
		send: func(ctx context.Context, chatID int64, text string) {
			replies = append(replies, text)
		},
	}
	return b, &replies
}

func textUpdate(text string) *botModels.Update {
	return &botModels.Update{Message: &botModels.Message{
		Text: text,
		Chat: botModels.Chat{ID: 42},
	}}
}

func TestCommandArgs(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"/login +15551234567", []string{"+15551234567"}},
		{"/login   +15551234567  ", []string{"+15551234567"}},
		{"/addtask -100111 -100222 channel_to_channel", []string{"-100111", "-100222", "channel_to_channel"}},
		{"/status", nil},
		{"", nil},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, commandArgs(tt.text), "text=%q", tt.text)
	}
}

func TestParseAddTaskArgsValid(t *testing.T) {
	args, errText := parseAddTaskArgs("/addtask -1001111111111 -1002222222222 channel_to_channel")
	require.Empty(t, errText)
	require.NotNil(t, args)
	assert.Equal(t, "-1001111111111", args.sourceID)
	assert.Equal(t, "-1002222222222", args.destinationID)
	assert.Equal(t, "channel_to_channel", args.taskType)

	args, errText = parseAddTaskArgs("/addtask @somechannel 123456789 channel_to_user")
	require.Empty(t, errText)
	assert.Equal(t, "@somechannel", args.sourceID)
}

func TestParseAddTaskArgsRejections(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"no args", "/addtask", "用法"},
		{"too few args", "/addtask -100111 -100222", "用法"},
		{"too many args", "/addtask a b c d", "用法"},
		{"bad source", "/addtask abc -100222 channel_to_channel", "源ID格式错误"},
		{"bad destination", "/addtask -100111 @x channel_to_channel", "目标ID格式错误"},
		{"bad type", "/addtask -100111 -100222 nonsense", "无效的任务类型"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args, errText := parseAddTaskArgs(tt.text)
			assert.Nil(t, args)
			assert.Contains(t, errText, tt.want)
		})
	}
}

func TestFormatTaskListEmpty(t *testing.T) {
	text := formatTaskList(nil)
	assert.Contains(t, text, "暂无转发任务")
}

func TestFormatTaskList(t *testing.T) {
	id1 := primitive.NewObjectID()
	id2 := primitive.NewObjectID()
	tasks := []*models.ForwardingTask{
		{ID: id1, SourceID: "-1001111111111", DestinationID: "-1002222222222", Type: models.TaskTypeChannelToChannel},
		{ID: id2, SourceID: "@somechannel", DestinationID: "123456789", Type: models.TaskTypeChannelToUser},
	}

	text := formatTaskList(tasks)
	assert.Contains(t, text, "2 条")
	assert.Contains(t, text, id1.Hex())
	assert.Contains(t, text, id2.Hex())
	assert.Contains(t, text, "-1001111111111 → -1002222222222")
	assert.Contains(t, text, "@somechannel → 123456789")
	assert.Equal(t, 2, strings.Count(text, "ID:"))
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0秒"},
		{-time.Second, "0秒"},
		{42 * time.Second, "42秒"},
		{90 * time.Second, "1分钟 30秒"},
		{3 * time.Hour, "3小时"},
		{26*time.Hour + 5*time.Minute, "1天 2小时 5分钟"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDuration(tt.d), "d=%v", tt.d)
	}
}

func TestHandleAddTaskRequiresLogin(t *testing.T) {
	repo := &recordingTaskRepo{}
	mgr := session.NewManager(autoTransport{}, idleListener{}, repo, nil, time.Second)
	b, replies := newHandlerBot(repo, mgr)

	b.handleAddTask(context.Background(), nil, textUpdate("/addtask -1001 -1002 channel_to_channel"))

	assert.Equal(t, 0, repo.addCalls, "store must not be touched before the phase gate passes")
	require.Len(t, *replies, 1)
	assert.Contains(t, (*replies)[0], "请先登录")
}

func TestHandleAddTaskAuthenticated(t *testing.T) {
	repo := &recordingTaskRepo{}
	mgr := session.NewManager(autoTransport{}, idleListener{}, repo,
		func(ctx context.Context, chatID int64, messageID int) {}, time.Second)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = mgr.Close(ctx)
	})
	require.NoError(t, mgr.RequestBotLogin(context.Background(), "123456:tok"))

	b, replies := newHandlerBot(repo, mgr)
	b.handleAddTask(context.Background(), nil, textUpdate("/addtask -1001 -1002 channel_to_channel"))

	assert.Equal(t, 1, repo.addCalls)
	assert.Equal(t, "-1001", repo.lastSrc)
	assert.Equal(t, "-1002", repo.lastDst)
	require.Len(t, *replies, 1)
	assert.Contains(t, (*replies)[0], "任务已创建")
}
