package session

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"forward_bot/internal/logger"
	"forward_bot/internal/telegram/repository"
)

// Phase 会话阶段
type Phase string

const (
	PhaseLoggedOut     Phase = "logged_out"
	PhaseCodeRequested Phase = "code_requested"
	PhaseAuthenticated Phase = "authenticated"
)

// LoginKind 登录方式
type LoginKind string

const (
	KindNone     LoginKind = "none"
	KindBotToken LoginKind = "bot_token"
	KindPhone    LoginKind = "phone"
)

// MessageHandler 收到新消息时的回调
// 类型别名，便于实现方不依赖本包也能满足 Listener 接口
type MessageHandler = func(ctx context.Context, chatID int64, messageID int)

// Transport 一次性的 MTProto 鉴权能力
// 每个调用内部自行建立连接并在返回前断开，调用之间不保持连接
type Transport interface {
	// SendCode 发送验证码，返回 phone_code_hash
	SendCode(ctx context.Context, phone string) (string, error)

	// SignIn 用验证码完成登录
	SignIn(ctx context.Context, phone, codeHash, code string) error

	// AuthorizeBot 用 Bot Token 登录
	AuthorizeBot(ctx context.Context, token string) error
}

// Listener 登录成功后的长连接监听能力
// Listen 阻塞运行，直到 ctx 取消才返回
type Listener interface {
	Listen(ctx context.Context, handler MessageHandler) error
}

// Status 会话状态快照
type Status struct {
	Phase       Phase
	Kind        LoginKind
	Identifier  string // 打码后的凭证标识，仅用于展示
	ActiveTasks int
}

// 国际格式手机号：+ 后跟 10-15 位数字
var phoneRe = regexp.MustCompile(`^\+\d{10,15}$`)

// 验证码提交格式：字面前缀 aa + 5 位数字
// 前缀防止 Telegram 检测到明文验证码后把它作废
var codeRe = regexp.MustCompile(`^aa\d{5}$`)

const codePrefix = "aa"

// activeSession 当前活跃的转发会话（手机或 Bot 二选一）
type activeSession struct {
	kind   LoginKind
	cancel context.CancelFunc
	done   chan struct{}
}

// Manager 会话状态机
// 所有会话状态只通过这里的操作方法变更；外部调用（SendCode/SignIn 等）
// 期间不持有 mu，先在锁内取快照，调用结束后再回锁提交。
// loginMu 把每次登录类操作整体串行化：并发的 /login、/code、/login_bot
// 不会交叉执行，冷却检查和会话替换因此是原子的。转发回调和状态查询
// 只用 mu，不受 loginMu 影响
type Manager struct {
	transport Transport
	listener  Listener
	tasks     repository.TaskRepository
	onMessage MessageHandler
	cooldown  time.Duration
	clock     func() time.Time

	loginMu sync.Mutex

	mu              sync.Mutex
	phase           Phase
	kind            LoginKind
	identifier      string
	pendingPhone    string
	pendingCodeHash string
	pendingChatID   int64
	lastCodeRequest time.Time
	active          *activeSession
}

// NewManager 创建会话状态机，初始为未登录
func NewManager(transport Transport, listener Listener, tasks repository.TaskRepository, onMessage MessageHandler, cooldown time.Duration) *Manager {
	return &Manager{
		transport: transport,
		listener:  listener,
		tasks:     tasks,
		onMessage: onMessage,
		cooldown:  cooldown,
		clock:     time.Now,
		phase:     PhaseLoggedOut,
		kind:      KindNone,
	}
}

// RequestBotLogin 用 Bot Token 登录，成功后直接进入已登录阶段
// 已登录时允许重复调用，新会话会替换当前会话
func (m *Manager) RequestBotLogin(ctx context.Context, token string) error {
	m.loginMu.Lock()
	defer m.loginMu.Unlock()

	token = strings.TrimSpace(token)
	if token == "" {
		return &ValidationError{Reason: "Bot Token 不能为空"}
	}

	if err := m.transport.AuthorizeBot(ctx, token); err != nil {
		logger.L().Errorf("Bot login failed for %s: %v", logger.MaskToken(token), err)
		return &TransportError{Msg: fmt.Sprintf("Bot 登录失败: %v", err), Err: err}
	}

	m.startForwarding(KindBotToken)

	m.mu.Lock()
	m.phase = PhaseAuthenticated
	m.kind = KindBotToken
	m.identifier = logger.MaskToken(token)
	m.clearPendingLocked()
	m.mu.Unlock()

	logger.L().Infof("Bot session authenticated: %s", logger.MaskToken(token))
	return nil
}

// RequestPhoneLogin 发起手机号登录：发送验证码并进入待验证阶段
// 已处于待验证阶段时再次调用会覆盖之前未完成的登录（显式策略，见测试）
func (m *Manager) RequestPhoneLogin(ctx context.Context, phone string, chatID int64) error {
	m.loginMu.Lock()
	defer m.loginMu.Unlock()

	phone = strings.TrimSpace(phone)
	if !phoneRe.MatchString(phone) {
		return &ValidationError{Reason: "手机号格式错误，应为 + 开头的 10-15 位国际格式，例如 +15551234567"}
	}

	if err := m.checkCooldown(); err != nil {
		return err
	}

	codeHash, err := m.transport.SendCode(ctx, phone)
	if err != nil {
		logger.L().Errorf("Send code failed for %s: %v", logger.MaskPhone(phone), err)
		if IsRateLimited(err) {
			return &TransportError{Msg: "Telegram 限流中，请稍后再试", Err: err}
		}
		return &TransportError{Msg: fmt.Sprintf("发送验证码失败: %v", err), Err: err}
	}

	m.mu.Lock()
	m.phase = PhaseCodeRequested
	m.kind = KindPhone
	m.identifier = logger.MaskPhone(phone)
	m.pendingPhone = phone
	m.pendingCodeHash = codeHash
	m.pendingChatID = chatID
	m.lastCodeRequest = m.clock()
	m.mu.Unlock()

	logger.L().Infof("Verification code sent to %s", logger.MaskPhone(phone))
	logger.L().Debugf("Phone login initiated from chat %d", chatID)
	return nil
}

// ResendCode 重发验证码，刷新 phone_code_hash，手机号保持不变
func (m *Manager) ResendCode(ctx context.Context) error {
	m.loginMu.Lock()
	defer m.loginMu.Unlock()

	m.mu.Lock()
	phone := m.pendingPhone
	m.mu.Unlock()

	if phone == "" {
		return &PreconditionError{Reason: "当前没有等待验证的登录，请先使用 /login <手机号>"}
	}

	if err := m.checkCooldown(); err != nil {
		return err
	}

	codeHash, err := m.transport.SendCode(ctx, phone)
	if err != nil {
		logger.L().Errorf("Resend code failed for %s: %v", logger.MaskPhone(phone), err)
		if IsRateLimited(err) {
			return &TransportError{Msg: "Telegram 限流中，请稍后再试", Err: err}
		}
		return &TransportError{Msg: fmt.Sprintf("重发验证码失败: %v", err), Err: err}
	}

	m.mu.Lock()
	m.pendingCodeHash = codeHash
	m.lastCodeRequest = m.clock()
	m.mu.Unlock()

	logger.L().Infof("Verification code resent to %s", logger.MaskPhone(phone))
	return nil
}

// SubmitCode 提交验证码完成登录
// 验证码过期会把会话重置回未登录；限流不改变阶段；其它错误保持待验证
func (m *Manager) SubmitCode(ctx context.Context, input string) error {
	m.loginMu.Lock()
	defer m.loginMu.Unlock()

	input = strings.TrimSpace(input)
	if !codeRe.MatchString(input) {
		return &ValidationError{Reason: "验证码格式错误，应为 aa + 5 位数字，例如 aa12345"}
	}
	code := strings.TrimPrefix(input, codePrefix)

	m.mu.Lock()
	if m.phase != PhaseCodeRequested {
		m.mu.Unlock()
		return &PreconditionError{Reason: "请先使用 /login <手机号> 登录"}
	}
	phone := m.pendingPhone
	codeHash := m.pendingCodeHash
	m.mu.Unlock()

	if err := m.transport.SignIn(ctx, phone, codeHash, code); err != nil {
		logger.L().Errorf("Sign in failed for %s: %v", logger.MaskPhone(phone), err)

		switch {
		case IsCodeExpired(err):
			m.mu.Lock()
			m.phase = PhaseLoggedOut
			m.kind = KindNone
			m.identifier = ""
			m.clearPendingLocked()
			m.mu.Unlock()
			return &TransportError{Msg: "验证码已过期，请重新 /login 获取新验证码", Err: err}
		case IsRateLimited(err):
			return &TransportError{Msg: "Telegram 限流中，请稍后再试", Err: err}
		default:
			return &TransportError{Msg: fmt.Sprintf("登录失败: %v", err), Err: err}
		}
	}

	m.startForwarding(KindPhone)

	m.mu.Lock()
	m.phase = PhaseAuthenticated
	m.kind = KindPhone
	m.identifier = logger.MaskPhone(phone)
	m.clearPendingLocked()
	m.mu.Unlock()

	logger.L().Infof("Phone session authenticated: %s", logger.MaskPhone(phone))
	return nil
}

// Phase 返回当前会话阶段
func (m *Manager) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// Snapshot 返回当前状态快照，任务数从任务存储实时读取
func (m *Manager) Snapshot(ctx context.Context) (*Status, error) {
	tasks, err := m.tasks.ListTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return &Status{
		Phase:       m.phase,
		Kind:        m.kind,
		Identifier:  m.identifier,
		ActiveTasks: len(tasks),
	}, nil
}

// Close 停止活跃会话，进程退出前调用
func (m *Manager) Close(ctx context.Context) error {
	m.loginMu.Lock()
	defer m.loginMu.Unlock()

	m.mu.Lock()
	active := m.active
	m.active = nil
	m.phase = PhaseLoggedOut
	m.kind = KindNone
	m.mu.Unlock()

	if active == nil {
		return nil
	}

	active.cancel()
	select {
	case <-active.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// checkCooldown 校验距离上次验证码请求是否已超过冷却时间
func (m *Manager) checkCooldown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lastCodeRequest.IsZero() {
		return nil
	}
	elapsed := m.clock().Sub(m.lastCodeRequest)
	if elapsed < m.cooldown {
		return &CooldownError{Remaining: m.cooldown - elapsed}
	}
	return nil
}

// startForwarding 安装新的活跃转发会话
// 同一时刻只有一个会话在收消息：先关掉旧的，再启动新的
// 调用方必须持有 loginMu，替换过程不会和另一次登录交叉
func (m *Manager) startForwarding(kind LoginKind) {
	m.mu.Lock()
	prev := m.active
	m.active = nil
	m.mu.Unlock()

	if prev != nil {
		logger.L().Infof("Replacing active %s session with %s session", prev.kind, kind)
		prev.cancel()
		<-prev.done
	}

	ctx, cancel := context.WithCancel(context.Background())
	next := &activeSession{
		kind:   kind,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(next.done)
		if err := m.listener.Listen(ctx, m.onMessage); err != nil && !errors.Is(err, context.Canceled) {
			logger.L().Errorf("Forwarding session stopped: %v", err)
		} else {
			logger.L().Info("Forwarding session stopped")
		}
	}()

	m.mu.Lock()
	m.active = next
	m.mu.Unlock()
}

func (m *Manager) clearPendingLocked() {
	m.pendingPhone = ""
	m.pendingCodeHash = ""
	m.pendingChatID = 0
}
