package userbot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"forward_bot/internal/logger"

	"github.com/gotd/contrib/middleware/floodwait"
	"github.com/gotd/contrib/middleware/ratelimit"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/telegram/message"
	"github.com/gotd/td/telegram/peers"
	"github.com/gotd/td/tg"
	"golang.org/x/time/rate"
)

// MessageHandler 收到新消息时的回调
type MessageHandler = func(ctx context.Context, chatID int64, messageID int)

// Config MTProto 客户端配置
type Config struct {
	APIID       int    // my.telegram.org 申请的 api_id
	APIHash     string // my.telegram.org 申请的 api_hash
	SessionFile string // 会话文件路径，手机和 Bot 登录共用（单会话模型）
}

// Client gotd/td 封装
// 鉴权调用（SendCode/SignIn/AuthorizeBot）都是短连接：在一次 Run 里
// 完成调用，返回时连接即断开，两次指令之间不保持连接。
// Listen 是唯一的长连接入口，登录成功后由会话状态机启动。
type Client struct {
	cfg Config

	mu      sync.Mutex
	api     *tg.Client     // 只在 Listen 运行期间非空
	peerMgr *peers.Manager // 同上
}

// NewClient 创建 MTProto 客户端封装
func NewClient(cfg Config) *Client {
	return &Client{cfg: cfg}
}

func (c *Client) newTelegramClient(handler telegram.UpdateHandler) *telegram.Client {
	opts := telegram.Options{
		SessionStorage: &telegram.FileSessionStorage{Path: c.cfg.SessionFile},
		Middlewares: []telegram.Middleware{
			floodwait.NewSimpleWaiter().WithMaxRetries(3).WithMaxWait(5 * time.Second),
			ratelimit.New(rate.Every(100*time.Millisecond), 5),
		},
	}
	if handler != nil {
		opts.UpdateHandler = handler
	}
	return telegram.NewClient(c.cfg.APIID, c.cfg.APIHash, opts)
}

// withClient 短连接执行 f：Run 返回时 gotd 自动断开连接
func (c *Client) withClient(ctx context.Context, f func(ctx context.Context, cl *telegram.Client) error) error {
	cl := c.newTelegramClient(nil)
	return cl.Run(ctx, func(ctx context.Context) error {
		return f(ctx, cl)
	})
}

// SendCode 发送验证码，返回 phone_code_hash
func (c *Client) SendCode(ctx context.Context, phone string) (string, error) {
	var hash string
	err := c.withClient(ctx, func(ctx context.Context, cl *telegram.Client) error {
		sent, err := cl.Auth().SendCode(ctx, phone, auth.SendCodeOptions{})
		if err != nil {
			return fmt.Errorf("send code: %w", err)
		}
		code, ok := sent.(*tg.AuthSentCode)
		if !ok {
			return fmt.Errorf("unexpected sent code type %T", sent)
		}
		hash = code.PhoneCodeHash
		return nil
	})
	return hash, err
}

// SignIn 用验证码完成登录，会话写入 SessionFile
func (c *Client) SignIn(ctx context.Context, phone, codeHash, code string) error {
	return c.withClient(ctx, func(ctx context.Context, cl *telegram.Client) error {
		if _, err := cl.Auth().SignIn(ctx, phone, code, codeHash); err != nil {
			if errors.Is(err, auth.ErrPasswordAuthNeeded) {
				return fmt.Errorf("sign in: account has 2FA password enabled: %w", err)
			}
			return fmt.Errorf("sign in: %w", err)
		}
		return nil
	})
}

// AuthorizeBot 用 Bot Token 登录，替换 SessionFile 里的现有会话
func (c *Client) AuthorizeBot(ctx context.Context, token string) error {
	return c.withClient(ctx, func(ctx context.Context, cl *telegram.Client) error {
		if _, err := cl.Auth().Bot(ctx, token); err != nil {
			return fmt.Errorf("bot auth: %w", err)
		}
		return nil
	})
}

// Listen 启动长连接并监听新消息，阻塞直到 ctx 取消
// 要求 SessionFile 里已有有效会话（SignIn 或 AuthorizeBot 成功之后）
func (c *Client) Listen(ctx context.Context, handler MessageHandler) error {
	dispatcher := tg.NewUpdateDispatcher()
	dispatcher.OnNewMessage(func(ctx context.Context, e tg.Entities, u *tg.UpdateNewMessage) error {
		c.handleIncoming(ctx, handler, u.Message)
		return nil
	})
	dispatcher.OnNewChannelMessage(func(ctx context.Context, e tg.Entities, u *tg.UpdateNewChannelMessage) error {
		c.handleIncoming(ctx, handler, u.Message)
		return nil
	})

	cl := c.newTelegramClient(dispatcher)
	return cl.Run(ctx, func(ctx context.Context) error {
		status, err := cl.Auth().Status(ctx)
		if err != nil {
			return fmt.Errorf("auth status: %w", err)
		}
		if !status.Authorized {
			return fmt.Errorf("session is not authorized")
		}

		api := cl.API()
		mgr := peers.Options{}.Build(api)

		c.mu.Lock()
		c.api = api
		c.peerMgr = mgr
		c.mu.Unlock()

		defer func() {
			c.mu.Lock()
			c.api = nil
			c.peerMgr = nil
			c.mu.Unlock()
		}()

		logger.L().Info("Forwarding session connected, listening for updates")
		<-ctx.Done()
		return ctx.Err()
	})
}

// handleIncoming 过滤自己发出的消息，换算 chat id 后交给回调
func (c *Client) handleIncoming(ctx context.Context, handler MessageHandler, msg tg.MessageClass) {
	m, ok := msg.(*tg.Message)
	if !ok || m.Out {
		return
	}
	chatID, ok := peerChatID(m.PeerID)
	if !ok {
		return
	}
	handler(ctx, chatID, m.ID)
}

// Forward 把 fromChatID 的一条消息转发到 destination
// destination 支持数字 chat id 和 @用户名；只在 Listen 运行期间可用
func (c *Client) Forward(ctx context.Context, fromChatID int64, destination string, messageID int) error {
	c.mu.Lock()
	api := c.api
	mgr := c.peerMgr
	c.mu.Unlock()

	if api == nil || mgr == nil {
		return fmt.Errorf("no active session")
	}

	from, err := c.resolvePeer(ctx, mgr, formatChatID(fromChatID))
	if err != nil {
		return fmt.Errorf("resolve source %d: %w", fromChatID, err)
	}
	to, err := c.resolvePeer(ctx, mgr, destination)
	if err != nil {
		return fmt.Errorf("resolve destination %s: %w", destination, err)
	}

	sender := message.NewSender(api)
	if _, err := sender.To(to.InputPeer()).ForwardIDs(from.InputPeer(), messageID).Send(ctx); err != nil {
		return fmt.Errorf("forward message: %w", err)
	}
	return nil
}
