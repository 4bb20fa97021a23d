package userbot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/gotd/td/telegram/peers"
	"github.com/gotd/td/tg"
)

// Bot API 约定的频道 id 前缀：-100 << 12 位，频道 -100xxxxxxxxxx
const channelIDOffset int64 = 1000000000000

// peerChatID 把 MTProto peer 换算成 Bot API 约定的 chat id：
// 用户为正数，普通群取负，频道/超级群加 -100 前缀
// 与 source_id 里用户习惯填写的 id 格式保持一致
func peerChatID(peer tg.PeerClass) (int64, bool) {
	switch p := peer.(type) {
	case *tg.PeerUser:
		return p.UserID, true
	case *tg.PeerChat:
		return -p.ChatID, true
	case *tg.PeerChannel:
		return -(channelIDOffset + p.ChannelID), true
	default:
		return 0, false
	}
}

// splitChatID 把 Bot API 约定的 chat id 还原成 peer 类型和裸 id
func splitChatID(id int64) (kind string, bare int64) {
	switch {
	case id <= -channelIDOffset:
		return "channel", -id - channelIDOffset
	case id < 0:
		return "chat", -id
	default:
		return "user", id
	}
}

func formatChatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// resolvePeer 把会话标识（数字 id 或 @用户名）解析成可转发的 peer
func (c *Client) resolvePeer(ctx context.Context, mgr *peers.Manager, identifier string) (peers.Peer, error) {
	if strings.HasPrefix(identifier, "@") {
		return mgr.ResolveDomain(ctx, strings.TrimPrefix(identifier, "@"))
	}

	id, err := strconv.ParseInt(identifier, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat identifier %q: %w", identifier, err)
	}

	kind, bare := splitChatID(id)
	switch kind {
	case "channel":
		channel, err := mgr.GetChannel(ctx, &tg.InputChannel{ChannelID: bare})
		if err != nil {
			return nil, err
		}
		return channel, nil
	case "chat":
		chat, err := mgr.GetChat(ctx, bare)
		if err != nil {
			return nil, err
		}
		return chat, nil
	default:
		user, err := mgr.GetUser(ctx, &tg.InputUser{UserID: bare})
		if err != nil {
			return nil, err
		}
		return user, nil
	}
}
