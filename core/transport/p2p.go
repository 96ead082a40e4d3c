package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"SyncBeat/logger"

	logging "github.com/ipfs/go-log/v2"
	libp2p "github.com/libp2p/go-libp2p"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/p2p/discovery/mdns"
)

// MdnsTag 局域网发现的服务标签
const MdnsTag = "syncbeat-mdns"

// P2PTransport 局域网内基于 libp2p gossipsub 的房间广播，每个房间一个 topic，mDNS 发现对端。
type P2PTransport struct {
	port int
}

// NewP2PTransport port 为 0 时随机端口
func NewP2PTransport(port int) *P2PTransport {
	logging.SetLogLevel("pubsub", "error")
	logging.SetLogLevel("mdns", "error")
	return &P2PTransport{port: port}
}

type mdnsNotifee struct {
	h host.Host
}

func (n *mdnsNotifee) HandlePeerFound(pi peer.AddrInfo) {
	if pi.ID == n.h.ID() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := n.h.Connect(ctx, pi); err != nil {
		logger.Debug("p2p connect failed", logger.String("peer", pi.ID.String()), logger.ErrorField(err))
	}
}

func (t *P2PTransport) Join(ctx context.Context, roomCode, memberID string) (Channel, error) {
	h, err := libp2p.New(libp2p.ListenAddrStrings(fmt.Sprintf("/ip4/0.0.0.0/tcp/%d", t.port)))
	if err != nil {
		return nil, fmt.Errorf("create libp2p host: %w", err)
	}

	md := mdns.NewMdnsService(h, MdnsTag, &mdnsNotifee{h: h})
	if err := md.Start(); err != nil {
		h.Close()
		return nil, fmt.Errorf("start mdns: %w", err)
	}

	// gossipsub 的生命周期跟随订阅，不跟随 Join 的 ctx
	runCtx, cancel := context.WithCancel(context.Background())
	ps, err := pubsub.NewGossipSub(runCtx, h)
	if err != nil {
		cancel()
		md.Close()
		h.Close()
		return nil, fmt.Errorf("create gossipsub: %w", err)
	}

	topic, err := ps.Join(ChannelName(roomCode))
	if err != nil {
		cancel()
		md.Close()
		h.Close()
		return nil, fmt.Errorf("join topic: %w", err)
	}

	sub, err := topic.Subscribe()
	if err != nil {
		cancel()
		topic.Close()
		md.Close()
		h.Close()
		return nil, fmt.Errorf("subscribe topic: %w", err)
	}

	ch := &p2pChannel{
		host:   h,
		mdns:   md,
		topic:  topic,
		sub:    sub,
		cancel: cancel,
		room:   roomCode,
		inbox:  make(chan []byte, inboxSize),
	}
	go ch.readLoop(runCtx)

	logger.Info("p2p channel joined",
		logger.String("room", roomCode),
		logger.String("member", memberID),
		logger.String("peer", h.ID().String()))
	return ch, nil
}

type p2pChannel struct {
	host      host.Host
	mdns      mdns.Service
	topic     *pubsub.Topic
	sub       *pubsub.Subscription
	cancel    context.CancelFunc
	room      string
	inbox     chan []byte
	closeOnce sync.Once
}

func (c *p2pChannel) readLoop(ctx context.Context) {
	defer close(c.inbox)
	for {
		m, err := c.sub.Next(ctx)
		if err != nil {
			return
		}
		// 跳过自己发布的消息
		if m.GetFrom() == c.host.ID() {
			continue
		}
		select {
		case c.inbox <- m.Data:
		default:
			logger.Warn("p2p inbox full, message dropped", logger.String("room", c.room))
		}
	}
}

func (c *p2pChannel) Publish(ctx context.Context, payload []byte) error {
	if err := c.topic.Publish(ctx, payload); err != nil {
		return fmt.Errorf("p2p publish: %w", err)
	}
	return nil
}

func (c *p2pChannel) Messages() <-chan []byte { return c.inbox }

func (c *p2pChannel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.sub.Cancel()
		c.cancel()
		_ = c.topic.Close()
		_ = c.mdns.Close()
		err = c.host.Close()
	})
	return err
}
