package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
	"trivia_backend/pkg/logger"
	"trivia_backend/pkg/monitoring"
	"trivia_backend/pkg/security"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	shardCount     = 16
	presenceTTL    = 2 * time.Minute

	liveChannel = "trivia:live"
)

const (
	EventBadgeUnlocked      = "BADGE_UNLOCKED"
	EventLeaderboardUpdated = "LEADERBOARD_UPDATED"
	EventMemberJoined       = "MEMBER_JOINED"
	EventMemberRemoved      = "MEMBER_REMOVED"
	EventPing               = "PING"
	EventPong               = "PONG"
)

type LiveMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Notifier delivers live events to users wherever they are connected.
type Notifier interface {
	PushToUsers(userIDs []uint, msg LiveMessage)
}

func notify(n Notifier, userIDs []uint, msg LiveMessage) {
	if n == nil || len(userIDs) == 0 {
		return
	}
	n.PushToUsers(userIDs, msg)
}

type liveClient struct {
	hub     *LiveHub
	conn    *websocket.Conn
	send    chan []byte
	userID  uint
	limiter *rate.Limiter
}

func (c *liveClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.ctx.Done():
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Warn("Live socket closed unexpectedly", zap.Error(err), zap.Uint("user_id", c.userID))
			}
			return
		}
		if !c.limiter.Allow() {
			continue
		}

		var msg LiveMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		if msg.Type == EventPing {
			pong, _ := json.Marshal(LiveMessage{Type: EventPong, Data: map[string]int64{"ts": time.Now().Unix()}})
			c.hub.deliverLocal([]uint{c.userID}, pong)
			monitoring.LiveMessages.WithLabelValues(EventPong).Inc()
		}
	}
}

func (c *liveClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// one JSON document per frame
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

type hubShard struct {
	mu      sync.RWMutex
	clients map[uint]*liveClient
}

type fanout struct {
	TargetUsers []uint          `json:"target_users"`
	Payload     json.RawMessage `json:"payload"`
}

// LiveHub keeps one socket per user on this instance and fans events out
// through Redis pub/sub so every instance can reach its own sockets.
type LiveHub struct {
	shards     [shardCount]*hubShard
	register   chan *liveClient
	unregister chan *liveClient
	Redis      *redis.Client
	ctx        context.Context
	cancel     context.CancelFunc
	stopOnce   sync.Once
	done       chan struct{}
	upgrader   websocket.Upgrader
}

// NewLiveHub accepts sockets from the given browser origins. Requests without
// an Origin header come from non-browser clients and are let through.
func NewLiveHub(rdb *redis.Client, allowedOrigins []string) *LiveHub {
	ctx, cancel := context.WithCancel(context.Background())
	allowed := security.OriginMatcher(allowedOrigins)
	h := &LiveHub{
		register:   make(chan *liveClient),
		unregister: make(chan *liveClient),
		Redis:      rdb,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed(origin)
			},
		},
	}
	for i := range h.shards {
		h.shards[i] = &hubShard{clients: make(map[uint]*liveClient)}
	}
	return h
}

func (h *LiveHub) shard(userID uint) *hubShard {
	return h.shards[userID%shardCount]
}

func presenceKey(userID uint) string {
	return fmt.Sprintf("live:online:%d", userID)
}

func (h *LiveHub) Run() {
	defer close(h.done)

	pubsub := h.Redis.Subscribe(h.ctx, liveChannel)
	defer pubsub.Close()
	if _, err := pubsub.Receive(h.ctx); err != nil {
		logger.Log.Error("Live hub subscribe failed", zap.Error(err))
		h.cancel()
		return
	}
	go func() {
		for msg := range pubsub.Channel() {
			var f fanout
			if err := json.Unmarshal([]byte(msg.Payload), &f); err != nil {
				logger.Log.Error("Live fanout decode failed", zap.Error(err))
				continue
			}
			h.deliverLocal(f.TargetUsers, f.Payload)
		}
	}()

	heartbeat := time.NewTicker(presenceTTL / 2)
	defer heartbeat.Stop()

	for {
		select {
		case <-h.ctx.Done():
			h.closeAll()
			return

		case c := <-h.register:
			s := h.shard(c.userID)
			s.mu.Lock()
			if old, ok := s.clients[c.userID]; ok {
				close(old.send)
			} else {
				monitoring.LiveConnections.Inc()
			}
			s.clients[c.userID] = c
			s.mu.Unlock()
			h.Redis.Set(h.ctx, presenceKey(c.userID), "1", presenceTTL)

		case c := <-h.unregister:
			s := h.shard(c.userID)
			s.mu.Lock()
			current, ok := s.clients[c.userID]
			if ok && current == c {
				delete(s.clients, c.userID)
				close(c.send)
				monitoring.LiveConnections.Dec()
			}
			s.mu.Unlock()
			if ok && current == c {
				h.Redis.Del(h.ctx, presenceKey(c.userID))
			}

		case <-heartbeat.C:
			h.refreshPresence()
		}
	}
}

func (h *LiveHub) refreshPresence() {
	pipe := h.Redis.Pipeline()
	n := 0
	for _, s := range h.shards {
		s.mu.RLock()
		for userID := range s.clients {
			pipe.Expire(h.ctx, presenceKey(userID), presenceTTL)
			n++
		}
		s.mu.RUnlock()
	}
	if n > 0 {
		if _, err := pipe.Exec(h.ctx); err != nil {
			logger.Log.Warn("Live presence refresh failed", zap.Error(err))
		}
	}
}

func (h *LiveHub) closeAll() {
	var ids []uint
	for _, s := range h.shards {
		s.mu.Lock()
		for userID, c := range s.clients {
			ids = append(ids, userID)
			close(c.send)
			delete(s.clients, userID)
		}
		s.mu.Unlock()
	}
	if len(ids) > 0 {
		pipe := h.Redis.Pipeline()
		for _, id := range ids {
			pipe.Del(context.Background(), presenceKey(id))
		}
		pipe.Exec(context.Background())
	}
	monitoring.LiveConnections.Set(0)
	logger.Log.Info("Live hub stopped", zap.Int("closed_connections", len(ids)))
}

// Stop closes every local socket and waits for Run to return.
func (h *LiveHub) Stop() {
	h.stopOnce.Do(func() {
		h.cancel()
		<-h.done
	})
}

// PushToUsers publishes msg for the given users. Delivery is best effort.
func (h *LiveHub) PushToUsers(userIDs []uint, msg LiveMessage) {
	if len(userIDs) == 0 {
		return
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		logger.Log.Error("Live message encode failed", zap.String("type", msg.Type), zap.Error(err))
		return
	}
	body, _ := json.Marshal(fanout{TargetUsers: userIDs, Payload: payload})
	if err := h.Redis.Publish(h.ctx, liveChannel, body).Err(); err != nil {
		logger.Log.Warn("Live publish failed", zap.String("type", msg.Type), zap.Error(err))
		return
	}
	monitoring.LiveMessages.WithLabelValues(msg.Type).Add(float64(len(userIDs)))
}

func (h *LiveHub) deliverLocal(userIDs []uint, payload []byte) {
	for _, id := range userIDs {
		s := h.shard(id)
		s.mu.RLock()
		if c, ok := s.clients[id]; ok {
			select {
			case c.send <- payload:
			default:
			}
		}
		s.mu.RUnlock()
	}
}

// IsOnline checks this instance first, then the shared presence key.
func (h *LiveHub) IsOnline(userID uint) bool {
	s := h.shard(userID)
	s.mu.RLock()
	_, ok := s.clients[userID]
	s.mu.RUnlock()
	if ok {
		return true
	}
	n, err := h.Redis.Exists(h.ctx, presenceKey(userID)).Result()
	return err == nil && n > 0
}

// ServeLive upgrades the request and attaches the socket to the hub.
func ServeLive(hub *LiveHub, w http.ResponseWriter, r *http.Request, userID uint) {
	conn, err := hub.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Warn("Live upgrade failed", zap.Error(err), zap.Uint("user_id", userID))
		return
	}
	c := &liveClient{
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, 64),
		userID:  userID,
		limiter: rate.NewLimiter(rate.Limit(5), 10),
	}
	select {
	case hub.register <- c:
	case <-hub.ctx.Done():
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}
