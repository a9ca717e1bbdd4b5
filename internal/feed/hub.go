// Package feed provides a sharded WebSocket Hub that republishes book
// events (trades and depth snapshots) to subscribed clients, with a
// per-topic replay buffer so a reconnecting client can catch up.
package feed

import (
	"encoding/json"
	"hash/fnv"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// TopicTrades and TopicDepth are the two feed topics the matching engine
// publishes to.
const (
	TopicTrades = "trades"
	TopicDepth  = "depth"
)

// Message wraps a feed payload with a per-topic sequence number; Replay
// returns the buffered messages after a given sequence. A WebSocket client
// that subscribes to a topic is sent the topic's whole replay buffer, and
// only Data (not Topic or Seq) is written to the socket.
type Message struct {
	Topic string `json:"topic"`
	Seq   uint64 `json:"seq"`
	Data  []byte `json:"data"`
}

type ringBuffer struct {
	mu    sync.RWMutex
	buf   []Message
	size  int
	start int
	count int
}

func newRingBuffer(size int) *ringBuffer {
	return &ringBuffer{buf: make([]Message, size), size: size}
}

func (r *ringBuffer) add(msg Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := (r.start + r.count) % r.size
	if r.count == r.size {
		r.start = (r.start + 1) % r.size
		r.count--
	}
	r.buf[idx] = msg
	r.count++
}

func (r *ringBuffer) getSince(since uint64) []Message {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Message
	for i := 0; i < r.count; i++ {
		msg := r.buf[(r.start+i)%r.size]
		if msg.Seq > since {
			out = append(out, msg)
		}
	}
	return out
}

// Client is a single WebSocket connection subscribed to zero or more topics.
type Client struct {
	id            string
	conn          *websocket.Conn
	send          chan Message
	subscriptions map[string]struct{}
	subMu         sync.Mutex
	hub           *Hub
}

type hubShard struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
}

// Hub fans book events out to WebSocket clients, sharded by client id to
// bound per-shard lock contention under many concurrent connections.
type Hub struct {
	shards     []*hubShard
	shardCount uint32

	register   chan *Client
	unregister chan *Client
	broadcast  chan Message

	buffers map[string]*ringBuffer
	bufMu   sync.Mutex
	seqMu   sync.Mutex
	nextSeq map[string]uint64

	replaySize int
	upgrader   websocket.Upgrader
}

// NewHub creates a Hub with shardCount shards and a replay buffer of
// replaySize messages per topic.
func NewHub(shardCount, replaySize int) *Hub {
	if shardCount < 1 {
		shardCount = 1
	}
	if replaySize < 1 {
		replaySize = 256
	}
	h := &Hub{
		shards:     make([]*hubShard, shardCount),
		shardCount: uint32(shardCount),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Message, 1024),
		buffers:    make(map[string]*ringBuffer),
		nextSeq:    make(map[string]uint64),
		replaySize: replaySize,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	for i := range h.shards {
		h.shards[i] = &hubShard{clients: make(map[*Client]struct{})}
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			sh := h.shardFor(client.id)
			sh.mu.Lock()
			sh.clients[client] = struct{}{}
			sh.mu.Unlock()
		case client := <-h.unregister:
			sh := h.shardFor(client.id)
			sh.mu.Lock()
			delete(sh.clients, client)
			sh.mu.Unlock()
			close(client.send)
		case msg := <-h.broadcast:
			h.bufMu.Lock()
			buf, ok := h.buffers[msg.Topic]
			if !ok {
				buf = newRingBuffer(h.replaySize)
				h.buffers[msg.Topic] = buf
			}
			buf.add(msg)
			h.bufMu.Unlock()

			for _, sh := range h.shards {
				sh.mu.RLock()
				for c := range sh.clients {
					if c.subscribedTo(msg.Topic) {
						select {
						case c.send <- msg:
						default:
							// slow client, drop rather than block the hub
						}
					}
				}
				sh.mu.RUnlock()
			}
		}
	}
}

func (h *Hub) shardFor(key string) *hubShard {
	hasher := fnv.New32a()
	hasher.Write([]byte(key))
	idx := hasher.Sum32() % h.shardCount
	return h.shards[idx]
}

// ServeWS upgrades an HTTP request to a WebSocket connection and registers
// the resulting client under clientID.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, clientID string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &Client{
		id:            clientID,
		conn:          conn,
		send:          make(chan Message, 256),
		subscriptions: make(map[string]struct{}),
		hub:           h,
	}
	h.register <- c
	go c.writePump()
	go c.readPump()
	return nil
}

// Publish marshals v as JSON and broadcasts it to every client subscribed to
// topic, after recording it in that topic's replay buffer.
func (h *Hub) Publish(topic string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.seqMu.Lock()
	h.nextSeq[topic]++
	seq := h.nextSeq[topic]
	h.seqMu.Unlock()
	h.broadcast <- Message{Topic: topic, Seq: seq, Data: data}
	return nil
}

// Replay returns buffered messages for topic with Seq greater than since.
func (h *Hub) Replay(topic string, since uint64) []Message {
	h.bufMu.Lock()
	defer h.bufMu.Unlock()
	if buf, ok := h.buffers[topic]; ok {
		return buf.getSince(since)
	}
	return nil
}

func (c *Client) subscribedTo(topic string) bool {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	_, ok := c.subscriptions[topic]
	return ok
}

func (c *Client) readPump() {
	defer func() { c.hub.unregister <- c; c.conn.Close() }()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var req struct {
			Subscribe   []string `json:"subscribe"`
			Unsubscribe []string `json:"unsubscribe"`
		}
		if err := json.Unmarshal(msg, &req); err != nil {
			continue
		}
		c.subMu.Lock()
		for _, topic := range req.Subscribe {
			c.subscriptions[topic] = struct{}{}
		}
		for _, topic := range req.Unsubscribe {
			delete(c.subscriptions, topic)
		}
		c.subMu.Unlock()
		for _, topic := range req.Subscribe {
			for _, m := range c.hub.Replay(topic, 0) {
				c.send <- m
			}
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() { ticker.Stop(); c.conn.Close() }()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg.Data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
