package stream

import (
	"context"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Hub fans out session and channel events to connected clients, keyed by
// topic ("session:{id}" or "channel:{id}"). Normal traffic goes through a
// buffered queue drained by one goroutine; emergency traffic is delivered
// synchronously via PublishNow. Delivery is at-most-once; clients resync via
// the status endpoints after reconnect.
type Hub struct {
	redis   *redis.Client
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
	queue   chan outbound
}

type Client struct {
	Topic string
	Send  chan []byte
}

type outbound struct {
	topic   string
	payload []byte
}

func NewHub(redisClient *redis.Client) *Hub {
	h := &Hub{
		redis:   redisClient,
		clients: map[string]map[*Client]struct{}{},
		queue:   make(chan outbound, 256),
	}

	go h.drainQueue()
	if redisClient != nil {
		go h.subscribeRedis()
	}
	return h
}

func (h *Hub) Register(topic string) *Client {
	client := &Client{
		Topic: topic,
		Send:  make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[topic] == nil {
		h.clients[topic] = map[*Client]struct{}{}
	}
	h.clients[topic][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if topicClients, ok := h.clients[client.Topic]; ok {
		delete(topicClients, client)
		if len(topicClients) == 0 {
			delete(h.clients, client.Topic)
		}
	}
	close(client.Send)
}

// Publish enqueues payload for asynchronous fan-out. If the queue is full the
// event is dropped; connected clients recover on their next resync.
func (h *Hub) Publish(topic string, payload []byte) {
	select {
	case h.queue <- outbound{topic: topic, payload: payload}:
	default:
		log.Printf("stream queue full, dropping event for %s", topic)
	}
}

// PublishNow bypasses the queue and delivers synchronously. Emergency
// messages take this path so they are never stuck behind normal traffic; the
// cross-instance delivery error is reported back to the caller instead of
// only being logged.
func (h *Hub) PublishNow(topic string, payload []byte) error {
	return h.deliver(topic, payload)
}

func (h *Hub) drainQueue() {
	for out := range h.queue {
		if err := h.deliver(out.topic, out.payload); err != nil {
			log.Printf("redis publish error: %v", err)
		}
	}
}

func (h *Hub) deliver(topic string, payload []byte) error {
	// sends stay under the read lock: Unregister closes Send under the write
	// lock, so a send can never hit a closed channel
	h.mu.RLock()
	for client := range h.clients[topic] {
		select {
		case client.Send <- payload:
		default:
		}
	}
	h.mu.RUnlock()

	if h.redis != nil {
		return h.redis.Publish(context.Background(), redisChannel(topic), payload).Err()
	}
	return nil
}

func (h *Hub) subscribeRedis() {
	ctx := context.Background()
	pubsub := h.redis.Subscribe(ctx, "push:*:events")
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		topic := topicFromChannel(msg.Channel)
		h.mu.RLock()
		for client := range h.clients[topic] {
			select {
			case client.Send <- []byte(msg.Payload):
			default:
			}
		}
		h.mu.RUnlock()
	}
}

func redisChannel(topic string) string {
	return "push:" + topic + ":events"
}

func topicFromChannel(ch string) string {
	// push:{topic}:events
	const prefix = "push:"
	const suffix = ":events"
	if len(ch) <= len(prefix)+len(suffix) {
		return ""
	}
	return ch[len(prefix) : len(ch)-len(suffix)]
}
