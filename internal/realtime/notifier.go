package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"talkative-backend/internal/dto"
	"talkative-backend/internal/env"

	"github.com/go-redis/redis/v8"
)

const notifyChannel = "realtime:events"

var (
	chatRedisOnce sync.Once
	chatRedis     *redis.Client
)

func chatRedisClient() *redis.Client {
	chatRedisOnce.Do(func() {
		chatRedis = redis.NewClient(&redis.Options{
			Addr:     env.Get(env.ChatRedisURL),
			Password: env.Get(env.ChatRedisPass),
			DB:       0,
		})
	})
	return chatRedis
}

// Notifier publishes realtime events from the REST process. The socket
// server subscribes and fans them out to personal rooms, so REST-created
// messages and chats reach connected clients across process boundaries.
type Notifier struct {
	client *redis.Client
}

func NewNotifier() *Notifier {
	return &Notifier{client: chatRedisClient()}
}

func (n *Notifier) MessageCreated(ctx context.Context, message dto.MessageDTO) error {
	return n.publish(ctx, EventNewMessage, message)
}

func (n *Notifier) ChatCreated(ctx context.Context, chat dto.ChatDTO) error {
	return n.publish(ctx, EventNewChat, chat)
}

func (n *Notifier) publish(ctx context.Context, name string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("notifier: marshal %s payload: %w", name, err)
	}

	data, err := json.Marshal(Event{Name: name, Payload: raw})
	if err != nil {
		return fmt.Errorf("notifier: marshal %s event: %w", name, err)
	}

	if err := n.client.Publish(ctx, notifyChannel, data).Err(); err != nil {
		return fmt.Errorf("notifier: publish %s: %w", name, err)
	}
	return nil
}

// SubscribeNotifications pumps bridged events from Redis into the hub as
// system events. Blocks until the subscription channel closes.
func (h *Hub) SubscribeNotifications(ctx context.Context) {
	sub := chatRedisClient().Subscribe(ctx, notifyChannel)
	defer sub.Close()

	log.Printf("Subscribed to notification channel %s", notifyChannel)

	for msg := range sub.Channel() {
		var ev Event
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			log.Printf("Dropping undecodable notification: %v", err)
			continue
		}
		h.Inject(&ev)
	}
}
