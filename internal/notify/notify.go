package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"portfolioParadise/internal/metrics"
	"portfolioParadise/internal/portfolio"
)

// Notification 是通过 Redis Pub/Sub 转发给前端 WebSocket 的消息协议。
// 字段名与前端解析保持一致。
type Notification struct {
	Type           string                `json:"type"`
	MessageID      uuid.UUID             `json:"message_id"`
	MessageType    portfolio.MessageType `json:"message_type"`
	FromUserID     uuid.UUID             `json:"from_user_id"`
	Subject        string                `json:"subject,omitempty"`
	ShareRequestID *uuid.UUID            `json:"share_request_id,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
}

const typeMessage = "message"

// Channel 返回账号的通知频道。
func Channel(accountID uuid.UUID) string {
	return "notify:" + accountID.String()
}

type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Publisher 将新消息推送到接收方账号的频道，实现 portfolio.Notifier。
type Publisher struct {
	rdb publisher
}

func NewPublisher(rdb *redis.Client) *Publisher {
	return &Publisher{rdb: rdb}
}

func (p *Publisher) NotifyMessage(ctx context.Context, m *portfolio.Message) error {
	data, err := json.Marshal(Notification{
		Type:           typeMessage,
		MessageID:      m.ID,
		MessageType:    m.MessageType,
		FromUserID:     m.FromUserID,
		Subject:        m.Subject,
		ShareRequestID: m.ShareRequestID,
		CreatedAt:      m.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}
	channel := Channel(m.ToUserID)
	if err := p.rdb.Publish(ctx, channel, data).Err(); err != nil {
		metrics.ObserveNotification(false)
		return fmt.Errorf("publish redis notification to %q: %w", channel, err)
	}
	metrics.ObserveNotification(true)
	return nil
}
