package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"portfolioParadise/internal/portfolio"
)

type fakePublisher struct {
	channel string
	payload []byte
	err     error
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	f.channel = channel
	f.payload, _ = message.([]byte)
	cmd := redis.NewIntCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	cmd.SetVal(1)
	return cmd
}

func TestPublisher_NotifyMessage(t *testing.T) {
	fake := &fakePublisher{}
	p := &Publisher{rdb: fake}

	reqID := uuid.New()
	m := &portfolio.Message{
		Model:          portfolio.Model{ID: uuid.New()},
		FromUserID:     uuid.New(),
		ToUserID:       uuid.New(),
		MessageType:    portfolio.MessageShareRequest,
		Subject:        "Share request",
		Content:        "private body",
		ShareRequestID: &reqID,
	}
	if err := p.NotifyMessage(context.Background(), m); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if fake.channel != "notify:"+m.ToUserID.String() {
		t.Fatalf("unexpected channel %q", fake.channel)
	}

	var got map[string]any
	if err := json.Unmarshal(fake.payload, &got); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if got["type"] != "message" || got["message_id"] != m.ID.String() || got["share_request_id"] != reqID.String() {
		t.Fatalf("unexpected payload %v", got)
	}
	if _, leaked := got["content"]; leaked {
		t.Fatalf("message body must not be broadcast")
	}
}

func TestPublisher_NotifyMessageError(t *testing.T) {
	p := &Publisher{rdb: &fakePublisher{err: errors.New("redis down")}}
	err := p.NotifyMessage(context.Background(), &portfolio.Message{ToUserID: uuid.New()})
	if err == nil {
		t.Fatalf("expected publish error")
	}
}
