package portfolio

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type MessageInput struct {
	FromUserID uuid.UUID
	ToUserID   uuid.UUID
	Subject    string
	Content    string
}

// SendMessage 保存两个账号之间的普通文本消息。
func (s *Service) SendMessage(ctx context.Context, in MessageInput) (*Message, error) {
	m := &Message{
		Model:       Model{ID: uuid.New()},
		FromUserID:  in.FromUserID,
		ToUserID:    in.ToUserID,
		MessageType: MessageText,
		Subject:     strings.TrimSpace(in.Subject),
		Content:     strings.TrimSpace(in.Content),
	}
	if err := Validate(m); err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.store.CreateMessage(ctx, m); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	s.publish(ctx, m)
	return m, nil
}

// Inbox 按时间倒序列出发给 accountID 的消息。
func (s *Service) Inbox(ctx context.Context, accountID uuid.UUID, unreadOnly bool, limit int) ([]Message, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.store.ListMessages(ctx, MessageQuery{ToUserID: accountID, UnreadOnly: unreadOnly, Limit: clampLimit(limit)})
}

// MarkRead 将消息标记为已读，只允许 false -> true；重复调用不报错。
func (s *Service) MarkRead(ctx context.Context, accountID, id uuid.UUID) (*Message, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	m, err := s.store.GetMessage(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.ToUserID != accountID {
		return nil, fmt.Errorf("%w: message %s", ErrForbidden, id)
	}
	if m.IsRead {
		return m, nil
	}
	now := s.clock()
	changed, err := s.store.MarkMessageRead(ctx, id, now)
	if err != nil {
		return nil, err
	}
	if changed {
		m.IsRead = true
		m.ReadAt = &now
		return m, nil
	}
	return s.store.GetMessage(ctx, id)
}

func (s *Service) DeleteMessage(ctx context.Context, accountID, id uuid.UUID) error {
	m, err := s.message(ctx, id)
	if err != nil {
		return err
	}
	if m.ToUserID != accountID && m.FromUserID != accountID {
		return fmt.Errorf("%w: message %s", ErrForbidden, id)
	}
	return s.Delete(ctx, KindMessage, id)
}

func (s *Service) message(ctx context.Context, id uuid.UUID) (*Message, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.store.GetMessage(ctx, id)
}
