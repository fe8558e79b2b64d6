package portfolio

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"time"
)

const (
	DefaultTimeout         = 5 * time.Second
	DefaultMaxFileSize     = 10 << 20
	DefaultMaxFilesPerPage = 10
	DefaultListLimit       = 20
	MaxListLimit           = 100

	shareTokenBytes    = 16
	maxTokenAttempts   = 5
	presignedURLExpiry = 15 * time.Minute
)

// Sanitizer 在保存前清理富文本。
type Sanitizer interface {
	Sanitize(s string) string
}

type Options struct {
	Store  Store
	Blobs  BlobStore
	Purger Purger
	Notify Notifier
	Hasher PasswordHasher
	// Sanitizer 作用于 PortfolioPage.Content，为 nil 时原样保存。
	Sanitizer Sanitizer
	Logger    *slog.Logger
	// Timeout 限制每个访问存储的操作。
	Timeout         time.Duration
	MaxFileSize     int64
	MaxFilesPerPage int
	// Now 与 Random 便于测试替换。
	Now    func() time.Time
	Random io.Reader
}

// Service 基于 Store 实现作品集的各项操作。
type Service struct {
	store           Store
	blobs           BlobStore
	purger          Purger
	notify          Notifier
	hasher          PasswordHasher
	sanitizer       Sanitizer
	logger          *slog.Logger
	timeout         time.Duration
	maxFileSize     int64
	maxFilesPerPage int
	now             func() time.Time
	random          io.Reader
}

func NewService(opts Options) (*Service, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("new service: store is required")
	}
	s := &Service{
		store:           opts.Store,
		blobs:           opts.Blobs,
		purger:          opts.Purger,
		notify:          opts.Notify,
		hasher:          opts.Hasher,
		sanitizer:       opts.Sanitizer,
		logger:          opts.Logger,
		timeout:         opts.Timeout,
		maxFileSize:     opts.MaxFileSize,
		maxFilesPerPage: opts.MaxFilesPerPage,
		now:             opts.Now,
		random:          opts.Random,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.timeout <= 0 {
		s.timeout = DefaultTimeout
	}
	if s.maxFileSize <= 0 {
		s.maxFileSize = DefaultMaxFileSize
	}
	if s.maxFilesPerPage <= 0 {
		s.maxFilesPerPage = DefaultMaxFilesPerPage
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.random == nil {
		s.random = rand.Reader
	}
	return s, nil
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

// newShareToken 返回 16 字节随机数的十六进制编码。
func (s *Service) newShareToken() (string, error) {
	buf := make([]byte, shareTokenBytes)
	if _, err := io.ReadFull(s.random, buf); err != nil {
		return "", fmt.Errorf("generate share token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// publish 在提交后通知消息接收方，失败只记录日志。
func (s *Service) publish(ctx context.Context, msgs ...*Message) {
	if s.notify == nil {
		return
	}
	for _, m := range msgs {
		if err := s.notify.NotifyMessage(context.WithoutCancel(ctx), m); err != nil {
			s.logger.Error("failed to publish message notification",
				slog.String("message_id", m.ID.String()),
				slog.String("to_user_id", m.ToUserID.String()),
				slog.Any("error", err),
			)
		}
	}
}

// purge 将对象前缀的清理交给 Purger，失败只记录日志。
func (s *Service) purge(ctx context.Context, prefix string) {
	if s.purger == nil {
		return
	}
	if err := s.purger.PurgePrefix(context.WithoutCancel(ctx), prefix); err != nil {
		s.logger.Error("failed to schedule blob purge", slog.String("prefix", prefix), slog.Any("error", err))
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
