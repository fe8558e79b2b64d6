package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

type correlationKey struct{}

// WithCorrelationID 将请求的 correlation id 带入任务载荷。
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

func correlationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

type taskClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Enqueuer 把对象清理交给 worker 异步执行，实现 portfolio.Purger。
type Enqueuer struct {
	client taskClient
	logger *slog.Logger
}

func NewEnqueuer(client *asynq.Client, logger *slog.Logger) *Enqueuer {
	return newEnqueuer(client, logger)
}

func newEnqueuer(client taskClient, logger *slog.Logger) *Enqueuer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Enqueuer{client: client, logger: logger}
}

// PurgePrefix 入队一个 blob:purge 任务。
func (e *Enqueuer) PurgePrefix(ctx context.Context, prefix string) error {
	cid := correlationID(ctx)
	task, err := NewBlobPurgeTask(prefix, cid)
	if err != nil {
		return fmt.Errorf("build purge task: %w", err)
	}
	info, err := e.client.EnqueueContext(ctx, task,
		asynq.MaxRetry(8),
		asynq.Timeout(2*time.Minute),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		return fmt.Errorf("enqueue purge task: %w", err)
	}
	e.logger.Info("blob purge enqueued",
		slog.String("task_id", info.ID),
		slog.String("prefix", prefix),
		slog.String("correlation_id", cid),
	)
	return nil
}
