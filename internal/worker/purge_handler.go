package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"portfolioParadise/internal/tasks"
)

type prefixDeleter interface {
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

// PurgeTaskHandler 删除已删除记录遗留的头像与附件对象。
type PurgeTaskHandler struct {
	storage prefixDeleter
	logger  *slog.Logger
}

// NewPurgeTaskHandler 创建任务处理器。
func NewPurgeTaskHandler(storage prefixDeleter, logger *slog.Logger) *PurgeTaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PurgeTaskHandler{storage: storage, logger: logger}
}

// ProcessTask 实现 asynq.Handler。
func (h *PurgeTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	log := h.logger

	var payload tasks.BlobPurgePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		log.Error("unmarshal task payload failed", slog.Any("error", err))
		return fmt.Errorf("unmarshal purge payload: %w: %w", err, asynq.SkipRetry)
	}
	log = log.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.String("prefix", payload.Prefix),
	)
	if err := payload.Validate(); err != nil {
		log.Error("refusing purge task", slog.Any("error", err))
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}

	removed, err := h.storage.DeletePrefix(ctx, payload.Prefix)
	if err != nil {
		if isFinalAsynqAttempt(ctx) {
			log.Error("blob purge gave up, objects left behind", slog.Any("error", err))
		} else {
			log.Warn("blob purge failed, will retry", slog.Any("error", err))
		}
		return err
	}
	log.Info("blob purge finished", slog.Int("removed", removed))
	return nil
}

func isFinalAsynqAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}
