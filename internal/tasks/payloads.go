package tasks

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypeBlobPurge = "blob:purge"
)

// BlobPurgePayload 描述一次对象前缀清理。
type BlobPurgePayload struct {
	Prefix        string `json:"prefix"`
	CorrelationID string `json:"correlation_id"`
}

// purgeRoots 是允许整体清理的顶层前缀。
var purgeRoots = []string{"students/", "teachers/"}

// Validate 拒绝空前缀以及顶层目录之外的前缀，防止误删整个 Bucket。
func (p BlobPurgePayload) Validate() error {
	prefix := strings.TrimSpace(p.Prefix)
	if prefix == "" {
		return errors.New("purge prefix is empty")
	}
	if strings.Contains(prefix, "..") {
		return errors.New("purge prefix must not contain '..'")
	}
	for _, root := range purgeRoots {
		if strings.HasPrefix(prefix, root) && len(prefix) > len(root) && strings.HasSuffix(prefix, "/") {
			return nil
		}
	}
	return errors.New("purge prefix must be a directory under students/ or teachers/")
}

// NewBlobPurgeTask 构造一个对象清理任务。
func NewBlobPurgeTask(prefix, correlationID string) (*asynq.Task, error) {
	payload := BlobPurgePayload{Prefix: prefix, CorrelationID: correlationID}
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeBlobPurge, data), nil
}
