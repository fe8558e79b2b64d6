package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/hibiken/asynq"

	"portfolioParadise/internal/tasks"
)

type fakeDeleter struct {
	prefixes []string
	err      error
}

func (f *fakeDeleter) DeletePrefix(_ context.Context, prefix string) (int, error) {
	f.prefixes = append(f.prefixes, prefix)
	if f.err != nil {
		return 0, f.err
	}
	return 3, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPurgeTaskHandler_DeletesPrefix(t *testing.T) {
	deleter := &fakeDeleter{}
	h := NewPurgeTaskHandler(deleter, discardLogger())

	task, err := tasks.NewBlobPurgeTask("students/abc/", "cid")
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	if err := h.ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("process task: %v", err)
	}
	if len(deleter.prefixes) != 1 || deleter.prefixes[0] != "students/abc/" {
		t.Fatalf("unexpected prefixes %v", deleter.prefixes)
	}
}

func TestPurgeTaskHandler_SkipsRetryOnBadPayload(t *testing.T) {
	deleter := &fakeDeleter{}
	h := NewPurgeTaskHandler(deleter, discardLogger())

	err := h.ProcessTask(context.Background(), asynq.NewTask(tasks.TypeBlobPurge, []byte("{")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}

	data, _ := json.Marshal(tasks.BlobPurgePayload{Prefix: "/"})
	err = h.ProcessTask(context.Background(), asynq.NewTask(tasks.TypeBlobPurge, data))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry for root prefix, got %v", err)
	}
	if len(deleter.prefixes) != 0 {
		t.Fatalf("storage must not be touched, got %v", deleter.prefixes)
	}
}

func TestPurgeTaskHandler_ReturnsStorageError(t *testing.T) {
	deleter := &fakeDeleter{err: errors.New("minio unavailable")}
	h := NewPurgeTaskHandler(deleter, discardLogger())

	task, err := tasks.NewBlobPurgeTask("teachers/abc/", "")
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	if err := h.ProcessTask(context.Background(), task); err == nil {
		t.Fatalf("expected error so the task is retried")
	}
}
