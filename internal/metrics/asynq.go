package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 任务结果标签。skipped 表示载荷无效、不会重试的任务。
const (
	taskResultOK      = "ok"
	taskResultRetry   = "retry"
	taskResultSkipped = "skipped"
)

var (
	tasksHandled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "tasks_handled_total",
			Help:      "按任务类型与结果统计的后台任务数。",
		},
		[]string{"task_type", "result"},
	)

	taskSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "task_duration_seconds",
			Help:      "后台任务耗时（秒）。",
			Buckets:   []float64{.01, .05, .1, .5, 1, 5, 15, 60},
		},
		[]string{"task_type"},
	)

	tasksRunning = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "tasks_running",
			Help:      "正在执行的后台任务数。",
		},
		[]string{"task_type"},
	)
)

func taskResult(err error) string {
	switch {
	case err == nil:
		return taskResultOK
	case errors.Is(err, asynq.SkipRetry):
		return taskResultSkipped
	default:
		return taskResultRetry
	}
}

// AsynqMetricsMiddleware 统计 worker 处理的任务，例如 blob:purge。
func AsynqMetricsMiddleware() asynq.MiddlewareFunc {
	return func(next asynq.Handler) asynq.Handler {
		return asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
			typ := task.Type()
			running := tasksRunning.WithLabelValues(typ)
			running.Inc()
			defer running.Dec()

			start := time.Now()
			err := next.ProcessTask(ctx, task)
			taskSeconds.WithLabelValues(typ).Observe(time.Since(start).Seconds())
			tasksHandled.WithLabelValues(typ, taskResult(err)).Inc()
			return err
		})
	}
}
