package workload

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/wyfcoding/rangetree/logging"
	"github.com/wyfcoding/rangetree/metrics"
)

// Runner 并行调度多个相互独立的任务，记录日志与指标。
type Runner struct {
	metrics *metrics.Metrics
	logger  *logging.Logger
	workers int
}

// Option 配置 Runner。
type Option func(*Runner)

// WithMetrics 设置指标采集器，为 nil 时不记录指标。
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithLogger 设置日志记录器。
func WithLogger(l *logging.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithWorkers 设置最大并行任务数，非正数时使用 GOMAXPROCS。
func WithWorkers(n int) Option {
	return func(r *Runner) { r.workers = n }
}

// NewRunner 创建 Runner。
func NewRunner(opts ...Option) *Runner {
	r := &Runner{}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logging.Default().Named("workload")
	}
	if r.workers <= 0 {
		r.workers = runtime.GOMAXPROCS(0)
	}
	return r
}

// Run 执行单个任务。
func (r *Runner) Run(ctx context.Context, task Task) (Report, error) {
	r.logger.InfoContext(ctx, "workload started", "workload", task.TaskName())

	rep, err := task.run(ctx, r)
	if err != nil {
		r.logger.ErrorContext(ctx, "workload failed", "workload", task.TaskName(), "error", err)
		return rep, fmt.Errorf("workload %s: %w", task.TaskName(), err)
	}

	args := []any{
		"workload", rep.Name,
		"size", rep.Size,
		"updates", rep.Updates,
		"queries", rep.Queries,
		"mismatches", rep.Mismatches,
		"elapsed", rep.Elapsed,
	}
	if rep.OK() {
		r.logger.InfoContext(ctx, "workload finished", args...)
	} else {
		r.logger.ErrorContext(ctx, "workload found mismatches", append(args, "first", rep.FirstMismatch)...)
	}
	return rep, nil
}

// RunAll 并行执行全部任务，报告按输入顺序返回。
// 任一任务出错都不会中断其他任务，所有错误合并后返回。
func (r *Runner) RunAll(ctx context.Context, tasks []Task) ([]Report, error) {
	reports := make([]Report, len(tasks))
	p := pool.New().WithContext(ctx).WithMaxGoroutines(r.workers)
	for i, task := range tasks {
		p.Go(func(ctx context.Context) error {
			rep, err := r.Run(ctx, task)
			reports[i] = rep
			return err
		})
	}
	err := p.Wait()
	return reports, err
}

func (r *Runner) observe(workload, op string, err error, elapsed time.Duration) {
	r.metrics.ObserveOperation(workload, op, err, elapsed)
}

func (r *Runner) setSize(workload string, size int) {
	if r.metrics == nil {
		return
	}
	r.metrics.TreeSize.WithLabelValues(workload).Set(float64(size))
}

func (r *Runner) recordMismatches(workload string, n int) {
	if r.metrics == nil || n == 0 {
		return
	}
	r.metrics.VerifyMismatchesTotal.WithLabelValues(workload).Add(float64(n))
}
