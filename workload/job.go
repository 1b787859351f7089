// Package workload 驱动线段树执行随机的单点更新与区间查询，并用朴素折叠逐一校验查询结果。
//
// 每棵线段树在整个生命周期内只由一个 goroutine 持有；多个任务之间相互独立，可以并行执行。
package workload

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/samber/lo"

	"github.com/wyfcoding/rangetree/algorithm"
	"github.com/wyfcoding/rangetree/tracing"
	"github.com/wyfcoding/rangetree/xerrors"
)

// ctxCheckInterval 每执行多少步检查一次 ctx 是否已取消。
const ctxCheckInterval = 1024

// Task 是可被 Runner 调度的类型擦除任务。
type Task interface {
	TaskName() string
	run(ctx context.Context, r *Runner) (Report, error)
}

// Report 汇总一次任务的执行结果。
type Report struct {
	Name          string        `json:"name"`
	Size          int           `json:"size"`
	Updates       int           `json:"updates"`
	Queries       int           `json:"queries"`
	Mismatches    int           `json:"mismatches"`
	FirstMismatch string        `json:"first_mismatch,omitempty"`
	Elapsed       time.Duration `json:"elapsed"`
}

// OK 表示任务没有发现任何不一致。
func (r Report) OK() bool {
	return r.Mismatches == 0
}

// Job 描述一棵元素类型为 T 的线段树上的随机负载。
type Job[T any] struct {
	Name        string
	Monoid      algorithm.Monoid[T]
	Size        int
	Steps       int
	UpdateRatio float64
	Seed        uint64
	Gen         func(r *rand.Rand) T // 生成随机元素。
	Equal       func(a, b T) bool    // 比较树的结果与基准结果。
	OpErr       func() error         // 可选，返回运算过程中记录的第一个错误。
}

// TaskName 实现 Task。
func (j Job[T]) TaskName() string {
	return j.Name
}

func (j Job[T]) validate() error {
	switch {
	case j.Name == "":
		return xerrors.InvalidInput("job name is empty")
	case j.Monoid.Op == nil:
		return xerrors.InvalidInput("job %s has no operation", j.Name)
	case j.Gen == nil || j.Equal == nil:
		return xerrors.InvalidInput("job %s needs Gen and Equal", j.Name)
	case j.Size < 0:
		return xerrors.InvalidInput("job %s has negative size %d", j.Name, j.Size)
	case j.Steps < 1:
		return xerrors.InvalidInput("job %s needs at least one step", j.Name)
	case j.UpdateRatio < 0 || j.UpdateRatio > 1:
		return xerrors.InvalidInput("job %s update ratio %v not in [0, 1]", j.Name, j.UpdateRatio)
	}
	return nil
}

// reference 以从左到右的顺序折叠 values，作为查询结果的基准。
func (j Job[T]) reference(values []T) T {
	return lo.Reduce(values, func(acc T, v T, _ int) T {
		return j.Monoid.Op(acc, v)
	}, j.Monoid.Identity)
}

func (j Job[T]) run(ctx context.Context, r *Runner) (rep Report, err error) {
	if err := j.validate(); err != nil {
		return Report{Name: j.Name}, err
	}

	ctx, span := tracing.StartSpan(ctx, "workload."+j.Name)
	defer func() {
		tracing.SetError(ctx, err)
		span.End()
	}()
	tracing.AddTag(ctx, "workload.size", j.Size)
	tracing.AddTag(ctx, "workload.steps", j.Steps)

	start := time.Now()
	rep = Report{Name: j.Name, Size: j.Size}
	rng := rand.New(rand.NewPCG(j.Seed, uint64(j.Size)))

	ref := make([]T, j.Size)
	for i := range ref {
		ref[i] = j.Gen(rng)
	}

	buildStart := time.Now()
	st := j.Monoid.Build(ref)
	r.observe(j.Name, "build", nil, time.Since(buildStart))
	r.setSize(j.Name, j.Size)

	mismatch := func(format string, args ...any) {
		rep.Mismatches++
		if rep.FirstMismatch == "" {
			rep.FirstMismatch = fmt.Sprintf(format, args...)
		}
	}

	for step := 0; step < j.Steps; step++ {
		if step%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				rep.Elapsed = time.Since(start)
				return rep, err
			}
		}

		if j.Size > 0 && rng.Float64() < j.UpdateRatio {
			p, v := rng.IntN(j.Size), j.Gen(rng)
			opStart := time.Now()
			err := st.Set(p, v)
			r.observe(j.Name, "update", err, time.Since(opStart))
			if err != nil {
				return rep, xerrors.WrapInternal(err, "update failed")
			}
			ref[p] = v
			rep.Updates++

			if got, err := st.Get(p); err != nil || !j.Equal(got, v) {
				mismatch("Get(%d) after Set = %v (err %v), want %v", p, got, err, v)
			}
			continue
		}

		left := rng.IntN(j.Size + 1)
		right := left + rng.IntN(j.Size-left+1)
		opStart := time.Now()
		got, err := st.Query(left, right)
		r.observe(j.Name, "query", err, time.Since(opStart))
		if err != nil {
			return rep, xerrors.WrapInternal(err, "query failed")
		}
		rep.Queries++

		if want := j.reference(ref[left:right]); !j.Equal(got, want) {
			mismatch("Query(%d, %d) = %v, want %v", left, right, got, want)
		}
	}

	if got, want := st.QueryAll(), j.reference(ref); !j.Equal(got, want) {
		mismatch("QueryAll() = %v, want %v", got, want)
	}
	// 填充叶子不可寻址。
	if _, err := st.Get(j.Size); !errors.Is(err, xerrors.ErrIndexOutOfRange) {
		mismatch("Get(%d) error = %v, want index out of range", j.Size, err)
	}

	if j.OpErr != nil {
		if opErr := j.OpErr(); opErr != nil {
			rep.Elapsed = time.Since(start)
			return rep, xerrors.Wrap(opErr, xerrors.ErrInvalidArg, "operation failed during "+j.Name)
		}
	}

	rep.Elapsed = time.Since(start)
	r.recordMismatches(j.Name, rep.Mismatches)
	return rep, nil
}
