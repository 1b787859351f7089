package workload

import (
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/rangetree/algorithm"
	"github.com/wyfcoding/rangetree/config"
	"github.com/wyfcoding/rangetree/xerrors"
)

// exprEnv 是自定义表达式可见的变量：a 为左操作数，b 为右操作数。
type exprEnv struct {
	A int64 `expr:"a"`
	B int64 `expr:"b"`
}

// ExprOp 是由 expr-lang 表达式编译得到的 int64 二元运算。
// 线段树的运算签名无法返回错误，因此运行期错误会被记录下来，通过 Err 取回，出错时该次运算返回 0。
type ExprOp struct {
	source  string
	program *vm.Program

	mu  sync.Mutex
	err error
}

// CompileExprOp 编译表达式，表达式结果必须可转换为 int64。
func CompileExprOp(source string) (*ExprOp, error) {
	if strings.TrimSpace(source) == "" {
		return nil, xerrors.InvalidInput("empty expression")
	}
	program, err := expr.Compile(source, expr.Env(exprEnv{}), expr.AsInt64())
	if err != nil {
		return nil, xerrors.InvalidInput("compile expression %q: %v", source, err)
	}
	return &ExprOp{source: source, program: program}, nil
}

// Apply 计算 op(a, b)。
func (o *ExprOp) Apply(a, b int64) int64 {
	out, err := expr.Run(o.program, exprEnv{A: a, B: b})
	if err != nil {
		o.mu.Lock()
		if o.err == nil {
			o.err = xerrors.InvalidInput("evaluate %q with a=%d b=%d: %v", o.source, a, b, err)
		}
		o.mu.Unlock()
		return 0
	}
	v, _ := out.(int64)
	return v
}

// Err 返回第一次运行期错误。
func (o *ExprOp) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err
}

// ResolveInt64 根据名称解析 int64 上的运算与单位元。
// identity 为空时使用该运算的默认单位元；自定义表达式默认单位元为 0。
// 返回的 errFn 仅在 operation 为 expr 时非空。
func ResolveInt64(operation, expression, identity string) (m algorithm.Monoid[int64], errFn func() error, err error) {
	switch operation {
	case "sum":
		m = algorithm.SumMonoid[int64]()
	case "min":
		m = algorithm.MinMonoid[int64](math.MaxInt64)
	case "max":
		m = algorithm.MaxMonoid[int64](math.MinInt64)
	case "xor":
		m = algorithm.XorMonoid[int64]()
	case "expr":
		op, err := CompileExprOp(expression)
		if err != nil {
			return m, nil, err
		}
		m = algorithm.Monoid[int64]{Op: op.Apply}
		errFn = op.Err
	default:
		return m, nil, xerrors.UnknownOperation(operation)
	}

	if identity != "" {
		id, err := strconv.ParseInt(strings.TrimSpace(identity), 10, 64)
		if err != nil {
			return m, nil, xerrors.InvalidInput("identity %q is not an int64", identity)
		}
		m.Identity = id
	}
	return m, errFn, nil
}

// ResolveDecimal 解析 decimal 上的运算，目前只支持精确求和。
func ResolveDecimal(operation, identity string) (algorithm.Monoid[decimal.Decimal], error) {
	if operation != "decimal_sum" && operation != "sum" {
		return algorithm.Monoid[decimal.Decimal]{}, xerrors.UnknownOperation(operation)
	}
	m := algorithm.DecimalSumMonoid()
	if identity != "" {
		id, err := decimal.NewFromString(identity)
		if err != nil {
			return m, xerrors.InvalidInput("identity %q is not a decimal", identity)
		}
		m.Identity = id
	}
	return m, nil
}

// BuildTask 将配置转换为可执行任务。
func BuildTask(cfg config.WorkloadConfig) (Task, error) {
	switch cfg.ValueType {
	case "", "int":
		m, errFn, err := ResolveInt64(cfg.Operation, cfg.Expression, cfg.Identity)
		if err != nil {
			return nil, err
		}
		return Job[int64]{
			Name:        cfg.Name,
			Monoid:      m,
			Size:        cfg.Size,
			Steps:       cfg.Steps,
			UpdateRatio: cfg.UpdateRatio,
			Seed:        cfg.Seed,
			Gen:         func(r *rand.Rand) int64 { return r.Int64N(2001) - 1000 },
			Equal:       func(a, b int64) bool { return a == b },
			OpErr:       errFn,
		}, nil

	case "decimal":
		m, err := ResolveDecimal(cfg.Operation, cfg.Identity)
		if err != nil {
			return nil, err
		}
		return Job[decimal.Decimal]{
			Name:        cfg.Name,
			Monoid:      m,
			Size:        cfg.Size,
			Steps:       cfg.Steps,
			UpdateRatio: cfg.UpdateRatio,
			Seed:        cfg.Seed,
			// 以分为单位的金额，范围 [0, 1000.00)。
			Gen:   func(r *rand.Rand) decimal.Decimal { return decimal.New(r.Int64N(100000), -2) },
			Equal: func(a, b decimal.Decimal) bool { return a.Equal(b) },
		}, nil

	case "string":
		if cfg.Operation != "concat" {
			return nil, xerrors.UnknownOperation(cfg.Operation)
		}
		m := algorithm.ConcatMonoid()
		m.Identity = cfg.Identity
		return Job[string]{
			Name:        cfg.Name,
			Monoid:      m,
			Size:        cfg.Size,
			Steps:       cfg.Steps,
			UpdateRatio: cfg.UpdateRatio,
			Seed:        cfg.Seed,
			Gen:         func(r *rand.Rand) string { return string(rune('a' + r.IntN(26))) },
			Equal:       func(a, b string) bool { return a == b },
		}, nil
	}
	return nil, xerrors.InvalidInput("unknown value type %q", cfg.ValueType)
}

// BuildTasks 转换全部配置，遇到第一个错误即返回。
func BuildTasks(cfgs []config.WorkloadConfig) ([]Task, error) {
	tasks := make([]Task, 0, len(cfgs))
	for _, c := range cfgs {
		t, err := BuildTask(c)
		if err != nil {
			return nil, xerrors.Wrap(err, xerrors.ErrInvalidArg, "workload "+c.Name)
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}
