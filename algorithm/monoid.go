package algorithm

import (
	"cmp"

	"github.com/shopspring/decimal"
)

// Integer 整数类型约束。
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// Number 可做加法的数值类型约束。
type Number interface {
	Integer | ~float32 | ~float64
}

// Monoid 将满足结合律的运算与其单位元绑定在一起，保证构建、更新与查询使用同一对值。
type Monoid[T any] struct {
	Op       func(T, T) T
	Identity T
}

// New 创建逻辑长度为 n 的空线段树。
func (m Monoid[T]) New(n int) (*SegmentTree[T], error) {
	return NewSegmentTree(n, m.Op, m.Identity)
}

// Build 以 values 构建线段树。
func (m Monoid[T]) Build(values []T) *SegmentTree[T] {
	return NewSegmentTreeFromSlice(values, m.Op, m.Identity)
}

// Fold 按从左到右的顺序折叠 values，结果与 Build(values).QueryAll() 相同，可作为校验基准。
func (m Monoid[T]) Fold(values []T) T {
	acc := m.Identity
	for _, v := range values {
		acc = m.Op(acc, v)
	}
	return acc
}

// SumMonoid 加法，单位元 0。
func SumMonoid[T Number]() Monoid[T] {
	return Monoid[T]{Op: func(a, b T) T { return a + b }}
}

// MinMonoid 取最小值，top 须不小于所有可能出现的值。
func MinMonoid[T cmp.Ordered](top T) Monoid[T] {
	return Monoid[T]{Op: func(a, b T) T { return min(a, b) }, Identity: top}
}

// MaxMonoid 取最大值，bottom 须不大于所有可能出现的值。
func MaxMonoid[T cmp.Ordered](bottom T) Monoid[T] {
	return Monoid[T]{Op: func(a, b T) T { return max(a, b) }, Identity: bottom}
}

// XorMonoid 按位异或，单位元 0。
func XorMonoid[T Integer]() Monoid[T] {
	return Monoid[T]{Op: func(a, b T) T { return a ^ b }}
}

// ConcatMonoid 字符串拼接。该运算不满足交换律，用于检验查询是否保持从左到右的顺序。
func ConcatMonoid() Monoid[string] {
	return Monoid[string]{Op: func(a, b string) string { return a + b }}
}

// DecimalSumMonoid 基于 decimal 的精确求和，适用于金额类区间统计。
func DecimalSumMonoid() Monoid[decimal.Decimal] {
	return Monoid[decimal.Decimal]{
		Op:       func(a, b decimal.Decimal) decimal.Decimal { return a.Add(b) },
		Identity: decimal.Zero,
	}
}
