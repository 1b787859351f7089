package algorithm

import (
	"fmt"
	"math/bits"

	"github.com/wyfcoding/rangetree/xerrors"
)

// SegmentTree (线段树) 是一种基于数组的隐式完全二叉树，用于在 O(log N) 时间内完成区间归约查询与单点更新。
// 树以单个连续切片 node 存储：下标 1 为根，节点 i 的子节点为 2i 与 2i+1，逻辑位置 p 的叶子位于 capacity+p。
// op 必须满足结合律，但不要求交换律；identity 为 op 的单位元，用于填充多余叶子并作为空区间的结果。
// 对于任意内部节点 i，在每次修改完成后都满足 node[i] == op(node[2i], node[2i+1])。
//
// SegmentTree 不做任何加锁，调用方需保证同一时刻只有一个写者。
type SegmentTree[T any] struct {
	node     []T          // 长度为 2*capacity，下标 0 不使用。
	op       func(T, T) T // 满足结合律的合并运算。
	identity T            // op 的单位元。
	size     int          // 逻辑长度 n。
	capacity int          // 不小于 n 的最小 2 的幂，n 为 0 时为 1。
}

// NewSegmentTree 创建一个逻辑长度为 n、全部叶子为 identity 的线段树。
// 由于 op(e, e) == e，所有内部节点天然满足堆性质，无需构建。
func NewSegmentTree[T any](n int, op func(T, T) T, identity T) (*SegmentTree[T], error) {
	if n < 0 {
		return nil, xerrors.InvalidRange(0, n, 0)
	}
	st := newSegmentTree(n, op, identity)
	for i := range st.node {
		st.node[i] = identity
	}
	return st, nil
}

// NewSegmentTreeFromSlice 以 values 为叶子自底向上构建线段树，共调用 op O(capacity) 次。
// values 会被复制，之后修改 values 不影响线段树。
func NewSegmentTreeFromSlice[T any](values []T, op func(T, T) T, identity T) *SegmentTree[T] {
	st := newSegmentTree(len(values), op, identity)
	copy(st.node[st.capacity:], values)
	for i := st.capacity + len(values); i < len(st.node); i++ {
		st.node[i] = identity
	}
	st.node[0] = identity
	for i := st.capacity - 1; i >= 1; i-- {
		st.pull(i)
	}
	return st
}

func newSegmentTree[T any](n int, op func(T, T) T, identity T) *SegmentTree[T] {
	capacity := nextPowerOfTwo(n)
	return &SegmentTree[T]{
		node:     make([]T, 2*capacity),
		op:       op,
		identity: identity,
		size:     n,
		capacity: capacity,
	}
}

// nextPowerOfTwo 返回不小于 n 的最小 2 的幂，n <= 1 时返回 1。
func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// pull 用两个子节点重新计算内部节点 i。
func (st *SegmentTree[T]) pull(i int) {
	st.node[i] = st.op(st.node[i<<1], st.node[i<<1|1])
}

// Len 返回逻辑长度。
func (st *SegmentTree[T]) Len() int {
	return st.size
}

// Capacity 返回叶子层的实际容量（2 的幂）。
func (st *SegmentTree[T]) Capacity() int {
	return st.capacity
}

// Get 返回逻辑位置 index 上的当前值。
// 填充用的叶子不可寻址，index 不在 [0, Len()) 内时返回 xerrors.ErrIndexOutOfRange。
func (st *SegmentTree[T]) Get(index int) (T, error) {
	if index < 0 || index >= st.size {
		var zero T
		return zero, xerrors.IndexOutOfRange(index, st.size)
	}
	return st.node[st.capacity+index], nil
}

// Set 将逻辑位置 index 的值替换为 value，并自底向上重算其全部祖先，时间复杂度 O(log N)。
// 越界时不做任何修改并返回 xerrors.ErrIndexOutOfRange。
func (st *SegmentTree[T]) Set(index int, value T) error {
	if index < 0 || index >= st.size {
		return xerrors.IndexOutOfRange(index, st.size)
	}
	i := st.capacity + index
	st.node[i] = value
	for i >>= 1; i >= 1; i >>= 1 {
		st.pull(i)
	}
	return nil
}

// Query 返回半开区间 [left, right) 内所有元素按从左到右顺序经 op 合并的结果。
// 要求 0 <= left <= right <= Len()，否则返回 xerrors.ErrInvalidRange；空区间直接返回 identity。
//
// 自底向上的遍历并不按从左到右的顺序访问节点，因此左右两侧分别累积：
// 左边界上的节点追加到 accLeft 之后，右边界上的节点拼接到 accRight 之前，最后按 accLeft、accRight 的顺序合并。
// 这样即使 op 不满足交换律（例如字符串拼接）结果也是正确的。
func (st *SegmentTree[T]) Query(left, right int) (T, error) {
	if left < 0 || left > right || right > st.size {
		var zero T
		return zero, xerrors.InvalidRange(left, right, st.size)
	}
	if left == right {
		return st.identity, nil
	}

	accLeft, accRight := st.identity, st.identity
	l, r := st.capacity+left, st.capacity+right
	for l < r {
		if l&1 == 1 {
			accLeft = st.op(accLeft, st.node[l])
			l++
		}
		if r&1 == 1 {
			r--
			accRight = st.op(st.node[r], accRight)
		}
		l >>= 1
		r >>= 1
	}
	return st.op(accLeft, accRight), nil
}

// QueryPrefix 等价于 Query(0, right)。
func (st *SegmentTree[T]) QueryPrefix(right int) (T, error) {
	return st.Query(0, right)
}

// QuerySuffix 等价于 Query(left, Len())。
func (st *SegmentTree[T]) QuerySuffix(left int) (T, error) {
	return st.Query(left, st.size)
}

// QueryAll 返回全部元素的合并结果，即根节点的值。
func (st *SegmentTree[T]) QueryAll() T {
	if st.size == 0 {
		return st.identity
	}
	return st.node[1]
}

// MaxRight 在 pred 单调（前缀为真、之后为假）且 pred(identity) 为真的前提下，
// 返回最大的 r (left <= r <= Len()) 使得 pred(Query(left, r)) 为真。
// 例如求和树上 pred 为 "sum <= k" 时，r 即从 left 起和不超过 k 的最长前缀的右端点。
func (st *SegmentTree[T]) MaxRight(left int, pred func(T) bool) (int, error) {
	if left < 0 || left > st.size {
		return 0, xerrors.InvalidRange(left, st.size, st.size)
	}
	if left == st.size {
		return st.size, nil
	}

	l := st.capacity + left
	acc := st.identity
	for {
		for l&1 == 0 {
			l >>= 1
		}
		if !pred(st.op(acc, st.node[l])) {
			// 沿左侧向下，找到第一个使 pred 失败的叶子。
			for l < st.capacity {
				l <<= 1
				if next := st.op(acc, st.node[l]); pred(next) {
					acc = next
					l++
				}
			}
			return l - st.capacity, nil
		}
		acc = st.op(acc, st.node[l])
		l++
		if l&-l == l {
			break
		}
	}
	return st.size, nil
}

// MinLeft 是 MaxRight 的镜像：返回最小的 l (0 <= l <= right) 使得 pred(Query(l, right)) 为真。
func (st *SegmentTree[T]) MinLeft(right int, pred func(T) bool) (int, error) {
	if right < 0 || right > st.size {
		return 0, xerrors.InvalidRange(0, right, st.size)
	}
	if right == 0 {
		return 0, nil
	}

	r := st.capacity + right
	acc := st.identity
	for {
		r--
		for r > 1 && r&1 == 1 {
			r >>= 1
		}
		if !pred(st.op(st.node[r], acc)) {
			for r < st.capacity {
				r = r<<1 | 1
				if next := st.op(st.node[r], acc); pred(next) {
					acc = next
					r--
				}
			}
			return r + 1 - st.capacity, nil
		}
		acc = st.op(st.node[r], acc)
		if r&-r == r {
			break
		}
	}
	return 0, nil
}

// Values 返回全部逻辑叶子的副本。
func (st *SegmentTree[T]) Values() []T {
	out := make([]T, st.size)
	copy(out, st.node[st.capacity:st.capacity+st.size])
	return out
}

// String 以 fmt 的切片格式输出逻辑叶子，例如 "[1 2]"。
func (st *SegmentTree[T]) String() string {
	return fmt.Sprint(st.node[st.capacity : st.capacity+st.size])
}
