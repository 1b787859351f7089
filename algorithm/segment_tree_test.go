package algorithm

import (
	"errors"
	"math/rand/v2"
	"strconv"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/rangetree/xerrors"
)

var sample = []int{1, 2, -91, 20, 5, 10, 970}

func add(a, b int) int { return a + b }

func sliceSum(values []int) int {
	s := 0
	for _, v := range values {
		s += v
	}
	return s
}

// checkHeap 校验每个内部节点都等于两个子节点的合并结果。
func checkHeap[T comparable](t *testing.T, st *SegmentTree[T]) {
	t.Helper()
	for i := st.capacity - 1; i >= 1; i-- {
		if want := st.op(st.node[2*i], st.node[2*i+1]); st.node[i] != want {
			t.Fatalf("heap property broken at node %d: got %v, want %v", i, st.node[i], want)
		}
	}
}

func mustQuery[T any](t *testing.T, st *SegmentTree[T], l, r int) T {
	t.Helper()
	v, err := st.Query(l, r)
	if err != nil {
		t.Fatalf("Query(%d, %d) failed: %v", l, r, err)
	}
	return v
}

func TestSegmentTreeGet(t *testing.T) {
	st := NewSegmentTreeFromSlice(sample, add, 0)

	v, err := st.Get(2)
	if err != nil || v != -91 {
		t.Fatalf("Get(2) = %d, %v; want -91", v, err)
	}
	// 下标 7 是填充叶子，不可寻址。
	if _, err := st.Get(7); !errors.Is(err, xerrors.ErrIndexOutOfRange) {
		t.Errorf("Get(7) error = %v, want ErrIndexOutOfRange", err)
	}
	if _, err := st.Get(-1); !errors.Is(err, xerrors.ErrIndexOutOfRange) {
		t.Errorf("Get(-1) error = %v, want ErrIndexOutOfRange", err)
	}
	if st.Len() != 7 || st.Capacity() != 8 {
		t.Errorf("Len/Capacity = %d/%d, want 7/8", st.Len(), st.Capacity())
	}
	checkHeap(t, st)
}

func TestSegmentTreeSumQuery(t *testing.T) {
	st := NewSegmentTreeFromSlice(sample, add, 0)

	for i := 0; i <= len(sample); i++ {
		for j := i; j <= len(sample); j++ {
			if got, want := mustQuery(t, st, i, j), sliceSum(sample[i:j]); got != want {
				t.Errorf("Query(%d, %d) = %d, want %d", i, j, got, want)
			}
		}
	}
}

func TestSegmentTreeMinQuery(t *testing.T) {
	st := MinMonoid(970).Build(sample)

	if got := st.QueryAll(); got != -91 {
		t.Errorf("QueryAll() = %d, want -91", got)
	}
	if got, _ := st.QuerySuffix(3); got != 5 {
		t.Errorf("QuerySuffix(3) = %d, want 5", got)
	}
	if got, _ := st.QueryPrefix(2); got != 1 {
		t.Errorf("QueryPrefix(2) = %d, want 1", got)
	}
}

func TestSegmentTreeTwoElements(t *testing.T) {
	st := NewSegmentTreeFromSlice([]int{1, 2}, add, 0)

	a, _ := st.Get(0)
	b, _ := st.Get(1)
	if a != 1 || b != 2 {
		t.Errorf("Get = %d, %d; want 1, 2", a, b)
	}
	if got := mustQuery(t, st, 0, 2); got != 3 {
		t.Errorf("Query(0, 2) = %d, want 3", got)
	}
	if got := st.String(); got != "[1 2]" {
		t.Errorf("String() = %q, want %q", got, "[1 2]")
	}
}

func TestSegmentTreeEmpty(t *testing.T) {
	st, err := NewSegmentTree(0, add, 0)
	if err != nil {
		t.Fatal(err)
	}

	if got := mustQuery(t, st, 0, 0); got != 0 {
		t.Errorf("Query(0, 0) = %d, want identity", got)
	}
	if got := st.QueryAll(); got != 0 {
		t.Errorf("QueryAll() = %d, want identity", got)
	}
	if _, err := st.Get(0); !errors.Is(err, xerrors.ErrIndexOutOfRange) {
		t.Errorf("Get(0) error = %v, want ErrIndexOutOfRange", err)
	}
	if st.Capacity() != 1 || st.String() != "[]" {
		t.Errorf("empty tree capacity/string = %d/%q", st.Capacity(), st.String())
	}

	if _, err := NewSegmentTree(-1, add, 0); !errors.Is(err, xerrors.ErrInvalidRange) {
		t.Errorf("negative size error = %v, want ErrInvalidRange", err)
	}
}

func TestSegmentTreeNewFilledWithIdentity(t *testing.T) {
	st, err := MinMonoid(1 << 30).New(5)
	if err != nil {
		t.Fatal(err)
	}
	checkHeap(t, st)
	if got := st.QueryAll(); got != 1<<30 {
		t.Errorf("QueryAll() = %d, want identity", got)
	}

	if err := st.Set(3, 7); err != nil {
		t.Fatal(err)
	}
	if got := mustQuery(t, st, 0, 5); got != 7 {
		t.Errorf("Query(0, 5) = %d, want 7", got)
	}
	if got := mustQuery(t, st, 0, 3); got != 1<<30 {
		t.Errorf("Query(0, 3) = %d, want identity", got)
	}
	checkHeap(t, st)
}

func TestSegmentTreeSet(t *testing.T) {
	st := NewSegmentTreeFromSlice(sample, add, 0)

	if err := st.Set(5, 100); err != nil {
		t.Fatal(err)
	}
	if got, want := mustQuery(t, st, 0, 7), sliceSum(sample)-10+100; got != want {
		t.Errorf("Query(0, 7) = %d, want %d", got, want)
	}
	if v, _ := st.Get(5); v != 100 {
		t.Errorf("Get(5) = %d, want 100", v)
	}
	if got := mustQuery(t, st, 5, 6); got != 100 {
		t.Errorf("Query(5, 6) = %d, want 100", got)
	}
	checkHeap(t, st)

	before := st.Values()
	if err := st.Set(7, 1); !errors.Is(err, xerrors.ErrIndexOutOfRange) {
		t.Errorf("Set(7) error = %v, want ErrIndexOutOfRange", err)
	}
	for i, v := range st.Values() {
		if v != before[i] {
			t.Fatalf("failed Set mutated position %d", i)
		}
	}
}

func TestSegmentTreeInvalidRange(t *testing.T) {
	st := NewSegmentTreeFromSlice(sample, add, 0)

	cases := []struct {
		name        string
		left, right int
	}{
		{"left after right", 4, 3},
		{"right past size", 0, 8},
		{"negative left", -1, 3},
		{"both past size", 8, 8},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := st.Query(tc.left, tc.right); !errors.Is(err, xerrors.ErrInvalidRange) {
				t.Errorf("Query(%d, %d) error = %v, want ErrInvalidRange", tc.left, tc.right, err)
			}
		})
	}
	if _, err := st.QuerySuffix(8); !errors.Is(err, xerrors.ErrInvalidRange) {
		t.Errorf("QuerySuffix(8) should fail")
	}
}

func TestSegmentTreeEmptyRangeSkipsOp(t *testing.T) {
	calls := 0
	st := NewSegmentTreeFromSlice(sample, func(a, b int) int {
		calls++
		return a + b
	}, 0)
	calls = 0

	for k := 0; k <= len(sample); k++ {
		if got := mustQuery(t, st, k, k); got != 0 {
			t.Errorf("Query(%d, %d) = %d, want identity", k, k, got)
		}
	}
	if calls != 0 {
		t.Errorf("empty queries invoked op %d times", calls)
	}
}

func TestSegmentTreeNonCommutative(t *testing.T) {
	letters := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k"}
	st := ConcatMonoid().Build(letters)

	for i := 0; i <= len(letters); i++ {
		for k := i; k <= len(letters); k++ {
			want := ConcatMonoid().Fold(letters[i:k])
			if got := mustQuery(t, st, i, k); got != want {
				t.Errorf("Query(%d, %d) = %q, want %q", i, k, got, want)
			}
		}
	}

	if err := st.Set(4, "XY"); err != nil {
		t.Fatal(err)
	}
	if got := mustQuery(t, st, 2, 7); got != "cdXYfg" {
		t.Errorf("Query(2, 7) after Set = %q, want %q", got, "cdXYfg")
	}
	checkHeap(t, st)
}

func TestSegmentTreeDecomposition(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	values := make([]string, 13)
	for i := range values {
		values[i] = strconv.Itoa(r.IntN(10))
	}
	st := ConcatMonoid().Build(values)

	for i := 0; i <= len(values); i++ {
		for j := i; j <= len(values); j++ {
			for k := j; k <= len(values); k++ {
				whole := mustQuery(t, st, i, k)
				split := mustQuery(t, st, i, j) + mustQuery(t, st, j, k)
				if whole != split {
					t.Fatalf("Query(%d, %d) = %q, split at %d gives %q", i, k, whole, j, split)
				}
			}
		}
	}
}

func TestSegmentTreeRandomUpdates(t *testing.T) {
	r := rand.New(rand.NewPCG(42, 7))
	const n = 37
	ref := make([]int, n)
	st, err := SumMonoid[int]().New(n)
	if err != nil {
		t.Fatal(err)
	}

	for step := 0; step < 2000; step++ {
		if r.IntN(3) == 0 {
			p, v := r.IntN(n), r.IntN(2001)-1000
			ref[p] = v
			if err := st.Set(p, v); err != nil {
				t.Fatal(err)
			}
			continue
		}
		l := r.IntN(n + 1)
		rr := l + r.IntN(n+1-l)
		if got, want := mustQuery(t, st, l, rr), sliceSum(ref[l:rr]); got != want {
			t.Fatalf("step %d: Query(%d, %d) = %d, want %d", step, l, rr, got, want)
		}
	}
	checkHeap(t, st)
}

func TestSegmentTreeMaxRight(t *testing.T) {
	values := []int{3, 1, 4, 1, 5, 9, 2, 6, 5}
	st := SumMonoid[int]().Build(values)

	for left := 0; left <= len(values); left++ {
		for _, limit := range []int{0, 1, 4, 10, 20, 100} {
			pred := func(s int) bool { return s <= limit }
			want := left
			for want < len(values) && sliceSum(values[left:want+1]) <= limit {
				want++
			}
			got, err := st.MaxRight(left, pred)
			if err != nil {
				t.Fatal(err)
			}
			if got != want {
				t.Errorf("MaxRight(%d, <=%d) = %d, want %d", left, limit, got, want)
			}
		}
	}
	if _, err := st.MaxRight(len(values)+1, func(int) bool { return true }); !errors.Is(err, xerrors.ErrInvalidRange) {
		t.Errorf("MaxRight past size should fail, got %v", err)
	}
}

func TestSegmentTreeMinLeft(t *testing.T) {
	values := []int{3, 1, 4, 1, 5, 9, 2, 6, 5}
	st := SumMonoid[int]().Build(values)

	for right := 0; right <= len(values); right++ {
		for _, limit := range []int{0, 1, 4, 10, 20, 100} {
			pred := func(s int) bool { return s <= limit }
			want := right
			for want > 0 && sliceSum(values[want-1:right]) <= limit {
				want--
			}
			got, err := st.MinLeft(right, pred)
			if err != nil {
				t.Fatal(err)
			}
			if got != want {
				t.Errorf("MinLeft(%d, <=%d) = %d, want %d", right, limit, got, want)
			}
		}
	}
	if _, err := st.MinLeft(-1, func(int) bool { return true }); !errors.Is(err, xerrors.ErrInvalidRange) {
		t.Errorf("MinLeft(-1) should fail, got %v", err)
	}
}

func TestSegmentTreeSingleElement(t *testing.T) {
	st := XorMonoid[uint8]().Build([]uint8{0b1010})

	if st.Capacity() != 1 {
		t.Fatalf("Capacity() = %d, want 1", st.Capacity())
	}
	if err := st.Set(0, 0b0110); err != nil {
		t.Fatal(err)
	}
	if got := mustQuery(t, st, 0, 1); got != 0b0110 {
		t.Errorf("Query(0, 1) = %b, want 110", got)
	}
	if got, _ := st.MaxRight(0, func(x uint8) bool { return x == 0 }); got != 0 {
		t.Errorf("MaxRight = %d, want 0", got)
	}
	if got, _ := st.MinLeft(1, func(uint8) bool { return true }); got != 0 {
		t.Errorf("MinLeft = %d, want 0", got)
	}
}

func TestSegmentTreeDecimalSum(t *testing.T) {
	prices := []decimal.Decimal{
		decimal.RequireFromString("0.10"),
		decimal.RequireFromString("0.20"),
		decimal.RequireFromString("19.99"),
	}
	st := DecimalSumMonoid().Build(prices)

	if got := st.QueryAll(); !got.Equal(decimal.RequireFromString("20.29")) {
		t.Errorf("QueryAll() = %s, want 20.29", got)
	}
	if got := mustQuery(t, st, 0, 2); !got.Equal(decimal.RequireFromString("0.3")) {
		t.Errorf("Query(0, 2) = %s, want 0.3", got)
	}
}

func TestSegmentTreeInputNotRetained(t *testing.T) {
	values := []int{1, 2, 3}
	st := SumMonoid[int]().Build(values)
	values[0] = 100

	if got := st.QueryAll(); got != 6 {
		t.Errorf("QueryAll() = %d after mutating input, want 6", got)
	}
	out := st.Values()
	out[1] = 100
	if v, _ := st.Get(1); v != 2 {
		t.Errorf("Values() must return a copy")
	}
}

func TestNextPowerOfTwo(t *testing.T) {
	cases := map[int]int{0: 1, 1: 1, 2: 2, 3: 4, 7: 8, 8: 8, 9: 16, 1000: 1024}
	for in, want := range cases {
		if got := nextPowerOfTwo(in); got != want {
			t.Errorf("nextPowerOfTwo(%d) = %d, want %d", in, got, want)
		}
	}
}

func BenchmarkSegmentTreeBuild(b *testing.B) {
	values := make([]int64, 1<<16)
	for i := range values {
		values[i] = int64(i)
	}
	m := SumMonoid[int64]()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Build(values)
	}
}

func BenchmarkSegmentTreeQuery(b *testing.B) {
	const n = 1 << 16
	st, _ := SumMonoid[int64]().New(n)
	r := rand.New(rand.NewPCG(3, 4))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		l := r.IntN(n)
		_, _ = st.Query(l, l+r.IntN(n-l+1))
	}
}

func BenchmarkSegmentTreeSet(b *testing.B) {
	const n = 1 << 16
	st, _ := SumMonoid[int64]().New(n)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = st.Set(i&(n-1), int64(i))
	}
}
