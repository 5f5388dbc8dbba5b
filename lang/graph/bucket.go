package graph

import (
	"github.com/dolthub/swiss"
	"github.com/mna/callstack/lang/ir"
)

// bucket is one Indirect or Dynamic dispatch bucket of spec.md §3, keyed
// externally by its signature's String() form (signatures embed a slice of
// interface values and so are not themselves usable as a Go map key).
type bucket struct {
	sig     ir.Signature
	callees *swiss.Map[int, struct{}]
	callers *swiss.Map[int, struct{}]
	called  bool
}

func newBucket(sig ir.Signature) *bucket {
	return &bucket{
		sig:     sig,
		callees: swiss.NewMap[int, struct{}](4),
		callers: swiss.NewMap[int, struct{}](4),
	}
}

func (b *bucket) addCallee(idx int) { b.callees.Put(idx, struct{}{}) }

func (b *bucket) addCaller(idx int) {
	b.called = true
	b.callers.Put(idx, struct{}{})
}

func (b *bucket) calleeList() []int {
	out := make([]int, 0, b.callees.Count())
	b.callees.Iter(func(k int, _ struct{}) bool {
		out = append(out, k)
		return false
	})
	return out
}

func (b *bucket) callerList() []int {
	out := make([]int, 0, b.callers.Count())
	b.callers.Iter(func(k int, _ struct{}) bool {
		out = append(out, k)
		return false
	})
	return out
}

// buckets is a signature-keyed collection of dispatch buckets, used for
// both the Indirect and Dynamic bucket sets of spec.md §3.
type buckets struct {
	byKey map[string]*bucket
	// order preserves first-seen order, for deterministic iteration in
	// phase 5 (dispatch expansion must produce stable fictitious-node
	// ordering across runs on the same input).
	order []string
}

func newBuckets() *buckets {
	return &buckets{byKey: make(map[string]*bucket)}
}

// getOrCreate returns the bucket for sig, creating it if absent.
func (bs *buckets) getOrCreate(sig ir.Signature) *bucket {
	key := sig.String()
	if b, ok := bs.byKey[key]; ok {
		return b
	}
	b := newBucket(sig)
	bs.byKey[key] = b
	bs.order = append(bs.order, key)
	return b
}

func (bs *buckets) lookup(sig ir.Signature) (*bucket, bool) {
	b, ok := bs.byKey[sig.String()]
	return b, ok
}

// each iterates buckets in first-seen order.
func (bs *buckets) each(fn func(b *bucket)) {
	for _, key := range bs.order {
		fn(bs.byKey[key])
	}
}
