package btree_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/calvinalkan/kvstore/internal/testutil/model"
	"github.com/calvinalkan/kvstore/pkg/btree"
	"github.com/calvinalkan/kvstore/pkg/region"
)

// This file applies identical operation sequences to a reference model
// (internal/testutil/model) and the real BTree, and asserts that every
// operation's result matches. It is a state-model property test in the
// style of pkg/slotcache's state_model_property_test.go, retargeted at
// B+ tree operations instead of slot-cache operations.

type btreeOp interface {
	apply(m *model.KVModel[int, int], tree *btree.BTree[int, int]) (modelResult, realResult any)
	String() string
}

type opInsert struct{ Key, Value int }

func (o opInsert) String() string { return fmt.Sprintf("Insert(%d,%d)", o.Key, o.Value) }

func (o opInsert) apply(m *model.KVModel[int, int], tree *btree.BTree[int, int]) (any, any) {
	_, _ = m.Insert(o.Key, o.Value)
	return true, tree.Insert(o.Key, o.Value)
}

type opDelete struct{ Key int }

func (o opDelete) String() string { return fmt.Sprintf("Delete(%d)", o.Key) }

func (o opDelete) apply(m *model.KVModel[int, int], tree *btree.BTree[int, int]) (any, any) {
	_, existed := m.Remove(o.Key)
	return existed, tree.Delete(o.Key)
}

type opFind struct{ Key int }

func (o opFind) String() string { return fmt.Sprintf("Find(%d)", o.Key) }

func (o opFind) apply(m *model.KVModel[int, int], tree *btree.BTree[int, int]) (any, any) {
	mv, mok := m.Get(o.Key)
	rv, rok := tree.Find(o.Key)
	return findResult{mv, mok}, findResult{rv, rok}
}

type findResult struct {
	Value int
	Ok    bool
}

type opRangeFind struct{ Lo, Hi int }

func (o opRangeFind) String() string { return fmt.Sprintf("RangeFind(%d,%d)", o.Lo, o.Hi) }

func (o opRangeFind) apply(m *model.KVModel[int, int], tree *btree.BTree[int, int]) (any, any) {
	modelPairs := m.RangeFind(o.Lo, o.Hi)
	realPairs := tree.RangeFind(o.Lo, o.Hi)

	want := make([]btree.Pair[int, int], len(modelPairs))
	for i, p := range modelPairs {
		want[i] = btree.Pair[int, int]{Key: p.Key, Value: p.Value}
	}

	return want, realPairs
}

func runBTreeOpSequence(t *testing.T, ops []btreeOp) {
	t.Helper()

	buf, err := region.OpenAnonymous[btree.Block[int, int]](4000)
	if err != nil {
		t.Fatalf("OpenAnonymous: %v", err)
	}
	defer buf.Close()

	tree, err := btree.CreateFrom[int, int](buf, 3)
	if err != nil {
		t.Fatalf("CreateFrom: %v", err)
	}
	defer tree.Close()

	m := model.New[int, int]()

	for _, op := range ops {
		wantResult, gotResult := op.apply(m, tree)
		if diff := cmp.Diff(wantResult, gotResult); diff != "" {
			t.Fatalf("%s: result mismatch (-model +real):\n%s", op.String(), diff)
		}
	}

	if m.IsEmpty() != tree.IsEmpty() {
		t.Fatalf("final IsEmpty mismatch: model=%v real=%v", m.IsEmpty(), tree.IsEmpty())
	}
}

func Test_BTree_MatchesModel_Property(t *testing.T) {
	seedCount := 20
	opsPerSeed := 300

	for seedIdx := 0; seedIdx < seedCount; seedIdx++ {
		seed := int64(seedIdx + 1)

		t.Run(fmt.Sprintf("seed=%d", seed), func(t *testing.T) {
			rng := rand.New(rand.NewSource(seed))

			var ops []btreeOp
			for i := 0; i < opsPerSeed; i++ {
				ops = append(ops, randBTreeOp(rng))
			}

			runBTreeOpSequence(t, ops)
		})
	}
}

func randBTreeOp(rng *rand.Rand) btreeOp {
	const keySpace = 40

	switch rng.Intn(4) {
	case 0:
		key := rng.Intn(keySpace)
		return opInsert{Key: key, Value: key * 7}
	case 1:
		return opDelete{Key: rng.Intn(keySpace)}
	case 2:
		return opFind{Key: rng.Intn(keySpace)}
	default:
		lo := rng.Intn(keySpace)
		hi := lo + rng.Intn(keySpace-lo+1)
		return opRangeFind{Lo: lo, Hi: hi}
	}
}
