package model_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/kvstore/internal/testutil/model"
)

func Test_Model_InsertReportsPreviousValue(t *testing.T) {
	t.Parallel()

	m := model.New[int, string]()

	_, replaced := m.Insert(1, "a")
	assert.False(t, replaced)

	previous, replaced := m.Insert(1, "b")
	assert.True(t, replaced)
	assert.Equal(t, "a", previous)

	v, ok := m.Get(1)
	require.True(t, ok)
	assert.Equal(t, "b", v)
}

func Test_Model_RemoveReportsPresence(t *testing.T) {
	t.Parallel()

	m := model.New[int, string]()
	m.Insert(1, "a")

	v, ok := m.Remove(1)
	require.True(t, ok)
	assert.Equal(t, "a", v)

	_, ok = m.Remove(1)
	assert.False(t, ok)
}

func Test_Model_RangeFindIsSortedAndInclusive(t *testing.T) {
	t.Parallel()

	m := model.New[int, int]()
	for _, k := range []int{5, 1, 9, 3, 7} {
		m.Insert(k, k*10)
	}

	got := m.RangeFind(3, 7)
	want := []model.Pair[int, int]{
		{Key: 3, Value: 30},
		{Key: 5, Value: 50},
		{Key: 7, Value: 70},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("RangeFind mismatch (-want +got):\n%s", diff)
	}
}

func Test_Model_PopFrontAndPopBackDrainInOrder(t *testing.T) {
	t.Parallel()

	m := model.New[int, int]()
	for x := 1; x <= 5; x++ {
		m.Insert(x, x)
	}

	front, ok := m.PopFront()
	require.True(t, ok)
	assert.Equal(t, 1, front.Key)

	back, ok := m.PopBack()
	require.True(t, ok)
	assert.Equal(t, 5, back.Key)

	assert.Equal(t, 3, m.Len())

	_, ok = m.PopFront()
	require.True(t, ok)
	_, ok = m.PopFront()
	require.True(t, ok)
	_, ok = m.PopFront()
	require.True(t, ok)

	assert.True(t, m.IsEmpty())

	_, ok = m.PopFront()
	assert.False(t, ok)
	_, ok = m.PopBack()
	assert.False(t, ok)
}

func Test_Model_CloneIsIndependent(t *testing.T) {
	t.Parallel()

	m := model.New[int, int]()
	m.Insert(1, 1)

	clone := m.Clone()
	clone.Insert(2, 2)

	assert.Equal(t, 1, m.Len())
	assert.Equal(t, 2, clone.Len())
}
