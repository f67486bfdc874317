package batch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeItems(n, opsPerItem int) []Item[string] {
	items := make([]Item[string], 0, n)
	for i := 0; i < n; i++ {
		ops := make([]string, 0, opsPerItem)
		for j := 0; j < opsPerItem; j++ {
			ops = append(ops, fmt.Sprintf("item-%d-op-%d", i, j))
		}
		items = append(items, Item[string]{Key: fmt.Sprintf("item-%d", i), Ops: ops})
	}
	return items
}

func TestPackKeepsItemsWhole(t *testing.T) {
	exec := NewExecutor[string](Options{MaxOps: 10})
	groups, oversized := exec.Pack(makeItems(25, 2))
	require.Empty(t, oversized)
	require.Len(t, groups, 5)
	for i, group := range groups {
		assert.Equal(t, i, group.Index)
		assert.Len(t, group.Items, 5)
		assert.Len(t, group.Ops, 10)
	}
}

func TestPackMixedSizes(t *testing.T) {
	exec := NewExecutor[string](Options{MaxOps: 3})
	items := []Item[string]{
		{Key: "a", Ops: []string{"a1", "a2"}},
		{Key: "b", Ops: []string{"b1", "b2"}},
		{Key: "c", Ops: []string{"c1"}},
		{Key: "d", Ops: []string{"d1", "d2", "d3", "d4"}},
		{Key: "e", Ops: nil},
	}
	groups, oversized := exec.Pack(items)
	assert.Equal(t, []int{3}, oversized)
	require.Len(t, groups, 2)
	assert.Equal(t, []int{0}, groups[0].Items)
	assert.Equal(t, []int{1, 2}, groups[1].Items)
	assert.Equal(t, []string{"b1", "b2", "c1"}, groups[1].Ops)
}

func TestExecuteIsolatesFailedGroup(t *testing.T) {
	exec := NewExecutor[string](Options{MaxOps: 10})
	var calls []int
	res := exec.Execute(context.Background(), makeItems(25, 2), func(ctx context.Context, group Group[string]) error {
		calls = append(calls, group.Index)
		if group.Index == 2 {
			return errors.New("remote rejected batch")
		}
		return nil
	})
	assert.Equal(t, []int{0, 1, 2, 3, 4}, calls)
	assert.Equal(t, 5, res.Groups)
	assert.Equal(t, []int{10, 11, 12, 13, 14}, res.Failed)
	assert.Len(t, res.Succeeded, 20)
	assert.NotContains(t, res.Succeeded, 10)
	require.Contains(t, res.Errors, 2)
}

func TestExecuteRecoversPanicsAndOversized(t *testing.T) {
	exec := NewExecutor[string](Options{MaxOps: 2})
	items := []Item[string]{
		{Key: "a", Ops: []string{"a1", "a2", "a3"}},
		{Key: "b", Ops: []string{"b1"}},
	}
	res := exec.Execute(context.Background(), items, func(ctx context.Context, group Group[string]) error {
		panic("boom")
	})
	assert.Equal(t, []int{0, 1}, res.Failed)
	assert.Empty(t, res.Succeeded)
}

func TestExecuteConcurrent(t *testing.T) {
	exec := NewExecutor[string](Options{MaxOps: 1, Concurrency: 5})
	var submitted atomic.Int32
	res := exec.Execute(context.Background(), makeItems(12, 1), func(ctx context.Context, group Group[string]) error {
		submitted.Add(1)
		if group.Items[0]%4 == 0 {
			return errors.New("fail")
		}
		return nil
	})
	assert.Equal(t, int32(12), submitted.Load())
	assert.Equal(t, []int{0, 4, 8}, res.Failed)
	assert.Len(t, res.Succeeded, 9)
}

func TestExecuteCancelledContext(t *testing.T) {
	exec := NewExecutor[string](Options{MaxOps: 2})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := exec.Execute(ctx, makeItems(4, 1), func(ctx context.Context, group Group[string]) error {
		t.Fatal("submit must not run")
		return nil
	})
	assert.Equal(t, []int{0, 1, 2, 3}, res.Failed)
}
