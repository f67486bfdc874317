// Package batch packs per-item write operations into size bounded groups and
// submits each group to an all-or-nothing write endpoint.
package batch

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultMaxOps      = 10
	DefaultConcurrency = 1
)

// Item is one logical unit whose operations must land in the same group.
type Item[Op any] struct {
	Key string
	Ops []Op
}

// Group is a packed set of items. Ops holds their operations in item order.
type Group[Op any] struct {
	Index int
	Items []int
	Ops   []Op
}

// SubmitFunc writes one group. A returned error fails every item of the
// group and nothing else.
type SubmitFunc[Op any] func(ctx context.Context, group Group[Op]) error

type Options struct {
	MaxOps      int
	Concurrency int
}

// Result lists item indices by outcome, ascending.
type Result struct {
	Succeeded []int
	Failed    []int
	Groups    int
	Errors    map[int]error
}

type Executor[Op any] struct {
	maxOps      int
	concurrency int
}

func NewExecutor[Op any](opts Options) *Executor[Op] {
	if opts.MaxOps <= 0 {
		opts.MaxOps = DefaultMaxOps
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	return &Executor[Op]{maxOps: opts.MaxOps, concurrency: opts.Concurrency}
}

// Pack greedily fills groups in item order. An item never spans two groups;
// items with more operations than the cap are returned in oversized.
func (e *Executor[Op]) Pack(items []Item[Op]) (groups []Group[Op], oversized []int) {
	current := Group[Op]{}
	flush := func() {
		if len(current.Items) == 0 {
			return
		}
		current.Index = len(groups)
		groups = append(groups, current)
		current = Group[Op]{}
	}
	for idx, item := range items {
		if len(item.Ops) == 0 {
			continue
		}
		if len(item.Ops) > e.maxOps {
			oversized = append(oversized, idx)
			continue
		}
		if len(current.Ops)+len(item.Ops) > e.maxOps {
			flush()
		}
		current.Items = append(current.Items, idx)
		current.Ops = append(current.Ops, item.Ops...)
	}
	flush()
	return groups, oversized
}

// Execute packs items and submits the groups. With a concurrency of one the
// groups go out sequentially in order. Submission errors are recorded per
// group and never abort the remaining groups; only ctx cancellation stops
// the run early, in which case unsent groups count as failed.
func (e *Executor[Op]) Execute(ctx context.Context, items []Item[Op], submit SubmitFunc[Op]) *Result {
	groups, oversized := e.Pack(items)
	res := &Result{Groups: len(groups), Errors: make(map[int]error)}
	failed := make(map[int]bool, len(items))
	for _, idx := range oversized {
		failed[idx] = true
	}

	var mu sync.Mutex
	markFailed := func(group Group[Op], err error) {
		mu.Lock()
		defer mu.Unlock()
		res.Errors[group.Index] = err
		for _, idx := range group.Items {
			failed[idx] = true
		}
	}

	eg := errgroup.Group{}
	eg.SetLimit(e.concurrency)
	for _, group := range groups {
		group := group
		if err := ctx.Err(); err != nil {
			markFailed(group, err)
			continue
		}
		eg.Go(func() error {
			if err := submitSafe(ctx, submit, group); err != nil {
				markFailed(group, err)
			}
			return nil
		})
	}
	_ = eg.Wait()

	for idx, item := range items {
		if len(item.Ops) == 0 {
			continue
		}
		if failed[idx] {
			res.Failed = append(res.Failed, idx)
			continue
		}
		res.Succeeded = append(res.Succeeded, idx)
	}
	return res
}

func submitSafe[Op any](ctx context.Context, submit SubmitFunc[Op], group Group[Op]) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("submit group %d panic: %v", group.Index, r)
		}
	}()
	return submit(ctx, group)
}
