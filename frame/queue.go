// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package frame collects the commands of one frame and runs them pass by
// pass.
//
// Commands are bucketed by the pass they report. Compute commands are
// dispatched first among the passes that draw, so their output textures are
// ready before any pass samples them.
package frame

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/gpgpu"
)

// Queue errors.
var (
	// ErrInvalidPass is returned by Add for commands reporting a pass
	// outside the known range.
	ErrInvalidPass = errors.New("frame: invalid pass")

	// ErrNotDispatchable is returned by Add for compute pass commands that
	// cannot be executed by a gpgpu.Engine.
	ErrNotDispatchable = errors.New("frame: compute pass command cannot be dispatched")
)

// Command is any command scheduled into a frame.
type Command interface {
	Pass() gpgpu.Pass
}

// Dispatcher is a command executed by a compute engine.
// *gpgpu.ComputeCommand implements Dispatcher.
type Dispatcher interface {
	Command
	Execute(engine gpgpu.Engine) error
}

// Queue holds the commands of a frame, bucketed by pass.
//
// Thread Safety: Queue is safe for concurrent use.
type Queue struct {
	mu      sync.Mutex
	buckets [gpgpu.NumberOfPasses][]Command

	// DebugCommandFilter, when set, is consulted before each command is
	// executed. Commands for which it returns false are skipped. Typical
	// filters select commands by their owner to isolate one producer.
	DebugCommandFilter func(cmd Command) bool
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Add schedules cmd into the bucket of its pass.
func (q *Queue) Add(cmd Command) error {
	if cmd == nil {
		return fmt.Errorf("%w: nil command", ErrInvalidPass)
	}
	pass := cmd.Pass()
	if !pass.Valid() {
		return fmt.Errorf("%w: %v", ErrInvalidPass, pass)
	}
	if pass == gpgpu.PassCompute {
		if _, ok := cmd.(Dispatcher); !ok {
			return fmt.Errorf("%w: %T", ErrNotDispatchable, cmd)
		}
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.buckets[pass] = append(q.buckets[pass], cmd)
	return nil
}

// Commands returns a copy of the commands queued for pass.
func (q *Queue) Commands(pass gpgpu.Pass) []Command {
	if !pass.Valid() {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Command(nil), q.buckets[pass]...)
}

// Len returns the number of queued commands across all passes.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, b := range q.buckets {
		n += len(b)
	}
	return n
}

// Reset removes every queued command.
func (q *Queue) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.buckets {
		q.buckets[i] = nil
	}
}

// ExecuteCompute dispatches the compute bucket to engine in insertion order.
//
// A failing command does not stop the others; all errors are joined. After
// the run the bucket keeps only persistent compute commands, so they are
// dispatched again next frame. Commands skipped by DebugCommandFilter are
// removed like executed ones unless they persist.
func (q *Queue) ExecuteCompute(engine gpgpu.Engine) error {
	q.mu.Lock()
	cmds := q.buckets[gpgpu.PassCompute]
	q.buckets[gpgpu.PassCompute] = nil
	filter := q.DebugCommandFilter
	q.mu.Unlock()

	var (
		errs []error
		keep []Command
	)
	for i, cmd := range cmds {
		if persists(cmd) {
			keep = append(keep, cmd)
		}
		if filter != nil && !filter(cmd) {
			continue
		}
		if err := cmd.(Dispatcher).Execute(engine); err != nil {
			errs = append(errs, fmt.Errorf("frame: compute command %d (owner %v): %w", i, owner(cmd), err))
		}
	}

	if len(keep) > 0 {
		q.mu.Lock()
		// Commands added while the bucket was running go after the kept ones.
		q.buckets[gpgpu.PassCompute] = append(keep, q.buckets[gpgpu.PassCompute]...)
		q.mu.Unlock()
	}
	return errors.Join(errs...)
}

func persists(cmd Command) bool {
	c, ok := cmd.(*gpgpu.ComputeCommand)
	return ok && c.Persists
}

func owner(cmd Command) any {
	if c, ok := cmd.(*gpgpu.ComputeCommand); ok {
		return c.Owner
	}
	return nil
}
