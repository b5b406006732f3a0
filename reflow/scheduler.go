// Package reflow 负责在文字或排版属性变化后延迟重算元素高度。
// 每个元素 id 至多一个待执行任务，重新调度会取消之前的任务。
package reflow

import (
	"sync"
	"time"
)

// DefaultDelay 为默认的防抖窗口。
const DefaultDelay = 50 * time.Millisecond

type pending struct {
	timer *time.Timer
	fn    func()
	gen   uint64
}

// Scheduler runs keyed tasks after a fixed delay with cancel-and-restart
// semantics.
type Scheduler struct {
	mu      sync.Mutex
	delay   time.Duration
	pending map[string]*pending
	gen     uint64
	stopped bool
}

// NewScheduler creates a scheduler; non-positive delays fall back to DefaultDelay.
func NewScheduler(delay time.Duration) *Scheduler {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Scheduler{delay: delay, pending: map[string]*pending{}}
}

// Schedule 为 key 安排任务，已有的待执行任务会被取消。
func (s *Scheduler) Schedule(key string, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if p, ok := s.pending[key]; ok {
		p.timer.Stop()
	}
	s.gen++
	gen := s.gen
	p := &pending{fn: fn, gen: gen}
	p.timer = time.AfterFunc(s.delay, func() { s.fire(key, gen) })
	s.pending[key] = p
}

func (s *Scheduler) fire(key string, gen uint64) {
	s.mu.Lock()
	p, ok := s.pending[key]
	if !ok || p.gen != gen {
		// 已被取消或被更新的任务替换
		s.mu.Unlock()
		return
	}
	delete(s.pending, key)
	s.mu.Unlock()
	p.fn()
}

// Cancel drops the pending task for key.
func (s *Scheduler) Cancel(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.pending[key]; ok {
		p.timer.Stop()
		delete(s.pending, key)
	}
}

// Pending returns the number of tasks waiting to run.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Flush 立即同步执行所有待执行任务（例如导出前）。
func (s *Scheduler) Flush() {
	s.mu.Lock()
	tasks := make([]func(), 0, len(s.pending))
	for key, p := range s.pending {
		p.timer.Stop()
		tasks = append(tasks, p.fn)
		delete(s.pending, key)
	}
	s.mu.Unlock()
	for _, fn := range tasks {
		fn()
	}
}

// Stop cancels every pending task; later Schedule calls are ignored.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for key, p := range s.pending {
		p.timer.Stop()
		delete(s.pending, key)
	}
}
