package reflow

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/ByLCY/thumbsmith/layout"
	"github.com/ByLCY/thumbsmith/scene"
)

// countingMeasurer 使用等宽字体规则折行并统计调用次数。
type countingMeasurer struct {
	mu    sync.Mutex
	calls int
}

func (m *countingMeasurer) MeasureLines(text string, font layout.Font, maxWidth float64) ([]layout.Line, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	width := func(s string) float64 { return float64(utf8.RuneCountInString(s)) * font.Size * 0.5 }
	return layout.Wrap(text, maxWidth, width), nil
}

func (m *countingMeasurer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func TestSchedulerCancelAndRestart(t *testing.T) {
	s := NewScheduler(time.Hour)
	var runs []int
	for i := 0; i < 5; i++ {
		i := i
		s.Schedule("el", func() { runs = append(runs, i) })
	}
	if s.Pending() != 1 {
		t.Fatalf("expected a single pending task, got %d", s.Pending())
	}
	s.Flush()
	if len(runs) != 1 || runs[0] != 4 {
		t.Fatalf("only the last task must run, got %v", runs)
	}
}

func TestSchedulerFiresAfterDelay(t *testing.T) {
	s := NewScheduler(5 * time.Millisecond)
	var fired atomic.Int32
	s.Schedule("a", func() { fired.Add(1) })
	s.Schedule("b", func() { fired.Add(1) })
	deadline := time.Now().Add(2 * time.Second)
	for fired.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	if fired.Load() != 2 {
		t.Fatalf("expected both tasks to fire, got %d", fired.Load())
	}
}

func TestSchedulerCancelAndStop(t *testing.T) {
	s := NewScheduler(time.Hour)
	ran := false
	s.Schedule("a", func() { ran = true })
	s.Cancel("a")
	s.Flush()
	if ran {
		t.Fatalf("cancelled task ran")
	}
	s.Stop()
	s.Schedule("b", func() { ran = true })
	s.Flush()
	if ran {
		t.Fatalf("task scheduled after Stop ran")
	}
}

func TestReflowerUpdatesHeightOnce(t *testing.T) {
	store := scene.NewStore()
	m := &countingMeasurer{}
	r := New(store, m, NewScheduler(time.Hour), nil)
	r.Start()
	defer r.Close()

	el := scene.DefaultElement()
	el.Text = "HELLO WORLD"
	el.FontSize = 20
	el.LineHeight = 1.5
	el.Width = 100
	id := store.AddElement(el)

	// 连续编辑只触发最后一次测量
	for _, txt := range []string{"HELLO", "HELLO WO", "HELLO WORLD"} {
		txt := txt
		store.UpdateActive(scene.Patch{Text: &txt})
	}
	r.Flush()

	if m.Calls() != 1 {
		t.Fatalf("expected one measurement, got %d", m.Calls())
	}
	got, _ := store.Element(id)
	// 每个字符 10px：HELLO 与 WORLD 各 50px，合在一起 110px > 100px，折成两行
	want := layout.BlockHeight(2, 20, 1.5)
	if got.Height != want {
		t.Fatalf("expected height %g, got %g", want, got.Height)
	}
}

func TestReflowerIgnoresNonLayoutChanges(t *testing.T) {
	store := scene.NewStore()
	m := &countingMeasurer{}
	r := New(store, m, NewScheduler(time.Hour), nil)
	r.Start()
	defer r.Close()

	store.AddElement(scene.DefaultElement())
	r.Flush()
	before := m.Calls()

	color := "#FF0000"
	store.UpdateActive(scene.Patch{Color: &color})
	r.Flush()
	if m.Calls() != before {
		t.Fatalf("colour change must not trigger measurement")
	}
}

func TestReflowerDropsRemovedElements(t *testing.T) {
	store := scene.NewStore()
	m := &countingMeasurer{}
	s := NewScheduler(time.Hour)
	r := New(store, m, s, nil)
	r.Start()
	defer r.Close()

	store.AddElement(scene.DefaultElement())
	store.RemoveActive()
	if s.Pending() != 0 {
		t.Fatalf("pending measurement for removed element was not cancelled")
	}
}
