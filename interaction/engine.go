// Package interaction 实现指针驱动的拖拽与六手柄缩放状态机。
// 每个会话在 pointer-down 时开始、pointer-up 时结束，同一时刻最多一个会话。
package interaction

import (
	"errors"
	"sync"

	"github.com/ByLCY/thumbsmith/geometry"
	"github.com/ByLCY/thumbsmith/scene"
)

var (
	ErrSessionActive  = errors.New("interaction: 已有进行中的交互会话")
	ErrUnknownElement = errors.New("interaction: 元素不存在")
)

// State of the engine.
type State int

const (
	Idle State = iota
	Dragging
	Resizing
)

func (s State) String() string {
	switch s {
	case Dragging:
		return "dragging"
	case Resizing:
		return "resizing"
	default:
		return "idle"
	}
}

type session struct {
	kind         State
	elementID    string
	handle       geometry.Handle
	startPointer geometry.Point
	start        ResizeStart
	sub          scene.Subscription
}

// Engine translates pointer events into scene mutations.
type Engine struct {
	mu      sync.Mutex
	store   *scene.Store
	session *session
}

// NewEngine creates an idle engine bound to store.
func NewEngine(store *scene.Store) *Engine {
	return &Engine{store: store}
}

// State returns the current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return Idle
	}
	return e.session.kind
}

// ElementID returns the target of the running session.
func (e *Engine) ElementID() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return "", false
	}
	return e.session.elementID, true
}

// BeginDrag starts a drag session on element id at pointer p.
func (e *Engine) BeginDrag(id string, p geometry.Point) error {
	_, err := e.begin(Dragging, id, "", p)
	return err
}

// BeginResize starts a resize session and makes the element active.
func (e *Engine) BeginResize(id string, h geometry.Handle, p geometry.Point) error {
	s, err := e.begin(Resizing, id, h, p)
	if err != nil {
		return err
	}
	if !e.store.SetActive(id) {
		e.abandon(s)
		return ErrUnknownElement
	}
	return nil
}

func (e *Engine) begin(kind State, id string, h geometry.Handle, p geometry.Point) (*session, error) {
	s := &session{kind: kind, elementID: id, handle: h, startPointer: p}
	// 先订阅再登记会话：目标元素被删除时自动放弃会话并解除监听
	s.sub = e.store.Subscribe(func(snap scene.Snapshot) {
		if _, ok := snap.Element(s.elementID); !ok {
			e.abandon(s)
		}
	})

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != nil {
		s.sub.Cancel()
		return nil, ErrSessionActive
	}
	el, ok := e.store.Element(id)
	if !ok {
		s.sub.Cancel()
		return nil, ErrUnknownElement
	}
	s.start = ResizeStart{
		FontSize: el.FontSize,
		Width:    el.Width,
		Rotation: el.Rotation,
		Position: el.Position,
	}
	e.session = s
	return s, nil
}

// Move advances the running session to pointer p. It reports whether the
// scene was changed; moves without a session or for a vanished element are
// ignored.
func (e *Engine) Move(p geometry.Point) bool {
	e.mu.Lock()
	s := e.session
	e.mu.Unlock()
	if s == nil {
		return false
	}

	var patch scene.Patch
	switch s.kind {
	case Dragging:
		pos := ApplyDrag(s.start.Position, s.startPointer, p)
		patch.Position = &pos
	case Resizing:
		d := p.Sub(s.startPointer)
		res := ApplyResize(s.start, s.handle, d.X, d.Y)
		if !res.Changed {
			return false
		}
		patch.FontSize = &res.FontSize
		patch.Width = &res.Width
		patch.Position = &res.Position
	}

	if _, ok := e.store.Element(s.elementID); !ok {
		e.abandon(s)
		return false
	}
	return e.store.UpdateByID(s.elementID, patch)
}

// End terminates the running session, if any.
func (e *Engine) End() {
	e.mu.Lock()
	s := e.session
	e.mu.Unlock()
	if s != nil {
		e.abandon(s)
	}
}

// abandon 结束指定会话并取消其场景订阅；会话已被替换或结束时不做任何事。
func (e *Engine) abandon(s *session) {
	e.mu.Lock()
	if e.session != s {
		e.mu.Unlock()
		return
	}
	e.session = nil
	e.mu.Unlock()
	s.sub.Cancel()
}
