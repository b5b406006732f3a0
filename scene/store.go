package scene

import (
	"sync"

	"github.com/google/uuid"

	"github.com/ByLCY/thumbsmith/geometry"
)

// Snapshot is an immutable view of the scene. Elements are ordered by
// z-order: the last element is drawn on top.
type Snapshot struct {
	Elements []TextElement `json:"elements"`
	ActiveID string        `json:"activeId"`
	Version  uint64        `json:"version"`
}

// Active returns the selected element, if any.
func (s Snapshot) Active() (TextElement, bool) {
	if s.ActiveID == "" {
		return TextElement{}, false
	}
	return s.Element(s.ActiveID)
}

// Element 按 id 查找元素。
func (s Snapshot) Element(id string) (TextElement, bool) {
	if i := s.indexOf(id); i >= 0 {
		return s.Elements[i], true
	}
	return TextElement{}, false
}

// HitTest 返回覆盖 p 的最上层元素。
func (s Snapshot) HitTest(p geometry.Point) (string, bool) {
	for i := len(s.Elements) - 1; i >= 0; i-- {
		if s.Elements[i].Contains(p) {
			return s.Elements[i].ID, true
		}
	}
	return "", false
}

func (s Snapshot) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.Elements {
		if s.Elements[i].ID == id {
			return i
		}
	}
	return -1
}

// Observer receives every published snapshot. Observers may be called from
// different goroutines; compare Version to drop stale deliveries.
type Observer func(Snapshot)

// Subscription 用于取消订阅。
type Subscription struct {
	id    uint64
	store *Store
}

// Cancel unregisters the observer. Calling it more than once is harmless.
func (s Subscription) Cancel() {
	if s.store == nil {
		return
	}
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	for i, o := range s.store.observers {
		if o.id == s.id {
			s.store.observers = append(s.store.observers[:i:i], s.store.observers[i+1:]...)
			return
		}
	}
}

type observerEntry struct {
	id uint64
	fn Observer
}

// Store owns the scene and serialises its mutations.
type Store struct {
	mu        sync.Mutex
	snap      Snapshot
	observers []observerEntry
	nextObs   uint64
	newID     func() string
}

// NewStore creates an empty scene.
func NewStore() *Store {
	return &Store{newID: uuid.NewString}
}

// Snapshot returns the current scene.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Element returns the current state of element id.
func (s *Store) Element(id string) (TextElement, bool) {
	return s.Snapshot().Element(id)
}

// Subscribe registers fn for future snapshots.
func (s *Store) Subscribe(fn Observer) Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextObs++
	s.observers = append(s.observers, observerEntry{id: s.nextObs, fn: fn})
	return Subscription{id: s.nextObs, store: s}
}

// AddElement 追加一个元素并将其设为活动元素，返回分配的 id。
func (s *Store) AddElement(defaults TextElement) string {
	var id string
	s.mutate(func(cur Snapshot) (Snapshot, bool) {
		el := clampFloors(defaults)
		el.ID = s.uniqueID(cur, "")
		id = el.ID
		next := cur.withElements(append(cloneElements(cur.Elements), el))
		next.ActiveID = id
		return next, true
	})
	return id
}

// RemoveActive deletes the active element, if any.
func (s *Store) RemoveActive() bool {
	removed := false
	s.mutate(func(cur Snapshot) (Snapshot, bool) {
		i := cur.indexOf(cur.ActiveID)
		if i < 0 {
			return cur, false
		}
		els := make([]TextElement, 0, len(cur.Elements)-1)
		els = append(els, cur.Elements[:i]...)
		els = append(els, cur.Elements[i+1:]...)
		next := cur.withElements(els)
		next.ActiveID = ""
		removed = true
		return next, true
	})
	return removed
}

// UpdateActive 把 patch 合并进活动元素；没有活动元素时不做任何事。
func (s *Store) UpdateActive(p Patch) bool {
	updated := false
	s.mutate(func(cur Snapshot) (Snapshot, bool) {
		next, ok := cur.patched(cur.ActiveID, p)
		updated = ok
		return next, ok
	})
	return updated
}

// UpdateByID merges p into element id. It returns false when id is unknown
// or the patch changes nothing.
func (s *Store) UpdateByID(id string, p Patch) bool {
	updated := false
	s.mutate(func(cur Snapshot) (Snapshot, bool) {
		next, ok := cur.patched(id, p)
		updated = ok
		return next, ok
	})
	return updated
}

// SetHeight 只供高度重算流程调用。
func (s *Store) SetHeight(id string, h float64) bool {
	updated := false
	s.mutate(func(cur Snapshot) (Snapshot, bool) {
		i := cur.indexOf(id)
		if i < 0 || cur.Elements[i].Height == h {
			return cur, false
		}
		els := cloneElements(cur.Elements)
		els[i].Height = h
		updated = true
		return cur.withElements(els), true
	})
	return updated
}

// SetActive selects id, or clears the selection when id is empty.
// Unknown ids are rejected.
func (s *Store) SetActive(id string) bool {
	ok := false
	s.mutate(func(cur Snapshot) (Snapshot, bool) {
		if id != "" && cur.indexOf(id) < 0 {
			return cur, false
		}
		ok = true
		if cur.ActiveID == id {
			return cur, false
		}
		next := cur.withElements(cur.Elements)
		next.ActiveID = id
		return next, true
	})
	return ok
}

// ReplaceAll 整体替换场景（新底图生成时使用），不做合并。
// 空或重复的 id 会被重新分配，选中状态被清空。
func (s *Store) ReplaceAll(elements []TextElement) {
	s.mutate(func(cur Snapshot) (Snapshot, bool) {
		next := Snapshot{Version: cur.Version}
		els := make([]TextElement, 0, len(elements))
		for _, e := range elements {
			e = clampFloors(e)
			tmp := Snapshot{Elements: els}
			if e.ID == "" || tmp.indexOf(e.ID) >= 0 {
				e.ID = s.uniqueID(tmp, "")
			}
			els = append(els, e)
		}
		next.Elements = els
		return next, true
	})
}

// Reset empties the scene.
func (s *Store) Reset() {
	s.mutate(func(cur Snapshot) (Snapshot, bool) {
		return Snapshot{Version: cur.Version}, true
	})
}

func (s *Store) mutate(fn func(cur Snapshot) (Snapshot, bool)) {
	s.mu.Lock()
	next, changed := fn(s.snap)
	if !changed {
		s.mu.Unlock()
		return
	}
	next.Version = s.snap.Version + 1
	s.snap = next
	observers := make([]observerEntry, len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()

	for _, o := range observers {
		o.fn(next)
	}
}

func (s *Store) uniqueID(cur Snapshot, hint string) string {
	id := hint
	for id == "" || cur.indexOf(id) >= 0 {
		id = s.newID()
	}
	return id
}

func (s Snapshot) withElements(els []TextElement) Snapshot {
	return Snapshot{Elements: els, ActiveID: s.ActiveID, Version: s.Version}
}

func (s Snapshot) patched(id string, p Patch) (Snapshot, bool) {
	i := s.indexOf(id)
	if i < 0 {
		return s, false
	}
	els := cloneElements(s.Elements)
	next := p.Apply(els[i])
	next.ID = els[i].ID
	next.Height = els[i].Height
	if next == els[i] {
		return s, false
	}
	els[i] = next
	return s.withElements(els), true
}

func cloneElements(src []TextElement) []TextElement {
	out := make([]TextElement, len(src), len(src)+1)
	copy(out, src)
	return out
}
