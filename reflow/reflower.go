package reflow

import (
	"log/slog"
	"sync"

	"github.com/ByLCY/thumbsmith/layout"
	"github.com/ByLCY/thumbsmith/scene"
)

// Reflower watches the scene and keeps every element's height equal to its
// measured block height.
type Reflower struct {
	store     *scene.Store
	measurer  layout.Measurer
	scheduler *Scheduler
	logger    *slog.Logger

	mu          sync.Mutex
	keys        map[string]scene.LayoutKey
	lastVersion uint64
	sub         scene.Subscription
	started     bool
}

// New creates a reflower. Call Start to begin observing the store.
func New(store *scene.Store, m layout.Measurer, s *Scheduler, logger *slog.Logger) *Reflower {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reflower{
		store:     store,
		measurer:  m,
		scheduler: s,
		logger:    logger,
		keys:      map[string]scene.LayoutKey{},
	}
}

// Start subscribes to the store and schedules measurement for the current scene.
func (r *Reflower) Start() {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return
	}
	r.started = true
	r.mu.Unlock()

	r.sub = r.store.Subscribe(r.observe)
	r.observe(r.store.Snapshot())
}

// Close stops observing and drops pending measurements.
func (r *Reflower) Close() {
	r.sub.Cancel()
	r.scheduler.Stop()
}

// Flush 立即执行所有待重算的高度。
func (r *Reflower) Flush() {
	r.scheduler.Flush()
}

func (r *Reflower) observe(snap scene.Snapshot) {
	r.mu.Lock()
	if snap.Version != 0 && snap.Version <= r.lastVersion {
		r.mu.Unlock()
		return
	}
	r.lastVersion = snap.Version

	var changed []string
	alive := make(map[string]bool, len(snap.Elements))
	for _, el := range snap.Elements {
		alive[el.ID] = true
		key := el.LayoutKey()
		if prev, ok := r.keys[el.ID]; ok && prev == key {
			continue
		}
		r.keys[el.ID] = key
		changed = append(changed, el.ID)
	}
	var removed []string
	for id := range r.keys {
		if !alive[id] {
			delete(r.keys, id)
			removed = append(removed, id)
		}
	}
	r.mu.Unlock()

	for _, id := range removed {
		r.scheduler.Cancel(id)
	}
	for _, id := range changed {
		id := id
		r.scheduler.Schedule(id, func() { r.measure(id) })
	}
}

// measure 以执行时刻的元素状态为准测量，避免使用过期的属性。
func (r *Reflower) measure(id string) {
	el, ok := r.store.Element(id)
	if !ok {
		return
	}
	h, err := layout.MeasureHeight(r.measurer, el.Text, el.Font(), el.Width, el.LineHeight)
	if err != nil {
		r.logger.Warn("重算元素高度失败", "element_id", id, "error", err)
		return
	}
	if r.store.SetHeight(id, h) {
		r.logger.Debug("元素高度已更新", "element_id", id, "height", h)
	}
}
