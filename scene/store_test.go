package scene

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ByLCY/thumbsmith/geometry"
)

func newTestStore() *Store {
	s := NewStore()
	n := 0
	s.newID = func() string {
		n++
		return fmt.Sprintf("el-%d", n)
	}
	return s
}

func ptr[T any](v T) *T { return &v }

func TestAddElementBecomesActive(t *testing.T) {
	s := newTestStore()
	id1 := s.AddElement(DefaultElement())
	id2 := s.AddElement(DefaultElement())
	snap := s.Snapshot()
	if id1 == id2 {
		t.Fatalf("ids must be unique")
	}
	if snap.ActiveID != id2 {
		t.Fatalf("expected %s active, got %s", id2, snap.ActiveID)
	}
	if len(snap.Elements) != 2 || snap.Elements[1].ID != id2 {
		t.Fatalf("new element must be appended on top: %+v", snap.Elements)
	}
}

func TestSnapshotsAreImmutable(t *testing.T) {
	s := newTestStore()
	s.AddElement(DefaultElement())
	before := s.Snapshot()
	s.UpdateActive(Patch{Text: ptr("CHANGED")})
	after := s.Snapshot()
	if before.Elements[0].Text != "NOVO TEXTO" {
		t.Fatalf("previous snapshot was mutated: %q", before.Elements[0].Text)
	}
	if after.Elements[0].Text != "CHANGED" {
		t.Fatalf("update not applied")
	}
	if after.Version <= before.Version {
		t.Fatalf("version must increase: %d -> %d", before.Version, after.Version)
	}
}

func TestUpdateActiveWithoutSelectionIsNoop(t *testing.T) {
	s := newTestStore()
	s.AddElement(DefaultElement())
	s.SetActive("")
	v := s.Snapshot().Version
	if s.UpdateActive(Patch{Text: ptr("X")}) {
		t.Fatalf("expected no-op without active element")
	}
	if s.Snapshot().Version != v {
		t.Fatalf("no-op must not publish a snapshot")
	}
}

func TestUpdateActiveKeepsHeightAndFloors(t *testing.T) {
	s := newTestStore()
	id := s.AddElement(DefaultElement())
	s.SetHeight(id, 123)
	s.UpdateActive(Patch{FontSize: ptr(2.0), Width: ptr(10.0)})
	el, _ := s.Element(id)
	if el.Height != 123 {
		t.Fatalf("height must only change through SetHeight, got %g", el.Height)
	}
	if el.FontSize != MinFontSize || el.Width != MinWidth {
		t.Fatalf("floors not applied: fontSize=%g width=%g", el.FontSize, el.Width)
	}
}

func TestRemoveActive(t *testing.T) {
	s := newTestStore()
	a := s.AddElement(DefaultElement())
	b := s.AddElement(DefaultElement())
	if !s.RemoveActive() {
		t.Fatalf("expected removal")
	}
	snap := s.Snapshot()
	if snap.ActiveID != "" || len(snap.Elements) != 1 || snap.Elements[0].ID != a {
		t.Fatalf("unexpected scene after removing %s: %+v", b, snap)
	}
	if s.RemoveActive() {
		t.Fatalf("nothing active, removal must be a no-op")
	}
}

func TestSetActiveRejectsUnknown(t *testing.T) {
	s := newTestStore()
	s.AddElement(DefaultElement())
	if s.SetActive("missing") {
		t.Fatalf("unknown id accepted")
	}
	if !s.SetActive("") {
		t.Fatalf("clearing selection must succeed")
	}
}

func TestReplaceAllReassignsDuplicateIDs(t *testing.T) {
	s := newTestStore()
	s.AddElement(DefaultElement())
	a := DefaultElement()
	a.ID = "same"
	b := DefaultElement()
	b.ID = "same"
	c := DefaultElement()
	s.ReplaceAll([]TextElement{a, b, c})
	snap := s.Snapshot()
	if len(snap.Elements) != 3 {
		t.Fatalf("expected wholesale replacement, got %d elements", len(snap.Elements))
	}
	seen := map[string]bool{}
	for _, e := range snap.Elements {
		if e.ID == "" || seen[e.ID] {
			t.Fatalf("duplicate or empty id %q", e.ID)
		}
		seen[e.ID] = true
	}
	if snap.ActiveID != "" {
		t.Fatalf("replacement must clear selection")
	}
}

func TestSubscribeAndCancel(t *testing.T) {
	s := newTestStore()
	var got []uint64
	sub := s.Subscribe(func(snap Snapshot) { got = append(got, snap.Version) })
	s.AddElement(DefaultElement())
	s.UpdateActive(Patch{Rotation: ptr(10.0)})
	sub.Cancel()
	sub.Cancel()
	s.Reset()
	if len(got) != 2 || got[0] >= got[1] {
		t.Fatalf("unexpected notifications %v", got)
	}
}

func TestHitTestPrefersTopmost(t *testing.T) {
	s := newTestStore()
	base := DefaultElement()
	base.Position = geometry.Point{X: 0, Y: 0}
	base.Width, base.Height = 200, 100
	bottom := s.AddElement(base)
	top := s.AddElement(base)
	id, ok := s.Snapshot().HitTest(geometry.Point{X: 10, Y: 10})
	if !ok || id != top {
		t.Fatalf("expected top element %s, got %s (bottom %s)", top, id, bottom)
	}
	if _, ok := s.Snapshot().HitTest(geometry.Point{X: 500, Y: 500}); ok {
		t.Fatalf("expected miss")
	}
}

func TestParseColor(t *testing.T) {
	cases := map[string]color.NRGBA{
		"#fff":            {R: 255, G: 255, B: 255, A: 255},
		"#FF000080":       {R: 255, A: 128},
		"rgba(0,0,0,0.5)": {A: 128},
		"rgb(10, 20, 30)": {R: 10, G: 20, B: 30, A: 255},
		"white":           {R: 255, G: 255, B: 255, A: 255},
		" #00ff00 ":       {G: 255, A: 255},
	}
	for in, want := range cases {
		got, err := ParseColor(in)
		if err != nil || got != want {
			t.Fatalf("ParseColor(%q) = %+v err=%v, want %+v", in, got, err, want)
		}
	}
	for _, bad := range []string{"", "#12", "rgb(1,2)", "blurple"} {
		if _, err := ParseColor(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
	if got := NormalizeColor("#abc"); got != "#AABBCC" {
		t.Fatalf("unexpected normalized color %s", got)
	}
}

func TestWriteDebugJSON(t *testing.T) {
	s := newTestStore()
	s.AddElement(DefaultElement())
	path := filepath.Join(t.TempDir(), "scene.json")
	if err := WriteDebugJSON(s.Snapshot(), path); err != nil {
		t.Fatalf("write debug: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read debug: %v", err)
	}
	if !strings.Contains(string(data), `"fontSize": 80`) {
		t.Fatalf("debug JSON missing camelCase fields: %s", data)
	}
}
