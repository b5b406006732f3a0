package fonts

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

func TestBuiltinAliases(t *testing.T) {
	data, ok := Builtin(" Anton ")
	if !ok || !bytes.Equal(data, gobold.TTF) {
		t.Fatalf("Anton should resolve to the bold builtin")
	}
	data, ok = Builtin("Some Unknown Face")
	if ok {
		t.Fatalf("unknown family must not report a match")
	}
	if !bytes.Equal(data, goregular.TTF) {
		t.Fatalf("unknown family must fall back to the regular builtin")
	}
}

func TestFindInDirectory(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"BebasNeue-Regular.ttf", "notes.txt", "Oswald-Bold.otf"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	path, ok := Find(dir, "Bebas Neue")
	if !ok || filepath.Base(path) != "BebasNeue-Regular.ttf" {
		t.Fatalf("expected BebasNeue-Regular.ttf, got %q", path)
	}
	path, ok = Find(dir, "oswald")
	if !ok || filepath.Base(path) != "Oswald-Bold.otf" {
		t.Fatalf("expected prefix match on Oswald-Bold.otf, got %q", path)
	}
	if _, ok := Find(dir, "notes"); ok {
		t.Fatalf("non-font files must be ignored")
	}
}

func TestLoadPrefersDirectory(t *testing.T) {
	dir := t.TempDir()
	want := []byte("fake font bytes")
	if err := os.WriteFile(filepath.Join(dir, "Anton.ttf"), want, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, resolved, err := Load(dir, "Anton")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !bytes.Equal(data, want) || resolved != filepath.Join(dir, "Anton.ttf") {
		t.Fatalf("directory font must win, got %q", resolved)
	}

	_, resolved, err = Load("", "Nope")
	if err != nil || resolved != "builtin:go" {
		t.Fatalf("expected builtin fallback, got %q, %v", resolved, err)
	}
}
