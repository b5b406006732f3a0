package binding

import (
	"encoding/json"
	"testing"
)

func TestInterpolate(t *testing.T) {
	var data any
	raw := `{"headline":"  Nunca mais  ","keywords":["boss","final"],"meta":{"channel":"Gamer"}}`
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	cases := []struct{ in, want string }{
		{"${headline|trim|upper}!", "NUNCA MAIS!"},
		{"${keywords[1]|upper}", "FINAL"},
		{"by ${meta.channel|lower}", "by gamer"},
		{"${missing.path}", "${missing.path}"},
		{"${keywords[9]}", "${keywords[9]}"},
		{"${headline|shout}", "${headline|shout}"},
		{"plain text", "plain text"},
		{"${ meta.channel }-${keywords[0]}", "Gamer-boss"},
	}
	for _, c := range cases {
		if got := Interpolate(c.in, data); got != c.want {
			t.Fatalf("Interpolate(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestInterpolateWithoutData(t *testing.T) {
	if got := Interpolate("${headline}", nil); got != "${headline}" {
		t.Fatalf("expected placeholder to be kept, got %q", got)
	}
}

func TestResolveStringCollections(t *testing.T) {
	data := map[string]any{"tags": []string{"a", "b"}, "labels": map[string]string{"x": "y"}}
	if v, ok := Resolve(data, "tags[1]"); !ok || v != "b" {
		t.Fatalf("expected b, got %v", v)
	}
	if v, ok := Resolve(data, "labels.x"); !ok || v != "y" {
		t.Fatalf("expected y, got %v", v)
	}
}
