package engine

import (
	"errors"
	"testing"

	"webhook-bot/internal/model"
)

func mustEvent(t *testing.T, doc string) Value {
	t.Helper()
	v, err := ParseJSON([]byte(doc))
	if err != nil {
		t.Fatalf("parse event: %v", err)
	}
	return v
}

func TestParsePath_Forms(t *testing.T) {
	tests := []struct {
		raw   string
		want  string
		alias string
	}{
		{"user.age", "user.age", ""},
		{"user->age", "user.age", ""},
		{"$payload->user->age", "user.age", "$payload"},
		{"payload.items.0.name", "items.0.name", "payload"},
		{"  name  ", "name", ""},
		{"a -> b", "a.b", ""},
	}
	for _, tt := range tests {
		p, err := ParsePath(tt.raw)
		if err != nil {
			t.Fatalf("ParsePath(%q): %v", tt.raw, err)
		}
		if p.String() != tt.want {
			t.Fatalf("ParsePath(%q) = %q, want %q", tt.raw, p.String(), tt.want)
		}
		if p.Alias() != tt.alias {
			t.Fatalf("ParsePath(%q) alias = %q, want %q", tt.raw, p.Alias(), tt.alias)
		}
	}
}

func TestParsePath_Invalid(t *testing.T) {
	for _, raw := range []string{"", "   ", "a..b", "a->", ".a", "a->->b"} {
		if _, err := ParsePath(raw); !errors.Is(err, ErrInvalidPath) {
			t.Fatalf("ParsePath(%q) error = %v, want ErrInvalidPath", raw, err)
		}
	}
}

func TestParsePath_IndexSegments(t *testing.T) {
	p := MustParsePath("items.2.+1.-1")
	segs := p.Segments()
	if len(segs) != 4 {
		t.Fatalf("expected 4 segments, got %d", len(segs))
	}
	if !segs[1].IsIndex || segs[1].Index != 2 {
		t.Fatalf("expected index 2, got %+v", segs[1])
	}
	if segs[2].IsIndex || segs[3].IsIndex {
		t.Fatalf("signed segments must be keys: %+v %+v", segs[2], segs[3])
	}
}

func TestResolve_ExistingChain(t *testing.T) {
	event := mustEvent(t, `{"user":{"name":"Bo","age":20,"tags":["a","b"]},"ok":true,"none":null}`)

	tests := []struct {
		path string
		want string
	}{
		{"user.name", "Bo"},
		{"user->age", "20"},
		{"$payload->user->tags->1", "b"},
		{"payload.ok", "true"},
		{"user.tags", `["a","b"]`},
		{"none", ""},
	}
	for _, tt := range tests {
		v, ok := Resolve(event, tt.path)
		if !ok {
			t.Fatalf("Resolve(%q): not found", tt.path)
		}
		if v.Text() != tt.want {
			t.Fatalf("Resolve(%q) = %q, want %q", tt.path, v.Text(), tt.want)
		}
	}
}

func TestResolve_AbsentSegment(t *testing.T) {
	event := mustEvent(t, `{"user":{"name":"Bo","tags":["a"]}}`)
	for _, path := range []string{"user.email", "account.id", "user.tags.5", "user.tags.first", "user.name.first", ""} {
		v, ok := Resolve(event, path)
		if ok {
			t.Fatalf("Resolve(%q) found %v, want not found", path, v.Text())
		}
		if !v.IsNull() {
			t.Fatalf("Resolve(%q) returned non-null on absence", path)
		}
	}
}

func TestResolve_AliasKeyPresent(t *testing.T) {
	nested := mustEvent(t, `{"payload":{"age":20}}`)
	v, ok := Resolve(nested, "payload->age")
	if !ok || v.Text() != "20" {
		t.Fatalf("expected alias to descend into payload key, got %q %v", v.Text(), ok)
	}
	v, ok = Resolve(nested, "$payload->age")
	if !ok || v.Text() != "20" {
		t.Fatalf("expected $payload to descend into payload key, got %q %v", v.Text(), ok)
	}

	flat := mustEvent(t, `{"age":15}`)
	v, ok = Resolve(flat, "$payload->age")
	if !ok || v.Text() != "15" {
		t.Fatalf("expected alias to be stripped, got %q %v", v.Text(), ok)
	}
}

func TestResolve_AliasFallsBackToRoot(t *testing.T) {
	event := mustEvent(t, `{"payload":{"age":20},"items":[{"n":"x"}]}`)
	v, ok := Resolve(event, "$payload.items.0.n")
	if !ok || v.Text() != "x" {
		t.Fatalf("expected root fallback after payload key misses, got %q %v", v.Text(), ok)
	}
	v, ok = Resolve(event, "payload->age")
	if !ok || v.Text() != "20" {
		t.Fatalf("payload key should still win when it resolves, got %q %v", v.Text(), ok)
	}
	if _, ok := Resolve(event, "$payload.nothing"); ok {
		t.Fatal("path absent under both payload and root must be not found")
	}

	conds := CompileConditions([]model.Condition{{Field: "$payload.items.0.n", Operator: "==", Value: "x"}})
	matched, err := Matches(event, conds)
	if err != nil || !matched {
		t.Fatalf("condition on fallback path: matched=%v err=%v", matched, err)
	}
}

func TestResolve_CaseSensitiveKeys(t *testing.T) {
	event := mustEvent(t, `{"Name":"Bo"}`)
	if _, ok := Resolve(event, "name"); ok {
		t.Fatal("keys must be case-sensitive")
	}
}

func TestResolve_NumericMapKey(t *testing.T) {
	event := mustEvent(t, `{"codes":{"404":"missing"}}`)
	v, ok := Resolve(event, "codes.404")
	if !ok || v.Text() != "missing" {
		t.Fatalf("numeric segment should work as map key, got %q %v", v.Text(), ok)
	}
}
