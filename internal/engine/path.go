package engine

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidPath is returned by ParsePath for empty paths or empty segments.
var ErrInvalidPath = errors.New("invalid field path")

// rootAliases are leading segments that name the event itself.
var rootAliases = map[string]bool{"$payload": true, "payload": true}

// Segment is one step of a Path: a mapping key, and an index when the key
// is a non-negative integer.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

// Path is a parsed field reference such as "payload->user->age" or
// "$payload.items.0.name". Parse once, resolve many times.
type Path struct {
	raw      string
	alias    string
	segments []Segment
}

// ParsePath splits raw on "->" and "." and strips a leading root alias.
func ParsePath(raw string) (Path, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Path{}, fmt.Errorf("%w: empty", ErrInvalidPath)
	}

	parts := strings.Split(strings.ReplaceAll(trimmed, "->", "."), ".")
	p := Path{raw: raw}
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return Path{}, fmt.Errorf("%w: empty segment in %q", ErrInvalidPath, raw)
		}
		if i == 0 && rootAliases[part] {
			p.alias = part
			continue
		}
		seg := Segment{Key: part}
		if n, err := strconv.Atoi(part); err == nil && n >= 0 && part[0] != '+' {
			seg.Index = n
			seg.IsIndex = true
		}
		p.segments = append(p.segments, seg)
	}
	return p, nil
}

// MustParsePath is ParsePath for literals known to be valid.
func MustParsePath(raw string) Path {
	p, err := ParsePath(raw)
	if err != nil {
		panic(err)
	}
	return p
}

// Segments returns the segments after alias stripping.
func (p Path) Segments() []Segment { return p.segments }

// Alias returns the stripped root alias, or "".
func (p Path) Alias() string { return p.alias }

// Raw returns the path as written.
func (p Path) Raw() string { return p.raw }

// String returns the canonical dotted form without the alias.
func (p Path) String() string {
	keys := make([]string, len(p.segments))
	for i, s := range p.segments {
		keys[i] = s.Key
	}
	return strings.Join(keys, ".")
}

// Resolve walks the segments from root. The boolean is false when any
// segment is absent; absence is an outcome, not an error.
//
// A leading alias is tried as a real key first when the root mapping has
// one (so "payload->age" finds {"payload": {"age": 20}}). If that walk
// misses, the segments are resolved from the root.
func (p Path) Resolve(root Value) (Value, bool) {
	if p.alias != "" {
		for _, key := range []string{p.alias, strings.TrimPrefix(p.alias, "$")} {
			if inner, ok := root.Key(key); ok {
				if v, found := p.walk(inner); found {
					return v, true
				}
				break
			}
		}
	}
	return p.walk(root)
}

func (p Path) walk(cur Value) (Value, bool) {
	for _, seg := range p.segments {
		switch cur.Kind() {
		case KindMapping:
			next, ok := cur.Key(seg.Key)
			if !ok {
				return Null(), false
			}
			cur = next
		case KindSequence:
			if !seg.IsIndex {
				return Null(), false
			}
			next, ok := cur.Index(seg.Index)
			if !ok {
				return Null(), false
			}
			cur = next
		default:
			return Null(), false
		}
	}
	return cur, true
}

// Resolve parses raw and resolves it against root. An unparsable path
// resolves to not found.
func Resolve(root Value, raw string) (Value, bool) {
	p, err := ParsePath(raw)
	if err != nil {
		return Null(), false
	}
	return p.Resolve(root)
}
