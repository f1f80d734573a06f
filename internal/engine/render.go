package engine

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"

	"webhook-bot/internal/model"
)

// placeholderPattern matches {{ path }} tokens. Tokens whose inner text is
// not a valid path are left untouched.
var placeholderPattern = regexp.MustCompile(`\{\{\s*([^{}]+?)\s*\}\}`)

// RenderErrorKind classifies a render failure.
type RenderErrorKind string

const (
	MalformedTemplate      RenderErrorKind = "malformed_template"
	UnsupportedContentType RenderErrorKind = "unsupported_content_type"
)

// RenderError is returned when content cannot be rendered at all.
type RenderError struct {
	Kind RenderErrorKind
	Err  error
}

func (e *RenderError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Rendered is the output of Render. Missing lists placeholders that did not
// resolve against the event (rendered as ""). Undeclared lists placeholders
// absent from the params document, when params declares any names.
type Rendered struct {
	ContentType model.ContentType `json:"content_type"`
	Content     string            `json:"content"`
	Missing     []string          `json:"missing,omitempty"`
	Undeclared  []string          `json:"undeclared,omitempty"`
}

// Render substitutes placeholders in content with values resolved from
// event. For blocks, content must be a JSON object or array; every string
// leaf is substituted and the document structure is kept.
func Render(contentType model.ContentType, content, params string, event Value) (*Rendered, error) {
	r := &renderer{
		event:    event,
		declared: DeclaredParams(params),
		seen:     map[string]bool{},
	}

	out := &Rendered{ContentType: contentType}
	switch contentType {
	case model.ContentText, "":
		out.ContentType = model.ContentText
		out.Content = r.substitute(content)
	case model.ContentBlocks:
		doc, err := decodeDocument(content)
		if err != nil {
			return nil, &RenderError{Kind: MalformedTemplate, Err: err}
		}
		switch doc.(type) {
		case map[string]any, []any:
		default:
			return nil, &RenderError{Kind: MalformedTemplate, Err: fmt.Errorf("blocks must be a JSON object or array")}
		}
		b, err := marshalNoEscape(r.walk(doc))
		if err != nil {
			return nil, &RenderError{Kind: MalformedTemplate, Err: err}
		}
		out.Content = string(b)
	default:
		return nil, &RenderError{Kind: UnsupportedContentType, Err: fmt.Errorf("%q", string(contentType))}
	}

	out.Missing = r.missing
	out.Undeclared = r.undeclared
	return out, nil
}

type renderer struct {
	event      Value
	declared   map[string]bool
	seen       map[string]bool
	missing    []string
	undeclared []string
}

func (r *renderer) substitute(s string) string {
	return placeholderPattern.ReplaceAllStringFunc(s, func(token string) string {
		inner := placeholderPattern.FindStringSubmatch(token)[1]
		p, err := ParsePath(inner)
		if err != nil {
			return token
		}
		name := p.String()
		first := !r.seen[name]
		r.seen[name] = true
		if first && len(r.declared) > 0 && !r.isDeclared(p) {
			r.undeclared = append(r.undeclared, name)
		}

		v, ok := p.Resolve(r.event)
		if !ok {
			if first {
				r.missing = append(r.missing, name)
			}
			return ""
		}
		return v.Text()
	})
}

func (r *renderer) isDeclared(p Path) bool {
	name := p.String()
	if name == "" || r.declared[name] {
		return true
	}
	if alias := strings.TrimPrefix(p.Alias(), "$"); alias != "" {
		return r.declared[alias+"."+name]
	}
	return false
}

func (r *renderer) walk(node any) any {
	switch n := node.(type) {
	case string:
		return r.substitute(n)
	case []any:
		out := make([]any, len(n))
		for i, item := range n {
			out[i] = r.walk(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(n))
		for k, item := range n {
			out[k] = r.walk(item)
		}
		return out
	default:
		return n
	}
}

// DeclaredParams returns every path (intermediate and leaf) of the params
// JSON document in canonical dotted form. Empty or invalid params declare
// nothing.
func DeclaredParams(params string) map[string]bool {
	declared := map[string]bool{}
	if strings.TrimSpace(params) == "" {
		return declared
	}
	doc, err := ParseJSON([]byte(params))
	if err != nil {
		return declared
	}
	collectPaths(doc, "", declared)
	return declared
}

func collectPaths(v Value, prefix string, into map[string]bool) {
	join := func(k string) string {
		if prefix == "" {
			return k
		}
		return prefix + "." + k
	}
	switch v.Kind() {
	case KindMapping:
		for _, k := range v.Keys() {
			name := join(k)
			into[name] = true
			child, _ := v.Key(k)
			collectPaths(child, name, into)
		}
	case KindSequence:
		for i, item := range v.Items() {
			name := join(fmt.Sprint(i))
			into[name] = true
			collectPaths(item, name, into)
		}
	}
}

// Placeholders lists the distinct placeholder names used in content, in
// order of first appearance.
func Placeholders(content string) []string {
	var names []string
	seen := map[string]bool{}
	for _, m := range placeholderPattern.FindAllStringSubmatch(content, -1) {
		p, err := ParsePath(m[1])
		if err != nil {
			continue
		}
		if name := p.String(); !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// decodeDocument decodes exactly one JSON value from s. Anything after it
// other than whitespace is an error.
func decodeDocument(s string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("trailing data after document")
	}
	return doc, nil
}

// isJSONDocument reports whether s holds a single JSON object or array.
func isJSONDocument(s string) bool {
	doc, err := decodeDocument(s)
	if err != nil {
		return false
	}
	switch doc.(type) {
	case map[string]any, []any:
		return true
	}
	return false
}
