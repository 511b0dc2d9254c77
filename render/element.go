// Package render models the host's rendered output tree at the
// interface the engine needs: element creation, child mutation, and
// child-list observation for detachment detection.
package render

import (
	"html"
	"sort"
	"strings"
	"sync"
)

// ChildListFunc is invoked after a child-list mutation on the observed
// element, with the nodes removed by that mutation (possibly empty for
// pure insertions).
type ChildListFunc func(removed []*Element)

// Element is one node of an output tree. The engine mounts script
// output into elements; the host owns their lifetime.
type Element struct {
	Tag string

	mu        sync.Mutex
	text      string
	attrs     map[string]string
	classes   []string
	parent    *Element
	children  []*Element
	observers map[int]ChildListFunc
	nextObs   int
}

// NewElement creates a detached element with the given tag.
func NewElement(tag string) *Element {
	return &Element{Tag: tag}
}

// SetText replaces the element's text content and returns the element.
func (e *Element) SetText(text string) *Element {
	e.mu.Lock()
	e.text = text
	e.mu.Unlock()
	return e
}

// Text returns the element's own text content (not descendants').
func (e *Element) Text() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.text
}

// SetAttr sets an attribute and returns the element.
func (e *Element) SetAttr(name, value string) *Element {
	e.mu.Lock()
	if e.attrs == nil {
		e.attrs = make(map[string]string)
	}
	e.attrs[name] = value
	e.mu.Unlock()
	return e
}

// Attr returns the named attribute, or "" if unset.
func (e *Element) Attr(name string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.attrs[name]
}

// AddClass appends a class name and returns the element.
func (e *Element) AddClass(name string) *Element {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, c := range e.classes {
		if c == name {
			return e
		}
	}
	e.classes = append(e.classes, name)
	return e
}

// HasClass reports whether the element carries the class name.
func (e *Element) HasClass(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, c := range e.classes {
		if c == name {
			return true
		}
	}
	return false
}

// Parent returns the element's current parent, or nil if detached.
func (e *Element) Parent() *Element {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.parent
}

// Children returns a snapshot of the element's children.
func (e *Element) Children() []*Element {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*Element, len(e.children))
	copy(out, e.children)
	return out
}

// AppendChild attaches child as the last child of e, detaching it from
// any previous parent first. Returns the child.
func (e *Element) AppendChild(child *Element) *Element {
	if prev := child.Parent(); prev != nil {
		prev.RemoveChild(child)
	}

	e.mu.Lock()
	e.children = append(e.children, child)
	obs := e.snapshotObserversLocked()
	e.mu.Unlock()

	child.mu.Lock()
	child.parent = e
	child.mu.Unlock()

	notify(obs, nil)
	return child
}

// RemoveChild detaches child from e. A no-op if child is not a direct
// child. Child-list observers see the removed node.
func (e *Element) RemoveChild(child *Element) {
	e.mu.Lock()
	idx := -1
	for i, c := range e.children {
		if c == child {
			idx = i
			break
		}
	}
	if idx < 0 {
		e.mu.Unlock()
		return
	}
	e.children = append(e.children[:idx], e.children[idx+1:]...)
	obs := e.snapshotObserversLocked()
	e.mu.Unlock()

	child.mu.Lock()
	child.parent = nil
	child.mu.Unlock()

	notify(obs, []*Element{child})
}

// Empty removes all children. Observers see every removed node in one
// notification.
func (e *Element) Empty() {
	e.mu.Lock()
	removed := e.children
	e.children = nil
	obs := e.snapshotObserversLocked()
	e.mu.Unlock()

	for _, c := range removed {
		c.mu.Lock()
		c.parent = nil
		c.mu.Unlock()
	}
	if len(removed) > 0 {
		notify(obs, removed)
	}
}

// Contains reports whether target is e or a descendant of e.
func (e *Element) Contains(target *Element) bool {
	if e == target {
		return true
	}
	for _, c := range e.Children() {
		if c.Contains(target) {
			return true
		}
	}
	return false
}

// Observe registers a child-list observer on e and returns a cancel
// function. Observers fire after the mutation has been applied.
func (e *Element) Observe(fn ChildListFunc) (cancel func()) {
	e.mu.Lock()
	if e.observers == nil {
		e.observers = make(map[int]ChildListFunc)
	}
	id := e.nextObs
	e.nextObs++
	e.observers[id] = fn
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.observers, id)
		e.mu.Unlock()
	}
}

func (e *Element) snapshotObserversLocked() []ChildListFunc {
	if len(e.observers) == 0 {
		return nil
	}
	out := make([]ChildListFunc, 0, len(e.observers))
	for _, fn := range e.observers {
		out = append(out, fn)
	}
	return out
}

func notify(obs []ChildListFunc, removed []*Element) {
	for _, fn := range obs {
		fn(removed)
	}
}

// HTML serializes the element and its subtree. Text renders before
// child elements; attributes are emitted in sorted order.
func (e *Element) HTML() string {
	var b strings.Builder
	e.writeHTML(&b)
	return b.String()
}

func (e *Element) writeHTML(b *strings.Builder) {
	e.mu.Lock()
	tag := e.Tag
	text := e.text
	classes := strings.Join(e.classes, " ")
	names := make([]string, 0, len(e.attrs))
	for name := range e.attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	attrs := make([][2]string, 0, len(names))
	for _, name := range names {
		attrs = append(attrs, [2]string{name, e.attrs[name]})
	}
	children := make([]*Element, len(e.children))
	copy(children, e.children)
	e.mu.Unlock()

	b.WriteByte('<')
	b.WriteString(tag)
	if classes != "" {
		b.WriteString(` class="`)
		b.WriteString(html.EscapeString(classes))
		b.WriteByte('"')
	}
	for _, kv := range attrs {
		b.WriteByte(' ')
		b.WriteString(kv[0])
		b.WriteString(`="`)
		b.WriteString(html.EscapeString(kv[1]))
		b.WriteByte('"')
	}
	b.WriteByte('>')
	b.WriteString(html.EscapeString(text))
	for _, c := range children {
		c.writeHTML(b)
	}
	b.WriteString("</")
	b.WriteString(tag)
	b.WriteByte('>')
}
