package engine

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/arlen/scriptpage/render"
	"github.com/arlen/scriptpage/vault"
)

// memStore is an in-memory Store for tests.
type memStore struct {
	order   []string
	docs    map[string]*vault.DocInfo
	fm      map[string]map[string]interface{}
	folders map[string][]string
}

func newMemStore() *memStore {
	return &memStore{
		docs:    make(map[string]*vault.DocInfo),
		fm:      make(map[string]map[string]interface{}),
		folders: make(map[string][]string),
	}
}

func (m *memStore) add(path string, fm map[string]interface{}) {
	name := path
	if i := strings.LastIndex(path, "/"); i >= 0 {
		name = path[i+1:]
	}
	base := strings.TrimSuffix(name, ".md")
	m.order = append(m.order, path)
	m.docs[path] = &vault.DocInfo{
		Path:      path,
		Name:      name,
		Basename:  base,
		Extension: "md",
		Size:      int64(len(path)),
		CTime:     time.Unix(1000, 0),
		MTime:     time.Unix(2000, 0),
	}
	if fm == nil {
		fm = map[string]interface{}{}
	}
	m.fm[path] = fm
}

func (m *memStore) Resolve(path string) (*vault.DocInfo, bool) {
	info, ok := m.docs[path]
	return info, ok
}

func (m *memStore) All() []*vault.DocInfo {
	out := make([]*vault.DocInfo, 0, len(m.order))
	for _, p := range m.order {
		out = append(out, m.docs[p])
	}
	return out
}

func (m *memStore) Frontmatter(path string) (map[string]interface{}, error) {
	fm, ok := m.fm[path]
	if !ok {
		return nil, vault.ErrNotFound
	}
	return fm, nil
}

func (m *memStore) ListFolder(path string) ([]*vault.DocInfo, []string, error) {
	subs, ok := m.folders[path]
	if !ok {
		return nil, nil, fmt.Errorf("%s is not a folder", path)
	}
	var files []*vault.DocInfo
	for _, p := range m.order {
		dir := ""
		if i := strings.LastIndex(p, "/"); i >= 0 {
			dir = p[:i]
		}
		if dir == path {
			files = append(files, m.docs[p])
		}
	}
	return files, subs, nil
}

// newTestEngine builds an engine over a populated memStore with short
// timing for tests.
func newTestEngine(t *testing.T, opts ...Option) (*Engine, *memStore) {
	t.Helper()
	store := newMemStore()
	store.add("index.md", map[string]interface{}{"title": "Index"})
	store.add("folderA/one.md", map[string]interface{}{"title": "One", "rating": 5})
	store.add("folderA/two.md", nil)
	store.add("folderB/three.md", map[string]interface{}{"title": "Three"})
	store.folders["folderA"] = nil

	base := []Option{
		WithQuietInterval(40 * time.Millisecond),
		WithMarkerDelay(20 * time.Millisecond),
	}
	e := New(store, append(base, opts...)...)
	t.Cleanup(e.Stop)
	return e, store
}

// mountBlock attaches a fresh root under a host parent and mounts the
// given source, returning the key, the root and the host.
func mountBlock(t *testing.T, e *Engine, source string) (key string, root, host *render.Element) {
	t.Helper()
	host = render.NewElement("div")
	root = render.NewElement("div")
	host.AppendChild(root)
	key = e.HandleBlock(source, root, BlockContext{DocPath: "index.md"})
	return key, root, host
}

// outputTarget returns the current output sub-element under root, or
// nil if none is mounted.
func outputTarget(root *render.Element) *render.Element {
	for _, c := range root.Children() {
		if c.HasClass("scriptpage-output") {
			return c
		}
	}
	return nil
}

// countErrorBlocks counts error-styled nodes anywhere under el.
func countErrorBlocks(el *render.Element) int {
	n := 0
	if el.HasClass("scriptpage-error") {
		n++
	}
	for _, c := range el.Children() {
		n += countErrorBlocks(c)
	}
	return n
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v: %s", d, msg)
}
