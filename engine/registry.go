package engine

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/arlen/scriptpage/render"
)

// BlockContext is the opaque rendering context the host supplies with
// a block. It is carried for error reporting only, never interpreted.
type BlockContext struct {
	DocPath string
	Raw     interface{}
}

// BlockInstance is one mounted fenced script block.
type BlockInstance struct {
	// Key is stable for the mounted lifetime and never reused.
	Key string
	// Source is the captured fragment text; refreshes re-execute this
	// exact text, they do not re-read the document.
	Source string
	// Root is the host-owned output element the block renders into.
	Root *render.Element
	// target is the engine-owned sub-element inside Root holding the
	// current execution's output.
	target *render.Element
	// Context is the host's rendering context.
	Context BlockContext

	cancelWatch func()
}

// NewInstanceKey composes an instance key from the originating
// document and a random suffix, so multiple blocks of one document
// stay distinct.
func NewInstanceKey(docPath string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return docPath + "#" + suffix
}

// Registry tracks every currently-mounted block instance by key. It
// owns the key→instance mapping; output element lifetimes belong to
// the host's rendering tree, the registry only observes them.
type Registry struct {
	mu        sync.Mutex
	order     []string
	instances map[string]*BlockInstance
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{instances: make(map[string]*BlockInstance)}
}

// Register adds an instance and arranges detachment detection: an
// observation on the parent of the instance's root element evicts the
// instance when the root (or a removed subtree containing it) leaves
// the tree. The host attaches the root before invoking the block
// handler, so the parent is available here.
func (r *Registry) Register(inst *BlockInstance) {
	if parent := inst.Root.Parent(); parent != nil {
		inst.cancelWatch = parent.Observe(func(removed []*render.Element) {
			for _, el := range removed {
				if el == inst.Root || el.Contains(inst.Root) {
					r.Evict(inst.Key)
					return
				}
			}
		})
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.instances[inst.Key]; exists {
		return
	}
	r.instances[inst.Key] = inst
	r.order = append(r.order, inst.Key)
}

// Get returns the instance for key, or false if evicted or never
// registered.
func (r *Registry) Get(key string) (*BlockInstance, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.instances[key]
	return inst, ok
}

// Target returns the instance's current output sub-element.
func (r *Registry) Target(key string) (*render.Element, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.instances[key]
	if !ok {
		return nil, false
	}
	return inst.target, true
}

// SetTarget replaces the instance's output sub-element, failing if the
// instance was evicted in the meantime.
func (r *Registry) SetTarget(key string, target *render.Element) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.instances[key]
	if !ok {
		return false
	}
	inst.target = target
	return true
}

// Evict removes an instance and stops its detachment observation. A
// no-op for unknown keys.
func (r *Registry) Evict(key string) {
	r.mu.Lock()
	inst, ok := r.instances[key]
	if ok {
		delete(r.instances, key)
		for i, k := range r.order {
			if k == key {
				r.order = append(r.order[:i], r.order[i+1:]...)
				break
			}
		}
	}
	r.mu.Unlock()

	if ok && inst.cancelWatch != nil {
		inst.cancelWatch()
	}
}

// Keys returns the registered keys in insertion order.
func (r *Registry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered instances.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.instances)
}

// Clear evicts every instance. Used at system teardown.
func (r *Registry) Clear() {
	r.mu.Lock()
	instances := r.instances
	r.instances = make(map[string]*BlockInstance)
	r.order = nil
	r.mu.Unlock()

	for _, inst := range instances {
		if inst.cancelWatch != nil {
			inst.cancelWatch()
		}
	}
}
