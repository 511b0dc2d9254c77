// Package engine hosts live script blocks: it registers block
// instances, executes their fragments against a per-execution
// capability surface, coalesces change notifications into bulk
// refreshes, and evicts instances when their output leaves the host's
// rendering tree.
package engine

import (
	"sync"
	"time"

	"github.com/tliron/commonlog"

	"github.com/arlen/scriptpage/chart"
	"github.com/arlen/scriptpage/render"
	"github.com/arlen/scriptpage/vault"
)

var log = commonlog.GetLogger("scriptpage.engine")

// DefaultMarkerDelay is how long the transient "refreshing" marker
// stays mounted. Cosmetic only; it never gates correctness.
const DefaultMarkerDelay = 500 * time.Millisecond

// Option configures an Engine.
type Option func(*Engine)

// WithQuietInterval sets the scheduler's quiet interval.
func WithQuietInterval(d time.Duration) Option {
	return func(e *Engine) { e.quiet = d }
}

// WithTheme sets the presentation mode ("light" or "dark") used for
// chart palettes.
func WithTheme(theme string) Option {
	return func(e *Engine) { e.theme = theme }
}

// WithApp sets the raw host handle scripts reach through the surface's
// app member. Unrestricted by design; scripts may bypass every other
// primitive through it.
func WithApp(app interface{}) Option {
	return func(e *Engine) { e.app = app }
}

// WithCharter sets the charting collaborator.
func WithCharter(r chart.Renderer) Option {
	return func(e *Engine) { e.charter = r }
}

// WithMarkerDelay sets how long the refreshing marker stays mounted.
func WithMarkerDelay(d time.Duration) Option {
	return func(e *Engine) { e.markerDelay = d }
}

// Engine is the single coordinator for all mounted instances,
// constructed at system start and torn down with Stop. It is the only
// owner of the registry, the scheduler and the script worker; nothing
// looks these up ambiently.
type Engine struct {
	store       vault.Store
	registry    *Registry
	worker      *JSWorker
	executor    *Executor
	scheduler   *Scheduler
	charter     chart.Renderer
	theme       string
	app         interface{}
	quiet       time.Duration
	markerDelay time.Duration

	stopOnce sync.Once
}

// New creates an Engine over the given document store.
func New(store vault.Store, opts ...Option) *Engine {
	e := &Engine{
		store:       store,
		charter:     chart.CanvasRenderer{},
		theme:       "light",
		quiet:       DefaultQuietInterval,
		markerDelay: DefaultMarkerDelay,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.registry = NewRegistry()
	e.worker = NewJSWorker()
	e.executor = NewExecutor(e.worker)
	e.scheduler = NewScheduler(e.quiet, e.RefreshAll)
	return e
}

// HandleBlock is the handler the host invokes for each fenced block it
// renders: it registers an instance and mounts its first execution
// synchronously. Script failures are rendered locally, never returned.
func (e *Engine) HandleBlock(source string, root *render.Element, ctx BlockContext) string {
	key := NewInstanceKey(ctx.DocPath)

	// A dedicated sub-target keeps later refreshes from touching
	// host-owned chrome around the block output.
	target := render.NewElement("div").AddClass("scriptpage-output")
	root.AppendChild(target)

	e.registry.Register(&BlockInstance{
		Key:     key,
		Source:  source,
		Root:    root,
		target:  target,
		Context: ctx,
	})

	e.execute(key, source, ctx, target)
	return key
}

// execute runs one fragment against a fresh surface bound to target.
func (e *Engine) execute(key, source string, ctx BlockContext, target *render.Element) {
	surface := NewSurface(target, e.store, e.app, e.theme, e.charter, func() {
		// Out-of-band single-instance refresh: runs independently of
		// the debounced scheduler, off the worker goroutine so a
		// script calling it mid-execution cannot deadlock.
		go e.RefreshInstance(key)
	})
	if err := e.executor.Execute(key, source, surface); err != nil {
		log.Errorf("block %s (document %s) failed: %v", key, ctx.DocPath, err)
	}
}

// RefreshInstance reruns one instance: transient marker in, old output
// sub-target out, fresh sub-target mounted, original captured source
// re-executed. A key evicted before or during the refresh makes this a
// no-op; the registry, not a stale local, is authoritative.
func (e *Engine) RefreshInstance(key string) {
	inst, ok := e.registry.Get(key)
	if !ok {
		return
	}

	// Claim the swap before touching the tree: an instance evicted
	// between the lookup and here gets no marker and no child churn on
	// its detached root.
	old, _ := e.registry.Target(key)
	target := render.NewElement("div").AddClass("scriptpage-output")
	if !e.registry.SetTarget(key, target) {
		return
	}

	marker := render.NewElement("span").
		AddClass("scriptpage-refreshing").
		SetText("Refreshing...")
	inst.Root.AppendChild(marker)

	if old != nil {
		inst.Root.RemoveChild(old)
	}
	inst.Root.AppendChild(target)

	e.execute(key, inst.Source, inst.Context, target)

	time.AfterFunc(e.markerDelay, func() {
		inst.Root.RemoveChild(marker)
	})
}

// RefreshAll reruns every registered instance in registration order.
// Instances evicted between enumeration and processing are skipped by
// RefreshInstance's absence check.
func (e *Engine) RefreshAll() {
	keys := e.registry.Keys()
	log.Debugf("bulk refresh of %d instances", len(keys))
	for _, key := range keys {
		e.RefreshInstance(key)
	}
}

// Trigger records one change notification with the refresh scheduler.
// Document modify/create/delete, view changes, layout changes and
// metadata-resolution completions all arrive here; only the arrival
// counts, never the payload.
func (e *Engine) Trigger() {
	e.scheduler.Trigger()
}

// ConsumeEvents feeds a vault change feed into the scheduler until the
// channel closes.
func (e *Engine) ConsumeEvents(events <-chan vault.Event) {
	go func() {
		for ev := range events {
			log.Debugf("store event %d for %s", ev.Type, ev.Path)
			e.scheduler.Trigger()
		}
	}()
}

// BindCache subscribes the scheduler to metadata-resolution
// completions.
func (e *Engine) BindCache(c *vault.MetadataCache) {
	c.OnResolved(func(string) {
		e.scheduler.Trigger()
	})
}

// Registry exposes the instance registry (read paths are used by the
// host and by tests).
func (e *Engine) Registry() *Registry {
	return e.registry
}

// CheckSyntax compiles a fragment without executing it.
func (e *Engine) CheckSyntax(name, source string) error {
	return e.executor.Check(name, source)
}

// Stop tears the system down: cancels any pending refresh, clears the
// registry and stops the script worker. A hard stop, not a per-instance
// unmount.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		e.scheduler.Stop()
		e.registry.Clear()
		e.worker.Stop()
	})
}
