package engine

import (
	"errors"
	"fmt"

	"github.com/dop251/goja"
)

// ErrWorkerStopped is returned by Do after the worker shuts down.
var ErrWorkerStopped = errors.New("script worker stopped")

// jsRequest represents a unit of work to be executed on the runtime
// goroutine.
type jsRequest struct {
	fn   func(*goja.Runtime) interface{}
	done chan jsResult
}

// jsResult holds the return value from a runtime operation.
type jsResult struct {
	value interface{}
	err   error
}

// JSWorker serializes all script-runtime access through a single
// goroutine. A goja runtime is single-threaded; every execution path
// (mount, refresh, syntax check) must go through the worker to avoid
// data races.
type JSWorker struct {
	rt       *goja.Runtime
	requests chan jsRequest
	quit     chan struct{}
}

// NewJSWorker creates a JSWorker with a fresh runtime and starts the
// processing goroutine.
func NewJSWorker() *JSWorker {
	w := &JSWorker{
		rt:       goja.New(),
		requests: make(chan jsRequest, 64),
		quit:     make(chan struct{}),
	}
	w.rt.SetFieldNameMapper(goja.UncapFieldNameMapper())
	go w.loop()
	return w
}

// loop processes requests sequentially on a dedicated goroutine.
func (w *JSWorker) loop() {
	for {
		select {
		case req := <-w.requests:
			req.done <- w.execute(req.fn)
		case <-w.quit:
			return
		}
	}
}

// execute runs a function on the runtime, recovering from panics.
func (w *JSWorker) execute(fn func(*goja.Runtime) interface{}) jsResult {
	var result jsResult
	func() {
		defer func() {
			if r := recover(); r != nil {
				result.err = fmt.Errorf("%v", r)
			}
		}()
		result.value = fn(w.rt)
	}()
	return result
}

// Do submits a function for execution on the runtime goroutine and
// blocks until it completes. Returns the result and any error
// (including recovered panics).
func (w *JSWorker) Do(fn func(*goja.Runtime) interface{}) (interface{}, error) {
	req := jsRequest{
		fn:   fn,
		done: make(chan jsResult, 1),
	}
	select {
	case <-w.quit:
		return nil, ErrWorkerStopped
	default:
	}
	select {
	case w.requests <- req:
	case <-w.quit:
		return nil, ErrWorkerStopped
	}
	select {
	case result := <-req.done:
		return result.value, result.err
	case <-w.quit:
		return nil, ErrWorkerStopped
	}
}

// Stop shuts down the worker goroutine.
func (w *JSWorker) Stop() {
	close(w.quit)
}
