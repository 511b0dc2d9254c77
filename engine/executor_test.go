package engine

import (
	"strings"
	"testing"

	"github.com/arlen/scriptpage/chart"
	"github.com/arlen/scriptpage/render"
)

func newTestExecutor(t *testing.T) (*Executor, *Surface, *render.Element) {
	t.Helper()
	w := NewJSWorker()
	t.Cleanup(w.Stop)
	_, store := newTestEngine(t)
	target := render.NewElement("div")
	s := NewSurface(target, store, nil, "light", chart.CanvasRenderer{}, func() {})
	return NewExecutor(w), s, target
}

func TestExecute_SurfaceBoundAsSingleParameter(t *testing.T) {
	ex, s, target := newTestExecutor(t)

	err := ex.Execute("t", `sp.paragraph("hello from " + typeof sp)`, s)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	children := target.Children()
	if len(children) != 1 || children[0].Tag != "p" {
		t.Fatalf("target children = %v, want one paragraph", children)
	}
	if children[0].Text() != "hello from object" {
		t.Errorf("text = %q", children[0].Text())
	}
}

func TestExecute_QueryMembersReachableFromScript(t *testing.T) {
	ex, s, target := newTestExecutor(t)

	src := `
		var p = sp.page("folderA/one.md");
		sp.span(p.title + "/" + p.file.basename);
		if (sp.page("missing/path.md")) {
			throw new Error("missing page should be falsy");
		}
		sp.span("count=" + sp.pages("folderA/").length);
	`
	if err := ex.Execute("t", src, s); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	children := target.Children()
	if len(children) != 2 {
		t.Fatalf("want 2 spans, got %d", len(children))
	}
	if children[0].Text() != "One/one" {
		t.Errorf("first span = %q, want One/one", children[0].Text())
	}
	if children[1].Text() != "count=2" {
		t.Errorf("second span = %q, want count=2", children[1].Text())
	}
}

func TestExecute_CompileErrorRendersSingleErrorBlock(t *testing.T) {
	ex, s, target := newTestExecutor(t)

	err := ex.Execute("t", `this is not javascript ((`, s)
	if err == nil {
		t.Fatal("expected compile error")
	}

	if n := countErrorBlocks(target); n != 1 {
		t.Errorf("error blocks = %d, want exactly 1", n)
	}
}

func TestExecute_ThrownErrorRendersMessage(t *testing.T) {
	ex, s, target := newTestExecutor(t)

	err := ex.Execute("t", `throw new Error("deliberate")`, s)
	if err == nil {
		t.Fatal("expected runtime error")
	}

	var errorBlock *render.Element
	for _, c := range target.Children() {
		if c.HasClass("scriptpage-error") {
			errorBlock = c
		}
	}
	if errorBlock == nil {
		t.Fatal("no error block mounted")
	}
	if !strings.Contains(errorBlock.Text(), "deliberate") {
		t.Errorf("error text = %q, want the thrown message", errorBlock.Text())
	}
	if errorBlock.Attr("style") != "color: red" {
		t.Errorf("style = %q, want color: red", errorBlock.Attr("style"))
	}
}

func TestExecute_PartialOutputKeptBeforeFailure(t *testing.T) {
	ex, s, target := newTestExecutor(t)

	ex.Execute("t", `sp.paragraph("before"); throw new Error("after")`, s)

	children := target.Children()
	if len(children) != 2 {
		t.Fatalf("children = %d, want paragraph plus error block", len(children))
	}
	if children[0].Text() != "before" {
		t.Errorf("first child = %q, want before", children[0].Text())
	}
}

func TestCheck_CompilesOnWorker(t *testing.T) {
	w := NewJSWorker()
	ex := NewExecutor(w)
	w.Stop()

	if err := ex.Check("t", `1`); err != ErrWorkerStopped {
		t.Errorf("Check after worker stop = %v, want ErrWorkerStopped", err)
	}
}

func TestCheck_CompileOnly(t *testing.T) {
	ex, _, _ := newTestExecutor(t)

	if err := ex.Check("t", `sp.paragraph("never runs")`); err != nil {
		t.Errorf("Check of valid source failed: %v", err)
	}
	if err := ex.Check("t", `((((`); err == nil {
		t.Error("Check of invalid source should fail")
	}
}
