package render

import (
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// Tree mutation
// ---------------------------------------------------------------------------

func TestAppendChild_SetsParent(t *testing.T) {
	root := NewElement("div")
	child := NewElement("p")

	root.AppendChild(child)

	if child.Parent() != root {
		t.Errorf("child.Parent() = %v, want root", child.Parent())
	}
	if len(root.Children()) != 1 {
		t.Fatalf("root has %d children, want 1", len(root.Children()))
	}
}

func TestAppendChild_ReparentsFromPreviousParent(t *testing.T) {
	a := NewElement("div")
	b := NewElement("div")
	child := NewElement("span")

	a.AppendChild(child)
	b.AppendChild(child)

	if len(a.Children()) != 0 {
		t.Errorf("old parent still has %d children", len(a.Children()))
	}
	if child.Parent() != b {
		t.Error("child not reparented")
	}
}

func TestRemoveChild_DetachesChild(t *testing.T) {
	root := NewElement("div")
	child := root.AppendChild(NewElement("p"))

	root.RemoveChild(child)

	if child.Parent() != nil {
		t.Error("removed child still has a parent")
	}
	if len(root.Children()) != 0 {
		t.Error("root still lists removed child")
	}
}

func TestRemoveChild_NonChildIsNoop(t *testing.T) {
	root := NewElement("div")
	stranger := NewElement("p")

	root.RemoveChild(stranger) // must not panic

	if len(root.Children()) != 0 {
		t.Error("root gained a child")
	}
}

func TestEmpty_RemovesAllChildren(t *testing.T) {
	root := NewElement("div")
	a := root.AppendChild(NewElement("p"))
	b := root.AppendChild(NewElement("p"))

	root.Empty()

	if len(root.Children()) != 0 {
		t.Fatalf("root has %d children after Empty", len(root.Children()))
	}
	if a.Parent() != nil || b.Parent() != nil {
		t.Error("emptied children still parented")
	}
}

func TestContains_DeepDescendant(t *testing.T) {
	root := NewElement("div")
	mid := root.AppendChild(NewElement("div"))
	leaf := mid.AppendChild(NewElement("span"))

	if !root.Contains(leaf) {
		t.Error("root should contain leaf")
	}
	if !root.Contains(root) {
		t.Error("Contains should be self-inclusive")
	}
	if leaf.Contains(root) {
		t.Error("leaf should not contain root")
	}
}

// ---------------------------------------------------------------------------
// Child-list observation
// ---------------------------------------------------------------------------

func TestObserve_SeesRemovedChild(t *testing.T) {
	root := NewElement("div")
	child := root.AppendChild(NewElement("p"))

	var got []*Element
	root.Observe(func(removed []*Element) {
		got = append(got, removed...)
	})

	root.RemoveChild(child)

	if len(got) != 1 || got[0] != child {
		t.Fatalf("observer saw %v, want the removed child", got)
	}
}

func TestObserve_EmptyReportsAllRemoved(t *testing.T) {
	root := NewElement("div")
	root.AppendChild(NewElement("p"))
	root.AppendChild(NewElement("p"))

	var count int
	root.Observe(func(removed []*Element) {
		count += len(removed)
	})

	root.Empty()

	if count != 2 {
		t.Errorf("observer saw %d removed nodes, want 2", count)
	}
}

func TestObserve_CancelStopsNotifications(t *testing.T) {
	root := NewElement("div")
	child := root.AppendChild(NewElement("p"))

	fired := false
	cancel := root.Observe(func([]*Element) { fired = true })
	cancel()

	root.RemoveChild(child)

	if fired {
		t.Error("canceled observer still fired")
	}
}

// ---------------------------------------------------------------------------
// Serialization
// ---------------------------------------------------------------------------

func TestHTML_EscapesTextAndAttrs(t *testing.T) {
	el := NewElement("p").SetText(`a < b & "c"`).SetAttr("title", `x"y`)

	out := el.HTML()

	if strings.Contains(out, "a < b") {
		t.Errorf("text not escaped: %s", out)
	}
	if !strings.Contains(out, "a &lt; b &amp;") {
		t.Errorf("expected escaped text, got %s", out)
	}
	if !strings.Contains(out, `title="x&#34;y"`) {
		t.Errorf("expected escaped attribute, got %s", out)
	}
}

func TestHTML_NestedStructure(t *testing.T) {
	root := NewElement("div").AddClass("outer")
	root.AppendChild(NewElement("h2").SetText("Title"))
	root.AppendChild(NewElement("p").SetText("body"))

	out := root.HTML()

	want := `<div class="outer"><h2>Title</h2><p>body</p></div>`
	if out != want {
		t.Errorf("HTML() = %s, want %s", out, want)
	}
}
