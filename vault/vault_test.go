package vault

import (
	"os"
	"path/filepath"
	"testing"
)

// newTestVault builds a vault on disk with a few documents and returns
// the opened FS.
func newTestVault(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()

	write := func(rel, content string) {
		t.Helper()
		p := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}

	write("index.md", "---\ntitle: Index\n---\nhello\n")
	write("folderA/one.md", "---\ntitle: One\nrating: 5\n---\n")
	write("folderA/two.md", "no front matter\n")
	write("folderB/three.md", "---\ntitle: Three\n---\n")
	write("folderA/nested/deep.md", "deep\n")
	write("attachment.txt", "not a document\n")

	v, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return v
}

// ---------------------------------------------------------------------------
// Resolve
// ---------------------------------------------------------------------------

func TestResolve_ExistingDocument(t *testing.T) {
	v := newTestVault(t)

	info, ok := v.Resolve("folderA/one.md")
	if !ok {
		t.Fatal("Resolve returned false for existing document")
	}
	if info.Path != "folderA/one.md" {
		t.Errorf("Path = %q, want folderA/one.md", info.Path)
	}
	if info.Name != "one.md" || info.Basename != "one" || info.Extension != "md" {
		t.Errorf("name fields = %q/%q/%q", info.Name, info.Basename, info.Extension)
	}
	if info.Size == 0 {
		t.Error("Size should be non-zero")
	}
	if info.MTime.IsZero() {
		t.Error("MTime should be set")
	}
}

func TestResolve_MissingPath(t *testing.T) {
	v := newTestVault(t)

	if _, ok := v.Resolve("missing/path.md"); ok {
		t.Error("Resolve returned true for missing path")
	}
}

func TestResolve_FolderIsNotADocument(t *testing.T) {
	v := newTestVault(t)

	if _, ok := v.Resolve("folderA"); ok {
		t.Error("Resolve returned true for a folder")
	}
}

func TestResolve_EscapingPathRejected(t *testing.T) {
	v := newTestVault(t)

	if _, ok := v.Resolve("../outside.md"); ok {
		t.Error("Resolve returned true for a path escaping the vault")
	}
}

// ---------------------------------------------------------------------------
// All
// ---------------------------------------------------------------------------

func TestAll_EnumeratesDocumentsOnly(t *testing.T) {
	v := newTestVault(t)

	docs := v.All()

	paths := make(map[string]bool)
	for _, d := range docs {
		paths[d.Path] = true
	}
	want := []string{"index.md", "folderA/one.md", "folderA/two.md", "folderB/three.md", "folderA/nested/deep.md"}
	for _, p := range want {
		if !paths[p] {
			t.Errorf("All() missing %s", p)
		}
	}
	if paths["attachment.txt"] {
		t.Error("All() included a non-document file")
	}
	if len(docs) != len(want) {
		t.Errorf("All() returned %d documents, want %d", len(docs), len(want))
	}
}

// ---------------------------------------------------------------------------
// Frontmatter
// ---------------------------------------------------------------------------

func TestFrontmatter_ParsedFields(t *testing.T) {
	v := newTestVault(t)

	fm, err := v.Frontmatter("folderA/one.md")
	if err != nil {
		t.Fatalf("Frontmatter: %v", err)
	}
	if fm["title"] != "One" {
		t.Errorf("title = %v, want One", fm["title"])
	}
	if rating, ok := fm["rating"].(int); !ok || rating != 5 {
		t.Errorf("rating = %v (%T), want 5", fm["rating"], fm["rating"])
	}
}

func TestFrontmatter_DocumentWithoutBlock(t *testing.T) {
	v := newTestVault(t)

	fm, err := v.Frontmatter("folderA/two.md")
	if err != nil {
		t.Fatalf("Frontmatter: %v", err)
	}
	if len(fm) != 0 {
		t.Errorf("fields = %v, want empty", fm)
	}
}

func TestFrontmatter_MissingDocument(t *testing.T) {
	v := newTestVault(t)

	if _, err := v.Frontmatter("nope.md"); err == nil {
		t.Error("expected error for missing document")
	}
}

// ---------------------------------------------------------------------------
// ListFolder
// ---------------------------------------------------------------------------

func TestListFolder_FilesAndSubfolders(t *testing.T) {
	v := newTestVault(t)

	files, folders, err := v.ListFolder("folderA")
	if err != nil {
		t.Fatalf("ListFolder: %v", err)
	}
	if len(files) != 2 {
		t.Errorf("files = %d, want 2", len(files))
	}
	if len(folders) != 1 || folders[0] != "nested" {
		t.Errorf("folders = %v, want [nested]", folders)
	}
}

func TestListFolder_NotAFolder(t *testing.T) {
	v := newTestVault(t)

	if _, _, err := v.ListFolder("index.md"); err == nil {
		t.Error("expected error for non-folder path")
	}
	if _, _, err := v.ListFolder("notAFolder"); err == nil {
		t.Error("expected error for missing path")
	}
}
