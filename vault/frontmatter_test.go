package vault

import (
	"strings"
	"testing"
)

func TestExtractFrontmatter_Fields(t *testing.T) {
	doc := []byte("---\ntitle: Notes\ntags:\n  - a\n  - b\n---\nbody text\n")

	fields, body, err := ExtractFrontmatter(doc)
	if err != nil {
		t.Fatalf("ExtractFrontmatter returned error: %v", err)
	}
	if fields["title"] != "Notes" {
		t.Errorf("title = %v, want Notes", fields["title"])
	}
	tags, ok := fields["tags"].([]interface{})
	if !ok || len(tags) != 2 {
		t.Errorf("tags = %v, want two entries", fields["tags"])
	}
	if !strings.Contains(string(body), "body text") {
		t.Errorf("body = %q, want body text retained", body)
	}
}

func TestExtractFrontmatter_NoFence(t *testing.T) {
	doc := []byte("just a document\n")

	fields, body, err := ExtractFrontmatter(doc)
	if err != nil {
		t.Fatalf("ExtractFrontmatter returned error: %v", err)
	}
	if len(fields) != 0 {
		t.Errorf("fields = %v, want empty", fields)
	}
	if string(body) != "just a document\n" {
		t.Errorf("body = %q, want full input", body)
	}
}

func TestExtractFrontmatter_Unterminated(t *testing.T) {
	doc := []byte("---\ntitle: Notes\nno closing fence")

	_, _, err := ExtractFrontmatter(doc)
	if err == nil {
		t.Fatal("expected error for unterminated front-matter")
	}
}

func TestExtractFrontmatter_InvalidYAML(t *testing.T) {
	doc := []byte("---\n: [broken\n---\nbody\n")

	fields, _, err := ExtractFrontmatter(doc)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
	if len(fields) != 0 {
		t.Errorf("fields = %v, want empty on parse failure", fields)
	}
}

func TestExtractFrontmatter_EmptyBlock(t *testing.T) {
	doc := []byte("---\n---\nbody\n")

	fields, _, err := ExtractFrontmatter(doc)
	if err != nil {
		t.Fatalf("ExtractFrontmatter returned error: %v", err)
	}
	if len(fields) != 0 {
		t.Errorf("fields = %v, want empty", fields)
	}
}
