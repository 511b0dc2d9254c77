// Package vault is the document store: a folder of Markdown documents
// with structured front-matter, plus a metadata cache and a change
// feed. The engine consumes it through the Store interface.
package vault

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("scriptpage.vault")

// ErrNotFound indicates the requested path resolves to nothing.
var ErrNotFound = errors.New("not found")

// DocInfo describes one file in the store.
type DocInfo struct {
	Path      string // vault-relative, forward slashes
	Name      string // file name with extension
	Basename  string // file name without extension
	Extension string // extension without the dot
	Size      int64
	CTime     time.Time
	MTime     time.Time
}

// Store is the document-store collaborator the engine queries.
type Store interface {
	// Resolve returns the file at path, or false if none exists.
	Resolve(path string) (*DocInfo, bool)

	// All enumerates every document in the store. Order is the store's
	// enumeration order, not contractually sorted.
	All() []*DocInfo

	// Frontmatter returns the document's declared front-matter fields.
	// A document without front-matter yields an empty map.
	Frontmatter(path string) (map[string]interface{}, error)

	// ListFolder returns the immediate file children and subfolder
	// names of the folder at path. Returns an error if path is not a
	// folder.
	ListFolder(path string) ([]*DocInfo, []string, error)
}

// FS is a filesystem-backed Store rooted at a vault directory.
type FS struct {
	root  string
	cache *MetadataCache
}

// documentExtensions are the extensions enumerated by All.
var documentExtensions = map[string]bool{".md": true, ".markdown": true}

// Open creates a filesystem vault rooted at dir.
func Open(dir string) (*FS, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving vault root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("opening vault: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault root %s is not a directory", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the vault's absolute root directory.
func (v *FS) Root() string {
	return v.root
}

// SetCache attaches a metadata cache. Frontmatter lookups go through
// the cache from then on.
func (v *FS) SetCache(c *MetadataCache) {
	v.cache = c
}

// Cache returns the attached metadata cache, or nil.
func (v *FS) Cache() *MetadataCache {
	return v.cache
}

// abs maps a vault-relative path to an absolute one, refusing paths
// that escape the root.
func (v *FS) abs(path string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(path))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the vault", path)
	}
	return filepath.Join(v.root, clean), nil
}

// rel maps an absolute path back to vault-relative slash form.
func (v *FS) rel(abs string) string {
	r, err := filepath.Rel(v.root, abs)
	if err != nil {
		return abs
	}
	return filepath.ToSlash(r)
}

func infoFor(relPath string, fi fs.FileInfo) *DocInfo {
	name := fi.Name()
	ext := filepath.Ext(name)
	// Creation time is not portably available; the modify time stands in.
	return &DocInfo{
		Path:      relPath,
		Name:      name,
		Basename:  strings.TrimSuffix(name, ext),
		Extension: strings.TrimPrefix(ext, "."),
		Size:      fi.Size(),
		CTime:     fi.ModTime(),
		MTime:     fi.ModTime(),
	}
}

// Resolve implements Store.
func (v *FS) Resolve(path string) (*DocInfo, bool) {
	abs, err := v.abs(path)
	if err != nil {
		return nil, false
	}
	fi, err := os.Stat(abs)
	if err != nil || fi.IsDir() {
		return nil, false
	}
	return infoFor(v.rel(abs), fi), true
}

// All implements Store. Hidden directories (dot-prefixed) are skipped,
// which also keeps the cache's own storage out of the enumeration.
func (v *FS) All() []*DocInfo {
	var docs []*DocInfo
	filepath.WalkDir(v.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if p != v.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !documentExtensions[strings.ToLower(filepath.Ext(d.Name()))] {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return nil
		}
		docs = append(docs, infoFor(v.rel(p), fi))
		return nil
	})
	return docs
}

// Frontmatter implements Store. With a cache attached the parse result
// is reused until the document's modify time changes.
func (v *FS) Frontmatter(path string) (map[string]interface{}, error) {
	abs, err := v.abs(path)
	if err != nil {
		return nil, err
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return nil, ErrNotFound
	}

	if v.cache != nil {
		return v.cache.Frontmatter(v.rel(abs), abs, fi.ModTime())
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	fm, _, err := ExtractFrontmatter(data)
	if err != nil {
		log.Warningf("front-matter parse failed for %s: %v", path, err)
		return map[string]interface{}{}, nil
	}
	return fm, nil
}

// ListFolder implements Store.
func (v *FS) ListFolder(path string) ([]*DocInfo, []string, error) {
	abs, err := v.abs(path)
	if err != nil {
		return nil, nil, err
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if !fi.IsDir() {
		return nil, nil, fmt.Errorf("%s is not a folder", path)
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, nil, fmt.Errorf("listing %s: %w", path, err)
	}

	var files []*DocInfo
	var folders []string
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if entry.IsDir() {
			folders = append(folders, entry.Name())
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, infoFor(v.rel(filepath.Join(abs, entry.Name())), info))
	}
	sort.Strings(folders)
	return files, folders, nil
}
