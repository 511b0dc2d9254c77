package vault

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/fxamacker/cbor/v2"

	_ "modernc.org/sqlite"
)

// cborEncMode uses canonical encoding so identical front-matter always
// produces identical rows.
var cborEncMode cbor.EncMode

// cborDecMode decodes CBOR maps into map[string]interface{} so cached
// fields round-trip into the same shape the YAML parser produces.
var cborDecMode cbor.DecMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("vault: canonical CBOR mode: %v", err))
	}
	cborEncMode = em

	dm, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]interface{}{}),
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("vault: CBOR decode mode: %v", err))
	}
	cborDecMode = dm
}

// MetadataCache persists parsed front-matter keyed by document path,
// invalidated by modify time. Rows are CBOR-encoded. An optional CUE
// schema is checked on every (re)parse; violations are recorded on the
// row and logged, never fatal.
type MetadataCache struct {
	db *sql.DB
	mu sync.Mutex

	schema    cue.Value
	hasSchema bool

	resolvedMu sync.Mutex
	resolved   []func(path string)
}

// OpenCache opens (creating if needed) a metadata cache database at
// the given file path.
func OpenCache(dbPath string) (*MetadataCache, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS frontmatter (
		path TEXT PRIMARY KEY,
		mtime INTEGER NOT NULL,
		fields BLOB NOT NULL,
		schema_error TEXT NOT NULL DEFAULT ''
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating frontmatter table: %w", err)
	}

	return &MetadataCache{db: db}, nil
}

// Close closes the cache database.
func (c *MetadataCache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// LoadSchema compiles a CUE schema from the given file and enables
// validation for subsequent parses.
func (c *MetadataCache) LoadSchema(path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading schema %s: %w", path, err)
	}
	val := cuecontext.New().CompileString(string(src), cue.Filename(path))
	if err := val.Err(); err != nil {
		return fmt.Errorf("compiling schema %s: %w", path, err)
	}
	c.mu.Lock()
	c.schema = val
	c.hasSchema = true
	c.mu.Unlock()
	return nil
}

// OnResolved registers a callback fired whenever the cache finishes
// (re)parsing a document's front-matter.
func (c *MetadataCache) OnResolved(fn func(path string)) {
	c.resolvedMu.Lock()
	c.resolved = append(c.resolved, fn)
	c.resolvedMu.Unlock()
}

func (c *MetadataCache) fireResolved(path string) {
	c.resolvedMu.Lock()
	fns := make([]func(string), len(c.resolved))
	copy(fns, c.resolved)
	c.resolvedMu.Unlock()
	for _, fn := range fns {
		fn(path)
	}
}

// Frontmatter returns cached fields for relPath if the stored modify
// time matches, otherwise re-reads absPath, parses, validates, stores
// and notifies resolution listeners.
func (c *MetadataCache) Frontmatter(relPath, absPath string, mtime time.Time) (map[string]interface{}, error) {
	c.mu.Lock()

	var storedMTime int64
	var blob []byte
	err := c.db.QueryRow(
		"SELECT mtime, fields FROM frontmatter WHERE path = ?", relPath,
	).Scan(&storedMTime, &blob)
	if err == nil && storedMTime == mtime.UnixNano() {
		c.mu.Unlock()
		var fields map[string]interface{}
		if err := cborDecMode.Unmarshal(blob, &fields); err != nil {
			return nil, fmt.Errorf("decoding cached front-matter for %s: %w", relPath, err)
		}
		if fields == nil {
			fields = map[string]interface{}{}
		}
		return fields, nil
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		c.mu.Unlock()
		return nil, fmt.Errorf("querying cache for %s: %w", relPath, err)
	}
	c.mu.Unlock()

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", relPath, err)
	}
	fields, _, err := ExtractFrontmatter(data)
	if err != nil {
		log.Warningf("front-matter parse failed for %s: %v", relPath, err)
		fields = map[string]interface{}{}
	}

	schemaErr := c.validate(relPath, fields)

	blob, err = cborEncMode.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encoding front-matter for %s: %w", relPath, err)
	}

	c.mu.Lock()
	_, err = c.db.Exec(
		"INSERT OR REPLACE INTO frontmatter (path, mtime, fields, schema_error) VALUES (?, ?, ?, ?)",
		relPath, mtime.UnixNano(), blob, schemaErr,
	)
	c.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("storing front-matter for %s: %w", relPath, err)
	}

	c.fireResolved(relPath)
	return fields, nil
}

// SchemaError returns the recorded schema violation for a document, or
// "" if the row is absent or valid.
func (c *MetadataCache) SchemaError(relPath string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var msg string
	if err := c.db.QueryRow(
		"SELECT schema_error FROM frontmatter WHERE path = ?", relPath,
	).Scan(&msg); err != nil {
		return ""
	}
	return msg
}

// Evict drops the cached row for a document (used on delete events).
func (c *MetadataCache) Evict(relPath string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.db.Exec("DELETE FROM frontmatter WHERE path = ?", relPath)
}

// validate checks fields against the loaded schema, returning a
// violation message or "".
func (c *MetadataCache) validate(relPath string, fields map[string]interface{}) string {
	c.mu.Lock()
	schema, ok := c.schema, c.hasSchema
	c.mu.Unlock()
	if !ok {
		return ""
	}

	val := schema.Context().Encode(fields)
	if err := val.Err(); err != nil {
		log.Warningf("front-matter of %s not encodable for validation: %v", relPath, err)
		return err.Error()
	}
	if err := schema.Unify(val).Validate(cue.Concrete(false)); err != nil {
		log.Warningf("front-matter of %s violates schema: %v", relPath, err)
		return err.Error()
	}
	return ""
}
