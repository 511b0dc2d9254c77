// Package manifest handles scriptpage.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Manifest represents a scriptpage.toml configuration.
type Manifest struct {
	Vault  Vault  `toml:"vault"`
	Engine Engine `toml:"engine"`
	Editor Editor `toml:"editor"`

	// Dir is the directory containing the scriptpage.toml file (set at load time).
	Dir string `toml:"-"`
}

// Vault configures the document store.
type Vault struct {
	Dir    string `toml:"dir"`
	Schema string `toml:"schema"`
}

// Engine configures block execution.
type Engine struct {
	Language string `toml:"language"`
	Theme    string `toml:"theme"`
	QuietMS  int    `toml:"quiet-ms"`
}

// Editor configures LSP assistance.
type Editor struct {
	MaxCompletions int `toml:"max-completions"`
}

// Default returns a manifest with defaults applied, rooted at dir.
func Default(dir string) *Manifest {
	m := &Manifest{Dir: dir}
	m.applyDefaults()
	return m
}

func (m *Manifest) applyDefaults() {
	if m.Vault.Dir == "" {
		m.Vault.Dir = "."
	}
	if m.Engine.Language == "" {
		m.Engine.Language = "scriptpage"
	}
	if m.Engine.Theme == "" {
		m.Engine.Theme = "light"
	}
	if m.Engine.QuietMS <= 0 {
		m.Engine.QuietMS = 1000
	}
	if m.Editor.MaxCompletions <= 0 {
		m.Editor.MaxCompletions = 100
	}
}

// Load parses a scriptpage.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "scriptpage.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	m.applyDefaults()
	return &m, nil
}

// FindAndLoad walks up from startDir to find a scriptpage.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "scriptpage.toml")
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// QuietInterval returns the configured debounce interval.
func (m *Manifest) QuietInterval() time.Duration {
	return time.Duration(m.Engine.QuietMS) * time.Millisecond
}

// VaultDir returns the absolute vault directory.
func (m *Manifest) VaultDir() string {
	if filepath.IsAbs(m.Vault.Dir) {
		return m.Vault.Dir
	}
	return filepath.Join(m.Dir, m.Vault.Dir)
}

// SchemaPath returns the absolute front-matter schema path, or "" if
// none is configured.
func (m *Manifest) SchemaPath() string {
	if m.Vault.Schema == "" {
		return ""
	}
	if filepath.IsAbs(m.Vault.Schema) {
		return m.Vault.Schema
	}
	return filepath.Join(m.Dir, m.Vault.Schema)
}

// CacheDBPath returns the metadata cache location under the vault.
func (m *Manifest) CacheDBPath() string {
	return filepath.Join(m.VaultDir(), ".scriptpage", "metadata.db")
}
