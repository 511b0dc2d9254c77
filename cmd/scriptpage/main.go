// scriptpage CLI - renders script-bearing Markdown documents and serves
// editor assistance
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/arlen/scriptpage/engine"
	"github.com/arlen/scriptpage/fenced"
	"github.com/arlen/scriptpage/manifest"
	"github.com/arlen/scriptpage/render"
	"github.com/arlen/scriptpage/server"
	"github.com/arlen/scriptpage/vault"

	"github.com/tliron/commonlog"

	_ "github.com/tliron/commonlog/simple"
)

func main() {
	lspMode := flag.Bool("lsp", false, "Start the editor language server on stdio")
	watchMode := flag.Bool("watch", false, "Keep running and re-render when the vault changes")
	vaultDir := flag.String("vault", "", "Vault directory (overrides scriptpage.toml)")
	theme := flag.String("theme", "", "Presentation mode: light or dark (overrides scriptpage.toml)")
	verbose := flag.Bool("v", false, "Verbose logging")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: scriptpage [options] [documents...]\n\n")
		fmt.Fprintf(os.Stderr, "Executes the fenced script blocks of the given Markdown documents against\n")
		fmt.Fprintf(os.Stderr, "the vault and prints the rendered HTML.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  scriptpage index.md                  # Render once, print HTML\n")
		fmt.Fprintf(os.Stderr, "  scriptpage --watch index.md          # Re-render on vault changes\n")
		fmt.Fprintf(os.Stderr, "  scriptpage --vault ~/notes index.md  # Explicit vault root\n")
		fmt.Fprintf(os.Stderr, "  scriptpage --lsp                     # Editor language server on stdio\n")
	}
	flag.Parse()

	verbosity := 0
	if *verbose {
		verbosity = 1
	}
	commonlog.Configure(verbosity, nil)

	m, err := manifest.FindAndLoad(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if m == nil {
		cwd, err := os.Getwd()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		m = manifest.Default(cwd)
	}
	if *vaultDir != "" {
		m.Vault.Dir = *vaultDir
	}
	if *theme != "" {
		m.Engine.Theme = *theme
	}

	if *lspMode {
		s := server.NewLSP(m.Engine.Language, m.Editor.MaxCompletions)
		if err := s.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	files := flag.Args()
	if len(files) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if err := preview(m, files, *watchMode); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// preview mounts every block of the given documents, prints the
// rendered trees, and in watch mode keeps reprinting after the engine
// settles on vault changes.
func preview(m *manifest.Manifest, files []string, watch bool) error {
	store, err := vault.Open(m.VaultDir())
	if err != nil {
		return err
	}

	cache, err := vault.OpenCache(m.CacheDBPath())
	if err != nil {
		return err
	}
	defer cache.Close()
	if schema := m.SchemaPath(); schema != "" {
		if err := cache.LoadSchema(schema); err != nil {
			return fmt.Errorf("loading front-matter schema: %w", err)
		}
	}
	store.SetCache(cache)

	e := engine.New(store,
		engine.WithQuietInterval(m.QuietInterval()),
		engine.WithTheme(m.Engine.Theme),
	)
	defer e.Stop()

	hosts := make(map[string]*render.Element, len(files))
	for _, f := range files {
		host, err := mountFile(e, store, m.Engine.Language, f)
		if err != nil {
			return err
		}
		hosts[f] = host
	}
	printAll(files, hosts)

	if !watch {
		return nil
	}

	w, err := vault.NewWatcher(store)
	if err != nil {
		return err
	}
	defer w.Close()

	// Tee the change feed: the engine debounces its own copy, the
	// preview loop reprints once the engine has settled.
	engineFeed := make(chan vault.Event, 64)
	reprint := make(chan struct{}, 1)
	go func() {
		defer close(engineFeed)
		for ev := range w.Events() {
			engineFeed <- ev
			select {
			case reprint <- struct{}{}:
			default:
			}
		}
	}()
	e.ConsumeEvents(engineFeed)
	e.BindCache(cache)

	settle := m.QuietInterval() + engine.DefaultMarkerDelay + 100*time.Millisecond
	for range reprint {
		time.Sleep(settle)
		drain(reprint)
		printAll(files, hosts)
	}
	return nil
}

// mountFile scans one document for fenced blocks and mounts each on its
// own root under a per-document host element.
func mountFile(e *engine.Engine, store *vault.FS, lang, path string) (*render.Element, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	rel, err := filepath.Rel(store.Root(), abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		// Outside the vault; keep a stable identifier anyway.
		rel = filepath.Base(abs)
	}
	rel = filepath.ToSlash(rel)

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, err
	}

	host := render.NewElement("article").SetAttr("data-doc", rel)
	for _, b := range fenced.Scan(string(data), lang) {
		root := render.NewElement("div").AddClass("scriptpage-block")
		host.AppendChild(root)
		e.HandleBlock(b.Source, root, engine.BlockContext{DocPath: rel, Raw: b})
	}
	return host, nil
}

func printAll(files []string, hosts map[string]*render.Element) {
	for _, f := range files {
		fmt.Printf("<!-- %s -->\n%s\n", f, hosts[f].HTML())
	}
}

func drain(ch chan struct{}) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}
