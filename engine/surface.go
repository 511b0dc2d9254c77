package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/arlen/scriptpage/chart"
	"github.com/arlen/scriptpage/render"
	"github.com/arlen/scriptpage/vault"
)

// Surface is the capability set exposed to one script execution. It is
// built fresh for every execution and bound to that execution's output
// target, so stale closures cannot write into a detached element. A
// flat namespace of closures, deliberately: it crosses into the script
// as one destructurable object.
type Surface struct {
	target  *render.Element
	store   vault.Store
	app     interface{}
	theme   string
	charter chart.Renderer
	refresh func()
}

// NewSurface builds a capability surface bound to one output target.
// refresh requests an immediate out-of-band refresh of the owning
// instance only; it is independent of the global scheduler.
func NewSurface(target *render.Element, store vault.Store, app interface{}, theme string, charter chart.Renderer, refresh func()) *Surface {
	return &Surface{
		target:  target,
		store:   store,
		app:     app,
		theme:   theme,
		charter: charter,
		refresh: refresh,
	}
}

// Container returns the raw output target.
func (s *Surface) Container() *render.Element {
	return s.target
}

// Members returns the flat namespace handed to the script as its
// single argument.
func (s *Surface) Members() map[string]interface{} {
	return map[string]interface{}{
		"page":      s.page,
		"pages":     s.pages,
		"folder":    s.folder,
		"header":    s.header,
		"paragraph": s.paragraph,
		"span":      s.span,
		"list":      s.list,
		"table":     s.table,
		"chart":     s.chart,
		"app":       s.app,
		"container": s.target,
		"refresh":   s.refresh,
	}
}

// --- Query members ---

// record merges a document's front-matter with its file descriptor.
func (s *Surface) record(info *vault.DocInfo) map[string]interface{} {
	rec := map[string]interface{}{}
	if fm, err := s.store.Frontmatter(info.Path); err == nil {
		for k, v := range fm {
			rec[k] = v
		}
	}
	rec["file"] = map[string]interface{}{
		"path":      info.Path,
		"name":      info.Name,
		"basename":  info.Basename,
		"extension": info.Extension,
		"size":      info.Size,
		"ctime":     info.CTime.UnixMilli(),
		"mtime":     info.MTime.UnixMilli(),
	}
	return rec
}

// page returns the structured record for the document at path, or nil
// if none exists there.
func (s *Surface) page(path string) interface{} {
	info, ok := s.store.Resolve(path)
	if !ok {
		return nil
	}
	return s.record(info)
}

// pages returns records for every document whose path starts with the
// folder prefix; no prefix means all documents. Order is the store's
// enumeration order.
func (s *Surface) pages(folderPrefix ...string) []interface{} {
	prefix := ""
	if len(folderPrefix) > 0 {
		prefix = folderPrefix[0]
	}
	out := []interface{}{}
	for _, info := range s.store.All() {
		if strings.HasPrefix(info.Path, prefix) {
			out = append(out, s.record(info))
		}
	}
	return out
}

// folder lists the immediate file children of a folder. An unresolved
// path yields the explicit empty shape with an error string; it never
// raises into the script.
func (s *Surface) folder(path string) map[string]interface{} {
	files, folders, err := s.store.ListFolder(path)
	if err != nil {
		return map[string]interface{}{
			"files":   []interface{}{},
			"folders": []interface{}{},
			"error":   err.Error(),
		}
	}

	fileRecs := make([]interface{}, 0, len(files))
	for _, f := range files {
		path := f.Path
		fileRecs = append(fileRecs, map[string]interface{}{
			"path":      f.Path,
			"name":      f.Name,
			"basename":  f.Basename,
			"extension": f.Extension,
			"size":      f.Size,
			"ctime":     f.CTime.UnixMilli(),
			"mtime":     f.MTime.UnixMilli(),
			// Deferred lookup, recomputed on each access.
			"properties": func() interface{} {
				fm, err := s.store.Frontmatter(path)
				if err != nil {
					return nil
				}
				return fm
			},
		})
	}
	folderNames := make([]interface{}, 0, len(folders))
	for _, name := range folders {
		folderNames = append(folderNames, name)
	}
	return map[string]interface{}{
		"files":   fileRecs,
		"folders": folderNames,
		"error":   "",
	}
}

// --- Rendering members ---

// header appends a heading of the given level (clamped to 1..6).
func (s *Surface) header(level int, text string) *render.Element {
	if level < 1 {
		level = 1
	}
	if level > 6 {
		level = 6
	}
	el := render.NewElement("h" + strconv.Itoa(level)).SetText(text)
	s.target.AppendChild(el)
	return el
}

// paragraph appends a paragraph element.
func (s *Surface) paragraph(text string) *render.Element {
	el := render.NewElement("p").SetText(text)
	s.target.AppendChild(el)
	return el
}

// span appends an inline text element.
func (s *Surface) span(text string) *render.Element {
	el := render.NewElement("span").SetText(text)
	s.target.AppendChild(el)
	return el
}

// list appends an unordered list. String items become list-item text;
// anything else is assumed to be a previously created element and is
// appended as a child of its list item.
func (s *Surface) list(items []interface{}) *render.Element {
	ul := render.NewElement("ul")
	for _, item := range items {
		li := render.NewElement("li")
		switch v := item.(type) {
		case string:
			li.SetText(v)
		case *render.Element:
			li.AppendChild(v)
		default:
			li.SetText(fmt.Sprint(v))
		}
		ul.AppendChild(li)
	}
	s.target.AppendChild(ul)
	return ul
}

// table appends a table: one header row, then one body row per entry,
// preserving row and column order. String and numeric cells become
// text; anything else is appended as a pre-built element.
func (s *Surface) table(headers []interface{}, rows []interface{}) *render.Element {
	tbl := render.NewElement("table")

	thead := render.NewElement("thead")
	headRow := render.NewElement("tr")
	for _, h := range headers {
		headRow.AppendChild(render.NewElement("th").SetText(fmt.Sprint(h)))
	}
	thead.AppendChild(headRow)
	tbl.AppendChild(thead)

	tbody := render.NewElement("tbody")
	for _, row := range rows {
		tr := render.NewElement("tr")
		cells, _ := row.([]interface{})
		for _, cell := range cells {
			td := render.NewElement("td")
			switch v := cell.(type) {
			case string:
				td.SetText(v)
			case int64:
				td.SetText(strconv.FormatInt(v, 10))
			case float64:
				td.SetText(strconv.FormatFloat(v, 'f', -1, 64))
			case *render.Element:
				td.AppendChild(v)
			default:
				td.SetText(fmt.Sprint(v))
			}
			tr.AppendChild(td)
		}
		tbody.AppendChild(tr)
	}
	tbl.AppendChild(tbody)

	s.target.AppendChild(tbl)
	return tbl
}

// chart appends a chart through the charting collaborator. Dataset
// colors come from the fixed palette for the current presentation
// mode, indexed by dataset position. The optional third argument picks
// the chart type (default "bar").
func (s *Surface) chart(datasets []interface{}, labels []interface{}, chartType ...string) {
	typ := "bar"
	if len(chartType) > 0 && chartType[0] != "" {
		typ = chartType[0]
	}

	spec := chart.Spec{Type: typ}
	for _, l := range labels {
		spec.Labels = append(spec.Labels, fmt.Sprint(l))
	}
	for i, d := range datasets {
		ds := chart.Dataset{Color: chart.PaletteColor(s.theme, i)}
		switch v := d.(type) {
		case map[string]interface{}:
			if label, ok := v["label"]; ok {
				ds.Label = fmt.Sprint(label)
			}
			if vals, ok := v["data"].([]interface{}); ok {
				ds.Data = toFloats(vals)
			}
		case []interface{}:
			ds.Data = toFloats(v)
		}
		spec.Datasets = append(spec.Datasets, ds)
	}

	if err := s.charter.Render(s.target, spec); err != nil {
		log.Warningf("chart render failed: %v", err)
	}
}

func toFloats(vals []interface{}) []float64 {
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		switch n := v.(type) {
		case int64:
			out = append(out, float64(n))
		case float64:
			out = append(out, n)
		case int:
			out = append(out, float64(n))
		default:
			out = append(out, 0)
		}
	}
	return out
}
