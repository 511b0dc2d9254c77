// Package chart defines the charting collaborator the capability
// surface delegates to, plus the fixed palettes used for per-dataset
// coloring.
package chart

import (
	"encoding/json"
	"fmt"

	"github.com/arlen/scriptpage/render"
)

// Dataset is one series of a chart.
type Dataset struct {
	Label string    `json:"label"`
	Data  []float64 `json:"data"`
	Color string    `json:"color"`
}

// Spec is a complete chart description handed to a Renderer.
type Spec struct {
	Type     string    `json:"type"`
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

// Renderer mounts a chart into a target element. Implementations wrap
// whatever charting library the embedder ships; the engine never
// renders pixels itself.
type Renderer interface {
	Render(target *render.Element, spec Spec) error
}

// lightPalette and darkPalette are fixed 8-color palettes indexed by
// dataset position (modulo length).
var lightPalette = []string{
	"#4e79a7", "#f28e2b", "#e15759", "#76b7b2",
	"#59a14f", "#edc948", "#b07aa1", "#ff9da7",
}

var darkPalette = []string{
	"#8ab4f8", "#fdd663", "#f28b82", "#78d9ec",
	"#81c995", "#fcad70", "#c58af9", "#ff8bcb",
}

// PaletteColor returns the palette entry for a dataset index under the
// given presentation mode ("dark" selects the dark palette, anything
// else the light one).
func PaletteColor(theme string, index int) string {
	p := lightPalette
	if theme == "dark" {
		p = darkPalette
	}
	if index < 0 {
		index = -index
	}
	return p[index%len(p)]
}

// CanvasRenderer is the default Renderer: it mounts a canvas element
// carrying the JSON-encoded spec in a data attribute, leaving pixel
// rendering to the embedder's front end.
type CanvasRenderer struct{}

// Render implements Renderer.
func (CanvasRenderer) Render(target *render.Element, spec Spec) error {
	payload, err := json.Marshal(spec)
	if err != nil {
		return fmt.Errorf("encoding chart spec: %w", err)
	}
	canvas := render.NewElement("canvas").
		AddClass("scriptpage-chart").
		SetAttr("data-chart", string(payload))
	target.AppendChild(canvas)
	return nil
}
