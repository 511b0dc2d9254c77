// Package fenced locates fenced code blocks with a given language tag
// inside a document. The LSP server uses the line ranges to scope
// completion and decoration; the preview command uses the extracted
// source to mount blocks.
package fenced

import (
	"strings"
)

// Block is one fenced region: the source between the fences and the
// zero-based line numbers of the fence lines themselves.
type Block struct {
	Source    string
	StartLine int // line of the opening fence
	EndLine   int // line of the closing fence (== last line if unterminated)
}

// Scan returns every fenced block tagged with lang, in document order.
// An unterminated final block extends to the end of the document.
func Scan(text, lang string) []Block {
	var blocks []Block
	lines := strings.Split(text, "\n")

	inBlock := false
	start := 0
	var body []string

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !inBlock {
			if rest, ok := strings.CutPrefix(trimmed, "```"); ok && strings.TrimSpace(rest) == lang {
				inBlock = true
				start = i
				body = body[:0]
			}
			continue
		}
		if trimmed == "```" {
			blocks = append(blocks, Block{
				Source:    strings.Join(body, "\n"),
				StartLine: start,
				EndLine:   i,
			})
			inBlock = false
			continue
		}
		body = append(body, line)
	}

	if inBlock {
		blocks = append(blocks, Block{
			Source:    strings.Join(body, "\n"),
			StartLine: start,
			EndLine:   len(lines) - 1,
		})
	}
	return blocks
}

// Covers reports whether the zero-based line lies strictly inside one
// of the blocks (between the fences, exclusive).
func Covers(blocks []Block, line int) bool {
	for _, b := range blocks {
		if line > b.StartLine && line < b.EndLine {
			return true
		}
	}
	return false
}
