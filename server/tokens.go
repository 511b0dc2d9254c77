package server

import (
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/arlen/scriptpage/engine"
	"github.com/arlen/scriptpage/fenced"
)

// Semantic token classes advertised in the server legend, in index
// order.
const (
	tokenTypeKeyword = "keyword"
	tokenTypeMember  = "function"
)

const (
	tokenIndexKeyword = iota
	tokenIndexMember
)

// jsKeywords is the fixed keyword list highlighted inside fenced
// regions.
var jsKeywords = map[string]bool{
	"break": true, "case": true, "catch": true, "class": true,
	"const": true, "continue": true, "default": true, "delete": true,
	"do": true, "else": true, "false": true, "finally": true,
	"for": true, "function": true, "if": true, "in": true,
	"instanceof": true, "let": true, "new": true, "null": true,
	"of": true, "return": true, "switch": true, "this": true,
	"throw": true, "true": true, "try": true, "typeof": true,
	"undefined": true, "var": true, "while": true,
}

// token is one decorated range on a single line.
type token struct {
	line      int
	start     int
	length    int
	typeIndex int
}

// decorate computes style ranges for every line strictly inside a
// fenced block: one class for language keywords, one for recognized
// capability members following the surface trigger. Lines outside
// fenced regions are never decorated.
func decorate(text string, blocks []fenced.Block) []token {
	var tokens []token
	lines := strings.Split(text, "\n")

	for lineNo, line := range lines {
		if !fenced.Covers(blocks, lineNo) {
			continue
		}
		tokens = append(tokens, decorateLine(lineNo, line)...)
	}
	return tokens
}

func decorateLine(lineNo int, line string) []token {
	var tokens []token
	trigger := engine.SurfaceBinding + "."

	i := 0
	for i < len(line) {
		if !isIdentChar(rune(line[i])) {
			i++
			continue
		}
		start := i
		for i < len(line) && isIdentChar(rune(line[i])) {
			i++
		}
		word := line[start:i]

		switch {
		case jsKeywords[word]:
			tokens = append(tokens, token{
				line:      lineNo,
				start:     start,
				length:    len(word),
				typeIndex: tokenIndexKeyword,
			})
		case isSurfaceMember(word) && followsTrigger(line, start, trigger):
			tokens = append(tokens, token{
				line:      lineNo,
				start:     start,
				length:    len(word),
				typeIndex: tokenIndexMember,
			})
		}
	}
	return tokens
}

// followsTrigger reports whether the identifier starting at pos is
// immediately preceded by the surface trigger, itself not embedded in
// a longer identifier.
func followsTrigger(line string, pos int, trigger string) bool {
	if pos < len(trigger) || line[pos-len(trigger):pos] != trigger {
		return false
	}
	if pre := pos - len(trigger); pre > 0 && isIdentChar(rune(line[pre-1])) {
		return false
	}
	return true
}

// encodeTokens packs tokens into the LSP delta-encoded integer stream:
// (deltaLine, deltaStart, length, tokenType, tokenModifiers) per token.
// Tokens must already be in document order, which decorate guarantees.
func encodeTokens(tokens []token) []protocol.UInteger {
	data := make([]protocol.UInteger, 0, len(tokens)*5)
	prevLine, prevStart := 0, 0
	for _, t := range tokens {
		deltaLine := t.line - prevLine
		deltaStart := t.start
		if deltaLine == 0 {
			deltaStart = t.start - prevStart
		}
		data = append(data,
			protocol.UInteger(deltaLine),
			protocol.UInteger(deltaStart),
			protocol.UInteger(t.length),
			protocol.UInteger(t.typeIndex),
			0,
		)
		prevLine, prevStart = t.line, t.start
	}
	return data
}
