package vault

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ExtractFrontmatter splits a document into its YAML front-matter
// fields and the remaining body. A document not opening with a
// front-matter fence yields an empty map and the full input as body.
func ExtractFrontmatter(data []byte) (map[string]interface{}, []byte, error) {
	fields := map[string]interface{}{}

	nl := bytes.IndexByte(data, '\n')
	if nl < 0 {
		return fields, data, nil
	}
	if strings.TrimRight(string(data[:nl]), "\r") != "---" {
		return fields, data, nil
	}
	rest := data[nl+1:]

	block, body, ok := splitAtFence(rest)
	if !ok {
		return fields, data, fmt.Errorf("unterminated front-matter block")
	}

	if err := yaml.Unmarshal(block, &fields); err != nil {
		return map[string]interface{}{}, body, fmt.Errorf("parsing front-matter: %w", err)
	}
	if fields == nil {
		fields = map[string]interface{}{}
	}
	return fields, body, nil
}

// splitAtFence scans for the first line consisting of "---" and returns
// the bytes before it and after it.
func splitAtFence(data []byte) (block, body []byte, ok bool) {
	offset := 0
	for offset <= len(data) {
		lineEnd := bytes.IndexByte(data[offset:], '\n')
		var line string
		var next int
		if lineEnd < 0 {
			line = string(data[offset:])
			next = len(data) + 1
		} else {
			line = string(data[offset : offset+lineEnd])
			next = offset + lineEnd + 1
		}
		if strings.TrimRight(line, "\r") == "---" {
			if next <= len(data) {
				return data[:offset], data[next:], true
			}
			return data[:offset], nil, true
		}
		if lineEnd < 0 {
			break
		}
		offset = next
	}
	return nil, nil, false
}
