package server

import (
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// surfaceMember describes one capability-surface member for completion
// and decoration. Insert is the call-signature text that replaces the
// triggering span on selection.
type surfaceMember struct {
	Name      string
	Kind      protocol.CompletionItemKind
	Signature string
	Insert    string
	Doc       string
}

// surfaceMembers is the fixed namespace scripts receive. The list must
// stay in lockstep with the members the engine binds at execution time.
var surfaceMembers = []surfaceMember{
	{
		Name:      "page",
		Kind:      protocol.CompletionItemKindFunction,
		Signature: "page(path)",
		Insert:    `page("")`,
		Doc:       "Front-matter fields of the document at path, merged with a file descriptor. Null when no document exists there.",
	},
	{
		Name:      "pages",
		Kind:      protocol.CompletionItemKindFunction,
		Signature: "pages(folderPrefix?)",
		Insert:    `pages("")`,
		Doc:       "Records for every document whose path starts with folderPrefix. Empty or omitted prefix returns all documents.",
	},
	{
		Name:      "folder",
		Kind:      protocol.CompletionItemKindFunction,
		Signature: "folder(path)",
		Insert:    `folder("")`,
		Doc:       "Immediate children of the folder at path: {files, folders, error}. The error field is a non-empty string when path is not a folder.",
	},
	{
		Name:      "header",
		Kind:      protocol.CompletionItemKindFunction,
		Signature: "header(level, text)",
		Insert:    `header(1, "")`,
		Doc:       "Append a heading (level clamped to 1..6). Returns the created element.",
	},
	{
		Name:      "paragraph",
		Kind:      protocol.CompletionItemKindFunction,
		Signature: "paragraph(text)",
		Insert:    `paragraph("")`,
		Doc:       "Append a paragraph. Returns the created element.",
	},
	{
		Name:      "span",
		Kind:      protocol.CompletionItemKindFunction,
		Signature: "span(text)",
		Insert:    `span("")`,
		Doc:       "Append an inline text span. Returns the created element.",
	},
	{
		Name:      "list",
		Kind:      protocol.CompletionItemKindFunction,
		Signature: "list(items)",
		Insert:    "list([])",
		Doc:       "Append an unordered list. String items become text, elements are appended as children.",
	},
	{
		Name:      "table",
		Kind:      protocol.CompletionItemKindFunction,
		Signature: "table(headers, rows)",
		Insert:    "table([], [])",
		Doc:       "Append a table with one header row and one body row per entry in rows.",
	},
	{
		Name:      "chart",
		Kind:      protocol.CompletionItemKindFunction,
		Signature: "chart(datasets, labels, type?)",
		Insert:    "chart([], [])",
		Doc:       "Append a chart canvas. Dataset colors come from a fixed palette adapted to the current theme. Default type is \"bar\".",
	},
	{
		Name:      "refresh",
		Kind:      protocol.CompletionItemKindFunction,
		Signature: "refresh()",
		Insert:    "refresh()",
		Doc:       "Request an immediate rerun of this block only, bypassing the debounced scheduler.",
	},
	{
		Name:      "app",
		Kind:      protocol.CompletionItemKindProperty,
		Signature: "app",
		Insert:    "app",
		Doc:       "Unrestricted escape hatch to the full host API.",
	},
	{
		Name:      "container",
		Kind:      protocol.CompletionItemKindProperty,
		Signature: "container",
		Insert:    "container",
		Doc:       "The raw output element this block renders into.",
	},
}

// isSurfaceMember reports whether name is a known capability member.
func isSurfaceMember(name string) bool {
	for _, m := range surfaceMembers {
		if m.Name == name {
			return true
		}
	}
	return false
}
