// Package prosemirror converts ProseMirror JSON documents to the plain
// text the anchoring engine works on, and to HTML for exports. The text
// extraction is the canonical mapping from editor content to engine
// offsets: both sides must derive text the same way or anchors drift.
package prosemirror

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"
)

// Node is a node in the ProseMirror document tree.
type Node struct {
	Type    string         `json:"type"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Content []Node         `json:"content,omitempty"`
	Text    string         `json:"text,omitempty"`
	Marks   []Mark         `json:"marks,omitempty"`
}

// Mark is a text formatting mark.
type Mark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// ToText extracts the plain text of a ProseMirror document. Block
// nodes are separated by single newlines and hard breaks become
// newlines, so offsets are stable across formatting-only edits.
func ToText(raw json.RawMessage) string {
	root, ok := parse(raw)
	if !ok {
		return ""
	}
	var b strings.Builder
	writeText(&b, root)
	return strings.TrimRight(b.String(), "\n")
}

// ToHTML renders a ProseMirror document as HTML.
func ToHTML(raw json.RawMessage) string {
	root, ok := parse(raw)
	if !ok {
		return ""
	}
	return renderNode(root)
}

// FromText builds a minimal ProseMirror document from plain text, one
// paragraph per line. Used when a suggestion is applied to the text
// buffer and the structured content has to be regenerated.
func FromText(text string) json.RawMessage {
	doc := Node{Type: "doc"}
	for _, line := range strings.Split(text, "\n") {
		para := Node{Type: "paragraph"}
		if line != "" {
			para.Content = []Node{{Type: "text", Text: line}}
		}
		doc.Content = append(doc.Content, para)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil
	}
	return raw
}

func parse(raw json.RawMessage) (Node, bool) {
	if len(raw) == 0 {
		return Node{}, false
	}
	var root Node
	if err := json.Unmarshal(raw, &root); err != nil || root.Type == "" {
		return Node{}, false
	}
	return root, true
}

// isBlock reports whether a node type terminates a line of text.
func isBlock(nodeType string) bool {
	switch nodeType {
	case "paragraph", "heading", "listItem", "blockquote", "codeBlock", "tableRow", "horizontalRule":
		return true
	}
	return false
}

func writeText(b *strings.Builder, node Node) {
	switch node.Type {
	case "text":
		b.WriteString(node.Text)
		return
	case "hardBreak":
		b.WriteString("\n")
		return
	}
	for _, child := range node.Content {
		writeText(b, child)
	}
	if isBlock(node.Type) {
		b.WriteString("\n")
	}
}

func renderNode(node Node) string {
	switch node.Type {
	case "doc":
		return renderContent(node.Content)
	case "paragraph":
		return fmt.Sprintf("<p>%s</p>\n", renderContent(node.Content))
	case "heading":
		level := 1
		if lvl, ok := node.Attrs["level"].(float64); ok {
			level = int(lvl)
		}
		return fmt.Sprintf("<h%d>%s</h%d>\n", level, renderContent(node.Content), level)
	case "bulletList":
		return fmt.Sprintf("<ul>\n%s</ul>\n", renderContent(node.Content))
	case "orderedList":
		return fmt.Sprintf("<ol>\n%s</ol>\n", renderContent(node.Content))
	case "listItem":
		return fmt.Sprintf("<li>%s</li>\n", renderContent(node.Content))
	case "blockquote":
		return fmt.Sprintf("<blockquote>\n%s</blockquote>\n", renderContent(node.Content))
	case "codeBlock":
		return fmt.Sprintf("<pre><code>%s</code></pre>\n", html.EscapeString(rawText(node)))
	case "text":
		return renderTextWithMarks(node.Text, node.Marks)
	case "hardBreak":
		return "<br>"
	case "horizontalRule":
		return "<hr>\n"
	default:
		return renderContent(node.Content)
	}
}

func renderContent(content []Node) string {
	var b strings.Builder
	for _, child := range content {
		b.WriteString(renderNode(child))
	}
	return b.String()
}

func rawText(node Node) string {
	var b strings.Builder
	for _, child := range node.Content {
		if child.Type == "text" {
			b.WriteString(child.Text)
		} else {
			b.WriteString(rawText(child))
		}
	}
	return b.String()
}

func renderTextWithMarks(text string, marks []Mark) string {
	if text == "" {
		return ""
	}
	htmlText := html.EscapeString(text)
	for i := len(marks) - 1; i >= 0; i-- {
		switch marks[i].Type {
		case "bold":
			htmlText = "<strong>" + htmlText + "</strong>"
		case "italic":
			htmlText = "<em>" + htmlText + "</em>"
		case "code":
			htmlText = "<code>" + htmlText + "</code>"
		case "strike":
			htmlText = "<s>" + htmlText + "</s>"
		case "underline":
			htmlText = "<u>" + htmlText + "</u>"
		case "link":
			href, _ := marks[i].Attrs["href"].(string)
			htmlText = fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(href), htmlText)
		}
	}
	return htmlText
}
