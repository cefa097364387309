package adf

import (
	"fmt"
	"strings"
)

// Text flattens an ADF tree to lightly formatted plain text. Block
// structure survives as blank lines, list prefixes and fenced code; inline
// marks other than links and code are dropped.
func Text(node *Node) string {
	if node == nil {
		return ""
	}
	var b strings.Builder
	renderNode(&b, node, "")
	return strings.TrimSpace(b.String())
}

func renderNode(b *strings.Builder, node *Node, listPrefix string) {
	switch node.Type {
	case "doc":
		renderChildren(b, node, "")

	case "paragraph":
		renderChildren(b, node, "")
		b.WriteString("\n\n")

	case "heading":
		renderChildren(b, node, "")
		b.WriteString("\n\n")

	case "bulletList":
		for i := range node.Content {
			renderNode(b, &node.Content[i], listPrefix+"- ")
		}
		if listPrefix == "" {
			b.WriteString("\n")
		}

	case "orderedList":
		for i := range node.Content {
			renderNode(b, &node.Content[i], fmt.Sprintf("%s%d. ", listPrefix, i+1))
		}
		if listPrefix == "" {
			b.WriteString("\n")
		}

	case "listItem":
		// A list item may contain paragraphs or nested lists.
		indent := strings.Repeat(" ", len(listPrefix))
		for i := range node.Content {
			child := &node.Content[i]
			switch {
			case i == 0 && child.Type == "paragraph":
				b.WriteString(listPrefix)
				renderChildren(b, child, "")
				b.WriteString("\n")
			case child.Type == "bulletList" || child.Type == "orderedList":
				renderNode(b, child, indent)
			default:
				b.WriteString(indent)
				renderChildren(b, child, "")
				b.WriteString("\n")
			}
		}

	case "codeBlock":
		b.WriteString("```")
		b.WriteString(node.attrString("language"))
		b.WriteString("\n")
		for _, child := range node.Content {
			b.WriteString(child.Text)
		}
		b.WriteString("\n```\n\n")

	case "blockquote":
		var inner strings.Builder
		renderChildren(&inner, node, "")
		for _, line := range strings.Split(strings.TrimRight(inner.String(), "\n"), "\n") {
			b.WriteString("> ")
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("\n")

	case "rule":
		b.WriteString("---\n\n")

	case "table":
		renderTable(b, node)

	case "text":
		b.WriteString(applyMarks(node.Text, node.Marks))

	case "hardBreak":
		b.WriteString("\n")

	case "mention":
		b.WriteString(node.attrString("text"))

	case "inlineCard", "blockCard":
		b.WriteString(node.attrString("url"))

	case "emoji":
		text := node.attrString("text")
		if text == "" {
			text = node.attrString("shortName")
		}
		b.WriteString(text)

	case "status":
		b.WriteString("[" + node.attrString("text") + "]")

	case "date":
		b.WriteString(node.attrString("timestamp"))

	case "mediaSingle", "mediaGroup":
		renderChildren(b, node, "")
		b.WriteString("\n")

	case "media":
		name := node.attrString("alt")
		if name == "" {
			name = node.attrString("id")
		}
		b.WriteString("[media: " + name + "]")

	case "taskItem":
		box := "[ ] "
		if node.attrString("state") == "DONE" {
			box = "[x] "
		}
		b.WriteString(box)
		renderChildren(b, node, "")
		b.WriteString("\n")

	default:
		// panels, expands, layouts, extensions: keep whatever text they hold
		renderChildren(b, node, listPrefix)
	}
}

func renderChildren(b *strings.Builder, node *Node, listPrefix string) {
	for i := range node.Content {
		renderNode(b, &node.Content[i], listPrefix)
	}
}

func renderTable(b *strings.Builder, node *Node) {
	for _, row := range node.Content {
		if row.Type != "tableRow" {
			continue
		}
		cells := make([]string, 0, len(row.Content))
		for i := range row.Content {
			var cell strings.Builder
			renderChildren(&cell, &row.Content[i], "")
			cells = append(cells, strings.Join(strings.Fields(cell.String()), " "))
		}
		b.WriteString("| ")
		b.WriteString(strings.Join(cells, " | "))
		b.WriteString(" |\n")
	}
	b.WriteString("\n")
}

func applyMarks(text string, marks []Mark) string {
	for _, mark := range marks {
		switch mark.Type {
		case "code":
			text = "`" + text + "`"
		case "link":
			if href, ok := mark.Attrs["href"].(string); ok && href != "" && href != text {
				text = fmt.Sprintf("%s (%s)", text, href)
			}
		}
	}
	return text
}
