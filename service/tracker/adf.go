package tracker

import (
	"encoding/json"
	"fmt"
	"strings"
)

// adfNode is a node of the Atlassian Document Format
type adfNode struct {
	Type    string         `json:"type"`
	Text    string         `json:"text,omitempty"`
	Content []adfNode      `json:"content,omitempty"`
	Marks   []adfMark      `json:"marks,omitempty"`
	Attrs   map[string]any `json:"attrs,omitempty"`
}

type adfMark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// DescriptionToMarkdown converts a Jira description to markdown. The raw
// value is either an ADF document, a plain string or null.
func DescriptionToMarkdown(raw json.RawMessage) (string, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return "", nil
	}

	if strings.HasPrefix(trimmed, `"`) {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return "", err
		}
		return text, nil
	}

	var doc adfNode
	if err := json.Unmarshal(raw, &doc); err != nil {
		return "", fmt.Errorf("invalid description document: %w", err)
	}
	return strings.TrimSpace(renderBlock(doc)), nil
}

func renderBlocks(nodes []adfNode, separator string) string {
	parts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if s := renderBlock(n); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, separator)
}

func renderBlock(n adfNode) string {
	switch n.Type {
	case "doc":
		return renderBlocks(n.Content, "\n\n")
	case "paragraph":
		return renderInline(n.Content)
	case "heading":
		level := 1
		if l, ok := n.Attrs["level"].(float64); ok && l >= 1 && l <= 6 {
			level = int(l)
		}
		return strings.Repeat("#", level) + " " + renderInline(n.Content)
	case "blockquote":
		return prefixLines(renderBlocks(n.Content, "\n\n"), "> ", "> ")
	case "bulletList":
		items := make([]string, 0, len(n.Content))
		for _, item := range n.Content {
			items = append(items, prefixLines(renderBlocks(item.Content, "\n"), "- ", "  "))
		}
		return strings.Join(items, "\n")
	case "orderedList":
		start := 1
		if s, ok := n.Attrs["order"].(float64); ok {
			start = int(s)
		}
		items := make([]string, 0, len(n.Content))
		for i, item := range n.Content {
			marker := fmt.Sprintf("%d. ", start+i)
			items = append(items, prefixLines(renderBlocks(item.Content, "\n"), marker, strings.Repeat(" ", len(marker))))
		}
		return strings.Join(items, "\n")
	case "codeBlock":
		language, _ := n.Attrs["language"].(string)
		return "```" + language + "\n" + plainText(n.Content) + "\n```"
	case "rule":
		return "---"
	case "panel", "listItem", "table", "tableRow", "tableCell", "tableHeader", "expand":
		return renderBlocks(n.Content, "\n\n")
	default:
		return renderInline([]adfNode{n})
	}
}

func renderInline(nodes []adfNode) string {
	var sb strings.Builder
	for _, n := range nodes {
		switch n.Type {
		case "text":
			sb.WriteString(applyMarks(n.Text, n.Marks))
		case "hardBreak":
			sb.WriteString("\n")
		case "mention":
			text, _ := n.Attrs["text"].(string)
			sb.WriteString(text)
		case "emoji":
			shortName, _ := n.Attrs["shortName"].(string)
			sb.WriteString(shortName)
		case "inlineCard":
			url, _ := n.Attrs["url"].(string)
			sb.WriteString(url)
		default:
			if len(n.Content) > 0 {
				sb.WriteString(renderInline(n.Content))
			}
		}
	}
	return sb.String()
}

func applyMarks(text string, marks []adfMark) string {
	for _, m := range marks {
		switch m.Type {
		case "strong":
			text = "**" + text + "**"
		case "em":
			text = "*" + text + "*"
		case "code":
			text = "`" + text + "`"
		case "strike":
			text = "~~" + text + "~~"
		case "link":
			if href, ok := m.Attrs["href"].(string); ok {
				text = "[" + text + "](" + href + ")"
			}
		}
	}
	return text
}

func plainText(nodes []adfNode) string {
	var sb strings.Builder
	for _, n := range nodes {
		sb.WriteString(n.Text)
		sb.WriteString(plainText(n.Content))
	}
	return sb.String()
}

// prefixLines prefixes the first line with first and all others with rest
func prefixLines(text string, first string, rest string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if i == 0 {
			lines[i] = first + line
		} else if line != "" {
			lines[i] = rest + line
		} else {
			lines[i] = strings.TrimRight(rest, " ")
		}
	}
	return strings.Join(lines, "\n")
}
