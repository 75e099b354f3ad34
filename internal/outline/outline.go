// Package outline reads and writes page files: optional YAML frontmatter
// followed by a bullet outline.
//
//	---
//	title: Reading list
//	---
//	- first block
//	  id:: 6f1c0c1e-9a43-4c4e-8a59-5b0a3c2c9d10
//	  second line of the first block
//		- nested block
//
// Nesting is one tab or two spaces per level. An "id::" property line sets
// the block UUID and is not part of the content.
package outline

import (
	"bytes"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/linktitle/internal/models"
)

const idProperty = "id::"

// Document is a parsed page file.
type Document struct {
	Title  string
	Blocks []models.Block
}

type frontmatter struct {
	Title string `yaml:"title,omitempty"`
}

type node struct {
	uuid     string
	lines    []string
	children []*node
}

// Parse decodes a page file. It never fails on malformed outlines: text
// before the first bullet becomes a top-level block, and over-indented
// bullets attach to the deepest open block.
func Parse(data []byte) (*Document, error) {
	fm, body := splitFrontmatter(data)
	doc := &Document{Title: fm.Title}

	root := &node{}
	var stack []*node

	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimRight(line, "\r")
		level, rest := indentLevel(line)

		if rest == "-" || strings.HasPrefix(rest, "- ") {
			if level > len(stack) {
				level = len(stack)
			}
			stack = stack[:level]
			parent := root
			if level > 0 {
				parent = stack[level-1]
			}
			n := &node{lines: []string{strings.TrimPrefix(strings.TrimPrefix(rest, "-"), " ")}}
			parent.children = append(parent.children, n)
			stack = append(stack, n)
			continue
		}

		if len(stack) == 0 {
			if strings.TrimSpace(rest) == "" {
				continue
			}
			n := &node{lines: []string{rest}}
			root.children = append(root.children, n)
			stack = append(stack, n)
			continue
		}

		cur := stack[len(stack)-1]
		if strings.HasPrefix(rest, idProperty) {
			cur.uuid = strings.TrimSpace(rest[len(idProperty):])
			continue
		}
		cur.lines = append(cur.lines, rest)
	}

	doc.Blocks = toBlocks(root.children)
	return doc, nil
}

func toBlocks(nodes []*node) []models.Block {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]models.Block, 0, len(nodes))
	for i, n := range nodes {
		out = append(out, models.Block{
			UUID:     n.uuid,
			Position: i,
			Content:  strings.TrimRight(strings.Join(n.lines, "\n"), " \t\n"),
			Children: toBlocks(n.children),
		})
	}
	return out
}

// indentLevel counts leading tabs and pairs of spaces.
func indentLevel(line string) (int, string) {
	level, spaces, i := 0, 0, 0
	for ; i < len(line); i++ {
		switch line[i] {
		case '\t':
			level++
			spaces = 0
		case ' ':
			spaces++
			if spaces == 2 {
				level++
				spaces = 0
			}
		default:
			return level, line[i:]
		}
	}
	return level, ""
}

// splitFrontmatter separates YAML frontmatter (between leading --- lines)
// from the outline. Invalid or unterminated frontmatter is treated as body.
func splitFrontmatter(data []byte) (frontmatter, string) {
	const delim = "---"
	var fm frontmatter
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return fm, string(data)
	}
	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return fm, string(data)
	}
	if err := yaml.Unmarshal(rest[:idx], &fm); err != nil {
		return frontmatter{}, string(data)
	}
	return fm, strings.TrimLeft(string(rest[idx+1+len(delim):]), "\n\r")
}

// Render encodes a page file. Blocks with a UUID get an id:: property line.
func Render(title string, blocks []models.Block) []byte {
	var buf bytes.Buffer
	if title != "" {
		out, _ := yaml.Marshal(frontmatter{Title: title})
		buf.WriteString("---\n")
		buf.Write(out)
		buf.WriteString("---\n")
	}
	renderBlocks(&buf, blocks, 0)
	return buf.Bytes()
}

func renderBlocks(buf *bytes.Buffer, blocks []models.Block, depth int) {
	indent := strings.Repeat("\t", depth)
	for _, b := range blocks {
		lines := strings.Split(b.Content, "\n")
		buf.WriteString(indent)
		buf.WriteString("- ")
		buf.WriteString(lines[0])
		buf.WriteByte('\n')
		if b.UUID != "" {
			buf.WriteString(indent + "  " + idProperty + " " + b.UUID + "\n")
		}
		for _, l := range lines[1:] {
			buf.WriteString(indent + "  " + l + "\n")
		}
		renderBlocks(buf, b.Children, depth+1)
	}
}

// MissingIDs reports whether any block in the tree lacks a UUID.
func MissingIDs(blocks []models.Block) bool {
	for _, b := range blocks {
		if b.UUID == "" || MissingIDs(b.Children) {
			return true
		}
	}
	return false
}
