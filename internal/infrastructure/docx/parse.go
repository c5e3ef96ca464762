package docx

import (
	"fmt"
	"strings"
)

const (
	tagOpen  = '{'
	tagClose = '}'
)

type nodeKind int

const (
	nodeMarkup nodeKind = iota
	nodeText
	nodeScalar
	nodeImage
	nodeOpen
	nodeClose
	nodeBlock
)

// node is one element of a parsed part. value holds raw markup, literal text,
// or a placeholder name depending on kind; children is set for blocks.
type node struct {
	kind     nodeKind
	value    string
	inverted bool
	children []node
}

// parseTemplate turns a WordprocessingML part into a tree of nodes.
func parseTemplate(xmlPart string) ([]node, error) {
	tokens := tokenize(xmlPart)
	if err := mergeSplitTags(tokens); err != nil {
		return nil, err
	}

	flat, err := flatten(tokens)
	if err != nil {
		return nil, err
	}
	flat = collapseParagraphBlocks(flat)
	return buildTree(flat)
}

func flatten(tokens []token) ([]node, error) {
	out := make([]node, 0, len(tokens))
	for _, tok := range tokens {
		if tok.kind == tokenMarkup {
			out = append(out, node{kind: nodeMarkup, value: tok.raw})
			continue
		}

		rest := tok.text
		for rest != "" {
			start := strings.IndexRune(rest, tagOpen)
			if start < 0 {
				out = append(out, node{kind: nodeText, value: rest})
				break
			}
			if start > 0 {
				out = append(out, node{kind: nodeText, value: rest[:start]})
			}
			end := strings.IndexRune(rest[start:], tagClose)
			if end < 0 {
				return nil, fmt.Errorf("unclosed tag %q", rest[start:])
			}
			tag, err := parseTag(rest[start+1 : start+end])
			if err != nil {
				return nil, err
			}
			out = append(out, tag)
			rest = rest[start+end+1:]
		}
	}
	return out, nil
}

func parseTag(content string) (node, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return node{}, fmt.Errorf("empty tag {}")
	}

	kind := nodeScalar
	inverted := false
	switch content[0] {
	case '#':
		kind = nodeOpen
	case '^':
		kind = nodeOpen
		inverted = true
	case '/':
		kind = nodeClose
	case '%':
		kind = nodeImage
	}
	name := content
	if kind != nodeScalar {
		name = strings.TrimSpace(content[1:])
	}
	if name == "" {
		return node{}, fmt.Errorf("tag {%s} has no name", content)
	}
	return node{kind: kind, value: name, inverted: inverted}, nil
}

// collapseParagraphBlocks rewrites blocks whose opening and closing tags each sit
// alone in their own paragraph: the marker paragraphs are dropped so the block
// repeats the whole paragraphs between them.
func collapseParagraphBlocks(flat []node) []node {
	for i := 0; i < len(flat); i++ {
		if flat[i].kind != nodeOpen {
			continue
		}
		j := matchingClose(flat, i)
		if j < 0 {
			continue
		}

		openStart, openEnd, ok := aloneInParagraph(flat, i)
		if !ok {
			continue
		}
		closeStart, closeEnd, ok := aloneInParagraph(flat, j)
		if !ok || openEnd >= closeStart {
			continue
		}

		out := make([]node, 0, len(flat))
		out = append(out, flat[:openStart]...)
		out = append(out, flat[i])
		out = append(out, flat[openEnd+1:closeStart]...)
		out = append(out, flat[j])
		out = append(out, flat[closeEnd+1:]...)
		flat = out
		i = openStart
	}
	return flat
}

func matchingClose(flat []node, open int) int {
	depth := 0
	name := flat[open].value
	for k := open + 1; k < len(flat); k++ {
		switch flat[k].kind {
		case nodeOpen:
			if flat[k].value == name {
				depth++
			}
		case nodeClose:
			if flat[k].value != name {
				continue
			}
			if depth == 0 {
				return k
			}
			depth--
		}
	}
	return -1
}

// aloneInParagraph reports the markup bounds of the paragraph around flat[k]
// when that paragraph holds nothing visible besides flat[k].
func aloneInParagraph(flat []node, k int) (int, int, bool) {
	start := -1
	depth := 0
	for m := k - 1; m >= 0 && start < 0; m-- {
		if flat[m].kind != nodeMarkup {
			continue
		}
		switch {
		case flat[m].value == "</w:p>":
			depth++
		case isParagraphOpen(flat[m].value):
			if depth == 0 {
				start = m
			} else {
				depth--
			}
		}
	}
	if start < 0 {
		return 0, 0, false
	}

	end := -1
	depth = 0
	for m := k + 1; m < len(flat) && end < 0; m++ {
		if flat[m].kind != nodeMarkup {
			continue
		}
		switch {
		case isParagraphOpen(flat[m].value):
			depth++
		case flat[m].value == "</w:p>":
			if depth == 0 {
				end = m
			} else {
				depth--
			}
		}
	}
	if end < 0 {
		return 0, 0, false
	}

	for m := start; m <= end; m++ {
		if m == k {
			continue
		}
		switch flat[m].kind {
		case nodeMarkup:
			if strings.HasPrefix(flat[m].value, "<w:sectPr") {
				return 0, 0, false
			}
		case nodeText:
			if strings.TrimSpace(flat[m].value) != "" {
				return 0, 0, false
			}
		default:
			return 0, 0, false
		}
	}
	return start, end, true
}

func isParagraphOpen(tag string) bool {
	if tag == "<w:p>" {
		return true
	}
	return strings.HasPrefix(tag, "<w:p ") && !strings.HasSuffix(tag, "/>")
}

func buildTree(flat []node) ([]node, error) {
	type frame struct {
		open     node
		children []node
	}
	stack := []frame{{}}

	for _, n := range flat {
		switch n.kind {
		case nodeOpen:
			stack = append(stack, frame{open: n})
		case nodeClose:
			if len(stack) == 1 {
				return nil, fmt.Errorf("closing tag {/%s} has no matching opening tag", n.value)
			}
			top := stack[len(stack)-1]
			if top.open.value != n.value {
				return nil, fmt.Errorf("block {#%s} closed by {/%s}", top.open.value, n.value)
			}
			stack = stack[:len(stack)-1]
			parent := &stack[len(stack)-1]
			parent.children = append(parent.children, node{
				kind:     nodeBlock,
				value:    top.open.value,
				inverted: top.open.inverted,
				children: top.children,
			})
		default:
			top := &stack[len(stack)-1]
			top.children = append(top.children, n)
		}
	}

	if len(stack) != 1 {
		return nil, fmt.Errorf("block {#%s} is never closed", stack[len(stack)-1].open.value)
	}
	return stack[0].children, nil
}
