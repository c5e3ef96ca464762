package docx

import (
	"fmt"
	"html"
	"regexp"
	"strings"
)

type tokenKind int

const (
	tokenMarkup tokenKind = iota
	// tokenText is character data inside a <w:t> element, stored unescaped.
	tokenText
)

type token struct {
	kind tokenKind
	raw  string
	text string
}

var markupPattern = regexp.MustCompile(`<[^>]*>`)

const preservedTextOpen = `<w:t xml:space="preserve">`

// tokenize splits a WordprocessingML part into markup and <w:t> character data.
// Character data anywhere else stays markup and is never templated.
func tokenize(xmlPart string) []token {
	locs := markupPattern.FindAllStringIndex(xmlPart, -1)
	tokens := make([]token, 0, len(locs)*2)

	inText := false
	last := 0
	for _, loc := range locs {
		if loc[0] > last {
			chunk := xmlPart[last:loc[0]]
			if inText {
				tokens = append(tokens, token{kind: tokenText, text: html.UnescapeString(chunk)})
			} else {
				tokens = append(tokens, token{kind: tokenMarkup, raw: chunk})
			}
		}

		tag := xmlPart[loc[0]:loc[1]]
		switch {
		case tag == "<w:t>":
			tokens = append(tokens, token{kind: tokenMarkup, raw: preservedTextOpen})
			inText = true
		case isTextOpen(tag):
			tokens = append(tokens, token{kind: tokenMarkup, raw: tag})
			inText = true
		default:
			if tag == "</w:t>" {
				inText = false
			}
			tokens = append(tokens, token{kind: tokenMarkup, raw: tag})
		}
		last = loc[1]
	}
	if last < len(xmlPart) {
		tokens = append(tokens, token{kind: tokenMarkup, raw: xmlPart[last:]})
	}
	return tokens
}

func isTextOpen(tag string) bool {
	if tag == "<w:t>" {
		return true
	}
	return strings.HasPrefix(tag, "<w:t ") && !strings.HasSuffix(tag, "/>")
}

// mergeSplitTags moves every delimited tag into the text token where it opens.
// Word processors often split "{NAME}" over several runs.
func mergeSplitTags(tokens []token) error {
	owner := -1
	for i := range tokens {
		if tokens[i].kind != tokenText {
			continue
		}

		var keep strings.Builder
		for _, r := range tokens[i].text {
			if owner >= 0 && owner != i {
				tokens[owner].text += string(r)
				if r == tagClose {
					owner = -1
				} else if r == tagOpen {
					return fmt.Errorf("unclosed tag %q", tokens[owner].text)
				}
				continue
			}

			keep.WriteRune(r)
			switch r {
			case tagOpen:
				if owner == i {
					return fmt.Errorf("unclosed tag before %q", keep.String())
				}
				owner = i
			case tagClose:
				if owner != i {
					return fmt.Errorf("unopened tag near %q", keep.String())
				}
				owner = -1
			}
		}
		tokens[i].text = keep.String()
	}

	if owner >= 0 {
		return fmt.Errorf("unclosed tag %q", lastTag(tokens[owner].text))
	}
	return nil
}

func lastTag(text string) string {
	if idx := strings.LastIndexByte(text, byte(tagOpen)); idx >= 0 {
		return text[idx:]
	}
	return text
}

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// escapeText drops characters XML 1.0 forbids before escaping markup.
// Word puts U+000B on the clipboard for soft line breaks.
func escapeText(s string) string {
	return textEscaper.Replace(strings.Map(xmlChar, s))
}

func xmlChar(r rune) rune {
	switch {
	case r == '\t', r == '\n', r == '\r':
		return r
	case r < 0x20:
		return -1
	case r >= 0xD800 && r <= 0xDFFF, r == 0xFFFE, r == 0xFFFF:
		return -1
	}
	return r
}
