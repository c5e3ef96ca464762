// Package docx merges template bindings into WordprocessingML (.docx) packages.
//
// Templates use single-brace tags inside document text: {NAME} for scalars,
// {#LIST}...{/LIST} for repeating blocks, {^LIST}...{/LIST} for blocks shown only
// when LIST is empty, and {%IMAGE} for inline PNG images.
package docx

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/kirillkom/witness-statement/internal/core/domain"
)

var templatedPartPattern = regexp.MustCompile(`^word/(document|header\d*|footer\d*|footnotes|endnotes)\.xml$`)

func templatedPart(name string) bool {
	return templatedPartPattern.MatchString(name)
}

type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

// Inspect lists the placeholders declared across all templated parts.
func (r *Renderer) Inspect(template []byte) (domain.TemplateDeclaration, error) {
	a, err := openArchive(template)
	if err != nil {
		return domain.TemplateDeclaration{}, domain.WrapError(domain.ErrRender, "inspect template", err)
	}

	c := newDeclarationCollector()
	for _, entry := range a.entries {
		if !templatedPart(entry.name) {
			continue
		}
		nodes, err := parseTemplate(string(entry.data))
		if err != nil {
			return domain.TemplateDeclaration{}, domain.WrapError(domain.ErrRender, "inspect template", fmt.Errorf("%s: %w", entry.name, err))
		}
		c.collect(nodes, -1)
	}
	return c.declaration(), nil
}

// Render applies binding to every templated part and repackages the archive.
// Any failure aborts the whole render.
func (r *Renderer) Render(ctx context.Context, template []byte, binding *domain.TemplateBinding) ([]byte, error) {
	if binding == nil {
		return nil, domain.WrapError(domain.ErrBinding, "render template", fmt.Errorf("binding is nil"))
	}
	a, err := openArchive(template)
	if err != nil {
		return nil, domain.WrapError(domain.ErrRender, "render template", err)
	}

	media := newMediaSet(a)
	parts := make([]*archiveEntry, 0, 4)
	for _, entry := range a.entries {
		if templatedPart(entry.name) {
			parts = append(parts, entry)
		}
	}

	for _, entry := range parts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		nodes, err := parseTemplate(string(entry.data))
		if err != nil {
			return nil, domain.WrapError(domain.ErrRender, "render template", fmt.Errorf("%s: %w", entry.name, err))
		}

		w := &partWriter{
			part:    entry.name,
			binding: binding,
			media:   media,
		}
		if err := w.write(nodes, newRootScope(binding)); err != nil {
			return nil, fmt.Errorf("%s: %w", entry.name, err)
		}
		entry.data = []byte(w.out.String())
	}

	if err := media.flush(); err != nil {
		return nil, domain.WrapError(domain.ErrRender, "render template", err)
	}
	out, err := a.bytes()
	if err != nil {
		return nil, domain.WrapError(domain.ErrRender, "render template", err)
	}
	return out, nil
}

type scope struct {
	fields map[string]string
	parent *scope
}

func newRootScope(binding *domain.TemplateBinding) *scope {
	return &scope{fields: binding.Scalars}
}

func (s *scope) lookup(name string) (string, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.fields[name]; ok {
			return v, true
		}
	}
	return "", false
}

type partWriter struct {
	part    string
	binding *domain.TemplateBinding
	media   *mediaSet
	out     strings.Builder
}

func (w *partWriter) write(nodes []node, sc *scope) error {
	for _, n := range nodes {
		switch n.kind {
		case nodeMarkup:
			w.out.WriteString(n.value)
		case nodeText:
			w.out.WriteString(escapeText(n.value))
		case nodeScalar:
			v, ok := sc.lookup(n.value)
			if !ok {
				return domain.WrapError(domain.ErrBinding, "render placeholder", fmt.Errorf("placeholder %q has no bound value", n.value))
			}
			w.out.WriteString(escapeText(v))
		case nodeImage:
			if err := w.writeImage(n.value); err != nil {
				return err
			}
		case nodeBlock:
			if err := w.writeBlock(n, sc); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *partWriter) writeImage(name string) error {
	img, ok := w.binding.Images[name]
	if !ok {
		return domain.WrapError(domain.ErrBinding, "render image", fmt.Errorf("image placeholder %q has no bound image", name))
	}
	if img.Empty() {
		return nil
	}
	width, height := img.Width, img.Height
	if width <= 0 {
		width = domain.DefaultSignatureWidth
	}
	if height <= 0 {
		height = domain.DefaultSignatureHeight
	}
	markup, err := w.media.embed(w.part, name, img.Data, width, height)
	if err != nil {
		return domain.WrapError(domain.ErrRender, "embed image", err)
	}
	w.out.WriteString(markup)
	return nil
}

// writeBlock repeats a block per sequence item. A block bound to a scalar acts
// as a condition on the scalar being non-empty.
func (w *partWriter) writeBlock(n node, sc *scope) error {
	if items, ok := w.binding.Sequences[n.value]; ok {
		if n.inverted {
			if len(items) == 0 {
				return w.write(n.children, sc)
			}
			return nil
		}
		for _, item := range items {
			if err := w.write(n.children, &scope{fields: item.Fields(), parent: sc}); err != nil {
				return err
			}
		}
		return nil
	}

	if v, ok := sc.lookup(n.value); ok {
		if (v != "") != n.inverted {
			return w.write(n.children, sc)
		}
		return nil
	}
	return domain.WrapError(domain.ErrBinding, "render block", fmt.Errorf("repeating block %q has no bound sequence", n.value))
}

type declarationCollector struct {
	scalars    []string
	seenScalar map[string]bool
	images     []string
	seenImage  map[string]bool
	blocks     []domain.BlockDeclaration
	blockIndex map[string]int
}

func newDeclarationCollector() *declarationCollector {
	return &declarationCollector{
		seenScalar: make(map[string]bool),
		seenImage:  make(map[string]bool),
		blockIndex: make(map[string]int),
	}
}

// collect walks nodes; block is the index of the enclosing block declaration or -1.
func (c *declarationCollector) collect(nodes []node, block int) {
	for _, n := range nodes {
		switch n.kind {
		case nodeScalar:
			if block < 0 {
				if !c.seenScalar[n.value] {
					c.seenScalar[n.value] = true
					c.scalars = append(c.scalars, n.value)
				}
				continue
			}
			if !slices.Contains(c.blocks[block].Tags, n.value) {
				c.blocks[block].Tags = append(c.blocks[block].Tags, n.value)
			}
		case nodeImage:
			if !c.seenImage[n.value] {
				c.seenImage[n.value] = true
				c.images = append(c.images, n.value)
			}
		case nodeBlock:
			idx, ok := c.blockIndex[n.value]
			if !ok {
				idx = len(c.blocks)
				c.blockIndex[n.value] = idx
				c.blocks = append(c.blocks, domain.BlockDeclaration{Name: n.value, Inverted: n.inverted})
			} else if !n.inverted {
				c.blocks[idx].Inverted = false
			}
			c.collect(n.children, idx)
		}
	}
}

func (c *declarationCollector) declaration() domain.TemplateDeclaration {
	return domain.TemplateDeclaration{
		Scalars: c.scalars,
		Blocks:  c.blocks,
		Images:  c.images,
	}
}
