package domain

import "sort"

// TemplateBinding maps placeholder names to request-specific values.
// A binding is built per request and never shared.
type TemplateBinding struct {
	Scalars   map[string]string
	Sequences map[string][]NarrativeItem
	Images    map[string]SignatureImage
}

func NewTemplateBinding() *TemplateBinding {
	return &TemplateBinding{
		Scalars:   make(map[string]string),
		Sequences: make(map[string][]NarrativeItem),
		Images:    make(map[string]SignatureImage),
	}
}

func (b *TemplateBinding) Has(name string) bool {
	if b == nil {
		return false
	}
	if _, ok := b.Scalars[name]; ok {
		return true
	}
	if _, ok := b.Sequences[name]; ok {
		return true
	}
	_, ok := b.Images[name]
	return ok
}

// Keys returns every bound name in sorted order.
func (b *TemplateBinding) Keys() []string {
	if b == nil {
		return nil
	}
	keys := make([]string, 0, len(b.Scalars)+len(b.Sequences)+len(b.Images))
	for k := range b.Scalars {
		keys = append(keys, k)
	}
	for k := range b.Sequences {
		keys = append(keys, k)
	}
	for k := range b.Images {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// BlockDeclaration describes one repeating (or inverted) block of a template.
type BlockDeclaration struct {
	Name     string
	Inverted bool
	// Tags are the scalar placeholders referenced inside the block.
	Tags []string
}

// TemplateDeclaration lists the placeholders a template artifact declares.
type TemplateDeclaration struct {
	Scalars []string
	Blocks  []BlockDeclaration
	Images  []string
}
