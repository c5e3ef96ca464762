package docx

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kirillkom/witness-statement/internal/core/domain"
	"github.com/kirillkom/witness-statement/internal/testsupport/docxtest"
)

func statementBinding(t *testing.T, lines ...string) *domain.TemplateBinding {
	t.Helper()
	b := domain.NewTemplateBinding()
	b.Scalars["MATTER"] = "M-1"
	b.Scalars["LOCATION"] = "Sydney"
	b.Scalars["DATE"] = "2025-01-01"
	b.Scalars["NAME"] = "Jane <Doe>"
	b.Scalars["AGE"] = "42"
	b.Scalars["polName"] = "Smith"
	b.Scalars["polRego"] = "1234"
	items := make([]domain.NarrativeItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, domain.NarrativeItem{Value: line})
	}
	b.Sequences["PARAGRAPH"] = items
	b.Images["policeSignature"] = domain.SignatureImage{Width: 180, Height: 70}
	b.Images["witnessSignature"] = domain.SignatureImage{Width: 180, Height: 70}
	return b
}

func render(t *testing.T, template []byte, binding *domain.TemplateBinding) []byte {
	t.Helper()
	out, err := NewRenderer().Render(context.Background(), template, binding)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	return out
}

func TestRenderStatementTemplate(t *testing.T) {
	out := render(t, docxtest.StatementTemplate(t), statementBinding(t, "Line one", "Line two"))

	document := docxtest.Part(t, out, "word/document.xml")
	if err := docxtest.WellFormed(document); err != nil {
		t.Fatalf("rendered document is not well-formed: %v", err)
	}

	want := []string{
		"Matter: M-1",
		"Place: Sydney Date: 2025-01-01",
		"Name: Jane <Doe> Age: 42",
		"Line one",
		"Line two",
		"Witness: ",
		"Officer: Smith (1234)",
		"",
	}
	if diff := cmp.Diff(want, docxtest.ParagraphTexts(document)); diff != "" {
		t.Fatalf("paragraph texts mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(document, "Jane &lt;Doe&gt;") {
		t.Fatalf("expected escaped scalar value in document")
	}
	if got := strings.Count(document, "<w:numId "); got != 2 {
		t.Fatalf("expected 2 numbered paragraphs, got %d", got)
	}
}

func TestRenderEmptySequenceProducesNoIterations(t *testing.T) {
	out := render(t, docxtest.StatementTemplate(t), statementBinding(t))

	document := docxtest.Part(t, out, "word/document.xml")
	if got := strings.Count(document, "<w:numId "); got != 0 {
		t.Fatalf("expected no numbered paragraphs, got %d", got)
	}
	if strings.Contains(document, "{") {
		t.Fatalf("expected no template tags left in document")
	}
	if err := docxtest.WellFormed(document); err != nil {
		t.Fatalf("rendered document is not well-formed: %v", err)
	}
}

func TestRenderDropsCharactersXMLForbids(t *testing.T) {
	binding := statementBinding(t, "Line\x0bone", "Line two\x00")
	binding.Scalars["MATTER"] = "M\x01X"
	binding.Scalars["NAME"] = "Jane\x1f Doe\uFFFE"

	out := render(t, docxtest.StatementTemplate(t), binding)

	document := docxtest.Part(t, out, "word/document.xml")
	if err := docxtest.WellFormed(document); err != nil {
		t.Fatalf("rendered document is not well-formed: %v", err)
	}
	texts := docxtest.ParagraphTexts(document)
	for _, want := range []string{"Matter: MX", "Name: Jane Doe Age: 42", "Lineone", "Line two"} {
		found := false
		for _, text := range texts {
			if text == want {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("paragraph %q not found in %q", want, texts)
		}
	}
}

func TestRenderInlineBlockRepeatsRuns(t *testing.T) {
	template := docxtest.Document(t, docxtest.P("Items:", " {#PARAGRAPH}[{value}]{/PARAGRAPH}", "."))
	out := render(t, template, statementBinding(t, "a", "b", "c"))

	got := docxtest.ParagraphTexts(docxtest.Part(t, out, "word/document.xml"))
	if diff := cmp.Diff([]string{"Items: [a][b][c]."}, got); diff != "" {
		t.Fatalf("inline block mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderBlockSpanningParagraphsWithText(t *testing.T) {
	template := docxtest.Document(t, docxtest.P("Start {#PARAGRAPH}")+docxtest.P("- {value}")+docxtest.P("{/PARAGRAPH} end"))
	out := render(t, template, statementBinding(t, "x", "y"))

	document := docxtest.Part(t, out, "word/document.xml")
	if err := docxtest.WellFormed(document); err != nil {
		t.Fatalf("rendered document is not well-formed: %v", err)
	}
	want := []string{"Start ", "- x", "", "- y", " end"}
	if diff := cmp.Diff(want, docxtest.ParagraphTexts(document)); diff != "" {
		t.Fatalf("paragraph texts mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderInvertedBlock(t *testing.T) {
	template := docxtest.Document(t, docxtest.P("{^PARAGRAPH}No statement given.{/PARAGRAPH}"))

	empty := docxtest.ParagraphTexts(docxtest.Part(t, render(t, template, statementBinding(t)), "word/document.xml"))
	if diff := cmp.Diff([]string{"No statement given."}, empty); diff != "" {
		t.Fatalf("inverted block on empty sequence (-want +got):\n%s", diff)
	}

	filled := docxtest.ParagraphTexts(docxtest.Part(t, render(t, template, statementBinding(t, "line")), "word/document.xml"))
	if diff := cmp.Diff([]string{""}, filled); diff != "" {
		t.Fatalf("inverted block on filled sequence (-want +got):\n%s", diff)
	}
}

func TestRenderConditionalOnScalar(t *testing.T) {
	template := docxtest.Document(t, docxtest.P("{#polRego}Reg: {polRego}{/polRego}"))

	binding := statementBinding(t)
	got := docxtest.ParagraphTexts(docxtest.Part(t, render(t, template, binding), "word/document.xml"))
	if diff := cmp.Diff([]string{"Reg: 1234"}, got); diff != "" {
		t.Fatalf("conditional mismatch (-want +got):\n%s", diff)
	}

	binding.Scalars["polRego"] = ""
	got = docxtest.ParagraphTexts(docxtest.Part(t, render(t, template, binding), "word/document.xml"))
	if diff := cmp.Diff([]string{""}, got); diff != "" {
		t.Fatalf("conditional mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderEmbedsSignatureImages(t *testing.T) {
	binding := statementBinding(t, "line")
	binding.Images["policeSignature"] = domain.SignatureImage{Data: docxtest.PNG(t, 20, 8), Width: 180, Height: 70}
	binding.Images["witnessSignature"] = domain.SignatureImage{Data: docxtest.PNG(t, 30, 10), Width: 180, Height: 70}

	out := render(t, docxtest.StatementTemplate(t), binding)

	document := docxtest.Part(t, out, "word/document.xml")
	if err := docxtest.WellFormed(document); err != nil {
		t.Fatalf("rendered document is not well-formed: %v", err)
	}
	for _, want := range []string{
		`r:embed="rIdSignature1"`,
		`r:embed="rIdSignature2"`,
		`<wp:extent cx="1714500" cy="666750"/>`,
	} {
		if !strings.Contains(document, want) {
			t.Fatalf("document missing %s", want)
		}
	}

	witness, ok := docxtest.PartBytes(t, out, "word/media/signature1.png")
	if !ok || !bytes.Equal(witness, binding.Images["witnessSignature"].Data) {
		t.Fatalf("expected witness signature stored as signature1.png")
	}
	if _, ok := docxtest.PartBytes(t, out, "word/media/signature2.png"); !ok {
		t.Fatalf("expected police signature stored as signature2.png")
	}

	rels := docxtest.Part(t, out, "word/_rels/document.xml.rels")
	if !strings.Contains(rels, `Id="rIdSignature1"`) || !strings.Contains(rels, `Target="media/signature1.png"`) {
		t.Fatalf("relationships missing image entry: %s", rels)
	}
	if !strings.Contains(rels, `Id="rId1"`) {
		t.Fatalf("existing relationships must be kept: %s", rels)
	}
	types := docxtest.Part(t, out, "[Content_Types].xml")
	if !strings.Contains(types, `<Default Extension="png" ContentType="image/png"/>`) {
		t.Fatalf("content types missing png default: %s", types)
	}
}

func TestRenderEmptyImageLeavesPlaceholderBlank(t *testing.T) {
	out := render(t, docxtest.StatementTemplate(t), statementBinding(t, "line"))

	document := docxtest.Part(t, out, "word/document.xml")
	if strings.Contains(document, "<w:drawing>") {
		t.Fatalf("expected no drawing for empty signatures")
	}
	if _, ok := docxtest.PartBytes(t, out, "word/media/signature1.png"); ok {
		t.Fatalf("expected no media part for empty signatures")
	}
	types := docxtest.Part(t, out, "[Content_Types].xml")
	if strings.Contains(types, `Extension="png"`) {
		t.Fatalf("content types must be untouched without images")
	}
}

func TestRenderImageInHeaderCreatesRelationshipsPart(t *testing.T) {
	template := docxtest.Package(t, map[string]string{
		"word/document.xml": docxtest.WrapBody(docxtest.P("{MATTER}")),
		"word/header1.xml":  `<w:hdr xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` + docxtest.P("{%policeSignature}") + `</w:hdr>`,
	})
	binding := statementBinding(t)
	binding.Images["policeSignature"] = domain.SignatureImage{Data: docxtest.PNG(t, 4, 4), Width: 180, Height: 70}

	out := render(t, template, binding)

	rels := docxtest.Part(t, out, "word/_rels/header1.xml.rels")
	if !strings.Contains(rels, `Id="rIdSignature1"`) {
		t.Fatalf("header relationships missing image: %s", rels)
	}
	if err := docxtest.WellFormed(docxtest.Part(t, out, "word/header1.xml")); err != nil {
		t.Fatalf("rendered header is not well-formed: %v", err)
	}
}

func TestRenderRejectsInvalidPNG(t *testing.T) {
	binding := statementBinding(t)
	binding.Images["policeSignature"] = domain.SignatureImage{Data: []byte("ABC"), Width: 180, Height: 70}

	_, err := NewRenderer().Render(context.Background(), docxtest.StatementTemplate(t), binding)
	if !domain.IsKind(err, domain.ErrRender) {
		t.Fatalf("expected render error, got %v", err)
	}
}

func TestRenderMissingScalarIsBindingError(t *testing.T) {
	binding := statementBinding(t)
	delete(binding.Scalars, "MATTER")

	_, err := NewRenderer().Render(context.Background(), docxtest.StatementTemplate(t), binding)
	if !domain.IsKind(err, domain.ErrBinding) {
		t.Fatalf("expected binding error, got %v", err)
	}
	if !strings.Contains(err.Error(), `"MATTER"`) {
		t.Fatalf("expected placeholder name in error, got %v", err)
	}
}

func TestRenderFailures(t *testing.T) {
	tests := []struct {
		name     string
		template func(t *testing.T) []byte
	}{
		{
			name:     "corrupt archive",
			template: func(*testing.T) []byte { return []byte("not a zip") },
		},
		{
			name: "missing main document",
			template: func(t *testing.T) []byte {
				return docxtest.Package(t, map[string]string{"word/other.xml": "<x/>"})
			},
		},
		{
			name: "unclosed block",
			template: func(t *testing.T) []byte {
				return docxtest.Document(t, docxtest.P("{#PARAGRAPH}{value}"))
			},
		},
		{
			name: "mismatched block",
			template: func(t *testing.T) []byte {
				return docxtest.Document(t, docxtest.P("{#PARAGRAPH}{value}{/OTHER}"))
			},
		},
		{
			name: "unclosed tag",
			template: func(t *testing.T) []byte {
				return docxtest.Document(t, docxtest.P("{MATTER"))
			},
		},
		{
			name: "empty tag",
			template: func(t *testing.T) []byte {
				return docxtest.Document(t, docxtest.P("{ }"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := NewRenderer().Render(context.Background(), tt.template(t), statementBinding(t))
			if !domain.IsKind(err, domain.ErrRender) {
				t.Fatalf("expected render error, got %v", err)
			}
			if out != nil {
				t.Fatalf("expected no partial document")
			}
		})
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	template := docxtest.StatementTemplate(t)
	binding := statementBinding(t, "one", "two")
	binding.Images["policeSignature"] = domain.SignatureImage{Data: docxtest.PNG(t, 10, 5), Width: 180, Height: 70}

	first := render(t, template, binding)
	second := render(t, template, binding)
	if !bytes.Equal(first, second) {
		t.Fatalf("expected identical output for identical input")
	}
}

func TestInspectListsDeclaredPlaceholders(t *testing.T) {
	decl, err := NewRenderer().Inspect(docxtest.StatementTemplate(t))
	if err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}

	want := domain.TemplateDeclaration{
		Scalars: []string{"MATTER", "LOCATION", "DATE", "NAME", "AGE", "polName", "polRego"},
		Blocks:  []domain.BlockDeclaration{{Name: "PARAGRAPH", Tags: []string{"value"}}},
		Images:  []string{"witnessSignature", "policeSignature"},
	}
	if diff := cmp.Diff(want, decl); diff != "" {
		t.Fatalf("declaration mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeSplitTags(t *testing.T) {
	tokens := tokenize(`<w:p><w:r><w:t>Name: {NA</w:t></w:r><w:r><w:t>M</w:t></w:r><w:r><w:t>E} ok</w:t></w:r></w:p>`)
	if err := mergeSplitTags(tokens); err != nil {
		t.Fatalf("mergeSplitTags() error = %v", err)
	}

	var texts []string
	for _, tok := range tokens {
		if tok.kind == tokenText {
			texts = append(texts, tok.text)
		}
	}
	if diff := cmp.Diff([]string{"Name: {NAME}", "", " ok"}, texts); diff != "" {
		t.Fatalf("merged texts mismatch (-want +got):\n%s", diff)
	}
}

func TestTokenizeLeavesNonTextCharacterDataAlone(t *testing.T) {
	tokens := tokenize(`<w:p><w:r><w:instrText>{ PAGE }</w:instrText><w:t xml:space="preserve">a &amp; b</w:t></w:r></w:p>`)

	var texts []string
	for _, tok := range tokens {
		if tok.kind == tokenText {
			texts = append(texts, tok.text)
		}
	}
	if diff := cmp.Diff([]string{"a & b"}, texts); diff != "" {
		t.Fatalf("text tokens mismatch (-want +got):\n%s", diff)
	}
}
