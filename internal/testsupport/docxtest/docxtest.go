// Package docxtest builds small .docx packages for tests.
package docxtest

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"html"
	"image"
	"image/color"
	"image/png"
	"io"
	"regexp"
	"sort"
	"strings"
	"testing"
)

const (
	contentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
		`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
		`<Default Extension="xml" ContentType="application/xml"/>` +
		`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
		`</Types>`
	packageRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
		`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
		`</Relationships>`
	documentRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
		`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>` +
		`</Relationships>`
	documentOpen = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" ` +
		`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" ` +
		`xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"><w:body>`
	documentClose = `<w:sectPr><w:pgSz w:w="11906" w:h="16838"/></w:sectPr></w:body></w:document>`
)

// P builds a paragraph with one run per text.
func P(texts ...string) string {
	var b strings.Builder
	b.WriteString("<w:p>")
	for _, t := range texts {
		b.WriteString(`<w:r><w:t>`)
		b.WriteString(t)
		b.WriteString(`</w:t></w:r>`)
	}
	b.WriteString("</w:p>")
	return b.String()
}

// NumberedP builds a numbered-list paragraph.
func NumberedP(texts ...string) string {
	return strings.Replace(P(texts...), "<w:p>",
		`<w:p><w:pPr><w:numPr><w:ilvl w:val="0"/><w:numId w:val="1"/></w:numPr></w:pPr>`, 1)
}

// Document wraps body markup into a complete package.
func Document(t testing.TB, body string) []byte {
	t.Helper()
	return Package(t, map[string]string{"word/document.xml": documentOpen + body + documentClose})
}

// Package builds a package from parts, filling the mandatory ones when absent.
func Package(t testing.TB, parts map[string]string) []byte {
	t.Helper()

	defaults := []struct{ name, data string }{
		{"[Content_Types].xml", contentTypes},
		{"_rels/.rels", packageRels},
		{"word/_rels/document.xml.rels", documentRels},
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	write := func(name, data string) {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(data)); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	for _, d := range defaults {
		if data, ok := parts[d.name]; ok {
			write(d.name, data)
			continue
		}
		write(d.name, d.data)
	}
	if data, ok := parts["word/document.xml"]; ok {
		write("word/document.xml", data)
	}
	for _, name := range sortedKeys(parts) {
		switch name {
		case "[Content_Types].xml", "_rels/.rels", "word/_rels/document.xml.rels", "word/document.xml":
			continue
		}
		write(name, parts[name])
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

// WrapBody wraps body markup in the document root used by Document.
func WrapBody(body string) string {
	return documentOpen + body + documentClose
}

// StatementTemplate mirrors the statement form layout with every placeholder.
func StatementTemplate(t testing.TB) []byte {
	t.Helper()
	return Document(t, strings.Join([]string{
		P("Matter: ", "{MATTER}"),
		P("Place: {LOCATION}", " Date: {DATE}"),
		P("Name: {NA", "ME}", " Age: {AGE}"),
		P("{#PARAGRAPH}"),
		NumberedP("{value}"),
		P("{/PARAGRAPH}"),
		P("Witness: {%witnessSignature}"),
		P("Officer: {polName} ({polRego})"),
		P("{%policeSignature}"),
	}, ""))
}

// Part returns one part of a package as text.
func Part(t testing.TB, docx []byte, name string) string {
	t.Helper()
	data, ok := PartBytes(t, docx, name)
	if !ok {
		t.Fatalf("part %s not found", name)
	}
	return string(data)
}

// PartBytes returns one part of a package and whether it exists.
func PartBytes(t testing.TB, docx []byte, name string) ([]byte, bool) {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(docx), int64(len(docx)))
	if err != nil {
		t.Fatalf("open docx: %v", err)
	}
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		return data, true
	}
	return nil, false
}

// PNG encodes a small opaque image.
func PNG(t testing.TB, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		img.Set(x, height/2, color.Black)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var textRunPattern = regexp.MustCompile(`<w:t(?:\s[^>]*)?>([^<]*)</w:t>`)

// ParagraphTexts returns the visible text of each paragraph of a part.
func ParagraphTexts(xmlPart string) []string {
	chunks := strings.Split(xmlPart, "</w:p>")
	out := make([]string, 0, len(chunks))
	for _, chunk := range chunks[:len(chunks)-1] {
		var b strings.Builder
		for _, m := range textRunPattern.FindAllStringSubmatch(chunk, -1) {
			b.WriteString(html.UnescapeString(m[1]))
		}
		out = append(out, b.String())
	}
	return out
}

// WellFormed reports the first XML syntax error in a part, if any.
func WellFormed(xmlPart string) error {
	dec := xml.NewDecoder(strings.NewReader(xmlPart))
	for {
		_, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
