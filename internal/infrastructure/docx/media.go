package docx

import (
	"bytes"
	"fmt"
	"image/png"
	"path"
	"regexp"
	"strconv"
	"strings"
)

const (
	emuPerPixel = 9525

	imageRelationshipType = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
	emptyRelationships    = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n" +
		`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`
)

var (
	relationshipIDPattern = regexp.MustCompile(`\bId="([^"]*)"`)
	docPrIDPattern        = regexp.MustCompile(`<wp:docPr[^>]*\bid="(\d+)"`)
	pngDefaultPattern     = regexp.MustCompile(`(?i)<Default\s[^>]*Extension="png"`)
)

// mediaSet allocates media entries, relationships and drawing ids for one render.
type mediaSet struct {
	archive   *archive
	nextMedia int
	nextDocPr int
	rels      map[string]*relationships
	relOrder  []string
	added     int
}

func newMediaSet(a *archive) *mediaSet {
	maxDocPr := 0
	for _, entry := range a.entries {
		if !templatedPart(entry.name) {
			continue
		}
		for _, m := range docPrIDPattern.FindAllSubmatch(entry.data, -1) {
			if id, err := strconv.Atoi(string(m[1])); err == nil && id > maxDocPr {
				maxDocPr = id
			}
		}
	}
	return &mediaSet{
		archive:   a,
		nextMedia: 1,
		nextDocPr: maxDocPr + 1,
		rels:      make(map[string]*relationships),
	}
}

// embed stores a PNG as a new media part referenced from partName and returns
// the run markup that displays it.
func (m *mediaSet) embed(partName, placeholder string, data []byte, width, height int) (string, error) {
	if _, err := png.DecodeConfig(bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("image %q is not a valid PNG: %w", placeholder, err)
	}

	mediaName := m.allocMediaName()
	m.archive.put(mediaName, data)

	rels, err := m.relationshipsFor(partName)
	if err != nil {
		return "", err
	}
	relID := rels.add(imageRelationshipType, path.Join("media", path.Base(mediaName)))

	docPr := m.nextDocPr
	m.nextDocPr++
	m.added++
	return drawingRun(relID, docPr, path.Base(mediaName), width, height), nil
}

func (m *mediaSet) allocMediaName() string {
	for {
		name := fmt.Sprintf("word/media/signature%d.png", m.nextMedia)
		m.nextMedia++
		if !m.archive.has(name) {
			return name
		}
	}
}

func (m *mediaSet) relationshipsFor(partName string) (*relationships, error) {
	if rels, ok := m.rels[partName]; ok {
		return rels, nil
	}
	relsName := path.Join(path.Dir(partName), "_rels", path.Base(partName)+".rels")
	data, ok := m.archive.get(relsName)
	if !ok {
		data = []byte(emptyRelationships)
	}
	rels, err := parseRelationships(relsName, string(data))
	if err != nil {
		return nil, err
	}
	m.rels[partName] = rels
	m.relOrder = append(m.relOrder, partName)
	return rels, nil
}

// flush writes modified relationship parts and registers the png content type.
func (m *mediaSet) flush() error {
	if m.added == 0 {
		return nil
	}
	for _, partName := range m.relOrder {
		rels := m.rels[partName]
		m.archive.put(rels.name, []byte(rels.String()))
	}

	types, _ := m.archive.get(contentTypesPart)
	if pngDefaultPattern.Match(types) {
		return nil
	}
	content := string(types)
	idx := strings.LastIndex(content, "</Types>")
	if idx < 0 {
		return fmt.Errorf("%s has no closing </Types>", contentTypesPart)
	}
	content = content[:idx] + `<Default Extension="png" ContentType="image/png"/>` + content[idx:]
	m.archive.put(contentTypesPart, []byte(content))
	return nil
}

type relationships struct {
	name    string
	content string
	ids     map[string]struct{}
	next    int
	added   []string
}

func parseRelationships(name, content string) (*relationships, error) {
	if !strings.Contains(content, "</Relationships>") {
		return nil, fmt.Errorf("%s has no closing </Relationships>", name)
	}
	ids := make(map[string]struct{})
	for _, m := range relationshipIDPattern.FindAllStringSubmatch(content, -1) {
		ids[m[1]] = struct{}{}
	}
	return &relationships{name: name, content: content, ids: ids, next: 1}, nil
}

func (r *relationships) add(relType, target string) string {
	var id string
	for {
		id = fmt.Sprintf("rIdSignature%d", r.next)
		r.next++
		if _, taken := r.ids[id]; !taken {
			break
		}
	}
	r.ids[id] = struct{}{}
	r.added = append(r.added, fmt.Sprintf(`<Relationship Id="%s" Type="%s" Target="%s"/>`, id, relType, target))
	return id
}

func (r *relationships) String() string {
	idx := strings.LastIndex(r.content, "</Relationships>")
	return r.content[:idx] + strings.Join(r.added, "") + r.content[idx:]
}

// drawingRun closes the surrounding text run, emits an inline picture run and
// reopens a text run, keeping the part balanced.
func drawingRun(relID string, docPrID int, name string, width, height int) string {
	cx := width * emuPerPixel
	cy := height * emuPerPixel
	return fmt.Sprintf(`</w:t></w:r><w:r><w:drawing>`+
		`<wp:inline xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing" distT="0" distB="0" distL="0" distR="0">`+
		`<wp:extent cx="%[1]d" cy="%[2]d"/>`+
		`<wp:effectExtent l="0" t="0" r="0" b="0"/>`+
		`<wp:docPr id="%[3]d" name="Picture %[3]d"/>`+
		`<wp:cNvGraphicFramePr><a:graphicFrameLocks xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" noChangeAspect="1"/></wp:cNvGraphicFramePr>`+
		`<a:graphic xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main">`+
		`<a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/picture">`+
		`<pic:pic xmlns:pic="http://schemas.openxmlformats.org/drawingml/2006/picture">`+
		`<pic:nvPicPr><pic:cNvPr id="0" name="%[4]s"/><pic:cNvPicPr><a:picLocks noChangeAspect="1" noChangeArrowheads="1"/></pic:cNvPicPr></pic:nvPicPr>`+
		`<pic:blipFill><a:blip xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" r:embed="%[5]s"/><a:srcRect/><a:stretch><a:fillRect/></a:stretch></pic:blipFill>`+
		`<pic:spPr bwMode="auto"><a:xfrm><a:off x="0" y="0"/><a:ext cx="%[1]d" cy="%[2]d"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></pic:spPr>`+
		`</pic:pic></a:graphicData></a:graphic></wp:inline></w:drawing></w:r><w:r>`+preservedTextOpen,
		cx, cy, docPrID, name, relID)
}
