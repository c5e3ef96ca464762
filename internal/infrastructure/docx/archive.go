package docx

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"
)

const (
	mainDocumentPart = "word/document.xml"
	contentTypesPart = "[Content_Types].xml"
)

// fixedModTime stamps entries added during rendering so output stays reproducible.
var fixedModTime = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

type archiveEntry struct {
	name     string
	method   uint16
	modified time.Time
	data     []byte
}

// archive is an in-memory, order-preserving copy of a document package.
type archive struct {
	entries []*archiveEntry
	byName  map[string]*archiveEntry
}

func openArchive(content []byte) (*archive, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open template archive: %w", err)
	}

	a := &archive{
		entries: make([]*archiveEntry, 0, len(zr.File)),
		byName:  make(map[string]*archiveEntry, len(zr.File)),
	}
	for _, f := range zr.File {
		data, err := readZipFile(f)
		if err != nil {
			return nil, err
		}
		entry := &archiveEntry{
			name:     f.Name,
			method:   f.Method,
			modified: f.Modified,
			data:     data,
		}
		a.entries = append(a.entries, entry)
		a.byName[f.Name] = entry
	}

	if _, ok := a.byName[mainDocumentPart]; !ok {
		return nil, fmt.Errorf("template archive has no %s", mainDocumentPart)
	}
	if _, ok := a.byName[contentTypesPart]; !ok {
		return nil, fmt.Errorf("template archive has no %s", contentTypesPart)
	}
	return a, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open archive entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read archive entry %s: %w", f.Name, err)
	}
	return data, nil
}

func (a *archive) get(name string) ([]byte, bool) {
	entry, ok := a.byName[name]
	if !ok {
		return nil, false
	}
	return entry.data, true
}

func (a *archive) has(name string) bool {
	_, ok := a.byName[name]
	return ok
}

// put replaces an entry's data, or appends a new deflated entry.
func (a *archive) put(name string, data []byte) {
	if entry, ok := a.byName[name]; ok {
		entry.data = data
		return
	}
	entry := &archiveEntry{
		name:     name,
		method:   zip.Deflate,
		modified: fixedModTime,
		data:     data,
	}
	a.entries = append(a.entries, entry)
	a.byName[name] = entry
}

func (a *archive) bytes() ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, entry := range a.entries {
		header := &zip.FileHeader{
			Name:     entry.name,
			Method:   entry.method,
			Modified: entry.modified,
		}
		w, err := zw.CreateHeader(header)
		if err != nil {
			return nil, fmt.Errorf("write archive entry %s: %w", entry.name, err)
		}
		if strings.HasSuffix(entry.name, "/") {
			continue
		}
		if _, err := w.Write(entry.data); err != nil {
			return nil, fmt.Errorf("write archive entry %s: %w", entry.name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}
	return buf.Bytes(), nil
}
