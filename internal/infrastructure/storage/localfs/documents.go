package localfs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DocumentDir writes generated documents into a directory.
type DocumentDir struct {
	basePath string
}

func NewDocumentDir(basePath string) (*DocumentDir, error) {
	if basePath == "" {
		basePath = "./out"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &DocumentDir{basePath: basePath}, nil
}

// WriteDocument stores data under name, replacing any file of that name.
// The file appears complete or not at all.
func (d *DocumentDir) WriteDocument(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("invalid document name %q", name)
	}

	f, err := os.CreateTemp(d.basePath, ".partial-*")
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(d.basePath, name)); err != nil {
		return fmt.Errorf("rename file: %w", err)
	}
	return nil
}
