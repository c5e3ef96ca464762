package localfs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/witness-statement/internal/core/domain"
)

// TemplateStore reads the template artifact and its manifest from a directory.
// Nothing is cached: every Load reads the files again.
type TemplateStore struct {
	basePath     string
	manifestName string
}

func New(basePath, manifestName string) *TemplateStore {
	if basePath == "" {
		basePath = "./templates"
	}
	return &TemplateStore{basePath: basePath, manifestName: manifestName}
}

func (s *TemplateStore) Load(ctx context.Context) (*domain.TemplateArtifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	manifest, err := s.Manifest()
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemplateUnavailable, "load manifest", err)
	}

	path := s.TemplatePath(manifest)
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemplateUnavailable, "read template", err)
	}

	return &domain.TemplateArtifact{
		Manifest: manifest,
		Content:  content,
	}, nil
}

// Manifest returns the parsed manifest, or the defaults when no manifest file exists.
func (s *TemplateStore) Manifest() (domain.TemplateManifest, error) {
	if s.manifestName == "" {
		return domain.DefaultManifest(), nil
	}

	raw, err := os.ReadFile(filepath.Join(s.basePath, s.manifestName))
	if errors.Is(err, fs.ErrNotExist) {
		return domain.DefaultManifest(), nil
	}
	if err != nil {
		return domain.TemplateManifest{}, fmt.Errorf("read manifest: %w", err)
	}

	var manifest domain.TemplateManifest
	if err := yaml.Unmarshal(raw, &manifest); err != nil {
		return domain.TemplateManifest{}, fmt.Errorf("parse manifest %s: %w", s.manifestName, err)
	}
	return manifest.Normalize(), nil
}

func (s *TemplateStore) TemplatePath(manifest domain.TemplateManifest) string {
	if filepath.IsAbs(manifest.File) {
		return manifest.File
	}
	return filepath.Join(s.basePath, manifest.File)
}

// Check reports whether the template file is readable; used at startup only.
func (s *TemplateStore) Check() error {
	manifest, err := s.Manifest()
	if err != nil {
		return err
	}
	info, err := os.Stat(s.TemplatePath(manifest))
	if err != nil {
		return fmt.Errorf("stat template: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("template %s is a directory", info.Name())
	}
	return nil
}
