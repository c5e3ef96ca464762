package domain

const DocxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// RenderedDocument is the generated statement, streamed once and not retained.
type RenderedDocument struct {
	Filename       string `json:"filename"`
	ContentType    string `json:"content_type"`
	Data           []byte `json:"-"`
	NarrativeItems int    `json:"narrative_items"`
}

// TemplateManifest describes a versioned template artifact.
type TemplateManifest struct {
	Name           string    `yaml:"name"`
	Version        string    `yaml:"version"`
	File           string    `yaml:"file"`
	FilenamePrefix string    `yaml:"filename_prefix"`
	Image          ImageSize `yaml:"image"`
}

type ImageSize struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

func DefaultManifest() TemplateManifest {
	return TemplateManifest{
		Name:           "p190A",
		Version:        "1",
		File:           "p190A-Template.docx",
		FilenamePrefix: "P190A",
		Image: ImageSize{
			Width:  DefaultSignatureWidth,
			Height: DefaultSignatureHeight,
		},
	}
}

// Normalize fills zero fields from DefaultManifest.
func (m TemplateManifest) Normalize() TemplateManifest {
	def := DefaultManifest()
	out := m
	if out.Name == "" {
		out.Name = def.Name
	}
	if out.Version == "" {
		out.Version = def.Version
	}
	if out.File == "" {
		out.File = def.File
	}
	if out.FilenamePrefix == "" {
		out.FilenamePrefix = def.FilenamePrefix
	}
	if out.Image.Width <= 0 {
		out.Image.Width = def.Image.Width
	}
	if out.Image.Height <= 0 {
		out.Image.Height = def.Image.Height
	}
	return out
}

// TemplateArtifact is the raw template package and its manifest, loaded per request.
type TemplateArtifact struct {
	Manifest TemplateManifest
	Content  []byte
}
